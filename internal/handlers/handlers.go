// Package handlers wires HTTP routing and the screen-facing API.
package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/hiruy72/mobile-movie-app/internal/history"
	"github.com/hiruy72/mobile-movie-app/internal/identity"
	"github.com/hiruy72/mobile-movie-app/internal/logger"
	"github.com/hiruy72/mobile-movie-app/internal/mood"
	"github.com/hiruy72/mobile-movie-app/internal/profile"
	"github.com/hiruy72/mobile-movie-app/internal/store"
	"github.com/hiruy72/mobile-movie-app/internal/tmdb"
)

// The home screen shows the first carouselSize items as the hero
// carousel and the remainder as the grid. Fixed contract, not
// configurable.
const carouselSize = 5

// minSearchLength gates outbound search calls: anything shorter clears
// the results without querying the catalog.
const minSearchLength = 3

const (
	sizeCarousel = "w500"
	sizeGrid     = "w342"
	sizeProfile  = "w185"
)

const syncTimeout = 10 * time.Second

type Handler struct {
	tmdb     *tmdb.Client
	profiles *profile.Service
	history  *history.Store
}

type Config struct {
	TMDB     *tmdb.Client
	Profiles *profile.Service
	History  *history.Store
}

func New(cfg *Config) (*Handler, error) {
	if cfg.TMDB == nil {
		return nil, errors.New("tmdb client is required")
	}
	if cfg.Profiles == nil {
		return nil, errors.New("profile service is required")
	}
	if cfg.History == nil {
		return nil, errors.New("history store is required")
	}
	return &Handler{
		tmdb:     cfg.TMDB,
		profiles: cfg.Profiles,
		history:  cfg.History,
	}, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Method(http.MethodGet, "/home", Adapt(h.getHome))
	r.Method(http.MethodGet, "/see-all", Adapt(h.getSeeAll))
	r.Method(http.MethodGet, "/search", Adapt(h.getSearch))
	r.Method(http.MethodGet, "/moods", Adapt(h.getMoods))
	r.Method(http.MethodGet, "/movies/{id:[0-9]+}", Adapt(h.getMovie))

	r.Route("/history", func(r chi.Router) {
		r.Method(http.MethodGet, "/", Adapt(h.getHistory))
		r.Method(http.MethodPost, "/", Adapt(h.postHistory))
		r.Method(http.MethodDelete, "/", Adapt(h.deleteHistory))
	})

	r.Group(func(r chi.Router) {
		r.Use(h.MiddlewareRequireIdentity)

		r.Method(http.MethodGet, "/profile", Adapt(h.getProfile))
		r.Method(http.MethodPut, "/profile", Adapt(h.putProfile))
	})
}

type listItem struct {
	ID          int64   `json:"id"`
	MediaType   string  `json:"media_type"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path,omitempty"`
	PosterURL   string  `json:"poster_url"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date,omitempty"`
	VoteAverage float64 `json:"vote_average"`
}

type homeResponse struct {
	Filter   string     `json:"filter"`
	Mood     string     `json:"mood,omitempty"`
	Carousel []listItem `json:"carousel"`
	Grid     []listItem `json:"grid"`
}

type listResponse struct {
	Filter  string     `json:"filter"`
	Mood    string     `json:"mood,omitempty"`
	Results []listItem `json:"results"`
}

type searchResponse struct {
	Query   string     `json:"query"`
	Results []listItem `json:"results"`
}

type historyResponse struct {
	Entries []string `json:"entries"`
}

type recordHistoryRequest struct {
	Query string `json:"query"`
}

type castView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Character  string `json:"character"`
	ProfileURL string `json:"profile_url"`
}

type detailView struct {
	listItem
	Runtime int64        `json:"runtime"`
	Genres  []tmdb.Genre `json:"genres"`
	Cast    []castView   `json:"cast"`
}

type moodsResponse struct {
	Moods []mood.Definition `json:"moods"`
}

type userView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type updateProfileRequest struct {
	FullName  *string `json:"full_name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

func (h *Handler) getHome(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	sel := parseSelection(r)

	items, err := h.browse(ctx, sel)
	if err != nil {
		// Benign empty screen, never a crash. Nothing is retried.
		slog.Warn("home catalog fetch failed", logger.Error(err))
		items = []tmdb.Item{}
	} else if ident, ok := identity.FromContext(ctx); ok {
		// Fire-and-forget: the render path does not wait for the
		// profile sync and a failure there never blanks the screen.
		go h.syncProfile(ident)
	}

	carousel, grid := splitCarousel(items)
	writeJSON(w, http.StatusOK, &homeResponse{
		Filter:   string(sel.Filter),
		Mood:     sel.Mood,
		Carousel: h.toListItems(carousel, sizeCarousel),
		Grid:     h.toListItems(grid, sizeGrid),
	})
	return nil
}

func (h *Handler) getSeeAll(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	sel := parseSelection(r)

	items, err := h.browse(ctx, sel)
	if err != nil {
		slog.Warn("see-all catalog fetch failed", logger.Error(err))
		items = []tmdb.Item{}
	}

	writeJSON(w, http.StatusOK, &listResponse{
		Filter:  string(sel.Filter),
		Mood:    sel.Mood,
		Results: h.toListItems(items, sizeGrid),
	})
	return nil
}

func (h *Handler) getSearch(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	// Short queries never reach the catalog; the screen just shows an
	// empty result set.
	if utf8.RuneCountInString(query) < minSearchLength {
		writeJSON(w, http.StatusOK, &searchResponse{Query: query, Results: []listItem{}})
		return nil
	}

	items, err := h.tmdb.SearchMovies(ctx, query)
	if err != nil {
		slog.Warn("search failed", logger.Error(err), slog.String("query", query))
		items = []tmdb.Item{}
	}

	writeJSON(w, http.StatusOK, &searchResponse{
		Query:   query,
		Results: h.toListItems(items, sizeGrid),
	})
	return nil
}

func (h *Handler) getMoods(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, &moodsResponse{Moods: mood.All()})
	return nil
}

func (h *Handler) getMovie(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	id, err := idParam(r, "id")
	if err != nil {
		return badRequest(err.Error())
	}

	detail, err := h.tmdb.MovieDetails(ctx, id)
	if err != nil {
		slog.Warn("movie details failed", logger.Error(err), slog.Int64("id", id))
		return badGateway("catalog unavailable")
	}

	cast := make([]castView, 0, len(detail.Cast))
	for _, c := range detail.Cast {
		cast = append(cast, castView{
			ID:         c.ID,
			Name:       c.Name,
			Character:  c.Character,
			ProfileURL: h.tmdb.ImageURL(c.ProfilePath, sizeProfile),
		})
	}

	writeJSON(w, http.StatusOK, &detailView{
		listItem: h.toListItem(detail.Item, sizeCarousel),
		Runtime:  detail.Runtime,
		Genres:   detail.Genres,
		Cast:     cast,
	})
	return nil
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) error {
	entries, err := h.history.Load(r.Context(), historyKey(r))
	if err != nil {
		slog.Warn("load history failed", logger.Error(err))
		entries = []string{}
	}
	writeJSON(w, http.StatusOK, &historyResponse{Entries: entries})
	return nil
}

func (h *Handler) postHistory(w http.ResponseWriter, r *http.Request) error {
	var req recordHistoryRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}

	entries := h.history.Record(r.Context(), historyKey(r), req.Query)
	writeJSON(w, http.StatusOK, &historyResponse{Entries: entries})
	return nil
}

func (h *Handler) deleteHistory(w http.ResponseWriter, r *http.Request) error {
	if err := h.history.Clear(r.Context(), historyKey(r)); err != nil {
		slog.Warn("clear history failed", logger.Error(err))
		return internal(err)
	}
	writeJSON(w, http.StatusOK, &historyResponse{Entries: []string{}})
	return nil
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	ident, ok := identity.FromContext(ctx)
	if !ok {
		return unauthorized("unauthorized")
	}

	user, err := h.profiles.EnsureSynced(ctx, ident)
	if err != nil {
		slog.Warn("profile sync failed", logger.Error(err), slog.String("id", ident.ID))
		return internal(err)
	}

	writeJSON(w, http.StatusOK, toUserView(user))
	return nil
}

func (h *Handler) putProfile(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	ident, ok := identity.FromContext(ctx)
	if !ok {
		return unauthorized("unauthorized")
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	if req.FullName == nil && req.Bio == nil && req.AvatarURL == nil {
		return badRequest("no profile fields provided")
	}

	user, err := h.profiles.Update(ctx, ident.ID, store.ProfileUpdate{
		FullName:  req.FullName,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("profile not found")
		}
		slog.Warn("profile update failed", logger.Error(err), slog.String("id", ident.ID))
		return internal(err)
	}

	writeJSON(w, http.StatusOK, toUserView(user))
	return nil
}

// browse resolves the selection into one catalog query: a mood, when
// active, discovers by its genres and the tab filter is ignored.
func (h *Handler) browse(ctx context.Context, sel mood.Selection) ([]tmdb.Item, error) {
	if sel.MoodActive() {
		return h.tmdb.DiscoverByGenres(ctx, mood.Resolve(sel.Mood))
	}
	switch sel.Filter {
	case mood.FilterMovies:
		return h.tmdb.TrendingMovies(ctx)
	case mood.FilterTV:
		return h.tmdb.TrendingTV(ctx)
	default:
		return h.tmdb.TrendingAll(ctx)
	}
}

func (h *Handler) syncProfile(ident identity.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	if _, err := h.profiles.EnsureSynced(ctx, ident); err != nil {
		slog.Warn("background profile sync failed", logger.Error(err), slog.String("id", ident.ID))
	}
}

func (h *Handler) toListItem(item tmdb.Item, size string) listItem {
	return listItem{
		ID:          item.ID,
		MediaType:   item.MediaType,
		Title:       item.Title,
		PosterPath:  item.PosterPath,
		PosterURL:   h.tmdb.ImageURL(item.PosterPath, size),
		Overview:    item.Overview,
		ReleaseDate: item.ReleaseDate,
		VoteAverage: item.VoteAverage,
	}
}

func (h *Handler) toListItems(items []tmdb.Item, size string) []listItem {
	out := make([]listItem, 0, len(items))
	for _, item := range items {
		out = append(out, h.toListItem(item, size))
	}
	return out
}

func toUserView(user store.User) userView {
	return userView{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
		Bio:       user.Bio,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func parseSelection(r *http.Request) mood.Selection {
	sel := mood.NewSelection()
	if f := r.URL.Query().Get("filter"); f != "" {
		sel.SetFilter(mood.ParseFilter(f))
	}
	if m := r.URL.Query().Get("mood"); m != "" {
		sel.SetMood(m)
	}
	return sel
}

// splitCarousel partitions a result list into the fixed hero carousel
// and the remainder grid. Short lists leave the grid empty.
func splitCarousel(items []tmdb.Item) (carousel, grid []tmdb.Item) {
	if len(items) <= carouselSize {
		return items, nil
	}
	return items[:carouselSize], items[carouselSize:]
}

// historyKey picks the storage key for search history: the signed-in
// user when there is one, otherwise the device, so guest history keeps
// working the way device-local storage did.
func historyKey(r *http.Request) string {
	if ident, ok := identity.FromContext(r.Context()); ok {
		return "user:" + ident.ID
	}
	if device := strings.TrimSpace(r.Header.Get("X-Device-ID")); device != "" {
		return "device:" + device
	}
	return "local"
}
