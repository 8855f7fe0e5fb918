package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"

	"github.com/hiruy72/mobile-movie-app/internal/env"
	"github.com/hiruy72/mobile-movie-app/internal/handlers"
	"github.com/hiruy72/mobile-movie-app/internal/history"
	"github.com/hiruy72/mobile-movie-app/internal/identity"
	"github.com/hiruy72/mobile-movie-app/internal/logger"
	"github.com/hiruy72/mobile-movie-app/internal/profile"
	"github.com/hiruy72/mobile-movie-app/internal/store"
	"github.com/hiruy72/mobile-movie-app/internal/tmdb"

	_ "github.com/joho/godotenv/autoload"
)

const defaultPort = "8080"

func main() {
	level := slog.LevelDebug
	if env.Current == env.Production {
		level = slog.LevelInfo
	}
	slog.SetDefault(logger.New(level))

	if err := run(); err != nil {
		fmt.Println("Error:", err.Error())
		os.Exit(1)
	}
}

func run() error {
	dbPath := envOr("DB_PATH", "/app/data/mobile-movie-app.db")
	apiKey := os.Getenv("TMDB_API_KEY")
	identitySecret := os.Getenv("IDENTITY_JWT_SECRET")
	if apiKey == "" {
		return errors.New("TMDB_API_KEY is required")
	}
	if identitySecret == "" {
		return errors.New("IDENTITY_JWT_SECRET is required")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close DB", logger.Error(err))
		}
	}()

	catalog := tmdb.New(apiKey, os.Getenv("TMDB_API_READ_TOKEN"))
	catalog.SetImageBase(envOr("TMDB_IMAGE_BASE", tmdb.DefaultImageBase))

	app, err := handlers.New(&handlers.Config{
		TMDB:     catalog,
		Profiles: profile.NewService(st),
		History:  history.NewStore(st),
	})
	if err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	verifier := identity.NewVerifier(identitySecret)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Device-ID"},
		MaxAge:         300,
	}))
	r.Use(httplog.RequestLogger(slog.Default(), &httplog.Options{
		Level:         slog.LevelInfo,
		RecoverPanics: true,
	}))
	r.Use(verifier.Middleware)
	r.Route("/api", app.RegisterRoutes)

	addr := ":" + envOr("PORT", defaultPort)
	log.Printf("listening on %s", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
