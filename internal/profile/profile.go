// Package profile reconciles authenticated identities against the user
// profile table: fetch-or-create on first use, partial update on edit.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hiruy72/mobile-movie-app/internal/identity"
	"github.com/hiruy72/mobile-movie-app/internal/store"
)

type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// EnsureSynced looks the profile row up by the identity's external id
// and creates it from the identity when missing. An existing row is
// returned unchanged even when the provider's current values differ.
func (s *Service) EnsureSynced(ctx context.Context, ident identity.Identity) (store.User, error) {
	if ident.ID == "" {
		return store.User{}, errors.New("identity id is required")
	}

	existing, err := s.store.GetUser(ctx, ident.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.User{}, fmt.Errorf("lookup user %s: %w", ident.ID, err)
	}

	slog.Info("syncing new user to profile store", slog.String("id", ident.ID))
	inserted, err := s.store.InsertUser(ctx, &store.User{
		ID:        ident.ID,
		Email:     ident.Email,
		FullName:  ident.FullName,
		AvatarURL: ident.AvatarURL,
		Bio:       "",
	})
	if err == nil {
		return inserted, nil
	}

	// Two first syncs for the same identity can race; the uniqueness
	// constraint is the backstop. Treat the losing insert as
	// already-exists and return the winner's row.
	if store.IsConflict(err) {
		return s.store.GetUser(ctx, ident.ID)
	}
	return store.User{}, fmt.Errorf("insert user %s: %w", ident.ID, err)
}

// Update applies a partial profile edit. Only the supplied fields
// change; updated_at always refreshes.
func (s *Service) Update(ctx context.Context, id string, update store.ProfileUpdate) (store.User, error) {
	if id == "" {
		return store.User{}, errors.New("user id is required")
	}
	user, err := s.store.UpdateUser(ctx, id, update)
	if err != nil {
		return store.User{}, fmt.Errorf("update user %s: %w", id, err)
	}
	return user, nil
}
