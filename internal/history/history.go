// Package history keeps the bounded list of prior search terms, one
// list per caller key, persisted through the store.
package history

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hiruy72/mobile-movie-app/internal/logger"
	"github.com/hiruy72/mobile-movie-app/internal/store"
)

// MaxEntries caps the stored history; the oldest entry falls off when a
// new one is prepended.
const MaxEntries = 5

type Store struct {
	store *store.Store
}

func NewStore(st *store.Store) *Store {
	return &Store{store: st}
}

// Load returns the history for a key, most-recent-first.
func (s *Store) Load(ctx context.Context, key string) ([]string, error) {
	return s.store.GetHistory(ctx, key)
}

// Record prepends a query and returns the updated history. Empty or
// whitespace-only queries are ignored, and so are duplicates: a query
// already anywhere in the list leaves it unchanged, it is not moved to
// the front. A storage failure is logged and the prior list returned;
// it never surfaces to the caller.
func (s *Store) Record(ctx context.Context, key, query string) []string {
	current, err := s.store.GetHistory(ctx, key)
	if err != nil {
		slog.Warn("load search history failed", logger.Error(err), slog.String("key", key))
		return []string{}
	}

	if strings.TrimSpace(query) == "" {
		return current
	}
	for _, entry := range current {
		if entry == query {
			return current
		}
	}

	updated := append([]string{query}, current...)
	if len(updated) > MaxEntries {
		updated = updated[:MaxEntries]
	}

	if err := s.store.PutHistory(ctx, key, updated); err != nil {
		slog.Warn("save search history failed", logger.Error(err), slog.String("key", key))
		return current
	}
	return updated
}

// Clear drops the entire history for a key. There is no per-entry
// removal.
func (s *Store) Clear(ctx context.Context, key string) error {
	return s.store.DeleteHistory(ctx, key)
}
