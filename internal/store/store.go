// Package store provides SQLite persistence for user profiles and
// per-device search history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

type Store struct {
	sqldb *sql.DB
	db    *bun.DB
}

var hasColumnCache sync.Map

// User mirrors the remote profile table. The id comes from the external
// identity provider, never generated here.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string `bun:"id,pk"`
	Email     string `bun:"email,notnull"`
	FullName  string `bun:"full_name,notnull"`
	AvatarURL string `bun:"avatar_url,notnull"`
	Bio       string `bun:"bio,notnull"`
	CreatedAt string `bun:"created_at,notnull"`
	UpdatedAt string `bun:"updated_at,notnull"`
}

type historyRow struct {
	bun.BaseModel `bun:"table:search_history,alias:h"`

	Key       string `bun:"key,pk"`
	Value     string `bun:"value,notnull"`
	UpdatedAt string `bun:"updated_at,notnull"`
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("DB_PATH is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := sqldb.PingContext(ctx); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("ping db: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	if err := initSchema(ctx, sqldb); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("init schema: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	bdb := bun.NewDB(sqldb, sqlitedialect.New())
	return &Store{sqldb: sqldb, db: bdb}, nil
}

func (s *Store) Close() error { return s.sqldb.Close() }

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS search_history (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}

	if err := addColumnIfMissing(ctx, db, "users", "avatar_url", "ALTER TABLE users ADD COLUMN avatar_url TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	if err := addColumnIfMissing(ctx, db, "users", "bio", "ALTER TABLE users ADD COLUMN bio TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	return nil
}

func addColumnIfMissing(ctx context.Context, db *sql.DB, table, column, statement string) error {
	has, err := hasColumn(ctx, db, table, column)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = db.ExecContext(ctx, statement)
	if err != nil {
		has2, herr := hasColumn(ctx, db, table, column)
		if herr == nil && has2 {
			return nil
		}
	}
	return err
}

func hasColumn(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	cacheKey := table + "." + column
	if cached, ok := hasColumnCache.Load(cacheKey); ok {
		return cached.(bool), nil
	}

	//nolint:gosec // table is controlled in this package.
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}

	found := false
	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			if cerr := rows.Close(); cerr != nil {
				return false, cerr
			}
			return false, err
		}
		if name == column {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		if cerr := rows.Close(); cerr != nil {
			return false, cerr
		}
		return false, err
	}
	if cerr := rows.Close(); cerr != nil {
		return false, cerr
	}

	hasColumnCache.Store(cacheKey, found)
	return found, nil
}

// GetUser looks a profile row up by identity id.
func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := s.db.NewSelect().
		Model(&u).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	return u, err
}

// InsertUser writes a new profile row, stamping both timestamps.
func (s *Store) InsertUser(ctx context.Context, user *User) (User, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	// Copy to avoid mutating caller-owned object.
	u := *user
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.db.NewInsert().Model(&u).Exec(ctx); err != nil {
		return User{}, err
	}
	return u, nil
}

// ProfileUpdate carries the optional profile-edit fields. Nil means
// leave the column untouched.
type ProfileUpdate struct {
	FullName  *string
	Bio       *string
	AvatarURL *string
}

// UpdateUser applies a partial update and refreshes updated_at, then
// returns the new row.
func (s *Store) UpdateUser(ctx context.Context, id string, update ProfileUpdate) (User, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	q := s.db.NewUpdate().
		Table("users").
		Where("id = ?", id).
		Set("updated_at = ?", now)

	if update.FullName != nil {
		q = q.Set("full_name = ?", *update.FullName)
	}
	if update.Bio != nil {
		q = q.Set("bio = ?", *update.Bio)
	}
	if update.AvatarURL != nil {
		q = q.Set("avatar_url = ?", *update.AvatarURL)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return User{}, err
	}
	if err := expectRowsAffected(res); err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, id)
}

// GetHistory decodes the stored history array for a key. A missing row
// is an empty history, not an error.
func (s *Store) GetHistory(ctx context.Context, key string) ([]string, error) {
	var row historyRow
	err := s.db.NewSelect().
		Model(&row).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []string
	if err := json.Unmarshal([]byte(row.Value), &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []string{}
	}
	return entries, nil
}

// PutHistory stores the full history array for a key, replacing any
// previous value.
func (s *Store) PutHistory(ctx context.Context, key string, entries []string) error {
	encoded, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	row := historyRow{
		Key:       key,
		Value:     string(encoded),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	_, err = s.db.NewInsert().
		Model(&row).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// DeleteHistory drops the history row for a key. Deleting a missing row
// is not an error.
func (s *Store) DeleteHistory(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*historyRow)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return err
}

// IsConflict reports whether an insert failed on a uniqueness
// constraint, the duplicate-key case of concurrent first-time syncs.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}

func expectRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
