package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/gateway"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/pg"
)

// PostgresStore persists profiles in a row-level-secured table keyed by
// identity id. Postgres errors are classified here into the package
// sentinels; callers never inspect SQLSTATE themselves.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const upsertQuery = `
INSERT INTO profiles (id, email, username, display_name, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (id) DO UPDATE
SET email        = EXCLUDED.email,
    display_name = EXCLUDED.display_name,
    updated_at   = now()
RETURNING id, email, username, display_name, is_admin, is_developer, created_at, updated_at`

// Upsert inserts or updates the row for p.ID. Username is written only on
// insert; the conflict branch leaves it untouched because it is immutable.
func (s *PostgresStore) Upsert(ctx context.Context, p Profile) (Profile, error) {
	row := s.pool.QueryRow(ctx, upsertQuery, p.ID, p.Email, p.Username, p.DisplayName)

	var out Profile
	err := row.Scan(&out.ID, &out.Email, &out.Username, &out.DisplayName,
		&out.IsAdmin, &out.IsDeveloper, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return Profile{}, classifyStoreError(err)
	}
	return out, nil
}

// ByID fetches one profile row.
func (s *PostgresStore) ByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, username, display_name, is_admin, is_developer, created_at, updated_at
		 FROM profiles WHERE id = $1`, id)

	var out Profile
	err := row.Scan(&out.ID, &out.Email, &out.Username, &out.DisplayName,
		&out.IsAdmin, &out.IsDeveloper, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if pg.IsNotFound(err) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, classifyStoreError(err)
	}
	return out, nil
}

// UsernameTaken reports whether any profile already claims the username.
func (s *PostgresStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE username = $1)`, username).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return taken, nil
}

// HasProfileForEmail reports whether a profile row exists for the email. The
// sign-up flow uses it to tell an orphaned identity apart from a complete
// account.
func (s *PostgresStore) HasProfileForEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check profile for email: %w", err)
	}
	return exists, nil
}

func classifyStoreError(err error) error {
	switch {
	case pg.IsUniqueViolation(err):
		return ErrUsernameConflict
	case pg.IsPermissionDenied(err):
		return ErrPermissionDenied
	default:
		return fmt.Errorf("profile store query failed: %w", err)
	}
}

// Compile-time interface assertions
var (
	_ Store                  = (*PostgresStore)(nil)
	_ gateway.ProfileChecker = (*PostgresStore)(nil)
)
