package profile

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Profile is the application-owned record attached to one identity. ID is
// the identity id; Username is immutable after creation.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	IsAdmin     bool      `json:"is_admin"`
	IsDeveloper bool      `json:"is_developer"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Fields carries the caller-supplied profile attributes for an upsert.
type Fields struct {
	Username    string
	DisplayName string
}

// Store is the persistence boundary for profile rows. Upsert is
// insert-or-update keyed on id, never insert-or-fail.
type Store interface {
	Upsert(ctx context.Context, p Profile) (Profile, error)
	ByID(ctx context.Context, id uuid.UUID) (Profile, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	HasProfileForEmail(ctx context.Context, email string) (bool, error)
}
