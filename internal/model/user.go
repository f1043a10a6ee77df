package model

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByGoogleID(ctx context.Context, googleID string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	UpdateAvatarURL(ctx context.Context, id uuid.UUID, avatarURL string) error
	List(ctx context.Context) ([]User, error)
}

// Role names present in the seed data. Gates compare against these,
// case-insensitively.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleUser   = "user"
)

// Role is a named role attached to every user. Permission rows exist in the
// database for administration tooling, but authorization decisions use only
// the role name.
type Role struct {
	ID          string
	Name        string
	Description string
}

// Is reports whether the role matches the given name, ignoring case.
func (r Role) Is(name string) bool {
	return strings.EqualFold(r.ID, name)
}

// User represents a stored identity record. PasswordHash is nil for accounts
// created through an external provider; GoogleID is nil for local accounts.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash *string
	GoogleID     *string
	Name         string
	AvatarURL    *string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
