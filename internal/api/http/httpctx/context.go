package httpctx

import (
	"context"

	"github.com/dtroode/auth-server/internal/model"
)

type ctxKey struct{}

// Manager carries the authenticated user through request contexts. The value
// is the full user record with role attached; a missing value means the
// request is unauthenticated.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetUserToContext returns a context carrying the authenticated user.
func (m *Manager) SetUserToContext(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// GetUserFromContext retrieves the authenticated user, if any.
func (m *Manager) GetUserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(model.User)
	return user, ok
}
