package model

import "context"

// ContextManager carries the authenticated user through request contexts.
// Absence of a user means the request is unauthenticated.
type ContextManager interface {
	SetUserToContext(ctx context.Context, user User) context.Context
	GetUserFromContext(ctx context.Context) (User, bool)
}
