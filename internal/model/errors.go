package model

import "errors"

var (
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on registration when the email is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCredentials covers unknown email, missing password hash and
	// password mismatch uniformly, so callers cannot tell which case applied.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for missing, invalid, expired or unknown tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned for authenticated subjects with the wrong role.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateToken is returned when a refresh token row already exists.
	ErrDuplicateToken = errors.New("duplicate refresh token")
	// ErrInvalidIdentity is returned for provider assertions missing required fields.
	ErrInvalidIdentity = errors.New("invalid external identity")
)
