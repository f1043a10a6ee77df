package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore persists issued refresh tokens. Rows are addressed by the
// SHA-256 hash of the token string, so the presented token value is the key.
type RefreshTokenStore interface {
	Create(ctx context.Context, token RefreshToken) error
	Exists(ctx context.Context, tokenHash []byte) (bool, error)
	// Consume deletes the row addressed by tokenHash and reports whether a row
	// was actually removed. The delete is a single atomic statement: under two
	// concurrent consumers exactly one sees removed == true.
	Consume(ctx context.Context, tokenHash []byte) (removed bool, err error)
}

// RefreshToken is the stored record of an issued refresh token. The row being
// present means the token has not been used or revoked; time validity is
// carried by the JWT claims and checked by the token manager.
type RefreshToken struct {
	ID        uuid.UUID
	TokenHash []byte
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}
