package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/auth-server/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	db *Connection
}

func NewRefreshTokenRepository(db *Connection) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (id, token_hash, user_id, issued_at, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
    `

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query,
		token.ID, token.TokenHash, token.UserID, token.IssuedAt, token.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrDuplicateToken
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) Exists(ctx context.Context, tokenHash []byte) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE token_hash = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, tokenHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check refresh token: %w", err)
	}
	return exists, nil
}

// Consume removes the row in a single DELETE and reports whether anything was
// removed. Two concurrent calls with the same token get exactly one true.
func (r *RefreshTokenRepository) Consume(ctx context.Context, tokenHash []byte) (bool, error) {
	const query = `DELETE FROM refresh_tokens WHERE token_hash = $1`

	tag, err := r.db.Exec(ctx, query, tokenHash)
	if err != nil {
		return false, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
