package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/auth-server/internal/logger"
	"github.com/dtroode/auth-server/internal/model"
)

// TokenService provides high-level operations for issuing, refreshing,
// and revoking tokens. It composes the TokenManager and RefreshTokenStore.
type TokenService struct {
	manager model.TokenManager
	store   model.RefreshTokenStore
	logger  *logger.Logger
}

func NewTokenService(manager model.TokenManager, store model.RefreshTokenStore, logger *logger.Logger) *TokenService {
	return &TokenService{manager: manager, store: store, logger: logger}
}

// NOTE: Keep this in sync with the token manager. The stored expiry is used
// only for persistence queries; cryptographic validity is checked against the
// JWT claims by the manager at parse time.
const refreshTTL = 7 * 24 * time.Hour

// Issue mints an access/refresh pair and persists the refresh token keyed by
// its hash. A hash collision with an existing row is rejected by the store as
// ErrDuplicateToken and surfaces as a plain error here.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID) (accessToken string, refreshToken string, err error) {
	access, err := s.manager.GenerateAccessToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("issue access: %w", err)
	}

	refresh, err := s.manager.GenerateRefreshToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("issue refresh: %w", err)
	}

	now := time.Now()
	rt := model.RefreshToken{
		ID:        uuid.New(),
		TokenHash: hashToken(refresh),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(refreshTTL),
	}

	if err := s.store.Create(ctx, rt); err != nil {
		return "", "", fmt.Errorf("persist refresh: %w", err)
	}

	return access, refresh, nil
}

// Refresh rotates a refresh token: the presented token is consumed and a new
// pair is issued. Tokens are single-use; replay of a consumed token fails with
// ErrUnauthorized. A token that fails signature or expiry checks is removed
// from the store if present, so a stale row cannot be replayed later either.
func (s *TokenService) Refresh(ctx context.Context, presentedRefresh string) (newAccess string, newRefresh string, err error) {
	presentedHash := hashToken(presentedRefresh)

	userID, parseErr := s.manager.ParseRefreshToken(presentedRefresh)
	if parseErr != nil {
		if removed, cleanupErr := s.store.Consume(ctx, presentedHash); cleanupErr != nil {
			s.logger.Error("token service: failed to clean up stale refresh token",
				"error", cleanupErr.Error())
		} else if removed {
			s.logger.Info("token service: removed stale refresh token")
		}
		return "", "", model.ErrUnauthorized
	}

	// Single atomic delete: of two concurrent refreshes with the same token,
	// exactly one observes removed == true.
	removed, err := s.store.Consume(ctx, presentedHash)
	if err != nil {
		return "", "", fmt.Errorf("consume refresh: %w", err)
	}
	if !removed {
		return "", "", model.ErrUnauthorized
	}

	access, err := s.manager.GenerateAccessToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("issue new access: %w", err)
	}

	refresh, err := s.manager.GenerateRefreshToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("issue new refresh: %w", err)
	}

	now := time.Now()
	newRT := model.RefreshToken{
		ID:        uuid.New(),
		TokenHash: hashToken(refresh),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(refreshTTL),
	}
	if err := s.store.Create(ctx, newRT); err != nil {
		return "", "", fmt.Errorf("persist new refresh: %w", err)
	}

	return access, refresh, nil
}

// Revoke consumes the presented refresh token. Absence is not an error.
func (s *TokenService) Revoke(ctx context.Context, presentedRefresh string) error {
	if presentedRefresh == "" {
		return nil
	}
	if _, err := s.store.Consume(ctx, hashToken(presentedRefresh)); err != nil {
		return fmt.Errorf("revoke refresh: %w", err)
	}
	return nil
}

// GetUserID resolves the subject of an access token.
func (s *TokenService) GetUserID(ctx context.Context, token string) (uuid.UUID, error) {
	return s.manager.ParseAccessToken(token)
}

func hashToken(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}
