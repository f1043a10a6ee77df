package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/auth-server/internal/logger"
	"github.com/dtroode/auth-server/internal/model"
)

// Auth verifies credentials, resolves external identities and orchestrates
// the session lifecycle: login, refresh, logout and whoami.
type Auth struct {
	userStore    model.UserStore
	hasher       model.PasswordHasher
	storage      model.Storage
	tokenService *TokenService
	logger       *logger.Logger
}

func NewAuth(
	userStore model.UserStore,
	refreshTokenStore model.RefreshTokenStore,
	storage model.Storage,
	hasher model.PasswordHasher,
	tokenManager model.TokenManager,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		userStore:    userStore,
		hasher:       hasher,
		storage:      storage,
		tokenService: NewTokenService(tokenManager, refreshTokenStore, logger),
		logger:       logger,
	}
}

// Tokens exposes the underlying token service for transport middleware.
func (a *Auth) Tokens() *TokenService {
	return a.tokenService
}

// Register creates a local account with a hashed password and the default
// user role. Fails with ErrAlreadyExists when the email is taken.
func (a *Auth) Register(ctx context.Context, email, password, name string) (model.User, error) {
	a.logger.Debug("Auth service: registering user",
		"email", email)

	existingUser, err := a.userStore.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if existingUser.ID != uuid.Nil {
		a.logger.Info("Auth service: user already exists",
			"email", email)
		return model.User{}, model.ErrAlreadyExists
	}

	digest, err := a.hasher.Hash(password)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: &digest,
		Name:         name,
		Role:         model.Role{ID: model.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The store maps a concurrent insert with the same email to
	// ErrAlreadyExists, so a lost race is still reported as a conflict.
	savedUser, err := a.userStore.Create(ctx, user)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			return model.User{}, err
		}
		a.logger.Error("Auth service: failed to create user",
			"email", email,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: user registered",
		"email", email,
		"user_id", savedUser.ID)

	return savedUser, nil
}

// Login verifies an email/password pair and mints a session. Unknown email,
// an account without a password digest and a wrong password all fail with
// the same ErrInvalidCredentials.
func (a *Auth) Login(ctx context.Context, email, password string) (model.Session, error) {
	a.logger.Debug("Auth service: logging in user",
		"email", email)

	user, err := a.userStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return model.Session{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if user.PasswordHash == nil || !a.hasher.Compare(password, *user.PasswordHash) {
		return model.Session{}, model.ErrInvalidCredentials
	}

	access, refresh, err := a.tokenService.Issue(ctx, user.ID)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	a.logger.Info("Auth service: user logged in",
		"email", email,
		"user_id", user.ID)

	return model.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, nil
}

// LoginExternal resolves a provider-verified identity to a user record and
// mints a session the same way Login does.
func (a *Auth) LoginExternal(ctx context.Context, identity model.ExternalIdentity) (model.Session, error) {
	a.logger.Debug("Auth service: logging in external identity",
		"provider_id", identity.ProviderID)

	if err := identity.Validate(); err != nil {
		return model.Session{}, err
	}

	user, err := a.resolveExternalIdentity(ctx, identity)
	if err != nil {
		return model.Session{}, err
	}

	access, refresh, err := a.tokenService.Issue(ctx, user.ID)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	a.logger.Info("Auth service: external identity logged in",
		"provider_id", identity.ProviderID,
		"user_id", user.ID)

	return model.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, nil
}

// resolveExternalIdentity looks up by provider id first, then by email, and
// creates a new user when neither matches. A record found by email is
// returned unchanged: the provider id is not attached to it.
func (a *Auth) resolveExternalIdentity(ctx context.Context, identity model.ExternalIdentity) (model.User, error) {
	user, err := a.userStore.GetByGoogleID(ctx, identity.ProviderID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by google id: %w", err)
	}

	user, err = a.userStore.GetByEmail(ctx, identity.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	providerID := identity.ProviderID
	now := time.Now()
	newUser := model.User{
		ID:        uuid.New(),
		Email:     identity.Email,
		GoogleID:  &providerID,
		Name:      identity.DisplayName,
		AvatarURL: identity.AvatarURL,
		Role:      model.Role{ID: model.RoleUser},
		CreatedAt: now,
		UpdatedAt: now,
	}

	savedUser, err := a.userStore.Create(ctx, newUser)
	if err != nil {
		a.logger.Error("Auth service: failed to create external user",
			"provider_id", identity.ProviderID,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: external user created",
		"provider_id", identity.ProviderID,
		"user_id", savedUser.ID)

	return savedUser, nil
}

// Refresh rotates the presented refresh token.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	return a.tokenService.Refresh(ctx, refreshToken)
}

// Logout consumes the presented refresh token, if any. Best-effort: an
// unknown or empty token is not an error.
func (a *Auth) Logout(ctx context.Context, refreshToken string) error {
	return a.tokenService.Revoke(ctx, refreshToken)
}

// WhoAmI verifies an access token and loads its subject with role attached.
// Verification failure and a vanished subject both map to ErrUnauthorized.
func (a *Auth) WhoAmI(ctx context.Context, accessToken string) (model.User, error) {
	userID, err := a.tokenService.GetUserID(ctx, accessToken)
	if err != nil {
		return model.User{}, model.ErrUnauthorized
	}

	user, err := a.userStore.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrUnauthorized
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// UpdateAvatar stores the uploaded avatar bytes and points the user record at
// the served avatar location.
func (a *Auth) UpdateAvatar(ctx context.Context, userID uuid.UUID, reader io.Reader) (model.User, error) {
	key := avatarKey(userID)
	if err := a.storage.Upload(ctx, key, reader); err != nil {
		a.logger.Error("Auth service: failed to upload avatar",
			"user_id", userID,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to upload avatar: %w", err)
	}

	avatarURL := fmt.Sprintf("/api/users/%s/avatar", userID)
	if err := a.userStore.UpdateAvatarURL(ctx, userID, avatarURL); err != nil {
		return model.User{}, fmt.Errorf("failed to update avatar url: %w", err)
	}

	return a.userStore.GetByID(ctx, userID)
}

// Avatar streams the stored avatar for a user.
func (a *Auth) Avatar(ctx context.Context, userID uuid.UUID) (io.ReadCloser, error) {
	rc, err := a.storage.Download(ctx, avatarKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to download avatar: %w", err)
	}
	return rc, nil
}

// ListUsers returns all users. Gated behind the admin role at the transport
// layer.
func (a *Auth) ListUsers(ctx context.Context) ([]model.User, error) {
	return a.userStore.List(ctx)
}

func avatarKey(userID uuid.UUID) string {
	return fmt.Sprintf("avatars/%s", userID)
}
