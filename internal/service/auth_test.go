package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/auth-server/internal/mocks"
	"github.com/dtroode/auth-server/internal/model"
	"github.com/dtroode/auth-server/internal/testutil"
)

type authMocks struct {
	userStore *mocks.UserStore
	store     *mocks.RefreshTokenStore
	storage   *mocks.Storage
	hasher    *mocks.PasswordHasher
	manager   *mocks.TokenManager
}

func newAuthMocks() authMocks {
	return authMocks{
		userStore: &mocks.UserStore{},
		store:     &mocks.RefreshTokenStore{},
		storage:   &mocks.Storage{},
		hasher:    &mocks.PasswordHasher{},
		manager:   &mocks.TokenManager{},
	}
}

func (m authMocks) service() *Auth {
	return NewAuth(m.userStore, m.store, m.storage, m.hasher, m.manager, testutil.MakeNoopLogger())
}

func (m authMocks) expectIssue(ctx context.Context, userID uuid.UUID) {
	m.manager.On("GenerateAccessToken", userID).Return("access", nil).Once()
	m.manager.On("GenerateRefreshToken", userID).Return("refresh", nil).Once()
	m.store.On("Create", ctx, mock.Anything).Return(nil).Once()
}

func TestAuth_Register(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	m.userStore.On("GetByEmail", ctx, "a@x.com").Return(model.User{}, model.ErrNotFound).Once()
	m.hasher.On("Hash", "secret1").Return("digest", nil).Once()
	m.userStore.On("Create", ctx, mock.MatchedBy(func(u model.User) bool {
		return u.Email == "a@x.com" && u.Name == "A" &&
			u.PasswordHash != nil && *u.PasswordHash == "digest" &&
			u.Role.ID == model.RoleUser && u.GoogleID == nil
	})).Return(model.User{ID: uuid.New(), Email: "a@x.com", Name: "A", Role: model.Role{ID: model.RoleUser, Name: "User"}}, nil).Once()

	user, err := m.service().Register(ctx, "a@x.com", "secret1", "A")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, model.RoleUser, user.Role.ID)
}

func TestAuth_Register_EmailTaken(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	m.userStore.On("GetByEmail", ctx, "a@x.com").Return(model.User{ID: uuid.New(), Email: "a@x.com"}, nil).Once()

	_, err := m.service().Register(ctx, "a@x.com", "secret1", "A")
	require.ErrorIs(t, err, model.ErrAlreadyExists)
}

func TestAuth_Register_LostCreateRace(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	m.userStore.On("GetByEmail", ctx, "a@x.com").Return(model.User{}, model.ErrNotFound).Once()
	m.hasher.On("Hash", "secret1").Return("digest", nil).Once()
	m.userStore.On("Create", ctx, mock.Anything).Return(model.User{}, model.ErrAlreadyExists).Once()

	_, err := m.service().Register(ctx, "a@x.com", "secret1", "A")
	require.ErrorIs(t, err, model.ErrAlreadyExists)
}

func TestAuth_Login(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	userID := uuid.New()
	digest := "digest"

	m.userStore.On("GetByEmail", ctx, "a@x.com").Return(model.User{
		ID:           userID,
		Email:        "a@x.com",
		PasswordHash: &digest,
		Role:         model.Role{ID: model.RoleUser, Name: "User"},
	}, nil).Once()
	m.hasher.On("Compare", "secret1", digest).Return(true).Once()
	m.expectIssue(ctx, userID)

	session, err := m.service().Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "access", session.AccessToken)
	assert.Equal(t, "refresh", session.RefreshToken)
	assert.Equal(t, userID, session.User.ID)
	assert.Equal(t, model.RoleUser, session.User.Role.ID)
}

func TestAuth_Login_UnknownEmail(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	m.userStore.On("GetByEmail", ctx, "missing@x.com").Return(model.User{}, model.ErrNotFound).Once()

	_, err := m.service().Login(ctx, "missing@x.com", "secret1")
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestAuth_Login_WrongPassword(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	digest := "digest"

	m.userStore.On("GetByEmail", ctx, "a@x.com").Return(model.User{
		ID:           uuid.New(),
		PasswordHash: &digest,
	}, nil).Once()
	m.hasher.On("Compare", "wrong", digest).Return(false).Once()

	_, err := m.service().Login(ctx, "a@x.com", "wrong")
	// Indistinguishable from the unknown-email case.
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestAuth_Login_ExternalOnlyAccount(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	// OAuth-only account: no password digest stored.
	m.userStore.On("GetByEmail", ctx, "a@x.com").Return(model.User{ID: uuid.New()}, nil).Once()

	_, err := m.service().Login(ctx, "a@x.com", "secret1")
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
	m.hasher.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything)
}

func TestAuth_LoginExternal_FoundByProviderID(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	userID := uuid.New()
	googleID := "google-1"

	m.userStore.On("GetByGoogleID", ctx, googleID).Return(model.User{
		ID:       userID,
		Email:    "a@x.com",
		GoogleID: &googleID,
		Role:     model.Role{ID: model.RoleUser},
	}, nil).Once()
	m.expectIssue(ctx, userID)

	session, err := m.service().LoginExternal(ctx, model.ExternalIdentity{
		ProviderID:  googleID,
		Email:       "a@x.com",
		DisplayName: "A",
	})
	require.NoError(t, err)
	assert.Equal(t, userID, session.User.ID)
	m.userStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuth_LoginExternal_EmailMatchReturnsExisting(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	userID := uuid.New()
	digest := "digest"

	m.userStore.On("GetByGoogleID", ctx, "google-1").Return(model.User{}, model.ErrNotFound).Once()
	// Local-password account with the same email: resolved to it, returned
	// unchanged. The provider id is not attached.
	m.userStore.On("GetByEmail", ctx, "a@x.com").Return(model.User{
		ID:           userID,
		Email:        "a@x.com",
		PasswordHash: &digest,
		Role:         model.Role{ID: model.RoleUser},
	}, nil).Once()
	m.expectIssue(ctx, userID)

	session, err := m.service().LoginExternal(ctx, model.ExternalIdentity{
		ProviderID:  "google-1",
		Email:       "a@x.com",
		DisplayName: "A",
	})
	require.NoError(t, err)
	assert.Equal(t, userID, session.User.ID)
	assert.Nil(t, session.User.GoogleID)
	m.userStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuth_LoginExternal_CreatesUser(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	userID := uuid.New()
	avatar := "https://example.com/a.png"

	m.userStore.On("GetByGoogleID", ctx, "google-1").Return(model.User{}, model.ErrNotFound).Once()
	m.userStore.On("GetByEmail", ctx, "new@x.com").Return(model.User{}, model.ErrNotFound).Once()
	m.userStore.On("Create", ctx, mock.MatchedBy(func(u model.User) bool {
		return u.Email == "new@x.com" && u.PasswordHash == nil &&
			u.GoogleID != nil && *u.GoogleID == "google-1" &&
			u.Role.ID == model.RoleUser
	})).Return(model.User{ID: userID, Email: "new@x.com", Role: model.Role{ID: model.RoleUser}}, nil).Once()
	m.expectIssue(ctx, userID)

	session, err := m.service().LoginExternal(ctx, model.ExternalIdentity{
		ProviderID:  "google-1",
		Email:       "new@x.com",
		DisplayName: "New",
		AvatarURL:   &avatar,
	})
	require.NoError(t, err)
	assert.Equal(t, userID, session.User.ID)
}

func TestAuth_LoginExternal_InvalidIdentity(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	_, err := m.service().LoginExternal(ctx, model.ExternalIdentity{Email: "a@x.com"})
	require.ErrorIs(t, err, model.ErrInvalidIdentity)
}

func TestAuth_WhoAmI(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	userID := uuid.New()

	m.manager.On("ParseAccessToken", "access").Return(userID, nil).Once()
	m.userStore.On("GetByID", ctx, userID).Return(model.User{
		ID:   userID,
		Role: model.Role{ID: model.RoleAdmin, Name: "Administrator"},
	}, nil).Once()

	user, err := m.service().WhoAmI(ctx, "access")
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, model.RoleAdmin, user.Role.ID)
}

func TestAuth_WhoAmI_InvalidToken(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	// Expired tokens fail here regardless of any live refresh token.
	m.manager.On("ParseAccessToken", "expired").Return(uuid.Nil, assert.AnError).Once()

	_, err := m.service().WhoAmI(ctx, "expired")
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestAuth_WhoAmI_SubjectGone(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	userID := uuid.New()

	m.manager.On("ParseAccessToken", "access").Return(userID, nil).Once()
	m.userStore.On("GetByID", ctx, userID).Return(model.User{}, model.ErrNotFound).Once()

	_, err := m.service().WhoAmI(ctx, "access")
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestAuth_Logout(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	m.store.On("Consume", ctx, mock.Anything).Return(false, nil).Once()

	// Unknown token: still acknowledged.
	require.NoError(t, m.service().Logout(ctx, "refresh"))
}

func TestAuth_UpdateAvatar(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	userID := uuid.New()
	body := bytes.NewBufferString("image-bytes")

	key := "avatars/" + userID.String()
	url := "/api/users/" + userID.String() + "/avatar"

	m.storage.On("Upload", ctx, key, body).Return(nil).Once()
	m.userStore.On("UpdateAvatarURL", ctx, userID, url).Return(nil).Once()
	m.userStore.On("GetByID", ctx, userID).Return(model.User{ID: userID, AvatarURL: &url}, nil).Once()

	user, err := m.service().UpdateAvatar(ctx, userID, body)
	require.NoError(t, err)
	require.NotNil(t, user.AvatarURL)
	assert.Equal(t, url, *user.AvatarURL)
}

func TestAuth_UpdateAvatar_UploadFails(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	userID := uuid.New()

	m.storage.On("Upload", ctx, mock.Anything, mock.Anything).Return(assert.AnError).Once()

	_, err := m.service().UpdateAvatar(ctx, userID, bytes.NewBufferString("x"))
	require.Error(t, err)
	m.userStore.AssertNotCalled(t, "UpdateAvatarURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuth_ListUsers(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	m.userStore.On("List", ctx).Return([]model.User{{Email: "a@x.com"}, {Email: "b@x.com"}}, nil).Once()

	users, err := m.service().ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
