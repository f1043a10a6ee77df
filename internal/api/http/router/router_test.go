package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/auth-server/internal/api/http/httpctx"
	"github.com/dtroode/auth-server/internal/mocks"
	"github.com/dtroode/auth-server/internal/model"
	"github.com/dtroode/auth-server/internal/service"
	"github.com/dtroode/auth-server/internal/testutil"
)

type routerMocks struct {
	userStore *mocks.UserStore
	manager   *mocks.TokenManager
}

func newTestRouter(t *testing.T) (http.Handler, routerMocks) {
	t.Helper()

	userStore := &mocks.UserStore{}
	manager := &mocks.TokenManager{}
	authService := service.NewAuth(
		userStore,
		&mocks.RefreshTokenStore{},
		&mocks.Storage{},
		&mocks.PasswordHasher{},
		manager,
		testutil.MakeNoopLogger(),
	)

	r := New(authService, &mocks.IdentityProvider{}, httpctx.NewManager(), "http://localhost:8080", false, testutil.MakeNoopLogger())
	return r.Register(), routerMocks{userStore: userStore, manager: manager}
}

func (m routerMocks) expectUser(user model.User) {
	m.manager.On("ParseAccessToken", "access").Return(user.ID, nil)
	m.userStore.On("GetByID", mock.Anything, user.ID).Return(user, nil)
}

func TestRouter_PublicRoutes(t *testing.T) {
	h, _ := newTestRouter(t)

	// Reachable without a token; the empty body fails validation, not auth.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/register", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ProtectedRequiresToken(t *testing.T) {
	h, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Me(t *testing.T) {
	h, m := newTestRouter(t)
	m.expectUser(model.User{ID: uuid.New(), Email: "a@x.com", Role: model.Role{ID: model.RoleUser}})

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.Header.Set("Authorization", "Bearer access")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminGate(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{name: "admin allowed", role: model.RoleAdmin, wantStatus: http.StatusOK},
		{name: "regular user forbidden", role: model.RoleUser, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := newTestRouter(t)
			m.expectUser(model.User{ID: uuid.New(), Role: model.Role{ID: tt.role}})
			if tt.wantStatus == http.StatusOK {
				m.userStore.On("List", mock.Anything).Return([]model.User{}, nil)
			}

			r := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			r.Header.Set("Authorization", "Bearer access")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	h, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
