package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dtroode/auth-server/internal/logger"
	"github.com/dtroode/auth-server/internal/model"
)

// AuthService verifies access tokens and loads their subject.
type AuthService interface {
	WhoAmI(ctx context.Context, accessToken string) (model.User, error)
}

// Authenticate validates access tokens and injects the user into the request
// context. The Authorization: Bearer header is the primary transport; the
// accessToken cookie is accepted as a fallback.
type Authenticate struct {
	authService    AuthService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(authService AuthService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{authService: authService, contextManager: contextManager, logger: logger}
}

// Handle rejects requests without a valid access token with 401.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := tokenFromRequest(r)
		if tokenString == "" {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := m.authService.WhoAmI(r.Context(), tokenString)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := m.contextManager.SetUserToContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route behind a single role, compared case-insensitively.
// Roles are flat: an admin does not pass an editor-only gate.
func (m *Authenticate) RequireRole(roleName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := m.contextManager.GetUserFromContext(r.Context())
			if !ok {
				writeMessage(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !user.Role.Is(roleName) {
				writeMessage(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie("accessToken"); err == nil {
		return c.Value
	}
	return ""
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"message":"` + message + `"}`))
}
