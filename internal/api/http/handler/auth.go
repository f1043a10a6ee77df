package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/mail"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dtroode/auth-server/internal/logger"
	"github.com/dtroode/auth-server/internal/model"
	"github.com/dtroode/auth-server/internal/token"
)

// AuthService defines registration, login and session lifecycle operations.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (model.User, error)
	Login(ctx context.Context, email, password string) (model.Session, error)
	LoginExternal(ctx context.Context, identity model.ExternalIdentity) (model.Session, error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, newRefreshToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
	UpdateAvatar(ctx context.Context, userID uuid.UUID, reader io.Reader) (model.User, error)
	Avatar(ctx context.Context, userID uuid.UUID) (io.ReadCloser, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
	oauthStateCookie   = "oauthState"

	oauthStateTTL = 10 * time.Minute
)

// Auth handles HTTP endpoints for authentication.
type Auth struct {
	authService    AuthService
	provider       model.IdentityProvider
	contextManager model.ContextManager
	frontendURL    string
	secureCookies  bool
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(
	authService AuthService,
	provider model.IdentityProvider,
	contextManager model.ContextManager,
	frontendURL string,
	secureCookies bool,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		authService:    authService,
		provider:       provider,
		contextManager: contextManager,
		frontendURL:    frontendURL,
		secureCookies:  secureCookies,
		logger:         logger,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	Role      string    `json:"role"`
}

type sessionResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         userResponse `json:"user"`
}

func toUserResponse(user model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Role:      user.Role.ID,
	}
}

// Register creates a local account.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}
	if msg := validateRegistration(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: msg})
		return
	}

	_, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.logger.Error("Auth handler: registration failed",
			"email", req.Email,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "user created successfully"})
}

// Login verifies credentials and returns a token pair. Tokens are also set as
// httpOnly cookies for browser clients.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}
	if msg := validateLogin(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: msg})
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, err)
		return
	}

	h.setSessionCookies(w, session.AccessToken, session.RefreshToken)
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         toUserResponse(session.User),
	})
}

// Refresh rotates the refresh token taken from the cookie or the body.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.refreshTokenFromRequest(r)
	if refreshToken == "" {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "unauthorized"})
		return
	}

	access, refresh, err := h.authService.Refresh(r.Context(), refreshToken)
	if err != nil {
		handleError(w, err)
		return
	}

	h.setSessionCookies(w, access, refresh)
	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

// Logout clears the token cookies and consumes the refresh token if one was
// presented. Always acknowledges.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if refreshToken := h.refreshTokenFromRequest(r); refreshToken != "" {
		if err := h.authService.Logout(r.Context(), refreshToken); err != nil {
			h.logger.Error("Auth handler: failed to revoke refresh token on logout",
				"error", err.Error())
		}
	}

	h.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// GoogleStart redirects to the provider consent page with a random state.
func (h *Auth) GoogleStart(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		handleError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback exchanges the authorization code, resolves the identity and
// delivers the minted tokens via cookies plus a redirect to the frontend.
func (h *Auth) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "invalid oauth state"})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "missing authorization code"})
		return
	}

	identity, err := h.provider.FetchIdentity(r.Context(), code)
	if err != nil {
		h.logger.Error("Auth handler: failed to fetch external identity",
			"error", err.Error())
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "unauthorized"})
		return
	}

	session, err := h.authService.LoginExternal(r.Context(), identity)
	if err != nil {
		handleError(w, err)
		return
	}

	// Tokens are minted and persisted before the redirect is written.
	h.setSessionCookies(w, session.AccessToken, session.RefreshToken)
	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

// Me returns the authenticated user.
func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]userResponse{"user": toUserResponse(user)})
}

// UpdateAvatar stores the uploaded avatar for the authenticated user.
func (h *Auth) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "unauthorized"})
		return
	}

	updated, err := h.authService.UpdateAvatar(r.Context(), user.ID, r.Body)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]userResponse{"user": toUserResponse(updated)})
}

// UserAvatar streams a stored avatar.
func (h *Auth) UserAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid user id"})
		return
	}

	rc, err := h.authService.Avatar(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "not found"})
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("Auth handler: failed to stream avatar",
			"user_id", userID,
			"error", err.Error())
	}
}

// ListUsers returns all users. Reachable only through the admin gate.
func (h *Auth) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.authService.ListUsers(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string][]userResponse{"users": out})
}

func (h *Auth) refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(refreshTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func (h *Auth) setSessionCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(token.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(token.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Auth) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func validateRegistration(req registerRequest) string {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "invalid email"
	}
	if len(req.Password) < 6 {
		return "password must be at least 6 characters"
	}
	if len(req.Name) < 3 {
		return "name must be at least 3 characters"
	}
	return ""
}

func validateLogin(req loginRequest) string {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "invalid email"
	}
	if len(req.Password) < 6 {
		return "password must be at least 6 characters"
	}
	return ""
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
