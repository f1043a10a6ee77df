package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dtroode/auth-server/internal/logger"
	"github.com/dtroode/auth-server/internal/model"
)

const defaultUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var _ model.IdentityProvider = (*Google)(nil)

// Google implements IdentityProvider for the Google authorization-code flow.
type Google struct {
	conf        *oauth2.Config
	userinfoURL string
	logger      *logger.Logger
}

// NewGoogle creates a Google identity provider.
func NewGoogle(clientID, clientSecret, redirectURL string, logger *logger.Logger) *Google {
	return &Google{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userinfoURL: defaultUserinfoURL,
		logger:      logger,
	}
}

// AuthCodeURL builds the provider consent URL carrying the given state.
func (g *Google) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// userinfo is the subset of the Google userinfo response the service consumes.
type userinfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// FetchIdentity exchanges the authorization code and resolves the provider
// profile into a validated ExternalIdentity.
func (g *Google) FetchIdentity(ctx context.Context, code string) (model.ExternalIdentity, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return model.ExternalIdentity{}, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	resp, err := g.conf.Client(ctx, tok).Get(g.userinfoURL)
	if err != nil {
		return model.ExternalIdentity{}, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ExternalIdentity{}, fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	var info userinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return model.ExternalIdentity{}, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	identity := model.ExternalIdentity{
		ProviderID:  info.ID,
		Email:       info.Email,
		DisplayName: info.Name,
	}
	if info.Picture != "" {
		identity.AvatarURL = &info.Picture
	}

	if err := identity.Validate(); err != nil {
		g.logger.Error("OAuth: provider returned incomplete profile",
			"provider_id", info.ID,
			"error", err.Error())
		return model.ExternalIdentity{}, err
	}

	return identity, nil
}
