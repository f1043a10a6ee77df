package model

import "context"

// IdentityProvider drives the OAuth authorization-code flow against an
// external provider and returns a verified identity assertion.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	FetchIdentity(ctx context.Context, code string) (ExternalIdentity, error)
}

// ExternalIdentity is a provider-verified identity assertion, validated at
// the transport boundary before it reaches the auth service.
type ExternalIdentity struct {
	ProviderID  string
	Email       string
	DisplayName string
	AvatarURL   *string
}

// Validate checks the required assertion fields.
func (e ExternalIdentity) Validate() error {
	if e.ProviderID == "" {
		return ErrInvalidIdentity
	}
	if e.Email == "" {
		return ErrInvalidIdentity
	}
	return nil
}
