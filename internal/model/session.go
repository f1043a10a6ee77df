package model

// Session is the result of a successful login or OAuth callback: a freshly
// minted token pair plus the authenticated user with role attached.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         User
}
