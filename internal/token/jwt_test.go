package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestJWT_AccessToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret")
	u := uuid.New()

	access, err := j.GenerateAccessToken(u)
	require.NoError(t, err)
	got, err := j.ParseAccessToken(access)
	require.NoError(t, err)
	require.Equal(t, u, got)
}

func TestJWT_RefreshToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret")
	u := uuid.New()

	refresh, err := j.GenerateRefreshToken(u)
	require.NoError(t, err)

	got, err := j.ParseRefreshToken(refresh)
	require.NoError(t, err)
	require.Equal(t, u, got)
}

func TestJWT_TokenType_Mismatch(t *testing.T) {
	j := NewJWT("secret")
	u := uuid.New()

	access, err := j.GenerateAccessToken(u)
	require.NoError(t, err)
	_, err = j.ParseRefreshToken(access)
	require.Error(t, err)

	refresh, err := j.GenerateRefreshToken(u)
	require.NoError(t, err)
	_, err = j.ParseAccessToken(refresh)
	require.Error(t, err)
}

func TestJWT_WrongSecret(t *testing.T) {
	j := NewJWT("secret")
	other := NewJWT("different")
	u := uuid.New()

	access, err := j.GenerateAccessToken(u)
	require.NoError(t, err)

	_, err = other.ParseAccessToken(access)
	require.Error(t, err)
}

func TestJWT_Malformed(t *testing.T) {
	j := NewJWT("secret")

	_, err := j.ParseAccessToken("not-a-token")
	require.Error(t, err)
}

// expiredToken signs claims identical to the manager's with an expiry in the
// past.
func expiredToken(t *testing.T, secret string, userID uuid.UUID, tokenType string) string {
	t.Helper()

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
		UserID:    userID,
		TokenType: tokenType,
	})

	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWT_Expired(t *testing.T) {
	j := NewJWT("secret")
	u := uuid.New()

	_, err := j.ParseAccessToken(expiredToken(t, "secret", u, typeAccess))
	require.Error(t, err)

	_, err = j.ParseRefreshToken(expiredToken(t, "secret", u, typeRefresh))
	require.Error(t, err)
}
