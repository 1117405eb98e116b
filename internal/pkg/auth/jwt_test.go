package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/elearning-storefront/internal/config"
)

func testManager(secret string, expiry time.Duration) *JWTManager {
	return NewJWTManager(&config.Config{
		App: config.AppConfig{Name: "storefront-test"},
		JWT: config.JWTConfig{Secret: secret, AccessTokenExpiry: expiry},
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager("secret", time.Hour)
	profile := Profile{UserID: "42", Email: "ann@example.com", FullName: "Ann Lee", Phone: "555"}

	token, err := m.GenerateAccessToken(profile)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, profile, claims.Profile())
	assert.Equal(t, "user:42", claims.Subject)
}

func TestValidateRejectsBadTokens(t *testing.T) {
	m := testManager("secret", time.Hour)

	other, err := testManager("other", time.Hour).GenerateAccessToken(Profile{UserID: "1"})
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(other)
	assert.Error(t, err)

	expired, err := testManager("secret", -time.Minute).GenerateAccessToken(Profile{UserID: "1"})
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(expired)
	assert.Error(t, err)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "1", TokenType: "refresh"})
	signed, err := refresh.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(signed)
	assert.ErrorContains(t, err, "expected access")

	_, err = m.ValidateAccessToken("not-a-token")
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer abc"))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader(""))
}
