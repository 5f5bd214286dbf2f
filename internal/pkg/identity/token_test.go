package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifySessionToken(t *testing.T) {
	token := signTestToken(t, "s3cret", &SessionClaims{
		Email: "user@example.com",
		Name:  "User",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "idn_abc123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := VerifySessionToken(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "idn_abc123", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestVerifySessionTokenRejectsBadSecret(t *testing.T) {
	token := signTestToken(t, "s3cret", &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "idn_abc123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := VerifySessionToken(token, "wrong")
	assert.Error(t, err)
}

func TestVerifySessionTokenRejectsExpired(t *testing.T) {
	token := signTestToken(t, "s3cret", &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "idn_abc123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := VerifySessionToken(token, "s3cret")
	assert.Error(t, err)
}

func TestVerifySessionTokenRequiresSubject(t *testing.T) {
	token := signTestToken(t, "s3cret", &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := VerifySessionToken(token, "s3cret")
	assert.Error(t, err)
}
