package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestPasetoService_RoundTrip(t *testing.T) {
	svc, err := NewPasetoService(testKey)
	require.NoError(t, err)

	token, err := svc.CreateToken(TokenClaims{UserID: "user-1", Email: "a@example.com", Name: "Ada"}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "Ada", claims.Name)
}

func TestPasetoService_Expired(t *testing.T) {
	svc, err := NewPasetoService(testKey)
	require.NoError(t, err)

	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }
	token, err := svc.CreateToken(TokenClaims{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestPasetoService_RejectsGarbageAndWrongKey(t *testing.T) {
	svc, err := NewPasetoService(testKey)
	require.NoError(t, err)

	_, err = svc.VerifyToken("v4.local.garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewPasetoService([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)
	token, err := other.CreateToken(TokenClaims{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewPasetoService_KeyLength(t *testing.T) {
	_, err := NewPasetoService([]byte("short"))
	assert.Error(t, err)
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService(testKey, "diary-idp", "diary-api")
	require.NoError(t, err)

	token, err := svc.CreateToken(TokenClaims{UserID: "user-1", Email: "a@example.com", Name: "Ada"}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "Ada", claims.Name)
}

func TestJWTService_Expired(t *testing.T) {
	svc, err := NewJWTService(testKey, "", "")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.CreateToken(TokenClaims{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_AudienceMismatch(t *testing.T) {
	issuer, err := NewJWTService(testKey, "diary-idp", "someone-else")
	require.NoError(t, err)
	verifier, err := NewJWTService(testKey, "diary-idp", "diary-api")
	require.NoError(t, err)

	token, err := issuer.CreateToken(TokenClaims{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenScheme(t *testing.T) {
	svc, err := NewPasetoService(testKey)
	require.NoError(t, err)

	var touched *Identity
	scheme := NewTokenScheme(svc, func(_ context.Context, identity *Identity) {
		touched = identity
	})

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	assert.True(t, scheme.Authenticate(r).None())

	r.Header.Set("Authorization", "Bearer not-a-token")
	assert.True(t, scheme.Authenticate(r).Failed())
	assert.Nil(t, touched)

	token, err := svc.CreateToken(TokenClaims{UserID: "user-1", Email: "a@example.com", Name: "Ada"}, time.Hour)
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+token)

	result := scheme.Authenticate(r)
	require.True(t, result.Succeeded())
	assert.Equal(t, "user-1", result.Identity.Subject)
	assert.Equal(t, "a@example.com", result.Identity.Email)
	assert.Equal(t, MethodFederated, result.Identity.Method())
	assert.Same(t, result.Identity, touched)
}
