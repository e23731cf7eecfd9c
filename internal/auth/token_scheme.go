package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/redmonkez12/diary-api/internal/httputil"
)

// AuthenticatedFunc is called after a federated token was accepted
type AuthenticatedFunc func(ctx context.Context, identity *Identity)

// TokenScheme authenticates federated bearer tokens issued by the identity provider
type TokenScheme struct {
	tokens          TokenService
	onAuthenticated AuthenticatedFunc
}

func NewTokenScheme(tokens TokenService, onAuthenticated AuthenticatedFunc) *TokenScheme {
	return &TokenScheme{
		tokens:          tokens,
		onAuthenticated: onAuthenticated,
	}
}

func (s *TokenScheme) Name() string {
	return "federated"
}

func (s *TokenScheme) Authenticate(r *http.Request) Result {
	token, ok := ParseBearer(r.Header.Get("Authorization"))
	if !ok {
		return NoResult()
	}

	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return FailWithCode("token has expired", httputil.CodeTokenExpired)
		}
		return Fail("invalid token")
	}

	identity := NewIdentity(claims.UserID, claims.Name, claims.Email, MethodFederated)
	if s.onAuthenticated != nil {
		s.onAuthenticated(r.Context(), identity)
	}

	return Success(identity)
}
