package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwtClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles HS256 JWT creation and validation
type JWTService struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewJWTService(secret []byte, issuer, audience string) (*JWTService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes, got %d", len(secret))
	}

	return &JWTService{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}, nil
}

// CreateToken signs a new token for the given claims
func (s *JWTService) CreateToken(claims TokenClaims, duration time.Duration) (string, error) {
	if claims.UserID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := s.now()
	registered := jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
	}
	if s.audience != "" {
		registered.Audience = jwt.ClaimStrings{s.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Email:            claims.Email,
		Name:             claims.Name,
		RegisteredClaims: registered,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// VerifyToken validates signature, expiry, issuer and audience
func (s *JWTService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	claims := &jwtClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	result := &TokenClaims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	return result, nil
}
