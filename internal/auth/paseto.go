package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

// PasetoService handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	now          func() time.Time
}

func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		symmetricKey: key,
		now:          time.Now,
	}, nil
}

// CreateToken generates a new PASETO v4.local token with the given claims and duration
func (s *PasetoService) CreateToken(claims TokenClaims, duration time.Duration) (string, error) {
	if claims.UserID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := s.now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(duration))
	token.SetSubject(claims.UserID)
	token.SetString("user_id", claims.UserID)
	token.SetString("email", claims.Email)
	token.SetString("name", claims.Name)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyToken validates a PASETO v4.local token and returns the claims
func (s *PasetoService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	// Expiry is checked below so that expired tokens can be told apart from invalid ones
	parser := paseto.NewParserWithoutExpiryCheck()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	userID, err := token.GetString("user_id")
	if err != nil || userID == "" {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !s.now().Before(expiresAt) {
		return nil, ErrExpiredToken
	}

	// email and name are optional
	email, _ := token.GetString("email")
	name, _ := token.GetString("name")

	return &TokenClaims{
		UserID:    userID,
		Email:     email,
		Name:      name,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
