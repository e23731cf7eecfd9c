package ui

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// TokenRequest describes a development access token to issue
type TokenRequest struct {
	UserID string
	Email  string
	Name   string
	TTL    time.Duration
}

const maxTokenTTL = 30 * 24 * time.Hour

// ValidateTokenRequest checks the fields a token needs
func ValidateTokenRequest(req *TokenRequest) error {
	if err := validateUserID(req.UserID); err != nil {
		return err
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if req.TTL <= 0 || req.TTL > maxTokenTTL {
		return fmt.Errorf("ttl must be between 1s and %s", maxTokenTTL)
	}
	return nil
}

func validateUserID(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}

// validateEmail accepts an empty address; the identity then carries none
func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("invalid email address: %s", s)
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration, use values like 1h or 30m")
	}
	if d <= 0 || d > maxTokenTTL {
		return fmt.Errorf("ttl must be between 1s and %s", maxTokenTTL)
	}
	return nil
}
