package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/huh"
)

// RunTokenForm asks for the fields missing from req
func RunTokenForm(req *TokenRequest) error {
	ttl := req.TTL.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("User id").
				Description("Subject of the token, as the identity provider would issue it").
				Placeholder("auth0|1234").
				Value(&req.UserID).
				Validate(validateUserID),

			huh.NewInput().
				Title("Email").
				Description("Optional; used for scheduled emails").
				Placeholder("ada@example.com").
				Value(&req.Email).
				Validate(validateEmail),

			huh.NewInput().
				Title("Display name").
				Value(&req.Name),

			huh.NewInput().
				Title("Lifetime").
				Value(&ttl).
				Validate(validateDuration),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.Run(); err != nil {
		return err
	}

	req.UserID = strings.TrimSpace(req.UserID)
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	d, err := time.ParseDuration(strings.TrimSpace(ttl))
	if err != nil {
		return err
	}
	req.TTL = d
	return nil
}

// Confirm asks a yes/no question, defaulting to no
func Confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		WithTheme(huh.ThemeCatppuccin()).
		Run()
	return ok, err
}
