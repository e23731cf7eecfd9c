package diary

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("diary entry not found")
	ErrTitleRequired   = errors.New("title is required")
	ErrContentRequired = errors.New("content is required")
	ErrTitleTooLong    = errors.New("title must be at most 200 characters")
	ErrMoodTooLong     = errors.New("mood must be at most 32 characters")
)

const (
	maxTitleLength = 200
	maxMoodLength  = 32
)

// Entry is a single diary entry. Content is plaintext here and encrypted in storage.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EntryRequest is the body of create and update requests
type EntryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Mood    string `json:"mood"`
}

// Normalize trims the fields and validates them
func (r *EntryRequest) Normalize() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Content = strings.TrimSpace(r.Content)
	r.Mood = strings.TrimSpace(r.Mood)

	switch {
	case r.Title == "":
		return ErrTitleRequired
	case r.Content == "":
		return ErrContentRequired
	case utf8.RuneCountInString(r.Title) > maxTitleLength:
		return ErrTitleTooLong
	case utf8.RuneCountInString(r.Mood) > maxMoodLength:
		return ErrMoodTooLong
	}
	return nil
}

// Page is one slice of a user's entries, newest first
type Page struct {
	Entries []*Entry `json:"entries"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}
