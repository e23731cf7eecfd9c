package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("email settings not found")
	ErrInvalidTime     = errors.New("preferred time must be HH:MM")
	ErrInvalidTimeZone = errors.New("unknown time zone")
	ErrEmailUnknown    = errors.New("no email address known for user")
)

// LocalTime is a wall-clock time of day without a date or zone
type LocalTime struct {
	Hour   int
	Minute int
}

// ParseLocalTime accepts "HH:MM" and "HH:MM:SS"; seconds are dropped
func ParseLocalTime(s string) (LocalTime, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return LocalTime{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return LocalTime{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant at this time of day on the given date in loc
func (t LocalTime) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, t.Hour, t.Minute, 0, 0, loc)
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidTime
	}
	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// EmailSettings is one user's scheduled email configuration
type EmailSettings struct {
	ID            uuid.UUID  `json:"id"`
	UserID        string     `json:"userId"`
	Email         string     `json:"email"`
	PreferredTime LocalTime  `json:"preferredTime"`
	IsEnabled     bool       `json:"isEnabled"`
	TimeZone      string     `json:"timeZone"`
	LastEmailSent *time.Time `json:"lastEmailSent"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
