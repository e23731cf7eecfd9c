package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is a principal seen through federated authentication
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          string    `bun:"id,pk"`
	Email       string    `bun:"email,notnull"`
	DisplayName string    `bun:"display_name,notnull"`
	FirstSeenAt time.Time `bun:"first_seen_at,notnull,default:current_timestamp"`
	LastSeenAt  time.Time `bun:"last_seen_at,notnull,default:current_timestamp"`
}

// PersonalAccessToken stores the hash-derived id of a PAT, never the secret
type PersonalAccessToken struct {
	bun.BaseModel `bun:"table:personal_access_tokens,alias:pat"`

	ID          string     `bun:"id,pk"`
	UserID      string     `bun:"user_id,notnull"`
	TokenPrefix string     `bun:"token_prefix,notnull"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	IsActive    bool       `bun:"is_active,notnull"`
	RevokedAt   *time.Time `bun:"revoked_at"`
}

// EmailSettings holds one user's scheduled email preferences
type EmailSettings struct {
	bun.BaseModel `bun:"table:email_settings,alias:es"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID        string     `bun:"user_id,notnull,unique"`
	Email         string     `bun:"email,notnull"`
	PreferredTime string     `bun:"preferred_time,notnull"`
	IsEnabled     bool       `bun:"is_enabled,notnull"`
	TimeZone      string     `bun:"time_zone,notnull"`
	LastEmailSent *time.Time `bun:"last_email_sent"`
	CreatedAt     time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// DiaryEntry content is stored encrypted
type DiaryEntry struct {
	bun.BaseModel `bun:"table:diary_entries,alias:de"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID    string    `bun:"user_id,notnull"`
	Title     string    `bun:"title,notnull"`
	Content   string    `bun:"content,notnull"`
	Mood      string    `bun:"mood,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Recommendation is immutable once created
type Recommendation struct {
	bun.BaseModel `bun:"table:recommendations,alias:r"`

	ID     uuid.UUID `bun:"id,pk,type:uuid"`
	UserID string    `bun:"user_id,notnull"`
	Date   time.Time `bun:"date,notnull"`
	Text   string    `bun:"text,notnull"`
}
