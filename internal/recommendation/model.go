package recommendation

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation is a generated suggestion; it is never edited after creation
type Recommendation struct {
	ID     uuid.UUID `json:"id"`
	UserID string    `json:"userId"`
	Date   time.Time `json:"date"`
	Text   string    `json:"text"`
}
