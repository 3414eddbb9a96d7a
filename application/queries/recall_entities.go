package queries

import (
	"time"

	"engram/pkg/errors"
)

// RecallEntitiesQuery retrieves the entities a user knows about,
// blended with their current working-memory attention so recently
// discussed entities rank first.
type RecallEntitiesQuery struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

// Validate implements the Query interface
func (q *RecallEntitiesQuery) Validate() error {
	if q.UserID == "" {
		return errors.NewValidationError("user_id is required")
	}
	return nil
}

// RecalledEntity is one known entity with its recall signals
type RecalledEntity struct {
	Name           string    `json:"name"`
	MentionCount   int       `json:"mention_count"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	AttentionScore float64   `json:"attention_score"`
	InFocus        bool      `json:"in_focus"`
}

// RecallEntitiesResult is the response to a recall query
type RecallEntitiesResult struct {
	Entities []RecalledEntity `json:"entities"`
	Count    int              `json:"count"`
}
