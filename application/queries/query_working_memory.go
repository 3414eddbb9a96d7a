package queries

import (
	"engram/pkg/errors"
)

// QueryWorkingMemoryQuery retrieves a user's current attention state:
// the topics and entities mentioned recently enough to still carry a
// decayed score above zero.
type QueryWorkingMemoryQuery struct {
	UserID string `json:"user_id"`
}

// Validate implements the Query interface
func (q *QueryWorkingMemoryQuery) Validate() error {
	if q.UserID == "" {
		return errors.NewValidationError("user_id is required")
	}
	return nil
}
