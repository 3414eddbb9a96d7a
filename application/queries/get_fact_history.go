package queries

import (
	"engram/pkg/errors"
)

// GetFactHistoryQuery retrieves the supersession chain of a fact,
// newest belief first. Superseded records are never deleted, so the
// chain is the complete audit trail of how the belief evolved.
type GetFactHistoryQuery struct {
	UserID string `json:"user_id"`
	FactID string `json:"fact_id"`

	// SharedScope looks the fact up in shared memory instead of the
	// user's private partition.
	SharedScope bool `json:"shared_scope,omitempty"`
}

// Validate implements the Query interface
func (q *GetFactHistoryQuery) Validate() error {
	if q.UserID == "" {
		return errors.NewValidationError("user_id is required")
	}
	if q.FactID == "" {
		return errors.NewValidationError("fact_id is required")
	}
	return nil
}

// FactHistoryResult is the response to a fact history query
type FactHistoryResult struct {
	FactID string     `json:"fact_id"`
	Chain  []FactView `json:"chain"`
	Count  int        `json:"count"`
}
