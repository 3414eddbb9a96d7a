package commands

import (
	"time"

	"engram/pkg/errors"
)

// RecordDiscrepancyCommand captures a disagreement between the legacy
// and candidate read paths. It is fired by the shadow layer and must
// never influence the response the user already received.
type RecordDiscrepancyCommand struct {
	Operation      string        `json:"operation"`
	OwnerUserID    string        `json:"owner_user_id"`
	LegacyCount    int           `json:"legacy_count"`
	CandidateCount int           `json:"candidate_count"`
	MissingIDs     []string      `json:"missing_ids,omitempty"`
	ExtraIDs       []string      `json:"extra_ids,omitempty"`
	CandidateErr   string        `json:"candidate_err,omitempty"`
	TimedOut       bool          `json:"timed_out"`
	Elapsed        time.Duration `json:"elapsed"`
	ObservedAt     time.Time     `json:"observed_at"`
}

// Validate implements the Command interface
func (c *RecordDiscrepancyCommand) Validate() error {
	if c.Operation == "" {
		return errors.NewValidationError("operation is required")
	}
	if c.OwnerUserID == "" {
		return errors.NewValidationError("owner_user_id is required")
	}
	return nil
}
