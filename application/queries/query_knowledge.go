package queries

import (
	"time"

	"engram/pkg/errors"
)

// QueryKnowledgeQuery retrieves facts visible to a user: their private
// partition plus shared memory, optionally narrowed by subject,
// predicate, or a natural-language time expression.
type QueryKnowledgeQuery struct {
	UserID string `json:"user_id"`

	Subject   string `json:"subject,omitempty"`
	Predicate string `json:"predicate,omitempty"`

	// When is a natural-language time expression ("yesterday",
	// "last week", "2025-06-01"). Unparseable expressions are
	// ignored rather than failing the query.
	When string `json:"when,omitempty"`

	// IncludeSuperseded returns the full belief history instead of
	// only active facts.
	IncludeSuperseded bool `json:"include_superseded,omitempty"`

	// PrivateOnly excludes the shared partition.
	PrivateOnly bool `json:"private_only,omitempty"`

	Limit int `json:"limit,omitempty"`
}

// Validate implements the Query interface
func (q *QueryKnowledgeQuery) Validate() error {
	if q.UserID == "" {
		return errors.NewValidationError("user_id is required")
	}
	return nil
}

// FactView is the read model of one fact
type FactView struct {
	ID             string     `json:"id"`
	Subject        string     `json:"subject"`
	Predicate      string     `json:"predicate"`
	Object         string     `json:"object"`
	Scope          string     `json:"scope"`
	Confidence     float64    `json:"confidence"`
	Context        string     `json:"context,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
	LastAssertedAt time.Time  `json:"last_asserted_at"`
	MentionCount   int        `json:"mention_count"`
	Active         bool       `json:"active"`
	SupersededBy   string     `json:"superseded_by,omitempty"`
	Supersedes     string     `json:"supersedes,omitempty"`
	SupersededAt   *time.Time `json:"superseded_at,omitempty"`
}

// QueryKnowledgeResult is the response to a knowledge query
type QueryKnowledgeResult struct {
	Facts []FactView `json:"facts"`
	Count int        `json:"count"`

	// Degraded is set when the shared partition was unreachable and
	// the result covers private memory only.
	Degraded bool `json:"degraded,omitempty"`

	// TimeRange echoes the resolved time window when When was given
	TimeRangeStart *time.Time `json:"time_range_start,omitempty"`
	TimeRangeEnd   *time.Time `json:"time_range_end,omitempty"`
}
