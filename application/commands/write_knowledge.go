package commands

import (
	"strings"

	"engram/pkg/errors"
)

// FactPayload is one triple as submitted by the caller, before any
// domain validation or classification has run.
type FactPayload struct {
	Subject    string   `json:"subject"`
	Predicate  string   `json:"predicate"`
	Object     string   `json:"object"`
	Confidence *float64 `json:"confidence,omitempty"`
	Scope      string   `json:"scope,omitempty"`
	Context    string   `json:"context,omitempty"`
}

// WriteKnowledgeCommand ingests a batch of facts for one author. Facts
// are processed independently: one invalid fact fails that fact, not
// the batch.
type WriteKnowledgeCommand struct {
	AuthorID string        `json:"author_id"`
	Facts    []FactPayload `json:"facts"`

	// Context is the request-level context, applied to any fact that
	// does not carry its own. It also feeds classification and the
	// author's working memory.
	Context string `json:"context,omitempty"`
}

// Validate performs structural validation only. Per-fact domain rules
// run in the handler so failures can be reported per fact.
func (c *WriteKnowledgeCommand) Validate() error {
	if strings.TrimSpace(c.AuthorID) == "" {
		return errors.NewValidationError("author_id is required")
	}
	if len(c.Facts) == 0 {
		return errors.NewValidationError("at least one fact is required")
	}
	return nil
}

// FactWriteStatus is the per-fact outcome of a write batch
type FactWriteStatus string

const (
	// FactStatusWritten means the fact was written and is the active belief
	FactStatusWritten FactWriteStatus = "written"

	// FactStatusMerged means the triple already existed and was merged
	FactStatusMerged FactWriteStatus = "merged"

	// FactStatusSuperseded means the fact was written but immediately
	// lost its contradiction and is inactive
	FactStatusSuperseded FactWriteStatus = "superseded"

	// FactStatusRejected means the fact failed validation
	FactStatusRejected FactWriteStatus = "rejected"

	// FactStatusFailed means a storage error prevented the write
	FactStatusFailed FactWriteStatus = "failed"
)

// FactWriteResult reports what happened to one fact in a batch
type FactWriteResult struct {
	Index        int             `json:"index"`
	FactID       string          `json:"fact_id,omitempty"`
	Status       FactWriteStatus `json:"status"`
	Scope        string          `json:"scope,omitempty"`
	Superseded   []string        `json:"superseded,omitempty"`
	SupersededBy string          `json:"superseded_by,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// WriteKnowledgeResult is the aggregate outcome of a write batch
type WriteKnowledgeResult struct {
	Results      []FactWriteResult `json:"results"`
	WrittenCount int               `json:"written_count"`
	FailedCount  int               `json:"failed_count"`
}
