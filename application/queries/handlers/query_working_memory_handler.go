package handlers

import (
	"context"
	"time"

	"engram/application/ports"
	"engram/application/queries"
	"engram/domain/core/validators"
)

// QueryWorkingMemoryHandler returns a user's current attention state.
// The state is process-local: a fresh process legitimately reports an
// empty context.
type QueryWorkingMemoryHandler struct {
	workingMemory  ports.WorkingMemory
	ownerValidator *validators.OwnerValidator
}

// NewQueryWorkingMemoryHandler creates the handler
func NewQueryWorkingMemoryHandler(workingMemory ports.WorkingMemory, ownerValidator *validators.OwnerValidator) *QueryWorkingMemoryHandler {
	return &QueryWorkingMemoryHandler{
		workingMemory:  workingMemory,
		ownerValidator: ownerValidator,
	}
}

// Handle executes a working memory query
func (h *QueryWorkingMemoryHandler) Handle(ctx context.Context, query *queries.QueryWorkingMemoryQuery) (*ports.WorkingMemoryContext, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := h.ownerValidator.ValidateOwner(query.UserID); err != nil {
		return nil, err
	}

	snapshot := h.workingMemory.ActiveContext(query.UserID, time.Now().UTC())
	return &snapshot, nil
}
