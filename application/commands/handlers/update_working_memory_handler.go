package handlers

import (
	"context"
	"time"

	"engram/application/commands"
	"engram/application/ports"
	"engram/domain/core/validators"
)

// UpdateWorkingMemoryHandler applies explicit attention updates. The
// write pipeline feeds working memory as a side effect; this handler
// covers mentions that never become facts.
type UpdateWorkingMemoryHandler struct {
	workingMemory  ports.WorkingMemory
	ownerValidator *validators.OwnerValidator
}

// NewUpdateWorkingMemoryHandler creates the handler
func NewUpdateWorkingMemoryHandler(workingMemory ports.WorkingMemory, ownerValidator *validators.OwnerValidator) *UpdateWorkingMemoryHandler {
	return &UpdateWorkingMemoryHandler{
		workingMemory:  workingMemory,
		ownerValidator: ownerValidator,
	}
}

// Handle boosts attention for the mentioned topics and entities
func (h *UpdateWorkingMemoryHandler) Handle(ctx context.Context, cmd *commands.UpdateWorkingMemoryCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := h.ownerValidator.ValidateOwner(cmd.UserID); err != nil {
		return err
	}

	h.workingMemory.Update(cmd.UserID, cmd.Topics, cmd.Entities, time.Now().UTC())
	return nil
}
