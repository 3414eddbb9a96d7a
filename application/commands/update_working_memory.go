package commands

import (
	"engram/pkg/errors"
)

// UpdateWorkingMemoryCommand boosts attention for topics and entities
// the user mentioned outside a fact write, keeping the attention model
// honest when conversation touches knowledge without changing it.
type UpdateWorkingMemoryCommand struct {
	UserID   string   `json:"user_id"`
	Topics   []string `json:"topics,omitempty"`
	Entities []string `json:"entities,omitempty"`
}

// Validate implements the Command interface
func (c *UpdateWorkingMemoryCommand) Validate() error {
	if c.UserID == "" {
		return errors.NewValidationError("user_id is required")
	}
	if len(c.Topics) == 0 && len(c.Entities) == 0 {
		return errors.NewValidationError("at least one topic or entity is required")
	}
	return nil
}
