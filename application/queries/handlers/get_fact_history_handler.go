package handlers

import (
	"context"

	"engram/application/ports"
	"engram/application/queries"
	"engram/domain/core/validators"
	"engram/domain/core/valueobjects"
)

// GetFactHistoryHandler walks the supersession chain of a fact
type GetFactHistoryHandler struct {
	factRepo       ports.FactRepository
	ownerValidator *validators.OwnerValidator
}

// NewGetFactHistoryHandler creates the handler
func NewGetFactHistoryHandler(factRepo ports.FactRepository, ownerValidator *validators.OwnerValidator) *GetFactHistoryHandler {
	return &GetFactHistoryHandler{
		factRepo:       factRepo,
		ownerValidator: ownerValidator,
	}
}

// Handle retrieves the full belief chain for a fact, newest first
func (h *GetFactHistoryHandler) Handle(ctx context.Context, query *queries.GetFactHistoryQuery) (*queries.FactHistoryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := h.ownerValidator.ValidateOwner(query.UserID); err != nil {
		return nil, err
	}

	factID, err := valueobjects.NewFactIDFromString(query.FactID)
	if err != nil {
		return nil, err
	}

	ownerKey := query.UserID
	if query.SharedScope {
		ownerKey = valueobjects.SystemOwnerID
	}

	chain, err := h.factRepo.GetHistory(ctx, ownerKey, factID)
	if err != nil {
		return nil, err
	}

	return &queries.FactHistoryResult{
		FactID: query.FactID,
		Chain:  toFactViews(chain),
		Count:  len(chain),
	}, nil
}
