package handlers

import (
	"context"

	"engram/application/queries"
	"engram/application/services"
	"engram/domain/core/validators"
)

// RecallEntitiesHandler answers recall queries through the recall
// service
type RecallEntitiesHandler struct {
	recall         *services.RecallService
	queryValidator *validators.QueryValidator
	ownerValidator *validators.OwnerValidator
}

// NewRecallEntitiesHandler creates the handler
func NewRecallEntitiesHandler(recall *services.RecallService, queryValidator *validators.QueryValidator, ownerValidator *validators.OwnerValidator) *RecallEntitiesHandler {
	return &RecallEntitiesHandler{
		recall:         recall,
		queryValidator: queryValidator,
		ownerValidator: ownerValidator,
	}
}

// Handle executes a recall query
func (h *RecallEntitiesHandler) Handle(ctx context.Context, query *queries.RecallEntitiesQuery) (*queries.RecallEntitiesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := h.ownerValidator.ValidateOwner(query.UserID); err != nil {
		return nil, err
	}

	limit := h.queryValidator.NormalizeLimit(query.Limit)
	entities, err := h.recall.Recall(ctx, query.UserID, limit)
	if err != nil {
		return nil, err
	}

	return &queries.RecallEntitiesResult{
		Entities: entities,
		Count:    len(entities),
	}, nil
}
