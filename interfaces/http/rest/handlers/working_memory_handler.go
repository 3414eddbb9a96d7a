package handlers

import (
	"encoding/json"
	"net/http"

	"engram/application/commands"
	cmdbus "engram/application/commands/bus"
	"engram/application/queries"
	querybus "engram/application/queries/bus"
	"engram/pkg/auth"
	"engram/pkg/utils"

	"go.uber.org/zap"
)

// WorkingMemoryHandler exposes a user's current attention state and
// accepts explicit mention updates
type WorkingMemoryHandler struct {
	queryBus   *querybus.QueryBus
	commandBus *cmdbus.CommandBus
	logger     *zap.Logger
}

// NewWorkingMemoryHandler creates a new working memory handler
func NewWorkingMemoryHandler(queryBus *querybus.QueryBus, commandBus *cmdbus.CommandBus, logger *zap.Logger) *WorkingMemoryHandler {
	return &WorkingMemoryHandler{
		queryBus:   queryBus,
		commandBus: commandBus,
		logger:     logger,
	}
}

// UpdateWorkingMemoryRequest represents the request body for mention updates
type UpdateWorkingMemoryRequest struct {
	Topics   []string `json:"topics,omitempty" validate:"omitempty,max=50,dive,max=256"`
	Entities []string `json:"entities,omitempty" validate:"omitempty,max=50,dive,max=256"`
}

// GetWorkingMemory handles GET /working-memory
func (h *WorkingMemoryHandler) GetWorkingMemory(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	query := &queries.QueryWorkingMemoryQuery{UserID: userCtx.UserID}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to read working memory",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondAppError(w, h.logger, err, "Failed to read working memory")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// UpdateWorkingMemory handles POST /working-memory. It boosts
// attention for mentions that are not tied to a fact write.
func (h *WorkingMemoryHandler) UpdateWorkingMemory(w http.ResponseWriter, r *http.Request) {
	var req UpdateWorkingMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cmd := &commands.UpdateWorkingMemoryCommand{
		UserID:   userCtx.UserID,
		Topics:   req.Topics,
		Entities: req.Entities,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to update working memory",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondAppError(w, h.logger, err, "Failed to update working memory")
		return
	}

	respondJSON(w, h.logger, http.StatusAccepted, map[string]string{"status": "accepted"})
}
