package handlers

import (
	"net/http"
	"strconv"

	"engram/application/queries"
	querybus "engram/application/queries/bus"
	"engram/pkg/auth"

	"go.uber.org/zap"
)

// RecallHandler exposes entity recall, ranked by attention
type RecallHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewRecallHandler creates a new recall handler
func NewRecallHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *RecallHandler {
	return &RecallHandler{
		queryBus: queryBus,
		logger:   logger,
	}
}

// RecallEntities handles GET /recall
func (h *RecallHandler) RecallEntities(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	query := &queries.RecallEntitiesQuery{
		UserID: userCtx.UserID,
		Limit:  limit,
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to recall entities",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondAppError(w, h.logger, err, "Failed to recall entities")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}
