package handlers

import (
	"net/http"

	"engram/application/queries"
	querybus "engram/application/queries/bus"
	"engram/pkg/auth"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HistoryHandler exposes a fact's supersession chain
type HistoryHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		queryBus: queryBus,
		logger:   logger,
	}
}

// GetFactHistory handles GET /facts/{factID}/history
func (h *HistoryHandler) GetFactHistory(w http.ResponseWriter, r *http.Request) {
	factID := chi.URLParam(r, "factID")
	if factID == "" {
		respondError(w, h.logger, http.StatusBadRequest, "Fact ID is required")
		return
	}

	if _, err := uuid.Parse(factID); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid fact ID format")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	query := &queries.GetFactHistoryQuery{
		UserID:      userCtx.UserID,
		FactID:      factID,
		SharedScope: r.URL.Query().Get("scope") == "shared",
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to get fact history",
			zap.String("factID", factID),
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondAppError(w, h.logger, err, "Failed to retrieve fact history")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}
