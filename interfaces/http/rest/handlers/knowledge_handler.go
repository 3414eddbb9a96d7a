package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"engram/application/commands"
	cmdhandlers "engram/application/commands/handlers"
	"engram/application/queries"
	querybus "engram/application/queries/bus"
	"engram/pkg/auth"
	"engram/pkg/utils"

	"go.uber.org/zap"
)

// KnowledgeHandler handles fact ingestion and retrieval. Writes go
// through the orchestrator directly because the result carries
// per-fact outcomes; reads go through the query bus so the caching
// and metrics middleware see them.
type KnowledgeHandler struct {
	writer   *cmdhandlers.WriteKnowledgeOrchestrator
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewKnowledgeHandler creates a new knowledge handler
func NewKnowledgeHandler(
	writer *cmdhandlers.WriteKnowledgeOrchestrator,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *KnowledgeHandler {
	return &KnowledgeHandler{
		writer:   writer,
		queryBus: queryBus,
		logger:   logger,
	}
}

// FactRequest is one triple in a write request
type FactRequest struct {
	Subject    string   `json:"subject" validate:"required,max=512"`
	Predicate  string   `json:"predicate" validate:"required,max=128"`
	Object     string   `json:"object" validate:"required,max=512"`
	Confidence *float64 `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	Scope      string   `json:"scope,omitempty" validate:"omitempty,oneof=private shared"`
	Context    string   `json:"context,omitempty" validate:"omitempty,max=2000"`
}

// WriteKnowledgeRequest represents the request body for writing facts
type WriteKnowledgeRequest struct {
	Facts   []FactRequest `json:"facts" validate:"required,min=1,max=500,dive"`
	Context string        `json:"context,omitempty" validate:"omitempty,max=2000"`
}

// WriteKnowledge handles POST /knowledge
func (h *KnowledgeHandler) WriteKnowledge(w http.ResponseWriter, r *http.Request) {
	var req WriteKnowledgeRequest
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

	cmd := &commands.WriteKnowledgeCommand{
		AuthorID: userCtx.UserID,
		Context:  req.Context,
		Facts:    make([]commands.FactPayload, 0, len(req.Facts)),
	}
	for _, fact := range req.Facts {
		cmd.Facts = append(cmd.Facts, commands.FactPayload{
			Subject:    fact.Subject,
			Predicate:  fact.Predicate,
			Object:     fact.Object,
			Confidence: fact.Confidence,
			Scope:      fact.Scope,
			Context:    fact.Context,
		})
	}

	result, err := h.writer.Handle(r.Context(), cmd)
	if err != nil {
		h.logger.Error("Failed to write knowledge",
			zap.String("userID", userCtx.UserID),
			zap.Int("factCount", len(req.Facts)),
			zap.Error(err),
		)
		respondAppError(w, h.logger, err, "Failed to write knowledge")
		return
	}

	// Partial failures are reported per fact, not as an HTTP error
	status := http.StatusCreated
	if result.WrittenCount == 0 {
		status = http.StatusOK
	}
	respondJSON(w, h.logger, status, result)
}

// QueryKnowledge handles GET /knowledge
func (h *KnowledgeHandler) QueryKnowledge(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	params := r.URL.Query()
	limit, _ := strconv.Atoi(params.Get("limit"))

	query := &queries.QueryKnowledgeQuery{
		UserID:            userCtx.UserID,
		Subject:           params.Get("subject"),
		Predicate:         params.Get("predicate"),
		When:              params.Get("when"),
		IncludeSuperseded: params.Get("include_superseded") == "true",
		PrivateOnly:       params.Get("private_only") == "true",
		Limit:             limit,
	}

	// Older clients use the inverse spellings
	if params.Get("include_shared") == "false" {
		query.PrivateOnly = true
	}
	if params.Get("active_only") == "false" {
		query.IncludeSuperseded = true
	}

	raw, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to query knowledge",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondAppError(w, h.logger, err, "Failed to query knowledge")
		return
	}

	result, ok := raw.(*queries.QueryKnowledgeResult)
	if !ok {
		respondError(w, h.logger, http.StatusInternalServerError, "Unexpected query result type")
		return
	}

	if result.Degraded {
		w.Header().Set("X-Degraded-Read", "true")
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}
