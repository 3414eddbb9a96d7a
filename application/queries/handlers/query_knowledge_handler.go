package handlers

import (
	"context"
	"sort"
	"time"

	"engram/application/ports"
	"engram/application/queries"
	"engram/domain/core/entities"
	"engram/domain/core/validators"
	"engram/domain/core/valueobjects"
	"engram/domain/temporal"
)

// Logger interface for query handlers
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// QueryKnowledgeHandler answers knowledge queries over a user's private
// partition and shared memory. The partitions are independent reads:
// an unreachable partition contributes nothing and flags the response
// as degraded instead of failing it.
type QueryKnowledgeHandler struct {
	reader         ports.FactReader
	queryValidator *validators.QueryValidator
	ownerValidator *validators.OwnerValidator
	logger         Logger
}

// NewQueryKnowledgeHandler creates the handler
func NewQueryKnowledgeHandler(reader ports.FactReader, queryValidator *validators.QueryValidator, ownerValidator *validators.OwnerValidator, logger Logger) *QueryKnowledgeHandler {
	return &QueryKnowledgeHandler{
		reader:         reader,
		queryValidator: queryValidator,
		ownerValidator: ownerValidator,
		logger:         logger,
	}
}

// Handle executes a knowledge query
func (h *QueryKnowledgeHandler) Handle(ctx context.Context, query *queries.QueryKnowledgeQuery) (*queries.QueryKnowledgeResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := h.ownerValidator.ValidateOwner(query.UserID); err != nil {
		return nil, err
	}

	limit := h.queryValidator.NormalizeLimit(query.Limit)

	filter := ports.FactFilter{
		ActiveOnly: !query.IncludeSuperseded,
		Limit:      limit,
	}
	if query.Subject != "" {
		filter.Subject = valueobjects.ReconstructTerm(query.Subject)
	}
	if query.Predicate != "" {
		filter.Predicate = valueobjects.ReconstructPredicate(query.Predicate)
	}

	result := &queries.QueryKnowledgeResult{}
	if query.When != "" {
		if timeRange, ok := temporal.Parse(query.When, time.Now().UTC()); ok {
			filter.TimeRange = timeRange
			start, end := timeRange.Start(), timeRange.End()
			result.TimeRangeStart = &start
			result.TimeRangeEnd = &end
		} else {
			// An unparseable expression widens the query instead of
			// failing it
			h.logger.Info("Ignoring unparseable time expression",
				"userID", query.UserID, "when", query.When)
		}
	}

	privateFilter := filter
	privateFilter.OwnerKeys = []string{query.UserID}
	facts, err := h.reader.QueryFacts(ctx, privateFilter)
	if err != nil {
		h.logger.Warn("Private partition unreachable, degrading",
			"userID", query.UserID, "error", err)
		result.Degraded = true
		facts = nil
	}

	if !query.PrivateOnly {
		sharedFilter := filter
		sharedFilter.OwnerKeys = []string{valueobjects.SystemOwnerID}
		shared, err := h.reader.QueryFacts(ctx, sharedFilter)
		if err != nil {
			h.logger.Warn("Shared memory unreachable, degrading to private results",
				"userID", query.UserID, "error", err)
			result.Degraded = true
		} else {
			facts = append(facts, shared...)
		}
	}

	sort.Slice(facts, func(i, j int) bool {
		return facts[i].Timestamp().After(facts[j].Timestamp())
	})
	if len(facts) > limit {
		facts = facts[:limit]
	}

	result.Facts = toFactViews(facts)
	result.Count = len(result.Facts)
	return result, nil
}

// toFactViews converts domain facts to their read model
func toFactViews(facts []*entities.Fact) []queries.FactView {
	views := make([]queries.FactView, len(facts))
	for i, f := range facts {
		views[i] = toFactView(f)
	}
	return views
}

func toFactView(f *entities.Fact) queries.FactView {
	view := queries.FactView{
		ID:             f.ID().String(),
		Subject:        f.Subject().String(),
		Predicate:      f.Predicate().String(),
		Object:         f.Object().String(),
		Scope:          f.Scope().String(),
		Confidence:     f.Confidence().Value(),
		Context:        f.Context(),
		Timestamp:      f.Timestamp(),
		LastAssertedAt: f.LastAssertedAt(),
		MentionCount:   f.MentionCount(),
		Active:         f.IsActive(),
	}
	if !f.SupersededBy().IsZero() {
		view.SupersededBy = f.SupersededBy().String()
	}
	if !f.Supersedes().IsZero() {
		view.Supersedes = f.Supersedes().String()
	}
	if !f.SupersededAt().IsZero() {
		at := f.SupersededAt()
		view.SupersededAt = &at
	}
	return view
}
