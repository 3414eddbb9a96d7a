package handlers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"engram/application/commands"
	"engram/application/ports"
	"engram/domain/classification"
	"engram/domain/config"
	"engram/domain/core/aggregates"
	"engram/domain/core/entities"
	"engram/domain/core/validators"
	"engram/domain/core/valueobjects"
	"engram/domain/events"
)

// Logger interface for the orchestrator
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// WriteKnowledgeOrchestrator runs the full write pipeline for a batch
// of facts: validate, classify, upsert entities, resolve
// contradictions, persist, link knowledge, and feed working memory.
// Facts are independent units of work; one failing fact never fails
// the batch.
type WriteKnowledgeOrchestrator struct {
	factRepo       ports.FactRepository
	entityRepo     ports.EntityRepository
	userRepo       ports.UserRepository
	eventStore     ports.EventStore
	workingMemory  ports.WorkingMemory
	factValidator  *validators.FactValidator
	ownerValidator *validators.OwnerValidator
	classifier     *classification.Classifier
	domainConfig   *config.DomainConfig
	logger         Logger
}

// NewWriteKnowledgeOrchestrator creates the write pipeline
func NewWriteKnowledgeOrchestrator(
	factRepo ports.FactRepository,
	entityRepo ports.EntityRepository,
	userRepo ports.UserRepository,
	eventStore ports.EventStore,
	workingMemory ports.WorkingMemory,
	factValidator *validators.FactValidator,
	ownerValidator *validators.OwnerValidator,
	classifier *classification.Classifier,
	domainConfig *config.DomainConfig,
	logger Logger,
) *WriteKnowledgeOrchestrator {
	return &WriteKnowledgeOrchestrator{
		factRepo:       factRepo,
		entityRepo:     entityRepo,
		userRepo:       userRepo,
		eventStore:     eventStore,
		workingMemory:  workingMemory,
		factValidator:  factValidator,
		ownerValidator: ownerValidator,
		classifier:     classifier,
		domainConfig:   domainConfig,
		logger:         logger,
	}
}

// Handle processes a write batch and reports a per-fact outcome
func (o *WriteKnowledgeOrchestrator) Handle(ctx context.Context, cmd *commands.WriteKnowledgeCommand) (*commands.WriteKnowledgeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if err := o.ownerValidator.ValidateOwner(cmd.AuthorID); err != nil {
		return nil, err
	}

	inputs := make([]validators.FactInput, len(cmd.Facts))
	for i, f := range cmd.Facts {
		inputs[i] = validators.FactInput{
			Subject:    f.Subject,
			Predicate:  f.Predicate,
			Object:     f.Object,
			Confidence: f.Confidence,
			Scope:      f.Scope,
			Context:    f.Context,
		}
	}
	if err := o.factValidator.ValidateBatch(inputs); err != nil {
		return nil, err
	}

	result := &commands.WriteKnowledgeResult{
		Results: make([]commands.FactWriteResult, 0, len(cmd.Facts)),
	}

	for i, payload := range cmd.Facts {
		r := o.processFact(ctx, cmd, i, payload)
		result.Results = append(result.Results, r)
		switch r.Status {
		case commands.FactStatusRejected, commands.FactStatusFailed:
			result.FailedCount++
		default:
			result.WrittenCount++
		}
	}

	if result.WrittenCount > 0 {
		if err := o.userRepo.TouchActivity(ctx, cmd.AuthorID, time.Now().UTC()); err != nil {
			// Activity tracking is best-effort
			o.logger.Warn("Failed to touch user activity",
				"userID", cmd.AuthorID, "error", err)
		}
	}

	o.logger.Info("Write batch processed",
		"authorID", cmd.AuthorID,
		"facts", len(cmd.Facts),
		"written", result.WrittenCount,
		"failed", result.FailedCount)

	return result, nil
}

// processFact runs the pipeline for one fact
func (o *WriteKnowledgeOrchestrator) processFact(ctx context.Context, cmd *commands.WriteKnowledgeCommand, index int, payload commands.FactPayload) commands.FactWriteResult {
	// Step 1: Validate
	factContext := payload.Context
	if factContext == "" {
		factContext = cmd.Context
	}
	input := validators.FactInput{
		Subject:    payload.Subject,
		Predicate:  payload.Predicate,
		Object:     payload.Object,
		Confidence: payload.Confidence,
		Scope:      payload.Scope,
		Context:    factContext,
	}
	if err := o.factValidator.ValidateFact(input); err != nil {
		return rejected(index, err)
	}

	// Step 2: Classify. An explicit scope wins over the classifier.
	var scope valueobjects.Scope
	if payload.Scope != "" {
		parsed, err := valueobjects.ParseScope(payload.Scope)
		if err != nil {
			return rejected(index, err)
		}
		scope = parsed
	} else {
		decision := o.classifier.ClassifyFact(payload.Subject, payload.Predicate, payload.Object, factContext)
		scope = decision.Scope
		if decision.MatchedSignal != "" {
			o.logger.Info("Memory classified",
				"scope", scope.String(), "signal", decision.MatchedSignal)
		}
	}

	// Step 3: Construct the candidate
	subject, err := valueobjects.NewTermWithConfig(payload.Subject, o.domainConfig)
	if err != nil {
		return rejected(index, err)
	}
	predicate, err := valueobjects.NewPredicateWithConfig(payload.Predicate, o.domainConfig)
	if err != nil {
		return rejected(index, err)
	}
	object, err := valueobjects.NewTermWithConfig(payload.Object, o.domainConfig)
	if err != nil {
		return rejected(index, err)
	}
	confValue := o.domainConfig.DefaultConfidence
	if payload.Confidence != nil {
		confValue = *payload.Confidence
	}
	confidence, err := valueobjects.NewConfidence(confValue)
	if err != nil {
		return rejected(index, err)
	}

	candidate, err := entities.NewFact(cmd.AuthorID, subject, predicate, object, scope, confidence, factContext)
	if err != nil {
		return rejected(index, err)
	}

	// Step 4: Upsert entities concurrently
	ownerKey := candidate.OwnerID()
	if err := o.upsertEntities(ctx, ownerKey, cmd.AuthorID, subject, object); err != nil {
		o.logger.Error("Entity upsert failed",
			"ownerKey", ownerKey, "error", err)
		return failed(index, err)
	}

	// Step 5: Persist the candidate, merging into an existing edge
	// when the triple was asserted before
	stored, err := o.factRepo.UpsertFact(ctx, candidate)
	if err != nil {
		o.logger.Error("Fact upsert failed",
			"ownerKey", ownerKey, "error", err)
		return failed(index, err)
	}
	merged := !stored.ID().Equals(candidate.ID()) || stored.MentionCount() > 1

	// Step 6: Resolve contradictions within the belief slot
	resolution, err := o.resolveContradictions(ctx, stored)
	if err != nil {
		o.logger.Error("Contradiction resolution failed",
			"ownerKey", ownerKey, "factID", stored.ID().String(), "error", err)
		return failed(index, err)
	}

	// Step 7: Record the outcome and feed working memory
	o.saveEvents(ctx, stored, resolution)
	o.workingMemory.Update(cmd.AuthorID,
		[]string{predicate.String()},
		[]string{subject.String(), object.String()},
		time.Now().UTC())

	r := commands.FactWriteResult{
		Index:  index,
		FactID: stored.ID().String(),
		Scope:  scope.String(),
	}
	switch {
	case resolution.CandidateSuperseded:
		r.Status = commands.FactStatusSuperseded
		r.SupersededBy = resolution.Winner.ID().String()
	case merged:
		r.Status = commands.FactStatusMerged
	default:
		r.Status = commands.FactStatusWritten
	}
	for _, loser := range resolution.Superseded {
		r.Superseded = append(r.Superseded, loser.ID().String())
	}
	return r
}

// upsertEntities merges the subject and object entity nodes and links
// the author to them. Subject and object are independent, so they run
// concurrently.
func (o *WriteKnowledgeOrchestrator) upsertEntities(ctx context.Context, ownerKey, authorID string, subject, object valueobjects.Term) error {
	now := time.Now().UTC()
	names := []valueobjects.Term{subject}
	if !object.Equals(subject) {
		names = append(names, object)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if _, err := o.entityRepo.UpsertEntity(gctx, ownerKey, name, authorID, now); err != nil {
				return fmt.Errorf("upsert entity %q: %w", name.String(), err)
			}
			return o.entityRepo.LinkKnowsAbout(gctx, authorID, name, now)
		})
	}
	return g.Wait()
}

// resolveContradictions loads the active beliefs of the fact's slot and
// asserts the stored fact against them, persisting any supersessions
func (o *WriteKnowledgeOrchestrator) resolveContradictions(ctx context.Context, stored *entities.Fact) (*aggregates.Resolution, error) {
	active, err := o.factRepo.QueryActiveBySubjectPredicate(ctx, stored.OwnerID(), stored.Subject(), stored.Predicate())
	if err != nil {
		return nil, err
	}

	exclusive := o.domainConfig.IsExclusivePredicate(stored.Predicate().String())
	beliefs, err := aggregates.NewBeliefSet(stored.OwnerID(), stored.Subject(), stored.Predicate(), exclusive, active)
	if err != nil {
		return nil, err
	}

	wasActive := stored.IsActive()
	resolution, err := beliefs.Assert(stored)
	if err != nil {
		return nil, err
	}

	at := time.Now().UTC()
	if !wasActive && !resolution.CandidateSuperseded {
		// A re-asserted triple that was superseded earlier has won its
		// slot back; the in-memory reactivation must reach the store or
		// the slot ends up with no active belief at all.
		if err := o.factRepo.Reactivate(ctx, stored.OwnerID(), stored.ID()); err != nil {
			return nil, err
		}
		o.logger.Info("Superseded belief reactivated",
			"ownerKey", stored.OwnerID(),
			"factID", stored.ID().String(),
			"predicate", stored.Predicate().String())
	}
	for _, loser := range resolution.Superseded {
		err := o.factRepo.MarkSuperseded(ctx, stored.OwnerID(), loser.ID(), stored.ID(), at)
		if err != nil {
			return nil, err
		}
		if err := o.factRepo.MarkSupersedes(ctx, stored.OwnerID(), stored.ID(), loser.ID()); err != nil {
			return nil, err
		}
		o.logger.Info("Belief superseded",
			"ownerKey", stored.OwnerID(),
			"loser", loser.ID().String(),
			"winner", stored.ID().String(),
			"predicate", stored.Predicate().String())
	}
	if resolution.CandidateSuperseded {
		err := o.factRepo.MarkSuperseded(ctx, stored.OwnerID(), stored.ID(), resolution.Winner.ID(), at)
		if err != nil {
			return nil, err
		}
		o.logger.Info("Incoming fact lost its contradiction",
			"ownerKey", stored.OwnerID(),
			"factID", stored.ID().String(),
			"winner", resolution.Winner.ID().String())
	}

	return resolution, nil
}

// saveEvents persists the domain events of a resolution through the
// outbox. Event loss is tolerable; the write itself is not rolled back.
func (o *WriteKnowledgeOrchestrator) saveEvents(ctx context.Context, stored *entities.Fact, resolution *aggregates.Resolution) {
	var all []events.DomainEvent
	all = append(all, stored.GetUncommittedEvents()...)
	for _, loser := range resolution.Superseded {
		all = append(all, loser.GetUncommittedEvents()...)
	}
	if len(all) == 0 {
		return
	}

	if err := o.eventStore.SaveEvents(ctx, all); err != nil {
		o.logger.Warn("Failed to save domain events",
			"factID", stored.ID().String(), "count", len(all), "error", err)
		return
	}

	stored.MarkEventsAsCommitted()
	for _, loser := range resolution.Superseded {
		loser.MarkEventsAsCommitted()
	}
}

func rejected(index int, err error) commands.FactWriteResult {
	return commands.FactWriteResult{
		Index:  index,
		Status: commands.FactStatusRejected,
		Error:  err.Error(),
	}
}

func failed(index int, err error) commands.FactWriteResult {
	return commands.FactWriteResult{
		Index:  index,
		Status: commands.FactStatusFailed,
		Error:  err.Error(),
	}
}
