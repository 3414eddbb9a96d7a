package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/application/commands"
	"engram/application/ports"
	"engram/domain/classification"
	"engram/domain/config"
	"engram/domain/core/entities"
	"engram/domain/core/validators"
	"engram/domain/core/valueobjects"
	"engram/domain/events"
)

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

type supersession struct {
	ownerKey string
	loser    string
	winner   string
}

type fakeFactRepo struct {
	mu        sync.Mutex
	active    []*entities.Fact
	stored    []*entities.Fact
	existing  *entities.Fact
	upsertErr error

	superseded  []supersession
	supersedes  []supersession
	reactivated []string
}

func (r *fakeFactRepo) UpsertFact(_ context.Context, fact *entities.Fact) (*entities.Fact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return nil, r.upsertErr
	}
	if r.existing != nil {
		return r.existing, nil
	}
	r.stored = append(r.stored, fact)
	return fact, nil
}

func (r *fakeFactRepo) MarkSuperseded(_ context.Context, ownerKey string, factID, by valueobjects.FactID, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.superseded = append(r.superseded, supersession{ownerKey, factID.String(), by.String()})
	return nil
}

func (r *fakeFactRepo) MarkSupersedes(_ context.Context, ownerKey string, factID, supersedes valueobjects.FactID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.supersedes = append(r.supersedes, supersession{ownerKey, supersedes.String(), factID.String()})
	return nil
}

func (r *fakeFactRepo) Reactivate(_ context.Context, _ string, factID valueobjects.FactID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reactivated = append(r.reactivated, factID.String())
	return nil
}

func (r *fakeFactRepo) QueryActiveBySubjectPredicate(context.Context, string, valueobjects.Term, valueobjects.Predicate) ([]*entities.Fact, error) {
	return r.active, nil
}

func (r *fakeFactRepo) GetFact(context.Context, string, valueobjects.FactID) (*entities.Fact, error) {
	return nil, nil
}

func (r *fakeFactRepo) GetHistory(context.Context, string, valueobjects.FactID) ([]*entities.Fact, error) {
	return nil, nil
}

func (r *fakeFactRepo) QueryFacts(context.Context, ports.FactFilter) ([]*entities.Fact, error) {
	return nil, nil
}

type fakeEntityRepo struct {
	mu       sync.Mutex
	upserted []string
	linked   []string
}

func (r *fakeEntityRepo) UpsertEntity(_ context.Context, _ string, name valueobjects.Term, _ string, _ time.Time) (*entities.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted = append(r.upserted, name.String())
	return nil, nil
}

func (r *fakeEntityRepo) GetEntity(context.Context, string, valueobjects.Term) (*entities.Entity, error) {
	return nil, nil
}

func (r *fakeEntityRepo) LinkKnowsAbout(_ context.Context, _ string, name valueobjects.Term, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.linked = append(r.linked, name.String())
	return nil
}

func (r *fakeEntityRepo) KnownEntities(context.Context, string, int) ([]ports.KnownEntity, error) {
	return nil, nil
}

type fakeUserRepo struct {
	touched []string
}

func (r *fakeUserRepo) TouchActivity(_ context.Context, userID string, _ time.Time) error {
	r.touched = append(r.touched, userID)
	return nil
}

func (r *fakeUserRepo) Get(context.Context, string) (*entities.User, error) {
	return nil, nil
}

type fakeEventStore struct {
	saved [][]events.DomainEvent
}

func (s *fakeEventStore) SaveEvents(_ context.Context, evts []events.DomainEvent) error {
	s.saved = append(s.saved, evts)
	return nil
}

func (s *fakeEventStore) GetEvents(context.Context, string) ([]events.DomainEvent, error) {
	return nil, nil
}

func (s *fakeEventStore) GetEventsByType(context.Context, string, int) ([]events.DomainEvent, error) {
	return nil, nil
}

type workingMemoryUpdate struct {
	userID   string
	topics   []string
	entities []string
}

type fakeWorkingMemory struct {
	updates []workingMemoryUpdate
}

func (m *fakeWorkingMemory) Update(userID string, topics, entityNames []string, _ time.Time) {
	m.updates = append(m.updates, workingMemoryUpdate{userID, topics, entityNames})
}

func (m *fakeWorkingMemory) ActiveContext(string, time.Time) ports.WorkingMemoryContext {
	return ports.WorkingMemoryContext{}
}

type orchestratorFixture struct {
	orchestrator  *WriteKnowledgeOrchestrator
	factRepo      *fakeFactRepo
	entityRepo    *fakeEntityRepo
	userRepo      *fakeUserRepo
	eventStore    *fakeEventStore
	workingMemory *fakeWorkingMemory
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	cfg := config.DefaultDomainConfig()
	f := &orchestratorFixture{
		factRepo:      &fakeFactRepo{},
		entityRepo:    &fakeEntityRepo{},
		userRepo:      &fakeUserRepo{},
		eventStore:    &fakeEventStore{},
		workingMemory: &fakeWorkingMemory{},
	}
	f.orchestrator = NewWriteKnowledgeOrchestrator(
		f.factRepo,
		f.entityRepo,
		f.userRepo,
		f.eventStore,
		f.workingMemory,
		validators.NewFactValidatorWithConfig(cfg),
		validators.NewOwnerValidator(),
		classification.NewClassifierFromConfig(cfg),
		cfg,
		noopLogger{},
	)
	return f
}

// activeBelief reconstructs a stored active fact so contradiction
// scenarios can start from a known slot state
func activeBelief(t *testing.T, owner, subject, predicate, object string, confidence float64, ts time.Time) *entities.Fact {
	t.Helper()
	subjectTerm, err := valueobjects.NewTerm(subject)
	require.NoError(t, err)
	objectTerm, err := valueobjects.NewTerm(object)
	require.NoError(t, err)
	pred, err := valueobjects.NewPredicate(predicate)
	require.NoError(t, err)
	conf, err := valueobjects.NewConfidence(confidence)
	require.NoError(t, err)

	fact, err := entities.ReconstructFact(
		valueobjects.NewFactID(),
		owner,
		owner,
		subjectTerm,
		pred,
		objectTerm,
		valueobjects.ScopePrivate,
		conf,
		"",
		ts,
		ts,
		1,
		true,
		valueobjects.FactID{},
		valueobjects.FactID{},
		time.Time{},
		1,
	)
	require.NoError(t, err)
	return fact
}

func TestHandle_WritesFactAndFeedsWorkingMemory(t *testing.T) {
	f := newFixture(t)

	result, err := f.orchestrator.Handle(context.Background(), &commands.WriteKnowledgeCommand{
		AuthorID: "user-1",
		Facts: []commands.FactPayload{
			{Subject: "alice", Predicate: "likes", Object: "climbing", Scope: "private"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.WrittenCount)
	assert.Equal(t, 0, result.FailedCount)
	require.Len(t, result.Results, 1)
	assert.Equal(t, commands.FactStatusWritten, result.Results[0].Status)
	assert.Equal(t, "private", result.Results[0].Scope)
	assert.NotEmpty(t, result.Results[0].FactID)

	// Both ends of the triple become entity nodes with knows-about links
	assert.ElementsMatch(t, []string{"alice", "climbing"}, f.entityRepo.upserted)
	assert.ElementsMatch(t, []string{"alice", "climbing"}, f.entityRepo.linked)

	// The write feeds the author's attention model
	require.Len(t, f.workingMemory.updates, 1)
	assert.Equal(t, "user-1", f.workingMemory.updates[0].userID)
	assert.Equal(t, []string{"likes"}, f.workingMemory.updates[0].topics)
	assert.ElementsMatch(t, []string{"alice", "climbing"}, f.workingMemory.updates[0].entities)

	assert.Equal(t, []string{"user-1"}, f.userRepo.touched)
	require.Len(t, f.eventStore.saved, 1)
	assert.NotEmpty(t, f.eventStore.saved[0])
}

func TestHandle_InvalidFactRejectedWithoutFailingBatch(t *testing.T) {
	f := newFixture(t)

	result, err := f.orchestrator.Handle(context.Background(), &commands.WriteKnowledgeCommand{
		AuthorID: "user-1",
		Facts: []commands.FactPayload{
			{Subject: "", Predicate: "likes", Object: "climbing"},
			{Subject: "alice", Predicate: "likes", Object: "climbing"},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.Equal(t, commands.FactStatusRejected, result.Results[0].Status)
	assert.NotEmpty(t, result.Results[0].Error)
	assert.Equal(t, commands.FactStatusWritten, result.Results[1].Status)
	assert.Equal(t, 1, result.WrittenCount)
	assert.Equal(t, 1, result.FailedCount)
}

func TestHandle_ExclusivePredicateSupersedesWeakerBelief(t *testing.T) {
	f := newFixture(t)
	loser := activeBelief(t, "user-1", "alice", "lives-in", "paris", 0.5,
		time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC))
	f.factRepo.active = []*entities.Fact{loser}

	confidence := 0.9
	result, err := f.orchestrator.Handle(context.Background(), &commands.WriteKnowledgeCommand{
		AuthorID: "user-1",
		Facts: []commands.FactPayload{
			{Subject: "alice", Predicate: "lives-in", Object: "london", Confidence: &confidence},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	outcome := result.Results[0]
	assert.Equal(t, commands.FactStatusWritten, outcome.Status)
	assert.Equal(t, []string{loser.ID().String()}, outcome.Superseded)

	require.Len(t, f.factRepo.superseded, 1)
	assert.Equal(t, loser.ID().String(), f.factRepo.superseded[0].loser)
	assert.Equal(t, outcome.FactID, f.factRepo.superseded[0].winner)
	require.Len(t, f.factRepo.supersedes, 1)
	assert.Equal(t, loser.ID().String(), f.factRepo.supersedes[0].loser)
}

func TestHandle_CandidateLosesToStrongerBelief(t *testing.T) {
	f := newFixture(t)
	winner := activeBelief(t, "user-1", "alice", "lives-in", "paris", 1.0,
		time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC))
	f.factRepo.active = []*entities.Fact{winner}

	confidence := 0.4
	result, err := f.orchestrator.Handle(context.Background(), &commands.WriteKnowledgeCommand{
		AuthorID: "user-1",
		Facts: []commands.FactPayload{
			{Subject: "alice", Predicate: "lives-in", Object: "london", Confidence: &confidence},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	outcome := result.Results[0]
	assert.Equal(t, commands.FactStatusSuperseded, outcome.Status)
	assert.Equal(t, winner.ID().String(), outcome.SupersededBy)

	// The losing candidate is still written, marked inactive from birth
	require.Len(t, f.factRepo.superseded, 1)
	assert.Equal(t, outcome.FactID, f.factRepo.superseded[0].loser)
	assert.Equal(t, winner.ID().String(), f.factRepo.superseded[0].winner)
}

// supersededBelief reconstructs a stored fact that already lost its
// slot to another belief
func supersededBelief(t *testing.T, owner, subject, predicate, object string, confidence float64, ts time.Time, by valueobjects.FactID) *entities.Fact {
	t.Helper()
	subjectTerm, err := valueobjects.NewTerm(subject)
	require.NoError(t, err)
	objectTerm, err := valueobjects.NewTerm(object)
	require.NoError(t, err)
	pred, err := valueobjects.NewPredicate(predicate)
	require.NoError(t, err)
	conf, err := valueobjects.NewConfidence(confidence)
	require.NoError(t, err)

	fact, err := entities.ReconstructFact(
		valueobjects.NewFactID(),
		owner,
		owner,
		subjectTerm,
		pred,
		objectTerm,
		valueobjects.ScopePrivate,
		conf,
		"",
		ts,
		ts,
		2,
		false,
		by,
		valueobjects.FactID{},
		ts.Add(time.Minute),
		2,
	)
	require.NoError(t, err)
	return fact
}

func TestHandle_ReassertedTripleReactivatesSupersededBelief(t *testing.T) {
	f := newFixture(t)

	// alice lived in boston, then chicago won the slot with higher
	// confidence. Re-asserting boston with an even higher confidence
	// merges into the superseded edge, which must come back as the one
	// active belief in storage, not just in memory.
	current := activeBelief(t, "user-1", "alice", "lives-in", "chicago", 0.9,
		time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC))
	boston := supersededBelief(t, "user-1", "alice", "lives-in", "boston", 0.95,
		time.Date(2025, 10, 1, 11, 0, 0, 0, time.UTC), current.ID())

	f.factRepo.active = []*entities.Fact{current}
	f.factRepo.existing = boston

	confidence := 0.95
	result, err := f.orchestrator.Handle(context.Background(), &commands.WriteKnowledgeCommand{
		AuthorID: "user-1",
		Facts: []commands.FactPayload{
			{Subject: "alice", Predicate: "lives-in", Object: "boston", Confidence: &confidence},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	outcome := result.Results[0]
	assert.Equal(t, commands.FactStatusMerged, outcome.Status)
	assert.Equal(t, []string{current.ID().String()}, outcome.Superseded)

	// The reactivation reached the repository
	assert.Equal(t, []string{boston.ID().String()}, f.factRepo.reactivated)

	// The previous winner lost the slot
	require.Len(t, f.factRepo.superseded, 1)
	assert.Equal(t, current.ID().String(), f.factRepo.superseded[0].loser)
	assert.Equal(t, boston.ID().String(), f.factRepo.superseded[0].winner)
	assert.True(t, boston.IsActive())
}

func TestHandle_MergedWhenTripleAlreadyExists(t *testing.T) {
	f := newFixture(t)
	existing := activeBelief(t, "user-1", "alice", "likes", "climbing", 1.0,
		time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC))
	f.factRepo.existing = existing
	f.factRepo.active = []*entities.Fact{existing}

	result, err := f.orchestrator.Handle(context.Background(), &commands.WriteKnowledgeCommand{
		AuthorID: "user-1",
		Facts: []commands.FactPayload{
			{Subject: "alice", Predicate: "likes", Object: "climbing"},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.Equal(t, commands.FactStatusMerged, result.Results[0].Status)
	assert.Equal(t, existing.ID().String(), result.Results[0].FactID)
	assert.Equal(t, 1, result.WrittenCount)
}

func TestHandle_StorageFailureMarksFactFailed(t *testing.T) {
	f := newFixture(t)
	f.factRepo.upsertErr = errors.New("conditional check failed")

	result, err := f.orchestrator.Handle(context.Background(), &commands.WriteKnowledgeCommand{
		AuthorID: "user-1",
		Facts: []commands.FactPayload{
			{Subject: "alice", Predicate: "likes", Object: "climbing"},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.Equal(t, commands.FactStatusFailed, result.Results[0].Status)
	assert.Equal(t, 1, result.FailedCount)
	assert.Empty(t, f.userRepo.touched)
	assert.Empty(t, f.workingMemory.updates)
}

func TestHandle_SharedScopeStoredUnderSystemOwner(t *testing.T) {
	f := newFixture(t)

	result, err := f.orchestrator.Handle(context.Background(), &commands.WriteKnowledgeCommand{
		AuthorID: "user-1",
		Facts: []commands.FactPayload{
			{Subject: "standup", Predicate: "happens-at", Object: "10am", Scope: "shared"},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.Equal(t, "shared", result.Results[0].Scope)
	require.Len(t, f.factRepo.stored, 1)
	assert.Equal(t, valueobjects.SystemOwnerID, f.factRepo.stored[0].OwnerID())
	assert.Equal(t, "user-1", f.factRepo.stored[0].AuthorID())
}

func TestHandle_ClassifierDecidesScopeWhenUnspecified(t *testing.T) {
	f := newFixture(t)

	result, err := f.orchestrator.Handle(context.Background(), &commands.WriteKnowledgeCommand{
		AuthorID: "user-1",
		Context:  "the team agreed on this",
		Facts: []commands.FactPayload{
			{Subject: "retro", Predicate: "happens-on", Object: "friday"},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.Equal(t, "shared", result.Results[0].Scope)
}

func TestHandle_ReservedAuthorRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.Handle(context.Background(), &commands.WriteKnowledgeCommand{
		AuthorID: valueobjects.SystemOwnerID,
		Facts: []commands.FactPayload{
			{Subject: "alice", Predicate: "likes", Object: "climbing"},
		},
	})
	require.Error(t, err)
	assert.Empty(t, f.factRepo.stored)
}
