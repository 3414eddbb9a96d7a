package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/application/ports"
	"engram/application/queries"
	"engram/domain/config"
	"engram/domain/core/entities"
	"engram/domain/core/validators"
	"engram/domain/core/valueobjects"
)

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// fakeFactReader serves canned results per owner partition and records
// every filter it was asked to evaluate
type fakeFactReader struct {
	byOwner    map[string][]*entities.Fact
	errByOwner map[string]error
	filters    []ports.FactFilter
}

func (r *fakeFactReader) QueryFacts(_ context.Context, filter ports.FactFilter) ([]*entities.Fact, error) {
	r.filters = append(r.filters, filter)
	if len(filter.OwnerKeys) == 0 {
		return nil, errors.New("no owner partition given")
	}
	owner := filter.OwnerKeys[0]
	if err := r.errByOwner[owner]; err != nil {
		return nil, err
	}
	return r.byOwner[owner], nil
}

func newHandler(reader *fakeFactReader) *QueryKnowledgeHandler {
	cfg := config.DefaultDomainConfig()
	return NewQueryKnowledgeHandler(
		reader,
		validators.NewQueryValidatorWithConfig(cfg),
		validators.NewOwnerValidator(),
		noopLogger{},
	)
}

func storedFact(t *testing.T, owner, author, subject, predicate, object string, scope valueobjects.Scope, ts time.Time) *entities.Fact {
	t.Helper()
	subjectTerm, err := valueobjects.NewTerm(subject)
	require.NoError(t, err)
	objectTerm, err := valueobjects.NewTerm(object)
	require.NoError(t, err)
	pred, err := valueobjects.NewPredicate(predicate)
	require.NoError(t, err)
	conf, err := valueobjects.NewConfidence(1.0)
	require.NoError(t, err)

	fact, err := entities.ReconstructFact(
		valueobjects.NewFactID(),
		owner,
		author,
		subjectTerm,
		pred,
		objectTerm,
		scope,
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

func TestQueryKnowledge_MergesPrivateAndShared(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	private := storedFact(t, "user-1", "user-1", "alice", "likes", "climbing", valueobjects.ScopePrivate, base)
	shared := storedFact(t, valueobjects.SystemOwnerID, "user-2", "standup", "happens-at", "10am", valueobjects.ScopeShared, base.Add(time.Hour))

	reader := &fakeFactReader{byOwner: map[string][]*entities.Fact{
		"user-1":                  {private},
		valueobjects.SystemOwnerID: {shared},
	}}

	result, err := newHandler(reader).Handle(context.Background(), &queries.QueryKnowledgeQuery{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count)
	assert.False(t, result.Degraded)
	// Newest first across both partitions
	assert.Equal(t, shared.ID().String(), result.Facts[0].ID)
	assert.Equal(t, private.ID().String(), result.Facts[1].ID)
}

func TestQueryKnowledge_PrivateOnlySkipsSharedPartition(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	private := storedFact(t, "user-1", "user-1", "alice", "likes", "climbing", valueobjects.ScopePrivate, base)

	reader := &fakeFactReader{byOwner: map[string][]*entities.Fact{
		"user-1": {private},
	}}

	result, err := newHandler(reader).Handle(context.Background(), &queries.QueryKnowledgeQuery{
		UserID:      "user-1",
		PrivateOnly: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Count)
	require.Len(t, reader.filters, 1)
	assert.Equal(t, []string{"user-1"}, reader.filters[0].OwnerKeys)
}

func TestQueryKnowledge_SharedFailureDegradesInsteadOfFailing(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	private := storedFact(t, "user-1", "user-1", "alice", "likes", "climbing", valueobjects.ScopePrivate, base)

	reader := &fakeFactReader{
		byOwner:    map[string][]*entities.Fact{"user-1": {private}},
		errByOwner: map[string]error{valueobjects.SystemOwnerID: errors.New("throttled")},
	}

	result, err := newHandler(reader).Handle(context.Background(), &queries.QueryKnowledgeQuery{UserID: "user-1"})
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, private.ID().String(), result.Facts[0].ID)
}

func TestQueryKnowledge_PrivateFailureDegradesToSharedResults(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	shared := storedFact(t, valueobjects.SystemOwnerID, "user-2", "standup", "happens-at", "10am", valueobjects.ScopeShared, base)

	reader := &fakeFactReader{
		byOwner:    map[string][]*entities.Fact{valueobjects.SystemOwnerID: {shared}},
		errByOwner: map[string]error{"user-1": errors.New("table unavailable")},
	}

	result, err := newHandler(reader).Handle(context.Background(), &queries.QueryKnowledgeQuery{UserID: "user-1"})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	require.Len(t, result.Facts, 1)
	assert.Equal(t, "standup", result.Facts[0].Subject)
}

func TestQueryKnowledge_BothPartitionsFailingYieldsEmptyDegraded(t *testing.T) {
	reader := &fakeFactReader{
		errByOwner: map[string]error{
			"user-1":                   errors.New("table unavailable"),
			valueobjects.SystemOwnerID: errors.New("table unavailable"),
		},
	}

	result, err := newHandler(reader).Handle(context.Background(), &queries.QueryKnowledgeQuery{UserID: "user-1"})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Empty(t, result.Facts)
	assert.Zero(t, result.Count)
}

func TestQueryKnowledge_LimitAppliedAfterMerge(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	older := storedFact(t, "user-1", "user-1", "alice", "likes", "climbing", valueobjects.ScopePrivate, base)
	newer := storedFact(t, valueobjects.SystemOwnerID, "user-2", "standup", "happens-at", "10am", valueobjects.ScopeShared, base.Add(time.Hour))

	reader := &fakeFactReader{byOwner: map[string][]*entities.Fact{
		"user-1":                  {older},
		valueobjects.SystemOwnerID: {newer},
	}}

	result, err := newHandler(reader).Handle(context.Background(), &queries.QueryKnowledgeQuery{
		UserID: "user-1",
		Limit:  1,
	})
	require.NoError(t, err)

	require.Equal(t, 1, result.Count)
	assert.Equal(t, newer.ID().String(), result.Facts[0].ID)
}

func TestQueryKnowledge_TimeExpressionNarrowsTheQuery(t *testing.T) {
	reader := &fakeFactReader{}

	result, err := newHandler(reader).Handle(context.Background(), &queries.QueryKnowledgeQuery{
		UserID: "user-1",
		When:   "yesterday",
	})
	require.NoError(t, err)

	require.NotNil(t, result.TimeRangeStart)
	require.NotNil(t, result.TimeRangeEnd)
	assert.True(t, result.TimeRangeEnd.After(*result.TimeRangeStart))
	require.NotEmpty(t, reader.filters)
	assert.False(t, reader.filters[0].TimeRange.IsZero())
}

func TestQueryKnowledge_UnparseableTimeExpressionIgnored(t *testing.T) {
	reader := &fakeFactReader{}

	result, err := newHandler(reader).Handle(context.Background(), &queries.QueryKnowledgeQuery{
		UserID: "user-1",
		When:   "when the stars align",
	})
	require.NoError(t, err)

	assert.Nil(t, result.TimeRangeStart)
	require.NotEmpty(t, reader.filters)
	assert.True(t, reader.filters[0].TimeRange.IsZero())
}

func TestQueryKnowledge_SupersededIncludedOnRequest(t *testing.T) {
	reader := &fakeFactReader{}

	_, err := newHandler(reader).Handle(context.Background(), &queries.QueryKnowledgeQuery{
		UserID:            "user-1",
		IncludeSuperseded: true,
	})
	require.NoError(t, err)

	require.NotEmpty(t, reader.filters)
	assert.False(t, reader.filters[0].ActiveOnly)
}

func TestQueryKnowledge_ReservedOwnerRejected(t *testing.T) {
	reader := &fakeFactReader{}

	_, err := newHandler(reader).Handle(context.Background(), &queries.QueryKnowledgeQuery{
		UserID: valueobjects.SystemOwnerID,
	})
	require.Error(t, err)
	assert.Empty(t, reader.filters)
}
