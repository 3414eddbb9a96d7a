package aggregates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
)

func mustTerm(t *testing.T, s string) valueobjects.Term {
	t.Helper()
	term, err := valueobjects.NewTerm(s)
	require.NoError(t, err)
	return term
}

func mustPredicate(t *testing.T, s string) valueobjects.Predicate {
	t.Helper()
	p, err := valueobjects.NewPredicate(s)
	require.NoError(t, err)
	return p
}

func mustConfidence(t *testing.T, v float64) valueobjects.Confidence {
	t.Helper()
	c, err := valueobjects.NewConfidence(v)
	require.NoError(t, err)
	return c
}

// buildFact reconstructs an active fact with a controlled timestamp so
// resolution ordering can be pinned in tests
func buildFact(t *testing.T, owner, subject, predicate, object string, confidence float64, ts time.Time) *entities.Fact {
	t.Helper()
	fact, err := entities.ReconstructFact(
		valueobjects.NewFactID(),
		owner,
		owner,
		mustTerm(t, subject),
		mustPredicate(t, predicate),
		mustTerm(t, object),
		valueobjects.ScopePrivate,
		mustConfidence(t, confidence),
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

func TestBeliefSetAssert_EmptySlot(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	set, err := NewBeliefSet("user-1", mustTerm(t, "alice"), mustPredicate(t, "lives-in"), true, nil)
	require.NoError(t, err)

	candidate := buildFact(t, "user-1", "alice", "lives-in", "Paris", 0.8, base)

	res, err := set.Assert(candidate)
	require.NoError(t, err)

	assert.Equal(t, candidate.ID(), res.Winner.ID())
	assert.False(t, res.Conflicted())
	assert.True(t, candidate.IsActive())
}

func TestBeliefSetAssert_NonExclusiveAccumulates(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	existing := buildFact(t, "user-1", "alice", "enjoys", "climbing", 0.9, base)
	set, err := NewBeliefSet("user-1", mustTerm(t, "alice"), mustPredicate(t, "enjoys"), false, []*entities.Fact{existing})
	require.NoError(t, err)

	candidate := buildFact(t, "user-1", "alice", "enjoys", "painting", 0.5, base.Add(time.Hour))

	res, err := set.Assert(candidate)
	require.NoError(t, err)

	assert.False(t, res.Conflicted())
	assert.True(t, existing.IsActive(), "non-exclusive predicates never supersede")
	assert.True(t, candidate.IsActive())
	assert.Len(t, set.ActiveFacts(), 2)
}

func TestBeliefSetAssert_HigherConfidenceWins(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	existing := buildFact(t, "user-1", "alice", "lives-in", "Paris", 0.6, base)
	set, err := NewBeliefSet("user-1", mustTerm(t, "alice"), mustPredicate(t, "lives-in"), true, []*entities.Fact{existing})
	require.NoError(t, err)

	candidate := buildFact(t, "user-1", "alice", "lives-in", "Berlin", 0.9, base.Add(time.Hour))

	res, err := set.Assert(candidate)
	require.NoError(t, err)

	assert.Equal(t, candidate.ID(), res.Winner.ID())
	require.Len(t, res.Superseded, 1)
	assert.Equal(t, existing.ID(), res.Superseded[0].ID())

	assert.False(t, existing.IsActive())
	assert.Equal(t, candidate.ID(), existing.SupersededBy())
	assert.False(t, existing.SupersededAt().IsZero())

	assert.True(t, candidate.IsActive())
	assert.Equal(t, existing.ID(), candidate.Supersedes())
}

func TestBeliefSetAssert_LowerConfidenceCandidateRecordedInactive(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	existing := buildFact(t, "user-1", "alice", "works-at", "Acme", 0.95, base)
	set, err := NewBeliefSet("user-1", mustTerm(t, "alice"), mustPredicate(t, "works-at"), true, []*entities.Fact{existing})
	require.NoError(t, err)

	candidate := buildFact(t, "user-1", "alice", "works-at", "Globex", 0.4, base.Add(time.Hour))

	res, err := set.Assert(candidate)
	require.NoError(t, err)

	assert.Equal(t, existing.ID(), res.Winner.ID())
	assert.True(t, res.CandidateSuperseded)
	assert.True(t, res.Conflicted())

	// The losing candidate is still written, inactive from the start,
	// pointing at the belief that beat it
	assert.False(t, candidate.IsActive())
	assert.Equal(t, existing.ID(), candidate.SupersededBy())

	assert.True(t, existing.IsActive())
	assert.True(t, existing.SupersededBy().IsZero())
}

func TestBeliefSetAssert_EqualConfidenceNewerTimestampWins(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	existing := buildFact(t, "user-1", "alice", "has-age", "29", 0.8, base)
	set, err := NewBeliefSet("user-1", mustTerm(t, "alice"), mustPredicate(t, "has-age"), true, []*entities.Fact{existing})
	require.NoError(t, err)

	candidate := buildFact(t, "user-1", "alice", "has-age", "30", 0.8, base.Add(time.Minute))

	res, err := set.Assert(candidate)
	require.NoError(t, err)

	assert.Equal(t, candidate.ID(), res.Winner.ID())
	assert.False(t, existing.IsActive())
	assert.True(t, candidate.IsActive())
}

func TestBeliefSetAssert_EqualConfidenceOlderCandidateLoses(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	existing := buildFact(t, "user-1", "alice", "has-age", "30", 0.8, base)
	set, err := NewBeliefSet("user-1", mustTerm(t, "alice"), mustPredicate(t, "has-age"), true, []*entities.Fact{existing})
	require.NoError(t, err)

	// A merged reassertion keeps its original first-asserted timestamp,
	// so it can arrive older than the current belief
	candidate := buildFact(t, "user-1", "alice", "has-age", "29", 0.8, base.Add(-time.Hour))

	res, err := set.Assert(candidate)
	require.NoError(t, err)

	assert.Equal(t, existing.ID(), res.Winner.ID())
	assert.True(t, res.CandidateSuperseded)
	assert.True(t, existing.IsActive())
	assert.False(t, candidate.IsActive())
}

func TestBeliefSetAssert_SupersededFactReactivatesOnStrongerReassertion(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	winner := buildFact(t, "user-1", "alice", "lives-in", "Berlin", 0.7, base.Add(time.Hour))
	loser := buildFact(t, "user-1", "alice", "lives-in", "Paris", 0.6, base)
	require.NoError(t, loser.Supersede(winner.ID(), base.Add(time.Hour)))

	set, err := NewBeliefSet("user-1", mustTerm(t, "alice"), mustPredicate(t, "lives-in"), true, []*entities.Fact{winner})
	require.NoError(t, err)

	// The Paris triple is asserted again with higher confidence and
	// merges into its superseded record before resolution
	loser.Reassert(mustConfidence(t, 0.9), base.Add(2*time.Hour))

	res, err := set.Assert(loser)
	require.NoError(t, err)

	assert.Equal(t, loser.ID(), res.Winner.ID())
	assert.True(t, loser.IsActive())
	assert.True(t, loser.SupersededBy().IsZero())
	assert.False(t, winner.IsActive())
	assert.Equal(t, loser.ID(), winner.SupersededBy())
}

func TestBeliefSetAssert_MultipleConflictsAllSuperseded(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	first := buildFact(t, "user-1", "alice", "lives-in", "Paris", 0.5, base)
	second := buildFact(t, "user-1", "alice", "lives-in", "Lyon", 0.6, base.Add(time.Minute))
	set, err := NewBeliefSet("user-1", mustTerm(t, "alice"), mustPredicate(t, "lives-in"), true, []*entities.Fact{first, second})
	require.NoError(t, err)

	candidate := buildFact(t, "user-1", "alice", "lives-in", "Berlin", 0.9, base.Add(time.Hour))

	res, err := set.Assert(candidate)
	require.NoError(t, err)

	assert.Equal(t, candidate.ID(), res.Winner.ID())
	assert.Len(t, res.Superseded, 2)
	assert.False(t, first.IsActive())
	assert.False(t, second.IsActive())
	assert.Len(t, set.ActiveFacts(), 1)
}

func TestBeliefSetAssert_RejectsForeignSlot(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	set, err := NewBeliefSet("user-1", mustTerm(t, "alice"), mustPredicate(t, "lives-in"), true, nil)
	require.NoError(t, err)

	otherSubject := buildFact(t, "user-1", "bob", "lives-in", "Paris", 0.8, base)
	_, err = set.Assert(otherSubject)
	assert.Error(t, err)

	otherOwner := buildFact(t, "user-2", "alice", "lives-in", "Paris", 0.8, base)
	_, err = set.Assert(otherOwner)
	assert.Error(t, err)
}

func TestBeliefSetAssert_SupersededEventsRaised(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	existing := buildFact(t, "user-1", "alice", "lives-in", "Paris", 0.6, base)
	set, err := NewBeliefSet("user-1", mustTerm(t, "alice"), mustPredicate(t, "lives-in"), true, []*entities.Fact{existing})
	require.NoError(t, err)

	candidate := buildFact(t, "user-1", "alice", "lives-in", "Berlin", 0.9, base.Add(time.Hour))

	_, err = set.Assert(candidate)
	require.NoError(t, err)

	types := make([]string, 0)
	for _, ev := range existing.GetUncommittedEvents() {
		types = append(types, ev.GetEventType())
	}
	assert.Contains(t, types, "fact.superseded")
}
