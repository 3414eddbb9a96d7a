package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/domain/core/valueobjects"
)

func newTestFact(t *testing.T, scope valueobjects.Scope, confidence float64) *Fact {
	t.Helper()

	subject, err := valueobjects.NewTerm("alice")
	require.NoError(t, err)
	predicate, err := valueobjects.NewPredicate("lives in")
	require.NoError(t, err)
	object, err := valueobjects.NewTerm("Paris")
	require.NoError(t, err)
	conf, err := valueobjects.NewConfidence(confidence)
	require.NoError(t, err)

	fact, err := NewFact("user-1", subject, predicate, object, scope, conf, "chat context")
	require.NoError(t, err)
	return fact
}

func TestNewFact_Defaults(t *testing.T) {
	fact := newTestFact(t, valueobjects.ScopePrivate, 0.8)

	assert.False(t, fact.ID().IsZero())
	assert.True(t, fact.IsActive())
	assert.Equal(t, 1, fact.MentionCount())
	assert.Equal(t, "user-1", fact.OwnerID())
	assert.Equal(t, "user-1", fact.AuthorID())
	assert.True(t, fact.SupersededBy().IsZero())
	assert.Equal(t, fact.Timestamp(), fact.LastAssertedAt())

	// Predicate arrives normalized
	assert.Equal(t, "lives-in", fact.Predicate().String())
}

func TestNewFact_SharedScopeOwnedBySystem(t *testing.T) {
	fact := newTestFact(t, valueobjects.ScopeShared, 0.8)

	assert.Equal(t, valueobjects.SystemOwnerID, fact.OwnerID())
	assert.Equal(t, "user-1", fact.AuthorID(), "author provenance survives the system ownership")
}

func TestNewFact_RejectsSystemAuthor(t *testing.T) {
	subject, _ := valueobjects.NewTerm("alice")
	predicate, _ := valueobjects.NewPredicate("knows")
	object, _ := valueobjects.NewTerm("bob")
	conf, _ := valueobjects.NewConfidence(1)

	_, err := NewFact("system", subject, predicate, object, valueobjects.ScopePrivate, conf, "")
	assert.Error(t, err)
}

func TestFact_ReassertMergesWithoutMovingTimestamp(t *testing.T) {
	fact := newTestFact(t, valueobjects.ScopePrivate, 0.6)
	firstAsserted := fact.Timestamp()

	later := firstAsserted.Add(time.Hour)
	lower, err := valueobjects.NewConfidence(0.3)
	require.NoError(t, err)
	fact.Reassert(lower, later)

	// Confidence never drops on reassertion and the first-asserted
	// timestamp stays put so resolution ordering is unaffected
	assert.Equal(t, 0.6, fact.Confidence().Value())
	assert.Equal(t, firstAsserted, fact.Timestamp())
	assert.Equal(t, later, fact.LastAssertedAt())
	assert.Equal(t, 2, fact.MentionCount())

	higher, err := valueobjects.NewConfidence(0.9)
	require.NoError(t, err)
	fact.Reassert(higher, later.Add(time.Hour))

	assert.Equal(t, 0.9, fact.Confidence().Value())
	assert.Equal(t, 3, fact.MentionCount())
}

func TestFact_SupersedeIsIdempotent(t *testing.T) {
	fact := newTestFact(t, valueobjects.ScopePrivate, 0.6)
	winner := valueobjects.NewFactID()
	at := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, fact.Supersede(winner, at))
	assert.False(t, fact.IsActive())
	assert.Equal(t, winner, fact.SupersededBy())
	assert.Equal(t, at, fact.SupersededAt())

	// A second supersession is a no-op, the chain stays intact
	other := valueobjects.NewFactID()
	require.NoError(t, fact.Supersede(other, at.Add(time.Hour)))
	assert.Equal(t, winner, fact.SupersededBy())
}

func TestFact_IdentityKeyNormalization(t *testing.T) {
	a := newTestFact(t, valueobjects.ScopePrivate, 0.5)

	subject, _ := valueobjects.NewTerm("  ALICE ")
	predicate, _ := valueobjects.NewPredicate("Lives In")
	object, _ := valueobjects.NewTerm("paris")
	conf, _ := valueobjects.NewConfidence(0.5)
	b, err := NewFact("user-2", subject, predicate, object, valueobjects.ScopePrivate, conf, "")
	require.NoError(t, err)

	assert.Equal(t, a.IdentityKey(), b.IdentityKey(), "identity ignores casing and whitespace")
}

func TestFact_EventsAccumulateAndClear(t *testing.T) {
	fact := newTestFact(t, valueobjects.ScopePrivate, 0.6)

	events := fact.GetUncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "fact.written", events[0].GetEventType())

	fact.MarkEventsAsCommitted()
	assert.Empty(t, fact.GetUncommittedEvents())

	conf, _ := valueobjects.NewConfidence(0.7)
	fact.Reassert(conf, time.Now())
	events = fact.GetUncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "fact.reasserted", events[0].GetEventType())
}
