package entities

import (
	"time"

	"engram/domain/core/valueobjects"
	"engram/domain/events"
	pkgerrors "engram/pkg/errors"
)

// Fact is the main entity representing one subject-predicate-object
// edge in the knowledge graph. A fact is identified by its triple
// within an owner scope: writing the same triple twice merges into the
// existing edge instead of duplicating it.
type Fact struct {
	// Private fields ensure encapsulation
	id             valueobjects.FactID
	ownerID        string
	authorID       string
	subject        valueobjects.Term
	predicate      valueobjects.Predicate
	object         valueobjects.Term
	scope          valueobjects.Scope
	confidence     valueobjects.Confidence
	context        string
	timestamp      time.Time
	lastAssertedAt time.Time
	mentionCount   int
	active         bool
	supersededBy   valueobjects.FactID
	supersedes     valueobjects.FactID
	supersededAt   time.Time
	version        int

	// Domain events that occurred during this entity's lifetime
	events []events.DomainEvent
}

// NewFact creates a new active fact asserted by authorID. The storage
// owner is derived from the scope: shared facts belong to the system
// singleton, private facts to the author.
func NewFact(
	authorID string,
	subject valueobjects.Term,
	predicate valueobjects.Predicate,
	object valueobjects.Term,
	scope valueobjects.Scope,
	confidence valueobjects.Confidence,
	context string,
) (*Fact, error) {
	if authorID == "" {
		return nil, pkgerrors.NewValidationError("authorID cannot be empty")
	}
	if authorID == valueobjects.SystemOwnerID {
		return nil, pkgerrors.ErrReservedOwner
	}
	if subject.IsZero() || predicate.IsZero() || object.IsZero() {
		return nil, pkgerrors.NewValidationError("fact triple cannot be empty")
	}
	if !scope.IsValid() {
		return nil, pkgerrors.ErrInvalidScope
	}

	now := time.Now().UTC()
	fact := &Fact{
		id:             valueobjects.NewFactID(),
		ownerID:        scope.OwnerKey(authorID),
		authorID:       authorID,
		subject:        subject,
		predicate:      predicate,
		object:         object,
		scope:          scope,
		confidence:     confidence,
		context:        context,
		timestamp:      now,
		lastAssertedAt: now,
		mentionCount:   1,
		active:         true,
		version:        1,
		events:         []events.DomainEvent{},
	}

	fact.addEvent(events.NewFactWritten(fact.Snapshot(), now))

	return fact, nil
}

// ReconstructFact reconstructs a fact from repository data with
// preserved timestamps and supersession state
func ReconstructFact(
	id valueobjects.FactID,
	ownerID string,
	authorID string,
	subject valueobjects.Term,
	predicate valueobjects.Predicate,
	object valueobjects.Term,
	scope valueobjects.Scope,
	confidence valueobjects.Confidence,
	context string,
	timestamp time.Time,
	lastAssertedAt time.Time,
	mentionCount int,
	active bool,
	supersededBy valueobjects.FactID,
	supersedes valueobjects.FactID,
	supersededAt time.Time,
	version int,
) (*Fact, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("fact ID cannot be empty")
	}
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("ownerID cannot be empty")
	}
	if subject.IsZero() || predicate.IsZero() || object.IsZero() {
		return nil, pkgerrors.NewValidationError("fact triple cannot be empty")
	}

	if mentionCount < 1 {
		mentionCount = 1
	}
	if lastAssertedAt.IsZero() {
		lastAssertedAt = timestamp
	}

	return &Fact{
		id:             id,
		ownerID:        ownerID,
		authorID:       authorID,
		subject:        subject,
		predicate:      predicate,
		object:         object,
		scope:          scope,
		confidence:     confidence,
		context:        context,
		timestamp:      timestamp,
		lastAssertedAt: lastAssertedAt,
		mentionCount:   mentionCount,
		active:         active,
		supersededBy:   supersededBy,
		supersedes:     supersedes,
		supersededAt:   supersededAt,
		version:        version,
		events:         []events.DomainEvent{},
	}, nil
}

// ID returns the fact's unique identifier
func (f *Fact) ID() valueobjects.FactID {
	return f.id
}

// OwnerID returns the storage owner, the user id for private facts or
// the system singleton for shared facts
func (f *Fact) OwnerID() string {
	return f.ownerID
}

// AuthorID returns the user who asserted the fact
func (f *Fact) AuthorID() string {
	return f.authorID
}

// Subject returns the fact subject
func (f *Fact) Subject() valueobjects.Term {
	return f.subject
}

// Predicate returns the fact predicate
func (f *Fact) Predicate() valueobjects.Predicate {
	return f.predicate
}

// Object returns the fact object
func (f *Fact) Object() valueobjects.Term {
	return f.object
}

// Scope returns the fact's memory scope
func (f *Fact) Scope() valueobjects.Scope {
	return f.scope
}

// Confidence returns the fact's confidence
func (f *Fact) Confidence() valueobjects.Confidence {
	return f.confidence
}

// Context returns the free-text context the fact was asserted with
func (f *Fact) Context() string {
	return f.context
}

// Timestamp returns when the fact was first asserted
func (f *Fact) Timestamp() time.Time {
	return f.timestamp
}

// LastAssertedAt returns when the fact was most recently asserted
func (f *Fact) LastAssertedAt() time.Time {
	return f.lastAssertedAt
}

// MentionCount returns how many times the fact has been asserted
func (f *Fact) MentionCount() int {
	return f.mentionCount
}

// IsActive reports whether the fact is the current belief
func (f *Fact) IsActive() bool {
	return f.active
}

// SupersededBy returns the id of the fact that replaced this one, or
// the zero id while the fact is active
func (f *Fact) SupersededBy() valueobjects.FactID {
	return f.supersededBy
}

// Supersedes returns the id of the fact this one replaced, or the zero
// id when there was no predecessor
func (f *Fact) Supersedes() valueobjects.FactID {
	return f.supersedes
}

// SupersededAt returns when the fact was superseded
func (f *Fact) SupersededAt() time.Time {
	return f.supersededAt
}

// Version returns the fact's version for optimistic locking
func (f *Fact) Version() int {
	return f.version
}

// IdentityKey returns the merge identity of the fact within its owner
// partition: two facts with the same key are the same edge.
func (f *Fact) IdentityKey() string {
	return f.subject.Key() + "#" + f.predicate.String() + "#" + f.object.Key()
}

// Supersede marks the fact inactive, recording what replaced it. The
// original fact record is never deleted: the supersession chain is the
// audit trail.
func (f *Fact) Supersede(by valueobjects.FactID, at time.Time) error {
	if by.IsZero() {
		return pkgerrors.NewValidationError("superseding fact ID cannot be empty")
	}
	if !f.active {
		return nil // Already superseded
	}

	f.active = false
	f.supersededBy = by
	f.supersededAt = at.UTC()
	f.version++

	f.addEvent(events.NewFactSuperseded(
		f.id, by, f.ownerID, f.subject.String(), f.predicate.String(), f.supersededAt,
	))

	return nil
}

// MarkSupersedes records the predecessor this fact replaced
func (f *Fact) MarkSupersedes(loser valueobjects.FactID) {
	f.supersedes = loser
}

// MarkWrittenInactive marks a freshly created fact as losing its
// contradiction before it ever becomes the current belief. The fact is
// still written for the audit trail.
func (f *Fact) MarkWrittenInactive(winner valueobjects.FactID, at time.Time) {
	f.active = false
	f.supersededBy = winner
	f.supersededAt = at.UTC()

	f.addEvent(events.NewFactSuperseded(
		f.id, winner, f.ownerID, f.subject.String(), f.predicate.String(), f.supersededAt,
	))
}

// Reassert merges a repeated assertion of the same triple into this
// fact: confidence keeps its maximum, the mention count grows, and the
// original timestamp is preserved so resolution ordering is unaffected.
// A superseded fact can be reasserted too; whether it becomes active
// again is decided by contradiction resolution, not here.
func (f *Fact) Reassert(confidence valueobjects.Confidence, at time.Time) {
	f.confidence = f.confidence.Max(confidence)
	f.mentionCount++
	f.lastAssertedAt = at.UTC()
	f.version++

	f.addEvent(events.NewFactReasserted(
		f.id, f.ownerID, f.mentionCount, f.confidence.Value(), f.lastAssertedAt,
	))
}

// Reactivate restores a superseded fact as the current belief after it
// wins a contradiction against the fact that replaced it
func (f *Fact) Reactivate(at time.Time) {
	if f.active {
		return
	}

	f.active = true
	f.supersededBy = valueobjects.FactID{}
	f.supersededAt = time.Time{}
	f.version++

	f.addEvent(events.NewFactWritten(f.Snapshot(), at.UTC()))
}

// Snapshot returns the denormalized view of the fact used by events
func (f *Fact) Snapshot() events.FactSnapshot {
	return events.FactSnapshot{
		FactID:      f.id,
		OwnerUserID: f.ownerID,
		AuthorID:    f.authorID,
		Subject:     f.subject.String(),
		Predicate:   f.predicate.String(),
		Object:      f.object.String(),
		Scope:       f.scope.String(),
		Confidence:  f.confidence.Value(),
	}
}

// GetUncommittedEvents returns all uncommitted domain events
func (f *Fact) GetUncommittedEvents() []events.DomainEvent {
	return f.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (f *Fact) MarkEventsAsCommitted() {
	f.events = []events.DomainEvent{}
}

// addEvent adds a domain event to the uncommitted list
func (f *Fact) addEvent(event events.DomainEvent) {
	f.events = append(f.events, event)
}
