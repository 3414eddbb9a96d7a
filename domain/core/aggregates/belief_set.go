package aggregates

import (
	"errors"

	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
	"engram/domain/events"
)

// BeliefSet is the aggregate root for contradiction resolution. It
// holds the active facts of one (owner, subject, predicate) slot and
// decides deterministically which belief survives when a new assertion
// arrives. Resolution never fails and never deletes: losers are marked
// inactive with a supersession reference so the full history remains
// queryable.
type BeliefSet struct {
	ownerID   string
	subject   valueobjects.Term
	predicate valueobjects.Predicate
	exclusive bool
	active    []*entities.Fact
}

// Resolution describes the outcome of asserting a candidate fact
type Resolution struct {
	// Winner is the fact holding the slot after resolution
	Winner *entities.Fact

	// Superseded lists previously active facts deactivated by the candidate
	Superseded []*entities.Fact

	// CandidateSuperseded is true when the candidate lost and was
	// recorded inactive from the start
	CandidateSuperseded bool
}

// Conflicted reports whether any contradiction was resolved
func (r *Resolution) Conflicted() bool {
	return len(r.Superseded) > 0 || r.CandidateSuperseded
}

// NewBeliefSet creates a belief set over the currently active facts of
// one subject-predicate slot. exclusive marks predicates that admit
// only a single active object per subject.
func NewBeliefSet(
	ownerID string,
	subject valueobjects.Term,
	predicate valueobjects.Predicate,
	exclusive bool,
	active []*entities.Fact,
) (*BeliefSet, error) {
	if ownerID == "" {
		return nil, errors.New("ownerID required")
	}
	if subject.IsZero() || predicate.IsZero() {
		return nil, errors.New("subject and predicate required")
	}

	for _, f := range active {
		if f.OwnerID() != ownerID {
			return nil, errors.New("fact belongs to a different owner")
		}
		if !f.Subject().Equals(subject) || !f.Predicate().Equals(predicate) {
			return nil, errors.New("fact belongs to a different belief slot")
		}
	}

	return &BeliefSet{
		ownerID:   ownerID,
		subject:   subject,
		predicate: predicate,
		exclusive: exclusive,
		active:    active,
	}, nil
}

// OwnerID returns the storage owner of the slot
func (b *BeliefSet) OwnerID() string {
	return b.ownerID
}

// Subject returns the slot subject
func (b *BeliefSet) Subject() valueobjects.Term {
	return b.subject
}

// Predicate returns the slot predicate
func (b *BeliefSet) Predicate() valueobjects.Predicate {
	return b.predicate
}

// ActiveFacts returns the currently active facts of the slot
func (b *BeliefSet) ActiveFacts() []*entities.Fact {
	facts := make([]*entities.Fact, len(b.active))
	copy(facts, b.active)
	return facts
}

// Assert resolves the candidate against the slot's active beliefs.
// Non-exclusive predicates accumulate without conflict. For exclusive
// predicates: higher confidence wins, equal confidence falls back to
// the newer assertion timestamp. The loser is deactivated with a
// reference to its replacement; a losing candidate is recorded
// inactive from the start.
func (b *BeliefSet) Assert(candidate *entities.Fact) (*Resolution, error) {
	if candidate == nil {
		return nil, errors.New("candidate cannot be nil")
	}
	if candidate.OwnerID() != b.ownerID {
		return nil, errors.New("candidate belongs to a different owner")
	}
	if !candidate.Subject().Equals(b.subject) || !candidate.Predicate().Equals(b.predicate) {
		return nil, errors.New("candidate belongs to a different belief slot")
	}

	at := candidate.LastAssertedAt()

	conflicts := b.conflictsWith(candidate)
	if !b.exclusive || len(conflicts) == 0 {
		if !candidate.IsActive() {
			candidate.Reactivate(at)
		}
		b.replaceActive(candidate, nil)
		return &Resolution{Winner: candidate}, nil
	}

	strongest := strongestOf(conflicts)

	if beats(candidate, strongest) {
		for _, f := range conflicts {
			if err := f.Supersede(candidate.ID(), at); err != nil {
				return nil, err
			}
		}
		candidate.MarkSupersedes(strongest.ID())
		if !candidate.IsActive() {
			candidate.Reactivate(at)
		}
		b.replaceActive(candidate, conflicts)
		return &Resolution{Winner: candidate, Superseded: conflicts}, nil
	}

	if candidate.IsActive() {
		candidate.MarkWrittenInactive(strongest.ID(), at)
	}
	return &Resolution{Winner: strongest, CandidateSuperseded: true}, nil
}

// GetUncommittedEvents returns uncommitted events from all facts in the slot
func (b *BeliefSet) GetUncommittedEvents() []events.DomainEvent {
	var all []events.DomainEvent
	for _, f := range b.active {
		all = append(all, f.GetUncommittedEvents()...)
	}
	return all
}

// MarkEventsAsCommitted clears uncommitted events on all facts in the slot
func (b *BeliefSet) MarkEventsAsCommitted() {
	for _, f := range b.active {
		f.MarkEventsAsCommitted()
	}
}

// conflictsWith returns the active facts contradicting the candidate.
// The candidate's own record never conflicts with itself: a repeated
// triple merges upstream and reaches resolution as the same fact.
func (b *BeliefSet) conflictsWith(candidate *entities.Fact) []*entities.Fact {
	var conflicts []*entities.Fact
	for _, f := range b.active {
		if f.ID().Equals(candidate.ID()) {
			continue
		}
		if f.IdentityKey() == candidate.IdentityKey() {
			continue
		}
		if f.IsActive() {
			conflicts = append(conflicts, f)
		}
	}
	return conflicts
}

// replaceActive swaps the superseded facts out of the active slot and
// records the winner
func (b *BeliefSet) replaceActive(winner *entities.Fact, superseded []*entities.Fact) {
	remaining := make([]*entities.Fact, 0, len(b.active)+1)
	for _, f := range b.active {
		if f.ID().Equals(winner.ID()) {
			continue
		}
		lost := false
		for _, s := range superseded {
			if f.ID().Equals(s.ID()) {
				lost = true
				break
			}
		}
		if !lost {
			remaining = append(remaining, f)
		}
	}
	b.active = append(remaining, winner)
}

// strongestOf picks the fact that would win the slot among the given
// facts: highest confidence, ties broken by the newer timestamp
func strongestOf(facts []*entities.Fact) *entities.Fact {
	strongest := facts[0]
	for _, f := range facts[1:] {
		if beats(f, strongest) {
			strongest = f
		}
	}
	return strongest
}

// beats reports whether a displaces b under the resolution rules
func beats(a, b *entities.Fact) bool {
	if a.Confidence().GreaterThan(b.Confidence()) {
		return true
	}
	if b.Confidence().GreaterThan(a.Confidence()) {
		return false
	}
	return a.Timestamp().After(b.Timestamp())
}
