package entities

import (
	"time"

	"engram/domain/core/valueobjects"
	"engram/domain/events"
	pkgerrors "engram/pkg/errors"
)

// Entity represents a node in the knowledge graph: a person, place,
// organization or concept that facts are written about. Entities are
// identified by their normalized name within an owner scope, and a
// repeated mention merges into the existing record.
type Entity struct {
	id              valueobjects.EntityID
	ownerID         string
	name            valueobjects.Term
	createdBy       string
	createdAt       time.Time
	lastMentionedAt time.Time
	mentionCount    int

	events []events.DomainEvent
}

// NewEntity creates a new entity first mentioned by createdBy
func NewEntity(ownerID string, name valueobjects.Term, createdBy string) (*Entity, error) {
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("ownerID cannot be empty")
	}
	if name.IsZero() {
		return nil, pkgerrors.ErrEntityNameRequired
	}
	if createdBy == "" {
		return nil, pkgerrors.NewValidationError("createdBy cannot be empty")
	}

	now := time.Now().UTC()
	entity := &Entity{
		id:              valueobjects.NewEntityID(),
		ownerID:         ownerID,
		name:            name,
		createdBy:       createdBy,
		createdAt:       now,
		lastMentionedAt: now,
		mentionCount:    1,
		events:          []events.DomainEvent{},
	}

	entity.addEvent(events.NewEntityCreated(entity.id, ownerID, name.String(), createdBy, now))

	return entity, nil
}

// ReconstructEntity reconstructs an entity from repository data
func ReconstructEntity(
	id valueobjects.EntityID,
	ownerID string,
	name valueobjects.Term,
	createdBy string,
	createdAt time.Time,
	lastMentionedAt time.Time,
	mentionCount int,
) (*Entity, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("entity ID cannot be empty")
	}
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("ownerID cannot be empty")
	}
	if name.IsZero() {
		return nil, pkgerrors.ErrEntityNameRequired
	}

	if mentionCount < 1 {
		mentionCount = 1
	}

	return &Entity{
		id:              id,
		ownerID:         ownerID,
		name:            name,
		createdBy:       createdBy,
		createdAt:       createdAt,
		lastMentionedAt: lastMentionedAt,
		mentionCount:    mentionCount,
		events:          []events.DomainEvent{},
	}, nil
}

// ID returns the entity's unique identifier
func (e *Entity) ID() valueobjects.EntityID {
	return e.id
}

// OwnerID returns the storage owner of the entity
func (e *Entity) OwnerID() string {
	return e.ownerID
}

// Name returns the entity name
func (e *Entity) Name() valueobjects.Term {
	return e.name
}

// CreatedBy returns the user who first mentioned the entity. Later
// mentions never change this.
func (e *Entity) CreatedBy() string {
	return e.createdBy
}

// CreatedAt returns when the entity was first mentioned
func (e *Entity) CreatedAt() time.Time {
	return e.createdAt
}

// LastMentionedAt returns when the entity was most recently mentioned
func (e *Entity) LastMentionedAt() time.Time {
	return e.lastMentionedAt
}

// MentionCount returns how many times the entity has been mentioned
func (e *Entity) MentionCount() int {
	return e.mentionCount
}

// Mention records another mention of the entity
func (e *Entity) Mention(at time.Time) {
	e.mentionCount++
	e.lastMentionedAt = at.UTC()
}

// GetUncommittedEvents returns all uncommitted domain events
func (e *Entity) GetUncommittedEvents() []events.DomainEvent {
	return e.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (e *Entity) MarkEventsAsCommitted() {
	e.events = []events.DomainEvent{}
}

func (e *Entity) addEvent(event events.DomainEvent) {
	e.events = append(e.events, event)
}
