package events

import (
	"time"

	"engram/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// FactSnapshot carries the denormalized fields events need from a fact
type FactSnapshot struct {
	FactID      valueobjects.FactID
	OwnerUserID string
	AuthorID    string
	Subject     string
	Predicate   string
	Object      string
	Scope       string
	Confidence  float64
}

// Fact Events

// FactWritten is raised when a fact edge is written to the graph
type FactWritten struct {
	BaseEvent
	FactID      valueobjects.FactID `json:"fact_id"`
	OwnerUserID string              `json:"owner_user_id"`
	AuthorID    string              `json:"author_id"`
	Subject     string              `json:"subject"`
	Predicate   string              `json:"predicate"`
	Object      string              `json:"object"`
	Scope       string              `json:"scope"`
	Confidence  float64             `json:"confidence"`
}

// NewFactWritten creates a FactWritten event
func NewFactWritten(fact FactSnapshot, timestamp time.Time) FactWritten {
	return FactWritten{
		BaseEvent: BaseEvent{
			AggregateID: fact.FactID.String(),
			EventType:   "fact.written",
			Timestamp:   timestamp,
			Version:     1,
		},
		FactID:      fact.FactID,
		OwnerUserID: fact.OwnerUserID,
		AuthorID:    fact.AuthorID,
		Subject:     fact.Subject,
		Predicate:   fact.Predicate,
		Object:      fact.Object,
		Scope:       fact.Scope,
		Confidence:  fact.Confidence,
	}
}

// FactReasserted is raised when an identical fact is submitted again
// and merges into the existing edge
type FactReasserted struct {
	BaseEvent
	FactID       valueobjects.FactID `json:"fact_id"`
	OwnerUserID  string              `json:"owner_user_id"`
	MentionCount int                 `json:"mention_count"`
	Confidence   float64             `json:"confidence"`
}

// NewFactReasserted creates a FactReasserted event
func NewFactReasserted(factID valueobjects.FactID, ownerUserID string, mentionCount int, confidence float64, timestamp time.Time) FactReasserted {
	return FactReasserted{
		BaseEvent: BaseEvent{
			AggregateID: factID.String(),
			EventType:   "fact.reasserted",
			Timestamp:   timestamp,
			Version:     1,
		},
		FactID:       factID,
		OwnerUserID:  ownerUserID,
		MentionCount: mentionCount,
		Confidence:   confidence,
	}
}

// FactSuperseded is raised when a contradiction resolves against a fact
type FactSuperseded struct {
	BaseEvent
	FactID       valueobjects.FactID `json:"fact_id"`
	SupersededBy valueobjects.FactID `json:"superseded_by"`
	OwnerUserID  string              `json:"owner_user_id"`
	Subject      string              `json:"subject"`
	Predicate    string              `json:"predicate"`
}

// NewFactSuperseded creates a FactSuperseded event
func NewFactSuperseded(factID, supersededBy valueobjects.FactID, ownerUserID, subject, predicate string, timestamp time.Time) FactSuperseded {
	return FactSuperseded{
		BaseEvent: BaseEvent{
			AggregateID: factID.String(),
			EventType:   "fact.superseded",
			Timestamp:   timestamp,
			Version:     1,
		},
		FactID:       factID,
		SupersededBy: supersededBy,
		OwnerUserID:  ownerUserID,
		Subject:      subject,
		Predicate:    predicate,
	}
}

// Entity Events

// EntityCreated is raised the first time an entity name is seen for an owner
type EntityCreated struct {
	BaseEvent
	EntityID    valueobjects.EntityID `json:"entity_id"`
	OwnerUserID string                `json:"owner_user_id"`
	Name        string                `json:"name"`
	CreatedBy   string                `json:"created_by"`
}

// NewEntityCreated creates an EntityCreated event
func NewEntityCreated(entityID valueobjects.EntityID, ownerUserID, name, createdBy string, timestamp time.Time) EntityCreated {
	return EntityCreated{
		BaseEvent: BaseEvent{
			AggregateID: entityID.String(),
			EventType:   "entity.created",
			Timestamp:   timestamp,
			Version:     1,
		},
		EntityID:    entityID,
		OwnerUserID: ownerUserID,
		Name:        name,
		CreatedBy:   createdBy,
	}
}

// KnowledgeLinked is raised when a user is linked to an entity they
// now know about
type KnowledgeLinked struct {
	BaseEvent
	UserID     string `json:"user_id"`
	EntityName string `json:"entity_name"`
}

// NewKnowledgeLinked creates a KnowledgeLinked event
func NewKnowledgeLinked(userID, entityName string, timestamp time.Time) KnowledgeLinked {
	return KnowledgeLinked{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "knowledge.linked",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:     userID,
		EntityName: entityName,
	}
}

// Shadow Events

// DiscrepancyDetected is raised when the shadow read path disagrees
// with the legacy path
type DiscrepancyDetected struct {
	BaseEvent
	Operation       string   `json:"operation"`
	OwnerUserID     string   `json:"owner_user_id"`
	LegacyCount     int      `json:"legacy_count"`
	CandidateCount  int      `json:"candidate_count"`
	MissingIDs      []string `json:"missing_ids,omitempty"`
	ExtraIDs        []string `json:"extra_ids,omitempty"`
	LegacyMillis    int64    `json:"legacy_millis"`
	CandidateMillis int64    `json:"candidate_millis"`
}

// NewDiscrepancyDetected creates a DiscrepancyDetected event
func NewDiscrepancyDetected(operation, ownerUserID string, legacyCount, candidateCount int, missingIDs, extraIDs []string, legacyMillis, candidateMillis int64, timestamp time.Time) DiscrepancyDetected {
	return DiscrepancyDetected{
		BaseEvent: BaseEvent{
			AggregateID: ownerUserID,
			EventType:   "shadow.discrepancy",
			Timestamp:   timestamp,
			Version:     1,
		},
		Operation:       operation,
		OwnerUserID:     ownerUserID,
		LegacyCount:     legacyCount,
		CandidateCount:  candidateCount,
		MissingIDs:      missingIDs,
		ExtraIDs:        extraIDs,
		LegacyMillis:    legacyMillis,
		CandidateMillis: candidateMillis,
	}
}
