package ports

import (
	"context"
	"time"

	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
	"engram/domain/events"
)

// FactFilter defines the server-side filter for fact queries.
// A zero filter matches every fact in the owner partitions given.
type FactFilter struct {
	// OwnerKeys are the storage partitions to read: the requesting
	// user's id and, when shared memory is included, the system owner.
	OwnerKeys []string

	// Predicate restricts results to one relation when non-zero.
	Predicate valueobjects.Predicate

	// Subject restricts results to one subject when non-zero.
	Subject valueobjects.Term

	// TimeRange restricts results by fact timestamp when non-zero.
	TimeRange valueobjects.TimeRange

	// ActiveOnly drops superseded facts when true.
	ActiveOnly bool

	// Limit caps the number of returned facts; 0 means no cap.
	Limit int
}

// FactRepository is the write-side port for fact edges.
// Implementations must provide merge-on-identity semantics: upserting
// the same (owner, subject, predicate, object) twice yields one edge.
type FactRepository interface {
	// UpsertFact writes the fact edge, merging into the existing edge
	// when the identity triple already exists. The returned fact is
	// the stored state after the merge.
	UpsertFact(ctx context.Context, fact *entities.Fact) (*entities.Fact, error)

	// MarkSuperseded atomically deactivates a fact in favor of its
	// replacement. It is conditional on the fact still being active;
	// a concurrent supersession surfaces as ErrFactAlreadySuperseded.
	MarkSuperseded(ctx context.Context, ownerKey string, factID valueobjects.FactID, by valueobjects.FactID, at time.Time) error

	// MarkSupersedes records on the winner which fact it replaced,
	// completing the backward link of the supersession chain.
	MarkSupersedes(ctx context.Context, ownerKey string, factID valueobjects.FactID, supersedes valueobjects.FactID) error

	// Reactivate restores a superseded fact as the current belief,
	// clearing its supersession marker. Reactivating an already
	// active fact is a no-op.
	Reactivate(ctx context.Context, ownerKey string, factID valueobjects.FactID) error

	// QueryActiveBySubjectPredicate returns the currently active facts
	// of one belief slot, the contradiction check's working set.
	QueryActiveBySubjectPredicate(ctx context.Context, ownerKey string, subject valueobjects.Term, predicate valueobjects.Predicate) ([]*entities.Fact, error)

	// GetFact retrieves a single fact by id within an owner partition.
	GetFact(ctx context.Context, ownerKey string, factID valueobjects.FactID) (*entities.Fact, error)

	// GetHistory walks the supersession chain starting from a fact,
	// newest first.
	GetHistory(ctx context.Context, ownerKey string, factID valueobjects.FactID) ([]*entities.Fact, error)

	FactReader
}

// FactReader is the read-only port the query side depends on. Two
// implementations exist: the legacy owner-partition reader and the
// index-backed reader; the shadow layer compares them during rollout.
type FactReader interface {
	// QueryFacts returns facts matching the filter, newest first.
	QueryFacts(ctx context.Context, filter FactFilter) ([]*entities.Fact, error)
}

// EntityRepository is the port for entity nodes and knows-about links.
type EntityRepository interface {
	// UpsertEntity merges an entity mention into the store. CreatedBy
	// and CreatedAt are written only on first creation; later mentions
	// bump the mention count and refresh lastMentionedAt.
	UpsertEntity(ctx context.Context, ownerKey string, name valueobjects.Term, mentionedBy string, at time.Time) (*entities.Entity, error)

	// GetEntity retrieves an entity by its normalized name.
	GetEntity(ctx context.Context, ownerKey string, name valueobjects.Term) (*entities.Entity, error)

	// LinkKnowsAbout records that a user knows about an entity,
	// independent of any predicate. Idempotent per (user, entity).
	LinkKnowsAbout(ctx context.Context, userID string, name valueobjects.Term, at time.Time) error

	// KnownEntities lists the entities a user knows about, most
	// recently seen first.
	KnownEntities(ctx context.Context, userID string, limit int) ([]KnownEntity, error)
}

// KnownEntity is a knows-about link with its recall signals.
type KnownEntity struct {
	Name         string
	MentionCount int
	LastSeenAt   time.Time
}

// UserRepository is the port for user activity records.
type UserRepository interface {
	// TouchActivity upserts the user record and refreshes
	// lastActiveAt.
	TouchActivity(ctx context.Context, userID string, at time.Time) error

	// Get retrieves a user record.
	Get(ctx context.Context, userID string) (*entities.User, error)
}

// WorkingMemory is the port for the per-user attention model. It is
// process-local and deliberately unpersisted.
type WorkingMemory interface {
	// Update boosts attention for the given topics and entities.
	Update(userID string, topics, entityNames []string, at time.Time)

	// ActiveContext returns the user's decayed attention state at now.
	ActiveContext(userID string, now time.Time) WorkingMemoryContext
}

// AttentionEntry is one topic or entity with its decayed score.
type AttentionEntry struct {
	Name            string    `json:"name"`
	Score           float64   `json:"score"`
	LastMentionedAt time.Time `json:"last_mentioned_at"`
}

// WorkingMemoryContext is the attention snapshot returned to callers.
type WorkingMemoryContext struct {
	Topics       []AttentionEntry `json:"topics"`
	PrimaryFocus string           `json:"primary_focus,omitempty"`
	Entities     []AttentionEntry `json:"entities"`
}

// Discrepancy describes one disagreement between the legacy and
// candidate read paths observed by the shadow layer.
type Discrepancy struct {
	Operation     string        `json:"operation"`
	Detail        string        `json:"detail"`
	LegacyCount   int           `json:"legacy_count"`
	CandidateCount int          `json:"candidate_count"`
	CandidateErr  string        `json:"candidate_err,omitempty"`
	TimedOut      bool          `json:"timed_out"`
	Elapsed       time.Duration `json:"elapsed"`
	ObservedAt    time.Time     `json:"observed_at"`
}

// DiscrepancyRecorder is the telemetry sink for shadow validation.
// Recording must never fail the read that produced the discrepancy.
type DiscrepancyRecorder interface {
	Record(ctx context.Context, d Discrepancy)
}

// EventStore defines the interface for event persistence
type EventStore interface {
	// SaveEvents persists domain events with pending outbox status
	SaveEvents(ctx context.Context, events []events.DomainEvent) error

	// GetEvents retrieves events for an aggregate
	GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error)

	// GetEventsByType retrieves events of a specific type
	GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
