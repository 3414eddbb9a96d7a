package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"engram/domain/core/valueobjects"
	"engram/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoDBEventStore implements the EventStore interface using DynamoDB
type DynamoDBEventStore struct {
	client    *dynamodb.Client
	tableName string
}

// PublishStatus represents the publishing status of an event
type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "pending"   // Event is saved but not yet published
	PublishStatusPublished PublishStatus = "published" // Event successfully published
	PublishStatusFailed    PublishStatus = "failed"    // Event publishing failed
)

// EventRecord represents how events are stored in DynamoDB with Outbox pattern
type EventRecord struct {
	PK            string                 `dynamodbav:"PK"` // EVENTS#<aggregate_id>
	SK            string                 `dynamodbav:"SK"` // EVENT#<timestamp>#<event_id>
	EventID       string                 `dynamodbav:"EventID"`
	EventType     string                 `dynamodbav:"EventType"`
	AggregateID   string                 `dynamodbav:"AggregateID"`
	AggregateType string                 `dynamodbav:"AggregateType"`
	EventData     map[string]interface{} `dynamodbav:"EventData"`
	Timestamp     string                 `dynamodbav:"Timestamp"`
	Version       int                    `dynamodbav:"Version"`
	OwnerUserID   string                 `dynamodbav:"OwnerUserID"`

	// Outbox pattern fields
	PublishStatus   string `dynamodbav:"PublishStatus"`            // pending/published/failed
	PublishAttempts int    `dynamodbav:"PublishAttempts"`          // Number of publish attempts
	LastPublishTry  string `dynamodbav:"LastPublishTry,omitempty"` // RFC3339 timestamp
	PublishedAt     string `dynamodbav:"PublishedAt,omitempty"`    // RFC3339 timestamp when published
	ErrorMessage    string `dynamodbav:"ErrorMessage,omitempty"`   // Last error message if failed

	// GSI attributes for querying
	GSI1PK string `dynamodbav:"GSI1PK"` // OWNER#<owner_user_id>
	GSI1SK string `dynamodbav:"GSI1SK"` // EVENT#<timestamp>
	GSI2PK string `dynamodbav:"GSI2PK"` // EVENTTYPE#<type>
	GSI2SK string `dynamodbav:"GSI2SK"` // EVENT#<timestamp>

	// TTL for automatic cleanup
	TTL int64 `dynamodbav:"TTL,omitempty"`
}

// NewDynamoDBEventStore creates a new DynamoDB event store
func NewDynamoDBEventStore(client *dynamodb.Client, tableName string) *DynamoDBEventStore {
	return &DynamoDBEventStore{
		client:    client,
		tableName: tableName,
	}
}

// SaveEvents persists domain events to the event store
func (es *DynamoDBEventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(domainEvents))

	for _, event := range domainEvents {
		record, err := es.eventToRecord(event)
		if err != nil {
			return fmt.Errorf("failed to convert event to record: %w", err)
		}

		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}

		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{
				Item: item,
			},
		})
	}

	// Batch write events (DynamoDB limit is 25 items per batch)
	for i := 0; i < len(writeRequests); i += 25 {
		end := i + 25
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		batch := writeRequests[i:end]
		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				es.tableName: batch,
			},
		}

		result, err := es.client.BatchWriteItem(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to write events batch: %w", err)
		}

		if len(result.UnprocessedItems) > 0 {
			return fmt.Errorf("failed to write %d events", len(result.UnprocessedItems[es.tableName]))
		}
	}

	return nil
}

// GetEvents retrieves all events for an aggregate
func (es *DynamoDBEventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENTS#%s", aggregateID)},
		},
		ScanIndexForward: aws.Bool(true), // Order by timestamp ascending
	}

	var allEvents []events.DomainEvent

	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query events: %w", err)
		}

		for _, item := range result.Items {
			var record EventRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
			}

			event, err := es.recordToEvent(record)
			if err != nil {
				return nil, fmt.Errorf("failed to convert record to event: %w", err)
			}

			allEvents = append(allEvents, event)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return allEvents, nil
}

// GetEventsByType retrieves events of a specific type, most recent first
func (es *DynamoDBEventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String("GSI2"),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENTTYPE#%s", eventType)},
		},
		ScanIndexForward: aws.Bool(false),
	}

	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := es.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by type: %w", err)
	}

	domainEvents := make([]events.DomainEvent, 0, len(result.Items))
	for _, item := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
		}

		event, err := es.recordToEvent(record)
		if err != nil {
			return nil, fmt.Errorf("failed to convert record to event: %w", err)
		}

		domainEvents = append(domainEvents, event)
	}

	return domainEvents, nil
}

// GetEventsByOwner retrieves events for a specific owner since a given time
func (es *DynamoDBEventStore) GetEventsByOwner(ctx context.Context, ownerUserID string, since time.Time, limit int) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK > :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("OWNER#%s", ownerUserID)},
			":sk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENT#%s", since.Format(time.RFC3339Nano))},
		},
		ScanIndexForward: aws.Bool(true),
	}

	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := es.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by owner: %w", err)
	}

	domainEvents := make([]events.DomainEvent, 0, len(result.Items))
	for _, item := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
		}

		event, err := es.recordToEvent(record)
		if err != nil {
			return nil, fmt.Errorf("failed to convert record to event: %w", err)
		}

		domainEvents = append(domainEvents, event)
	}

	return domainEvents, nil
}

// eventToRecord converts a domain event to a DynamoDB record
func (es *DynamoDBEventStore) eventToRecord(event events.DomainEvent) (*EventRecord, error) {
	// Store the event payload as a flexible map so new fields never
	// require a table migration
	eventData := make(map[string]interface{})

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := json.Unmarshal(eventBytes, &eventData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event to map: %w", err)
	}

	timestamp := event.GetTimestamp()
	eventID := uuid.New().String()

	// Events older than a year are reclaimed by TTL
	ttl := timestamp.Add(365 * 24 * time.Hour).Unix()

	ownerUserID := ""
	if owner, ok := eventData["owner_user_id"].(string); ok {
		ownerUserID = owner
	} else if user, ok := eventData["user_id"].(string); ok {
		ownerUserID = user
	}

	aggregateType := "unknown"
	switch {
	case strings.HasPrefix(event.GetEventType(), "fact."):
		aggregateType = "fact"
	case strings.HasPrefix(event.GetEventType(), "entity."):
		aggregateType = "entity"
	case strings.HasPrefix(event.GetEventType(), "knowledge."):
		aggregateType = "user"
	case strings.HasPrefix(event.GetEventType(), "shadow."):
		aggregateType = "shadow"
	}

	return &EventRecord{
		PK:            fmt.Sprintf("EVENTS#%s", event.GetAggregateID()),
		SK:            fmt.Sprintf("EVENT#%s#%s", timestamp.Format(time.RFC3339Nano), eventID),
		EventID:       eventID,
		EventType:     event.GetEventType(),
		AggregateID:   event.GetAggregateID(),
		AggregateType: aggregateType,
		EventData:     eventData,
		Timestamp:     timestamp.Format(time.RFC3339Nano),
		Version:       event.GetVersion(),
		OwnerUserID:   ownerUserID,

		// Events start in the outbox as pending
		PublishStatus:   string(PublishStatusPending),
		PublishAttempts: 0,

		GSI1PK: fmt.Sprintf("OWNER#%s", ownerUserID),
		GSI1SK: fmt.Sprintf("EVENT#%s", timestamp.Format(time.RFC3339Nano)),
		GSI2PK: fmt.Sprintf("EVENTTYPE#%s", event.GetEventType()),
		GSI2SK: fmt.Sprintf("EVENT#%s", timestamp.Format(time.RFC3339Nano)),
		TTL:    ttl,
	}, nil
}

// recordToEvent converts a DynamoDB record back to a domain event
func (es *DynamoDBEventStore) recordToEvent(record EventRecord) (events.DomainEvent, error) {
	timestamp, err := time.Parse(time.RFC3339Nano, record.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	baseEvent := events.BaseEvent{
		AggregateID: record.AggregateID,
		EventType:   record.EventType,
		Timestamp:   timestamp,
		Version:     record.Version,
	}

	data := record.EventData

	switch record.EventType {
	case "fact.written":
		factID, _ := factIDField(data, "fact_id")
		return events.FactWritten{
			BaseEvent:   baseEvent,
			FactID:      factID,
			OwnerUserID: stringField(data, "owner_user_id"),
			AuthorID:    stringField(data, "author_id"),
			Subject:     stringField(data, "subject"),
			Predicate:   stringField(data, "predicate"),
			Object:      stringField(data, "object"),
			Scope:       stringField(data, "scope"),
			Confidence:  floatField(data, "confidence"),
		}, nil

	case "fact.reasserted":
		factID, _ := factIDField(data, "fact_id")
		return events.FactReasserted{
			BaseEvent:    baseEvent,
			FactID:       factID,
			OwnerUserID:  stringField(data, "owner_user_id"),
			MentionCount: intField(data, "mention_count"),
			Confidence:   floatField(data, "confidence"),
		}, nil

	case "fact.superseded":
		factID, _ := factIDField(data, "fact_id")
		supersededBy, _ := factIDField(data, "superseded_by")
		return events.FactSuperseded{
			BaseEvent:    baseEvent,
			FactID:       factID,
			SupersededBy: supersededBy,
			OwnerUserID:  stringField(data, "owner_user_id"),
			Subject:      stringField(data, "subject"),
			Predicate:    stringField(data, "predicate"),
		}, nil

	case "entity.created":
		entityID, _ := valueobjects.NewEntityIDFromString(stringField(data, "entity_id"))
		return events.EntityCreated{
			BaseEvent:   baseEvent,
			EntityID:    entityID,
			OwnerUserID: stringField(data, "owner_user_id"),
			Name:        stringField(data, "name"),
			CreatedBy:   stringField(data, "created_by"),
		}, nil

	case "knowledge.linked":
		return events.KnowledgeLinked{
			BaseEvent:  baseEvent,
			UserID:     stringField(data, "user_id"),
			EntityName: stringField(data, "entity_name"),
		}, nil

	case "shadow.discrepancy":
		return events.DiscrepancyDetected{
			BaseEvent:       baseEvent,
			Operation:       stringField(data, "operation"),
			OwnerUserID:     stringField(data, "owner_user_id"),
			LegacyCount:     intField(data, "legacy_count"),
			CandidateCount:  intField(data, "candidate_count"),
			MissingIDs:      stringSliceField(data, "missing_ids"),
			ExtraIDs:        stringSliceField(data, "extra_ids"),
			LegacyMillis:    int64Field(data, "legacy_millis"),
			CandidateMillis: int64Field(data, "candidate_millis"),
		}, nil

	default:
		// Unknown types still replay as their base event
		return baseEvent, nil
	}
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

func floatField(data map[string]interface{}, key string) float64 {
	f, _ := data[key].(float64)
	return f
}

func intField(data map[string]interface{}, key string) int {
	return int(floatField(data, key))
}

func int64Field(data map[string]interface{}, key string) int64 {
	return int64(floatField(data, key))
}

func factIDField(data map[string]interface{}, key string) (valueobjects.FactID, error) {
	return valueobjects.NewFactIDFromString(stringField(data, key))
}

func stringSliceField(data map[string]interface{}, key string) []string {
	raw, ok := data[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Outbox Pattern Methods

// GetPendingEvents retrieves events that haven't been published yet
func (es *DynamoDBEventStore) GetPendingEvents(ctx context.Context, limit int32) ([]*EventRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	// A filtered scan is fine at outbox volumes; a sparse GSI on
	// PublishStatus is the upgrade path if it ever is not
	input := &dynamodb.ScanInput{
		TableName:        aws.String(es.tableName),
		FilterExpression: aws.String("PublishStatus = :status AND begins_with(PK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(PublishStatusPending)},
			":prefix": &types.AttributeValueMemberS{Value: "EVENTS#"},
		},
		Limit: aws.Int32(limit),
	}

	result, err := es.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending events: %w", err)
	}

	records := make([]*EventRecord, 0, len(result.Items))
	for _, item := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			continue // Skip malformed records
		}
		records = append(records, &record)
	}

	return records, nil
}

// MarkEventAsPublished marks an event as successfully published
func (es *DynamoDBEventStore) MarkEventAsPublished(ctx context.Context, eventPK, eventSK string) error {
	now := time.Now().Format(time.RFC3339)

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: eventPK},
			"SK": &types.AttributeValueMemberS{Value: eventSK},
		},
		UpdateExpression: aws.String("SET PublishStatus = :published, PublishedAt = :publishedAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":published":   &types.AttributeValueMemberS{Value: string(PublishStatusPublished)},
			":publishedAt": &types.AttributeValueMemberS{Value: now},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	_, err := es.client.UpdateItem(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to mark event as published: %w", err)
	}

	return nil
}

// MarkEventAsFailed marks an event as failed to publish with error details
func (es *DynamoDBEventStore) MarkEventAsFailed(ctx context.Context, eventPK, eventSK string, errorMsg string, attempts int) error {
	now := time.Now().Format(time.RFC3339)

	// Keep the event retryable until it exhausts its attempts
	status := string(PublishStatusFailed)
	if attempts < 3 {
		status = string(PublishStatusPending)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: eventPK},
			"SK": &types.AttributeValueMemberS{Value: eventSK},
		},
		UpdateExpression: aws.String("SET PublishStatus = :status, PublishAttempts = :attempts, LastPublishTry = :lastTry, ErrorMessage = :error"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: status},
			":attempts": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", attempts)},
			":lastTry":  &types.AttributeValueMemberS{Value: now},
			":error":    &types.AttributeValueMemberS{Value: errorMsg},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	_, err := es.client.UpdateItem(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}

	return nil
}
