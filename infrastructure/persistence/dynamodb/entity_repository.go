package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
	pkgerrors "engram/pkg/errors"
)

// EntityRepository implements the entity ports on DynamoDB. Entities
// are keyed by their normalized name within an owner partition, so a
// mention of "Boston" and "boston" lands on the same node.
type EntityRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewEntityRepository creates a new EntityRepository
func NewEntityRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *EntityRepository {
	return &EntityRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// entityItem represents the DynamoDB item structure for an entity node
type entityItem struct {
	PK              string `dynamodbav:"PK"`
	SK              string `dynamodbav:"SK"`
	EntityType      string `dynamodbav:"EntityType"`
	EntityID        string `dynamodbav:"EntityID"`
	OwnerID         string `dynamodbav:"OwnerID"`
	Name            string `dynamodbav:"Name"`
	NameKey         string `dynamodbav:"NameKey"`
	CreatedBy       string `dynamodbav:"CreatedBy"`
	CreatedAt       string `dynamodbav:"CreatedAt"`
	LastMentionedAt string `dynamodbav:"LastMentionedAt"`
	MentionCount    int    `dynamodbav:"MentionCount"`
}

// knowsItem represents a knows-about link from a user to an entity
type knowsItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	EntityType   string `dynamodbav:"EntityType"`
	UserID       string `dynamodbav:"UserID"`
	Name         string `dynamodbav:"Name"`
	NameKey      string `dynamodbav:"NameKey"`
	FirstSeenAt  string `dynamodbav:"FirstSeenAt"`
	LastSeenAt   string `dynamodbav:"LastSeenAt"`
	MentionCount int    `dynamodbav:"MentionCount"`
}

func entitySK(nameKey string) string {
	return fmt.Sprintf("ENTITY#%s", nameKey)
}

func knowsPK(userID string) string {
	return fmt.Sprintf("USER#%s", userID)
}

func knowsSK(nameKey string) string {
	return fmt.Sprintf("KNOWS#%s", nameKey)
}

// UpsertEntity merges an entity mention into the store. Creation
// fields are written once via if_not_exists; every call bumps the
// mention count and refreshes lastMentionedAt in one atomic update.
func (r *EntityRepository) UpsertEntity(ctx context.Context, ownerKey string, name valueobjects.Term, mentionedBy string, at time.Time) (*entities.Entity, error) {
	at = at.UTC()

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: factPK(ownerKey)},
			"SK": &types.AttributeValueMemberS{Value: entitySK(name.Key())},
		},
		UpdateExpression: aws.String(
			"SET EntityID = if_not_exists(EntityID, :entityID), " +
				"EntityType = :entityType, " +
				"OwnerID = :ownerID, " +
				"#name = :name, NameKey = :nameKey, " +
				"CreatedBy = if_not_exists(CreatedBy, :createdBy), " +
				"CreatedAt = if_not_exists(CreatedAt, :at), " +
				"LastMentionedAt = :at " +
				"ADD MentionCount :one"),
		ExpressionAttributeNames: map[string]string{
			"#name": "Name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entityID":   &types.AttributeValueMemberS{Value: valueobjects.NewEntityID().String()},
			":entityType": &types.AttributeValueMemberS{Value: "ENTITY"},
			":ownerID":    &types.AttributeValueMemberS{Value: ownerKey},
			":name":       &types.AttributeValueMemberS{Value: name.String()},
			":nameKey":    &types.AttributeValueMemberS{Value: name.Key()},
			":createdBy":  &types.AttributeValueMemberS{Value: mentionedBy},
			":at":         &types.AttributeValueMemberS{Value: at.Format(time.RFC3339Nano)},
			":one":        &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueAllNew,
	}

	result, err := r.client.UpdateItem(ctx, input)
	if err != nil {
		r.logger.Error("Failed to upsert entity",
			zap.Error(err),
			zap.String("ownerKey", ownerKey),
			zap.String("name", name.String()),
		)
		return nil, pkgerrors.NewDatabaseError("upsert entity", err)
	}

	var item entityItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}

	return r.itemToEntity(item)
}

// GetEntity retrieves an entity by its normalized name
func (r *EntityRepository) GetEntity(ctx context.Context, ownerKey string, name valueobjects.Term) (*entities.Entity, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: factPK(ownerKey)},
			"SK": &types.AttributeValueMemberS{Value: entitySK(name.Key())},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get entity", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.ErrEntityNotFound
	}

	var item entityItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}

	return r.itemToEntity(item)
}

// LinkKnowsAbout records that a user knows about an entity. The link
// is an upsert keyed by the normalized name, so repeated mentions
// accumulate instead of duplicating.
func (r *EntityRepository) LinkKnowsAbout(ctx context.Context, userID string, name valueobjects.Term, at time.Time) error {
	at = at.UTC()

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: knowsPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: knowsSK(name.Key())},
		},
		UpdateExpression: aws.String(
			"SET EntityType = :entityType, " +
				"UserID = :userID, " +
				"#name = :name, NameKey = :nameKey, " +
				"FirstSeenAt = if_not_exists(FirstSeenAt, :at), " +
				"LastSeenAt = :at " +
				"ADD MentionCount :one"),
		ExpressionAttributeNames: map[string]string{
			"#name": "Name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entityType": &types.AttributeValueMemberS{Value: "KNOWS"},
			":userID":     &types.AttributeValueMemberS{Value: userID},
			":name":       &types.AttributeValueMemberS{Value: name.String()},
			":nameKey":    &types.AttributeValueMemberS{Value: name.Key()},
			":at":         &types.AttributeValueMemberS{Value: at.Format(time.RFC3339Nano)},
			":one":        &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		r.logger.Error("Failed to link knowledge",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("name", name.String()),
		)
		return pkgerrors.NewDatabaseError("link knows-about", err)
	}

	return nil
}

// KnownEntities lists the entities a user knows about, most recently
// seen first. The partition is ordered by name key, so recency is
// sorted client-side; per-user link counts stay small enough for that.
func (r *EntityRepository) KnownEntities(ctx context.Context, userID string, limit int) ([]ports.KnownEntity, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: knowsPK(userID)},
			":sk": &types.AttributeValueMemberS{Value: "KNOWS#"},
		},
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query known entities", err)
	}

	known := make([]ports.KnownEntity, 0, len(result.Items))
	for _, raw := range result.Items {
		var item knowsItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal knows-about item", zap.Error(err))
			continue
		}
		lastSeen, err := time.Parse(time.RFC3339Nano, item.LastSeenAt)
		if err != nil {
			lastSeen = time.Time{}
		}
		known = append(known, ports.KnownEntity{
			Name:         item.Name,
			MentionCount: item.MentionCount,
			LastSeenAt:   lastSeen,
		})
	}

	sort.Slice(known, func(i, j int) bool {
		return known[i].LastSeenAt.After(known[j].LastSeenAt)
	})
	if limit > 0 && len(known) > limit {
		known = known[:limit]
	}

	return known, nil
}

func (r *EntityRepository) itemToEntity(item entityItem) (*entities.Entity, error) {
	id, err := valueobjects.NewEntityIDFromString(item.EntityID)
	if err != nil {
		return nil, fmt.Errorf("invalid entity id %q: %w", item.EntityID, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid entity CreatedAt %q: %w", item.CreatedAt, err)
	}
	lastMentionedAt := createdAt
	if item.LastMentionedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, item.LastMentionedAt); err == nil {
			lastMentionedAt = t
		}
	}

	return entities.ReconstructEntity(
		id,
		item.OwnerID,
		valueobjects.ReconstructTerm(item.Name),
		item.CreatedBy,
		createdAt,
		lastMentionedAt,
		item.MentionCount,
	)
}
