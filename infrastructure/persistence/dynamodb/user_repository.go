package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"engram/domain/core/entities"
	pkgerrors "engram/pkg/errors"
)

// UserRepository implements the user port on DynamoDB
type UserRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// userItem represents the DynamoDB item structure for a user record
type userItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	EntityType   string `dynamodbav:"EntityType"`
	UserID       string `dynamodbav:"UserID"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
	LastActiveAt string `dynamodbav:"LastActiveAt"`
}

func userPK(userID string) string {
	return fmt.Sprintf("USER#%s", userID)
}

// TouchActivity upserts the user record and refreshes lastActiveAt
func (r *UserRepository) TouchActivity(ctx context.Context, userID string, at time.Time) error {
	at = at.UTC()

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		UpdateExpression: aws.String(
			"SET EntityType = :entityType, " +
				"UserID = :userID, " +
				"CreatedAt = if_not_exists(CreatedAt, :at), " +
				"LastActiveAt = :at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entityType": &types.AttributeValueMemberS{Value: "USER"},
			":userID":     &types.AttributeValueMemberS{Value: userID},
			":at":         &types.AttributeValueMemberS{Value: at.Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		r.logger.Error("Failed to touch user activity",
			zap.Error(err),
			zap.String("userID", userID),
		)
		return pkgerrors.NewDatabaseError("touch user activity", err)
	}

	return nil
}

// Get retrieves a user record
func (r *UserRepository) Get(ctx context.Context, userID string) (*entities.User, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get user", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.ErrUserNotFound
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid user CreatedAt %q: %w", item.CreatedAt, err)
	}
	lastActiveAt := createdAt
	if item.LastActiveAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, item.LastActiveAt); err == nil {
			lastActiveAt = t
		}
	}

	return entities.ReconstructUser(item.UserID, createdAt, lastActiveAt)
}
