package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DistributedRateLimiter is a fixed-window counter in DynamoDB, shared
// by every Lambda instance serving the API. Each (scope, key, window)
// triple is one item; the count grows through a conditional atomic add
// that fails once the limit is reached.
type DistributedRateLimiter struct {
	client *dynamodb.Client
	table  string
	scope  string
	limit  int
	window time.Duration
}

// NewDistributedUserRateLimiter creates a per-user write limiter
// backed by the given table
func NewDistributedUserRateLimiter(client *dynamodb.Client, table string, perMinute int) *DistributedRateLimiter {
	return &DistributedRateLimiter{
		client: client,
		table:  table,
		scope:  "USER",
		limit:  perMinute,
		window: time.Minute,
	}
}

func (l *DistributedRateLimiter) windowKey(key string, windowStart time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("RATELIMIT#%s#%s", l.scope, key)},
		"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("WINDOW#%d", windowStart.Unix())},
	}
}

// Allow reports whether one more request fits into the current window.
// Without a DynamoDB client there is no shared state to guard, so
// local runs allow everything. Store errors fail open with the error
// returned for logging: a broken limiter must not take the API down.
func (l *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.client == nil {
		return true, nil
	}

	windowStart := time.Now().Truncate(l.window)

	_, err := l.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(l.table),
		Key:                 l.windowKey(key, windowStart),
		UpdateExpression:    aws.String("ADD RequestCount :one SET #ttl = if_not_exists(#ttl, :expiry)"),
		ConditionExpression: aws.String("attribute_not_exists(RequestCount) OR RequestCount < :limit"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "TTL",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":    &types.AttributeValueMemberN{Value: "1"},
			":limit":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", l.limit)},
			":expiry": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", windowStart.Add(2*l.window).Unix())},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return false, nil
		}
		return true, fmt.Errorf("rate limit window update: %w", err)
	}

	return true, nil
}

// Reset clears the current window for a key
func (l *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	if l.client == nil {
		return nil
	}

	windowStart := time.Now().Truncate(l.window)
	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.table),
		Key:       l.windowKey(key, windowStart),
	})
	return err
}
