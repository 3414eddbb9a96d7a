package dynamodb

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/core/entities"
	"engram/infrastructure/persistence/abstractions"
	pkgerrors "engram/pkg/errors"
)

// LegacyFactReader is the original read path: it pages through the
// whole owner partition and filters client-side. It predates the
// temporal index and stays around as the trusted side of shadow
// validation until the index-backed reader has proven itself.
type LegacyFactReader struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
	upgrader  *FactRecordUpgrader
}

// NewLegacyFactReader creates the legacy reader
func NewLegacyFactReader(client *dynamodb.Client, tableName string, upgrader *FactRecordUpgrader, logger *zap.Logger) *LegacyFactReader {
	return &LegacyFactReader{
		client:    client,
		tableName: tableName,
		logger:    logger,
		upgrader:  upgrader,
	}
}

// QueryFacts returns facts matching the filter, newest first
func (r *LegacyFactReader) QueryFacts(ctx context.Context, filter ports.FactFilter) ([]*entities.Fact, error) {
	criteria := r.toCriteria(filter)

	var facts []*entities.Fact
	for _, ownerKey := range filter.OwnerKeys {
		partition, err := r.readOwnerPartition(ctx, ownerKey, criteria)
		if err != nil {
			return nil, err
		}
		facts = append(facts, partition...)
	}

	sort.Slice(facts, func(i, j int) bool {
		return facts[i].Timestamp().After(facts[j].Timestamp())
	})
	if filter.Limit > 0 && len(facts) > filter.Limit {
		facts = facts[:filter.Limit]
	}

	return facts, nil
}

// toCriteria compiles the filter into client-side criteria. Time range
// bounds use the fixed-width timestamp layout so the lexical comparison
// against stored timestamps matches their chronological order; the
// range itself is half-open.
func (r *LegacyFactReader) toCriteria(filter ports.FactFilter) abstractions.QueryCriteria {
	criteria := abstractions.QueryCriteria{
		Sort:  abstractions.SortDescending,
		Limit: filter.Limit,
	}
	if filter.ActiveOnly {
		criteria.Filters = append(criteria.Filters, abstractions.Filter{
			Field: "active", Operator: abstractions.OpEqual, Value: true,
		})
	}
	if !filter.Subject.IsZero() {
		criteria.Filters = append(criteria.Filters, abstractions.Filter{
			Field: "subject_key", Operator: abstractions.OpEqual, Value: filter.Subject.Key(),
		})
	}
	if !filter.Predicate.IsZero() {
		criteria.Filters = append(criteria.Filters, abstractions.Filter{
			Field: "predicate", Operator: abstractions.OpEqual, Value: filter.Predicate.String(),
		})
	}
	if !filter.TimeRange.IsZero() {
		criteria.Filters = append(criteria.Filters, abstractions.Filter{
			Field: "timestamp", Operator: abstractions.OpGreaterThanOrEqual,
			Value: timestampKey(filter.TimeRange.Start()),
		})
		criteria.Filters = append(criteria.Filters, abstractions.Filter{
			Field: "timestamp", Operator: abstractions.OpLessThan,
			Value: timestampKey(filter.TimeRange.End()),
		})
	}
	return criteria
}

func (r *LegacyFactReader) readOwnerPartition(ctx context.Context, ownerKey string, criteria abstractions.QueryCriteria) ([]*entities.Fact, error) {
	var facts []*entities.Fact
	var lastKey map[string]types.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: factPK(ownerKey)},
				":sk": &types.AttributeValueMemberS{Value: "FACT#"},
			},
			ExclusiveStartKey: lastKey,
		}

		result, err := r.client.Query(ctx, input)
		if err != nil {
			r.logger.Error("Legacy fact read failed",
				zap.Error(err),
				zap.String("ownerKey", ownerKey),
			)
			return nil, pkgerrors.NewDatabaseError("legacy query facts", err)
		}

		for _, raw := range result.Items {
			var item factItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal fact item", zap.Error(err))
				continue
			}
			if r.upgrader != nil {
				item = r.upgrader.Upgrade(ctx, item)
			}
			if !criteria.Matches(factFieldReader(item)) {
				continue
			}
			fact, err := itemToFact(item)
			if err != nil {
				r.logger.Warn("Failed to reconstruct fact",
					zap.String("factID", item.FactID),
					zap.Error(err))
				continue
			}
			facts = append(facts, fact)
		}

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	return facts, nil
}

// factFieldReader exposes the filterable fields of a fact item
func factFieldReader(item factItem) abstractions.FieldReader {
	return func(field string) (interface{}, bool) {
		switch field {
		case "active":
			return item.Active, true
		case "subject_key":
			return item.SubjectKey, true
		case "predicate":
			return item.Predicate, true
		case "timestamp":
			return item.Timestamp, true
		case "scope":
			return item.Scope, true
		default:
			return nil, false
		}
	}
}
