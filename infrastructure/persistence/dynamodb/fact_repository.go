package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
	pkgerrors "engram/pkg/errors"
)

// FactRepository implements the fact ports on DynamoDB. Facts live in
// a single table keyed by their identity triple, so writing the same
// (owner, subject, predicate, object) twice merges into one edge at
// the storage level without any read-modify-write cycle.
type FactRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewFactRepository creates a new FactRepository
func NewFactRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *FactRepository {
	return &FactRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// factItem represents the DynamoDB item structure for a fact edge.
//
// Key layout:
//
//	PK     OWNER#<ownerKey>
//	SK     FACT#<subjectKey>#<predicate>#<objectKey>
//	GSI1   FACT#<ownerKey>#<subjectKey>#<predicate> / ACTIVE#<0|1>#TS#<rfc3339nano>
//	GSI2   OWNER#<ownerKey> / TS#<rfc3339nano>
//	GSI3   FACTID#<id> / METADATA
//
// GSI1 serves the contradiction check (active facts of one belief
// slot), GSI2 serves temporal queries, GSI3 the lookup by fact id.
type factItem struct {
	PK             string  `dynamodbav:"PK"`
	SK             string  `dynamodbav:"SK"`
	GSI1PK         string  `dynamodbav:"GSI1PK"`
	GSI1SK         string  `dynamodbav:"GSI1SK"`
	GSI2PK         string  `dynamodbav:"GSI2PK"`
	GSI2SK         string  `dynamodbav:"GSI2SK"`
	GSI3PK         string  `dynamodbav:"GSI3PK"`
	GSI3SK         string  `dynamodbav:"GSI3SK"`
	EntityType     string  `dynamodbav:"EntityType"`
	FactID         string  `dynamodbav:"FactID"`
	OwnerID        string  `dynamodbav:"OwnerID"`
	AuthorID       string  `dynamodbav:"AuthorID"`
	Subject        string  `dynamodbav:"Subject"`
	SubjectKey     string  `dynamodbav:"SubjectKey"`
	Predicate      string  `dynamodbav:"Predicate"`
	Object         string  `dynamodbav:"Object"`
	ObjectKey      string  `dynamodbav:"ObjectKey"`
	Scope          string  `dynamodbav:"Scope"`
	Confidence     float64 `dynamodbav:"Confidence"`
	Context        string  `dynamodbav:"Context,omitempty"`
	Timestamp      string  `dynamodbav:"Timestamp"`
	LastAssertedAt string  `dynamodbav:"LastAssertedAt"`
	MentionCount   int     `dynamodbav:"MentionCount"`
	Active         bool    `dynamodbav:"Active"`
	SupersededBy   string  `dynamodbav:"SupersededBy,omitempty"`
	Supersedes     string  `dynamodbav:"Supersedes,omitempty"`
	SupersededAt   string  `dynamodbav:"SupersededAt,omitempty"`
	Version        int     `dynamodbav:"Version"`
	SchemaVersion  int     `dynamodbav:"SchemaVersion"`
}

// CurrentFactSchemaVersion is the record layout written by this build
const CurrentFactSchemaVersion = 2

// timestampKeyLayout is the fixed-width RFC 3339 layout for timestamps
// embedded in sort keys and stored timestamp attributes. RFC3339Nano
// drops trailing fractional zeros, which breaks the byte order of the
// keys at whole-second timestamps.
const timestampKeyLayout = "2006-01-02T15:04:05.000000000Z"

func timestampKey(ts time.Time) string {
	return ts.UTC().Format(timestampKeyLayout)
}

func factPK(ownerKey string) string {
	return fmt.Sprintf("OWNER#%s", ownerKey)
}

func factSK(subjectKey, predicate, objectKey string) string {
	return fmt.Sprintf("FACT#%s#%s#%s", subjectKey, predicate, objectKey)
}

func slotGSI1PK(ownerKey, subjectKey, predicate string) string {
	return fmt.Sprintf("FACT#%s#%s#%s", ownerKey, subjectKey, predicate)
}

func activeGSI1SK(active bool, ts time.Time) string {
	flag := "0"
	if active {
		flag = "1"
	}
	return fmt.Sprintf("ACTIVE#%s#TS#%s", flag, timestampKey(ts))
}

func temporalGSI2SK(ts time.Time) string {
	return fmt.Sprintf("TS#%s", timestampKey(ts))
}

// UpsertFact writes the fact edge, merging into the existing edge when
// the identity triple already exists. The merge is a single atomic
// UpdateItem: immutable fields keep their first value via
// if_not_exists, the mention count grows, and confidence is raised in
// a follow-up conditional write so it only ever increases.
func (r *FactRepository) UpsertFact(ctx context.Context, fact *entities.Fact) (*entities.Fact, error) {
	pk := factPK(fact.OwnerID())
	sk := factSK(fact.Subject().Key(), fact.Predicate().String(), fact.Object().Key())
	now := fact.LastAssertedAt().UTC()

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression: aws.String(
			"SET FactID = if_not_exists(FactID, :factID), " +
				"#ts = if_not_exists(#ts, :ts), " +
				"AuthorID = if_not_exists(AuthorID, :authorID), " +
				"Confidence = if_not_exists(Confidence, :confidence), " +
				"Active = if_not_exists(Active, :active), " +
				"GSI1PK = if_not_exists(GSI1PK, :gsi1pk), " +
				"GSI1SK = if_not_exists(GSI1SK, :gsi1sk), " +
				"GSI2PK = if_not_exists(GSI2PK, :gsi2pk), " +
				"GSI2SK = if_not_exists(GSI2SK, :gsi2sk), " +
				"GSI3PK = if_not_exists(GSI3PK, :gsi3pk), " +
				"GSI3SK = if_not_exists(GSI3SK, :gsi3sk), " +
				"EntityType = :entityType, " +
				"OwnerID = :ownerID, " +
				"Subject = :subject, SubjectKey = :subjectKey, " +
				"Predicate = :predicate, " +
				"Object = :object, ObjectKey = :objectKey, " +
				"#scope = :scope, " +
				"Context = if_not_exists(Context, :context), " +
				"LastAssertedAt = :lastAssertedAt, " +
				"SchemaVersion = :schemaVersion, " +
				"Version = if_not_exists(Version, :zero) + :one " +
				"ADD MentionCount :one"),
		ExpressionAttributeNames: map[string]string{
			"#ts":    "Timestamp",
			"#scope": "Scope",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":factID":         &types.AttributeValueMemberS{Value: fact.ID().String()},
			":ts":             &types.AttributeValueMemberS{Value: timestampKey(now)},
			":authorID":       &types.AttributeValueMemberS{Value: fact.AuthorID()},
			":confidence":     &types.AttributeValueMemberN{Value: strconv.FormatFloat(fact.Confidence().Value(), 'g', -1, 64)},
			":active":         &types.AttributeValueMemberBOOL{Value: true},
			":gsi1pk":         &types.AttributeValueMemberS{Value: slotGSI1PK(fact.OwnerID(), fact.Subject().Key(), fact.Predicate().String())},
			":gsi1sk":         &types.AttributeValueMemberS{Value: activeGSI1SK(true, now)},
			":gsi2pk":         &types.AttributeValueMemberS{Value: factPK(fact.OwnerID())},
			":gsi2sk":         &types.AttributeValueMemberS{Value: temporalGSI2SK(now)},
			":gsi3pk":         &types.AttributeValueMemberS{Value: fmt.Sprintf("FACTID#%s", fact.ID().String())},
			":gsi3sk":         &types.AttributeValueMemberS{Value: "METADATA"},
			":entityType":     &types.AttributeValueMemberS{Value: "FACT"},
			":ownerID":        &types.AttributeValueMemberS{Value: fact.OwnerID()},
			":subject":        &types.AttributeValueMemberS{Value: fact.Subject().String()},
			":subjectKey":     &types.AttributeValueMemberS{Value: fact.Subject().Key()},
			":predicate":      &types.AttributeValueMemberS{Value: fact.Predicate().String()},
			":object":         &types.AttributeValueMemberS{Value: fact.Object().String()},
			":objectKey":      &types.AttributeValueMemberS{Value: fact.Object().Key()},
			":scope":          &types.AttributeValueMemberS{Value: fact.Scope().String()},
			":context":        &types.AttributeValueMemberS{Value: fact.Context()},
			":lastAssertedAt": &types.AttributeValueMemberS{Value: timestampKey(now)},
			":schemaVersion":  &types.AttributeValueMemberN{Value: strconv.Itoa(CurrentFactSchemaVersion)},
			":zero":           &types.AttributeValueMemberN{Value: "0"},
			":one":            &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueAllNew,
	}

	result, err := r.client.UpdateItem(ctx, input)
	if err != nil {
		r.logger.Error("Failed to upsert fact",
			zap.Error(err),
			zap.String("PK", pk),
			zap.String("SK", sk),
		)
		return nil, pkgerrors.NewDatabaseError("upsert fact", err)
	}

	var item factItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fact: %w", err)
	}

	// A repeated assertion keeps the maximum confidence seen. DynamoDB
	// has no max() in update expressions, so the raise is a separate
	// conditional write; losing the condition means the stored value
	// is already at least as high.
	if item.MentionCount > 1 && fact.Confidence().Value() > item.Confidence {
		raised, err := r.raiseConfidence(ctx, pk, sk, fact.Confidence().Value())
		if err != nil {
			return nil, err
		}
		if raised {
			item.Confidence = fact.Confidence().Value()
		}
	}

	merged := item.MentionCount > 1
	r.logger.Info("Fact upserted",
		zap.String("factID", item.FactID),
		zap.String("ownerKey", fact.OwnerID()),
		zap.String("predicate", item.Predicate),
		zap.Bool("merged", merged),
		zap.Int("mentionCount", item.MentionCount),
	)

	return itemToFact(item)
}

// raiseConfidence lifts the stored confidence when the new assertion
// is more certain. Returns false when the condition lost.
func (r *FactRepository) raiseConfidence(ctx context.Context, pk, sk string, confidence float64) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression:    aws.String("SET Confidence = :confidence"),
		ConditionExpression: aws.String("Confidence < :confidence"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":confidence": &types.AttributeValueMemberN{Value: strconv.FormatFloat(confidence, 'g', -1, 64)},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return false, nil
		}
		return false, pkgerrors.NewDatabaseError("raise confidence", err)
	}
	return true, nil
}

// MarkSuperseded atomically deactivates a fact in favor of its
// replacement. The update is conditional on the fact still being
// active; losing the race surfaces as ErrFactAlreadySuperseded so the
// caller can re-run resolution against fresh state.
func (r *FactRepository) MarkSuperseded(ctx context.Context, ownerKey string, factID valueobjects.FactID, by valueobjects.FactID, at time.Time) error {
	fact, err := r.GetFact(ctx, ownerKey, factID)
	if err != nil {
		return err
	}

	pk := factPK(ownerKey)
	sk := factSK(fact.Subject().Key(), fact.Predicate().String(), fact.Object().Key())

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression: aws.String(
			"SET Active = :false, SupersededBy = :by, SupersededAt = :at, " +
				"GSI1SK = :gsi1sk, Version = Version + :one"),
		ConditionExpression: aws.String("Active = :true AND FactID = :factID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":false":  &types.AttributeValueMemberBOOL{Value: false},
			":true":   &types.AttributeValueMemberBOOL{Value: true},
			":by":     &types.AttributeValueMemberS{Value: by.String()},
			":at":     &types.AttributeValueMemberS{Value: timestampKey(at)},
			":gsi1sk": &types.AttributeValueMemberS{Value: activeGSI1SK(false, fact.Timestamp())},
			":factID": &types.AttributeValueMemberS{Value: factID.String()},
			":one":    &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return pkgerrors.ErrFactAlreadySuperseded
		}
		r.logger.Error("Failed to mark fact superseded",
			zap.Error(err),
			zap.String("factID", factID.String()),
			zap.String("ownerKey", ownerKey),
		)
		return pkgerrors.NewDatabaseError("mark superseded", err)
	}

	r.logger.Info("Fact superseded",
		zap.String("factID", factID.String()),
		zap.String("supersededBy", by.String()),
		zap.String("ownerKey", ownerKey),
	)

	return nil
}

// MarkSupersedes records on the winner which fact it replaced
func (r *FactRepository) MarkSupersedes(ctx context.Context, ownerKey string, factID valueobjects.FactID, supersedes valueobjects.FactID) error {
	fact, err := r.GetFact(ctx, ownerKey, factID)
	if err != nil {
		return err
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: factPK(ownerKey)},
			"SK": &types.AttributeValueMemberS{Value: factSK(fact.Subject().Key(), fact.Predicate().String(), fact.Object().Key())},
		},
		UpdateExpression:    aws.String("SET Supersedes = :supersedes"),
		ConditionExpression: aws.String("FactID = :factID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":supersedes": &types.AttributeValueMemberS{Value: supersedes.String()},
			":factID":     &types.AttributeValueMemberS{Value: factID.String()},
		},
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("mark supersedes", err)
	}
	return nil
}

// Reactivate restores a superseded fact as the current belief, for
// example when a stronger re-assertion wins its slot back. The update
// is conditional on the fact still being inactive; losing the
// condition means the fact is already active and there is nothing to
// do.
func (r *FactRepository) Reactivate(ctx context.Context, ownerKey string, factID valueobjects.FactID) error {
	fact, err := r.GetFact(ctx, ownerKey, factID)
	if err != nil {
		return err
	}

	pk := factPK(ownerKey)
	sk := factSK(fact.Subject().Key(), fact.Predicate().String(), fact.Object().Key())

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression: aws.String(
			"SET Active = :true, GSI1SK = :gsi1sk, Version = Version + :one " +
				"REMOVE SupersededBy, SupersededAt"),
		ConditionExpression: aws.String("Active = :false AND FactID = :factID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true":   &types.AttributeValueMemberBOOL{Value: true},
			":false":  &types.AttributeValueMemberBOOL{Value: false},
			":gsi1sk": &types.AttributeValueMemberS{Value: activeGSI1SK(true, fact.Timestamp())},
			":factID": &types.AttributeValueMemberS{Value: factID.String()},
			":one":    &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return nil
		}
		r.logger.Error("Failed to reactivate fact",
			zap.Error(err),
			zap.String("factID", factID.String()),
			zap.String("ownerKey", ownerKey),
		)
		return pkgerrors.NewDatabaseError("reactivate fact", err)
	}

	r.logger.Info("Fact reactivated",
		zap.String("factID", factID.String()),
		zap.String("ownerKey", ownerKey),
	)

	return nil
}

// QueryActiveBySubjectPredicate returns the active facts of one belief
// slot via GSI1. The active flag is part of the index sort key, so the
// query never reads superseded records.
func (r *FactRepository) QueryActiveBySubjectPredicate(ctx context.Context, ownerKey string, subject valueobjects.Term, predicate valueobjects.Predicate) ([]*entities.Fact, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :active)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: slotGSI1PK(ownerKey, subject.Key(), predicate.String())},
			":active": &types.AttributeValueMemberS{Value: "ACTIVE#1#"},
		},
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query belief slot", err)
	}

	return r.itemsToFacts(result.Items)
}

// GetFact retrieves a single fact by id within an owner partition
func (r *FactRepository) GetFact(ctx context.Context, ownerKey string, factID valueobjects.FactID) (*entities.Fact, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("GSI3"),
		KeyConditionExpression: aws.String("GSI3PK = :pk AND GSI3SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("FACTID#%s", factID.String())},
			":sk": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		Limit: aws.Int32(1),
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get fact", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.ErrFactNotFound
	}

	var item factItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fact: %w", err)
	}

	// The id index is global; the owner check keeps one user from
	// reading another user's partition by guessing ids.
	if item.OwnerID != ownerKey {
		return nil, pkgerrors.ErrFactNotFound
	}

	return itemToFact(item)
}

// maxHistoryDepth bounds the supersession chain walk
const maxHistoryDepth = 50

// GetHistory walks the supersession chain containing the given fact,
// newest belief first. The walk first climbs to the head of the chain
// through SupersededBy, then descends through Supersedes.
func (r *FactRepository) GetHistory(ctx context.Context, ownerKey string, factID valueobjects.FactID) ([]*entities.Fact, error) {
	head, err := r.GetFact(ctx, ownerKey, factID)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{head.ID().String(): true}
	for depth := 0; !head.SupersededBy().IsZero() && depth < maxHistoryDepth; depth++ {
		next, err := r.GetFact(ctx, ownerKey, head.SupersededBy())
		if err != nil {
			if errors.Is(err, pkgerrors.ErrFactNotFound) {
				break
			}
			return nil, err
		}
		if seen[next.ID().String()] {
			break
		}
		seen[next.ID().String()] = true
		head = next
	}

	chain := []*entities.Fact{head}
	current := head
	for depth := 0; !current.Supersedes().IsZero() && depth < maxHistoryDepth; depth++ {
		prev, err := r.GetFact(ctx, ownerKey, current.Supersedes())
		if err != nil {
			if errors.Is(err, pkgerrors.ErrFactNotFound) {
				break
			}
			return nil, err
		}
		if seen[prev.ID().String()] {
			break
		}
		seen[prev.ID().String()] = true
		chain = append(chain, prev)
		current = prev
	}

	return chain, nil
}

// QueryFacts returns facts matching the filter via the temporal index,
// newest first. Non-key predicates are pushed down as a filter
// expression built with the expression package.
func (r *FactRepository) QueryFacts(ctx context.Context, filter ports.FactFilter) ([]*entities.Fact, error) {
	var facts []*entities.Fact
	for _, ownerKey := range filter.OwnerKeys {
		partition, err := r.queryOwnerPartition(ctx, ownerKey, filter)
		if err != nil {
			return nil, err
		}
		facts = append(facts, partition...)
	}
	return facts, nil
}

func (r *FactRepository) queryOwnerPartition(ctx context.Context, ownerKey string, filter ports.FactFilter) ([]*entities.Fact, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(factPK(ownerKey)))
	if !filter.TimeRange.IsZero() {
		// The range is half-open but a key condition permits only one
		// range operator, so the exclusive end becomes an inclusive
		// bound one nanosecond below it.
		last := filter.TimeRange.End().Add(-time.Nanosecond)
		keyCond = keyCond.And(expression.Key("GSI2SK").Between(
			expression.Value(temporalGSI2SK(filter.TimeRange.Start())),
			expression.Value(temporalGSI2SK(last)),
		))
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCond)

	var filters []expression.ConditionBuilder
	if filter.ActiveOnly {
		filters = append(filters, expression.Name("Active").Equal(expression.Value(true)))
	}
	if !filter.Subject.IsZero() {
		filters = append(filters, expression.Name("SubjectKey").Equal(expression.Value(filter.Subject.Key())))
	}
	if !filter.Predicate.IsZero() {
		filters = append(filters, expression.Name("Predicate").Equal(expression.Value(filter.Predicate.String())))
	}
	if len(filters) > 0 {
		cond := filters[0]
		for _, f := range filters[1:] {
			cond = cond.And(f)
		}
		builder = builder.WithFilter(cond)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("GSI2"),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false), // newest first
	}
	if filter.Limit > 0 {
		input.Limit = aws.Int32(int32(filter.Limit))
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		r.logger.Error("Failed to query facts",
			zap.Error(err),
			zap.String("ownerKey", ownerKey),
		)
		return nil, pkgerrors.NewDatabaseError("query facts", err)
	}

	return r.itemsToFacts(result.Items)
}

func (r *FactRepository) itemsToFacts(items []map[string]types.AttributeValue) ([]*entities.Fact, error) {
	facts := make([]*entities.Fact, 0, len(items))
	for _, raw := range items {
		var item factItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal fact item", zap.Error(err))
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
	return facts, nil
}

// itemToFact reconstructs a domain fact from its stored item
func itemToFact(item factItem) (*entities.Fact, error) {
	id, err := valueobjects.NewFactIDFromString(item.FactID)
	if err != nil {
		return nil, fmt.Errorf("invalid fact id %q: %w", item.FactID, err)
	}

	scope, err := valueobjects.ParseScope(item.Scope)
	if err != nil {
		return nil, err
	}
	confidence, err := valueobjects.NewConfidence(item.Confidence)
	if err != nil {
		return nil, err
	}

	timestamp, err := time.Parse(time.RFC3339Nano, item.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("invalid fact timestamp %q: %w", item.Timestamp, err)
	}
	lastAssertedAt := timestamp
	if item.LastAssertedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, item.LastAssertedAt); err == nil {
			lastAssertedAt = t
		}
	}

	var supersededBy, supersedes valueobjects.FactID
	if item.SupersededBy != "" {
		supersededBy, _ = valueobjects.NewFactIDFromString(item.SupersededBy)
	}
	if item.Supersedes != "" {
		supersedes, _ = valueobjects.NewFactIDFromString(item.Supersedes)
	}
	var supersededAt time.Time
	if item.SupersededAt != "" {
		supersededAt, _ = time.Parse(time.RFC3339Nano, item.SupersededAt)
	}

	return entities.ReconstructFact(
		id,
		item.OwnerID,
		item.AuthorID,
		valueobjects.ReconstructTerm(item.Subject),
		valueobjects.ReconstructPredicate(item.Predicate),
		valueobjects.ReconstructTerm(item.Object),
		scope,
		confidence,
		item.Context,
		timestamp,
		lastAssertedAt,
		item.MentionCount,
		item.Active,
		supersededBy,
		supersedes,
		supersededAt,
		item.Version,
	)
}
