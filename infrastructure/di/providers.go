package di

import (
	"context"
	"fmt"

	"engram/application/commands"
	"engram/application/commands/bus"
	commands_handlers "engram/application/commands/handlers"
	"engram/application/ports"
	"engram/application/queries"
	querybus "engram/application/queries/bus"
	queries_handlers "engram/application/queries/handlers"
	"engram/application/services"
	"engram/domain/classification"
	domainconfig "engram/domain/config"
	"engram/domain/core/validators"
	"engram/infrastructure/config"
	"engram/infrastructure/messaging/eventbridge"
	"engram/infrastructure/persistence/dynamodb"
	"engram/infrastructure/persistence/shadowread"
	"engram/infrastructure/workingmem"
	"engram/interfaces/http/rest"
	"engram/interfaces/http/rest/handlers"
	"engram/pkg/auth"
	"engram/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	FactRepo        ports.FactRepository
	EntityRepo      ports.EntityRepository
	UserRepo        ports.UserRepository
	FactReader      ports.FactReader
	WorkingMemory   ports.WorkingMemory
	EventBus        ports.EventBus
	EventStore      ports.EventStore
	OutboxProcessor *dynamodb.OutboxProcessor
	CommandBus      *bus.CommandBus
	QueryBus        *querybus.QueryBus
	Cache           ports.Cache
	Metrics         *observability.Metrics
	RateLimiter     *auth.DistributedRateLimiter
	Router          *rest.Router
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDomainConfig loads the environment-tuned domain limits
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return domainconfig.LoadDomainConfig(cfg.Environment)
}

// ProvideFactRepository creates the fact repository
func ProvideFactRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *dynamodb.FactRepository {
	return dynamodb.NewFactRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideFactRepositoryPort exposes the concrete repository through its port
func ProvideFactRepositoryPort(repo *dynamodb.FactRepository) ports.FactRepository {
	return repo
}

// ProvideEntityRepository creates the entity repository
func ProvideEntityRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.EntityRepository {
	return dynamodb.NewEntityRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideUserRepository creates the user activity repository
func ProvideUserRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.UserRepository {
	return dynamodb.NewUserRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideDynamoDBEventStore creates the event store with outbox support
func ProvideDynamoDBEventStore(client *awsdynamodb.Client, cfg *config.Config) *dynamodb.DynamoDBEventStore {
	return dynamodb.NewDynamoDBEventStore(client, cfg.DynamoDBTable)
}

// ProvideEventStore exposes the event store through its port
func ProvideEventStore(store *dynamodb.DynamoDBEventStore) ports.EventStore {
	return store
}

// ProvideEventBus creates an event bus
func ProvideEventBus(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	return eventbridge.NewEventBridgePublisher(
		client,
		cfg.EventBusName,
		logger,
	)
}

// ProvideEventPublisher exposes the event bus as a publisher
func ProvideEventPublisher(eventBus ports.EventBus) ports.EventPublisher {
	return eventBus
}

// ProvideOutboxProcessor creates the outbox relay that drains pending
// events from the store into EventBridge
func ProvideOutboxProcessor(
	store *dynamodb.DynamoDBEventStore,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *dynamodb.OutboxProcessor {
	return dynamodb.NewOutboxProcessor(store, publisher, logger)
}

// ProvideWorkingMemory creates the in-process attention model
func ProvideWorkingMemory(domainCfg *domainconfig.DomainConfig, logger *zap.Logger) ports.WorkingMemory {
	return workingmem.NewManager(domainCfg, logger)
}

// ProvideFactRecordUpgrader creates the schema upgrader for reads
func ProvideFactRecordUpgrader(logger *zap.Logger) *dynamodb.FactRecordUpgrader {
	return dynamodb.NewFactRecordUpgrader(logger)
}

// ProvideLegacyFactReader creates the scan-based read path
func ProvideLegacyFactReader(
	client *awsdynamodb.Client,
	cfg *config.Config,
	upgrader *dynamodb.FactRecordUpgrader,
	logger *zap.Logger,
) *dynamodb.LegacyFactReader {
	return dynamodb.NewLegacyFactReader(client, cfg.DynamoDBTable, upgrader, logger)
}

// ProvideFactReader wires the shadow-validation decorator over both
// read paths. The legacy reader stays authoritative; the candidate
// index-backed reader runs in its shadow and disagreements are
// dispatched as discrepancy commands.
func ProvideFactReader(
	legacy *dynamodb.LegacyFactReader,
	candidate *dynamodb.FactRepository,
	commandBus *bus.CommandBus,
	cfg *config.Config,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) ports.FactReader {
	enabled := cfg.EnableShadowReads || domainCfg.EnableShadowReads
	return shadowread.NewFactReader(
		legacy,
		candidate,
		commandBus,
		enabled,
		domainCfg.ShadowCandidateTimeout,
		logger,
	)
}

// ProvideFactValidator creates the fact validator
func ProvideFactValidator(domainCfg *domainconfig.DomainConfig) *validators.FactValidator {
	return validators.NewFactValidatorWithConfig(domainCfg)
}

// ProvideOwnerValidator creates the owner validator
func ProvideOwnerValidator() *validators.OwnerValidator {
	return validators.NewOwnerValidator()
}

// ProvideQueryValidator creates the query validator
func ProvideQueryValidator(domainCfg *domainconfig.DomainConfig) *validators.QueryValidator {
	return validators.NewQueryValidatorWithConfig(domainCfg)
}

// ProvideClassifier creates the memory classifier
func ProvideClassifier(domainCfg *domainconfig.DomainConfig) *classification.Classifier {
	return classification.NewClassifierFromConfig(domainCfg)
}

// ProvideRecallService creates the attention-ranked recall service
func ProvideRecallService(entityRepo ports.EntityRepository, workingMemory ports.WorkingMemory) *services.RecallService {
	return services.NewRecallService(entityRepo, workingMemory)
}

// ProvideWriteKnowledgeOrchestrator creates the write pipeline
func ProvideWriteKnowledgeOrchestrator(
	factRepo ports.FactRepository,
	entityRepo ports.EntityRepository,
	userRepo ports.UserRepository,
	eventStore ports.EventStore,
	workingMemory ports.WorkingMemory,
	factValidator *validators.FactValidator,
	ownerValidator *validators.OwnerValidator,
	classifier *classification.Classifier,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *commands_handlers.WriteKnowledgeOrchestrator {
	return commands_handlers.NewWriteKnowledgeOrchestrator(
		factRepo,
		entityRepo,
		userRepo,
		eventStore,
		workingMemory,
		factValidator,
		ownerValidator,
		classifier,
		domainCfg,
		&zapLoggerAdapter{logger},
	)
}

// ProvideDiscrepancyRecorder creates the telemetry sink for shadow
// validation
func ProvideDiscrepancyRecorder(metrics *observability.Metrics, logger *zap.Logger) ports.DiscrepancyRecorder {
	return &metricsDiscrepancyRecorder{metrics: metrics, logger: logger}
}

// ProvideCommandBus creates a command bus with registered handlers.
// Writes go through the orchestrator directly; the bus carries the
// fire-and-forget commands dispatched off the request path.
func ProvideCommandBus(
	eventStore ports.EventStore,
	recorder ports.DiscrepancyRecorder,
	workingMemory ports.WorkingMemory,
	ownerValidator *validators.OwnerValidator,
	logger *zap.Logger,
) *bus.CommandBus {
	commandBus := bus.NewCommandBus()
	busLogger := &zapLoggerAdapter{logger}
	logging := bus.LoggingMiddleware(busLogger)

	discrepancyHandler := commands_handlers.NewRecordDiscrepancyHandler(eventStore, recorder, busLogger)
	commandBus.Register(&commands.RecordDiscrepancyCommand{}, logging(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			recordCmd, ok := cmd.(*commands.RecordDiscrepancyCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return discrepancyHandler.Handle(ctx, recordCmd)
		},
	}))

	attentionHandler := commands_handlers.NewUpdateWorkingMemoryHandler(workingMemory, ownerValidator)
	commandBus.Register(&commands.UpdateWorkingMemoryCommand{}, logging(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			updateCmd, ok := cmd.(*commands.UpdateWorkingMemoryCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return attentionHandler.Handle(ctx, updateCmd)
		},
	}))

	return commandBus
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers.
// Every read is wrapped with metrics; fact history additionally gets
// a short cache because chains only change on writes. Knowledge
// queries are never cached: the shadow layer has to see each one.
func ProvideQueryBus(
	factReader ports.FactReader,
	factRepo ports.FactRepository,
	workingMemory ports.WorkingMemory,
	recall *services.RecallService,
	queryValidator *validators.QueryValidator,
	ownerValidator *validators.OwnerValidator,
	cache ports.Cache,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *querybus.QueryBus {
	queryBus := querybus.NewQueryBus()

	metricsMW := querybus.NewMetricsMiddleware(&busMetricsAdapter{metrics})
	cachingMW := querybus.NewCachingMiddleware(cache, 60)

	queryKnowledgeHandler := queries_handlers.NewQueryKnowledgeHandler(factReader, queryValidator, ownerValidator, &zapLoggerAdapter{logger})
	queryBus.Register(&queries.QueryKnowledgeQuery{}, metricsMW.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(*queries.QueryKnowledgeQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return queryKnowledgeHandler.Handle(ctx, q)
		},
	}))

	historyHandler := queries_handlers.NewGetFactHistoryHandler(factRepo, ownerValidator)
	queryBus.Register(&queries.GetFactHistoryQuery{}, metricsMW.Wrap(cachingMW.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(*queries.GetFactHistoryQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return historyHandler.Handle(ctx, q)
		},
	})))

	workingMemoryHandler := queries_handlers.NewQueryWorkingMemoryHandler(workingMemory, ownerValidator)
	queryBus.Register(&queries.QueryWorkingMemoryQuery{}, metricsMW.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(*queries.QueryWorkingMemoryQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return workingMemoryHandler.Handle(ctx, q)
		},
	}))

	recallHandler := queries_handlers.NewRecallEntitiesHandler(recall, queryValidator, ownerValidator)
	queryBus.Register(&queries.RecallEntitiesQuery{}, metricsMW.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(*queries.RecallEntitiesQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return recallHandler.Handle(ctx, q)
		},
	}))

	return queryBus
}

// ProvideMetrics creates the CloudWatch metrics sink. With metrics
// disabled the sink keeps working but drops every datum.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	namespace := "Engram/" + cfg.Environment
	if !cfg.EnableMetrics {
		client = nil
	}
	return observability.NewMetrics(namespace, client, logger)
}

// ProvideInMemoryCache creates a simple in-memory cache
// In production, this would be Redis or similar
func ProvideInMemoryCache() ports.Cache {
	return NewInMemoryCache()
}

// ProvideDistributedRateLimiter creates the DynamoDB-backed limiter
// guarding writes. State lives in the table so the limit holds across
// Lambda instances.
func ProvideDistributedRateLimiter(client *awsdynamodb.Client, cfg *config.Config) *auth.DistributedRateLimiter {
	return auth.NewDistributedUserRateLimiter(client, cfg.DynamoDBTable, 60)
}

// ProvideKnowledgeHandler creates the HTTP handler for fact writes and queries
func ProvideKnowledgeHandler(
	orchestrator *commands_handlers.WriteKnowledgeOrchestrator,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *handlers.KnowledgeHandler {
	return handlers.NewKnowledgeHandler(orchestrator, queryBus, logger)
}

// ProvideWorkingMemoryHandler creates the HTTP handler for attention state
func ProvideWorkingMemoryHandler(queryBus *querybus.QueryBus, commandBus *bus.CommandBus, logger *zap.Logger) *handlers.WorkingMemoryHandler {
	return handlers.NewWorkingMemoryHandler(queryBus, commandBus, logger)
}

// ProvideHistoryHandler creates the HTTP handler for supersession chains
func ProvideHistoryHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *handlers.HistoryHandler {
	return handlers.NewHistoryHandler(queryBus, logger)
}

// ProvideRecallHandler creates the HTTP handler for entity recall
func ProvideRecallHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *handlers.RecallHandler {
	return handlers.NewRecallHandler(queryBus, logger)
}

// ProvideRouter assembles the HTTP router
func ProvideRouter(
	knowledge *handlers.KnowledgeHandler,
	workingMemory *handlers.WorkingMemoryHandler,
	history *handlers.HistoryHandler,
	recall *handlers.RecallHandler,
	writeLimiter *auth.DistributedRateLimiter,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(knowledge, workingMemory, history, recall, writeLimiter, logger)
}

// CommandHandlerAdapter adapts specific command handlers to the generic interface
type CommandHandlerAdapter struct {
	handler func(context.Context, bus.Command) error
}

func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	return a.handler(ctx, cmd)
}

// metricsDiscrepancyRecorder counts shadow-read disagreements in
// CloudWatch and logs the detail for debugging
type metricsDiscrepancyRecorder struct {
	metrics *observability.Metrics
	logger  *zap.Logger
}

func (r *metricsDiscrepancyRecorder) Record(ctx context.Context, d ports.Discrepancy) {
	r.metrics.Increment("ShadowReadDiscrepancies", d.Operation)
	if d.TimedOut {
		r.metrics.Increment("ShadowReadTimeouts", d.Operation)
	}
	r.logger.Warn("Shadow read discrepancy recorded",
		zap.String("operation", d.Operation),
		zap.String("detail", d.Detail),
		zap.Int("legacyCount", d.LegacyCount),
		zap.Int("candidateCount", d.CandidateCount),
		zap.Bool("timedOut", d.TimedOut),
		zap.Duration("elapsed", d.Elapsed),
	)
}

// busMetricsAdapter bridges the CloudWatch sink to the query bus
// metrics interface; the Timer types are structurally identical but
// distinct named interfaces.
type busMetricsAdapter struct {
	metrics *observability.Metrics
}

func (a *busMetricsAdapter) StartTimer(metric, label string) querybus.Timer {
	return a.metrics.StartTimer(metric, label)
}

func (a *busMetricsAdapter) Increment(metric, label string) {
	a.metrics.Increment(metric, label)
}

// zapLoggerAdapter adapts zap.Logger to the handlers.Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, fields ...interface{}) {
	a.logger.Info(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, fields ...interface{}) {
	a.logger.Warn(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Error(msg string, fields ...interface{}) {
	a.logger.Error(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) fieldsToZap(fields ...interface{}) []zap.Field {
	var zapFields []zap.Field
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, _ := fields[i].(string)
			zapFields = append(zapFields, zap.Any(key, fields[i+1]))
		}
	}
	return zapFields
}
