//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"engram/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideDomainConfig,
	ProvideFactRepository,
	ProvideFactRepositoryPort,
	ProvideEntityRepository,
	ProvideUserRepository,
	ProvideDynamoDBEventStore,
	ProvideEventStore,
	ProvideEventBus,
	ProvideEventPublisher,
	ProvideOutboxProcessor,
	ProvideWorkingMemory,
	ProvideFactRecordUpgrader,
	ProvideLegacyFactReader,
	ProvideFactReader,
	ProvideFactValidator,
	ProvideOwnerValidator,
	ProvideQueryValidator,
	ProvideClassifier,
	ProvideRecallService,
	ProvideWriteKnowledgeOrchestrator,
	ProvideDiscrepancyRecorder,
	ProvideMetrics,
	ProvideDistributedRateLimiter,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideInMemoryCache,
	ProvideKnowledgeHandler,
	ProvideWorkingMemoryHandler,
	ProvideHistoryHandler,
	ProvideRecallHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
