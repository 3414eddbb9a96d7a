// Package main implements the scheduled outbox relay Lambda.
// It drains pending domain events from the DynamoDB outbox into
// EventBridge so writes never block on event delivery.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"engram/infrastructure/config"
	"engram/infrastructure/di"
	"engram/infrastructure/persistence/dynamodb"
)

// Global dependencies for Lambda performance optimization
var (
	processor *dynamodb.OutboxProcessor
	logger    *zap.Logger
)

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	processor = container.OutboxProcessor
	logger = container.Logger

	log.Println("Outbox relay handler initialized successfully")
}

// RelayResult reports the outcome of one drain pass
type RelayResult struct {
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

// handler drains one batch per invocation. The schedule rate bounds
// delivery latency; a backlog is worked off across invocations.
func handler(ctx context.Context, event json.RawMessage) (*RelayResult, error) {
	// Scheduled invocations arrive as EventBridge events; the detail
	// carries nothing the relay needs
	var scheduled awsevents.CloudWatchEvent
	if err := json.Unmarshal(event, &scheduled); err == nil && scheduled.DetailType != "" {
		logger.Info("Relay triggered",
			zap.String("detailType", scheduled.DetailType),
			zap.String("source", scheduled.Source),
		)
	}

	published, failed, err := processor.ProcessOnce(ctx)
	if err != nil {
		logger.Error("Outbox drain failed", zap.Error(err))
		return nil, err
	}

	if published > 0 || failed > 0 {
		logger.Info("Outbox drain complete",
			zap.Int("published", published),
			zap.Int("failed", failed),
		)
	}

	return &RelayResult{Published: published, Failed: failed}, nil
}

func main() {
	// Check if running in Lambda environment
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		log.Println("Starting outbox relay Lambda")
		lambda.Start(handler)
	} else {
		// Local testing mode
		log.Println("Running in local test mode")

		result, err := handler(context.Background(), json.RawMessage(`{}`))
		if err != nil {
			log.Fatalf("Test drain failed: %v", err)
		}

		resultJSON, _ := json.MarshalIndent(result, "", "  ")
		log.Printf("Test result:\n%s", resultJSON)
	}
}
