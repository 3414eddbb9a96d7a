package dynamodb

import (
	"context"
	"fmt"
	"time"

	"engram/application/ports"

	"go.uber.org/zap"
)

// OutboxProcessor drains the event outbox in the background, publishing
// pending events and retrying failures until they exhaust their attempts
type OutboxProcessor struct {
	eventStore     *DynamoDBEventStore
	eventPublisher ports.EventPublisher
	logger         *zap.Logger

	batchSize          int32
	processingInterval time.Duration
	maxRetries         int

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	eventStore *DynamoDBEventStore,
	eventPublisher ports.EventPublisher,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		eventStore:         eventStore,
		eventPublisher:     eventPublisher,
		logger:             logger,
		batchSize:          50,
		processingInterval: 5 * time.Second,
		maxRetries:         3,
		stopChan:           make(chan struct{}),
		stoppedChan:        make(chan struct{}),
	}
}

// Start begins the background processing of outbox events
func (op *OutboxProcessor) Start(ctx context.Context) {
	op.logger.Info("Starting outbox processor",
		zap.Int32("batchSize", op.batchSize),
		zap.Duration("interval", op.processingInterval),
	)

	go op.processLoop(ctx)
}

// Stop gracefully stops the outbox processor
func (op *OutboxProcessor) Stop() {
	op.logger.Info("Stopping outbox processor")
	close(op.stopChan)
	<-op.stoppedChan
	op.logger.Info("Outbox processor stopped")
}

func (op *OutboxProcessor) processLoop(ctx context.Context) {
	defer close(op.stoppedChan)

	ticker := time.NewTicker(op.processingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			op.logger.Info("Context cancelled, stopping outbox processor")
			return
		case <-op.stopChan:
			op.logger.Info("Stop signal received")
			return
		case <-ticker.C:
			if err := op.processBatch(ctx); err != nil {
				op.logger.Error("Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

// processBatch processes a batch of pending events
func (op *OutboxProcessor) processBatch(ctx context.Context) error {
	_, _, err := op.ProcessOnce(ctx)
	return err
}

// ProcessOnce drains one batch of pending events and reports how many
// were published and how many failed. Scheduled invocations use this
// instead of the resident loop.
func (op *OutboxProcessor) ProcessOnce(ctx context.Context) (published, failed int, err error) {
	pendingEvents, err := op.eventStore.GetPendingEvents(ctx, op.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get pending events: %w", err)
	}

	if len(pendingEvents) == 0 {
		return 0, 0, nil
	}

	op.logger.Debug("Processing outbox batch",
		zap.Int("eventCount", len(pendingEvents)),
	)

	successCount := 0
	failureCount := 0

	for _, eventRecord := range pendingEvents {
		if err := op.processEvent(ctx, eventRecord); err != nil {
			op.logger.Error("Failed to process event",
				zap.String("eventID", eventRecord.EventID),
				zap.String("eventType", eventRecord.EventType),
				zap.Error(err),
			)
			failureCount++
		} else {
			successCount++
		}
	}

	op.logger.Debug("Completed outbox batch processing",
		zap.Int("successCount", successCount),
		zap.Int("failureCount", failureCount),
	)

	return successCount, failureCount, nil
}

// processEvent publishes a single event from the outbox
func (op *OutboxProcessor) processEvent(ctx context.Context, eventRecord *EventRecord) error {
	domainEvent, err := op.eventStore.recordToEvent(*eventRecord)
	if err != nil {
		// Malformed events can't be published; burn an attempt
		return op.markEventFailed(ctx, eventRecord, fmt.Sprintf("Failed to convert to domain event: %v", err))
	}

	if err := op.eventPublisher.Publish(ctx, domainEvent); err != nil {
		return op.markEventFailed(ctx, eventRecord, fmt.Sprintf("Publish failed: %v", err))
	}

	return op.markEventPublished(ctx, eventRecord)
}

func (op *OutboxProcessor) markEventPublished(ctx context.Context, eventRecord *EventRecord) error {
	err := op.eventStore.MarkEventAsPublished(ctx, eventRecord.PK, eventRecord.SK)
	if err != nil {
		op.logger.Error("Failed to mark event as published",
			zap.String("eventID", eventRecord.EventID),
			zap.Error(err),
		)
		return err
	}

	op.logger.Debug("Event published successfully",
		zap.String("eventID", eventRecord.EventID),
		zap.String("eventType", eventRecord.EventType),
	)

	return nil
}

func (op *OutboxProcessor) markEventFailed(ctx context.Context, eventRecord *EventRecord, errorMsg string) error {
	newAttempts := eventRecord.PublishAttempts + 1

	err := op.eventStore.MarkEventAsFailed(ctx, eventRecord.PK, eventRecord.SK, errorMsg, newAttempts)
	if err != nil {
		op.logger.Error("Failed to mark event as failed",
			zap.String("eventID", eventRecord.EventID),
			zap.Error(err),
		)
		return err
	}

	if newAttempts >= op.maxRetries {
		op.logger.Warn("Event permanently failed after max retries",
			zap.String("eventID", eventRecord.EventID),
			zap.String("eventType", eventRecord.EventType),
			zap.Int("attempts", newAttempts),
			zap.String("error", errorMsg),
		)
	} else {
		op.logger.Debug("Event marked for retry",
			zap.String("eventID", eventRecord.EventID),
			zap.String("eventType", eventRecord.EventType),
			zap.Int("attempts", newAttempts),
			zap.String("error", errorMsg),
		)
	}

	return fmt.Errorf("event processing failed: %s", errorMsg)
}

// GetStats returns processing statistics
func (op *OutboxProcessor) GetStats(ctx context.Context) (map[string]interface{}, error) {
	pendingEvents, err := op.eventStore.GetPendingEvents(ctx, 1)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"hasPendingEvents":   len(pendingEvents) > 0,
		"batchSize":          op.batchSize,
		"processingInterval": op.processingInterval.String(),
		"maxRetries":         op.maxRetries,
	}, nil
}
