package handlers

import (
	"context"
	"time"

	"engram/application/commands"
	"engram/application/ports"
	"engram/domain/events"
)

// RecordDiscrepancyHandler persists shadow-read discrepancies as domain
// events and emits them to the metrics sink. It runs off the request
// path: a failure here is logged and swallowed so the read that
// produced the discrepancy is never affected.
type RecordDiscrepancyHandler struct {
	eventStore ports.EventStore
	recorder   ports.DiscrepancyRecorder
	logger     Logger
}

// NewRecordDiscrepancyHandler creates the handler
func NewRecordDiscrepancyHandler(eventStore ports.EventStore, recorder ports.DiscrepancyRecorder, logger Logger) *RecordDiscrepancyHandler {
	return &RecordDiscrepancyHandler{
		eventStore: eventStore,
		recorder:   recorder,
		logger:     logger,
	}
}

// Handle records one discrepancy
func (h *RecordDiscrepancyHandler) Handle(ctx context.Context, cmd *commands.RecordDiscrepancyCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	observedAt := cmd.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	event := events.NewDiscrepancyDetected(
		cmd.Operation,
		cmd.OwnerUserID,
		cmd.LegacyCount,
		cmd.CandidateCount,
		cmd.MissingIDs,
		cmd.ExtraIDs,
		0,
		cmd.Elapsed.Milliseconds(),
		observedAt,
	)

	if err := h.eventStore.SaveEvents(ctx, []events.DomainEvent{event}); err != nil {
		h.logger.Warn("Failed to persist discrepancy event",
			"operation", cmd.Operation, "error", err)
	}

	if h.recorder != nil {
		h.recorder.Record(ctx, ports.Discrepancy{
			Operation:      cmd.Operation,
			Detail:         cmd.OwnerUserID,
			LegacyCount:    cmd.LegacyCount,
			CandidateCount: cmd.CandidateCount,
			CandidateErr:   cmd.CandidateErr,
			TimedOut:       cmd.TimedOut,
			Elapsed:        cmd.Elapsed,
			ObservedAt:     observedAt,
		})
	}

	h.logger.Warn("Shadow read discrepancy",
		"operation", cmd.Operation,
		"owner", cmd.OwnerUserID,
		"legacyCount", cmd.LegacyCount,
		"candidateCount", cmd.CandidateCount,
		"timedOut", cmd.TimedOut)

	return nil
}
