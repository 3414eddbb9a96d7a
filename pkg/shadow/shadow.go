// Package shadow runs a candidate implementation alongside the legacy
// one and reports disagreements without ever affecting the caller. The
// legacy result is always the answer; the candidate is bounded by its
// own timeout and observed purely for telemetry.
package shadow

import (
	"context"
	"time"
)

// DefaultCandidateTimeout bounds the candidate when no timeout is
// configured
const DefaultCandidateTimeout = 2 * time.Second

// Report describes one shadow comparison
type Report struct {
	Operation string

	// Match is true when the compare function found no difference
	Match bool

	// Detail is the compare function's description of the difference
	Detail string

	// CandidateErr is set when the candidate failed outright
	CandidateErr error

	// TimedOut is set when the candidate exceeded its budget
	TimedOut bool

	// LegacyElapsed and CandidateElapsed are the observed latencies
	LegacyElapsed    time.Duration
	CandidateElapsed time.Duration

	ObservedAt time.Time
}

// Compare inspects the two results. equal=false produces a
// discrepancy report with the given detail.
type Compare[T any] func(legacy, candidate T) (equal bool, detail string)

// Observer receives every shadow report, matches included. Observers
// must not block: they run on the candidate's goroutine after the
// caller already has its answer.
type Observer func(ctx context.Context, report Report)

// Runner executes shadowed operations for one result type
type Runner[T any] struct {
	enabled  bool
	timeout  time.Duration
	compare  Compare[T]
	observer Observer
}

// NewRunner creates a shadow runner. A nil observer disables
// reporting; a disabled runner short-circuits to the legacy path.
func NewRunner[T any](enabled bool, timeout time.Duration, compare Compare[T], observer Observer) *Runner[T] {
	if timeout <= 0 {
		timeout = DefaultCandidateTimeout
	}
	return &Runner[T]{
		enabled:  enabled,
		timeout:  timeout,
		compare:  compare,
		observer: observer,
	}
}

// Run executes legacy synchronously and returns its result unchanged.
// When shadowing is enabled, the candidate runs on its own goroutine
// against a detached context so neither the request's cancellation nor
// the candidate's latency can leak into the caller's path.
func (r *Runner[T]) Run(ctx context.Context, operation string, legacy, candidate func(ctx context.Context) (T, error)) (T, error) {
	legacyStart := time.Now()
	result, err := legacy(ctx)
	legacyElapsed := time.Since(legacyStart)

	// A failed legacy read is the caller's problem to handle; there
	// is nothing meaningful to compare against.
	if err != nil || !r.enabled || candidate == nil {
		return result, err
	}

	go r.runCandidate(operation, result, legacyElapsed, candidate)

	return result, nil
}

func (r *Runner[T]) runCandidate(operation string, legacyResult T, legacyElapsed time.Duration, candidate func(ctx context.Context) (T, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	candidateResult, err := candidate(ctx)
	elapsed := time.Since(start)

	report := Report{
		Operation:        operation,
		LegacyElapsed:    legacyElapsed,
		CandidateElapsed: elapsed,
		ObservedAt:       time.Now().UTC(),
	}

	switch {
	case err != nil:
		report.CandidateErr = err
		report.TimedOut = ctx.Err() == context.DeadlineExceeded
	case r.compare == nil:
		report.Match = true
	default:
		report.Match, report.Detail = r.compare(legacyResult, candidateResult)
	}

	if r.observer != nil {
		r.observer(context.Background(), report)
	}
}
