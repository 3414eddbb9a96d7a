// Package shadowread wraps the legacy fact read path with shadow
// validation of the index-backed reader. Callers always get the legacy
// answer; disagreements are recorded out of band so the candidate can
// be promoted on evidence instead of hope.
package shadowread

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"engram/application/commands"
	"engram/application/commands/bus"
	"engram/application/ports"
	"engram/domain/core/entities"
	"engram/pkg/shadow"
)

// maxReportedIDs caps how many diverging fact IDs a single report
// carries
const maxReportedIDs = 20

// Dispatcher sends commands without caring who handles them. The
// command bus satisfies this.
type Dispatcher interface {
	Send(ctx context.Context, cmd bus.Command) error
}

// FactReader runs every query against the legacy reader and, when
// shadowing is enabled, replays it against the candidate for
// comparison
type FactReader struct {
	legacy     ports.FactReader
	candidate  ports.FactReader
	dispatcher Dispatcher
	logger     *zap.Logger

	enabled bool
	timeout time.Duration
}

// NewFactReader creates the shadowed reader
func NewFactReader(
	legacy ports.FactReader,
	candidate ports.FactReader,
	dispatcher Dispatcher,
	enabled bool,
	timeout time.Duration,
	logger *zap.Logger,
) *FactReader {
	return &FactReader{
		legacy:     legacy,
		candidate:  candidate,
		dispatcher: dispatcher,
		logger:     logger,
		enabled:    enabled,
		timeout:    timeout,
	}
}

// QueryFacts returns the legacy result. The candidate runs detached;
// its outcome can only ever produce a discrepancy record.
func (r *FactReader) QueryFacts(ctx context.Context, filter ports.FactFilter) ([]*entities.Fact, error) {
	// The compare and observer closures share state: the runner calls
	// them in order on the candidate's goroutine.
	var diff factSetDiff

	runner := shadow.NewRunner[[]*entities.Fact](
		r.enabled,
		r.timeout,
		func(legacy, candidate []*entities.Fact) (bool, string) {
			diff = diffFactSets(legacy, candidate)
			return diff.equal(), diff.detail()
		},
		func(obsCtx context.Context, report shadow.Report) {
			r.observe(obsCtx, filter, diff, report)
		},
	)

	return runner.Run(ctx, "query_facts",
		func(ctx context.Context) ([]*entities.Fact, error) {
			return r.legacy.QueryFacts(ctx, filter)
		},
		func(ctx context.Context) ([]*entities.Fact, error) {
			return r.candidate.QueryFacts(ctx, filter)
		},
	)
}

func (r *FactReader) observe(ctx context.Context, filter ports.FactFilter, diff factSetDiff, report shadow.Report) {
	if report.Match {
		return
	}

	owner := ""
	if len(filter.OwnerKeys) > 0 {
		owner = filter.OwnerKeys[0]
	}

	r.logger.Warn("Shadow read discrepancy",
		zap.String("operation", report.Operation),
		zap.String("owner", owner),
		zap.Int("legacyCount", diff.legacyCount),
		zap.Int("candidateCount", diff.candidateCount),
		zap.Bool("timedOut", report.TimedOut),
		zap.Error(report.CandidateErr),
		zap.Duration("legacyElapsed", report.LegacyElapsed),
		zap.Duration("candidateElapsed", report.CandidateElapsed),
	)

	if r.dispatcher == nil {
		return
	}

	cmd := &commands.RecordDiscrepancyCommand{
		Operation:      report.Operation,
		OwnerUserID:    owner,
		LegacyCount:    diff.legacyCount,
		CandidateCount: diff.candidateCount,
		MissingIDs:     diff.missing,
		ExtraIDs:       diff.extra,
		TimedOut:       report.TimedOut,
		Elapsed:        report.CandidateElapsed,
		ObservedAt:     report.ObservedAt,
	}
	if report.CandidateErr != nil {
		cmd.CandidateErr = report.CandidateErr.Error()
	}

	if err := r.dispatcher.Send(ctx, cmd); err != nil {
		// Recording is best effort; the user already has their answer
		r.logger.Error("Failed to record shadow discrepancy", zap.Error(err))
	}
}

// factSetDiff compares the two result sets by fact ID. Ordering and
// duplicate mentions are not discrepancies; presence is.
type factSetDiff struct {
	legacyCount    int
	candidateCount int
	missing        []string // in legacy, absent from candidate
	extra          []string // in candidate, absent from legacy
}

func diffFactSets(legacy, candidate []*entities.Fact) factSetDiff {
	diff := factSetDiff{
		legacyCount:    len(legacy),
		candidateCount: len(candidate),
	}

	legacyIDs := make(map[string]struct{}, len(legacy))
	for _, fact := range legacy {
		legacyIDs[fact.ID().String()] = struct{}{}
	}
	candidateIDs := make(map[string]struct{}, len(candidate))
	for _, fact := range candidate {
		candidateIDs[fact.ID().String()] = struct{}{}
	}

	for id := range legacyIDs {
		if _, ok := candidateIDs[id]; !ok {
			diff.missing = append(diff.missing, id)
		}
	}
	for id := range candidateIDs {
		if _, ok := legacyIDs[id]; !ok {
			diff.extra = append(diff.extra, id)
		}
	}

	sort.Strings(diff.missing)
	sort.Strings(diff.extra)
	if len(diff.missing) > maxReportedIDs {
		diff.missing = diff.missing[:maxReportedIDs]
	}
	if len(diff.extra) > maxReportedIDs {
		diff.extra = diff.extra[:maxReportedIDs]
	}

	return diff
}

func (d factSetDiff) equal() bool {
	return len(d.missing) == 0 && len(d.extra) == 0
}

func (d factSetDiff) detail() string {
	if d.equal() {
		return ""
	}
	return "fact id sets diverge"
}
