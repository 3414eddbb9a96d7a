package shadowread

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"engram/application/commands"
	"engram/application/commands/bus"
	"engram/application/ports"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
)

// readerFunc adapts a function to ports.FactReader
type readerFunc func(ctx context.Context, filter ports.FactFilter) ([]*entities.Fact, error)

func (f readerFunc) QueryFacts(ctx context.Context, filter ports.FactFilter) ([]*entities.Fact, error) {
	return f(ctx, filter)
}

// countingReader records how often it was queried
type countingReader struct {
	mu    sync.Mutex
	calls int
	facts []*entities.Fact
	err   error
	done  chan struct{}
}

func newCountingReader(facts []*entities.Fact, err error) *countingReader {
	return &countingReader{facts: facts, err: err, done: make(chan struct{}, 16)}
}

func (r *countingReader) QueryFacts(context.Context, ports.FactFilter) ([]*entities.Fact, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	r.done <- struct{}{}
	return r.facts, r.err
}

func (r *countingReader) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// captureDispatcher hands every dispatched command to the test through
// a channel, since the shadow layer dispatches off the caller's
// goroutine
type captureDispatcher struct {
	commands chan bus.Command
}

func newCaptureDispatcher() *captureDispatcher {
	return &captureDispatcher{commands: make(chan bus.Command, 16)}
}

func (d *captureDispatcher) Send(_ context.Context, cmd bus.Command) error {
	d.commands <- cmd
	return nil
}

func (d *captureDispatcher) waitForDiscrepancy(t *testing.T) *commands.RecordDiscrepancyCommand {
	t.Helper()
	select {
	case cmd := <-d.commands:
		report, ok := cmd.(*commands.RecordDiscrepancyCommand)
		require.True(t, ok, "expected a discrepancy command, got %T", cmd)
		return report
	case <-time.After(3 * time.Second):
		t.Fatal("no discrepancy dispatched")
		return nil
	}
}

func testFact(t *testing.T, owner, subject, object string, ts time.Time) *entities.Fact {
	t.Helper()
	subjectTerm, err := valueobjects.NewTerm(subject)
	require.NoError(t, err)
	objectTerm, err := valueobjects.NewTerm(object)
	require.NoError(t, err)
	pred, err := valueobjects.NewPredicate("likes")
	require.NoError(t, err)
	conf, err := valueobjects.NewConfidence(1.0)
	require.NoError(t, err)

	fact, err := entities.ReconstructFact(
		valueobjects.NewFactID(),
		owner,
		owner,
		subjectTerm,
		pred,
		objectTerm,
		valueobjects.ScopePrivate,
		conf,
		"",
		ts,
		ts,
		1,
		true,
		valueobjects.FactID{},
		valueobjects.FactID{},
		time.Time{},
		1,
	)
	require.NoError(t, err)
	return fact
}

func userFilter(userID string) ports.FactFilter {
	return ports.FactFilter{OwnerKeys: []string{userID}, ActiveOnly: true}
}

func TestQueryFacts_ReturnsLegacyAnswer(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	legacyFacts := []*entities.Fact{testFact(t, "user-1", "alice", "climbing", base)}

	candidate := newCountingReader(legacyFacts, nil)
	reader := NewFactReader(
		readerFunc(func(context.Context, ports.FactFilter) ([]*entities.Fact, error) {
			return legacyFacts, nil
		}),
		candidate,
		newCaptureDispatcher(),
		true,
		time.Second,
		zap.NewNop(),
	)

	facts, err := reader.QueryFacts(context.Background(), userFilter("user-1"))
	require.NoError(t, err)
	assert.Equal(t, legacyFacts, facts)
}

func TestQueryFacts_DivergenceDispatchesDiscrepancy(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	common := testFact(t, "user-1", "alice", "climbing", base)
	onlyLegacy := testFact(t, "user-1", "alice", "chess", base)
	onlyCandidate := testFact(t, "user-1", "alice", "skiing", base)

	dispatcher := newCaptureDispatcher()
	reader := NewFactReader(
		readerFunc(func(context.Context, ports.FactFilter) ([]*entities.Fact, error) {
			return []*entities.Fact{common, onlyLegacy}, nil
		}),
		readerFunc(func(context.Context, ports.FactFilter) ([]*entities.Fact, error) {
			return []*entities.Fact{common, onlyCandidate}, nil
		}),
		dispatcher,
		true,
		time.Second,
		zap.NewNop(),
	)

	_, err := reader.QueryFacts(context.Background(), userFilter("user-1"))
	require.NoError(t, err)

	report := dispatcher.waitForDiscrepancy(t)
	assert.Equal(t, "query_facts", report.Operation)
	assert.Equal(t, "user-1", report.OwnerUserID)
	assert.Equal(t, 2, report.LegacyCount)
	assert.Equal(t, 2, report.CandidateCount)
	assert.Equal(t, []string{onlyLegacy.ID().String()}, report.MissingIDs)
	assert.Equal(t, []string{onlyCandidate.ID().String()}, report.ExtraIDs)
	assert.False(t, report.TimedOut)
	assert.Empty(t, report.CandidateErr)
}

func TestQueryFacts_OrderingIsNotADiscrepancy(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	first := testFact(t, "user-1", "alice", "climbing", base)
	second := testFact(t, "user-1", "alice", "chess", base.Add(time.Minute))

	dispatcher := newCaptureDispatcher()
	candidate := newCountingReader([]*entities.Fact{second, first}, nil)
	reader := NewFactReader(
		readerFunc(func(context.Context, ports.FactFilter) ([]*entities.Fact, error) {
			return []*entities.Fact{first, second}, nil
		}),
		candidate,
		dispatcher,
		true,
		time.Second,
		zap.NewNop(),
	)

	_, err := reader.QueryFacts(context.Background(), userFilter("user-1"))
	require.NoError(t, err)

	// Let the candidate finish, then confirm nothing was recorded
	select {
	case <-candidate.done:
	case <-time.After(3 * time.Second):
		t.Fatal("candidate never ran")
	}
	select {
	case cmd := <-dispatcher.commands:
		t.Fatalf("unexpected dispatch: %#v", cmd)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestQueryFacts_CandidateErrorReported(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	legacyFacts := []*entities.Fact{testFact(t, "user-1", "alice", "climbing", base)}

	dispatcher := newCaptureDispatcher()
	reader := NewFactReader(
		readerFunc(func(context.Context, ports.FactFilter) ([]*entities.Fact, error) {
			return legacyFacts, nil
		}),
		newCountingReader(nil, errors.New("index not ready")),
		dispatcher,
		true,
		time.Second,
		zap.NewNop(),
	)

	facts, err := reader.QueryFacts(context.Background(), userFilter("user-1"))
	require.NoError(t, err)
	assert.Equal(t, legacyFacts, facts)

	report := dispatcher.waitForDiscrepancy(t)
	assert.Equal(t, "index not ready", report.CandidateErr)
}

func TestQueryFacts_DisabledSkipsCandidate(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	legacyFacts := []*entities.Fact{testFact(t, "user-1", "alice", "climbing", base)}

	candidate := newCountingReader(nil, nil)
	reader := NewFactReader(
		readerFunc(func(context.Context, ports.FactFilter) ([]*entities.Fact, error) {
			return legacyFacts, nil
		}),
		candidate,
		newCaptureDispatcher(),
		false,
		time.Second,
		zap.NewNop(),
	)

	facts, err := reader.QueryFacts(context.Background(), userFilter("user-1"))
	require.NoError(t, err)
	assert.Equal(t, legacyFacts, facts)
	assert.Equal(t, 0, candidate.callCount())
}

func TestQueryFacts_LegacyErrorPropagates(t *testing.T) {
	candidate := newCountingReader(nil, nil)
	reader := NewFactReader(
		readerFunc(func(context.Context, ports.FactFilter) ([]*entities.Fact, error) {
			return nil, errors.New("table unavailable")
		}),
		candidate,
		newCaptureDispatcher(),
		true,
		time.Second,
		zap.NewNop(),
	)

	_, err := reader.QueryFacts(context.Background(), userFilter("user-1"))
	require.Error(t, err)
	assert.Equal(t, 0, candidate.callCount())
}

func TestDiffFactSets_CapsReportedIDs(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	var legacy []*entities.Fact
	for i := 0; i < maxReportedIDs+5; i++ {
		legacy = append(legacy, testFact(t, "user-1", "alice", "climbing", base))
	}

	diff := diffFactSets(legacy, nil)
	assert.Equal(t, maxReportedIDs+5, diff.legacyCount)
	assert.Len(t, diff.missing, maxReportedIDs)
	assert.False(t, diff.equal())
}
