package dynamodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/application/ports"
	"engram/domain/core/valueobjects"
)

func TestTemporalKeyOrderMatchesTimeOrder(t *testing.T) {
	// Whole-second timestamps are exactly where a trimmed layout breaks
	// byte order: without fixed-width fractions, "…T10:00:01Z" sorts
	// after "…T10:00:01.5Z".
	wholeSecond := time.Date(2025, 10, 1, 10, 0, 1, 0, time.UTC)
	laterSameSecond := wholeSecond.Add(500 * time.Millisecond)
	nextSecond := time.Date(2025, 10, 1, 10, 0, 2, 0, time.UTC)

	assert.Less(t, temporalGSI2SK(wholeSecond), temporalGSI2SK(laterSameSecond))
	assert.Less(t, temporalGSI2SK(laterSameSecond), temporalGSI2SK(nextSecond))
	assert.Less(t, activeGSI1SK(true, wholeSecond), activeGSI1SK(true, laterSameSecond))

	// The exclusive range end maps onto the largest key below it
	assert.Less(t, temporalGSI2SK(nextSecond.Add(-time.Nanosecond)), temporalGSI2SK(nextSecond))
}

func TestTemporalKeysAreFixedWidth(t *testing.T) {
	whole := temporalGSI2SK(time.Date(2025, 10, 1, 10, 0, 0, 0, time.UTC))
	fractional := temporalGSI2SK(time.Date(2025, 10, 1, 10, 0, 0, 123456789, time.UTC))
	assert.Len(t, whole, len(fractional))
}

func TestLegacyCriteria_TimeRangeIsHalfOpen(t *testing.T) {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	timeRange, err := valueobjects.NewTimeRange(start, end)
	require.NoError(t, err)

	reader := &LegacyFactReader{}
	criteria := reader.toCriteria(ports.FactFilter{TimeRange: timeRange})

	matches := func(ts time.Time) bool {
		return criteria.Matches(factFieldReader(factItem{Timestamp: timestampKey(ts)}))
	}

	assert.True(t, matches(start), "start is inclusive")
	assert.True(t, matches(end.Add(-time.Nanosecond)))
	assert.False(t, matches(end), "end is exclusive")
	assert.False(t, matches(start.Add(-time.Nanosecond)))
}

func TestLegacyCriteria_TrimmedTimestampsStillOrder(t *testing.T) {
	// v1 records stored trimmed timestamps; their byte order against
	// the fixed-width bounds must still follow time order
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	timeRange, err := valueobjects.NewTimeRange(start, end)
	require.NoError(t, err)

	reader := &LegacyFactReader{}
	criteria := reader.toCriteria(ports.FactFilter{TimeRange: timeRange})

	inRange := factItem{Timestamp: "2025-10-01T12:00:00Z"}
	assert.True(t, criteria.Matches(factFieldReader(inRange)))

	atStart := factItem{Timestamp: "2025-10-01T00:00:00Z"}
	assert.True(t, criteria.Matches(factFieldReader(atStart)))

	atEnd := factItem{Timestamp: "2025-10-02T00:00:00Z"}
	assert.False(t, criteria.Matches(factFieldReader(atEnd)))
}
