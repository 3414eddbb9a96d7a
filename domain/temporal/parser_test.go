package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Yesterday(t *testing.T) {
	// 2025-10-29 is a Wednesday
	now := time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)

	r, ok := Parse("yesterday", now)
	require.True(t, ok)

	assert.Equal(t, time.Date(2025, 10, 28, 0, 0, 0, 0, time.UTC), r.Start())
	assert.Equal(t, time.Date(2025, 10, 29, 0, 0, 0, 0, time.UTC), r.End())
}

func TestParse_Today(t *testing.T) {
	now := time.Date(2025, 10, 29, 23, 59, 59, 0, time.UTC)

	r, ok := Parse("today", now)
	require.True(t, ok)

	assert.Equal(t, time.Date(2025, 10, 29, 0, 0, 0, 0, time.UTC), r.Start())
	assert.Equal(t, time.Date(2025, 10, 30, 0, 0, 0, 0, time.UTC), r.End())
}

func TestParse_LastWeek(t *testing.T) {
	// Wednesday; last ISO week runs Monday the 20th through Monday the 27th
	now := time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)

	r, ok := Parse("last week", now)
	require.True(t, ok)

	assert.Equal(t, time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC), r.Start())
	assert.Equal(t, time.Date(2025, 10, 27, 0, 0, 0, 0, time.UTC), r.End())
}

func TestParse_LastWeekFromMonday(t *testing.T) {
	// Queried on a Monday the previous week is still Monday to Monday
	now := time.Date(2025, 10, 27, 0, 30, 0, 0, time.UTC)

	r, ok := Parse("last week", now)
	require.True(t, ok)

	assert.Equal(t, time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC), r.Start())
	assert.Equal(t, time.Date(2025, 10, 27, 0, 0, 0, 0, time.UTC), r.End())
}

func TestParse_LastWeekFromSunday(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday
	now := time.Date(2025, 11, 2, 18, 0, 0, 0, time.UTC)

	r, ok := Parse("last week", now)
	require.True(t, ok)

	assert.Equal(t, time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC), r.Start())
	assert.Equal(t, time.Date(2025, 10, 27, 0, 0, 0, 0, time.UTC), r.End())
}

func TestParse_LastMonth(t *testing.T) {
	now := time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)

	r, ok := Parse("last month", now)
	require.True(t, ok)

	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), r.Start())
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), r.End())
}

func TestParse_LastMonthAcrossYearBoundary(t *testing.T) {
	now := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	r, ok := Parse("last month", now)
	require.True(t, ok)

	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), r.Start())
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), r.End())
}

func TestParse_NormalizesCaseAndWhitespace(t *testing.T) {
	now := time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)

	for _, expr := range []string{"Yesterday", "  YESTERDAY  ", "yesterday"} {
		_, ok := Parse(expr, now)
		assert.True(t, ok, "expression %q should parse", expr)
	}

	r, ok := Parse("  Last   Week ", now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC), r.Start())
}

func TestParse_UnrecognizedIsNotAnError(t *testing.T) {
	now := time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)

	for _, expr := range []string{"", "random words", "two weeks ago", "tomorrow", "last year"} {
		r, ok := Parse(expr, now)
		assert.False(t, ok, "expression %q should not parse", expr)
		assert.True(t, r.IsZero())
	}
}

func TestParse_NonUTCNowIsNormalized(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	// 03:00 on the 30th in UTC+5 is 22:00 on the 29th in UTC
	now := time.Date(2025, 10, 30, 3, 0, 0, 0, loc)

	r, ok := Parse("today", now)
	require.True(t, ok)

	assert.Equal(t, time.Date(2025, 10, 29, 0, 0, 0, 0, time.UTC), r.Start())
}

func TestParse_HalfOpenBounds(t *testing.T) {
	now := time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)

	r, ok := Parse("yesterday", now)
	require.True(t, ok)

	assert.True(t, r.Contains(time.Date(2025, 10, 28, 0, 0, 0, 0, time.UTC)), "start is inclusive")
	assert.True(t, r.Contains(time.Date(2025, 10, 28, 23, 59, 59, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2025, 10, 29, 0, 0, 0, 0, time.UTC)), "end is exclusive")
	assert.False(t, r.Contains(time.Date(2025, 10, 27, 23, 59, 59, 0, time.UTC)))
}

func TestRecognized(t *testing.T) {
	assert.True(t, Recognized("today"))
	assert.True(t, Recognized("Last Month"))
	assert.False(t, Recognized("next tuesday"))
}
