package temporal

import (
	"strings"
	"time"

	"engram/domain/core/valueobjects"
)

// Supported temporal expressions. Matching is case-insensitive with
// whitespace collapsed.
const (
	ExprToday     = "today"
	ExprYesterday = "yesterday"
	ExprLastWeek  = "last week"
	ExprLastMonth = "last month"
)

// Parse resolves a natural-language temporal expression into a
// half-open UTC range [start, end) relative to now. Expressions name
// calendar periods: "yesterday" is the previous UTC day, "last week"
// the previous ISO week (Monday through Monday), "last month" the
// previous calendar month. An unrecognized expression returns ok=false
// and the caller applies no time filter; it is not an error.
func Parse(expr string, now time.Time) (valueobjects.TimeRange, bool) {
	now = now.UTC()

	switch normalize(expr) {
	case ExprToday:
		start := startOfDay(now)
		return mustRange(start, start.AddDate(0, 0, 1)), true

	case ExprYesterday:
		end := startOfDay(now)
		return mustRange(end.AddDate(0, 0, -1), end), true

	case ExprLastWeek:
		end := startOfISOWeek(now)
		return mustRange(end.AddDate(0, 0, -7), end), true

	case ExprLastMonth:
		end := startOfMonth(now)
		return mustRange(end.AddDate(0, -1, 0), end), true

	default:
		return valueobjects.TimeRange{}, false
	}
}

// Recognized reports whether the expression maps to a known period
func Recognized(expr string) bool {
	switch normalize(expr) {
	case ExprToday, ExprYesterday, ExprLastWeek, ExprLastMonth:
		return true
	default:
		return false
	}
}

func normalize(expr string) string {
	return strings.Join(strings.Fields(strings.ToLower(expr)), " ")
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// startOfISOWeek returns 00:00 UTC of the Monday of t's week
func startOfISOWeek(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -daysSinceMonday)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// mustRange builds a range whose bounds are constructed ordered
func mustRange(start, end time.Time) valueobjects.TimeRange {
	r, _ := valueobjects.NewTimeRange(start, end)
	return r
}
