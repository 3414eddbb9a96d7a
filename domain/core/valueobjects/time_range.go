package valueobjects

import (
	"errors"
	"time"
)

// TimeRange is a half-open interval [Start, End) in UTC
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange creates a time range with ordering validation
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !end.After(start) {
		return TimeRange{}, errors.New("time range end must be after start")
	}
	return TimeRange{start: start.UTC(), end: end.UTC()}, nil
}

// Start returns the inclusive start of the range
func (r TimeRange) Start() time.Time {
	return r.start
}

// End returns the exclusive end of the range
func (r TimeRange) End() time.Time {
	return r.end
}

// Contains reports whether t falls within [Start, End)
func (r TimeRange) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(r.start) && t.Before(r.end)
}

// IsZero checks if the range is the zero value
func (r TimeRange) IsZero() bool {
	return r.start.IsZero() && r.end.IsZero()
}

// Equals checks if two ranges cover the same interval
func (r TimeRange) Equals(other TimeRange) bool {
	return r.start.Equal(other.start) && r.end.Equal(other.end)
}
