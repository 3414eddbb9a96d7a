package valueobjects

import (
	"strconv"

	pkgerrors "engram/pkg/errors"
)

// Confidence is a value object for the certainty of a fact, in [0, 1]
type Confidence struct {
	value float64
}

// NewConfidence creates a confidence with range validation
func NewConfidence(value float64) (Confidence, error) {
	if value < 0 || value > 1 {
		return Confidence{}, pkgerrors.ErrConfidenceOutOfRange
	}
	return Confidence{value: value}, nil
}

// Value returns the numeric confidence
func (c Confidence) Value() float64 {
	return c.value
}

// Equals checks if two confidences are equal
func (c Confidence) Equals(other Confidence) bool {
	return c.value == other.value
}

// GreaterThan reports whether c is strictly higher than other
func (c Confidence) GreaterThan(other Confidence) bool {
	return c.value > other.value
}

// Max returns the higher of the two confidences
func (c Confidence) Max(other Confidence) Confidence {
	if other.value > c.value {
		return other
	}
	return c
}

// MarshalJSON implements json.Marshaler
func (c Confidence) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(c.value, 'g', -1, 64)), nil
}
