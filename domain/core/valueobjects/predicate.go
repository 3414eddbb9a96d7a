package valueobjects

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"engram/domain/config"
	pkgerrors "engram/pkg/errors"
)

// Predicate is a value object for the relation of a fact. Predicates
// are stored in normalized form: lowercase, with internal whitespace
// collapsed to single hyphens ("lives in" and "lives-in" are the same
// relation).
type Predicate struct {
	value string
}

// NewPredicate creates a predicate with validation using default configuration
func NewPredicate(raw string) (Predicate, error) {
	return NewPredicateWithConfig(raw, config.DefaultDomainConfig())
}

// NewPredicateWithConfig creates a predicate with validation and configuration
func NewPredicateWithConfig(raw string, cfg *config.DomainConfig) (Predicate, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	normalized := normalizePredicate(raw)
	if normalized == "" {
		return Predicate{}, pkgerrors.NewValidationError("predicate cannot be empty")
	}

	if utf8.RuneCountInString(normalized) > cfg.MaxPredicateLength {
		return Predicate{}, fmt.Errorf("predicate exceeds maximum length of %d characters", cfg.MaxPredicateLength)
	}

	return Predicate{value: normalized}, nil
}

// ReconstructPredicate recreates a predicate from stored data without validation
func ReconstructPredicate(value string) Predicate {
	return Predicate{value: normalizePredicate(value)}
}

// String returns the normalized predicate
func (p Predicate) String() string {
	return p.value
}

// Equals checks if two predicates are the same relation
func (p Predicate) Equals(other Predicate) bool {
	return p.value == other.value
}

// IsZero checks if the predicate is the zero value
func (p Predicate) IsZero() bool {
	return p.value == ""
}

// MarshalJSON implements json.Marshaler
func (p Predicate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.value + `"`), nil
}

func normalizePredicate(raw string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	return strings.Join(fields, "-")
}
