package valueobjects

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"engram/domain/config"
	pkgerrors "engram/pkg/errors"
)

// Term is a value object for a fact subject or object. Two terms with
// the same normalized key refer to the same entity regardless of
// casing or surrounding whitespace.
type Term struct {
	display string
	key     string
}

// NewTerm creates a term with validation using default configuration
func NewTerm(raw string) (Term, error) {
	return NewTermWithConfig(raw, config.DefaultDomainConfig())
}

// NewTermWithConfig creates a term with validation and configuration
func NewTermWithConfig(raw string, cfg *config.DomainConfig) (Term, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	display := strings.Join(strings.Fields(raw), " ")
	if display == "" {
		return Term{}, pkgerrors.NewValidationError("term cannot be empty")
	}

	if utf8.RuneCountInString(display) > cfg.MaxTermLength {
		return Term{}, fmt.Errorf("term exceeds maximum length of %d characters", cfg.MaxTermLength)
	}

	return Term{
		display: display,
		key:     strings.ToLower(display),
	}, nil
}

// ReconstructTerm recreates a term from stored data without validation
func ReconstructTerm(display string) Term {
	return Term{
		display: display,
		key:     strings.ToLower(display),
	}
}

// String returns the display form of the term
func (t Term) String() string {
	return t.display
}

// Key returns the normalized identity key of the term
func (t Term) Key() string {
	return t.key
}

// Equals checks if two terms refer to the same entity
func (t Term) Equals(other Term) bool {
	return t.key == other.key
}

// IsZero checks if the term is the zero value
func (t Term) IsZero() bool {
	return t.key == ""
}

// MarshalJSON implements json.Marshaler
func (t Term) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.display + `"`), nil
}
