package validators

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"engram/domain/config"
	"engram/domain/core/valueobjects"
	"engram/pkg/errors"
)

// FactInput is the raw, untrusted shape of a fact before value objects
// are constructed from it
type FactInput struct {
	Subject    string
	Predicate  string
	Object     string
	Confidence *float64
	Scope      string
	Context    string
}

// FactValidator validates fact-related domain rules before any write
type FactValidator struct {
	termMaxLength      int
	predicateMaxLength int
	contextMaxLength   int
	maxFactsPerWrite   int
}

// NewFactValidator creates a new fact validator with default rules
func NewFactValidator() *FactValidator {
	return NewFactValidatorWithConfig(config.DefaultDomainConfig())
}

// NewFactValidatorWithConfig creates a fact validator from domain configuration
func NewFactValidatorWithConfig(cfg *config.DomainConfig) *FactValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &FactValidator{
		termMaxLength:      cfg.MaxTermLength,
		predicateMaxLength: cfg.MaxPredicateLength,
		contextMaxLength:   cfg.MaxContextLength,
		maxFactsPerWrite:   cfg.MaxFactsPerWrite,
	}
}

// ValidateFact validates a single fact input. All field failures are
// aggregated so the caller can report them per fact in one pass.
func (v *FactValidator) ValidateFact(input FactInput) error {
	validationErrors := errors.NewValidationErrors()

	if err := v.validateTerm("subject", input.Subject); err != nil {
		addFieldError(validationErrors, "subject", err)
	}
	if err := v.validatePredicate(input.Predicate); err != nil {
		addFieldError(validationErrors, "predicate", err)
	}
	if err := v.validateTerm("object", input.Object); err != nil {
		addFieldError(validationErrors, "object", err)
	}
	if err := v.validateConfidence(input.Confidence); err != nil {
		addFieldError(validationErrors, "confidence", err)
	}
	if err := v.validateScope(input.Scope); err != nil {
		addFieldError(validationErrors, "scope", err)
	}
	if err := v.validateContext(input.Context); err != nil {
		addFieldError(validationErrors, "context", err)
	}

	if validationErrors.HasErrors() {
		return validationErrors
	}

	return nil
}

// ValidateBatch validates the size of a write batch
func (v *FactValidator) ValidateBatch(facts []FactInput) error {
	if len(facts) == 0 {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"EMPTY_BATCH",
			"At least one fact is required",
		).WithDetail("field", "facts")
	}

	if len(facts) > v.maxFactsPerWrite {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"BATCH_TOO_LARGE",
			fmt.Sprintf("Cannot write more than %d facts per request", v.maxFactsPerWrite),
		).WithDetail("field", "facts").WithDetail("count", len(facts))
	}

	return nil
}

// validateTerm validates a subject or object
func (v *FactValidator) validateTerm(field, term string) error {
	term = strings.TrimSpace(term)

	if term == "" {
		if field == "subject" {
			return errors.ErrEmptySubject
		}
		return errors.ErrEmptyObject
	}

	if utf8.RuneCountInString(term) > v.termMaxLength {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"TERM_TOO_LONG",
			fmt.Sprintf("%s exceeds maximum length of %d characters", field, v.termMaxLength),
		).WithDetail("field", field).WithDetail("max_length", v.termMaxLength)
	}

	return nil
}

// validatePredicate validates the relation name
func (v *FactValidator) validatePredicate(predicate string) error {
	predicate = strings.TrimSpace(predicate)

	if predicate == "" {
		return errors.ErrEmptyPredicate
	}

	if utf8.RuneCountInString(predicate) > v.predicateMaxLength {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"PREDICATE_TOO_LONG",
			fmt.Sprintf("Predicate exceeds maximum length of %d characters", v.predicateMaxLength),
		).WithDetail("field", "predicate").WithDetail("max_length", v.predicateMaxLength)
	}

	return nil
}

// validateConfidence validates the confidence range when present
func (v *FactValidator) validateConfidence(confidence *float64) error {
	if confidence == nil {
		return nil // Defaults applied downstream
	}

	if *confidence < 0 || *confidence > 1 {
		return errors.ErrConfidenceOutOfRange
	}

	return nil
}

// validateScope validates an explicit scope override when present
func (v *FactValidator) validateScope(scope string) error {
	if scope == "" {
		return nil // Classifier decides
	}

	if _, err := valueobjects.ParseScope(scope); err != nil {
		return err
	}

	return nil
}

// validateContext validates the free-text context
func (v *FactValidator) validateContext(context string) error {
	if utf8.RuneCountInString(context) > v.contextMaxLength {
		return errors.ErrFactContextTooLong
	}

	return nil
}

// OwnerValidator validates owner identifiers on write and query paths
type OwnerValidator struct{}

// NewOwnerValidator creates a new owner validator
func NewOwnerValidator() *OwnerValidator {
	return &OwnerValidator{}
}

// ValidateOwner rejects empty and reserved owner ids. The system
// singleton owns shared memory and can never be claimed by a request.
func (v *OwnerValidator) ValidateOwner(ownerUserID string) error {
	ownerUserID = strings.TrimSpace(ownerUserID)

	if ownerUserID == "" {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"OWNER_REQUIRED",
			"Owner user id is required",
		).WithDetail("field", "owner_user_id")
	}

	if ownerUserID == valueobjects.SystemOwnerID {
		return errors.ErrReservedOwner
	}

	return nil
}

// QueryValidator validates query-related domain rules
type QueryValidator struct {
	defaultLimit int
	maxLimit     int
}

// NewQueryValidator creates a new query validator
func NewQueryValidator() *QueryValidator {
	return NewQueryValidatorWithConfig(config.DefaultDomainConfig())
}

// NewQueryValidatorWithConfig creates a query validator from domain configuration
func NewQueryValidatorWithConfig(cfg *config.DomainConfig) *QueryValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &QueryValidator{
		defaultLimit: cfg.DefaultQueryLimit,
		maxLimit:     cfg.MaxQueryLimit,
	}
}

// NormalizeLimit clamps a requested result limit into its allowed range
func (v *QueryValidator) NormalizeLimit(limit int) int {
	if limit <= 0 {
		return v.defaultLimit
	}
	if limit > v.maxLimit {
		return v.maxLimit
	}
	return limit
}

// addFieldError folds a single-field failure into the aggregate
func addFieldError(agg *errors.ValidationErrors, field string, err error) {
	if domainErr, ok := err.(*errors.DomainError); ok {
		agg.AddError(domainErr)
		return
	}
	agg.Add(field, err.Error())
}
