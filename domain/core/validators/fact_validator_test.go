package validators

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "engram/pkg/errors"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestFactValidator_ValidFact(t *testing.T) {
	v := NewFactValidator()

	err := v.ValidateFact(FactInput{
		Subject:    "alice",
		Predicate:  "lives-in",
		Object:     "Paris",
		Confidence: floatPtr(0.9),
		Context:    "mentioned during onboarding chat",
	})

	assert.NoError(t, err)
}

func TestFactValidator_AggregatesFieldErrors(t *testing.T) {
	v := NewFactValidator()

	err := v.ValidateFact(FactInput{
		Subject:    "",
		Predicate:  "",
		Object:     "",
		Confidence: floatPtr(1.5),
	})
	require.Error(t, err)

	var agg *pkgerrors.ValidationErrors
	require.True(t, errors.As(err, &agg))
	assert.Len(t, agg.Errors, 4)
}

func TestFactValidator_FieldRules(t *testing.T) {
	v := NewFactValidator()

	tests := []struct {
		name  string
		input FactInput
		valid bool
	}{
		{
			name:  "missing subject",
			input: FactInput{Predicate: "knows", Object: "bob"},
			valid: false,
		},
		{
			name:  "missing predicate",
			input: FactInput{Subject: "alice", Object: "bob"},
			valid: false,
		},
		{
			name:  "missing object",
			input: FactInput{Subject: "alice", Predicate: "knows"},
			valid: false,
		},
		{
			name:  "whitespace-only subject",
			input: FactInput{Subject: "   ", Predicate: "knows", Object: "bob"},
			valid: false,
		},
		{
			name:  "confidence below range",
			input: FactInput{Subject: "alice", Predicate: "knows", Object: "bob", Confidence: floatPtr(-0.1)},
			valid: false,
		},
		{
			name:  "confidence above range",
			input: FactInput{Subject: "alice", Predicate: "knows", Object: "bob", Confidence: floatPtr(1.01)},
			valid: false,
		},
		{
			name:  "confidence boundary values",
			input: FactInput{Subject: "alice", Predicate: "knows", Object: "bob", Confidence: floatPtr(1.0)},
			valid: true,
		},
		{
			name:  "omitted confidence defaults downstream",
			input: FactInput{Subject: "alice", Predicate: "knows", Object: "bob"},
			valid: true,
		},
		{
			name:  "unknown scope override",
			input: FactInput{Subject: "alice", Predicate: "knows", Object: "bob", Scope: "public"},
			valid: false,
		},
		{
			name:  "explicit private scope",
			input: FactInput{Subject: "alice", Predicate: "knows", Object: "bob", Scope: "private"},
			valid: true,
		},
		{
			name:  "subject too long",
			input: FactInput{Subject: strings.Repeat("a", 513), Predicate: "knows", Object: "bob"},
			valid: false,
		},
		{
			name:  "context too long",
			input: FactInput{Subject: "alice", Predicate: "knows", Object: "bob", Context: strings.Repeat("c", 2001)},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateFact(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFactValidator_ValidateBatch(t *testing.T) {
	v := NewFactValidator()

	assert.Error(t, v.ValidateBatch(nil))
	assert.Error(t, v.ValidateBatch([]FactInput{}))

	small := make([]FactInput, 3)
	assert.NoError(t, v.ValidateBatch(small))

	huge := make([]FactInput, 101)
	assert.Error(t, v.ValidateBatch(huge))
}

func TestOwnerValidator(t *testing.T) {
	v := NewOwnerValidator()

	assert.NoError(t, v.ValidateOwner("user-123"))
	assert.Error(t, v.ValidateOwner(""))
	assert.Error(t, v.ValidateOwner("   "))

	err := v.ValidateOwner("system")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrReservedOwner)
}

func TestQueryValidator_NormalizeLimit(t *testing.T) {
	v := NewQueryValidator()

	assert.Equal(t, 50, v.NormalizeLimit(0))
	assert.Equal(t, 50, v.NormalizeLimit(-10))
	assert.Equal(t, 25, v.NormalizeLimit(25))
	assert.Equal(t, 500, v.NormalizeLimit(9999))
}
