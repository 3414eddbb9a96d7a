package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"engram/domain/config"
	"engram/domain/core/valueobjects"
)

func TestClassifier_PrivateSignalWins(t *testing.T) {
	c := NewClassifier(
		[]string{"my ", "personal"},
		[]string{"the team"},
	)

	d := c.Classify("my favorite restaurant is Luigi's")

	assert.Equal(t, valueobjects.ScopePrivate, d.Scope)
	assert.Equal(t, "my ", d.MatchedSignal)
	assert.False(t, d.Defaulted)
}

func TestClassifier_PrivateBeatsSharedWhenBothMatch(t *testing.T) {
	c := NewClassifier(
		[]string{"personal"},
		[]string{"the team"},
	)

	// Both signal sets match; private is evaluated first and wins
	// unconditionally
	d := c.Classify("personal notes about the team standup")

	assert.Equal(t, valueobjects.ScopePrivate, d.Scope)
	assert.Equal(t, "personal", d.MatchedSignal)
}

func TestClassifier_SharedSignal(t *testing.T) {
	c := NewClassifier(
		[]string{"my "},
		[]string{"the team", "company policy"},
	)

	d := c.Classify("The Team ships releases on Thursdays")

	assert.Equal(t, valueobjects.ScopeShared, d.Scope)
	assert.Equal(t, "the team", d.MatchedSignal)
	assert.False(t, d.Defaulted)
}

func TestClassifier_DefaultsToPrivate(t *testing.T) {
	c := NewClassifier(
		[]string{"my "},
		[]string{"the team"},
	)

	d := c.Classify("water boils at 100 degrees")

	assert.Equal(t, valueobjects.ScopePrivate, d.Scope)
	assert.True(t, d.Defaulted)
	assert.Empty(t, d.MatchedSignal)
}

func TestClassifier_CaseInsensitiveSignals(t *testing.T) {
	c := NewClassifier(
		[]string{"MY PASSWORD"},
		nil,
	)

	d := c.Classify("here is my password for the wifi")

	assert.Equal(t, valueobjects.ScopePrivate, d.Scope)
	assert.False(t, d.Defaulted)
}

func TestClassifier_SignalOrderRespected(t *testing.T) {
	c := NewClassifier(
		[]string{"confidential", "private"},
		nil,
	)

	d := c.Classify("private and confidential")

	// First matching signal in list order is reported
	assert.Equal(t, "confidential", d.MatchedSignal)
}

func TestClassifier_ClassifyFact(t *testing.T) {
	c := NewClassifierFromConfig(config.DefaultDomainConfig())

	tests := []struct {
		name      string
		subject   string
		predicate string
		object    string
		context   string
		want      valueobjects.Scope
	}{
		{
			name:      "context carries the private signal",
			subject:   "alice",
			predicate: "lives-in",
			object:    "Paris",
			context:   "from my diary entry",
			want:      valueobjects.ScopePrivate,
		},
		{
			name:      "shared signal in object",
			subject:   "standup",
			predicate: "scheduled-at",
			object:    "9am for the team",
			want:      valueobjects.ScopeShared,
		},
		{
			name:      "no signals default private",
			subject:   "paris",
			predicate: "is-capital-of",
			object:    "France",
			want:      valueobjects.ScopePrivate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.ClassifyFact(tt.subject, tt.predicate, tt.object, tt.context)
			assert.Equal(t, tt.want, d.Scope)
		})
	}
}
