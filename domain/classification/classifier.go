package classification

import (
	"strings"

	"engram/domain/config"
	"engram/domain/core/valueobjects"
)

// Decision is the outcome of classifying a memory
type Decision struct {
	Scope         valueobjects.Scope
	MatchedSignal string
	Defaulted     bool
}

// Classifier decides whether a memory is private or shared. Signal
// lists are plain data injected at construction, so deployments tune
// them without code changes. Private signals are evaluated first and
// win unconditionally; when nothing matches, the memory defaults to
// private. A wrong shared-to-private call costs retrieval quality, a
// wrong private-to-shared call leaks someone's memory.
type Classifier struct {
	privateSignals []string
	sharedSignals  []string
}

// NewClassifier creates a classifier from explicit signal lists
func NewClassifier(privateSignals, sharedSignals []string) *Classifier {
	return &Classifier{
		privateSignals: lowercaseAll(privateSignals),
		sharedSignals:  lowercaseAll(sharedSignals),
	}
}

// NewClassifierFromConfig creates a classifier from domain configuration
func NewClassifierFromConfig(cfg *config.DomainConfig) *Classifier {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return NewClassifier(cfg.PrivateSignals, cfg.SharedSignals)
}

// Classify decides the scope of a memory from its text
func (c *Classifier) Classify(content string) Decision {
	text := strings.ToLower(content)

	for _, signal := range c.privateSignals {
		if strings.Contains(text, signal) {
			return Decision{Scope: valueobjects.ScopePrivate, MatchedSignal: signal}
		}
	}

	for _, signal := range c.sharedSignals {
		if strings.Contains(text, signal) {
			return Decision{Scope: valueobjects.ScopeShared, MatchedSignal: signal}
		}
	}

	return Decision{Scope: valueobjects.ScopePrivate, Defaulted: true}
}

// ClassifyFact classifies a fact from its triple and context
func (c *Classifier) ClassifyFact(subject, predicate, object, context string) Decision {
	parts := []string{subject, predicate, object}
	if context != "" {
		parts = append(parts, context)
	}
	return c.Classify(strings.Join(parts, " "))
}

func lowercaseAll(signals []string) []string {
	out := make([]string, len(signals))
	for i, s := range signals {
		out[i] = strings.ToLower(s)
	}
	return out
}
