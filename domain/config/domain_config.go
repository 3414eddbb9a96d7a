package config

import "time"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Fact constraints
	MaxTermLength      int
	MaxPredicateLength int
	MaxContextLength   int
	MaxFactsPerWrite   int
	DefaultConfidence  float64

	// Contradiction rules
	ExclusivePredicates []string

	// Classification signals, evaluated in order. Private signals are
	// checked first and always win.
	PrivateSignals []string
	SharedSignals  []string

	// Working memory tuning
	WorkingMemoryWindow time.Duration
	InitialMentionScore float64
	RepeatMentionBoost  float64
	DecayFloor          float64
	MaxTrackedUsers     int
	MaxTopicsPerUser    int

	// Query limits
	DefaultQueryLimit int
	MaxQueryLimit     int

	// Shadow validation
	ShadowCandidateTimeout time.Duration

	// Validation settings
	AllowEmptyContext bool

	// Feature flags
	EnableShadowReads     bool
	EnableEventPublishing bool
	EnableRealTimeSync    bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Fact constraints
		MaxTermLength:      512,
		MaxPredicateLength: 128,
		MaxContextLength:   2000,
		MaxFactsPerWrite:   100,
		DefaultConfidence:  1.0,

		// Contradiction rules
		ExclusivePredicates: []string{
			"lives-in",
			"works-at",
			"is-married-to",
			"has-age",
		},

		// Classification signals
		PrivateSignals: []string{
			"my ",
			"i am",
			"i'm",
			"i have",
			"i feel",
			"i think",
			"my password",
			"my salary",
			"my health",
			"my family",
			"personal",
			"private",
			"confidential",
		},
		SharedSignals: []string{
			"the team",
			"our project",
			"the company",
			"everyone",
			"the office",
			"the org",
			"company policy",
			"public",
		},

		// Working memory tuning
		WorkingMemoryWindow: 15 * time.Minute,
		InitialMentionScore: 1.0,
		RepeatMentionBoost:  0.2,
		DecayFloor:          0.1,
		MaxTrackedUsers:     1000,
		MaxTopicsPerUser:    200,

		// Query limits
		DefaultQueryLimit: 50,
		MaxQueryLimit:     500,

		// Shadow validation
		ShadowCandidateTimeout: 2 * time.Second,

		// Validation settings
		AllowEmptyContext: true,

		// Feature flags
		EnableShadowReads:     false,
		EnableEventPublishing: true,
		EnableRealTimeSync:    true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More restrictive limits for production
	config.MaxFactsPerWrite = 50
	config.MaxQueryLimit = 200
	config.MaxTrackedUsers = 10000

	// Shadow reads run in production while the new read path proves out
	config.EnableShadowReads = true

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development
	config.MaxFactsPerWrite = 500
	config.MaxQueryLimit = 1000
	config.WorkingMemoryWindow = 5 * time.Minute

	config.EnableShadowReads = true

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// IsExclusivePredicate reports whether the predicate admits only one
// active object per subject
func (c *DomainConfig) IsExclusivePredicate(predicate string) bool {
	for _, p := range c.ExclusivePredicates {
		if p == predicate {
			return true
		}
	}
	return false
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	return nil
}
