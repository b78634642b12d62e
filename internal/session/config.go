package session

// Config bounds the tutoring loop.
type Config struct {
	// RemediationCeiling is how many consecutive remediation decisions a
	// thread may take before it is stopped and escalated.
	RemediationCeiling int `env:"REMEDIATION_CEILING" envDefault:"4"`

	// MaxCycles caps total cycles per thread, across resumes.
	MaxCycles int `env:"MAX_CYCLES" envDefault:"12"`

	// Concurrency limits how many sessions a batch runs at once.
	Concurrency int `env:"CONCURRENCY" envDefault:"4"`

	// TargetMastery is passed to the lesson planner.
	TargetMastery float64 `env:"TARGET_MASTERY" envDefault:"0.8"`
}

// DefaultConfig returns the standard loop bounds.
func DefaultConfig() Config {
	return Config{
		RemediationCeiling: 4,
		MaxCycles:          12,
		Concurrency:        4,
		TargetMastery:      0.8,
	}
}
