package problemgen

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// Validators is the ordered list of validators to run on every
	// generated question. They execute in order; the first failure
	// drops the question. Nil means DefaultValidators.
	Validators []Validator

	// MaxTokens is the token budget for the LLM response.
	MaxTokens int `env:"MAX_TOKENS" envDefault:"2048"`

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.5"`

	// MaxPriorQuestions is the maximum number of prior questions
	// to include in the prompt for deduplication.
	MaxPriorQuestions int `env:"MAX_PRIOR_QUESTIONS" envDefault:"12"`

	// MaxMisconceptions is the maximum number of misconceptions
	// to include in the prompt for context.
	MaxMisconceptions int `env:"MAX_MISCONCEPTIONS" envDefault:"5"`
}

// DefaultValidators is the standard validator chain.
func DefaultValidators() []Validator {
	return []Validator{
		&StructuralValidator{},
		&DedupValidator{},
		&MathCheckValidator{},
	}
}

// DefaultConfig returns a Config with the standard validator chain
// and recommended defaults.
func DefaultConfig() Config {
	return Config{
		Validators:        DefaultValidators(),
		MaxTokens:         2048,
		Temperature:       0.5,
		MaxPriorQuestions: 12,
		MaxMisconceptions: 5,
	}
}
