package lessons

// Config holds lesson generation settings.
type Config struct {
	MaxTokens   int     `env:"MAX_TOKENS" envDefault:"1024"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.4"`

	// MaxLessonMinutes is the time budget given to the planner.
	MaxLessonMinutes int `env:"MAX_MINUTES" envDefault:"15"`

	// SummaryThreshold is the character count of the misconception list
	// above which it is compressed before prompting.
	SummaryThreshold int `env:"SUMMARY_THRESHOLD" envDefault:"800"`
}

// DefaultConfig returns sensible defaults for lesson generation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:        1024,
		Temperature:      0.4,
		MaxLessonMinutes: 15,
		SummaryThreshold: 800,
	}
}

// CompressorConfig holds compression settings.
type CompressorConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultCompressorConfig returns sensible defaults for compression.
func DefaultCompressorConfig() CompressorConfig {
	return CompressorConfig{
		MaxTokens:   256,
		Temperature: 0.3,
	}
}
