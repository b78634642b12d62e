// Package config loads the tutor's configuration from TUTOR_* environment
// variables, after an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/lessons"
	"github.com/Pavansyamala/agenticAItutor/internal/llm"
	"github.com/Pavansyamala/agenticAItutor/internal/monitor"
	"github.com/Pavansyamala/agenticAItutor/internal/problemgen"
	"github.com/Pavansyamala/agenticAItutor/internal/retrieval"
	"github.com/Pavansyamala/agenticAItutor/internal/session"
	"github.com/Pavansyamala/agenticAItutor/internal/telemetry"
)

// Prefix is prepended to every variable the tutor reads.
const Prefix = "TUTOR_"

// Config is the full tutor configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DBPath overrides the default database location.
	DBPath string `env:"DB"`

	Monitor   monitor.Config    `envPrefix:"MONITOR_"`
	Grading   grading.Config    `envPrefix:"GRADING_"`
	Lessons   lessons.Config    `envPrefix:"LESSON_"`
	Questions problemgen.Config `envPrefix:"QUESTIONS_"`
	Session   session.Config    `envPrefix:"SESSION_"`
	Retrieval retrieval.Config  `envPrefix:"RETRIEVAL_"`
	Telemetry telemetry.Config  `envPrefix:"OTEL_"`
	LLM       llm.Config        `envPrefix:"LLM_"`
}

// Load reads an optional .env file (missing files are ignored) and parses
// the environment. Variables already set win over the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return Parse(nil)
}

// Parse builds a Config from environ, or from the process environment when
// environ is nil.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: Prefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration described by the envDefault tags.
func Default() Config {
	cfg, err := Parse(map[string]string{})
	if err != nil {
		panic(fmt.Sprintf("config: invalid envDefault tag: %v", err))
	}
	return cfg
}

// Validate checks every section except the LLM provider, which is allowed
// to be unconfigured (the tutor then runs on canned fallbacks).
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := c.Monitor.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	}
	if err := c.Grading.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("grading: %w", err))
	}
	if c.Session.RemediationCeiling < 1 {
		errs = append(errs, fmt.Errorf("session: remediation ceiling must be at least 1"))
	}
	if c.Session.MaxCycles < c.Session.RemediationCeiling+1 {
		errs = append(errs, fmt.Errorf("session: max cycles %d must exceed the remediation ceiling %d",
			c.Session.MaxCycles, c.Session.RemediationCeiling))
	}
	if c.Session.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("session: concurrency must be at least 1"))
	}
	if c.Session.TargetMastery <= 0 || c.Session.TargetMastery > 1 {
		errs = append(errs, fmt.Errorf("session: target mastery %.2f outside (0, 1]", c.Session.TargetMastery))
	}
	if c.Lessons.MaxLessonMinutes < 1 {
		errs = append(errs, fmt.Errorf("lessons: max minutes must be at least 1"))
	}
	if c.Questions.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("questions: max tokens must be at least 1"))
	}
	if c.Retrieval.TopK < 1 {
		errs = append(errs, fmt.Errorf("retrieval: top_k must be at least 1"))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewLogger returns a text logger on stderr at the configured level.
func (c Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
