package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Pavansyamala/agenticAItutor/internal/config"
	"github.com/Pavansyamala/agenticAItutor/internal/store"
	"github.com/Pavansyamala/agenticAItutor/internal/telemetry"
)

var rootCmd = &cobra.Command{
	Use:           "tutor",
	Short:         "Adaptive mathematics tutor",
	Long:          "tutor teaches a topic, tests the student, grades the answers and decides when they are ready to move on.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides TUTOR_DB env var)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional .env file to load")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(hintCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the .env file named by --env-file and the environment.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then TUTOR_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// openStore loads the configuration and opens the database.
func openStore(cmd *cobra.Command) (*store.Store, config.Config, *slog.Logger, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, config.Config{}, nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, config.Config{}, nil, fmt.Errorf("open database: %w", err)
	}
	return s, cfg, logger, nil
}

// startTelemetry installs the trace exporter and returns its shutdown.
func startTelemetry(ctx context.Context, cfg config.Config, logger *slog.Logger) func() {
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("flush traces", "error", err)
		}
	}
}
