package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Pavansyamala/agenticAItutor/internal/session"
	"github.com/Pavansyamala/agenticAItutor/internal/ui/theme"
)

// batchEntry is one line of a batch file.
type batchEntry struct {
	StudentID     string  `json:"student_id"`
	Topic         string  `json:"topic"`
	ThreadID      string  `json:"thread_id,omitempty"`
	ConfidenceGap float64 `json:"confidence_gap,omitempty"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <requests.json>",
	Short: "Run many tutoring threads concurrently with scripted answers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("concurrency")
		answersPath, _ := cmd.Flags().GetString("answers")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read batch file: %w", err)
		}
		var entries []batchEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("parse batch file: %w", err)
		}
		answers, err := loadAnswers(answersPath)
		if err != nil {
			return err
		}

		s, cfg, logger, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		defer startTelemetry(ctx, cfg, logger)()

		reqs := make([]session.Request, len(entries))
		for i, e := range entries {
			reqs[i] = session.Request{
				StudentID:     e.StudentID,
				Topic:         e.Topic,
				ThreadID:      e.ThreadID,
				ConfidenceGap: e.ConfidenceGap,
			}
		}

		results, runErr := newCoordinator(ctx, s, cfg, answers, logger).RunAll(ctx, reqs, limit)
		threshold := cfg.Monitor.Policy.MasteryThreshold
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-16s  %-20s  %6s  %5s  %8s  %s\n", "Student", "Topic", "Cycles", "Score", "Mastery", "Outcome")
		for _, r := range results {
			if r == nil {
				continue
			}
			outcome := theme.GateState(r.Decision.State())
			if r.ForcedStop {
				outcome = theme.Bad.Render("stopped")
			}
			fmt.Fprintf(w, "%-16s  %-20s  %6d  %s  %8.3f  %s\n",
				truncate(r.StudentID, 16), truncate(r.Topic, 20), len(r.Cycles),
				theme.Score(r.Summary.OverallScore, threshold), r.Mastery, outcome)
		}
		return runErr
	},
}

func init() {
	batchCmd.Flags().IntP("concurrency", "c", 0, "Sessions to run at once (default from TUTOR_SESSION_CONCURRENCY)")
	batchCmd.Flags().String("answers", "", "JSON answer file used for every student")
	_ = batchCmd.MarkFlagRequired("answers")
}
