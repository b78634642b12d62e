package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pavansyamala/agenticAItutor/internal/store"
	"github.com/Pavansyamala/agenticAItutor/internal/ui/theme"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List gate decisions and loop-safety stops",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := store.QueryOpts{}
		opts.StudentID, _ = cmd.Flags().GetString("student")
		opts.ThreadID, _ = cmd.Flags().GetString("thread")
		opts.Topic, _ = cmd.Flags().GetString("topic")
		opts.Kind, _ = cmd.Flags().GetString("kind")
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		showHistory, _ := cmd.Flags().GetBool("history")

		s, _, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		w := cmd.OutOrStdout()
		if showHistory {
			events, err := s.HistoryRepo().Query(ctx, opts)
			if err != nil {
				return fmt.Errorf("query history: %w", err)
			}
			for _, ev := range events {
				payload, _ := json.Marshal(ev.Payload)
				fmt.Fprintf(w, "%-6d  %s  %-14s  %-20s  %s\n",
					ev.Sequence, ev.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					truncate(ev.StudentID, 14), ev.EventType, payload)
			}
			return nil
		}

		records, err := s.AuditRepo().Query(ctx, opts)
		if err != nil {
			return fmt.Errorf("query audit: %w", err)
		}
		if len(records) == 0 {
			fmt.Fprintln(w, "No audit records found.")
			return nil
		}
		for _, r := range records {
			kind := theme.Heading.Render(r.Kind)
			if r.Kind == store.AuditLoopSafetyStop {
				kind = theme.Bad.Render(r.Kind)
			}
			payload, _ := json.MarshalIndent(r.Payload, "  ", "  ")
			fmt.Fprintf(w, "%s  %s  %s  %s/%s\n  %s\n",
				theme.Dim.Render(fmt.Sprintf("#%d", r.Sequence)),
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				kind, r.StudentID, r.Topic, payload)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().String("student", "", "Filter by student id")
	auditCmd.Flags().String("thread", "", "Filter by thread id")
	auditCmd.Flags().String("topic", "", "Filter by topic")
	auditCmd.Flags().String("kind", "", "Filter by record kind (monitor_decision, loop_safety_stop) or event type with --history")
	auditCmd.Flags().IntP("limit", "n", 50, "Maximum records to show")
	auditCmd.Flags().Bool("history", false, "Show learning history events instead of audit records")
}
