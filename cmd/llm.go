package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Pavansyamala/agenticAItutor/internal/llm"
	"github.com/Pavansyamala/agenticAItutor/internal/store"
	"github.com/Pavansyamala/agenticAItutor/internal/ui/theme"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded model calls",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model calls, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := store.QueryOpts{}
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Kind, _ = cmd.Flags().GetString("purpose")
		opts.ThreadID, _ = cmd.Flags().GetString("thread")

		s, _, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMRequests(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query llm events: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(w, "No model calls recorded.")
			return nil
		}

		fmt.Fprintln(w, theme.Heading.Render(fmt.Sprintf("%-5s  %-19s  %-12s  %-26s  %7s  %7s  %6s",
			"ID", "When", "Role", "Model", "Tokens", "Ms", "")))
		rule(w, 96)
		for _, e := range events {
			status := theme.Good.Render("ok")
			if !e.Success {
				status = theme.Bad.Render("failed")
			}
			fmt.Fprintf(w, "%-5d  %-19s  %-12s  %-26s  %7d  %7d  %s\n",
				e.ID,
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(e.Purpose, 12),
				truncate(e.Model, 26),
				e.InputTokens+e.OutputTokens,
				e.LatencyMs,
				status)
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the captured request and response of one model call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid event id %q", args[0])
		}

		s, _, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMRequest(cmd.Context(), id)
		if store.IsNotFound(err) {
			return fmt.Errorf("no model call with id %d", id)
		}
		if err != nil {
			return fmt.Errorf("get llm event: %w", err)
		}

		w := cmd.OutOrStdout()
		field := func(label, value string) {
			fmt.Fprintf(w, "%s %s\n", theme.Dim.Render(fmt.Sprintf("%-9s", label+":")), value)
		}
		field("Call", strconv.FormatInt(e.ID, 10))
		field("When", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		field("Model", e.Provider+"/"+e.Model)
		field("Role", e.Purpose)
		if e.ThreadID != "" {
			field("Thread", e.ThreadID)
		}
		field("Tokens", fmt.Sprintf("%d in, %d out", e.InputTokens, e.OutputTokens))
		field("Latency", fmt.Sprintf("%dms", e.LatencyMs))
		if e.Success {
			field("Result", theme.Good.Render("ok"))
		} else {
			field("Result", theme.Bad.Render(e.ErrorMessage))
		}
		fmt.Fprintln(w)
		section(w, "Request", e.RequestBody)
		section(w, "Response", e.ResponseBody)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize token usage per tutor role and estimated cost per model",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		usage, err := s.EventRepo().LLMUsage(cmd.Context())
		if err != nil {
			return fmt.Errorf("query llm usage: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(usage) == 0 {
			fmt.Fprintln(w, "No model calls recorded.")
			return nil
		}
		writeRoleUsage(w, usage)
		fmt.Fprintln(w)
		writeModelCost(w, usage)
		return nil
	},
}

type roleTotals struct {
	calls, failures int
	tokens          int64
	latencyMs       float64
}

// writeRoleUsage folds per-model usage rows into one line per tutor role.
func writeRoleUsage(w io.Writer, usage []store.LLMUsage) {
	byRole := make(map[string]*roleTotals)
	for _, u := range usage {
		rt := byRole[u.Purpose]
		if rt == nil {
			rt = &roleTotals{}
			byRole[u.Purpose] = rt
		}
		rt.calls += u.Calls
		rt.failures += u.Failures
		rt.tokens += u.InputTokens + u.OutputTokens
		rt.latencyMs += u.AvgLatencyMs * float64(u.Calls)
	}
	roles := make([]string, 0, len(byRole))
	for r := range byRole {
		roles = append(roles, r)
	}
	sort.Strings(roles)

	fmt.Fprintln(w, theme.Title.Render("Calls by role"))
	fmt.Fprintf(w, "%-16s  %6s  %6s  %10s  %8s\n", "Role", "Calls", "Failed", "Tokens", "Avg ms")
	rule(w, 54)
	var calls int
	var tokens int64
	for _, r := range roles {
		rt := byRole[r]
		avg := 0.0
		if rt.calls > 0 {
			avg = rt.latencyMs / float64(rt.calls)
		}
		fmt.Fprintf(w, "%-16s  %6d  %6d  %10d  %8.0f\n", truncate(r, 16), rt.calls, rt.failures, rt.tokens, avg)
		calls += rt.calls
		tokens += rt.tokens
	}
	rule(w, 54)
	fmt.Fprintf(w, "%-16s  %6d  %6s  %10d\n", "total", calls, "", tokens)
}

func writeModelCost(w io.Writer, usage []store.LLMUsage) {
	fmt.Fprintln(w, theme.Title.Render("Estimated cost (USD)"))
	fmt.Fprintf(w, "%-36s  %6s  %10s\n", "Model / role", "Calls", "Cost")
	rule(w, 56)
	var total float64
	var unpriced []string
	for _, u := range usage {
		label := truncate(u.Model+" / "+u.Purpose, 36)
		price := llm.LookupCost(u.Model)
		if price == nil {
			unpriced = append(unpriced, u.Model)
			fmt.Fprintf(w, "%-36s  %6d  %10s\n", label, u.Calls, "?")
			continue
		}
		c := price.Cost(int(u.InputTokens), int(u.OutputTokens))
		total += c
		fmt.Fprintf(w, "%-36s  %6d  %10s\n", label, u.Calls, formatCost(c))
	}
	rule(w, 56)
	label := "total"
	if len(unpriced) > 0 {
		label = "total (partial)"
	}
	fmt.Fprintf(w, "%-36s  %6s  %10s\n", label, "", formatCost(total))
	if len(unpriced) > 0 {
		fmt.Fprintln(w, theme.Hint.Render("No pricing for: "+strings.Join(unpriced, ", ")))
	}
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by role (lesson, hint, question-gen, grading, remediation)")
	llmListCmd.Flags().String("thread", "", "Filter by thread id")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
