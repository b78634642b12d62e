package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Pavansyamala/agenticAItutor/internal/mastery"
	"github.com/Pavansyamala/agenticAItutor/internal/store"
	"github.com/Pavansyamala/agenticAItutor/internal/ui/theme"
)

var profileCmd = &cobra.Command{
	Use:   "profile [student-id]",
	Short: "Show a student's mastery, or list every student",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, cfg, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		threshold := cfg.Monitor.Policy.MasteryThreshold
		w := cmd.OutOrStdout()
		if len(args) == 0 {
			profiles, err := s.ProfileRepo().List(ctx)
			if err != nil {
				return fmt.Errorf("list profiles: %w", err)
			}
			if len(profiles) == 0 {
				fmt.Fprintln(w, "No students yet.")
				return nil
			}
			for _, p := range profiles {
				fmt.Fprintf(w, "%-20s  score %s  risk %.2f  topics %d\n",
					truncate(p.StudentID, 20), theme.Score(p.OverallScore, threshold), p.RiskScore, len(p.Mastery))
			}
			return nil
		}

		p, err := s.ProfileRepo().Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		if p == nil {
			return fmt.Errorf("student %q not found", args[0])
		}
		printProfile(cmd, p, threshold)

		if topic, _ := cmd.Flags().GetString("topic"); topic != "" {
			scores, err := s.ProfileRepo().RecentScores(ctx, p.StudentID, topic, 10)
			if err != nil {
				return fmt.Errorf("recent scores: %w", err)
			}
			parts := make([]string, len(scores))
			for i, sc := range scores {
				parts[i] = fmt.Sprintf("%.2f", sc)
			}
			fmt.Fprintf(w, "\nRecent %s scores: %s\n", topic, strings.Join(parts, ", "))
		}
		return nil
	},
}

func printProfile(cmd *cobra.Command, p *store.Profile, threshold float64) {
	w := cmd.OutOrStdout()
	name := p.StudentID
	if p.Name != "" {
		name = p.Name + " (" + p.StudentID + ")"
	}
	fmt.Fprintln(w, theme.Title.Render(name))
	fmt.Fprintf(w, "Last score %s   risk %.2f\n\n", theme.Score(p.OverallScore, threshold), p.RiskScore)

	topics := p.Mastery.Topics()
	if len(topics) == 0 {
		fmt.Fprintln(w, theme.Dim.Render("No topics studied yet."))
	}
	for _, t := range topics {
		v := p.Mastery.Get(t)
		fmt.Fprintf(w, "%-24s %s %.3f  %s\n",
			truncate(t, 24), theme.Bar(v, 20), v, theme.MasteryState(mastery.StateOf(v, threshold)))
	}
	if len(p.Misconceptions) > 0 {
		fmt.Fprintln(w, "\n"+theme.Heading.Render("Misconceptions"))
		for _, m := range p.Misconceptions {
			fmt.Fprintln(w, "  • "+m)
		}
	}
}

func init() {
	profileCmd.Flags().StringP("topic", "t", "", "Also show recent scores for this topic")
}
