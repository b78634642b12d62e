package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Pavansyamala/agenticAItutor/internal/lessons"
	"github.com/Pavansyamala/agenticAItutor/internal/ui/theme"
)

var hintCmd = &cobra.Command{
	Use:   "hint <question>",
	Short: "Ask for a hint on a question without revealing the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, cfg, logger, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		provider := buildProvider(ctx, cfg, s.EventRepo(), logger)
		hint := lessons.NewService(provider, cfg.Lessons, logger).Hint(ctx, strings.Join(args, " "))
		fmt.Fprintln(cmd.OutOrStdout(), theme.Hint.Render(hint))
		return nil
	},
}
