package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/symbolic"
	"github.com/Pavansyamala/agenticAItutor/internal/ui/theme"
)

var checkCmd = &cobra.Command{
	Use:   "check <answer> <expected>",
	Short: "Check an answer against an expected expression, matrix or equation",
	Long: "check runs the symbolic checker the grader uses. With --solve, <expected> is an " +
		"equation and <answer> the proposed values of the variable.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		variable, _ := cmd.Flags().GetString("solve")
		asMatrix, _ := cmd.Flags().GetBool("matrix")

		checker := symbolic.New(nil)
		var res symbolic.Result
		switch {
		case variable != "":
			res = checker.VerifySolution(args[0], args[1], variable)
		case asMatrix || grading.IsMatrixLike(args[1]):
			res = checker.VerifyMatrix(args[0], args[1])
		default:
			res = checker.VerifyEquality(args[0], args[1])
		}

		w := cmd.OutOrStdout()
		switch {
		case !res.Parsed:
			fmt.Fprintln(w, theme.Warn.Render("unparsed"), res.Feedback)
		case res.Correct:
			fmt.Fprintln(w, theme.Good.Render("correct"), res.Feedback)
		default:
			fmt.Fprintln(w, theme.Bad.Render("incorrect"), res.Feedback)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().String("solve", "", "Treat <expected> as an equation in this variable")
	checkCmd.Flags().Bool("matrix", false, "Compare as matrices")
}
