package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/session"
	"github.com/Pavansyamala/agenticAItutor/internal/ui/theme"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Tutor one student on one topic",
	Long: "run teaches the topic, asks questions on the terminal (or takes them from --answers), " +
		"grades them and repeats until the student may advance or the thread is stopped for review.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		student, _ := cmd.Flags().GetString("student")
		topic, _ := cmd.Flags().GetString("topic")
		thread, _ := cmd.Flags().GetString("thread")
		gap, _ := cmd.Flags().GetFloat64("confidence-gap")

		answers, err := answerSource(cmd)
		if err != nil {
			return err
		}

		s, cfg, logger, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		defer startTelemetry(ctx, cfg, logger)()

		coord := newCoordinator(ctx, s, cfg, answers, logger)
		res, err := coord.Run(ctx, session.Request{
			StudentID:     student,
			Topic:         topic,
			ThreadID:      thread,
			ConfidenceGap: gap,
		})
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res, cfg.Monitor.Policy.MasteryThreshold)
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <thread-id>",
	Short: "Continue a thread from its last checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		answers, err := answerSource(cmd)
		if err != nil {
			return err
		}

		s, cfg, logger, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		defer startTelemetry(ctx, cfg, logger)()

		res, err := newCoordinator(ctx, s, cfg, answers, logger).Resume(ctx, args[0])
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res, cfg.Monitor.Policy.MasteryThreshold)
		return nil
	},
}

// answerSource returns the --answers file, or the terminal when none is
// given.
func answerSource(cmd *cobra.Command) (session.AnswerSource, error) {
	path, _ := cmd.Flags().GetString("answers")
	if path == "" {
		return &consoleAnswers{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}, nil
	}
	return loadAnswers(path)
}

func loadAnswers(path string) (session.StaticAnswers, error) {
	var a session.StaticAnswers
	data, err := os.ReadFile(path)
	if err != nil {
		return a, fmt.Errorf("read answers: %w", err)
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("parse answers %s: %w", path, err)
	}
	return a, nil
}

// consoleAnswers shows the lesson and questions and reads one line per
// answer.
type consoleAnswers struct {
	in  *bufio.Reader
	out io.Writer
}

func (c *consoleAnswers) Answers(ctx context.Context, req session.AnswerRequest) ([]grading.Answer, error) {
	fmt.Fprintln(c.out, theme.Title.Render(fmt.Sprintf("%s · cycle %d", req.Topic, req.Cycle)))
	if req.Lesson != nil {
		var b strings.Builder
		for i, step := range req.Lesson.Plan {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%s %s\n%s", theme.Heading.Render(step.Step), theme.Dim.Render(fmt.Sprintf("(%d min)", step.DurationMin)), step.Content)
		}
		fmt.Fprintln(c.out, theme.Card.Render(b.String()))
	}

	out := make([]grading.Answer, 0, len(req.Questions))
	for i, q := range req.Questions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fmt.Fprintf(c.out, "\n%s %s\n%s\n> ",
			theme.Heading.Render(fmt.Sprintf("Q%d", i+1)),
			theme.Dim.Render("["+string(q.Type)+"]"),
			q.Prompt)
		line, err := c.in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, session.ErrNoAnswers
			}
			return nil, fmt.Errorf("read answer: %w", err)
		}
		out = append(out, grading.Answer{QuestionID: q.ID, Text: strings.TrimSpace(line)})
	}
	fmt.Fprintln(c.out)
	return out, nil
}

func printResult(w io.Writer, res *session.Result, threshold float64) {
	fmt.Fprintln(w, theme.Title.Render("Thread "+res.ThreadID))
	for _, c := range res.Cycles {
		fmt.Fprintf(w, "  cycle %-2d  score %s  risk %.2f  mastery %.3f → %.3f  %s\n",
			c.Cycle,
			theme.Score(c.Score, threshold),
			c.RiskScore,
			c.PrevMastery,
			c.Mastery,
			theme.GateState(c.Decision.State()),
		)
	}
	for _, tag := range res.Summary.Misconceptions {
		fmt.Fprintln(w, "  "+theme.Warn.Render("•")+" "+tag)
	}

	switch {
	case res.ForcedStop:
		fmt.Fprintln(w, theme.Bad.Render("Stopped after repeated remediation; schedule a human review."))
	case res.ReadyToAdvance:
		fmt.Fprintln(w, theme.Good.Render("Ready to advance."))
	default:
		fmt.Fprintln(w, theme.Warn.Render("Not ready to advance yet."))
	}
	if plan := res.Decision.Remediation; plan != nil {
		fmt.Fprintf(w, "%s (%s)\n", theme.Heading.Render("Next steps"), plan.RecommendedMode)
		for i, step := range plan.Steps {
			fmt.Fprintf(w, "  %d. %s\n", i+1, step)
		}
	}
	if res.Decision.Notes != "" {
		fmt.Fprintln(w, theme.Hint.Render(res.Decision.Notes))
	}
}

func init() {
	runCmd.Flags().StringP("student", "s", "", "Student id")
	runCmd.Flags().StringP("topic", "t", "", "Topic to tutor")
	runCmd.Flags().String("thread", "", "Thread id (generated when empty)")
	runCmd.Flags().Float64("confidence-gap", 0, "Self-reported confidence minus measured performance, in [-1, 1]")
	runCmd.Flags().String("answers", "", `JSON answer file: {"answers": {"Q1": "..."}, "default": "..."}`)
	_ = runCmd.MarkFlagRequired("student")
	_ = runCmd.MarkFlagRequired("topic")

	resumeCmd.Flags().String("answers", "", "JSON answer file (reads from the terminal when empty)")
}
