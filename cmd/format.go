package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/Pavansyamala/agenticAItutor/internal/ui/theme"
)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

// rule writes a dim horizontal separator of width n.
func rule(w io.Writer, n int) {
	fmt.Fprintln(w, theme.Dim.Render(strings.Repeat("─", n)))
}

// section writes a heading followed by body, or a placeholder when body is
// empty.
func section(w io.Writer, heading, body string) {
	rule(w, 60)
	fmt.Fprintln(w, theme.Heading.Render(heading))
	rule(w, 60)
	if strings.TrimSpace(body) == "" {
		body = theme.Dim.Render("(not captured)")
	}
	fmt.Fprintln(w, body)
}
