package problemgen

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are the evaluation agent of an adaptive mathematics tutor for university and senior school students.

Rules:
- Generate exactly the requested number of questions of each type for the given topic.
- Integrate the background material into the question text in 1-3 sentences. Never mention that background material was provided.
- Every question needs a unique qid, a type, a prompt, an expected_solution and a rubric.
- For procedural and application questions the expected_solution must be a single expression or equation that can be checked symbolically, e.g. "x = 3", "(x+1)^2" or "[[1,0],[0,1]]". Never glue several expressions together.
- For conceptual, geometric and open-ended questions the expected_solution is short reasoning.
- Rubrics name their parts and marks, e.g. {"parts": [{"name": "method", "marks": 4}, {"name": "accuracy", "marks": 6}]}.
- Target the student's known weaknesses where possible.
- Do not repeat any question from the "already asked" list.
- Return ONLY the JSON object.`

// buildUserMessage constructs the user message from Input and Config limits.
func buildUserMessage(input Input, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", input.Topic)
	b.WriteString("Questions to generate:\n")
	for _, tc := range input.plan() {
		fmt.Fprintf(&b, "- %s: %d\n", tc.Type, tc.Count)
	}

	b.WriteString("\nBackground material:\n")
	if strings.TrimSpace(input.Context) == "" {
		b.WriteString("None")
	} else {
		b.WriteString(input.Context)
	}

	b.WriteString("\n\nAlready asked in this session:\n")
	b.WriteString(buildDedup(input.PriorQuestions, cfg.MaxPriorQuestions))

	b.WriteString("\n\nKnown weaknesses of this student:\n")
	b.WriteString(buildMisconceptions(input.Misconceptions, cfg.MaxMisconceptions))

	return b.String()
}

// buildMisconceptions formats misconceptions for the prompt, respecting the max limit.
func buildMisconceptions(items []string, max int) string {
	if len(items) == 0 {
		return "None"
	}

	// Keep only the most recent N.
	if max > 0 && len(items) > max {
		items = items[len(items)-max:]
	}

	var b strings.Builder
	for i, e := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e)
	}
	return strings.TrimRight(b.String(), "\n")
}
