package problemgen

import (
	"fmt"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
)

var cannedPrompts = map[grading.QuestionType][]string{
	grading.TypeConceptual: {
		"Explain the central idea of %s in your own words.",
		"Describe a common mistake students make with %s and why it is wrong.",
	},
	grading.TypeProcedural: {
		"Work through a standard %s problem of your choice, showing every step.",
		"List the steps of the main %s procedure and apply them to a small example.",
	},
	grading.TypeApplication: {
		"Describe a real-world situation where %s is used and solve a simple instance of it.",
	},
	grading.TypeGeometric: {
		"Sketch and describe a figure that illustrates %s.",
	},
	grading.TypeOpenEnded: {
		"What question about %s would you like to explore further, and how would you start?",
	},
}

var cannedSolutions = map[grading.QuestionType]string{
	grading.TypeConceptual:  "A correct statement of the key definition of %s and when it applies.",
	grading.TypeProcedural:  "A complete sequence of correct steps for %s with a verified result.",
	grading.TypeApplication: "A sensible model of the situation using %s and a correct solution.",
	grading.TypeGeometric:   "A labelled figure whose features match the properties of %s.",
	grading.TypeOpenEnded:   "A relevant question about %s with a reasonable plan of investigation.",
}

// CannedQuestions returns a fixed question set following input's plan. It is
// never empty.
func CannedQuestions(input Input) []grading.Question {
	topic := input.Topic
	if topic == "" {
		topic = "this topic"
	}
	plan := input.plan()
	if len(plan) == 0 {
		plan = Input{}.plan()
	}

	var out []grading.Question
	for _, tc := range plan {
		prompts := cannedPrompts[tc.Type]
		for i := 0; i < tc.Count; i++ {
			out = append(out, grading.Question{
				ID:               fmt.Sprintf("Q%d", len(out)+1),
				Type:             tc.Type,
				Prompt:           fmt.Sprintf(prompts[i%len(prompts)], topic),
				ExpectedSolution: fmt.Sprintf(cannedSolutions[tc.Type], topic),
				Concept:          input.Topic,
				Rubric: grading.Rubric{Parts: []grading.RubricPart{
					{Name: "understanding", Marks: 4},
					{Name: "accuracy", Marks: 6},
				}},
			})
		}
	}
	return out
}
