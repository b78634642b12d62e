package problemgen

import "github.com/Pavansyamala/agenticAItutor/internal/llm"

// QuestionSchema defines the JSON schema for LLM question generation responses.
// Item fields are checked per question by StructuralValidator so one bad item
// does not reject the whole reply.
var QuestionSchema = &llm.Schema{
	Name:        "evaluation-questions",
	Description: "A set of evaluation questions with expected solutions and rubrics",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"qid": map[string]any{
							"type":        "string",
							"description": "Unique question id such as Q1",
						},
						"type": map[string]any{
							"type":        "string",
							"description": "One of conceptual, procedural, application, geometric, open-ended",
						},
						"prompt": map[string]any{
							"type":        "string",
							"description": "The question text with background material integrated",
						},
						"expected_solution": map[string]any{
							"type":        "string",
							"description": "A single checkable expression for procedural and application questions, short reasoning otherwise",
						},
						"concept": map[string]any{
							"type":        "string",
							"description": "The sub-skill the question tests",
						},
						"rubric": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"full_marks": map[string]any{"type": "number"},
								"parts": map[string]any{
									"type": "array",
									"items": map[string]any{
										"type": "object",
										"properties": map[string]any{
											"name":  map[string]any{"type": "string"},
											"marks": map[string]any{"type": "number"},
										},
									},
								},
							},
						},
					},
				},
				"description": "Items must carry qid, type, prompt, expected_solution and rubric. Incomplete items are discarded.",
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
