package lessons

import "github.com/Pavansyamala/agenticAItutor/internal/llm"

// LessonSchema defines the JSON schema for lesson plans.
var LessonSchema = &llm.Schema{
	Name:        "lesson-plan",
	Description: "A short timed lesson plan for one topic",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"plan": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"step": map[string]any{
							"type":        "string",
							"description": "Short step title",
						},
						"duration_min": map[string]any{
							"type":        "integer",
							"description": "Minutes for this step",
						},
						"content": map[string]any{
							"type":        "string",
							"description": "What the student reads or does in this step",
						},
					},
					"required":             []any{"step", "duration_min", "content"},
					"additionalProperties": false,
				},
			},
			"expected_metrics": map[string]any{
				"type":        "object",
				"description": "Measurable outcomes expected after the lesson",
			},
			"metadata": map[string]any{
				"type": "object",
			},
		},
		"required":             []any{"plan", "expected_metrics", "metadata"},
		"additionalProperties": false,
	},
}

// HintSchema defines the JSON schema for hints.
var HintSchema = &llm.Schema{
	Name:        "hint",
	Description: "A short hint that does not reveal the full solution",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"hint": map[string]any{"type": "string"},
		},
		"required":             []any{"hint"},
		"additionalProperties": false,
	},
}

// SummarySchema defines the JSON schema for misconception compression.
var SummarySchema = &llm.Schema{
	Name:        "misconception-summary",
	Description: "Compressed summary of a student's recurring misconceptions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "2-3 sentence summary of the misconceptions",
			},
		},
		"required":             []any{"summary"},
		"additionalProperties": false,
	},
}
