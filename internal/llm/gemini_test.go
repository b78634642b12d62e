package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.5-pro"},
		{"gemini-2.5-flash", "gemini-2.5-flash"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, geminiModels); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGeminiSchema_LessonPlan(t *testing.T) {
	def := map[string]any{
		"type":        "object",
		"description": "A short lesson",
		"properties": map[string]any{
			"plan": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 6,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"step":         map[string]any{"type": "string"},
						"duration_min": map[string]any{"type": "integer"},
						"content":      map[string]any{"type": "string"},
					},
					"required": []string{"step", "content"},
				},
			},
			"mode":       map[string]any{"type": "string", "enum": []any{"teaching", "revision"}},
			"confidence": map[string]any{"type": "number", "minimum": 0},
			"verified":   map[string]any{"type": "boolean"},
			"extra":      map[string]any{"type": "null"},
		},
		"required":             []any{"plan"},
		"additionalProperties": false,
	}

	s := geminiSchema(def)

	if s.Type != genai.TypeObject || s.Description != "A short lesson" {
		t.Fatalf("root = %s %q", s.Type, s.Description)
	}
	plan := s.Properties["plan"]
	if plan.Type != genai.TypeArray {
		t.Fatalf("plan type = %s", plan.Type)
	}
	if plan.MinItems == nil || *plan.MinItems != 1 || plan.MaxItems == nil || *plan.MaxItems != 6 {
		t.Errorf("plan bounds = %v..%v", plan.MinItems, plan.MaxItems)
	}
	step := plan.Items
	if step.Type != genai.TypeObject || step.Properties["duration_min"].Type != genai.TypeInteger {
		t.Errorf("step schema = %+v", step)
	}
	if len(step.Required) != 2 {
		t.Errorf("step required = %v", step.Required)
	}
	if got := s.Properties["mode"].Enum; len(got) != 2 || got[1] != "revision" {
		t.Errorf("mode enum = %v", got)
	}
	if s.Properties["confidence"].Type != genai.TypeNumber {
		t.Errorf("confidence type = %s", s.Properties["confidence"].Type)
	}
	if s.Properties["verified"].Type != genai.TypeBoolean {
		t.Errorf("verified type = %s", s.Properties["verified"].Type)
	}
	if s.Properties["extra"].Type != genai.TypeString {
		t.Errorf("unknown types should map to string, got %s", s.Properties["extra"].Type)
	}
	if len(s.Required) != 1 || s.Required[0] != "plan" {
		t.Errorf("required = %v", s.Required)
	}
}
