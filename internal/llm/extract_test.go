package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, false},
		{"json string wrapping", `"{\"a\":1}"`, `{"a":1}`, false},
		{"prose around object", "Here you go:\n{\"a\": {\"b\": 2}}\nThanks!", `{"a": {"b": 2}}`, false},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"no object", "I cannot help with that.", "", true},
		{"array only", `[1,2]`, "", true},
		{"empty", ``, "", true},
		{"broken object", `{"a":`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Fatalf("ExtractJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGenerateJSON(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`"Sure! {\"hint\":\"Try x=2\"}"`)},
		MockResponse{Content: json.RawMessage(`"no json here"`)},
	)

	var out struct {
		Hint string `json:"hint"`
	}
	if _, err := GenerateJSON(context.Background(), mock, Request{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Hint != "Try x=2" {
		t.Fatalf("unexpected hint %q", out.Hint)
	}

	_, err := GenerateJSON(context.Background(), mock, Request{}, &out)
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T", err)
	}
}
