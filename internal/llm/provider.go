// Package llm is the model-access layer of the tutor. Every agent talks to a
// Provider; decorators add retry, pacing, per-call timeouts and event logging.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates a single completion.
type Provider interface {
	// Generate sends req to the model. When req.Schema is set the provider
	// asks for JSON in that shape and Response.Content holds the object.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier requests are sent to.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, selects the provider's structured output mode.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Agents default to 0.
	Temperature float64
}

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is the JSON structure expected from the model.
type Schema struct {
	// Name is a kebab-case identifier, e.g. "remediation-plan".
	Name        string
	Description string
	Definition  map[string]any
}

// Response holds the model's output.
type Response struct {
	// Content is the generated JSON object when a Schema was requested and
	// the raw reply otherwise.
	Content json.RawMessage

	Usage Usage
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Text returns Content as a string, unwrapping it when it is a JSON string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var s string
	if len(r.Content) > 0 && r.Content[0] == '"' && json.Unmarshal(r.Content, &s) == nil {
		return s
	}
	return string(r.Content)
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
