package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultGroqBaseURL       = "https://api.groq.com/openai/v1"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// structuredMode selects how an OpenAI-compatible endpoint is asked for JSON.
type structuredMode int

const (
	// modeJSONSchema sends the schema as a strict response format.
	modeJSONSchema structuredMode = iota
	// modeJSONObject requests a bare JSON object and describes the schema in
	// the system prompt, for endpoints without strict schema support.
	modeJSONObject
)

var openaiModels = map[string]string{
	"gpt-4o":      "gpt-4o",
	"gpt-4o-mini": "gpt-4o-mini",
}

var groqModels = map[string]string{
	"llama-70b": "llama-3.3-70b-versatile",
	"llama-8b":  "llama-3.1-8b-instant",
}

// CompatProvider talks to any OpenAI-compatible chat completions API: OpenAI
// itself, Groq and OpenRouter.
type CompatProvider struct {
	name   string
	client *openai.Client
	model  string
	mode   structuredMode
}

func newCompatProvider(name, apiKey, baseURL, model string, mode structuredMode) (*CompatProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is required", name)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &CompatProvider{
		name:   name,
		client: openai.NewClientWithConfig(config),
		model:  model,
		mode:   mode,
	}, nil
}

// NewOpenAIProvider creates a provider for the OpenAI API.
func NewOpenAIProvider(cfg OpenAIConfig) (*CompatProvider, error) {
	return newCompatProvider("openai", cfg.APIKey, cfg.BaseURL, resolveModel(cfg.Model, openaiModels), modeJSONSchema)
}

// NewGroqProvider creates a provider for Groq's OpenAI-compatible endpoint.
func NewGroqProvider(cfg GroqConfig) (*CompatProvider, error) {
	base := cfg.BaseURL
	if base == "" {
		base = defaultGroqBaseURL
	}
	return newCompatProvider("groq", cfg.APIKey, base, resolveModel(cfg.Model, groqModels), modeJSONObject)
}

// NewOpenRouterProvider creates a provider targeting the OpenRouter API.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*CompatProvider, error) {
	base := cfg.BaseURL
	if base == "" {
		base = defaultOpenRouterBaseURL
	}
	return newCompatProvider("openrouter", cfg.APIKey, base, cfg.Model, modeJSONObject)
}

func (p *CompatProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}

	system := req.System
	if req.Schema != nil {
		schemaBytes, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}
		switch p.mode {
		case modeJSONSchema:
			chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   req.Schema.Name,
					Schema: json.RawMessage(schemaBytes),
					Strict: true,
				},
			}
		case modeJSONObject:
			chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
			system = strings.TrimSpace(system + "\n\nRespond with a single JSON object matching this JSON Schema:\n" + string(schemaBytes))
		}
	}
	chatReq.Messages = buildCompatMessages(system, req.Messages)

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, mapCompatError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("no choices in %s response", p.name)}
	}

	choice := resp.Choices[0]
	content := json.RawMessage(choice.Message.Content)
	if req.Schema == nil {
		content, _ = json.Marshal(choice.Message.Content)
	}
	if choice.FinishReason == openai.FinishReasonLength {
		return nil, &ErrMaxTokensExceeded{Content: content}
	}
	if req.Schema != nil {
		if err := validateResponse(req.Schema, content); err != nil {
			return nil, err
		}
	}

	return &Response{
		Content: content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		Model:      resp.Model,
		StopReason: "end",
	}, nil
}

func (p *CompatProvider) ModelID() string {
	return p.model
}

// Name returns the provider family, e.g. "groq".
func (p *CompatProvider) Name() string {
	return p.name
}

func buildCompatMessages(system string, msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func mapCompatError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ErrProviderUnavailable{Err: err}
}

// resolveModel maps a friendly model name to a provider model ID; unknown
// names pass through.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
