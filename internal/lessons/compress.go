package lessons

import (
	"context"
	"fmt"
	"strings"

	"github.com/Pavansyamala/agenticAItutor/internal/llm"
)

// Compressor shortens long misconception histories before they are put in
// a lesson prompt.
type Compressor struct {
	provider llm.Provider
	cfg      CompressorConfig
}

// NewCompressor creates a context compressor.
func NewCompressor(provider llm.Provider, cfg CompressorConfig) *Compressor {
	return &Compressor{provider: provider, cfg: cfg}
}

type compressionOutput struct {
	Summary string `json:"summary"`
}

// Summarize compresses items into a few sentences.
func (c *Compressor) Summarize(ctx context.Context, items []string) (string, error) {
	ctx = llm.WithPurpose(ctx, "misconception-compress")

	req := llm.Request{
		System: compressionSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildCompressionUserMessage(items)},
		},
		Schema:      SummarySchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	var out compressionOutput
	if _, err := llm.GenerateJSON(ctx, c.provider, req, &out); err != nil {
		return "", fmt.Errorf("misconception compression: %w", err)
	}
	summary := strings.TrimSpace(out.Summary)
	if summary == "" {
		return "", fmt.Errorf("misconception compression: empty summary")
	}
	return summary, nil
}

// joinMisconceptions renders items as a "; "-separated list.
func joinMisconceptions(items []string) string {
	return strings.Join(items, "; ")
}

// truncateList keeps the most recent items that fit in limit characters.
func truncateList(items []string, limit int) string {
	var kept []string
	size := 0
	for i := len(items) - 1; i >= 0; i-- {
		size += len(items[i]) + 2
		if size > limit && len(kept) > 0 {
			break
		}
		kept = append([]string{items[i]}, kept...)
	}
	return joinMisconceptions(kept)
}
