// Package retrieval fetches background material for lessons and questions
// from an external context service.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// Placeholder is returned whenever no context is available.
const Placeholder = "No relevant context found."

// Service supplies background text for a query. It never fails; callers get
// Placeholder when nothing useful is found.
type Service interface {
	Context(ctx context.Context, query string) string
}

// Config points at the context service. An empty URL disables it.
type Config struct {
	URL     string        `env:"URL"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	TopK    int           `env:"TOP_K" envDefault:"3"`
	APIKey  string        `env:"API_KEY"`
	Retries int           `env:"RETRIES" envDefault:"2"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second, TopK: 3, Retries: 2}
}

// New returns an HTTPService for cfg, or Noop when no URL is configured.
func New(cfg Config, logger *slog.Logger) Service {
	if strings.TrimSpace(cfg.URL) == "" {
		return Noop{}
	}
	return NewHTTPService(cfg, logger)
}

// HTTPService posts {query, top_k} to a JSON endpoint. The reply may carry a
// "context" string, a "results" array of {snippet} objects, or both.
type HTTPService struct {
	client *resty.Client
	cfg    Config
	logger *slog.Logger
}

// NewHTTPService creates a client for cfg.URL.
func NewHTTPService(cfg Config, logger *slog.Logger) *HTTPService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &HTTPService{client: client, cfg: cfg, logger: logger}
}

// Context implements Service.
func (s *HTTPService) Context(ctx context.Context, query string) string {
	text, err := s.Fetch(ctx, query)
	if err != nil {
		s.logger.Warn("context retrieval failed", "query", query, "error", err)
		return Placeholder
	}
	if text == "" {
		return Placeholder
	}
	return text
}

// Fetch queries the service and returns the merged context, which may be
// empty.
func (s *HTTPService) Fetch(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", errors.New("empty query")
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"query": query, "top_k": s.cfg.TopK}).
		Post(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", s.cfg.URL, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("post %s: status %d", s.cfg.URL, resp.StatusCode())
	}

	body := resp.String()
	if !gjson.Valid(body) {
		return "", fmt.Errorf("post %s: reply is not JSON", s.cfg.URL)
	}
	var snippets []string
	for _, r := range gjson.Get(body, "results.#.snippet").Array() {
		snippets = append(snippets, r.String())
	}
	if len(snippets) > s.cfg.TopK {
		snippets = snippets[:s.cfg.TopK]
	}
	return Merge(gjson.Get(body, "context").String(), snippets), nil
}

var (
	urlRe        = regexp.MustCompile(`https?://\S+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Merge joins base with cleaned snippets, separated by blank lines. Snippets
// lose their URLs and have whitespace collapsed; empty ones are dropped.
func Merge(base string, snippets []string) string {
	var parts []string
	if b := strings.TrimSpace(base); b != "" {
		parts = append(parts, b)
	}
	for _, s := range snippets {
		s = urlRe.ReplaceAllString(s, "")
		s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Static always returns the same text.
type Static string

// Context implements Service.
func (s Static) Context(context.Context, string) string {
	if t := strings.TrimSpace(string(s)); t != "" {
		return t
	}
	return Placeholder
}

// Noop is used when no context service is configured.
type Noop struct{}

// Context implements Service.
func (Noop) Context(context.Context, string) string { return Placeholder }
