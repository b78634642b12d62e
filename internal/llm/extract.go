package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// jsonObject matches the widest {...} span in free text.
var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// ExtractJSON returns the JSON object contained in a model reply. The reply
// is tried as-is first; otherwise the outermost {...} span is used. Code
// fences and JSON-string wrapping are tolerated.
func ExtractJSON(raw []byte) ([]byte, error) {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal([]byte(text), &s); err == nil {
			text = strings.TrimSpace(s)
		}
	}
	if text == "" {
		return nil, errors.New("empty reply")
	}
	if gjson.Valid(text) && gjson.Parse(text).IsObject() {
		return []byte(text), nil
	}
	if m := jsonObject.FindString(text); m != "" && gjson.Valid(m) {
		return []byte(m), nil
	}
	return nil, fmt.Errorf("no JSON object in reply %q", truncateText(text, 80))
}

// GenerateJSON calls p and decodes the JSON object in the reply into out.
// A reply without a decodable object is an *ErrInvalidResponse.
func GenerateJSON(ctx context.Context, p Provider, req Request, out any) (*Response, error) {
	resp, err := p.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	obj, err := ExtractJSON(resp.Content)
	if err != nil {
		return resp, &ErrInvalidResponse{Content: resp.Content, Err: err}
	}
	if err := json.Unmarshal(obj, out); err != nil {
		return resp, &ErrInvalidResponse{Content: resp.Content, Err: fmt.Errorf("decode: %w", err)}
	}
	return resp, nil
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
