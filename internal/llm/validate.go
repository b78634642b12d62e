package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiledSchemas caches compiled schemas by name and definition, so two
// schemas that share a name never share a compiled form.
var compiledSchemas sync.Map // map[string]*jsonschema.Schema

// validateResponse checks raw against s. A nil schema accepts anything.
// Failures are *ErrInvalidResponse.
func validateResponse(s *Schema, raw json.RawMessage) error {
	if s == nil {
		return nil
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	compiled, err := compileSchema(s)
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: err}
	}
	if err := compiled.Validate(doc); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("response does not match %q: %w", s.Name, err)}
	}
	return nil
}

func compileSchema(s *Schema) (*jsonschema.Schema, error) {
	def, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %q: %w", s.Name, err)
	}
	key := s.Name + "\x00" + string(def)
	if cached, ok := compiledSchemas.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(def))
	if err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", s.Name, err)
	}
	c := jsonschema.NewCompiler()
	loc := "mem://schemas/" + url.PathEscape(s.Name) + ".json"
	if err := c.AddResource(loc, doc); err != nil {
		return nil, fmt.Errorf("add schema %q: %w", s.Name, err)
	}
	compiled, err := c.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", s.Name, err)
	}

	compiledSchemas.Store(key, compiled)
	return compiled, nil
}
