// Package ai defines the boundary to external text generators.
package ai

import (
	"context"
	"encoding/json"
)

// Request is a single instruction + payload call to a text generator.
type Request struct {
	// Instructions is the fixed instructional template (system instruction).
	Instructions string
	// Input is the per-run payload the instructions apply to.
	Input string

	MaxOutputTokens int32
	Temperature     float32

	// Schema, when set, asks the generator for a JSON response of this shape.
	Schema *Schema
}

// Generator produces text for a Request. Implementations must return an error
// rather than an empty string, and should stop when ctx is done.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Provider() string
	Model() string
}

// Schema types, named after JSON Schema.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Schema is a small provider-neutral subset of JSON Schema.
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
	Minimum     *float64
	Maximum     *float64
}

// JSONSchema returns the schema as a JSON Schema document.
func (s *Schema) JSONSchema() map[string]any {
	if s == nil {
		return map[string]any{}
	}

	out := map[string]any{"type": s.Type}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = prop.JSONSchema()
		}
		out["properties"] = props
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		out["maximum"] = *s.Maximum
	}
	return out
}

// String renders the JSON Schema document, for prompts and validators.
func (s *Schema) String() string {
	data, err := json.MarshalIndent(s.JSONSchema(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
