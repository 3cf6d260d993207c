// Package schema describes the JSON-Schema-like shape of blocks and elements
// and renders it as text for LLM prompts.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/blockcanvas/indy/internal/jsonutil"
)

// Primitive type names used by block schemas.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// Schema is one node of a block schema. Object nodes carry Properties, array
// nodes carry Items, and every leaf carries a Type.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	ID          string             `json:"id,omitempty"`
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Default     any                `json:"default,omitempty"`

	LayoutGuidance *LayoutGuidance         `json:"layoutGuidance,omitempty"`
	ContentHints   map[string]*ContentHint `json:"contentHints,omitempty"`

	// order records property declaration order, set by Object and by
	// UnmarshalJSON.
	order []string
}

// LayoutGuidance is block-level guidance surfaced to the model as AI hints.
type LayoutGuidance struct {
	Structure  *StructureGuidance  `json:"structure,omitempty"`
	Typography *TypographyGuidance `json:"typography,omitempty"`
}

// StructureGuidance lists recommended block arrangements.
type StructureGuidance struct {
	Recommended []string `json:"recommended,omitempty"`
}

// TypographyGuidance maps a text role (h1, body...) to its style.
type TypographyGuidance struct {
	Hierarchy map[string]string `json:"hierarchy,omitempty"`
}

// ContentHint describes how content for one field should read.
type ContentHint struct {
	LengthGuideline string   `json:"lengthGuideline,omitempty"`
	Characteristics []string `json:"characteristics,omitempty"`
}

// Object builds an object node whose properties keep the given order.
func Object(props ...Prop) *Schema {
	s := &Schema{Type: TypeObject, Properties: make(map[string]*Schema, len(props))}
	for _, p := range props {
		s.Properties[p.Name] = p.Schema
		s.order = append(s.order, p.Name)
	}
	return s
}

// Prop is a named property used with Object.
type Prop struct {
	Name   string
	Schema *Schema
}

// P is shorthand for Prop{name, s}.
func P(name string, s *Schema) Prop { return Prop{Name: name, Schema: s} }

// Keys returns property names in declaration order. Names added to
// Properties without going through Object or JSON decoding are appended in
// sorted order.
func (s *Schema) Keys() []string {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(s.Properties))
	keys := make([]string, 0, len(s.Properties))
	for _, k := range s.order {
		if _, ok := s.Properties[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range s.Properties {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// IsObject reports whether the node has nested properties.
func (s *Schema) IsObject() bool {
	return s != nil && len(s.Properties) > 0
}

// IsArray reports whether the node describes an array.
func (s *Schema) IsArray() bool {
	return s != nil && (s.Type == TypeArray || (s.Items != nil && s.Type == ""))
}

// Property returns the direct child called name.
func (s *Schema) Property(name string) (*Schema, bool) {
	if s == nil || s.Properties == nil {
		return nil, false
	}
	p, ok := s.Properties[name]
	return p, ok && p != nil
}

// Clone returns a deep copy of s.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := *s
	if s.Properties != nil {
		out.Properties = make(map[string]*Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = v.Clone()
		}
	}
	out.Items = s.Items.Clone()
	out.order = append([]string(nil), s.order...)
	if s.Enum != nil {
		out.Enum = append([]any(nil), s.Enum...)
	}
	out.Default = jsonutil.Clone(s.Default)
	if s.ContentHints != nil {
		out.ContentHints = make(map[string]*ContentHint, len(s.ContentHints))
		for k, v := range s.ContentHints {
			if v == nil {
				continue
			}
			hint := *v
			hint.Characteristics = append([]string(nil), v.Characteristics...)
			out.ContentHints[k] = &hint
		}
	}
	return &out
}

// UnmarshalJSON decodes a schema node and records property order.
func (s *Schema) UnmarshalJSON(data []byte) error {
	type plain Schema
	aux := struct {
		*plain
		Properties json.RawMessage `json:"properties,omitempty"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Properties) == 0 || string(aux.Properties) == "null" {
		return nil
	}

	order, err := objectKeys(aux.Properties)
	if err != nil {
		return fmt.Errorf("schema properties: %w", err)
	}
	props := make(map[string]*Schema, len(order))
	if err := json.Unmarshal(aux.Properties, &props); err != nil {
		return fmt.Errorf("schema properties: %w", err)
	}
	s.Properties = props
	s.order = order
	return nil
}

// objectKeys returns the top-level keys of a JSON object in input order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// FromValue converts arbitrary decoded JSON (or an existing *Schema) into a
// *Schema. ok is false when v is not an object.
func FromValue(v any) (*Schema, bool) {
	switch t := v.(type) {
	case *Schema:
		return t, t != nil
	case Schema:
		return &t, true
	case map[string]any:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, false
		}
		var s Schema
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false
		}
		return &s, true
	case json.RawMessage:
		var s Schema
		if err := json.Unmarshal(t, &s); err != nil {
			return nil, false
		}
		return &s, true
	}
	return nil, false
}
