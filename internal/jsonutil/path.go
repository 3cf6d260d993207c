package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// splitPath turns "a.b.c" into its segments, dropping empty ones.
func splitPath(path string) []string {
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetNestedValue resolves a dot path inside obj. The second return value is
// false when any segment is missing or a non-object is reached mid-path.
func GetNestedValue(obj any, path string) (any, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, false
	}

	current := obj
	for _, seg := range segments {
		m, ok := AsObject(current)
		if !ok {
			return nil, false
		}
		next, exists := m[seg]
		if !exists {
			return nil, false
		}
		current = next
	}
	return current, true
}

// SetNestedValue returns a copy of obj with value stored at path. Every map
// along the path is shallow-copied; obj itself is never mutated. Missing or
// non-object intermediate segments are replaced with fresh maps.
func SetNestedValue(obj map[string]any, path string, value any) map[string]any {
	segments := splitPath(path)
	root := shallowCopy(obj)
	if len(segments) == 0 {
		return root
	}

	cursor := root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := AsObject(cursor[seg])
		if !ok {
			child = map[string]any{}
		} else {
			child = shallowCopy(child)
		}
		cursor[seg] = child
		cursor = child
	}
	cursor[segments[len(segments)-1]] = value
	return root
}

// ExtractTargetPath returns the smallest object containing only path, e.g.
// {"a":{"b":{"c":5}}} for "a.b.c". The result is empty when the path does
// not resolve.
func ExtractTargetPath(obj any, path string) map[string]any {
	value, ok := GetNestedValue(obj, path)
	if !ok {
		return map[string]any{}
	}
	return SetNestedValue(map[string]any{}, path, value)
}

// AsObject returns v as a string-keyed map when it is one.
func AsObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}

// Clone deep-copies a JSON-like value. Maps and []any are copied; other
// values are returned as-is.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Clone(val)
		}
		return out
	}
	return v
}

// CloneObject deep-copies a map, returning an empty map for nil.
func CloneObject(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return Clone(m).(map[string]any)
}

// Merge returns a copy of base with the top-level keys of patch applied.
func Merge(base, patch map[string]any) map[string]any {
	out := CloneObject(base)
	for k, v := range patch {
		out[k] = Clone(v)
	}
	return out
}

// MarshalNoEscape encodes v into JSON without escaping <, > and &.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalIndentNoEscape is MarshalNoEscape with two-space indentation.
func MarshalIndentNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func shallowCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
