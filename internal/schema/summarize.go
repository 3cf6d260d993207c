package schema

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/blockcanvas/indy/internal/jsonutil"
)

const (
	// InvalidSchemaSummary is returned for input that is not a schema object.
	InvalidSchemaSummary = "Invalid schema provided"

	defaultMaxDepth  = 10
	maxEnumValues    = 6
	exampleMaxDepth  = 3
	untitledSchema   = "Untitled Block"
	noPropertiesLine = "- No properties defined"
)

// SummaryOptions tunes Summarise. The zero value means: no hints, depth 10,
// defaults and enums included.
type SummaryOptions struct {
	IncludeHints    bool
	MaxDepth        int
	ExcludeDefaults bool
	ExcludeEnums    bool
}

func (o SummaryOptions) maxDepth() int {
	if o.MaxDepth <= 0 {
		return defaultMaxDepth
	}
	return o.MaxDepth
}

// cacheKey identifies an option set for SummaryCache.
func (o SummaryOptions) cacheKey() string {
	return fmt.Sprintf("h=%t;d=%d;nd=%t;ne=%t", o.IncludeHints, o.maxDepth(), o.ExcludeDefaults, o.ExcludeEnums)
}

// SummariseAny summarises decoded JSON (or a *Schema). Anything that is not
// an object yields InvalidSchemaSummary.
func SummariseAny(v any, opts SummaryOptions) string {
	s, ok := FromValue(v)
	if !ok {
		return InvalidSchemaSummary
	}
	return Summarise(s, opts)
}

// Summarise renders s as a field list followed by optional AI hints and an
// example JSON document.
func Summarise(s *Schema, opts SummaryOptions) string {
	if s == nil {
		return InvalidSchemaSummary
	}

	var b strings.Builder

	title := s.Title
	if title == "" {
		title = s.ID
	}
	if title == "" {
		title = untitledSchema
	}
	fmt.Fprintf(&b, "Block: %s\n", title)
	if s.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", s.Description)
	}

	b.WriteString("\nProperties:\n")
	if len(s.Properties) == 0 {
		b.WriteString(noPropertiesLine + "\n")
	} else {
		w := &walker{b: &b, opts: opts}
		w.walk(s, "", 0, 0)
	}

	if opts.IncludeHints {
		if hints := renderHints(s); hints != "" {
			b.WriteString("\nAI Hints:\n")
			b.WriteString(hints)
		}
	}

	b.WriteString("\nExpected JSON Structure:\n")
	if len(s.Properties) == 0 {
		b.WriteString("No configurable properties\n")
	} else {
		example, err := ExampleJSON(s)
		if err != nil {
			example = []byte("{}")
		}
		b.Write(example)
		b.WriteString("\n")
	}

	return b.String()
}

type walker struct {
	b    *strings.Builder
	opts SummaryOptions
}

func (w *walker) walk(node *Schema, prefix string, indent, depth int) {
	if depth > w.opts.maxDepth() {
		return
	}
	pad := strings.Repeat("  ", indent)

	for _, key := range node.Keys() {
		child := node.Properties[key]
		if child == nil {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		switch {
		case child.IsObject() && !child.IsArray():
			line := fmt.Sprintf("%s- %s: object", pad, path)
			if child.Title != "" {
				line += fmt.Sprintf(" (%s)", child.Title)
			}
			if child.Description != "" {
				line += " - " + child.Description
			}
			w.b.WriteString(line + "\n")
			w.walk(child, path, indent, depth+1)

		case child.IsArray():
			w.writeArray(child, path, pad, indent, depth)

		default:
			w.b.WriteString(pad + w.leafLine(child, path) + "\n")
		}
	}
}

func (w *walker) writeArray(node *Schema, path, pad string, indent, depth int) {
	line := fmt.Sprintf("%s- %s: array", pad, path)
	items := node.Items
	switch {
	case items.IsObject():
		line += " of objects"
	case items != nil && items.Type != "":
		line += " of " + items.Type
	}
	if node.Title != "" {
		line += fmt.Sprintf(" (%s)", node.Title)
	}
	if node.Description != "" {
		line += " - " + node.Description
	}
	w.b.WriteString(line + "\n")

	switch {
	case items.IsObject():
		w.walk(items, path+"[]", indent+1, depth+1)
	case items != nil && items.Type != "":
		fmt.Fprintf(w.b, "%s  - each item is: %s\n", pad, items.Type)
	}
}

func (w *walker) leafLine(node *Schema, path string) string {
	typ := node.Type
	if typ == "" {
		typ = "any"
	}
	line := fmt.Sprintf("- %s: %s", path, typ)

	if !w.opts.ExcludeEnums && len(node.Enum) > 0 {
		line += " (enum: " + formatEnum(node.Enum) + ")"
	}
	if !w.opts.ExcludeDefaults && node.Default != nil {
		line += " (default: " + literal(node.Default) + ")"
	}
	if node.Description != "" {
		line += " - " + node.Description
	}
	return line
}

func formatEnum(values []any) string {
	shown := values
	if len(shown) > maxEnumValues {
		shown = shown[:maxEnumValues]
	}
	parts := make([]string, 0, len(shown)+1)
	for _, v := range shown {
		parts = append(parts, fmt.Sprint(v))
	}
	if len(values) > maxEnumValues {
		parts = append(parts, "...")
	}
	return strings.Join(parts, ", ")
}

// literal renders v as a JSON literal, so strings come out quoted.
func literal(v any) string {
	b, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func renderHints(s *Schema) string {
	var b strings.Builder

	if lg := s.LayoutGuidance; lg != nil {
		if lg.Structure != nil && len(lg.Structure.Recommended) > 0 {
			fmt.Fprintf(&b, "- Recommended structure: %s\n", strings.Join(lg.Structure.Recommended, ", "))
		}
		if lg.Typography != nil && len(lg.Typography.Hierarchy) > 0 {
			keys := make([]string, 0, len(lg.Typography.Hierarchy))
			for k := range lg.Typography.Hierarchy {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			pairs := make([]string, 0, len(keys))
			for _, k := range keys {
				pairs = append(pairs, fmt.Sprintf("%s (%s)", k, lg.Typography.Hierarchy[k]))
			}
			fmt.Fprintf(&b, "- Typography hierarchy: %s\n", strings.Join(pairs, ", "))
		}
	}

	if len(s.ContentHints) > 0 {
		keys := make([]string, 0, len(s.ContentHints))
		for k := range s.ContentHints {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var lines []string
		for _, k := range keys {
			hint := s.ContentHints[k]
			if hint == nil {
				continue
			}
			var parts []string
			if hint.LengthGuideline != "" {
				parts = append(parts, "length "+hint.LengthGuideline)
			}
			if len(hint.Characteristics) > 0 {
				parts = append(parts, strings.Join(hint.Characteristics, ", "))
			}
			if len(parts) > 0 {
				lines = append(lines, fmt.Sprintf("  - %s: %s", k, strings.Join(parts, "; ")))
			}
		}
		if len(lines) > 0 {
			b.WriteString("- Content guidance:\n")
			b.WriteString(strings.Join(lines, "\n") + "\n")
		}
	}

	return b.String()
}

// Example builds a plausible JSON value for s: defaults first, then the
// first enum entry, then a placeholder for the type. Nesting stops at depth 3.
func Example(s *Schema) map[string]any {
	return plain(exampleObject(s, 0)).(map[string]any)
}

// ExampleJSON renders Example as indented JSON with object keys in
// declaration order.
func ExampleJSON(s *Schema) ([]byte, error) {
	return jsonutil.MarshalIndentNoEscape(exampleObject(s, 0))
}

// orderedObject is a JSON object that marshals its keys in order.
type orderedObject struct {
	keys   []string
	values map[string]any
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := jsonutil.MarshalNoEscape(key)
		if err != nil {
			return nil, err
		}
		v, err := jsonutil.MarshalNoEscape(o.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func exampleObject(node *Schema, depth int) orderedObject {
	obj := orderedObject{values: map[string]any{}}
	if node == nil || depth >= exampleMaxDepth {
		return obj
	}
	for _, key := range node.Keys() {
		obj.keys = append(obj.keys, key)
		obj.values[key] = exampleValue(node.Properties[key], depth+1)
	}
	return obj
}

func exampleValue(node *Schema, depth int) any {
	if node == nil {
		return nil
	}
	if node.Default != nil {
		return jsonutil.Clone(node.Default)
	}
	if len(node.Enum) > 0 {
		return node.Enum[0]
	}

	switch {
	case node.IsArray():
		if depth >= exampleMaxDepth || node.Items == nil {
			return []any{}
		}
		return []any{exampleValue(node.Items, depth+1)}
	case node.IsObject():
		return exampleObject(node, depth)
	}

	switch node.Type {
	case TypeString:
		return "..."
	case TypeNumber, TypeInteger:
		return 0
	case TypeBoolean:
		return false
	case TypeObject:
		return map[string]any{}
	case TypeArray:
		return []any{}
	}
	return nil
}

// plain converts ordered objects back to maps.
func plain(v any) any {
	switch t := v.(type) {
	case orderedObject:
		out := make(map[string]any, len(t.values))
		for k, val := range t.values {
			out[k] = plain(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = plain(val)
		}
		return out
	}
	return v
}

// SummariseElementForAI renders a UI element with its name and schema.
func SummariseElementForAI(name, description string, s *Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Element: %s\n", name)
	if description != "" {
		fmt.Fprintf(&b, "Description: %s\n", description)
	}
	if s == nil || len(s.Properties) == 0 {
		b.WriteString(noPropertiesLine + "\n")
		return b.String()
	}
	w := &walker{b: &b, opts: SummaryOptions{MaxDepth: exampleMaxDepth}}
	w.walk(s, "", 0, 0)
	return b.String()
}
