package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	maxTokenListEntries   = 10
	maxTokenObjectEntries = 8
)

// DesignTokens is the catalogue of style values the model may use. Token
// categories other than the four well-known ones are kept in Extra.
type DesignTokens struct {
	Colors             []string       `json:"colors,omitempty"`
	Spacing            []string       `json:"spacing,omitempty"`
	GradientDirections []string       `json:"gradientDirections,omitempty"`
	Typography         []string       `json:"typography,omitempty"`
	Extra              map[string]any `json:"-"`
}

var knownTokenKeys = map[string]bool{
	"colors": true, "spacing": true, "gradientDirections": true, "typography": true,
}

// IsEmpty reports whether no token category is populated.
func (t DesignTokens) IsEmpty() bool {
	return len(t.Colors) == 0 && len(t.Spacing) == 0 &&
		len(t.GradientDirections) == 0 && len(t.Typography) == 0 && len(t.Extra) == 0
}

// UnmarshalJSON decodes the known categories and keeps the rest in Extra.
func (t *DesignTokens) UnmarshalJSON(data []byte) error {
	type plain DesignTokens
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*t = DesignTokens(p)
	for k, v := range all {
		if knownTokenKeys[k] {
			continue
		}
		if t.Extra == nil {
			t.Extra = make(map[string]any)
		}
		t.Extra[k] = v
	}
	return nil
}

// MarshalJSON flattens Extra next to the known categories.
func (t DesignTokens) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 4+len(t.Extra))
	for k, v := range t.Extra {
		out[k] = v
	}
	if len(t.Colors) > 0 {
		out["colors"] = t.Colors
	}
	if len(t.Spacing) > 0 {
		out["spacing"] = t.Spacing
	}
	if len(t.GradientDirections) > 0 {
		out["gradientDirections"] = t.GradientDirections
	}
	if len(t.Typography) > 0 {
		out["typography"] = t.Typography
	}
	return json.Marshal(out)
}

// LoadTokens reads design tokens from a .json, .yaml or .yml file.
func LoadTokens(path string) (DesignTokens, error) {
	var tokens DesignTokens

	data, err := os.ReadFile(path)
	if err != nil {
		return tokens, fmt.Errorf("read tokens file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return tokens, fmt.Errorf("parse tokens yaml: %w", err)
		}
		if data, err = json.Marshal(raw); err != nil {
			return tokens, fmt.Errorf("convert tokens yaml: %w", err)
		}
	}

	if err := json.Unmarshal(data, &tokens); err != nil {
		return tokens, fmt.Errorf("parse tokens: %w", err)
	}
	return tokens, nil
}

// SummariseTokensForAI renders tokens as a bullet list for the prompt.
// Long lists are cut to their first entries with a "... (N total)" suffix.
func SummariseTokensForAI(t DesignTokens) string {
	if t.IsEmpty() {
		return "Design Tokens: none provided\n"
	}

	var b strings.Builder
	b.WriteString("Design Tokens:\n")
	writeList(&b, "Colors", t.Colors)
	writeList(&b, "Spacing", t.Spacing)
	writeList(&b, "Gradient directions", t.GradientDirections)
	writeList(&b, "Typography", t.Typography)

	keys := make([]string, 0, len(t.Extra))
	for k := range t.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(renderGeneric(k, t.Extra[k]))
	}
	return b.String()
}

func writeList(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, truncateList(values, maxTokenListEntries))
}

func truncateList(values []string, limit int) string {
	if len(values) <= limit {
		return strings.Join(values, ", ")
	}
	return fmt.Sprintf("%s, ... (%d total)", strings.Join(values[:limit], ", "), len(values))
}

func renderGeneric(key string, v any) string {
	switch val := v.(type) {
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
		return fmt.Sprintf("- %s: %s\n", key, truncateList(items, maxTokenListEntries))
	case map[string]any:
		names := make([]string, 0, len(val))
		for k := range val {
			names = append(names, k)
		}
		sort.Strings(names)
		pairs := make([]string, 0, len(names))
		for _, name := range names {
			pairs = append(pairs, fmt.Sprintf("%s: %v", name, val[name]))
		}
		return fmt.Sprintf("- %s: %s\n", key, truncateList(pairs, maxTokenObjectEntries))
	default:
		return fmt.Sprintf("- %s: %v\n", key, val)
	}
}
