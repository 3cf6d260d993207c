package prompts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"short", "hello", 10, "hello"},
		{"ascii cut", "hello world", 5, "hello... [truncated]"},
		{"inside a rune", "añb", 2, "a... [truncated]"},
		{"on a rune boundary", "añb", 3, "añ... [truncated]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.maxLen)
			assert.Equal(t, tt.expected, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestPropertyUser_KeepsValidUTF8(t *testing.T) {
	input := strings.Repeat("é", 600)
	got := PropertyUser(input, "content.title", "{}")

	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "[truncated]")
	assert.Contains(t, got, "TARGET: content.title")
}
