package jsonutil

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestEqual_Reflexive(t *testing.T) {
	values := []string{
		`null`, `true`, `0`, `"hero"`, `[]`, `{}`,
		`[1,[2,3],{"a":null}]`,
		`{"layout":{"columns":3},"elements":{"title":{"content":"Hi"}}}`,
	}
	for _, s := range values {
		v := decode(t, s)
		assert.True(t, Equal(v, v), s)
	}
}

func TestEqual_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{`{"a":1,"b":2}`, `{"b":2,"a":1}`},
		{`[1,2]`, `[2,1]`},
		{`{"a":1}`, `{"a":1,"b":null}`},
		{`"1"`, `1`},
		{`null`, `{}`},
	}
	for _, p := range pairs {
		a, b := decode(t, p[0]), decode(t, p[1])
		assert.Equal(t, Equal(a, b), Equal(b, a), "%s vs %s", p[0], p[1])
	}
}

func TestEqual_Cases(t *testing.T) {
	assert.True(t, Equal(decode(t, `{"a":1,"b":2}`), decode(t, `{"b":2,"a":1}`)))
	assert.True(t, Equal(decode(t, `[1,[2,3]]`), decode(t, `[1,[2,3]]`)))
	assert.False(t, Equal(decode(t, `[1,2]`), decode(t, `[2,1]`)))
	assert.False(t, Equal(decode(t, `[1,2]`), decode(t, `{"0":1,"1":2}`)))
	assert.False(t, Equal(decode(t, `{"a":1}`), decode(t, `{"b":1}`)))
	assert.False(t, Equal(decode(t, `"1"`), decode(t, `1`)))
	assert.False(t, Equal(nil, map[string]any{}))
	assert.True(t, Equal(nil, nil))
}

func TestEqual_NumbersAcrossKinds(t *testing.T) {
	assert.True(t, Equal(3, 3.0))
	assert.True(t, Equal(int64(7), json.Number("7")))
	assert.True(t, Equal(0.0, math.Copysign(0, -1)))
	assert.False(t, Equal(math.NaN(), math.NaN()))
}

func TestEqual_TypedCollections(t *testing.T) {
	assert.True(t, Equal([]string{"a", "b"}, []any{"a", "b"}))
	assert.True(t, Equal(map[string]string{"k": "v"}, map[string]any{"k": "v"}))
	assert.False(t, Equal([]string{"a"}, []any{"a", "b"}))
}
