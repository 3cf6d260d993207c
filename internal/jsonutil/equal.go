// Package jsonutil holds helpers for loosely-typed JSON values as produced by
// encoding/json decoding into any: map[string]any, []any, float64, string,
// bool and nil.
package jsonutil

import (
	"encoding/json"
	"reflect"
)

// Equal reports whether a and b are structurally equal JSON-like values.
//
// Primitives use strict equality (so NaN never equals NaN and +0 equals -0),
// nil only equals nil, values of different kinds are never equal, sequences
// compare element-wise and objects compare by key set and per-key value.
// Numbers of any Go numeric kind compare by their float64 value.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return isNil(a) && isNil(b)
	}

	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok {
			return equalReflect(a, b)
		}
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return equalReflect(a, b)
		}
		if len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !Equal(v, other) {
				return false
			}
		}
		return true
	}

	return equalReflect(a, b)
}

// equalReflect handles typed slices and string-keyed maps that did not come
// from encoding/json (e.g. []string or map[string]string in static defaults).
func equalReflect(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)

	switch {
	case isSeq(ra):
		if !isSeq(rb) || ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !Equal(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	case isObject(ra):
		if !isObject(rb) || ra.Len() != rb.Len() {
			return false
		}
		iter := ra.MapRange()
		for iter.Next() {
			other := rb.MapIndex(iter.Key())
			if !other.IsValid() || !Equal(iter.Value().Interface(), other.Interface()) {
				return false
			}
		}
		return true
	}

	if ra.Type() != rb.Type() || !ra.Type().Comparable() {
		return false
	}
	return a == b
}

func isSeq(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func isObject(v reflect.Value) bool {
	return v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
