package space

import (
	"cmp"
	"fmt"
)

// normalizeValue maps Go scalars onto the four value types the space works
// with: int64, float64, string and bool. Slices become []any.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x) //nolint:gosec // sample values are small
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x) //nolint:gosec // sample values are small
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeValue(e)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	case []int:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = int64(e)
		}
		return out
	case []int64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	case []float64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	}
	return v
}

// NormalizeValue is the exported form of normalizeValue for decoders.
func NormalizeValue(v any) any { return normalizeValue(v) }

func asFloat(v any) (float64, bool) {
	switch x := normalizeValue(v).(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// CompareValues orders two scalars. Numbers compare numerically whatever
// their Go type, strings lexicographically. ok is false when the values
// have no ordering (mixed kinds, bools, lists).
func CompareValues(a, b any) (c int, ok bool) {
	if fa, okA := asFloat(a); okA {
		if fb, okB := asFloat(b); okB {
			return cmp.Compare(fa, fb), true
		}
		return 0, false
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return cmp.Compare(sa, sb), true
	}
	return 0, false
}

// EqualValues reports whether two scalars are equal under CompareValues,
// falling back to == for bools.
func EqualValues(a, b any) bool {
	if c, ok := CompareValues(a, b); ok {
		return c == 0
	}
	ba, okA := a.(bool)
	bb, okB := b.(bool)
	return okA && okB && ba == bb
}

// ContainsValue reports whether v is a member of the list value.
func ContainsValue(list any, v any) bool {
	items, ok := normalizeValue(list).([]any)
	if !ok {
		return EqualValues(list, v)
	}
	for _, item := range items {
		if EqualValues(item, v) {
			return true
		}
	}
	return false
}

// FormatValue renders a value the way identities and error messages see it.
func FormatValue(v any) string {
	return fmt.Sprint(v)
}
