package notation

import (
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/sspace/pkg/space"
)

// Format renders a leaf as a call. Attributes at their default are left
// out and the log variants use their own constructor name.
func Format(leaf space.Leaf) string {
	var args []string

	name := string(leaf.Kind())
	switch l := leaf.(type) {
	case *space.Continuous:
		if l.Log {
			name = "log" + name
		}
		lo, hi := "lower", "upper"
		if l.Dist == space.KindNormal {
			lo, hi = "loc", "scale"
		}
		args = append(args, lo+"="+FormatValue(l.A), hi+"="+FormatValue(l.B))
		if l.Discrete {
			args = append(args, "discrete=true")
		}
		if l.Quantization != nil {
			args = append(args, "quantization="+FormatValue(*l.Quantization))
		}
	case *space.Categorical:
		args = append(args, "choices="+FormatValue(l.Choices()))
		if !equalWeights(l.Weights()) {
			args = append(args, "weights="+FormatValue(l.Weights()))
		}
	case *space.Ordinal:
		args = append(args, "sequence="+FormatValue(l.Values))
	case *space.Variable:
		return "var()"
	}

	if c := leaf.Condition(); c != nil {
		args = append(args, "condition="+FormatCondition(c))
	}
	if f := leaf.Forbidden(); f != nil {
		args = append(args, "forbid="+FormatCondition(f))
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

// FormatIdentity renders an identity directive.
func FormatIdentity(size int) string {
	return "identity(size=" + strconv.Itoa(size) + ")"
}

// FormatCondition renders a condition as nested operator calls.
func FormatCondition(c space.Condition) string {
	switch c := c.(type) {
	case *space.Comparison:
		return string(c.Operator) + "(" + quote(c.Ref) + ", " + FormatValue(c.Value) + ")"
	case *space.Combinator:
		return string(c.Operator) + "(" + FormatCondition(c.LHS) + ", " + FormatCondition(c.RHS) + ")"
	}
	return ""
}

// FormatValue renders a literal. Floats always carry a '.' or an exponent
// so they read back as floats.
func FormatValue(v any) string {
	switch x := space.NormalizeValue(v).(type) {
	case string:
		return quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	case []any:
		items := make([]string, len(x))
		for i, item := range x {
			items[i] = FormatValue(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	}
	return quote(space.FormatValue(v))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func equalWeights(weights []float64) bool {
	even := 1 / float64(len(weights))
	for _, w := range weights {
		if math.Abs(w-even) > 1e-12 {
			return false
		}
	}
	return true
}
