package codec

import (
	"fmt"

	"github.com/leapstack-labs/sspace/pkg/notation"
	"github.com/leapstack-labs/sspace/pkg/space"
)

// Reserved attribute keys holding a leaf's condition and forbidden clause.
const (
	keyConditionals = string(space.ModeCondition)
	keyForbid       = string(space.ModeForbid)
	keyName         = "name"
)

// Format selects how leaves are written.
type Format string

// Persisted forms.
const (
	// FormatCanonical writes each leaf as {kind: {attribute: value}}.
	FormatCanonical Format = "canonical"
	// FormatCompact writes each leaf as a notation string.
	FormatCompact Format = "compact"
)

// ParseFormat validates a format name. The empty string selects
// FormatCanonical.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCanonical:
		return FormatCanonical, nil
	case FormatCompact:
		return FormatCompact, nil
	}
	return "", fmt.Errorf("unknown format %q (expected %s or %s)", s, FormatCanonical, FormatCompact)
}

// Serialize renders s in the canonical form.
func Serialize(s *space.Space) (*Map, error) {
	return Encode(s, FormatCanonical)
}

// Compact renders s with every leaf in compact notation.
func Compact(s *space.Space) (*Map, error) {
	return Encode(s, FormatCompact)
}

// Encode renders s in the given format. On the root, declared variables
// and the identity directive are written after the tree.
func Encode(s *space.Space, format Format) (*Map, error) {
	v := serializer{compact: format == FormatCompact}
	out, err := space.VisitDimension[any, any](v, s)
	if err != nil {
		return nil, err
	}
	m := out.(*Map)

	if s.Parent() != nil {
		return m, nil
	}
	for _, variable := range s.Variables() {
		entry, err := v.DimLeaf(variable)
		if err != nil {
			return nil, err
		}
		if err := setUnique(m, variable.Name(), entry); err != nil {
			return nil, err
		}
	}
	if id, ok := s.IdentityDirective(); ok {
		var entry any = notation.FormatIdentity(id.Size)
		if !v.compact {
			attrs := NewMap()
			attrs.Set(keyName, id.Field)
			attrs.Set("size", int64(id.Size))
			entry = single("identity", attrs)
		}
		if err := setUnique(m, id.Field, entry); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func setUnique(m *Map, key string, v any) error {
	if m.Has(key) {
		return fmt.Errorf("%q is both a dimension and a variable or identity field: %w", key, space.ErrDuplicateName)
	}
	m.Set(key, v)
	return nil
}

func single(key string, v any) *Map {
	m := NewMap()
	m.Set(key, v)
	return m
}

// serializer is the space.Visitor behind Encode. Leaves render to *Map in
// canonical mode and to string in compact mode; trees always render to
// *Map.
type serializer struct {
	compact bool
}

func (v serializer) DimLeaf(leaf space.Leaf) (any, error) {
	if v.compact {
		return notation.Format(leaf), nil
	}

	attrs := NewMap()
	switch l := leaf.(type) {
	case *space.Continuous:
		lo, hi := "lower", "upper"
		if l.Dist == space.KindNormal {
			lo, hi = "loc", "scale"
		}
		attrs.Set(lo, l.A)
		attrs.Set(hi, l.B)
		attrs.Set("discrete", l.Discrete)
		attrs.Set("log", l.Log)
		if l.Quantization != nil {
			attrs.Set("quantization", *l.Quantization)
		}
	case *space.Categorical:
		options := NewMap()
		for _, o := range l.Options {
			options.Set(o.Value, o.Weight)
		}
		attrs.Set("options", options)
		attrs.Set("choices", space.NormalizeValue(l.Choices()))
	case *space.Ordinal:
		attrs.Set("sequence", append([]any(nil), l.Values...))
	case *space.Variable:
	}
	attrs.Set(keyName, leaf.Name())
	return single(string(leaf.Kind()), attrs), nil
}

func (v serializer) DimNode(s *space.Space) (any, error) {
	out := NewMap()
	for name, child := range s.All() {
		entry, err := space.VisitDimension[any, any](v, child)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out.Set(name, entry)

		leaf, ok := child.(space.Leaf)
		if !ok || v.compact {
			continue
		}
		attrs, _ := entry.(*Map).Get(string(leaf.Kind()))
		if c := leaf.Condition(); c != nil {
			rendered, err := space.VisitCondition[any, any](v, space.ModeCondition, c, attrs, nil)
			if err != nil {
				return nil, err
			}
			attrs.(*Map).Set(keyConditionals, rendered)
		}
		if f := leaf.Forbidden(); f != nil {
			rendered, err := space.VisitCondition[any, any](v, space.ModeForbid, f, attrs, nil)
			if err != nil {
				return nil, err
			}
			attrs.(*Map).Set(keyForbid, rendered)
		}
	}
	return out, nil
}

// CondLeaf renders {op: {name, value}}.
func (serializer) CondLeaf(_ space.Mode, c *space.Comparison, _ any, _ *space.Scope[any]) (any, error) {
	body := NewMap()
	body.Set(keyName, c.Ref)
	body.Set("value", c.Value)
	return single(string(c.Operator), body), nil
}

// CondNode renders {op: [lhs, rhs]}.
func (v serializer) CondNode(mode space.Mode, c *space.Combinator, target any, scope *space.Scope[any]) (any, error) {
	lhs, err := space.VisitCondition[any, any](v, mode, c.LHS, target, scope)
	if err != nil {
		return nil, err
	}
	rhs, err := space.VisitCondition[any, any](v, mode, c.RHS, target, scope)
	if err != nil {
		return nil, err
	}
	return single(string(c.Operator), []any{lhs, rhs}), nil
}
