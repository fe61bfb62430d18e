package space

import (
	"fmt"
	"sort"
	"strings"
)

// Mode selects which dispatch table a condition is rendered with.
type Mode string

// Condition modes. Backends usually accept a different operator set for
// each of them.
const (
	ModeCondition Mode = "conditionals"
	ModeForbid    Mode = "forbid"
)

// Visitor renders a space tree into a backend representation. H is the
// backend's handle for a dimension or tree, C its rendering of a condition.
//
// DimNode is responsible for walking the children of a tree in order,
// registering each rendered child in a Scope and only then rendering the
// child's condition and forbidden clause against it.
type Visitor[H, C any] interface {
	DimLeaf(leaf Leaf) (H, error)
	DimNode(s *Space) (H, error)
	CondLeaf(mode Mode, c *Comparison, target H, scope *Scope[H]) (C, error)
	CondNode(mode Mode, c *Combinator, target H, scope *Scope[H]) (C, error)
}

// VisitDimension dispatches d to the matching visitor method.
func VisitDimension[H, C any](v Visitor[H, C], d Dimension) (H, error) {
	switch d := d.(type) {
	case *Space:
		return v.DimNode(d)
	case Leaf:
		return v.DimLeaf(d)
	}
	var zero H
	return zero, fmt.Errorf("%w: %T", ErrInvalidDimension, d)
}

// VisitCondition dispatches c to the matching visitor method.
func VisitCondition[H, C any](v Visitor[H, C], mode Mode, c Condition, target H, scope *Scope[H]) (C, error) {
	switch c := c.(type) {
	case *Comparison:
		return v.CondLeaf(mode, c, target, scope)
	case *Combinator:
		return v.CondNode(mode, c, target, scope)
	}
	var zero C
	return zero, fmt.Errorf("unknown condition %T", c)
}

// Scope holds the handles registered so far while compiling one tree.
// Condition references resolve against it.
type Scope[H any] struct {
	names   []string
	entries map[string]H
}

// NewScope returns an empty scope.
func NewScope[H any]() *Scope[H] {
	return &Scope[H]{entries: make(map[string]H)}
}

// Add registers h under name.
func (s *Scope[H]) Add(name string, h H) {
	if _, ok := s.entries[name]; !ok {
		s.names = append(s.names, name)
	}
	s.entries[name] = h
}

// Mount registers every entry of inner under prefix.
func (s *Scope[H]) Mount(prefix string, inner *Scope[H]) {
	for _, name := range inner.names {
		s.Add(prefix+"."+name, inner.entries[name])
	}
}

// Resolve looks up a reference.
func (s *Scope[H]) Resolve(ref string) (H, error) {
	if h, ok := s.entries[ref]; ok {
		return h, nil
	}
	var zero H
	return zero, &ReferenceError{Ref: ref, Available: s.Names()}
}

// Names returns the registered names, sorted.
func (s *Scope[H]) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	sort.Strings(out)
	return out
}

// Len returns the number of registered entries.
func (s *Scope[H]) Len() int { return len(s.names) }

// References returns every dimension name a condition mentions, in
// depth-first order.
func References(c Condition) []string {
	var out []string
	var walk func(Condition)
	walk = func(c Condition) {
		switch c := c.(type) {
		case *Comparison:
			out = append(out, c.Ref)
		case *Combinator:
			walk(c.LHS)
			walk(c.RHS)
		}
	}
	walk(c)
	return out
}

// JoinPath joins path segments with the namespace delimiter, skipping
// empty ones.
func JoinPath(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}
