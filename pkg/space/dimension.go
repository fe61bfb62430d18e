package space

import (
	"fmt"
	"math"
)

// Kind names a leaf constructor. The same names are used by the canonical
// serializer and the compact notation.
type Kind string

// Leaf kinds.
const (
	KindUniform     Kind = "uniform"
	KindNormal      Kind = "normal"
	KindCategorical Kind = "categorical"
	KindOrdinal     Kind = "ordinal"
	KindVariable    Kind = "var"
)

// Dimension is a node of the space tree: a Leaf or a *Space.
type Dimension interface {
	Name() string
	Parent() *Space
	dimension()
}

// Leaf is a named parameter. The concrete types are *Continuous,
// *Categorical, *Ordinal and *Variable.
type Leaf interface {
	Dimension
	Referent
	Kind() Kind
	Condition() Condition
	Forbidden() Condition
	leaf()
}

type base struct {
	name      string
	space     *Space
	condition Condition
	forbidden Condition
}

func (b *base) Name() string { return b.name }

// Parent returns the tree the leaf lives in.
func (b *base) Parent() *Space { return b.space }

// Ref makes every leaf usable as a condition reference.
func (b *base) Ref() string { return b.name }

func (b *base) Condition() Condition { return b.condition }

func (b *base) Forbidden() Condition { return b.forbidden }

func (*base) dimension() {}
func (*base) leaf()      {}

func (b *base) mutable() error {
	if b.space != nil {
		return b.space.checkMutable()
	}
	return nil
}

// EnableIf activates the leaf only when cond holds. A leaf carries at most
// one condition; combine several with Either or Both.
func (b *base) EnableIf(cond Condition) error {
	if err := b.mutable(); err != nil {
		return err
	}
	if cond == nil {
		return fmt.Errorf("%s: %w: nil condition", b.name, ErrInvalidDimension)
	}
	if err := checkValues(cond); err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	if b.condition != nil {
		return fmt.Errorf("%s: %w", b.name, ErrDuplicateCondition)
	}
	b.condition = cond
	return nil
}

// Forbid excludes configurations where cond holds. Successive calls are
// combined with Both.
func (b *base) Forbid(cond Condition) error {
	if err := b.mutable(); err != nil {
		return err
	}
	if cond == nil {
		return fmt.Errorf("%s: %w: nil forbidden clause", b.name, ErrInvalidDimension)
	}
	if err := checkValues(cond); err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	if b.forbidden != nil {
		cond = Both(b.forbidden, cond)
	}
	b.forbidden = cond
	return nil
}

// ForbidEqual forbids the leaf from taking value.
func (b *base) ForbidEqual(value any) error {
	return b.Forbid(Eq(b, value))
}

// ForbidIn forbids the leaf from taking any of values.
func (b *base) ForbidIn(values ...any) error {
	return b.Forbid(Contains(b, values...))
}

// Eq is sugar for Eq(leaf, value).
func (b *base) Eq(value any) *Comparison { return Eq(b, value) }

// Ne is sugar for Ne(leaf, value).
func (b *base) Ne(value any) *Comparison { return Ne(b, value) }

// Lt is sugar for Lt(leaf, value).
func (b *base) Lt(value any) *Comparison { return Lt(b, value) }

// Gt is sugar for Gt(leaf, value).
func (b *base) Gt(value any) *Comparison { return Gt(b, value) }

// In is sugar for Contains(leaf, values...).
func (b *base) In(values ...any) *Comparison { return Contains(b, values...) }

// Continuous is a uniform or normal dimension. A and B are lower/upper for
// the uniform family and loc/scale for the normal family.
type Continuous struct {
	base
	Dist         Kind
	A            float64
	B            float64
	Discrete     bool
	Log          bool
	Quantization *float64
}

func (c *Continuous) Kind() Kind { return c.Dist }

func (c *Continuous) Lower() float64 { return c.A }
func (c *Continuous) Upper() float64 { return c.B }
func (c *Continuous) Loc() float64   { return c.A }
func (c *Continuous) Scale() float64 { return c.B }

func (c *Continuous) validate() error {
	if math.IsNaN(c.A) || math.IsNaN(c.B) {
		return fmt.Errorf("%s: %w: NaN bound", c.name, ErrInvalidDimension)
	}
	if c.Quantization != nil && *c.Quantization <= 0 {
		return fmt.Errorf("%s: %w: quantization must be positive", c.name, ErrInvalidDimension)
	}
	switch c.Dist {
	case KindUniform:
		if c.A >= c.B {
			return fmt.Errorf("%s: %w: lower %v must be below upper %v", c.name, ErrInvalidDimension, c.A, c.B)
		}
		if c.Log && c.A <= 0 {
			return fmt.Errorf("%s: %w: log scale needs a positive lower bound", c.name, ErrInvalidDimension)
		}
	case KindNormal:
		if c.B <= 0 {
			return fmt.Errorf("%s: %w: scale must be positive", c.name, ErrInvalidDimension)
		}
	default:
		return fmt.Errorf("%s: %w: unknown distribution %q", c.name, ErrInvalidDimension, c.Dist)
	}
	return nil
}

// ContinuousOption adjusts a continuous dimension at construction.
type ContinuousOption func(*Continuous)

// Discrete requests integer-valued sampling.
func Discrete() ContinuousOption {
	return func(c *Continuous) { c.Discrete = true }
}

// Log selects the log-transformed variant.
func Log() ContinuousOption {
	return func(c *Continuous) { c.Log = true }
}

// Quantization rounds sampled values to a multiple of q.
func Quantization(q float64) ContinuousOption {
	return func(c *Continuous) { c.Quantization = &q }
}

// Choice is one weighted categorical choice.
type Choice struct {
	Value  string
	Weight float64
}

// Categorical draws one of its options with probability proportional to
// the option weight.
type Categorical struct {
	base
	Options []Choice
}

func (c *Categorical) Kind() Kind { return KindCategorical }

// Choices returns the option values in declaration order.
func (c *Categorical) Choices() []string {
	out := make([]string, len(c.Options))
	for i, o := range c.Options {
		out[i] = o.Value
	}
	return out
}

// Weights returns the option weights in declaration order.
func (c *Categorical) Weights() []float64 {
	out := make([]float64, len(c.Options))
	for i, o := range c.Options {
		out[i] = o.Weight
	}
	return out
}

func (c *Categorical) validate() error {
	if len(c.Options) == 0 {
		return fmt.Errorf("%s: %w: no choices", c.name, ErrInvalidDimension)
	}
	seen := make(map[string]struct{}, len(c.Options))
	for _, o := range c.Options {
		if _, ok := seen[o.Value]; ok {
			return fmt.Errorf("%s: %w: duplicate choice %q", c.name, ErrInvalidDimension, o.Value)
		}
		if o.Weight < 0 || math.IsNaN(o.Weight) {
			return fmt.Errorf("%s: %w: invalid weight for %q", c.name, ErrInvalidDimension, o.Value)
		}
		seen[o.Value] = struct{}{}
	}
	return nil
}

// Ordinal walks its sequence in order instead of drawing i.i.d. values.
type Ordinal struct {
	base
	Values []any
}

func (o *Ordinal) Kind() Kind { return KindOrdinal }

// Variable has no sampled value; it is supplied by the caller at sample
// time under its full dotted name.
type Variable struct {
	base
}

func (v *Variable) Kind() Kind { return KindVariable }
