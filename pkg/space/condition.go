package space

import (
	"fmt"
	"strings"
)

// Op names a condition operator.
type Op string

// Operators understood by conditions. Backends decide which of them they
// can render for each Mode.
const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpLt  Op = "lt"
	OpGt  Op = "gt"
	OpIn  Op = "in"
	OpAnd Op = "and"
	OpOr  Op = "or"
)

var opSymbols = map[Op]string{
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpGt:  ">",
	OpIn:  "in",
	OpAnd: "&",
	OpOr:  "|",
}

// Condition is a boolean expression over previously declared dimensions.
// It is either a *Comparison or a *Combinator.
type Condition interface {
	Op() Op
	String() string
	condition()
}

// Comparison compares one referenced dimension against a value.
type Comparison struct {
	Operator Op
	Ref      string
	Value    any
}

func (c *Comparison) Op() Op { return c.Operator }

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %v", c.Ref, opSymbols[c.Operator], c.Value)
}

func (*Comparison) condition() {}

// Combinator joins two conditions with and/or.
type Combinator struct {
	Operator Op
	LHS      Condition
	RHS      Condition
}

func (c *Combinator) Op() Op { return c.Operator }

func (c *Combinator) String() string {
	return fmt.Sprintf("(%s %s %s)", c.LHS, opSymbols[c.Operator], c.RHS)
}

func (*Combinator) condition() {}

// Referent is anything a condition can point at: a dimension or a Path.
type Referent interface {
	Ref() string
}

// Path references a dimension by name, or by dotted path into a nested
// subspace of the scope the condition is compiled in.
type Path string

func (p Path) Ref() string { return string(p) }

// Eq is true when the referenced dimension equals value.
func Eq(ref Referent, value any) *Comparison { return compare(OpEq, ref, value) }

// Ne is true when the referenced dimension differs from value.
func Ne(ref Referent, value any) *Comparison { return compare(OpNe, ref, value) }

// Lt is true when the referenced dimension is less than value.
func Lt(ref Referent, value any) *Comparison { return compare(OpLt, ref, value) }

// Gt is true when the referenced dimension is greater than value.
func Gt(ref Referent, value any) *Comparison { return compare(OpGt, ref, value) }

// Contains is true when the referenced dimension takes one of values.
func Contains(ref Referent, values ...any) *Comparison {
	return compare(OpIn, ref, normalizeValue(values))
}

// Either is true when a or b is true.
func Either(a, b Condition) *Combinator {
	return &Combinator{Operator: OpOr, LHS: a, RHS: b}
}

// Both is true when a and b are true.
func Both(a, b Condition) *Combinator {
	return &Combinator{Operator: OpAnd, LHS: a, RHS: b}
}

func compare(op Op, ref Referent, value any) *Comparison {
	return &Comparison{Operator: op, Ref: ref.Ref(), Value: normalizeValue(value)}
}

// NewComparison builds a comparison from its parts. Decoders use it when
// the operator comes from text.
func NewComparison(op Op, ref string, value any) (*Comparison, error) {
	switch op {
	case OpEq, OpNe, OpLt, OpGt, OpIn:
	default:
		return nil, fmt.Errorf("%q is not a comparison operator", op)
	}
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("%s: empty reference", op)
	}
	c := &Comparison{Operator: op, Ref: ref, Value: normalizeValue(value)}
	if err := checkValues(c); err != nil {
		return nil, err
	}
	return c, nil
}

// checkValues rejects comparisons against nil, which neither persisted
// form can write back.
func checkValues(c Condition) error {
	switch c := c.(type) {
	case *Comparison:
		if c.Value == nil {
			return fmt.Errorf("%w: %s(%q) has no value", ErrInvalidCondition, c.Operator, c.Ref)
		}
		if items, ok := c.Value.([]any); ok {
			for _, item := range items {
				if item == nil {
					return fmt.Errorf("%w: %s(%q) lists a nil value", ErrInvalidCondition, c.Operator, c.Ref)
				}
			}
		}
	case *Combinator:
		if c.LHS == nil || c.RHS == nil {
			return fmt.Errorf("%w: %s needs both operands", ErrInvalidCondition, c.Operator)
		}
		if err := checkValues(c.LHS); err != nil {
			return err
		}
		return checkValues(c.RHS)
	}
	return nil
}

// NewCombinator builds a combinator from its parts.
func NewCombinator(op Op, lhs, rhs Condition) (*Combinator, error) {
	switch op {
	case OpAnd, OpOr:
	default:
		return nil, fmt.Errorf("%q is not a combinator", op)
	}
	if lhs == nil || rhs == nil {
		return nil, fmt.Errorf("%s: both operands are required", op)
	}
	return &Combinator{Operator: op, LHS: lhs, RHS: rhs}, nil
}
