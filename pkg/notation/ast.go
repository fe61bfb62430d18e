package notation

import "github.com/leapstack-labs/sspace/pkg/token"

// Expr is a value in the notation: a literal, a list or a call.
type Expr interface {
	Pos() token.Position
	expr()
}

// Call is name(arg, key=arg, ...).
type Call struct {
	Name    string
	Args    []*Arg
	NamePos token.Position
}

// Arg is one call argument. Name is empty for positional arguments.
type Arg struct {
	Name  string
	Value Expr
	At    token.Position
}

// List is [value, ...].
type List struct {
	Items  []Expr
	Lbrack token.Position
}

// Number is an integer (int64) or a float (float64) literal.
type Number struct {
	Value  any
	Raw    string
	NumPos token.Position
}

// String is a quoted string literal.
type String struct {
	Value  string
	StrPos token.Position
}

// Bool is true or false.
type Bool struct {
	Value   bool
	BoolPos token.Position
}

func (c *Call) Pos() token.Position   { return c.NamePos }
func (l *List) Pos() token.Position   { return l.Lbrack }
func (n *Number) Pos() token.Position { return n.NumPos }
func (s *String) Pos() token.Position { return s.StrPos }
func (b *Bool) Pos() token.Position   { return b.BoolPos }

func (*Call) expr()   {}
func (*List) expr()   {}
func (*Number) expr() {}
func (*String) expr() {}
func (*Bool) expr()   {}
