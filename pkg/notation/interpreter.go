package notation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/sspace/pkg/space"
)

type dimensionFunc func(r *Registry, target *space.Space, name string, a *args) error

type conditionFunc func(r *Registry, a *args) (space.Condition, error)

// Registry is the fixed table of constructor names the interpreter
// understands. It is built once and never modified.
type Registry struct {
	dimensions map[string]dimensionFunc
	conditions map[string]conditionFunc
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return &Registry{
		dimensions: map[string]dimensionFunc{
			"uniform":     continuousFunc(space.KindUniform, false),
			"loguniform":  continuousFunc(space.KindUniform, true),
			"normal":      continuousFunc(space.KindNormal, false),
			"lognormal":   continuousFunc(space.KindNormal, true),
			"categorical": categoricalFunc,
			"ordinal":     ordinalFunc,
			"var":         variableFunc,
			"identity":    identityFunc,
		},
		conditions: map[string]conditionFunc{
			string(space.OpEq):  comparisonFunc(space.OpEq),
			string(space.OpNe):  comparisonFunc(space.OpNe),
			string(space.OpLt):  comparisonFunc(space.OpLt),
			string(space.OpGt):  comparisonFunc(space.OpGt),
			string(space.OpIn):  comparisonFunc(space.OpIn),
			string(space.OpAnd): combinatorFunc(space.OpAnd),
			string(space.OpOr):  combinatorFunc(space.OpOr),
		},
	}
})

// DefaultRegistry returns the registry of every built-in constructor.
func DefaultRegistry() *Registry { return defaultRegistry() }

// Names returns every constructor name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.dimensions)+len(r.conditions))
	for n := range r.dimensions {
		names = append(names, n)
	}
	for n := range r.conditions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsDimension reports whether name declares a dimension.
func (r *Registry) IsDimension(name string) bool {
	_, ok := r.dimensions[name]
	return ok
}

// Decode parses text with the default registry and declares the result in
// target under name.
func Decode(target *space.Space, name, text string) error {
	return DefaultRegistry().Decode(target, name, text)
}

// Decode parses text and declares the result in target under name. The
// name is supplied by the caller, never read from the text.
func (r *Registry) Decode(target *space.Space, name, text string) error {
	call, err := Parse(text)
	if err != nil {
		return err
	}
	return r.Eval(target, name, call)
}

// Eval declares the dimension described by call in target under name.
func (r *Registry) Eval(target *space.Space, name string, call *Call) error {
	fn, ok := r.dimensions[call.Name]
	if !ok {
		if _, isCond := r.conditions[call.Name]; isCond {
			return &EvalError{Pos: call.Pos(), Call: call.Name, Message: "a condition does not declare a dimension"}
		}
		return &UnknownConstructorError{Name: call.Name, Pos: call.Pos()}
	}
	a, err := newArgs(call)
	if err != nil {
		return err
	}
	return fn(r, target, name, a)
}

// Condition evaluates a condition call such as or(eq('a', 1), gt('b', 2)).
func (r *Registry) Condition(call *Call) (space.Condition, error) {
	fn, ok := r.conditions[call.Name]
	if !ok {
		return nil, &UnknownConstructorError{Name: call.Name, Pos: call.Pos()}
	}
	a, err := newArgs(call)
	if err != nil {
		return nil, err
	}
	return fn(r, a)
}

// ParseCondition parses and evaluates a standalone condition.
func (r *Registry) ParseCondition(text string) (space.Condition, error) {
	call, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return r.Condition(call)
}

type constrainable interface {
	EnableIf(space.Condition) error
	Forbid(space.Condition) error
}

// constraints evaluates the condition= and forbid= arguments.
func (r *Registry) constraints(a *args) (cond, forbid space.Condition, err error) {
	if arg, ok := a.take("condition", -1); ok {
		if cond, err = a.condition(r, arg); err != nil {
			return nil, nil, err
		}
	}
	if arg, ok := a.take("forbid", -1); ok {
		if forbid, err = a.condition(r, arg); err != nil {
			return nil, nil, err
		}
	}
	return cond, forbid, nil
}

func constrain(leaf constrainable, a *args, cond, forbid space.Condition) error {
	if cond != nil {
		if err := leaf.EnableIf(cond); err != nil {
			return a.wrap(err)
		}
	}
	if forbid != nil {
		if err := leaf.Forbid(forbid); err != nil {
			return a.wrap(err)
		}
	}
	return nil
}

func continuousFunc(dist space.Kind, log bool) dimensionFunc {
	lo, hi := "lower", "upper"
	if dist == space.KindNormal {
		lo, hi = "loc", "scale"
	}
	return func(r *Registry, target *space.Space, name string, a *args) error {
		first, err := a.requiredFloat(lo, 0)
		if err != nil {
			return err
		}
		second, err := a.requiredFloat(hi, 1)
		if err != nil {
			return err
		}

		var opts []space.ContinuousOption
		discrete, err := a.optionalBool("discrete")
		if err != nil {
			return err
		}
		if discrete {
			opts = append(opts, space.Discrete())
		}
		logScale := log
		if !log {
			if logScale, err = a.optionalBool("log"); err != nil {
				return err
			}
		}
		if logScale {
			opts = append(opts, space.Log())
		}
		q, quantized, err := a.optionalFloat("quantization")
		if err != nil {
			return err
		}
		if quantized {
			opts = append(opts, space.Quantization(q))
		}
		cond, forbid, err := r.constraints(a)
		if err != nil {
			return err
		}
		if err := a.done(); err != nil {
			return err
		}

		var leaf *space.Continuous
		if dist == space.KindNormal {
			leaf, err = target.Normal(name, first, second, opts...)
		} else {
			leaf, err = target.Uniform(name, first, second, opts...)
		}
		if err != nil {
			return a.wrap(err)
		}
		return constrain(leaf, a, cond, forbid)
	}
}

func categoricalFunc(r *Registry, target *space.Space, name string, a *args) error {
	choices, err := a.requiredList("choices", 0)
	if err != nil {
		return err
	}
	options := make([]space.Choice, len(choices))
	for i, c := range choices {
		s, ok := c.(string)
		if !ok {
			return a.errorf("choices must be strings, got %v", c)
		}
		options[i] = space.Choice{Value: s, Weight: 1 / float64(len(choices))}
	}

	if arg, ok := a.take("weights", 1); ok {
		weights, err := a.list(arg)
		if err != nil {
			return err
		}
		if len(weights) != len(options) {
			return a.errorf("got %d weights for %d choices", len(weights), len(options))
		}
		for i, w := range weights {
			f, ok := toFloat(w)
			if !ok {
				return a.errorf("weights must be numbers, got %v", w)
			}
			options[i].Weight = f
		}
	}

	cond, forbid, err := r.constraints(a)
	if err != nil {
		return err
	}
	if err := a.done(); err != nil {
		return err
	}

	leaf, err := target.WeightedCategorical(name, options...)
	if err != nil {
		return a.wrap(err)
	}
	return constrain(leaf, a, cond, forbid)
}

func ordinalFunc(r *Registry, target *space.Space, name string, a *args) error {
	values, err := a.requiredList("sequence", 0)
	if err != nil {
		return err
	}
	cond, forbid, err := r.constraints(a)
	if err != nil {
		return err
	}
	if err := a.done(); err != nil {
		return err
	}

	leaf, err := target.Ordinal(name, values...)
	if err != nil {
		return a.wrap(err)
	}
	return constrain(leaf, a, cond, forbid)
}

func variableFunc(_ *Registry, target *space.Space, name string, a *args) error {
	if err := a.done(); err != nil {
		return err
	}
	if _, err := target.Variable(name); err != nil {
		return a.wrap(err)
	}
	return nil
}

func identityFunc(_ *Registry, target *space.Space, name string, a *args) error {
	size := space.DefaultIdentitySize
	if arg, ok := a.take("size", 0); ok {
		v, err := a.literal(arg.Value)
		if err != nil {
			return err
		}
		n, ok := v.(int64)
		if !ok {
			return a.errorf("size must be an integer, got %v", v)
		}
		size = int(n)
	}
	if err := a.done(); err != nil {
		return err
	}
	if err := target.Identity(name, size); err != nil {
		return a.wrap(err)
	}
	return nil
}

func comparisonFunc(op space.Op) conditionFunc {
	return func(_ *Registry, a *args) (space.Condition, error) {
		refArg, ok := a.take("name", 0)
		if !ok {
			return nil, a.errorf("missing reference")
		}
		ref, err := a.literal(refArg.Value)
		if err != nil {
			return nil, err
		}
		name, ok := ref.(string)
		if !ok {
			return nil, a.errorf("reference must be a string, got %v", ref)
		}
		valueArg, ok := a.take("value", 1)
		if !ok {
			return nil, a.errorf("missing value")
		}
		value, err := a.literal(valueArg.Value)
		if err != nil {
			return nil, err
		}
		if err := a.done(); err != nil {
			return nil, err
		}
		c, err := space.NewComparison(op, name, value)
		if err != nil {
			return nil, a.wrap(err)
		}
		return c, nil
	}
}

func combinatorFunc(op space.Op) conditionFunc {
	return func(r *Registry, a *args) (space.Condition, error) {
		lhsArg, ok := a.take("lhs", 0)
		if !ok {
			return nil, a.errorf("missing left operand")
		}
		rhsArg, ok := a.take("rhs", 1)
		if !ok {
			return nil, a.errorf("missing right operand")
		}
		lhs, err := a.condition(r, lhsArg)
		if err != nil {
			return nil, err
		}
		rhs, err := a.condition(r, rhsArg)
		if err != nil {
			return nil, err
		}
		if err := a.done(); err != nil {
			return nil, err
		}
		c, err := space.NewCombinator(op, lhs, rhs)
		if err != nil {
			return nil, a.wrap(err)
		}
		return c, nil
	}
}

// args tracks which arguments of a call have been consumed so leftovers
// can be reported.
type args struct {
	call       *Call
	positional []*Arg
	named      map[string]*Arg
	used       map[*Arg]bool
}

func newArgs(call *Call) (*args, error) {
	a := &args{call: call, named: make(map[string]*Arg), used: make(map[*Arg]bool)}
	for _, arg := range call.Args {
		if arg.Name == "" {
			if len(a.named) > 0 {
				return nil, &ParseError{Pos: arg.At, Message: "positional argument after keyword argument"}
			}
			a.positional = append(a.positional, arg)
			continue
		}
		if _, dup := a.named[arg.Name]; dup {
			return nil, &ParseError{Pos: arg.At, Message: fmt.Sprintf("duplicate argument %q", arg.Name)}
		}
		a.named[arg.Name] = arg
	}
	return a, nil
}

// take returns the argument called name, or the positional one at index.
// A negative index means keyword only.
func (a *args) take(name string, index int) (*Arg, bool) {
	if arg, ok := a.named[name]; ok {
		a.used[arg] = true
		return arg, true
	}
	if index >= 0 && index < len(a.positional) {
		arg := a.positional[index]
		a.used[arg] = true
		return arg, true
	}
	return nil, false
}

func (a *args) done() error {
	for _, arg := range a.call.Args {
		if a.used[arg] {
			continue
		}
		if arg.Name != "" {
			return &EvalError{Pos: arg.At, Call: a.call.Name, Message: fmt.Sprintf("unexpected argument %q", arg.Name)}
		}
		return &EvalError{Pos: arg.At, Call: a.call.Name, Message: "too many arguments"}
	}
	return nil
}

func (a *args) errorf(format string, v ...any) error {
	return &EvalError{Pos: a.call.Pos(), Call: a.call.Name, Message: fmt.Sprintf(format, v...)}
}

func (a *args) wrap(err error) error {
	return &EvalError{Pos: a.call.Pos(), Call: a.call.Name, Err: err}
}

// literal evaluates a non-call expression.
func (a *args) literal(e Expr) (any, error) {
	switch e := e.(type) {
	case *Number:
		return e.Value, nil
	case *String:
		return e.Value, nil
	case *Bool:
		return e.Value, nil
	case *List:
		out := make([]any, len(e.Items))
		for i, item := range e.Items {
			v, err := a.literal(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *Call:
		return nil, &EvalError{Pos: e.Pos(), Call: a.call.Name, Message: fmt.Sprintf("unexpected call to %s, expected a literal", e.Name)}
	}
	return nil, a.errorf("unexpected expression %T", e)
}

func (a *args) condition(r *Registry, arg *Arg) (space.Condition, error) {
	call, ok := arg.Value.(*Call)
	if !ok {
		return nil, &EvalError{Pos: arg.At, Call: a.call.Name, Message: "expected a condition"}
	}
	return r.Condition(call)
}

func (a *args) list(arg *Arg) ([]any, error) {
	v, err := a.literal(arg.Value)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, &EvalError{Pos: arg.At, Call: a.call.Name, Message: fmt.Sprintf("%s must be a list", argName(arg))}
	}
	return items, nil
}

func (a *args) requiredList(name string, index int) ([]any, error) {
	arg, ok := a.take(name, index)
	if !ok {
		return nil, a.errorf("missing argument %q", name)
	}
	return a.list(arg)
}

func (a *args) requiredFloat(name string, index int) (float64, error) {
	arg, ok := a.take(name, index)
	if !ok {
		return 0, a.errorf("missing argument %q", name)
	}
	return a.float(arg)
}

func (a *args) optionalFloat(name string) (float64, bool, error) {
	arg, ok := a.take(name, -1)
	if !ok {
		return 0, false, nil
	}
	f, err := a.float(arg)
	return f, err == nil, err
}

func (a *args) float(arg *Arg) (float64, error) {
	v, err := a.literal(arg.Value)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, &EvalError{Pos: arg.At, Call: a.call.Name, Message: fmt.Sprintf("%s must be a number, got %v", argName(arg), v)}
	}
	return f, nil
}

func (a *args) optionalBool(name string) (bool, error) {
	arg, ok := a.take(name, -1)
	if !ok {
		return false, nil
	}
	v, err := a.literal(arg.Value)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &EvalError{Pos: arg.At, Call: a.call.Name, Message: fmt.Sprintf("%s must be true or false", name)}
	}
	return b, nil
}

func argName(arg *Arg) string {
	if arg.Name == "" {
		return "argument"
	}
	return arg.Name
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
