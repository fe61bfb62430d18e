// Package constrained implements the full-feature sampling backend:
// conditions, forbidden clauses, quantization, the uniform and normal
// families with their log variants, weighted categoricals and ordinal
// sequences.
package constrained

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sspace/pkg/space"
)

// Name is the registry name of this backend.
const Name = "constrained"

// DefaultMaxRejections bounds how many times a sample is redrawn when it
// hits a forbidden clause.
const DefaultMaxRejections = 1000

func init() {
	space.RegisterBackend(Name, func(logger *slog.Logger) space.Compiler {
		return New(logger)
	})
}

var conditionOps = map[space.Mode]map[space.Op]bool{
	space.ModeCondition: {
		space.OpEq: true, space.OpNe: true, space.OpLt: true, space.OpGt: true, space.OpIn: true,
		space.OpAnd: true, space.OpOr: true,
	},
	space.ModeForbid: {
		space.OpEq: true, space.OpIn: true,
		space.OpAnd: true,
	},
}

// Compiler compiles space trees for the constrained sampler.
type Compiler struct {
	logger        *slog.Logger
	maxRejections int
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithMaxRejections overrides DefaultMaxRejections.
func WithMaxRejections(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.maxRejections = n
		}
	}
}

// New creates a compiler. A nil logger discards output.
func New(logger *slog.Logger, opts ...Option) *Compiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Compiler{logger: logger, maxRejections: DefaultMaxRejections}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Compiler) Name() string { return Name }

// Compile renders s. Unresolved references and operators outside the
// dispatch tables fail here.
func (c *Compiler) Compile(s *space.Space) (space.Sampler, error) {
	h, err := space.VisitDimension[*handle, predicate](builder{}, s)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("compiled space", "backend", Name, "parameters", len(h.params))
	return &Sampler{params: h.params, maxRejections: c.maxRejections}, nil
}

// handle is the rendering of a leaf (one parameter) or of a tree (its
// parameters in order, plus the scope they were registered in).
type handle struct {
	params []*param
	scope  *space.Scope[*handle]
}

// builder is the space.Visitor of this backend.
type builder struct{}

func (builder) DimLeaf(leaf space.Leaf) (*handle, error) {
	p, err := newParam(leaf)
	if err != nil {
		return nil, err
	}
	return &handle{params: []*param{p}}, nil
}

func (b builder) DimNode(s *space.Space) (*handle, error) {
	node := &handle{scope: space.NewScope[*handle]()}

	for name, child := range s.All() {
		h, err := space.VisitDimension[*handle, predicate](b, child)
		if err != nil {
			return nil, err
		}

		if _, ok := child.(*space.Space); ok {
			for _, p := range h.params {
				p.name = name + "." + p.name
			}
			node.scope.Mount(name, h.scope)
			node.params = append(node.params, h.params...)
			continue
		}

		node.scope.Add(name, h)
		node.params = append(node.params, h.params...)

		leaf := child.(space.Leaf)
		p := h.params[0]
		if cond := leaf.Condition(); cond != nil {
			if p.active, err = space.VisitCondition[*handle, predicate](b, space.ModeCondition, cond, h, node.scope); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
		if forbid := leaf.Forbidden(); forbid != nil {
			if p.forbidden, err = space.VisitCondition[*handle, predicate](b, space.ModeForbid, forbid, h, node.scope); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return node, nil
}

func (builder) CondLeaf(mode space.Mode, c *space.Comparison, _ *handle, scope *space.Scope[*handle]) (predicate, error) {
	if !conditionOps[mode][c.Operator] {
		return nil, &space.UnsupportedError{Backend: Name, Feature: string(mode) + " " + string(c.Operator)}
	}
	ref, err := scope.Resolve(c.Ref)
	if err != nil {
		return nil, err
	}
	return comparison(c.Operator, ref.params[0], c.Value), nil
}

func (b builder) CondNode(mode space.Mode, c *space.Combinator, target *handle, scope *space.Scope[*handle]) (predicate, error) {
	if !conditionOps[mode][c.Operator] {
		return nil, &space.UnsupportedError{Backend: Name, Feature: string(mode) + " " + string(c.Operator)}
	}
	lhs, err := space.VisitCondition[*handle, predicate](b, mode, c.LHS, target, scope)
	if err != nil {
		return nil, err
	}
	rhs, err := space.VisitCondition[*handle, predicate](b, mode, c.RHS, target, scope)
	if err != nil {
		return nil, err
	}
	if c.Operator == space.OpOr {
		return func(cfg map[string]any) bool { return lhs(cfg) || rhs(cfg) }, nil
	}
	return func(cfg map[string]any) bool { return lhs(cfg) && rhs(cfg) }, nil
}
