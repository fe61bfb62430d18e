package space

import (
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
)

// DefaultBackend is the backend used when none is configured.
const DefaultBackend = "constrained"

// IdentityDirective asks for a digest field to be appended to every sample.
type IdentityDirective struct {
	Field string
	Size  int
}

// Space is an ordered tree of named dimensions and nested subspaces.
//
// A Space is built by a single goroutine. Once Instantiate has bound a
// backend the root is frozen and every further mutation fails with
// ErrFrozen; sampling a frozen space is safe for concurrent use when the
// backend's sampler is.
type Space struct {
	name    string
	parent  *Space
	order   []string
	tree    map[string]Dimension
	backend string
	logger  *slog.Logger

	// root only
	variables []*Variable
	identity  *IdentityDirective
	frozen    bool

	mu      sync.Mutex
	sampler Sampler
}

// Option configures a Space.
type Option func(*Space)

// WithName sets the name of the root tree.
func WithName(name string) Option {
	return func(s *Space) {
		s.name = name
	}
}

// WithBackend selects the backend used by Instantiate and Sample.
func WithBackend(name string) Option {
	return func(s *Space) {
		if name != "" {
			s.backend = name
		}
	}
}

// WithLogger sets the logger, inherited by subspaces and backends.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Space) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty root space.
func New(opts ...Option) *Space {
	s := &Space{
		tree:    make(map[string]Dimension),
		backend: DefaultBackend,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Space) Name() string { return s.name }

// Parent returns the tree this subspace was created in, nil for the root.
func (s *Space) Parent() *Space { return s.parent }

func (*Space) dimension() {}

// Backend returns the configured backend name.
func (s *Space) Backend() string { return s.backend }

// Logger returns the space logger.
func (s *Space) Logger() *slog.Logger { return s.logger }

// Root returns the top of the tree.
func (s *Space) Root() *Space {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Path returns the dotted path of s from the root.
func (s *Space) Path() string {
	if s.parent == nil {
		return ""
	}
	return JoinPath(s.parent.Path(), s.name)
}

// Len returns the number of direct children.
func (s *Space) Len() int { return len(s.order) }

// Keys returns the local names of the direct children in insertion order.
func (s *Space) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// All iterates over the direct children in insertion order.
func (s *Space) All() iter.Seq2[string, Dimension] {
	return func(yield func(string, Dimension) bool) {
		for _, name := range s.order {
			if !yield(name, s.tree[name]) {
				return
			}
		}
	}
}

// Dimensions iterates over every leaf of the tree in order, keyed by its
// dotted path relative to s.
func (s *Space) Dimensions() iter.Seq2[string, Leaf] {
	return func(yield func(string, Leaf) bool) {
		s.walkLeaves("", yield)
	}
}

func (s *Space) walkLeaves(prefix string, yield func(string, Leaf) bool) bool {
	for _, name := range s.order {
		path := JoinPath(prefix, name)
		switch d := s.tree[name].(type) {
		case *Space:
			if !d.walkLeaves(path, yield) {
				return false
			}
		case Leaf:
			if !yield(path, d) {
				return false
			}
		}
	}
	return true
}

// Child returns the direct child stored under the local name.
func (s *Space) Child(name string) (Dimension, bool) {
	d, ok := s.tree[name]
	return d, ok
}

// Get resolves a dotted path the same way names are inserted: segments
// descend into subspaces until a leaf is met, after which the remainder is
// a literal key.
func (s *Space) Get(path string) (Dimension, bool) {
	parent, local := s.locate(path)
	if parent == nil {
		return nil, false
	}
	d, ok := parent.tree[local]
	return d, ok
}

// Variables returns the declared free variables of the root, in order.
func (s *Space) Variables() []*Variable {
	root := s.Root()
	out := make([]*Variable, len(root.variables))
	copy(out, root.variables)
	return out
}

// IdentityDirective returns the identity directive of the root, if any.
func (s *Space) IdentityDirective() (IdentityDirective, bool) {
	root := s.Root()
	if root.identity == nil {
		return IdentityDirective{}, false
	}
	return *root.identity, true
}

// Frozen reports whether the tree has been instantiated.
func (s *Space) Frozen() bool { return s.Root().frozen }

func (s *Space) checkMutable() error {
	if s.Root().frozen {
		return ErrFrozen
	}
	return nil
}

// Uniform adds a uniform dimension over [lower, upper].
func (s *Space) Uniform(name string, lower, upper float64, opts ...ContinuousOption) (*Continuous, error) {
	return s.continuous(name, KindUniform, lower, upper, opts)
}

// LogUniform adds a log-uniform dimension over [lower, upper].
func (s *Space) LogUniform(name string, lower, upper float64, opts ...ContinuousOption) (*Continuous, error) {
	return s.continuous(name, KindUniform, lower, upper, append(opts, Log()))
}

// Normal adds a normal dimension.
func (s *Space) Normal(name string, loc, scale float64, opts ...ContinuousOption) (*Continuous, error) {
	return s.continuous(name, KindNormal, loc, scale, opts)
}

// LogNormal adds a log-normal dimension.
func (s *Space) LogNormal(name string, loc, scale float64, opts ...ContinuousOption) (*Continuous, error) {
	return s.continuous(name, KindNormal, loc, scale, append(opts, Log()))
}

func (s *Space) continuous(name string, dist Kind, a, b float64, opts []ContinuousOption) (*Continuous, error) {
	c := &Continuous{Dist: dist, A: a, B: b}
	for _, opt := range opts {
		opt(c)
	}
	if err := s.insert(name, func(parent *Space, local string) (Dimension, error) {
		c.base = base{name: local, space: parent}
		return c, c.validate()
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// Categorical adds a categorical dimension with equally weighted choices.
func (s *Space) Categorical(name string, choices ...string) (*Categorical, error) {
	options := make([]Choice, len(choices))
	for i, c := range choices {
		options[i] = Choice{Value: c, Weight: 1 / float64(len(choices))}
	}
	return s.WeightedCategorical(name, options...)
}

// WeightedCategorical adds a categorical dimension with explicit weights.
// Weights need not sum to one.
func (s *Space) WeightedCategorical(name string, options ...Choice) (*Categorical, error) {
	c := &Categorical{Options: append([]Choice(nil), options...)}
	if err := s.insert(name, func(parent *Space, local string) (Dimension, error) {
		c.base = base{name: local, space: parent}
		return c, c.validate()
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// Ordinal adds a dimension that walks values in order.
func (s *Space) Ordinal(name string, values ...any) (*Ordinal, error) {
	o := &Ordinal{}
	for _, v := range values {
		o.Values = append(o.Values, normalizeValue(v))
	}
	if err := s.insert(name, func(parent *Space, local string) (Dimension, error) {
		o.base = base{name: local, space: parent}
		if len(o.Values) == 0 {
			return o, fmt.Errorf("%s: %w: empty sequence", local, ErrInvalidDimension)
		}
		return o, nil
	}); err != nil {
		return nil, err
	}
	return o, nil
}

// Subspace adds a nested tree. It inherits the backend and logger of s.
func (s *Space) Subspace(name string) (*Space, error) {
	var sub *Space
	if err := s.insert(name, func(parent *Space, local string) (Dimension, error) {
		sub = parent.newChild(local)
		return sub, nil
	}); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Space) newChild(name string) *Space {
	return &Space{
		name:    name,
		parent:  s,
		tree:    make(map[string]Dimension),
		backend: s.backend,
		logger:  s.logger,
	}
}

// Variable declares a free variable supplied at sample time. On a subspace
// the variable is declared on the root under the subspace's dotted name.
func (s *Space) Variable(name string) (*Variable, error) {
	if s.parent != nil {
		return s.parent.Variable(s.name + "." + name)
	}
	if err := s.checkMutable(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty variable name", ErrInvalidName)
	}
	for _, v := range s.variables {
		if v.name == name {
			return nil, fmt.Errorf("variable %q: %w", name, ErrDuplicateName)
		}
	}
	v := &Variable{base: base{name: name, space: s}}
	s.variables = append(s.variables, v)
	return v, nil
}

// Identity requests a digest of size hex characters under field in every
// sample. A size of zero selects DefaultIdentitySize.
func (s *Space) Identity(field string, size int) error {
	root := s.Root()
	if err := root.checkMutable(); err != nil {
		return err
	}
	if field == "" {
		return fmt.Errorf("%w: empty identity field", ErrInvalidName)
	}
	if size < 0 {
		return fmt.Errorf("identity size must be positive, got %d", size)
	}
	if size == 0 {
		size = DefaultIdentitySize
	}
	root.identity = &IdentityDirective{Field: field, Size: size}
	return nil
}

// Instantiate compiles the tree with the named backend, or the configured
// one when backend is empty, and caches the result. The root is frozen
// afterwards.
func (s *Space) Instantiate(backend string) (Sampler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if backend == "" {
		backend = s.backend
	}
	compiler, err := NewCompiler(backend, s.logger)
	if err != nil {
		return nil, err
	}
	return s.bind(compiler)
}

// Bind compiles the tree with an already configured compiler, caches the
// result and freezes the root.
func (s *Space) Bind(compiler Compiler) (Sampler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bind(compiler)
}

func (s *Space) bind(compiler Compiler) (Sampler, error) {
	sampler, err := compiler.Compile(s)
	if err != nil {
		return nil, fmt.Errorf("compile with %s backend: %w", compiler.Name(), err)
	}

	s.sampler = sampler
	s.Root().frozen = true
	s.logger.Debug("space instantiated", "backend", compiler.Name(), "dimensions", s.Len())
	return sampler, nil
}

// Handle returns the cached sampler, nil before Instantiate.
func (s *Space) Handle() Sampler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampler
}

// Sample draws n configurations. Every declared variable must be present
// in vars; missing ones are all reported before anything is sampled.
// Variables are merged into each sample, the identity field is computed
// last, then the flat keys are nested following the tree.
func (s *Space) Sample(n int, seed uint64, vars map[string]any) ([]map[string]any, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	root := s.Root()

	var missing []string
	for _, v := range root.variables {
		if _, ok := vars[v.name]; !ok {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingVariableError{Names: missing}
	}

	sampler := s.Handle()
	if sampler == nil {
		var err error
		if sampler, err = s.Instantiate(""); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("sampling", "n", n, "seed", seed)
	flat, err := sampler.Sample(n, seed)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, len(flat))
	for i, sample := range flat {
		for k, v := range vars {
			sample[k] = normalizeValue(v)
		}
		if root.identity != nil {
			sample[root.identity.Field] = ComputeIdentity(sample, root.identity.Size)
		}
		out[i] = s.Unflatten(sample)
	}
	return out, nil
}
