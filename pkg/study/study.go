// Package study keeps a ledger of sampled trials. A study loads a space
// file, compiles it with the configured backend, records every suggested
// configuration with the seed that produced it, and can re-create any
// recorded trial.
package study

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leapstack-labs/sspace/internal/config"
	"github.com/leapstack-labs/sspace/internal/store"
	"github.com/leapstack-labs/sspace/pkg/backends/constrained"
	"github.com/leapstack-labs/sspace/pkg/codec"
	"github.com/leapstack-labs/sspace/pkg/space"
)

// DefaultName names a study opened without WithName.
const DefaultName = "default"

// Errors returned by a study.
var (
	ErrNoSpace  = errors.New("no space loaded")
	ErrMismatch = errors.New("re-created trial differs from the recorded one")
)

// Study ties a space to a trial store.
type Study struct {
	name    string
	cfg     *config.Config
	logger  *slog.Logger
	store   store.Store
	owned   bool
	reg     prometheus.Registerer
	metrics *Metrics

	mu    sync.RWMutex
	space *space.Space
	// identity from the config, applied when the space declares none
	fallback *space.IdentityDirective
}

// Option configures a Study.
type Option func(*Study)

// WithName sets the study name trials are recorded under.
func WithName(name string) Option {
	return func(s *Study) { s.name = name }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Study) { s.logger = logger }
}

// WithStore records trials in st instead of opening cfg.Store.Path. The
// caller keeps ownership of st.
func WithStore(st store.Store) Option {
	return func(s *Study) { s.store = st }
}

// WithRegisterer registers the study metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Study) { s.reg = reg }
}

// Open creates a study from cfg. Unless WithStore is given, the SQLite
// store at cfg.Store.Path is opened and migrated.
func Open(cfg *config.Config, opts ...Option) (*Study, error) {
	if cfg == nil {
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Study{name: DefaultName, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.logger = s.logger.With("study", s.name)
	s.metrics = NewMetrics(s.reg)

	if s.store == nil {
		sqlite := store.NewSQLiteStore(s.logger)
		if err := sqlite.Open(cfg.Store.Path); err != nil {
			return nil, err
		}
		if err := sqlite.InitSchema(); err != nil {
			_ = sqlite.Close()
			return nil, err
		}
		s.store = sqlite
		s.owned = true
	}

	if cfg.SpaceFile != "" {
		if err := s.LoadSpace(cfg.SpaceFile); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close releases the store when the study opened it.
func (s *Study) Close() error {
	if s.owned {
		return s.store.Close()
	}
	return nil
}

// Name returns the study name.
func (s *Study) Name() string { return s.name }

// Metrics returns the study metrics.
func (s *Study) Metrics() *Metrics { return s.metrics }

// Space returns the compiled space, nil before LoadSpace or Use.
func (s *Study) Space() *space.Space {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.space
}

// LoadSpace reads a space file and compiles it.
func (s *Study) LoadSpace(path string) error {
	sp := space.New(space.WithBackend(s.cfg.Backend), space.WithLogger(s.logger))
	if err := codec.LoadFile(path, sp); err != nil {
		return err
	}
	return s.Use(sp)
}

// Use compiles sp with the configured backend and makes it the study's
// space. Unless sp declares its own identity, the configured identity
// field is appended to every trial; sp itself is not modified.
func (s *Study) Use(sp *space.Space) error {
	var fallback *space.IdentityDirective
	if _, ok := sp.IdentityDirective(); !ok && s.cfg.Identity.Field != "" {
		size := s.cfg.Identity.Size
		if size == 0 {
			size = space.DefaultIdentitySize
		}
		fallback = &space.IdentityDirective{Field: s.cfg.Identity.Field, Size: size}
	}

	compiler, err := s.compiler()
	if err != nil {
		return err
	}
	if _, err := sp.Bind(compiler); err != nil {
		s.metrics.RecordCompileError(compiler.Name())
		return err
	}

	s.mu.Lock()
	s.space = sp
	s.fallback = fallback
	s.mu.Unlock()
	return nil
}

func (s *Study) current() (*space.Space, *space.IdentityDirective) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.space, s.fallback
}

// drawSamples draws from sp and appends the fallback identity, hashed over the
// flat sample the way a space directive is.
func drawSamples(sp *space.Space, fallback *space.IdentityDirective, n int, seed uint64, vars map[string]any) ([]map[string]any, error) {
	samples, err := sp.Sample(n, seed, vars)
	if err != nil || fallback == nil {
		return samples, err
	}
	for i, nested := range samples {
		flat := sp.Flatten(nested)
		flat[fallback.Field] = space.ComputeIdentity(flat, fallback.Size)
		samples[i] = sp.Unflatten(flat)
	}
	return samples, nil
}

func (s *Study) compiler() (space.Compiler, error) {
	if s.cfg.Backend == constrained.Name {
		return constrained.New(s.logger, constrained.WithMaxRejections(s.cfg.MaxRejections)), nil
	}
	return space.NewCompiler(s.cfg.Backend, s.logger)
}

// Suggest samples n configurations with seed and records them. vars must
// hold a value for every declared variable.
func (s *Study) Suggest(ctx context.Context, n int, seed uint64, vars map[string]any) ([]*store.Trial, error) {
	sp, fallback := s.current()
	if sp == nil {
		return nil, ErrNoSpace
	}

	start := time.Now()
	samples, err := drawSamples(sp, fallback, n, seed, vars)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSamples(s.cfg.Backend, len(samples), time.Since(start).Seconds())

	trials := make([]*store.Trial, len(samples))
	for i, sample := range samples {
		trials[i] = &store.Trial{
			Study:     s.name,
			Seed:      seed,
			Index:     i,
			Identity:  identity(sp, fallback, sample),
			Params:    sample,
			Variables: vars,
		}
	}
	if err := s.countDuplicates(ctx, trials); err != nil {
		return nil, err
	}
	if err := s.store.SaveTrials(ctx, trials); err != nil {
		return nil, err
	}
	s.logger.Debug("suggested trials", slog.Int("n", len(trials)), slog.Uint64("seed", seed))
	return trials, nil
}

func identity(sp *space.Space, fallback *space.IdentityDirective, sample map[string]any) string {
	id, ok := sp.IdentityDirective()
	if !ok {
		if fallback == nil {
			return ""
		}
		id = *fallback
	}
	v, _ := sp.Flatten(sample)[id.Field].(string)
	return v
}

// countDuplicates records trials whose identity is already in the ledger,
// including repeats within the batch itself.
func (s *Study) countDuplicates(ctx context.Context, trials []*store.Trial) error {
	seen := make(map[string]bool, len(trials))
	for _, tr := range trials {
		if tr.Identity == "" {
			continue
		}
		if seen[tr.Identity] {
			s.metrics.RecordDuplicate(s.cfg.Backend)
			continue
		}
		seen[tr.Identity] = true

		existing, err := s.store.FindByIdentity(ctx, s.name, tr.Identity)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			s.metrics.RecordDuplicate(s.cfg.Backend)
			s.logger.Debug("configuration already recorded",
				slog.String("identity", tr.Identity), slog.String("trial", existing[0].ID))
		}
	}
	return nil
}

// Lookup returns the recorded trials carrying identity, oldest first.
func (s *Study) Lookup(ctx context.Context, identity string) ([]*store.Trial, error) {
	return s.store.FindByIdentity(ctx, s.name, identity)
}

// Trials lists the recorded trials of the study.
func (s *Study) Trials(ctx context.Context) ([]*store.Trial, error) {
	return s.store.ListTrials(ctx, s.name)
}

// Recreate samples the recorded trial id again from its seed and index.
// ErrMismatch means the space changed since the trial was recorded.
func (s *Study) Recreate(ctx context.Context, id string) (map[string]any, error) {
	sp, fallback := s.current()
	if sp == nil {
		return nil, ErrNoSpace
	}
	trial, err := s.store.GetTrial(ctx, id)
	if err != nil {
		return nil, err
	}

	vars, err := literals(trial.Variables)
	if err != nil {
		return nil, err
	}
	samples, err := drawSamples(sp, fallback, trial.Index+1, trial.Seed, vars)
	if err != nil {
		return nil, err
	}
	got := samples[trial.Index]

	want, err := json.Marshal(trial.Params)
	if err != nil {
		return nil, err
	}
	have, err := json.Marshal(got)
	if err != nil {
		return nil, err
	}
	if string(want) != string(have) {
		return nil, fmt.Errorf("%w: trial %s (seed %d, index %d)", ErrMismatch, id, trial.Seed, trial.Index)
	}
	return got, nil
}

// literals turns decoded json.Number values back into int64 or float64.
func literals(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		lit, err := literal(v)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", k, err)
		}
		out[k] = lit
	}
	return out, nil
}

func literal(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		return x.Float64()
	case []any:
		items := make([]any, len(x))
		for i, item := range x {
			lit, err := literal(item)
			if err != nil {
				return nil, err
			}
			items[i] = lit
		}
		return items, nil
	case map[string]any:
		return literals(x)
	}
	return v, nil
}
