package constrained

import (
	"fmt"
	"math/rand/v2"

	"github.com/leapstack-labs/sspace/pkg/space"
)

// Sampler draws configurations from a compiled tree. It holds no mutable
// state and may be shared between goroutines.
type Sampler struct {
	params        []*param
	maxRejections int
}

// Sample draws n configurations. Sample i uses its own PCG stream seeded
// with (seed, i), so a sample does not depend on n. Parameters whose
// condition is false are left out; configurations hitting a forbidden
// clause are redrawn from the same stream.
func (s *Sampler) Sample(n int, seed uint64) ([]map[string]any, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", space.ErrInvalidCount, n)
	}
	out := make([]map[string]any, 0, n)
	for i := range n {
		r := rand.New(rand.NewPCG(seed, uint64(i))) //nolint:gosec // reproducible sampling, not security

		cfg, err := s.draw(r, seed, i)
		if err != nil {
			return nil, fmt.Errorf("sample %d (seed %d): %w", i, seed, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (s *Sampler) draw(r *rand.Rand, seed uint64, index int) (map[string]any, error) {
	for range s.maxRejections {
		cfg := make(map[string]any, len(s.params))
		for _, p := range s.params {
			if p.active != nil && !p.active(cfg) {
				continue
			}
			cfg[p.name] = p.draw(r, seed, index)
		}
		if !s.forbidden(cfg) {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("%w after %d attempts", space.ErrRejected, s.maxRejections)
}

func (s *Sampler) forbidden(cfg map[string]any) bool {
	for _, p := range s.params {
		if p.forbidden == nil {
			continue
		}
		if _, ok := cfg[p.name]; ok && p.forbidden(cfg) {
			return true
		}
	}
	return false
}
