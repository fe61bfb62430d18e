package config

import (
	"github.com/leapstack-labs/sspace/pkg/backends/constrained"
	"github.com/leapstack-labs/sspace/pkg/space"
)

// Default configuration values.
const (
	DefaultBackend       = space.DefaultBackend
	DefaultMaxRejections = constrained.DefaultMaxRejections
	DefaultIdentitySize  = space.DefaultIdentitySize
	DefaultStorePath     = "sspace.db"
	DefaultFormat        = "canonical"
	MemoryStore          = ":memory:"
)

func defaults() map[string]any {
	return map[string]any{
		"backend":        DefaultBackend,
		"max_rejections": DefaultMaxRejections,
		"format":         DefaultFormat,
		"identity.size":  DefaultIdentitySize,
		"store.path":     DefaultStorePath,
		"verbose":        false,
	}
}

// ApplyDefaults fills zero values in c.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.MaxRejections == 0 {
		c.MaxRejections = DefaultMaxRejections
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.Identity.Size == 0 {
		c.Identity.Size = DefaultIdentitySize
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
}
