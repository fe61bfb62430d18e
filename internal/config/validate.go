package config

import (
	"fmt"

	"github.com/leapstack-labs/sspace/pkg/codec"
	"github.com/leapstack-labs/sspace/pkg/space"

	// Register the backends a config file may name.
	_ "github.com/leapstack-labs/sspace/pkg/backends/simple"
)

// Validate checks if the configuration is valid. The backend must be
// registered, which happens when its package is imported.
func (c *Config) Validate() error {
	if !space.IsRegistered(c.Backend) {
		return &space.UnknownBackendError{Name: c.Backend, Available: space.ListBackends()}
	}
	if c.MaxRejections < 1 {
		return fmt.Errorf("max_rejections must be positive, got %d", c.MaxRejections)
	}
	if c.Identity.Size < 1 || c.Identity.Size > 64 {
		return fmt.Errorf("identity.size must be between 1 and 64, got %d", c.Identity.Size)
	}
	if _, err := codec.ParseFormat(c.Format); err != nil {
		return err
	}
	return nil
}
