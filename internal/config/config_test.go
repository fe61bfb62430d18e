package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sspace/internal/config"
	"github.com/leapstack-labs/sspace/internal/testutil"
	"github.com/leapstack-labs/sspace/pkg/space"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	return testutil.WriteFile(t, config.ConfigFileName, content)
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultBackend, cfg.Backend)
	assert.Equal(t, config.DefaultMaxRejections, cfg.MaxRejections)
	assert.Equal(t, config.DefaultIdentitySize, cfg.Identity.Size)
	assert.Equal(t, config.DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, "canonical", cfg.Format)
	assert.Empty(t, cfg.Identity.Field)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
backend: simple
max_rejections: 50
format: compact
space_file: spaces/search.yaml
identity:
  field: uid
  size: 8
store:
  path: trials.db
`)
	dir := filepath.Dir(path)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "simple", cfg.Backend)
	assert.Equal(t, 50, cfg.MaxRejections)
	assert.Equal(t, "compact", cfg.Format)
	assert.Equal(t, config.IdentityConfig{Field: "uid", Size: 8}, cfg.Identity)
	assert.Equal(t, filepath.Join(dir, "spaces", "search.yaml"), cfg.SpaceFile)
	assert.Equal(t, filepath.Join(dir, "trials.db"), cfg.Store.Path)
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestLoad_FoundInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileNameAlt), []byte("max_rejections: 7\n"), 0o600))
	t.Chdir(dir)

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxRejections)
	assert.Equal(t, config.ConfigFileNameAlt, filepath.Base(cfg.ConfigFile))
}

func TestLoad_MemoryStoreIsNotResolved(t *testing.T) {
	path := writeConfig(t, "store:\n  path: \":memory:\"\n")

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, config.MemoryStore, cfg.Store.Path)
}

func TestLoad_EnvPrecedenceOverFile(t *testing.T) {
	path := writeConfig(t, "max_rejections: 50\nstore:\n  path: /tmp/file.db\n")
	t.Setenv("SSPACE_MAX_REJECTIONS", "75")
	t.Setenv("SSPACE_STORE__PATH", "/tmp/env.db")

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.MaxRejections)
	assert.Equal(t, "/tmp/env.db", cfg.Store.Path)
}

func TestLoad_FlagPrecedence(t *testing.T) {
	path := writeConfig(t, "backend: simple\nidentity:\n  size: 8\n")
	t.Setenv("SSPACE_BACKEND", "simple")

	flags := newFlags(t, "--backend", "constrained", "--identity-field", "id", "--store", "rel.db", "--space", "s.json")
	cfg, err := config.Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "constrained", cfg.Backend)
	assert.Equal(t, config.IdentityConfig{Field: "id", Size: 8}, cfg.Identity)
	// paths given on the command line stay relative to the working directory
	assert.Equal(t, "rel.db", cfg.Store.Path)
	assert.Equal(t, "s.json", cfg.SpaceFile)
}

func TestLoad_FlagNotSetUsesEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SSPACE_MAX_REJECTIONS", "3")

	cfg, err := config.Load("", newFlags(t, "--verbose"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxRejections)
	assert.True(t, cfg.Verbose)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	path := writeConfig(t, "backend: [unclosed\n")
	_, err = config.Load(path, nil)
	require.Error(t, err)

	path = writeConfig(t, "max_rejection: 5\n")
	_, err = config.Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_rejection")

	t.Setenv("SSPACE_MAX_REJECTIONS", "many")
	_, err = config.Load(writeConfig(t, ""), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to decode config")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Config{}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*config.Config)
		errSubstr string
	}{
		{name: "defaults", mutate: func(*config.Config) {}},
		{name: "simple backend", mutate: func(c *config.Config) { c.Backend = "simple" }},
		{
			name:      "unknown backend",
			mutate:    func(c *config.Config) { c.Backend = "hyperopt" },
			errSubstr: "unknown backend",
		},
		{
			name:      "negative rejections",
			mutate:    func(c *config.Config) { c.MaxRejections = -1 },
			errSubstr: "max_rejections must be positive",
		},
		{
			name:      "identity too long",
			mutate:    func(c *config.Config) { c.Identity.Size = 65 },
			errSubstr: "identity.size",
		},
		{
			name:      "unknown format",
			mutate:    func(c *config.Config) { c.Format = "toml" },
			errSubstr: "unknown format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_Validate_ErrorContainsAvailable(t *testing.T) {
	cfg := config.Config{Backend: "nope"}
	cfg.ApplyDefaults()
	cfg.Backend = "nope"

	err := cfg.Validate()
	var unknown *space.UnknownBackendError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, unknown.Available, "constrained")
	assert.Contains(t, unknown.Available, "simple")
}
