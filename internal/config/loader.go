package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "sspace.yaml"
	ConfigFileNameAlt = "sspace.yml"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: SSPACE_STORE__PATH sets store.path.
const EnvPrefix = "SSPACE_"

// flagKeys maps flag names whose config key is not the snake_case form of
// the flag.
var flagKeys = map[string]string{
	"store":          "store.path",
	"identity-field": "identity.field",
	"identity-size":  "identity.size",
	"space":          "space_file",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("backend", DefaultBackend, "sampling backend")
	fs.Int("max-rejections", DefaultMaxRejections, "draws per sample before giving up on forbidden values")
	fs.String("format", DefaultFormat, "leaf format when writing space files (canonical, compact)")
	fs.String("space", "", "space definition file (.json, .yaml, .yml)")
	fs.String("identity-field", "", "add a sample identity under this key")
	fs.Int("identity-size", DefaultIdentitySize, "hex characters kept from the identity digest")
	fs.String("store", DefaultStorePath, "trial database path")
	fs.BoolP("verbose", "v", false, "log debug output")
}

// Load reads the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
//
// Unknown keys are rejected, whichever layer they come from.
//
// An empty cfgFile looks for sspace.yaml or sspace.yml in the working
// directory. Relative paths from the file are resolved against its
// directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		cfgFile = findConfigFile(".")
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment: SSPACE_MAX_REJECTIONS -> max_rejections
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ApplyDefaults()

	if cfgFile != "" {
		cfg.ConfigFile = cfgFile
		base := filepath.Dir(cfgFile)
		if !changed(flags, "space") {
			cfg.SpaceFile = resolvePathRelativeTo(cfg.SpaceFile, base)
		}
		if !changed(flags, "store") && cfg.Store.Path != MemoryStore {
			cfg.Store.Path = resolvePathRelativeTo(cfg.Store.Path, base)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func changed(flags *pflag.FlagSet, name string) bool {
	return flags != nil && flags.Changed(name)
}

// findConfigFile returns the config file in dir, or "" when there is none.
func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
