// Package config loads the settings shared by study sessions: which
// sampling backend compiles a space, where trials are recorded and how
// samples are identified.
package config

// IdentityConfig controls the identity field added to each sample.
type IdentityConfig struct {
	// Field is the key the identity is written under. Empty disables it
	// unless the space file declares one itself.
	Field string `koanf:"field"`
	// Size is the number of hex characters kept from the digest.
	Size int `koanf:"size"`
}

// StoreConfig locates the trial store.
type StoreConfig struct {
	// Path is the SQLite database file, or ":memory:".
	Path string `koanf:"path"`
}

// Config holds the resolved configuration.
type Config struct {
	Backend       string         `koanf:"backend"`
	MaxRejections int            `koanf:"max_rejections"`
	Format        string         `koanf:"format"` // canonical, compact
	SpaceFile     string         `koanf:"space_file"`
	Identity      IdentityConfig `koanf:"identity"`
	Store         StoreConfig    `koanf:"store"`
	Verbose       bool           `koanf:"verbose"`

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `koanf:"-"`
}
