// Package config loads datapreparer settings from defaults, an optional YAML
// file and DATAPREPARER_* environment variables, in increasing precedence.
//
//	registry:
//	  namespace: myapp/fixtures
//	store:
//	  path: fixtures.db
//	log:
//	  level: debug
//	  format: json
//	catalog:
//	  strict_names: true
//
// The environment variable for a key replaces dots with underscores, for
// example DATAPREPARER_REGISTRY_NAMESPACE.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DATAPREPARER"

// Config holds all settings.
type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

// RegistryConfig controls registry discovery.
type RegistryConfig struct {
	// Namespace restricts discovery to registries at or below it.
	// Empty means unrestricted.
	Namespace string `mapstructure:"namespace"`
}

// StoreConfig locates the fixture store.
type StoreConfig struct {
	// Path is a SQLite file path or ":memory:".
	Path string `mapstructure:"path"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CatalogConfig configures catalog construction.
type CatalogConfig struct {
	// StrictNames rejects duplicate template names instead of shadowing.
	StrictNames bool `mapstructure:"strict_names"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Store: StoreConfig{Path: ":memory:"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads settings. path may be empty, in which case only defaults and
// the environment apply. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("registry.namespace", d.Registry.Namespace)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("catalog.strict_names", d.Catalog.StrictNames)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be 'text' or 'json', got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
