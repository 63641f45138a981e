package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cyverse-de/terrain-cli/internal/failure"
)

// Environments maps an environment name to the base URI of its Terrain
// deployment.
type Environments map[string]string

// DefaultEnvironments are the deployments the CLI knows about out of the box.
func DefaultEnvironments() Environments {
	return Environments{
		"prod": "https://de.cyverse.org/terrain",
		"qa":   "https://qa.cyverse.org/terrain",
	}
}

// Names returns the environment names in sorted order.
func (e Environments) Names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveURI builds the URI for path in the named environment. An unknown
// environment is a configuration error; there is no fallback.
func (e Environments) ResolveURI(env, path string) (string, error) {
	base, ok := e[env]
	if !ok || base == "" {
		return "", failure.Fatal(failure.KindConfig, "",
			fmt.Errorf("invalid terrain environment: %s (known: %s)", env, strings.Join(e.Names(), ", ")))
	}
	return strings.TrimSuffix(base, "/") + path, nil
}

type Config struct {
	Environments       Environments  `yaml:"environments"`
	DefaultEnvironment string        `yaml:"default_environment"`
	LogLevel           string        `yaml:"log_level"`
	CacheDir           string        `yaml:"cache_dir"` // directory holding the credential files (default: home)
	Timeout            time.Duration `yaml:"timeout"`   // HTTP client timeout (default: none)
}

// Default returns the configuration used when no file or env vars are set.
func Default() Config {
	return Config{
		Environments:       DefaultEnvironments(),
		DefaultEnvironment: "prod",
		LogLevel:           "warn",
	}
}

// DefaultPath is $TERRAIN_CONFIG, or config.yaml under the user's config
// directory.
func DefaultPath() string {
	if path := os.Getenv("TERRAIN_CONFIG"); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "terrain", "config.yaml")
}

// Load builds the configuration from defaults, the YAML file at path (if it
// exists) and TERRAIN_* environment variables, in increasing precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, failure.Fatal(failure.KindConfig, "read config", err)
		default:
			var file Config
			if err := yaml.Unmarshal(data, &file); err != nil {
				return cfg, failure.Fatal(failure.KindConfig, "parse config "+path, err)
			}
			cfg.merge(file)
		}
	}

	cfg.DefaultEnvironment = getEnvOrDefault("TERRAIN_ENV", cfg.DefaultEnvironment)
	cfg.LogLevel = getEnvOrDefault("TERRAIN_LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// merge overlays the non-zero fields of other onto c. Environments are
// merged key by key so a file can add one deployment without repeating the
// built-in ones.
func (c *Config) merge(other Config) {
	for name, base := range other.Environments {
		c.Environments[name] = base
	}
	if other.DefaultEnvironment != "" {
		c.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.CacheDir != "" {
		c.CacheDir = other.CacheDir
	}
	if other.Timeout != 0 {
		c.Timeout = other.Timeout
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
