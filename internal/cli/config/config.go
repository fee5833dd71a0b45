package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the hastemap.yml configuration: the subset of builder.Config
// worth letting a project pin in a file instead of passing as CLI flags.
type Config struct {
	ID         string        `mapstructure:"id"`
	Roots      []string      `mapstructure:"roots"`
	Extensions []string      `mapstructure:"extensions"`
	Platforms  []string      `mapstructure:"platforms"`
	Cache      CacheConfig   `mapstructure:"cache"`
	Workers    WorkersConfig `mapstructure:"workers"`
}

// CacheConfig controls where and whether the haste map cache is used.
type CacheConfig struct {
	Directory string `mapstructure:"directory"`
	Reset     bool   `mapstructure:"reset"`
}

// WorkersConfig controls the processor pool.
type WorkersConfig struct {
	Max         int  `mapstructure:"max"`
	ForceInBand bool `mapstructure:"force_in_band"`
}

// Load reads hastemap.yml / hastemap.yaml from the current directory (or
// its defaults if no file is present) and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("id", "hastemap")
	v.SetDefault("extensions", []string{"js", "jsx", "ts", "tsx", "json"})
	v.SetDefault("cache.directory", os.TempDir())
	v.SetDefault("cache.reset", false)
	v.SetDefault("workers.max", 0)
	v.SetDefault("workers.force_in_band", false)

	v.SetConfigName("hastemap")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvPrefix("HASTEMAP")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// InProject reports whether the current directory looks like a hastemap
// project: it holds a hastemap.yml or hastemap.yaml config file.
func InProject() bool {
	if _, err := os.Stat("hastemap.yml"); err == nil {
		return true
	}
	if _, err := os.Stat("hastemap.yaml"); err == nil {
		return true
	}
	return false
}

// FindProjectRoot walks upward from the working directory looking for a
// hastemap config file, the way a tool without a fixed install location
// has to locate the project it was invoked inside.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "hastemap.yml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "hastemap.yaml")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a hastemap project (no hastemap.yml found)")
		}
		dir = parent
	}
}

func validateConfig(cfg *Config) error {
	if cfg.ID != "" && strings.ContainsAny(cfg.ID, "/\\") {
		return fmt.Errorf("id must not contain a path separator, got: %s", cfg.ID)
	}
	if cfg.Workers.Max < 0 {
		return fmt.Errorf("workers.max must be >= 0, got: %d", cfg.Workers.Max)
	}
	return nil
}
