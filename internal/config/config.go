// Package config loads civicmap settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// AppName names the XDG config and cache subdirectories.
const AppName = "civicmap"

// LocalConfigFile is looked up in the working directory.
const LocalConfigFile = ".civicmap.yaml"

// Configuration errors.
var (
	// ErrConfigNotFound is returned when an explicitly requested file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidColor is returned when a color is not a #rrggbb hex string.
	ErrInvalidColor = errors.New("invalid color: want #rrggbb")

	// ErrInvalidWeight is returned when the outline weight is negative.
	ErrInvalidWeight = errors.New("invalid outline weight: must be non-negative")

	// ErrInvalidOpacity is returned when the fill opacity is outside [0, 1].
	ErrInvalidOpacity = errors.New("invalid fill opacity: must be between 0 and 1")
)

// Style holds the map style defaults.
type Style struct {
	Tiles         string    `yaml:"tiles"`
	Attribution   string    `yaml:"attribution"`
	LowColor      string    `yaml:"low_color"`
	HighColor     string    `yaml:"high_color"`
	FallbackColor string    `yaml:"fallback_color"`
	Outline       string    `yaml:"outline"`
	Weight        float64   `yaml:"weight"`
	FillOpacity   float64   `yaml:"fill_opacity"`
	MissingValues []float64 `yaml:"missing_values"`
}

// Census holds the Census API settings.
type Census struct {
	APIKey string `yaml:"api_key"`
}

// Config is the complete file configuration.
type Config struct {
	Verbose  bool   `yaml:"verbose"`
	CacheDir string `yaml:"cache_dir"`
	Census   Census `yaml:"census"`
	Style    Style  `yaml:"style"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		CacheDir: DefaultCacheDir(),
		Style: Style{
			Tiles:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
			LowColor:      "#764aed",
			HighColor:     "#fc6665",
			FallbackColor: "grey",
			Outline:       "black",
			Weight:        2,
			FillOpacity:   0.5,
		},
	}
}

// DefaultCacheDir returns $XDG_CACHE_HOME/civicmap.
func DefaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/civicmap/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Find returns the configuration file to read: explicit when given, then
// ./.civicmap.yaml, then the XDG config file. It returns "" when none exist.
func Find(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, LocalConfigFile)
		if _, err := os.Stat(local); err == nil {
			return local
		}
	}
	if p := DefaultConfigPath(); fileExists(p) {
		return p
	}
	return ""
}

// Load reads the file Find selects on top of the defaults. A missing
// explicit file is an error; no file at all yields the defaults.
func Load(explicit string) (*Config, error) {
	cfg := NewConfig()
	path := Find(explicit)
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Path = path
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the style values.
func (c *Config) Validate() error {
	for _, col := range []string{c.Style.LowColor, c.Style.HighColor} {
		if _, err := colorful.Hex(col); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidColor, col)
		}
	}
	if c.Style.Weight < 0 {
		return ErrInvalidWeight
	}
	if c.Style.FillOpacity < 0 || c.Style.FillOpacity > 1 {
		return ErrInvalidOpacity
	}
	return nil
}

// MissingValues returns the configured extra sentinels added to base.
func (c *Config) MissingValues(base []any) []any {
	out := append([]any{}, base...)
	for _, v := range c.Style.MissingValues {
		out = append(out, v)
	}
	return out
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
