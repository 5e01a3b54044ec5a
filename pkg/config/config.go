package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrInvalidFormat is returned for an unknown output format.
var ErrInvalidFormat = errors.New("invalid output format")

// Config holds all configuration options for toxicity.
type Config struct {
	// Classification policy
	Policy PolicyConfig `koanf:"policy" toml:"policy"`

	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// PolicyConfig declares the rule table used to classify issues.
type PolicyConfig struct {
	// Defaults appends the built-in Checkstyle table after the configured debts.
	Defaults bool         `koanf:"defaults" toml:"defaults"`
	Debts    []DebtConfig `koanf:"debts" toml:"debts"`
}

// DebtConfig maps a set of rule keys to one debt type.
type DebtConfig struct {
	Type     string     `koanf:"type" toml:"type"`
	Priority int        `koanf:"priority" toml:"priority"`
	Rules    []string   `koanf:"rules" toml:"rules"`
	Cost     CostConfig `koanf:"cost" toml:"cost"`
}

// CostConfig selects and parameterizes a cost calculator.
type CostConfig struct {
	Kind     string             `koanf:"kind" toml:"kind"`   // constant, ratio, severity
	Value    float64            `koanf:"value" toml:"value"` // constant amount, or fallback for ratio/severity
	Offset   float64            `koanf:"offset" toml:"offset"`
	Patterns []string           `koanf:"patterns" toml:"patterns"`
	Weights  map[string]float64 `koanf:"weights" toml:"weights"`
}

// AnalysisConfig controls how issue reports are processed.
type AnalysisConfig struct {
	Shards   int  `koanf:"shards" toml:"shards"`
	Workers  int  `koanf:"workers" toml:"workers"` // 0 = 2x NumCPU
	Separate bool `koanf:"separate" toml:"separate"`

	// Report discovery when a directory is given.
	Exclude   []string `koanf:"exclude" toml:"exclude"` // gitignore syntax
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
	Top     int    `koanf:"top" toml:"top"` // 0 = all sources
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Policy: PolicyConfig{
			Defaults: true,
		},
		Analysis: AnalysisConfig{
			Shards:    32,
			Workers:   0,
			Exclude:   []string{".git/", ".toxicity/", "node_modules/"},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".toxicity/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
			Top:     0,
		},
	}
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configNames are searched, in order, in each of searchDirs.
var (
	configNames = []string{
		"toxicity.toml",
		"toxicity.yaml",
		"toxicity.yml",
		"toxicity.json",
		".toxicity.toml",
		".toxicity.yaml",
		".toxicity.yml",
		".toxicity.json",
	}
	searchDirs = []string{".", ".toxicity"}
)

// LoadResult is a loaded configuration and the file it came from.
// Source is empty when the defaults were used.
type LoadResult struct {
	Config *Config
	Source string
}

type loadOptions struct {
	path string
	dir  string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads the given file instead of searching.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithDir searches for config files relative to dir instead of the working directory.
func WithDir(dir string) LoadOption {
	return func(o *loadOptions) {
		o.dir = dir
	}
}

// LoadConfig loads and validates configuration. An explicit path must exist;
// otherwise the standard locations are searched and the defaults are used
// when nothing is found.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	path := o.path
	if path == "" {
		path = findConfig(o.dir)
	}
	if path == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

func findConfig(base string) string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(base, dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	result, err := LoadConfig()
	if err != nil {
		return DefaultConfig()
	}
	return result.Config
}

// Validate checks the config for values that cannot be used.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Output.Format) {
	case "", "text", "json", "markdown", "md", "toon":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}
	if c.Analysis.Shards < 0 {
		return fmt.Errorf("analysis.shards must not be negative, got %d", c.Analysis.Shards)
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must not be negative, got %d", c.Analysis.Workers)
	}
	if _, err := c.Policy.Build(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	return nil
}
