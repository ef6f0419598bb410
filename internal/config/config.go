// Package config holds scan settings. Values come from defaults, then an
// optional .agentscan.yaml at the scan root, then AGENTSCAN_* environment
// variables; the CLI applies explicitly set flags last.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/agentscan/internal/discovery"
	"github.com/steveyegge/agentscan/internal/matcher"
)

// FileName is the project configuration file looked up at the scan root.
const FileName = ".agentscan.yaml"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the scan settings.
type Config struct {
	// ConfidenceThreshold is the minimum confidence for a source detection
	// to become an agent record
	// Default: 0.4, Range: 0-1
	ConfidenceThreshold float64

	// MaxFiles caps the number of discovered files
	// Default: 10000, Range: 1-1000000
	MaxFiles int

	// Exclude holds extra glob patterns matched against relative paths
	Exclude []string

	// Workers is the number of files matched in parallel
	// 1 means sequential
	// Default: 1, Range: 1-64
	Workers int

	// LogLevel is a zerolog level name
	// Default: "warn"
	LogLevel string

	// LogFormat selects the log writer
	// Options: "auto", "console" or "json"
	// Default: "auto"
	LogFormat string
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ConfidenceThreshold: matcher.DefaultThreshold,
		MaxFiles:            discovery.DefaultMaxFiles,
		Workers:             1,
		LogLevel:            "warn",
		LogFormat:           "auto",
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: threshold must be between 0 and 1 (got %g)", ErrInvalid, c.ConfidenceThreshold)
	}
	if c.MaxFiles < 1 || c.MaxFiles > 1000000 {
		return fmt.Errorf("%w: max_files must be between 1 and 1000000 (got %d)", ErrInvalid, c.MaxFiles)
	}
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("%w: workers must be between 1 and 64 (got %d)", ErrInvalid, c.Workers)
	}
	for _, pattern := range c.Exclude {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("%w: empty exclude pattern", ErrInvalid)
		}
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("%w: log_level must be one of trace, debug, info, warn, error, disabled (got %q)", ErrInvalid, c.LogLevel)
	}
	switch c.LogFormat {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("%w: log_format must be 'auto', 'console' or 'json' (got %q)", ErrInvalid, c.LogFormat)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Threshold: %.2f, MaxFiles: %d, Exclude: %v, Workers: %d, LogLevel: %s, LogFormat: %s}",
		c.ConfidenceThreshold, c.MaxFiles, c.Exclude, c.Workers, c.LogLevel, c.LogFormat,
	)
}

// File is the YAML shape of .agentscan.yaml. Pointer fields distinguish
// "unset" from zero values.
type File struct {
	Threshold *float64 `yaml:"threshold"`
	MaxFiles  *int     `yaml:"max_files"`
	Exclude   []string `yaml:"exclude"`
	Workers   *int     `yaml:"workers"`
	LogLevel  string   `yaml:"log_level"`
	LogFormat string   `yaml:"log_format"`
}

// Apply overlays the values set in f onto c.
func (f *File) Apply(c *Config) {
	if f.Threshold != nil {
		c.ConfidenceThreshold = *f.Threshold
	}
	if f.MaxFiles != nil {
		c.MaxFiles = *f.MaxFiles
	}
	if len(f.Exclude) > 0 {
		c.Exclude = append(c.Exclude, f.Exclude...)
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	if f.LogFormat != "" {
		c.LogFormat = f.LogFormat
	}
}

// LoadFile reads .agentscan.yaml from root. A missing file yields nil.
func LoadFile(root string) (*File, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &f, nil
}

// Load resolves defaults, the project file under root and the environment,
// then validates the result.
func Load(root string) (Config, error) {
	cfg := Default()

	f, err := LoadFile(root)
	if err != nil {
		return cfg, err
	}
	if f != nil {
		f.Apply(&cfg)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays AGENTSCAN_* environment variables onto cfg.
//
// Environment variables:
//   - AGENTSCAN_THRESHOLD: confidence threshold (default: 0.4)
//   - AGENTSCAN_MAX_FILES: discovery cap (default: 10000)
//   - AGENTSCAN_EXCLUDE: comma-separated extra exclusion globs
//   - AGENTSCAN_WORKERS: parallel matching workers (default: 1)
//   - AGENTSCAN_LOG_LEVEL: zerolog level (default: warn)
//   - AGENTSCAN_LOG_FORMAT: auto, console or json (default: auto)
func ApplyEnv(cfg *Config) error {
	if err := parseEnvFloat("AGENTSCAN_THRESHOLD", &cfg.ConfidenceThreshold); err != nil {
		return err
	}
	if err := parseEnvInt("AGENTSCAN_MAX_FILES", &cfg.MaxFiles); err != nil {
		return err
	}
	if err := parseEnvInt("AGENTSCAN_WORKERS", &cfg.Workers); err != nil {
		return err
	}
	if v := os.Getenv("AGENTSCAN_EXCLUDE"); v != "" {
		for _, pattern := range strings.Split(v, ",") {
			if pattern = strings.TrimSpace(pattern); pattern != "" {
				cfg.Exclude = append(cfg.Exclude, pattern)
			}
		}
	}
	parseEnvString("AGENTSCAN_LOG_LEVEL", &cfg.LogLevel)
	parseEnvString("AGENTSCAN_LOG_FORMAT", &cfg.LogFormat)
	return nil
}

func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: invalid value for %s: %w", ErrInvalid, key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid value for %s: %w", ErrInvalid, key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvString(key string, dest *string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}
