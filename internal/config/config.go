package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"gopkg.in/yaml.v3"
)

type (
	// Config holds the settings of the tendril binary.
	Config struct {
		// HTTP server
		Addr            string        `yaml:"addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

		// Logging
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`

		// Engine
		Workers  int `yaml:"workers"`
		MaxSteps int `yaml:"max_steps"`

		// ToolsFile lists external process tools. Missing files are ignored.
		ToolsFile string `yaml:"tools_file"`
		// Workflows are definition files registered at start.
		Workflows []string `yaml:"workflows"`

		// Redact lists regular expressions; state values under matching keys
		// are masked in stored run records.
		Redact []string `yaml:"redact"`

		Redis RedisConfig `yaml:"redis"`
	}

	// RedisConfig enables the run event publisher when Addr is set.
	RedisConfig struct {
		Addr    string `yaml:"addr"`
		Channel string `yaml:"channel"`
	}
)

const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultWorkers         = 8
	DefaultToolsFile       = "tools.yaml"

	// EnvPrefix prefixes every environment variable read by LoadFromEnv.
	EnvPrefix = "TENDRIL_"
)

var (
	ErrInvalidWorkers  = errors.New("workers cannot be negative")
	ErrInvalidMaxSteps = errors.New("max steps cannot be negative")
	ErrInvalidTimeout  = errors.New("shutdown timeout must be positive")
)

// NewDefaultConfig creates a configuration with defaults for every setting.
func NewDefaultConfig() *Config {
	return &Config{
		Addr:            DefaultAddr,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        "info",
		LogFormat:       string(logging.FormatText),
		Workers:         DefaultWorkers,
		ToolsFile:       DefaultToolsFile,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadFile overlays the keys present in a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv populates configuration values from TENDRIL_* environment
// variables. Returns an error if any value cannot be parsed.
func (c *Config) LoadFromEnv() error {
	loadEnvString("ADDR", &c.Addr)
	loadEnvString("LOG_LEVEL", &c.LogLevel)
	loadEnvString("LOG_FORMAT", &c.LogFormat)
	loadEnvString("TOOLS_FILE", &c.ToolsFile)
	loadEnvString("REDIS_ADDR", &c.Redis.Addr)
	loadEnvString("REDIS_CHANNEL", &c.Redis.Channel)

	if v, ok := lookup("WORKFLOWS"); ok {
		c.Workflows = splitList(v)
	}
	if v, ok := lookup("REDACT"); ok {
		c.Redact = splitList(v)
	}

	if err := loadEnvInt("WORKERS", &c.Workers); err != nil {
		return err
	}
	if err := loadEnvInt("MAX_STEPS", &c.MaxSteps); err != nil {
		return err
	}
	return loadEnvDuration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, ErrInvalidWorkers)
	}
	if c.MaxSteps < 0 {
		errs = append(errs, ErrInvalidMaxSteps)
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	for _, p := range c.Redact {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("redact pattern %q: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	return v, ok && v != ""
}

func loadEnvString(name string, target *string) {
	if v, ok := lookup(name); ok {
		*target = v
	}
}

func loadEnvInt(name string, target *int) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
	}
	*target = n
	return nil
}

func loadEnvDuration(name string, target *time.Duration) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
	}
	*target = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
