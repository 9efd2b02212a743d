package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/saferoad/routesafety/internal/lib/features"
	"github.com/saferoad/routesafety/internal/lib/landmarks"
)

// EnvPrefix prefixes environment overrides, e.g. ROUTESAFETY_GOOGLE_API_KEY sets google.api_key
const EnvPrefix = "ROUTESAFETY_"

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `koanf:"server" yaml:"server"`
	Google   GoogleConfig   `koanf:"google" yaml:"google"`
	Analysis AnalysisConfig `koanf:"analysis" yaml:"analysis"`
	Store    StoreConfig    `koanf:"store" yaml:"store"`
}

// ServerConfig holds HTTP transport settings. Listen address and port belong to prefab.
type ServerConfig struct {
	CorsOrigins    []string      `koanf:"cors_origins" yaml:"cors_origins"`
	RequestTimeout time.Duration `koanf:"request_timeout" yaml:"request_timeout"`
	LogLevel       string        `koanf:"log_level" yaml:"log_level"`
}

// GoogleConfig holds Google Maps web service settings
type GoogleConfig struct {
	APIKey  string        `koanf:"api_key" yaml:"api_key"`
	BaseURL string        `koanf:"base_url" yaml:"base_url"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
}

// AnalysisConfig holds feature detection and landmark sampling settings
type AnalysisConfig struct {
	Detection features.Thresholds `koanf:"detection" yaml:"detection"`
	Landmarks landmarks.Config    `koanf:"landmarks" yaml:"landmarks"`
}

// StoreConfig holds accident report storage settings
type StoreConfig struct {
	Path string `koanf:"path" yaml:"path"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			CorsOrigins:    []string{"*"},
			RequestTimeout: 30 * time.Second,
			LogLevel:       "info",
		},
		Google: GoogleConfig{
			BaseURL: "https://maps.googleapis.com",
			Timeout: 30 * time.Second,
		},
		Analysis: AnalysisConfig{
			Detection: features.DefaultThresholds(),
			Landmarks: landmarks.DefaultConfig(),
		},
		Store: StoreConfig{
			Path: "routesafety.db",
		},
	}
}

// Unmarshaler reads a config section by key path; *koanf.Koanf and prefab.Config satisfy it
type Unmarshaler interface {
	Unmarshal(path string, o interface{}) error
}

// Load overlays every section found in u onto the defaults
func Load(u Unmarshaler) (*Config, error) {
	cfg := DefaultConfig()

	sections := []struct {
		key    string
		target interface{}
	}{
		{"server", &cfg.Server},
		{"google", &cfg.Google},
		{"analysis", &cfg.Analysis},
		{"store", &cfg.Store},
	}
	for _, s := range sections {
		if err := u.Unmarshal(s.key, s.target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s section: %w", s.key, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewKoanf builds a koanf instance from an optional YAML file and ROUTESAFETY_ environment variables.
// Environment variables win over the file.
func NewKoanf(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	return k, nil
}

// envKey maps ROUTESAFETY_GOOGLE_API_KEY to google.api_key: the first
// underscore separates the section from the field. Nested settings use double
// underscores at every level, e.g. ROUTESAFETY_ANALYSIS__DETECTION__JUNCTION_TURN
// sets analysis.detection.junction_turn.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if strings.Contains(s, "__") {
		return strings.ReplaceAll(s, "__", ".")
	}
	return strings.Replace(s, "_", ".", 1)
}

// Validate checks values that have no usable zero default
func (c *Config) Validate() error {
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be positive")
	}
	if c.Google.Timeout <= 0 {
		return errors.New("google.timeout must be positive")
	}
	if c.Analysis.Landmarks.MaxConcurrentQueries < 0 {
		return errors.New("analysis.landmarks.max_concurrent_queries must not be negative")
	}
	return nil
}

// RequireAPIKey reports an error when no Google API key is configured
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Google.APIKey) == "" {
		return fmt.Errorf("google.api_key is required (set %sGOOGLE_API_KEY)", EnvPrefix)
	}
	return nil
}
