// server/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DevSecret is the signing secret used when none is configured. It is
// only fit for local development.
const DevSecret = "dev"

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Port        string `yaml:"port"`
	CORSOrigins string `yaml:"cors_origins"`
}

// DatabaseConfig selects the store. An empty URL means the in-memory
// store.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type AuthConfig struct {
	Secret string   `yaml:"secret"`
	Expiry Duration `yaml:"expiry"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a time.Duration written as a Go duration string ("168h").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func defaults() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:        "8080",
			CORSOrigins: "*",
		},
		Auth: AuthConfig{
			Secret: DevSecret,
			Expiry: Duration(7 * 24 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration with priority: environment > .env file >
// YAML file at path > defaults. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// .env never overrides variables already present in the environment
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := env("NOTEFUL_PORT", "PORT"); v != "" {
		cfg.HTTP.Port = v
	}
	if v := env("NOTEFUL_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = v
	}
	if v := env("NOTEFUL_DATABASE_URL", "DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := env("NOTEFUL_JWT_SECRET", "JWT_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := env("NOTEFUL_JWT_EXPIRY", "JWT_EXPIRY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JWT expiry %q: %w", v, err)
		}
		cfg.Auth.Expiry = Duration(d)
	}
	if v := env("NOTEFUL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := env("NOTEFUL_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// env returns the first non-empty variable among keys.
func env(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) Validate() error {
	if c.HTTP.Port == "" {
		return errors.New("http port must be set")
	}
	if c.Auth.Secret == "" {
		return errors.New("auth secret must be set")
	}
	if c.Auth.Expiry <= 0 {
		return errors.New("auth expiry must be positive")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return nil
}

// TokenExpiry is the configured session token lifetime.
func (c *Config) TokenExpiry() time.Duration {
	return time.Duration(c.Auth.Expiry)
}
