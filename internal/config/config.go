package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "AUTOSENSE_CONFIG"

// Config is the process configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// AuthConfig configures token signing.
type AuthConfig struct {
	JWTKey          string        `yaml:"jwt_key"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	TokenSubject    string        `yaml:"token_subject"`
	TokenRatePerSec float64       `yaml:"token_rate_per_sec"`
	TokenRateBurst  int           `yaml:"token_rate_burst"`
}

// DatabaseConfig selects the store backend. User, Password and Name are
// reserved for server databases and are not used by the sqlite driver.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            4000,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Auth: AuthConfig{
			JWTKey:          "secret",
			TokenTTL:        7 * 24 * time.Hour,
			TokenSubject:    "1234567890",
			TokenRatePerSec: 5,
			TokenRateBurst:  10,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "gas_stations.db",
			User:   "root",
			Name:   "autosense",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in that order. An empty path falls back to
// AUTOSENSE_CONFIG.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	cfg.Server.Host = getenvDefault("HOST", cfg.Server.Host)
	cfg.Auth.JWTKey = getenvDefault("JWT_KEY", cfg.Auth.JWTKey)
	cfg.Auth.TokenSubject = getenvDefault("TOKEN_SUBJECT", cfg.Auth.TokenSubject)
	cfg.Database.Driver = getenvDefault("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Path = getenvDefault("DB_PATH", cfg.Database.Path)
	cfg.Database.URL = getenvDefault("DATABASE_URL", cfg.Database.URL)
	cfg.Database.User = getenvDefault("DB_USER", cfg.Database.User)
	cfg.Database.Password = getenvDefault("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getenvDefault("DB_NAME", cfg.Database.Name)
	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenvDefault("LOG_FORMAT", cfg.Log.Format)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitCSV(origins)
	}

	var err error
	if cfg.Server.Port, err = getenvInt("PORT", cfg.Server.Port); err != nil {
		return err
	}
	if cfg.Auth.TokenRateBurst, err = getenvInt("TOKEN_RATE_BURST", cfg.Auth.TokenRateBurst); err != nil {
		return err
	}
	if cfg.Auth.TokenRatePerSec, err = getenvFloat("TOKEN_RATE_PER_SEC", cfg.Auth.TokenRatePerSec); err != nil {
		return err
	}
	if cfg.Auth.TokenTTL, err = getenvDuration("TOKEN_TTL", cfg.Auth.TokenTTL); err != nil {
		return err
	}
	if cfg.Server.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout); err != nil {
		return err
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTKey) == "" {
		return errors.New("config: jwt key is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: token ttl must be positive")
	}
	switch strings.ToLower(c.Database.Driver) {
	case "", "sqlite", "sqlite3":
		if c.Database.Path == "" {
			return errors.New("config: database path is required for sqlite")
		}
	case "pgx", "postgres", "postgresql":
		if c.Database.URL == "" {
			return errors.New("config: DATABASE_URL is required for pgx")
		}
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// DSN returns the data source name for the configured driver.
func (c DatabaseConfig) DSN() string {
	switch strings.ToLower(c.Driver) {
	case "pgx", "postgres", "postgresql":
		return c.URL
	default:
		return c.Path
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return parsed, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return parsed, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return parsed, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
