// Package config handles configuration loading and validation for the
// shape-message inspection server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override of the [upload] section.
const EnvPrefix = "SHAPE_MESSAGE_"

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/shape-message/config.toml",
	"configs/config.toml",
}

// reservedRoutes cannot be shadowed by the metrics endpoint.
var reservedRoutes = []string{"/inspect", "/healthz", "/status"}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config   string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	EnvFile  string `kong:"name='env-file',help='Optional dotenv file loaded before reading the environment.',default='.env'"`
	Host     string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port     int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	LogLevel string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Upload  UploadConfig  `toml:"upload"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`

	filePath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (8000)
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// UploadConfig controls where uploaded files land. Every field can be
// overridden from the environment with the SHAPE_MESSAGE_ prefix.
type UploadConfig struct {
	// Dir receives moved uploads, one subdirectory per request.
	Dir string `toml:"dir" env:"UPLOAD_DIR"`
	// Keep moves uploads into Dir; otherwise they are discarded with the
	// request's temporary files.
	Keep bool `toml:"keep" env:"UPLOAD_KEEP"`
	// TempDir holds multipart parts while a request is being handled.
	TempDir string `toml:"temp_dir" env:"UPLOAD_TEMP_DIR"`
	// MaxMemory is the multipart form size kept in memory before spilling.
	MaxMemory int64 `toml:"max_memory" env:"UPLOAD_MAX_MEMORY"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load builds the configuration from, in increasing precedence: the TOML
// file, the dotenv file and process environment, and the CLI flags.
//
// When no explicit path is given (via --config or CONFIG_PATH) it searches
// /etc/shape-message/config.toml then configs/config.toml, and falls back to
// defaults if neither exists.
func Load(cli *CLI) (*Config, error) {
	if err := loadEnvFile(cli.EnvFile); err != nil {
		return nil, err
	}

	var cfg Config
	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	if err := env.ParseWithOptions(&cfg.Upload, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// loadEnvFile exports the variables of a dotenv file without overriding
// ones already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: env file %s: %w", path, err)
	}
	return nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0-65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}
	if c.Upload.MaxMemory < 0 {
		return fmt.Errorf("upload.max_memory must be non-negative; got %d", c.Upload.MaxMemory)
	}
	if c.Upload.Keep && c.Upload.Dir != "" && !filepath.IsAbs(c.Upload.Dir) {
		return fmt.Errorf("upload.dir must be an absolute path; got %q", c.Upload.Dir)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range reservedRoutes {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with defaults. For integer fields
// zero means "unset" because TOML cannot tell an explicit 0 from an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 32 * 1024 * 1024 // 32 MB
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = filepath.Join(os.TempDir(), "shape-message", "uploads")
	}
	if c.Upload.TempDir == "" {
		c.Upload.TempDir = os.TempDir()
	}
	if c.Upload.MaxMemory == 0 {
		c.Upload.MaxMemory = 8 * 1024 * 1024 // 8 MB
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Prepare creates the upload directory when uploads are kept.
func (c *UploadConfig) Prepare() error {
	if !c.Keep {
		return nil
	}
	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return fmt.Errorf("config: upload dir %s: %w", c.Dir, err)
	}
	return nil
}

// FilePath returns the config file Load read, or empty string if defaults were used.
func (c *Config) FilePath() string {
	return c.filePath
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
