package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/boozedog/chronicle/internal/chronicle"
)

// Config holds the global chronicle configuration.
type Config struct {
	Settings SettingsConfig `toml:"settings"`
	Append   AppendConfig   `toml:"append"`
	Lock     LockConfig     `toml:"lock"`
	Web      WebConfig      `toml:"web"`
}

// SettingsConfig holds global settings.
type SettingsConfig struct {
	Root     string `toml:"root"`
	LogLevel string `toml:"log_level"`
}

// AppendConfig tunes the append path.
type AppendConfig struct {
	TimeoutMS   int  `toml:"timeout_ms"`
	DedupWindow int  `toml:"dedup_window"`
	UseIndex    bool `toml:"use_index"`
}

// LockConfig tunes the writer lock.
type LockConfig struct {
	RetryMS      int `toml:"retry_ms"`
	StaleAfterMS int `toml:"stale_after_ms"`
}

// WebConfig holds settings for the read-only viewer.
type WebConfig struct {
	Port int `toml:"port"`
	// RateLimit is requests per second allowed per client; Burst caps the bucket.
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// DefaultDir returns the default config directory (~/.chronicle).
// If CHRONICLE_DIR is set, uses that path instead.
func DefaultDir() (string, error) {
	if d := os.Getenv("CHRONICLE_DIR"); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".chronicle"), nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads config from the default path, applying defaults.
// If the file doesn't exist, returns a config with defaults.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads config from the given path, applying defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.applyDefaults()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes config to the default path.
func (c *Config) Save() error {
	path, err := DefaultPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes config to the given path, creating directories as needed.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// RootDir returns the expanded directory chronicle paths are resolved against.
func (c *Config) RootDir() (string, error) {
	return ExpandPath(c.Settings.Root)
}

// EnsureDirs creates the root directory if it doesn't exist.
func (c *Config) EnsureDirs() error {
	root, err := c.RootDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create root dir: %w", err)
	}
	return nil
}

// AppendTimeout returns the default lock timeout for appends.
func (c *Config) AppendTimeout() time.Duration {
	return time.Duration(c.Append.TimeoutMS) * time.Millisecond
}

// StoreOptions maps the config onto chronicle store options.
func (c *Config) StoreOptions(logger *slog.Logger) chronicle.Options {
	return chronicle.Options{
		DedupWindow: c.Append.DedupWindow,
		UseIndex:    c.Append.UseIndex,
		LockRetry:   time.Duration(c.Lock.RetryMS) * time.Millisecond,
		StaleAfter:  time.Duration(c.Lock.StaleAfterMS) * time.Millisecond,
		Logger:      logger,
	}
}

// Level parses the configured log level, defaulting to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func (c *Config) applyDefaults() {
	if c.Settings.Root == "" {
		c.Settings.Root = "~/.chronicle/logs"
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = "info"
	}
	if c.Append.TimeoutMS <= 0 {
		c.Append.TimeoutMS = int(chronicle.DefaultTimeout / time.Millisecond)
	}
	if c.Append.DedupWindow <= 0 {
		c.Append.DedupWindow = chronicle.DefaultDedupWindow
	}
	if c.Lock.RetryMS <= 0 {
		c.Lock.RetryMS = int(chronicle.DefaultLockRetry / time.Millisecond)
	}
	if c.Lock.StaleAfterMS <= 0 {
		c.Lock.StaleAfterMS = int(chronicle.DefaultStaleAfter / time.Millisecond)
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
	if c.Web.RateLimit <= 0 {
		c.Web.RateLimit = 20
	}
	if c.Web.Burst <= 0 {
		c.Web.Burst = 40
	}
}
