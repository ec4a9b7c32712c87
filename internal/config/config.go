// Package config loads calculator configuration from TOML or YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/calculator/internal/logging"
)

// Config holds the complete calculator configuration.
type Config struct {
	Log     LogConfig     `toml:"log" yaml:"log"`
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Client  ClientConfig  `toml:"client" yaml:"client"`
	History HistoryConfig `toml:"history" yaml:"history"`
	TUI     TUIConfig     `toml:"tui" yaml:"tui"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level   string `toml:"level" yaml:"level"`
	File    string `toml:"file" yaml:"file"`
	Console bool   `toml:"console" yaml:"console"`
}

// ServerConfig holds stream server settings.
type ServerConfig struct {
	Host        string   `toml:"host" yaml:"host"`
	Port        int      `toml:"port" yaml:"port"`
	BufferSize  int      `toml:"buffer_size" yaml:"buffer_size"`
	MaxSessions int      `toml:"max_sessions" yaml:"max_sessions"`
	IdleTimeout Duration `toml:"idle_timeout" yaml:"idle_timeout"`
	// WebSocket is the HTTP address of the WebSocket endpoint. Empty
	// disables it.
	WebSocket string `toml:"websocket" yaml:"websocket"`
	// CacheSize is the number of responses remembered. Zero disables the
	// cache.
	CacheSize int `toml:"cache_size" yaml:"cache_size"`
	// OTLPEndpoint enables tracing when non-empty.
	OTLPEndpoint string `toml:"otlp_endpoint" yaml:"otlp_endpoint"`
}

// Addr returns the host:port the server listens on.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ClientConfig holds client settings.
type ClientConfig struct {
	Addr    string   `toml:"addr" yaml:"addr"`
	Timeout Duration `toml:"timeout" yaml:"timeout"`
	// BufferSize is the largest expression sent, matching the server's.
	BufferSize int `toml:"buffer_size" yaml:"buffer_size"`
}

// HistoryConfig holds evaluation history settings.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

// TUIConfig holds terminal front end preferences.
type TUIConfig struct {
	Theme      string `toml:"theme" yaml:"theme"`
	AlignRight bool   `toml:"align_right" yaml:"align_right"`
	// Reverse puts the zero row of the keypad at the top.
	Reverse bool `toml:"reverse" yaml:"reverse"`
	// Server sends expressions to the configured server instead of
	// evaluating them locally.
	Server bool `toml:"server" yaml:"server"`
}

// Duration wraps time.Duration for config parsing.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration string from a YAML scalar.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Themes lists the recognized TUI themes.
var Themes = []string{"default", "minimal", "pastel", "terminal", "twilight"}

// Default returns the default configuration.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load loads configuration from a file, choosing YAML for .yaml and .yml
// files and TOML otherwise.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		md, err := toml.Decode(string(b), &cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			return nil, fmt.Errorf("failed to parse config: unknown key %s", undec[0])
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault loads path if it is non-empty and returns the defaults
// otherwise. Environment overrides are applied and the result is validated.
func LoadOrDefault(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = logging.DefaultFile
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BufferSize == 0 {
		c.Server.BufferSize = 1024
	}
	if c.Server.MaxSessions == 0 {
		c.Server.MaxSessions = 1
	}
	if c.Client.Addr == "" {
		c.Client.Addr = "localhost:8000"
	}
	if c.Client.BufferSize == 0 {
		c.Client.BufferSize = 1024
	}
	if c.Client.Timeout.Duration == 0 {
		c.Client.Timeout.Duration = 10 * time.Second
	}
	if c.History.Path == "" {
		c.History.Path = "calculator_history.db"
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = "default"
	}
}

// ApplyEnv applies CALCULATOR_ADDR and CALCULATOR_LOG_LEVEL. The address
// sets both the client address and the server host and port.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("CALCULATOR_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CALCULATOR_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("invalid CALCULATOR_ADDR: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid CALCULATOR_ADDR port %q", port)
		}
		c.Client.Addr = v
		c.Server.Port = p
		if host != "" {
			c.Server.Host = host
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.BufferSize < 16 {
		return fmt.Errorf("server buffer size %d is too small", c.Server.BufferSize)
	}
	if c.Server.MaxSessions < 1 {
		return fmt.Errorf("server max sessions must be positive, got %d", c.Server.MaxSessions)
	}
	if c.Server.CacheSize < 0 {
		return fmt.Errorf("server cache size must not be negative, got %d", c.Server.CacheSize)
	}
	if c.Server.IdleTimeout.Duration < 0 {
		return fmt.Errorf("server idle timeout must not be negative")
	}
	if c.Client.BufferSize < 16 {
		return fmt.Errorf("client buffer size %d is too small", c.Client.BufferSize)
	}
	if _, _, err := net.SplitHostPort(c.Client.Addr); err != nil {
		return fmt.Errorf("invalid client address: %w", err)
	}
	for _, t := range Themes {
		if c.TUI.Theme == t {
			return nil
		}
	}
	return fmt.Errorf("unknown theme %q", c.TUI.Theme)
}
