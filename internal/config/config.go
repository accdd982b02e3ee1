// Package config holds the console configuration. Use Default() for the
// built-in values or Load to layer a config file, environment and flags on
// top of them.
package config

import (
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"courierdash/internal/engine"
)

type Config struct {
	Broker   BrokerConfig   `mapstructure:"broker"`
	Poll     PollConfig     `mapstructure:"poll"`
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Exporter ExporterConfig `mapstructure:"exporter"`
	UI       UIConfig       `mapstructure:"ui"`
	Health   engine.Config  `mapstructure:"health"`
}

type BrokerConfig struct {
	URL          string        `mapstructure:"url"`           // Broker root (default: http://0.0.0.0:3140)
	Prefix       string        `mapstructure:"prefix"`        // API prefix (default: api/v0)
	Timeout      time.Duration `mapstructure:"timeout"`       // Per-request timeout (default: 10s)
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"` // How long headless tools wait for a heartbeat (default: 30s)
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"` // 0 polls only on request (default: 1s)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // logrus level name (default: info)
	Format string `mapstructure:"format"` // text or json (default: text)
	File   string `mapstructure:"file"`   // Empty means stderr, or nowhere in the TUI
}

// StoreConfig enables the DuckDB history when Path is set.
type StoreConfig struct {
	Path    string `mapstructure:"path"`
	Threads int    `mapstructure:"threads"`
	Retain  int    `mapstructure:"retain"` // Snapshots kept, 0 for all (default: 10000)
}

// GraphConfig enables the Neo4j topology mirror when URI is set.
type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type ExporterConfig struct {
	Listen string `mapstructure:"listen"`
	Path   string `mapstructure:"path"`
}

type UIConfig struct {
	MaxConsoleLogs  int `mapstructure:"max_console_logs"` // Console page ring size (default: 100)
	HistoryCapacity int `mapstructure:"history_capacity"` // Chart points kept (default: 60)
	PullMax         int `mapstructure:"pull_max"`         // Default max messages on the Pull page (default: 10)
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Broker: BrokerConfig{
			URL:          "http://0.0.0.0:3140",
			Prefix:       "api/v0",
			Timeout:      10 * time.Second,
			ReadyTimeout: 30 * time.Second,
		},
		Poll: PollConfig{
			Interval: 1 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Threads: 2,
			Retain:  10000,
		},
		Graph: GraphConfig{
			User: "neo4j",
		},
		Exporter: ExporterConfig{
			Listen: ":9464",
			Path:   "/metrics",
		},
		UI: UIConfig{
			MaxConsoleLogs:  100,
			HistoryCapacity: 60,
			PullMax:         10,
		},
		Health: engine.DefaultConfig(),
	}
}

// WithBrokerURL returns a copy of the config with a different broker root.
func (c Config) WithBrokerURL(u string) Config {
	c.Broker.URL = u
	return c
}

// WithInterval returns a copy of the config with a different poll interval.
func (c Config) WithInterval(d time.Duration) Config {
	c.Poll.Interval = d
	return c
}

// WithLogLevel returns a copy of the config with a different log level.
func (c Config) WithLogLevel(level string) Config {
	c.Log.Level = level
	return c
}

// WithStorePath returns a copy of the config with the DuckDB history at path.
func (c Config) WithStorePath(path string) Config {
	c.Store.Path = path
	return c
}

// WithGraph returns a copy of the config with the Neo4j mirror enabled.
func (c Config) WithGraph(uri, user, password string) Config {
	c.Graph = GraphConfig{URI: uri, User: user, Password: password}
	return c
}

// Validate checks if the configuration is valid and returns an error if not.
func (c Config) Validate() error {
	u, err := url.Parse(c.Broker.URL)
	if c.Broker.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "broker.url", Message: "must be an http(s) URL"}
	}
	if c.Broker.Timeout <= 0 {
		return &ConfigError{Field: "broker.timeout", Message: "must be positive"}
	}
	if c.Broker.ReadyTimeout < 0 {
		return &ConfigError{Field: "broker.ready_timeout", Message: "must not be negative"}
	}
	if c.Poll.Interval < 0 {
		return &ConfigError{Field: "poll.interval", Message: "must not be negative"}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return &ConfigError{Field: "log.level", Message: "must be a log level name"}
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return &ConfigError{Field: "log.format", Message: "must be text or json"}
	}
	if c.Store.Threads < 0 {
		return &ConfigError{Field: "store.threads", Message: "must not be negative"}
	}
	if c.Store.Retain < 0 {
		return &ConfigError{Field: "store.retain", Message: "must not be negative"}
	}
	if c.Exporter.Listen == "" {
		return &ConfigError{Field: "exporter.listen", Message: "must not be empty"}
	}
	if c.UI.MaxConsoleLogs <= 0 {
		return &ConfigError{Field: "ui.max_console_logs", Message: "must be positive"}
	}
	if c.UI.HistoryCapacity <= 1 {
		return &ConfigError{Field: "ui.history_capacity", Message: "must be at least 2"}
	}
	if c.UI.PullMax <= 0 {
		return &ConfigError{Field: "ui.pull_max", Message: "must be positive"}
	}
	if err := c.Health.Validate(); err != nil {
		return &ConfigError{Field: "health", Message: err.Error()}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}
