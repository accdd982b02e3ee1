package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// COURIERDASH_BROKER_URL or COURIERDASH_POLL_INTERVAL.
	EnvPrefix = "COURIERDASH"
	fileName  = "courierdash"
)

// flagKeys maps the shared command line flags to config keys.
var flagKeys = map[string]string{
	"broker-url":     "broker.url",
	"prefix":         "broker.prefix",
	"timeout":        "broker.timeout",
	"interval":       "poll.interval",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"log-file":       "log.file",
	"duckdb":         "store.path",
	"neo4j-uri":      "graph.uri",
	"neo4j-user":     "graph.user",
	"neo4j-password": "graph.password",
	"listen":         "exporter.listen",
}

// RegisterFlags adds the shared flags to fs. Commands may register only the
// flags they need; Load binds whichever are present.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "config file (default: courierdash.yaml in ., $HOME/.config/courierdash or /etc/courierdash)")
	fs.String("broker-url", d.Broker.URL, "broker root URL")
	fs.String("prefix", d.Broker.Prefix, "broker API prefix")
	fs.Duration("timeout", d.Broker.Timeout, "per-request timeout")
	fs.Duration("interval", d.Poll.Interval, "poll interval, 0 to poll only on refresh")
	fs.String("log-level", d.Log.Level, "log level (trace, debug, info, warn, error)")
	fs.String("log-format", d.Log.Format, "log format (text or json)")
	fs.String("log-file", d.Log.File, "write logs to this file")
	fs.String("duckdb", d.Store.Path, "DuckDB file for snapshot history, empty to disable")
	fs.String("neo4j-uri", d.Graph.URI, "Neo4j URI for the topology mirror, empty to disable")
	fs.String("neo4j-user", d.Graph.User, "Neo4j user")
	fs.String("neo4j-password", d.Graph.Password, "Neo4j password")
}

// RegisterExporterFlags adds the flags only the headless watcher needs.
func RegisterExporterFlags(fs *pflag.FlagSet) {
	fs.String("listen", Default().Exporter.Listen, "address for the Prometheus endpoint")
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("broker.url", d.Broker.URL)
	v.SetDefault("broker.prefix", d.Broker.Prefix)
	v.SetDefault("broker.timeout", d.Broker.Timeout)
	v.SetDefault("broker.ready_timeout", d.Broker.ReadyTimeout)
	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.threads", d.Store.Threads)
	v.SetDefault("store.retain", d.Store.Retain)
	v.SetDefault("graph.uri", d.Graph.URI)
	v.SetDefault("graph.user", d.Graph.User)
	v.SetDefault("graph.password", d.Graph.Password)
	v.SetDefault("exporter.listen", d.Exporter.Listen)
	v.SetDefault("exporter.path", d.Exporter.Path)
	v.SetDefault("ui.max_console_logs", d.UI.MaxConsoleLogs)
	v.SetDefault("ui.history_capacity", d.UI.HistoryCapacity)
	v.SetDefault("ui.pull_max", d.UI.PullMax)
	v.SetDefault("health.backlog.warning", d.Health.Backlog.Warning)
	v.SetDefault("health.backlog.critical", d.Health.Backlog.Critical)
	v.SetDefault("health.retries.warning", d.Health.Retries.Warning)
	v.SetDefault("health.retries.critical", d.Health.Retries.Critical)
	v.SetDefault("health.memory.warning", d.Health.Memory.Warning)
	v.SetDefault("health.memory.critical", d.Health.Memory.Critical)
}

// Load layers defaults, the config file, COURIERDASH_* environment variables
// and changed flags, in increasing precedence. fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", fileName))
		}
		v.AddConfigPath("/etc/" + fileName)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || explicit != "" {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
