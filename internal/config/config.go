package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the configuration.
const (
	DefaultAddr              = "0.0.0.0:50022"
	DefaultStoreBackend      = "file"
	DefaultStorePath         = "uid_storage.json"
	DefaultSQLitePath        = "uid_storage.db"
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisKey          = "uidkeeper:uids"
	DefaultRegistrarURL      = "https://ffwlxd-add-api.vercel.app"
	DefaultRegistrarKeyEnv   = "UIDKEEPER_REGISTRAR_KEY"
	DefaultRegistrarTimeout  = 5 * time.Second
	DefaultReconcileInterval = time.Second
	DefaultStreamInterval    = 5 * time.Second
)

// Config is the top-level configuration parsed from config.yaml.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	Registrar  RegistrarConfig  `yaml:"registrar"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Stream     StreamConfig     `yaml:"stream"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	// Addr is the host:port the API listens on (default 0.0.0.0:50022).
	Addr string `yaml:"addr"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of: debug | info | warn | error. Hot-reloadable.
	Level string `yaml:"level"`
}

// SlogLevel returns Level as a slog.Level. Validation guarantees it parses.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Backend is one of: file | remote | sqlite | redis.
	Backend string `yaml:"backend"`

	// Path is the JSON file used by the file backend and as the write-only
	// fallback of the remote backend.
	Path string `yaml:"path"`

	// SnapshotURL is the read-only JSON snapshot loaded by the remote backend.
	SnapshotURL string `yaml:"snapshot_url"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// Redis configures the redis backend.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
	Key  string `yaml:"key"`

	// PasswordEnv is the name of the environment variable holding the password.
	PasswordEnv string `yaml:"password_env"`
}

// Password returns the redis password resolved from the environment.
func (r RedisConfig) Password() string {
	if r.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(r.PasswordEnv)
}

// RegistrarConfig identifies the remote allow-list service. All fields except
// Enabled are hot-reloadable.
type RegistrarConfig struct {
	// Enabled turns remote calls on. When false a no-op registrar is used.
	Enabled bool `yaml:"enabled"`

	// BaseURL is the service root; calls go to {BaseURL}/add/{uid} and
	// {BaseURL}/remove/{uid}.
	BaseURL string `yaml:"base_url"`

	// KeyEnv is the name of the environment variable that holds the shared key.
	KeyEnv string `yaml:"key_env"`

	// KeyValue is used when KeyEnv is unset or empty in the environment.
	KeyValue string `yaml:"key"`

	// Timeout bounds each call (default 5s).
	Timeout time.Duration `yaml:"timeout"`
}

// Key returns the shared key, preferring the environment over the literal.
func (r RegistrarConfig) Key() string {
	if r.KeyEnv != "" {
		if v := os.Getenv(r.KeyEnv); v != "" {
			return v
		}
	}
	return r.KeyValue
}

// ReconcilerConfig controls the expiry loop.
type ReconcilerConfig struct {
	// Interval is the pause between cycles (default 1s).
	Interval time.Duration `yaml:"interval"`
}

// StreamConfig controls the WebSocket hub.
type StreamConfig struct {
	// Interval is how often the full UID set is re-broadcast (default 5s).
	Interval time.Duration `yaml:"interval"`
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: DefaultAddr},
		Log:    LogConfig{Level: "info"},
		Store: StoreConfig{
			Backend:    DefaultStoreBackend,
			Path:       DefaultStorePath,
			SQLitePath: DefaultSQLitePath,
			Redis: RedisConfig{
				Addr: DefaultRedisAddr,
				Key:  DefaultRedisKey,
			},
		},
		Registrar: RegistrarConfig{
			Enabled: true,
			BaseURL: DefaultRegistrarURL,
			KeyEnv:  DefaultRegistrarKeyEnv,
			Timeout: DefaultRegistrarTimeout,
		},
		Reconciler: ReconcilerConfig{Interval: DefaultReconcileInterval},
		Stream:     StreamConfig{Interval: DefaultStreamInterval},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if _, _, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		return fmt.Errorf("server.addr %q: %w", cfg.Server.Addr, err)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}

	switch cfg.Store.Backend {
	case "file":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required for the file backend")
		}
	case "remote":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required for the remote backend")
		}
		if err := checkURL(cfg.Store.SnapshotURL); err != nil {
			return fmt.Errorf("store.snapshot_url: %w", err)
		}
	case "sqlite":
		if cfg.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case "redis":
		if cfg.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend %q unknown: want file|remote|sqlite|redis", cfg.Store.Backend)
	}

	if cfg.Registrar.Enabled {
		if err := checkURL(cfg.Registrar.BaseURL); err != nil {
			return fmt.Errorf("registrar.base_url: %w", err)
		}
	}
	if cfg.Registrar.Timeout < 0 {
		return fmt.Errorf("registrar.timeout must not be negative")
	}
	if cfg.Reconciler.Interval <= 0 {
		return fmt.Errorf("reconciler.interval must be positive")
	}
	if cfg.Stream.Interval <= 0 {
		return fmt.Errorf("stream.interval must be positive")
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
