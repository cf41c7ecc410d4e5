package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	logpkg "github.com/rzbill/streamsync/pkg/log"
	"gopkg.in/yaml.v3"
)

// Backend names accepted in Config.Backend.
const (
	BackendPebble = "pebble"
	BackendRedis  = "redis"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DataDir         string `json:"dataDir" yaml:"dataDir"`
	Fsync           string `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`

	Backend string      `json:"backend" yaml:"backend"`
	Redis   RedisConfig `json:"redis" yaml:"redis"`

	// Root is the subtree the synchronizer owns and deletes on shutdown.
	Root              string     `json:"root" yaml:"root"`
	BaseStream        BaseStream `json:"baseStream" yaml:"baseStream"`
	StreamsDir        string     `json:"streamsDir" yaml:"streamsDir"`
	StreamsDebounceMs int        `json:"streamsDebounceMs" yaml:"streamsDebounceMs"`

	HTTPAddr          string `json:"httpAddr" yaml:"httpAddr"`
	GRPCAddr          string `json:"grpcAddr" yaml:"grpcAddr"`
	ShutdownTimeoutMs int    `json:"shutdownTimeoutMs" yaml:"shutdownTimeoutMs"`

	Log logpkg.Config `json:"log" yaml:"log"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	DB        int    `json:"db" yaml:"db"`
	Prefix    string `json:"prefix" yaml:"prefix"`
	TimeoutMs int    `json:"timeoutMs" yaml:"timeoutMs"`
}

// BaseStream describes the always-available stream announced at startup.
type BaseStream struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	Description   string `json:"description" yaml:"description"`
	ReplaySupport bool   `json:"replaySupport" yaml:"replaySupport"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DataDir:         DefaultDataDir(),
		Fsync:           "always",
		FsyncIntervalMs: 5,
		Backend:         BackendPebble,
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			Prefix:    "streamsync:oper",
			TimeoutMs: 2000,
		},
		Root: "/netconf",
		BaseStream: BaseStream{
			Enabled:     true,
			Description: "default NETCONF event stream",
		},
		StreamsDebounceMs: 100,
		HTTPAddr:          ":8080",
		GRPCAddr:          ":50051",
		ShutdownTimeoutMs: 5000,
		Log: logpkg.Config{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", path)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", path)
		}
	}
	return cfg, nil
}

// Validate reports the first setting the runtime cannot use.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendPebble:
		if c.DataDir == "" {
			return errors.New("config: dataDir is required for the pebble backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("config: redis.addr is required for the redis backend")
		}
	default:
		return errors.Newf("config: unknown backend %q", c.Backend)
	}
	if !strings.HasPrefix(c.Root, "/") || c.Root == "/" {
		return errors.Newf("config: root %q must be an absolute non-root path", c.Root)
	}
	if c.FsyncIntervalMs < 0 || c.StreamsDebounceMs < 0 || c.ShutdownTimeoutMs < 0 {
		return errors.New("config: durations must not be negative")
	}
	return nil
}

// FsyncInterval returns FsyncIntervalMs as a duration.
func (c Config) FsyncInterval() time.Duration {
	return time.Duration(c.FsyncIntervalMs) * time.Millisecond
}

// StreamsDebounce returns StreamsDebounceMs as a duration.
func (c Config) StreamsDebounce() time.Duration {
	return time.Duration(c.StreamsDebounceMs) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMs as a duration.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
}

// RedisTimeout returns Redis.TimeoutMs as a duration.
func (c Config) RedisTimeout() time.Duration {
	return time.Duration(c.Redis.TimeoutMs) * time.Millisecond
}
