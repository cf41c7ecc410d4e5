package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays STREAMSYNC_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("STREAMSYNC_DATA_DIR", &cfg.DataDir)
	str("STREAMSYNC_FSYNC", &cfg.Fsync)
	num("STREAMSYNC_FSYNC_INTERVAL_MS", &cfg.FsyncIntervalMs)
	str("STREAMSYNC_BACKEND", &cfg.Backend)
	str("STREAMSYNC_REDIS_ADDR", &cfg.Redis.Addr)
	str("STREAMSYNC_REDIS_PASSWORD", &cfg.Redis.Password)
	num("STREAMSYNC_REDIS_DB", &cfg.Redis.DB)
	str("STREAMSYNC_REDIS_PREFIX", &cfg.Redis.Prefix)
	num("STREAMSYNC_REDIS_TIMEOUT_MS", &cfg.Redis.TimeoutMs)
	str("STREAMSYNC_ROOT", &cfg.Root)
	flag("STREAMSYNC_BASE_STREAM", &cfg.BaseStream.Enabled)
	str("STREAMSYNC_BASE_STREAM_DESCRIPTION", &cfg.BaseStream.Description)
	flag("STREAMSYNC_BASE_STREAM_REPLAY", &cfg.BaseStream.ReplaySupport)
	str("STREAMSYNC_STREAMS_DIR", &cfg.StreamsDir)
	num("STREAMSYNC_STREAMS_DEBOUNCE_MS", &cfg.StreamsDebounceMs)
	str("STREAMSYNC_HTTP_ADDR", &cfg.HTTPAddr)
	str("STREAMSYNC_GRPC_ADDR", &cfg.GRPCAddr)
	num("STREAMSYNC_SHUTDOWN_TIMEOUT_MS", &cfg.ShutdownTimeoutMs)
	str("STREAMSYNC_LOG_LEVEL", &cfg.Log.Level)
	str("STREAMSYNC_LOG_FORMAT", &cfg.Log.Format)
	if v := os.Getenv("STREAMSYNC_LOG_REDACT_KEYS"); v != "" {
		cfg.Log.RedactKeys = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Log.RedactKeys = append(cfg.Log.RedactKeys, p)
			}
		}
	}
}
