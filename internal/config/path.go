package config

import (
	"os"
	"path/filepath"
)

const (
	appDir      = "streamsync"
	appDirTitle = "StreamSync"
	// DataDirEnv overrides every other data directory choice.
	DataDirEnv = "STREAMSYNC_DATA_DIR"
)

// host is the slice of the environment DefaultDataDir looks at.
type host struct {
	getenv func(string) string
	home   func() (string, error)
	isDir  func(string) bool
}

func osHost() host {
	return host{getenv: os.Getenv, home: os.UserHomeDir, isDir: isDir}
}

// DefaultDataDir picks where the Pebble store lives when no data dir is
// configured. The first match wins:
//
//	$STREAMSYNC_DATA_DIR
//	$XDG_DATA_HOME/streamsync
//	/var/lib/streamsync                       (if /var/lib exists)
//	~/Library/Application Support/StreamSync  (macOS)
//	~/AppData/Local/StreamSync                (Windows)
//	~/.streamsync
//
// Without a home directory it falls back to ./data.
func DefaultDataDir() string { return defaultDataDir(osHost()) }

func defaultDataDir(h host) string {
	if v := h.getenv(DataDirEnv); v != "" {
		return v
	}
	homeDir, err := h.home()
	if err != nil || homeDir == "" {
		return "./data"
	}
	if xdg := h.getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}
	candidates := []struct{ probe, dir string }{
		{"/var/lib", filepath.Join("/var/lib", appDir)},
		{filepath.Join(homeDir, "Library"), filepath.Join(homeDir, "Library", "Application Support", appDirTitle)},
		{filepath.Join(homeDir, "AppData"), filepath.Join(homeDir, "AppData", "Local", appDirTitle)},
	}
	for _, c := range candidates {
		if h.isDir(c.probe) {
			return c.dir
		}
	}
	return filepath.Join(homeDir, "."+appDir)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
