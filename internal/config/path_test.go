package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func fakeHost(env map[string]string, home string, dirs ...string) host {
	existing := map[string]bool{}
	for _, d := range dirs {
		existing[d] = true
	}
	return host{
		getenv: func(k string) string { return env[k] },
		home: func() (string, error) {
			if home == "" {
				return "", errors.New("no home")
			}
			return home, nil
		},
		isDir: func(p string) bool { return existing[p] },
	}
}

func TestDefaultDataDirChoice(t *testing.T) {
	home := "/home/op"
	tests := []struct {
		name string
		h    host
		want string
	}{
		{"explicit override", fakeHost(map[string]string{DataDirEnv: "/srv/ss", "XDG_DATA_HOME": "/x"}, home, "/var/lib"), "/srv/ss"},
		{"override without home", fakeHost(map[string]string{DataDirEnv: "/srv/ss"}, ""), "/srv/ss"},
		{"no home", fakeHost(nil, ""), "./data"},
		{"xdg", fakeHost(map[string]string{"XDG_DATA_HOME": "/x"}, home, "/var/lib"), "/x/streamsync"},
		{"var lib", fakeHost(nil, home, "/var/lib"), "/var/lib/streamsync"},
		{"macos", fakeHost(nil, home, filepath.Join(home, "Library")), filepath.Join(home, "Library", "Application Support", "StreamSync")},
		{"windows", fakeHost(nil, home, filepath.Join(home, "AppData")), filepath.Join(home, "AppData", "Local", "StreamSync")},
		{"dotdir", fakeHost(nil, home), filepath.Join(home, ".streamsync")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := defaultDataDir(tt.h); got != tt.want {
				t.Fatalf("defaultDataDir = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultDataDirEnv(t *testing.T) {
	t.Setenv(DataDirEnv, "/tmp/streamsync-env")
	if got := DefaultDataDir(); got != "/tmp/streamsync-env" {
		t.Fatalf("DefaultDataDir = %q", got)
	}
}

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	for path, want := range map[string]bool{
		dir:                          true,
		file:                         false,
		filepath.Join(dir, "absent"): false,
	} {
		if got := isDir(path); got != want {
			t.Errorf("isDir(%s) = %v, want %v", path, got, want)
		}
	}
}
