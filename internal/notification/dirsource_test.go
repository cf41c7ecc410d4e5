package notification

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logpkg "github.com/rzbill/streamsync/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadStreamFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "audit.yaml")
	writeFile(t, p, "name: audit\ndescription: security audit\nreplaySupport: true\nreplayLogCreationTime: 2024-05-01T12:00:00Z\nattributes:\n  owner: secops\n")

	s, err := LoadStreamFile(p)
	require.NoError(t, err)
	assert.Equal(t, StreamName("audit"), s.Name)
	assert.True(t, s.ReplaySupport)
	require.NotNil(t, s.ReplayLogCreationTime)
	assert.Equal(t, "secops", s.Attributes["owner"])

	bad := filepath.Join(dir, "noname.yaml")
	writeFile(t, bad, "description: missing name\n")
	_, err = LoadStreamFile(bad)
	assert.ErrorIs(t, err, ErrInvalidStream)
}

func TestDirSourceScanAndWatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "name: a\n")
	writeFile(t, filepath.Join(dir, "ignored.txt"), "name: nope\n")
	writeFile(t, filepath.Join(dir, "broken.yml"), "name: [\n")

	c := newTestCollector()
	src := NewDirSource(dir, c, logpkg.NewNopLogger(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	names := func() []StreamName {
		var out []StreamName
		for _, s := range c.Streams() {
			out = append(out, s.Name)
		}
		return out
	}

	require.Eventually(t, func() bool {
		n := names()
		return len(n) == 1 && n[0] == "a"
	}, 2*time.Second, 10*time.Millisecond)

	writeFile(t, filepath.Join(dir, "b.yml"), "name: b\n")
	require.Eventually(t, func() bool { return len(names()) == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.yaml")))
	require.Eventually(t, func() bool {
		n := names()
		return len(n) == 1 && n[0] == "b"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDirSourceSharedName(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "audit.yaml")
	second := filepath.Join(dir, "audit-copy.yaml")
	writeFile(t, first, "name: audit\n")
	writeFile(t, second, "name: audit\ndescription: copy\n")

	c := newTestCollector()
	src := NewDirSource(dir, c, logpkg.NewNopLogger(), 0)
	require.NoError(t, src.Scan())
	require.Len(t, c.Streams(), 1)

	require.NoError(t, os.Remove(second))
	src.forget(second)
	require.Len(t, c.Streams(), 1)
	assert.Equal(t, StreamName("audit"), c.Streams()[0].Name)

	// Renaming the stream inside the remaining file drops the old name.
	writeFile(t, first, "name: audit2\n")
	src.load(first)
	require.Len(t, c.Streams(), 1)
	assert.Equal(t, StreamName("audit2"), c.Streams()[0].Name)

	src.forget(first)
	assert.Empty(t, c.Streams())
}
