package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWatcher(t *testing.T, excludeDirs, excludeFiles []string) (*Watcher, chan []string) {
	t.Helper()
	changes := make(chan []string, 4)
	w, err := NewWatcher(50*time.Millisecond, excludeDirs, excludeFiles, func(paths []string) {
		changes <- paths
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, changes
}

// waitFor collects batches until one contains path or the timeout hits.
func waitFor(t *testing.T, changes <-chan []string, path string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changes:
			for _, p := range paths {
				if p == path {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for a change of %s", path)
		}
	}
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	w, changes := newWatcher(t, nil, []string{"*.swp"})
	require.NoError(t, w.Watch([]string{dir}))

	tpl := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(tpl, []byte("<p>"), 0o644))
	waitFor(t, changes, tpl)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html.swp"), []byte("x"), 0o644))
	select {
	case paths := <-changes:
		for _, p := range paths {
			assert.NotEqual(t, "page.html.swp", filepath.Base(p), "excluded file triggered a change")
		}
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherDebounceCoalesces(t *testing.T) {
	dir := t.TempDir()
	w, changes := newWatcher(t, nil, nil)
	require.NoError(t, w.Watch([]string{dir}))

	a := filepath.Join(dir, "a.html")
	b := filepath.Join(dir, "b.html")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	select {
	case paths := <-changes:
		assert.Contains(t, paths, a)
		assert.Contains(t, paths, b)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the batch")
	}
}

func TestWatcherNewDirectory(t *testing.T) {
	dir := t.TempDir()
	w, changes := newWatcher(t, []string{"build"}, nil)
	require.NoError(t, w.Watch([]string{dir}))

	sub := filepath.Join(dir, "partials")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	nested := filepath.Join(sub, "row.html")
	require.NoError(t, os.WriteFile(nested, []byte("<tr>"), 0o644))
	waitFor(t, changes, nested)
}

func TestWatcherSingleFile(t *testing.T) {
	dir := t.TempDir()
	hdr := filepath.Join(dir, "models.h")
	require.NoError(t, os.WriteFile(hdr, []byte("struct A {};"), 0o644))

	w, changes := newWatcher(t, nil, nil)
	require.NoError(t, w.Watch([]string{hdr}))
	require.NoError(t, os.WriteFile(hdr, []byte("struct A { int x; };"), 0o644))
	waitFor(t, changes, hdr)
}

func TestNewWatcherErrors(t *testing.T) {
	_, err := NewWatcher(time.Millisecond, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewWatcher(time.Millisecond, []string{"["}, nil, func([]string) {})
	assert.Error(t, err)
}
