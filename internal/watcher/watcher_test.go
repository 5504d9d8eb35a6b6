package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/localrag-mcp/internal/scanner"
)

const testDebounce = 100 * time.Millisecond

type harness struct {
	root  string
	calls atomic.Int32
	errCh chan error
	stop  context.CancelFunc
}

func startWatcher(t *testing.T, triggerErr error) *harness {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".rag-index"), 0o755))

	h := &harness{root: root, errCh: make(chan error, 1)}
	filter := scanner.New(root, scanner.Config{
		Extensions:  []string{".md", ".txt"},
		ExcludeDirs: []string{".rag-index"},
	}, zerolog.Nop())

	w := New(filter, testDebounce, func(context.Context) error {
		h.calls.Add(1)
		return triggerErr
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	h.stop = cancel
	go func() { h.errCh <- w.Run(ctx) }()

	select {
	case <-w.Started():
	case err := <-h.errCh:
		t.Fatalf("watcher exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}
	t.Cleanup(cancel)
	return h
}

func (h *harness) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(h.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBurstTriggersOnce(t *testing.T) {
	h := startWatcher(t, nil)

	h.write(t, "a.md", "# A")
	h.write(t, "b.md", "# B")
	h.write(t, "c.txt", "C")

	require.Eventually(t, func() bool { return h.calls.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(3 * testDebounce)
	assert.Equal(t, int32(1), h.calls.Load())
}

func TestIgnoresIrrelevantFiles(t *testing.T) {
	h := startWatcher(t, nil)

	h.write(t, "image.png", "binary")
	h.write(t, ".rag-index/files.db", "db")

	time.Sleep(4 * testDebounce)
	assert.Equal(t, int32(0), h.calls.Load())
}

func TestWatchesNewDirectories(t *testing.T) {
	h := startWatcher(t, nil)

	require.NoError(t, os.MkdirAll(filepath.Join(h.root, "sub"), 0o755))
	require.Eventually(t, func() bool { return h.calls.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	h.write(t, "sub/deep.md", "# Deep")
	require.Eventually(t, func() bool { return h.calls.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestDeletionTriggers(t *testing.T) {
	h := startWatcher(t, nil)

	h.write(t, "gone.md", "# Gone")
	require.Eventually(t, func() bool { return h.calls.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(h.root, "gone.md")))
	require.Eventually(t, func() bool { return h.calls.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestTriggerErrorKeepsWatching(t *testing.T) {
	h := startWatcher(t, errors.New("embedding service down"))

	h.write(t, "a.md", "# A")
	require.Eventually(t, func() bool { return h.calls.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	h.write(t, "b.md", "# B")
	require.Eventually(t, func() bool { return h.calls.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := startWatcher(t, nil)
	h.stop()

	select {
	case err := <-h.errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunFailsForMissingRoot(t *testing.T) {
	filter := scanner.New(filepath.Join(t.TempDir(), "missing"), scanner.Config{Extensions: []string{".md"}}, zerolog.Nop())
	w := New(filter, 0, func(context.Context) error { return nil }, zerolog.Nop())

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
}
