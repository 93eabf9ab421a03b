package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MannuMourya/Learner-API/pkg/observability"
)

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "learner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("observability:\n  log_level: info\n"), 0o600))

	var (
		mu     sync.Mutex
		levels []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchFile(ctx, path, observability.NewNopLogger(), func(cfg *Config) {
			mu.Lock()
			defer mu.Unlock()
			levels = append(levels, cfg.Observability.LogLevel)
		})
	}()

	latest := func() string {
		mu.Lock()
		defer mu.Unlock()
		if len(levels) == 0 {
			return ""
		}
		return levels[len(levels)-1]
	}

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))

	// The watcher may not be registered yet, so keep rewriting until seen.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("observability:\n  log_level: debug\n"), 0o600)
		return latest() == "debug"
	}, 5*time.Second, 50*time.Millisecond)

	time.Sleep(100 * time.Millisecond)

	// Invalid documents are skipped and the last good value stays.
	require.NoError(t, os.WriteFile(path, []byte("not_a_section: [\n"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "debug", latest())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WatchFile did not return after cancel")
	}
}
