package splotch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	posts := filepath.Join(dir, "blog")
	require.NoError(t, os.MkdirAll(filepath.Join(posts, "first"), 0o755))

	a := New(SiteConfig{
		ContentDir:   posts,
		AssetsDir:    filepath.Join(dir, "missing"),
		StaticDir:    filepath.Join(dir, "static"),
		OutputDir:    filepath.Join(dir, "public"),
		DatabasePath: filepath.Join(dir, "splotch.db"),
	})
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register the directories.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(posts, "first", "index.md"), []byte("---\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	require.NoError(t, <-done)
	require.NotNil(t, a.Cache)
}

func TestOpenConcurrent(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{})
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error { return a.Open(ctx) })
		g.Go(func() error {
			_, err := a.Handler(ctx)
			return err
		})
	}
	require.NoError(t, g.Wait())
	store := a.Store
	require.NoError(t, a.Open(ctx))
	assert.Same(t, store, a.Store)
	assert.NotNil(t, a.Cache)
}
