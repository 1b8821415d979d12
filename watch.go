package splotch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

const watchDebounce = 250 * time.Millisecond

// Watch invalidates the post cache whenever something under the content,
// assets or static directories changes, then calls onChange. Bursts of
// events are collapsed into one call. It opens the App if needed and
// blocks until ctx is done.
func (a *App) Watch(ctx context.Context, onChange func()) error {
	if err := a.Open(ctx); err != nil {
		return err
	}
	log := a.log.Named("watcher")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, dir := range []string{a.Config.ContentDir, a.Config.AssetsDir, a.Config.StaticDir} {
		if err := a.watchTree(watcher, dir); err != nil {
			return err
		}
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	fire := func() {
		a.Cache.Invalidate()
		if onChange != nil {
			onChange()
		}
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Ignore CHMOD only events.
			if evt.Op == fsnotify.Chmod {
				continue
			}
			log.Debugf("%s changed", evt.Name)
			if evt.Has(fsnotify.Create) {
				if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
					if err := a.watchTree(watcher, evt.Name); err != nil {
						log.Warnw("watch new directory", "dir", evt.Name, "err", err)
					}
				}
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, fire)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(err)
		}
	}
}

// watchTree adds dir and every directory below it. A missing dir is skipped.
func (a *App) watchTree(w *fsnotify.Watcher, dir string) error {
	err := afero.Walk(a.src, dir, func(name string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		return w.Add(name)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
