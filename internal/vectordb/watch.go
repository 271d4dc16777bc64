package vectordb

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch observes the artifact file and calls onChange after ingestion
// replaces it, debounced so the rename and any trailing writes collapse
// into one reload. It blocks until ctx is cancelled.
//
// The watch is placed on the artifact's directory: the atomic
// save-and-rename replaces the inode, so watching the file itself would
// go stale after the first rebuild.
func Watch(ctx context.Context, artifactPath string, logger *slog.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(artifactPath)
	name := filepath.Base(artifactPath)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("artifact watcher started", slog.String("path", artifactPath))

	var debounce *time.Timer
	var debounceCh <-chan time.Time
	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(200 * time.Millisecond)
			debounceCh = debounce.C
		} else {
			debounce.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("artifact watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			schedule()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("artifact watcher error", slog.String("error", err.Error()))

		case <-debounceCh:
			logger.Info("artifact changed, reloading", slog.String("path", artifactPath))
			onChange()
		}
	}
}
