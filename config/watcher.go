package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration store when latest.json changes on disk,
// so edits made outside the process take effect without a restart.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	onChange func()
	logger   *slog.Logger
}

// NewWatcher creates a watcher over the store's directory. onChange runs
// after every successful reload and may be nil.
func NewWatcher(store *Store, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(store.Dir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config dir: %w", err)
	}

	return &Watcher{
		store:    store,
		watcher:  fw,
		onChange: onChange,
		logger:   slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}, nil
}

// Start runs the watch loop until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		defer w.watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != LatestFileName {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				if err := w.store.Reload(); err != nil {
					w.logger.Error("failed to reload configuration", "error", err)
					continue
				}
				if w.onChange != nil {
					w.onChange()
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error("config watcher error", "error", err)
			}
		}
	}()
}
