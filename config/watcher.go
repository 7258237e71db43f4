package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/hupe1980/viewflow/logging"
)

// Watcher reloads a Flags provider whenever its file changes.
type Watcher struct {
	fw       *fsnotify.Watcher
	path     string
	flags    *Flags
	logger   logging.Logger
	onReload func(error)
	done     chan struct{}
}

// WatchFile starts watching path. The parent directory is watched so
// editors that replace the file atomically are handled. onReload, if set,
// observes every reload attempt.
func WatchFile(path string, flags *Flags, logger logging.Logger, onReload func(error)) (*Watcher, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	w := &Watcher{fw: fw, path: abs, flags: flags, logger: logger, onReload: onReload, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			err := w.flags.ReloadFile(w.path)
			if err != nil {
				w.logger.Warn("Flags reload failed", "path", w.path, "error", err)
			} else {
				w.logger.Info("Flags reloaded", "path", w.path)
			}
			if w.onReload != nil {
				w.onReload(err)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Flags watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}
