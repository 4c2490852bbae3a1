package fallback

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Veraticus/woodsnap/internal/common"
)

const debounceInterval = 100 * time.Millisecond

// Watcher reloads an Identifier's model whenever its file changes on disk.
type Watcher struct {
	watcher       *fsnotify.Watcher
	identifier    *Identifier
	logger        *slog.Logger
	stopCh        chan struct{}
	debounceTimer *time.Timer
	path          string
	mu            sync.Mutex
	stopOnce      sync.Once
}

// Watch starts watching path's directory so the model file may be created,
// replaced or removed at any time.
func Watch(path string, identifier *Identifier, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create model watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch model directory: %w", err)
	}

	w := &Watcher{
		watcher:    fw,
		identifier: identifier,
		logger:     common.LoggerOrDefault(logger),
		stopCh:     make(chan struct{}),
		path:       path,
	}
	go w.watchLoop()
	return w, nil
}

// watchLoop handles file system events with debouncing.
func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}

			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				w.schedule(w.reload)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.schedule(w.unload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("model watcher error", "error", err)

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) schedule(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(debounceInterval, fn)
}

func (w *Watcher) reload() {
	if err := w.identifier.Reload(w.path); err != nil {
		w.logger.Warn("failed to reload offline model, keeping previous", "path", w.path, "error", err)
	}
}

func (w *Watcher) unload() {
	w.identifier.SetModel(nil)
	w.logger.Info("offline model removed, using placeholder", "path", w.path)
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}
