package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// BackendSource supplies the backend base address. Callers read it on every
// request, so a source may change its answer over time.
type BackendSource interface {
	BackendURL() string
}

// StaticBackend is a fixed backend address.
type StaticBackend string

func (s StaticBackend) BackendURL() string {
	return string(s)
}

// Watcher keeps the configuration of a TOML file current by reloading it
// whenever the file changes on disk. A reload that fails keeps the last good
// configuration.
type Watcher struct {
	path    string
	logger  *zap.Logger
	current atomic.Pointer[Config]
	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// NewWatcher loads path and starts watching it.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	// Editors often replace the file rather than write it, so watch the
	// directory and filter by name.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &Watcher{
		path:    filepath.Clean(path),
		logger:  logger,
		watcher: fw,
		done:    make(chan struct{}),
	}
	w.current.Store(&cfg)

	go w.loop()
	return w, nil
}

func (w *Watcher) BackendURL() string {
	return w.current.Load().Backend.URL
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous values",
			zap.String("path", w.path),
			zap.Error(err),
		)
		return
	}

	w.current.Store(&cfg)
	w.logger.Info("config reloaded",
		zap.String("path", w.path),
		zap.String("backend", cfg.Backend.URL),
	)
}
