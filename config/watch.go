package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/ssao"
)

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithLogger sets the logger reload failures are reported to. The default
// is slog.Default().
func WithLogger(l *slog.Logger) WatchOption {
	return func(w *Watcher) { w.logger = l }
}

// WithReloadHook calls fn after every reload attempt with the file now in
// effect and the reload error, if any. fn runs on the watch goroutine.
func WithReloadHook(fn func(f *File, err error)) WatchOption {
	return func(w *Watcher) { w.hook = fn }
}

// Watcher holds the latest valid content of a config file and reloads it
// whenever the file is written or recreated. It implements
// ssao.VolumeSource; lookups never block on the file system.
type Watcher struct {
	path   string
	logger *slog.Logger
	hook   func(*File, error)

	fsw  *fsnotify.Watcher
	file atomic.Pointer[File]

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ ssao.VolumeSource = (*Watcher)(nil)

// Watch loads path and starts watching its directory. Editors that replace
// the file instead of writing it in place are handled as well.
func Watch(path string, opts ...WatchOption) (*Watcher, error) {
	path = filepath.Clean(path)
	w := &Watcher{
		path:   path,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	w.file.Store(f)

	w.fsw, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch: %w", err)
	}
	if err := w.fsw.Add(filepath.Dir(path)); err != nil {
		w.fsw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config: watch error", "path", w.path, "err", err)
		}
	}
}

// reload replaces the current file. A file that fails to load keeps the
// previous content in effect. Empty reads are skipped: writers truncate
// before writing.
func (w *Watcher) reload() {
	if fi, err := os.Stat(w.path); err == nil && fi.Size() == 0 {
		return
	}
	f, err := Load(w.path)
	if err != nil {
		w.logger.Error("config: reload failed, keeping previous volumes", "path", w.path, "err", err)
	} else {
		w.file.Store(f)
		w.logger.Info("config: reloaded", "path", w.path, "volumes", len(f.Volumes))
	}
	if w.hook != nil {
		w.hook(w.file.Load(), err)
	}
}

// File returns the content currently in effect.
func (w *Watcher) File() *File {
	return w.file.Load()
}

// Volume implements ssao.VolumeSource.
func (w *Watcher) Volume(effect string) (*ssao.Volume, bool) {
	return w.file.Load().Volume(effect)
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}
