package upload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mohammed-shakir/layer-report-client/internal/logger"
)

const DefaultDebounce = 300 * time.Millisecond

// Watcher re-uploads a file into a Session whenever its content changes on
// disk. The parent directory is watched so editor rename-saves are seen.
type Watcher struct {
	path     string
	session  *Session
	logger   *slog.Logger
	debounce time.Duration
	onUpload func(error)
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// OnUpload is called after each attempted upload.
func OnUpload(fn func(error)) WatcherOption {
	return func(w *Watcher) { w.onUpload = fn }
}

func NewWatcher(path string, s *Session, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		session:  s,
		logger:   logger.NopSlog(),
		debounce: DefaultDebounce,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run uploads the file once, then blocks re-uploading on change until ctx
// is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.InfoContext(ctx, "watching file", "path", w.path)

	w.sync(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "watch error", "err", err)
		case <-fire:
			fire = nil
			w.sync(ctx)
		}
	}
}

// sync uploads the file if its content differs from the last accepted one.
func (w *Watcher) sync(ctx context.Context) {
	f, err := ReadFile(w.path)
	if err != nil {
		w.logger.DebugContext(ctx, "watched file unreadable", "path", w.path, "err", err)
		return
	}
	if _, ok := w.session.Current(); ok && f.Fingerprint() == w.session.Fingerprint() {
		return
	}
	err = w.session.Upload(ctx, f)
	if w.onUpload != nil {
		w.onUpload(err)
	}
}
