package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last file event before the
// directory is re-imported.
const DefaultDebounce = 100 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	onImport func(*Report, error)
}

// WithDebounce sets the quiet period. Values below one millisecond keep the
// default.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d >= time.Millisecond {
			o.debounce = d
		}
	}
}

// OnImport registers a callback run after every import pass.
func OnImport(fn func(*Report, error)) WatchOption {
	return func(o *watchOptions) { o.onImport = fn }
}

// Watch imports dir once and then again after every burst of changes to
// rule files in it. It blocks until ctx is cancelled.
func (im *Importer) Watch(ctx context.Context, dir string, opts ...WatchOption) error {
	o := watchOptions{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("importer: create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("importer: watch %s: %w", dir, err)
	}

	// Passes never overlap.
	var passMu sync.Mutex
	pass := func() {
		passMu.Lock()
		defer passMu.Unlock()
		report, err := im.ImportDir(ctx, dir)
		if o.onImport != nil {
			o.onImport(report, err)
		}
	}

	pass()
	im.logger.InfoContext(ctx, "watching rule directory", "dir", dir, "debounce_ms", o.debounce.Milliseconds())

	debounce := NewDebouncer(o.debounce)
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			im.logger.InfoContext(ctx, "rule directory watch stopped", "dir", dir)
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("importer: watcher events channel closed")
			}
			if !relevant(event) {
				continue
			}
			im.logger.DebugContext(ctx, "rule file event", "path", event.Name, "op", event.Op.String())
			debounce.Trigger(pass)

		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("importer: watcher errors channel closed")
			}
			im.logger.ErrorContext(ctx, "rule directory watch error", "error", err)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	return isRuleFile(filepath.Base(event.Name))
}

// Debouncer collapses rapid triggers into one callback run after a quiet
// period. Only the latest callback runs.
type Debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback, replacing any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		d.callback = nil
		stopped := d.stopped
		d.mu.Unlock()

		if cb != nil && !stopped {
			cb()
		}
	})
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
