// Package follow streams events as they are appended to a chronicle.
package follow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/boozedog/chronicle/internal/chronicle"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of filesystem notifications.
const DefaultDebounce = 50 * time.Millisecond

// Follower watches one chronicle path and hands every newly appended event
// to a callback.
type Follower struct {
	store    *chronicle.Store
	path     string
	file     string
	offset   int64
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Follower.
type Option func(*Follower)

// FromStart replays the events already in the file before following.
func FromStart() Option {
	return func(f *Follower) { f.offset = 0 }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(f *Follower) { f.debounce = d }
}

// WithLogger sets the logger for watcher errors.
func WithLogger(l *slog.Logger) Option {
	return func(f *Follower) { f.logger = l }
}

// New creates a Follower positioned at the current end of path.
func New(store *chronicle.Store, path string, opts ...Option) (*Follower, error) {
	file, err := store.FilePath(path)
	if err != nil {
		return nil, err
	}
	f := &Follower{
		store:    store,
		path:     path,
		file:     file,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	if info, err := os.Stat(file); err == nil {
		f.offset = info.Size()
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Offset returns the byte offset the next read starts from.
func (f *Follower) Offset() int64 { return f.offset }

// Run blocks until ctx is done or fn returns an error, calling fn for each
// event appended to the chronicle. Appends replace the file by rename, so the
// parent directory is watched rather than the file itself.
func (f *Follower) Run(ctx context.Context, fn func(chronicle.Event) error) error {
	dir := filepath.Dir(f.file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create chronicle dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// Catch up on anything written before the watch was in place.
	if err := f.drain(fn); err != nil {
		return err
	}

	timer := time.NewTimer(f.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Name != f.file {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				if !pending {
					timer.Reset(f.debounce)
					pending = true
				}
			}
		case <-timer.C:
			pending = false
			if err := f.drain(fn); err != nil {
				return err
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			f.logger.Error("fsnotify error", "path", f.path, "err", err)
		}
	}
}

func (f *Follower) drain(fn func(chronicle.Event) error) error {
	events, next, err := f.store.ReadFrom(f.path, f.offset)
	f.offset = next
	if err != nil {
		return fmt.Errorf("read new events: %w", err)
	}
	for _, e := range events {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}
