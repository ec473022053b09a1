package sse

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/boozedog/chronicle/internal/chronicle"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher gathers changes before notifying.
const DefaultDebounce = time.Second

// Watcher watches a chronicle root, including subdirectories, and tells the
// broker which chronicles changed.
type Watcher struct {
	root     string
	broker   *Broker
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher creates and starts a file watcher on the chronicle root.
func NewWatcher(root string, broker *Broker, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		broker:   broker,
		watcher:  fw,
		debounce: debounce,
	}

	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// addTree watches dir and every directory beneath it; fsnotify is not
// recursive.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	dirty := make(map[string]struct{})

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						slog.Warn("watch new directory", "dir", ev.Name, "err", err)
					}
					continue
				}
			}
			base := filepath.Base(ev.Name)
			if !strings.HasSuffix(base, chronicle.Suffix) || strings.HasPrefix(base, ".") {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				if len(dirty) == 0 {
					timer.Reset(w.debounce)
				}
				dirty[ev.Name] = struct{}{}
			}

		case <-timer.C:
			paths := make([]string, 0, len(dirty))
			for name := range dirty {
				rel, err := filepath.Rel(w.root, name)
				if err != nil {
					continue
				}
				paths = append(paths, filepath.ToSlash(rel))
			}
			clear(dirty)
			slices.Sort(paths)
			for _, p := range paths {
				w.broker.Broadcast(Notice{Path: p})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", "err", err)
		}
	}
}
