// Package watch rebuilds when files below a source directory change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
)

// ErrWatchFailed indicates the watcher could not be started.
var ErrWatchFailed = errors.NewError(errors.CategoryRuntime, "failed to watch source directory").Build()

// RebuildFunc is invoked after the tree has been quiet for the debounce period.
type RebuildFunc func(ctx context.Context)

// Watcher watches a directory tree and debounces changes into rebuilds.
type Watcher struct {
	root     string
	debounce time.Duration
	rebuild  RebuildFunc
	ignore   []string
	logger   *slog.Logger
}

// New returns a Watcher for root. Paths below any of ignore (typically the
// output directory) never trigger a rebuild.
func New(root string, debounce time.Duration, rebuild RebuildFunc, ignore ...string) *Watcher {
	w := &Watcher{root: root, debounce: debounce, rebuild: rebuild, logger: slog.Default()}
	for _, p := range ignore {
		if abs, err := filepath.Abs(p); err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}
	return w
}

// WithLogger sets the logger.
func (w *Watcher) WithLogger(l *slog.Logger) *Watcher {
	if l != nil {
		w.logger = l
	}
	return w
}

// Run watches until ctx is done. Rebuilds never overlap: changes arriving
// during a rebuild queue exactly one more.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrWatchFailed.WithCause(err)
	}
	defer func() { _ = fw.Close() }()

	if err := w.addDirsRecursive(fw, w.root); err != nil {
		return ErrWatchFailed.WithCause(err).WithContext("root", w.root)
	}

	requests := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-requests:
				w.rebuild(ctx)
			}
		}
	}()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				<-done
				return nil
			}
			if !w.handle(fw, ev) {
				continue
			}
			timer.Reset(w.debounce)
		case <-timer.C:
			select {
			case requests <- struct{}{}:
			default:
			}
		case err, ok := <-fw.Errors:
			if !ok {
				<-done
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// handle reports whether ev should trigger a rebuild. New directories are
// added to the watch.
func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ShouldIgnore(ev.Name) || w.ignored(ev.Name) {
		return false
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(fw, ev.Name)
		}
	}
	w.logger.Debug("File change detected", "path", ev.Name, "op", ev.Op.String())
	return true
}

func (w *Watcher) ignored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range w.ignore {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || w.ignored(path)) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			w.logger.Warn("watch add failed", "dir", path, "error", err)
		}
		return nil
	})
}

// ShouldIgnore reports whether a change to path is editor or OS noise.
func ShouldIgnore(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
