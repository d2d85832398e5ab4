// Package configwatch reports changes to the slotsync configuration file.
package configwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/slotsync/logging"
	"github.com/grovetools/slotsync/pkg/clock"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches one config file. Editors often replace the file instead of
// writing it in place, so the parent directory is watched and events are
// filtered by name.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	target   string // symlink target of path, if any
	debounce time.Duration
	onChange func(path string)

	clock      clock.Clock
	mu         sync.Mutex
	lastChange time.Time
	logger     *logrus.Entry
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the minimum interval between two callbacks.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithClock sets the clock used for debouncing.
func WithClock(c clock.Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(w *Watcher) { w.logger = l }
}

// New watches path and calls onChange after it is written or recreated.
func New(path string, onChange func(path string), opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		path:     abs,
		debounce: DefaultDebounce,
		onChange: onChange,
		clock:    clock.Real(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.NewLogger("config-watcher")
	}

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	// fsnotify doesn't follow symlinks, so watch the target directory too
	if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if target, err := filepath.EvalSymlinks(abs); err == nil {
			w.target = target
			if filepath.Dir(target) != filepath.Dir(abs) {
				if err := fsw.Add(filepath.Dir(target)); err != nil {
					w.logger.WithError(err).Warnf("Failed to watch symlink target dir %s", filepath.Dir(target))
				}
			}
		}
	}

	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Start processes events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			w.handleChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

func (w *Watcher) matches(name string) bool {
	clean := filepath.Clean(name)
	return clean == w.path || (w.target != "" && clean == w.target)
}

// handleChange invokes the callback unless one ran within the debounce window.
func (w *Watcher) handleChange() {
	w.mu.Lock()
	now := w.clock.Now()
	if !w.lastChange.IsZero() && now.Sub(w.lastChange) < w.debounce {
		w.mu.Unlock()
		w.logger.Debugf("Debounced: %s", filepath.Base(w.path))
		return
	}
	w.lastChange = now
	w.mu.Unlock()

	w.logger.Infof("Config changed: %s", filepath.Base(w.path))
	if w.onChange != nil {
		w.onChange(w.path)
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
