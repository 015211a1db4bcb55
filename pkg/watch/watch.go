// Package watch reruns work when files on disk change.
//
// Parent directories are watched rather than the files themselves, so
// editors that save by renaming a temporary file over the original are
// still seen.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/macropower/conductor/pkg/log"
)

// DefaultDebounce is the quiet period that must pass after the last event
// before the callback runs.
const DefaultDebounce = 100 * time.Millisecond

// ErrNoPaths is returned by [New] when there is nothing to watch.
var ErrNoPaths = errors.New("no paths to watch")

// Func is called with the last event of each burst of changes.
type Func func(ctx context.Context, evt fsnotify.Event) error

// Watcher watches a set of files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]struct{}
	dirs     map[string]struct{}
	debounce time.Duration
}

// Opt configures a [Watcher].
type Opt func(*Watcher)

// WithDebounce sets the quiet period. Zero runs the callback for every
// event.
func WithDebounce(d time.Duration) Opt {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New creates a [Watcher] for paths.
func New(paths []string, opts ...Opt) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, p := range paths {
		err := w.add(p)
		if err != nil {
			closeErr := fsw.Close()

			return nil, errors.Join(err, closeErr)
		}
	}

	return w, nil
}

func (w *Watcher) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("get absolute path: %w", err)
	}

	dir := filepath.Dir(abs)
	if _, ok := w.dirs[dir]; !ok {
		err = w.fsw.Add(dir)
		if err != nil {
			return fmt.Errorf("add path to watcher: %w", err)
		}

		w.dirs[dir] = struct{}{}
	}

	w.files[abs] = struct{}{}

	return nil
}

// Files returns the number of watched files.
func (w *Watcher) Files() int {
	return len(w.files)
}

func (w *Watcher) watched(evt fsnotify.Event) bool {
	// Ignore events that are not related to file content changes.
	if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
		return false
	}

	_, ok := w.files[filepath.Clean(evt.Name)]

	return ok
}

// Run calls fn after changes to the watched files until ctx is done or fn
// returns an error. The underlying watcher is closed when Run returns.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	defer w.close(ctx)

	logger := log.WithContext(ctx)
	logger.DebugContext(ctx, "watching files",
		slog.Int("files", len(w.files)),
		slog.Int("dirs", len(w.dirs)),
	)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending fsnotify.Event
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.watched(evt) {
				continue
			}

			logger.DebugContext(ctx, "file event", slog.String("event", evt.String()))

			pending = evt

			if w.debounce <= 0 {
				err := fn(ctx, pending)
				if err != nil {
					return err
				}

				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}

			fire = timer.C

		case <-fire:
			fire = nil

			err := fn(ctx, pending)
			if err != nil {
				return err
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}

			logger.ErrorContext(ctx, "watch files", slog.Any("err", err))
		}
	}
}

func (w *Watcher) close(ctx context.Context) {
	err := w.fsw.Close()
	if err != nil {
		log.WithContext(ctx).ErrorContext(ctx, "close watcher", slog.Any("err", err))
	}
}
