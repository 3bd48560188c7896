package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const watchDebounce = 150 * time.Millisecond

// Watcher reloads the config file whenever it changes on disk. The parent
// directory is watched because editors replace files instead of writing them
// in place.
type Watcher struct {
	path     string
	onChange func(FileConfig, error)
	fsw      *fsnotify.Watcher
	logger   zerolog.Logger
	debounce time.Duration
	done     chan struct{}
}

// NewWatcher creates a watcher for path. onChange runs on the watcher
// goroutine with the freshly decoded config or the decode error.
func NewWatcher(path string, onChange func(FileConfig, error), logger zerolog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		if cerr := fsw.Close(); cerr != nil {
			// Best-effort close on watch failure.
			_ = cerr
		}
		return nil, err
	}
	return &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		fsw:      fsw,
		logger:   logger,
		debounce: watchDebounce,
		done:     make(chan struct{}),
	}, nil
}

// Run delivers change notifications until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("failed to close config watcher")
		}
	}()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
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
			cfg, err := LoadConfig(w.path)
			w.logger.Debug().Err(err).Str("path", w.path).Msg("config changed")
			w.onChange(cfg, err)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("config watcher error")
		}
	}
}

// Done is closed once Run has returned.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}
