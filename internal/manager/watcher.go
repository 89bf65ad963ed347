package manager

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/emergent-labs/livedev/internal/event"
	"github.com/emergent-labs/livedev/pkg/lru"
)

// debounceWindow suppresses duplicate watcher notifications for the
// same path; editors typically fire several writes per save.
const debounceWindow = 500 * time.Millisecond

// Watcher feeds real filesystem activity under a project workspace into
// the manager as file events.
type Watcher struct {
	manager  *Manager
	root     string
	fsw      *fsnotify.Watcher
	lastSeen *lru.Cache[string, time.Time]
	logger   zerolog.Logger
}

// NewWatcher creates a watcher rooted at dir, registering dir and all
// of its current subdirectories.
func NewWatcher(m *Manager, dir string, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		manager:  m,
		root:     dir,
		fsw:      fsw,
		lastSeen: lru.New[string, time.Time](4096),
		logger:   logger.With().Str("component", "watcher").Logger(),
	}

	if err := w.addRecursive(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run consumes watcher notifications until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info().Str("dir", w.root).Msg("file watcher started")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		// New directories must be registered; fsnotify does not watch
		// recursively.
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.logger.Warn().Err(err).Str("dir", ev.Name).Msg("failed to watch new directory")
			}
			return
		}
		if w.debounced(ev.Name) {
			return
		}
		w.manager.HandleFileEvent(event.TypeFileCreated, ev.Name)

	case ev.Has(fsnotify.Write):
		if w.debounced(ev.Name) {
			return
		}
		w.manager.HandleFileEvent(event.TypeFileModified, ev.Name)
	}
}

// debounced reports whether this path fired within the debounce window
// and stamps it either way.
func (w *Watcher) debounced(path string) bool {
	now := time.Now()
	last, seen := w.lastSeen.Get(path)
	w.lastSeen.Put(path, now)
	return seen && now.Sub(last) < debounceWindow
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		for _, fragment := range ignoredPathFragments {
			if d.Name() == fragment {
				return filepath.SkipDir
			}
		}
		return w.fsw.Add(path)
	})
}
