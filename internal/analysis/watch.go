package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces bursts of editor writes into one reload.
const DefaultWatchDebounce = 250 * time.Millisecond

// LexiconWatcher reloads a lexicon file into an Analyzer whenever it
// changes. An invalid file is logged and the previous lexicon stays active.
type LexiconWatcher struct {
	path     string
	target   *Analyzer
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// onReload is invoked after every reload attempt.
	onReload func(error)
}

// NewLexiconWatcher creates a watcher for path. Call Start to begin.
func NewLexiconWatcher(path string, target *Analyzer, debounce time.Duration, logger *slog.Logger) *LexiconWatcher {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LexiconWatcher{
		path:     path,
		target:   target,
		debounce: debounce,
		logger:   logger.With("component", "lexicon-watch", "path", path),
	}
}

// Start watches the lexicon's directory, so atomic renames by editors are
// seen too.
func (w *LexiconWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create lexicon watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.watcher = watcher
	w.cancel = cancel
	w.wg.Add(1)
	go w.loop(watchCtx, watcher)
	w.logger.Info("watching lexicon")
	return nil
}

// Close stops the watcher and waits for the loop to exit.
func (w *LexiconWatcher) Close() error {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	watcher := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	var err error
	if watcher != nil {
		err = watcher.Close()
	}
	w.wg.Wait()
	return err
}

// Reload parses the lexicon file and installs it.
func (w *LexiconWatcher) Reload() error {
	lex, err := LoadLexicon(w.path)
	if err == nil {
		w.target.SetLexicon(lex)
	}
	if w.onReload != nil {
		w.onReload(err)
	}
	return err
}

func (w *LexiconWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer w.wg.Done()

	target := filepath.Clean(w.path)
	var mu sync.Mutex
	var timer *time.Timer
	scheduleReload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			if err := w.Reload(); err != nil {
				w.logger.Warn("lexicon reload failed, keeping previous tables", "error", err)
			}
		})
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("lexicon watch error", "error", err)
		}
	}
}
