package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"physiology-rag/internal/contextutil"
)

// Watcher reports changes under the processed directory. Bursts of events are
// collapsed into one callback after the debounce interval.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a Watcher for root.
func NewWatcher(root string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{root: root, debounce: debounce, logger: logger}
}

// Run watches root and each document directory until ctx is done, calling
// onChange after every settled burst of changes. onChange runs on the watcher
// goroutine, so a rebuild in progress delays the next one.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context)) error {
	logger := contextutil.LoggerOr(ctx, w.logger)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw); err != nil {
		return err
	}
	logger.InfoContext(ctx, "watching processed directory", "root", w.root)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			logger.DebugContext(ctx, "watch event", "event", event.String())
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.Add(event.Name); err != nil {
						logger.WarnContext(ctx, "failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			pending = true
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.ErrorContext(ctx, "watcher error", "error", err)
		case <-timer.C:
			if pending {
				pending = false
				onChange(ctx)
			}
		}
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher) error {
	if err := fw.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", w.root, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := fw.Add(filepath.Join(w.root, e.Name())); err != nil {
			return fmt.Errorf("failed to watch %s: %w", e.Name(), err)
		}
	}
	return nil
}
