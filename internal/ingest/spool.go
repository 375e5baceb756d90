package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// spoolDebounce gives mail delivery agents time to finish writing a
// message before it is picked up.
const spoolDebounce = 200 * time.Millisecond

// SpoolWatcher watches a drop directory for .eml files and feeds each
// one into the processor. Handled files are removed; rejected ones
// are renamed with a .rejected suffix so they can be inspected.
type SpoolWatcher struct {
	dir       string
	processor Processor
	logger    *slog.Logger
	debounce  time.Duration
}

// NewSpoolWatcher creates a watcher for the given drop directory.
func NewSpoolWatcher(dir string, processor Processor, logger *slog.Logger) *SpoolWatcher {
	return &SpoolWatcher{
		dir:       dir,
		processor: processor,
		logger:    logger,
		debounce:  spoolDebounce,
	}
}

// Run drains files already present, then watches for new ones until
// ctx is cancelled.
func (w *SpoolWatcher) Run(ctx context.Context) error {
	if err := w.ScanExisting(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	// A single timer resets on each event; when it fires, all
	// accumulated paths are handled. Delivery agents often write in
	// multiple chunks, so Create alone is not a completion signal.
	pending := make(map[string]bool)

	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()

	flush := func() {
		for path := range pending {
			delete(pending, path)
			w.handleFile(ctx, path)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			flush()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isSpoolFile(event.Name) {
				continue
			}

			pending[event.Name] = true

			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("spool watch error", "dir", w.dir, "err", err)
		}
	}
}

// ScanExisting handles files that arrived while the watcher was down.
func (w *SpoolWatcher) ScanExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if !isSpoolFile(path) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		w.handleFile(ctx, path)
	}
	return nil
}

func (w *SpoolWatcher) handleFile(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("reading spool file failed", "path", path, "err", err)
		return
	}

	outcome, err := w.processor.Process(ctx, raw)
	if err != nil {
		w.logger.Warn("message rejected", "path", path, "err", err)
		if renameErr := os.Rename(path, path+".rejected"); renameErr != nil {
			w.logger.Warn("marking spool file rejected failed", "path", path, "err", renameErr)
		}
		return
	}

	w.logger.Info("message processed",
		"path", path,
		"topic_id", outcome.Post.TopicID,
		"post_number", outcome.Post.PostNumber,
	)

	if err := os.Remove(path); err != nil {
		w.logger.Warn("removing spool file failed", "path", path, "err", err)
	}
}

// isSpoolFile reports whether the file is a finished .eml delivery
// (not a .tmp partial write and not an already rejected message).
func isSpoolFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".eml") && !strings.HasSuffix(name, ".tmp")
}
