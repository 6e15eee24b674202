// Package watch reports changes to the markdown documents of a catalog
// folder.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sw33tLie/galshelf/pkg/logging"
)

// DefaultDebounce is the quiet period after the last event before OnChange
// runs.
const DefaultDebounce = 500 * time.Millisecond

// Options configures Folder.
type Options struct {
	Debounce time.Duration // defaults to DefaultDebounce
	// OnChange runs on the watch goroutine after a burst of changes.
	OnChange func(ctx context.Context)
	Log      logging.Logger // optional; nil = no logging
}

// IsCatalogDocument reports whether name is a file the catalog service
// parses: a .md file that is not an editor lock file.
func IsCatalogDocument(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(strings.ToLower(base), ".md") && !strings.HasPrefix(base, "~$")
}

// Folder watches dir (not recursively) until ctx ends. Bursts of writes,
// creates, removes and renames of catalog documents are coalesced into one
// OnChange call.
func Folder(ctx context.Context, dir string, opts Options) error {
	log := logging.OrNop(opts.Log)
	wait := opts.Debounce
	if wait <= 0 {
		wait = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Infof("Watching %s for changes", dir)

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !IsCatalogDocument(ev.Name) {
				continue
			}
			log.Debugf("Change detected: %s", ev)
			debounce.Reset(wait)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Watcher error: %v", err)
		case <-debounce.C:
			if opts.OnChange != nil {
				opts.OnChange(ctx)
			}
		}
	}
}
