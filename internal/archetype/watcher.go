package archetype

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"codesense/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// CatalogueWatcher watches a directory for catalogue YAML files and hot
// reloads the Library when one changes. A reload that fails validation keeps
// the previous catalogue active, so a half-saved file never degrades matching.
type CatalogueWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	library     *Library
	dir         string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats CatalogueWatcherStats
}

// CatalogueWatcherStats tracks watcher activity for debugging.
type CatalogueWatcherStats struct {
	Reloads       int
	ReloadErrors  int
	Resets        int
	LastEventTime time.Time
	LastEventPath string
}

// NewCatalogueWatcher creates a watcher for catalogue files under dir.
// Files named *.yaml or *.yml are considered catalogue files.
func NewCatalogueWatcher(dir string, library *Library) (*CatalogueWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &CatalogueWatcher{
		watcher:     watcher,
		library:     library,
		dir:         dir,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // settle rapid editor saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine
// until Stop is called or the context is cancelled.
func (cw *CatalogueWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	if cw.running {
		cw.mu.Unlock()
		return nil
	}
	cw.running = true
	cw.mu.Unlock()

	if err := os.MkdirAll(cw.dir, 0755); err != nil {
		logging.Get(logging.CategoryArchetype).Warn("CatalogueWatcher: failed to create %s: %v (continuing anyway)", cw.dir, err)
	}

	if err := cw.watcher.Add(cw.dir); err != nil {
		logging.Get(logging.CategoryArchetype).Warn("CatalogueWatcher: initial watch failed: %v", err)
	} else {
		logging.Archetype("CatalogueWatcher: watching %s", cw.dir)
	}

	go cw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (cw *CatalogueWatcher) Stop() {
	cw.mu.Lock()
	if !cw.running {
		cw.mu.Unlock()
		return
	}
	cw.running = false
	cw.mu.Unlock()

	close(cw.stopCh)
	<-cw.doneCh

	if err := cw.watcher.Close(); err != nil {
		logging.Get(logging.CategoryArchetype).Error("CatalogueWatcher: error closing watcher: %v", err)
	}
	logging.Archetype("CatalogueWatcher: stopped")
}

// Stats returns a snapshot of watcher activity counters.
func (cw *CatalogueWatcher) Stats() CatalogueWatcherStats {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.stats
}

func (cw *CatalogueWatcher) run(ctx context.Context) {
	defer close(cw.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Archetype("CatalogueWatcher: context cancelled")
			return

		case <-cw.stopCh:
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handleEvent(event)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryArchetype).Error("CatalogueWatcher error: %v", err)

		case <-debounceTicker.C:
			cw.processDebouncedEvents()
		}
	}
}

func (cw *CatalogueWatcher) handleEvent(event fsnotify.Event) {
	if !isCatalogueFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	logging.ArchetypeDebug("CatalogueWatcher: %s event for %s", event.Op, event.Name)

	cw.mu.Lock()
	cw.stats.LastEventTime = time.Now()
	cw.stats.LastEventPath = event.Name
	cw.debounceMap[event.Name] = time.Now()
	cw.mu.Unlock()
}

func (cw *CatalogueWatcher) processDebouncedEvents() {
	cw.mu.Lock()
	now := time.Now()
	var toProcess []string
	for path, eventTime := range cw.debounceMap {
		if now.Sub(eventTime) >= cw.debounceDur {
			toProcess = append(toProcess, path)
			delete(cw.debounceMap, path)
		}
	}
	cw.mu.Unlock()

	for _, path := range toProcess {
		cw.reload(path)
	}
}

func (cw *CatalogueWatcher) reload(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Watched file removed. Fall back to the built-in catalogue only if
		// this was the file the active catalogue came from.
		if cw.library.Source() == path {
			cw.library.ResetBuiltin()
			cw.mu.Lock()
			cw.stats.Resets++
			cw.mu.Unlock()
		}
		return
	}

	if err := cw.library.LoadFile(path); err != nil {
		logging.Get(logging.CategoryArchetype).Warn("CatalogueWatcher: reload of %s failed, keeping previous catalogue: %v", path, err)
		cw.mu.Lock()
		cw.stats.ReloadErrors++
		cw.mu.Unlock()
		return
	}

	cw.mu.Lock()
	cw.stats.Reloads++
	cw.mu.Unlock()
}

func isCatalogueFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
