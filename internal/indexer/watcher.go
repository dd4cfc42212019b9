package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for more events before it
// re-indexes a batch.
const DefaultDebounce = 200 * time.Millisecond

// Watcher monitors a container root and re-indexes changed files in
// debounced batches. After each batch OnIndexed is called with the
// container name, typically to schedule an index merge.
type Watcher struct {
	indexer   *Indexer
	container string
	config    *Config
	debounce  time.Duration
	watcher   *fsnotify.Watcher

	// OnIndexed runs after a batch was queued as pending writes.
	OnIndexed func(container string, stats *Statistics)

	mu      sync.Mutex
	pending map[string]struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWatcher creates a watcher for root. It does not watch anything until
// Start is called.
func NewWatcher(idx *Indexer, root string, config *Config) (*Watcher, error) {
	container, err := ContainerName(root)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = DefaultConfig()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		indexer:   idx,
		container: container,
		config:    config,
		debounce:  DefaultDebounce,
		watcher:   fw,
		pending:   make(map[string]struct{}),
	}, nil
}

// SetDebounce changes the debounce interval. It must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Container returns the watched container name.
func (w *Watcher) Container() string { return w.container }

// Start adds watches for every directory under the root and starts the
// event loop.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatches(w.container); err != nil {
		return fmt.Errorf("failed to add watches starting from %s: %w", w.container, err)
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the fsnotify watcher. Events not
// yet flushed are dropped.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignoredDir(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Printf("indexer: failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(w.container, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) ignoredDir(path string) bool {
	rel, ok := w.rel(path)
	if !ok {
		return true
	}
	return excluded(rel+"/", w.config) || strings.HasPrefix(filepath.Base(path), ".")
}

func (w *Watcher) wanted(path string) bool {
	rel, ok := w.rel(path)
	if !ok || excluded(rel, w.config) {
		return false
	}
	include := w.config.Include
	if len(include) == 0 {
		include = DefaultConfig().Include
	}
	for _, pattern := range include {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.handle(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("indexer: watcher error: %v", err)

		case <-timer.C:
			w.flush(ctx)
		}
	}
}

// handle records one event and reports whether it queued a file.
func (w *Watcher) handle(event fsnotify.Event) bool {
	path := event.Name
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.ignoredDir(path) {
				if err := w.addWatches(path); err != nil {
					log.Printf("indexer: failed to watch new directory %s: %v", path, err)
				}
			}
			return false
		}
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if !w.wanted(path) {
		return false
	}
	w.mu.Lock()
	w.pending[path] = struct{}{}
	w.mu.Unlock()
	return true
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()
	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	stats, err := w.indexer.IndexPaths(ctx, w.container, paths)
	if err != nil {
		log.Printf("indexer: re-indexing %d files of %s failed: %v", len(paths), w.container, err)
		return
	}
	if w.OnIndexed != nil {
		w.OnIndexed(w.container, stats)
	}
}
