package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/internal/parser"
)

var (
	// ErrIndexingInProgress is returned when IndexContainer is called while
	// another run of the same indexer is active.
	ErrIndexingInProgress = errors.New("indexing already in progress")
)

// Indexer coordinates the indexing pipeline: discover -> parse -> extract ->
// pending index writes. The writes become visible to searches once the
// index is merged.
type Indexer struct {
	manager *index.Manager
	locks   containerLocks

	// Worker pool configuration
	workers int
}

// Config contains configuration for the indexer
type Config struct {
	Workers int // Number of concurrent workers (default: runtime.NumCPU())
	// Include and Exclude are doublestar patterns matched against paths
	// relative to the container root, using forward slashes.
	Include      []string
	Exclude      []string
	IncludeTests bool // Whether to index files under src/test (default: true)
}

// DefaultConfig indexes every .java and .class file outside hidden
// directories and build output.
func DefaultConfig() *Config {
	return &Config{
		Workers:      runtime.NumCPU(),
		Include:      []string{"**/*.java", "**/*.class"},
		Exclude:      []string{"**/.*/**", "**/node_modules/**"},
		IncludeTests: true,
	}
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	Container        string
	FilesIndexed     int
	FilesSkipped     int
	FilesFailed      int
	FilesRemoved     int
	EntriesExtracted int
	Duration         time.Duration
	ErrorMessages    []string
}

// New creates a new Indexer instance
func New(manager *index.Manager) *Indexer {
	return &Indexer{
		manager: manager,
		workers: runtime.NumCPU(),
	}
}

// ContainerName returns the index container name of a root directory: its
// cleaned absolute path.
func ContainerName(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// IndexContainer indexes every matching file under root into the index of
// the root's container. Unchanged files (same xxhash as the merged
// document) are skipped and files that disappeared are removed.
func (idx *Indexer) IndexContainer(ctx context.Context, root string, config *Config) (*Statistics, error) {
	if config == nil {
		config = DefaultConfig()
	}
	workers := config.Workers
	if workers <= 0 {
		workers = idx.workers
	}

	startTime := time.Now()
	container, err := ContainerName(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve container root: %w", err)
	}
	if !idx.locks.tryLock(container) {
		return nil, ErrIndexingInProgress
	}
	defer idx.locks.unlock(container)
	stats := &Statistics{Container: container, ErrorMessages: make([]string, 0)}

	x, err := idx.manager.Index(ctx, container)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	files, err := discoverFiles(container, config)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	known := mergedHashes(x)
	if err := idx.indexFiles(ctx, x, files, known, workers, stats); err != nil {
		return nil, fmt.Errorf("failed to index files: %w", err)
	}

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}
	for p := range known {
		if !present[p] {
			x.Remove(p)
			stats.FilesRemoved++
		}
	}

	stats.Duration = time.Since(startTime)
	return stats, nil
}

// IndexPaths re-indexes the given files of container. Files that no longer
// exist are removed from the index.
func (idx *Indexer) IndexPaths(ctx context.Context, container string, paths []string) (*Statistics, error) {
	x, err := idx.manager.Index(ctx, container)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	stats := &Statistics{Container: container, ErrorMessages: make([]string, 0)}
	startTime := time.Now()

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			x.Remove(p)
			stats.FilesRemoved++
			continue
		}
		existing = append(existing, p)
	}
	if err := idx.indexFiles(ctx, x, existing, mergedHashes(x), idx.workers, stats); err != nil {
		return nil, err
	}
	stats.Duration = time.Since(startTime)
	return stats, nil
}

// mergedHashes snapshots the content hash of every merged document.
func mergedHashes(x *index.Index) map[string]uint64 {
	x.Monitor().EnterRead()
	defer x.Monitor().ExitRead()
	out := make(map[string]uint64)
	for _, p := range x.Paths() {
		if d, ok := x.Document(p); ok {
			out[p] = d.Hash
		}
	}
	return out
}

// discoverFiles finds all matching files under root, sorted.
func discoverFiles(root string, config *Config) ([]string, error) {
	include := config.Include
	if len(include) == 0 {
		include = DefaultConfig().Include
	}
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	for _, pattern := range include {
		err := doublestar.GlobWalk(fsys, pattern, func(rel string, d fs.DirEntry) error {
			if d.IsDir() || excluded(rel, config) {
				return nil
			}
			seen[filepath.Join(root, filepath.FromSlash(rel))] = true
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

func excluded(rel string, config *Config) bool {
	for _, pattern := range config.Exclude {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	if !config.IncludeTests && (strings.HasPrefix(rel, "src/test/") || strings.Contains(rel, "/src/test/")) {
		return true
	}
	return false
}

// indexFiles fans the files out to a fixed pool of workers. Every worker
// owns one parser because parsers are not safe for concurrent use.
func (idx *Indexer) indexFiles(ctx context.Context, x *index.Index, files []string, known map[string]uint64, workers int, stats *Statistics) error {
	var (
		indexed int32
		skipped int32
		failed  int32
		entries int32
	)
	var mu sync.Mutex // Protect stats.ErrorMessages

	work := make(chan string)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for _, f := range files {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			case work <- f:
			}
		}
		return nil
	})

	if workers > len(files) {
		workers = len(files)
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			p := parser.New()
			defer p.Close()
			for path := range work {
				doc, changed, err := indexFile(p, path, known)
				switch {
				case err != nil:
					atomic.AddInt32(&failed, 1)
					mu.Lock()
					stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", path, err))
					mu.Unlock()
				case !changed:
					atomic.AddInt32(&skipped, 1)
				default:
					x.Add(*doc)
					atomic.AddInt32(&indexed, 1)
					atomic.AddInt32(&entries, int32(len(doc.Entries)))
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats.FilesIndexed += int(indexed)
	stats.FilesSkipped += int(skipped)
	stats.FilesFailed += int(failed)
	stats.EntriesExtracted += int(entries)
	return nil
}

// indexFile extracts the document of one file. It reports changed=false
// when the content hash equals the merged one.
func indexFile(p *parser.Parser, path string, known map[string]uint64) (*index.Document, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	hash := xxhash.Sum64(content)
	if h, ok := known[path]; ok && h == hash {
		return nil, false, nil
	}

	doc := &index.Document{Path: path, Hash: hash}
	if strings.HasSuffix(path, ".class") {
		cf, err := classfile.Parse(content)
		if err != nil {
			return nil, false, err
		}
		doc.PackageName = cf.PackageName()
		doc.Entries = ExtractClassFile(cf)
		return doc, true, nil
	}

	unit, err := p.Parse(path, content, parser.ModeFull)
	if err != nil {
		return nil, false, err
	}
	doc.PackageName = unit.PackageName()
	doc.Entries = ExtractSource(unit)
	return doc, true, nil
}
