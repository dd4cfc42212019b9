package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNoStore is returned by Load when the index has no backing store.
	ErrNoStore = errors.New("index has no store")
)

// Document is the indexed state of one source or class file.
type Document struct {
	Path        string
	PackageName string
	// Hash is the xxhash of the content the entries were extracted from.
	Hash    uint64
	Entries []Entry
}

// Store persists the merged content of indexes.
type Store interface {
	LoadDocuments(ctx context.Context, container string) ([]Document, error)
	SaveDocument(ctx context.Context, container string, doc Document) error
	DeleteDocument(ctx context.Context, container, path string) error
}

// Index is the inverted index of one container (project or library). New
// documents are queued as pending writes and only become visible to Scan
// after Merge.
//
// Scan requires a read section of Monitor and Merge a write section; Add,
// Remove and HasPendingWrites may be called at any time.
type Index struct {
	container string
	store     Store
	monitor   *ReadWriteMonitor

	mu      sync.Mutex
	pending map[string]*Document // nil marks a removal

	// guarded by monitor
	table map[Category]map[string]map[string]struct{}
	docs  map[string]*Document
}

// New creates an empty index. store may be nil for a memory-only index.
func New(container string, store Store) *Index {
	return &Index{
		container: container,
		store:     store,
		monitor:   NewReadWriteMonitor(),
		pending:   make(map[string]*Document),
		table:     make(map[Category]map[string]map[string]struct{}),
		docs:      make(map[string]*Document),
	}
}

// Container returns the name of the indexed container.
func (x *Index) Container() string { return x.container }

// Monitor returns the monitor guarding the merged content.
func (x *Index) Monitor() *ReadWriteMonitor { return x.monitor }

// Add queues doc, replacing any earlier version of the same path.
func (x *Index) Add(doc Document) {
	x.mu.Lock()
	defer x.mu.Unlock()
	d := doc
	x.pending[doc.Path] = &d
}

// Remove queues the removal of path.
func (x *Index) Remove(path string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.pending[path] = nil
}

// HasPendingWrites reports whether Merge has work to do.
func (x *Index) HasPendingWrites() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.pending) > 0
}

// Merge persists the pending writes and folds them into the scanned
// content. A store failure leaves the unmerged documents pending.
func (x *Index) Merge(ctx context.Context) error {
	x.mu.Lock()
	batch := x.pending
	x.pending = make(map[string]*Document)
	x.mu.Unlock()

	paths := make([]string, 0, len(batch))
	for p := range batch {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for i, p := range paths {
		doc := batch[p]
		if err := x.persist(ctx, p, doc); err != nil {
			x.requeue(batch, paths[i:])
			return fmt.Errorf("merge %s in %s: %w", p, x.container, err)
		}
		x.drop(p)
		if doc != nil {
			x.insert(doc)
		}
	}
	return nil
}

func (x *Index) persist(ctx context.Context, path string, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if x.store == nil {
		return nil
	}
	if doc == nil {
		return x.store.DeleteDocument(ctx, x.container, path)
	}
	return x.store.SaveDocument(ctx, x.container, *doc)
}

// requeue puts back unmerged documents unless a newer version was queued
// while the merge ran.
func (x *Index) requeue(batch map[string]*Document, paths []string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, p := range paths {
		if _, newer := x.pending[p]; !newer {
			x.pending[p] = batch[p]
		}
	}
}

func (x *Index) drop(path string) {
	old, ok := x.docs[path]
	if !ok {
		return
	}
	for _, e := range old.Entries {
		keys := x.table[e.Category]
		if keys == nil {
			continue
		}
		docs := keys[e.Key]
		delete(docs, path)
		if len(docs) == 0 {
			delete(keys, e.Key)
		}
	}
	delete(x.docs, path)
}

func (x *Index) insert(doc *Document) {
	x.docs[doc.Path] = doc
	for _, e := range doc.Entries {
		keys := x.table[e.Category]
		if keys == nil {
			keys = make(map[string]map[string]struct{})
			x.table[e.Category] = keys
		}
		docs := keys[e.Key]
		if docs == nil {
			docs = make(map[string]struct{})
			keys[e.Key] = docs
		}
		docs[doc.Path] = struct{}{}
	}
}

// Load replaces the merged content with what the store holds. The caller
// must hold a write section.
func (x *Index) Load(ctx context.Context) error {
	if x.store == nil {
		return ErrNoStore
	}
	docs, err := x.store.LoadDocuments(ctx, x.container)
	if err != nil {
		return fmt.Errorf("load %s: %w", x.container, err)
	}
	x.table = make(map[Category]map[string]map[string]struct{})
	x.docs = make(map[string]*Document, len(docs))
	for i := range docs {
		x.insert(&docs[i])
	}
	return nil
}

// Visitor receives the documents holding one matching key. Returning an
// error stops the scan.
type Visitor func(category Category, key string, paths []string) error

// Scan visits every key of the given categories that starts with prefix,
// in category order and then key order. An empty prefix visits every key.
// The context is checked before each category. The caller must hold a read
// section.
func (x *Index) Scan(ctx context.Context, categories []Category, prefix string, visit Visitor) error {
	for _, c := range categories {
		if err := ctx.Err(); err != nil {
			return err
		}
		keys := x.table[c]
		sorted := make([]string, 0, len(keys))
		for k := range keys {
			if strings.HasPrefix(k, prefix) {
				sorted = append(sorted, k)
			}
		}
		sort.Strings(sorted)
		for _, k := range sorted {
			paths := make([]string, 0, len(keys[k]))
			for p := range keys[k] {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			if err := visit(c, k, paths); err != nil {
				return err
			}
		}
	}
	return nil
}

// Document returns the merged state of path. The caller must hold a read
// section.
func (x *Index) Document(path string) (*Document, bool) {
	d, ok := x.docs[path]
	return d, ok
}

// Paths returns every merged document path in order. The caller must hold
// a read section.
func (x *Index) Paths() []string {
	paths := make([]string, 0, len(x.docs))
	for p := range x.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Stats summarizes the index.
type Stats struct {
	Container string
	Documents int
	Keys      int
	Pending   int
}

// Stats takes a read section itself.
func (x *Index) Stats() Stats {
	x.monitor.EnterRead()
	defer x.monitor.ExitRead()
	s := Stats{Container: x.container, Documents: len(x.docs)}
	for _, keys := range x.table {
		s.Keys += len(keys)
	}
	x.mu.Lock()
	s.Pending = len(x.pending)
	x.mu.Unlock()
	return s
}
