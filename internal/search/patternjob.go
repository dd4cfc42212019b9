package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/internal/search/pattern"
	"github.com/dshills/javacontext-mcp/internal/search/scope"
)

// IndexQuery is the part of an index a PatternSearchJob uses. *index.Index
// implements it.
type IndexQuery interface {
	Container() string
	Monitor() *index.ReadWriteMonitor
	HasPendingWrites() bool
	Merge(ctx context.Context) error
	Scan(ctx context.Context, categories []index.Category, prefix string, visit index.Visitor) error
	Paths() []string
}

// IndexFailure records one index whose sub-scan failed.
type IndexFailure struct {
	Container string
	Err       error
}

// JobResult summarizes a PatternSearchJob run.
type JobResult struct {
	// Complete is false when any sub-scan failed.
	Complete bool
	Failures []IndexFailure
	Scanned  int
}

// PatternSearchJob queries a set of indexes for the documents that may
// contain matches of a pattern. Each index is scanned under its read
// section after pending writes were merged under its write section.
type PatternSearchJob struct {
	Pattern pattern.Pattern
	Scope   scope.Scope
	Indexes []IndexQuery
	// Workers bounds the concurrent sub-scans (default: runtime.NumCPU()).
	Workers int
	// Collector receives the candidate documents.
	Collector *PathCollector

	mu     sync.Mutex
	result JobResult
}

func (j *PatternSearchJob) Name() string {
	return "search " + j.Pattern.String()
}

// Result returns the outcome of the last Run.
func (j *PatternSearchJob) Result() JobResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Run scans every index. A failing index is logged and marks the result
// incomplete without stopping the others; ErrJobFailed is returned only
// when every index failed.
func (j *PatternSearchJob) Run(ctx context.Context) error {
	if j.Pattern == nil {
		return ErrNilPattern
	}
	if j.Collector == nil {
		j.Collector = NewPathCollector()
	}
	if j.Scope == nil {
		j.Scope = scope.NewWorkspace()
	}
	if err := checkCanceled(ctx); err != nil {
		return err
	}

	workers := j.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu       sync.Mutex
		failures []IndexFailure
		g        errgroup.Group
	)
	g.SetLimit(workers)
	for _, x := range j.Indexes {
		g.Go(func() error {
			if err := checkCanceled(ctx); err != nil {
				return err
			}
			err := j.searchIndex(ctx, x)
			switch {
			case err == nil:
				return nil
			case canceled(err):
				if cerr := checkCanceled(ctx); cerr != nil {
					return cerr
				}
				return ErrOperationCanceled
			default:
				log.Printf("search: %s failed on %s: %v", j.Pattern, x.Container(), err)
				mu.Lock()
				failures = append(failures, IndexFailure{Container: x.Container(), Err: err})
				mu.Unlock()
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(failures, func(a, b int) bool { return failures[a].Container < failures[b].Container })
	j.mu.Lock()
	j.result = JobResult{Complete: len(failures) == 0, Failures: failures, Scanned: len(j.Indexes)}
	j.mu.Unlock()

	if len(j.Indexes) > 0 && len(failures) == len(j.Indexes) {
		errs := make([]error, len(failures))
		for i, f := range failures {
			errs[i] = f.Err
		}
		return fmt.Errorf("%w: %w", ErrJobFailed, errors.Join(errs...))
	}
	return nil
}

func (j *PatternSearchJob) searchIndex(ctx context.Context, x IndexQuery) error {
	if err := enterReadMerged(ctx, x); err != nil {
		return err
	}
	defer x.Monitor().ExitRead()

	paths, err := collectPaths(ctx, x, j.Pattern)
	if err != nil {
		return err
	}
	restrict := documentRestriction(j.Pattern)
	for p := range paths {
		if restrict != "" && p != restrict {
			continue
		}
		if j.Scope.EnclosesPath(p) {
			j.Collector.Add(x.Container(), p)
		}
	}
	return nil
}

// enterReadMerged enters the read section of x with no pending writes left
// behind it. When writes are pending it upgrades to the write section,
// merges once and downgrades, so the write section is never held during a
// scan. On success the caller owns a read section.
func enterReadMerged(ctx context.Context, x IndexQuery) error {
	mon := x.Monitor()
	mon.EnterRead()
	if !x.HasPendingWrites() {
		return nil
	}
	if !mon.ExitReadEnterWrite() {
		mon.ExitRead()
		mon.EnterWrite()
	}
	// another job may have merged while this one waited for the write section
	if x.HasPendingWrites() {
		if err := x.Merge(ctx); err != nil {
			mon.ExitWrite()
			return err
		}
	}
	mon.ExitWriteEnterRead()
	return nil
}

// collectPaths returns the documents of x holding a key that matches p.
// The caller holds the read section of x.
func collectPaths(ctx context.Context, x IndexQuery, p pattern.Pattern) (map[string]struct{}, error) {
	switch v := p.(type) {
	case *pattern.OrPattern:
		out := make(map[string]struct{})
		for _, sub := range v.Patterns {
			paths, err := collectPaths(ctx, x, sub)
			if err != nil {
				return nil, err
			}
			for path := range paths {
				out[path] = struct{}{}
			}
		}
		return out, nil
	case *pattern.AndPattern:
		var out map[string]struct{}
		for _, sub := range v.Patterns {
			paths, err := collectPaths(ctx, x, sub)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = paths
				continue
			}
			for path := range out {
				if _, ok := paths[path]; !ok {
					delete(out, path)
				}
			}
		}
		if out == nil {
			out = make(map[string]struct{})
		}
		return out, nil
	}

	out := make(map[string]struct{})
	categories := p.IndexCategories()
	if len(categories) == 0 {
		// not indexed: every document is a candidate
		for _, path := range x.Paths() {
			out[path] = struct{}{}
		}
		return out, nil
	}
	decoded := p.Blank()
	err := x.Scan(ctx, categories, p.IndexKey(), func(category index.Category, key string, paths []string) error {
		if !decoded.DecodeIndexKey(category, key) || !p.MatchesDecodedKey(decoded) {
			return nil
		}
		for _, path := range paths {
			out[path] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// documentRestriction returns the only document a pattern can match in, or
// "" when any document can.
func documentRestriction(p pattern.Pattern) string {
	switch v := p.(type) {
	case *pattern.DeclarationsOfPattern:
		return v.Enclosing.Path
	case *pattern.LocalVariablePattern:
		return v.Declaration.Path
	case *pattern.TypeParameterPattern:
		return v.Declaration.Path
	}
	return ""
}

// Candidate is a document selected by the index query.
type Candidate struct {
	Path      string
	Container string
}

// PathCollector gathers candidate documents from concurrent sub-scans.
type PathCollector struct {
	mu    sync.Mutex
	paths map[string]string
}

func NewPathCollector() *PathCollector {
	return &PathCollector{paths: make(map[string]string)}
}

// Add records path of container. The first container to report a path
// keeps it.
func (c *PathCollector) Add(container, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.paths[path]; !ok {
		c.paths[path] = container
	}
}

func (c *PathCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

// Candidates returns the collected documents sorted by path.
func (c *PathCollector) Candidates() []Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Candidate, 0, len(c.paths))
	for p, container := range c.paths {
		out = append(out, Candidate{Path: p, Container: container})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// IndexSelector picks the indexes a scope needs.
type IndexSelector struct {
	Manager *index.Manager
	Scope   scope.Scope
}

// Select returns the open indexes for a scope without explicit containers,
// and opens the named containers otherwise. Containers that fail to open
// are logged and skipped.
func (s IndexSelector) Select(ctx context.Context) ([]IndexQuery, error) {
	containers := s.Scope.Containers()
	if containers == nil {
		containers = s.Manager.Containers()
	}
	out := make([]IndexQuery, 0, len(containers))
	for _, c := range containers {
		if err := checkCanceled(ctx); err != nil {
			return nil, err
		}
		x, err := s.Manager.Index(ctx, c)
		if err != nil {
			if canceled(err) {
				return nil, checkCanceled(ctx)
			}
			log.Printf("search: cannot open index %s: %v", c, err)
			continue
		}
		out = append(out, x)
	}
	return out, nil
}
