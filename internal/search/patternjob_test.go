package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/internal/search/pattern"
	"github.com/dshills/javacontext-mcp/internal/search/scope"
)

// fakeIndex records how a job uses the monitor around Merge and Scan.
type fakeIndex struct {
	container string
	mon       *index.ReadWriteMonitor
	keys      map[index.Category]map[string][]string
	scanErr   error

	mu                sync.Mutex
	pending           bool
	merges            int
	scans             int
	mergeOutsideWrite bool
	mergeAfterScan    bool
	scanUnderWrite    bool
	scanWithoutRead   bool
}

func newFakeIndex(container string, pending bool) *fakeIndex {
	return &fakeIndex{
		container: container,
		mon:       index.NewReadWriteMonitor(),
		pending:   pending,
		keys: map[index.Category]map[string][]string{
			index.CategoryTypeDecl: {
				index.TypeDeclKey{SimpleName: "A", Kind: index.KindClass}.Encode(): {"/w/A.java"},
				index.TypeDeclKey{SimpleName: "B", Kind: index.KindClass}.Encode(): {"/w/B.java"},
			},
		},
	}
}

func (f *fakeIndex) Container() string                 { return f.container }
func (f *fakeIndex) Monitor() *index.ReadWriteMonitor { return f.mon }

func (f *fakeIndex) HasPendingWrites() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func (f *fakeIndex) Merge(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merges++
	if !f.mon.Writing() {
		f.mergeOutsideWrite = true
	}
	if f.scans > 0 {
		f.mergeAfterScan = true
	}
	f.pending = false
	return nil
}

func (f *fakeIndex) Scan(ctx context.Context, categories []index.Category, prefix string, visit index.Visitor) error {
	f.mu.Lock()
	f.scans++
	if f.mon.Writing() {
		f.scanUnderWrite = true
	}
	if f.mon.Readers() == 0 {
		f.scanWithoutRead = true
	}
	f.mu.Unlock()
	if f.scanErr != nil {
		return f.scanErr
	}
	for _, c := range categories {
		keys := make([]string, 0, len(f.keys[c]))
		for k := range f.keys[c] {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := visit(c, k, f.keys[c][k]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *fakeIndex) Paths() []string { return []string{"/w/A.java", "/w/B.java"} }

func typeDeclA() pattern.Pattern {
	return pattern.NewTypeDeclarationPattern("", "A", "", pattern.RuleCaseSensitive)
}

func TestPatternSearchJob_MergesOnceBeforeScan(t *testing.T) {
	x := newFakeIndex("w", true)
	job := &PatternSearchJob{Pattern: typeDeclA(), Indexes: []IndexQuery{x}}

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 1, x.merges)
	assert.Positive(t, x.scans)
	assert.False(t, x.mergeOutsideWrite, "merge must run in the write section")
	assert.False(t, x.mergeAfterScan, "merge must precede every scan")
	assert.False(t, x.scanUnderWrite, "scan must not hold the write section")
	assert.False(t, x.scanWithoutRead, "scan must hold a read section")
	assert.False(t, x.mon.Writing())
	assert.Equal(t, 0, x.mon.Readers())

	assert.Equal(t, []Candidate{{Path: "/w/A.java", Container: "w"}}, job.Collector.Candidates())
	res := job.Result()
	assert.True(t, res.Complete)
	assert.Equal(t, 1, res.Scanned)
}

func TestPatternSearchJob_NoMergeWithoutPendingWrites(t *testing.T) {
	x := newFakeIndex("w", false)
	job := &PatternSearchJob{Pattern: typeDeclA(), Indexes: []IndexQuery{x}}

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0, x.merges)
	assert.Equal(t, 1, job.Collector.Len())
}

func TestPatternSearchJob_ConcurrentJobsMergeOnce(t *testing.T) {
	x := newFakeIndex("w", true)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := &PatternSearchJob{Pattern: typeDeclA(), Indexes: []IndexQuery{x}}
			errs[i] = job.Run(context.Background())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, x.merges)
	assert.False(t, x.mergeAfterScan)
	assert.False(t, x.scanUnderWrite)
}

func TestPatternSearchJob_FailedIndexMarksIncomplete(t *testing.T) {
	good := newFakeIndex("good", false)
	bad := newFakeIndex("bad", false)
	bad.scanErr = errors.New("disk on fire")

	job := &PatternSearchJob{Pattern: typeDeclA(), Indexes: []IndexQuery{good, bad}}
	require.NoError(t, job.Run(context.Background()))

	res := job.Result()
	assert.False(t, res.Complete)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "bad", res.Failures[0].Container)
	assert.Equal(t, []Candidate{{Path: "/w/A.java", Container: "good"}}, job.Collector.Candidates())
}

func TestPatternSearchJob_AllIndexesFailed(t *testing.T) {
	bad := newFakeIndex("bad", false)
	bad.scanErr = errors.New("disk on fire")

	job := &PatternSearchJob{Pattern: typeDeclA(), Indexes: []IndexQuery{bad}}
	err := job.Run(context.Background())
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.False(t, job.Result().Complete)
}

func TestPatternSearchJob_Canceled(t *testing.T) {
	x := newFakeIndex("w", true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &PatternSearchJob{Pattern: typeDeclA(), Indexes: []IndexQuery{x}}
	err := job.Run(ctx)
	assert.ErrorIs(t, err, ErrOperationCanceled)
	assert.Equal(t, 0, x.scans)
}

func TestPatternSearchJob_ScopeAndPatternComposition(t *testing.T) {
	x := newFakeIndex("w", false)
	either := pattern.NewOrPattern(
		typeDeclA(),
		pattern.NewTypeDeclarationPattern("", "B", "", pattern.RuleCaseSensitive),
	)

	job := &PatternSearchJob{Pattern: either, Indexes: []IndexQuery{x}}
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 2, job.Collector.Len())

	s := scope.NewJavaSearchScope()
	s.Add("w", "/w/B.java", false)
	job = &PatternSearchJob{Pattern: either, Scope: s, Indexes: []IndexQuery{x}}
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []Candidate{{Path: "/w/B.java", Container: "w"}}, job.Collector.Candidates())

	both := pattern.NewAndPattern(
		typeDeclA(),
		pattern.NewTypeDeclarationPattern("", "B", "", pattern.RuleCaseSensitive),
	)
	job = &PatternSearchJob{Pattern: both, Indexes: []IndexQuery{x}}
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0, job.Collector.Len())
}

func TestPathCollector_FirstContainerWins(t *testing.T) {
	c := NewPathCollector()
	c.Add("lib", "/x/B.java")
	c.Add("app", "/x/A.java")
	c.Add("other", "/x/B.java")

	assert.Equal(t, []Candidate{
		{Path: "/x/A.java", Container: "app"},
		{Path: "/x/B.java", Container: "lib"},
	}, c.Candidates())
}
