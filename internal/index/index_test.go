package index

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]Document
	failOn  string
	saves   int
	deletes int
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]map[string]Document)}
}

func (s *memStore) LoadDocuments(_ context.Context, container string) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Document
	for _, d := range s.docs[container] {
		out = append(out, d)
	}
	return out, nil
}

func (s *memStore) SaveDocument(_ context.Context, container string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.Path == s.failOn {
		return errors.New("disk full")
	}
	if s.docs[container] == nil {
		s.docs[container] = make(map[string]Document)
	}
	s.docs[container][doc.Path] = doc
	s.saves++
	return nil
}

func (s *memStore) DeleteDocument(_ context.Context, container, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[container], path)
	s.deletes++
	return nil
}

type hit struct {
	cat   Category
	key   string
	paths []string
}

func scanAll(t *testing.T, x *Index, cats []Category, prefix string) []hit {
	t.Helper()
	var hits []hit
	x.Monitor().EnterRead()
	defer x.Monitor().ExitRead()
	err := x.Scan(context.Background(), cats, prefix, func(c Category, k string, paths []string) error {
		hits = append(hits, hit{c, k, paths})
		return nil
	})
	require.NoError(t, err)
	return hits
}

func merge(t *testing.T, x *Index) error {
	t.Helper()
	x.Monitor().EnterWrite()
	defer x.Monitor().ExitWrite()
	return x.Merge(context.Background())
}

func TestIndex_PendingWritesInvisibleUntilMerge(t *testing.T) {
	x := New("proj", nil)
	x.Add(Document{Path: "A.java", Entries: []Entry{{CategoryFieldDecl, "field1"}}})

	assert.True(t, x.HasPendingWrites())
	assert.Empty(t, scanAll(t, x, AllCategories, ""))

	require.NoError(t, merge(t, x))
	assert.False(t, x.HasPendingWrites())
	assert.Equal(t, []hit{{CategoryFieldDecl, "field1", []string{"A.java"}}}, scanAll(t, x, AllCategories, ""))
}

func TestIndex_ReplaceAndRemove(t *testing.T) {
	x := New("proj", nil)
	x.Add(Document{Path: "A.java", Entries: []Entry{{CategoryRef, "foo"}, {CategoryRef, "bar"}}})
	x.Add(Document{Path: "B.java", Entries: []Entry{{CategoryRef, "foo"}}})
	require.NoError(t, merge(t, x))

	x.Add(Document{Path: "A.java", Entries: []Entry{{CategoryRef, "baz"}}})
	require.NoError(t, merge(t, x))
	assert.Equal(t, []hit{
		{CategoryRef, "baz", []string{"A.java"}},
		{CategoryRef, "foo", []string{"B.java"}},
	}, scanAll(t, x, []Category{CategoryRef}, ""))

	x.Remove("B.java")
	require.NoError(t, merge(t, x))
	assert.Equal(t, []hit{{CategoryRef, "baz", []string{"A.java"}}}, scanAll(t, x, []Category{CategoryRef}, ""))

	x.Monitor().EnterRead()
	assert.Equal(t, []string{"A.java"}, x.Paths())
	x.Monitor().ExitRead()
}

func TestIndex_ScanOrderAndPrefix(t *testing.T) {
	x := New("proj", nil)
	x.Add(Document{Path: "A.java", Entries: []Entry{
		{CategoryMethodDecl, MethodKey{"toString", 0}.Encode()},
		{CategoryMethodDecl, MethodKey{"test", 1}.Encode()},
		{CategoryFieldDecl, "total"},
	}})
	require.NoError(t, merge(t, x))

	hits := scanAll(t, x, []Category{CategoryFieldDecl, CategoryMethodDecl}, "t")
	require.Len(t, hits, 3)
	assert.Equal(t, CategoryFieldDecl, hits[0].cat)
	assert.Equal(t, "test/1", hits[1].key)
	assert.Equal(t, "toString/0", hits[2].key)

	hits = scanAll(t, x, []Category{CategoryMethodDecl}, "to")
	require.Len(t, hits, 1)
}

func TestIndex_ScanCanceled(t *testing.T) {
	x := New("proj", nil)
	x.Add(Document{Path: "A.java", Entries: []Entry{{CategoryRef, "a"}}})
	require.NoError(t, merge(t, x))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	x.Monitor().EnterRead()
	defer x.Monitor().ExitRead()
	err := x.Scan(ctx, AllCategories, "", func(Category, string, []string) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex_MergePersistsAndReloads(t *testing.T) {
	store := newMemStore()
	x := New("proj", store)
	x.Add(Document{Path: "A.java", Hash: 7, Entries: []Entry{{CategoryTypeDecl, "A/p//C"}}})
	x.Add(Document{Path: "B.java", Entries: []Entry{{CategoryTypeDecl, "B/p//C"}}})
	require.NoError(t, merge(t, x))
	assert.Equal(t, 2, store.saves)

	x.Remove("B.java")
	require.NoError(t, merge(t, x))
	assert.Equal(t, 1, store.deletes)

	m := NewManager(store)
	y, err := m.Index(context.Background(), "proj")
	require.NoError(t, err)
	assert.Equal(t, []hit{{CategoryTypeDecl, "A/p//C", []string{"A.java"}}}, scanAll(t, y, AllCategories, ""))

	y.Monitor().EnterRead()
	doc, ok := y.Document("A.java")
	y.Monitor().ExitRead()
	require.True(t, ok)
	assert.Equal(t, uint64(7), doc.Hash)
}

func TestIndex_MergeFailureKeepsPending(t *testing.T) {
	store := newMemStore()
	store.failOn = "B.java"
	x := New("proj", store)
	x.Add(Document{Path: "A.java", Entries: []Entry{{CategoryRef, "a"}}})
	x.Add(Document{Path: "B.java", Entries: []Entry{{CategoryRef, "b"}}})

	err := merge(t, x)
	require.Error(t, err)
	assert.True(t, x.HasPendingWrites())
	assert.Equal(t, 1, x.Stats().Pending)
	assert.Equal(t, []hit{{CategoryRef, "a", []string{"A.java"}}}, scanAll(t, x, AllCategories, ""))

	store.failOn = ""
	require.NoError(t, merge(t, x))
	assert.False(t, x.HasPendingWrites())
}

func TestManager(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()
	a, err := m.Index(ctx, "b-lib")
	require.NoError(t, err)
	again, err := m.Index(ctx, "b-lib")
	require.NoError(t, err)
	assert.Same(t, a, again)
	_, err = m.Index(ctx, "a-proj")
	require.NoError(t, err)

	assert.Equal(t, []string{"a-proj", "b-lib"}, m.Containers())
	assert.Len(t, m.Indexes([]string{"b-lib", "missing"}), 1)

	a.Add(Document{Path: "X.java"})
	require.NoError(t, m.MergeAll(ctx))
	assert.False(t, a.HasPendingWrites())

	m.Remove("b-lib")
	_, ok := m.Lookup("b-lib")
	assert.False(t, ok)
}

func TestReadWriteMonitor(t *testing.T) {
	m := NewReadWriteMonitor()
	m.EnterRead()
	m.EnterRead()
	assert.Equal(t, 2, m.Readers())
	assert.False(t, m.ExitReadEnterWrite(), "upgrade must fail with another reader")
	m.ExitRead()
	require.True(t, m.ExitReadEnterWrite())
	assert.True(t, m.Writing())

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		m.EnterRead()
		close(entered)
		<-release
		m.ExitRead()
		close(done)
	}()
	select {
	case <-entered:
		t.Fatal("reader entered during a write section")
	case <-time.After(20 * time.Millisecond):
	}

	m.ExitWriteEnterRead()
	<-entered
	assert.Equal(t, 2, m.Readers())
	close(release)
	<-done
	assert.Equal(t, 1, m.Readers())
	m.ExitRead()
	assert.Equal(t, 0, m.Readers())
	assert.False(t, m.Writing())

	assert.Panics(t, func() { m.ExitRead() })
}

func TestKeys_RoundTrip(t *testing.T) {
	td := TypeDeclKey{SimpleName: "Inner", Package: "p.q", EnclosingTypes: []string{"Outer", "Mid"}, Kind: KindInterface}
	got, ok := DecodeTypeDeclKey(td.Encode())
	require.True(t, ok)
	assert.Equal(t, td, got)

	sr := SuperRefKey{SuperSimpleName: "List", SuperQualification: "java.util", SimpleName: "MyList", Package: "p", SuperKind: KindInterface}
	gotSR, ok := DecodeSuperRefKey(sr.Encode())
	require.True(t, ok)
	assert.Equal(t, sr, gotSR)

	ck := ConstructorKey{TypeName: "B", ArgCount: 2, Package: "p"}
	gotCK, ok := DecodeConstructorKey(ck.Encode())
	require.True(t, ok)
	assert.Equal(t, ck, gotCK)

	mk, ok := DecodeMethodKey("println/1")
	require.True(t, ok)
	assert.Equal(t, MethodKey{"println", 1}, mk)

	_, ok = DecodeMethodKey("broken")
	assert.False(t, ok)
	_, ok = DecodeTypeDeclKey("a/b")
	assert.False(t, ok)
}
