package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/internal/parser"
)

func createTestFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func hasEntry(entries []index.Entry, c index.Category, key string) bool {
	for _, e := range entries {
		if e.Category == c && e.Key == key {
			return true
		}
	}
	return false
}

const shapeSource = `package geo;

import java.util.List;

/** Drawn by {@link Canvas}. */
public class Circle extends Shape implements Comparable {
	private double radius;

	Circle(double r) {
		super(r, 0);
		radius = r;
	}

	public double area(List scale) {
		helper(radius, 2);
		Runnable r = new Runnable() { public void run() {} };
		return new Point(1, 2).x;
	}

	static class Point {
		int x;
	}
}
`

func TestExtractSource(t *testing.T) {
	p := parser.New()
	defer p.Close()
	unit, err := p.Parse("Circle.java", []byte(shapeSource), parser.ModeFull)
	require.NoError(t, err)

	entries := ExtractSource(unit)

	tests := []struct {
		category index.Category
		key      string
	}{
		{index.CategoryTypeDecl, "Circle/geo//C"},
		{index.CategoryTypeDecl, "Point/geo/Circle/C"},
		{index.CategorySuperRef, "Shape//Circle/geo//C"},
		{index.CategorySuperRef, "Comparable//Circle/geo//I"},
		{index.CategoryFieldDecl, "radius"},
		{index.CategoryFieldDecl, "x"},
		{index.CategoryConstructorDecl, "Circle/1/geo"},
		{index.CategoryConstructorDecl, "Point/0/geo"},
		{index.CategoryMethodDecl, "area/1"},
		{index.CategoryMethodDecl, "run/0"},
		{index.CategoryMethodRef, "helper/2"},
		{index.CategoryConstructorRef, "Point/2/"},
		{index.CategoryConstructorRef, "Runnable/0/"},
		{index.CategoryConstructorRef, "Shape/2/"},
		{index.CategoryRef, "radius"},
		{index.CategoryRef, "List"},
		{index.CategoryRef, "java"},
		{index.CategoryRef, "util"},
		{index.CategoryRef, "Canvas"},
		{index.CategoryRef, "x"},
	}
	for _, tt := range tests {
		t.Run(string(tt.category)+":"+tt.key, func(t *testing.T) {
			assert.True(t, hasEntry(entries, tt.category, tt.key), "missing %s %s", tt.category, tt.key)
		})
	}

	// no primitive type references and no duplicates
	assert.False(t, hasEntry(entries, index.CategoryRef, "double"))
	seen := make(map[index.Entry]bool)
	for _, e := range entries {
		assert.False(t, seen[e], "duplicate %v", e)
		seen[e] = true
	}
}

func TestExtractSource_KeysDecode(t *testing.T) {
	p := parser.New()
	defer p.Close()
	unit, err := p.Parse("Circle.java", []byte(shapeSource), parser.ModeFull)
	require.NoError(t, err)

	for _, e := range ExtractSource(unit) {
		switch e.Category {
		case index.CategoryTypeDecl:
			k, ok := index.DecodeTypeDeclKey(e.Key)
			require.True(t, ok, e.Key)
			assert.Equal(t, e.Key, k.Encode())
		case index.CategorySuperRef:
			k, ok := index.DecodeSuperRefKey(e.Key)
			require.True(t, ok, e.Key)
			assert.Equal(t, e.Key, k.Encode())
		case index.CategoryMethodDecl, index.CategoryMethodRef:
			k, ok := index.DecodeMethodKey(e.Key)
			require.True(t, ok, e.Key)
			assert.Equal(t, e.Key, k.Encode())
		case index.CategoryConstructorDecl, index.CategoryConstructorRef:
			k, ok := index.DecodeConstructorKey(e.Key)
			require.True(t, ok, e.Key)
			assert.Equal(t, e.Key, k.Encode())
		}
	}
}

func TestExtractClassFile(t *testing.T) {
	cf := &classfile.ClassFile{
		Access:     classfile.AccPublic | classfile.AccSuper,
		Name:       "lib/Outer$Inner",
		Super:      "lib/Base",
		Interfaces: []string{"java/lang/Runnable"},
		Fields: []*classfile.Field{
			{Access: classfile.AccPrivate, Name: "count", Descriptor: "I"},
			{Access: classfile.AccSynthetic | classfile.AccFinal, Name: "this$0", Descriptor: "Llib/Outer;"},
		},
		Methods: []*classfile.Method{
			{Access: classfile.AccPublic, Name: "<init>", Descriptor: "(Llib/Outer;I)V"},
			{Access: classfile.AccPublic, Name: "run", Descriptor: "()V"},
			{Access: classfile.AccStatic, Name: "<clinit>", Descriptor: "()V"},
		},
	}
	entries := ExtractClassFile(cf)

	assert.True(t, hasEntry(entries, index.CategoryTypeDecl, "Inner/lib/Outer/C"))
	assert.True(t, hasEntry(entries, index.CategorySuperRef, "Base/lib/Inner/lib/Outer/C"))
	assert.True(t, hasEntry(entries, index.CategorySuperRef, "Runnable/java.lang/Inner/lib/Outer/I"))
	assert.True(t, hasEntry(entries, index.CategoryFieldDecl, "count"))
	assert.False(t, hasEntry(entries, index.CategoryFieldDecl, "this$0"))
	assert.True(t, hasEntry(entries, index.CategoryConstructorDecl, "Inner/2/lib"))
	assert.True(t, hasEntry(entries, index.CategoryMethodDecl, "run/0"))
	assert.False(t, hasEntry(entries, index.CategoryMethodDecl, "<clinit>/0"))

	anon := &classfile.ClassFile{Name: "lib/Outer$1", Super: "java/lang/Object"}
	assert.Empty(t, ExtractClassFile(anon))
}

func TestIndexContainer(t *testing.T) {
	root := t.TempDir()
	a := createTestFile(t, root, "src/main/java/p/A.java", "package p;\npublic class A { int f; }\n")
	createTestFile(t, root, "src/main/java/p/B.java", "package p;\nclass B extends A { void m() { f = 1; } }\n")
	createTestFile(t, root, "src/test/java/p/ATest.java", "package p;\nclass ATest {}\n")
	createTestFile(t, root, "README.md", "not java")
	createTestFile(t, root, ".git/objects/X.java", "class X {}")

	m := index.NewManager(nil)
	idx := New(m)
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.IncludeTests = false

	ctx := context.Background()
	stats, err := idx.IndexContainer(ctx, root, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesFailed)
	assert.Positive(t, stats.EntriesExtracted)

	container, err := ContainerName(root)
	require.NoError(t, err)
	x, ok := m.Lookup(container)
	require.True(t, ok)
	assert.True(t, x.HasPendingWrites())

	x.Monitor().EnterWrite()
	require.NoError(t, x.Merge(ctx))
	x.Monitor().ExitWrite()

	x.Monitor().EnterRead()
	paths := x.Paths()
	var supers []string
	err = x.Scan(ctx, []index.Category{index.CategorySuperRef}, "A/", func(_ index.Category, key string, _ []string) error {
		supers = append(supers, key)
		return nil
	})
	x.Monitor().ExitRead()
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	assert.Equal(t, []string{"A//B/p//C"}, supers)

	// second run skips unchanged files and removes deleted ones
	require.NoError(t, os.Remove(a))
	stats, err = idx.IndexContainer(ctx, root, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 1, stats.FilesRemoved)
}

func TestIndexContainer_IncludeTestsAndExclude(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "src/main/java/p/A.java", "package p;\nclass A {}\n")
	createTestFile(t, root, "src/test/java/p/ATest.java", "package p;\nclass ATest {}\n")
	createTestFile(t, root, "build/gen/G.java", "class G {}\n")

	cfg := DefaultConfig()
	cfg.Exclude = append(cfg.Exclude, "build/**")

	stats, err := New(index.NewManager(nil)).IndexContainer(context.Background(), root, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesIndexed)
}

func TestIndexContainer_ClassFiles(t *testing.T) {
	root := t.TempDir()
	data, err := classfile.Write(&classfile.ClassFile{
		Access: classfile.AccPublic | classfile.AccSuper,
		Name:   "lib/Util",
		Super:  "java/lang/Object",
		Methods: []*classfile.Method{
			{Access: classfile.AccPublic | classfile.AccStatic | classfile.AccNative, Name: "twice", Descriptor: "(I)I"},
		},
	})
	require.NoError(t, err)
	createTestFile(t, root, "lib/Util.class", string(data))
	createTestFile(t, root, "lib/Broken.class", "not a class")

	m := index.NewManager(nil)
	stats, err := New(m).IndexContainer(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesFailed)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "Broken.class")
}

func TestIndexContainer_InProgress(t *testing.T) {
	idx := New(index.NewManager(nil))
	busy := t.TempDir()
	name, err := ContainerName(busy)
	require.NoError(t, err)
	require.True(t, idx.locks.tryLock(name))
	defer idx.locks.unlock(name)

	_, err = idx.IndexContainer(context.Background(), busy, nil)
	assert.ErrorIs(t, err, ErrIndexingInProgress)

	// other containers are not blocked
	other := t.TempDir()
	createTestFile(t, other, "A.java", "class A {}\n")
	stats, err := idx.IndexContainer(context.Background(), other, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
}

func TestIndexContainer_Canceled(t *testing.T) {
	root := t.TempDir()
	for _, n := range []string{"A", "B", "C", "D"} {
		createTestFile(t, root, n+".java", "class "+n+" {}\n")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(index.NewManager(nil)).IndexContainer(ctx, root, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexPaths(t *testing.T) {
	root := t.TempDir()
	a := createTestFile(t, root, "A.java", "class A {}\n")
	m := index.NewManager(nil)
	idx := New(m)
	ctx := context.Background()
	container, err := ContainerName(root)
	require.NoError(t, err)

	stats, err := idx.IndexPaths(ctx, container, []string{a, filepath.Join(root, "Gone.java")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesRemoved)
}
