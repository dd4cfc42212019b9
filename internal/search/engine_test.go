package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/internal/indexer"
	"github.com/dshills/javacontext-mcp/internal/parser"
	"github.com/dshills/javacontext-mcp/internal/search/pattern"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

const fieldsSource = `class A { int field1; }
class B extends A { String value; }
class X {
	void test() {
		B b = new B();
		System.out.println(b.value + b.field1);
	}
}
`

// setupTestEngine indexes files into a memory-only index of a temporary
// container. The pending writes are merged by the first search.
func setupTestEngine(t *testing.T, files map[string]string, jobs *JobManager, opts Options) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	}

	manager := index.NewManager(nil)
	stats, err := indexer.New(manager).IndexContainer(context.Background(), dir, &indexer.Config{
		Workers:      2,
		Include:      []string{"**/*.java"},
		IncludeTests: true,
	})
	require.NoError(t, err)
	require.Equal(t, len(files), stats.FilesIndexed)

	p := parser.New()
	t.Cleanup(p.Close)
	engine, err := NewEngine(manager, jobs, p, opts)
	require.NoError(t, err)

	container, err := indexer.ContainerName(dir)
	require.NoError(t, err)
	return engine, container
}

func testMethod(path string) types.Element {
	return types.Element{
		Kind:           types.ElementMethod,
		Name:           "test",
		DeclaringType:  "X",
		ParameterTypes: []string{},
		Path:           path,
		NameOffset:     -1,
		NameLength:     -1,
	}
}

func TestEngine_DeclarationsOfAccessedFields(t *testing.T) {
	engine, dir := setupTestEngine(t, map[string]string{"Test.java": fieldsSource}, nil, Options{})
	path := filepath.Join(dir, "Test.java")

	var c MatchCollector
	res, err := engine.SearchDeclarationsOfAccessedFields(context.Background(), testMethod(path), &c)
	require.NoError(t, err)
	assert.True(t, res.Complete)

	matches := c.Matches()
	require.Len(t, matches, 2)

	field1 := matches[0]
	assert.Equal(t, types.MatchFieldDeclaration, field1.Kind)
	assert.Equal(t, "field1", field1.Element.Name)
	assert.Equal(t, "A", field1.Element.DeclaringType)
	assert.Equal(t, types.AccuracyAccurate, field1.Accuracy)
	assert.Equal(t, strings.Index(fieldsSource, "field1"), field1.Offset)
	assert.Equal(t, len("field1"), field1.Length)
	assert.Equal(t, path, field1.Resource)

	value := matches[1]
	assert.Equal(t, types.MatchFieldDeclaration, value.Kind)
	assert.Equal(t, "value", value.Element.Name)
	assert.Equal(t, "B", value.Element.DeclaringType)
	assert.Equal(t, types.AccuracyAccurate, value.Accuracy)
	assert.Equal(t, strings.Index(fieldsSource, "value"), value.Offset)
}

func TestEngine_DeclarationsRequireAPath(t *testing.T) {
	engine, _ := setupTestEngine(t, map[string]string{"Test.java": fieldsSource}, nil, Options{})

	e := testMethod("")
	_, err := engine.SearchDeclarationsOfAccessedFields(context.Background(), e, &MatchCollector{})
	assert.ErrorIs(t, err, types.ErrMissingPath)

	e = testMethod("/x/Test.java")
	e.DeclaringType = ""
	_, err = engine.SearchDeclarationsOfSentMessages(context.Background(), e, &MatchCollector{})
	assert.ErrorIs(t, err, types.ErrInvalidElement)
}

func TestEngine_TypeDeclaration(t *testing.T) {
	engine, dir := setupTestEngine(t, map[string]string{"Test.java": fieldsSource}, nil, Options{})

	p := engine.CreatePattern("B", pattern.SearchType, pattern.Declarations, pattern.RuleCaseSensitive)
	require.NotNil(t, p)

	var c MatchCollector
	_, err := engine.Search(context.Background(), p, engine.CreateWorkspaceScope(), &c)
	require.NoError(t, err)

	matches := c.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, types.MatchTypeDeclaration, matches[0].Kind)
	assert.Equal(t, "B", matches[0].Element.Name)
	assert.Equal(t, filepath.Join(dir, "Test.java"), matches[0].Element.Path)
	assert.Equal(t, strings.Index(fieldsSource, "B extends"), matches[0].Offset)
	assert.Equal(t, types.AccuracyAccurate, matches[0].Accuracy)
}

func TestEngine_FieldReadReference(t *testing.T) {
	engine, _ := setupTestEngine(t, map[string]string{"Test.java": fieldsSource}, nil, Options{})

	p := engine.CreatePattern("value", pattern.SearchField, pattern.References, pattern.RuleCaseSensitive)
	require.NotNil(t, p)

	var c MatchCollector
	_, err := engine.Search(context.Background(), p, nil, &c)
	require.NoError(t, err)

	matches := c.Matches()
	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, types.MatchFieldReference, m.Kind)
	assert.Equal(t, strings.Index(fieldsSource, "b.value")+2, m.Offset)
	assert.True(t, m.IsReadAccess)
	assert.False(t, m.IsWriteAccess)
	// reported against the enclosing method
	assert.Equal(t, types.ElementMethod, m.Element.Kind)
	assert.Equal(t, "test", m.Element.Name)
}

func TestEngine_ImplementorsWithWorkingCopies(t *testing.T) {
	engine, dir := setupTestEngine(t, map[string]string{"Test.java": fieldsSource}, nil, Options{})
	implementors := engine.CreatePattern("A", pattern.SearchType, pattern.Implementors, pattern.RuleCaseSensitive)
	require.NotNil(t, implementors)

	var c MatchCollector
	_, err := engine.Search(context.Background(), implementors, nil, &c)
	require.NoError(t, err)
	matches := c.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, "B", matches[0].Element.Name)
	assert.Equal(t, strings.Index(fieldsSource, "extends A")+len("extends "), matches[0].Offset)

	// an unsaved new file is searched too
	added := WorkingCopy{Path: filepath.Join(dir, "C.java"), Contents: []byte("class C extends A {}\n")}
	c = MatchCollector{}
	_, err = engine.Search(context.Background(), implementors, nil, &c, added)
	require.NoError(t, err)
	matches = c.Matches()
	require.Len(t, matches, 2)
	assert.Equal(t, "C", matches[0].Element.Name)
	assert.Equal(t, added.Path, matches[0].Resource)
	assert.Equal(t, "B", matches[1].Element.Name)

	// an edit shadows the file on disk
	edited := WorkingCopy{
		Path:     filepath.Join(dir, "Test.java"),
		Contents: []byte(strings.Replace(fieldsSource, "class B extends A", "class B", 1)),
	}
	c = MatchCollector{}
	_, err = engine.Search(context.Background(), implementors, nil, &c, edited)
	require.NoError(t, err)
	assert.Empty(t, c.Matches())
}

func TestEngine_SearchAllTypeNames(t *testing.T) {
	engine, dir := setupTestEngine(t, map[string]string{"Test.java": fieldsSource}, nil, Options{})

	var names TypeNameCollector
	err := engine.SearchAllTypeNames(context.Background(), "", "A", pattern.RulePrefix|pattern.RuleCaseSensitive, "", nil, &names)
	require.NoError(t, err)
	require.Len(t, names.Names, 1)
	assert.Equal(t, "A", names.Names[0].QualifiedName())
	assert.Equal(t, byte(index.KindClass), names.Names[0].Kind)
	assert.Equal(t, filepath.Join(dir, "Test.java"), names.Names[0].Path)

	names = TypeNameCollector{}
	err = engine.SearchAllTypeNames(context.Background(), "", "", pattern.RuleCaseSensitive, "I", nil, &names)
	require.NoError(t, err)
	assert.Empty(t, names.Names)
}

func TestEngine_HierarchyScope(t *testing.T) {
	engine, dir := setupTestEngine(t, map[string]string{"Test.java": fieldsSource}, nil, Options{})

	h, err := engine.CreateHierarchyScope(context.Background(), types.Element{Kind: types.ElementType, Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, "A", h.Focus())
	assert.True(t, h.Contains("A"))
	assert.True(t, h.Contains("B"))
	assert.True(t, h.Contains("java.lang.Object"))
	assert.False(t, h.Contains("X"))
	assert.True(t, h.EnclosesPath(filepath.Join(dir, "Test.java")))

	_, err = engine.CreateHierarchyScope(context.Background(), types.Element{Kind: types.ElementType, Name: "Missing"})
	assert.ErrorIs(t, err, ErrTypeNotFound)
}

func TestEngine_CreateJavaSearchScope(t *testing.T) {
	engine, dir := setupTestEngine(t, map[string]string{"Test.java": fieldsSource, "sub/Y.java": "class Y {}\n"}, nil, Options{})

	s, err := engine.CreateJavaSearchScope([]string{dir}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, s.Containers())
	assert.True(t, s.EnclosesPath(filepath.Join(dir, "Test.java")))
	assert.False(t, s.EnclosesPath(filepath.Join(dir, "sub", "Y.java")))

	s, err = engine.CreateJavaSearchScope([]string{dir}, true)
	require.NoError(t, err)
	assert.True(t, s.EnclosesPath(filepath.Join(dir, "sub", "Y.java")))

	_, err = engine.CreateJavaSearchScope([]string{filepath.Join(filepath.Dir(dir), "elsewhere")}, true)
	assert.ErrorIs(t, err, ErrUnknownContainer)
}

func TestEngine_WaitPolicyAndCancellation(t *testing.T) {
	jobs := NewJobManager()
	jobs.Request(NewJob("reindex", func(context.Context) error { return nil }))
	engine, _ := setupTestEngine(t, map[string]string{"Test.java": fieldsSource}, jobs, Options{Policy: CancelIfNotReady})
	p := engine.CreatePattern("A", pattern.SearchType, pattern.Declarations, pattern.RuleCaseSensitive)

	_, err := engine.Search(context.Background(), p, nil, &MatchCollector{})
	assert.ErrorIs(t, err, ErrNotReady)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Search(ctx, p, nil, &MatchCollector{})
	assert.ErrorIs(t, err, ErrOperationCanceled)

	_, err = engine.Search(context.Background(), nil, nil, &MatchCollector{})
	assert.ErrorIs(t, err, ErrNilPattern)
}
