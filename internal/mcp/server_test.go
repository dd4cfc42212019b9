package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/javacontext-mcp/internal/config"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

const outerSource = `package p;

public class Outer {
	private int secret = 5;
	public int count = 21;

	int twice(int v) { return v * 2; }

	void touch() { count = secret + 1; }
}
`

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DBPath = t.TempDir()
	s, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "src", "p", "Outer.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(outerSource), 0644))
	return dir
}

func call(t *testing.T, h handler, args map[string]interface{}) (map[string]interface{}, error) {
	t.Helper()
	result, err := h(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	})
	if err != nil {
		return nil, err
	}
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, nil
}

func mustCall(t *testing.T, h handler, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	out, err := call(t, h, args)
	require.NoError(t, err)
	return out
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code, mcpErr.Message)
}

// indexProject indexes a fixture project and merges its pending writes so
// new evaluation sessions can resolve its types.
func indexProject(t *testing.T, s *Server) string {
	t.Helper()
	dir := writeProject(t)
	out := mustCall(t, s.handleIndexProject, map[string]interface{}{"path": dir})
	assert.Equal(t, true, out["indexed"])
	assert.EqualValues(t, 1, out["files_indexed"])
	require.NoError(t, s.manager.MergeAll(context.Background()))
	return dir
}

func TestServer_Initialization(t *testing.T) {
	s := newTestServer(t)
	assert.NotNil(t, s.mcp, "MCP server should be initialized")
	assert.NotNil(t, s.storage, "Storage should be initialized")
	assert.NotNil(t, s.indexer, "Indexer should be initialized")
	assert.NotNil(t, s.engine, "Search engine should be initialized")
	assert.Empty(t, s.manager.Containers())
}

func TestServer_ReopensIndexedContainers(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DBPath = t.TempDir()

	first, err := NewServer(cfg)
	require.NoError(t, err)
	dir := indexProject(t, first)
	first.Close()

	second, err := NewServer(cfg)
	require.NoError(t, err)
	defer second.Close()
	assert.Len(t, second.manager.Containers(), 1)

	out := mustCall(t, second.handleSearch, map[string]interface{}{"pattern": "p.Outer"})
	matches := out["matches"].([]interface{})
	require.Len(t, matches, 1)
	assert.Equal(t, filepath.Join(dir, "src", "p", "Outer.java"), matches[0].(map[string]interface{})["path"])
}

func TestIndexProject_InvalidParams(t *testing.T) {
	s := newTestServer(t)

	_, err := call(t, s.handleIndexProject, map[string]interface{}{})
	requireCode(t, err, ErrorCodeInvalidParams)

	_, err = call(t, s.handleIndexProject, map[string]interface{}{"path": "relative/dir"})
	requireCode(t, err, ErrorCodeInvalidParams)

	_, err = call(t, s.handleIndexProject, map[string]interface{}{"path": t.TempDir()})
	requireCode(t, err, ErrorCodeProjectNotFound)

	_, err = call(t, s.handleIndexProject, map[string]interface{}{"path": writeProject(t), "exclude": []interface{}{"[abc"}})
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestIndexProject_Exclude(t *testing.T) {
	s := newTestServer(t)
	out := mustCall(t, s.handleIndexProject, map[string]interface{}{
		"path":    writeProject(t),
		"exclude": []interface{}{"src/p/**"},
	})
	assert.EqualValues(t, 0, out["files_indexed"])
}

func TestSearch(t *testing.T) {
	s := newTestServer(t)
	dir := indexProject(t, s)
	file := filepath.Join(dir, "src", "p", "Outer.java")

	t.Run("type declaration", func(t *testing.T) {
		out := mustCall(t, s.handleSearch, map[string]interface{}{"pattern": "Outer"})
		assert.Equal(t, true, out["complete"])
		matches := out["matches"].([]interface{})
		require.Len(t, matches, 1)
		m := matches[0].(map[string]interface{})
		assert.Equal(t, "type_declaration", m["kind"])
		assert.Equal(t, "ACCURATE", m["accuracy"])
		assert.Equal(t, file, m["path"])
	})

	t.Run("field write reference", func(t *testing.T) {
		out := mustCall(t, s.handleSearch, map[string]interface{}{
			"pattern":    "count",
			"search_for": "field",
			"limit_to":   "write_accesses",
		})
		matches := out["matches"].([]interface{})
		require.Len(t, matches, 1)
		m := matches[0].(map[string]interface{})
		assert.Equal(t, "field_reference", m["kind"])
		assert.Equal(t, true, m["write"])
	})

	t.Run("prefix rule and limit", func(t *testing.T) {
		out := mustCall(t, s.handleSearch, map[string]interface{}{
			"pattern":    "t",
			"search_for": "method",
			"match_rule": "PREFIX|CASE_SENSITIVE",
			"limit":      float64(1),
		})
		assert.EqualValues(t, 2, out["total"])
		assert.Len(t, out["matches"].([]interface{}), 1)
	})

	t.Run("scope outside the workspace", func(t *testing.T) {
		_, err := call(t, s.handleSearch, map[string]interface{}{
			"pattern": "Outer",
			"scope":   []interface{}{t.TempDir()},
		})
		requireCode(t, err, ErrorCodeNotIndexed)
	})
}

func TestSearch_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing pattern", map[string]interface{}{}, ErrorCodeEmptyQuery},
		{"blank pattern", map[string]interface{}{"pattern": "  "}, ErrorCodeEmptyQuery},
		{"bad search_for", map[string]interface{}{"pattern": "A", "search_for": "module"}, ErrorCodeInvalidParams},
		{"bad limit_to", map[string]interface{}{"pattern": "A", "limit_to": "everything"}, ErrorCodeInvalidParams},
		{"bad match_rule", map[string]interface{}{"pattern": "A", "match_rule": "fuzzy"}, ErrorCodeInvalidParams},
		{"regexp with prefix", map[string]interface{}{"pattern": "A", "match_rule": "REGEXP|PREFIX"}, ErrorCodeInvalidParams},
		{"limit too large", map[string]interface{}{"pattern": "A", "limit": float64(5000)}, ErrorCodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, s.handleSearch, tt.args)
			requireCode(t, err, tt.code)
		})
	}
}

func TestSearchAccessedFields(t *testing.T) {
	s := newTestServer(t)
	dir := indexProject(t, s)
	file := filepath.Join(dir, "src", "p", "Outer.java")

	out := mustCall(t, s.handleSearchAccessedFields, map[string]interface{}{
		"path":   file,
		"type":   "p.Outer",
		"method": "touch",
	})
	matches := out["matches"].([]interface{})
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, "field_declaration", m.(map[string]interface{})["kind"])
	}

	_, err := call(t, s.handleSearchAccessedFields, map[string]interface{}{"path": file, "type": "p.Outer", "declarations_of": "everything"})
	requireCode(t, err, ErrorCodeInvalidParams)

	_, err = call(t, s.handleSearchAccessedFields, map[string]interface{}{"path": "Outer.java", "type": "p.Outer"})
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestEnclosingElement(t *testing.T) {
	typ := enclosingElement("/src/Outer.java", "p.Outer", "", nil)
	assert.Equal(t, "p.Outer", typ.QualifiedName())
	require.NoError(t, typ.Validate())

	m := enclosingElement("/src/Outer.java", "p.Outer", "twice", []string{"int"})
	assert.Equal(t, "p.Outer.twice(int)", m.Signature())
	assert.Equal(t, -1, m.NameOffset)
	require.NoError(t, m.Validate())

	none := enclosingElement("/src/Outer.java", "p.Outer", "touch", nil)
	assert.NotNil(t, none.ParameterTypes)
}

func TestEvaluateSnippet_Sessions(t *testing.T) {
	s := newTestServer(t)
	indexProject(t, s)

	out := mustCall(t, s.handleEvaluateSnippet, map[string]interface{}{
		"snippet":        "return secret * 2;",
		"declaring_type": "p.Outer",
		"disassemble":    true,
	})
	require.Equal(t, true, out["succeeded"], "problems: %v", out["problems"])
	assert.Equal(t, true, out["has_result"])
	id, _ := out["session_id"].(string)
	require.NotEmpty(t, id)
	classes := out["class_files"].([]interface{})
	require.NotEmpty(t, classes)
	assert.Contains(t, classes[0].(map[string]interface{})["disassembly"], "getDeclaredField")

	out = mustCall(t, s.handleEvaluateSnippet, map[string]interface{}{
		"session_id": id,
		"snippet":    "return total + 1;",
		"variables": []interface{}{
			map[string]interface{}{"name": "total", "type": "int", "initializer": "3"},
		},
	})
	assert.Equal(t, id, out["session_id"])
	vars := out["variables"].(map[string]interface{})
	assert.Equal(t, true, vars["succeeded"], "problems: %v", vars["problems"])
	assert.Equal(t, true, out["succeeded"], "problems: %v", out["problems"])

	status := mustCall(t, s.handleGetStatus, map[string]interface{}{})
	assert.EqualValues(t, 1, status["open_sessions"])

	closed := mustCall(t, s.handleCloseSession, map[string]interface{}{"session_id": id})
	assert.Equal(t, true, closed["closed"])

	_, err := call(t, s.handleCloseSession, map[string]interface{}{"session_id": id})
	requireCode(t, err, ErrorCodeUnknownSession)
	_, err = call(t, s.handleEvaluateSnippet, map[string]interface{}{"session_id": id, "snippet": "1"})
	requireCode(t, err, ErrorCodeUnknownSession)
}

func TestEvaluateSnippet_Problems(t *testing.T) {
	s := newTestServer(t)
	indexProject(t, s)

	out := mustCall(t, s.handleEvaluateSnippet, map[string]interface{}{
		"snippet":        "return countr;",
		"declaring_type": "p.Outer",
	})
	assert.Equal(t, false, out["succeeded"])
	assert.Empty(t, out["class_files"])
	problems := out["problems"].([]interface{})
	require.NotEmpty(t, problems)
	p := problems[0].(map[string]interface{})
	assert.Equal(t, "code_snippet", p["fragment"])
	assert.Equal(t, "count", p["suggestion"])
	assert.EqualValues(t, 7, p["start"])

	_, err := call(t, s.handleEvaluateSnippet, map[string]interface{}{"snippet": " "})
	requireCode(t, err, ErrorCodeEmptyQuery)

	_, err = call(t, s.handleEvaluateSnippet, map[string]interface{}{
		"snippet": "1",
		"locals":  []interface{}{map[string]interface{}{"name": "x"}},
	})
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestEvaluateSnippet_FinalLocals(t *testing.T) {
	s := newTestServer(t)
	indexProject(t, s)

	out := mustCall(t, s.handleEvaluateSnippet, map[string]interface{}{
		"snippet": "x = 2;",
		"locals":  []interface{}{map[string]interface{}{"name": "x", "type": "int"}},
	})
	assert.Equal(t, true, out["succeeded"], "problems: %v", out["problems"])

	out = mustCall(t, s.handleEvaluateSnippet, map[string]interface{}{
		"snippet": "x = 2;",
		"locals":  []interface{}{map[string]interface{}{"name": "x", "type": "int", "final": true}},
	})
	assert.Equal(t, false, out["succeeded"])
	problems := out["problems"].([]interface{})
	require.Len(t, problems, 1)
	assert.Equal(t, string(types.ProblemInvalidLeftHandSide), problems[0].(map[string]interface{})["id"])
}

func TestGetStatus(t *testing.T) {
	s := newTestServer(t)

	out := mustCall(t, s.handleGetStatus, map[string]interface{}{"path": t.TempDir()})
	assert.Equal(t, false, out["indexed"])

	dir := indexProject(t, s)
	out = mustCall(t, s.handleGetStatus, map[string]interface{}{"path": dir})
	assert.Equal(t, true, out["indexed"])
	projects := out["projects"].([]interface{})
	require.Len(t, projects, 1)
	project := projects[0].(map[string]interface{})
	stats := project["statistics"].(map[string]interface{})
	assert.EqualValues(t, 1, stats["documents_count"])
	idx := project["index"].(map[string]interface{})
	assert.EqualValues(t, 0, idx["pending_writes"])

	all := mustCall(t, s.handleGetStatus, map[string]interface{}{})
	assert.Len(t, all["projects"].([]interface{}), 1)
}

func TestServer_StartAndCloseLeaveNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := config.Default()
	cfg.Storage.DBPath = t.TempDir()
	cfg.Indexer.Watch = true
	s, err := NewServer(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	indexProject(t, s)
	s.mu.Lock()
	assert.Len(t, s.watchers, 1)
	s.mu.Unlock()

	s.Close()
	s.Close()
}

func TestValidatePath(t *testing.T) {
	assert.ErrorIs(t, validatePath(""), ErrPathRequired)
	assert.ErrorIs(t, validatePath("rel"), ErrPathNotAbsolute)
	assert.ErrorIs(t, validatePath(filepath.Join(t.TempDir(), "absent")), ErrPathNotFound)

	file := filepath.Join(t.TempDir(), "A.java")
	require.NoError(t, os.WriteFile(file, []byte("class A {}"), 0644))
	assert.ErrorIs(t, validatePath(file), ErrNotDirectory)
	assert.NoError(t, validatePath(filepath.Dir(file)))
}
