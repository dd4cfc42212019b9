package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/eval"
	"github.com/dshills/javacontext-mcp/internal/indexer"
	"github.com/dshills/javacontext-mcp/internal/search"
	"github.com/dshills/javacontext-mcp/internal/search/pattern"
	"github.com/dshills/javacontext-mcp/internal/search/scope"
	"github.com/dshills/javacontext-mcp/internal/storage"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // Specified path does not contain a Java project
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Project not indexed
	ErrorCodeEmptyQuery         = -32004 // Pattern or snippet parameter is empty
	ErrorCodeNotReady           = -32005 // Background indexing jobs are still queued
	ErrorCodeUnknownSession     = -32006 // Evaluation session does not exist
)

// maxReportedErrors bounds the per-file error messages of an index response
const maxReportedErrors = 5

// handleIndexProject handles the index_project tool invocation
func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, ErrNoJavaFiles) {
			code = ErrorCodeProjectNotFound
		}
		return nil, newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	cfg := s.cfg.IndexerConfig()
	cfg.IncludeTests = getBoolDefault(args, "include_tests", cfg.IncludeTests)
	for _, p := range getStringSlice(args, "exclude") {
		if !doublestar.ValidatePattern(p) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid exclude pattern", map[string]interface{}{
				"param": "exclude",
				"value": p,
			})
		}
		cfg.Exclude = append(cfg.Exclude, p)
	}

	stats, err := s.indexer.IndexContainer(ctx, path, cfg)
	if errors.Is(err, indexer.ErrIndexingInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.scheduleMerge(stats.Container)
	if s.cfg.Indexer.Watch {
		s.watch(stats.Container)
	}

	response := map[string]interface{}{
		"indexed":           true,
		"container":         stats.Container,
		"files_indexed":     stats.FilesIndexed,
		"files_skipped":     stats.FilesSkipped,
		"files_failed":      stats.FilesFailed,
		"files_removed":     stats.FilesRemoved,
		"entries_extracted": stats.EntriesExtracted,
		"duration_ms":       stats.Duration.Milliseconds(),
	}
	if n := len(stats.ErrorMessages); n > 0 {
		if n > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = n
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["pattern"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "pattern parameter is required and cannot be empty", map[string]interface{}{
			"param":  "pattern",
			"reason": "missing or empty",
		})
	}

	searchFor, ok := pattern.ParseSearchFor(getStringDefault(args, "search_for", "type"))
	if !ok {
		return nil, invalidEnum("search_for", args["search_for"])
	}
	limitTo, ok := pattern.ParseLimitTo(getStringDefault(args, "limit_to", "declarations"))
	if !ok {
		return nil, invalidEnum("limit_to", args["limit_to"])
	}
	rule, err := pattern.ParseMatchRule(getStringDefault(args, "match_rule", "EXACT|CASE_SENSITIVE"))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid match_rule", map[string]interface{}{
			"param":  "match_rule",
			"reason": err.Error(),
		})
	}
	limit := getIntDefault(args, "limit", 100)
	if limit < 1 || limit > 1000 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 1000", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	p := s.engine.CreatePattern(text, searchFor, limitTo, rule)
	if p == nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "malformed pattern", map[string]interface{}{
			"param":      "pattern",
			"value":      text,
			"search_for": searchFor.String(),
			"match_rule": rule.String(),
		})
	}

	var sc scope.Scope
	if paths := getStringSlice(args, "scope"); len(paths) > 0 {
		js, err := s.engine.CreateJavaSearchScope(paths, true)
		if err != nil {
			return nil, newMCPError(ErrorCodeNotIndexed, "scope is outside the indexed projects", map[string]interface{}{
				"param":  "scope",
				"reason": err.Error(),
			})
		}
		sc = js
	}

	var collector search.MatchCollector
	res, err := s.engine.Search(ctx, p, sc, &collector)
	if err != nil {
		return nil, searchError(err)
	}
	return mcp.NewToolResultText(formatJSON(matchesResponse(p.String(), collector.Matches(), res, limit, getBoolDefault(args, "accurate_only", false)))), nil
}

// handleSearchAccessedFields handles the search_accessed_fields tool invocation
func (s *Server) handleSearchAccessedFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" || !filepath.IsAbs(path) {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter must be an absolute file path", map[string]interface{}{
			"param":  "path",
			"reason": "missing, empty or relative",
		})
	}
	typeName, ok := args["type"].(string)
	if !ok || typeName == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "type parameter is required", map[string]interface{}{
			"param":  "type",
			"reason": "missing or empty",
		})
	}

	enclosing := enclosingElement(filepath.Clean(path), typeName, getStringDefault(args, "method", ""), getStringSlice(args, "parameter_types"))

	var collector search.MatchCollector
	var res search.JobResult
	var err error
	switch what := getStringDefault(args, "declarations_of", "accessed_fields"); what {
	case "accessed_fields":
		res, err = s.engine.SearchDeclarationsOfAccessedFields(ctx, enclosing, &collector)
	case "referenced_types":
		res, err = s.engine.SearchDeclarationsOfReferencedTypes(ctx, enclosing, &collector)
	case "sent_messages":
		res, err = s.engine.SearchDeclarationsOfSentMessages(ctx, enclosing, &collector)
	default:
		return nil, invalidEnum("declarations_of", what)
	}
	if errors.Is(err, types.ErrInvalidElement) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid enclosing element", map[string]interface{}{
			"element": enclosing.String(),
		})
	}
	if err != nil {
		return nil, searchError(err)
	}
	return mcp.NewToolResultText(formatJSON(matchesResponse(enclosing.Signature(), collector.Matches(), res, len(collector.Matches()), false))), nil
}

// enclosingElement builds the handle of a method, or of a type when method
// is empty. The name offset is unknown, so the declaration is found by name.
func enclosingElement(path, typeName, method string, params []string) types.Element {
	if method == "" {
		qual, simple := "", typeName
		if i := strings.LastIndex(typeName, "."); i >= 0 {
			qual, simple = typeName[:i], typeName[i+1:]
		}
		return types.Element{Kind: types.ElementType, Name: simple, Package: qual, Path: path, NameOffset: -1, NameLength: -1}
	}
	if params == nil {
		params = []string{}
	}
	return types.Element{
		Kind:           types.ElementMethod,
		Name:           method,
		DeclaringType:  typeName,
		ParameterTypes: params,
		Path:           path,
		NameOffset:     -1,
		NameLength:     -1,
	}
}

// handleEvaluateSnippet handles the evaluate_snippet tool invocation
func (s *Server) handleEvaluateSnippet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	snippet, ok := args["snippet"].(string)
	if !ok || strings.TrimSpace(snippet) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "snippet parameter is required and cannot be empty", map[string]interface{}{
			"param":  "snippet",
			"reason": "missing or empty",
		})
	}
	capture := eval.Capture{
		DeclaringType: getStringDefault(args, "declaring_type", ""),
		Static:        getBoolDefault(args, "static", false),
	}
	for _, l := range getObjectSlice(args, "locals") {
		name, _ := l["name"].(string)
		typeName, _ := l["type"].(string)
		if name == "" || typeName == "" {
			return nil, newMCPError(ErrorCodeInvalidParams, "every local needs a name and a type", map[string]interface{}{
				"param": "locals",
				"value": l,
			})
		}
		capture.Locals = append(capture.Locals, eval.LocalVariable{
			Name:     name,
			TypeName: typeName,
			Final:    getBoolDefault(l, "final", false),
		})
	}

	var sess *session
	var err error
	if id := getStringDefault(args, "session_id", ""); id != "" {
		sess, err = s.session(id)
		if err != nil {
			return nil, newMCPError(ErrorCodeUnknownSession, "unknown session", map[string]interface{}{
				"session_id": id,
			})
		}
	} else {
		sess, err = s.newSession(ctx, capture.DeclaringType)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to create evaluation session", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	ec := sess.context

	if imports, ok := args["imports"]; ok && imports != nil {
		ec.SetImports(getStringSlice(args, "imports"))
	}
	if pkg, ok := args["package"].(string); ok {
		if err := ec.SetPackageName(pkg); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid package", map[string]interface{}{
				"param":  "package",
				"reason": err.Error(),
			})
		}
	}

	disassemble := getBoolDefault(args, "disassemble", false)
	response := map[string]interface{}{"session_id": sess.id}

	if vars := getObjectSlice(args, "variables"); len(vars) > 0 {
		for _, v := range vars {
			name, _ := v["name"].(string)
			typeName, _ := v["type"].(string)
			init, _ := v["initializer"].(string)
			if _, err := ec.NewVariable(typeName, name, init); err != nil {
				return nil, newMCPError(ErrorCodeInvalidParams, "invalid variable", map[string]interface{}{
					"param":  "variables",
					"reason": err.Error(),
				})
			}
		}
		out, err := ec.EvaluateVariables()
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "variable evaluation failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if out.Succeeded() {
			ec.InstallClassFiles(out.ClassFiles)
		}
		response["variables"] = outcomeJSON(out, disassemble)
		if !out.Succeeded() {
			return mcp.NewToolResultText(formatJSON(response)), nil
		}
	}

	out, err := ec.Evaluate(snippet, capture)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "evaluation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	for k, v := range outcomeJSON(out, disassemble) {
		response[k] = v
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCloseSession handles the close_session tool invocation
func (s *Server) handleCloseSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	id, ok := args["session_id"].(string)
	if !ok || id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "session_id parameter is required", map[string]interface{}{
			"param":  "session_id",
			"reason": "missing or empty",
		})
	}
	err := s.closeSession(ctx, id)
	if errors.Is(err, ErrUnknownSession) {
		return nil, newMCPError(ErrorCodeUnknownSession, "unknown session", map[string]interface{}{
			"session_id": id,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to close session", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"closed": true, "session_id": id})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	var containers []*storage.Container
	if path := getStringDefault(args, "path", ""); path != "" {
		name, err := indexer.ContainerName(path)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
				"param":  "path",
				"reason": err.Error(),
			})
		}
		c, err := s.storage.GetContainer(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			if _, open := s.manager.Lookup(name); !open {
				return mcp.NewToolResultText(formatJSON(map[string]interface{}{
					"indexed": false,
					"path":    path,
					"message": "Project not indexed. Use index_project tool to index this project.",
				})), nil
			}
			// indexed but not merged yet
			c = &storage.Container{Name: name, RootPath: name}
		} else if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to get project status", map[string]interface{}{
				"error": err.Error(),
			})
		}
		containers = append(containers, c)
	} else {
		all, err := s.storage.ListContainers(ctx)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to list projects", map[string]interface{}{
				"error": err.Error(),
			})
		}
		containers = all
	}

	projects := make([]map[string]interface{}, 0, len(containers))
	for _, c := range containers {
		p, err := s.containerStatus(ctx, c)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
				"error": err.Error(),
			})
		}
		projects = append(projects, p)
	}

	sessions, err := s.storage.ListSessions(ctx, true)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list sessions", map[string]interface{}{
			"error": err.Error(),
		})
	}
	response := map[string]interface{}{
		"indexed":       len(projects) > 0,
		"projects":      projects,
		"pending_jobs":  s.jobs.AwaitingJobs(),
		"open_sessions": len(sessions),
		"build_mode":    storage.BuildMode,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) containerStatus(ctx context.Context, c *storage.Container) (map[string]interface{}, error) {
	project := map[string]interface{}{
		"path": c.RootPath,
		"kind": c.Kind,
	}
	if !c.LastIndexedAt.IsZero() {
		project["last_indexed_at"] = c.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if x, ok := s.manager.Lookup(c.Name); ok {
		st := x.Stats()
		project["index"] = map[string]interface{}{
			"documents":      st.Documents,
			"keys":           st.Keys,
			"pending_writes": st.Pending,
		}
	}
	if c.ID == 0 {
		return project, nil
	}
	status, err := s.storage.GetStatus(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	project["statistics"] = map[string]interface{}{
		"documents_count": status.DocumentsCount,
		"entries_count":   status.EntriesCount,
		"parse_errors":    status.ParseErrors,
		"index_size_mb":   fmt.Sprintf("%.2f", status.IndexSizeMB),
	}
	project["health"] = map[string]interface{}{
		"database_accessible": status.Health.DatabaseAccessible,
		"entries_indexed":     status.Health.EntriesIndexed,
	}
	return project, nil
}

// Helper functions

func matchesResponse(query string, matches []types.SearchMatch, res search.JobResult, limit int, accurateOnly bool) map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(matches))
	for _, m := range matches {
		if accurateOnly && !m.IsAccurate() {
			continue
		}
		out = append(out, matchJSON(m))
	}
	total := len(out)
	if len(out) > limit {
		out = out[:limit]
	}
	response := map[string]interface{}{
		"query":    query,
		"matches":  out,
		"total":    total,
		"complete": res.Complete,
	}
	if len(res.Failures) > 0 {
		failures := make([]string, len(res.Failures))
		for i, f := range res.Failures {
			failures[i] = fmt.Sprintf("%s: %v", f.Container, f.Err)
		}
		response["failures"] = failures
	}
	return response
}

func matchJSON(m types.SearchMatch) map[string]interface{} {
	out := map[string]interface{}{
		"kind":     string(m.Kind),
		"element":  m.Element.String(),
		"accuracy": m.Accuracy.String(),
		"path":     m.Resource,
		"offset":   m.Offset,
		"length":   m.Length,
	}
	if m.InsideDocComment {
		out["inside_doc_comment"] = true
	}
	if m.IsReadAccess || m.IsWriteAccess {
		out["read"] = m.IsReadAccess
		out["write"] = m.IsWriteAccess
	}
	return out
}

func outcomeJSON(out *eval.Outcome, disassemble bool) map[string]interface{} {
	problems := make([]map[string]interface{}, 0)
	for _, r := range out.Results {
		for _, p := range r.Problems {
			pj := map[string]interface{}{
				"id":       string(p.ID),
				"message":  p.Message,
				"error":    p.IsError(),
				"fragment": r.Type.String(),
				"start":    p.Start,
				"end":      p.End,
				"line":     p.Line,
			}
			if r.Type != eval.EvalInternal {
				pj["source"] = r.ID
			}
			if p.Suggestion != "" {
				pj["suggestion"] = p.Suggestion
			}
			problems = append(problems, pj)
		}
	}
	classes := make([]map[string]interface{}, 0, len(out.ClassFiles))
	for _, c := range out.ClassFiles {
		cj := map[string]interface{}{
			"name":  c.Name,
			"size":  len(c.Bytes),
			"bytes": base64.StdEncoding.EncodeToString(c.Bytes),
		}
		if disassemble {
			if cf, err := classfile.Parse(c.Bytes); err == nil {
				cj["disassembly"] = classfile.Disassemble(cf)
			}
		}
		classes = append(classes, cj)
	}
	return map[string]interface{}{
		"class_name":  out.ClassName,
		"succeeded":   out.Succeeded(),
		"has_result":  out.HasResult,
		"problems":    problems,
		"class_files": classes,
	}
}

func searchError(err error) error {
	switch {
	case errors.Is(err, search.ErrNotReady):
		return newMCPError(ErrorCodeNotReady, "indexes are not ready", map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, search.ErrOperationCanceled):
		return newMCPError(ErrorCodeInternalError, "search canceled", nil)
	default:
		return newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func invalidEnum(param string, value interface{}) error {
	return newMCPError(ErrorCodeInvalidParams, "invalid "+param, map[string]interface{}{
		"param": param,
		"value": value,
	})
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is an absolute, readable directory holding
// at least one .java or .class file.
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	found := false
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == path {
				return err
			}
			return nil
		}
		if !d.IsDir() && (strings.HasSuffix(p, ".java") || strings.HasSuffix(p, ".class")) {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return ErrPathNotReadable
	}
	if !found {
		return ErrNoJavaFiles
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter; non-string items are
// skipped.
func getStringSlice(args map[string]interface{}, key string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, v := range val {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// getObjectSlice extracts an array of objects parameter.
func getObjectSlice(args map[string]interface{}, key string) []map[string]interface{} {
	switch val := args[key].(type) {
	case []map[string]interface{}:
		return val
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(val))
		for _, v := range val {
			if m, ok := v.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNoJavaFiles     = errors.New("directory does not contain Java sources or class files")
)
