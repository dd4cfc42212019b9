// Package mcp implements the Model Context Protocol (MCP) server for JavaContext.
//
// The MCP server exposes six tools to AI coding assistants:
//   - index_project: Index the Java sources and class files of a directory
//   - search: Find declarations or references matching a Java search pattern
//   - search_accessed_fields: Find the declarations used inside a method or type
//   - evaluate_snippet: Compile a code snippet in the context of a type
//   - close_session: Discard an evaluation session
//   - get_status: Check indexing status and statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic Usage
//
// The MCP server is typically started via the serve command:
//
//	javacontext serve
//
// It then listens on stdin for MCP protocol messages and writes responses to stdout.
// Indexes recorded in the database are reopened at start, and the pending
// writes of every index are merged when the server shuts down.
//
// # Tool: index_project
//
//	Request:
//	{
//	  "name": "index_project",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "include_tests": true,
//	    "exclude": ["build/**"]
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "container": "/path/to/project",
//	  "files_indexed": 247,
//	  "files_skipped": 3,
//	  "entries_extracted": 8432,
//	  "duration_ms": 1520
//	}
//
// The new entries are merged by a background job. Searches that run before
// the merge see them through the pending writes; evaluation sessions do not.
//
// # Tool: search
//
//	Request:
//	{
//	  "name": "search",
//	  "arguments": {
//	    "pattern": "Outer.twice(int)",
//	    "search_for": "method",
//	    "limit_to": "references",
//	    "match_rule": "EXACT|CASE_SENSITIVE"
//	  }
//	}
//
//	Response:
//	{
//	  "query": "...",
//	  "total": 1,
//	  "complete": true,
//	  "matches": [
//	    {
//	      "kind": "method_reference",
//	      "element": "method p.Outer.touch()",
//	      "accuracy": "ACCURATE",
//	      "path": "/path/to/project/src/p/Outer.java",
//	      "offset": 210,
//	      "length": 5
//	    }
//	  ]
//	}
//
// A container that failed to scan sets complete to false and is listed
// under failures.
//
// # Tool: evaluate_snippet
//
// Snippets compile against a snapshot of the merged indexes taken when the
// session is created. A call without session_id opens a new session; pass
// the returned id to reuse its imports and global variables.
//
//	Request:
//	{
//	  "name": "evaluate_snippet",
//	  "arguments": {
//	    "snippet": "return secret * 2;",
//	    "declaring_type": "p.Outer"
//	  }
//	}
//
//	Response:
//	{
//	  "session_id": "0b7c...",
//	  "class_name": "CodeSnippet_1",
//	  "succeeded": true,
//	  "has_result": true,
//	  "problems": [],
//	  "class_files": [{"name": "CodeSnippet_1", "size": 812, "bytes": "yv66vg..."}]
//	}
//
// # Error Handling
//
// Handlers return *MCPError values; the framework encodes them as JSON-RPC
// errors. Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Project not found
//   - -32002: Indexing in progress
//   - -32003: Project not indexed
//   - -32004: Empty pattern or snippet
//   - -32005: Indexes not ready
//   - -32006: Unknown evaluation session
//
// # Logging
//
// The MCP server logs to stderr (stdout is reserved for MCP protocol).
package mcp
