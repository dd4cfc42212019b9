package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexProjectTool returns the tool definition for index_project
func indexProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_project",
		Description: "Index the Java sources and class files under a directory so they can be searched",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
				"include_tests": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index files under src/test",
					"default":     true,
				},
				"exclude": map[string]interface{}{
					"type":        "array",
					"description": "Extra doublestar patterns, relative to the root, of files to skip",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Find declarations or references of Java types, methods, constructors, fields and packages",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Pattern such as 'p.Type', 'Type.method(int, String)', 'Type.field' or 'java.util'",
				},
				"search_for": map[string]interface{}{
					"type":        "string",
					"description": "Kind of element the pattern denotes",
					"enum":        []string{"type", "class", "interface", "enum", "annotation", "record", "class_and_interface", "method", "constructor", "field", "package"},
					"default":     "type",
				},
				"limit_to": map[string]interface{}{
					"type":        "string",
					"description": "Occurrences to report",
					"enum":        []string{"declarations", "references", "all_occurrences", "implementors", "read_accesses", "write_accesses"},
					"default":     "declarations",
				},
				"match_rule": map[string]interface{}{
					"type":        "string",
					"description": "Match mode and flags joined by '|': EXACT, PREFIX, PATTERN, REGEXP, CAMELCASE, CASE_SENSITIVE, ERASURE, EQUIVALENT, FULL",
					"default":     "EXACT|CASE_SENSITIVE",
				},
				"scope": map[string]interface{}{
					"type":        "array",
					"description": "Files or directories to search in; the whole workspace when omitted",
					"items":       map[string]interface{}{"type": "string"},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of matches to return (1-1000)",
					"default":     100,
					"minimum":     1,
					"maximum":     1000,
				},
				"accurate_only": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, drop matches that could not be fully confirmed",
					"default":     false,
				},
			},
			Required: []string{"pattern"},
		},
	}
}

// searchAccessedFieldsTool returns the tool definition for search_accessed_fields
func searchAccessedFieldsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_accessed_fields",
		Description: "Find the declarations of the fields accessed (or types referenced, or methods invoked) inside a method or type",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the source file declaring the element",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Dotted name of the enclosing type, e.g. 'p.Outer.Inner'",
				},
				"method": map[string]interface{}{
					"type":        "string",
					"description": "Method name; the whole type is searched when omitted",
				},
				"parameter_types": map[string]interface{}{
					"type":        "array",
					"description": "Parameter types of the method as written",
					"items":       map[string]interface{}{"type": "string"},
				},
				"declarations_of": map[string]interface{}{
					"type":        "string",
					"description": "What to report declarations of",
					"enum":        []string{"accessed_fields", "referenced_types", "sent_messages"},
					"default":     "accessed_fields",
				},
			},
			Required: []string{"path", "type"},
		},
	}
}

// evaluateSnippetTool returns the tool definition for evaluate_snippet
func evaluateSnippetTool() mcp.Tool {
	return mcp.Tool{
		Name:        "evaluate_snippet",
		Description: "Compile a Java code snippet in the context of a type into class files, reporting problems mapped to the snippet",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"snippet": map[string]interface{}{
					"type":        "string",
					"description": "Java statements or a single expression",
				},
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session returned by an earlier call; a new session is created when omitted",
				},
				"declaring_type": map[string]interface{}{
					"type":        "string",
					"description": "Dotted name of the receiver type the snippet runs in",
				},
				"static": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, the snippet runs in a static method of the declaring type",
					"default":     false,
				},
				"locals": map[string]interface{}{
					"type":        "array",
					"description": "Local variables visible to the snippet",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name": map[string]interface{}{"type": "string"},
							"type": map[string]interface{}{"type": "string"},
							"final": map[string]interface{}{
								"type":        "boolean",
								"description": "If true, the snippet cannot assign the local",
								"default":     false,
							},
						},
						"required": []string{"name", "type"},
					},
				},
				"variables": map[string]interface{}{
					"type":        "array",
					"description": "Global variables to declare in the session before the snippet is compiled",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name":        map[string]interface{}{"type": "string"},
							"type":        map[string]interface{}{"type": "string"},
							"initializer": map[string]interface{}{"type": "string"},
						},
						"required": []string{"name", "type"},
					},
				},
				"imports": map[string]interface{}{
					"type":        "array",
					"description": "Imports of the generated classes, replacing the session imports",
					"items":       map[string]interface{}{"type": "string"},
				},
				"package": map[string]interface{}{
					"type":        "string",
					"description": "Package of the generated classes",
				},
				"disassemble": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include a disassembly of every generated class",
					"default":     false,
				},
			},
			Required: []string{"snippet"},
		},
	}
}

// closeSessionTool returns the tool definition for close_session
func closeSessionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "close_session",
		Description: "Discard an evaluation session and its global variables",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session to close",
				},
			},
			Required: []string{"session_id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status and statistics for one project or every indexed project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an indexed project; all projects when omitted",
				},
			},
		},
	}
}
