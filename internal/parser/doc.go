// Package parser converts Java source files into jast compilation units
// using tree-sitter and the tree-sitter-java grammar.
//
// # Basic Usage
//
//	p := parser.New()
//	defer p.Close()
//	unit, err := p.ParseFile("/path/to/User.java", parser.ModeFull)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, t := range unit.Types {
//	    fmt.Printf("Found %s %s\n", t.Kind, t.QualifiedName())
//	}
//
// # Modes
//
// ModeDiet converts the declaration skeleton only: types, fields with their
// initializers, and method signatures. Method bodies are recorded by span so
// a later full parse can be limited to the documents that need it. The
// index-backed name environment uses diet units; the indexer, the match
// locator and the snippet compiler use ModeFull.
//
// # Error Handling
//
// Syntax errors never fail a parse. tree-sitter recovers around ERROR and
// MISSING nodes; each one becomes a types.Problem with ID SYNTAX_ERROR in
// CompilationUnit.Problems and the recovered tree is converted normally.
// Parse only returns an error when the grammar could not be loaded.
//
// # Thread Safety
//
// A Parser can be shared between goroutines. Calls are serialized on an
// internal mutex.
package parser
