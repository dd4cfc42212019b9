package parser

import (
	"errors"
	"fmt"
	"os"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/dshills/javacontext-mcp/internal/jast"
)

// Mode selects how much of a document is converted.
type Mode int

const (
	// ModeFull converts every method body.
	ModeFull Mode = iota
	// ModeDiet converts declarations and signatures only. Method bodies are
	// recorded by span but left nil.
	ModeDiet
)

func (m Mode) String() string {
	if m == ModeDiet {
		return "diet"
	}
	return "full"
}

// ErrGrammarUnavailable is returned when the Java grammar could not be loaded
var ErrGrammarUnavailable = errors.New("java grammar unavailable")

// Parser turns Java source into jast compilation units using tree-sitter.
// A Parser is safe for concurrent use; parses are serialized because the
// underlying tree-sitter parser is not reentrant.
type Parser struct {
	mu sync.Mutex
	ts *tree_sitter.Parser
}

// New creates a new Parser instance
func New() *Parser {
	ts := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_java.Language())
	if err := ts.SetLanguage(language); err != nil {
		ts.Close()
		return &Parser{}
	}
	return &Parser{ts: ts}
}

// Close releases the tree-sitter parser
func (p *Parser) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ts != nil {
		p.ts.Close()
		p.ts = nil
	}
}

// ParseFile reads and parses a Java source file
func (p *Parser) ParseFile(filePath string, mode Mode) (*jast.CompilationUnit, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(filePath, content, mode)
}

// Parse converts source into a compilation unit. Syntax errors do not fail
// the parse: they are recorded in the unit's Problems and the recovered
// tree is converted as far as possible.
func (p *Parser) Parse(path string, src []byte, mode Mode) (*jast.CompilationUnit, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ts == nil {
		return nil, ErrGrammarUnavailable
	}

	tree := p.ts.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse %s: no tree produced", path)
	}
	defer tree.Close()

	unit := &jast.CompilationUnit{
		Span:   jast.Span{Start: 0, End: len(src)},
		Path:   path,
		Source: src,
		Diet:   mode == ModeDiet,
	}
	unit.SetLineStarts(jast.LineStarts(src))

	c := &converter{src: src, unit: unit, mode: mode}
	root := tree.RootNode()
	c.scanExtras(root)
	c.program(root)
	return unit, nil
}
