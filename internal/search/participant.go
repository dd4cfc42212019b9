package search

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/parser"
)

// DefaultCacheSize is the number of parsed documents a participant keeps.
const DefaultCacheSize = 512

// ParticipantName identifies the Java participant in reported matches.
const ParticipantName = "java"

// WorkingCopy is an unsaved edit of a document. Searches prefer it over the
// file on disk.
type WorkingCopy struct {
	Path      string
	Container string
	Contents  []byte
}

// Document is a candidate handed to the match locator.
type Document struct {
	Path      string
	Container string
	// Contents is set for working copies; other documents are read from disk.
	Contents    []byte
	WorkingCopy bool
}

// IsBinary reports class file documents.
func (d Document) IsBinary() bool {
	return strings.HasSuffix(d.Path, ".class")
}

// Parsed is a parsed candidate document: a compilation unit for sources
// or a class file for binaries.
type Parsed struct {
	Unit  *jast.CompilationUnit
	Class *classfile.ClassFile
	Hash  uint64
}

// JavaParticipant reads and parses candidate documents. Parses are cached
// by path and content hash, so an unchanged file is parsed once.
type JavaParticipant struct {
	parser *parser.Parser
	cache  *lru.Cache[string, *Parsed]
}

// NewJavaParticipant creates a participant over a shared parser.
func NewJavaParticipant(p *parser.Parser, cacheSize int) (*JavaParticipant, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *Parsed](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse cache: %w", err)
	}
	return &JavaParticipant{parser: p, cache: cache}, nil
}

// Name returns ParticipantName.
func (jp *JavaParticipant) Name() string { return ParticipantName }

// Parse returns the parsed form of doc.
func (jp *JavaParticipant) Parse(doc Document) (*Parsed, error) {
	contents := doc.Contents
	if !doc.WorkingCopy {
		data, err := os.ReadFile(doc.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", doc.Path, err)
		}
		contents = data
	}

	hash := xxhash.Sum64(contents)
	key := doc.Path + "#" + strconv.FormatUint(hash, 16)
	if p, ok := jp.cache.Get(key); ok {
		return p, nil
	}

	p := &Parsed{Hash: hash}
	if doc.IsBinary() {
		cf, err := classfile.Parse(contents)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", doc.Path, err)
		}
		p.Class = cf
	} else {
		unit, err := jp.parser.Parse(doc.Path, contents, parser.ModeFull)
		if err != nil {
			return nil, err
		}
		p.Unit = unit
	}
	jp.cache.Add(key, p)
	return p, nil
}

// Purge drops every cached parse.
func (jp *JavaParticipant) Purge() { jp.cache.Purge() }
