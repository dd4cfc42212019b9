package search

import (
	"context"
	"log"
	"strings"

	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/internal/lookup"
)

// indexEnvironment is a lookup.NameEnvironment answering from the type
// declarations of merged indexes. Declaring documents are parsed through
// the participant; working copies replace their disk contents.
type indexEnvironment struct {
	ctx         context.Context
	indexes     []*index.Index
	participant *JavaParticipant
	overlay     map[string]WorkingCopy

	answers  map[string]*lookup.Answer
	packages map[string]bool
}

func newIndexEnvironment(ctx context.Context, indexes []*index.Index, participant *JavaParticipant, overlay map[string]WorkingCopy) *indexEnvironment {
	return &indexEnvironment{
		ctx:         ctx,
		indexes:     indexes,
		participant: participant,
		overlay:     overlay,
		answers:     make(map[string]*lookup.Answer),
	}
}

// FindType implements lookup.NameEnvironment. Member types of source
// declarations are left to the environment, which finds them through
// their outermost type.
func (e *indexEnvironment) FindType(compound []string) *lookup.Answer {
	if len(compound) == 0 {
		return nil
	}
	internal := strings.Join(compound, "/")
	if a, ok := e.answers[internal]; ok {
		return a
	}
	a := e.findType(compound, internal)
	e.answers[internal] = a
	return a
}

func (e *indexEnvironment) findType(compound []string, internal string) *lookup.Answer {
	parts := strings.Split(compound[len(compound)-1], "$")
	simple, enclosing := parts[len(parts)-1], parts[:len(parts)-1]
	prefix := index.TypeDeclKey{
		SimpleName:     simple,
		Package:        strings.Join(compound[:len(compound)-1], "."),
		EnclosingTypes: enclosing,
	}.Encode()

	for _, x := range e.indexes {
		for _, path := range e.declaringPaths(x, prefix) {
			doc := Document{Path: path, Container: x.Container()}
			if wc, ok := e.overlay[path]; ok {
				doc.Contents, doc.WorkingCopy = wc.Contents, true
			}
			parsed, err := e.participant.Parse(doc)
			if err != nil {
				log.Printf("search: cannot read declaring document %s: %v", path, err)
				continue
			}
			switch {
			case parsed.Class != nil && parsed.Class.Name == internal:
				return &lookup.Answer{Binary: parsed.Class, Container: x.Container(), Path: path}
			case parsed.Unit != nil && len(enclosing) == 0:
				for _, t := range parsed.Unit.Types {
					if t.Name == simple {
						return &lookup.Answer{Source: t, Container: x.Container(), Path: path}
					}
				}
			}
		}
	}
	return nil
}

func (e *indexEnvironment) declaringPaths(x *index.Index, prefix string) []string {
	var out []string
	x.Monitor().EnterRead()
	defer x.Monitor().ExitRead()
	err := x.Scan(e.ctx, []index.Category{index.CategoryTypeDecl}, prefix, func(_ index.Category, _ string, paths []string) error {
		out = append(out, paths...)
		return nil
	})
	if err != nil {
		return nil
	}
	return out
}

// FindTypeInPackage implements lookup.NameEnvironment.
func (e *indexEnvironment) FindTypeInPackage(name string, pkg []string) *lookup.Answer {
	return e.FindType(append(append([]string(nil), pkg...), name))
}

// IsPackage implements lookup.NameEnvironment.
func (e *indexEnvironment) IsPackage(parent []string, name string) bool {
	if e.packages == nil {
		e.loadPackages()
	}
	return e.packages[strings.Join(append(append([]string(nil), parent...), name), "/")]
}

func (e *indexEnvironment) loadPackages() {
	e.packages = make(map[string]bool)
	for _, x := range e.indexes {
		x.Monitor().EnterRead()
		for _, path := range x.Paths() {
			doc, ok := x.Document(path)
			if !ok || doc.PackageName == "" {
				continue
			}
			segs := lookup.SplitName(doc.PackageName)
			for i := 1; i <= len(segs); i++ {
				e.packages[strings.Join(segs[:i], "/")] = true
			}
		}
		x.Monitor().ExitRead()
	}
}
