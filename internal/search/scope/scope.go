package scope

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dshills/javacontext-mcp/pkg/types"
)

// Scope limits a search to a set of documents and elements.
type Scope interface {
	// EnclosesPath reports whether the document at path is searched.
	EnclosesPath(path string) bool
	// Encloses reports whether a matched element may be reported.
	Encloses(e types.Element) bool
	// Containers lists the index containers to query. nil means every
	// open index.
	Containers() []string
}

// Workspace encloses every document of every open index.
type Workspace struct{}

// NewWorkspace returns the scope of the whole workspace.
func NewWorkspace() Workspace { return Workspace{} }

func (Workspace) EnclosesPath(string) bool    { return true }
func (Workspace) Encloses(types.Element) bool { return true }
func (Workspace) Containers() []string        { return nil }

type root struct {
	container string
	path      string
	subtree   bool
}

// JavaSearchScope encloses explicit directories and files of some
// containers, minus the paths matching its exclusion globs.
type JavaSearchScope struct {
	roots    []root
	excludes []string
}

// NewJavaSearchScope returns an empty scope; Add widens it.
func NewJavaSearchScope() *JavaSearchScope {
	return &JavaSearchScope{}
}

// Add encloses path of container. A directory encloses its direct
// children, or everything below it when includeSubtree is set.
func (s *JavaSearchScope) Add(container, path string, includeSubtree bool) {
	s.roots = append(s.roots, root{
		container: filepath.Clean(container),
		path:      filepath.Clean(path),
		subtree:   includeSubtree,
	})
}

// AddContainer encloses a whole container.
func (s *JavaSearchScope) AddContainer(container string) {
	s.Add(container, container, true)
}

// Exclude removes the paths matching any of the doublestar patterns.
// Patterns are matched against slash separated absolute paths.
func (s *JavaSearchScope) Exclude(patterns ...string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclusion pattern %q", p)
		}
	}
	s.excludes = append(s.excludes, patterns...)
	return nil
}

func (s *JavaSearchScope) excluded(path string) bool {
	slashed := filepath.ToSlash(path)
	relative := strings.TrimPrefix(slashed, "/")
	for _, p := range s.excludes {
		if ok, _ := doublestar.Match(p, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, relative); ok {
			return true
		}
	}
	return false
}

func (s *JavaSearchScope) EnclosesPath(path string) bool {
	if path == "" {
		return false
	}
	path = filepath.Clean(path)
	if s.excluded(path) {
		return false
	}
	for _, r := range s.roots {
		switch {
		case path == r.path:
			return true
		case r.subtree && under(path, r.path):
			return true
		case !r.subtree && filepath.Dir(path) == r.path:
			return true
		}
	}
	return false
}

// Encloses tests the element's document, or its container when the element
// has no source document.
func (s *JavaSearchScope) Encloses(e types.Element) bool {
	if e.Path != "" {
		return s.EnclosesPath(e.Path)
	}
	for _, r := range s.roots {
		if r.container == e.Container && r.path == r.container {
			return true
		}
	}
	return false
}

func (s *JavaSearchScope) Containers() []string {
	seen := make(map[string]bool, len(s.roots))
	out := make([]string, 0, len(s.roots))
	for _, r := range s.roots {
		if !seen[r.container] {
			seen[r.container] = true
			out = append(out, r.container)
		}
	}
	return out
}

func under(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// HierarchyMember is one type of a hierarchy snapshot.
type HierarchyMember struct {
	QualifiedName string
	Path          string
	Container     string
}

// HierarchyScope encloses the supertypes and subtypes of a focus type as
// they were when the scope was built. It does not follow later edits.
type HierarchyScope struct {
	focus      string
	members    map[string]HierarchyMember
	paths      map[string]bool
	containers []string
}

// NewHierarchyScope snapshots members, which should include the focus.
func NewHierarchyScope(focus string, members []HierarchyMember) *HierarchyScope {
	h := &HierarchyScope{
		focus:   focus,
		members: make(map[string]HierarchyMember, len(members)),
		paths:   make(map[string]bool),
	}
	seen := make(map[string]bool)
	for _, m := range members {
		h.members[m.QualifiedName] = m
		if m.Path != "" {
			h.paths[filepath.Clean(m.Path)] = true
		}
		if m.Container != "" && !seen[m.Container] {
			seen[m.Container] = true
			h.containers = append(h.containers, m.Container)
		}
	}
	sort.Strings(h.containers)
	return h
}

// Focus returns the qualified name of the focus type.
func (h *HierarchyScope) Focus() string { return h.focus }

// Contains reports whether a type is part of the hierarchy.
func (h *HierarchyScope) Contains(qualifiedName string) bool {
	_, ok := h.members[qualifiedName]
	return ok
}

// Members returns the hierarchy sorted by qualified name.
func (h *HierarchyScope) Members() []HierarchyMember {
	out := make([]HierarchyMember, 0, len(h.members))
	for _, m := range h.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out
}

func (h *HierarchyScope) EnclosesPath(path string) bool {
	return h.paths[filepath.Clean(path)]
}

// Encloses accepts the hierarchy's types and the members they declare.
func (h *HierarchyScope) Encloses(e types.Element) bool {
	switch e.Kind {
	case types.ElementType:
		return h.Contains(e.QualifiedName())
	case types.ElementField, types.ElementMethod, types.ElementConstructor:
		return h.Contains(e.DeclaringType)
	default:
		return e.Path != "" && h.EnclosesPath(e.Path)
	}
}

func (h *HierarchyScope) Containers() []string {
	return h.containers
}
