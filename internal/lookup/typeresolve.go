package lookup

import (
	"strings"

	"github.com/dshills/javacontext-mcp/internal/jast"
)

// TypeContext locates a type name: the innermost enclosing type, the
// compilation unit whose imports apply, and the type variables and local
// classes in scope (both by simple name).
type TypeContext struct {
	Type *TypeBinding
	Unit *jast.CompilationUnit
	Vars map[string]*TypeBinding
}

// ResolveType resolves a type reference to its erasure.
func (e *Environment) ResolveType(ref *jast.TypeRef, ctx TypeContext) (*TypeBinding, ProblemReason) {
	if ref == nil {
		return nil, NotFound
	}
	if ref.Wildcard {
		if len(ref.Args) > 0 {
			return e.ResolveType(ref.Args[0], ctx)
		}
		return e.Object(), NoProblem
	}
	leaf, reason := e.ResolveTypeName(ref.Name, ctx)
	if leaf == nil {
		return nil, reason
	}
	if ref.Dims > 0 {
		return e.ArrayOf(leaf, ref.Dims), reason
	}
	return leaf, reason
}

// ResolveTypeName resolves a dotted type name as written in source.
func (e *Environment) ResolveTypeName(name string, ctx TypeContext) (*TypeBinding, ProblemReason) {
	if jast.IsPrimitiveName(name) {
		return e.Primitive(name), NoProblem
	}
	segs := strings.Split(name, ".")
	first, reason := e.resolveSimpleType(segs[0], ctx)
	if first != nil {
		return e.memberPath(first, segs[1:])
	}
	if reason == Ambiguous || reason == NotVisible {
		return nil, reason
	}
	// qualified by a package
	for i := 1; i < len(segs); i++ {
		pkg := strings.Join(segs[:i], ".")
		if t := e.TopLevel(pkg, segs[i]); t != nil {
			return e.memberPath(t, segs[i+1:])
		}
	}
	return nil, NotFound
}

func (e *Environment) memberPath(t *TypeBinding, rest []string) (*TypeBinding, ProblemReason) {
	for _, name := range rest {
		m := FindMemberType(t, name)
		if m == nil {
			return nil, NotFound
		}
		t = m
	}
	return t, NoProblem
}

func (e *Environment) resolveSimpleType(name string, ctx TypeContext) (*TypeBinding, ProblemReason) {
	if t, ok := ctx.Vars[name]; ok && t != nil {
		return t, NoProblem
	}
	for t := ctx.Type; t != nil; t = t.Enclosing {
		if tv, ok := t.TypeVariables()[name]; ok {
			return tv, NoProblem
		}
		if t.simple == name && !t.Anonymous {
			return t, NoProblem
		}
		if m := FindMemberType(t, name); m != nil {
			return m, NoProblem
		}
	}
	unit := ctx.Unit
	if unit == nil {
		if t := e.TopLevel("java.lang", name); t != nil {
			return t, NoProblem
		}
		return nil, NotFound
	}
	for _, decl := range unit.Types {
		if decl.Name == name {
			if t := e.SourceType(decl); t != nil {
				return t, NoProblem
			}
			if t := e.TopLevel(unit.PackageName(), name); t != nil {
				return t, NoProblem
			}
		}
	}
	for _, imp := range unit.Imports {
		if imp.OnDemand || imp.Static || imp.SimpleName() != name {
			continue
		}
		if t, _ := e.ResolveTypeName(imp.Name, TypeContext{}); t != nil {
			return t, NoProblem
		}
	}
	if t := e.TopLevel(unit.PackageName(), name); t != nil {
		return t, NoProblem
	}
	var found *TypeBinding
	for _, imp := range unit.Imports {
		if !imp.OnDemand {
			continue
		}
		var t *TypeBinding
		if container, _ := e.ResolveTypeName(imp.Name, TypeContext{}); container != nil {
			t = FindMemberType(container, name)
		} else if !imp.Static {
			t = e.TopLevel(imp.Name, name)
		}
		if t == nil {
			continue
		}
		if found != nil && found != t {
			return found, Ambiguous
		}
		found = t
	}
	if found != nil {
		return found, NoProblem
	}
	if t := e.TopLevel("java.lang", name); t != nil {
		return t, NoProblem
	}
	return nil, NotFound
}

// FindMemberType finds a member type declared by t or inherited from its
// supertypes.
func FindMemberType(t *TypeBinding, name string) *TypeBinding {
	visited := make(map[*TypeBinding]bool)
	var walk func(*TypeBinding) *TypeBinding
	walk = func(c *TypeBinding) *TypeBinding {
		if c == nil || visited[c] {
			return nil
		}
		visited[c] = true
		if m := c.MemberType(name); m != nil {
			return m
		}
		if c.supersState == stateBusy {
			return nil
		}
		if m := walk(c.Superclass()); m != nil {
			return m
		}
		for _, i := range c.Interfaces() {
			if m := walk(i); m != nil {
				return m
			}
		}
		return nil
	}
	return walk(t)
}
