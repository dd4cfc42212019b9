package search

import (
	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/lookup"
	"github.com/dshills/javacontext-mcp/internal/search/pattern"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

// declarationsOf reports the declarations of the fields, methods or types
// used inside the enclosing element of p. Each declaration is reported once,
// at its own location; declarations without a document (the built-in
// types) and declarations outside the scope are dropped.
func (u *unitMatcher) declarationsOf(p *pattern.DeclarationsOfPattern) []types.SearchMatch {
	node := u.enclosingNode(p.Enclosing)
	if node == nil {
		return nil
	}
	start, end := node.Pos()

	var out []types.SearchMatch
	add := func(kind types.MatchKind, e types.Element, ok bool) {
		if !ok || e.Path == "" || !u.l.Scope.Encloses(e) {
			return
		}
		if !u.l.once("declaration:" + e.Key() + "@" + e.Path) {
			return
		}
		out = append(out, types.SearchMatch{
			Kind:        kind,
			Element:     e,
			Accuracy:    u.accuracy(true),
			Offset:      e.NameOffset,
			Length:      e.NameLength,
			Participant: ParticipantName,
			Resource:    e.Path,
		})
	}

	u.walk(func(n jast.Node, wc walkContext) {
		if s, _ := n.Pos(); s < start || s >= end {
			return
		}
		switch p.What {
		case pattern.AccessedFields:
			if x, ok := n.(jast.Expr); ok {
				if f := u.res.Fields[x]; f.IsValid() && f.Declaring != nil && !f.IsArrayLength() {
					add(types.MatchFieldDeclaration, fieldDeclaration(f), true)
				}
			}
		case pattern.ReferencedMethods:
			if c, ok := n.(*jast.MethodCall); ok {
				if m := u.res.Methods[c]; m.IsValid() && m.Declaring != nil {
					add(types.MatchMethodDeclaration, methodDeclaration(m), true)
				}
			}
		case pattern.ReferencedTypes:
			switch v := n.(type) {
			case *jast.TypeRef:
				if len(v.Segments) <= 1 && wc.typeVars[v.Name] {
					return
				}
				e, ok := typeDeclaration(u.res.TypeRefs[v])
				add(types.MatchTypeDeclaration, e, ok)
			case jast.Expr:
				e, ok := typeDeclaration(u.res.TypeNames[v])
				add(types.MatchTypeDeclaration, e, ok)
			}
		}
	})
	return out
}

// enclosingNode finds the declaration an element denotes, by name offset
// first and by name and declaring type when the offset is stale.
func (u *unitMatcher) enclosingNode(e types.Element) jast.Node {
	var byOffset, byName jast.Node
	u.walk(func(n jast.Node, wc walkContext) {
		var name string
		var nameSpan jast.Span
		var sameName bool
		switch v := n.(type) {
		case *jast.TypeDecl:
			if e.Kind != types.ElementType || v.Anonymous {
				return
			}
			name, nameSpan = v.Name, v.NameSpan
			sameName = v.QualifiedName() == e.QualifiedName()
		case *jast.MethodDecl:
			if (e.Kind != types.ElementMethod || v.Constructor) && (e.Kind != types.ElementConstructor || !v.Constructor) {
				return
			}
			name, nameSpan = v.Name, v.NameSpan
			sameName = wc.typeName == e.DeclaringType && len(v.Params) == len(e.ParameterTypes)
		case *jast.FieldDecl:
			if e.Kind != types.ElementField {
				return
			}
			name, nameSpan = v.Name, v.NameSpan
			sameName = wc.typeName == e.DeclaringType
		default:
			return
		}
		if name != e.Name {
			return
		}
		if nameSpan.Start == e.NameOffset && byOffset == nil {
			byOffset = n
		}
		if sameName && byName == nil {
			byName = n
		}
	})
	if byOffset != nil {
		return byOffset
	}
	return byName
}

func bindingLocation(e *types.Element, t *lookup.TypeBinding) {
	e.Path, e.Container = t.Path, t.Container
	e.NameOffset, e.NameLength = -1, -1
}

func fieldDeclaration(f *lookup.FieldBinding) types.Element {
	e := types.Element{
		Kind:          types.ElementField,
		Name:          f.Name,
		Package:       f.Declaring.PackageName(),
		DeclaringType: f.Declaring.QualifiedName(),
	}
	if f.Type != nil {
		e.Type = f.Type.QualifiedName()
	}
	bindingLocation(&e, f.Declaring)
	if f.Decl != nil {
		e.NameOffset, e.NameLength = f.Decl.NameSpan.Start, f.Decl.NameSpan.Len()
	}
	return e
}

func methodDeclaration(m *lookup.MethodBinding) types.Element {
	e := types.Element{
		Kind:           types.ElementMethod,
		Name:           m.Name,
		Package:        m.Declaring.PackageName(),
		DeclaringType:  m.Declaring.QualifiedName(),
		ParameterTypes: m.ParameterNames(),
	}
	if m.Constructor {
		e.Kind = types.ElementConstructor
	} else if m.Return != nil {
		e.Type = m.Return.QualifiedName()
	}
	bindingLocation(&e, m.Declaring)
	if m.Decl != nil {
		e.NameOffset, e.NameLength = m.Decl.NameSpan.Start, m.Decl.NameSpan.Len()
	}
	return e
}

// typeDeclaration describes the declaration of a named class or interface
// type; it reports false for primitives and anonymous classes.
func typeDeclaration(t *lookup.TypeBinding) (types.Element, bool) {
	if t == nil {
		return types.Element{}, false
	}
	t = t.Leaf()
	if t.IsPrimitive() || t.Kind == lookup.TypeNull || t.SimpleName() == "" {
		return types.Element{}, false
	}
	e := types.Element{
		Kind:    types.ElementType,
		Name:    t.SimpleName(),
		Package: t.PackageName(),
	}
	if t.Enclosing != nil && !t.Local && !t.Anonymous {
		e.DeclaringType = t.Enclosing.QualifiedName()
	}
	bindingLocation(&e, t)
	if t.Source != nil {
		e.NameOffset, e.NameLength = t.Source.NameSpan.Start, t.Source.NameSpan.Len()
	}
	return e, true
}
