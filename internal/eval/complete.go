package eval

import (
	"sort"
	"strings"

	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/lookup"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

// completionMarker is appended to the completed prefix so that the
// resolver reports the completion point as an unresolved name.
const completionMarker = "$completion$"

// CompletionProposal is one candidate at a completion point. Replace
// offsets are relative to the snippet.
type CompletionProposal struct {
	Kind       types.ElementKind
	Name       string
	Completion string
	// Type is the field or local type, or the method return type.
	Type      string
	Declaring string
	// Parameters holds the parameter types of a method.
	Parameters   []string
	ReplaceStart int
	ReplaceEnd   int
	Relevance    int
}

// Selection is the element under a selected range. Start and End cover
// the selected node in the snippet, end exclusive.
type Selection struct {
	Kind       types.ElementKind
	Name       string
	Declaring  string
	Type       string
	Parameters []string
	Start      int
	End        int
}

func isIdentPart(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b >= 0x80
}

// Complete proposes the locals, fields, methods and types whose name
// starts with the identifier ending at pos. A prefix after a dot proposes
// the members of the qualifier instead.
func (c *Context) Complete(snippet string, pos int, capture Capture, req CompletionRequestor) error {
	if pos < 0 || pos > len(snippet) {
		return ErrPositionOutOfRange
	}
	start := pos
	for start > 0 && isIdentPart(snippet[start-1]) {
		start--
	}
	prefix := snippet[start:pos]
	marker := prefix + completionMarker
	text := snippet[:start] + marker + snippet[pos:]

	c.mu.Lock()
	defer c.mu.Unlock()
	m := NewMapper(text, c.snippetWrapper(capture))
	var seen []*lookup.LocalBinding
	comp, err := c.compile(m, &capture, marker, &seen)
	if err != nil {
		return err
	}
	if comp.body == nil {
		return nil
	}

	p := &proposals{
		prefix: prefix,
		start:  m.StartPosOffset() + start,
		end:    m.StartPosOffset() + pos,
		seen:   make(map[string]bool),
	}
	invocation := comp.class
	if comp.scope != nil {
		invocation = comp.scope.Invocation()
	}
	res := comp.resolver.Resolution()
	qualifier, found := completionQualifier(comp.body, marker)
	switch {
	case !found:
	case qualifier != nil:
		if t := res.TypeNames[qualifier]; t != nil {
			p.members(t, invocation, true)
			for _, mt := range t.MemberTypes() {
				p.typeProposal(mt)
			}
		} else if t := res.TypeOf(qualifier); t != nil && !t.IsPrimitive() {
			p.members(t, invocation, false)
		}
	default:
		for _, l := range seen {
			p.add(CompletionProposal{Kind: types.ElementLocalVariable, Name: l.Name, Type: typeName(l.Type)}, 30)
		}
		for _, l := range capture.Locals {
			p.add(CompletionProposal{Kind: types.ElementLocalVariable, Name: l.Name, Type: l.TypeName}, 30)
		}
		if super := comp.class.Superclass(); super != nil && super.Name != RootClassName {
			for _, f := range super.Fields() {
				p.field(f, 25)
			}
		}
		if d := comp.scope.Declaring(); d != nil {
			for t := d; t != nil; t = t.Enclosing {
				p.members(t, invocation, capture.Static && t == d)
				for _, mt := range t.MemberTypes() {
					p.typeProposal(mt)
				}
			}
		}
		for _, imp := range comp.unit.Imports {
			if imp.Static || imp.OnDemand {
				continue
			}
			if t := res.Imports[imp]; t != nil {
				p.typeProposal(t)
			}
		}
	}

	sort.SliceStable(p.out, func(i, j int) bool {
		if p.out[i].Relevance != p.out[j].Relevance {
			return p.out[i].Relevance > p.out[j].Relevance
		}
		return p.out[i].Name < p.out[j].Name
	})
	wrapped := m.WrapCompletions(req)
	for _, prop := range p.out {
		wrapped.AcceptProposal(prop)
	}
	return nil
}

// completionQualifier finds the reference carrying marker. It returns the
// qualifying expression, nil for an unqualified reference.
func completionQualifier(body *jast.Block, marker string) (jast.Expr, bool) {
	var qualifier jast.Expr
	found := false
	jast.Inspect(body, func(n jast.Node) bool {
		if found {
			return false
		}
		switch n := n.(type) {
		case *jast.Ident:
			found = n.Name == marker
		case *jast.FieldAccess:
			if n.Name == marker {
				qualifier, found = n.X, true
			}
		case *jast.MethodCall:
			if n.Name == marker {
				qualifier, found = n.X, true
			}
		}
		return !found
	})
	return qualifier, found
}

type proposals struct {
	prefix     string
	start, end int
	seen       map[string]bool
	out        []CompletionProposal
}

func (p *proposals) add(prop CompletionProposal, relevance int) {
	if !strings.HasPrefix(strings.ToLower(prop.Name), strings.ToLower(p.prefix)) {
		return
	}
	key := string(prop.Kind) + ":" + prop.Name + "(" + strings.Join(prop.Parameters, ",") + ")"
	if p.seen[key] {
		return
	}
	p.seen[key] = true
	if strings.HasPrefix(prop.Name, p.prefix) {
		relevance++
	}
	if prop.Completion == "" {
		prop.Completion = prop.Name
	}
	prop.ReplaceStart, prop.ReplaceEnd, prop.Relevance = p.start, p.end, relevance
	p.out = append(p.out, prop)
}

func (p *proposals) field(f *lookup.FieldBinding, relevance int) {
	p.add(CompletionProposal{
		Kind:      types.ElementField,
		Name:      f.Name,
		Type:      typeName(f.Type),
		Declaring: typeName(f.Declaring),
	}, relevance)
}

func (p *proposals) typeProposal(t *lookup.TypeBinding) {
	p.add(CompletionProposal{Kind: types.ElementType, Name: t.SimpleName(), Declaring: t.QualifiedName()}, 10)
}

// members proposes the fields and methods of t and its superclasses that
// the snippet may use; staticOnly restricts them to static members.
func (p *proposals) members(t, invocation *lookup.TypeBinding, staticOnly bool) {
	vis := snippetVisibility{}
	for c := t; c != nil; c = c.Superclass() {
		for _, f := range c.Fields() {
			if (!staticOnly || f.IsStatic()) && vis.FieldVisible(f, t, invocation, false) {
				p.field(f, 20)
			}
		}
		for _, m := range c.Methods() {
			if m.Constructor || strings.HasPrefix(m.Name, "<") {
				continue
			}
			if (staticOnly && !m.IsStatic()) || !vis.MethodVisible(m, t, invocation, false) {
				continue
			}
			params := make([]string, len(m.Params))
			for i, pt := range m.Params {
				params[i] = typeName(pt)
			}
			p.add(CompletionProposal{
				Kind:       types.ElementMethod,
				Name:       m.Name,
				Completion: m.Name + "()",
				Type:       typeName(m.Return),
				Declaring:  typeName(m.Declaring),
				Parameters: params,
			}, 15)
		}
	}
}

func typeName(t *lookup.TypeBinding) string {
	if t == nil {
		return ""
	}
	return t.QualifiedName()
}

// Select reports the element denoted by the innermost node covering
// [start, end) of the snippet.
func (c *Context) Select(snippet string, start, end int, capture Capture, req SelectionRequestor) error {
	if start < 0 || end < start || end > len(snippet) {
		return ErrPositionOutOfRange
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m := NewMapper(snippet, c.snippetWrapper(capture))
	comp, err := c.compile(m, &capture, "", nil)
	if err != nil {
		return err
	}
	if comp.body == nil {
		return nil
	}
	offset := m.StartPosOffset()
	n := jast.NodeAt(comp.body, offset+start, offset+end)
	if n == nil {
		return nil
	}
	sel, ok := selectNode(comp.resolver.Resolution(), n)
	if !ok {
		return nil
	}
	m.WrapSelections(req).AcceptSelection(sel)
	return nil
}

func selectNode(res *lookup.Resolution, n jast.Node) (Selection, bool) {
	start, end := n.Pos()
	sel := Selection{Start: start, End: end}
	if e, ok := n.(jast.Expr); ok {
		if l := res.Locals[e]; l != nil {
			sel.Kind, sel.Name, sel.Type = types.ElementLocalVariable, l.Name, typeName(l.Type)
			return sel, true
		}
		if f := res.Fields[e]; f != nil && f.IsValid() {
			if strings.HasPrefix(f.Name, CapturedPrefix) && f.Name != CapturedThis {
				sel.Kind, sel.Name, sel.Type = types.ElementLocalVariable, f.Name[len(CapturedPrefix):], typeName(f.Type)
				return sel, true
			}
			if fa, ok := n.(*jast.FieldAccess); ok {
				sel.Start, sel.End = fa.NameSpan.Start, fa.NameSpan.End
			}
			sel.Kind, sel.Name, sel.Type, sel.Declaring = types.ElementField, f.Name, typeName(f.Type), typeName(f.Declaring)
			return sel, true
		}
		if t := res.TypeNames[e]; t != nil {
			return typeSelection(sel, t), true
		}
		if pkg, ok := res.Packages[e]; ok {
			sel.Kind, sel.Name = types.ElementPackage, pkg
			return sel, true
		}
	}
	switch n := n.(type) {
	case *jast.MethodCall:
		if mb := res.Methods[n]; mb != nil && mb.IsValid() {
			sel.Start, sel.End = n.NameSpan.Start, n.NameSpan.End
			return methodSelection(sel, types.ElementMethod, mb), true
		}
	case *jast.New:
		if mb := res.Constructors[n]; mb != nil && mb.IsValid() {
			return methodSelection(sel, types.ElementConstructor, mb), true
		}
	case *jast.TypeRef:
		if t := res.TypeRefs[n]; t != nil {
			return typeSelection(sel, t), true
		}
	case *jast.LocalVarDecl:
		if l := res.Locals[n]; l != nil {
			sel.Start, sel.End = n.NameSpan.Start, n.NameSpan.End
			sel.Kind, sel.Name, sel.Type = types.ElementLocalVariable, l.Name, typeName(l.Type)
			return sel, true
		}
	case *jast.This:
		if t := res.TypeOf(n); t != nil {
			return typeSelection(sel, t), true
		}
	}
	return sel, false
}

func typeSelection(sel Selection, t *lookup.TypeBinding) Selection {
	sel.Kind, sel.Name, sel.Type = types.ElementType, t.SimpleName(), t.QualifiedName()
	if t.Enclosing != nil {
		sel.Declaring = t.Enclosing.QualifiedName()
	}
	return sel
}

func methodSelection(sel Selection, kind types.ElementKind, m *lookup.MethodBinding) Selection {
	sel.Kind, sel.Name = kind, m.Name
	sel.Declaring = typeName(m.Declaring)
	if !m.Constructor {
		sel.Type = typeName(m.Return)
	}
	for _, p := range m.Params {
		sel.Parameters = append(sel.Parameters, typeName(p))
	}
	return sel
}
