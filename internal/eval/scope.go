package eval

import (
	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/lookup"
)

// SnippetScope resolves the unqualified names of a snippet. Names are
// searched in the captured locals, the global variables, the declaring type
// and its enclosing types, then types and packages. Members of the
// declaring type are found even when a regular compiler would reject the
// access; the code generator reaches them reflectively.
type SnippetScope struct {
	env       *lookup.Environment
	ctx       lookup.Context
	snippet   *lookup.TypeBinding
	declaring *lookup.TypeBinding
	this      *lookup.FieldBinding
	capture   Capture
}

// NewSnippetScope creates the scope of the run() body of snippet.
// declaring is nil for a context-free snippet.
func NewSnippetScope(env *lookup.Environment, unit *jast.CompilationUnit, snippet, declaring *lookup.TypeBinding, capture Capture) *SnippetScope {
	s := &SnippetScope{env: env, snippet: snippet, declaring: declaring, capture: capture}
	s.ctx = lookup.Context{
		Type:            s.Invocation(),
		Unit:            unit,
		Static:          capture.Static,
		ConstructorCall: capture.ConstructorCall,
	}
	if declaring != nil {
		s.this = snippet.DeclaredField(CapturedThis)
	}
	return s
}

// Context implements lookup.Scope.
func (s *SnippetScope) Context() lookup.Context { return s.ctx }

// Visibility implements lookup.Scope.
func (s *SnippetScope) Visibility() lookup.Visibility { return snippetVisibility{} }

// Invocation implements lookup.Scope. Access rights are those of code
// written inside the declaring type.
func (s *SnippetScope) Invocation() *lookup.TypeBinding {
	if s.declaring != nil {
		return s.declaring
	}
	return s.snippet
}

// SuperAllowed implements lookup.Scope. The generated class does not
// extend the declaring type, so super has no meaning in a snippet.
func (s *SnippetScope) SuperAllowed() bool { return false }

// Nested implements lookup.Scope.
func (s *SnippetScope) Nested(ctx lookup.Context) lookup.Scope {
	return lookup.NewOrdinaryScope(s.env, ctx)
}

// Declaring returns the captured receiver type, or nil.
func (s *SnippetScope) Declaring() *lookup.TypeBinding { return s.declaring }

func (s *SnippetScope) captured(name string) *lookup.FieldBinding {
	for _, l := range s.capture.Locals {
		if l.Name == name {
			return s.snippet.DeclaredField(CapturedPrefix + name)
		}
	}
	return nil
}

func (s *SnippetScope) self() lookup.Implicit {
	return lookup.Implicit{Kind: lookup.ReceiverThis, Type: s.snippet}
}

func (s *SnippetScope) receiverFor(t *lookup.TypeBinding) lookup.Implicit {
	if t == s.declaring {
		return lookup.Implicit{Kind: lookup.ReceiverCaptured, Type: t, Field: s.this}
	}
	return lookup.Implicit{Kind: lookup.ReceiverEnclosing, Type: t}
}

// LookupName implements lookup.Scope.
func (s *SnippetScope) LookupName(name string) lookup.Name {
	if f := s.captured(name); f != nil {
		return lookup.Name{Field: f, Receiver: s.self()}
	}
	if g := s.global(name); g != nil {
		return lookup.Name{Field: g, Receiver: s.self()}
	}

	fallback := lookup.Name{Problem: lookup.NotFound}
	static := s.capture.Static
	for t := s.declaring; t != nil; t = t.Enclosing {
		f := lookup.FindField(t, name, s.declaring, snippetVisibility{}, false)
		if f.IsValid() {
			n := lookup.Name{Field: f}
			if !f.IsStatic() {
				switch {
				case t == s.declaring && s.capture.ConstructorCall:
					n.Problem = lookup.NonStaticReferenceInConstructorInvocation
				case static:
					n.Problem = lookup.NonStaticReferenceInStaticContext
				}
				n.Receiver = s.receiverFor(t)
			}
			return n
		}
		if f.Problem != lookup.NotFound && fallback.Problem == lookup.NotFound {
			fallback = lookup.Name{Field: f, Problem: f.Problem}
		}
		if t.IsStatic() {
			static = true
		}
	}
	if f := s.staticImportField(name); f != nil {
		return lookup.Name{Field: f}
	}
	if fallback.Problem != lookup.NotFound {
		return fallback
	}
	return s.typeOrPackage(name)
}

// global finds a global variable declared by the installed variables class.
func (s *SnippetScope) global(name string) *lookup.FieldBinding {
	super := s.snippet.Superclass()
	if super == nil || super.Name == RootClassName {
		return nil
	}
	f := lookup.FindField(super, name, s.snippet, lookup.Ordinary{}, false)
	if !f.IsValid() || f.IsStatic() {
		return nil
	}
	return f
}

func (s *SnippetScope) typeOrPackage(name string) lookup.Name {
	t, reason := s.env.ResolveTypeName(name, lookup.TypeContextOf(s.ctx))
	switch {
	case t != nil:
		return lookup.Name{Type: t, Problem: reason}
	case reason == lookup.Ambiguous:
		return lookup.Name{Problem: lookup.Ambiguous}
	case s.env.IsPackage(name):
		return lookup.Name{Package: name}
	}
	return lookup.Name{Problem: lookup.NotFound}
}

func (s *SnippetScope) staticImports(name string) []*lookup.TypeBinding {
	if s.ctx.Unit == nil {
		return nil
	}
	var out []*lookup.TypeBinding
	for _, imp := range s.ctx.Unit.Imports {
		if !imp.Static || (!imp.OnDemand && imp.SimpleName() != name) {
			continue
		}
		container := imp.Name
		if !imp.OnDemand {
			container = imp.Name[:len(imp.Name)-len(name)-1]
		}
		if t, _ := s.env.ResolveTypeName(container, lookup.TypeContext{}); t != nil {
			out = append(out, t)
		}
	}
	return out
}

func (s *SnippetScope) staticImportField(name string) *lookup.FieldBinding {
	for _, t := range s.staticImports(name) {
		if f := lookup.FindField(t, name, s.snippet, lookup.Ordinary{}, false); f.IsValid() && f.IsStatic() {
			return f
		}
	}
	return nil
}

// LookupMethod implements lookup.Scope. Each enclosing level is searched in
// turn. A valid match returns at once; a match that is invalid only because
// of the static or constructor-call context, and a match that failed on
// visibility or applicability, are remembered and reported when nothing
// better is found further out.
func (s *SnippetScope) LookupMethod(name string, args []*lookup.TypeBinding) (*lookup.MethodBinding, lookup.Implicit) {
	var inside, fuzzy *lookup.MethodBinding
	var insideRecv lookup.Implicit
	static := s.capture.Static
	for t := s.declaring; t != nil; t = t.Enclosing {
		candidates := lookup.CollectMethods(t, name)
		if len(candidates) == 0 {
			if t.IsStatic() {
				static = true
			}
			continue
		}
		m := lookup.SelectMethod(candidates, name, args, nil, s.declaring, snippetVisibility{}, false)
		if !m.IsValid() {
			if fuzzy == nil {
				fuzzy = m
			}
		} else if m.IsStatic() {
			if inside != nil {
				return inside, insideRecv
			}
			return m, lookup.Implicit{}
		} else {
			var reason lookup.ProblemReason
			switch {
			case t == s.declaring && s.capture.ConstructorCall:
				reason = lookup.NonStaticReferenceInConstructorInvocation
			case static:
				reason = lookup.NonStaticReferenceInStaticContext
			}
			if reason == lookup.NoProblem {
				if inside != nil {
					return inside, insideRecv
				}
				if hides := s.hiddenEnclosing(t, m); hides {
					return m.WithProblem(lookup.InheritedNameHidesEnclosingName), s.receiverFor(t)
				}
				return m, s.receiverFor(t)
			}
			if inside == nil {
				inside, insideRecv = m.WithProblem(reason), s.receiverFor(t)
			}
		}
		if t.IsStatic() {
			static = true
		}
	}
	if inside != nil {
		return inside, insideRecv
	}
	if m := s.staticImportMethod(name, args); m != nil {
		return m, lookup.Implicit{}
	}
	if fuzzy != nil {
		return fuzzy, lookup.Implicit{}
	}
	return &lookup.MethodBinding{Name: name, Problem: lookup.NotFound}, lookup.Implicit{}
}

// hiddenEnclosing reports a method inherited by t that conflicts with a
// method of the same signature declared directly by an enclosing type.
func (s *SnippetScope) hiddenEnclosing(t *lookup.TypeBinding, m *lookup.MethodBinding) bool {
	if m.Declaring == t || m.Declaring == nil || m.Declaring.Name == "java/lang/Object" {
		return false
	}
	for o := t.Enclosing; o != nil; o = o.Enclosing {
		for _, d := range o.DeclaredMethods(m.Name) {
			if sameParams(d, m) {
				return true
			}
		}
	}
	return false
}

func sameParams(a, b *lookup.MethodBinding) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	return true
}

func (s *SnippetScope) staticImportMethod(name string, args []*lookup.TypeBinding) *lookup.MethodBinding {
	var candidates []*lookup.MethodBinding
	for _, t := range s.staticImports(name) {
		for _, m := range lookup.CollectMethods(t, name) {
			if m.IsStatic() {
				candidates = append(candidates, m)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return lookup.SelectMethod(candidates, name, args, nil, s.snippet, lookup.Ordinary{}, false)
}

// This implements lookup.Scope. this denotes the captured receiver; in a
// context-free snippet it denotes the snippet instance.
func (s *SnippetScope) This(qualifier *lookup.TypeBinding) (*lookup.TypeBinding, lookup.Implicit, lookup.ProblemReason) {
	if s.declaring == nil {
		if qualifier == nil || qualifier == s.snippet {
			return s.snippet, s.self(), lookup.NoProblem
		}
		return qualifier, lookup.Implicit{}, lookup.NotFound
	}
	if qualifier == nil || qualifier == s.declaring {
		switch {
		case s.capture.Static:
			return s.declaring, lookup.Implicit{}, lookup.NonStaticReferenceInStaticContext
		case s.capture.ConstructorCall:
			return s.declaring, lookup.Implicit{}, lookup.NonStaticReferenceInConstructorInvocation
		}
		return s.declaring, s.receiverFor(s.declaring), lookup.NoProblem
	}
	static := s.capture.Static
	for t := s.declaring; t != nil; t = t.Enclosing {
		if t == qualifier {
			if static {
				return t, lookup.Implicit{}, lookup.NonStaticReferenceInStaticContext
			}
			return t, s.receiverFor(t), lookup.NoProblem
		}
		if t.IsStatic() {
			static = true
		}
	}
	return qualifier, lookup.Implicit{}, lookup.NotFound
}

// FieldNames lists the names a snippet can refer to without qualification:
// captured locals, global variables and the fields of the declaring chain.
func (s *SnippetScope) FieldNames() []string {
	var names []string
	for _, l := range s.capture.Locals {
		names = append(names, l.Name)
	}
	if super := s.snippet.Superclass(); super != nil && super.Name != RootClassName {
		for _, f := range super.Fields() {
			names = append(names, f.Name)
		}
	}
	for t := s.declaring; t != nil; t = t.Enclosing {
		for c := t; c != nil; c = c.Superclass() {
			for _, f := range c.Fields() {
				if (snippetVisibility{}).FieldVisible(f, t, s.declaring, false) {
					names = append(names, f.Name)
				}
			}
		}
	}
	return names
}

// snippetVisibility grants the access rights of code inside the invocation
// type. Private members stay reachable from anywhere in the outermost type
// and protected members through any subtype of their declaring class.
type snippetVisibility struct{}

// FieldVisible implements lookup.Visibility.
func (snippetVisibility) FieldVisible(f *lookup.FieldBinding, receiver, invocation *lookup.TypeBinding, superAccess bool) bool {
	if f.IsArrayLength() {
		return true
	}
	return relaxedMember(f.Modifiers, f.Declaring, receiver, invocation, superAccess)
}

// MethodVisible implements lookup.Visibility.
func (snippetVisibility) MethodVisible(m *lookup.MethodBinding, receiver, invocation *lookup.TypeBinding, superAccess bool) bool {
	if m.Declaring != nil && m.Declaring.IsArray() {
		return true
	}
	return relaxedMember(m.Modifiers, m.Declaring, receiver, invocation, superAccess)
}

// TypeVisible implements lookup.Visibility.
func (snippetVisibility) TypeVisible(t, invocation *lookup.TypeBinding) bool {
	t = t.Leaf()
	if t.Kind == lookup.TypePrimitive || t.Kind == lookup.TypeNull || invocation == nil {
		return true
	}
	shared := t.Outermost() == invocation.Outermost()
	switch {
	case t.Modifiers.Has(jast.ModPublic):
		return t.Enclosing == nil || (snippetVisibility{}).TypeVisible(t.Enclosing, invocation)
	case t == invocation:
		return true
	case t.Modifiers.Has(jast.ModPrivate):
		return shared
	case t.Modifiers.Has(jast.ModProtected):
		if lookup.SamePackage(t, invocation) || shared {
			return true
		}
		for c := invocation; c != nil; c = c.Enclosing {
			if t.Enclosing != nil && c.IsSubtypeOf(t.Enclosing) {
				return true
			}
		}
		return false
	}
	return lookup.SamePackage(t, invocation) || shared
}

func relaxedMember(mods jast.Modifiers, declaring, receiver, invocation *lookup.TypeBinding, superAccess bool) bool {
	if declaring == nil || invocation == nil {
		return true
	}
	shared := invocation.Outermost() == declaring.Outermost()
	switch {
	case mods.Has(jast.ModPublic):
		return true
	case mods.Has(jast.ModPrivate):
		// private members are not inherited, so a subclass receiver loses them
		return (receiver == nil || receiver == declaring) && shared
	case invocation == declaring:
		return true
	case mods.Has(jast.ModProtected):
		if lookup.SamePackage(invocation, declaring) || shared {
			return true
		}
		for c := invocation; c != nil; c = c.Enclosing {
			if !c.IsSubtypeOf(declaring) {
				continue
			}
			if superAccess || receiver == nil || mods.Has(jast.ModStatic) || receiver.IsSubtypeOf(c) {
				return true
			}
		}
		return false
	}
	if shared {
		return true
	}
	if !lookup.SamePackage(invocation, declaring) {
		return false
	}
	return packageChain(declaring, receiver)
}

// packageChain walks the receiver's superclass chain up to the declaring
// class; a package-private member is lost once the chain leaves its package.
func packageChain(declaring, receiver *lookup.TypeBinding) bool {
	if receiver == nil || receiver == declaring || receiver.IsArray() {
		return true
	}
	pkg := declaring.PackageName()
	for c := receiver; c != nil; c = c.Superclass() {
		if c == declaring {
			return true
		}
		if c.PackageName() != pkg {
			return false
		}
	}
	return true
}
