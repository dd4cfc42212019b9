package lookup

import (
	"github.com/dshills/javacontext-mcp/internal/jast"
)

// Context is the lexical position an expression is resolved in.
type Context struct {
	// Type is the innermost enclosing type.
	Type *TypeBinding
	Unit *jast.CompilationUnit
	// Static is set inside static methods, static initializers and static
	// field initializers.
	Static bool
	// ConstructorCall is set while resolving the arguments of an explicit
	// this(...) or super(...) call.
	ConstructorCall bool
	// Vars holds the method type variables in scope.
	Vars map[string]*TypeBinding
}

// ReceiverKind tells how the implicit receiver of an unqualified member
// access is obtained.
type ReceiverKind int

const (
	// ReceiverNone is used for static members and locals.
	ReceiverNone ReceiverKind = iota
	// ReceiverThis is the current instance.
	ReceiverThis
	// ReceiverEnclosing is an instance of an enclosing type.
	ReceiverEnclosing
	// ReceiverCaptured is an instance held in a synthetic field of the
	// current instance.
	ReceiverCaptured
)

// Implicit describes the receiver of an unqualified field or method.
type Implicit struct {
	Kind ReceiverKind
	// Type is the static type of the receiver.
	Type *TypeBinding
	// Field is the synthetic field holding a captured receiver.
	Field *FieldBinding
}

// Name is the meaning of a simple name. Exactly one of Local, Field, Type
// and Package is set unless Problem is NotFound.
type Name struct {
	Local    *LocalBinding
	Field    *FieldBinding
	Type     *TypeBinding
	Package  string
	Receiver Implicit
	Problem  ProblemReason
}

// Scope is the lookup policy the Resolver delegates to once block locals
// have been searched.
type Scope interface {
	Context() Context
	// Visibility applies to qualified member accesses.
	Visibility() Visibility
	// Invocation is the type whose access rights govern qualified accesses.
	Invocation() *TypeBinding
	LookupName(name string) Name
	LookupMethod(name string, args []*TypeBinding) (*MethodBinding, Implicit)
	// This resolves this or Qualifier.this.
	This(qualifier *TypeBinding) (*TypeBinding, Implicit, ProblemReason)
	// SuperAllowed reports whether super references may be resolved.
	SuperAllowed() bool
	// Nested returns the scope for the members of a local or anonymous
	// class declared in this scope.
	Nested(ctx Context) Scope
}

// TypeContextOf returns the type lookup context of a scope context.
func TypeContextOf(ctx Context) TypeContext {
	return TypeContext{Type: ctx.Type, Unit: ctx.Unit, Vars: ctx.Vars}
}

// OrdinaryScope applies the lookup rules of a regular compiler.
type OrdinaryScope struct {
	env *Environment
	ctx Context
}

// NewOrdinaryScope creates a scope for code lexically inside ctx.Type.
func NewOrdinaryScope(env *Environment, ctx Context) *OrdinaryScope {
	return &OrdinaryScope{env: env, ctx: ctx}
}

// Context implements Scope.
func (s *OrdinaryScope) Context() Context { return s.ctx }

// Visibility implements Scope.
func (s *OrdinaryScope) Visibility() Visibility { return Ordinary{} }

// Invocation implements Scope.
func (s *OrdinaryScope) Invocation() *TypeBinding { return s.ctx.Type }

// SuperAllowed implements Scope.
func (s *OrdinaryScope) SuperAllowed() bool { return true }

// Nested implements Scope.
func (s *OrdinaryScope) Nested(ctx Context) Scope { return NewOrdinaryScope(s.env, ctx) }

// LookupName implements Scope. Fields of the innermost type declaring the
// name win; then types, then packages.
func (s *OrdinaryScope) LookupName(name string) Name {
	fallback := Name{Problem: NotFound}
	static := s.ctx.Static
	for t := s.ctx.Type; t != nil; t = t.Enclosing {
		f := FindField(t, name, s.ctx.Type, Ordinary{}, false)
		if f.IsValid() {
			n := Name{Field: f}
			if !f.IsStatic() {
				switch {
				case t == s.ctx.Type && s.ctx.ConstructorCall:
					n.Problem = NonStaticReferenceInConstructorInvocation
				case static:
					n.Problem = NonStaticReferenceInStaticContext
				}
				n.Receiver = implicitFor(t, s.ctx.Type)
			}
			return n
		}
		if f.Problem != NotFound && fallback.Problem == NotFound {
			fallback = Name{Field: f, Problem: f.Problem}
		}
		if t.IsStatic() {
			static = true
		}
	}
	if f := staticImportField(s.env, s.ctx, name); f != nil {
		return Name{Field: f}
	}
	if fallback.Problem != NotFound {
		return fallback
	}
	return lookupTypeOrPackage(s.env, TypeContextOf(s.ctx), name)
}

func lookupTypeOrPackage(env *Environment, tctx TypeContext, name string) Name {
	if t, reason := env.ResolveTypeName(name, tctx); t != nil {
		return Name{Type: t, Problem: reason}
	} else if reason == Ambiguous {
		return Name{Problem: Ambiguous}
	}
	if env.IsPackage(name) {
		return Name{Package: name}
	}
	return Name{Problem: NotFound}
}

func implicitFor(t, current *TypeBinding) Implicit {
	if t == current {
		return Implicit{Kind: ReceiverThis, Type: t}
	}
	return Implicit{Kind: ReceiverEnclosing, Type: t}
}

// LookupMethod implements Scope. The innermost enclosing type that has a
// method of that name decides the outcome.
func (s *OrdinaryScope) LookupMethod(name string, args []*TypeBinding) (*MethodBinding, Implicit) {
	static := s.ctx.Static
	for t := s.ctx.Type; t != nil; t = t.Enclosing {
		candidates := CollectMethods(t, name)
		if len(candidates) == 0 {
			if t.IsStatic() {
				static = true
			}
			continue
		}
		m := SelectMethod(candidates, name, args, nil, s.ctx.Type, Ordinary{}, false)
		if !m.IsValid() || m.IsStatic() {
			return m, Implicit{}
		}
		switch {
		case t == s.ctx.Type && s.ctx.ConstructorCall:
			m = m.WithProblem(NonStaticReferenceInConstructorInvocation)
		case static:
			m = m.WithProblem(NonStaticReferenceInStaticContext)
		}
		return m, implicitFor(t, s.ctx.Type)
	}
	if m := staticImportMethod(s.env, s.ctx, name, args); m != nil {
		return m, Implicit{}
	}
	return &MethodBinding{Name: name, Problem: NotFound}, Implicit{}
}

// This implements Scope.
func (s *OrdinaryScope) This(qualifier *TypeBinding) (*TypeBinding, Implicit, ProblemReason) {
	if qualifier == nil || qualifier == s.ctx.Type {
		if s.ctx.Static {
			return s.ctx.Type, Implicit{}, NonStaticReferenceInStaticContext
		}
		if s.ctx.ConstructorCall {
			return s.ctx.Type, Implicit{}, NonStaticReferenceInConstructorInvocation
		}
		return s.ctx.Type, Implicit{Kind: ReceiverThis, Type: s.ctx.Type}, NoProblem
	}
	static := s.ctx.Static
	for t := s.ctx.Type; t != nil; t = t.Enclosing {
		if t == qualifier {
			if static {
				return t, Implicit{}, NonStaticReferenceInStaticContext
			}
			return t, Implicit{Kind: ReceiverEnclosing, Type: t}, NoProblem
		}
		if t.IsStatic() {
			static = true
		}
	}
	return qualifier, Implicit{}, NotFound
}

// staticImportField resolves a name against the static imports of the unit.
func staticImportField(env *Environment, ctx Context, name string) *FieldBinding {
	if ctx.Unit == nil {
		return nil
	}
	for _, imp := range ctx.Unit.Imports {
		if !imp.Static || (!imp.OnDemand && imp.SimpleName() != name) {
			continue
		}
		container := imp.Name
		if !imp.OnDemand {
			container = imp.Name[:len(imp.Name)-len(name)-1]
		}
		t, _ := env.ResolveTypeName(container, TypeContext{})
		if t == nil {
			continue
		}
		if f := FindField(t, name, ctx.Type, Ordinary{}, false); f.IsValid() && f.IsStatic() {
			return f
		}
	}
	return nil
}

func staticImportMethod(env *Environment, ctx Context, name string, args []*TypeBinding) *MethodBinding {
	if ctx.Unit == nil {
		return nil
	}
	var candidates []*MethodBinding
	for _, imp := range ctx.Unit.Imports {
		if !imp.Static || (!imp.OnDemand && imp.SimpleName() != name) {
			continue
		}
		container := imp.Name
		if !imp.OnDemand {
			container = imp.Name[:len(imp.Name)-len(name)-1]
		}
		t, _ := env.ResolveTypeName(container, TypeContext{})
		if t == nil {
			continue
		}
		for _, m := range CollectMethods(t, name) {
			if m.IsStatic() {
				candidates = append(candidates, m)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return SelectMethod(candidates, name, args, nil, ctx.Type, Ordinary{}, false)
}

// WithProblem returns a problem binding that keeps m as its closest match.
func (m *MethodBinding) WithProblem(reason ProblemReason) *MethodBinding {
	c := *m
	c.Problem = reason
	c.Closest = m
	return &c
}

// WithProblem returns a problem binding that keeps f as its closest match.
func (f *FieldBinding) WithProblem(reason ProblemReason) *FieldBinding {
	c := *f
	c.Problem = reason
	c.Closest = f
	return &c
}
