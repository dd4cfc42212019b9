package lookup

import (
	"strings"

	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

// Resolution holds everything a Resolver learned about one compilation
// unit. Problem bindings are recorded too, so consumers can tell an
// unresolved reference from a missing one.
type Resolution struct {
	// Exprs maps every expression with a value to its static type.
	Exprs map[jast.Expr]*TypeBinding
	// Fields maps *jast.Ident and *jast.FieldAccess nodes naming a field.
	Fields map[jast.Expr]*FieldBinding
	// Locals maps local declarations (*jast.LocalVarDecl, *jast.Param) and
	// the identifiers referring to them.
	Locals       map[jast.Node]*LocalBinding
	Methods      map[*jast.MethodCall]*MethodBinding
	Constructors map[jast.Node]*MethodBinding
	// TypeNames maps expressions that denote a type, such as the qualifier
	// of a static member access.
	TypeNames map[jast.Expr]*TypeBinding
	Packages  map[jast.Expr]string
	TypeRefs  map[*jast.TypeRef]*TypeBinding
	Imports   map[*jast.ImportDecl]*TypeBinding
	// Receivers records the implicit receiver of unqualified member
	// accesses and of this expressions.
	Receivers  map[jast.Expr]Implicit
	LocalTypes map[*jast.TypeDecl]*TypeBinding
	// Writes marks assignment targets; the value is true for compound
	// assignments and updates, which read the target too.
	Writes map[jast.Expr]bool
	// Varargs marks calls whose trailing arguments are collected into an array.
	Varargs  map[jast.Node]bool
	Problems []types.Problem
	// UnresolvedImports counts imports that did not resolve.
	UnresolvedImports int
}

func newResolution() *Resolution {
	return &Resolution{
		Exprs:        make(map[jast.Expr]*TypeBinding),
		Fields:       make(map[jast.Expr]*FieldBinding),
		Locals:       make(map[jast.Node]*LocalBinding),
		Methods:      make(map[*jast.MethodCall]*MethodBinding),
		Constructors: make(map[jast.Node]*MethodBinding),
		TypeNames:    make(map[jast.Expr]*TypeBinding),
		Packages:     make(map[jast.Expr]string),
		TypeRefs:     make(map[*jast.TypeRef]*TypeBinding),
		Imports:      make(map[*jast.ImportDecl]*TypeBinding),
		Receivers:    make(map[jast.Expr]Implicit),
		LocalTypes:   make(map[*jast.TypeDecl]*TypeBinding),
		Writes:       make(map[jast.Expr]bool),
		Varargs:      make(map[jast.Node]bool),
	}
}

// TypeOf returns the static type of e, or nil.
func (r *Resolution) TypeOf(e jast.Expr) *TypeBinding {
	if e == nil {
		return nil
	}
	return r.Exprs[e]
}

// HasErrors reports whether any error was recorded.
func (r *Resolution) HasErrors() bool { return types.HasErrors(r.Problems) }

// Resolver attributes types and bindings to the expressions of one
// compilation unit. Lookups that are not block locals go through the
// current Scope, which decides visibility and implicit receivers.
type Resolver struct {
	env    *Environment
	unit   *jast.CompilationUnit
	res    *Resolution
	scope  Scope
	frames []*frame

	// Suggest, when set, proposes a replacement for an unresolved simple name.
	Suggest func(name string, scope Scope) string
}

type frame struct {
	locals map[string]*LocalBinding
	types  map[string]*TypeBinding
	// method frames bound the duplicate local check
	method bool
}

// NewResolver creates a resolver for unit.
func NewResolver(env *Environment, unit *jast.CompilationUnit) *Resolver {
	return &Resolver{env: env, unit: unit, res: newResolution()}
}

// Resolution returns the accumulated results.
func (r *Resolver) Resolution() *Resolution { return r.res }

// Environment returns the binding environment.
func (r *Resolver) Environment() *Environment { return r.env }

// ResolveUnit resolves the imports, initializers and method bodies of every
// type declared in the unit using ordinary scopes.
func (r *Resolver) ResolveUnit() {
	r.ResolveImports()
	for _, decl := range r.unit.Types {
		t := r.env.SourceType(decl)
		if t == nil {
			continue
		}
		r.resolveTypeDecl(t, decl, func(ctx Context) Scope { return NewOrdinaryScope(r.env, ctx) })
	}
}

// ResolveBody resolves a method body in scope, with params in scope.
func (r *Resolver) ResolveBody(scope Scope, params []*LocalBinding, body *jast.Block) {
	prev := r.scope
	r.scope = scope
	defer func() { r.scope = prev }()
	r.push(true)
	defer r.pop()
	for _, p := range params {
		r.declare(p)
		if p.Decl != nil {
			r.res.Locals[p.Decl] = p
		}
	}
	r.stmt(body)
}

// ResolveImports resolves the import declarations of the unit.
func (r *Resolver) ResolveImports() {
	for _, imp := range r.unit.Imports {
		var t *TypeBinding
		switch {
		case imp.Static && !imp.OnDemand:
			if i := strings.LastIndexByte(imp.Name, '.'); i > 0 {
				t, _ = r.env.ResolveTypeName(imp.Name[:i], TypeContext{})
			}
		case imp.OnDemand:
			t, _ = r.env.ResolveTypeName(imp.Name, TypeContext{})
			if t == nil && !imp.Static && r.env.IsPackage(imp.Name) {
				continue
			}
		default:
			t, _ = r.env.ResolveTypeName(imp.Name, TypeContext{})
		}
		if t == nil {
			r.res.UnresolvedImports++
			r.problemAt(types.ProblemImportNotFound, imp.NameSpan, "The import %s cannot be resolved", imp.Name)
			continue
		}
		r.res.Imports[imp] = t
	}
}

func (r *Resolver) resolveTypeDecl(t *TypeBinding, decl *jast.TypeDecl, mk func(Context) Scope) {
	prev := r.scope
	defer func() { r.scope = prev }()
	unit := decl.Unit
	if unit == nil {
		unit = r.unit
	}
	base := Context{Type: t, Unit: unit, Vars: t.TypeVariables()}
	r.scope = mk(base)

	if !decl.Anonymous {
		for _, ref := range decl.Interfaces {
			r.headerRef(ref, t)
		}
		if decl.Superclass != nil {
			r.headerRef(decl.Superclass, t)
		}
	}
	for _, tp := range decl.TypeParams {
		for _, b := range tp.Bounds {
			r.typeRef(b)
		}
	}

	for _, f := range decl.Fields {
		ctx := base
		ctx.Static = f.Modifiers.Has(jast.ModStatic) || t.IsInterface() || f.EnumConstant
		r.scope = mk(ctx)
		var ft *TypeBinding
		if f.EnumConstant {
			ft = t
		} else {
			ft = r.typeRef(f.Type)
		}
		r.push(true)
		if f.EnumConstant {
			args := r.args(f.Args)
			ctor := FindConstructor(t, args, t, Ordinary{}, false)
			r.res.Constructors[f] = ctor
			if IsVarargsCall(ctor, args) {
				r.res.Varargs[f] = true
			}
			r.reportMethod(f.NameSpan, ctor, args, t)
		}
		if f.Init != nil {
			r.exprExpected(f.Init, ft)
		}
		r.pop()
	}
	for _, b := range decl.Initializers {
		r.scope = mk(base)
		r.push(true)
		r.stmt(b)
		r.pop()
	}
	for _, m := range decl.Methods {
		r.resolveMethod(t, m, base, mk)
	}
	for _, md := range decl.Types {
		mt := t.MemberType(md.Name)
		if mt == nil {
			continue
		}
		r.resolveTypeDecl(mt, md, mk)
	}
}

// headerRef resolves a supertype reference of t; those are looked up from
// the enclosing type.
func (r *Resolver) headerRef(ref *jast.TypeRef, t *TypeBinding) {
	prev := r.scope
	ctx := Context{Type: t.Enclosing, Unit: r.scope.Context().Unit, Vars: t.TypeVariables()}
	r.scope = r.scope.Nested(ctx)
	r.typeRef(ref)
	r.scope = prev
}

func (r *Resolver) resolveMethod(t *TypeBinding, m *jast.MethodDecl, base Context, mk func(Context) Scope) {
	ctx := base
	ctx.Static = m.Modifiers.Has(jast.ModStatic)
	ctx.Vars = r.env.methodTypeVars(m, TypeContextOf(base))
	r.scope = mk(ctx)
	for _, tp := range m.TypeParams {
		for _, b := range tp.Bounds {
			r.typeRef(b)
		}
	}
	if m.Result != nil {
		r.typeRef(m.Result)
	}
	for _, th := range m.Throws {
		r.typeRef(th)
	}
	r.push(true)
	defer r.pop()
	for _, p := range m.Params {
		pt := r.typeRef(p.Type)
		lb := &LocalBinding{Name: p.Name, Type: pt, Modifiers: p.Modifiers, Decl: p, Parameter: true}
		r.declare(lb)
		r.res.Locals[p] = lb
	}
	if call := m.ExplicitCall; call != nil {
		cctx := ctx
		cctx.ConstructorCall = true
		r.scope = mk(cctx)
		r.constructorCall(call, t)
		r.scope = mk(ctx)
	}
	if m.Body != nil {
		r.stmt(m.Body)
	}
}

func (r *Resolver) constructorCall(call *jast.ConstructorCall, t *TypeBinding) {
	if call.Outer != nil {
		r.expr(call.Outer)
	}
	args := r.args(call.Args)
	target := t
	if call.Super {
		target = t.Superclass()
		if target == nil {
			return
		}
	}
	ctor := FindConstructor(target, args, r.scope.Invocation(), r.scope.Visibility(), call.Super)
	r.res.Constructors[call] = ctor
	if IsVarargsCall(ctor, args) {
		r.res.Varargs[call] = true
	}
	r.reportMethod(call.Span, ctor, args, target)
}

// methodTypeVars extends ctx.Vars with the erasures of the method's type
// parameters.
func (e *Environment) methodTypeVars(m *jast.MethodDecl, ctx TypeContext) map[string]*TypeBinding {
	if len(m.TypeParams) == 0 {
		return ctx.Vars
	}
	vars := make(map[string]*TypeBinding, len(ctx.Vars)+len(m.TypeParams))
	for k, v := range ctx.Vars {
		vars[k] = v
	}
	for _, tp := range m.TypeParams {
		vars[tp.Name] = e.Object()
	}
	ctx.Vars = vars
	for _, tp := range m.TypeParams {
		if len(tp.Bounds) > 0 {
			if b, _ := e.ResolveType(tp.Bounds[0], ctx); b != nil {
				vars[tp.Name] = b
			}
		}
	}
	return vars
}

func (r *Resolver) push(method bool) {
	r.frames = append(r.frames, &frame{
		locals: make(map[string]*LocalBinding),
		types:  make(map[string]*TypeBinding),
		method: method,
	})
}

func (r *Resolver) pop() { r.frames = r.frames[:len(r.frames)-1] }

func (r *Resolver) top() *frame {
	if len(r.frames) == 0 {
		r.push(true)
	}
	return r.frames[len(r.frames)-1]
}

func (r *Resolver) declare(l *LocalBinding) { r.top().locals[l.Name] = l }

func (r *Resolver) lookupLocal(name string) *LocalBinding {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if l := r.frames[i].locals[name]; l != nil {
			return l
		}
	}
	return nil
}

func (r *Resolver) lookupLocalType(name string) *TypeBinding {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if t := r.frames[i].types[name]; t != nil {
			return t
		}
	}
	return nil
}

func (r *Resolver) duplicateLocal(name string) bool {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].locals[name] != nil {
			return true
		}
		if r.frames[i].method {
			return false
		}
	}
	return false
}

// VisibleLocals returns the locals in scope, innermost first.
func (r *Resolver) VisibleLocals() []*LocalBinding {
	var out []*LocalBinding
	seen := make(map[string]bool)
	for i := len(r.frames) - 1; i >= 0; i-- {
		for name, l := range r.frames[i].locals {
			if !seen[name] {
				seen[name] = true
				out = append(out, l)
			}
		}
	}
	return out
}

func (r *Resolver) typeContext() TypeContext {
	tctx := TypeContextOf(r.scope.Context())
	var locals map[string]*TypeBinding
	for _, f := range r.frames {
		for name, t := range f.types {
			if locals == nil {
				locals = make(map[string]*TypeBinding, len(tctx.Vars))
				for k, v := range tctx.Vars {
					locals[k] = v
				}
			}
			locals[name] = t
		}
	}
	if locals != nil {
		tctx.Vars = locals
	}
	return tctx
}

func (r *Resolver) typeRef(ref *jast.TypeRef) *TypeBinding {
	if ref == nil {
		return nil
	}
	for _, a := range ref.Args {
		if a.Wildcard && len(a.Args) == 0 {
			continue
		}
		if a.Wildcard {
			r.typeRef(a.Args[0])
			continue
		}
		r.typeRef(a)
	}
	t, reason := r.env.ResolveType(ref, r.typeContext())
	switch {
	case t == nil && reason == Ambiguous:
		r.problemAt(types.ProblemUndefinedType, ref.Span, "The type %s is ambiguous", ref.Name)
		return nil
	case t == nil:
		r.problemAt(types.ProblemUndefinedType, ref.Span, "%s cannot be resolved to a type", ref.Name)
		return nil
	case reason == Ambiguous:
		r.problemAt(types.ProblemUndefinedType, ref.Span, "The type %s is ambiguous", ref.Name)
	}
	if inv := r.scope.Invocation(); !r.scope.Visibility().TypeVisible(t, inv) {
		r.problemAt(types.ProblemNotVisibleType, ref.Span, "The type %s is not visible", t.QualifiedName())
	}
	r.res.TypeRefs[ref] = t
	return t
}

func (r *Resolver) stmt(s jast.Stmt) {
	switch s := s.(type) {
	case nil:
	case *jast.Block:
		if s == nil {
			return
		}
		r.push(false)
		for _, st := range s.Stmts {
			r.stmt(st)
		}
		r.pop()
	case *jast.LocalVarDecl:
		r.localVar(s)
	case *jast.LocalTypeDecl:
		r.localType(s.Decl)
	case *jast.ExprStmt:
		r.expr(s.X)
	case *jast.ReturnStmt:
		r.expr(s.X)
	case *jast.IfStmt:
		r.expr(s.Cond)
		r.stmt(s.Then)
		r.stmt(s.Else)
	case *jast.WhileStmt:
		r.expr(s.Cond)
		r.stmt(s.Body)
	case *jast.ForStmt:
		r.push(false)
		for _, st := range s.Init {
			r.stmt(st)
		}
		r.expr(s.Cond)
		for _, u := range s.Update {
			r.expr(u)
		}
		r.stmt(s.Body)
		r.pop()
	case *jast.ThrowStmt:
		r.expr(s.X)
	case *jast.ConstructorCall:
		if s == nil {
			return
		}
		if t := r.scope.Context().Type; t != nil {
			r.constructorCall(s, t)
		}
	case *jast.OtherStmt:
		r.push(false)
		r.generic(s.Children)
		r.pop()
	}
}

func (r *Resolver) generic(children []jast.Node) {
	for _, c := range children {
		switch c := c.(type) {
		case *jast.LocalVarDecl:
			r.localVar(c)
		case jast.Stmt:
			r.stmt(c)
		case jast.Expr:
			r.expr(c)
		case *jast.TypeRef:
			r.typeRef(c)
		}
	}
}

func (r *Resolver) localVar(d *jast.LocalVarDecl) {
	var t *TypeBinding
	if d.Type != nil && d.Type.Name != "var" {
		t = r.typeRef(d.Type)
	}
	if d.Init != nil {
		it := r.exprExpected(d.Init, t)
		if d.Type != nil && d.Type.Name == "var" {
			t = it
		}
	}
	if r.duplicateLocal(d.Name) {
		r.problemAt(types.ProblemDuplicateLocal, d.NameSpan, "Duplicate local variable %s", d.Name)
	}
	lb := &LocalBinding{Name: d.Name, Type: t, Modifiers: d.Modifiers, Decl: d}
	r.declare(lb)
	r.res.Locals[d] = lb
}

func (r *Resolver) localType(decl *jast.TypeDecl) {
	if decl == nil {
		return
	}
	t := r.env.BindLocalType(decl, r.scope.Context().Type)
	r.top().types[decl.Name] = t
	r.res.LocalTypes[decl] = t
	r.resolveTypeDecl(t, decl, r.scope.Nested)
}

func (r *Resolver) args(list []jast.Expr) []*TypeBinding {
	out := make([]*TypeBinding, len(list))
	for i, a := range list {
		out[i] = r.expr(a)
	}
	return out
}

func (r *Resolver) exprExpected(e jast.Expr, expected *TypeBinding) *TypeBinding {
	if init, ok := e.(*jast.ArrayInit); ok {
		r.arrayInit(init, expected)
		return expected
	}
	return r.expr(e)
}

func (r *Resolver) arrayInit(init *jast.ArrayInit, t *TypeBinding) {
	if t != nil {
		r.res.Exprs[init] = t
	}
	var elem *TypeBinding
	if t != nil && t.IsArray() {
		elem = t.Elem
	}
	for _, e := range init.Elems {
		r.exprExpected(e, elem)
	}
}

func (r *Resolver) expr(e jast.Expr) *TypeBinding {
	if e == nil {
		return nil
	}
	t := r.expr0(e)
	if t != nil {
		r.res.Exprs[e] = t
	}
	return t
}

func (r *Resolver) primitive(name string) *TypeBinding { return r.env.Primitive(name) }

func (r *Resolver) expr0(e jast.Expr) *TypeBinding {
	switch n := e.(type) {
	case *jast.Literal:
		return r.literal(n)
	case *jast.Paren:
		return r.expr(n.X)
	case *jast.Ident:
		return r.ident(n)
	case *jast.FieldAccess:
		return r.fieldAccess(n)
	case *jast.MethodCall:
		return r.methodCall(n)
	case *jast.New:
		return r.allocation(n)
	case *jast.NewArray:
		et := r.typeRef(n.Elem)
		for _, d := range n.Dims {
			r.expr(d)
		}
		if et == nil {
			return nil
		}
		at := r.env.ArrayOf(et, len(n.Dims))
		if n.Init != nil {
			r.arrayInit(n.Init, at)
		}
		return at
	case *jast.ArrayInit:
		r.arrayInit(n, nil)
		return nil
	case *jast.Binary:
		return r.binary(n)
	case *jast.Unary:
		t := r.expr(n.X)
		if n.Op == "!" {
			return r.primitive("boolean")
		}
		if p := r.promoteUnary(t); p != nil {
			return p
		}
		return t
	case *jast.Update:
		t := r.expr(n.X)
		r.markWrite(n.X, true)
		return t
	case *jast.Assign:
		return r.assign(n)
	case *jast.Cast:
		t := r.typeRef(n.Type)
		r.expr(n.X)
		return t
	case *jast.Conditional:
		r.expr(n.Cond)
		return r.conditionalType(r.expr(n.Then), r.expr(n.Else))
	case *jast.This:
		var q *TypeBinding
		if n.Qualifier != nil {
			q = r.typeRef(n.Qualifier)
		}
		t, recv, reason := r.scope.This(q)
		switch reason {
		case NoProblem:
		case NonStaticReferenceInStaticContext:
			r.problemAt(types.ProblemStaticContext, n.Span, "Cannot use this in a static context")
		case NonStaticReferenceInConstructorInvocation:
			r.problemAt(types.ProblemConstructorInvocation, n.Span, "Cannot refer to 'this' while explicitly invoking a constructor")
		default:
			r.problemAt(types.ProblemUndefinedType, n.Span, "No enclosing instance of the type %s is accessible in scope", typeName(t))
		}
		r.res.Receivers[n] = recv
		return t
	case *jast.Super:
		return r.superType(n)
	case *jast.ClassLit:
		r.typeRef(n.Type)
		return r.env.Type("java/lang/Class")
	case *jast.ArrayAccess:
		at := r.expr(n.X)
		r.expr(n.Index)
		if at != nil && at.IsArray() {
			return at.Elem
		}
		return nil
	case *jast.InstanceOf:
		r.expr(n.X)
		r.typeRef(n.Type)
		return r.primitive("boolean")
	case *jast.OtherExpr:
		r.push(false)
		r.generic(n.Children)
		r.pop()
	}
	return nil
}

func (r *Resolver) literal(n *jast.Literal) *TypeBinding {
	switch n.Kind {
	case jast.LitInt:
		return r.primitive("int")
	case jast.LitLong:
		return r.primitive("long")
	case jast.LitFloat:
		return r.primitive("float")
	case jast.LitDouble:
		return r.primitive("double")
	case jast.LitChar:
		return r.primitive("char")
	case jast.LitBool:
		return r.primitive("boolean")
	case jast.LitString:
		return r.env.StringType()
	}
	return r.env.Null()
}

func (r *Resolver) ident(n *jast.Ident) *TypeBinding {
	if l := r.lookupLocal(n.Name); l != nil {
		r.res.Locals[n] = l
		return l.Type
	}
	name := r.scope.LookupName(n.Name)
	if name.Local == nil && name.Field == nil {
		if lt := r.lookupLocalType(n.Name); lt != nil {
			r.res.TypeNames[n] = lt
			return nil
		}
	}
	return r.bindName(n, n.Span, n.Name, name)
}

func (r *Resolver) bindName(n jast.Expr, at jast.Span, simple string, name Name) *TypeBinding {
	switch {
	case name.Local != nil:
		r.res.Locals[n] = name.Local
		return name.Local.Type
	case name.Field != nil:
		f := name.Field
		if name.Problem != NoProblem && f.Problem == NoProblem {
			f = f.WithProblem(name.Problem)
		}
		r.res.Fields[n] = f
		if name.Receiver.Kind != ReceiverNone {
			r.res.Receivers[n] = name.Receiver
		}
		r.reportField(at, f, nil)
		return f.Type
	case name.Type != nil:
		r.res.TypeNames[n] = name.Type
		if name.Problem == Ambiguous {
			r.problemAt(types.ProblemUndefinedType, at, "The type %s is ambiguous", simple)
		}
		return nil
	case name.Package != "":
		r.res.Packages[n] = name.Package
		return nil
	}
	p := types.NewError(types.ProblemUndefinedName, at.Start, at.End-1, r.line(at.Start), "%s cannot be resolved", simple)
	if name.Problem == Ambiguous {
		p = types.NewError(types.ProblemUndefinedType, at.Start, at.End-1, r.line(at.Start), "The type %s is ambiguous", simple)
	} else if r.Suggest != nil {
		p.Suggestion = r.Suggest(simple, r.scope)
	}
	r.res.Problems = append(r.res.Problems, p)
	return nil
}

func (r *Resolver) fieldAccess(n *jast.FieldAccess) *TypeBinding {
	if sup, ok := n.X.(*jast.Super); ok {
		st := r.superType(sup)
		if st == nil {
			return nil
		}
		f := FindField(st, n.Name, r.scope.Invocation(), r.scope.Visibility(), true)
		r.res.Fields[n] = f
		r.reportField(n.NameSpan, f, st)
		return f.Type
	}
	qt := r.expr(n.X)
	if qt != nil {
		if qt.IsPrimitive() {
			r.problemAt(types.ProblemUndefinedField, n.NameSpan, "Cannot access %s on the primitive type %s", n.Name, qt.Name)
			return nil
		}
		f := FindField(qt, n.Name, r.scope.Invocation(), r.scope.Visibility(), false)
		r.res.Fields[n] = f
		r.reportField(n.NameSpan, f, qt)
		return f.Type
	}
	if typ := r.res.TypeNames[n.X]; typ != nil {
		f := FindField(typ, n.Name, r.scope.Invocation(), r.scope.Visibility(), false)
		if f.IsValid() || f.Problem != NotFound {
			if f.IsValid() && !f.IsStatic() {
				f = f.WithProblem(NonStaticReferenceInStaticContext)
			}
			r.res.Fields[n] = f
			r.reportField(n.NameSpan, f, typ)
			return f.Type
		}
		if mt := FindMemberType(typ, n.Name); mt != nil {
			r.res.TypeNames[n] = mt
			return nil
		}
		r.res.Fields[n] = f
		r.reportField(n.NameSpan, f, typ)
		return nil
	}
	if pkg, ok := r.res.Packages[n.X]; ok {
		if t := r.env.TopLevel(pkg, n.Name); t != nil {
			r.res.TypeNames[n] = t
			return nil
		}
		q := pkg + "." + n.Name
		if r.env.IsPackage(q) {
			r.res.Packages[n] = q
			return nil
		}
		r.problemAt(types.ProblemUndefinedType, n.Span, "%s cannot be resolved to a type", q)
	}
	return nil
}

func (r *Resolver) methodCall(n *jast.MethodCall) *TypeBinding {
	var m *MethodBinding
	var receiver *TypeBinding
	switch x := n.X.(type) {
	case nil:
		args := r.args(n.Args)
		var recv Implicit
		m, recv = r.scope.LookupMethod(n.Name, args)
		if recv.Kind != ReceiverNone {
			r.res.Receivers[n] = recv
		}
		return r.finishCall(n, m, args, recv.Type)
	case *jast.Super:
		st := r.superType(x)
		args := r.args(n.Args)
		if st == nil {
			return nil
		}
		m = FindMethod(st, n.Name, args, r.scope.Invocation(), r.scope.Visibility(), true)
		return r.finishCall(n, m, args, st)
	default:
		receiver = r.expr(x)
		args := r.args(n.Args)
		if receiver != nil {
			if receiver.IsPrimitive() {
				r.problemAt(types.ProblemUndefinedMethod, n.NameSpan, "Cannot invoke %s on the primitive type %s", callSignature(n.Name, args), receiver.Name)
				return nil
			}
			m = FindMethod(receiver, n.Name, args, r.scope.Invocation(), r.scope.Visibility(), false)
			return r.finishCall(n, m, args, receiver)
		}
		if typ := r.res.TypeNames[x]; typ != nil {
			m = FindMethod(typ, n.Name, args, r.scope.Invocation(), r.scope.Visibility(), false)
			if m.IsValid() && !m.IsStatic() {
				m = m.WithProblem(NonStaticReferenceInStaticContext)
			}
			return r.finishCall(n, m, args, typ)
		}
		return nil
	}
}

func (r *Resolver) finishCall(n *jast.MethodCall, m *MethodBinding, args []*TypeBinding, receiver *TypeBinding) *TypeBinding {
	r.res.Methods[n] = m
	if m.IsValid() && IsVarargsCall(m, args) {
		r.res.Varargs[n] = true
	}
	r.reportMethod(n.NameSpan, m, args, receiver)
	return m.Return
}

func (r *Resolver) allocation(n *jast.New) *TypeBinding {
	var t *TypeBinding
	if n.Outer != nil {
		ot := r.expr(n.Outer)
		if ot != nil {
			t = FindMemberType(ot, n.Type.Name)
			if t == nil {
				r.problemAt(types.ProblemUndefinedType, n.Type.Span, "%s cannot be resolved to a type", n.Type.Name)
			} else {
				r.res.TypeRefs[n.Type] = t
			}
		}
	} else {
		t = r.typeRef(n.Type)
	}
	args := r.args(n.Args)
	if t == nil {
		return nil
	}
	if n.Body != nil {
		anon := r.env.BindLocalType(n.Body, r.scope.Context().Type)
		anon.SetAnonymousSupertype(t)
		r.res.LocalTypes[n.Body] = anon
		super := t
		if t.IsInterface() {
			super = r.env.Object()
		}
		ctor := FindConstructor(super, args, r.scope.Invocation(), r.scope.Visibility(), true)
		r.res.Constructors[n] = ctor
		if ctor.IsValid() && IsVarargsCall(ctor, args) {
			r.res.Varargs[n] = true
		}
		r.reportMethod(n.Type.Span, ctor, args, super)
		r.resolveTypeDecl(anon, n.Body, r.scope.Nested)
		return anon
	}
	if t.IsInterface() || t.Modifiers.Has(jast.ModAbstract) {
		r.problemAt(types.ProblemAbstractInstantiation, n.Type.Span, "Cannot instantiate the type %s", t.SimpleName())
		return t
	}
	ctor := FindConstructor(t, args, r.scope.Invocation(), r.scope.Visibility(), false)
	r.res.Constructors[n] = ctor
	if ctor.IsValid() && IsVarargsCall(ctor, args) {
		r.res.Varargs[n] = true
	}
	r.reportMethod(n.Type.Span, ctor, args, t)
	return t
}

func (r *Resolver) superType(s *jast.Super) *TypeBinding {
	if !r.scope.SuperAllowed() {
		r.problemAt(types.ProblemSuperInSnippet, s.Span, "Cannot use super in a code snippet")
		return nil
	}
	ctx := r.scope.Context()
	if ctx.Static {
		r.problemAt(types.ProblemStaticContext, s.Span, "Cannot use super in a static context")
		return nil
	}
	base := ctx.Type
	if s.Qualifier != nil {
		q := r.typeRef(s.Qualifier)
		if q == nil {
			return nil
		}
		if q.IsInterface() {
			r.res.Exprs[s] = q
			return q
		}
		base = q
	}
	if base == nil {
		return nil
	}
	st := base.Superclass()
	if st == nil {
		st = r.env.Object()
	}
	r.res.Exprs[s] = st
	return st
}

func (r *Resolver) assign(n *jast.Assign) *TypeBinding {
	lt := r.expr(n.L)
	r.markWrite(n.L, n.Op != "=")
	rt := r.exprExpected(n.R, lt)
	switch jast.Unparen(n.L).(type) {
	case *jast.Ident, *jast.FieldAccess, *jast.ArrayAccess:
	default:
		s, e := n.L.Pos()
		r.problemAt(types.ProblemInvalidLeftHandSide, jast.Span{Start: s, End: e},
			"The left-hand side of an assignment must be a variable")
	}
	if n.Op == "=" && incompatible(rt, lt) {
		r.problemAt(types.ProblemTypeMismatch, n.Span, "Type mismatch: cannot convert from %s to %s", typeName(rt), typeName(lt))
	}
	return lt
}

// incompatible reports assignments that are wrong whatever the erased type
// arguments were: boolean and numeric mixes and primitives boxed into an
// unrelated class.
func incompatible(from, to *TypeBinding) bool {
	if from == nil || to == nil || IsConvertible(from, to) {
		return false
	}
	if from.IsPrimitive() && to.IsPrimitive() {
		return from.IsNumeric() != to.IsNumeric()
	}
	if from.IsPrimitive() && !to.IsPrimitive() {
		return to.Kind != TypeArray && to.Name != "java/lang/Object"
	}
	return false
}

func (r *Resolver) markWrite(e jast.Expr, alsoRead bool) {
	e = jast.Unparen(e)
	switch e.(type) {
	case *jast.Ident, *jast.FieldAccess:
		r.res.Writes[e] = alsoRead
	}
}

func (r *Resolver) unboxed(t *TypeBinding) *TypeBinding {
	if t == nil || t.IsPrimitive() {
		return t
	}
	return r.env.Unbox(t)
}

// promoteBinary applies binary numeric promotion; nil when either operand
// is not convertible to a numeric type.
func (r *Resolver) promoteBinary(a, b *TypeBinding) *TypeBinding {
	a, b = r.unboxed(a), r.unboxed(b)
	if a == nil || b == nil || !a.IsNumeric() || !b.IsNumeric() {
		return nil
	}
	for _, name := range []string{"double", "float", "long"} {
		if a.Name == name || b.Name == name {
			return r.primitive(name)
		}
	}
	return r.primitive("int")
}

func (r *Resolver) promoteUnary(t *TypeBinding) *TypeBinding {
	t = r.unboxed(t)
	if t == nil || !t.IsNumeric() {
		return nil
	}
	switch t.Name {
	case "byte", "short", "char":
		return r.primitive("int")
	}
	return t
}

func (r *Resolver) binary(n *jast.Binary) *TypeBinding {
	lt := r.expr(n.L)
	rt := r.expr(n.R)
	boolean := r.primitive("boolean")
	switch n.Op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return boolean
	case "+":
		str := r.env.StringType()
		if lt == str || rt == str {
			return str
		}
	case "<<", ">>", ">>>":
		return r.promoteUnary(lt)
	case "&", "|", "^":
		if r.unboxed(lt) == boolean && r.unboxed(rt) == boolean {
			return boolean
		}
	}
	if p := r.promoteBinary(lt, rt); p != nil {
		return p
	}
	if lt != nil && rt != nil && operandsKnown(lt, rt) {
		r.problemAt(types.ProblemUndefinedOperator, jast.Span{Start: n.OpPos, End: n.OpPos + len(n.Op)},
			"The operator %s is undefined for the argument type(s) %s, %s", n.Op, typeName(lt), typeName(rt))
	}
	return nil
}

// operandsKnown excludes Object operands, which are usually erased type
// variables whose real type is not tracked.
func operandsKnown(a, b *TypeBinding) bool {
	return a.Name != "java/lang/Object" && b.Name != "java/lang/Object" &&
		a.Kind != TypeNull && b.Kind != TypeNull
}

func (r *Resolver) conditionalType(a, b *TypeBinding) *TypeBinding {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a == b:
		return a
	case a.Kind == TypeNull:
		return r.env.Box(b)
	case b.Kind == TypeNull:
		return r.env.Box(a)
	}
	if p := r.promoteBinary(a, b); p != nil && (a.IsPrimitive() || b.IsPrimitive()) {
		return p
	}
	if a.IsCompatibleWith(b) {
		return b
	}
	if b.IsCompatibleWith(a) {
		return a
	}
	return r.env.Object()
}

func (r *Resolver) line(offset int) int {
	if r.unit == nil {
		return 0
	}
	return r.unit.Line(offset)
}

func (r *Resolver) problemAt(id types.ProblemID, at jast.Span, format string, args ...string) {
	r.res.Problems = append(r.res.Problems, types.NewError(id, at.Start, at.End-1, r.line(at.Start), format, args...))
}

func (r *Resolver) reportField(at jast.Span, f *FieldBinding, receiver *TypeBinding) {
	switch f.Problem {
	case NoProblem:
		return
	case NotFound:
		p := types.NewError(types.ProblemUndefinedField, at.Start, at.End-1, r.line(at.Start),
			"%s cannot be resolved or is not a field", f.Name)
		if receiver == nil {
			p = types.NewError(types.ProblemUndefinedName, at.Start, at.End-1, r.line(at.Start), "%s cannot be resolved", f.Name)
			if r.Suggest != nil {
				p.Suggestion = r.Suggest(f.Name, r.scope)
			}
		}
		r.res.Problems = append(r.res.Problems, p)
	case NotVisible:
		r.problemAt(types.ProblemNotVisibleField, at, "The field %s.%s is not visible", typeName(f.Declaring), f.Name)
	case Ambiguous:
		r.problemAt(types.ProblemAmbiguousField, at, "The field %s is ambiguous", f.Name)
	case NonStaticReferenceInStaticContext:
		r.problemAt(types.ProblemStaticContext, at, "Cannot make a static reference to the non-static field %s", f.Name)
	case NonStaticReferenceInConstructorInvocation:
		r.problemAt(types.ProblemConstructorInvocation, at, "Cannot refer to an instance field %s while explicitly invoking a constructor", f.Name)
	case InheritedNameHidesEnclosingName:
		r.problemAt(types.ProblemInheritedNameHidesOuter, at, "The field %s is defined in an inherited type and an enclosing scope", f.Name)
	}
}

func (r *Resolver) reportMethod(at jast.Span, m *MethodBinding, args []*TypeBinding, receiver *TypeBinding) {
	sig := callSignature(m.Name, args)
	switch {
	case m.Problem == NoProblem:
		return
	case m.Constructor && m.Problem == NotFound:
		r.problemAt(types.ProblemUndefinedConstructor, at, "The constructor %s is undefined", sig)
	case m.Constructor && m.Problem == NotVisible:
		r.problemAt(types.ProblemNotVisibleConstructor, at, "The constructor %s is not visible", sig)
	case m.Constructor && m.Problem == Ambiguous:
		r.problemAt(types.ProblemAmbiguousConstructor, at, "The constructor %s is ambiguous", sig)
	case m.Problem == NotFound:
		r.problemAt(types.ProblemUndefinedMethod, at, "The method %s is undefined for the type %s", sig, typeName(receiver))
	case m.Problem == NotVisible:
		r.problemAt(types.ProblemNotVisibleMethod, at, "The method %s from the type %s is not visible", sig, typeName(m.Declaring))
	case m.Problem == Ambiguous:
		r.problemAt(types.ProblemAmbiguousMethod, at, "The method %s is ambiguous for the type %s", sig, typeName(receiver))
	case m.Problem == NonStaticReferenceInStaticContext:
		r.problemAt(types.ProblemStaticContext, at, "Cannot make a static reference to the non-static method %s from the type %s", sig, typeName(m.Declaring))
	case m.Problem == NonStaticReferenceInConstructorInvocation:
		r.problemAt(types.ProblemConstructorInvocation, at, "Cannot refer to an instance method %s while explicitly invoking a constructor", sig)
	case m.Problem == InheritedNameHidesEnclosingName:
		r.problemAt(types.ProblemInheritedNameHidesOuter, at, "The method %s is defined in an inherited type and an enclosing scope", sig)
	}
}

func callSignature(name string, args []*TypeBinding) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = simpleTypeName(a)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func simpleTypeName(t *TypeBinding) string {
	if t == nil {
		return "?"
	}
	return t.SimpleName()
}

func typeName(t *TypeBinding) string {
	if t == nil {
		return "?"
	}
	return t.QualifiedName()
}
