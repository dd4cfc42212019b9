package eval

import (
	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/lookup"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

// Access is how generated code reaches a member.
type Access int

const (
	// AccessDirect uses getfield, putfield and the invoke instructions.
	AccessDirect Access = iota
	// AccessReflective goes through java.lang.reflect with setAccessible.
	AccessReflective
)

func (a Access) String() string {
	if a == AccessReflective {
		return "reflective"
	}
	return "direct"
}

// Analysis records, for every member reference of a resolved body, whether
// the generated class may name the member directly. The snippet was
// resolved with the access rights of the declaring type, but the class
// file runs with those of the generated class, so anything the JVM would
// refuse is reached reflectively.
type Analysis struct {
	Fields       map[jast.Expr]Access
	Methods      map[*jast.MethodCall]Access
	Constructors map[*jast.New]Access
	Problems     []types.Problem
}

type analyzer struct {
	res   *lookup.Resolution
	unit  *jast.CompilationUnit
	class *lookup.TypeBinding
	nest  *nesting
	// current is the class whose code is visited; nested is set while
	// visiting a nested class.
	current *lookup.TypeBinding
	nested  *nestedClass
	finals  map[*lookup.FieldBinding]bool
	out     *Analysis
}

// analyze plans member access for the run() body of the snippet class and
// for the nested classes it declares, and reports the constructs the code
// generator does not support. finals holds the fields of captured locals
// that were final in the captured frame.
func analyze(res *lookup.Resolution, unit *jast.CompilationUnit, body *jast.Block, nest *nesting, finals map[*lookup.FieldBinding]bool) *Analysis {
	a := &analyzer{
		res:     res,
		unit:    unit,
		class:   nest.snippet,
		nest:    nest,
		current: nest.snippet,
		finals:  finals,
		out: &Analysis{
			Fields:       make(map[jast.Expr]Access),
			Methods:      make(map[*jast.MethodCall]Access),
			Constructors: make(map[*jast.New]Access),
		},
	}
	if body != nil {
		jast.Inspect(body, a.visit)
	}
	return a.out
}

func (a *analyzer) visit(n jast.Node) bool {
	switch n := n.(type) {
	case *jast.OtherStmt:
		a.unsupported(n.Span, n.Kind+" statements are not supported in a code snippet")
		return false
	case *jast.OtherExpr:
		a.unsupported(n.Span, n.Kind+" expressions are not supported in a code snippet")
		return false
	case *jast.LocalTypeDecl:
		a.nestedClass(a.nest.of(a.res.LocalTypes[n.Decl]), n.Decl)
		return false
	case *jast.ConstructorCall:
		if a.nested == nil {
			a.unsupported(n.Span, "Constructor invocations are not supported in a code snippet")
			return false
		}
	case *jast.Literal:
		if _, err := literalValue(n); err != nil {
			a.problem(types.ProblemSyntax, n.Span, "Invalid literal "+n.Text)
		}
	case *jast.This:
		if recv := a.res.Receivers[n]; recv.Kind == lookup.ReceiverEnclosing {
			a.enclosing(n.Span, recv.Type)
		}
	case *jast.Ident:
		if f := a.res.Fields[n]; f != nil {
			a.field(n, n.Span, f, a.implicitType(n))
		}
	case *jast.FieldAccess:
		if f := a.res.Fields[n]; f != nil {
			_, super := n.X.(*jast.Super)
			a.field(n, n.NameSpan, f, a.res.TypeOf(n.X))
			if super && a.out.Fields[n] == AccessReflective {
				a.unsupported(n.NameSpan, "Reading the inaccessible field "+f.Name+" through super is not supported in a code snippet")
			}
		}
	case *jast.MethodCall:
		if m := a.res.Methods[n]; m != nil && m.IsValid() {
			recv := a.implicitType(n)
			_, super := n.X.(*jast.Super)
			if n.X != nil {
				recv = a.res.TypeOf(n.X)
			}
			a.out.Methods[n] = a.methodAccess(m, recv, super)
			if super && a.out.Methods[n] == AccessReflective {
				a.unsupported(n.NameSpan, "Calling the inaccessible method "+m.Name+" through super is not supported in a code snippet")
			}
		}
	case *jast.New:
		return a.allocation(n)
	case *jast.Assign:
		a.write(n.L)
	case *jast.Update:
		a.write(n.X)
	}
	return true
}

func (a *analyzer) allocation(n *jast.New) bool {
	if n.Body != nil {
		nc := a.nest.of(a.res.LocalTypes[n.Body])
		if n.Outer != nil {
			a.unsupported(n.Span, "Qualified anonymous classes are not supported in a code snippet")
			return false
		}
		for _, arg := range n.Args {
			jast.Inspect(arg, a.visit)
		}
		a.nestedClass(nc, n.Body)
		return false
	}
	t := a.res.TypeRefs[n.Type]
	c := a.res.Constructors[n]
	if nc := a.nest.of(t); nc != nil {
		if nc.outer != nil {
			a.enclosing(n.Type.Span, nc.outer)
		}
		if c != nil && c.Modifiers.Has(jast.ModPrivate) && t != a.current {
			a.unsupported(n.Type.Span, "Calling the private constructor of "+t.SimpleName()+" from another class is not supported in a code snippet")
		}
		return true
	}
	if c == nil || !c.IsValid() {
		return true
	}
	access := a.methodAccess(c, nil, false)
	a.out.Constructors[n] = access
	if lookup.IsInnerMember(t) {
		if n.Outer == nil {
			a.enclosing(n.Type.Span, t.Enclosing)
		}
		if access == AccessReflective {
			a.unsupported(n.Type.Span, "Allocating the inaccessible inner class "+t.SimpleName()+" is not supported in a code snippet")
		}
	}
	return true
}

// nestedClass visits the body of a local or anonymous class with the
// access rights of its own class file.
func (a *analyzer) nestedClass(nc *nestedClass, decl *jast.TypeDecl) {
	if nc == nil {
		a.problem(types.ProblemInternal, decl.Span, "The nested class "+decl.Name+" was not resolved")
		return
	}
	prevCurrent, prevNested := a.current, a.nested
	a.current, a.nested = nc.t, nc
	defer func() { a.current, a.nested = prevCurrent, prevNested }()

	if decl.Kind != jast.KindClass {
		a.unsupported(decl.NameSpan, "Local "+decl.Kind.String()+" types are not supported in a code snippet")
		return
	}
	if len(decl.Types) > 0 {
		a.unsupported(decl.Types[0].NameSpan, "Member types of local classes are not supported in a code snippet")
		return
	}
	for _, f := range decl.Fields {
		if f.Modifiers.Has(jast.ModStatic) {
			a.unsupported(f.NameSpan, "Static fields of local classes are not supported in a code snippet")
		}
	}
	for _, m := range decl.Methods {
		if m.Modifiers.Has(jast.ModStatic) {
			a.unsupported(m.NameSpan, "Static methods of local classes are not supported in a code snippet")
		}
	}
	super := nc.t.Superclass()
	switch {
	case nc.alloc != nil:
		a.superConstructor(nc.alloc.Type.Span, super, a.res.Constructors[nc.alloc])
	case !decl.HasConstructor():
		a.superConstructor(decl.NameSpan, super, noArgConstructor(super))
	}
	for _, m := range decl.Methods {
		a.method(m, super)
	}
	for _, f := range decl.Fields {
		jast.Inspect(f, a.visit)
	}
	for _, b := range decl.Initializers {
		jast.Inspect(b, a.visit)
	}
}

func (a *analyzer) method(m *jast.MethodDecl, super *lookup.TypeBinding) {
	if m.Constructor {
		switch call := m.ExplicitCall; {
		case call == nil:
			a.superConstructor(m.NameSpan, super, noArgConstructor(super))
		case call.Super && call.Outer != nil:
			a.unsupported(call.Span, "Qualified superclass constructor invocations are not supported in a code snippet")
		case call.Super:
			a.superConstructor(call.Span, super, a.res.Constructors[call])
		}
	}
	if m.Body == nil {
		if !m.Modifiers.Has(jast.ModAbstract) {
			a.unsupported(m.NameSpan, "The method "+m.Name+" has no body")
		}
		return
	}
	if !m.Constructor && m.Result != nil && m.Result.Name != "void" && completes(m.Body) {
		a.problem(types.ProblemIncompatibleReturn, m.NameSpan, "This method must return a result of type "+m.Result.Name)
	}
	jast.Inspect(m, a.visit)
}

// superConstructor checks the superclass constructor a nested class calls.
func (a *analyzer) superConstructor(at jast.Span, super *lookup.TypeBinding, c *lookup.MethodBinding) {
	if super == nil {
		return
	}
	if c == nil || !c.IsValid() {
		if c == nil {
			a.problem(types.ProblemUndefinedConstructor, at, "Implicit super constructor "+super.SimpleName()+"() is undefined")
		}
		return
	}
	if !superCallable(c, a.current) || !a.typeVisible(super) {
		a.unsupported(at, "The constructor "+c.String()+" cannot be called from a nested class of a code snippet")
	}
	if lookup.IsInnerMember(super) {
		a.enclosing(at, super.Enclosing)
	}
}

// noArgConstructor returns the constructor an implicit super() calls.
func noArgConstructor(t *lookup.TypeBinding) *lookup.MethodBinding {
	if t == nil {
		return nil
	}
	for _, c := range t.Constructors() {
		if len(c.Params) == 0 {
			return c
		}
	}
	return nil
}

// superCallable applies the JVM access check of invokespecial on a
// superclass constructor.
func superCallable(c *lookup.MethodBinding, current *lookup.TypeBinding) bool {
	switch {
	case c.Modifiers.Has(jast.ModPublic), c.Modifiers.Has(jast.ModProtected):
		return true
	case c.Modifiers.Has(jast.ModPrivate):
		return c.Declaring == current
	}
	return lookup.SamePackage(c.Declaring, current)
}

// completes reports whether execution can fall off the end of s.
func completes(s jast.Stmt) bool {
	switch s := s.(type) {
	case *jast.ReturnStmt, *jast.ThrowStmt:
		return false
	case *jast.Block:
		if s == nil {
			return true
		}
		for _, st := range s.Stmts {
			if !completes(st) {
				return false
			}
		}
	case *jast.IfStmt:
		return s.Else == nil || completes(s.Then) || completes(s.Else)
	case *jast.WhileStmt:
		return !isTrueLiteral(s.Cond)
	case *jast.ForStmt:
		return s.Cond != nil && !isTrueLiteral(s.Cond)
	}
	return true
}

func isTrueLiteral(e jast.Expr) bool {
	lit, ok := jast.Unparen(e).(*jast.Literal)
	return ok && lit.Text == "true"
}

// implicitType returns the static type of the implicit receiver of an
// unqualified member reference, or nil for static members.
func (a *analyzer) implicitType(e jast.Expr) *lookup.TypeBinding {
	recv, ok := a.res.Receivers[e]
	if !ok || recv.Kind == lookup.ReceiverNone {
		return nil
	}
	if recv.Kind == lookup.ReceiverEnclosing {
		s, end := e.Pos()
		a.enclosing(jast.Span{Start: s, End: end}, recv.Type)
	}
	return recv.Type
}

func (a *analyzer) field(e jast.Expr, at jast.Span, f *lookup.FieldBinding, receiver *lookup.TypeBinding) {
	if !f.IsValid() {
		return
	}
	access := AccessReflective
	if f.IsArrayLength() || (a.visible(f.Modifiers, f.Declaring, receiver) && a.typeVisible(f.Declaring) && a.typeVisible(receiver)) {
		access = AccessDirect
	}
	if _, written := a.res.Writes[e]; written && f.Modifiers.Has(jast.ModFinal) && f.Declaring != a.current {
		access = AccessReflective
	}
	a.out.Fields[e] = access
}

func (a *analyzer) methodAccess(m *lookup.MethodBinding, receiver *lookup.TypeBinding, super bool) Access {
	if a.nested == nil && !super {
		vis := lookup.Ordinary{}
		if vis.MethodVisible(m, receiver, a.class, false) && a.typeVisible(m.Declaring) && a.typeVisible(receiver) {
			return AccessDirect
		}
		return AccessReflective
	}
	if m.Constructor && m.Modifiers.Has(jast.ModProtected) && !lookup.SamePackage(m.Declaring, a.current) {
		return AccessReflective
	}
	if runtimeVisible(m.Modifiers, m.Declaring, receiver, a.current) && a.typeVisible(m.Declaring) && a.typeVisible(receiver) {
		return AccessDirect
	}
	return AccessReflective
}

// visible decides direct access to a member. Code of the snippet class
// follows the ordinary rules; nested classes are separate class files, so
// the JVM checks apply to them as written.
func (a *analyzer) visible(mods jast.Modifiers, declaring, receiver *lookup.TypeBinding) bool {
	if a.nested == nil {
		return lookup.Ordinary{}.FieldVisible(&lookup.FieldBinding{Modifiers: mods, Declaring: declaring}, receiver, a.class, false)
	}
	return runtimeVisible(mods, declaring, receiver, a.current)
}

// runtimeVisible applies the access check the JVM performs when code in
// current links to a member of declaring.
func runtimeVisible(mods jast.Modifiers, declaring, receiver, current *lookup.TypeBinding) bool {
	switch {
	case declaring == nil || current == nil || declaring.IsArray():
		return true
	case mods.Has(jast.ModPublic), declaring == current:
		return true
	case mods.Has(jast.ModPrivate):
		return false
	case lookup.SamePackage(declaring, current):
		return true
	case mods.Has(jast.ModProtected):
		return current.IsSubtypeOf(declaring) && (receiver == nil || mods.Has(jast.ModStatic) || receiver.IsSubtypeOf(current))
	}
	return false
}

func (a *analyzer) typeVisible(t *lookup.TypeBinding) bool {
	return t == nil || lookup.Ordinary{}.TypeVisible(t, a.class)
}

func (a *analyzer) write(target jast.Expr) {
	target = jast.Unparen(target)
	s, e := target.Pos()
	if l := a.res.Locals[target]; l != nil && a.nested != nil && !a.nested.declares(l) {
		a.problem(types.ProblemInvalidLeftHandSide, jast.Span{Start: s, End: e},
			"Local variable "+l.Name+" defined in an enclosing scope must be final or effectively final")
		return
	}
	f := a.res.Fields[target]
	if f == nil || !a.finals[f] {
		return
	}
	a.problem(types.ProblemInvalidLeftHandSide, jast.Span{Start: s, End: e},
		"The final local variable "+f.Name[len(CapturedPrefix):]+" cannot be assigned")
}

// enclosing checks that the code being visited can reach an enclosing
// instance of type t.
func (a *analyzer) enclosing(at jast.Span, t *lookup.TypeBinding) {
	if _, _, ok := a.nest.outerPath(a.current, t); ok {
		return
	}
	if a.nest.static(a.current) {
		a.problem(types.ProblemStaticContext, at, "No enclosing instance of the type "+t.SimpleName()+" is accessible in scope")
		return
	}
	a.unsupported(at, "Access to an enclosing instance is not supported in a code snippet")
}

func (a *analyzer) unsupported(at jast.Span, msg string) {
	a.problem(types.ProblemUnsupported, at, msg)
}

func (a *analyzer) problem(id types.ProblemID, at jast.Span, msg string) {
	line := 0
	if a.unit != nil {
		line = a.unit.Line(at.Start)
	}
	a.out.Problems = append(a.out.Problems, types.NewError(id, at.Start, at.End-1, line, "%s", msg))
}
