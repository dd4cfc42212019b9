package lookup

import (
	"strconv"
	"strings"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/jast"
)

// NameEnvironment answers type lookups by name. Compound names are split
// package segments followed by the type name; binary member types may be
// requested with their $-joined name as the last segment.
type NameEnvironment interface {
	FindType(compound []string) *Answer
	FindTypeInPackage(name string, pkg []string) *Answer
	IsPackage(parent []string, name string) bool
}

// Answer is a found type: either a class file or a source declaration.
type Answer struct {
	Binary    *classfile.ClassFile
	Source    *jast.TypeDecl
	Container string
	Path      string
}

// Chain queries environments in order and returns the first answer.
type Chain []NameEnvironment

// FindType implements NameEnvironment.
func (c Chain) FindType(compound []string) *Answer {
	for _, env := range c {
		if a := env.FindType(compound); a != nil {
			return a
		}
	}
	return nil
}

// FindTypeInPackage implements NameEnvironment.
func (c Chain) FindTypeInPackage(name string, pkg []string) *Answer {
	for _, env := range c {
		if a := env.FindTypeInPackage(name, pkg); a != nil {
			return a
		}
	}
	return nil
}

// IsPackage implements NameEnvironment.
func (c Chain) IsPackage(parent []string, name string) bool {
	for _, env := range c {
		if env.IsPackage(parent, name) {
			return true
		}
	}
	return false
}

// SplitName splits a dotted or slashed name into segments.
func SplitName(name string) []string {
	if name == "" {
		return nil
	}
	return strings.FieldsFunc(name, func(r rune) bool { return r == '.' || r == '/' })
}

// Environment caches the bindings created from one NameEnvironment. It is
// not safe for concurrent use; callers create one per resolution session.
type Environment struct {
	names NameEnvironment

	types      map[string]*TypeBinding // by internal name, nil for known misses
	arrays     map[string]*TypeBinding
	primitives map[string]*TypeBinding
	packages   map[string]bool
	null       *TypeBinding
	localCount map[*TypeBinding]int
}

// NewEnvironment creates an environment over names.
func NewEnvironment(names NameEnvironment) *Environment {
	e := &Environment{
		names:      names,
		types:      make(map[string]*TypeBinding),
		arrays:     make(map[string]*TypeBinding),
		primitives: make(map[string]*TypeBinding),
		packages:   make(map[string]bool),
		localCount: make(map[*TypeBinding]int),
	}
	for name := range primitiveDescriptors {
		e.primitives[name] = &TypeBinding{Kind: TypePrimitive, Name: name, env: e, supersState: stateDone, membersState: stateDone}
	}
	e.null = &TypeBinding{Kind: TypeNull, Name: "null", env: e, supersState: stateDone, membersState: stateDone}
	return e
}

// Names returns the underlying name environment.
func (e *Environment) Names() NameEnvironment { return e.names }

// Primitive returns the binding of a primitive keyword or void.
func (e *Environment) Primitive(name string) *TypeBinding { return e.primitives[name] }

// Null returns the null type.
func (e *Environment) Null() *TypeBinding { return e.null }

// Void returns the void pseudo type.
func (e *Environment) Void() *TypeBinding { return e.primitives["void"] }

// Object returns java.lang.Object.
func (e *Environment) Object() *TypeBinding { return e.Type("java/lang/Object") }

// StringType returns java.lang.String.
func (e *Environment) StringType() *TypeBinding { return e.Type("java/lang/String") }

// ArrayOf returns the array type with the given component type.
func (e *Environment) ArrayOf(elem *TypeBinding, dims int) *TypeBinding {
	t := elem
	for i := 0; i < dims; i++ {
		desc := "[" + t.Descriptor()
		arr, ok := e.arrays[desc]
		if !ok {
			arr = &TypeBinding{Kind: TypeArray, Name: desc, Elem: t, Modifiers: jast.ModPublic | jast.ModFinal,
				env: e, supersState: stateDone, membersState: stateDone}
			arr.superclass = e.Object()
			arr.fields = []*FieldBinding{{Name: "length", Declaring: arr, Type: e.Primitive("int"), Modifiers: jast.ModPublic | jast.ModFinal}}
			e.arrays[desc] = arr
		}
		t = arr
	}
	return t
}

// Box returns the wrapper class of a primitive, or t itself.
func (e *Environment) Box(t *TypeBinding) *TypeBinding {
	if t.Kind != TypePrimitive {
		return t
	}
	return e.Type(WrapperName(t.Name))
}

// Unbox returns the primitive of a wrapper class, or nil.
func (e *Environment) Unbox(t *TypeBinding) *TypeBinding {
	if t == nil || t.Kind == TypePrimitive {
		return t
	}
	if p := UnboxedName(t.Name); p != "" {
		return e.Primitive(p)
	}
	return nil
}

// TypeFromDescriptor decodes a field descriptor.
func (e *Environment) TypeFromDescriptor(desc string) *TypeBinding {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	rest := desc[dims:]
	var leaf *TypeBinding
	if len(rest) > 1 && rest[0] == 'L' {
		leaf = e.Type(strings.TrimSuffix(rest[1:], ";"))
	} else {
		for name, d := range primitiveDescriptors {
			if d == rest {
				leaf = e.primitives[name]
				break
			}
		}
	}
	if leaf == nil {
		return nil
	}
	return e.ArrayOf(leaf, dims)
}

// Type returns the binding of an internal name (p/Outer$Inner), or nil.
func (e *Environment) Type(internal string) *TypeBinding {
	if t, ok := e.types[internal]; ok {
		return t
	}
	t := e.loadType(internal)
	e.types[internal] = t
	return t
}

func (e *Environment) loadType(internal string) *TypeBinding {
	pkg, simple := "", internal
	if i := strings.LastIndexByte(internal, '/'); i >= 0 {
		pkg, simple = internal[:i], internal[i+1:]
	}
	compound := append(SplitName(pkg), simple)
	if a := e.names.FindType(compound); a != nil {
		if a.Binary != nil {
			return e.fromBinary(a)
		}
		if a.Source != nil {
			return e.fromSource(a.Source, nil, a.Container, a.Path)
		}
	}
	// member of a source type
	if i := strings.LastIndexByte(simple, '$'); i > 0 {
		var outer string
		if pkg != "" {
			outer = pkg + "/" + simple[:i]
		} else {
			outer = simple[:i]
		}
		if o := e.Type(outer); o != nil {
			return o.MemberType(simple[i+1:])
		}
	}
	return nil
}

// TopLevel finds a top-level type by dotted package and simple name.
func (e *Environment) TopLevel(pkg, name string) *TypeBinding {
	internal := name
	if pkg != "" {
		internal = strings.ReplaceAll(pkg, ".", "/") + "/" + name
	}
	return e.Type(internal)
}

// IsPackage reports whether a dotted name denotes a known package.
func (e *Environment) IsPackage(dotted string) bool {
	if known, ok := e.packages[dotted]; ok {
		return known
	}
	segs := SplitName(dotted)
	known := len(segs) > 0 && e.names.IsPackage(segs[:len(segs)-1], segs[len(segs)-1])
	e.packages[dotted] = known
	return known
}

// BindUnit creates bindings for every type declared in a compilation unit,
// replacing whatever the name environment answers for the same names.
func (e *Environment) BindUnit(unit *jast.CompilationUnit, container, path string) []*TypeBinding {
	var out []*TypeBinding
	for _, decl := range unit.Types {
		out = append(out, e.fromSource(decl, nil, container, path))
	}
	return out
}

// SourceType returns the binding created for a declaration, if any.
func (e *Environment) SourceType(decl *jast.TypeDecl) *TypeBinding {
	if decl == nil {
		return nil
	}
	if !decl.Local && !decl.Anonymous {
		if t := e.types[decl.BinaryName()]; t != nil && t.Source == decl {
			return t
		}
	}
	for _, t := range e.types {
		if t != nil && t.Source == decl {
			return t
		}
	}
	return nil
}

func (e *Environment) fromSource(decl *jast.TypeDecl, enclosing *TypeBinding, container, path string) *TypeBinding {
	name := decl.BinaryName()
	if enclosing != nil {
		name = enclosing.Name + "$" + decl.Name
	}
	t := &TypeBinding{
		Kind:      sourceKind(decl.Kind),
		Name:      name,
		Modifiers: decl.Modifiers,
		Enclosing: enclosing,
		Source:    decl,
		Container: container,
		Path:      path,
		simple:    decl.Name,
		env:       e,
	}
	if t.IsInterface() {
		t.Modifiers |= jast.ModAbstract
	}
	if enclosing != nil && enclosing.IsInterface() {
		t.Modifiers |= jast.ModPublic | jast.ModStatic
	}
	e.types[t.Name] = t
	for _, m := range decl.Types {
		t.memberTypes = append(t.memberTypes, e.fromSource(m, t, container, path))
	}
	return t
}

// BindLocalType creates a binding for a local or anonymous class declared
// inside enclosing. Names follow the javac scheme Outer$1 / Outer$1Local.
func (e *Environment) BindLocalType(decl *jast.TypeDecl, enclosing *TypeBinding) *TypeBinding {
	if t := e.SourceType(decl); t != nil {
		return t
	}
	top := enclosing.Outermost()
	e.localCount[top]++
	n := e.localCount[top]
	name := enclosing.Name + "$" + strconv.Itoa(n) + decl.Name
	t := &TypeBinding{
		Kind:      sourceKind(decl.Kind),
		Name:      name,
		Modifiers: decl.Modifiers,
		Enclosing: enclosing,
		Local:     !decl.Anonymous,
		Anonymous: decl.Anonymous,
		Source:    decl,
		Container: enclosing.Container,
		Path:      enclosing.Path,
		simple:    decl.Name,
		env:       e,
	}
	e.types[name] = t
	for _, m := range decl.Types {
		t.memberTypes = append(t.memberTypes, e.fromSource(m, t, t.Container, t.Path))
	}
	return t
}

// RenameLocalType moves a local or anonymous type, and its member types, to
// a new internal name.
func (e *Environment) RenameLocalType(t *TypeBinding, name string) {
	if e.types[t.Name] == t {
		delete(e.types, t.Name)
	}
	t.Name = name
	e.types[name] = t
	for _, m := range t.memberTypes {
		e.RenameLocalType(m, name+"$"+m.simple)
	}
}

func classModifiers(access uint16) jast.Modifiers {
	return jast.Modifiers(access) & (jast.ModPublic | jast.ModPrivate | jast.ModProtected |
		jast.ModStatic | jast.ModFinal | jast.ModAbstract)
}

func fieldModifiers(access uint16) jast.Modifiers {
	return jast.Modifiers(access) & (jast.ModPublic | jast.ModPrivate | jast.ModProtected |
		jast.ModStatic | jast.ModFinal | jast.ModVolatile | jast.ModTransient)
}

func methodModifiers(access uint16) jast.Modifiers {
	return jast.Modifiers(access) & (jast.ModPublic | jast.ModPrivate | jast.ModProtected |
		jast.ModStatic | jast.ModFinal | jast.ModSynchronized | jast.ModNative | jast.ModAbstract | jast.ModStrictfp)
}

func sourceKind(k jast.TypeKind) TypeKind {
	switch k {
	case jast.KindInterface:
		return TypeInterface
	case jast.KindEnum:
		return TypeEnum
	case jast.KindRecord:
		return TypeRecord
	case jast.KindAnnotation:
		return TypeAnnotation
	}
	return TypeClass
}

func (e *Environment) fromBinary(a *Answer) *TypeBinding {
	cf := a.Binary
	t := &TypeBinding{
		Kind:      binaryKind(cf),
		Name:      cf.Name,
		Modifiers: classModifiers(cf.Access),
		Binary:    cf,
		Container: a.Container,
		Path:      a.Path,
		simple:    cf.SimpleName(),
		env:       e,
	}
	e.types[t.Name] = t
	for _, ic := range cf.InnerClasses {
		if ic.Inner == cf.Name {
			if ic.Outer != "" {
				t.Enclosing = e.Type(ic.Outer)
			}
			if ic.Outer == "" || ic.Name == "" {
				t.Anonymous = ic.Name == ""
				t.Local = ic.Name != ""
			}
			if ic.Name != "" {
				t.simple = ic.Name
			}
			t.Modifiers = classModifiers(ic.Access)
		}
	}
	for _, ic := range cf.InnerClasses {
		if ic.Outer == cf.Name && ic.Name != "" && ic.Inner != cf.Name {
			if m := e.Type(ic.Inner); m != nil {
				t.memberTypes = append(t.memberTypes, m)
			}
		}
	}
	return t
}

func binaryKind(cf *classfile.ClassFile) TypeKind {
	switch {
	case cf.Access&classfile.AccAnnotation != 0:
		return TypeAnnotation
	case cf.Access&classfile.AccInterface != 0:
		return TypeInterface
	case cf.Access&classfile.AccEnum != 0:
		return TypeEnum
	case cf.Super == "java/lang/Record":
		return TypeRecord
	}
	return TypeClass
}

func (t *TypeBinding) completeSupertypes() {
	if t.supersState != stateNone {
		return
	}
	t.supersState = stateBusy
	defer func() { t.supersState = stateDone }()
	e := t.env

	if cf := t.Binary; cf != nil {
		if cf.Super != "" {
			t.superclass = e.Type(cf.Super)
		}
		for _, i := range cf.Interfaces {
			if b := e.Type(i); b != nil {
				t.interfaces = append(t.interfaces, b)
			}
		}
		return
	}
	decl := t.Source
	if decl == nil {
		return
	}
	ctx := t.supertypeContext()
	if decl.Superclass != nil && t.Kind == TypeClass {
		s, _ := e.ResolveType(decl.Superclass, ctx)
		switch {
		case s == nil:
		case s.Kind == TypeClass || s.Kind == TypeEnum && t.Anonymous:
			t.superclass = s
		case s.IsInterface() && t.Anonymous:
			t.interfaces = append(t.interfaces, s)
		}
	}
	for _, ref := range decl.Interfaces {
		if i, _ := e.ResolveType(ref, ctx); i != nil && i.IsInterface() {
			t.interfaces = append(t.interfaces, i)
		}
	}
	if t.superclass == nil && !t.IsInterface() && t.Name != "java/lang/Object" {
		switch t.Kind {
		case TypeEnum:
			t.superclass = e.Type("java/lang/Enum")
		case TypeRecord:
			t.superclass = e.Type("java/lang/Record")
		default:
			t.superclass = e.Object()
		}
	}
	if t.Kind == TypeAnnotation {
		if a := e.Type("java/lang/annotation/Annotation"); a != nil {
			t.interfaces = append(t.interfaces, a)
		}
	}
}

// SetAnonymousSupertype records the instantiated type of an anonymous class.
func (t *TypeBinding) SetAnonymousSupertype(super *TypeBinding) {
	t.supersState = stateDone
	if super == nil {
		t.superclass = t.env.Object()
		return
	}
	if super.IsInterface() {
		t.superclass = t.env.Object()
		t.interfaces = []*TypeBinding{super}
		return
	}
	t.superclass = super
}

func (t *TypeBinding) supertypeContext() TypeContext {
	ctx := TypeContext{Type: t.Enclosing, Unit: t.Source.Unit, Vars: make(map[string]*TypeBinding)}
	for name, v := range t.TypeVariables() {
		ctx.Vars[name] = v
	}
	return ctx
}

// TypeVariables returns the erasures of the type parameters declared by t.
func (t *TypeBinding) TypeVariables() map[string]*TypeBinding {
	if t.typeVars != nil || t.Source == nil {
		return t.typeVars
	}
	t.typeVars = make(map[string]*TypeBinding)
	for _, tp := range t.Source.TypeParams {
		t.typeVars[tp.Name] = t.env.Object()
	}
	ctx := TypeContext{Type: t.Enclosing, Unit: t.Source.Unit, Vars: t.typeVars}
	for _, tp := range t.Source.TypeParams {
		if len(tp.Bounds) > 0 {
			if b, _ := t.env.ResolveType(tp.Bounds[0], ctx); b != nil {
				t.typeVars[tp.Name] = b
			}
		}
	}
	return t.typeVars
}

func (t *TypeBinding) completeMembers() {
	if t.membersState != stateNone {
		return
	}
	t.membersState = stateBusy
	defer func() { t.membersState = stateDone }()
	t.completeSupertypes()
	e := t.env

	if cf := t.Binary; cf != nil {
		for _, f := range cf.Fields {
			if f.Access&classfile.AccSynthetic != 0 {
				continue
			}
			t.fields = append(t.fields, &FieldBinding{
				Name:      f.Name,
				Declaring: t,
				Type:      e.TypeFromDescriptor(f.Descriptor),
				Modifiers: fieldModifiers(f.Access),
				Constant:  f.Constant,
			})
		}
		for _, m := range cf.Methods {
			if m.Access&(classfile.AccSynthetic|classfile.AccBridge) != 0 || m.Name == "<clinit>" {
				continue
			}
			t.methods = append(t.methods, e.binaryMethod(t, m))
		}
		return
	}
	decl := t.Source
	if decl == nil {
		return
	}
	ctx := TypeContext{Type: t, Unit: decl.Unit, Vars: t.TypeVariables()}
	for _, f := range decl.Fields {
		fb := &FieldBinding{Name: f.Name, Declaring: t, Modifiers: f.Modifiers, Decl: f}
		if f.EnumConstant {
			fb.Type = t
			fb.Modifiers |= jast.ModPublic | jast.ModStatic | jast.ModFinal
		} else if f.Type != nil {
			fb.Type, _ = e.ResolveType(f.Type, ctx)
		}
		if t.IsInterface() {
			fb.Modifiers |= jast.ModPublic | jast.ModStatic | jast.ModFinal
		}
		t.fields = append(t.fields, fb)
	}
	for _, m := range decl.Methods {
		t.methods = append(t.methods, e.sourceMethod(t, m, ctx))
	}
	if !t.IsInterface() && !decl.HasConstructor() {
		access := t.Modifiers & (jast.ModPublic | jast.ModProtected | jast.ModPrivate)
		if t.Kind == TypeEnum {
			access = jast.ModPrivate
		}
		ctor := &MethodBinding{Name: t.simple, Declaring: t, Return: e.Void(), Modifiers: access, Constructor: true}
		if t.Kind == TypeRecord {
			for _, f := range t.fields {
				if !f.IsStatic() {
					ctor.Params = append(ctor.Params, f.Type)
				}
			}
		}
		t.methods = append(t.methods, ctor)
	}
	switch t.Kind {
	case TypeEnum:
		t.methods = append(t.methods,
			&MethodBinding{Name: "values", Declaring: t, Return: e.ArrayOf(t, 1), Modifiers: jast.ModPublic | jast.ModStatic},
			&MethodBinding{Name: "valueOf", Declaring: t, Params: []*TypeBinding{e.StringType()}, Return: t, Modifiers: jast.ModPublic | jast.ModStatic},
		)
	case TypeRecord:
		for _, f := range t.fields {
			if f.IsStatic() || len(t.DeclaredMethods(f.Name)) > 0 {
				continue
			}
			t.methods = append(t.methods, &MethodBinding{Name: f.Name, Declaring: t, Return: f.Type, Modifiers: jast.ModPublic})
		}
	}
}

func (e *Environment) sourceMethod(t *TypeBinding, m *jast.MethodDecl, typeCtx TypeContext) *MethodBinding {
	mb := &MethodBinding{
		Name:        m.Name,
		Declaring:   t,
		Modifiers:   m.Modifiers,
		Constructor: m.Constructor,
		Decl:        m,
	}
	ctx := typeCtx
	ctx.Vars = e.methodTypeVars(m, typeCtx)
	for _, p := range m.Params {
		pt, _ := e.ResolveType(p.Type, ctx)
		if pt == nil {
			pt = e.Object()
		}
		mb.Params = append(mb.Params, pt)
		if p.Varargs {
			mb.Varargs = true
		}
	}
	if m.Constructor {
		mb.Return = e.Void()
		if t.Kind == TypeEnum {
			mb.Modifiers = mb.Modifiers&^(jast.ModPublic|jast.ModProtected) | jast.ModPrivate
		}
	} else if m.Result != nil {
		mb.Return, _ = e.ResolveType(m.Result, ctx)
	}
	for _, th := range m.Throws {
		if tb, _ := e.ResolveType(th, ctx); tb != nil {
			mb.Thrown = append(mb.Thrown, tb)
		}
	}
	return mb
}

func (e *Environment) binaryMethod(t *TypeBinding, m *classfile.Method) *MethodBinding {
	mb := NewBinaryMethod(t, m.Name, m.Descriptor, m.Access, m.IsConstructor())
	for _, ex := range m.Exceptions {
		if tb := e.Type(ex); tb != nil {
			mb.Thrown = append(mb.Thrown, tb)
		}
	}
	return mb
}

// NewBinaryMethod builds a method binding from a descriptor. The constructor
// flag is taken as given; callers pass m.Name == "<init>".
func NewBinaryMethod(t *TypeBinding, name, desc string, access uint16, isConstructor bool) *MethodBinding {
	e := t.env
	mb := &MethodBinding{
		Name:        name,
		Declaring:   t,
		Modifiers:   methodModifiers(access),
		Constructor: isConstructor,
		Varargs:     access&classfile.AccVarargs != 0,
	}
	if isConstructor {
		mb.Name = t.simple
	}
	params, ret, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		mb.Return = e.Void()
		return mb
	}
	for _, p := range params {
		pt := e.TypeFromDescriptor(p)
		if pt == nil {
			pt = e.Object()
		}
		mb.Params = append(mb.Params, pt)
	}
	// the enclosing instance of an inner class is passed implicitly
	if isConstructor && len(mb.Params) > 0 && IsInnerMember(t) && mb.Params[0] == t.Enclosing {
		mb.Params = mb.Params[1:]
	}
	mb.Return = e.TypeFromDescriptor(ret)
	if mb.Return == nil {
		mb.Return = e.Object()
	}
	return mb
}
