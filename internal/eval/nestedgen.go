package eval

import (
	"fmt"
	"sort"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/lookup"
)

// sub returns a generator for one method of nc.
func (g *generator) sub(nc *nestedClass) *generator {
	return &generator{
		env:    g.env,
		res:    g.res,
		plan:   g.plan,
		unit:   g.unit,
		class:  nc.t,
		nest:   g.nest,
		nested: nc,
		slots:  make(map[*lookup.LocalBinding]int),
		next:   1,
	}
}

// loadLocal pushes a local variable, or its copy in a val$ field when the
// code belongs to a nested class that captured it.
func (g *generator) loadLocal(l *lookup.LocalBinding) {
	if slot, ok := g.slots[l]; ok {
		g.local(loadOp(l.Type), slot)
		return
	}
	if g.nested != nil {
		if name, ok := g.nested.fields[l]; ok {
			g.local(classfile.OpAload, 0)
			g.member(classfile.OpGetfield, g.nested.t.Name, name, l.Type.Descriptor())
			return
		}
	}
	g.fail("local %s has no slot", l.Name)
}

// outerInstance pushes the lexically enclosing instance of type target.
func (g *generator) outerInstance(target *lookup.TypeBinding) {
	hops, via, ok := g.nest.outerPath(g.class, target)
	if !ok {
		g.fail("no enclosing instance of %s", target.Name)
		return
	}
	if g.outerSlot > 0 && len(hops) > 0 && hops[0] == g.nested {
		// the constructor still holds it in a parameter
		g.local(classfile.OpAload, g.outerSlot)
		hops = hops[1:]
	} else {
		g.local(classfile.OpAload, 0)
	}
	for _, nc := range hops {
		g.member(classfile.OpGetfield, nc.t.Name, OuterThisField, nc.outer.Descriptor())
	}
	if via {
		this := g.nest.this
		g.member(classfile.OpGetfield, g.nest.snippet.Name, this.Name, this.Type.Descriptor())
	}
}

// nestedFile compiles a local or anonymous class.
func (g *generator) nestedFile(nc *nestedClass) (*classfile.ClassFile, error) {
	super := nc.t.Superclass()
	if super == nil {
		return nil, fmt.Errorf("%w: %s has no superclass", ErrCodeGeneration, nc.t.Name)
	}
	cf := &classfile.ClassFile{
		Major:           classfile.MajorVersion,
		Access:          classfile.AccSuper | uint16(nc.decl.Modifiers)&(classfile.AccFinal|classfile.AccAbstract),
		Name:            nc.t.Name,
		Super:           super.Name,
		SourceFile:      g.class.SimpleName() + ".java",
		EnclosingMethod: g.nest.enclosingMethod(nc),
	}
	for _, i := range nc.t.Interfaces() {
		cf.Interfaces = append(cf.Interfaces, i.Name)
	}
	for _, fd := range nc.decl.Fields {
		f := nc.t.DeclaredField(fd.Name)
		if f == nil || f.Type == nil {
			return nil, fmt.Errorf("%w: field %s has no type", ErrCodeGeneration, fd.Name)
		}
		cf.Fields = append(cf.Fields, &classfile.Field{
			Access:     uint16(fd.Modifiers) & fieldAccessMask,
			Name:       fd.Name,
			Descriptor: f.Type.Descriptor(),
		})
	}
	if nc.outer != nil {
		cf.Fields = append(cf.Fields, &classfile.Field{
			Access:     classfile.AccFinal | classfile.AccSynthetic,
			Name:       OuterThisField,
			Descriptor: nc.outer.Descriptor(),
		})
	}
	for _, l := range nc.captured {
		cf.Fields = append(cf.Fields, &classfile.Field{
			Access:     classfile.AccPrivate | classfile.AccFinal | classfile.AccSynthetic,
			Name:       nc.fields[l],
			Descriptor: l.Type.Descriptor(),
		})
	}

	if nc.alloc != nil {
		m, err := g.sub(nc).constructor(nil, g.res.Constructors[nc.alloc])
		if err != nil {
			return nil, err
		}
		cf.Methods = append(cf.Methods, m)
	} else {
		for _, c := range nc.t.Constructors() {
			m, err := g.sub(nc).constructor(c, nil)
			if err != nil {
				return nil, err
			}
			cf.Methods = append(cf.Methods, m)
		}
	}
	for _, md := range nc.decl.Methods {
		if md.Constructor {
			continue
		}
		b := declaredBinding(nc.t, md)
		if b == nil {
			return nil, fmt.Errorf("%w: method %s of %s is not bound", ErrCodeGeneration, md.Name, nc.t.Name)
		}
		sub := g.sub(nc)
		m := sub.method(b, md)
		if sub.err != nil {
			return nil, sub.err
		}
		cf.Methods = append(cf.Methods, m)
	}
	cf.Methods = append(cf.Methods, bridges(nc, g.res)...)
	return cf, nil
}

func declaredBinding(t *lookup.TypeBinding, md *jast.MethodDecl) *lookup.MethodBinding {
	for _, b := range t.Methods() {
		if b.Decl == md {
			return b
		}
	}
	return nil
}

// constructor emits a constructor of the nested class. own is the declared
// or default constructor of a local class; an anonymous class has none and
// passes its arguments on to super, the superclass constructor.
func (g *generator) constructor(own, super *lookup.MethodBinding) (*classfile.Method, error) {
	nc := g.nested
	var decl *jast.MethodDecl
	var params []*lookup.TypeBinding
	switch {
	case own != nil:
		decl, params = own.Decl, own.Params
	case super != nil && super.IsValid():
		params = super.Params
	default:
		return nil, fmt.Errorf("%w: %s has no superclass constructor", ErrCodeGeneration, nc.t.Name)
	}

	if nc.outer != nil {
		g.outerSlot = g.next
		g.next++
	}
	var passed []int
	if decl != nil {
		for _, p := range decl.Params {
			l := g.res.Locals[p]
			if l == nil || l.Type == nil {
				return nil, fmt.Errorf("%w: parameter %s has no type", ErrCodeGeneration, p.Name)
			}
			g.slots[l] = g.next
			g.next += size(l.Type)
		}
	} else if own == nil {
		for _, p := range params {
			passed = append(passed, g.next)
			g.next += size(p)
		}
	}
	captured := make([]int, len(nc.captured))
	for i, l := range nc.captured {
		captured[i] = g.next
		g.next += size(l.Type)
	}

	if nc.outer != nil {
		g.local(classfile.OpAload, 0)
		g.local(classfile.OpAload, g.outerSlot)
		g.member(classfile.OpPutfield, nc.t.Name, OuterThisField, nc.outer.Descriptor())
	}
	for i, l := range nc.captured {
		g.local(classfile.OpAload, 0)
		g.local(loadOp(l.Type), captured[i])
		g.member(classfile.OpPutfield, nc.t.Name, nc.fields[l], l.Type.Descriptor())
		g.slots[l] = captured[i]
	}

	superType := nc.t.Superclass()
	delegated := false
	switch {
	case own == nil:
		g.local(classfile.OpAload, 0)
		g.construct(superType, super, nil, func() {
			for i, p := range params {
				g.local(loadOp(p), passed[i])
			}
		})
	case decl == nil || decl.ExplicitCall == nil:
		c := noArgConstructor(superType)
		if c == nil {
			return nil, fmt.Errorf("%w: %s has no no-arg constructor", ErrCodeGeneration, superType.Name)
		}
		g.local(classfile.OpAload, 0)
		g.construct(superType, c, nil, func() {})
	default:
		call := decl.ExplicitCall
		c := g.res.Constructors[call]
		if c == nil || !c.IsValid() {
			return nil, fmt.Errorf("%w: unresolved constructor invocation in %s", ErrCodeGeneration, nc.t.Name)
		}
		target := superType
		if !call.Super {
			target, delegated = nc.t, true
		}
		g.local(classfile.OpAload, 0)
		g.construct(target, c, nil, func() { g.args(c, call.Args, g.res.Varargs[call]) })
	}

	if !delegated {
		g.instanceInit()
	}
	if decl != nil && decl.Body != nil {
		g.stmt(decl.Body)
	}
	if decl == nil || decl.Body == nil || completes(decl.Body) {
		g.emit(classfile.OpReturn)
	}
	if g.err != nil {
		return nil, g.err
	}
	m := &classfile.Method{
		Name:       "<init>",
		Descriptor: nc.ctorDesc(params),
		Code:       &classfile.Code{Instructions: g.code, LineNumbers: g.lines},
	}
	if own != nil {
		m.Access = uint16(own.Modifiers) & (classfile.AccPublic | classfile.AccPrivate | classfile.AccProtected)
		for _, t := range own.Thrown {
			m.Exceptions = append(m.Exceptions, t.InternalName())
		}
	}
	return m, nil
}

// instanceInit runs the field initializers and initializer blocks of the
// nested class in source order.
func (g *generator) instanceInit() {
	type init struct {
		start int
		field *jast.FieldDecl
		block *jast.Block
	}
	var inits []init
	for _, fd := range g.nested.decl.Fields {
		if fd.Init != nil && !fd.Modifiers.Has(jast.ModStatic) {
			inits = append(inits, init{start: fd.Start, field: fd})
		}
	}
	for _, b := range g.nested.decl.Initializers {
		inits = append(inits, init{start: b.Start, block: b})
	}
	sort.SliceStable(inits, func(i, j int) bool { return inits[i].start < inits[j].start })

	for _, in := range inits {
		if in.block != nil {
			g.stmt(in.block)
			continue
		}
		f := g.class.DeclaredField(in.field.Name)
		if f == nil || f.Type == nil {
			g.fail("field %s has no type", in.field.Name)
			return
		}
		g.mark(in.field)
		g.local(classfile.OpAload, 0)
		g.valueOf(in.field.Init, f.Type)
		g.member(classfile.OpPutfield, g.class.Name, f.Name, f.Type.Descriptor())
	}
}

func (g *generator) method(b *lookup.MethodBinding, md *jast.MethodDecl) *classfile.Method {
	m := &classfile.Method{
		Access:     uint16(md.Modifiers) & methodAccessMask,
		Name:       b.Name,
		Descriptor: b.Descriptor(),
	}
	if b.Varargs {
		m.Access |= classfile.AccVarargs
	}
	for _, t := range b.Thrown {
		m.Exceptions = append(m.Exceptions, t.InternalName())
	}
	if md.Body == nil {
		return m
	}
	if b.Return != nil && !b.Return.IsVoid() {
		g.ret = b.Return
	}
	for _, p := range md.Params {
		l := g.res.Locals[p]
		if l == nil || l.Type == nil {
			g.fail("parameter %s has no type", p.Name)
			return m
		}
		g.slots[l] = g.next
		g.next += size(l.Type)
	}
	g.stmt(md.Body)
	if g.ret == nil && completes(md.Body) {
		g.emit(classfile.OpReturn)
	}
	m.Code = &classfile.Code{Instructions: g.code, LineNumbers: g.lines}
	return m
}

// bridges emits the bridge methods of nc: where one of its methods
// overrides a method of a parameterized supertype whose erased descriptor
// differs, as compareTo(Point) does for Comparable<Point>.
func bridges(nc *nestedClass, res *lookup.Resolution) []*classfile.Method {
	var generic []*lookup.TypeBinding
	refs := append([]*jast.TypeRef{nc.decl.Superclass}, nc.decl.Interfaces...)
	if nc.alloc != nil {
		refs = append(refs, nc.alloc.Type)
	}
	for _, ref := range refs {
		if ref != nil && len(ref.Args) > 0 {
			if t := res.TypeRefs[ref]; t != nil {
				generic = append(generic, t)
			}
		}
	}

	seen := make(map[string]bool)
	var own []*lookup.MethodBinding
	for _, m := range nc.t.Methods() {
		if m.Constructor || m.IsStatic() || m.Modifiers.Has(jast.ModPrivate) {
			continue
		}
		own = append(own, m)
		seen[m.Name+m.Descriptor()] = true
	}
	var out []*classfile.Method
	for _, m := range own {
		for _, st := range generic {
			for _, sm := range st.Methods() {
				key := sm.Name + sm.Descriptor()
				if sm.Name != m.Name || sm.Constructor || sm.IsStatic() || seen[key] || !overrides(m, sm) {
					continue
				}
				seen[key] = true
				out = append(out, bridge(nc.t, m, sm))
			}
		}
	}
	return out
}

func overrides(m, sm *lookup.MethodBinding) bool {
	if len(m.Params) != len(sm.Params) || sm.Modifiers.Has(jast.ModPrivate) {
		return false
	}
	for i, p := range m.Params {
		if p != sm.Params[i] && !(p.IsReference() && p.IsSubtypeOf(sm.Params[i])) {
			return false
		}
	}
	return true
}

func bridge(t *lookup.TypeBinding, m, sm *lookup.MethodBinding) *classfile.Method {
	code := []classfile.Instruction{{Op: classfile.OpAload, Int: 0}}
	slot := 1
	for i, p := range sm.Params {
		code = append(code, classfile.Instruction{Op: loadOp(p), Int: slot})
		slot += size(p)
		if m.Params[i] != p {
			code = append(code, classfile.Instruction{Op: classfile.OpCheckcast, Class: m.Params[i].InternalName()})
		}
	}
	code = append(code,
		classfile.Instruction{Op: classfile.OpInvokevirtual, Ref: &classfile.MemberRef{Owner: t.Name, Name: m.Name, Desc: m.Descriptor()}},
		classfile.Instruction{Op: returnOp(sm.Return)},
	)
	return &classfile.Method{
		Access:     classfile.AccPublic | classfile.AccSynthetic | classfile.AccBridge,
		Name:       sm.Name,
		Descriptor: sm.Descriptor(),
		Code:       &classfile.Code{Instructions: code},
	}
}

// enclosingMethod is the EnclosingMethod attribute of nc.
func (n *nesting) enclosingMethod(nc *nestedClass) *classfile.EnclosingMethod {
	em := &classfile.EnclosingMethod{Class: nc.host.Name}
	m := nc.method
	switch {
	case m == nil:
	case nc.host == n.snippet:
		em.Name, em.Desc = m.Name, "()V"
	default:
		b := declaredBinding(nc.host, m)
		if b == nil {
			break
		}
		em.Name, em.Desc = b.JVMName(), b.Descriptor()
		if host := n.of(nc.host); host != nil && m.Constructor {
			em.Desc = host.ctorDesc(b.Params)
		}
	}
	return em
}

// innerClasses lists the InnerClasses entries shared by all class files of
// the compilation.
func (n *nesting) innerClasses() []classfile.InnerClass {
	var out []classfile.InnerClass
	for _, nc := range n.classes {
		out = append(out, nc.innerClass())
	}
	return out
}
