package eval

import (
	"fmt"
	"strings"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/lookup"
)

const (
	classForName     = "forName"
	classForNameDesc = "(Ljava/lang/String;)Ljava/lang/Class;"
	javaClass        = "java/lang/Class"
	javaObject       = "java/lang/Object"
	javaString       = "java/lang/String"
	stringBuilder    = "java/lang/StringBuilder"
	reflectField     = "java/lang/reflect/Field"
	reflectMethod    = "java/lang/reflect/Method"
	reflectCtor      = "java/lang/reflect/Constructor"
	accessibleObject = "java/lang/reflect/AccessibleObject"
)

const fieldAccessMask = classfile.AccPublic | classfile.AccPrivate | classfile.AccProtected |
	classfile.AccStatic | classfile.AccFinal | classfile.AccVolatile | classfile.AccTransient

const methodAccessMask = classfile.AccPublic | classfile.AccPrivate | classfile.AccProtected |
	classfile.AccFinal | classfile.AccSynchronized | classfile.AccAbstract

// generator emits the code of one method: run() of the snippet class, or a
// method of a nested class.
type generator struct {
	env   *lookup.Environment
	res   *lookup.Resolution
	plan  *Analysis
	unit  *jast.CompilationUnit
	class *lookup.TypeBinding
	nest  *nesting
	// nested is the class being compiled, nil for the snippet class.
	nested *nestedClass
	// ret is the result type of a nested method, nil when void.
	ret *lookup.TypeBinding
	// outerSlot holds the enclosing instance inside a nested constructor.
	outerSlot int

	code     []classfile.Instruction
	lines    []classfile.LineNumber
	slots    map[*lookup.LocalBinding]int
	next     int
	labels   int
	result   bool
	lastLine int
	err      error
}

// generate compiles the snippet class declared by decl, followed by the
// classes nested in it. When result is set, run() reports the value of the
// snippet through setResult: the value of a return statement, or of a
// trailing expression statement, or null typed void when the snippet has
// no value.
func generate(env *lookup.Environment, res *lookup.Resolution, plan *Analysis, unit *jast.CompilationUnit, decl *jast.TypeDecl, nest *nesting, result bool) ([]*classfile.ClassFile, error) {
	class := nest.snippet
	super := class.Superclass()
	if super == nil {
		return nil, fmt.Errorf("%w: %s has no superclass", ErrCodeGeneration, class.Name)
	}
	cf := &classfile.ClassFile{
		Major:      classfile.MajorVersion,
		Access:     classfile.AccPublic | classfile.AccSuper,
		Name:       class.Name,
		Super:      super.Name,
		SourceFile: class.SimpleName() + ".java",
	}
	for _, fd := range decl.Fields {
		f := class.DeclaredField(fd.Name)
		if f == nil || f.Type == nil {
			return nil, fmt.Errorf("%w: field %s has no type", ErrCodeGeneration, fd.Name)
		}
		cf.Fields = append(cf.Fields, &classfile.Field{
			Access:     uint16(fd.Modifiers) & fieldAccessMask,
			Name:       fd.Name,
			Descriptor: f.Type.Descriptor(),
		})
	}
	cf.Methods = append(cf.Methods, constructor(super.Name))

	var body *jast.Block
	for _, m := range decl.Methods {
		if m.Name == RunMethod && !m.Constructor {
			body = m.Body
		}
	}
	if body == nil {
		return nil, fmt.Errorf("%w: %s has no %s method", ErrCodeGeneration, class.Name, RunMethod)
	}
	g := &generator{
		env:    env,
		res:    res,
		plan:   plan,
		unit:   unit,
		class:  class,
		nest:   nest,
		slots:  make(map[*lookup.LocalBinding]int),
		next:   1,
		result: result,
	}
	g.run(body)
	if g.err != nil {
		return nil, g.err
	}
	cf.Methods = append(cf.Methods, &classfile.Method{
		Access:     classfile.AccPublic,
		Name:       RunMethod,
		Descriptor: "()V",
		Exceptions: []string{"java/lang/Throwable"},
		Code:       &classfile.Code{Instructions: g.code, LineNumbers: g.lines},
	})

	files := []*classfile.ClassFile{cf}
	for _, nc := range nest.classes {
		ncf, err := g.nestedFile(nc)
		if err != nil {
			return nil, err
		}
		files = append(files, ncf)
	}
	if inner := nest.innerClasses(); len(inner) > 0 {
		for _, f := range files {
			f.InnerClasses = inner
		}
	}
	return files, nil
}

func constructor(super string) *classfile.Method {
	return &classfile.Method{
		Access:     classfile.AccPublic,
		Name:       "<init>",
		Descriptor: "()V",
		Code: &classfile.Code{Instructions: []classfile.Instruction{
			{Op: classfile.OpAload, Int: 0},
			{Op: classfile.OpInvokespecial, Ref: &classfile.MemberRef{Owner: super, Name: "<init>", Desc: "()V"}},
			{Op: classfile.OpReturn},
		}},
	}
}

func (g *generator) fail(format string, args ...any) {
	if g.err == nil {
		g.err = fmt.Errorf("%w: %s", ErrCodeGeneration, fmt.Sprintf(format, args...))
	}
}

// instruction helpers

func (g *generator) emit(op classfile.Opcode) {
	g.code = append(g.code, classfile.Instruction{Op: op})
}

func (g *generator) local(op classfile.Opcode, slot int) {
	g.code = append(g.code, classfile.Instruction{Op: op, Int: slot})
}

func (g *generator) typed(op classfile.Opcode, class string) {
	g.code = append(g.code, classfile.Instruction{Op: op, Class: class})
}

func (g *generator) member(op classfile.Opcode, owner, name, desc string) {
	ref := &classfile.MemberRef{Owner: owner, Name: name, Desc: desc, Interface: op == classfile.OpInvokeiface}
	g.code = append(g.code, classfile.Instruction{Op: op, Ref: ref})
}

func (g *generator) ldc(v any) {
	op := classfile.OpLdc
	switch v.(type) {
	case int64, float64:
		op = classfile.OpLdc2W
	}
	g.code = append(g.code, classfile.Instruction{Op: op, Const: v})
}

func (g *generator) newLabel() int {
	g.labels++
	return g.labels
}

func (g *generator) place(label int) {
	g.code = append(g.code, classfile.Instruction{Op: classfile.OpLabel, Label: label})
}

func (g *generator) jump(op classfile.Opcode, label int) {
	g.code = append(g.code, classfile.Instruction{Op: op, Label: label})
}

func (g *generator) mark(n jast.Node) {
	if g.unit == nil {
		return
	}
	start, _ := n.Pos()
	line := g.unit.Line(start)
	if line == g.lastLine {
		return
	}
	g.lastLine = line
	g.lines = append(g.lines, classfile.LineNumber{PC: len(g.code), Line: line})
}

// constants

func (g *generator) pushInt(v int32) {
	switch {
	case v >= -1 && v <= 5:
		g.emit(classfile.OpIconst0 + classfile.Opcode(v))
	case v >= -128 && v <= 127:
		g.local(classfile.OpBipush, int(v))
	case v >= -32768 && v <= 32767:
		g.local(classfile.OpSipush, int(v))
	default:
		g.ldc(v)
	}
}

func (g *generator) constant(v any) {
	switch v := v.(type) {
	case nil:
		g.emit(classfile.OpAconstNull)
	case bool:
		if v {
			g.emit(classfile.OpIconst1)
		} else {
			g.emit(classfile.OpIconst0)
		}
	case int32:
		g.pushInt(v)
	case int64:
		switch v {
		case 0:
			g.emit(classfile.OpLconst0)
		case 1:
			g.emit(classfile.OpLconst1)
		default:
			g.ldc(v)
		}
	case float32:
		switch v {
		case 0, 1, 2:
			if v == 0 && isNegZero(float64(v)) {
				g.ldc(v)
				return
			}
			g.emit(classfile.OpFconst0 + classfile.Opcode(int(v)))
		default:
			g.ldc(v)
		}
	case float64:
		switch v {
		case 0, 1:
			if v == 0 && isNegZero(v) {
				g.ldc(v)
				return
			}
			g.emit(classfile.OpDconst0 + classfile.Opcode(int(v)))
		default:
			g.ldc(v)
		}
	case string:
		g.ldc(v)
	default:
		g.fail("unsupported constant %T", v)
	}
}

func isNegZero(f float64) bool { return f == 0 && 1/f < 0 }

// type helpers

// category returns the computational type of a primitive name: I, J, F, D,
// or A for references.
func category(name string) byte {
	switch name {
	case "boolean", "byte", "short", "char", "int":
		return 'I'
	case "long":
		return 'J'
	case "float":
		return 'F'
	case "double":
		return 'D'
	}
	return 'A'
}

func kind(t *lookup.TypeBinding) byte {
	if t == nil || !t.IsPrimitive() {
		return 'A'
	}
	return category(t.Name)
}

func size(t *lookup.TypeBinding) int {
	switch {
	case t == nil || t.IsVoid():
		return 0
	case t.IsWide():
		return 2
	}
	return 1
}

func byKind(t *lookup.TypeBinding, i, j, f, d, a classfile.Opcode) classfile.Opcode {
	switch kind(t) {
	case 'I':
		return i
	case 'J':
		return j
	case 'F':
		return f
	case 'D':
		return d
	}
	return a
}

func returnOp(t *lookup.TypeBinding) classfile.Opcode {
	if t == nil || t.IsVoid() {
		return classfile.OpReturn
	}
	return byKind(t, classfile.OpIreturn, classfile.OpLreturn, classfile.OpFreturn, classfile.OpDreturn, classfile.OpAreturn)
}

func loadOp(t *lookup.TypeBinding) classfile.Opcode {
	return byKind(t, classfile.OpIload, classfile.OpLload, classfile.OpFload, classfile.OpDload, classfile.OpAload)
}

func storeOp(t *lookup.TypeBinding) classfile.Opcode {
	return byKind(t, classfile.OpIstore, classfile.OpLstore, classfile.OpFstore, classfile.OpDstore, classfile.OpAstore)
}

func arrayLoad(elem *lookup.TypeBinding) classfile.Opcode {
	switch elem.Name {
	case "boolean", "byte":
		return classfile.OpBaload
	case "char":
		return classfile.OpCaload
	case "short":
		return classfile.OpSaload
	}
	return byKind(elem, classfile.OpIaload, classfile.OpLaload, classfile.OpFaload, classfile.OpDaload, classfile.OpAaload)
}

func arrayStore(elem *lookup.TypeBinding) classfile.Opcode {
	switch elem.Name {
	case "boolean", "byte":
		return classfile.OpBastore
	case "char":
		return classfile.OpCastore
	case "short":
		return classfile.OpSastore
	}
	return byKind(elem, classfile.OpIastore, classfile.OpLastore, classfile.OpFastore, classfile.OpDastore, classfile.OpAastore)
}

var newarrayCodes = map[string]int{
	"boolean": classfile.TBoolean, "char": classfile.TChar, "float": classfile.TFloat, "double": classfile.TDouble,
	"byte": classfile.TByte, "short": classfile.TShort, "int": classfile.TInt, "long": classfile.TLong,
}

func (g *generator) newArray(elem *lookup.TypeBinding) {
	if elem.IsPrimitive() {
		g.local(classfile.OpNewarray, newarrayCodes[elem.Name])
		return
	}
	g.typed(classfile.OpAnewarray, elem.InternalName())
}

func (g *generator) pop(t *lookup.TypeBinding) {
	switch size(t) {
	case 1:
		g.emit(classfile.OpPop)
	case 2:
		g.emit(classfile.OpPop2)
	}
}

// dupValue duplicates the value on top of the stack below under slots.
func (g *generator) dupValue(t *lookup.TypeBinding, under int) {
	ops := [2][3]classfile.Opcode{
		{classfile.OpDup, classfile.OpDupX1, classfile.OpDupX2},
		{classfile.OpDup2, classfile.OpDup2X1, classfile.OpDup2X2},
	}
	g.emit(ops[size(t)-1][under])
}

func (g *generator) typeVisible(t *lookup.TypeBinding) bool {
	return t == nil || lookup.Ordinary{}.TypeVisible(t, g.class)
}

func (g *generator) primitive(name string) *lookup.TypeBinding { return g.env.Primitive(name) }

func (g *generator) unboxed(t *lookup.TypeBinding) *lookup.TypeBinding {
	if t == nil || t.IsPrimitive() {
		return t
	}
	if p := g.env.Unbox(t); p != nil {
		return p
	}
	return t
}

// conversions

var widen = map[[2]byte]classfile.Opcode{
	{'I', 'J'}: classfile.OpI2l, {'I', 'F'}: classfile.OpI2f, {'I', 'D'}: classfile.OpI2d,
	{'J', 'I'}: classfile.OpL2i, {'J', 'F'}: classfile.OpL2f, {'J', 'D'}: classfile.OpL2d,
	{'F', 'I'}: classfile.OpF2i, {'F', 'J'}: classfile.OpF2l, {'F', 'D'}: classfile.OpF2d,
	{'D', 'I'}: classfile.OpD2i, {'D', 'J'}: classfile.OpD2l, {'D', 'F'}: classfile.OpD2f,
}

func (g *generator) convertPrimitive(from, to string) {
	if from == to {
		return
	}
	f, t := category(from), category(to)
	if f != t {
		g.emit(widen[[2]byte{f, t}])
	}
	switch to {
	case "byte":
		if from != "byte" {
			g.emit(classfile.OpI2b)
		}
	case "short":
		if from != "byte" && from != "short" {
			g.emit(classfile.OpI2s)
		}
	case "char":
		if from != "char" {
			g.emit(classfile.OpI2c)
		}
	}
}

func (g *generator) box(p *lookup.TypeBinding) {
	if p == nil || !p.IsPrimitive() || p.IsVoid() {
		return
	}
	w := lookup.WrapperName(p.Name)
	g.member(classfile.OpInvokestatic, w, "valueOf", "("+p.Descriptor()+")L"+w+";")
}

// unbox converts an instance of the box class of p to p.
func (g *generator) unbox(p *lookup.TypeBinding) {
	w := lookup.WrapperName(p.Name)
	g.member(classfile.OpInvokevirtual, w, p.Name+"Value", "()"+p.Descriptor())
}

// coerce converts the value on the stack from one static type to another:
// primitive widening and narrowing, boxing, unboxing and reference casts.
func (g *generator) coerce(from, to *lookup.TypeBinding) {
	if from == nil || to == nil || from == to || to.IsVoid() {
		return
	}
	switch {
	case from.IsPrimitive() && to.IsPrimitive():
		g.convertPrimitive(from.Name, to.Name)
	case from.IsPrimitive():
		if p := g.env.Unbox(to); p != nil {
			g.convertPrimitive(from.Name, p.Name)
			g.box(p)
			return
		}
		g.box(from)
	case to.IsPrimitive():
		if p := g.env.Unbox(from); p != nil {
			g.unbox(p)
			g.convertPrimitive(p.Name, to.Name)
			return
		}
		g.typed(classfile.OpCheckcast, lookup.WrapperName(to.Name))
		g.unbox(to)
	default:
		if from.Kind == lookup.TypeNull || to.Name == javaObject || from.IsSubtypeOf(to) {
			return
		}
		if g.typeVisible(to) {
			g.typed(classfile.OpCheckcast, to.InternalName())
		}
	}
}

// fromObject converts the Object produced by a reflective call to t.
func (g *generator) fromObject(t *lookup.TypeBinding) {
	switch {
	case t == nil:
	case t.IsVoid():
		g.emit(classfile.OpPop)
	case t.IsPrimitive():
		g.typed(classfile.OpCheckcast, lookup.WrapperName(t.Name))
		g.unbox(t)
	case t.Name != javaObject && t.Kind != lookup.TypeNull && g.typeVisible(t):
		g.typed(classfile.OpCheckcast, t.InternalName())
	}
}

// class objects

// classObject pushes the java.lang.Class of t without naming t in the
// constant pool, so it works for types the generated class cannot access.
func (g *generator) classObject(t *lookup.TypeBinding) {
	switch {
	case t.IsPrimitive():
		g.member(classfile.OpGetstatic, lookup.WrapperName(t.Name), "TYPE", "Ljava/lang/Class;")
	case t.IsArray():
		g.emit(classfile.OpIconst0)
		g.newArray(t.Elem)
		g.member(classfile.OpInvokevirtual, javaObject, "getClass", "()Ljava/lang/Class;")
	default:
		g.ldc(t.BinaryName())
		g.member(classfile.OpInvokestatic, javaClass, classForName, classForNameDesc)
	}
}

// classLiteral pushes the class of t, using a class constant when t is
// accessible.
func (g *generator) classLiteral(t *lookup.TypeBinding) {
	switch {
	case t == nil || t.Kind == lookup.TypeNull:
		g.ldc(classfile.ClassConst(javaObject))
	case t.IsPrimitive():
		g.classObject(t)
	case g.typeVisible(t):
		g.ldc(classfile.ClassConst(t.InternalName()))
	default:
		g.classObject(t)
	}
}

func (g *generator) classArray(params []*lookup.TypeBinding) {
	g.pushInt(int32(len(params)))
	g.typed(classfile.OpAnewarray, javaClass)
	for i, p := range params {
		g.emit(classfile.OpDup)
		g.pushInt(int32(i))
		g.classObject(p)
		g.emit(classfile.OpAastore)
	}
}

func (g *generator) setAccessible() {
	g.emit(classfile.OpDup)
	g.emit(classfile.OpIconst1)
	g.member(classfile.OpInvokevirtual, accessibleObject, "setAccessible", "(Z)V")
}

// statements

func (g *generator) run(body *jast.Block) {
	stmts := valueStmts(body.Stmts)
	for i, s := range stmts {
		if g.result && i == len(stmts)-1 {
			if es, ok := s.(*jast.ExprStmt); ok {
				if t := g.res.TypeOf(es.X); t != nil && !t.IsVoid() {
					g.mark(s)
					g.returnValue(es.X)
					return
				}
			}
		}
		g.stmt(s)
	}
	if g.result {
		g.voidResult()
	}
	g.emit(classfile.OpReturn)
}

// valueStmts drops the empty statements trailing a snippet body.
func valueStmts(stmts []jast.Stmt) []jast.Stmt {
	for len(stmts) > 0 {
		if _, ok := stmts[len(stmts)-1].(*jast.EmptyStmt); !ok {
			break
		}
		stmts = stmts[:len(stmts)-1]
	}
	return stmts
}

func (g *generator) returnValue(e jast.Expr) {
	t := g.expr(e)
	if t == nil || t.IsVoid() {
		g.voidResult()
		g.emit(classfile.OpReturn)
		return
	}
	g.local(classfile.OpAload, 0)
	if size(t) == 2 {
		g.emit(classfile.OpDupX2)
		g.emit(classfile.OpPop)
	} else {
		g.emit(classfile.OpSwap)
	}
	g.box(t)
	g.classLiteral(t)
	g.member(classfile.OpInvokevirtual, g.class.Name, SetResultMethod, SetResultDesc)
	g.emit(classfile.OpReturn)
}

func (g *generator) voidResult() {
	g.local(classfile.OpAload, 0)
	g.emit(classfile.OpAconstNull)
	g.member(classfile.OpGetstatic, "java/lang/Void", "TYPE", "Ljava/lang/Class;")
	g.member(classfile.OpInvokevirtual, g.class.Name, SetResultMethod, SetResultDesc)
}

func (g *generator) stmt(s jast.Stmt) {
	if s == nil {
		return
	}
	g.mark(s)
	switch s := s.(type) {
	case *jast.Block:
		for _, st := range s.Stmts {
			g.stmt(st)
		}
	case *jast.LocalVarDecl:
		l := g.res.Locals[s]
		if l == nil || l.Type == nil {
			g.fail("local %s has no type", s.Name)
			return
		}
		slot := g.next
		g.slots[l] = slot
		g.next += size(l.Type)
		if s.Init == nil {
			return
		}
		g.valueOf(s.Init, l.Type)
		g.local(storeOp(l.Type), slot)
	case *jast.ExprStmt:
		g.discard(s.X)
	case *jast.ReturnStmt:
		if g.ret != nil {
			g.valueOf(s.X, g.ret)
			g.emit(returnOp(g.ret))
			return
		}
		if !g.result {
			g.emit(classfile.OpReturn)
			return
		}
		if s.X == nil {
			g.voidResult()
			g.emit(classfile.OpReturn)
			return
		}
		g.returnValue(s.X)
	case *jast.IfStmt:
		other, end := g.newLabel(), g.newLabel()
		g.branch(s.Cond, other, false)
		g.stmt(s.Then)
		if s.Else != nil {
			g.jump(classfile.OpGoto, end)
		}
		g.place(other)
		if s.Else != nil {
			g.stmt(s.Else)
			g.place(end)
		}
	case *jast.WhileStmt:
		top, end := g.newLabel(), g.newLabel()
		g.place(top)
		g.branch(s.Cond, end, false)
		g.stmt(s.Body)
		g.jump(classfile.OpGoto, top)
		g.place(end)
	case *jast.ForStmt:
		for _, st := range s.Init {
			g.stmt(st)
		}
		top, end := g.newLabel(), g.newLabel()
		g.place(top)
		if s.Cond != nil {
			g.branch(s.Cond, end, false)
		}
		g.stmt(s.Body)
		for _, u := range s.Update {
			g.discard(u)
		}
		g.jump(classfile.OpGoto, top)
		g.place(end)
	case *jast.ThrowStmt:
		g.expr(s.X)
		g.emit(classfile.OpAthrow)
	case *jast.EmptyStmt, *jast.LocalTypeDecl:
	default:
		g.fail("unsupported statement %T", s)
	}
}

// valueOf pushes e converted to t; array initializers take their type from t.
func (g *generator) valueOf(e jast.Expr, t *lookup.TypeBinding) {
	if init, ok := e.(*jast.ArrayInit); ok {
		g.arrayInit(init, t)
		return
	}
	g.coerce(g.expr(e), t)
}

// discard evaluates a statement expression and drops its value.
func (g *generator) discard(e jast.Expr) {
	switch x := jast.Unparen(e).(type) {
	case *jast.Assign:
		g.assign(x, false)
	case *jast.Update:
		g.update(x, false)
	default:
		g.pop(g.expr(e))
	}
}

// expressions

// expr pushes the value of e and returns its type on the stack, nil when
// nothing was pushed.
func (g *generator) expr(e jast.Expr) *lookup.TypeBinding {
	switch n := e.(type) {
	case *jast.Literal:
		v, err := literalValue(n)
		if err != nil {
			g.fail("invalid literal %s", n.Text)
			return nil
		}
		g.constant(v)
		return g.res.TypeOf(n)
	case *jast.Paren:
		return g.expr(n.X)
	case *jast.Ident:
		if l := g.res.Locals[n]; l != nil {
			g.loadLocal(l)
			return l.Type
		}
		if f := g.res.Fields[n]; f != nil {
			return g.fieldRead(n, nil, f)
		}
		return nil
	case *jast.FieldAccess:
		if f := g.res.Fields[n]; f != nil {
			return g.fieldRead(n, n.X, f)
		}
		return nil
	case *jast.This:
		g.implicitReceiver(g.res.Receivers[n])
		return g.res.TypeOf(n)
	case *jast.Super:
		g.local(classfile.OpAload, 0)
		return g.res.TypeOf(n)
	case *jast.MethodCall:
		return g.call(n)
	case *jast.New:
		return g.allocate(n)
	case *jast.NewArray:
		at := g.res.TypeOf(n)
		if at == nil || !at.IsArray() {
			g.fail("array creation without an array type")
			return nil
		}
		if n.Init != nil {
			g.arrayInit(n.Init, at)
			return at
		}
		for _, d := range n.Dims {
			g.coerce(g.expr(d), g.primitive("int"))
		}
		if len(n.Dims) == 1 {
			g.newArray(at.Elem)
		} else {
			g.code = append(g.code, classfile.Instruction{Op: classfile.OpMultianewarr, Class: at.InternalName(), Int: len(n.Dims)})
		}
		return at
	case *jast.ArrayInit:
		at := g.res.TypeOf(n)
		g.arrayInit(n, at)
		return at
	case *jast.ArrayAccess:
		at := g.expr(n.X)
		g.coerce(g.expr(n.Index), g.primitive("int"))
		if at == nil || !at.IsArray() {
			g.fail("indexing a non-array value")
			return nil
		}
		g.emit(arrayLoad(at.Elem))
		return at.Elem
	case *jast.Binary:
		return g.binary(n)
	case *jast.Unary:
		return g.unary(n)
	case *jast.Update:
		return g.update(n, true)
	case *jast.Assign:
		return g.assign(n, true)
	case *jast.Cast:
		t := g.res.TypeRefs[n.Type]
		g.coerce(g.expr(n.X), t)
		return t
	case *jast.Conditional:
		t := g.res.TypeOf(n)
		other, end := g.newLabel(), g.newLabel()
		g.branch(n.Cond, other, false)
		g.coerce(g.expr(n.Then), t)
		g.jump(classfile.OpGoto, end)
		g.place(other)
		g.coerce(g.expr(n.Else), t)
		g.place(end)
		return t
	case *jast.ClassLit:
		g.classLiteral(g.res.TypeRefs[n.Type])
		return g.res.TypeOf(n)
	case *jast.InstanceOf:
		t := g.res.TypeRefs[n.Type]
		g.expr(n.X)
		if g.typeVisible(t) {
			g.typed(classfile.OpInstanceof, t.InternalName())
		} else {
			g.classObject(t)
			g.emit(classfile.OpSwap)
			g.member(classfile.OpInvokevirtual, javaClass, "isInstance", "(Ljava/lang/Object;)Z")
		}
		return g.primitive("boolean")
	}
	g.fail("unsupported expression %T", e)
	return nil
}

func (g *generator) arrayInit(init *jast.ArrayInit, at *lookup.TypeBinding) {
	if at == nil || !at.IsArray() {
		g.fail("array initializer without an array type")
		return
	}
	g.pushInt(int32(len(init.Elems)))
	g.newArray(at.Elem)
	for i, e := range init.Elems {
		g.emit(classfile.OpDup)
		g.pushInt(int32(i))
		g.valueOf(e, at.Elem)
		g.emit(arrayStore(at.Elem))
	}
}

// implicitReceiver pushes this, an enclosing instance or the captured
// receiver.
func (g *generator) implicitReceiver(recv lookup.Implicit) {
	switch recv.Kind {
	case lookup.ReceiverThis:
		g.local(classfile.OpAload, 0)
	case lookup.ReceiverEnclosing:
		g.outerInstance(recv.Type)
	case lookup.ReceiverCaptured:
		g.local(classfile.OpAload, 0)
		if recv.Field == nil {
			g.fail("captured receiver without a field")
			return
		}
		g.member(classfile.OpGetfield, g.class.Name, recv.Field.Name, recv.Field.Type.Descriptor())
	default:
		g.fail("unsupported receiver kind %d", recv.Kind)
	}
}

// receiver pushes the object a member reference applies to. Static members
// push nothing, but a qualifying expression is still evaluated.
func (g *generator) receiver(e, x jast.Expr, static bool) {
	if x == nil {
		if !static {
			g.implicitReceiver(g.res.Receivers[e])
		}
		return
	}
	if _, isType := g.res.TypeNames[x]; isType {
		return
	}
	if _, isPkg := g.res.Packages[x]; isPkg {
		return
	}
	t := g.expr(x)
	if static {
		g.pop(t)
	}
}

func (g *generator) fieldRead(e, x jast.Expr, f *lookup.FieldBinding) *lookup.TypeBinding {
	if f.IsArrayLength() {
		g.expr(x)
		g.emit(classfile.OpArraylength)
		return f.Type
	}
	if f.IsStatic() && f.Constant != nil && f.Modifiers.Has(jast.ModFinal) {
		g.receiver(e, x, true)
		g.constant(f.Constant)
		return f.Type
	}
	g.receiver(e, x, f.IsStatic())
	if g.plan.Fields[e] == AccessReflective {
		g.reflectField(f)
		g.fieldOperands(f)
		g.fieldGet(f.Type)
		return f.Type
	}
	op := classfile.OpGetfield
	if f.IsStatic() {
		op = classfile.OpGetstatic
	}
	g.member(op, f.Declaring.InternalName(), f.Name, f.Type.Descriptor())
	return f.Type
}

// reflectField pushes the accessible java.lang.reflect.Field of f.
func (g *generator) reflectField(f *lookup.FieldBinding) {
	g.ldc(f.Declaring.BinaryName())
	g.member(classfile.OpInvokestatic, javaClass, classForName, classForNameDesc)
	g.ldc(f.Name)
	g.member(classfile.OpInvokevirtual, javaClass, "getDeclaredField", "(Ljava/lang/String;)Ljava/lang/reflect/Field;")
	g.setAccessible()
}

// fieldGet reads through the Field on the stack. Primitive fields use the
// typed accessors so no boxing round trip happens.
func (g *generator) fieldGet(t *lookup.TypeBinding) {
	if t != nil && t.IsPrimitive() {
		g.member(classfile.OpInvokevirtual, reflectField, "get"+accessorSuffix(t), "(Ljava/lang/Object;)"+t.Descriptor())
		return
	}
	g.member(classfile.OpInvokevirtual, reflectField, "get", "(Ljava/lang/Object;)Ljava/lang/Object;")
	g.fromObject(t)
}

func (g *generator) fieldSet(t *lookup.TypeBinding) {
	if t != nil && t.IsPrimitive() {
		g.member(classfile.OpInvokevirtual, reflectField, "set"+accessorSuffix(t), "(Ljava/lang/Object;"+t.Descriptor()+")V")
		return
	}
	g.member(classfile.OpInvokevirtual, reflectField, "set", "(Ljava/lang/Object;Ljava/lang/Object;)V")
}

// accessorSuffix names the typed Field accessor of a primitive: Int for int.
func accessorSuffix(t *lookup.TypeBinding) string {
	return strings.ToUpper(t.Name[:1]) + t.Name[1:]
}

// fieldOperands turns [receiver Field] into [Field receiver], or pushes
// null after the Field of a static member.
func (g *generator) fieldOperands(f *lookup.FieldBinding) {
	if f.IsStatic() {
		g.emit(classfile.OpAconstNull)
	} else {
		g.emit(classfile.OpSwap)
	}
}

func (g *generator) call(n *jast.MethodCall) *lookup.TypeBinding {
	m := g.res.Methods[n]
	if m == nil || !m.IsValid() {
		g.fail("unresolved method %s", n.Name)
		return nil
	}
	static := m.IsStatic()
	g.receiver(n, n.X, static)
	varargs := g.res.Varargs[n]
	if g.plan.Methods[n] == AccessReflective {
		g.ldc(m.Declaring.BinaryName())
		g.member(classfile.OpInvokestatic, javaClass, classForName, classForNameDesc)
		g.ldc(m.Name)
		g.classArray(m.Params)
		g.member(classfile.OpInvokevirtual, javaClass, "getDeclaredMethod",
			"(Ljava/lang/String;[Ljava/lang/Class;)Ljava/lang/reflect/Method;")
		g.setAccessible()
		if static {
			g.emit(classfile.OpAconstNull)
		} else {
			g.emit(classfile.OpSwap)
		}
		g.argArray(m, n.Args, varargs)
		g.member(classfile.OpInvokevirtual, reflectMethod, "invoke",
			"(Ljava/lang/Object;[Ljava/lang/Object;)Ljava/lang/Object;")
		g.fromObject(m.Return)
		return m.Return
	}
	g.args(m, n.Args, varargs)
	_, super := n.X.(*jast.Super)
	op := classfile.OpInvokevirtual
	switch {
	case static:
		op = classfile.OpInvokestatic
	case super, m.Modifiers.Has(jast.ModPrivate) && m.Declaring == g.class:
		op = classfile.OpInvokespecial
	case m.Declaring.IsInterface():
		op = classfile.OpInvokeiface
	}
	g.member(op, m.Declaring.InternalName(), m.JVMName(), m.Descriptor())
	return m.Return
}

func (g *generator) allocate(n *jast.New) *lookup.TypeBinding {
	t := g.res.TypeOf(n)
	c := g.res.Constructors[n]
	if t == nil || c == nil || !c.IsValid() {
		g.fail("unresolved allocation of %s", n.Type.Name)
		return nil
	}
	varargs := g.res.Varargs[n]
	if g.plan.Constructors[n] == AccessReflective {
		g.ldc(t.BinaryName())
		g.member(classfile.OpInvokestatic, javaClass, classForName, classForNameDesc)
		g.classArray(c.Params)
		g.member(classfile.OpInvokevirtual, javaClass, "getDeclaredConstructor",
			"([Ljava/lang/Class;)Ljava/lang/reflect/Constructor;")
		g.setAccessible()
		g.argArray(c, n.Args, varargs)
		g.member(classfile.OpInvokevirtual, reflectCtor, "newInstance", "([Ljava/lang/Object;)Ljava/lang/Object;")
		g.fromObject(t)
		return t
	}
	g.typed(classfile.OpNew, t.InternalName())
	g.emit(classfile.OpDup)
	g.construct(t, c, n.Outer, func() { g.args(c, n.Args, varargs) })
	return t
}

// construct invokes the constructor c of t on the object on the stack.
// Nested classes take their enclosing instance first and their captured
// locals last; inner member classes take the enclosing instance, given by
// outer when the allocation is qualified.
func (g *generator) construct(t *lookup.TypeBinding, c *lookup.MethodBinding, outer jast.Expr, args func()) {
	desc := c.Descriptor()
	switch nc := g.nest.of(t); {
	case nc != nil:
		if nc.outer != nil {
			g.outerInstance(nc.outer)
		}
		args()
		for _, l := range nc.captured {
			g.loadLocal(l)
		}
		desc = nc.ctorDesc(c.Params)
	case lookup.IsInnerMember(t):
		if outer != nil {
			g.expr(outer)
		} else {
			g.outerInstance(t.Enclosing)
		}
		args()
		desc = "(" + t.Enclosing.Descriptor() + desc[1:]
	default:
		args()
	}
	g.member(classfile.OpInvokespecial, t.InternalName(), "<init>", desc)
}

// args pushes call arguments converted to the parameter types, collecting
// the trailing ones into an array for a variable arity call.
func (g *generator) args(m *lookup.MethodBinding, args []jast.Expr, varargs bool) {
	params := m.Params
	fixed := len(args)
	if varargs {
		fixed = len(params) - 1
	}
	for i := 0; i < fixed && i < len(params); i++ {
		g.valueOf(args[i], params[i])
	}
	if varargs {
		g.packVarargs(params[len(params)-1], args[fixed:])
	}
}

func (g *generator) packVarargs(at *lookup.TypeBinding, rest []jast.Expr) {
	g.pushInt(int32(len(rest)))
	g.newArray(at.Elem)
	for i, a := range rest {
		g.emit(classfile.OpDup)
		g.pushInt(int32(i))
		g.valueOf(a, at.Elem)
		g.emit(arrayStore(at.Elem))
	}
}

// argArray pushes the Object[] of a reflective invocation. Primitive
// arguments are boxed after conversion to their parameter type.
func (g *generator) argArray(m *lookup.MethodBinding, args []jast.Expr, varargs bool) {
	params := m.Params
	g.pushInt(int32(len(params)))
	g.typed(classfile.OpAnewarray, javaObject)
	fixed := len(args)
	if varargs {
		fixed = len(params) - 1
	}
	for i := 0; i < fixed && i < len(params); i++ {
		g.emit(classfile.OpDup)
		g.pushInt(int32(i))
		g.valueOf(args[i], params[i])
		g.box(params[i])
		g.emit(classfile.OpAastore)
	}
	if varargs {
		g.emit(classfile.OpDup)
		g.pushInt(int32(fixed))
		g.packVarargs(params[fixed], args[fixed:])
		g.emit(classfile.OpAastore)
	}
}

// operators

var arithmetic = map[string][4]classfile.Opcode{
	"+":   {classfile.OpIadd, classfile.OpLadd, classfile.OpFadd, classfile.OpDadd},
	"-":   {classfile.OpIsub, classfile.OpLsub, classfile.OpFsub, classfile.OpDsub},
	"*":   {classfile.OpImul, classfile.OpLmul, classfile.OpFmul, classfile.OpDmul},
	"/":   {classfile.OpIdiv, classfile.OpLdiv, classfile.OpFdiv, classfile.OpDdiv},
	"%":   {classfile.OpIrem, classfile.OpLrem, classfile.OpFrem, classfile.OpDrem},
	"&":   {classfile.OpIand, classfile.OpLand},
	"|":   {classfile.OpIor, classfile.OpLor},
	"^":   {classfile.OpIxor, classfile.OpLxor},
	"<<":  {classfile.OpIshl, classfile.OpLshl},
	">>":  {classfile.OpIshr, classfile.OpLshr},
	">>>": {classfile.OpIushr, classfile.OpLushr},
}

func (g *generator) arith(op string, t *lookup.TypeBinding) {
	ops, ok := arithmetic[op]
	idx := map[byte]int{'I': 0, 'J': 1, 'F': 2, 'D': 3}[kind(t)]
	if !ok || kind(t) == 'A' || ops[idx] == 0 {
		g.fail("operator %s is not defined for %v", op, t)
		return
	}
	g.emit(ops[idx])
}

func isShift(op string) bool { return op == "<<" || op == ">>" || op == ">>>" }

func isCondition(op string) bool {
	switch op {
	case "&&", "||", "==", "!=", "<", ">", "<=", ">=":
		return true
	}
	return false
}

func (g *generator) isString(t *lookup.TypeBinding) bool {
	return t != nil && t.Name == javaString
}

func (g *generator) binary(n *jast.Binary) *lookup.TypeBinding {
	t := g.res.TypeOf(n)
	switch {
	case isCondition(n.Op):
		g.boolValue(n)
		return g.primitive("boolean")
	case n.Op == "+" && g.isString(t):
		g.concat(n)
		return t
	case t == nil:
		g.fail("operator %s has no type", n.Op)
		return nil
	}
	if isShift(n.Op) {
		g.coerce(g.expr(n.L), t)
		g.shiftCount(g.expr(n.R))
		g.arith(n.Op, t)
		return t
	}
	g.coerce(g.expr(n.L), t)
	g.coerce(g.expr(n.R), t)
	g.arith(n.Op, t)
	return t
}

// shiftCount converts a shift distance of type t to int.
func (g *generator) shiftCount(t *lookup.TypeBinding) {
	u := g.unboxed(t)
	g.coerce(t, u)
	if u != nil && u.IsPrimitive() {
		g.convertPrimitive(u.Name, "int")
	}
}

// concat builds a string with a StringBuilder, flattening left-nested
// string additions into one builder.
func (g *generator) concat(n *jast.Binary) {
	g.typed(classfile.OpNew, stringBuilder)
	g.emit(classfile.OpDup)
	g.member(classfile.OpInvokespecial, stringBuilder, "<init>", "()V")
	for _, op := range g.concatOperands(n) {
		g.append(g.expr(op))
	}
	g.member(classfile.OpInvokevirtual, stringBuilder, "toString", "()Ljava/lang/String;")
}

func (g *generator) concatOperands(e jast.Expr) []jast.Expr {
	if b, ok := e.(*jast.Binary); ok && b.Op == "+" && g.isString(g.res.TypeOf(b)) {
		return append(g.concatOperands(b.L), g.concatOperands(b.R)...)
	}
	return []jast.Expr{e}
}

// append calls the StringBuilder.append overload for a value of type t.
func (g *generator) append(t *lookup.TypeBinding) {
	desc := "Ljava/lang/Object;"
	switch {
	case t == nil:
	case t.IsPrimitive():
		switch t.Name {
		case "byte", "short":
			desc = "I"
		default:
			desc = t.Descriptor()
		}
	case g.isString(t):
		desc = "Ljava/lang/String;"
	}
	g.member(classfile.OpInvokevirtual, stringBuilder, "append", "("+desc+")Ljava/lang/StringBuilder;")
}

func (g *generator) unary(n *jast.Unary) *lookup.TypeBinding {
	if n.Op == "!" {
		g.boolValue(n)
		return g.primitive("boolean")
	}
	t := g.res.TypeOf(n)
	if n.Op == "-" {
		if lit, ok := jast.Unparen(n.X).(*jast.Literal); ok && (lit.Kind == jast.LitInt || lit.Kind == jast.LitLong) {
			v, err := literalValue(lit)
			if err != nil {
				g.fail("invalid literal %s", lit.Text)
				return nil
			}
			switch v := v.(type) {
			case int32:
				g.pushInt(-v)
			case int64:
				g.constant(-v)
			}
			return t
		}
	}
	g.coerce(g.expr(n.X), t)
	switch n.Op {
	case "-":
		g.emit(byKind(t, classfile.OpIneg, classfile.OpLneg, classfile.OpFneg, classfile.OpDneg, classfile.OpNop))
	case "~":
		if kind(t) == 'J' {
			g.ldc(int64(-1))
			g.emit(classfile.OpLxor)
		} else {
			g.emit(classfile.OpIconstM1)
			g.emit(classfile.OpIxor)
		}
	}
	return t
}

// branches

// boolValue pushes 1 or 0 for a condition.
func (g *generator) boolValue(e jast.Expr) {
	other, end := g.newLabel(), g.newLabel()
	g.branch(e, other, false)
	g.emit(classfile.OpIconst1)
	g.jump(classfile.OpGoto, end)
	g.place(other)
	g.emit(classfile.OpIconst0)
	g.place(end)
}

// branch jumps to label when e evaluates to jumpIf and falls through
// otherwise.
func (g *generator) branch(e jast.Expr, label int, jumpIf bool) {
	switch n := e.(type) {
	case *jast.Paren:
		g.branch(n.X, label, jumpIf)
		return
	case *jast.Literal:
		if n.Kind == jast.LitBool {
			if (n.Text == "true") == jumpIf {
				g.jump(classfile.OpGoto, label)
			}
			return
		}
	case *jast.Unary:
		if n.Op == "!" {
			g.branch(n.X, label, !jumpIf)
			return
		}
	case *jast.Binary:
		switch n.Op {
		case "&&":
			if jumpIf {
				skip := g.newLabel()
				g.branch(n.L, skip, false)
				g.branch(n.R, label, true)
				g.place(skip)
			} else {
				g.branch(n.L, label, false)
				g.branch(n.R, label, false)
			}
			return
		case "||":
			if jumpIf {
				g.branch(n.L, label, true)
				g.branch(n.R, label, true)
			} else {
				skip := g.newLabel()
				g.branch(n.L, skip, true)
				g.branch(n.R, label, false)
				g.place(skip)
			}
			return
		case "==", "!=", "<", ">", "<=", ">=":
			g.compare(n, label, jumpIf)
			return
		}
	}
	g.coerce(g.expr(e), g.primitive("boolean"))
	if jumpIf {
		g.jump(classfile.OpIfne, label)
	} else {
		g.jump(classfile.OpIfeq, label)
	}
}

var negated = map[string]string{"==": "!=", "!=": "==", "<": ">=", ">=": "<", ">": "<=", "<=": ">"}

var zeroJumps = map[string]classfile.Opcode{
	"==": classfile.OpIfeq, "!=": classfile.OpIfne, "<": classfile.OpIflt,
	">=": classfile.OpIfge, ">": classfile.OpIfgt, "<=": classfile.OpIfle,
}

var intJumps = map[string]classfile.Opcode{
	"==": classfile.OpIfIcmpeq, "!=": classfile.OpIfIcmpne, "<": classfile.OpIfIcmplt,
	">=": classfile.OpIfIcmpge, ">": classfile.OpIfIcmpgt, "<=": classfile.OpIfIcmple,
}

func isNullLiteral(e jast.Expr) bool {
	lit, ok := jast.Unparen(e).(*jast.Literal)
	return ok && lit.Kind == jast.LitNull
}

func (g *generator) compare(n *jast.Binary, label int, jumpIf bool) {
	op := n.Op
	if !jumpIf {
		op = negated[op]
	}
	lt, rt := g.res.TypeOf(n.L), g.res.TypeOf(n.R)
	if (op == "==" || op == "!=") && lt != nil && rt != nil && !lt.IsPrimitive() && !rt.IsPrimitive() {
		switch {
		case isNullLiteral(n.R):
			g.expr(n.L)
			g.jump(nullJump(op), label)
		case isNullLiteral(n.L):
			g.expr(n.R)
			g.jump(nullJump(op), label)
		default:
			g.expr(n.L)
			g.expr(n.R)
			if op == "==" {
				g.jump(classfile.OpIfAcmpeq, label)
			} else {
				g.jump(classfile.OpIfAcmpne, label)
			}
		}
		return
	}

	t := g.comparisonType(lt, rt)
	g.coerce(g.expr(n.L), t)
	g.coerce(g.expr(n.R), t)
	switch kind(t) {
	case 'I':
		g.jump(intJumps[op], label)
		return
	case 'J':
		g.emit(classfile.OpLcmp)
	case 'F':
		// NaN must make < and <= false, and > and >= false
		if n.Op == "<" || n.Op == "<=" {
			g.emit(classfile.OpFcmpg)
		} else {
			g.emit(classfile.OpFcmpl)
		}
	case 'D':
		if n.Op == "<" || n.Op == "<=" {
			g.emit(classfile.OpDcmpg)
		} else {
			g.emit(classfile.OpDcmpl)
		}
	default:
		g.fail("cannot compare %v and %v", lt, rt)
		return
	}
	g.jump(zeroJumps[op], label)
}

func nullJump(op string) classfile.Opcode {
	if op == "==" {
		return classfile.OpIfnull
	}
	return classfile.OpIfnonnull
}

// comparisonType is the promoted type of a numeric or boolean comparison.
func (g *generator) comparisonType(a, b *lookup.TypeBinding) *lookup.TypeBinding {
	a, b = g.unboxed(a), g.unboxed(b)
	if a == nil || b == nil {
		return nil
	}
	if a.Name == "boolean" && b.Name == "boolean" {
		return a
	}
	for _, name := range []string{"double", "float", "long"} {
		if a.Name == name || b.Name == name {
			return g.primitive(name)
		}
	}
	return g.primitive("int")
}

// assignment

type lvalueKind int

const (
	lvLocal lvalueKind = iota
	lvStatic
	lvField
	lvArray
	lvReflective
)

// lvalue is an assignable location whose operands are already on the stack.
type lvalue struct {
	kind lvalueKind
	t    *lookup.TypeBinding
	slot int
	f    *lookup.FieldBinding
}

// under is the number of operand slots kept beneath the value.
func (lv *lvalue) under() int {
	switch lv.kind {
	case lvField:
		return 1
	case lvArray, lvReflective:
		return 2
	}
	return 0
}

// target pushes the operands of an assignment target.
func (g *generator) target(e jast.Expr) *lvalue {
	e = jast.Unparen(e)
	if l := g.res.Locals[e]; l != nil {
		return &lvalue{kind: lvLocal, t: l.Type, slot: g.slots[l]}
	}
	switch n := e.(type) {
	case *jast.ArrayAccess:
		at := g.expr(n.X)
		g.coerce(g.expr(n.Index), g.primitive("int"))
		if at == nil || !at.IsArray() {
			g.fail("indexing a non-array value")
			return &lvalue{kind: lvArray}
		}
		return &lvalue{kind: lvArray, t: at.Elem}
	case *jast.Ident, *jast.FieldAccess:
		f := g.res.Fields[n]
		if f == nil {
			g.fail("assignment to an unresolved name")
			return &lvalue{kind: lvLocal}
		}
		var x jast.Expr
		if fa, ok := n.(*jast.FieldAccess); ok {
			x = fa.X
		}
		g.receiver(n, x, f.IsStatic())
		if g.plan.Fields[n] == AccessReflective {
			g.reflectField(f)
			g.fieldOperands(f)
			return &lvalue{kind: lvReflective, t: f.Type, f: f}
		}
		if f.IsStatic() {
			return &lvalue{kind: lvStatic, t: f.Type, f: f}
		}
		return &lvalue{kind: lvField, t: f.Type, f: f}
	}
	g.fail("invalid assignment target %T", e)
	return &lvalue{kind: lvLocal}
}

// dupOperands duplicates the operands of lv so it can be read and written.
func (g *generator) dupOperands(lv *lvalue) {
	switch lv.under() {
	case 1:
		g.emit(classfile.OpDup)
	case 2:
		g.emit(classfile.OpDup2)
	}
}

func (g *generator) load(lv *lvalue) {
	switch lv.kind {
	case lvLocal:
		g.local(loadOp(lv.t), lv.slot)
	case lvStatic:
		g.member(classfile.OpGetstatic, lv.f.Declaring.InternalName(), lv.f.Name, lv.t.Descriptor())
	case lvField:
		g.member(classfile.OpGetfield, lv.f.Declaring.InternalName(), lv.f.Name, lv.t.Descriptor())
	case lvArray:
		g.emit(arrayLoad(lv.t))
	case lvReflective:
		g.fieldGet(lv.t)
	}
}

func (g *generator) store(lv *lvalue) {
	switch lv.kind {
	case lvLocal:
		g.local(storeOp(lv.t), lv.slot)
	case lvStatic:
		g.member(classfile.OpPutstatic, lv.f.Declaring.InternalName(), lv.f.Name, lv.t.Descriptor())
	case lvField:
		g.member(classfile.OpPutfield, lv.f.Declaring.InternalName(), lv.f.Name, lv.t.Descriptor())
	case lvArray:
		g.emit(arrayStore(lv.t))
	case lvReflective:
		g.fieldSet(lv.t)
	}
}

func (g *generator) assign(n *jast.Assign, needed bool) *lookup.TypeBinding {
	lv := g.target(n.L)
	if lv.t == nil {
		g.fail("assignment target has no type")
		return nil
	}
	if n.Op == "=" {
		g.valueOf(n.R, lv.t)
	} else {
		g.dupOperands(lv)
		g.load(lv)
		g.compound(strings.TrimSuffix(n.Op, "="), lv.t, n.R)
	}
	if !needed {
		g.store(lv)
		return nil
	}
	g.dupValue(lv.t, lv.under())
	g.store(lv)
	return lv.t
}

// compound applies op to the variable value on the stack and r, leaving a
// value of the variable type.
func (g *generator) compound(op string, t *lookup.TypeBinding, r jast.Expr) {
	if op == "+" && g.isString(t) {
		g.member(classfile.OpInvokestatic, javaString, "valueOf", "(Ljava/lang/Object;)Ljava/lang/String;")
		g.typed(classfile.OpNew, stringBuilder)
		g.emit(classfile.OpDupX1)
		g.emit(classfile.OpSwap)
		g.member(classfile.OpInvokespecial, stringBuilder, "<init>", "(Ljava/lang/String;)V")
		g.append(g.expr(r))
		g.member(classfile.OpInvokevirtual, stringBuilder, "toString", "()Ljava/lang/String;")
		return
	}
	vt := g.unboxed(t)
	if isShift(op) {
		pt := vt
		if kind(vt) == 'I' {
			pt = g.primitive("int")
		}
		g.coerce(t, pt)
		g.shiftCount(g.expr(r))
		g.arith(op, pt)
		g.coerce(pt, t)
		return
	}
	pt := g.comparisonType(vt, g.res.TypeOf(r))
	g.coerce(t, pt)
	g.coerce(g.expr(r), pt)
	g.arith(op, pt)
	g.coerce(pt, t)
}

func (g *generator) update(n *jast.Update, needed bool) *lookup.TypeBinding {
	delta := 1
	if n.Op == "--" {
		delta = -1
	}
	x := jast.Unparen(n.X)
	if l := g.res.Locals[x]; l != nil && l.Type != nil && l.Type.Name == "int" {
		slot := g.slots[l]
		if needed && !n.Prefix {
			g.local(classfile.OpIload, slot)
		}
		g.code = append(g.code, classfile.Instruction{Op: classfile.OpIinc, Int: slot, Inc: delta})
		if needed && n.Prefix {
			g.local(classfile.OpIload, slot)
		}
		if needed {
			return l.Type
		}
		return nil
	}

	lv := g.target(x)
	if lv.t == nil {
		g.fail("update target has no type")
		return nil
	}
	g.dupOperands(lv)
	g.load(lv)
	if needed && !n.Prefix {
		g.dupValue(lv.t, lv.under())
	}
	pt := g.unboxed(lv.t)
	if kind(pt) == 'I' {
		pt = g.primitive("int")
	}
	g.coerce(lv.t, pt)
	switch kind(pt) {
	case 'J':
		g.constant(int64(1))
	case 'F':
		g.constant(float32(1))
	case 'D':
		g.constant(float64(1))
	default:
		g.pushInt(1)
	}
	if delta > 0 {
		g.arith("+", pt)
	} else {
		g.arith("-", pt)
	}
	g.coerce(pt, lv.t)
	if needed && n.Prefix {
		g.dupValue(lv.t, lv.under())
	}
	g.store(lv)
	if needed {
		return lv.t
	}
	return nil
}
