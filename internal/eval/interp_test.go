package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/javacontext-mcp/internal/classfile"
)

// This file holds a small JVM used to run generated snippet classes. It
// models just enough of java.lang and java.lang.reflect to execute what the
// code generator emits, and it enforces private access the way the JVM
// does, so a direct access the generator got wrong fails at run time.

type jfield struct {
	desc    string
	private bool
	static  bool
	value   any
}

type jmethod struct {
	private bool
	static  bool
	fn      func(recv *jobject, args []any) any
	// cf and code are set for methods of loaded class files.
	cf   *classfile.ClassFile
	code *classfile.Method
}

type jclass struct {
	name       string
	super      string
	interfaces []string
	fields     map[string]*jfield
	methods    map[string]*jmethod // name + descriptor
}

type jobject struct {
	class  string
	fields map[string]any
	sb     *strings.Builder
}

type jbox struct {
	class string
	v     any
}

type jclassRef struct{ name string }

type jreflect struct {
	kind       string // field, method or constructor
	owner      string
	name       string
	params     string
	accessible bool
}

type jarray struct {
	elem  string
	elems []any
}

// javaError is a Java exception escaping run().
type javaError struct{ class, msg string }

func (e *javaError) Error() string { return e.class + ": " + e.msg }

func throw(class, format string, args ...any) *javaError {
	return &javaError{class: class, msg: fmt.Sprintf(format, args...)}
}

type vm struct {
	classes map[string]*jclass

	result      any
	resultClass *jclassRef
	resultSet   bool
}

func newVM(classes ...*jclass) *vm {
	m := &vm{classes: make(map[string]*jclass)}
	for _, c := range classes {
		m.classes[c.name] = c
	}
	return m
}

// load registers a generated class so its code runs when called.
func (m *vm) load(cf *classfile.ClassFile) {
	c := &jclass{
		name:       cf.Name,
		super:      cf.Super,
		interfaces: cf.Interfaces,
		fields:     make(map[string]*jfield),
		methods:    make(map[string]*jmethod),
	}
	for _, f := range cf.Fields {
		c.fields[f.Name] = &jfield{
			desc:    f.Descriptor,
			private: f.Access&classfile.AccPrivate != 0,
			static:  f.Access&classfile.AccStatic != 0,
			value:   zeroValue(f.Descriptor),
		}
	}
	for _, meth := range cf.Methods {
		c.methods[meth.Name+meth.Descriptor] = &jmethod{
			private: meth.Access&classfile.AccPrivate != 0,
			static:  meth.Access&classfile.AccStatic != 0,
			cf:      cf,
			code:    meth,
		}
	}
	m.classes[cf.Name] = c
}

func zeroValue(desc string) any {
	switch desc {
	case "I", "Z", "C", "S", "B":
		return int32(0)
	case "J":
		return int64(0)
	case "F":
		return float32(0)
	case "D":
		return float64(0)
	}
	return nil
}

// newObject instantiates a model class with its instance field defaults.
func (m *vm) newObject(class string) *jobject {
	o := &jobject{class: class, fields: make(map[string]any)}
	for c := m.classes[class]; c != nil; c = m.classes[c.super] {
		for name, f := range c.fields {
			if !f.static {
				if _, ok := o.fields[name]; !ok {
					o.fields[name] = f.value
				}
			}
		}
	}
	return o
}

func (m *vm) field(owner, name string) (*jclass, *jfield) {
	for c := m.classes[owner]; c != nil; c = m.classes[c.super] {
		if f, ok := c.fields[name]; ok {
			return c, f
		}
	}
	return nil, nil
}

func (m *vm) method(owner, key string) (*jclass, *jmethod) {
	for c := m.classes[owner]; c != nil; c = m.classes[c.super] {
		if mm, ok := c.methods[key]; ok {
			return c, mm
		}
	}
	return nil, nil
}

func wide(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

var wrappers = map[string]string{
	"java/lang/Integer": "I", "java/lang/Long": "J", "java/lang/Boolean": "Z", "java/lang/Character": "C",
	"java/lang/Short": "S", "java/lang/Byte": "B", "java/lang/Float": "F", "java/lang/Double": "D",
}

func boxClass(desc string) string {
	for w, d := range wrappers {
		if d == desc {
			return w
		}
	}
	return ""
}

func box(desc string, v any) any {
	if w := boxClass(desc); w != "" {
		return &jbox{class: w, v: v}
	}
	return v
}

func unbox(desc string, v any) (any, error) {
	if boxClass(desc) == "" {
		return v, nil
	}
	b, ok := v.(*jbox)
	if !ok {
		return nil, throw("java/lang/IllegalArgumentException", "expected %s, got %T", desc, v)
	}
	return b.v, nil
}

func primitiveDesc(name string) string {
	switch name {
	case "int":
		return "I"
	case "long":
		return "J"
	case "boolean":
		return "Z"
	case "char":
		return "C"
	case "short":
		return "S"
	case "byte":
		return "B"
	case "float":
		return "F"
	case "double":
		return "D"
	case "void":
		return "V"
	}
	return ""
}

func classDesc(c *jclassRef) string {
	if d := primitiveDesc(c.name); d != "" {
		return d
	}
	if strings.HasPrefix(c.name, "[") {
		return c.name
	}
	return "L" + c.name + ";"
}

func toJavaString(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case *jbox:
		return toJavaString(v.v)
	case int32:
		return strconv.Itoa(int(v))
	case int64:
		return strconv.FormatInt(v, 10)
	case *jobject:
		if v.sb != nil {
			return v.sb.String()
		}
		return v.class + "@1"
	}
	return fmt.Sprint(v)
}

func isInstance(m *vm, v any, class string) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return class == "java/lang/String" || class == "java/lang/Object" || class == "java/lang/CharSequence"
	case *jbox:
		return class == v.class || class == "java/lang/Object" || class == "java/lang/Number"
	case *jobject:
		for c := v.class; c != ""; {
			if c == class {
				return true
			}
			jc := m.classes[c]
			if jc == nil {
				break
			}
			for _, i := range jc.interfaces {
				if i == class {
					return true
				}
			}
			c = jc.super
		}
		return class == "java/lang/Object"
	case *jarray:
		return class == "java/lang/Object" || class == "["+v.elem
	}
	return class == "java/lang/Object"
}

// run executes the run() method of cf on this.
func (m *vm) run(cf *classfile.ClassFile, this *jobject) error {
	meth := cf.FindMethod(RunMethod, "()V")
	if meth == nil {
		return fmt.Errorf("%s has no run method", cf.Name)
	}
	_, err := m.exec(cf, meth, this, nil)
	return err
}

// exec interprets the code of meth, declared by cf, and returns the value
// of its return instruction.
func (m *vm) exec(cf *classfile.ClassFile, meth *classfile.Method, this *jobject, args []any) (any, error) {
	if meth.Code == nil || meth.Code.Instructions == nil {
		return nil, fmt.Errorf("%s.%s has no decoded code", cf.Name, meth.Name)
	}
	code := meth.Code.Instructions
	labels := make(map[int]int)
	for i, in := range code {
		if in.Op == classfile.OpLabel {
			labels[in.Label] = i
		}
	}

	var stack []any
	locals := map[int]any{0: this}
	slot := 1
	for _, a := range args {
		locals[slot] = a
		slot++
		if wide(a) {
			slot++
		}
	}
	push := func(vs ...any) { stack = append(stack, vs...) }
	pop := func() any {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	popN := func(n int) []any {
		out := append([]any(nil), stack[len(stack)-n:]...)
		stack = stack[:len(stack)-n]
		return out
	}

	for pc := 0; pc < len(code); pc++ {
		in := code[pc]
		jump := func() { pc = labels[in.Label] }
		switch op := in.Op; {
		case op == classfile.OpLabel, op == classfile.OpNop:
		case op == classfile.OpAconstNull:
			push(nil)
		case op >= classfile.OpIconstM1 && op <= classfile.OpIconst5:
			push(int32(op - classfile.OpIconst0))
		case op == classfile.OpLconst0 || op == classfile.OpLconst1:
			push(int64(op - classfile.OpLconst0))
		case op == classfile.OpBipush || op == classfile.OpSipush:
			push(int32(in.Int))
		case op == classfile.OpLdc || op == classfile.OpLdcW || op == classfile.OpLdc2W:
			if cc, ok := in.Const.(classfile.ClassConst); ok {
				push(&jclassRef{name: string(cc)})
			} else {
				push(in.Const)
			}
		case op >= classfile.OpIload && op <= classfile.OpAload:
			push(locals[in.Int])
		case op >= classfile.OpIstore && op <= classfile.OpAstore:
			locals[in.Int] = pop()
		case op == classfile.OpIinc:
			locals[in.Int] = locals[in.Int].(int32) + int32(in.Inc)
		case op == classfile.OpPop:
			pop()
		case op == classfile.OpPop2:
			if !wide(pop()) {
				pop()
			}
		case op == classfile.OpDup:
			push(stack[len(stack)-1])
		case op == classfile.OpDup2:
			if wide(stack[len(stack)-1]) {
				push(stack[len(stack)-1])
			} else {
				push(stack[len(stack)-2], stack[len(stack)-1])
			}
		case op == classfile.OpDupX1:
			v := popN(2)
			push(v[1], v[0], v[1])
		case op == classfile.OpDupX2:
			if wide(stack[len(stack)-2]) {
				v := popN(2)
				push(v[1], v[0], v[1])
			} else {
				v := popN(3)
				push(v[2], v[0], v[1], v[2])
			}
		case op == classfile.OpDup2X1:
			if wide(stack[len(stack)-1]) {
				v := popN(2)
				push(v[1], v[0], v[1])
			} else {
				v := popN(3)
				push(v[1], v[2], v[0], v[1], v[2])
			}
		case op == classfile.OpSwap:
			v := popN(2)
			push(v[1], v[0])
		case op == classfile.OpIadd, op == classfile.OpIsub, op == classfile.OpImul, op == classfile.OpIdiv,
			op == classfile.OpIrem, op == classfile.OpIand, op == classfile.OpIor, op == classfile.OpIxor:
			v := popN(2)
			a, b := v[0].(int32), v[1].(int32)
			if (op == classfile.OpIdiv || op == classfile.OpIrem) && b == 0 {
				return nil, throw("java/lang/ArithmeticException", "/ by zero")
			}
			push(map[classfile.Opcode]func() int32{
				classfile.OpIadd: func() int32 { return a + b },
				classfile.OpIsub: func() int32 { return a - b },
				classfile.OpImul: func() int32 { return a * b },
				classfile.OpIdiv: func() int32 { return a / b },
				classfile.OpIrem: func() int32 { return a % b },
				classfile.OpIand: func() int32 { return a & b },
				classfile.OpIor:  func() int32 { return a | b },
				classfile.OpIxor: func() int32 { return a ^ b },
			}[op]())
		case op == classfile.OpLadd, op == classfile.OpLsub, op == classfile.OpLmul:
			v := popN(2)
			a, b := v[0].(int64), v[1].(int64)
			switch op {
			case classfile.OpLadd:
				push(a + b)
			case classfile.OpLsub:
				push(a - b)
			default:
				push(a * b)
			}
		case op == classfile.OpIneg:
			push(-pop().(int32))
		case op == classfile.OpI2l:
			push(int64(pop().(int32)))
		case op == classfile.OpL2i:
			push(int32(pop().(int64)))
		case op == classfile.OpLcmp:
			v := popN(2)
			a, b := v[0].(int64), v[1].(int64)
			switch {
			case a < b:
				push(int32(-1))
			case a > b:
				push(int32(1))
			default:
				push(int32(0))
			}
		case op >= classfile.OpIfeq && op <= classfile.OpIfle:
			v := pop().(int32)
			if [6]bool{v == 0, v != 0, v < 0, v >= 0, v > 0, v <= 0}[op-classfile.OpIfeq] {
				jump()
			}
		case op >= classfile.OpIfIcmpeq && op <= classfile.OpIfIcmple:
			v := popN(2)
			a, b := v[0].(int32), v[1].(int32)
			if [6]bool{a == b, a != b, a < b, a >= b, a > b, a <= b}[op-classfile.OpIfIcmpeq] {
				jump()
			}
		case op == classfile.OpIfAcmpeq || op == classfile.OpIfAcmpne:
			v := popN(2)
			if (v[0] == v[1]) == (op == classfile.OpIfAcmpeq) {
				jump()
			}
		case op == classfile.OpIfnull || op == classfile.OpIfnonnull:
			if (pop() == nil) == (op == classfile.OpIfnull) {
				jump()
			}
		case op == classfile.OpGoto:
			jump()
		case op == classfile.OpReturn:
			return nil, nil
		case op >= classfile.OpIreturn && op <= classfile.OpAreturn:
			return pop(), nil
		case op == classfile.OpAthrow:
			return nil, throw(fmt.Sprint(pop()), "thrown by snippet")
		case op == classfile.OpNew:
			if in.Class == "java/lang/StringBuilder" {
				push(&jobject{class: in.Class, sb: &strings.Builder{}})
			} else {
				push(m.newObject(in.Class))
			}
		case op == classfile.OpNewarray || op == classfile.OpAnewarray:
			n := pop().(int32)
			elem := in.Class
			if op == classfile.OpNewarray {
				elem = "I"
			}
			push(&jarray{elem: elem, elems: make([]any, n)})
		case op == classfile.OpArraylength:
			push(int32(len(pop().(*jarray).elems)))
		case op == classfile.OpAaload, op == classfile.OpIaload:
			v := popN(2)
			push(v[0].(*jarray).elems[v[1].(int32)])
		case op == classfile.OpAastore, op == classfile.OpIastore:
			v := popN(3)
			v[0].(*jarray).elems[v[1].(int32)] = v[2]
		case op == classfile.OpCheckcast:
			if v := stack[len(stack)-1]; v != nil && !isInstance(m, v, in.Class) {
				return nil, throw("java/lang/ClassCastException", "%T cannot be cast to %s", v, in.Class)
			}
		case op == classfile.OpInstanceof:
			if isInstance(m, pop(), in.Class) {
				push(int32(1))
			} else {
				push(int32(0))
			}
		case op == classfile.OpGetstatic, op == classfile.OpPutstatic, op == classfile.OpGetfield, op == classfile.OpPutfield:
			if err := m.fieldInsn(cf, in, &stack); err != nil {
				return nil, err
			}
		case op == classfile.OpInvokevirtual, op == classfile.OpInvokespecial, op == classfile.OpInvokestatic, op == classfile.OpInvokeiface:
			if err := m.invoke(cf, in, &stack); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unsupported instruction %s", in)
		}
	}
	return nil, fmt.Errorf("%s.%s fell off the end", cf.Name, meth.Name)
}

func (m *vm) fieldInsn(cf *classfile.ClassFile, in classfile.Instruction, stack *[]any) error {
	ref := in.Ref
	popv := func() any {
		s := *stack
		v := s[len(s)-1]
		*stack = s[:len(s)-1]
		return v
	}
	if ref.Name == "TYPE" && in.Op == classfile.OpGetstatic {
		if d, ok := wrappers[ref.Owner]; ok {
			for _, p := range []string{"int", "long", "boolean", "char", "short", "byte", "float", "double"} {
				if primitiveDesc(p) == d {
					*stack = append(*stack, &jclassRef{name: p})
				}
			}
			return nil
		}
		if ref.Owner == "java/lang/Void" {
			*stack = append(*stack, &jclassRef{name: "void"})
			return nil
		}
	}
	if ref.Owner != cf.Name {
		owner, f := m.field(ref.Owner, ref.Name)
		if f == nil {
			return throw("java/lang/NoSuchFieldError", "%s", ref)
		}
		if f.private && owner.name != cf.Name {
			return throw("java/lang/IllegalAccessError", "%s.%s is private", owner.name, ref.Name)
		}
	}
	switch in.Op {
	case classfile.OpGetfield:
		obj, ok := popv().(*jobject)
		if !ok || obj == nil {
			return throw("java/lang/NullPointerException", "getfield %s", ref)
		}
		*stack = append(*stack, obj.fields[ref.Name])
	case classfile.OpPutfield:
		v := popv()
		obj, ok := popv().(*jobject)
		if !ok || obj == nil {
			return throw("java/lang/NullPointerException", "putfield %s", ref)
		}
		obj.fields[ref.Name] = v
	case classfile.OpGetstatic:
		_, f := m.field(ref.Owner, ref.Name)
		*stack = append(*stack, f.value)
	case classfile.OpPutstatic:
		_, f := m.field(ref.Owner, ref.Name)
		f.value = popv()
	}
	return nil
}

func (m *vm) invoke(cf *classfile.ClassFile, in classfile.Instruction, stack *[]any) error {
	ref := in.Ref
	params, ret, err := classfile.ParseMethodDescriptor(ref.Desc)
	if err != nil {
		return err
	}
	n := len(params)
	if in.Op != classfile.OpInvokestatic {
		n++
	}
	s := *stack
	args := append([]any(nil), s[len(s)-n:]...)
	*stack = s[:len(s)-n]
	var recv any
	if in.Op != classfile.OpInvokestatic {
		recv, args = args[0], args[1:]
	}
	var result any
	if target := m.loaded(in.Op, ref, recv); target != nil {
		if target.private && target.cf.Name != cf.Name {
			return throw("java/lang/IllegalAccessError", "%s.%s is private", target.cf.Name, ref.Name)
		}
		obj, _ := recv.(*jobject)
		result, err = m.exec(target.cf, target.code, obj, args)
	} else {
		result, err = m.call(cf, ref, recv, args)
	}
	if err != nil {
		return err
	}
	if ret != "V" {
		*stack = append(*stack, result)
	}
	return nil
}

// loaded finds the generated method an invocation runs: virtual calls
// dispatch on the class of the receiver.
func (m *vm) loaded(op classfile.Opcode, ref *classfile.MemberRef, recv any) *jmethod {
	owner := ref.Owner
	if obj, ok := recv.(*jobject); ok && obj != nil && (op == classfile.OpInvokevirtual || op == classfile.OpInvokeiface) {
		owner = obj.class
	}
	if _, mm := m.method(owner, ref.Name+ref.Desc); mm != nil && mm.code != nil {
		return mm
	}
	return nil
}

func (m *vm) call(cf *classfile.ClassFile, ref *classfile.MemberRef, recv any, args []any) (any, error) {
	key := ref.Owner + "." + ref.Name
	switch {
	case ref.Owner == cf.Name && ref.Name == SetResultMethod:
		m.result, m.resultSet = args[0], true
		m.resultClass, _ = args[1].(*jclassRef)
		return nil, nil
	case ref.Name == "<init>" && (ref.Owner == "java/lang/Object" || ref.Owner == RootClassName):
		return nil, nil
	case ref.Name == "valueOf" && wrappers[ref.Owner] != "":
		return &jbox{class: ref.Owner, v: args[0]}, nil
	case strings.HasSuffix(ref.Name, "Value") && wrappers[ref.Owner] != "":
		b, ok := recv.(*jbox)
		if !ok {
			return nil, throw("java/lang/NullPointerException", "%s on %T", key, recv)
		}
		return b.v, nil
	case key == "java/lang/StringBuilder.<init>":
		if len(args) == 1 {
			recv.(*jobject).sb.WriteString(args[0].(string))
		}
		return nil, nil
	case key == "java/lang/StringBuilder.append":
		sb := recv.(*jobject)
		v := args[0]
		if ref.Desc == "(C)Ljava/lang/StringBuilder;" {
			v = string(rune(v.(int32)))
		} else if ref.Desc == "(Z)Ljava/lang/StringBuilder;" {
			v = strconv.FormatBool(v.(int32) != 0)
		}
		sb.sb.WriteString(toJavaString(v))
		return sb, nil
	case key == "java/lang/StringBuilder.toString":
		return recv.(*jobject).sb.String(), nil
	case key == "java/lang/String.valueOf":
		return toJavaString(args[0]), nil
	case key == "java/lang/Class.forName":
		name := strings.ReplaceAll(args[0].(string), ".", "/")
		if m.classes[name] == nil && !strings.HasPrefix(name, "java/") {
			return nil, throw("java/lang/ClassNotFoundException", "%s", args[0])
		}
		return &jclassRef{name: name}, nil
	case key == "java/lang/Object.getClass":
		if a, ok := recv.(*jarray); ok {
			return &jclassRef{name: "[" + a.elem}, nil
		}
		return &jclassRef{name: recv.(*jobject).class}, nil
	case key == "java/lang/Class.isInstance":
		if isInstance(m, args[0], recv.(*jclassRef).name) {
			return int32(1), nil
		}
		return int32(0), nil
	case key == "java/lang/Class.getDeclaredField":
		owner := recv.(*jclassRef).name
		if c := m.classes[owner]; c == nil || c.fields[args[0].(string)] == nil {
			return nil, throw("java/lang/NoSuchFieldException", "%s", args[0])
		}
		return &jreflect{kind: "field", owner: owner, name: args[0].(string)}, nil
	case key == "java/lang/Class.getDeclaredMethod":
		return m.reflectMethod(recv.(*jclassRef).name, args[0].(string), args[1].(*jarray))
	case key == "java/lang/Class.getDeclaredConstructor":
		return m.reflectMethod(recv.(*jclassRef).name, "<init>", args[0].(*jarray))
	case key == "java/lang/reflect/AccessibleObject.setAccessible":
		recv.(*jreflect).accessible = args[0].(int32) != 0
		return nil, nil
	case ref.Owner == "java/lang/reflect/Field" && (strings.HasPrefix(ref.Name, "get") || strings.HasPrefix(ref.Name, "set")):
		r := recv.(*jreflect)
		f := m.classes[r.owner].fields[r.name]
		if f.private && !r.accessible {
			return nil, throw("java/lang/IllegalAccessException", "%s.%s", r.owner, r.name)
		}
		obj, _ := args[0].(*jobject)
		if !f.static && obj == nil {
			return nil, throw("java/lang/NullPointerException", "%s.%s", r.owner, r.name)
		}
		// getInt, setLong and friends move raw values of exactly their type
		typed := len(ref.Name) > 3
		if typed && primitiveDesc(strings.ToLower(ref.Name[3:])) != f.desc {
			return nil, throw("java/lang/IllegalArgumentException", "%s on %s field %s.%s", ref.Name, f.desc, r.owner, r.name)
		}
		if strings.HasPrefix(ref.Name, "get") {
			v := f.value
			if !f.static {
				v = obj.fields[r.name]
			}
			if typed {
				return v, nil
			}
			return box(f.desc, v), nil
		}
		v := args[1]
		if !typed {
			var err error
			if v, err = unbox(f.desc, v); err != nil {
				return nil, err
			}
		}
		if f.static {
			f.value = v
		} else {
			obj.fields[r.name] = v
		}
		return nil, nil
	case key == "java/lang/reflect/Method.invoke", key == "java/lang/reflect/Constructor.newInstance":
		r := recv.(*jreflect)
		mm := m.classes[r.owner].methods[r.name+"("+r.params+")"]
		var methodDesc string
		for k := range m.classes[r.owner].methods {
			if strings.HasPrefix(k, r.name+"("+r.params+")") {
				mm, methodDesc = m.classes[r.owner].methods[k], k[len(r.name):]
			}
		}
		if mm.private && !r.accessible {
			return nil, throw("java/lang/IllegalAccessException", "%s.%s", r.owner, r.name)
		}
		var target *jobject
		var boxed *jarray
		if r.kind == "constructor" {
			target = m.newObject(r.owner)
			boxed = args[0].(*jarray)
		} else {
			target, _ = args[0].(*jobject)
			boxed = args[1].(*jarray)
		}
		params, ret, err := classfile.ParseMethodDescriptor(methodDesc)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(params))
		for i, p := range params {
			if values[i], err = unbox(p, boxed.elems[i]); err != nil {
				return nil, err
			}
		}
		out := mm.fn(target, values)
		if r.kind == "constructor" {
			return target, nil
		}
		if ret == "V" {
			return nil, nil
		}
		return box(ret, out), nil
	}

	owner, mm := m.method(ref.Owner, ref.Name+ref.Desc)
	if mm == nil {
		return nil, throw("java/lang/NoSuchMethodError", "%s", ref)
	}
	if mm.private && owner.name != cf.Name {
		return nil, throw("java/lang/IllegalAccessError", "%s.%s is private", owner.name, ref.Name)
	}
	obj, _ := recv.(*jobject)
	if ref.Name == "<init>" {
		mm.fn(obj, args)
		return nil, nil
	}
	return mm.fn(obj, args), nil
}

// reflectMethod finds a declared method by name and parameter classes.
func (m *vm) reflectMethod(owner, name string, classes *jarray) (*jreflect, error) {
	var params strings.Builder
	for _, c := range classes.elems {
		params.WriteString(classDesc(c.(*jclassRef)))
	}
	c := m.classes[owner]
	if c != nil {
		for k := range c.methods {
			if strings.HasPrefix(k, name+"("+params.String()+")") {
				kind := "method"
				if name == "<init>" {
					kind = "constructor"
				}
				return &jreflect{kind: kind, owner: owner, name: name, params: params.String()}, nil
			}
		}
	}
	return nil, throw("java/lang/NoSuchMethodException", "%s.%s(%s)", owner, name, params.String())
}
