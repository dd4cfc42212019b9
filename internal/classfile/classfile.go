package classfile

import (
	"errors"
	"fmt"
	"strings"
)

// Access flags
const (
	AccPublic       uint16 = 0x0001
	AccPrivate      uint16 = 0x0002
	AccProtected    uint16 = 0x0004
	AccStatic       uint16 = 0x0008
	AccFinal        uint16 = 0x0010
	AccSuper        uint16 = 0x0020
	AccSynchronized uint16 = 0x0020
	AccVolatile     uint16 = 0x0040
	AccBridge       uint16 = 0x0040
	AccTransient    uint16 = 0x0080
	AccVarargs      uint16 = 0x0080
	AccNative       uint16 = 0x0100
	AccInterface    uint16 = 0x0200
	AccAbstract     uint16 = 0x0400
	AccSynthetic    uint16 = 0x1000
	AccAnnotation   uint16 = 0x2000
	AccEnum         uint16 = 0x4000
)

const (
	Magic = 0xCAFEBABE
	// MajorVersion 49 (Java 5) is the newest version that does not require
	// StackMapTable frames.
	MajorVersion = 49
)

var (
	// ErrClassFormat is returned when class bytes cannot be decoded
	ErrClassFormat = errors.New("class format error")
	// ErrUnsupportedOpcode is returned for instructions the decoder does not model
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
	// ErrBadBranch is returned when a branch target label was never placed
	ErrBadBranch = errors.New("branch to undefined label")
)

// ClassFile is a decoded or to-be-written JVM class.
type ClassFile struct {
	Major, Minor uint16
	Access       uint16
	Name         string // internal name, p/Outer$Inner
	Super        string // empty only for java/lang/Object
	Interfaces   []string
	Fields       []*Field
	Methods      []*Method
	SourceFile   string
	InnerClasses []InnerClass
	// EnclosingMethod is set on local and anonymous classes.
	EnclosingMethod *EnclosingMethod
}

// Field is a field_info.
type Field struct {
	Access     uint16
	Name       string
	Descriptor string
	// Constant is the ConstantValue attribute (int32, int64, float32, float64 or string), or nil.
	Constant any
}

// Method is a method_info.
type Method struct {
	Access     uint16
	Name       string
	Descriptor string
	Exceptions []string
	Code       *Code
}

// IsConstructor reports <init> methods.
func (m *Method) IsConstructor() bool { return m.Name == "<init>" }

// Code is the Code attribute. Writers fill Instructions. The reader fills
// Bytes, and Instructions when every opcode could be decoded.
type Code struct {
	MaxStack     int
	MaxLocals    int
	Instructions []Instruction
	Bytes        []byte
	LineNumbers  []LineNumber
}

// LineNumber maps a bytecode offset, or an instruction index before
// encoding, to a source line.
type LineNumber struct {
	PC   int
	Line int
}

// InnerClass is one InnerClasses attribute entry.
type InnerClass struct {
	Inner  string
	Outer  string
	Name   string
	Access uint16
}

// EnclosingMethod is the EnclosingMethod attribute. Name and Desc are empty
// for a class declared in an initializer.
type EnclosingMethod struct {
	Class string
	Name  string
	Desc  string
}

// MemberRef names a field or method in the constant pool.
type MemberRef struct {
	Owner     string
	Name      string
	Desc      string
	Interface bool
}

func (r *MemberRef) String() string {
	return r.Owner + "." + r.Name + ":" + r.Desc
}

// ClassConst is an ldc operand that loads a Class object.
type ClassConst string

// Instruction is one symbolic instruction.
type Instruction struct {
	Op Opcode
	// Int holds the local index, the bipush/sipush value, the newarray
	// element type or the multianewarray dimension count.
	Int int
	// Inc is the iinc increment.
	Inc int
	// Const is the ldc operand: int32, float32, int64, float64, string or ClassConst.
	Const any
	Ref   *MemberRef
	// Class is the operand of new, checkcast, instanceof, anewarray and multianewarray.
	Class string
	// Label is the branch target, or the label defined by OpLabel.
	Label int
}

func (in Instruction) String() string {
	switch {
	case in.Op == OpLabel:
		return fmt.Sprintf("L%d:", in.Label)
	case in.Op.IsBranch():
		return fmt.Sprintf("%s L%d", in.Op, in.Label)
	case in.Ref != nil:
		return fmt.Sprintf("%s %s", in.Op, in.Ref)
	case in.Class != "":
		if in.Op == OpMultianewarr {
			return fmt.Sprintf("%s %s %d", in.Op, in.Class, in.Int)
		}
		return fmt.Sprintf("%s %s", in.Op, in.Class)
	case in.Op == OpLdc || in.Op == OpLdcW || in.Op == OpLdc2W:
		switch v := in.Const.(type) {
		case string:
			return fmt.Sprintf("%s %q", in.Op, v)
		case ClassConst:
			return fmt.Sprintf("%s class %s", in.Op, string(v))
		default:
			return fmt.Sprintf("%s %v", in.Op, v)
		}
	case in.Op == OpIinc:
		return fmt.Sprintf("iinc %d %d", in.Int, in.Inc)
	case in.Op.isLocalOp(), in.Op == OpBipush, in.Op == OpSipush, in.Op == OpNewarray:
		return fmt.Sprintf("%s %d", in.Op, in.Int)
	}
	return in.Op.String()
}

// FindMethod returns the first method with the given name and descriptor.
// An empty descriptor matches any.
func (cf *ClassFile) FindMethod(name, desc string) *Method {
	for _, m := range cf.Methods {
		if m.Name == name && (desc == "" || m.Descriptor == desc) {
			return m
		}
	}
	return nil
}

// FindField returns the field with the given name.
func (cf *ClassFile) FindField(name string) *Field {
	for _, f := range cf.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IsInterface reports the ACC_INTERFACE flag.
func (cf *ClassFile) IsInterface() bool { return cf.Access&AccInterface != 0 }

// SimpleName returns the name after the last '/' and '$'.
func (cf *ClassFile) SimpleName() string {
	name := cf.Name
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '$'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// PackageName returns the dotted package of the class.
func (cf *ClassFile) PackageName() string {
	if i := strings.LastIndexByte(cf.Name, '/'); i >= 0 {
		return strings.ReplaceAll(cf.Name[:i], "/", ".")
	}
	return ""
}

// ParseMethodDescriptor splits (I[Ljava/lang/String;)V into its parameter
// and return descriptors.
func ParseMethodDescriptor(desc string) (params []string, ret string, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("%w: bad method descriptor %q", ErrClassFormat, desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldDescLen(desc[i:])
		if err != nil {
			return nil, "", err
		}
		params = append(params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("%w: unterminated method descriptor %q", ErrClassFormat, desc)
	}
	return params, desc[i+1:], nil
}

func fieldDescLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, fmt.Errorf("%w: truncated descriptor", ErrClassFormat)
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		return i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return 0, fmt.Errorf("%w: unterminated class descriptor", ErrClassFormat)
		}
		return i + end + 1, nil
	}
	return 0, fmt.Errorf("%w: bad descriptor character %q", ErrClassFormat, s[i])
}

// SlotSize returns the number of stack or local slots a value of the given
// field descriptor occupies.
func SlotSize(desc string) int {
	switch desc {
	case "J", "D":
		return 2
	case "V", "":
		return 0
	}
	return 1
}

// ArgSlots sums the slot sizes of a method's parameters.
func ArgSlots(desc string) int {
	params, _, err := ParseMethodDescriptor(desc)
	if err != nil {
		return 0
	}
	n := 0
	for _, p := range params {
		n += SlotSize(p)
	}
	return n
}

// ClassName turns an object or array descriptor into the name used by
// checkcast and anewarray: Ljava/lang/String; becomes java/lang/String,
// array descriptors are kept as is.
func ClassName(desc string) string {
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return desc[1 : len(desc)-1]
	}
	return desc
}
