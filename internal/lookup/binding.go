package lookup

import (
	"strings"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/jast"
)

// TypeKind classifies type bindings
type TypeKind int

const (
	TypeClass TypeKind = iota
	TypeInterface
	TypeEnum
	TypeRecord
	TypeAnnotation
	TypePrimitive
	TypeArray
	TypeNull
)

// ProblemReason explains why a lookup produced a problem binding
type ProblemReason int

const (
	NoProblem ProblemReason = iota
	NotFound
	NotVisible
	Ambiguous
	InheritedNameHidesEnclosingName
	NonStaticReferenceInStaticContext
	NonStaticReferenceInConstructorInvocation
)

func (r ProblemReason) String() string {
	switch r {
	case NoProblem:
		return "NoProblem"
	case NotFound:
		return "NotFound"
	case NotVisible:
		return "NotVisible"
	case Ambiguous:
		return "Ambiguous"
	case InheritedNameHidesEnclosingName:
		return "InheritedNameHidesEnclosingName"
	case NonStaticReferenceInStaticContext:
		return "NonStaticReferenceInStaticContext"
	case NonStaticReferenceInConstructorInvocation:
		return "NonStaticReferenceInConstructorInvocation"
	}
	return "Unknown"
}

// TypeBinding is a resolved type. Class, interface, enum, record and
// annotation bindings are backed by either a source declaration or a class
// file and complete their supertypes and members lazily.
type TypeBinding struct {
	Kind TypeKind
	// Name is the internal name (p/Outer$Inner), the primitive keyword, or
	// the descriptor for arrays.
	Name      string
	Modifiers jast.Modifiers
	Enclosing *TypeBinding
	// Elem is the component type of an array.
	Elem      *TypeBinding
	Local     bool
	Anonymous bool

	Source    *jast.TypeDecl
	Binary    *classfile.ClassFile
	Container string
	Path      string

	simple string
	env    *Environment

	supersState  int
	membersState int
	superclass   *TypeBinding
	interfaces   []*TypeBinding
	fields       []*FieldBinding
	methods      []*MethodBinding
	memberTypes  []*TypeBinding
	typeVars     map[string]*TypeBinding
}

const (
	stateNone = iota
	stateBusy
	stateDone
)

// SimpleName returns the source simple name ("" for anonymous classes).
func (t *TypeBinding) SimpleName() string {
	switch t.Kind {
	case TypeArray:
		return t.Elem.SimpleName() + "[]"
	case TypePrimitive, TypeNull:
		return t.Name
	}
	return t.simple
}

// PackageName returns the dotted package name.
func (t *TypeBinding) PackageName() string {
	switch t.Kind {
	case TypeArray:
		return t.Leaf().PackageName()
	case TypePrimitive, TypeNull:
		return ""
	}
	if i := strings.LastIndexByte(t.Name, '/'); i >= 0 {
		return strings.ReplaceAll(t.Name[:i], "/", ".")
	}
	return ""
}

// QualifiedName returns the dotted source name (p.Outer.Inner, int[]).
func (t *TypeBinding) QualifiedName() string {
	switch t.Kind {
	case TypeArray:
		return t.Elem.QualifiedName() + "[]"
	case TypePrimitive, TypeNull:
		return t.Name
	}
	if t.Enclosing != nil && !t.Local && !t.Anonymous {
		return t.Enclosing.QualifiedName() + "." + t.simple
	}
	if t.Local || t.Anonymous {
		return t.simple
	}
	if pkg := t.PackageName(); pkg != "" {
		return pkg + "." + t.simple
	}
	return t.simple
}

// BinaryName returns the dotted binary name Class.forName expects
// (p.Outer$Inner, [I).
func (t *TypeBinding) BinaryName() string {
	return strings.ReplaceAll(t.Name, "/", ".")
}

// Descriptor returns the JVM field descriptor.
func (t *TypeBinding) Descriptor() string {
	switch t.Kind {
	case TypePrimitive:
		return primitiveDescriptors[t.Name]
	case TypeArray:
		return t.Name
	case TypeNull:
		return "Ljava/lang/Object;"
	}
	return "L" + t.Name + ";"
}

// InternalName returns the operand form used by new, checkcast and
// anewarray: the internal name for classes, the descriptor for arrays.
func (t *TypeBinding) InternalName() string {
	return t.Name
}

func (t *TypeBinding) String() string { return t.QualifiedName() }

// IsPrimitive reports primitive types including void.
func (t *TypeBinding) IsPrimitive() bool { return t.Kind == TypePrimitive }

// IsVoid reports the void pseudo type.
func (t *TypeBinding) IsVoid() bool { return t.Kind == TypePrimitive && t.Name == "void" }

// IsArray reports array types.
func (t *TypeBinding) IsArray() bool { return t.Kind == TypeArray }

// IsReference reports class, interface, array and null types.
func (t *TypeBinding) IsReference() bool { return t.Kind != TypePrimitive }

// IsInterface reports interfaces and annotation types.
func (t *TypeBinding) IsInterface() bool {
	return t.Kind == TypeInterface || t.Kind == TypeAnnotation
}

// IsStatic reports static member types. Top-level types count as static.
func (t *TypeBinding) IsStatic() bool {
	return t.Enclosing == nil || t.Modifiers.Has(jast.ModStatic) || t.IsInterface() ||
		t.Kind == TypeEnum || t.Kind == TypeRecord
}

// IsInnerMember reports member classes that take an enclosing instance.
func IsInnerMember(t *TypeBinding) bool {
	return t != nil && t.Enclosing != nil && !t.IsStatic() && !t.Local && !t.Anonymous
}

// IsNumeric reports numeric primitives, char included.
func (t *TypeBinding) IsNumeric() bool {
	if t.Kind != TypePrimitive {
		return false
	}
	switch t.Name {
	case "byte", "short", "char", "int", "long", "float", "double":
		return true
	}
	return false
}

// IsWide reports long and double, which take two slots.
func (t *TypeBinding) IsWide() bool {
	return t.Kind == TypePrimitive && (t.Name == "long" || t.Name == "double")
}

// Leaf returns the innermost component type of an array.
func (t *TypeBinding) Leaf() *TypeBinding {
	for t.Kind == TypeArray {
		t = t.Elem
	}
	return t
}

// Dimensions returns the array depth.
func (t *TypeBinding) Dimensions() int {
	n := 0
	for b := t; b.Kind == TypeArray; b = b.Elem {
		n++
	}
	return n
}

// Outermost walks enclosing types to the top-level type.
func (t *TypeBinding) Outermost() *TypeBinding {
	for t.Enclosing != nil {
		t = t.Enclosing
	}
	return t
}

// Superclass returns the direct superclass, nil for Object, interfaces and
// non-class types.
func (t *TypeBinding) Superclass() *TypeBinding {
	t.completeSupertypes()
	return t.superclass
}

// Interfaces returns the direct superinterfaces.
func (t *TypeBinding) Interfaces() []*TypeBinding {
	t.completeSupertypes()
	return t.interfaces
}

// Fields returns the declared fields.
func (t *TypeBinding) Fields() []*FieldBinding {
	t.completeMembers()
	return t.fields
}

// Methods returns the declared methods and constructors.
func (t *TypeBinding) Methods() []*MethodBinding {
	t.completeMembers()
	return t.methods
}

// MemberTypes returns the declared member types.
func (t *TypeBinding) MemberTypes() []*TypeBinding {
	return t.memberTypes
}

// DeclaredField returns the field declared directly by t.
func (t *TypeBinding) DeclaredField(name string) *FieldBinding {
	for _, f := range t.Fields() {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// DeclaredMethods returns the methods named name declared directly by t.
func (t *TypeBinding) DeclaredMethods(name string) []*MethodBinding {
	var out []*MethodBinding
	for _, m := range t.Methods() {
		if m.Name == name && !m.Constructor {
			out = append(out, m)
		}
	}
	return out
}

// Constructors returns the declared constructors, including the default one.
func (t *TypeBinding) Constructors() []*MethodBinding {
	var out []*MethodBinding
	for _, m := range t.Methods() {
		if m.Constructor {
			out = append(out, m)
		}
	}
	return out
}

// MemberType returns the member type declared directly by t.
func (t *TypeBinding) MemberType(name string) *TypeBinding {
	for _, m := range t.memberTypes {
		if m.simple == name {
			return m
		}
	}
	return nil
}

// IsSubtypeOf reports whether t is other or one of its subtypes. The null
// type is a subtype of every reference type.
func (t *TypeBinding) IsSubtypeOf(other *TypeBinding) bool {
	if t == nil || other == nil {
		return false
	}
	if t == other || t.Name == other.Name && t.Kind == other.Kind {
		return true
	}
	switch t.Kind {
	case TypePrimitive:
		return false
	case TypeNull:
		return other.IsReference()
	case TypeArray:
		switch other.Name {
		case "java/lang/Object", "java/lang/Cloneable", "java/io/Serializable":
			return true
		}
		if other.Kind != TypeArray {
			return false
		}
		if t.Elem.IsPrimitive() || other.Elem.IsPrimitive() {
			return t.Elem == other.Elem || t.Elem.Name == other.Elem.Name
		}
		return t.Elem.IsSubtypeOf(other.Elem)
	}
	if other.Name == "java/lang/Object" && other.Kind == TypeClass {
		return true
	}
	visited := make(map[*TypeBinding]bool)
	return t.inherits(other, visited)
}

func (t *TypeBinding) inherits(other *TypeBinding, visited map[*TypeBinding]bool) bool {
	if visited[t] {
		return false
	}
	visited[t] = true
	if t == other || t.Name == other.Name {
		return true
	}
	if s := t.Superclass(); s != nil && s.inherits(other, visited) {
		return true
	}
	for _, i := range t.Interfaces() {
		if i.inherits(other, visited) {
			return true
		}
	}
	return false
}

// IsCompatibleWith reports assignment compatibility without boxing:
// identity, widening primitive conversion or reference widening.
func (t *TypeBinding) IsCompatibleWith(other *TypeBinding) bool {
	if t == nil || other == nil {
		return false
	}
	if t.Kind == TypePrimitive && other.Kind == TypePrimitive {
		return t.Name == other.Name || wideningPrimitive(t.Name, other.Name)
	}
	if t.Kind == TypePrimitive || other.Kind == TypePrimitive {
		return false
	}
	return t.IsSubtypeOf(other)
}

func wideningPrimitive(from, to string) bool {
	switch from {
	case "byte":
		return to == "short" || to == "int" || to == "long" || to == "float" || to == "double"
	case "short", "char":
		return to == "int" || to == "long" || to == "float" || to == "double"
	case "int":
		return to == "long" || to == "float" || to == "double"
	case "long":
		return to == "float" || to == "double"
	case "float":
		return to == "double"
	}
	return false
}

var primitiveDescriptors = map[string]string{
	"boolean": "Z", "byte": "B", "char": "C", "short": "S",
	"int": "I", "long": "J", "float": "F", "double": "D", "void": "V",
}

var wrapperNames = map[string]string{
	"boolean": "java/lang/Boolean", "byte": "java/lang/Byte", "char": "java/lang/Character",
	"short": "java/lang/Short", "int": "java/lang/Integer", "long": "java/lang/Long",
	"float": "java/lang/Float", "double": "java/lang/Double", "void": "java/lang/Void",
}

// WrapperName returns the internal name of the box class of a primitive.
func WrapperName(primitive string) string { return wrapperNames[primitive] }

// UnboxedName returns the primitive keyword for a box class, or "".
func UnboxedName(internal string) string {
	for p, w := range wrapperNames {
		if w == internal && p != "void" {
			return p
		}
	}
	return ""
}

// FieldBinding is a resolved field. A binding with a non-zero Problem is a
// problem binding; Closest then holds the best candidate, if any.
type FieldBinding struct {
	Name      string
	Declaring *TypeBinding
	Type      *TypeBinding
	Modifiers jast.Modifiers
	// Constant is the compile-time constant of a binary static final field.
	Constant any
	Decl     *jast.FieldDecl

	Problem ProblemReason
	Closest *FieldBinding
}

// IsValid reports a non-problem binding.
func (f *FieldBinding) IsValid() bool { return f != nil && f.Problem == NoProblem }

// IsStatic reports static fields.
func (f *FieldBinding) IsStatic() bool { return f.Modifiers.Has(jast.ModStatic) }

// IsArrayLength reports the synthetic length member of arrays.
func (f *FieldBinding) IsArrayLength() bool {
	return f.Declaring != nil && f.Declaring.Kind == TypeArray && f.Name == "length"
}

func (f *FieldBinding) String() string {
	if f.Declaring == nil {
		return f.Name
	}
	return f.Declaring.QualifiedName() + "." + f.Name
}

// MethodBinding is a resolved method or constructor.
type MethodBinding struct {
	Name        string
	Declaring   *TypeBinding
	Params      []*TypeBinding
	Return      *TypeBinding
	Modifiers   jast.Modifiers
	Constructor bool
	Varargs     bool
	Thrown      []*TypeBinding
	Decl        *jast.MethodDecl

	Problem ProblemReason
	Closest *MethodBinding
}

// IsValid reports a non-problem binding.
func (m *MethodBinding) IsValid() bool { return m != nil && m.Problem == NoProblem }

// IsStatic reports static methods.
func (m *MethodBinding) IsStatic() bool { return m.Modifiers.Has(jast.ModStatic) }

// Descriptor returns the JVM method descriptor.
func (m *MethodBinding) Descriptor() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range m.Params {
		sb.WriteString(p.Descriptor())
	}
	sb.WriteByte(')')
	if m.Constructor || m.Return == nil {
		sb.WriteByte('V')
	} else {
		sb.WriteString(m.Return.Descriptor())
	}
	return sb.String()
}

// JVMName returns <init> for constructors.
func (m *MethodBinding) JVMName() string {
	if m.Constructor {
		return "<init>"
	}
	return m.Name
}

// ParameterNames returns the source names of the parameter types.
func (m *MethodBinding) ParameterNames() []string {
	out := make([]string, len(m.Params))
	for i, p := range m.Params {
		out[i] = p.QualifiedName()
	}
	return out
}

// Signature renders name(T1, T2) with simple parameter type names.
func (m *MethodBinding) Signature() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = p.SimpleName()
	}
	return m.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (m *MethodBinding) String() string {
	if m.Declaring == nil {
		return m.Signature()
	}
	return m.Declaring.QualifiedName() + "." + m.Signature()
}

// sameParameters reports equal erased parameter lists.
func (m *MethodBinding) sameParameters(o *MethodBinding) bool {
	if len(m.Params) != len(o.Params) {
		return false
	}
	for i := range m.Params {
		if m.Params[i].Name != o.Params[i].Name {
			return false
		}
	}
	return true
}

// LocalBinding is a local variable, parameter or captured variable.
type LocalBinding struct {
	Name      string
	Type      *TypeBinding
	Modifiers jast.Modifiers
	// Decl is the *jast.LocalVarDecl or *jast.Param.
	Decl      jast.Node
	Parameter bool
}

func (l *LocalBinding) String() string { return l.Name }
