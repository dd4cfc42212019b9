package jast

import (
	"sort"
	"strings"

	"github.com/dshills/javacontext-mcp/pkg/types"
)

// Node is implemented by every syntax tree node.
type Node interface {
	// Pos returns the byte range of the node, end exclusive.
	Pos() (start, end int)
}

// Span is a byte range embedded in every node.
type Span struct {
	Start int
	End   int
}

// Pos implements Node.
func (s Span) Pos() (int, int) { return s.Start, s.End }

// Len returns the length of the span in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Contains reports whether off falls inside the span.
func (s Span) Contains(off int) bool { return off >= s.Start && off < s.End }

// Modifiers uses the JVM access flag values so bindings can share them.
type Modifiers uint16

const (
	ModPublic       Modifiers = 0x0001
	ModPrivate      Modifiers = 0x0002
	ModProtected    Modifiers = 0x0004
	ModStatic       Modifiers = 0x0008
	ModFinal        Modifiers = 0x0010
	ModSynchronized Modifiers = 0x0020
	ModVolatile     Modifiers = 0x0040
	ModTransient    Modifiers = 0x0080
	ModNative       Modifiers = 0x0100
	ModAbstract     Modifiers = 0x0400
	ModStrictfp     Modifiers = 0x0800
	// ModDefault marks interface default methods; it has no JVM counterpart.
	ModDefault Modifiers = 0x8000
)

// Has reports whether all bits of m2 are set.
func (m Modifiers) Has(m2 Modifiers) bool { return m&m2 == m2 }

// String renders the modifiers in source order.
func (m Modifiers) String() string {
	var parts []string
	for _, e := range []struct {
		bit  Modifiers
		name string
	}{
		{ModPublic, "public"}, {ModProtected, "protected"}, {ModPrivate, "private"},
		{ModAbstract, "abstract"}, {ModStatic, "static"}, {ModFinal, "final"},
		{ModTransient, "transient"}, {ModVolatile, "volatile"}, {ModSynchronized, "synchronized"},
		{ModNative, "native"}, {ModStrictfp, "strictfp"}, {ModDefault, "default"},
	} {
		if m&e.bit != 0 {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, " ")
}

// CompilationUnit is one parsed .java document.
type CompilationUnit struct {
	Span
	Path    string
	Source  []byte
	Package *PackageDecl
	Imports []*ImportDecl
	Types   []*TypeDecl
	// DocRefs are type names found in {@link} and @see tags of doc comments.
	DocRefs  []*DocRef
	Problems []types.Problem
	// Diet is set when method bodies were skipped.
	Diet bool

	lineStarts []int
}

// PackageName returns the dotted package name or "".
func (cu *CompilationUnit) PackageName() string {
	if cu.Package == nil {
		return ""
	}
	return cu.Package.Name
}

// HasSyntaxErrors reports whether the parser reported any problem.
func (cu *CompilationUnit) HasSyntaxErrors() bool {
	return types.HasErrors(cu.Problems)
}

// SetLineStarts records line start offsets for Line.
func (cu *CompilationUnit) SetLineStarts(starts []int) { cu.lineStarts = starts }

// Line returns the 1-based line number of a byte offset.
func (cu *CompilationUnit) Line(offset int) int {
	if len(cu.lineStarts) == 0 {
		cu.lineStarts = LineStarts(cu.Source)
	}
	return sort.Search(len(cu.lineStarts), func(i int) bool { return cu.lineStarts[i] > offset })
}

// Text returns the source text of a node.
func (cu *CompilationUnit) Text(n Node) string {
	s, e := n.Pos()
	if s < 0 || e > len(cu.Source) || s > e {
		return ""
	}
	return string(cu.Source[s:e])
}

// AllTypes returns every type declared in the unit, outer types first.
func (cu *CompilationUnit) AllTypes() []*TypeDecl {
	var out []*TypeDecl
	var walk func(ts []*TypeDecl)
	walk = func(ts []*TypeDecl) {
		for _, t := range ts {
			out = append(out, t)
			walk(t.Types)
		}
	}
	walk(cu.Types)
	return out
}

// FindType returns the top-level type with the given simple name.
func (cu *CompilationUnit) FindType(name string) *TypeDecl {
	for _, t := range cu.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// LineStarts computes the offset of the first byte of every line.
func LineStarts(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// PackageDecl is the package clause.
type PackageDecl struct {
	Span
	Name     string
	NameSpan Span
}

// ImportDecl is one import statement.
type ImportDecl struct {
	Span
	Name     string // dotted name without the trailing .*
	NameSpan Span
	Static   bool
	OnDemand bool
}

// SimpleName returns the last segment of a single-type import.
func (i *ImportDecl) SimpleName() string {
	if idx := strings.LastIndexByte(i.Name, '.'); idx >= 0 {
		return i.Name[idx+1:]
	}
	return i.Name
}

// DocRef is a type name referenced from a doc comment.
type DocRef struct {
	Span
	Name string
}

// TypeKind distinguishes the flavours of type declaration.
type TypeKind int

const (
	KindClass TypeKind = iota
	KindInterface
	KindEnum
	KindRecord
	KindAnnotation
)

// Code is the one-letter code used in index keys.
func (k TypeKind) Code() byte {
	switch k {
	case KindInterface:
		return 'I'
	case KindEnum:
		return 'E'
	case KindRecord:
		return 'R'
	case KindAnnotation:
		return 'A'
	default:
		return 'C'
	}
}

// KindFromCode is the inverse of Code.
func KindFromCode(c byte) TypeKind {
	switch c {
	case 'I':
		return KindInterface
	case 'E':
		return KindEnum
	case 'R':
		return KindRecord
	case 'A':
		return KindAnnotation
	default:
		return KindClass
	}
}

func (k TypeKind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindRecord:
		return "record"
	case KindAnnotation:
		return "@interface"
	default:
		return "class"
	}
}

// TypeDecl is a class, interface, enum, record or annotation declaration.
type TypeDecl struct {
	Span
	Kind       TypeKind
	Name       string
	NameSpan   Span
	Modifiers  Modifiers
	TypeParams []*TypeParam
	Superclass *TypeRef
	Interfaces []*TypeRef
	Fields     []*FieldDecl
	Methods    []*MethodDecl
	Types      []*TypeDecl
	// Initializers are instance and static initializer blocks.
	Initializers []*Block

	Enclosing *TypeDecl
	Unit      *CompilationUnit
	// Anonymous and local types are declared inside a method body.
	Local     bool
	Anonymous bool
}

// EnclosingNames returns the simple names of the enclosing types, outermost first.
func (t *TypeDecl) EnclosingNames() []string {
	var names []string
	for e := t.Enclosing; e != nil; e = e.Enclosing {
		names = append([]string{e.Name}, names...)
	}
	return names
}

// QualifiedName returns the dotted source name (p.Outer.Inner).
func (t *TypeDecl) QualifiedName() string {
	parts := append(t.EnclosingNames(), t.Name)
	name := strings.Join(parts, ".")
	if t.Unit != nil && t.Unit.PackageName() != "" {
		return t.Unit.PackageName() + "." + name
	}
	return name
}

// BinaryName returns the JVM internal name (p/Outer$Inner).
func (t *TypeDecl) BinaryName() string {
	parts := append(t.EnclosingNames(), t.Name)
	name := strings.Join(parts, "$")
	if t.Unit != nil && t.Unit.PackageName() != "" {
		return strings.ReplaceAll(t.Unit.PackageName(), ".", "/") + "/" + name
	}
	return name
}

// IsInterface reports interface and annotation declarations.
func (t *TypeDecl) IsInterface() bool {
	return t.Kind == KindInterface || t.Kind == KindAnnotation
}

// HasConstructor reports whether an explicit constructor is declared.
func (t *TypeDecl) HasConstructor() bool {
	for _, m := range t.Methods {
		if m.Constructor {
			return true
		}
	}
	return false
}

// TypeParam is a declared type variable.
type TypeParam struct {
	Span
	Name     string
	NameSpan Span
	Bounds   []*TypeRef
}

// FieldDecl declares one field; multi-declarator fields become several FieldDecls.
type FieldDecl struct {
	Span
	Modifiers Modifiers
	Type      *TypeRef
	Name      string
	NameSpan  Span
	Init      Expr
	// EnumConstant is set for enum constants, whose Type names the enum.
	EnumConstant bool
	Args         []Expr
	Decl         *TypeDecl
}

// MethodDecl is a method or constructor.
type MethodDecl struct {
	Span
	Modifiers   Modifiers
	TypeParams  []*TypeParam
	Result      *TypeRef // nil for constructors
	Name        string
	NameSpan    Span
	Params      []*Param
	Throws      []*TypeRef
	Body        *Block // nil when abstract or parsed in diet mode
	BodySpan    Span
	HasBody     bool
	Constructor bool
	// ExplicitCall is this(...) or super(...) at the start of a constructor body.
	ExplicitCall *ConstructorCall
	Decl         *TypeDecl
}

// Param is a formal parameter.
type Param struct {
	Span
	Modifiers Modifiers
	Type      *TypeRef
	Name      string
	NameSpan  Span
	Varargs   bool
}

// TypeRef is a type as written in source.
type TypeRef struct {
	Span
	// Name is dotted as written: "int", "String", "java.util.List", "Outer.Inner".
	Name     string
	Args     []*TypeRef
	Dims     int
	Wildcard bool
	// Segments hold the span of every dotted segment of Name.
	Segments []Span
}

// SimpleName returns the last segment of the type name.
func (r *TypeRef) SimpleName() string {
	if i := strings.LastIndexByte(r.Name, '.'); i >= 0 {
		return r.Name[i+1:]
	}
	return r.Name
}

// Qualification returns everything before the last segment.
func (r *TypeRef) Qualification() string {
	if i := strings.LastIndexByte(r.Name, '.'); i >= 0 {
		return r.Name[:i]
	}
	return ""
}

// IsPrimitive reports primitive and void type names.
func (r *TypeRef) IsPrimitive() bool {
	return r.Dims == 0 && IsPrimitiveName(r.Name)
}

// String renders the reference back to source form.
func (r *TypeRef) String() string {
	if r.Wildcard {
		return "?"
	}
	var sb strings.Builder
	sb.WriteString(r.Name)
	if len(r.Args) > 0 {
		sb.WriteByte('<')
		for i, a := range r.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
		sb.WriteByte('>')
	}
	for i := 0; i < r.Dims; i++ {
		sb.WriteString("[]")
	}
	return sb.String()
}

// IsPrimitiveName reports the eight primitive names plus void.
func IsPrimitiveName(name string) bool {
	switch name {
	case "boolean", "byte", "char", "short", "int", "long", "float", "double", "void":
		return true
	}
	return false
}
