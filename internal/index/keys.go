package index

import (
	"strconv"
	"strings"
)

// Category is a named partition of an index.
type Category string

// Index categories. Field, type and package name references share Ref.
const (
	CategoryRef             Category = "ref"
	CategoryMethodRef       Category = "methodRef"
	CategoryConstructorRef  Category = "constructorRef"
	CategorySuperRef        Category = "superRef"
	CategoryTypeDecl        Category = "typeDecl"
	CategoryMethodDecl      Category = "methodDecl"
	CategoryConstructorDecl Category = "constructorDecl"
	CategoryFieldDecl       Category = "fieldDecl"
)

// AllCategories lists every category in scan order.
var AllCategories = []Category{
	CategoryRef, CategoryMethodRef, CategoryConstructorRef, CategorySuperRef,
	CategoryTypeDecl, CategoryMethodDecl, CategoryConstructorDecl, CategoryFieldDecl,
}

// Separator splits the parts of an index key.
const Separator = '/'

// Type kind markers stored in type declaration and super reference keys.
const (
	KindClass      = 'C'
	KindInterface  = 'I'
	KindEnum       = 'E'
	KindRecord     = 'R'
	KindAnnotation = 'A'
)

// Entry is one (category, key) pair contributed by a document.
type Entry struct {
	Category Category
	Key      string
}

// TypeDeclKey is the decoded form of a CategoryTypeDecl key:
// simpleName/package/enclosingTypes/kind with enclosing types joined by '.'.
type TypeDeclKey struct {
	SimpleName     string
	Package        string
	EnclosingTypes []string
	Kind           byte
}

// Encode renders the key.
func (k TypeDeclKey) Encode() string {
	var sb strings.Builder
	sb.WriteString(k.SimpleName)
	sb.WriteByte(Separator)
	sb.WriteString(k.Package)
	sb.WriteByte(Separator)
	sb.WriteString(strings.Join(k.EnclosingTypes, "."))
	sb.WriteByte(Separator)
	if k.Kind != 0 {
		sb.WriteByte(k.Kind)
	}
	return sb.String()
}

// DecodeTypeDeclKey is the inverse of TypeDeclKey.Encode. It reports false
// for keys of another shape.
func DecodeTypeDeclKey(key string) (TypeDeclKey, bool) {
	parts := strings.Split(key, string(Separator))
	if len(parts) != 4 {
		return TypeDeclKey{}, false
	}
	k := TypeDeclKey{SimpleName: parts[0], Package: parts[1]}
	if parts[2] != "" {
		k.EnclosingTypes = strings.Split(parts[2], ".")
	}
	if parts[3] != "" {
		k.Kind = parts[3][0]
	}
	return k, true
}

// SuperRefKey is the decoded form of a CategorySuperRef key:
// superSimpleName/superQualification/simpleName/package/enclosingTypes/superKind.
// SuperKind is KindClass for an extends clause and KindInterface for an
// implements clause or an interface's extends clause.
type SuperRefKey struct {
	SuperSimpleName    string
	SuperQualification string
	SimpleName         string
	Package            string
	EnclosingTypes     []string
	SuperKind          byte
}

// Encode renders the key.
func (k SuperRefKey) Encode() string {
	parts := []string{
		k.SuperSimpleName, k.SuperQualification, k.SimpleName, k.Package,
		strings.Join(k.EnclosingTypes, "."), "",
	}
	if k.SuperKind != 0 {
		parts[5] = string(k.SuperKind)
	}
	return strings.Join(parts, string(Separator))
}

// DecodeSuperRefKey is the inverse of SuperRefKey.Encode.
func DecodeSuperRefKey(key string) (SuperRefKey, bool) {
	parts := strings.Split(key, string(Separator))
	if len(parts) != 6 {
		return SuperRefKey{}, false
	}
	k := SuperRefKey{
		SuperSimpleName:    parts[0],
		SuperQualification: parts[1],
		SimpleName:         parts[2],
		Package:            parts[3],
	}
	if parts[4] != "" {
		k.EnclosingTypes = strings.Split(parts[4], ".")
	}
	if parts[5] != "" {
		k.SuperKind = parts[5][0]
	}
	return k, true
}

// MethodKey is the decoded form of CategoryMethodDecl and CategoryMethodRef
// keys: selector/argCount.
type MethodKey struct {
	Selector string
	ArgCount int
}

// Encode renders the key.
func (k MethodKey) Encode() string {
	return k.Selector + string(Separator) + strconv.Itoa(k.ArgCount)
}

// DecodeMethodKey is the inverse of MethodKey.Encode.
func DecodeMethodKey(key string) (MethodKey, bool) {
	i := strings.LastIndexByte(key, Separator)
	if i < 0 {
		return MethodKey{}, false
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return MethodKey{}, false
	}
	return MethodKey{Selector: key[:i], ArgCount: n}, true
}

// ConstructorKey is the decoded form of CategoryConstructorDecl and
// CategoryConstructorRef keys: typeSimpleName/argCount/package. The package
// is empty in reference keys, where it is usually not known.
type ConstructorKey struct {
	TypeName string
	ArgCount int
	Package  string
}

// Encode renders the key.
func (k ConstructorKey) Encode() string {
	return k.TypeName + string(Separator) + strconv.Itoa(k.ArgCount) + string(Separator) + k.Package
}

// DecodeConstructorKey is the inverse of ConstructorKey.Encode.
func DecodeConstructorKey(key string) (ConstructorKey, bool) {
	parts := strings.Split(key, string(Separator))
	if len(parts) != 3 {
		return ConstructorKey{}, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return ConstructorKey{}, false
	}
	return ConstructorKey{TypeName: parts[0], ArgCount: n, Package: parts[2]}, true
}

// FieldDeclKey encodes a CategoryFieldDecl key, which is the field name.
func FieldDeclKey(name string) string { return name }

// RefKey encodes a CategoryRef key, which is a simple name.
func RefKey(name string) string { return name }
