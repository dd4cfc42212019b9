package pattern

import (
	"strings"

	"github.com/dshills/javacontext-mcp/internal/index"
)

// TypeDeclarationPattern finds type declarations.
type TypeDeclarationPattern struct {
	base
	SimpleName string
	// Qualification is matched against the package and enclosing type
	// names joined by dots; "" matches any.
	Qualification string
	// Kinds lists the accepted kind codes (index.KindClass, ...); "" accepts
	// every kind.
	Kinds string
	// TypeArguments narrow matches of parameterized types.
	TypeArguments []string

	// set by DecodeIndexKey
	Package        string
	EnclosingTypes []string
	Kind           byte
}

// NewTypeDeclarationPattern validates rule against simpleName.
func NewTypeDeclarationPattern(qualification, simpleName, kinds string, rule MatchRule) *TypeDeclarationPattern {
	return &TypeDeclarationPattern{
		base:          base{rule: validated(simpleName, rule)},
		SimpleName:    simpleName,
		Qualification: qualification,
		Kinds:         kinds,
	}
}

func (p *TypeDeclarationPattern) IndexCategories() []index.Category {
	return []index.Category{index.CategoryTypeDecl}
}

func (p *TypeDeclarationPattern) IndexKey() string {
	return ScanPrefix(p.SimpleName, p.rule, string(index.Separator))
}

func (p *TypeDeclarationPattern) Blank() Pattern {
	return &TypeDeclarationPattern{base: base{rule: p.rule}}
}

func (p *TypeDeclarationPattern) DecodeIndexKey(category index.Category, key string) bool {
	k, ok := index.DecodeTypeDeclKey(key)
	if !ok {
		return false
	}
	p.decodedCategory = category
	p.SimpleName = k.SimpleName
	p.Package = k.Package
	p.EnclosingTypes = k.EnclosingTypes
	p.Kind = k.Kind
	return true
}

// DecodedQualification is the package and enclosing types of a decoded
// declaration, joined by dots.
func (p *TypeDeclarationPattern) DecodedQualification() string {
	parts := make([]string, 0, len(p.EnclosingTypes)+1)
	if p.Package != "" {
		parts = append(parts, p.Package)
	}
	parts = append(parts, p.EnclosingTypes...)
	return strings.Join(parts, ".")
}

// MatchesKind reports whether the kind code is accepted.
func (p *TypeDeclarationPattern) MatchesKind(kind byte) bool {
	return p.Kinds == "" || strings.IndexByte(p.Kinds, kind) >= 0
}

func (p *TypeDeclarationPattern) MatchesDecodedKey(decoded Pattern) bool {
	d, ok := decoded.(*TypeDeclarationPattern)
	if !ok {
		return false
	}
	return p.MatchesKind(d.Kind) &&
		p.matchesName(p.SimpleName, d.SimpleName) &&
		p.matchesQualification(p.Qualification, d.DecodedQualification())
}

// MatchesType tests a declared type outside the index.
func (p *TypeDeclarationPattern) MatchesType(qualification, simpleName string, kind byte) bool {
	return p.MatchesKind(kind) &&
		p.matchesName(p.SimpleName, simpleName) &&
		p.matchesQualification(p.Qualification, qualification)
}

func (p *TypeDeclarationPattern) String() string {
	return "TypeDeclarationPattern: " + joinQualified(p.Qualification, p.SimpleName) + ", " + p.rule.String()
}

// TypeReferencePattern finds references to a type.
type TypeReferencePattern struct {
	base
	Qualification string
	SimpleName    string
	TypeArguments []string
}

// NewTypeReferencePattern validates rule against simpleName.
func NewTypeReferencePattern(qualification, simpleName string, typeArgs []string, rule MatchRule) *TypeReferencePattern {
	return &TypeReferencePattern{
		base:          base{rule: validated(simpleName, rule)},
		Qualification: qualification,
		SimpleName:    simpleName,
		TypeArguments: typeArgs,
	}
}

func (p *TypeReferencePattern) IndexCategories() []index.Category {
	return []index.Category{index.CategoryRef}
}

func (p *TypeReferencePattern) IndexKey() string {
	return ScanPrefix(p.SimpleName, p.rule, "")
}

func (p *TypeReferencePattern) Blank() Pattern {
	return &TypeReferencePattern{base: base{rule: p.rule}}
}

func (p *TypeReferencePattern) DecodeIndexKey(category index.Category, key string) bool {
	p.decodedCategory = category
	p.SimpleName = key
	return true
}

func (p *TypeReferencePattern) MatchesDecodedKey(decoded Pattern) bool {
	d, ok := decoded.(*TypeReferencePattern)
	return ok && p.matchesName(p.SimpleName, d.SimpleName)
}

// MatchesType tests a resolved type name.
func (p *TypeReferencePattern) MatchesType(qualification, simpleName string) bool {
	return p.matchesName(p.SimpleName, simpleName) && p.matchesQualification(p.Qualification, qualification)
}

func (p *TypeReferencePattern) String() string {
	s := "TypeReferencePattern: " + joinQualified(p.Qualification, p.SimpleName)
	if len(p.TypeArguments) > 0 {
		s += "<" + strings.Join(p.TypeArguments, ", ") + ">"
	}
	return s + ", " + p.rule.String()
}

// SuperKinds restricts which super type clauses a SuperTypeReferencePattern
// considers.
type SuperKinds int

const (
	AllSuperTypes SuperKinds = iota
	OnlySuperClasses
	OnlySuperInterfaces
)

// SuperTypeReferencePattern finds the types naming a type in an extends or
// implements clause.
type SuperTypeReferencePattern struct {
	base
	SuperQualification string
	SuperSimpleName    string
	SuperKinds         SuperKinds

	// set by DecodeIndexKey
	SimpleName     string
	Package        string
	EnclosingTypes []string
	SuperKind      byte
}

// NewSuperTypeReferencePattern validates rule against superSimpleName.
func NewSuperTypeReferencePattern(superQualification, superSimpleName string, kinds SuperKinds, rule MatchRule) *SuperTypeReferencePattern {
	return &SuperTypeReferencePattern{
		base:               base{rule: validated(superSimpleName, rule)},
		SuperQualification: superQualification,
		SuperSimpleName:    superSimpleName,
		SuperKinds:         kinds,
	}
}

func (p *SuperTypeReferencePattern) IndexCategories() []index.Category {
	return []index.Category{index.CategorySuperRef}
}

func (p *SuperTypeReferencePattern) IndexKey() string {
	return ScanPrefix(p.SuperSimpleName, p.rule, string(index.Separator))
}

func (p *SuperTypeReferencePattern) Blank() Pattern {
	return &SuperTypeReferencePattern{base: base{rule: p.rule}, SuperKinds: p.SuperKinds}
}

func (p *SuperTypeReferencePattern) DecodeIndexKey(category index.Category, key string) bool {
	k, ok := index.DecodeSuperRefKey(key)
	if !ok {
		return false
	}
	p.decodedCategory = category
	p.SuperSimpleName = k.SuperSimpleName
	p.SuperQualification = k.SuperQualification
	p.SimpleName = k.SimpleName
	p.Package = k.Package
	p.EnclosingTypes = k.EnclosingTypes
	p.SuperKind = k.SuperKind
	return true
}

func (p *SuperTypeReferencePattern) MatchesDecodedKey(decoded Pattern) bool {
	d, ok := decoded.(*SuperTypeReferencePattern)
	if !ok {
		return false
	}
	switch p.SuperKinds {
	case OnlySuperClasses:
		if d.SuperKind != index.KindClass {
			return false
		}
	case OnlySuperInterfaces:
		if d.SuperKind != index.KindInterface {
			return false
		}
	}
	if !p.matchesName(p.SuperSimpleName, d.SuperSimpleName) {
		return false
	}
	// unqualified clauses cannot be rejected before resolution
	return d.SuperQualification == "" || p.matchesQualification(p.SuperQualification, d.SuperQualification)
}

// SubtypeQualifiedName returns the dotted name of a decoded subtype.
func (p *SuperTypeReferencePattern) SubtypeQualifiedName() string {
	parts := make([]string, 0, len(p.EnclosingTypes)+2)
	if p.Package != "" {
		parts = append(parts, p.Package)
	}
	parts = append(parts, p.EnclosingTypes...)
	parts = append(parts, p.SimpleName)
	return strings.Join(parts, ".")
}

func (p *SuperTypeReferencePattern) String() string {
	return "SuperTypeReferencePattern: " + joinQualified(p.SuperQualification, p.SuperSimpleName) + ", " + p.rule.String()
}
