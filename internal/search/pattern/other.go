package pattern

import (
	"strings"

	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

// PackageDeclarationPattern finds package declarations. Packages are not
// indexed; matches are synthesized from the packages of indexed documents.
type PackageDeclarationPattern struct {
	base
	Name string
}

func NewPackageDeclarationPattern(name string, rule MatchRule) *PackageDeclarationPattern {
	return &PackageDeclarationPattern{base: base{rule: validated(name, rule)}, Name: name}
}

func (p *PackageDeclarationPattern) IndexCategories() []index.Category { return nil }
func (p *PackageDeclarationPattern) IndexKey() string                  { return "" }
func (p *PackageDeclarationPattern) Blank() Pattern                    { return p }

func (p *PackageDeclarationPattern) DecodeIndexKey(index.Category, string) bool { return false }
func (p *PackageDeclarationPattern) MatchesDecodedKey(Pattern) bool            { return false }

// MatchesPackage tests a dotted package name.
func (p *PackageDeclarationPattern) MatchesPackage(name string) bool {
	return p.matchesName(p.Name, name)
}

func (p *PackageDeclarationPattern) String() string {
	return "PackageDeclarationPattern: " + p.Name + ", " + p.rule.String()
}

// PackageReferencePattern finds qualified names and imports naming a
// package. The index is queried with the last segment of the name.
type PackageReferencePattern struct {
	base
	Name string

	// set by DecodeIndexKey
	Segment string
}

func NewPackageReferencePattern(name string, rule MatchRule) *PackageReferencePattern {
	return &PackageReferencePattern{base: base{rule: validated(name, rule)}, Name: name}
}

func (p *PackageReferencePattern) lastSegment() string {
	_, last := splitQualified(p.Name)
	return last
}

func (p *PackageReferencePattern) IndexCategories() []index.Category {
	return []index.Category{index.CategoryRef}
}

func (p *PackageReferencePattern) IndexKey() string {
	return ScanPrefix(p.lastSegment(), p.rule, "")
}

func (p *PackageReferencePattern) Blank() Pattern {
	return &PackageReferencePattern{base: base{rule: p.rule}}
}

func (p *PackageReferencePattern) DecodeIndexKey(category index.Category, key string) bool {
	p.decodedCategory = category
	p.Segment = key
	return true
}

func (p *PackageReferencePattern) MatchesDecodedKey(decoded Pattern) bool {
	d, ok := decoded.(*PackageReferencePattern)
	if !ok {
		return false
	}
	return p.matchesName(p.lastSegment(), d.Segment)
}

// MatchesPackage tests a dotted package name.
func (p *PackageReferencePattern) MatchesPackage(name string) bool {
	return p.matchesName(p.Name, name)
}

func (p *PackageReferencePattern) String() string {
	return "PackageReferencePattern: " + p.Name + ", " + p.rule.String()
}

// LocalVariablePattern finds the declaration and uses of one local
// variable or parameter. Only the declaring document is searched.
type LocalVariablePattern struct {
	base
	Name             string
	Declaration      types.Element
	FindDeclarations bool
	ReadAccess       bool
	WriteAccess      bool

	// set by DecodeIndexKey
	DecodedName string
}

func NewLocalVariablePattern(decl types.Element, limitTo LimitTo, rule MatchRule) *LocalVariablePattern {
	p := &LocalVariablePattern{
		base:        base{rule: validated(decl.Name, rule)},
		Name:        decl.Name,
		Declaration: decl,
	}
	switch limitTo {
	case Declarations:
		p.FindDeclarations = true
	case References:
		p.ReadAccess, p.WriteAccess = true, true
	case ReadAccesses:
		p.ReadAccess = true
	case WriteAccesses:
		p.WriteAccess = true
	default:
		p.FindDeclarations, p.ReadAccess, p.WriteAccess = true, true, true
	}
	return p
}

func (p *LocalVariablePattern) IndexCategories() []index.Category {
	return []index.Category{index.CategoryRef}
}

func (p *LocalVariablePattern) IndexKey() string {
	return ScanPrefix(p.Name, p.rule, "")
}

func (p *LocalVariablePattern) Blank() Pattern {
	return &LocalVariablePattern{base: base{rule: p.rule}}
}

func (p *LocalVariablePattern) DecodeIndexKey(category index.Category, key string) bool {
	p.decodedCategory = category
	p.DecodedName = key
	return true
}

func (p *LocalVariablePattern) MatchesDecodedKey(decoded Pattern) bool {
	d, ok := decoded.(*LocalVariablePattern)
	return ok && p.matchesName(p.Name, d.DecodedName)
}

func (p *LocalVariablePattern) String() string {
	return "LocalVariablePattern: " + p.Name + ", " + p.rule.String()
}

// TypeParameterPattern finds the declaration and uses of a type parameter
// of a type or method.
type TypeParameterPattern struct {
	base
	Name             string
	Declaration      types.Element
	FindDeclarations bool
	FindReferences   bool

	DecodedName string
}

func NewTypeParameterPattern(decl types.Element, limitTo LimitTo, rule MatchRule) *TypeParameterPattern {
	return &TypeParameterPattern{
		base:             base{rule: validated(decl.Name, rule)},
		Name:             decl.Name,
		Declaration:      decl,
		FindDeclarations: limitTo == Declarations || limitTo == AllOccurrences,
		FindReferences:   limitTo != Declarations,
	}
}

func (p *TypeParameterPattern) IndexCategories() []index.Category {
	return []index.Category{index.CategoryRef}
}

func (p *TypeParameterPattern) IndexKey() string { return ScanPrefix(p.Name, p.rule, "") }

func (p *TypeParameterPattern) Blank() Pattern {
	return &TypeParameterPattern{base: base{rule: p.rule}}
}

func (p *TypeParameterPattern) DecodeIndexKey(category index.Category, key string) bool {
	p.decodedCategory = category
	p.DecodedName = key
	return true
}

func (p *TypeParameterPattern) MatchesDecodedKey(decoded Pattern) bool {
	d, ok := decoded.(*TypeParameterPattern)
	return ok && p.matchesName(p.Name, d.DecodedName)
}

func (p *TypeParameterPattern) String() string {
	return "TypeParameterPattern: " + p.Name + ", " + p.rule.String()
}

// composite is the shared part of Or and And patterns. They are never
// scanned directly.
type composite struct {
	Patterns []Pattern
}

func (c *composite) Rule() MatchRule {
	var r MatchRule
	for _, p := range c.Patterns {
		r |= p.Rule()
	}
	return r
}

func (c *composite) IndexCategories() []index.Category          { return nil }
func (c *composite) IndexKey() string                           { return "" }
func (c *composite) DecodeIndexKey(index.Category, string) bool { return false }
func (c *composite) MatchesDecodedKey(Pattern) bool             { return false }

func (c *composite) join(sep string) string {
	parts := make([]string, len(c.Patterns))
	for i, p := range c.Patterns {
		parts[i] = "(" + p.String() + ")"
	}
	return strings.Join(parts, sep)
}

// OrPattern matches what any of its patterns matches.
type OrPattern struct{ composite }

// NewOrPattern flattens nested or patterns and drops nils.
func NewOrPattern(patterns ...Pattern) *OrPattern {
	p := &OrPattern{}
	for _, sub := range patterns {
		switch v := sub.(type) {
		case nil:
		case *OrPattern:
			p.Patterns = append(p.Patterns, v.Patterns...)
		default:
			p.Patterns = append(p.Patterns, sub)
		}
	}
	return p
}

func (p *OrPattern) Blank() Pattern  { return p }
func (p *OrPattern) String() string { return p.join(" | ") }

// AndPattern matches documents that every one of its patterns matches.
type AndPattern struct{ composite }

func NewAndPattern(patterns ...Pattern) *AndPattern {
	p := &AndPattern{}
	for _, sub := range patterns {
		if sub != nil {
			p.Patterns = append(p.Patterns, sub)
		}
	}
	return p
}

func (p *AndPattern) Blank() Pattern  { return p }
func (p *AndPattern) String() string { return p.join(" & ") }

// DeclarationKind selects what a DeclarationsOfPattern reports.
type DeclarationKind int

const (
	AccessedFields DeclarationKind = iota
	ReferencedMethods
	ReferencedTypes
)

func (k DeclarationKind) String() string {
	switch k {
	case AccessedFields:
		return "accessed fields"
	case ReferencedMethods:
		return "referenced methods"
	default:
		return "referenced types"
	}
}

// DeclarationsOfPattern reports the declarations of the fields, methods or
// types referenced inside an enclosing element, once per declaration. Only
// the enclosing element's document is searched.
type DeclarationsOfPattern struct {
	base
	What      DeclarationKind
	Enclosing types.Element
}

// NewDeclarationsOfPattern creates the pattern behind the "declarations of
// accessed fields", "referenced methods" and "referenced types" searches.
func NewDeclarationsOfPattern(what DeclarationKind, enclosing types.Element) *DeclarationsOfPattern {
	return &DeclarationsOfPattern{base: base{rule: RuleCaseSensitive}, What: what, Enclosing: enclosing}
}

func (p *DeclarationsOfPattern) IndexCategories() []index.Category          { return nil }
func (p *DeclarationsOfPattern) IndexKey() string                           { return "" }
func (p *DeclarationsOfPattern) Blank() Pattern                             { return p }
func (p *DeclarationsOfPattern) DecodeIndexKey(index.Category, string) bool { return false }
func (p *DeclarationsOfPattern) MatchesDecodedKey(Pattern) bool             { return false }

func (p *DeclarationsOfPattern) String() string {
	return "DeclarationsOfPattern: " + p.What.String() + " in " + p.Enclosing.Signature()
}
