package pattern

import (
	"strings"

	"github.com/dshills/javacontext-mcp/pkg/types"
)

// SearchFor names the kind of element a string pattern denotes.
type SearchFor int

const (
	SearchType SearchFor = iota
	SearchClass
	SearchInterface
	SearchEnum
	SearchAnnotation
	SearchRecord
	SearchClassAndInterface
	SearchMethod
	SearchConstructor
	SearchField
	SearchPackage
)

var searchForNames = map[SearchFor]string{
	SearchType:              "type",
	SearchClass:             "class",
	SearchInterface:         "interface",
	SearchEnum:              "enum",
	SearchAnnotation:        "annotation",
	SearchRecord:            "record",
	SearchClassAndInterface: "class_and_interface",
	SearchMethod:            "method",
	SearchConstructor:       "constructor",
	SearchField:             "field",
	SearchPackage:           "package",
}

func (s SearchFor) String() string {
	if name, ok := searchForNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSearchFor accepts the names returned by SearchFor.String.
func ParseSearchFor(s string) (SearchFor, bool) {
	for k, name := range searchForNames {
		if strings.EqualFold(name, s) {
			return k, true
		}
	}
	return 0, false
}

// Kinds returns the type kind codes accepted for a type search.
func (s SearchFor) Kinds() string {
	switch s {
	case SearchClass:
		return "C"
	case SearchInterface:
		return "I"
	case SearchEnum:
		return "E"
	case SearchAnnotation:
		return "A"
	case SearchRecord:
		return "R"
	case SearchClassAndInterface:
		return "CI"
	default:
		return ""
	}
}

// CreatePattern parses a user typed pattern string. It returns nil when
// the string is malformed or the rule cannot be validated. Accepted forms:
//
//	type         p.Outer.Name<T, U>
//	method       p.Type.name(int, String) ReturnType
//	constructor  p.Type(int)
//	field        p.Type.name FieldType
//	package      java.util
//
// Parameter lists and return or field types are optional.
func CreatePattern(s string, searchFor SearchFor, limitTo LimitTo, rule MatchRule) Pattern {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := ValidateMatchRule(s, rule); err != nil {
		return nil
	}
	switch searchFor {
	case SearchMethod:
		return createMethodPattern(s, limitTo, rule)
	case SearchConstructor:
		return createConstructorPattern(s, limitTo, rule)
	case SearchField:
		return createFieldPattern(s, limitTo, rule)
	case SearchPackage:
		return createPackagePattern(s, limitTo, rule)
	default:
		return createTypePattern(s, searchFor.Kinds(), limitTo, rule)
	}
}

func createTypePattern(s, kinds string, limitTo LimitTo, rule MatchRule) Pattern {
	erasure, args, ok := SplitTypeArguments(s)
	if !ok || !validName(erasure) {
		return nil
	}
	qual, simple := splitQualified(erasure)
	return typePattern(qual, simple, args, kinds, limitTo, rule)
}

func typePattern(qual, simple string, args []string, kinds string, limitTo LimitTo, rule MatchRule) Pattern {
	switch limitTo {
	case Declarations:
		p := NewTypeDeclarationPattern(qual, simple, kinds, rule)
		p.TypeArguments = args
		return p
	case Implementors:
		superKinds := AllSuperTypes
		switch kinds {
		case "C":
			superKinds = OnlySuperClasses
		case "I":
			superKinds = OnlySuperInterfaces
		}
		return NewSuperTypeReferencePattern(qual, simple, superKinds, rule)
	case AllOccurrences:
		decl := NewTypeDeclarationPattern(qual, simple, kinds, rule)
		decl.TypeArguments = args
		return NewOrPattern(decl, NewTypeReferencePattern(qual, simple, args, rule))
	default:
		return NewTypeReferencePattern(qual, simple, args, rule)
	}
}

func createMethodPattern(s string, limitTo LimitTo, rule MatchRule) Pattern {
	head, params, ret, ok := splitSignature(s)
	if !ok {
		return nil
	}
	qual, selector := splitQualified(head)
	if selector == "" || !validName(head) {
		return nil
	}
	declQual, declSimple := splitQualified(qual)
	p := NewMethodPattern(selector, declQual, declSimple, params, methodLimit(limitTo), rule)
	if ret != "" {
		p.ReturnQualification, p.ReturnSimpleName = splitQualified(eraseTypeArguments(ret))
	}
	return p
}

func createConstructorPattern(s string, limitTo LimitTo, rule MatchRule) Pattern {
	head, params, ret, ok := splitSignature(s)
	if !ok || ret != "" {
		return nil
	}
	head = eraseTypeArguments(head)
	if !validName(head) {
		return nil
	}
	qual, simple := splitQualified(head)
	return NewConstructorPattern(qual, simple, params, methodLimit(limitTo), rule)
}

// methodLimit maps access limits, which only make sense for fields, onto
// references, and implementors onto declarations.
func methodLimit(limitTo LimitTo) LimitTo {
	switch limitTo {
	case ReadAccesses, WriteAccesses:
		return References
	case Implementors:
		return Declarations
	default:
		return limitTo
	}
}

func createFieldPattern(s string, limitTo LimitTo, rule MatchRule) Pattern {
	name, fieldType := s, ""
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		name, fieldType = s[:i], strings.TrimSpace(s[i+1:])
	}
	if !validName(name) {
		return nil
	}
	if fieldType != "" {
		erasure, _, ok := SplitTypeArguments(fieldType)
		if !ok || !validName(strings.TrimRight(erasure, "[]")) {
			return nil
		}
	}
	qual, field := splitQualified(name)
	declQual, declSimple := splitQualified(qual)
	if limitTo == Implementors {
		limitTo = Declarations
	}
	p := NewFieldPattern(field, declQual, declSimple, limitTo, rule)
	if fieldType != "" {
		p.TypeQualification, p.TypeSimpleName = splitQualified(eraseTypeArguments(fieldType))
	}
	return p
}

func createPackagePattern(s string, limitTo LimitTo, rule MatchRule) Pattern {
	if !validName(s) {
		return nil
	}
	switch limitTo {
	case Declarations:
		return NewPackageDeclarationPattern(s, rule)
	case AllOccurrences:
		return NewOrPattern(NewPackageDeclarationPattern(s, rule), NewPackageReferencePattern(s, rule))
	default:
		return NewPackageReferencePattern(s, rule)
	}
}

// splitSignature splits "a.b.m(int, List<String>) R" into its name, its
// parameters and its return type. params is nil when no parameter list is
// given.
func splitSignature(s string) (head string, params []string, ret string, ok bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if strings.ContainsRune(s, ')') {
			return "", nil, "", false
		}
		head, ret = s, ""
		if i := strings.IndexAny(s, " \t"); i >= 0 {
			head, ret = s[:i], strings.TrimSpace(s[i+1:])
		}
		return head, nil, ret, true
	}
	closeIdx := strings.IndexByte(s[open:], ')')
	if closeIdx < 0 {
		return "", nil, "", false
	}
	closeIdx += open
	head = strings.TrimSpace(s[:open])
	ret = strings.TrimSpace(s[closeIdx+1:])
	inner := strings.TrimSpace(s[open+1 : closeIdx])
	params = []string{}
	if inner != "" {
		_, args, argsOK := SplitTypeArguments("x<" + inner + ">")
		if !argsOK {
			return "", nil, "", false
		}
		for _, a := range args {
			if !validName(strings.TrimRight(strings.TrimSuffix(eraseTypeArguments(a), "..."), "[]")) {
				return "", nil, "", false
			}
		}
		params = args
	}
	return head, params, ret, true
}

// validName accepts dotted Java names whose segments may carry wildcards.
func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return false
		}
		for _, r := range seg {
			if r != '*' && r != '?' && !isIdentPart(r) {
				return false
			}
		}
	}
	return true
}

// CreatePatternForElement builds an exact pattern for a known element.
func CreatePatternForElement(e types.Element, limitTo LimitTo, rule MatchRule) Pattern {
	if e.Validate() != nil {
		return nil
	}
	declQual, declSimple := splitQualified(e.DeclaringType)
	switch e.Kind {
	case types.ElementPackage:
		return createPackagePattern(e.Name, limitTo, rule)
	case types.ElementType:
		qual := e.DeclaringType
		if qual == "" {
			qual = e.Package
		}
		return typePattern(qual, e.Name, nil, "", limitTo, rule)
	case types.ElementImport:
		qual, simple := splitQualified(e.Name)
		if simple == "*" {
			return createPackagePattern(qual, References, rule)
		}
		return NewTypeReferencePattern(qual, simple, nil, rule)
	case types.ElementField:
		if limitTo == Implementors {
			limitTo = Declarations
		}
		p := NewFieldPattern(e.Name, declQual, declSimple, limitTo, rule)
		if e.Type != "" {
			p.TypeQualification, p.TypeSimpleName = splitQualified(eraseTypeArguments(e.Type))
		}
		return p
	case types.ElementMethod:
		params := e.ParameterTypes
		if params == nil {
			params = []string{}
		}
		p := NewMethodPattern(e.Name, declQual, declSimple, params, methodLimit(limitTo), rule)
		if e.Type != "" {
			p.ReturnQualification, p.ReturnSimpleName = splitQualified(eraseTypeArguments(e.Type))
		}
		return p
	case types.ElementConstructor:
		params := e.ParameterTypes
		if params == nil {
			params = []string{}
		}
		return NewConstructorPattern(declQual, declSimple, params, methodLimit(limitTo), rule)
	case types.ElementLocalVariable:
		return NewLocalVariablePattern(e, limitTo, rule)
	case types.ElementTypeParameter:
		return NewTypeParameterPattern(e, limitTo, rule)
	}
	return nil
}
