package pattern

import (
	"strconv"
	"strings"

	"github.com/dshills/javacontext-mcp/internal/index"
)

// AnyArity marks a method or constructor pattern that accepts any number of
// arguments.
const AnyArity = -1

// signature holds the parameter constraints shared by method and
// constructor patterns.
type signature struct {
	// ParameterCount is AnyArity when the parameters were not given.
	ParameterCount          int
	ParameterQualifications []string
	ParameterSimpleNames    []string
	// Varargs accepts any argument count from ParameterCount-1 up.
	Varargs bool
}

// MatchesArity reports whether n arguments fit the parameter constraint.
func (s *signature) MatchesArity(n int) bool {
	switch {
	case s.ParameterCount == AnyArity:
		return true
	case s.Varargs:
		return n >= s.ParameterCount-1
	default:
		return n == s.ParameterCount
	}
}

func (s *signature) setParameters(params []string) {
	s.ParameterCount = len(params)
	s.ParameterQualifications = make([]string, len(params))
	s.ParameterSimpleNames = make([]string, len(params))
	for i, p := range params {
		p = strings.TrimSpace(p)
		if strings.HasSuffix(p, "...") {
			p = strings.TrimSuffix(p, "...") + "[]"
			if i == len(params)-1 {
				s.Varargs = true
			}
		}
		s.ParameterQualifications[i], s.ParameterSimpleNames[i] = splitQualified(eraseTypeArguments(p))
	}
}

// MatchesParameters compares the simple names of resolved parameter types.
// Unconstrained signatures match any parameters.
func (s *signature) MatchesParameters(simpleNames []string) bool {
	if s.ParameterCount == AnyArity {
		return true
	}
	if len(simpleNames) != s.ParameterCount {
		return false
	}
	for i, want := range s.ParameterSimpleNames {
		if !matchTypeName(want, simpleNames[i]) {
			return false
		}
	}
	return true
}

func (s *signature) String() string {
	if s.ParameterCount == AnyArity {
		return ""
	}
	params := make([]string, s.ParameterCount)
	for i := range params {
		params[i] = joinQualified(s.ParameterQualifications[i], s.ParameterSimpleNames[i])
	}
	return "(" + strings.Join(params, ", ") + ")"
}

// matchTypeName compares type names of signatures, which are always case
// sensitive. An empty pattern matches anything.
func matchTypeName(pattern, name string) bool {
	switch {
	case pattern == "":
		return true
	case strings.ContainsAny(pattern, "*?"):
		return WildcardMatch(pattern, name, true)
	default:
		return pattern == name
	}
}

// MethodPattern finds method declarations and invocations.
type MethodPattern struct {
	base
	signature
	Selector               string
	DeclaringQualification string
	DeclaringSimpleName    string
	ReturnQualification    string
	ReturnSimpleName       string
	FindDeclarations       bool
	FindReferences         bool

	// set by DecodeIndexKey
	ArgCount int
}

// NewMethodPattern validates rule against selector. params nil means any
// parameters.
func NewMethodPattern(selector, declaringQualification, declaringSimpleName string, params []string, limitTo LimitTo, rule MatchRule) *MethodPattern {
	p := &MethodPattern{
		base:                   base{rule: validated(selector, rule)},
		signature:              signature{ParameterCount: AnyArity},
		Selector:               selector,
		DeclaringQualification: declaringQualification,
		DeclaringSimpleName:    declaringSimpleName,
		FindDeclarations:       limitTo == Declarations || limitTo == AllOccurrences,
		FindReferences:         limitTo == References || limitTo == AllOccurrences,
	}
	if params != nil {
		p.setParameters(params)
	}
	return p
}

func (p *MethodPattern) IndexCategories() []index.Category {
	var out []index.Category
	if p.FindReferences {
		out = append(out, index.CategoryMethodRef)
	}
	if p.FindDeclarations {
		out = append(out, index.CategoryMethodDecl)
	}
	return out
}

func (p *MethodPattern) IndexKey() string {
	key := ScanPrefix(p.Selector, p.rule, string(index.Separator))
	if strings.HasSuffix(key, string(index.Separator)) && p.ParameterCount != AnyArity && !p.Varargs {
		key += strconv.Itoa(p.ParameterCount)
	}
	return key
}

func (p *MethodPattern) Blank() Pattern {
	return &MethodPattern{base: base{rule: p.rule}}
}

func (p *MethodPattern) DecodeIndexKey(category index.Category, key string) bool {
	k, ok := index.DecodeMethodKey(key)
	if !ok {
		return false
	}
	p.decodedCategory = category
	p.Selector = k.Selector
	p.ArgCount = k.ArgCount
	return true
}

func (p *MethodPattern) MatchesDecodedKey(decoded Pattern) bool {
	d, ok := decoded.(*MethodPattern)
	return ok && p.MatchesArity(d.ArgCount) && p.matchesName(p.Selector, d.Selector)
}

// MatchesSelector tests a method name outside the index.
func (p *MethodPattern) MatchesSelector(name string) bool {
	return p.matchesName(p.Selector, name)
}

// MatchesDeclaringType tests the type declaring a resolved method.
func (p *MethodPattern) MatchesDeclaringType(qualification, simpleName string) bool {
	return p.matchesName(p.DeclaringSimpleName, simpleName) &&
		p.matchesQualification(p.DeclaringQualification, qualification)
}

// MatchesReturnType tests the simple name of a resolved return type.
func (p *MethodPattern) MatchesReturnType(simpleName string) bool {
	return matchTypeName(p.ReturnSimpleName, simpleName)
}

func (p *MethodPattern) String() string {
	s := "MethodPattern: "
	if p.DeclaringSimpleName != "" {
		s += joinQualified(p.DeclaringQualification, p.DeclaringSimpleName) + "."
	}
	return s + p.Selector + p.signature.String() + ", " + p.rule.String()
}

// ConstructorPattern finds constructor declarations and invocations,
// including explicit this(...) and super(...) calls.
type ConstructorPattern struct {
	base
	signature
	DeclaringQualification string
	DeclaringSimpleName    string
	FindDeclarations       bool
	FindReferences         bool

	// set by DecodeIndexKey; Package is empty for references
	ArgCount int
	Package  string
}

// NewConstructorPattern validates rule against the type name.
func NewConstructorPattern(declaringQualification, declaringSimpleName string, params []string, limitTo LimitTo, rule MatchRule) *ConstructorPattern {
	p := &ConstructorPattern{
		base:                   base{rule: validated(declaringSimpleName, rule)},
		signature:              signature{ParameterCount: AnyArity},
		DeclaringQualification: declaringQualification,
		DeclaringSimpleName:    declaringSimpleName,
		FindDeclarations:       limitTo == Declarations || limitTo == AllOccurrences,
		FindReferences:         limitTo == References || limitTo == AllOccurrences,
	}
	if params != nil {
		p.setParameters(params)
	}
	return p
}

func (p *ConstructorPattern) IndexCategories() []index.Category {
	var out []index.Category
	if p.FindReferences {
		out = append(out, index.CategoryConstructorRef)
	}
	if p.FindDeclarations {
		out = append(out, index.CategoryConstructorDecl)
	}
	return out
}

func (p *ConstructorPattern) IndexKey() string {
	key := ScanPrefix(p.DeclaringSimpleName, p.rule, string(index.Separator))
	if strings.HasSuffix(key, string(index.Separator)) && p.ParameterCount != AnyArity && !p.Varargs {
		key += strconv.Itoa(p.ParameterCount) + string(index.Separator)
	}
	return key
}

func (p *ConstructorPattern) Blank() Pattern {
	return &ConstructorPattern{base: base{rule: p.rule}}
}

func (p *ConstructorPattern) DecodeIndexKey(category index.Category, key string) bool {
	k, ok := index.DecodeConstructorKey(key)
	if !ok {
		return false
	}
	p.decodedCategory = category
	p.DeclaringSimpleName = k.TypeName
	p.ArgCount = k.ArgCount
	p.Package = k.Package
	return true
}

func (p *ConstructorPattern) MatchesDecodedKey(decoded Pattern) bool {
	d, ok := decoded.(*ConstructorPattern)
	if !ok || !p.MatchesArity(d.ArgCount) || !p.matchesName(p.DeclaringSimpleName, d.DeclaringSimpleName) {
		return false
	}
	return d.Package == "" || p.packageCompatible(d.Package)
}

// packageCompatible accepts a declaration package that the qualification
// names or starts with (the rest being enclosing types).
func (p *ConstructorPattern) packageCompatible(pkg string) bool {
	q := p.DeclaringQualification
	if q == "" || p.matchesQualification(q, pkg) {
		return true
	}
	return hasPrefix(q, pkg+".", p.rule.CaseSensitive())
}

// MatchesDeclaringType tests the type declaring a resolved constructor.
func (p *ConstructorPattern) MatchesDeclaringType(qualification, simpleName string) bool {
	return p.matchesName(p.DeclaringSimpleName, simpleName) &&
		p.matchesQualification(p.DeclaringQualification, qualification)
}

func (p *ConstructorPattern) String() string {
	return "ConstructorPattern: " + joinQualified(p.DeclaringQualification, p.DeclaringSimpleName) +
		p.signature.String() + ", " + p.rule.String()
}

// FieldPattern finds field declarations and read or write accesses.
type FieldPattern struct {
	base
	Name                   string
	DeclaringQualification string
	DeclaringSimpleName    string
	TypeQualification      string
	TypeSimpleName         string
	FindDeclarations       bool
	ReadAccess             bool
	WriteAccess            bool
}

// NewFieldPattern validates rule against name.
func NewFieldPattern(name, declaringQualification, declaringSimpleName string, limitTo LimitTo, rule MatchRule) *FieldPattern {
	p := &FieldPattern{
		base:                   base{rule: validated(name, rule)},
		Name:                   name,
		DeclaringQualification: declaringQualification,
		DeclaringSimpleName:    declaringSimpleName,
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
	case AllOccurrences:
		p.FindDeclarations, p.ReadAccess, p.WriteAccess = true, true, true
	}
	return p
}

// FindReferences reports whether any access is searched.
func (p *FieldPattern) FindReferences() bool { return p.ReadAccess || p.WriteAccess }

func (p *FieldPattern) IndexCategories() []index.Category {
	var out []index.Category
	if p.FindReferences() {
		out = append(out, index.CategoryRef)
	}
	if p.FindDeclarations {
		out = append(out, index.CategoryFieldDecl)
	}
	return out
}

func (p *FieldPattern) IndexKey() string {
	return ScanPrefix(p.Name, p.rule, "")
}

func (p *FieldPattern) Blank() Pattern {
	return &FieldPattern{base: base{rule: p.rule}}
}

func (p *FieldPattern) DecodeIndexKey(category index.Category, key string) bool {
	p.decodedCategory = category
	p.Name = key
	return true
}

func (p *FieldPattern) MatchesDecodedKey(decoded Pattern) bool {
	d, ok := decoded.(*FieldPattern)
	return ok && p.matchesName(p.Name, d.Name)
}

// MatchesField tests a resolved field.
func (p *FieldPattern) MatchesField(name, declaringQualification, declaringSimpleName string) bool {
	return p.matchesName(p.Name, name) &&
		p.matchesName(p.DeclaringSimpleName, declaringSimpleName) &&
		p.matchesQualification(p.DeclaringQualification, declaringQualification)
}

// MatchesFieldType tests the simple name of a resolved field type.
func (p *FieldPattern) MatchesFieldType(simpleName string) bool {
	return matchTypeName(p.TypeSimpleName, simpleName)
}

func (p *FieldPattern) String() string {
	s := "FieldPattern: "
	if p.DeclaringSimpleName != "" {
		s += joinQualified(p.DeclaringQualification, p.DeclaringSimpleName) + "."
	}
	return s + p.Name + ", " + p.rule.String()
}
