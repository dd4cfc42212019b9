package search

import (
	"strings"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/internal/indexer"
	"github.com/dshills/javacontext-mcp/internal/search/pattern"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

// binaryMatcher matches the declarations of a class file. Class files have
// no source positions, so every match is reported at -1/-1.
type binaryMatcher struct {
	doc Document
	cf  *classfile.ClassFile
}

var primitiveDescriptors = map[byte]string{
	'B': "byte", 'C': "char", 'D': "double", 'F': "float",
	'I': "int", 'J': "long", 'S': "short", 'Z': "boolean", 'V': "void",
}

// descriptorName returns the dotted source name of a field descriptor and
// its simple name, both with array brackets.
func descriptorName(desc string) (qualified, simple string) {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	base := desc[dims:]
	if base == "" {
		return desc, desc
	}
	if name, ok := primitiveDescriptors[base[0]]; ok && len(base) == 1 {
		qualified = name
		simple = name
	} else {
		qualified = strings.NewReplacer("/", ".", "$", ".").Replace(classfile.ClassName(base))
		_, simple = splitName(qualified)
	}
	brackets := strings.Repeat("[]", dims)
	return qualified + brackets, simple + brackets
}

func (b *binaryMatcher) collect(p pattern.Pattern) []types.SearchMatch {
	enclosing, simple, ok := indexer.BinaryNesting(b.cf)
	if !ok {
		return nil
	}
	pkg := b.cf.PackageName()
	qualification := pkg
	if len(enclosing) > 0 {
		qualification = qualify(pkg, strings.Join(enclosing, "."))
	}
	typeName := qualify(qualification, simple)

	switch v := p.(type) {
	case *pattern.OrPattern:
		var out []types.SearchMatch
		for _, sub := range v.Patterns {
			out = append(out, b.collect(sub)...)
		}
		return out
	case *pattern.AndPattern:
		var out []types.SearchMatch
		for _, sub := range v.Patterns {
			m := b.collect(sub)
			if len(m) == 0 {
				return nil
			}
			out = append(out, m...)
		}
		return out
	case *pattern.TypeDeclarationPattern:
		if !v.MatchesType(qualification, simple, indexer.ClassKind(b.cf)) {
			return nil
		}
		return []types.SearchMatch{b.match(types.MatchTypeDeclaration, b.typeElement(enclosing, simple, qualification))}
	case *pattern.SuperTypeReferencePattern:
		return b.superTypes(v, enclosing, simple, qualification)
	case *pattern.MethodPattern:
		if !v.FindDeclarations {
			return nil
		}
		_, declSimple := splitName(typeName)
		if !v.MatchesDeclaringType(qualification, declSimple) {
			return nil
		}
		var out []types.SearchMatch
		for _, m := range b.cf.Methods {
			if m.IsConstructor() || m.Name == "<clinit>" || m.Access&(classfile.AccSynthetic|classfile.AccBridge) != 0 {
				continue
			}
			if !v.MatchesSelector(m.Name) {
				continue
			}
			e, simples, ret, ok := b.methodElement(m, typeName)
			if !ok || !v.MatchesParameters(simples) || !v.MatchesReturnType(ret) {
				continue
			}
			out = append(out, b.match(types.MatchMethodDeclaration, e))
		}
		return out
	case *pattern.ConstructorPattern:
		if !v.FindDeclarations || !v.MatchesDeclaringType(qualification, simple) {
			return nil
		}
		var out []types.SearchMatch
		for _, m := range b.cf.Methods {
			if !m.IsConstructor() || m.Access&classfile.AccSynthetic != 0 {
				continue
			}
			e, simples, _, ok := b.methodElement(m, typeName)
			if !ok || !v.MatchesParameters(simples) {
				continue
			}
			out = append(out, b.match(types.MatchConstructorDeclaration, e))
		}
		return out
	case *pattern.FieldPattern:
		if !v.FindDeclarations {
			return nil
		}
		var out []types.SearchMatch
		for _, f := range b.cf.Fields {
			if f.Access&classfile.AccSynthetic != 0 || !v.MatchesField(f.Name, qualification, simple) {
				continue
			}
			qualified, fieldSimple := descriptorName(f.Descriptor)
			if !v.MatchesFieldType(fieldSimple) {
				continue
			}
			e := b.element(types.ElementField, f.Name)
			e.DeclaringType = typeName
			e.Type = qualified
			out = append(out, b.match(types.MatchFieldDeclaration, e))
		}
		return out
	}
	return nil
}

func (b *binaryMatcher) superTypes(p *pattern.SuperTypeReferencePattern, enclosing []string, simple, qualification string) []types.SearchMatch {
	var out []types.SearchMatch
	report := func(internal string, kind byte) {
		d := p.Blank().(*pattern.SuperTypeReferencePattern)
		d.SimpleName = simple
		d.Package = b.cf.PackageName()
		d.EnclosingTypes = enclosing
		d.SuperKind = kind
		d.SuperQualification, d.SuperSimpleName = splitName(strings.NewReplacer("/", ".", "$", ".").Replace(internal))
		if p.MatchesDecodedKey(d) {
			out = append(out, b.match(types.MatchTypeReference, b.typeElement(enclosing, simple, qualification)))
		}
	}
	if b.cf.Super != "" && !b.cf.IsInterface() {
		report(b.cf.Super, index.KindClass)
	}
	for _, i := range b.cf.Interfaces {
		report(i, index.KindInterface)
	}
	return out
}

func (b *binaryMatcher) element(kind types.ElementKind, name string) types.Element {
	return types.Element{
		Kind:       kind,
		Name:       name,
		Package:    b.cf.PackageName(),
		Path:       b.doc.Path,
		Container:  b.doc.Container,
		NameOffset: -1,
		NameLength: -1,
	}
}

func (b *binaryMatcher) typeElement(enclosing []string, simple, qualification string) types.Element {
	e := b.element(types.ElementType, simple)
	if len(enclosing) > 0 {
		e.DeclaringType = qualification
	}
	return e
}

// methodElement describes a method or constructor and returns the simple
// names of its parameter and return types.
func (b *binaryMatcher) methodElement(m *classfile.Method, typeName string) (types.Element, []string, string, bool) {
	params, ret, err := classfile.ParseMethodDescriptor(m.Descriptor)
	if err != nil {
		return types.Element{}, nil, "", false
	}
	e := b.element(types.ElementMethod, m.Name)
	e.DeclaringType = typeName
	if m.IsConstructor() {
		e.Kind = types.ElementConstructor
		_, e.Name = splitName(typeName)
	}
	e.ParameterTypes = make([]string, len(params))
	simples := make([]string, len(params))
	for i, p := range params {
		e.ParameterTypes[i], simples[i] = descriptorName(p)
	}
	var retSimple string
	if !m.IsConstructor() {
		e.Type, retSimple = descriptorName(ret)
	}
	return e, simples, retSimple, true
}

func (b *binaryMatcher) match(kind types.MatchKind, e types.Element) types.SearchMatch {
	return types.SearchMatch{
		Kind:        kind,
		Element:     e,
		Accuracy:    types.AccuracyAccurate,
		Offset:      -1,
		Length:      -1,
		Participant: ParticipantName,
		Resource:    b.doc.Path,
	}
}
