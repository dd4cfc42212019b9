package indexer

import (
	"strings"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/internal/jast"
)

// entrySet collects entries without duplicates, keeping first-seen order.
type entrySet struct {
	seen    map[index.Entry]bool
	entries []index.Entry
}

func newEntrySet() *entrySet {
	return &entrySet{seen: make(map[index.Entry]bool)}
}

func (s *entrySet) add(c index.Category, key string) {
	if key == "" {
		return
	}
	e := index.Entry{Category: c, Key: key}
	if s.seen[e] {
		return
	}
	s.seen[e] = true
	s.entries = append(s.entries, e)
}

// ExtractSource returns the index entries of a parsed compilation unit:
// declarations of types, fields, methods and constructors, super type
// references, and references to simple names, methods and constructors.
func ExtractSource(unit *jast.CompilationUnit) []index.Entry {
	s := newEntrySet()
	pkg := unit.PackageName()

	for _, imp := range unit.Imports {
		addQualifiedRefs(s, imp.Name)
	}
	for _, ref := range unit.DocRefs {
		addQualifiedRefs(s, ref.Name)
	}

	jast.Inspect(unit, func(n jast.Node) bool {
		switch v := n.(type) {
		case *jast.TypeDecl:
			extractTypeDecl(s, v, pkg)
			extractConstructorCalls(s, v)
		case *jast.FieldDecl:
			s.add(index.CategoryFieldDecl, index.FieldDeclKey(v.Name))
		case *jast.MethodDecl:
			if v.Constructor {
				s.add(index.CategoryConstructorDecl, index.ConstructorKey{
					TypeName: v.Decl.Name, ArgCount: len(v.Params), Package: pkg,
				}.Encode())
			} else {
				s.add(index.CategoryMethodDecl, index.MethodKey{Selector: v.Name, ArgCount: len(v.Params)}.Encode())
			}
		case *jast.TypeRef:
			if !v.Wildcard && !v.IsPrimitive() && !jast.IsPrimitiveName(v.Name) {
				addQualifiedRefs(s, v.Name)
			}
		case *jast.Ident:
			s.add(index.CategoryRef, index.RefKey(v.Name))
		case *jast.FieldAccess:
			s.add(index.CategoryRef, index.RefKey(v.Name))
		case *jast.MethodCall:
			s.add(index.CategoryMethodRef, index.MethodKey{Selector: v.Name, ArgCount: len(v.Args)}.Encode())
		case *jast.New:
			if v.Type != nil {
				s.add(index.CategoryConstructorRef, index.ConstructorKey{
					TypeName: v.Type.SimpleName(), ArgCount: len(v.Args),
				}.Encode())
			}
		}
		return true
	})

	return s.entries
}

func extractTypeDecl(s *entrySet, t *jast.TypeDecl, pkg string) {
	if t.Anonymous {
		if t.Superclass != nil {
			addSuperRef(s, t, t.Superclass, pkg, index.KindClass)
		}
		return
	}
	s.add(index.CategoryTypeDecl, index.TypeDeclKey{
		SimpleName:     t.Name,
		Package:        pkg,
		EnclosingTypes: t.EnclosingNames(),
		Kind:           t.Kind.Code(),
	}.Encode())

	if t.Superclass != nil {
		addSuperRef(s, t, t.Superclass, pkg, index.KindClass)
	}
	for _, i := range t.Interfaces {
		addSuperRef(s, t, i, pkg, index.KindInterface)
	}
	if t.Kind == jast.KindClass && !t.HasConstructor() {
		s.add(index.CategoryConstructorDecl, index.ConstructorKey{TypeName: t.Name, Package: pkg}.Encode())
	}
	if t.Kind == jast.KindEnum {
		for _, f := range t.Fields {
			if f.EnumConstant {
				s.add(index.CategoryConstructorRef, index.ConstructorKey{TypeName: t.Name, ArgCount: len(f.Args)}.Encode())
			}
		}
	}
}

func addSuperRef(s *entrySet, t *jast.TypeDecl, super *jast.TypeRef, pkg string, kind byte) {
	s.add(index.CategorySuperRef, index.SuperRefKey{
		SuperSimpleName:    super.SimpleName(),
		SuperQualification: super.Qualification(),
		SimpleName:         t.Name,
		Package:            pkg,
		EnclosingTypes:     t.EnclosingNames(),
		SuperKind:          kind,
	}.Encode())
}

// extractConstructorCalls indexes this(...) and super(...) calls under the
// current or the super class name.
func extractConstructorCalls(s *entrySet, t *jast.TypeDecl) {
	for _, m := range t.Methods {
		call := m.ExplicitCall
		if call == nil {
			continue
		}
		name := t.Name
		if call.Super {
			if t.Superclass == nil {
				name = "Object"
			} else {
				name = t.Superclass.SimpleName()
			}
		}
		s.add(index.CategoryConstructorRef, index.ConstructorKey{TypeName: name, ArgCount: len(call.Args)}.Encode())
	}
}

// addQualifiedRefs indexes every segment of a dotted name, so both the
// simple name and its package or type qualifiers can be found.
func addQualifiedRefs(s *entrySet, dotted string) {
	for _, seg := range strings.Split(dotted, ".") {
		s.add(index.CategoryRef, index.RefKey(seg))
	}
}

// ExtractClassFile returns the declaration entries of a class file.
// Synthetic members and class initializers are skipped; anonymous and
// local classes are not indexed.
func ExtractClassFile(cf *classfile.ClassFile) []index.Entry {
	s := newEntrySet()
	pkg := cf.PackageName()
	enclosing, simple, ok := BinaryNesting(cf)
	if !ok {
		return nil
	}

	s.add(index.CategoryTypeDecl, index.TypeDeclKey{
		SimpleName: simple, Package: pkg, EnclosingTypes: enclosing, Kind: ClassKind(cf),
	}.Encode())

	addBinarySuper := func(internal string, superKind byte) {
		dotted := strings.ReplaceAll(strings.ReplaceAll(internal, "/", "."), "$", ".")
		qual, name := "", dotted
		if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
			qual, name = dotted[:i], dotted[i+1:]
		}
		s.add(index.CategorySuperRef, index.SuperRefKey{
			SuperSimpleName:    name,
			SuperQualification: qual,
			SimpleName:         simple,
			Package:            pkg,
			EnclosingTypes:     enclosing,
			SuperKind:          superKind,
		}.Encode())
	}
	if cf.Super != "" && !cf.IsInterface() {
		addBinarySuper(cf.Super, index.KindClass)
	}
	for _, i := range cf.Interfaces {
		addBinarySuper(i, index.KindInterface)
	}

	for _, f := range cf.Fields {
		if f.Access&classfile.AccSynthetic != 0 {
			continue
		}
		s.add(index.CategoryFieldDecl, index.FieldDeclKey(f.Name))
	}
	for _, m := range cf.Methods {
		if m.Access&(classfile.AccSynthetic|classfile.AccBridge) != 0 || m.Name == "<clinit>" {
			continue
		}
		params, _, err := classfile.ParseMethodDescriptor(m.Descriptor)
		if err != nil {
			continue
		}
		if m.IsConstructor() {
			s.add(index.CategoryConstructorDecl, index.ConstructorKey{TypeName: simple, ArgCount: len(params), Package: pkg}.Encode())
			continue
		}
		s.add(index.CategoryMethodDecl, index.MethodKey{Selector: m.Name, ArgCount: len(params)}.Encode())
	}
	return s.entries
}

// ClassKind returns the index kind code of a class file.
func ClassKind(cf *classfile.ClassFile) byte {
	switch {
	case cf.Access&classfile.AccAnnotation != 0:
		return index.KindAnnotation
	case cf.IsInterface():
		return index.KindInterface
	case cf.Access&classfile.AccEnum != 0:
		return index.KindEnum
	case cf.Super == "java/lang/Record":
		return index.KindRecord
	default:
		return index.KindClass
	}
}

// BinaryNesting splits the class name into enclosing type names and the
// simple name. It reports false for anonymous and local classes.
func BinaryNesting(cf *classfile.ClassFile) (enclosing []string, simple string, ok bool) {
	name := cf.Name
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	parts := strings.Split(name, "$")
	for _, p := range parts {
		if p == "" || (p[0] >= '0' && p[0] <= '9') {
			return nil, "", false
		}
	}
	return parts[:len(parts)-1], parts[len(parts)-1], true
}
