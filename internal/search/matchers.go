package search

import (
	"strings"

	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/lookup"
	"github.com/dshills/javacontext-mcp/internal/search/pattern"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

func (u *unitMatcher) typeDeclarations(p *pattern.TypeDeclarationPattern) []types.SearchMatch {
	var out []types.SearchMatch
	u.walk(func(n jast.Node, wc walkContext) {
		t, ok := n.(*jast.TypeDecl)
		if !ok || t.Anonymous {
			return
		}
		qualification := u.unit.PackageName()
		if t.Enclosing != nil {
			qualification = qualify(qualification, strings.Join(t.EnclosingNames(), "."))
		}
		if !p.MatchesType(qualification, t.Name, t.Kind.Code()) {
			return
		}
		var rule types.GenericRule
		if len(p.TypeArguments) > 0 {
			names := make([]string, len(t.TypeParams))
			for i, tp := range t.TypeParams {
				names[i] = tp.Name
			}
			r, ok := pattern.MatchTypeArguments(p.Rule(), p.TypeArguments, names)
			if !ok {
				return
			}
			rule = r
		}
		m := u.match(types.MatchTypeDeclaration, u.typeElement(t, wc.typeName), t.NameSpan, u.declarationAccuracy())
		m.Rule = rule
		out = append(out, m)
	})
	return out
}

func (u *unitMatcher) typeReferences(p *pattern.TypeReferencePattern) []types.SearchMatch {
	var out []types.SearchMatch
	// the superclass of an anonymous class is also the type of its New
	seen := make(map[*jast.TypeRef]bool)
	u.walk(func(n jast.Node, wc walkContext) {
		switch v := n.(type) {
		case *jast.TypeRef:
			if seen[v] || v.Wildcard || v.IsPrimitive() || v.Name == "var" {
				return
			}
			seen[v] = true
			if m, ok := u.typeRefMatch(p, v, wc); ok {
				out = append(out, m)
			}
		case *jast.Ident, *jast.FieldAccess:
			expr := v.(jast.Expr)
			t := u.res.TypeNames[expr]
			if t == nil || !p.MatchesType(typeQualification(t), t.Leaf().SimpleName()) {
				return
			}
			span := exprSpan(expr)
			if fa, ok := v.(*jast.FieldAccess); ok {
				if _, pkg := u.res.Packages[fa.X]; !pkg {
					span = fa.NameSpan
				}
			}
			out = append(out, u.match(types.MatchTypeReference, wc.enclosing, span, u.accuracy(true)))
		case *jast.ImportDecl:
			if m, ok := u.importMatch(p, v, wc); ok {
				out = append(out, m)
			}
		}
	})
	out = append(out, u.docReferences(p)...)
	return out
}

func (u *unitMatcher) typeRefMatch(p *pattern.TypeReferencePattern, ref *jast.TypeRef, wc walkContext) (types.SearchMatch, bool) {
	if t := u.res.TypeRefs[ref]; t != nil {
		if len(ref.Segments) <= 1 && wc.typeVars[ref.Name] {
			// a type variable resolves to its bound
			return types.SearchMatch{}, false
		}
		if !p.MatchesType(typeQualification(t), t.Leaf().SimpleName()) {
			return types.SearchMatch{}, false
		}
		m := u.match(types.MatchTypeReference, wc.enclosing, nameSpan(ref), u.accuracy(true))
		if len(p.TypeArguments) > 0 {
			rule, ok := pattern.MatchTypeArguments(p.Rule(), p.TypeArguments, typeArgumentStrings(ref))
			if !ok {
				return types.SearchMatch{}, false
			}
			m.Rule = rule
		}
		return m, true
	}
	if wc.typeVars[ref.Name] || !p.MatchesType(ref.Qualification(), ref.SimpleName()) {
		return types.SearchMatch{}, false
	}
	return u.match(types.MatchTypeReference, wc.enclosing, nameSpan(ref), types.AccuracyInaccurate), true
}

func (u *unitMatcher) importMatch(p *pattern.TypeReferencePattern, imp *jast.ImportDecl, wc walkContext) (types.SearchMatch, bool) {
	t := u.res.Imports[imp]
	if t == nil {
		return types.SearchMatch{}, false
	}
	if !p.MatchesType(typeQualification(t), t.SimpleName()) {
		return types.SearchMatch{}, false
	}
	span := imp.NameSpan
	if imp.Static && !imp.OnDemand {
		// import static p.T.member names T up to the last dot
		if i := strings.LastIndexByte(imp.Name, '.'); i > 0 {
			span.End = span.Start + i
		}
	}
	return u.match(types.MatchTypeReference, wc.enclosing, span, u.accuracy(true)), true
}

// docReferences matches type names in doc comment links. They are not
// resolved against any scope, so they are always inaccurate.
func (u *unitMatcher) docReferences(p *pattern.TypeReferencePattern) []types.SearchMatch {
	var out []types.SearchMatch
	for _, ref := range u.unit.DocRefs {
		qualification, simple := splitName(ref.Name)
		if t, _ := u.env.ResolveTypeName(ref.Name, lookup.TypeContext{Unit: u.unit}); t != nil {
			qualification, simple = typeQualification(t), t.SimpleName()
		}
		if !p.MatchesType(qualification, simple) {
			continue
		}
		m := u.match(types.MatchTypeReference, u.documentedElement(ref.Start), ref.Span, types.AccuracyInaccurate)
		m.InsideDocComment = true
		out = append(out, m)
	}
	return out
}

// documentedElement returns the type a doc comment at off belongs to: the
// innermost type containing it or else the next type declared after it.
func (u *unitMatcher) documentedElement(off int) types.Element {
	var inner, next *jast.TypeDecl
	jast.Inspect(u.unit, func(n jast.Node) bool {
		t, ok := n.(*jast.TypeDecl)
		if !ok || t.Anonymous {
			return true
		}
		switch {
		case t.Contains(off):
			inner = t
		case t.Start > off && (next == nil || t.Start < next.Start):
			next = t
		}
		return true
	})
	t := inner
	if t == nil {
		t = next
	}
	if t == nil {
		return types.Element{Kind: types.ElementPackage, Name: u.unit.PackageName()}
	}
	var outer string
	if t.Enclosing != nil {
		outer = t.Enclosing.QualifiedName()
	}
	return u.typeElement(t, outer)
}

func (u *unitMatcher) superTypeReferences(p *pattern.SuperTypeReferencePattern) []types.SearchMatch {
	var out []types.SearchMatch
	u.walk(func(n jast.Node, wc walkContext) {
		t, ok := n.(*jast.TypeDecl)
		if !ok {
			return
		}
		report := func(ref *jast.TypeRef, kind byte, e types.Element) {
			if ref == nil {
				return
			}
			d := p.Blank().(*pattern.SuperTypeReferencePattern)
			d.SimpleName = t.Name
			d.Package = u.unit.PackageName()
			d.EnclosingTypes = t.EnclosingNames()
			d.SuperKind = kind
			resolved := u.res.TypeRefs[ref]
			if resolved != nil {
				d.SuperSimpleName = resolved.SimpleName()
				d.SuperQualification = typeQualification(resolved)
				if t.Anonymous && resolved.IsInterface() {
					d.SuperKind = index.KindInterface
				}
			} else {
				d.SuperSimpleName = ref.SimpleName()
				d.SuperQualification = ref.Qualification()
			}
			if !p.MatchesDecodedKey(d) {
				return
			}
			out = append(out, u.match(types.MatchTypeReference, e, nameSpan(ref), u.accuracy(resolved != nil)))
		}
		if t.Anonymous {
			report(t.Superclass, index.KindClass, wc.enclosing)
			return
		}
		e := u.typeElement(t, wc.typeName)
		if t.IsInterface() {
			for _, ref := range t.Interfaces {
				report(ref, index.KindInterface, e)
			}
			return
		}
		report(t.Superclass, index.KindClass, e)
		for _, ref := range t.Interfaces {
			report(ref, index.KindInterface, e)
		}
	})
	return out
}

func bindingSimpleName(t *lookup.TypeBinding) string {
	if t == nil {
		return ""
	}
	return t.SimpleName()
}

func bindingSimpleNames(ts []*lookup.TypeBinding) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = bindingSimpleName(t)
	}
	return out
}

func paramSimpleNames(params []*jast.Param) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = paramSimpleName(p)
	}
	return out
}

func (u *unitMatcher) methods(p *pattern.MethodPattern) []types.SearchMatch {
	var out []types.SearchMatch
	u.walk(func(n jast.Node, wc walkContext) {
		switch v := n.(type) {
		case *jast.MethodDecl:
			if !p.FindDeclarations || v.Constructor || !p.MatchesSelector(v.Name) {
				return
			}
			qualification, simple := splitName(wc.typeName)
			if !p.MatchesParameters(paramSimpleNames(v.Params)) ||
				!p.MatchesDeclaringType(qualification, simple) ||
				!p.MatchesReturnType(refSimpleName(v.Result)) {
				return
			}
			out = append(out, u.match(types.MatchMethodDeclaration, u.methodElement(v, wc.typeName), v.NameSpan, u.declarationAccuracy()))
		case *jast.MethodCall:
			if !p.FindReferences || !p.MatchesSelector(v.Name) || !p.MatchesArity(len(v.Args)) {
				return
			}
			m := u.res.Methods[v]
			if m.IsValid() && m.Declaring != nil {
				if !p.MatchesParameters(bindingSimpleNames(m.Params)) ||
					!p.MatchesDeclaringType(typeQualification(m.Declaring), m.Declaring.SimpleName()) ||
					!p.MatchesReturnType(bindingSimpleName(m.Return)) {
					return
				}
				out = append(out, u.match(types.MatchMethodReference, wc.enclosing, v.NameSpan, u.accuracy(true)))
				return
			}
			out = append(out, u.match(types.MatchMethodReference, wc.enclosing, v.NameSpan, types.AccuracyInaccurate))
		}
	})
	return out
}

func (u *unitMatcher) constructors(p *pattern.ConstructorPattern) []types.SearchMatch {
	var out []types.SearchMatch
	// a constructor binding matches when its declaring type and
	// parameters do; unresolved calls only need the type name
	matches := func(ctor *lookup.MethodBinding, t *lookup.TypeBinding, args int) (bool, types.Accuracy) {
		if !p.MatchesArity(args) {
			return false, 0
		}
		if ctor.IsValid() && ctor.Declaring != nil {
			d := ctor.Declaring
			ok := p.MatchesDeclaringType(typeQualification(d), d.SimpleName()) &&
				p.MatchesParameters(bindingSimpleNames(ctor.Params))
			return ok, u.accuracy(true)
		}
		if t == nil {
			return false, 0
		}
		return p.MatchesDeclaringType(typeQualification(t), t.SimpleName()), types.AccuracyInaccurate
	}
	u.walk(func(n jast.Node, wc walkContext) {
		switch v := n.(type) {
		case *jast.TypeDecl:
			if !p.FindDeclarations || v.Anonymous || v.Kind != jast.KindClass || v.HasConstructor() {
				return
			}
			if p.ParameterCount != pattern.AnyArity && p.ParameterCount != 0 {
				return
			}
			qualification, simple := splitName(v.QualifiedName())
			if !p.MatchesDeclaringType(qualification, simple) {
				return
			}
			e := u.typeElement(v, wc.typeName)
			e.Kind = types.ElementConstructor
			e.DeclaringType = v.QualifiedName()
			e.ParameterTypes = []string{}
			out = append(out, u.match(types.MatchConstructorDeclaration, e, v.NameSpan, u.declarationAccuracy()))
		case *jast.MethodDecl:
			if !p.FindDeclarations || !v.Constructor {
				return
			}
			qualification, simple := splitName(wc.typeName)
			if !p.MatchesDeclaringType(qualification, simple) || !p.MatchesParameters(paramSimpleNames(v.Params)) {
				return
			}
			out = append(out, u.match(types.MatchConstructorDeclaration, u.methodElement(v, wc.typeName), v.NameSpan, u.declarationAccuracy()))
		case *jast.New:
			if !p.FindReferences {
				return
			}
			ok, acc := matches(u.res.Constructors[v], u.res.TypeRefs[v.Type], len(v.Args))
			if !ok {
				return
			}
			span := v.Span
			if v.Body != nil {
				span.End = v.Body.Start
			}
			out = append(out, u.match(types.MatchConstructorReference, wc.enclosing, span, acc))
		case *jast.ConstructorCall:
			if !p.FindReferences {
				return
			}
			ctor := u.res.Constructors[v]
			var t *lookup.TypeBinding
			if ctor != nil {
				t = ctor.Declaring
			}
			if ok, acc := matches(ctor, t, len(v.Args)); ok {
				out = append(out, u.match(types.MatchConstructorReference, wc.enclosing, v.Span, acc))
			}
		case *jast.FieldDecl:
			if !p.FindReferences || !v.EnumConstant {
				return
			}
			ctor := u.res.Constructors[v]
			var t *lookup.TypeBinding
			if ctor != nil {
				t = ctor.Declaring
			}
			if ok, acc := matches(ctor, t, len(v.Args)); ok {
				out = append(out, u.match(types.MatchConstructorReference, u.fieldElement(v, wc.typeName), v.NameSpan, acc))
			}
		}
	})
	return out
}

// access classifies a variable reference as read, write or both.
func (u *unitMatcher) access(e jast.Expr) (read, write bool) {
	alsoRead, written := u.res.Writes[e]
	return !written || alsoRead, written
}

func (u *unitMatcher) fields(p *pattern.FieldPattern) []types.SearchMatch {
	var out []types.SearchMatch
	u.walk(func(n jast.Node, wc walkContext) {
		switch v := n.(type) {
		case *jast.FieldDecl:
			if !p.FindDeclarations {
				return
			}
			qualification, simple := splitName(wc.typeName)
			typeName := refSimpleName(v.Type)
			if v.EnumConstant {
				_, typeName = splitName(wc.typeName)
			}
			if !p.MatchesField(v.Name, qualification, simple) || !p.MatchesFieldType(typeName) {
				return
			}
			out = append(out, u.match(types.MatchFieldDeclaration, u.fieldElement(v, wc.typeName), v.NameSpan, u.declarationAccuracy()))
		case *jast.Ident, *jast.FieldAccess:
			if !p.FindReferences() {
				return
			}
			expr := v.(jast.Expr)
			f, ok := u.res.Fields[expr]
			if !ok || f.IsArrayLength() {
				return
			}
			acc := types.AccuracyInaccurate
			if f.IsValid() && f.Declaring != nil {
				if !p.MatchesField(f.Name, typeQualification(f.Declaring), f.Declaring.SimpleName()) ||
					!p.MatchesFieldType(bindingSimpleName(f.Type)) {
					return
				}
				acc = u.accuracy(true)
			} else if !p.MatchesField(f.Name, "", "") {
				return
			}
			read, write := u.access(expr)
			if !(read && p.ReadAccess) && !(write && p.WriteAccess) {
				return
			}
			span := exprSpan(expr)
			if fa, ok := v.(*jast.FieldAccess); ok {
				span = fa.NameSpan
			}
			m := u.match(types.MatchFieldReference, wc.enclosing, span, acc)
			m.IsReadAccess, m.IsWriteAccess = read, write
			out = append(out, m)
		}
	})
	return out
}

func (u *unitMatcher) packageDeclaration(p *pattern.PackageDeclarationPattern) []types.SearchMatch {
	pkg := u.unit.Package
	if pkg == nil || !p.MatchesPackage(pkg.Name) || !u.l.once("package:"+u.doc.Container+":"+pkg.Name) {
		return nil
	}
	e := types.Element{
		Kind:       types.ElementPackage,
		Name:       pkg.Name,
		Path:       u.doc.Path,
		Container:  u.doc.Container,
		NameOffset: pkg.NameSpan.Start,
		NameLength: pkg.NameSpan.Len(),
	}
	return []types.SearchMatch{u.match(types.MatchPackageDeclaration, e, pkg.NameSpan, u.declarationAccuracy())}
}

func (u *unitMatcher) packageReferences(p *pattern.PackageReferencePattern) []types.SearchMatch {
	var out []types.SearchMatch
	u.walk(func(n jast.Node, wc walkContext) {
		switch v := n.(type) {
		case *jast.ImportDecl:
			pkg := u.longestPackage(v.Name)
			if pkg == "" || !p.MatchesPackage(pkg) {
				return
			}
			span := jast.Span{Start: v.NameSpan.Start, End: v.NameSpan.Start + len(pkg)}
			out = append(out, u.match(types.MatchPackageReference, wc.enclosing, span, u.accuracy(true)))
		case *jast.TypeRef:
			t := u.res.TypeRefs[v]
			if t == nil || len(v.Segments) < 2 {
				return
			}
			pkg := t.Leaf().PackageName()
			segs := strings.Count(pkg, ".") + 1
			if pkg == "" || !strings.HasPrefix(v.Name, pkg+".") || segs >= len(v.Segments) || !p.MatchesPackage(pkg) {
				return
			}
			span := jast.Span{Start: v.Segments[0].Start, End: v.Segments[segs-1].End}
			out = append(out, u.match(types.MatchPackageReference, wc.enclosing, span, u.accuracy(true)))
		case *jast.FieldAccess:
			if u.res.TypeNames[v] == nil {
				return
			}
			pkg, ok := u.res.Packages[v.X]
			if !ok || !p.MatchesPackage(pkg) {
				return
			}
			out = append(out, u.match(types.MatchPackageReference, wc.enclosing, exprSpan(v.X), u.accuracy(true)))
		}
	})
	return out
}

// longestPackage returns the longest prefix of a dotted name that is a
// known package.
func (u *unitMatcher) longestPackage(name string) string {
	segs := strings.Split(name, ".")
	for i := len(segs) - 1; i > 0; i-- {
		pkg := strings.Join(segs[:i], ".")
		if u.env.IsPackage(pkg) {
			return pkg
		}
	}
	return ""
}

func (u *unitMatcher) localVariable(p *pattern.LocalVariablePattern) []types.SearchMatch {
	var decl jast.Node
	var declSpan jast.Span
	jast.Inspect(u.unit, func(n jast.Node) bool {
		switch v := n.(type) {
		case *jast.LocalVarDecl:
			if v.Name == p.Name && v.NameSpan.Start == p.Declaration.NameOffset {
				decl, declSpan = v, v.NameSpan
			}
		case *jast.Param:
			if v.Name == p.Name && v.NameSpan.Start == p.Declaration.NameOffset {
				decl, declSpan = v, v.NameSpan
			}
		}
		return decl == nil
	})
	if decl == nil {
		return nil
	}
	binding := u.res.Locals[decl]

	var out []types.SearchMatch
	if p.FindDeclarations {
		out = append(out, u.match(types.MatchLocalDeclaration, p.Declaration, declSpan, u.declarationAccuracy()))
	}
	if binding == nil || (!p.ReadAccess && !p.WriteAccess) {
		return out
	}
	u.walk(func(n jast.Node, wc walkContext) {
		id, ok := n.(*jast.Ident)
		if !ok || u.res.Locals[id] != binding {
			return
		}
		read, write := u.access(id)
		if !(read && p.ReadAccess) && !(write && p.WriteAccess) {
			return
		}
		m := u.match(types.MatchLocalReference, wc.enclosing, id.Span, u.accuracy(true))
		m.IsReadAccess, m.IsWriteAccess = read, write
		out = append(out, m)
	})
	return out
}

func (u *unitMatcher) typeParameter(p *pattern.TypeParameterPattern) []types.SearchMatch {
	var param *jast.TypeParam
	var owner jast.Span
	jast.Inspect(u.unit, func(n jast.Node) bool {
		var params []*jast.TypeParam
		var span jast.Span
		switch v := n.(type) {
		case *jast.TypeDecl:
			params, span = v.TypeParams, v.Span
		case *jast.MethodDecl:
			params, span = v.TypeParams, v.Span
		}
		for _, tp := range params {
			if tp.Name == p.Name && tp.NameSpan.Start == p.Declaration.NameOffset {
				param, owner = tp, span
			}
		}
		return param == nil
	})
	if param == nil {
		return nil
	}

	var out []types.SearchMatch
	if p.FindDeclarations {
		out = append(out, u.match(types.MatchTypeParameterDecl, p.Declaration, param.NameSpan, u.declarationAccuracy()))
	}
	if !p.FindReferences {
		return out
	}
	u.walk(func(n jast.Node, wc walkContext) {
		ref, ok := n.(*jast.TypeRef)
		if !ok || ref.Name != p.Name || !owner.Contains(ref.Start) {
			return
		}
		out = append(out, u.match(types.MatchTypeParameterRef, wc.enclosing, nameSpan(ref), u.declarationAccuracy()))
	})
	return out
}

func exprSpan(e jast.Expr) jast.Span {
	s, end := e.Pos()
	return jast.Span{Start: s, End: end}
}
