package search

import (
	"context"
	"log"
	"strings"

	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/lookup"
	"github.com/dshills/javacontext-mcp/internal/search/pattern"
	"github.com/dshills/javacontext-mcp/internal/search/scope"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

// MatchLocator is the second search phase: it parses and resolves the
// candidate documents and reports the confirmed occurrences of a pattern.
type MatchLocator struct {
	Pattern     pattern.Pattern
	Scope       scope.Scope
	Participant *JavaParticipant
	// Names is the class path the candidates are resolved against.
	Names lookup.NameEnvironment
	// Report receives every match. An error stops the search.
	Report func(types.SearchMatch) error

	// reported declarations and packages, reported once per search
	seen map[string]bool
}

// Locate reports the matches of every document in order. Unreadable
// documents are logged and skipped.
func (l *MatchLocator) Locate(ctx context.Context, docs []Document) error {
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if l.Scope == nil {
		l.Scope = scope.NewWorkspace()
	}
	for _, doc := range docs {
		if err := checkCanceled(ctx); err != nil {
			return err
		}
		parsed, err := l.Participant.Parse(doc)
		if err != nil {
			log.Printf("search: skipping %s: %v", doc.Path, err)
			continue
		}
		var matches []types.SearchMatch
		if parsed.Class != nil {
			b := &binaryMatcher{doc: doc, cf: parsed.Class}
			matches = b.collect(l.Pattern)
		} else {
			u := l.newUnitMatcher(doc, parsed.Unit)
			matches = u.collect(l.Pattern)
		}
		for _, m := range matches {
			if err := l.Report(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// once reports whether key is seen for the first time.
func (l *MatchLocator) once(key string) bool {
	if l.seen[key] {
		return false
	}
	l.seen[key] = true
	return true
}

// unitMatcher matches one resolved compilation unit.
type unitMatcher struct {
	l    *MatchLocator
	doc  Document
	unit *jast.CompilationUnit
	env  *lookup.Environment
	res  *lookup.Resolution
	// inaccurate is set when syntax errors or unresolved imports make every
	// reference match of the unit uncertain.
	inaccurate bool
}

func (l *MatchLocator) newUnitMatcher(doc Document, unit *jast.CompilationUnit) *unitMatcher {
	env := lookup.NewEnvironment(l.Names)
	env.BindUnit(unit, doc.Container, doc.Path)
	r := lookup.NewResolver(env, unit)
	r.ResolveUnit()
	res := r.Resolution()
	return &unitMatcher{
		l:          l,
		doc:        doc,
		unit:       unit,
		env:        env,
		res:        res,
		inaccurate: unit.HasSyntaxErrors() || res.UnresolvedImports > 0,
	}
}

// collect returns the matches of p in the unit. An and pattern reports
// only when each of its patterns matched.
func (u *unitMatcher) collect(p pattern.Pattern) []types.SearchMatch {
	switch v := p.(type) {
	case *pattern.OrPattern:
		var out []types.SearchMatch
		for _, sub := range v.Patterns {
			out = append(out, u.collect(sub)...)
		}
		return out
	case *pattern.AndPattern:
		var out []types.SearchMatch
		for _, sub := range v.Patterns {
			m := u.collect(sub)
			if len(m) == 0 {
				return nil
			}
			out = append(out, m...)
		}
		return out
	case *pattern.TypeDeclarationPattern:
		return u.typeDeclarations(v)
	case *pattern.TypeReferencePattern:
		return u.typeReferences(v)
	case *pattern.SuperTypeReferencePattern:
		return u.superTypeReferences(v)
	case *pattern.MethodPattern:
		return u.methods(v)
	case *pattern.ConstructorPattern:
		return u.constructors(v)
	case *pattern.FieldPattern:
		return u.fields(v)
	case *pattern.PackageDeclarationPattern:
		return u.packageDeclaration(v)
	case *pattern.PackageReferencePattern:
		return u.packageReferences(v)
	case *pattern.LocalVariablePattern:
		return u.localVariable(v)
	case *pattern.TypeParameterPattern:
		return u.typeParameter(v)
	case *pattern.DeclarationsOfPattern:
		return u.declarationsOf(v)
	}
	return nil
}

// walkContext describes where a node sits.
type walkContext struct {
	// enclosing is the innermost member or type element
	enclosing types.Element
	// typeName is the qualified name of the innermost named type
	typeName string
	// typeVars are the type parameter names in scope
	typeVars map[string]bool
}

// walk visits every node of the unit with its context.
func (u *unitMatcher) walk(visit func(n jast.Node, wc walkContext)) {
	var rec func(n jast.Node, wc walkContext)
	rec = func(n jast.Node, wc walkContext) {
		switch v := n.(type) {
		case *jast.TypeDecl:
			if !v.Anonymous {
				visit(n, wc)
				wc.enclosing = u.typeElement(v, wc.typeName)
				wc.typeName = v.QualifiedName()
			} else {
				visit(n, wc)
			}
			wc.typeVars = withTypeParams(wc.typeVars, v.TypeParams)
		case *jast.MethodDecl:
			visit(n, wc)
			wc.typeVars = withTypeParams(wc.typeVars, v.TypeParams)
			wc.enclosing = u.methodElement(v, wc.typeName)
		case *jast.FieldDecl:
			visit(n, wc)
			wc.enclosing = u.fieldElement(v, wc.typeName)
		default:
			visit(n, wc)
		}
		for _, c := range jast.Children(n) {
			rec(c, wc)
		}
	}
	rec(u.unit, walkContext{enclosing: types.Element{Kind: types.ElementPackage, Name: u.unit.PackageName()}})
}

func withTypeParams(vars map[string]bool, params []*jast.TypeParam) map[string]bool {
	if len(params) == 0 {
		return vars
	}
	out := make(map[string]bool, len(vars)+len(params))
	for k := range vars {
		out[k] = true
	}
	for _, tp := range params {
		out[tp.Name] = true
	}
	return out
}

func qualify(qualification, simple string) string {
	if qualification == "" {
		return simple
	}
	return qualification + "." + simple
}

// splitName splits "a.b.C" into "a.b" and "C".
func splitName(name string) (qualification, simple string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func (u *unitMatcher) typeElement(t *jast.TypeDecl, outer string) types.Element {
	e := types.Element{
		Kind:       types.ElementType,
		Name:       t.Name,
		Package:    u.unit.PackageName(),
		Path:       u.doc.Path,
		Container:  u.doc.Container,
		NameOffset: t.NameSpan.Start,
		NameLength: t.NameSpan.Len(),
	}
	if t.Enclosing != nil {
		e.DeclaringType = outer
	}
	return e
}

func (u *unitMatcher) methodElement(m *jast.MethodDecl, declaring string) types.Element {
	e := types.Element{
		Kind:           types.ElementMethod,
		Name:           m.Name,
		Package:        u.unit.PackageName(),
		DeclaringType:  declaring,
		ParameterTypes: make([]string, len(m.Params)),
		Path:           u.doc.Path,
		Container:      u.doc.Container,
		NameOffset:     m.NameSpan.Start,
		NameLength:     m.NameSpan.Len(),
	}
	if m.Constructor {
		e.Kind = types.ElementConstructor
	} else if m.Result != nil {
		e.Type = m.Result.String()
	}
	for i, p := range m.Params {
		e.ParameterTypes[i] = paramTypeName(p)
	}
	return e
}

func (u *unitMatcher) fieldElement(f *jast.FieldDecl, declaring string) types.Element {
	e := types.Element{
		Kind:          types.ElementField,
		Name:          f.Name,
		Package:       u.unit.PackageName(),
		DeclaringType: declaring,
		Path:          u.doc.Path,
		Container:     u.doc.Container,
		NameOffset:    f.NameSpan.Start,
		NameLength:    f.NameSpan.Len(),
	}
	switch {
	case f.Type != nil:
		e.Type = f.Type.String()
	case f.EnumConstant:
		e.Type = declaring
	}
	return e
}

func paramTypeName(p *jast.Param) string {
	if p.Type == nil {
		return ""
	}
	s := p.Type.String()
	if p.Varargs {
		s += "..."
	}
	return s
}

// paramSimpleName is the simple name of a declared parameter type with
// its dimensions, as method patterns compare them.
func paramSimpleName(p *jast.Param) string {
	if p.Type == nil {
		return ""
	}
	s := p.Type.SimpleName() + strings.Repeat("[]", p.Type.Dims)
	if p.Varargs {
		s += "[]"
	}
	return s
}

func refSimpleName(r *jast.TypeRef) string {
	if r == nil {
		return "void"
	}
	return r.SimpleName() + strings.Repeat("[]", r.Dims)
}

// nameSpan returns the span of a type reference's name, without type
// arguments and dimensions.
func nameSpan(r *jast.TypeRef) jast.Span {
	if n := len(r.Segments); n > 0 {
		return jast.Span{Start: r.Segments[0].Start, End: r.Segments[n-1].End}
	}
	return jast.Span{Start: r.Start, End: r.Start + len(r.Name)}
}

// typeQualification is the package or enclosing type of a resolved type.
func typeQualification(t *lookup.TypeBinding) string {
	t = t.Leaf()
	if t.Enclosing != nil && !t.Local && !t.Anonymous {
		return t.Enclosing.QualifiedName()
	}
	return t.PackageName()
}

func (u *unitMatcher) accuracy(resolved bool) types.Accuracy {
	if !resolved || u.inaccurate {
		return types.AccuracyInaccurate
	}
	return types.AccuracyAccurate
}

// declarationAccuracy only depends on syntax: declarations need no
// resolution.
func (u *unitMatcher) declarationAccuracy() types.Accuracy {
	if u.unit.HasSyntaxErrors() {
		return types.AccuracyInaccurate
	}
	return types.AccuracyAccurate
}

func (u *unitMatcher) match(kind types.MatchKind, e types.Element, span jast.Span, acc types.Accuracy) types.SearchMatch {
	return types.SearchMatch{
		Kind:        kind,
		Element:     e,
		Accuracy:    acc,
		Offset:      span.Start,
		Length:      span.Len(),
		Participant: ParticipantName,
		Resource:    u.doc.Path,
	}
}

// typeArgumentStrings renders the type arguments of a reference.
func typeArgumentStrings(r *jast.TypeRef) []string {
	if len(r.Args) == 0 {
		return nil
	}
	out := make([]string, len(r.Args))
	for i, a := range r.Args {
		out[i] = a.String()
	}
	return out
}
