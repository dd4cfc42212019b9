package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

// converter walks a tree-sitter-java tree and builds jast nodes
type converter struct {
	src  []byte
	unit *jast.CompilationUnit
	mode Mode
}

func (c *converter) text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(c.src[n.StartByte():n.EndByte()])
}

func span(n *tree_sitter.Node) jast.Span {
	if n == nil {
		return jast.Span{Start: -1, End: -1}
	}
	return jast.Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

// namedChildren returns the named children, skipping comments
func namedChildren(n *tree_sitter.Node) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	count := n.NamedChildCount()
	out := make([]*tree_sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		ch := n.NamedChild(i)
		if ch == nil || isComment(ch) {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// allChildren returns every child, anonymous tokens included
func allChildren(n *tree_sitter.Node) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	count := n.ChildCount()
	out := make([]*tree_sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		if ch := n.Child(i); ch != nil && !isComment(ch) {
			out = append(out, ch)
		}
	}
	return out
}

func childOfKind(n *tree_sitter.Node, kinds ...string) *tree_sitter.Node {
	for _, ch := range allChildren(n) {
		for _, k := range kinds {
			if ch.Kind() == k {
				return ch
			}
		}
	}
	return nil
}

func isComment(n *tree_sitter.Node) bool {
	switch n.Kind() {
	case "line_comment", "block_comment", "comment":
		return true
	}
	return false
}

// program converts the root node
func (c *converter) program(root *tree_sitter.Node) {
	for _, ch := range namedChildren(root) {
		switch ch.Kind() {
		case "package_declaration":
			c.unit.Package = c.packageDecl(ch)
		case "import_declaration":
			c.unit.Imports = append(c.unit.Imports, c.importDecl(ch))
		case "class_declaration", "interface_declaration", "enum_declaration",
			"record_declaration", "annotation_type_declaration":
			if t := c.typeDecl(ch, nil); t != nil {
				c.unit.Types = append(c.unit.Types, t)
			}
		}
	}
}

func (c *converter) packageDecl(n *tree_sitter.Node) *jast.PackageDecl {
	decl := &jast.PackageDecl{Span: span(n)}
	if name := childOfKind(n, "scoped_identifier", "identifier"); name != nil {
		decl.Name = c.text(name)
		decl.NameSpan = span(name)
	}
	return decl
}

func (c *converter) importDecl(n *tree_sitter.Node) *jast.ImportDecl {
	decl := &jast.ImportDecl{Span: span(n)}
	for _, ch := range allChildren(n) {
		switch ch.Kind() {
		case "static":
			decl.Static = true
		case "asterisk":
			decl.OnDemand = true
		case "scoped_identifier", "identifier":
			decl.Name = c.text(ch)
			decl.NameSpan = span(ch)
		}
	}
	return decl
}

// modifiers reads the modifiers child of a declaration
func (c *converter) modifiers(n *tree_sitter.Node) jast.Modifiers {
	mods := childOfKind(n, "modifiers")
	if mods == nil {
		return 0
	}
	var m jast.Modifiers
	for _, ch := range allChildren(mods) {
		switch c.text(ch) {
		case "public":
			m |= jast.ModPublic
		case "private":
			m |= jast.ModPrivate
		case "protected":
			m |= jast.ModProtected
		case "static":
			m |= jast.ModStatic
		case "final":
			m |= jast.ModFinal
		case "abstract":
			m |= jast.ModAbstract
		case "synchronized":
			m |= jast.ModSynchronized
		case "volatile":
			m |= jast.ModVolatile
		case "transient":
			m |= jast.ModTransient
		case "native":
			m |= jast.ModNative
		case "strictfp":
			m |= jast.ModStrictfp
		case "default":
			m |= jast.ModDefault
		}
	}
	return m
}

// typeDecl converts any of the five type declaration kinds
func (c *converter) typeDecl(n *tree_sitter.Node, enclosing *jast.TypeDecl) *jast.TypeDecl {
	t := &jast.TypeDecl{
		Span:      span(n),
		Modifiers: c.modifiers(n),
		Enclosing: enclosing,
		Unit:      c.unit,
	}
	switch n.Kind() {
	case "interface_declaration":
		t.Kind = jast.KindInterface
	case "enum_declaration":
		t.Kind = jast.KindEnum
	case "record_declaration":
		t.Kind = jast.KindRecord
	case "annotation_type_declaration":
		t.Kind = jast.KindAnnotation
	default:
		t.Kind = jast.KindClass
	}
	if enclosing != nil && enclosing.IsInterface() {
		t.Modifiers |= jast.ModPublic | jast.ModStatic
	}
	if t.Kind != jast.KindClass && enclosing != nil {
		t.Modifiers |= jast.ModStatic
	}

	name := n.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	t.Name = c.text(name)
	t.NameSpan = span(name)
	t.TypeParams = c.typeParams(n.ChildByFieldName("type_parameters"))

	if sc := n.ChildByFieldName("superclass"); sc != nil {
		if refs := c.typeList(sc); len(refs) > 0 {
			t.Superclass = refs[0]
		}
	}
	if ifs := childOfKind(n, "super_interfaces", "extends_interfaces"); ifs != nil {
		t.Interfaces = c.typeList(ifs)
	}

	if t.Kind == jast.KindRecord {
		for _, p := range c.params(n.ChildByFieldName("parameters")) {
			t.Fields = append(t.Fields, &jast.FieldDecl{
				Span:      p.Span,
				Modifiers: jast.ModPrivate | jast.ModFinal,
				Type:      p.Type,
				Name:      p.Name,
				NameSpan:  p.NameSpan,
				Decl:      t,
			})
		}
	}

	c.typeBody(n.ChildByFieldName("body"), t)
	return t
}

// typeList collects the type references of superclass/super_interfaces/type_list nodes
func (c *converter) typeList(n *tree_sitter.Node) []*jast.TypeRef {
	var refs []*jast.TypeRef
	for _, ch := range namedChildren(n) {
		if ch.Kind() == "type_list" {
			refs = append(refs, c.typeList(ch)...)
			continue
		}
		if ref := c.typeRef(ch); ref != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}

func (c *converter) typeParams(n *tree_sitter.Node) []*jast.TypeParam {
	var out []*jast.TypeParam
	for _, ch := range namedChildren(n) {
		if ch.Kind() != "type_parameter" {
			continue
		}
		tp := &jast.TypeParam{Span: span(ch)}
		for _, part := range namedChildren(ch) {
			switch part.Kind() {
			case "type_identifier", "identifier":
				tp.Name = c.text(part)
				tp.NameSpan = span(part)
			case "type_bound":
				tp.Bounds = c.typeList(part)
			}
		}
		out = append(out, tp)
	}
	return out
}

// typeBody converts class, interface, enum, record and annotation bodies
func (c *converter) typeBody(body *tree_sitter.Node, t *jast.TypeDecl) {
	if body == nil {
		return
	}
	for _, ch := range namedChildren(body) {
		switch ch.Kind() {
		case "enum_constant":
			c.enumConstant(ch, t)
		case "enum_body_declarations":
			c.typeBody(ch, t)
		case "field_declaration", "constant_declaration":
			c.fieldDecl(ch, t)
		case "method_declaration", "annotation_type_element_declaration":
			if m := c.methodDecl(ch, t); m != nil {
				t.Methods = append(t.Methods, m)
			}
		case "constructor_declaration", "compact_constructor_declaration":
			if m := c.methodDecl(ch, t); m != nil {
				m.Constructor = true
				t.Methods = append(t.Methods, m)
			}
		case "class_declaration", "interface_declaration", "enum_declaration",
			"record_declaration", "annotation_type_declaration":
			if inner := c.typeDecl(ch, t); inner != nil {
				t.Types = append(t.Types, inner)
			}
		case "block":
			t.Initializers = append(t.Initializers, c.initializer(ch))
		case "static_initializer":
			if b := childOfKind(ch, "block"); b != nil {
				t.Initializers = append(t.Initializers, c.initializer(b))
			}
		}
	}
}

func (c *converter) initializer(n *tree_sitter.Node) *jast.Block {
	if c.mode == ModeDiet {
		return &jast.Block{Span: span(n)}
	}
	return c.block(n)
}

func (c *converter) enumConstant(n *tree_sitter.Node, t *jast.TypeDecl) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	f := &jast.FieldDecl{
		Span:         span(n),
		Modifiers:    jast.ModPublic | jast.ModStatic | jast.ModFinal,
		Type:         &jast.TypeRef{Span: span(name), Name: t.Name},
		Name:         c.text(name),
		NameSpan:     span(name),
		EnumConstant: true,
		Decl:         t,
	}
	if args := n.ChildByFieldName("arguments"); args != nil {
		f.Args = c.args(args)
	}
	t.Fields = append(t.Fields, f)
}

func (c *converter) fieldDecl(n *tree_sitter.Node, t *jast.TypeDecl) {
	mods := c.modifiers(n)
	if t.IsInterface() {
		mods |= jast.ModPublic | jast.ModStatic | jast.ModFinal
	}
	typ := c.typeRef(n.ChildByFieldName("type"))
	for _, ch := range namedChildren(n) {
		if ch.Kind() != "variable_declarator" {
			continue
		}
		name := ch.ChildByFieldName("name")
		if name == nil {
			continue
		}
		f := &jast.FieldDecl{
			Span:      span(n),
			Modifiers: mods,
			Type:      c.withDims(typ, ch.ChildByFieldName("dimensions")),
			Name:      c.text(name),
			NameSpan:  span(name),
			Decl:      t,
		}
		if v := ch.ChildByFieldName("value"); v != nil {
			f.Init = c.varInit(v)
		}
		t.Fields = append(t.Fields, f)
	}
}

func (c *converter) withDims(typ *jast.TypeRef, dims *tree_sitter.Node) *jast.TypeRef {
	if typ == nil || dims == nil {
		return typ
	}
	cp := *typ
	cp.Dims += strings.Count(c.text(dims), "[")
	return &cp
}

func (c *converter) varInit(n *tree_sitter.Node) jast.Expr {
	if n.Kind() == "array_initializer" {
		return c.arrayInit(n)
	}
	return c.expr(n)
}

func (c *converter) methodDecl(n *tree_sitter.Node, t *jast.TypeDecl) *jast.MethodDecl {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	m := &jast.MethodDecl{
		Span:       span(n),
		Modifiers:  c.modifiers(n),
		TypeParams: c.typeParams(n.ChildByFieldName("type_parameters")),
		Name:       c.text(name),
		NameSpan:   span(name),
		Params:     c.params(n.ChildByFieldName("parameters")),
		Decl:       t,
	}
	if typ := n.ChildByFieldName("type"); typ != nil {
		m.Result = c.withDims(c.typeRef(typ), n.ChildByFieldName("dimensions"))
	}
	if th := childOfKind(n, "throws"); th != nil {
		m.Throws = c.typeList(th)
	}
	if t.IsInterface() && !m.Modifiers.Has(jast.ModPrivate) {
		m.Modifiers |= jast.ModPublic
		if !m.Modifiers.Has(jast.ModStatic) && !m.Modifiers.Has(jast.ModDefault) {
			m.Modifiers |= jast.ModAbstract
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return m
	}
	m.HasBody = true
	m.BodySpan = span(body)
	if c.mode == ModeDiet {
		return m
	}
	if body.Kind() == "constructor_body" {
		b := &jast.Block{Span: span(body)}
		for _, ch := range namedChildren(body) {
			if ch.Kind() == "explicit_constructor_invocation" {
				m.ExplicitCall = c.constructorCall(ch)
				continue
			}
			b.Stmts = append(b.Stmts, c.stmts(ch)...)
		}
		m.Body = b
		return m
	}
	m.Body = c.block(body)
	return m
}

func (c *converter) constructorCall(n *tree_sitter.Node) *jast.ConstructorCall {
	call := &jast.ConstructorCall{Span: span(n)}
	if ctor := n.ChildByFieldName("constructor"); ctor != nil {
		call.Super = c.text(ctor) == "super"
	}
	if obj := n.ChildByFieldName("object"); obj != nil {
		call.Outer = c.expr(obj)
	}
	call.Args = c.args(n.ChildByFieldName("arguments"))
	return call
}

func (c *converter) params(n *tree_sitter.Node) []*jast.Param {
	var out []*jast.Param
	for _, ch := range namedChildren(n) {
		switch ch.Kind() {
		case "formal_parameter":
			name := ch.ChildByFieldName("name")
			p := &jast.Param{
				Span:      span(ch),
				Modifiers: c.modifiers(ch),
				Type:      c.withDims(c.typeRef(ch.ChildByFieldName("type")), ch.ChildByFieldName("dimensions")),
				Name:      c.text(name),
				NameSpan:  span(name),
			}
			out = append(out, p)
		case "spread_parameter":
			p := &jast.Param{Span: span(ch), Modifiers: c.modifiers(ch), Varargs: true}
			for _, part := range namedChildren(ch) {
				switch part.Kind() {
				case "modifiers":
				case "variable_declarator":
					if name := part.ChildByFieldName("name"); name != nil {
						p.Name = c.text(name)
						p.NameSpan = span(name)
					}
				default:
					if p.Type == nil {
						p.Type = c.typeRef(part)
					}
				}
			}
			if p.Type != nil {
				cp := *p.Type
				cp.Dims++
				p.Type = &cp
			}
			out = append(out, p)
		}
	}
	return out
}

// typeRef converts any type node
func (c *converter) typeRef(n *tree_sitter.Node) *jast.TypeRef {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		return &jast.TypeRef{Span: span(n), Name: c.text(n)}
	case "type_identifier", "identifier":
		return &jast.TypeRef{Span: span(n), Name: c.text(n), Segments: []jast.Span{span(n)}}
	case "scoped_type_identifier", "scoped_identifier":
		ref := &jast.TypeRef{Span: span(n)}
		parts := namedChildren(n)
		for _, part := range parts {
			switch part.Kind() {
			case "annotation", "marker_annotation":
				continue
			}
			inner := c.typeRef(part)
			if inner == nil {
				continue
			}
			if ref.Name == "" {
				ref.Name = inner.Name
			} else {
				ref.Name += "." + inner.Name
			}
			ref.Segments = append(ref.Segments, inner.Segments...)
		}
		return ref
	case "generic_type":
		ref := &jast.TypeRef{Span: span(n)}
		for _, part := range namedChildren(n) {
			if part.Kind() == "type_arguments" {
				ref.Args = c.typeArgs(part)
				continue
			}
			if inner := c.typeRef(part); inner != nil {
				ref.Name = inner.Name
				ref.Segments = inner.Segments
			}
		}
		return ref
	case "array_type":
		elem := c.typeRef(n.ChildByFieldName("element"))
		if elem == nil {
			return nil
		}
		cp := *elem
		cp.Span = span(n)
		cp.Dims += strings.Count(c.text(n.ChildByFieldName("dimensions")), "[")
		return &cp
	case "annotated_type":
		for _, part := range namedChildren(n) {
			switch part.Kind() {
			case "annotation", "marker_annotation":
				continue
			}
			return c.typeRef(part)
		}
		return nil
	case "wildcard":
		ref := &jast.TypeRef{Span: span(n), Name: "?", Wildcard: true}
		for _, part := range namedChildren(n) {
			switch part.Kind() {
			case "annotation", "marker_annotation":
				continue
			}
			if b := c.typeRef(part); b != nil {
				ref.Args = []*jast.TypeRef{b}
			}
		}
		return ref
	case "catch_type":
		for _, part := range namedChildren(n) {
			return c.typeRef(part)
		}
		return nil
	case "modifiers", "annotation", "marker_annotation", "dimensions":
		return nil
	}
	return &jast.TypeRef{Span: span(n), Name: c.text(n), Segments: []jast.Span{span(n)}}
}

func (c *converter) typeArgs(n *tree_sitter.Node) []*jast.TypeRef {
	var out []*jast.TypeRef
	for _, ch := range namedChildren(n) {
		if ref := c.typeRef(ch); ref != nil {
			out = append(out, ref)
		}
	}
	return out
}

// scanExtras records syntax errors and doc comment links in one pass
func (c *converter) scanExtras(n *tree_sitter.Node) {
	if n == nil {
		return
	}
	switch {
	case n.IsMissing():
		line := int(n.StartPosition().Row) + 1
		start := int(n.StartByte())
		c.unit.Problems = append(c.unit.Problems, types.NewError(types.ProblemSyntax,
			start, start, line, "Syntax error, insert \"%s\" to complete the construct", n.Kind()))
		return
	case n.IsError():
		line := int(n.StartPosition().Row) + 1
		text := c.text(n)
		if len(text) > 40 {
			text = text[:40] + "..."
		}
		c.unit.Problems = append(c.unit.Problems, types.NewError(types.ProblemSyntax,
			int(n.StartByte()), int(n.EndByte())-1, line, "Syntax error on token(s) \"%s\"", strings.TrimSpace(text)))
	case n.Kind() == "block_comment":
		c.docRefs(n)
		return
	}
	if !n.HasError() && n.ChildCount() == 0 {
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		ch := n.Child(i)
		if ch == nil {
			continue
		}
		if !n.HasError() && !ch.HasError() && ch.Kind() != "block_comment" && !mayHoldComments(ch) {
			continue
		}
		c.scanExtras(ch)
	}
}

// mayHoldComments limits the extras walk to nodes where doc comments live
func mayHoldComments(n *tree_sitter.Node) bool {
	switch n.Kind() {
	case "program", "class_body", "interface_body", "enum_body", "enum_body_declarations",
		"annotation_type_body", "class_declaration", "interface_declaration",
		"enum_declaration", "record_declaration", "annotation_type_declaration",
		"method_declaration", "constructor_declaration", "field_declaration", "modifiers":
		return true
	}
	return false
}

func (c *converter) docRefs(n *tree_sitter.Node) {
	text := c.text(n)
	if !strings.HasPrefix(text, "/**") {
		return
	}
	base := int(n.StartByte())
	for _, m := range docLinkPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		if start < 0 {
			start, end = m[4], m[5]
		}
		if start < 0 {
			continue
		}
		name := text[start:end]
		if i := strings.IndexByte(name, '#'); i >= 0 {
			name = name[:i]
			end = start + len(name)
		}
		if name == "" {
			continue
		}
		c.unit.DocRefs = append(c.unit.DocRefs, &jast.DocRef{
			Span: jast.Span{Start: base + start, End: base + end},
			Name: name,
		})
	}
}
