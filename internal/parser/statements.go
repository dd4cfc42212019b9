package parser

import (
	"regexp"
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dshills/javacontext-mcp/internal/jast"
)

var docLinkPattern = regexp.MustCompile(`\{@link(?:plain)?\s+([A-Za-z_$][\w$.#]*)|@see\s+([A-Za-z_$][\w$.#]*)`)

func (c *converter) block(n *tree_sitter.Node) *jast.Block {
	b := &jast.Block{Span: span(n)}
	for _, ch := range namedChildren(n) {
		b.Stmts = append(b.Stmts, c.stmts(ch)...)
	}
	return b
}

// stmts converts one statement node; local variable declarations with
// several declarators expand to several statements.
func (c *converter) stmts(n *tree_sitter.Node) []jast.Stmt {
	switch n.Kind() {
	case "local_variable_declaration":
		return c.localVars(n)
	}
	if s := c.stmt(n); s != nil {
		return []jast.Stmt{s}
	}
	return nil
}

func (c *converter) localVars(n *tree_sitter.Node) []jast.Stmt {
	mods := c.modifiers(n)
	typ := c.typeRef(n.ChildByFieldName("type"))
	var out []jast.Stmt
	for _, ch := range namedChildren(n) {
		if ch.Kind() != "variable_declarator" {
			continue
		}
		name := ch.ChildByFieldName("name")
		if name == nil {
			continue
		}
		decl := &jast.LocalVarDecl{
			Span:      jast.Span{Start: int(n.StartByte()), End: int(n.EndByte())},
			Modifiers: mods,
			Type:      c.withDims(typ, ch.ChildByFieldName("dimensions")),
			Name:      c.text(name),
			NameSpan:  span(name),
		}
		if v := ch.ChildByFieldName("value"); v != nil {
			decl.Init = c.varInit(v)
		}
		out = append(out, decl)
	}
	return out
}

func (c *converter) stmt(n *tree_sitter.Node) jast.Stmt {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "block":
		return c.block(n)
	case "expression_statement":
		for _, ch := range namedChildren(n) {
			return &jast.ExprStmt{Span: span(n), X: c.expr(ch)}
		}
		return &jast.EmptyStmt{Span: span(n)}
	case "return_statement":
		r := &jast.ReturnStmt{Span: span(n)}
		for _, ch := range namedChildren(n) {
			r.X = c.expr(ch)
		}
		return r
	case "if_statement":
		return &jast.IfStmt{
			Span: span(n),
			Cond: c.condition(n.ChildByFieldName("condition")),
			Then: c.stmt(n.ChildByFieldName("consequence")),
			Else: c.stmt(n.ChildByFieldName("alternative")),
		}
	case "while_statement":
		return &jast.WhileStmt{
			Span: span(n),
			Cond: c.condition(n.ChildByFieldName("condition")),
			Body: c.stmt(n.ChildByFieldName("body")),
		}
	case "for_statement":
		return c.forStmt(n)
	case "throw_statement":
		for _, ch := range namedChildren(n) {
			return &jast.ThrowStmt{Span: span(n), X: c.expr(ch)}
		}
		return &jast.ThrowStmt{Span: span(n)}
	case "explicit_constructor_invocation":
		return c.constructorCall(n)
	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
		t := c.typeDecl(n, nil)
		if t == nil {
			return nil
		}
		t.Local = true
		return &jast.LocalTypeDecl{Span: span(n), Decl: t}
	case "local_variable_declaration":
		stmts := c.localVars(n)
		if len(stmts) == 1 {
			return stmts[0]
		}
		return &jast.Block{Span: span(n), Stmts: stmts}
	case ";":
		return &jast.EmptyStmt{Span: span(n)}
	}
	return &jast.OtherStmt{Span: span(n), Kind: n.Kind(), Children: c.generic(n)}
}

func (c *converter) condition(n *tree_sitter.Node) jast.Expr {
	if n == nil {
		return nil
	}
	if n.Kind() == "parenthesized_expression" {
		for _, ch := range namedChildren(n) {
			return c.expr(ch)
		}
	}
	return c.expr(n)
}

func (c *converter) forStmt(n *tree_sitter.Node) jast.Stmt {
	f := &jast.ForStmt{Span: span(n)}
	section := 0
	for _, ch := range allChildren(n) {
		switch ch.Kind() {
		case "for", "(", ",":
			continue
		case ";":
			section++
			continue
		case ")":
			section = 3
			continue
		}
		switch section {
		case 0:
			if ch.Kind() == "local_variable_declaration" {
				f.Init = append(f.Init, c.localVars(ch)...)
				section = 1
				continue
			}
			f.Init = append(f.Init, &jast.ExprStmt{Span: span(ch), X: c.expr(ch)})
		case 1:
			f.Cond = c.expr(ch)
		case 2:
			f.Update = append(f.Update, c.expr(ch))
		default:
			f.Body = c.stmt(ch)
		}
	}
	return f
}

// generic converts the children of a construct the back end does not model
func (c *converter) generic(n *tree_sitter.Node) []jast.Node {
	var out []jast.Node
	switch n.Kind() {
	case "enhanced_for_statement":
		decl := &jast.LocalVarDecl{
			Span: span(n),
			Type: c.typeRef(n.ChildByFieldName("type")),
		}
		if name := n.ChildByFieldName("name"); name != nil {
			decl.Name = c.text(name)
			decl.NameSpan = span(name)
		}
		out = append(out, decl)
		if v := n.ChildByFieldName("value"); v != nil {
			out = append(out, c.expr(v))
		}
		if b := c.stmt(n.ChildByFieldName("body")); b != nil {
			out = append(out, b)
		}
		return out
	case "catch_formal_parameter", "resource":
		decl := &jast.LocalVarDecl{Span: span(n), Modifiers: c.modifiers(n)}
		if t := n.ChildByFieldName("type"); t != nil {
			decl.Type = c.typeRef(t)
		} else if ct := childOfKind(n, "catch_type"); ct != nil {
			decl.Type = c.typeRef(ct)
		}
		if name := n.ChildByFieldName("name"); name != nil {
			decl.Name = c.text(name)
			decl.NameSpan = span(name)
		}
		if decl.Name != "" {
			out = append(out, decl)
		}
		if v := n.ChildByFieldName("value"); v != nil {
			out = append(out, c.expr(v))
		} else if decl.Name == "" {
			for _, ch := range namedChildren(n) {
				out = append(out, c.expr(ch))
			}
		}
		return out
	case "lambda_expression":
		if params := n.ChildByFieldName("parameters"); params != nil {
			switch params.Kind() {
			case "identifier":
				out = append(out, &jast.LocalVarDecl{Span: span(params), Name: c.text(params), NameSpan: span(params)})
			case "formal_parameters":
				for _, p := range c.params(params) {
					out = append(out, &jast.LocalVarDecl{Span: p.Span, Type: p.Type, Name: p.Name, NameSpan: p.NameSpan})
				}
			default:
				for _, id := range namedChildren(params) {
					if id.Kind() == "identifier" {
						out = append(out, &jast.LocalVarDecl{Span: span(id), Name: c.text(id), NameSpan: span(id)})
					}
				}
			}
		}
		if body := n.ChildByFieldName("body"); body != nil {
			if body.Kind() == "block" {
				out = append(out, c.block(body))
			} else {
				out = append(out, c.expr(body))
			}
		}
		return out
	}

	for _, ch := range namedChildren(n) {
		switch {
		case ch.Kind() == "local_variable_declaration":
			for _, s := range c.localVars(ch) {
				out = append(out, s)
			}
		case ch.Kind() == "block":
			out = append(out, c.block(ch))
		case isStatementKind(ch.Kind()):
			if s := c.stmt(ch); s != nil {
				out = append(out, s)
			}
		case isExpressionKind(ch.Kind()):
			out = append(out, c.expr(ch))
		case isTypeKind(ch.Kind()):
			if ref := c.typeRef(ch); ref != nil {
				out = append(out, ref)
			}
		case ch.Kind() == "identifier" || ch.Kind() == "modifiers" || ch.Kind() == "label":
		default:
			out = append(out, &jast.OtherStmt{Span: span(ch), Kind: ch.Kind(), Children: c.generic(ch)})
		}
	}
	return out
}

func isStatementKind(kind string) bool {
	switch kind {
	case "expression_statement", "return_statement", "if_statement", "while_statement",
		"for_statement", "enhanced_for_statement", "throw_statement", "do_statement",
		"try_statement", "try_with_resources_statement", "switch_expression",
		"synchronized_statement", "labeled_statement", "assert_statement",
		"yield_statement", "break_statement", "continue_statement", "class_declaration",
		"record_declaration", "interface_declaration", "enum_declaration":
		return true
	}
	return false
}

func isTypeKind(kind string) bool {
	switch kind {
	case "integral_type", "floating_point_type", "boolean_type", "void_type",
		"type_identifier", "scoped_type_identifier", "generic_type", "array_type":
		return true
	}
	return false
}

func isExpressionKind(kind string) bool {
	switch kind {
	case "assignment_expression", "binary_expression", "unary_expression", "update_expression",
		"cast_expression", "instanceof_expression", "ternary_expression", "lambda_expression",
		"switch_expression", "parenthesized_expression", "object_creation_expression",
		"array_creation_expression", "array_access", "field_access", "method_invocation",
		"method_reference", "class_literal", "this", "super", "identifier",
		"decimal_integer_literal", "hex_integer_literal", "octal_integer_literal",
		"binary_integer_literal", "decimal_floating_point_literal", "hex_floating_point_literal",
		"true", "false", "character_literal", "string_literal", "text_block", "null_literal",
		"array_initializer":
		return true
	}
	return false
}

func (c *converter) args(n *tree_sitter.Node) []jast.Expr {
	var out []jast.Expr
	for _, ch := range namedChildren(n) {
		out = append(out, c.expr(ch))
	}
	return out
}

func (c *converter) arrayInit(n *tree_sitter.Node) *jast.ArrayInit {
	init := &jast.ArrayInit{Span: span(n)}
	for _, ch := range namedChildren(n) {
		init.Elems = append(init.Elems, c.varInit(ch))
	}
	return init
}

// expr converts an expression node
func (c *converter) expr(n *tree_sitter.Node) jast.Expr {
	if n == nil {
		return nil
	}
	sp := span(n)
	switch n.Kind() {
	case "identifier":
		return &jast.Ident{Span: sp, Name: c.text(n)}
	case "this":
		return &jast.This{Span: sp}
	case "super":
		return &jast.Super{Span: sp}
	case "parenthesized_expression":
		for _, ch := range namedChildren(n) {
			return &jast.Paren{Span: sp, X: c.expr(ch)}
		}
	case "field_access":
		return c.fieldAccess(n)
	case "method_invocation":
		return c.methodInvocation(n)
	case "object_creation_expression":
		return c.objectCreation(n)
	case "array_creation_expression":
		na := &jast.NewArray{Span: sp, Elem: c.typeRef(n.ChildByFieldName("type"))}
		extra := 0
		for _, ch := range namedChildren(n) {
			switch ch.Kind() {
			case "dimensions_expr":
				for _, d := range namedChildren(ch) {
					na.Dims = append(na.Dims, c.expr(d))
				}
			case "dimensions":
				extra += strings.Count(c.text(ch), "[")
			case "array_initializer":
				na.Init = c.arrayInit(ch)
			}
		}
		if na.Elem != nil && extra > 0 {
			cp := *na.Elem
			cp.Dims += extra
			na.Elem = &cp
		}
		return na
	case "array_initializer":
		return c.arrayInit(n)
	case "binary_expression":
		op := n.ChildByFieldName("operator")
		return &jast.Binary{
			Span:  sp,
			Op:    c.text(op),
			OpPos: span(op).Start,
			L:     c.expr(n.ChildByFieldName("left")),
			R:     c.expr(n.ChildByFieldName("right")),
		}
	case "unary_expression":
		return &jast.Unary{
			Span: sp,
			Op:   c.text(n.ChildByFieldName("operator")),
			X:    c.expr(n.ChildByFieldName("operand")),
		}
	case "update_expression":
		u := &jast.Update{Span: sp}
		for i, ch := range allChildren(n) {
			switch ch.Kind() {
			case "++", "--":
				u.Op = ch.Kind()
				u.Prefix = i == 0
			default:
				u.X = c.expr(ch)
			}
		}
		return u
	case "assignment_expression":
		return &jast.Assign{
			Span: sp,
			Op:   c.text(n.ChildByFieldName("operator")),
			L:    c.expr(n.ChildByFieldName("left")),
			R:    c.expr(n.ChildByFieldName("right")),
		}
	case "cast_expression":
		return &jast.Cast{
			Span: sp,
			Type: c.typeRef(n.ChildByFieldName("type")),
			X:    c.expr(n.ChildByFieldName("value")),
		}
	case "ternary_expression":
		return &jast.Conditional{
			Span: sp,
			Cond: c.expr(n.ChildByFieldName("condition")),
			Then: c.expr(n.ChildByFieldName("consequence")),
			Else: c.expr(n.ChildByFieldName("alternative")),
		}
	case "class_literal":
		for _, ch := range namedChildren(n) {
			return &jast.ClassLit{Span: sp, Type: c.typeRef(ch)}
		}
	case "array_access":
		return &jast.ArrayAccess{
			Span:  sp,
			X:     c.expr(n.ChildByFieldName("array")),
			Index: c.expr(n.ChildByFieldName("index")),
		}
	case "instanceof_expression":
		return &jast.InstanceOf{
			Span: sp,
			X:    c.expr(n.ChildByFieldName("left")),
			Type: c.typeRef(n.ChildByFieldName("right")),
		}
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		text := c.text(n)
		kind := jast.LitInt
		if strings.HasSuffix(text, "l") || strings.HasSuffix(text, "L") {
			kind = jast.LitLong
		}
		return &jast.Literal{Span: sp, Kind: kind, Text: text, Value: text}
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		text := c.text(n)
		kind := jast.LitDouble
		if strings.HasSuffix(text, "f") || strings.HasSuffix(text, "F") {
			kind = jast.LitFloat
		}
		return &jast.Literal{Span: sp, Kind: kind, Text: text, Value: text}
	case "true", "false":
		return &jast.Literal{Span: sp, Kind: jast.LitBool, Text: c.text(n), Value: c.text(n)}
	case "null_literal":
		return &jast.Literal{Span: sp, Kind: jast.LitNull, Text: "null"}
	case "character_literal":
		text := c.text(n)
		return &jast.Literal{Span: sp, Kind: jast.LitChar, Text: text, Value: unescape(strings.Trim(text, "'"))}
	case "string_literal":
		text := c.text(n)
		return &jast.Literal{Span: sp, Kind: jast.LitString, Text: text, Value: unescape(text[1 : len(text)-1])}
	case "text_block":
		text := c.text(n)
		body := strings.TrimSuffix(strings.TrimPrefix(text, `"""`), `"""`)
		if i := strings.IndexByte(body, '\n'); i >= 0 {
			body = body[i+1:]
		}
		return &jast.Literal{Span: sp, Kind: jast.LitString, Text: text, Value: unescape(body)}
	}
	return &jast.OtherExpr{Span: sp, Kind: n.Kind(), Children: c.generic(n)}
}

// superBetween reports the form Outer.super.name, where a super keyword
// follows the object field.
func superBetween(n *tree_sitter.Node) bool {
	obj := n.ChildByFieldName("object")
	for _, ch := range allChildren(n) {
		if ch.Kind() == "super" && (obj == nil || ch.StartByte() != obj.StartByte()) {
			return true
		}
	}
	return false
}

func (c *converter) qualifierRef(n *tree_sitter.Node) *jast.TypeRef {
	if n == nil {
		return nil
	}
	ref := &jast.TypeRef{Span: span(n), Name: strings.Join(strings.Fields(c.text(n)), "")}
	return ref
}

func (c *converter) fieldAccess(n *tree_sitter.Node) jast.Expr {
	obj := n.ChildByFieldName("object")
	field := n.ChildByFieldName("field")
	sp := span(n)
	if field != nil && field.Kind() == "this" {
		return &jast.This{Span: sp, Qualifier: c.qualifierRef(obj)}
	}
	var x jast.Expr
	if superBetween(n) {
		x = &jast.Super{Span: span(obj), Qualifier: c.qualifierRef(obj)}
	} else {
		x = c.expr(obj)
	}
	return &jast.FieldAccess{Span: sp, X: x, Name: c.text(field), NameSpan: span(field)}
}

func (c *converter) methodInvocation(n *tree_sitter.Node) jast.Expr {
	name := n.ChildByFieldName("name")
	call := &jast.MethodCall{
		Span:     span(n),
		Name:     c.text(name),
		NameSpan: span(name),
		Args:     c.args(n.ChildByFieldName("arguments")),
	}
	if obj := n.ChildByFieldName("object"); obj != nil {
		if superBetween(n) {
			call.X = &jast.Super{Span: span(obj), Qualifier: c.qualifierRef(obj)}
		} else {
			call.X = c.expr(obj)
		}
	}
	return call
}

func (c *converter) objectCreation(n *tree_sitter.Node) jast.Expr {
	nw := &jast.New{
		Span: span(n),
		Type: c.typeRef(n.ChildByFieldName("type")),
		Args: c.args(n.ChildByFieldName("arguments")),
	}
	children := allChildren(n)
	if len(children) > 0 && children[0].Kind() != "new" {
		nw.Outer = c.expr(children[0])
	}
	if body := childOfKind(n, "class_body"); body != nil {
		anon := &jast.TypeDecl{
			Span:       span(body),
			Kind:       jast.KindClass,
			Superclass: nw.Type,
			Unit:       c.unit,
			Local:      true,
			Anonymous:  true,
		}
		if c.mode == ModeFull {
			c.typeBody(body, anon)
		}
		nw.Body = anon
	}
	return nw
}

// unescape decodes Java string and character escapes
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' || i+1 >= len(s) {
			sb.WriteByte(ch)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'r':
			sb.WriteByte('\r')
		case 'f':
			sb.WriteByte('\f')
		case 's':
			sb.WriteByte(' ')
		case '\\', '\'', '"':
			sb.WriteByte(s[i])
		case 'u':
			j := i
			for j < len(s) && s[j] == 'u' {
				j++
			}
			if j+4 <= len(s) {
				if v, err := strconv.ParseUint(s[j:j+4], 16, 32); err == nil {
					sb.WriteRune(rune(v))
					i = j + 3
					continue
				}
			}
			sb.WriteByte('u')
		default:
			if s[i] >= '0' && s[i] <= '7' {
				j := i
				for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
					j++
				}
				v, _ := strconv.ParseUint(s[i:j], 8, 32)
				sb.WriteRune(rune(v))
				i = j - 1
				continue
			}
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
