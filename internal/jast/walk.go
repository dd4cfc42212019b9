package jast

// Inspect traverses the tree rooted at n in depth-first order. If f returns
// false the children of that node are skipped. Member types are visited as
// part of their enclosing type.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || isNilNode(n) || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *Block:
		return v == nil
	case *TypeRef:
		return v == nil
	case *TypeDecl:
		return v == nil
	case *ArrayInit:
		return v == nil
	case *ConstructorCall:
		return v == nil
	}
	return false
}

// Children returns the direct children of a node, in source order.
func Children(n Node) []Node {
	var out []Node
	addExpr := func(e Expr) {
		if e != nil {
			out = append(out, e)
		}
	}
	addStmt := func(s Stmt) {
		if s != nil {
			out = append(out, s)
		}
	}
	addRef := func(r *TypeRef) {
		if r != nil {
			out = append(out, r)
		}
	}
	switch v := n.(type) {
	case *CompilationUnit:
		if v.Package != nil {
			out = append(out, v.Package)
		}
		for _, i := range v.Imports {
			out = append(out, i)
		}
		for _, t := range v.Types {
			out = append(out, t)
		}
	case *TypeDecl:
		for _, tp := range v.TypeParams {
			out = append(out, tp)
		}
		addRef(v.Superclass)
		for _, r := range v.Interfaces {
			out = append(out, r)
		}
		for _, f := range v.Fields {
			out = append(out, f)
		}
		for _, b := range v.Initializers {
			out = append(out, b)
		}
		for _, m := range v.Methods {
			out = append(out, m)
		}
		for _, t := range v.Types {
			out = append(out, t)
		}
	case *TypeParam:
		for _, b := range v.Bounds {
			out = append(out, b)
		}
	case *FieldDecl:
		addRef(v.Type)
		for _, a := range v.Args {
			addExpr(a)
		}
		addExpr(v.Init)
	case *MethodDecl:
		for _, tp := range v.TypeParams {
			out = append(out, tp)
		}
		addRef(v.Result)
		for _, p := range v.Params {
			out = append(out, p)
		}
		for _, t := range v.Throws {
			out = append(out, t)
		}
		if v.ExplicitCall != nil {
			out = append(out, v.ExplicitCall)
		}
		if v.Body != nil {
			out = append(out, v.Body)
		}
	case *Param:
		addRef(v.Type)
	case *TypeRef:
		for _, a := range v.Args {
			out = append(out, a)
		}
	case *Block:
		for _, s := range v.Stmts {
			out = append(out, s)
		}
	case *LocalVarDecl:
		addRef(v.Type)
		addExpr(v.Init)
	case *LocalTypeDecl:
		out = append(out, v.Decl)
	case *ExprStmt:
		addExpr(v.X)
	case *ReturnStmt:
		addExpr(v.X)
	case *IfStmt:
		addExpr(v.Cond)
		addStmt(v.Then)
		addStmt(v.Else)
	case *WhileStmt:
		addExpr(v.Cond)
		addStmt(v.Body)
	case *ForStmt:
		for _, s := range v.Init {
			addStmt(s)
		}
		addExpr(v.Cond)
		for _, e := range v.Update {
			addExpr(e)
		}
		addStmt(v.Body)
	case *ThrowStmt:
		addExpr(v.X)
	case *ConstructorCall:
		addExpr(v.Outer)
		for _, a := range v.Args {
			addExpr(a)
		}
	case *OtherStmt:
		out = append(out, v.Children...)
	case *FieldAccess:
		addExpr(v.X)
	case *MethodCall:
		addExpr(v.X)
		for _, a := range v.Args {
			addExpr(a)
		}
	case *New:
		addExpr(v.Outer)
		addRef(v.Type)
		for _, a := range v.Args {
			addExpr(a)
		}
		if v.Body != nil {
			out = append(out, v.Body)
		}
	case *NewArray:
		addRef(v.Elem)
		for _, d := range v.Dims {
			addExpr(d)
		}
		if v.Init != nil {
			out = append(out, v.Init)
		}
	case *ArrayInit:
		for _, e := range v.Elems {
			addExpr(e)
		}
	case *Binary:
		addExpr(v.L)
		addExpr(v.R)
	case *Unary:
		addExpr(v.X)
	case *Update:
		addExpr(v.X)
	case *Assign:
		addExpr(v.L)
		addExpr(v.R)
	case *Paren:
		addExpr(v.X)
	case *Cast:
		addRef(v.Type)
		addExpr(v.X)
	case *Conditional:
		addExpr(v.Cond)
		addExpr(v.Then)
		addExpr(v.Else)
	case *This:
		addRef(v.Qualifier)
	case *Super:
		addRef(v.Qualifier)
	case *ClassLit:
		addRef(v.Type)
	case *ArrayAccess:
		addExpr(v.X)
		addExpr(v.Index)
	case *InstanceOf:
		addExpr(v.X)
		addRef(v.Type)
	case *OtherExpr:
		out = append(out, v.Children...)
	}
	return out
}

// NodeAt returns the innermost node whose span covers [start, end).
func NodeAt(root Node, start, end int) Node {
	var found Node
	Inspect(root, func(n Node) bool {
		s, e := n.Pos()
		if s <= start && end <= e {
			found = n
			return true
		}
		return false
	})
	return found
}
