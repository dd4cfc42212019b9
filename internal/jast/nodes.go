package jast

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

type (
	// Block is a brace-delimited statement list.
	Block struct {
		Span
		Stmts []Stmt
	}

	// LocalVarDecl declares one local variable.
	LocalVarDecl struct {
		Span
		Modifiers Modifiers
		Type      *TypeRef
		Name      string
		NameSpan  Span
		Init      Expr
	}

	// LocalTypeDecl declares a class inside a method body.
	LocalTypeDecl struct {
		Span
		Decl *TypeDecl
	}

	ExprStmt struct {
		Span
		X Expr
	}

	ReturnStmt struct {
		Span
		X Expr // may be nil
	}

	IfStmt struct {
		Span
		Cond Expr
		Then Stmt
		Else Stmt // may be nil
	}

	WhileStmt struct {
		Span
		Cond Expr
		Body Stmt
	}

	ForStmt struct {
		Span
		Init   []Stmt
		Cond   Expr // may be nil
		Update []Expr
		Body   Stmt
	}

	ThrowStmt struct {
		Span
		X Expr
	}

	EmptyStmt struct {
		Span
	}

	// ConstructorCall is an explicit this(...) or super(...) invocation.
	ConstructorCall struct {
		Span
		Super bool
		Outer Expr
		Args  []Expr
	}

	// OtherStmt is a statement the code generator does not handle. Its
	// children are still resolved and searched.
	OtherStmt struct {
		Span
		Kind     string
		Children []Node
	}
)

func (*Block) stmtNode()           {}
func (*LocalVarDecl) stmtNode()    {}
func (*LocalTypeDecl) stmtNode()   {}
func (*ExprStmt) stmtNode()        {}
func (*ReturnStmt) stmtNode()      {}
func (*IfStmt) stmtNode()          {}
func (*WhileStmt) stmtNode()       {}
func (*ForStmt) stmtNode()         {}
func (*ThrowStmt) stmtNode()       {}
func (*EmptyStmt) stmtNode()       {}
func (*ConstructorCall) stmtNode() {}
func (*OtherStmt) stmtNode()       {}

// LitKind classifies literals.
type LitKind int

const (
	LitInt LitKind = iota
	LitLong
	LitFloat
	LitDouble
	LitChar
	LitString
	LitBool
	LitNull
)

type (
	// Literal keeps the literal text; Value holds the decoded form for
	// strings and characters.
	Literal struct {
		Span
		Kind  LitKind
		Text  string
		Value string
	}

	// Ident is a simple name: a local, a field, a type or a package.
	Ident struct {
		Span
		Name string
	}

	// FieldAccess is X.Name; X may denote an expression, a type or a package.
	FieldAccess struct {
		Span
		X        Expr
		Name     string
		NameSpan Span
	}

	// MethodCall is [X.]Name(Args).
	MethodCall struct {
		Span
		X        Expr // nil for an unqualified call
		Name     string
		NameSpan Span
		Args     []Expr
	}

	// New is a class instance creation.
	New struct {
		Span
		Outer Expr
		Type  *TypeRef
		Args  []Expr
		Body  *TypeDecl // anonymous class body
	}

	NewArray struct {
		Span
		Elem *TypeRef
		Dims []Expr
		Init *ArrayInit
	}

	ArrayInit struct {
		Span
		Elems []Expr
	}

	Binary struct {
		Span
		Op    string
		OpPos int
		L, R  Expr
	}

	Unary struct {
		Span
		Op string
		X  Expr
	}

	// Update is ++ or --.
	Update struct {
		Span
		Op     string
		Prefix bool
		X      Expr
	}

	Assign struct {
		Span
		Op   string // "=", "+=", ...
		L, R Expr
	}

	Paren struct {
		Span
		X Expr
	}

	Cast struct {
		Span
		Type *TypeRef
		X    Expr
	}

	Conditional struct {
		Span
		Cond, Then, Else Expr
	}

	// This is this or Qualifier.this.
	This struct {
		Span
		Qualifier *TypeRef
	}

	// Super is the receiver of super.m() and super.f.
	Super struct {
		Span
		Qualifier *TypeRef
	}

	ClassLit struct {
		Span
		Type *TypeRef
	}

	ArrayAccess struct {
		Span
		X, Index Expr
	}

	InstanceOf struct {
		Span
		X    Expr
		Type *TypeRef
	}

	// OtherExpr is an expression form the code generator does not handle
	// (lambdas, method references, switch expressions).
	OtherExpr struct {
		Span
		Kind     string
		Children []Node
	}
)

func (*Literal) exprNode()     {}
func (*Ident) exprNode()       {}
func (*FieldAccess) exprNode() {}
func (*MethodCall) exprNode()  {}
func (*New) exprNode()         {}
func (*NewArray) exprNode()    {}
func (*ArrayInit) exprNode()   {}
func (*Binary) exprNode()      {}
func (*Unary) exprNode()       {}
func (*Update) exprNode()      {}
func (*Assign) exprNode()      {}
func (*Paren) exprNode()       {}
func (*Cast) exprNode()        {}
func (*Conditional) exprNode() {}
func (*This) exprNode()        {}
func (*Super) exprNode()       {}
func (*ClassLit) exprNode()    {}
func (*ArrayAccess) exprNode() {}
func (*InstanceOf) exprNode()  {}
func (*OtherExpr) exprNode()   {}

// Unparen strips enclosing parentheses.
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*Paren)
		if !ok {
			return e
		}
		e = p.X
	}
}

// DottedName flattens an Ident/FieldAccess chain into a dotted name.
// It returns "" when the chain contains anything else.
func DottedName(e Expr) string {
	switch n := e.(type) {
	case *Ident:
		return n.Name
	case *FieldAccess:
		q := DottedName(n.X)
		if q == "" {
			return ""
		}
		return q + "." + n.Name
	}
	return ""
}
