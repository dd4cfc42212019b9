// Package jast defines the Java syntax tree shared by the indexer, the
// match locator and the snippet compiler.
//
// Nodes are plain structs behind the Node, Stmt and Expr interfaces and are
// processed with type switches. Every node carries its byte range in the
// source document; line numbers are derived from CompilationUnit.Line.
//
// Constructs the compiler back end does not model (lambdas, switch,
// try/catch, enhanced for) are kept as OtherStmt/OtherExpr so their nested
// names are still visible to resolution and search.
package jast
