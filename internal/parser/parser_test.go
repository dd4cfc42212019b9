package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, src string, mode Mode) *jast.CompilationUnit {
	t.Helper()
	p := New()
	t.Cleanup(p.Close)
	unit, err := p.Parse("Test.java", []byte(src), mode)
	require.NoError(t, err)
	return unit
}

func TestNew(t *testing.T) {
	p := New()
	defer p.Close()
	assert.NotNil(t, p)
	assert.NotNil(t, p.ts)
}

func TestParseFile_ValidJavaFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "User.java")

	content := `package com.example;

import java.util.List;
import java.util.*;
import static java.lang.Math.max;

/** A user. See {@link Account}. */
public class User extends Base implements Comparable<User>, java.io.Serializable {
	private int id;
	protected String name, alias;

	public User(int id) {
		this.id = id;
	}

	public String getName() {
		return name;
	}
}
`
	require.NoError(t, os.WriteFile(testFile, []byte(content), 0644))

	p := New()
	defer p.Close()
	unit, err := p.ParseFile(testFile, ModeFull)
	require.NoError(t, err)

	assert.Equal(t, "com.example", unit.PackageName())
	require.Len(t, unit.Imports, 3)
	assert.Equal(t, "java.util.List", unit.Imports[0].Name)
	assert.Equal(t, "List", unit.Imports[0].SimpleName())
	assert.True(t, unit.Imports[1].OnDemand)
	assert.Equal(t, "java.util", unit.Imports[1].Name)
	assert.True(t, unit.Imports[2].Static)
	assert.Empty(t, unit.Problems)

	require.Len(t, unit.Types, 1)
	user := unit.Types[0]
	assert.Equal(t, "User", user.Name)
	assert.Equal(t, "com.example.User", user.QualifiedName())
	assert.Equal(t, "com/example/User", user.BinaryName())
	assert.True(t, user.Modifiers.Has(jast.ModPublic))
	require.NotNil(t, user.Superclass)
	assert.Equal(t, "Base", user.Superclass.Name)
	require.Len(t, user.Interfaces, 2)
	assert.Equal(t, "Comparable", user.Interfaces[0].Name)
	require.Len(t, user.Interfaces[0].Args, 1)
	assert.Equal(t, "java.io.Serializable", user.Interfaces[1].Name)

	require.Len(t, user.Fields, 3)
	assert.Equal(t, "id", user.Fields[0].Name)
	assert.True(t, user.Fields[0].Modifiers.Has(jast.ModPrivate))
	assert.Equal(t, "alias", user.Fields[2].Name)
	assert.Equal(t, "String", user.Fields[2].Type.Name)

	require.Len(t, user.Methods, 2)
	assert.True(t, user.Methods[0].Constructor)
	assert.Equal(t, "getName", user.Methods[1].Name)
	require.NotNil(t, user.Methods[1].Body)

	require.Len(t, unit.DocRefs, 1)
	assert.Equal(t, "Account", unit.DocRefs[0].Name)
	assert.Equal(t, "Account", unit.Text(unit.DocRefs[0]))
}

func TestParse_DietSkipsBodies(t *testing.T) {
	unit := parseString(t, `class A { int f() { return 1; } }`, ModeDiet)
	require.Len(t, unit.Types, 1)
	m := unit.Types[0].Methods[0]
	assert.True(t, m.HasBody)
	assert.Nil(t, m.Body)
	assert.Equal(t, "{ return 1; }", string(unit.Source[m.BodySpan.Start:m.BodySpan.End]))
	assert.True(t, unit.Diet)
}

func TestParse_Expressions(t *testing.T) {
	src := `class X {
	void test() {
		B b = new B();
		int[] xs = new int[3];
		b.value += 1;
		i++;
		--j;
		String s = (String) o;
		Object c = Outer.this;
		boolean k = o instanceof String ? true : false;
		println(b.value + b.field1);
		super.toString();
		char ch = '\n';
		long l = 10L;
	}
}`
	unit := parseString(t, src, ModeFull)
	assert.Empty(t, unit.Problems)
	body := unit.Types[0].Methods[0].Body
	require.Len(t, body.Stmts, 12)

	decl := body.Stmts[0].(*jast.LocalVarDecl)
	assert.Equal(t, "b", decl.Name)
	assert.IsType(t, &jast.New{}, decl.Init)

	arr := body.Stmts[1].(*jast.LocalVarDecl)
	assert.Equal(t, 1, arr.Type.Dims)
	assert.IsType(t, &jast.NewArray{}, arr.Init)

	assign := body.Stmts[2].(*jast.ExprStmt).X.(*jast.Assign)
	assert.Equal(t, "+=", assign.Op)
	assert.Equal(t, "b.value", jast.DottedName(assign.L))

	post := body.Stmts[3].(*jast.ExprStmt).X.(*jast.Update)
	assert.False(t, post.Prefix)
	pre := body.Stmts[4].(*jast.ExprStmt).X.(*jast.Update)
	assert.True(t, pre.Prefix)
	assert.Equal(t, "--", pre.Op)

	cast := body.Stmts[5].(*jast.LocalVarDecl).Init.(*jast.Cast)
	assert.Equal(t, "String", cast.Type.Name)

	this := body.Stmts[6].(*jast.LocalVarDecl).Init.(*jast.This)
	require.NotNil(t, this.Qualifier)
	assert.Equal(t, "Outer", this.Qualifier.Name)

	cond := body.Stmts[7].(*jast.LocalVarDecl).Init.(*jast.Conditional)
	assert.IsType(t, &jast.InstanceOf{}, cond.Cond)

	call := body.Stmts[8].(*jast.ExprStmt).X.(*jast.MethodCall)
	assert.Nil(t, call.X)
	assert.Equal(t, "println", call.Name)
	require.Len(t, call.Args, 1)
	sum := call.Args[0].(*jast.Binary)
	assert.Equal(t, "+", sum.Op)

	superCall := body.Stmts[9].(*jast.ExprStmt).X.(*jast.MethodCall)
	assert.IsType(t, &jast.Super{}, superCall.X)

	ch := body.Stmts[10].(*jast.LocalVarDecl).Init.(*jast.Literal)
	assert.Equal(t, jast.LitChar, ch.Kind)
	assert.Equal(t, "\n", ch.Value)

	l := body.Stmts[11].(*jast.LocalVarDecl).Init.(*jast.Literal)
	assert.Equal(t, jast.LitLong, l.Kind)
}

func TestParse_UnsupportedStatementsKeepNames(t *testing.T) {
	src := `class X { void m(java.util.List<String> xs) { for (String s : xs) { use(s); } } }`
	unit := parseString(t, src, ModeFull)
	body := unit.Types[0].Methods[0].Body
	require.Len(t, body.Stmts, 1)
	other, ok := body.Stmts[0].(*jast.OtherStmt)
	require.True(t, ok)
	assert.Equal(t, "enhanced_for_statement", other.Kind)

	var calls []string
	jast.Inspect(other, func(n jast.Node) bool {
		if mc, ok := n.(*jast.MethodCall); ok {
			calls = append(calls, mc.Name)
		}
		return true
	})
	assert.Equal(t, []string{"use"}, calls)
	decl := other.Children[0].(*jast.LocalVarDecl)
	assert.Equal(t, "s", decl.Name)
}

func TestParse_MemberAndInterfaceTypes(t *testing.T) {
	src := `package p;
interface Shape { double area(); int SIDES = 0; }
enum Color { RED, GREEN(1); Color() {} Color(int x) {} }
class Outer { static class Inner {} }`
	unit := parseString(t, src, ModeFull)
	require.Len(t, unit.Types, 3)

	shape := unit.Types[0]
	assert.True(t, shape.IsInterface())
	assert.True(t, shape.Methods[0].Modifiers.Has(jast.ModAbstract|jast.ModPublic))
	assert.True(t, shape.Fields[0].Modifiers.Has(jast.ModStatic|jast.ModFinal))

	color := unit.Types[1]
	assert.Equal(t, jast.KindEnum, color.Kind)
	require.Len(t, color.Fields, 2)
	assert.True(t, color.Fields[1].EnumConstant)
	assert.Len(t, color.Fields[1].Args, 1)

	inner := unit.Types[2].Types[0]
	assert.Equal(t, "p.Outer.Inner", inner.QualifiedName())
	assert.Equal(t, "p/Outer$Inner", inner.BinaryName())
	assert.Len(t, unit.AllTypes(), 4)
}

func TestParse_SyntaxError(t *testing.T) {
	unit := parseString(t, "class A {\n  void m() { int x = ; }\n}", ModeFull)
	require.NotEmpty(t, unit.Problems)
	assert.Equal(t, 2, unit.Problems[0].Line)
	assert.True(t, unit.HasSyntaxErrors())
}

func TestParseFile_NonExistentFile(t *testing.T) {
	p := New()
	defer p.Close()
	_, err := p.ParseFile("/nonexistent/File.java", ModeFull)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, "plain"},
		{`a\tb`, "a\tb"},
		{`A`, "A"},
		{`\101`, "A"},
		{`\"q\"`, `"q"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, unescape(tt.in))
		})
	}
}

func TestUnitLine(t *testing.T) {
	unit := parseString(t, "class A {\n  int x;\n}\n", ModeDiet)
	f := unit.Types[0].Fields[0]
	assert.Equal(t, 2, unit.Line(f.NameSpan.Start))
	assert.Equal(t, 1, unit.Line(0))
}
