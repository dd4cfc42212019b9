package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/lookup"
	"github.com/dshills/javacontext-mcp/internal/parser"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

const outerSource = `public class Outer {
    private int secret = 5;
    public int count = 21;
    private int twice(int v) { return v * 2; }
    public String label() { return "outer"; }
}
`

var inOuter = Capture{DeclaringType: "Outer"}

func testNames(t *testing.T) lookup.NameEnvironment {
	t.Helper()
	return namesFor(t, "Outer.java", outerSource)
}

func namesFor(t *testing.T, path, source string) lookup.NameEnvironment {
	t.Helper()
	p := parser.New()
	t.Cleanup(p.Close)
	unit, err := p.Parse(path, []byte(source), parser.ModeFull)
	require.NoError(t, err)
	require.False(t, unit.HasSyntaxErrors(), "fixture must parse cleanly: %v", unit.Problems)
	return lookup.Chain{lookup.NewUnitEnvironment("test", unit), lookup.Builtins()}
}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	return contextFor(t, testNames(t))
}

func contextFor(t *testing.T, names lookup.NameEnvironment) *Context {
	t.Helper()
	c, err := NewContext(names, Options{})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// outerVM models the runtime view of Outer.
func outerVM() *vm {
	return newVM(&jclass{
		name:  "Outer",
		super: "java/lang/Object",
		fields: map[string]*jfield{
			"secret": {desc: "I", private: true, value: int32(5)},
			"count":  {desc: "I", value: int32(21)},
		},
		methods: map[string]*jmethod{
			"<init>()V": {fn: func(*jobject, []any) any { return nil }},
			"twice(I)I": {private: true, fn: func(_ *jobject, args []any) any { return args[0].(int32) * 2 }},
			"label()Ljava/lang/String;": {fn: func(*jobject, []any) any { return "outer" }},
		},
	})
}

func compileSnippet(t *testing.T, c *Context, snippet string, capture Capture) (*Outcome, *classfile.ClassFile) {
	t.Helper()
	out, err := c.Evaluate(snippet, capture)
	require.NoError(t, err)
	require.True(t, out.Succeeded(), "problems: %v", out.Problems())
	require.Len(t, out.ClassFiles, 1)
	cf, err := classfile.Parse(out.ClassFiles[0].Bytes)
	require.NoError(t, err)
	require.Equal(t, out.ClassName, cf.Name)
	return out, cf
}

// runSnippet executes the snippet class with outer as the captured receiver
// and the given captured locals.
func runSnippet(t *testing.T, m *vm, cf *classfile.ClassFile, outer *jobject, locals map[string]any) {
	t.Helper()
	this := &jobject{class: cf.Name, fields: map[string]any{CapturedThis: outer}}
	for name, v := range locals {
		this.fields[CapturedPrefix+name] = v
	}
	require.NoError(t, m.run(cf, this), classfile.Disassemble(cf))
}

func integer(v int32) *jbox { return &jbox{class: "java/lang/Integer", v: v} }

func TestEvaluate_PrivateFieldReadReflectively(t *testing.T) {
	c := newTestContext(t)
	out, cf := compileSnippet(t, c, "return secret + 1;", inOuter)
	assert.True(t, out.HasResult)
	assert.Equal(t, RootClassName, cf.Super)

	asm := classfile.Disassemble(cf)
	for _, want := range []string{
		`ldc "Outer"`,
		"invokestatic java/lang/Class.forName:(Ljava/lang/String;)Ljava/lang/Class;",
		`ldc "secret"`,
		"invokevirtual java/lang/Class.getDeclaredField:(Ljava/lang/String;)Ljava/lang/reflect/Field;",
		"invokevirtual java/lang/reflect/AccessibleObject.setAccessible:(Z)V",
		"invokevirtual java/lang/reflect/Field.getInt:(Ljava/lang/Object;)I",
		"iadd",
		"invokevirtual " + cf.Name + ".setResult:(Ljava/lang/Object;Ljava/lang/Class;)V",
	} {
		assert.Contains(t, asm, want)
	}
	assert.NotContains(t, asm, "getfield Outer.secret")
	assert.NotContains(t, asm, "java/lang/Integer.intValue")

	m := outerVM()
	outer := m.newObject("Outer")
	runSnippet(t, m, cf, outer, nil)
	require.True(t, m.resultSet)
	assert.Equal(t, integer(6), m.result)
	assert.Equal(t, "int", m.resultClass.name)

	// the same reflective read outside the snippet sees the stored value
	field, err := m.call(cf, &classfile.MemberRef{Owner: "java/lang/Class", Name: "getDeclaredField", Desc: "(Ljava/lang/String;)Ljava/lang/reflect/Field;"},
		&jclassRef{name: "Outer"}, []any{"secret"})
	require.NoError(t, err)
	_, err = m.call(cf, &classfile.MemberRef{Owner: "java/lang/reflect/Field", Name: "get", Desc: "(Ljava/lang/Object;)Ljava/lang/Object;"},
		field, []any{outer})
	require.Error(t, err, "private field must not be readable without setAccessible")
	field.(*jreflect).accessible = true
	v, err := m.call(cf, &classfile.MemberRef{Owner: "java/lang/reflect/Field", Name: "get", Desc: "(Ljava/lang/Object;)Ljava/lang/Object;"},
		field, []any{outer})
	require.NoError(t, err)
	assert.Equal(t, integer(5), v)
}

func TestEvaluate_PublicFieldReadDirectly(t *testing.T) {
	c := newTestContext(t)
	_, cf := compileSnippet(t, c, "count * 2", inOuter)

	asm := classfile.Disassemble(cf)
	assert.Contains(t, asm, "getfield "+cf.Name+".val$this:LOuter;")
	assert.Contains(t, asm, "getfield Outer.count:I")
	assert.NotContains(t, asm, "getDeclaredField")

	m := outerVM()
	runSnippet(t, m, cf, m.newObject("Outer"), nil)
	assert.Equal(t, integer(42), m.result)
}

func TestEvaluate_TrailingLineComment(t *testing.T) {
	c := newTestContext(t)
	out, cf := compileSnippet(t, c, "count + 1 // add one", inOuter)
	assert.True(t, out.HasResult)

	m := outerVM()
	runSnippet(t, m, cf, m.newObject("Outer"), nil)
	assert.Equal(t, integer(22), m.result)

	out, cf = compileSnippet(t, c, "count = 3; // reset\ncount // read back", inOuter)
	assert.True(t, out.HasResult)
	m = outerVM()
	outer := m.newObject("Outer")
	runSnippet(t, m, cf, outer, nil)
	assert.Equal(t, integer(3), m.result)
	assert.Equal(t, int32(3), outer.fields["count"])
}

func TestEvaluate_DirectAccessToPrivateFieldFailsAtRunTime(t *testing.T) {
	// guards the interpreter itself: a getfield of a private member from
	// another class must be refused
	m := outerVM()
	cf := &classfile.ClassFile{Name: "Probe", Methods: []*classfile.Method{{
		Name:       RunMethod,
		Descriptor: "()V",
		Code: &classfile.Code{Instructions: []classfile.Instruction{
			{Op: classfile.OpAload, Int: 0},
			{Op: classfile.OpGetfield, Ref: &classfile.MemberRef{Owner: "Probe", Name: CapturedThis, Desc: "LOuter;"}},
			{Op: classfile.OpGetfield, Ref: &classfile.MemberRef{Owner: "Outer", Name: "secret", Desc: "I"}},
			{Op: classfile.OpPop},
			{Op: classfile.OpReturn},
		}},
	}}}
	err := m.run(cf, &jobject{class: "Probe", fields: map[string]any{CapturedThis: m.newObject("Outer")}})
	var jerr *javaError
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, "java/lang/IllegalAccessError", jerr.class)
}

func TestEvaluate_PrivateMethodInvokedReflectively(t *testing.T) {
	c := newTestContext(t)
	_, cf := compileSnippet(t, c, "return twice(4);", inOuter)

	asm := classfile.Disassemble(cf)
	assert.Contains(t, asm, "getDeclaredMethod:(Ljava/lang/String;[Ljava/lang/Class;)Ljava/lang/reflect/Method;")
	assert.Contains(t, asm, "getstatic java/lang/Integer.TYPE:Ljava/lang/Class;")
	assert.Contains(t, asm, "invokevirtual java/lang/reflect/Method.invoke:(Ljava/lang/Object;[Ljava/lang/Object;)Ljava/lang/Object;")
	assert.NotContains(t, asm, "Outer.twice")

	m := outerVM()
	runSnippet(t, m, cf, m.newObject("Outer"), nil)
	assert.Equal(t, integer(8), m.result)
}

func TestEvaluate_CapturedLocals(t *testing.T) {
	c := newTestContext(t)
	capture := Capture{DeclaringType: "Outer", Locals: []LocalVariable{{Name: "x", TypeName: "int"}}}
	_, cf := compileSnippet(t, c, "x * count", capture)

	assert.Contains(t, classfile.Disassemble(cf), "getfield "+cf.Name+".val$x:I")
	require.NotNil(t, cf.FindField(CapturedPrefix+"x"))

	m := outerVM()
	runSnippet(t, m, cf, m.newObject("Outer"), map[string]any{"x": int32(3)})
	assert.Equal(t, integer(63), m.result)
}

func TestEvaluate_LongResult(t *testing.T) {
	c := newTestContext(t)
	_, cf := compileSnippet(t, c, "long big = 3000000000L;\nbig * 2", Capture{})

	asm := classfile.Disassemble(cf)
	assert.Contains(t, asm, "lmul")
	assert.Contains(t, asm, "dup_x2")

	m := outerVM()
	runSnippet(t, m, cf, nil, nil)
	assert.Equal(t, &jbox{class: "java/lang/Long", v: int64(6000000000)}, m.result)
	assert.Equal(t, "long", m.resultClass.name)
}

func TestEvaluate_CompoundAssignment(t *testing.T) {
	c := newTestContext(t)
	_, cf := compileSnippet(t, c, "int x = 4;\nx += 5;\nx", Capture{})

	m := outerVM()
	runSnippet(t, m, cf, nil, nil)
	assert.Equal(t, integer(9), m.result)
}

func TestEvaluate_LoopWithIncrement(t *testing.T) {
	c := newTestContext(t)
	_, cf := compileSnippet(t, c, "int sum = 0;\nfor (int i = 0; i < 4; i++) { sum += i; }\nreturn sum;", Capture{})
	assert.Contains(t, classfile.Disassemble(cf), "iinc")

	m := outerVM()
	runSnippet(t, m, cf, nil, nil)
	assert.Equal(t, integer(6), m.result)
}

func TestEvaluate_PrivateFieldWrite(t *testing.T) {
	c := newTestContext(t)
	_, cf := compileSnippet(t, c, "secret = 10;\nreturn secret;", inOuter)

	asm := classfile.Disassemble(cf)
	assert.Contains(t, asm, "invokevirtual java/lang/reflect/Field.setInt:(Ljava/lang/Object;I)V")
	assert.NotContains(t, asm, "putfield Outer.secret")
	assert.NotContains(t, asm, "Integer.valueOf")

	m := outerVM()
	outer := m.newObject("Outer")
	runSnippet(t, m, cf, outer, nil)
	assert.Equal(t, integer(10), m.result)
	assert.Equal(t, int32(10), outer.fields["secret"])
}

const counterSource = `public class Counter {
    private long total = 40L;
    private String name = "c";
}
`

func TestEvaluate_TypedReflectiveAccessors(t *testing.T) {
	c := contextFor(t, namesFor(t, "Counter.java", counterSource))
	_, cf := compileSnippet(t, c, "total += 2;\nreturn name + total;", Capture{DeclaringType: "Counter"})

	asm := classfile.Disassemble(cf)
	assert.Contains(t, asm, "invokevirtual java/lang/reflect/Field.getLong:(Ljava/lang/Object;)J")
	assert.Contains(t, asm, "invokevirtual java/lang/reflect/Field.setLong:(Ljava/lang/Object;J)V")
	assert.Contains(t, asm, "invokevirtual java/lang/reflect/Field.get:(Ljava/lang/Object;)Ljava/lang/Object;")
	assert.Contains(t, asm, "checkcast java/lang/String")
	assert.NotContains(t, asm, "java/lang/Long.longValue")

	m := newVM(&jclass{
		name:  "Counter",
		super: "java/lang/Object",
		fields: map[string]*jfield{
			"total": {desc: "J", private: true, value: int64(40)},
			"name":  {desc: "Ljava/lang/String;", private: true, value: "c"},
		},
	})
	counter := m.newObject("Counter")
	runSnippet(t, m, cf, counter, nil)
	assert.Equal(t, "c42", m.result)
	assert.Equal(t, int64(42), counter.fields["total"])
}

func TestEvaluate_StringConcatenation(t *testing.T) {
	c := newTestContext(t)
	_, cf := compileSnippet(t, c, `"v" + secret`, inOuter)
	assert.Contains(t, classfile.Disassemble(cf), "java/lang/StringBuilder.append:(I)Ljava/lang/StringBuilder;")

	m := outerVM()
	runSnippet(t, m, cf, m.newObject("Outer"), nil)
	assert.Equal(t, "v5", m.result)
	assert.Equal(t, "java/lang/String", m.resultClass.name)
}

func TestEvaluate_VoidSnippet(t *testing.T) {
	c := newTestContext(t)
	out, cf := compileSnippet(t, c, "int unused = 1;", Capture{})
	assert.False(t, out.HasResult)

	m := outerVM()
	runSnippet(t, m, cf, nil, nil)
	assert.True(t, m.resultSet)
	assert.Nil(t, m.result)
	assert.Equal(t, "void", m.resultClass.name)
}

func TestEvaluate_FinalCapturedLocalIsReadOnly(t *testing.T) {
	c := newTestContext(t)
	capture := Capture{Locals: []LocalVariable{{Name: "x", TypeName: "int", Final: true}}}
	out, err := c.Evaluate("x = 2;", capture)
	require.NoError(t, err)
	assert.False(t, out.Succeeded())

	require.Len(t, out.Results, 1)
	r := out.Results[0]
	assert.Equal(t, EvalCodeSnippet, r.Type)
	assert.Equal(t, "x = 2;", r.ID)
	require.Len(t, r.Problems, 1)
	assert.Equal(t, types.ProblemInvalidLeftHandSide, r.Problems[0].ID)
	assert.Equal(t, 0, r.Problems[0].Start)
	assert.Equal(t, 0, r.Problems[0].End)
}

func TestEvaluate_UndefinedNameSuggestion(t *testing.T) {
	c := newTestContext(t)
	out, err := c.Evaluate("return countr + 1;", inOuter)
	require.NoError(t, err)
	assert.False(t, out.Succeeded())

	problems := out.Problems()
	require.Len(t, problems, 1)
	p := problems[0]
	assert.Equal(t, types.ProblemUndefinedName, p.ID)
	assert.Equal(t, "count", p.Suggestion)
	assert.Equal(t, 7, p.Start)
	assert.Equal(t, 12, p.End)
	assert.Equal(t, 1, p.Line)
	assert.Equal(t, EvalCodeSnippet, out.Results[0].Type)
}

func TestEvaluate_SuperIsRejected(t *testing.T) {
	c := newTestContext(t)
	out, err := c.Evaluate("return super.toString();", inOuter)
	require.NoError(t, err)
	assert.False(t, out.Succeeded())

	var ids []types.ProblemID
	for _, p := range out.Problems() {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, types.ProblemSuperInSnippet)
}

// compileNested compiles a snippet that declares nested classes, loads the
// nested class files into m and returns all class files, snippet class first.
func compileNested(t *testing.T, c *Context, m *vm, snippet string, capture Capture, classes int) (*Outcome, []*classfile.ClassFile) {
	t.Helper()
	out, err := c.Evaluate(snippet, capture)
	require.NoError(t, err)
	require.True(t, out.Succeeded(), "problems: %v", out.Problems())
	require.Len(t, out.ClassFiles, classes)
	var files []*classfile.ClassFile
	for _, f := range out.ClassFiles {
		cf, err := classfile.Parse(f.Bytes)
		require.NoError(t, err)
		require.Equal(t, f.Name, cf.Name)
		files = append(files, cf)
	}
	require.Equal(t, out.ClassName, files[0].Name)
	for _, cf := range files[1:] {
		m.load(cf)
	}
	return out, files
}

func TestEvaluate_AnonymousRunnable(t *testing.T) {
	c := newTestContext(t)
	m := outerVM()
	snippet := "new Runnable() {\n  public void run() { count = 9; }\n}.run();\nreturn count;"
	out, files := compileNested(t, c, m, snippet, inOuter, 2)

	anon := files[1]
	assert.Equal(t, out.ClassName+"$1", anon.Name)
	assert.Equal(t, "java/lang/Object", anon.Super)
	assert.Equal(t, []string{"java/lang/Runnable"}, anon.Interfaces)
	require.NotNil(t, anon.EnclosingMethod)
	assert.Equal(t, out.ClassName, anon.EnclosingMethod.Class)
	assert.Equal(t, RunMethod, anon.EnclosingMethod.Name)
	assert.Equal(t, "()V", anon.EnclosingMethod.Desc)
	assert.NotNil(t, anon.FindMethod("<init>", "(LOuter;)V"), classfile.Disassemble(anon))
	for _, cf := range files {
		require.Len(t, cf.InnerClasses, 1, cf.Name)
		assert.Equal(t, anon.Name, cf.InnerClasses[0].Inner)
		assert.Empty(t, cf.InnerClasses[0].Name)
	}

	outer := m.newObject("Outer")
	runSnippet(t, m, files[0], outer, nil)
	assert.Equal(t, integer(9), m.result)
	assert.Equal(t, int32(9), outer.fields["count"])
}

func TestEvaluate_LocalClassCapturesLocal(t *testing.T) {
	c := newTestContext(t)
	m := outerVM()
	snippet := "int base = 40;\nclass Adder {\n  int add(int v) { return base + v; }\n}\nreturn new Adder().add(2);"
	out, files := compileNested(t, c, m, snippet, inOuter, 2)

	adder := files[1]
	assert.Equal(t, out.ClassName+"$1Adder", adder.Name)
	var fields []string
	for _, f := range adder.Fields {
		fields = append(fields, f.Name)
	}
	assert.ElementsMatch(t, []string{OuterThisField, CapturedPrefix + "base"}, fields)
	assert.NotNil(t, adder.FindMethod("<init>", "(LOuter;I)V"), classfile.Disassemble(adder))
	assert.Equal(t, "Adder", adder.InnerClasses[0].Name)

	runSnippet(t, m, files[0], m.newObject("Outer"), nil)
	assert.Equal(t, integer(42), m.result)
}

func TestEvaluate_LocalClassExtendsAnonymousBase(t *testing.T) {
	c := newTestContext(t)
	m := outerVM()
	snippet := `class Counter {
  int n;
  Counter(int start) { n = start; }
  int next() { n++; return n; }
}
Counter c = new Counter(5) {
  int next() { return super.next() * 10; }
};
return c.next();`
	out, files := compileNested(t, c, m, snippet, inOuter, 3)
	assert.Equal(t, out.ClassName+"$1Counter", files[1].Name)
	assert.Equal(t, out.ClassName+"$2", files[2].Name)
	assert.Equal(t, files[1].Name, files[2].Super)

	runSnippet(t, m, files[0], m.newObject("Outer"), nil)
	assert.Equal(t, integer(60), m.result)
}

func TestEvaluate_NestedClassProblems(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
		capture Capture
		want    types.ProblemID
	}{
		{
			name:    "enclosing instance in static frame",
			snippet: "new Runnable() { public void run() { count = 1; } }.run();",
			capture: Capture{DeclaringType: "Outer", Static: true},
			want:    types.ProblemStaticContext,
		},
		{
			name:    "captured local written",
			snippet: "int n = 1;\nnew Runnable() { public void run() { n = 2; } }.run();",
			capture: inOuter,
			want:    types.ProblemInvalidLeftHandSide,
		},
		{
			name:    "missing return",
			snippet: "class Broken { int value() { } }\nreturn 1;",
			capture: inOuter,
			want:    types.ProblemIncompatibleReturn,
		},
		{
			name:    "interface declared locally",
			snippet: "interface Shape { }\nreturn 1;",
			capture: inOuter,
			want:    types.ProblemUnsupported,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext(t)
			out, err := c.Evaluate(tt.snippet, tt.capture)
			require.NoError(t, err)
			assert.False(t, out.Succeeded())
			var ids []types.ProblemID
			for _, p := range out.Problems() {
				ids = append(ids, p.ID)
			}
			assert.Contains(t, ids, tt.want)
		})
	}
}

const holderSource = `public class Holder {
    public int base = 3;
    public class Cell {
        public int v;
        public Cell(int v) { this.v = v + base; }
    }
}
`

// holderVM models Holder and its inner class Cell, whose constructor takes
// the enclosing instance first.
func holderVM() *vm {
	return newVM(&jclass{
		name:   "Holder",
		super:  "java/lang/Object",
		fields: map[string]*jfield{"base": {desc: "I", value: int32(3)}},
		methods: map[string]*jmethod{
			"<init>()V": {fn: func(*jobject, []any) any { return nil }},
		},
	}, &jclass{
		name:   "Holder$Cell",
		super:  "java/lang/Object",
		fields: map[string]*jfield{"v": {desc: "I", value: int32(0)}},
		methods: map[string]*jmethod{
			"<init>(LHolder;I)V": {fn: func(recv *jobject, args []any) any {
				recv.fields["v"] = args[1].(int32) + args[0].(*jobject).fields["base"].(int32)
				return nil
			}},
		},
	})
}

func TestEvaluate_InnerMemberAllocation(t *testing.T) {
	c := contextFor(t, namesFor(t, "Holder.java", holderSource))
	inHolder := Capture{DeclaringType: "Holder"}

	tests := []struct {
		name    string
		snippet string
		want    int32
	}{
		{"implicit enclosing instance", "return new Cell(4).v;", 7},
		{"qualified allocation", "Holder h = new Holder();\nh.base = 10;\nreturn h.new Cell(1).v;", 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cf := compileSnippet(t, c, tt.snippet, inHolder)
			var ctor *classfile.MemberRef
			for _, in := range cf.FindMethod(RunMethod, "()V").Code.Instructions {
				if in.Op == classfile.OpInvokespecial && in.Ref.Owner == "Holder$Cell" {
					ctor = in.Ref
				}
			}
			require.NotNil(t, ctor, classfile.Disassemble(cf))
			assert.Equal(t, "(LHolder;I)V", ctor.Desc)

			m := holderVM()
			runSnippet(t, m, cf, m.newObject("Holder"), nil)
			assert.Equal(t, integer(tt.want), m.result)
		})
	}
}

func TestEvaluate_EmptySnippet(t *testing.T) {
	c := newTestContext(t)
	_, err := c.Evaluate("  \n", Capture{})
	assert.ErrorIs(t, err, ErrEmptySnippet)
}

func TestNewContext_IllegalOptions(t *testing.T) {
	_, err := NewContext(testNames(t), Options{Encoding: "UTF-8", IncludeRunningVMBootclasspath: true})
	assert.ErrorIs(t, err, ErrIllegalOptions)

	_, err = NewContext(testNames(t), Options{PackageName: "bad..name"})
	assert.Error(t, err)
}

func TestContext_ImportProblemsMapToImport(t *testing.T) {
	c := newTestContext(t)
	c.SetImports([]string{"no.such.Thing"})
	out, err := c.Evaluate("1 + 1", Capture{})
	require.NoError(t, err)

	var found bool
	for _, r := range out.Results {
		if r.Type == EvalImport {
			found = true
			assert.Equal(t, "no.such.Thing", r.ID)
			require.NotEmpty(t, r.Problems)
			assert.Equal(t, types.ProblemImportNotFound, r.Problems[0].ID)
			assert.Equal(t, 0, r.Problems[0].Start)
			assert.Equal(t, len("no.such.Thing")-1, r.Problems[0].End)
		}
	}
	assert.True(t, found, "results: %v", out.Results)
}

func TestContext_GlobalVariables(t *testing.T) {
	c := newTestContext(t)
	total, err := c.NewVariable("int", "total", "3")
	require.NoError(t, err)
	_, err = c.NewVariable("int", "total", "")
	assert.ErrorIs(t, err, ErrInvalidVariable)
	_, err = c.NewVariable("int", "class", "")
	assert.ErrorIs(t, err, ErrInvalidVariable)

	vars, err := c.EvaluateVariables()
	require.NoError(t, err)
	require.True(t, vars.Succeeded(), "problems: %v", vars.Problems())
	assert.Equal(t, "CodeSnippet_GlobalVariables_1", vars.ClassName)
	assert.False(t, total.Initialized())

	varsCF, err := classfile.Parse(vars.ClassFiles[0].Bytes)
	require.NoError(t, err)
	assert.Equal(t, RootClassName, varsCF.Super)
	require.NotNil(t, varsCF.FindField("total"))
	assert.Contains(t, classfile.Disassemble(varsCF), "putfield CodeSnippet_GlobalVariables_1.total:I")

	c.InstallClassFiles(vars.ClassFiles)
	assert.True(t, total.Initialized())

	_, cf := compileSnippet(t, c, "total + 1", Capture{})
	assert.Equal(t, "CodeSnippet_GlobalVariables_1", cf.Super)
	assert.Contains(t, classfile.Disassemble(cf), "getfield CodeSnippet_GlobalVariables_1.total:I")

	m := outerVM()
	m.classes[varsCF.Name] = &jclass{
		name:   varsCF.Name,
		super:  RootClassName,
		fields: map[string]*jfield{"total": {desc: "I", value: int32(0)}},
	}
	// one object stands for an instance of the snippet class, which
	// inherits the variables
	this := &jobject{class: cf.Name, fields: map[string]any{"total": int32(0)}}
	require.NoError(t, m.run(varsCF, this))
	require.NoError(t, m.run(cf, this))
	assert.Equal(t, integer(4), m.result)

	// initialized variables are not initialized again
	again, err := c.EvaluateVariables()
	require.NoError(t, err)
	require.True(t, again.Succeeded())
	againCF, err := classfile.Parse(again.ClassFiles[0].Bytes)
	require.NoError(t, err)
	assert.NotContains(t, classfile.Disassemble(againCF), "putfield")
	assert.Equal(t, -1, total.InitializerStart())
}

func TestContext_GlobalVariableProblems(t *testing.T) {
	c := newTestContext(t)
	_, err := c.NewVariable("NoSuchType", "broken", "")
	require.NoError(t, err)

	out, err := c.EvaluateVariables()
	require.NoError(t, err)
	assert.False(t, out.Succeeded())
	require.NotEmpty(t, out.Results)
	assert.Equal(t, EvalVariable, out.Results[0].Type)
	assert.Equal(t, "broken", out.Results[0].ID)
	assert.Equal(t, types.ProblemUndefinedType, out.Results[0].Problems[0].ID)
	assert.Equal(t, 0, out.Results[0].Problems[0].Start)
}

func TestContext_DeleteVariable(t *testing.T) {
	c := newTestContext(t)
	v, err := c.NewVariable("int", "a", "")
	require.NoError(t, err)
	require.NoError(t, c.DeleteVariable(v))
	assert.Empty(t, c.Variables())
	assert.ErrorIs(t, c.DeleteVariable(v), ErrUnknownVariable)
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, "counter", suggest("countr", []string{"secret", "counter", "count2x"}))
	assert.Equal(t, "", suggest("zzz", []string{"secret", "counter"}))
	assert.Equal(t, "", suggest("same", []string{"same"}))
}
