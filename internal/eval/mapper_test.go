package eval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/javacontext-mcp/pkg/types"
)

func fullWrapper() Wrapper {
	return Wrapper{
		PackageName:   "p.q",
		Imports:       []string{"java.util.List", "java.util.Map"},
		ClassName:     "CodeSnippet_1",
		DeclaringType: "p.q.Outer",
		Locals:        []LocalVariable{{Name: "x", TypeName: "int"}},
	}
}

func TestMapper_SnippetOffsetsRoundTrip(t *testing.T) {
	snippet := "int y = x;\nreturn y;"
	m := NewMapper(snippet, fullWrapper())
	src := m.BuildSource()

	start := m.StartPosOffset()
	require.GreaterOrEqual(t, start, 0)
	assert.Equal(t, snippet, src[start:m.SnippetEnd()])
	assert.Equal(t, strings.Count(src[:start], "\n"), m.LineNumberOffset())

	for i := range snippet {
		assert.Equal(t, snippet[i], src[start+i], "offset %d", i)
	}
}

func TestMapper_Layout(t *testing.T) {
	m := NewMapper("x + 1", fullWrapper())
	src := m.BuildSource()

	assert.True(t, strings.HasPrefix(src, "package p.q;\nimport java.util.List;\nimport java.util.Map;\n"))
	assert.Contains(t, src, "public class CodeSnippet_1 extends javacontext.eval.target.CodeSnippet {\n")
	assert.Contains(t, src, "p.q.Outer val$this;\n")
	assert.Contains(t, src, "int val$x;\n")
	assert.Contains(t, src, "public void run() throws Throwable {\nx + 1\n;\n}\n}\n")
	assert.Equal(t, "p/q/CodeSnippet_1", m.BinaryName())
	assert.Equal(t, "CodeSnippet_1", m.ClassName())
}

func TestMapper_Terminator(t *testing.T) {
	for snippet, want := range map[string]string{
		"x + 1":         "\n;",
		"x + 1 // one":  "\n;",
		"x + 1;":        "",
		"if (b) { }":    "",
		"return 1;  \n": "",
		"":              "",
	} {
		assert.Equal(t, want, terminator(snippet), "%q", snippet)
	}
}

func TestMapper_TerminatorAfterLineComment(t *testing.T) {
	snippet := "int y = x;\ny + 1 // add one"
	m := NewMapper(snippet, fullWrapper())
	src := m.BuildSource()
	first := m.LineNumberOffset() + 1

	assert.Contains(t, src, snippet+"\n;\n}\n}\n")
	// the terminator line still belongs to the snippet region
	assert.Equal(t, EvalCodeSnippet, m.EvaluationType(first+2))
	assert.Equal(t, EvalInternal, m.EvaluationType(first+3))
	assert.Equal(t, snippet, src[m.StartPosOffset():m.SnippetEnd()])
}

func TestMapper_EvaluationType(t *testing.T) {
	m := NewMapper("int y = x;\nreturn y;", fullWrapper())
	first := m.LineNumberOffset() + 1

	assert.Equal(t, EvalPackage, m.EvaluationType(1))
	assert.Equal(t, EvalImport, m.EvaluationType(2))
	assert.Equal(t, EvalImport, m.EvaluationType(3))
	assert.Equal(t, EvalInternal, m.EvaluationType(4))
	assert.Equal(t, EvalCodeSnippet, m.EvaluationType(first))
	assert.Equal(t, EvalCodeSnippet, m.EvaluationType(first+1))
	assert.Equal(t, EvalInternal, m.EvaluationType(first+2))
	assert.Equal(t, EvalInternal, m.EvaluationType(1000))
}

func TestMapper_Translate(t *testing.T) {
	snippet := "int y = x;\nreturn z;"
	m := NewMapper(snippet, fullWrapper())
	start := m.StartPosOffset()
	line := m.LineNumberOffset() + 2

	at := start + strings.Index(snippet, "z")
	p, kind, id := m.Translate(types.NewError(types.ProblemUndefinedName, at, at, line, "z cannot be resolved"))
	assert.Equal(t, EvalCodeSnippet, kind)
	assert.Equal(t, snippet, id)
	assert.Equal(t, strings.Index(snippet, "z"), p.Start)
	assert.Equal(t, p.Start, p.End)
	assert.Equal(t, 2, p.Line)

	p, kind, id = m.Translate(types.NewError(types.ProblemImportNotFound, 20, 30, 3, "The import java.util.Map cannot be resolved"))
	assert.Equal(t, EvalImport, kind)
	assert.Equal(t, "java.util.Map", id)
	assert.Equal(t, 0, p.Start)
	assert.Equal(t, len("java.util.Map")-1, p.End)
	assert.Equal(t, 1, p.Line)

	internal := types.NewError(types.ProblemInternal, 40, 45, 4, "broken scaffolding")
	p, kind, id = m.Translate(internal)
	assert.Equal(t, EvalInternal, kind)
	assert.Equal(t, m.BuildSource(), id)
	assert.Equal(t, internal, p)
}

type problemRecorder struct {
	kinds []EvaluationType
	got   []types.Problem
}

func (r *problemRecorder) AcceptProblem(p types.Problem, kind EvaluationType, _ string) {
	r.kinds = append(r.kinds, kind)
	r.got = append(r.got, p)
}

func TestMapper_Wrappers(t *testing.T) {
	m := NewMapper("abc", Wrapper{ClassName: "CodeSnippet_2"})
	start := m.StartPosOffset()

	probs := &problemRecorder{}
	m.WrapProblems(probs).AcceptProblem(types.NewError(types.ProblemSyntax, start+1, start+2, m.LineNumberOffset()+1, "bad"), EvalInternal, "")
	require.Len(t, probs.got, 1)
	assert.Equal(t, EvalCodeSnippet, probs.kinds[0])
	assert.Equal(t, 1, probs.got[0].Start)

	props := &proposalRecorder{}
	m.WrapCompletions(props).AcceptProposal(CompletionProposal{Name: "abc", ReplaceStart: start, ReplaceEnd: start + 3})
	require.Len(t, props.got, 1)
	assert.Equal(t, 0, props.got[0].ReplaceStart)
	assert.Equal(t, 3, props.got[0].ReplaceEnd)

	sels := &selectionRecorder{}
	m.WrapSelections(sels).AcceptSelection(Selection{Start: start + 1, End: start + 2})
	require.Len(t, sels.got, 1)
	assert.Equal(t, 1, sels.got[0].Start)
	assert.Equal(t, 2, sels.got[0].End)
}

func TestVariablesMapper_Positions(t *testing.T) {
	a := &GlobalVariable{Name: "a", TypeName: "int", Initializer: "1 + 2"}
	b := &GlobalVariable{Name: "b", TypeName: "String"}
	m := NewVariablesMapper([]*GlobalVariable{a, b}, Wrapper{ClassName: "CodeSnippet_GlobalVariables_1", DeclaringType: "Ignored"})
	src := m.BuildSource()

	assert.Equal(t, -1, m.StartPosOffset())
	assert.Equal(t, -1, m.LineNumberOffset())
	assert.NotContains(t, src, "val$this")

	assert.True(t, strings.HasPrefix(src[a.DeclarationStart():], "int a;"))
	assert.True(t, strings.HasPrefix(src[b.DeclarationStart():], "String b;"))
	require.GreaterOrEqual(t, a.InitializerStart(), 0)
	assert.True(t, strings.HasPrefix(src[a.InitializerStart():], "1 + 2;"))
	assert.Equal(t, strings.Count(src[:a.InitializerStart()], "\n")+1, a.InitializerLine())
	assert.Equal(t, -1, b.InitializerStart())
	assert.Equal(t, -1, b.InitializerLine())

	assert.Equal(t, EvalVariable, m.EvaluationType(a.InitializerLine()))
	p, kind, id := m.Translate(types.NewError(types.ProblemTypeMismatch, a.InitializerStart(), a.InitializerStart()+4, a.InitializerLine(), "mismatch"))
	assert.Equal(t, EvalVariable, kind)
	assert.Equal(t, "a", id)
	assert.Equal(t, 0, p.Start)
	assert.Equal(t, 4, p.End)
	assert.Equal(t, 1, p.Line)
}
