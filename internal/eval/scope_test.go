package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/lookup"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

func compileFor(t *testing.T, c *Context, snippet string, capture Capture) *compilation {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, err := c.compile(NewMapper(snippet, c.snippetWrapper(capture)), &capture, "", nil)
	require.NoError(t, err)
	require.NotNil(t, comp.body)
	return comp
}

func TestSnippetScope_RelaxedFieldLookup(t *testing.T) {
	c := newTestContext(t)
	comp := compileFor(t, c, "return secret;", inOuter)
	assert.Empty(t, comp.problems)

	outer := comp.scope.Declaring()
	require.NotNil(t, outer)
	assert.Equal(t, "Outer", outer.Name)
	assert.Same(t, outer, comp.scope.Invocation())
	assert.False(t, comp.scope.SuperAllowed())

	name := comp.scope.LookupName("secret")
	require.NotNil(t, name.Field)
	assert.True(t, name.Field.IsValid())
	assert.Equal(t, lookup.ReceiverCaptured, name.Receiver.Kind)

	// a regular compiler in the generated class would refuse the access
	assert.False(t, lookup.Ordinary{}.FieldVisible(name.Field, outer, comp.class, false))

	plan := analyze(comp.resolver.Resolution(), comp.unit, comp.body, comp.nest, nil)
	var ident *jast.Ident
	jast.Inspect(comp.body, func(n jast.Node) bool {
		if id, ok := n.(*jast.Ident); ok && id.Name == "secret" {
			ident = id
		}
		return true
	})
	require.NotNil(t, ident)
	assert.Equal(t, AccessReflective, plan.Fields[ident])
}

func TestSnippetScope_PublicFieldStaysDirect(t *testing.T) {
	c := newTestContext(t)
	comp := compileFor(t, c, "return count;", inOuter)
	plan := analyze(comp.resolver.Resolution(), comp.unit, comp.body, comp.nest, nil)
	for _, access := range plan.Fields {
		assert.Equal(t, AccessDirect, access)
	}
	assert.NotEmpty(t, plan.Fields)
}

func TestSnippetScope_StaticFrame(t *testing.T) {
	c := newTestContext(t)
	comp := compileFor(t, c, "return count;", Capture{DeclaringType: "Outer", Static: true})

	name := comp.scope.LookupName("count")
	assert.Equal(t, lookup.NonStaticReferenceInStaticContext, name.Problem)
	require.NotEmpty(t, comp.problems)
	assert.Equal(t, types.ProblemStaticContext, comp.problems[0].ID)
}

func TestSnippetScope_CapturedLocalsShadowFields(t *testing.T) {
	c := newTestContext(t)
	capture := Capture{DeclaringType: "Outer", Locals: []LocalVariable{{Name: "count", TypeName: "int"}}}
	comp := compileFor(t, c, "return count;", capture)

	name := comp.scope.LookupName("count")
	require.NotNil(t, name.Field)
	assert.Equal(t, CapturedPrefix+"count", name.Field.Name)
	assert.Equal(t, lookup.ReceiverThis, name.Receiver.Kind)
	assert.Contains(t, comp.scope.FieldNames(), "secret")
}

func TestSnippetVisibility(t *testing.T) {
	c := newTestContext(t)
	comp := compileFor(t, c, "return 1;", inOuter)
	outer := comp.scope.Declaring()
	secret := outer.DeclaredField("secret")
	require.NotNil(t, secret)

	vis := snippetVisibility{}
	assert.True(t, vis.FieldVisible(secret, outer, outer, false))
	assert.False(t, vis.FieldVisible(secret, outer, comp.class, false))
	assert.True(t, vis.TypeVisible(outer, comp.class))
}

const hostSource = `public class Host {
    private int secret = 7;
    private int peek() { return secret; }
    static class Sub extends Host {}
}
`

func TestSnippetVisibility_PrivateNotInherited(t *testing.T) {
	c := contextFor(t, namesFor(t, "Host.java", hostSource))
	comp := compileFor(t, c, "return 1;", Capture{DeclaringType: "Host"})
	host := comp.scope.Declaring()
	require.NotNil(t, host)
	sub := host.MemberType("Sub")
	require.NotNil(t, sub)
	secret := host.DeclaredField("secret")
	require.NotNil(t, secret)

	vis := snippetVisibility{}
	assert.True(t, vis.FieldVisible(secret, host, host, false))
	assert.True(t, vis.FieldVisible(secret, host, sub, false), "nested types share the outermost type")
	assert.False(t, vis.FieldVisible(secret, sub, host, false), "a subclass receiver does not inherit private members")
	assert.False(t, vis.FieldVisible(secret, sub, sub, false))
}

func TestEvaluate_PrivateFieldThroughSubclassReceiver(t *testing.T) {
	c := contextFor(t, namesFor(t, "Host.java", hostSource))
	capture := Capture{DeclaringType: "Host"}

	out, err := c.Evaluate("Host.Sub s = new Host.Sub(); return s.secret;", capture)
	require.NoError(t, err)
	assert.False(t, out.Succeeded())
	require.NotEmpty(t, out.Problems())
	assert.Equal(t, types.ProblemNotVisibleField, out.Problems()[0].ID)

	out, err = c.Evaluate("Host.Sub s = new Host.Sub(); return s.peek();", capture)
	require.NoError(t, err)
	assert.False(t, out.Succeeded(), "private methods are not inherited either")

	out, err = c.Evaluate("Host h = new Host.Sub(); return h.secret;", capture)
	require.NoError(t, err)
	assert.True(t, out.Succeeded(), "problems: %v", out.Problems())
}
