package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/javacontext-mcp/pkg/types"
)

type proposalRecorder struct{ got []CompletionProposal }

func (r *proposalRecorder) AcceptProposal(p CompletionProposal) { r.got = append(r.got, p) }

func (r *proposalRecorder) find(name string) *CompletionProposal {
	for i := range r.got {
		if r.got[i].Name == name {
			return &r.got[i]
		}
	}
	return nil
}

type selectionRecorder struct{ got []Selection }

func (r *selectionRecorder) AcceptSelection(s Selection) { r.got = append(r.got, s) }

func TestComplete_DeclaringTypeMembers(t *testing.T) {
	c := newTestContext(t)
	rec := &proposalRecorder{}
	require.NoError(t, c.Complete("sec", 3, inOuter, rec))

	p := rec.find("secret")
	require.NotNil(t, p, "proposals: %v", rec.got)
	assert.Equal(t, types.ElementField, p.Kind)
	assert.Equal(t, "int", p.Type)
	assert.Equal(t, "Outer", p.Declaring)
	assert.Equal(t, 0, p.ReplaceStart)
	assert.Equal(t, 3, p.ReplaceEnd)
	assert.Nil(t, rec.find("count"))
}

func TestComplete_LocalsRankFirst(t *testing.T) {
	c := newTestContext(t)
	snippet := "int total = 1;\nreturn t"
	rec := &proposalRecorder{}
	require.NoError(t, c.Complete(snippet, len(snippet), inOuter, rec))

	require.NotEmpty(t, rec.got)
	assert.Equal(t, "total", rec.got[0].Name)
	assert.Equal(t, types.ElementLocalVariable, rec.got[0].Kind)
	assert.Equal(t, len(snippet)-1, rec.got[0].ReplaceStart)
	assert.Equal(t, len(snippet), rec.got[0].ReplaceEnd)
	twice := rec.find("twice")
	require.NotNil(t, twice)
	assert.Equal(t, types.ElementMethod, twice.Kind)
	assert.Equal(t, []string{"int"}, twice.Parameters)
	assert.Less(t, twice.Relevance, rec.got[0].Relevance)
}

func TestComplete_QualifiedMembers(t *testing.T) {
	c := newTestContext(t)
	snippet := "Outer o = new Outer();\nreturn o.la"
	rec := &proposalRecorder{}
	require.NoError(t, c.Complete(snippet, len(snippet), Capture{}, rec))

	label := rec.find("label")
	require.NotNil(t, label, "proposals: %v", rec.got)
	assert.Equal(t, "label()", label.Completion)
	assert.Equal(t, "java.lang.String", label.Type)
	// private members of Outer are not visible without a receiver frame
	assert.Nil(t, rec.find("twice"))
}

func TestComplete_PositionOutOfRange(t *testing.T) {
	c := newTestContext(t)
	assert.ErrorIs(t, c.Complete("abc", 4, Capture{}, &proposalRecorder{}), ErrPositionOutOfRange)
}

func TestSelect_Field(t *testing.T) {
	c := newTestContext(t)
	rec := &selectionRecorder{}
	require.NoError(t, c.Select("return secret + 1;", 7, 13, inOuter, rec))

	require.Len(t, rec.got, 1)
	sel := rec.got[0]
	assert.Equal(t, types.ElementField, sel.Kind)
	assert.Equal(t, "secret", sel.Name)
	assert.Equal(t, "Outer", sel.Declaring)
	assert.Equal(t, "int", sel.Type)
	assert.Equal(t, 7, sel.Start)
	assert.Equal(t, 13, sel.End)
}

func TestSelect_CapturedLocal(t *testing.T) {
	c := newTestContext(t)
	capture := Capture{Locals: []LocalVariable{{Name: "x", TypeName: "int"}}}
	rec := &selectionRecorder{}
	require.NoError(t, c.Select("x + 1", 0, 1, capture, rec))

	require.Len(t, rec.got, 1)
	assert.Equal(t, types.ElementLocalVariable, rec.got[0].Kind)
	assert.Equal(t, "x", rec.got[0].Name)
}

func TestSelect_Method(t *testing.T) {
	c := newTestContext(t)
	rec := &selectionRecorder{}
	require.NoError(t, c.Select("return twice(2);", 7, 12, inOuter, rec))

	require.Len(t, rec.got, 1)
	sel := rec.got[0]
	assert.Equal(t, types.ElementMethod, sel.Kind)
	assert.Equal(t, "twice", sel.Name)
	assert.Equal(t, []string{"int"}, sel.Parameters)
	assert.Equal(t, 7, sel.Start)
	assert.Equal(t, 12, sel.End)
}
