package scope

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/javacontext-mcp/pkg/types"
)

func TestJavaSearchScope_EnclosesPath(t *testing.T) {
	proj := filepath.FromSlash("/work/proj")
	s := NewJavaSearchScope()
	s.Add(proj, filepath.Join(proj, "src", "main"), true)
	s.Add(proj, filepath.Join(proj, "tools"), false)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"subtree root child", filepath.Join(proj, "src", "main", "A.java"), true},
		{"subtree deep", filepath.Join(proj, "src", "main", "p", "q", "B.java"), true},
		{"sibling", filepath.Join(proj, "src", "mainly", "C.java"), false},
		{"direct child only", filepath.Join(proj, "tools", "T.java"), true},
		{"nested below non subtree", filepath.Join(proj, "tools", "x", "T.java"), false},
		{"outside", filepath.Join(proj, "test", "A.java"), false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.EnclosesPath(tt.path))
		})
	}
}

func TestJavaSearchScope_Exclude(t *testing.T) {
	proj := filepath.FromSlash("/work/proj")
	s := NewJavaSearchScope()
	s.AddContainer(proj)
	require.NoError(t, s.Exclude("**/generated/**"))

	assert.True(t, s.EnclosesPath(filepath.Join(proj, "src", "A.java")))
	assert.False(t, s.EnclosesPath(filepath.Join(proj, "src", "generated", "G.java")))

	assert.Error(t, s.Exclude("[unclosed"))
}

func TestJavaSearchScope_Encloses(t *testing.T) {
	proj := filepath.FromSlash("/work/proj")
	lib := filepath.FromSlash("/work/lib")
	s := NewJavaSearchScope()
	s.AddContainer(proj)
	s.Add(lib, filepath.Join(lib, "src"), true)

	assert.True(t, s.Encloses(types.Element{Kind: types.ElementType, Name: "A", Path: filepath.Join(proj, "A.java")}))
	assert.True(t, s.Encloses(types.Element{Kind: types.ElementType, Name: "B", Container: proj}))
	assert.False(t, s.Encloses(types.Element{Kind: types.ElementType, Name: "C", Container: lib}))
	assert.Equal(t, []string{filepath.Clean(proj), filepath.Clean(lib)}, s.Containers())
}

func TestWorkspace(t *testing.T) {
	w := NewWorkspace()
	assert.True(t, w.EnclosesPath("/anything"))
	assert.True(t, w.Encloses(types.Element{Kind: types.ElementPackage}))
	assert.Nil(t, w.Containers())
}

func TestHierarchyScope(t *testing.T) {
	h := NewHierarchyScope("p.B", []HierarchyMember{
		{QualifiedName: "p.A", Path: "/w/p/A.java", Container: "/w"},
		{QualifiedName: "p.B", Path: "/w/p/B.java", Container: "/w"},
		{QualifiedName: "q.C", Path: "/lib/q/C.java", Container: "/lib"},
		{QualifiedName: "java.lang.Object"},
	})

	assert.Equal(t, "p.B", h.Focus())
	assert.True(t, h.Contains("java.lang.Object"))
	assert.False(t, h.Contains("p.X"))
	assert.True(t, h.EnclosesPath("/w/p/A.java"))
	assert.False(t, h.EnclosesPath("/w/p/X.java"))

	assert.True(t, h.Encloses(types.Element{Kind: types.ElementType, Name: "C", Package: "q"}))
	assert.True(t, h.Encloses(types.Element{Kind: types.ElementField, Name: "f", DeclaringType: "p.A"}))
	assert.False(t, h.Encloses(types.Element{Kind: types.ElementMethod, Name: "m", DeclaringType: "p.X"}))

	assert.Equal(t, []string{"/lib", "/w"}, h.Containers())

	members := h.Members()
	require.Len(t, members, 4)
	assert.Equal(t, "java.lang.Object", members[0].QualifiedName)
	assert.Equal(t, "q.C", members[3].QualifiedName)
}
