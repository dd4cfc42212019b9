package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

// decode runs the blank-decode-match cycle a query applies to each key.
func decode(t *testing.T, p Pattern, category index.Category, key string) bool {
	t.Helper()
	blank := p.Blank()
	if !blank.DecodeIndexKey(category, key) {
		return false
	}
	return p.MatchesDecodedKey(blank)
}

func TestTypeDeclarationPattern(t *testing.T) {
	circle := index.TypeDeclKey{SimpleName: "Circle", Package: "geo", Kind: index.KindClass}.Encode()
	inner := index.TypeDeclKey{SimpleName: "Inner", Package: "lib", EnclosingTypes: []string{"Outer"}, Kind: index.KindInterface}.Encode()

	p := NewTypeDeclarationPattern("", "Circle", "", RuleCaseSensitive)
	assert.Equal(t, []index.Category{index.CategoryTypeDecl}, p.IndexCategories())
	assert.Equal(t, "Circle/", p.IndexKey())
	assert.True(t, decode(t, p, index.CategoryTypeDecl, circle))
	assert.False(t, decode(t, p, index.CategoryTypeDecl, inner))
	assert.False(t, decode(t, p, index.CategoryTypeDecl, "malformed"))

	assert.True(t, decode(t, NewTypeDeclarationPattern("geo", "Circle", "C", RuleCaseSensitive), index.CategoryTypeDecl, circle))
	assert.False(t, decode(t, NewTypeDeclarationPattern("geo", "Circle", "I", RuleCaseSensitive), index.CategoryTypeDecl, circle))
	assert.False(t, decode(t, NewTypeDeclarationPattern("other", "Circle", "", RuleCaseSensitive), index.CategoryTypeDecl, circle))

	t.Run("enclosing types", func(t *testing.T) {
		assert.True(t, decode(t, NewTypeDeclarationPattern("Outer", "Inner", "", RuleCaseSensitive), index.CategoryTypeDecl, inner))
		assert.True(t, decode(t, NewTypeDeclarationPattern("lib.Outer", "Inner", "", RuleCaseSensitive), index.CategoryTypeDecl, inner))
		assert.False(t, decode(t, NewTypeDeclarationPattern("ter", "Inner", "", RuleCaseSensitive), index.CategoryTypeDecl, inner))
		assert.True(t, decode(t, NewTypeDeclarationPattern("lib.*", "Inner", "", RuleCaseSensitive), index.CategoryTypeDecl, inner))
	})

	t.Run("prefix", func(t *testing.T) {
		p := NewTypeDeclarationPattern("", "Cir", "", RulePrefix|RuleCaseSensitive)
		assert.Equal(t, "Cir", p.IndexKey())
		assert.True(t, decode(t, p, index.CategoryTypeDecl, circle))
	})
}

func TestTypeReferencePattern(t *testing.T) {
	p := NewTypeReferencePattern("java.util", "List", []string{"String"}, RuleCaseSensitive)
	assert.Equal(t, []index.Category{index.CategoryRef}, p.IndexCategories())
	assert.Equal(t, "List", p.IndexKey())
	assert.True(t, decode(t, p, index.CategoryRef, "List"))
	assert.False(t, decode(t, p, index.CategoryRef, "ArrayList"))
	assert.True(t, p.MatchesType("java.util", "List"))
	assert.False(t, p.MatchesType("java.awt", "List"))
	assert.Contains(t, p.String(), "java.util.List<String>")
}

func TestSuperTypeReferencePattern(t *testing.T) {
	extends := index.SuperRefKey{
		SuperSimpleName: "Shape", SimpleName: "Circle", Package: "geo", SuperKind: index.KindClass,
	}.Encode()
	qualified := index.SuperRefKey{
		SuperSimpleName: "Shape", SuperQualification: "other", SimpleName: "Square", Package: "geo", SuperKind: index.KindClass,
	}.Encode()

	p := NewSuperTypeReferencePattern("geo", "Shape", AllSuperTypes, RuleCaseSensitive)
	assert.Equal(t, "Shape/", p.IndexKey())
	assert.True(t, decode(t, p, index.CategorySuperRef, extends), "unqualified clauses are kept")
	assert.False(t, decode(t, p, index.CategorySuperRef, qualified))

	onlyInterfaces := NewSuperTypeReferencePattern("", "Shape", OnlySuperInterfaces, RuleCaseSensitive)
	assert.False(t, decode(t, onlyInterfaces, index.CategorySuperRef, extends))

	blank := p.Blank()
	require.True(t, blank.DecodeIndexKey(index.CategorySuperRef, extends))
	assert.Equal(t, "geo.Circle", blank.(*SuperTypeReferencePattern).SubtypeQualifiedName())
}

func TestMethodPattern(t *testing.T) {
	p := NewMethodPattern("area", "", "", []string{"int"}, Declarations, RuleCaseSensitive)
	assert.Equal(t, []index.Category{index.CategoryMethodDecl}, p.IndexCategories())
	assert.Equal(t, "area/1", p.IndexKey())
	assert.True(t, decode(t, p, index.CategoryMethodDecl, index.MethodKey{Selector: "area", ArgCount: 1}.Encode()))
	assert.False(t, decode(t, p, index.CategoryMethodDecl, index.MethodKey{Selector: "area", ArgCount: 2}.Encode()))

	all := NewMethodPattern("area", "", "", nil, AllOccurrences, RuleCaseSensitive)
	assert.Equal(t, []index.Category{index.CategoryMethodRef, index.CategoryMethodDecl}, all.IndexCategories())
	assert.Equal(t, "area/", all.IndexKey())
	assert.True(t, decode(t, all, index.CategoryMethodRef, "area/7"))

	t.Run("varargs", func(t *testing.T) {
		p := NewMethodPattern("format", "", "", []string{"String", "Object..."}, References, RuleCaseSensitive)
		assert.True(t, p.Varargs)
		assert.Equal(t, "format/", p.IndexKey())
		for n, want := range map[int]bool{0: false, 1: true, 2: true, 5: true} {
			assert.Equal(t, want, decode(t, p, index.CategoryMethodRef, index.MethodKey{Selector: "format", ArgCount: n}.Encode()), "arity %d", n)
		}
	})

	t.Run("parameters", func(t *testing.T) {
		p := NewMethodPattern("put", "", "Map", []string{"java.util.Map<K, V>", "int"}, Declarations, RuleCaseSensitive)
		assert.Equal(t, []string{"Map", "int"}, p.ParameterSimpleNames)
		assert.Equal(t, []string{"java.util", ""}, p.ParameterQualifications)
		assert.True(t, p.MatchesParameters([]string{"Map", "int"}))
		assert.False(t, p.MatchesParameters([]string{"Map", "long"}))
		assert.True(t, p.MatchesDeclaringType("java.util", "Map"))
		assert.False(t, p.MatchesDeclaringType("java.util", "List"))
	})
}

func TestConstructorPattern(t *testing.T) {
	p := NewConstructorPattern("geo", "Point", nil, AllOccurrences, RuleCaseSensitive)
	assert.Equal(t, []index.Category{index.CategoryConstructorRef, index.CategoryConstructorDecl}, p.IndexCategories())
	assert.Equal(t, "Point/", p.IndexKey())

	assert.True(t, decode(t, p, index.CategoryConstructorRef, index.ConstructorKey{TypeName: "Point", ArgCount: 2}.Encode()))
	assert.True(t, decode(t, p, index.CategoryConstructorDecl, index.ConstructorKey{TypeName: "Point", Package: "geo"}.Encode()))
	assert.False(t, decode(t, p, index.CategoryConstructorDecl, index.ConstructorKey{TypeName: "Point", Package: "other"}.Encode()))

	nested := NewConstructorPattern("geo.Circle", "Point", []string{}, Declarations, RuleCaseSensitive)
	assert.Equal(t, "Point/0/", nested.IndexKey())
	assert.True(t, decode(t, nested, index.CategoryConstructorDecl, index.ConstructorKey{TypeName: "Point", Package: "geo"}.Encode()))
	assert.False(t, decode(t, nested, index.CategoryConstructorDecl, index.ConstructorKey{TypeName: "Point", ArgCount: 1, Package: "geo"}.Encode()))
}

func TestFieldPattern(t *testing.T) {
	read := NewFieldPattern("radius", "", "", ReadAccesses, RuleCaseSensitive)
	assert.Equal(t, []index.Category{index.CategoryRef}, read.IndexCategories())
	assert.True(t, read.ReadAccess)
	assert.False(t, read.WriteAccess)

	all := NewFieldPattern("radius", "geo", "Circle", AllOccurrences, RuleCaseSensitive)
	assert.Equal(t, []index.Category{index.CategoryRef, index.CategoryFieldDecl}, all.IndexCategories())
	assert.Equal(t, "radius", all.IndexKey())
	assert.True(t, decode(t, all, index.CategoryFieldDecl, index.FieldDeclKey("radius")))
	assert.False(t, decode(t, all, index.CategoryFieldDecl, index.FieldDeclKey("radiusSquared")))
	assert.True(t, all.MatchesField("radius", "geo", "Circle"))
	assert.False(t, all.MatchesField("radius", "geo", "Square"))
}

func TestPackagePatterns(t *testing.T) {
	decl := NewPackageDeclarationPattern("java.util", RuleCaseSensitive)
	assert.Empty(t, decl.IndexCategories())
	assert.True(t, decl.MatchesPackage("java.util"))
	assert.False(t, decl.MatchesPackage("java.util.concurrent"))

	ref := NewPackageReferencePattern("java.util", RuleCaseSensitive)
	assert.Equal(t, "util", ref.IndexKey())
	assert.True(t, decode(t, ref, index.CategoryRef, "util"))
	assert.False(t, decode(t, ref, index.CategoryRef, "java"))
}

func TestOrPattern(t *testing.T) {
	a := NewTypeReferencePattern("", "A", nil, RuleCaseSensitive)
	b := NewTypeReferencePattern("", "B", nil, RuleCaseSensitive)
	c := NewFieldPattern("c", "", "", References, RulePrefix|RuleCaseSensitive)

	or := NewOrPattern(NewOrPattern(a, b), nil, c)
	require.Len(t, or.Patterns, 3)
	assert.Empty(t, or.IndexCategories())
	assert.Equal(t, RuleCaseSensitive|RulePrefix, or.Rule())
	assert.Contains(t, or.String(), " | ")
}

func TestMatchTypeArguments(t *testing.T) {
	tests := []struct {
		name     string
		rule     MatchRule
		pattern  []string
		actual   []string
		wantRule types.GenericRule
		wantOK   bool
	}{
		{"both raw", RuleFull, nil, nil, types.RuleExact, true},
		{"identical under full", RuleFull, []string{"String"}, []string{"String"}, types.RuleExact, true},
		{"wildcard under full", RuleFull, []string{"String"}, []string{"?"}, types.RuleCompatible, false},
		{"bounded wildcard under equivalent", RuleEquivalent, []string{"String"}, []string{"? extends String"}, types.RuleCompatible, true},
		{"different under equivalent", RuleEquivalent, []string{"String"}, []string{"Integer"}, types.RuleErasure, false},
		{"different without flags", RuleExact, []string{"String"}, []string{"Integer"}, types.RuleErasure, true},
		{"raw pattern under erasure", RuleErasure, nil, []string{"String"}, types.RuleErasure, true},
		{"raw pattern under full", RuleFull, nil, []string{"String"}, types.RuleErasure, false},
		{"qualified argument", RuleEquivalent, []string{"String"}, []string{"java.lang.String"}, types.RuleCompatible, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := MatchTypeArguments(tt.rule, tt.pattern, tt.actual)
			assert.Equal(t, tt.wantRule, rule)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestSplitTypeArguments(t *testing.T) {
	erasure, args, ok := SplitTypeArguments("Map<K, List<V>>")
	require.True(t, ok)
	assert.Equal(t, "Map", erasure)
	assert.Equal(t, []string{"K", "List<V>"}, args)

	erasure, args, ok = SplitTypeArguments("List<String>[]")
	require.True(t, ok)
	assert.Equal(t, "List[]", erasure)
	assert.Equal(t, []string{"String"}, args)

	for _, bad := range []string{"List<String", "A>", "X<,>", "X<A>>"} {
		_, _, ok := SplitTypeArguments(bad)
		assert.False(t, ok, bad)
	}
}

func TestCreatePattern(t *testing.T) {
	const cs = RuleCaseSensitive

	t.Run("type reference", func(t *testing.T) {
		p, ok := CreatePattern("java.util.List<String>", SearchType, References, cs).(*TypeReferencePattern)
		require.True(t, ok)
		assert.Equal(t, "java.util", p.Qualification)
		assert.Equal(t, "List", p.SimpleName)
		assert.Equal(t, []string{"String"}, p.TypeArguments)
	})

	t.Run("type declaration kinds", func(t *testing.T) {
		p, ok := CreatePattern("Shape", SearchInterface, Declarations, cs).(*TypeDeclarationPattern)
		require.True(t, ok)
		assert.Equal(t, "I", p.Kinds)
	})

	t.Run("all occurrences", func(t *testing.T) {
		p, ok := CreatePattern("geo.Circle", SearchType, AllOccurrences, cs).(*OrPattern)
		require.True(t, ok)
		require.Len(t, p.Patterns, 2)
		assert.IsType(t, &TypeDeclarationPattern{}, p.Patterns[0])
		assert.IsType(t, &TypeReferencePattern{}, p.Patterns[1])
	})

	t.Run("implementors", func(t *testing.T) {
		p, ok := CreatePattern("Runnable", SearchInterface, Implementors, cs).(*SuperTypeReferencePattern)
		require.True(t, ok)
		assert.Equal(t, OnlySuperInterfaces, p.SuperKinds)
		assert.Equal(t, "Runnable", p.SuperSimpleName)
	})

	t.Run("method", func(t *testing.T) {
		p, ok := CreatePattern("geo.Circle.area(int) double", SearchMethod, Declarations, cs).(*MethodPattern)
		require.True(t, ok)
		assert.Equal(t, "area", p.Selector)
		assert.Equal(t, "geo", p.DeclaringQualification)
		assert.Equal(t, "Circle", p.DeclaringSimpleName)
		assert.Equal(t, 1, p.ParameterCount)
		assert.Equal(t, []string{"int"}, p.ParameterSimpleNames)
		assert.Equal(t, "double", p.ReturnSimpleName)
		assert.True(t, p.FindDeclarations)
		assert.False(t, p.FindReferences)
	})

	t.Run("method without parameters", func(t *testing.T) {
		p, ok := CreatePattern("run", SearchMethod, References, cs).(*MethodPattern)
		require.True(t, ok)
		assert.Equal(t, AnyArity, p.ParameterCount)
		assert.Empty(t, p.DeclaringSimpleName)
	})

	t.Run("constructor", func(t *testing.T) {
		p, ok := CreatePattern("geo.Point(int, int)", SearchConstructor, References, cs).(*ConstructorPattern)
		require.True(t, ok)
		assert.Equal(t, "geo", p.DeclaringQualification)
		assert.Equal(t, "Point", p.DeclaringSimpleName)
		assert.Equal(t, 2, p.ParameterCount)
	})

	t.Run("field", func(t *testing.T) {
		p, ok := CreatePattern("geo.Circle.radius double", SearchField, WriteAccesses, cs).(*FieldPattern)
		require.True(t, ok)
		assert.Equal(t, "radius", p.Name)
		assert.Equal(t, "Circle", p.DeclaringSimpleName)
		assert.Equal(t, "double", p.TypeSimpleName)
		assert.True(t, p.WriteAccess)
		assert.False(t, p.ReadAccess)
	})

	t.Run("package", func(t *testing.T) {
		assert.IsType(t, &PackageDeclarationPattern{}, CreatePattern("java.util", SearchPackage, Declarations, cs))
		assert.IsType(t, &PackageReferencePattern{}, CreatePattern("java.util", SearchPackage, References, cs))
	})

	t.Run("pattern rule is validated", func(t *testing.T) {
		p, ok := CreatePattern("Foo", SearchType, Declarations, RulePattern|RuleCaseSensitive).(*TypeDeclarationPattern)
		require.True(t, ok)
		assert.Equal(t, RuleCaseSensitive, p.Rule())
	})

	t.Run("malformed", func(t *testing.T) {
		malformed := []struct {
			s    string
			kind SearchFor
		}{
			{"", SearchType},
			{"List<String", SearchType},
			{"a..b", SearchType},
			{"foo bar", SearchType},
			{"m(int", SearchMethod},
			{"m(int,)", SearchMethod},
			{"m)", SearchMethod},
			{"Point(int) void", SearchConstructor},
			{"a.b c d", SearchField},
			{"java..util", SearchPackage},
		}
		for _, m := range malformed {
			assert.Nil(t, CreatePattern(m.s, m.kind, References, cs), m.s)
		}
		assert.Nil(t, CreatePattern("Foo", SearchType, References, RuleRegexp|RulePrefix))
	})
}

func TestCreatePatternForElement(t *testing.T) {
	field := types.Element{Kind: types.ElementField, Name: "value", DeclaringType: "p.B", Type: "String"}
	fp, ok := CreatePatternForElement(field, References, RuleCaseSensitive).(*FieldPattern)
	require.True(t, ok)
	assert.Equal(t, "p", fp.DeclaringQualification)
	assert.Equal(t, "B", fp.DeclaringSimpleName)
	assert.Equal(t, "String", fp.TypeSimpleName)

	method := types.Element{Kind: types.ElementMethod, Name: "test", DeclaringType: "p.X", Type: "void"}
	mp, ok := CreatePatternForElement(method, Declarations, RuleCaseSensitive).(*MethodPattern)
	require.True(t, ok)
	assert.Equal(t, 0, mp.ParameterCount)
	assert.Equal(t, "test/0", mp.IndexKey())

	typ := types.Element{Kind: types.ElementType, Name: "A", Package: "p"}
	tp, ok := CreatePatternForElement(typ, Declarations, RuleCaseSensitive).(*TypeDeclarationPattern)
	require.True(t, ok)
	assert.Equal(t, "p", tp.Qualification)

	local := types.Element{Kind: types.ElementLocalVariable, Name: "b", Path: "/src/X.java"}
	lp, ok := CreatePatternForElement(local, WriteAccesses, RuleCaseSensitive).(*LocalVariablePattern)
	require.True(t, ok)
	assert.True(t, lp.WriteAccess)
	assert.False(t, lp.FindDeclarations)

	assert.Nil(t, CreatePatternForElement(types.Element{Kind: types.ElementField, Name: "orphan"}, References, RuleCaseSensitive))
}

func TestParseLimitTo(t *testing.T) {
	l, ok := ParseLimitTo("read_accesses")
	require.True(t, ok)
	assert.Equal(t, ReadAccesses, l)
	_, ok = ParseLimitTo("sideways")
	assert.False(t, ok)

	sf, ok := ParseSearchFor("Constructor")
	require.True(t, ok)
	assert.Equal(t, SearchConstructor, sf)
}
