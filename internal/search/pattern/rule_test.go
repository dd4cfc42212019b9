package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCamelCaseMatch(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"NPE", "NullPointerException", true},
		{"npe", "NullPointerException", false},
		{"NPExcep", "NullPointerException", true},
		{"NPExcep", "NullPointerExCEPTION", false},
		{"NuPE", "NullPointerException", true},
		{"NPE", "NoPermissionError", true},
		{"NPE", "NullPointer", false},
		{"HM", "HashMap", true},
		{"HM", "HashMapEntry", true},
		{"HMap", "HashMap", true},
		{"HMap", "HashMemoryMap", false},
		{"", "Anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CamelCaseMatch(tt.pattern, tt.name))
		})
	}
}

func TestValidateMatchRule(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		rule    MatchRule
		want    MatchRule
		wantErr bool
	}{
		{"pattern without wildcards", "Foo", RulePattern, RuleExact, false},
		{"pattern drops redundant prefix", "Foo", RulePattern | RulePrefix | RuleCaseSensitive, RuleCaseSensitive, false},
		{"pattern with wildcards drops camel case", "Foo*", RulePattern | RuleCamelCase, RulePattern, false},
		{"question mark is a wildcard", "F?o", RulePattern | RuleCaseSensitive, RulePattern | RuleCaseSensitive, false},
		{"camel case absorbs case sensitive prefix", "NPE", RuleCamelCase | RulePrefix | RuleCaseSensitive, RuleCamelCase, false},
		{"camel case keeps plain prefix", "NPE", RuleCamelCase | RulePrefix, RuleCamelCase | RulePrefix, false},
		{"invalid camel case becomes prefix", "npe", RuleCamelCase, RulePrefix | RuleCaseSensitive, false},
		{"dotted name is not camel case", "a.B", RuleCamelCase, RulePrefix | RuleCaseSensitive, false},
		{"invalid camel case forces case sensitive prefix", "foo", RuleCamelCase | RulePrefix, RulePrefix | RuleCaseSensitive, false},
		{"single leading upper case is not camel case", "Foo", RuleCamelCase, RulePrefix | RuleCaseSensitive, false},
		{"lower camel case", "hashMap", RuleCamelCase, RuleCamelCase, false},
		{"regexp alone", "F.*", RuleRegexp, RuleRegexp, false},
		{"regexp with prefix", "F.*", RuleRegexp | RulePrefix, 0, true},
		{"regexp with camel case", "NPE", RuleRegexp | RuleCamelCase, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateMatchRule(tt.s, tt.rule)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidMatchRule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "got %s", got)
		})
	}
}

func TestValidateMatchRule_Idempotent(t *testing.T) {
	inputs := []string{"Foo", "Foo*", "F?o", "NPE", "npe", "a.B", "HashMap", "x", "_Ab", "Nu*PE"}
	all := RulePrefix | RulePattern | RuleRegexp | RuleCaseSensitive |
		RuleErasure | RuleEquivalent | RuleFull | RuleCamelCase

	for _, s := range inputs {
		for rule := MatchRule(0); rule <= all; rule++ {
			once, err := ValidateMatchRule(s, rule)
			if err != nil {
				_, err2 := ValidateMatchRule(s, rule)
				assert.Error(t, err2)
				continue
			}
			twice, err := ValidateMatchRule(s, once)
			require.NoError(t, err)
			assert.Equal(t, once, twice, "%q with %s", s, rule)
		}
	}
}

func TestMatchName(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		value   string
		rule    MatchRule
		want    bool
	}{
		{"exact case sensitive", "Foo", "Foo", RuleCaseSensitive, true},
		{"exact case mismatch", "Foo", "foo", RuleCaseSensitive, false},
		{"exact case insensitive", "Foo", "foo", RuleExact, true},
		{"exact longer name", "Foo", "Foobar", RuleCaseSensitive, false},
		{"prefix", "Fo", "Foo", RulePrefix | RuleCaseSensitive, true},
		{"prefix case insensitive", "fo", "Foo", RulePrefix, true},
		{"prefix case mismatch", "fo", "Foo", RulePrefix | RuleCaseSensitive, false},
		{"wildcard star", "F*o", "Fzzo", RulePattern, true},
		{"wildcard question", "F?o", "Fo", RulePattern, false},
		{"wildcard case insensitive", "f*", "Foo", RulePattern, true},
		{"regexp", "F.o", "Foo", RuleRegexp | RuleCaseSensitive, true},
		{"regexp anchored", "F.o", "Fooo", RuleRegexp, false},
		{"regexp invalid", "F(", "F(", RuleRegexp, false},
		{"camel case", "NPE", "NullPointerException", RuleCamelCase, true},
		{"camel case sensitive failure", "NPE", "npeHelper", RuleCamelCase | RuleCaseSensitive, false},
		{"camel case falls back to prefix", "NPE", "npeHelper", RuleCamelCase, true},
		{"empty pattern", "", "Anything", RuleCaseSensitive, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchName(tt.pattern, tt.value, tt.rule))
		})
	}
}

func TestWildcardMatch(t *testing.T) {
	assert.True(t, WildcardMatch("*", "", true))
	assert.True(t, WildcardMatch("*Map", "HashMap", true))
	assert.True(t, WildcardMatch("H*M*p", "HashMap", true))
	assert.False(t, WildcardMatch("H*M*p", "HashMaps", true))
	assert.True(t, WildcardMatch("h*map", "HashMap", false))
	assert.False(t, WildcardMatch("h*map", "HashMap", true))
}

func TestScanPrefix(t *testing.T) {
	assert.Equal(t, "Foo/", ScanPrefix("Foo", RuleCaseSensitive, "/"))
	assert.Equal(t, "", ScanPrefix("Foo", RuleExact, "/"))
	assert.Equal(t, "Fo", ScanPrefix("Fo*", RulePattern|RuleCaseSensitive, "/"))
	assert.Equal(t, "Foo", ScanPrefix("Foo", RulePrefix|RuleCaseSensitive, "/"))
	assert.Equal(t, "", ScanPrefix("NPE", RuleCamelCase|RuleCaseSensitive, ""))
	assert.Equal(t, "", ScanPrefix("", RuleCaseSensitive, "/"))
}

func TestMatchRule_String(t *testing.T) {
	assert.Equal(t, "EXACT", RuleExact.String())
	assert.Equal(t, "EXACT|CASE_SENSITIVE", RuleCaseSensitive.String())
	assert.Equal(t, "PREFIX|CASE_SENSITIVE", (RulePrefix | RuleCaseSensitive).String())
}

func TestParseMatchRule(t *testing.T) {
	for _, r := range []MatchRule{RuleExact, RuleCaseSensitive, RulePrefix | RuleCaseSensitive, RulePattern | RuleErasure, RuleCamelCase | RuleFull} {
		got, err := ParseMatchRule(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got, r.String())
	}

	got, err := ParseMatchRule("prefix, case_sensitive")
	require.NoError(t, err)
	assert.Equal(t, RulePrefix|RuleCaseSensitive, got)

	got, err = ParseMatchRule("")
	require.NoError(t, err)
	assert.Equal(t, RuleExact, got)

	_, err = ParseMatchRule("fuzzy")
	assert.ErrorIs(t, err, ErrInvalidMatchRule)
}
