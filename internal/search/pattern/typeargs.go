package pattern

import (
	"strings"

	"github.com/dshills/javacontext-mcp/pkg/types"
)

// SplitTypeArguments splits "Map<K, List<V>>" into "Map" and its top level
// arguments ["K", "List<V>"]. It reports false when the angle brackets are
// unbalanced.
func SplitTypeArguments(s string) (erasure string, args []string, ok bool) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '<')
	if open < 0 {
		if strings.ContainsRune(s, '>') {
			return "", nil, false
		}
		return s, nil, true
	}
	if !strings.HasSuffix(s, ">") {
		// array of a parameterized type: List<String>[]
		closeIdx := strings.LastIndexByte(s, '>')
		if closeIdx < 0 || strings.TrimSpace(strings.Trim(s[closeIdx+1:], "[] ")) != "" {
			return "", nil, false
		}
		erasure, args, ok = SplitTypeArguments(s[:closeIdx+1])
		return erasure + s[closeIdx+1:], args, ok
	}
	inner := s[open+1 : len(s)-1]
	depth, start := 0, 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return "", nil, false
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return "", nil, false
	}
	args = append(args, strings.TrimSpace(inner[start:]))
	for _, a := range args {
		if a == "" {
			return "", nil, false
		}
	}
	return strings.TrimSpace(s[:open]), args, true
}

// eraseTypeArguments removes every <...> group of a type name.
func eraseTypeArguments(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var sb strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
		case depth == 0:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// MatchTypeArguments compares the type arguments of a pattern with those of
// a candidate type and returns the generic rule to report. With no flag
// set every candidate is reported with its rule. RuleFull accepts only
// identical arguments, RuleEquivalent also compatible ones, and
// RuleErasure any candidate with the same erasure.
func MatchTypeArguments(rule MatchRule, pattern, actual []string) (types.GenericRule, bool) {
	got := compareArguments(pattern, actual)
	switch {
	case rule&RuleFull != 0:
		return got, got == types.RuleExact
	case rule&RuleEquivalent != 0:
		return got, got != types.RuleErasure
	default:
		return got, true
	}
}

func compareArguments(pattern, actual []string) types.GenericRule {
	switch {
	case len(pattern) == 0 && len(actual) == 0:
		return types.RuleExact
	case len(pattern) == 0 || len(actual) == 0:
		// raw type on one side
		return types.RuleErasure
	case len(pattern) != len(actual):
		return types.RuleErasure
	}
	rule := types.RuleExact
	for i := range pattern {
		p, a := normalizeArgument(pattern[i]), normalizeArgument(actual[i])
		switch {
		case p == a:
		case compatibleArgument(p, a):
			rule = types.RuleCompatible
		default:
			return types.RuleErasure
		}
	}
	return rule
}

func normalizeArgument(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// compatibleArgument reports whether the pattern argument p can stand
// where a is written: a wildcard on either side, or a bounded wildcard whose
// bound names p.
func compatibleArgument(p, a string) bool {
	if p == "?" || a == "?" {
		return true
	}
	for _, prefix := range []string{"? extends ", "? super "} {
		if strings.HasPrefix(a, prefix) && simpleTypeName(strings.TrimPrefix(a, prefix)) == simpleTypeName(p) {
			return true
		}
		if strings.HasPrefix(p, prefix) && simpleTypeName(strings.TrimPrefix(p, prefix)) == simpleTypeName(a) {
			return true
		}
	}
	return simpleTypeName(p) == simpleTypeName(a) && p != a
}

func simpleTypeName(s string) string {
	_, simple := splitQualified(eraseTypeArguments(s))
	return simple
}
