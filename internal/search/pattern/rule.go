package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MatchRule is a bitset combining one matching mode with orthogonal flags.
type MatchRule int

// Match modes and flags. The zero rule is a case-insensitive exact match.
const (
	RuleExact         MatchRule = 0
	RulePrefix        MatchRule = 0x0001
	RulePattern       MatchRule = 0x0002
	RuleRegexp        MatchRule = 0x0004
	RuleCaseSensitive MatchRule = 0x0008
	RuleErasure       MatchRule = 0x0010
	RuleEquivalent    MatchRule = 0x0020
	RuleFull          MatchRule = 0x0040
	RuleCamelCase     MatchRule = 0x0080
)

// modeMask selects the mode bits of a rule.
const modeMask = RulePrefix | RulePattern | RuleRegexp | RuleCamelCase

// ErrInvalidMatchRule is returned when a rule combines regular expression
// matching with another mode.
var ErrInvalidMatchRule = errors.New("invalid match rule")

// Has reports whether every bit of flag is set.
func (r MatchRule) Has(flag MatchRule) bool { return r&flag == flag && flag != 0 }

// CaseSensitive reports whether names are compared case-sensitively.
func (r MatchRule) CaseSensitive() bool { return r.Has(RuleCaseSensitive) }

func (r MatchRule) String() string {
	if r == RuleExact {
		return "EXACT"
	}
	var parts []string
	for _, f := range []struct {
		bit  MatchRule
		name string
	}{
		{RulePrefix, "PREFIX"}, {RulePattern, "PATTERN"}, {RuleRegexp, "REGEXP"},
		{RuleCaseSensitive, "CASE_SENSITIVE"}, {RuleErasure, "ERASURE"},
		{RuleEquivalent, "EQUIVALENT"}, {RuleFull, "FULL"}, {RuleCamelCase, "CAMELCASE"},
	} {
		if r&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	if r&modeMask == 0 {
		parts = append([]string{"EXACT"}, parts...)
	}
	return strings.Join(parts, "|")
}

var ruleNames = map[string]MatchRule{
	"EXACT":          RuleExact,
	"PREFIX":         RulePrefix,
	"PATTERN":        RulePattern,
	"REGEXP":         RuleRegexp,
	"CASE_SENSITIVE": RuleCaseSensitive,
	"ERASURE":        RuleErasure,
	"EQUIVALENT":     RuleEquivalent,
	"FULL":           RuleFull,
	"CAMELCASE":      RuleCamelCase,
}

// ParseMatchRule is the inverse of MatchRule.String. Names are separated
// by "|" or "," and compared case-insensitively; the empty string is
// RuleExact.
func ParseMatchRule(s string) (MatchRule, error) {
	var rule MatchRule
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		bit, ok := ruleNames[strings.ToUpper(strings.TrimSpace(part))]
		if !ok {
			return 0, fmt.Errorf("%w: unknown flag %q", ErrInvalidMatchRule, part)
		}
		rule |= bit
	}
	return rule, nil
}

// ValidateMatchRule normalizes rule for the string it will be applied to.
// Regular expressions cannot be combined with another mode. A pattern rule
// without * or ? is cleared together with a redundant prefix bit; a pattern
// rule with wildcards drops camel case and prefix. A camel case rule on a
// string that is not a camel case identifier degrades to a case-sensitive
// prefix rule, and a valid camel case rule absorbs a case-sensitive prefix.
//
// Applying ValidateMatchRule to its own result returns it unchanged.
func ValidateMatchRule(s string, rule MatchRule) (MatchRule, error) {
	if rule&RuleRegexp != 0 && rule&(RulePrefix|RulePattern|RuleCamelCase) != 0 {
		return rule, ErrInvalidMatchRule
	}
	if rule&RulePattern != 0 {
		if !strings.ContainsAny(s, "*?") {
			rule &^= RulePattern | RulePrefix
		} else {
			return rule &^ (RuleCamelCase | RulePrefix), nil
		}
	}
	if rule&RuleCamelCase != 0 {
		rule = validateCamelCase(s, rule)
	}
	return rule, nil
}

func validateCamelCase(s string, rule MatchRule) MatchRule {
	if isCamelCasePattern(s) {
		if rule&RulePrefix != 0 && rule&RuleCaseSensitive != 0 {
			rule &^= RulePrefix | RuleCaseSensitive
		}
		return rule
	}
	rule &^= RuleCamelCase
	return rule | RulePrefix | RuleCaseSensitive
}

// isCamelCasePattern reports whether s is an identifier holding an upper
// case letter after its first character: "NPE" and "hashMap" are camel
// case patterns, "Foo" and "npe" are not.
func isCamelCasePattern(s string) bool {
	upper := false
	for i, r := range s {
		if i == 0 && !isIdentStart(r) || i > 0 && !isIdentPart(r) {
			return false
		}
		if i > 0 && unicode.IsUpper(r) {
			upper = true
		}
	}
	return upper
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// CamelCaseMatch reports whether name matches the camel case pattern: the
// first characters are equal, every upper case letter or digit of the
// pattern is found at the start of a later part of the name in order, and
// lower case runs of the pattern continue the current part literally.
func CamelCaseMatch(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	p := []rune(pattern)
	n := []rune(name)
	if len(n) == 0 || p[0] != n[0] {
		return false
	}
	ip, in := 0, 0
	for {
		ip++
		in++
		if ip == len(p) {
			return true
		}
		if in == len(n) {
			return false
		}
		pc := p[ip]
		if pc == n[in] {
			continue
		}
		// a lower case pattern character must match the name literally
		if !unicode.IsUpper(pc) && !unicode.IsDigit(pc) {
			return false
		}
	search:
		for {
			if in == len(n) {
				return false
			}
			nc := n[in]
			switch {
			case unicode.IsLower(nc) || nc == '_' || nc == '$' || !isIdentPart(nc):
				in++
			case unicode.IsDigit(nc):
				if pc == nc {
					break search
				}
				in++
			case pc != nc:
				return false
			default:
				break search
			}
		}
	}
}

// WildcardMatch matches name against a pattern where * matches any run of
// characters and ? exactly one.
func WildcardMatch(pattern, name string, caseSensitive bool) bool {
	if !caseSensitive {
		pattern = strings.ToLower(pattern)
		name = strings.ToLower(name)
	}
	p := []rune(pattern)
	n := []rune(name)
	ip, in := 0, 0
	star, mark := -1, 0
	for in < len(n) {
		switch {
		case ip < len(p) && (p[ip] == '?' || p[ip] == n[in]):
			ip++
			in++
		case ip < len(p) && p[ip] == '*':
			star = ip
			mark = in
			ip++
		case star >= 0:
			ip = star + 1
			mark++
			in = mark
		default:
			return false
		}
	}
	for ip < len(p) && p[ip] == '*' {
		ip++
	}
	return ip == len(p)
}

// MatchName tests name against pattern under rule. An empty pattern
// matches every name. Camel case is tried first; when it fails a
// case-sensitive rule rejects the name and a case-insensitive one falls
// back to a prefix test.
func MatchName(pattern, name string, rule MatchRule) bool {
	if pattern == "" {
		return true
	}
	cs := rule.CaseSensitive()
	matchFirst := !cs || (name != "" && pattern[0] == name[0])

	if rule&RuleCamelCase != 0 {
		if matchFirst && CamelCaseMatch(pattern, name) {
			return true
		}
		if cs {
			return false
		}
		return hasPrefix(name, pattern, false)
	}

	switch {
	case rule&RuleRegexp != 0:
		re, err := compileRegexp(pattern, cs)
		return err == nil && re.MatchString(name)
	case rule&RulePattern != 0:
		return WildcardMatch(pattern, name, cs)
	case rule&RulePrefix != 0:
		return matchFirst && hasPrefix(name, pattern, cs)
	default:
		if len(pattern) != len(name) || !matchFirst {
			return false
		}
		if cs {
			return pattern == name
		}
		return strings.EqualFold(pattern, name)
	}
}

func hasPrefix(s, prefix string, caseSensitive bool) bool {
	if len(s) < len(prefix) {
		return false
	}
	if caseSensitive {
		return strings.HasPrefix(s, prefix)
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}

func compileRegexp(expr string, caseSensitive bool) (*regexp.Regexp, error) {
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	return regexp.Compile("^(?:" + expr + ")$")
}

// ScanPrefix returns the literal prefix that every index key matching name
// under rule starts with. sep is appended for exact matches of keys that
// continue after the name. An empty result scans every key.
func ScanPrefix(name string, rule MatchRule, sep string) string {
	if name == "" || !rule.CaseSensitive() {
		return ""
	}
	switch {
	case rule&(RuleRegexp|RuleCamelCase) != 0:
		return ""
	case rule&RulePattern != 0:
		i := strings.IndexAny(name, "*?")
		if i < 0 {
			return name + sep
		}
		return name[:i]
	case rule&RulePrefix != 0:
		return name
	default:
		return name + sep
	}
}
