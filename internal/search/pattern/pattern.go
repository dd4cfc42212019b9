package pattern

import (
	"strings"

	"github.com/dshills/javacontext-mcp/internal/index"
)

// LimitTo selects which occurrences of the searched element are reported.
type LimitTo int

const (
	Declarations LimitTo = iota
	References
	AllOccurrences
	// Implementors reports the types that extend or implement a type.
	Implementors
	ReadAccesses
	WriteAccesses
)

func (l LimitTo) String() string {
	switch l {
	case Declarations:
		return "DECLARATIONS"
	case References:
		return "REFERENCES"
	case AllOccurrences:
		return "ALL_OCCURRENCES"
	case Implementors:
		return "IMPLEMENTORS"
	case ReadAccesses:
		return "READ_ACCESSES"
	case WriteAccesses:
		return "WRITE_ACCESSES"
	default:
		return "UNKNOWN"
	}
}

// ParseLimitTo is the inverse of LimitTo.String, accepting lower case too.
func ParseLimitTo(s string) (LimitTo, bool) {
	for l := Declarations; l <= WriteAccesses; l++ {
		if strings.EqualFold(l.String(), s) {
			return l, true
		}
	}
	return 0, false
}

// Pattern is the index-facing contract shared by every search pattern.
//
// A query decodes each scanned key into a blank pattern obtained from
// Blank and asks the original pattern whether the decoded one matches.
// Composite patterns (Or, And) have no categories of their own; queries
// run their children instead.
type Pattern interface {
	// Rule returns the validated match rule.
	Rule() MatchRule
	// IndexCategories returns the categories to scan, in scan order.
	IndexCategories() []index.Category
	// IndexKey returns the literal key prefix that narrows the scan, or ""
	// to visit every key of the categories.
	IndexKey() string
	// Blank returns a fresh pattern of the same variant for decoding.
	Blank() Pattern
	// DecodeIndexKey fills the receiver from a raw key of category. It
	// reports false for keys of another shape.
	DecodeIndexKey(category index.Category, key string) bool
	// MatchesDecodedKey tests a pattern filled by DecodeIndexKey.
	MatchesDecodedKey(decoded Pattern) bool
	String() string
}

// base carries the match rule of a leaf pattern.
type base struct {
	rule MatchRule
	// category of the last decoded key
	decodedCategory index.Category
}

func (b *base) Rule() MatchRule { return b.rule }

func (b *base) matchesName(pattern, name string) bool {
	return MatchName(pattern, name, b.rule)
}

// matchesQualification compares dotted qualifications. An empty pattern
// matches anything; a pattern without wildcards also matches a trailing
// part of the qualification ending at a dot.
func (b *base) matchesQualification(pattern, qualification string) bool {
	if pattern == "" {
		return true
	}
	cs := b.rule.CaseSensitive()
	if strings.ContainsAny(pattern, "*?") {
		return WildcardMatch(pattern, qualification, cs)
	}
	if hasSuffix(qualification, pattern, cs) {
		rest := len(qualification) - len(pattern)
		return rest == 0 || qualification[rest-1] == '.'
	}
	return false
}

func hasSuffix(s, suffix string, caseSensitive bool) bool {
	if len(s) < len(suffix) {
		return false
	}
	if caseSensitive {
		return strings.HasSuffix(s, suffix)
	}
	return strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// splitQualified splits "a.b.C" into "a.b" and "C".
func splitQualified(name string) (qualification, simple string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// joinQualified is the inverse of splitQualified.
func joinQualified(qualification, simple string) string {
	if qualification == "" {
		return simple
	}
	return qualification + "." + simple
}

func validated(name string, rule MatchRule) MatchRule {
	if r, err := ValidateMatchRule(name, rule); err == nil {
		return r
	}
	return rule &^ modeMask
}
