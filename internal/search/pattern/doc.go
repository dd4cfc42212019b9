// Package pattern defines the search patterns and their match rules.
//
// A pattern tells a query which index categories to scan, which literal
// key prefix narrows the scan, how to decode the keys it visits and
// whether a decoded key matches. The key layouts come from the codecs of
// the index package, which the indexer uses to write them.
//
// Names are compared under a MatchRule: one mode (exact, prefix, wildcard
// pattern, regular expression or camel case) plus flags for case
// sensitivity and generic type argument matching. ValidateMatchRule must
// normalize a rule before it is used; every constructor here does so.
//
// CreatePattern parses user typed strings and CreatePatternForElement
// builds exact patterns for elements already known to the caller.
package pattern
