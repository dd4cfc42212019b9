// Package types provides shared type definitions for the javacontext MCP server.
//
// The types in this package cross package boundaries: they are produced by the
// search engine and the snippet evaluator and consumed by the MCP layer and the
// CLI.
//
// # Search Matches
//
// SearchMatch describes one confirmed occurrence of a searched element:
//
//	match := types.SearchMatch{
//	    Element:  types.Element{Kind: types.ElementField, Name: "value", DeclaringType: "p.B"},
//	    Accuracy: types.AccuracyAccurate,
//	    Offset:   42,
//	    Length:   5,
//	}
//
// INACCURATE matches are reported when resolution could not be completed
// (syntax errors, unresolved imports, incomplete class path). Consumers must
// not treat them as equivalent to ACCURATE ones.
//
// # Problems
//
// Problem is a diagnostic reported against source text. Positions are byte
// offsets into the text the problem was computed against; the evaluator
// translates positions back to the user's snippet before reporting.
package types
