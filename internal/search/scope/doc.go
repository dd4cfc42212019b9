// Package scope defines the search scopes that limit which containers are
// queried, which candidate documents are located and which matches are
// reported.
package scope
