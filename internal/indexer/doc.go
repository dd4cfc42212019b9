// Package indexer feeds Java containers into the search indexes.
//
// A container is a source tree or a directory of class files, named by its
// absolute root path. IndexContainer discovers files with doublestar
// include and exclude patterns, parses each changed file with a
// per-worker parser and queues the extracted entries as pending writes of
// the container's index.Index. Files whose xxhash matches the merged
// document are skipped and files that disappeared are queued for removal.
//
// Pending writes are not visible to searches until the index is merged,
// which the search job manager does before running a query or when asked
// to by the Watcher's OnIndexed callback.
//
// # Extracted entries
//
// Sources contribute type, field, method and constructor declarations,
// super type references (extends and implements clauses, anonymous class
// bodies), method and constructor references, and simple name references
// including import segments and doc comment links. Class files contribute
// declarations and super type references only.
package indexer
