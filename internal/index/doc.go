// Package index holds the inverted indexes that search queries scan.
//
// Each container (a source project or a library) has one Index mapping
// (category, key) pairs to the documents that contributed them. Writers
// queue documents as pending writes; a Merge folds them in and persists
// them through a Store. Concurrent scans and merges are coordinated by the
// index's ReadWriteMonitor.
//
// Keys are built and decoded by the codecs in keys.go so that the indexer
// and the search patterns agree on their layout.
package index
