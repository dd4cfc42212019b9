// Package storage provides SQLite-based persistence for search indexes.
//
// The storage layer manages:
//   - Containers (indexed projects and libraries)
//   - Documents and their content hashes
//   - Inverted index entries per document
//   - Evaluation sessions served to clients
//
// # Database Schema
//
// Tables:
//   - containers: container name, root path and kind
//   - documents: document paths, packages and xxhash content hashes
//   - index_entries: (category, key) pairs per document
//   - eval_sessions: evaluation session ids
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.javacontext/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	manager := index.NewManager(storage.NewIndexStore(db, nil))
//
// # Transactions
//
// Use transactions for atomic operations:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.UpsertDocument(ctx, doc); err != nil {
//	    return err
//	}
//	if err := tx.ReplaceEntries(ctx, doc.ID, entries); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Build Modes
//
// The default build uses the pure Go driver (modernc.org/sqlite). Building
// with the cgo_sqlite tag and CGO enabled switches to mattn/go-sqlite3.
package storage
