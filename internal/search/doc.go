// Package search finds declarations and references of Java elements.
//
// A search runs in two phases. The index query (PatternSearchJob) scans
// the indexes selected for the scope and collects the documents that may
// contain matches. The match locator then parses and resolves those
// documents, plus any working copies, and reports confirmed matches to a
// Requestor with their accuracy.
//
// # Basic Usage
//
//	engine, _ := search.NewEngine(manager, jobs, parser.New(), search.Options{})
//
//	p := engine.CreatePattern("java.util.List", pattern.SearchType,
//	    pattern.References, pattern.RuleCaseSensitive)
//
//	var c search.MatchCollector
//	res, err := engine.Search(ctx, p, engine.CreateWorkspaceScope(), &c)
//	for _, m := range c.Matches() {
//	    fmt.Println(m.Resource, m.Offset, m.Accuracy)
//	}
//
// # Indexes and Jobs
//
// Each index is scanned under its read section. Pending writes are merged
// first, under the write section, which is released before the scan
// starts. A failing index is logged and marks the result incomplete; the
// other indexes are still searched.
//
// Background work (merges, re-indexing) is queued on a JobManager. The
// WaitPolicy of the engine decides whether a search runs at once, fails
// with ErrNotReady or waits for the queue to drain.
//
// # Accuracy
//
// Matches are ACCURATE when every name involved resolved. Syntax errors,
// unresolved imports or names missing from the class path make them
// INACCURATE, as are matches inside doc comments.
//
// # Cancellation
//
// The context is checked before each index and each candidate document.
// A canceled search returns ErrOperationCanceled; matches already reported
// stay valid.
package search
