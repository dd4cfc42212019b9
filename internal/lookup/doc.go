// Package lookup binds names in parsed Java source to types, fields,
// methods and locals.
//
// An Environment loads type bindings on demand from a NameEnvironment that
// is backed by parsed units, class files or the built-in JDK skeleton. The
// Resolver walks method bodies and records what each name means in a
// Resolution, delegating member lookup to a Scope so that code snippets can
// be resolved with rules that differ from ordinary compilation.
//
// Bindings are not safe for concurrent use.
package lookup
