// Package eval compiles Java code snippets typed in a debugger into class
// files the debuggee can load.
//
// A Mapper wraps the snippet in a class extending the root snippet class
// and maps diagnostics back to the text the user wrote. The snippet body is
// resolved with a SnippetScope, which grants the access rights of the
// captured receiver type. The analysis then decides, with ordinary access
// rules, which member references the generated class may perform directly;
// the rest are emitted as java.lang.reflect calls. Local and anonymous
// classes declared by a snippet are compiled to class files of their own,
// named after the snippet class.
//
// A Context holds one evaluation session: imports, package, global
// variables and the classes installed by earlier evaluations.
package eval
