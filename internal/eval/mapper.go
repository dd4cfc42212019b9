package eval

import (
	"strings"

	"github.com/dshills/javacontext-mcp/pkg/types"
)

// EvaluationType classifies the fragment a line of generated source came
// from.
type EvaluationType int

const (
	// EvalInternal is generated scaffolding. Problems reported there are
	// engine defects, not user errors.
	EvalInternal EvaluationType = iota
	EvalPackage
	EvalImport
	EvalCodeSnippet
	EvalVariable
)

func (t EvaluationType) String() string {
	switch t {
	case EvalPackage:
		return "package"
	case EvalImport:
		return "import"
	case EvalCodeSnippet:
		return "code_snippet"
	case EvalVariable:
		return "variable"
	}
	return "internal"
}

// RunMethod is the method whose body holds the snippet.
const RunMethod = "run"

// CapturedThis is the field holding the receiver of the captured frame.
const CapturedThis = "val$this"

// CapturedPrefix prefixes the fields holding captured locals.
const CapturedPrefix = "val$"

// LocalVariable is a local of the captured frame exposed to the snippet.
type LocalVariable struct {
	Name     string
	TypeName string
	Final    bool
}

// Wrapper configures the class generated around a snippet.
type Wrapper struct {
	PackageName string
	Imports     []string
	ClassName   string
	// Superclass is the dotted name of the installed global variables
	// class; empty means the root class.
	Superclass string
	// DeclaringType is the dotted name of the captured receiver type, empty
	// for a context-free snippet.
	DeclaringType string
	Locals        []LocalVariable
}

func (w Wrapper) superclass() string {
	if w.Superclass != "" {
		return w.Superclass
	}
	return strings.ReplaceAll(RootClassName, "/", ".")
}

// region is one fragment of the generated source. Both the source text and
// the line classification are derived from the same ordered regions.
type region struct {
	kind EvaluationType
	// id names the fragment: the package, the import, the variable or the
	// snippet text.
	id   string
	text string
	// user is the offset inside text where user-authored text begins.
	user int
}

func (r region) lines() int { return strings.Count(r.text, "\n") }

type layout struct {
	regions []region
	// offsets and first lines of every region, parallel to regions
	starts []int
	lines  []int
}

func (l *layout) add(kind EvaluationType, id, text string, user int) {
	start, line := 0, 1
	if n := len(l.regions); n > 0 {
		start = l.starts[n-1] + len(l.regions[n-1].text)
		line = l.lines[n-1] + l.regions[n-1].lines()
	}
	l.regions = append(l.regions, region{kind: kind, id: id, text: text, user: user})
	l.starts = append(l.starts, start)
	l.lines = append(l.lines, line)
}

func (l *layout) source() string {
	var sb strings.Builder
	for _, r := range l.regions {
		sb.WriteString(r.text)
	}
	return sb.String()
}

// at returns the index of the region holding a 1-based line, or -1.
func (l *layout) at(line int) int {
	for i, r := range l.regions {
		if line >= l.lines[i] && line < l.lines[i]+r.lines() {
			return i
		}
	}
	return -1
}

// Mapper wraps a snippet, or a set of global variables, into the source of
// a compilation unit and maps positions in that unit back to the fragments
// the user wrote.
type Mapper struct {
	wrapper Wrapper
	layout  layout
	source  string
	snippet int // index of the snippet region, -1 for variables
}

// NewMapper lays out the unit for a code snippet:
//
//	[package P;]
//	[import I;]*
//	public class C extends S {
//	  [D val$this;]
//	  [T val$local;]*
//	  public void run() throws Throwable {
//	  <snippet>
//	  }
//	}
func NewMapper(snippet string, w Wrapper) *Mapper {
	m := &Mapper{wrapper: w}
	m.header()
	m.layout.add(EvalInternal, "", "public void "+RunMethod+"() throws Throwable {\n", 0)
	m.snippet = len(m.layout.regions)
	m.layout.add(EvalCodeSnippet, snippet, snippet+terminator(snippet)+"\n", 0)
	m.layout.add(EvalInternal, "", "}\n}\n", 0)
	m.source = m.layout.source()
	return m
}

// NewVariablesMapper lays out the class declaring global variables. Each
// variable contributes a field and an initializing assignment in run(),
// and the positions of both are recorded on the variable.
func NewVariablesMapper(vars []*GlobalVariable, w Wrapper) *Mapper {
	w.DeclaringType = ""
	w.Locals = nil
	m := &Mapper{wrapper: w, snippet: -1}
	m.header()
	decls := make([]int, len(vars))
	for i, v := range vars {
		decls[i] = len(m.layout.regions)
		m.layout.add(EvalVariable, v.Name, "public "+v.TypeName+" "+v.Name+";\n", len("public "))
	}
	m.layout.add(EvalInternal, "", "public void "+RunMethod+"() throws Throwable {\n", 0)
	inits := make([]int, len(vars))
	for i, v := range vars {
		inits[i] = -1
		if v.Initializer == "" {
			continue
		}
		inits[i] = len(m.layout.regions)
		prefix := v.Name + " = "
		m.layout.add(EvalVariable, v.Name, prefix+v.Initializer+";\n", len(prefix))
	}
	m.layout.add(EvalInternal, "", "}\n}\n", 0)
	m.source = m.layout.source()

	for i, v := range vars {
		v.declarationStart = m.layout.starts[decls[i]] + m.layout.regions[decls[i]].user
		v.initializerStart, v.initializerLine = -1, -1
		if j := inits[i]; j >= 0 {
			v.initializerStart = m.layout.starts[j] + m.layout.regions[j].user
			v.initializerLine = m.layout.lines[j]
		}
	}
	return m
}

func (m *Mapper) header() {
	w := m.wrapper
	if w.PackageName != "" {
		m.layout.add(EvalPackage, w.PackageName, "package "+w.PackageName+";\n", len("package "))
	}
	for _, imp := range w.Imports {
		m.layout.add(EvalImport, imp, "import "+imp+";\n", len("import "))
	}
	m.layout.add(EvalInternal, "", "public class "+w.ClassName+" extends "+w.superclass()+" {\n", 0)
	if w.DeclaringType != "" {
		m.layout.add(EvalInternal, "", w.DeclaringType+" "+CapturedThis+";\n", 0)
	}
	for _, l := range w.Locals {
		m.layout.add(EvalInternal, "", l.TypeName+" "+CapturedPrefix+l.Name+";\n", 0)
	}
}

// terminator completes a trailing expression so that `x + 1` compiles as
// the value of the snippet. The semicolon goes on a line of its own so a
// trailing line comment cannot swallow it.
func terminator(snippet string) string {
	s := strings.TrimRight(snippet, " \t\r\n")
	if s == "" || strings.HasSuffix(s, ";") || strings.HasSuffix(s, "}") {
		return ""
	}
	return "\n;"
}

// BuildSource returns the generated compilation unit.
func (m *Mapper) BuildSource() string { return m.source }

// ClassName returns the simple name of the generated class.
func (m *Mapper) ClassName() string { return m.wrapper.ClassName }

// BinaryName returns the internal name of the generated class.
func (m *Mapper) BinaryName() string {
	if m.wrapper.PackageName == "" {
		return m.wrapper.ClassName
	}
	return strings.ReplaceAll(m.wrapper.PackageName, ".", "/") + "/" + m.wrapper.ClassName
}

// StartPosOffset is the offset of the first snippet character in the
// generated source; -1 for a variables unit.
func (m *Mapper) StartPosOffset() int {
	if m.snippet < 0 {
		return -1
	}
	return m.layout.starts[m.snippet]
}

// LineNumberOffset is the number of generated lines before the snippet.
func (m *Mapper) LineNumberOffset() int {
	if m.snippet < 0 {
		return -1
	}
	return m.layout.lines[m.snippet] - 1
}

// SnippetEnd is the offset just past the snippet text in the generated source.
func (m *Mapper) SnippetEnd() int {
	if m.snippet < 0 {
		return -1
	}
	return m.layout.starts[m.snippet] + len(m.layout.regions[m.snippet].id)
}

// EvaluationType classifies a 1-based line of the generated source.
func (m *Mapper) EvaluationType(line int) EvaluationType {
	if i := m.layout.at(line); i >= 0 {
		return m.layout.regions[i].kind
	}
	return EvalInternal
}

// Translate maps a problem reported against the generated unit back to
// the fragment it belongs to. Package and import problems cover their
// whole fragment on line 1; snippet and variable problems are shifted to
// fragment-relative positions; internal problems are returned unchanged
// with the generated source as their id.
func (m *Mapper) Translate(p types.Problem) (types.Problem, EvaluationType, string) {
	i := m.layout.at(p.Line)
	if i < 0 {
		return p, EvalInternal, m.source
	}
	r := m.layout.regions[i]
	switch r.kind {
	case EvalPackage, EvalImport:
		p.Start, p.End, p.Line = 0, len(r.id)-1, 1
		return p, r.kind, r.id
	case EvalCodeSnippet, EvalVariable:
		return p.Shift(-(m.layout.starts[i] + r.user), -(m.layout.lines[i] - 1)), r.kind, r.id
	}
	return p, EvalInternal, m.source
}

// ProblemRequestor receives problems.
type ProblemRequestor interface {
	AcceptProblem(p types.Problem, kind EvaluationType, fragment string)
}

// CompletionRequestor receives completion proposals.
type CompletionRequestor interface {
	AcceptProposal(p CompletionProposal)
}

// SelectionRequestor receives the element under a selection.
type SelectionRequestor interface {
	AcceptSelection(s Selection)
}

// WrapProblems returns a requestor that translates every problem before
// forwarding it.
func (m *Mapper) WrapProblems(req ProblemRequestor) ProblemRequestor {
	return problemShifter{m: m, next: req}
}

// WrapCompletions returns a requestor that shifts proposal ranges from the
// generated unit back into the snippet.
func (m *Mapper) WrapCompletions(req CompletionRequestor) CompletionRequestor {
	return completionShifter{delta: m.StartPosOffset(), next: req}
}

// WrapSelections returns a requestor that shifts selection ranges from the
// generated unit back into the snippet.
func (m *Mapper) WrapSelections(req SelectionRequestor) SelectionRequestor {
	return selectionShifter{delta: m.StartPosOffset(), next: req}
}

type problemShifter struct {
	m    *Mapper
	next ProblemRequestor
}

// AcceptProblem ignores the kind and fragment it is given; both are
// recomputed from the generated line.
func (s problemShifter) AcceptProblem(p types.Problem, _ EvaluationType, _ string) {
	p, kind, id := s.m.Translate(p)
	s.next.AcceptProblem(p, kind, id)
}

type completionShifter struct {
	delta int
	next  CompletionRequestor
}

func (s completionShifter) AcceptProposal(p CompletionProposal) {
	p.ReplaceStart -= s.delta
	p.ReplaceEnd -= s.delta
	s.next.AcceptProposal(p)
}

type selectionShifter struct {
	delta int
	next  SelectionRequestor
}

func (s selectionShifter) AcceptSelection(sel Selection) {
	sel.Start -= s.delta
	sel.End -= s.delta
	s.next.AcceptSelection(sel)
}
