package eval

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/lookup"
	"github.com/dshills/javacontext-mcp/internal/parser"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

// suggestionThreshold is the minimum Levenshtein similarity of a "did you
// mean" suggestion.
const suggestionThreshold = 0.6

const defaultDecodedCacheSize = 64

// Capture describes the frame a snippet runs in: the receiver type and the
// locals the debugger exposes.
type Capture struct {
	// DeclaringType is the dotted name of the receiver type, empty for a
	// snippet without a receiver.
	DeclaringType string
	// Static is set when the frame is a static method.
	Static bool
	// ConstructorCall is set when the frame is the argument list of an
	// explicit constructor call.
	ConstructorCall bool
	Locals          []LocalVariable
}

// Options configure a Context.
type Options struct {
	PackageName string
	Imports     []string
	// ClassNamePrefix prefixes the generated class names.
	ClassNamePrefix string
	// Encoding overrides the source encoding reported to the runtime.
	Encoding string
	// IncludeRunningVMBootclasspath resolves against the debuggee's boot
	// class path. It cannot be combined with Encoding.
	IncludeRunningVMBootclasspath bool
	// DecodedCacheSize bounds the cache of parsed installed classes.
	DecodedCacheSize int
}

// Validate rejects option combinations the evaluator cannot honor.
func (o Options) Validate() error {
	if o.Encoding != "" && o.IncludeRunningVMBootclasspath {
		return ErrIllegalOptions
	}
	if o.PackageName != "" {
		for _, seg := range strings.Split(o.PackageName, ".") {
			if !isIdentifier(seg) {
				return fmt.Errorf("invalid package name %q", o.PackageName)
			}
		}
	}
	return nil
}

// EvaluationResult groups the problems of one fragment.
type EvaluationResult struct {
	// ID is the fragment text: the snippet, an import, the package name,
	// a variable name, or the generated source for internal problems.
	ID       string
	Type     EvaluationType
	Problems []types.Problem
}

// HasErrors reports whether the fragment failed to compile.
func (r EvaluationResult) HasErrors() bool { return types.HasErrors(r.Problems) }

// Outcome is the result of compiling a snippet or the global variables.
type Outcome struct {
	// ClassName is the internal name of the generated class.
	ClassName  string
	ClassFiles []CompiledClass
	// Results holds the problems grouped by fragment. A successful outcome
	// may still carry warnings.
	Results []EvaluationResult
	// HasResult is set when the snippet produces a value through setResult.
	HasResult bool
}

// Succeeded reports whether class files were produced.
func (o *Outcome) Succeeded() bool { return len(o.ClassFiles) > 0 }

// Problems flattens the problems of every fragment.
func (o *Outcome) Problems() []types.Problem {
	var out []types.Problem
	for _, r := range o.Results {
		out = append(out, r.Problems...)
	}
	return out
}

// Context is an evaluation session: the imports and package of snippets,
// the global variables and the classes installed by earlier evaluations.
// Operations are serialized.
type Context struct {
	mu sync.Mutex

	names  lookup.NameEnvironment
	opts   Options
	parser *parser.Parser

	root      *classfile.ClassFile
	installed []CompiledClass
	decoded   *lru.Cache[string, *classfile.ClassFile]

	vars []*GlobalVariable
	// varsClass is the installed variables class, pendingVars the one
	// built by the last EvaluateVariables
	varsClass   string
	pendingVars string
	pending     []*GlobalVariable
	counter     int
}

// NewContext creates a session resolving against names.
func NewContext(names lookup.NameEnvironment, opts Options) (*Context, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.ClassNamePrefix == "" {
		opts.ClassNamePrefix = "CodeSnippet_"
	}
	size := opts.DecodedCacheSize
	if size <= 0 {
		size = defaultDecodedCacheSize
	}
	decoded, err := lru.New[string, *classfile.ClassFile](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create class cache: %w", err)
	}
	return &Context{
		names:   names,
		opts:    opts,
		parser:  parser.New(),
		root:    RootSkeleton(),
		decoded: decoded,
	}, nil
}

// Close releases the parser.
func (c *Context) Close() {
	c.parser.Close()
}

// contextClasses exposes the session classes to the name environment. It
// is only used while c.mu is held.
type contextClasses struct{ c *Context }

func (s contextClasses) RootClass() *classfile.ClassFile { return s.c.root }

func (s contextClasses) InstalledClasses() []CompiledClass { return s.c.installed }

// InstalledClasses returns a copy of the installed classes.
func (c *Context) InstalledClasses() []CompiledClass {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CompiledClass(nil), c.installed...)
}

// Imports returns the imports prepended to every snippet.
func (c *Context) Imports() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.opts.Imports...)
}

// SetImports replaces the imports, written without the import keyword:
// "java.util.*" or "static java.lang.Math.max".
func (c *Context) SetImports(imports []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Imports = append([]string(nil), imports...)
}

// PackageName returns the package of generated classes.
func (c *Context) PackageName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.PackageName
}

// SetPackageName changes the package of generated classes.
func (c *Context) SetPackageName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	opts := c.opts
	opts.PackageName = name
	if err := opts.Validate(); err != nil {
		return err
	}
	c.opts = opts
	return nil
}

// InstallClassFiles records classes loaded into the target after a
// successful evaluation, making them visible to later ones. A class
// replaces an installed class of the same name. Installing the variables
// class of the last EvaluateVariables marks its variables initialized.
func (c *Context) InstallClassFiles(classes []CompiledClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.install(classes)
}

func (c *Context) install(classes []CompiledClass) {
	for _, cc := range classes {
		c.decoded.Remove(cc.Name)
		replaced := false
		for i := range c.installed {
			if c.installed[i].Name == cc.Name {
				c.installed[i] = cc
				replaced = true
			}
		}
		if !replaced {
			c.installed = append(c.installed, cc)
		}
		if cc.Name == c.pendingVars {
			c.varsClass = cc.Name
			for _, v := range c.pending {
				v.initialized = true
			}
		}
	}
}

func (c *Context) varsClassName(n int) string {
	return fmt.Sprintf("%sGlobalVariables_%d", c.opts.ClassNamePrefix, n)
}

func (c *Context) internalName(simple string) string {
	if c.opts.PackageName == "" {
		return simple
	}
	return strings.ReplaceAll(c.opts.PackageName, ".", "/") + "/" + simple
}

// Variables returns the global variables, in declaration order.
func (c *Context) Variables() []*GlobalVariable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*GlobalVariable(nil), c.vars...)
}

// NewVariable declares a global variable. It takes effect once the
// variables class built by EvaluateVariables is installed.
func (c *Context) NewVariable(typeName, name, initializer string) (*GlobalVariable, error) {
	v := &GlobalVariable{Name: name, TypeName: strings.TrimSpace(typeName), Initializer: strings.TrimSpace(initializer)}
	if err := v.validate(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, other := range c.vars {
		if other.Name == name {
			return nil, fmt.Errorf("%w: %s is already declared", ErrInvalidVariable, name)
		}
	}
	c.vars = append(c.vars, v)
	return v, nil
}

// DeleteVariable removes a global variable.
func (c *Context) DeleteVariable(v *GlobalVariable) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.vars {
		if other == v {
			c.vars = append(c.vars[:i], c.vars[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownVariable, v.Name)
}

// compilation is one generated unit bound and resolved.
type compilation struct {
	mapper   *Mapper
	unit     *jast.CompilationUnit
	env      *lookup.Environment
	decl     *jast.TypeDecl
	class    *lookup.TypeBinding
	run      *jast.MethodDecl
	body     *jast.Block
	nest     *nesting
	resolver *lookup.Resolver
	scope    *SnippetScope
	problems []types.Problem
}

func (c *Context) wrapper(className string) Wrapper {
	w := Wrapper{
		PackageName: c.opts.PackageName,
		Imports:     c.opts.Imports,
		ClassName:   className,
	}
	if c.varsClass != "" {
		w.Superclass = strings.ReplaceAll(c.varsClass, "/", ".")
	}
	return w
}

// compile parses and resolves the unit laid out by m. A capture selects the
// snippet scope; without one the body is resolved as ordinary code. When
// the resolver fails to find the name watch, the locals visible at that
// point are stored in seen.
func (c *Context) compile(m *Mapper, capture *Capture, watch string, seen *[]*lookup.LocalBinding) (*compilation, error) {
	src := []byte(m.BuildSource())
	unit, err := c.parser.Parse(m.ClassName()+".java", src, parser.ModeFull)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snippet unit: %w", err)
	}
	env := lookup.NewEnvironment(NewHybridNameEnvironment(c.names, contextClasses{c}, c.decoded))
	bound := env.BindUnit(unit, "", unit.Path)
	comp := &compilation{mapper: m, unit: unit, env: env, problems: append([]types.Problem(nil), unit.Problems...)}
	for i, decl := range unit.Types {
		if decl.Name == m.ClassName() {
			comp.decl, comp.class = decl, bound[i]
		}
	}
	if comp.decl == nil || comp.class == nil {
		comp.problems = append(comp.problems, types.NewError(types.ProblemInternal, 0, len(src)-1, 1,
			"The generated class %s was not found", m.ClassName()))
		return comp, nil
	}
	for _, md := range comp.decl.Methods {
		if md.Name == RunMethod && !md.Constructor {
			comp.run, comp.body = md, md.Body
		}
	}
	if comp.body == nil {
		comp.problems = append(comp.problems, types.NewError(types.ProblemInternal, 0, len(src)-1, 1,
			"The generated class %s has no %s method", m.ClassName(), RunMethod))
		return comp, nil
	}
	for _, fd := range comp.decl.Fields {
		if f := comp.class.DeclaredField(fd.Name); f != nil && f.Type == nil && fd.Type != nil {
			comp.problems = append(comp.problems, types.NewError(types.ProblemUndefinedType,
				fd.Type.Start, fd.Type.End-1, unit.Line(fd.Type.Start), "%s cannot be resolved to a type", fd.Type.Name))
		}
	}

	r := lookup.NewResolver(env, unit)
	comp.resolver = r
	r.ResolveImports()
	var scope lookup.Scope
	if capture != nil {
		var declaring *lookup.TypeBinding
		if f := comp.class.DeclaredField(CapturedThis); f != nil {
			declaring = f.Type
		}
		comp.scope = NewSnippetScope(env, unit, comp.class, declaring, *capture)
		scope = comp.scope
	} else {
		scope = lookup.NewOrdinaryScope(env, lookup.Context{Type: comp.class, Unit: unit})
	}
	r.Suggest = func(name string, s lookup.Scope) string {
		if name == watch && seen != nil {
			*seen = r.VisibleLocals()
		}
		return suggest(name, c.candidates(r, comp.scope, comp.class))
	}
	r.ResolveBody(scope, nil, comp.body)
	comp.problems = append(comp.problems, r.Resolution().Problems...)

	var this *lookup.FieldBinding
	if capture != nil && !capture.Static {
		this = comp.class.DeclaredField(CapturedThis)
	}
	comp.nest = newNesting(env, r.Resolution(), comp.class, comp.run, this)
	return comp, nil
}

// candidates lists the names visible from the resolver's current position.
func (c *Context) candidates(r *lookup.Resolver, scope *SnippetScope, class *lookup.TypeBinding) []string {
	var names []string
	for _, l := range r.VisibleLocals() {
		names = append(names, l.Name)
	}
	if scope != nil {
		return append(names, scope.FieldNames()...)
	}
	for t := class; t != nil; t = t.Superclass() {
		for _, f := range t.Fields() {
			names = append(names, f.Name)
		}
	}
	return names
}

// suggest returns the candidate most similar to name, or "".
func suggest(name string, candidates []string) string {
	best, bestScore := "", float32(0)
	for _, cand := range candidates {
		if cand == name {
			continue
		}
		score, err := edlib.StringsSimilarity(name, cand, edlib.Levenshtein)
		if err != nil {
			continue
		}
		if score >= suggestionThreshold && score > bestScore {
			best, bestScore = cand, score
		}
	}
	return best
}

// collector groups translated problems by fragment, in first-seen order.
type collector struct {
	results []EvaluationResult
}

func (col *collector) AcceptProblem(p types.Problem, kind EvaluationType, fragment string) {
	for i := range col.results {
		if col.results[i].Type == kind && col.results[i].ID == fragment {
			col.results[i].Problems = append(col.results[i].Problems, p)
			return
		}
	}
	col.results = append(col.results, EvaluationResult{ID: fragment, Type: kind, Problems: []types.Problem{p}})
}

func (comp *compilation) report() []EvaluationResult {
	col := &collector{}
	req := comp.mapper.WrapProblems(col)
	for _, p := range comp.problems {
		req.AcceptProblem(p, EvalInternal, "")
	}
	return col.results
}

// finals maps the fields of captured final locals.
func finals(class *lookup.TypeBinding, capture Capture) map[*lookup.FieldBinding]bool {
	out := make(map[*lookup.FieldBinding]bool)
	for _, l := range capture.Locals {
		if !l.Final {
			continue
		}
		if f := class.DeclaredField(CapturedPrefix + l.Name); f != nil {
			out[f] = true
		}
	}
	return out
}

// build runs the access analysis and the code generator on a resolved unit.
// The snippet class comes first, followed by the classes nested in it.
func (comp *compilation) build(capture Capture, result bool) ([]CompiledClass, error) {
	plan := analyze(comp.resolver.Resolution(), comp.unit, comp.body, comp.nest, finals(comp.class, capture))
	comp.problems = append(comp.problems, plan.Problems...)
	if types.HasErrors(comp.problems) {
		return nil, nil
	}
	files, err := generate(comp.env, comp.resolver.Resolution(), plan, comp.unit, comp.decl, comp.nest, result)
	if err != nil {
		return nil, err
	}
	out := make([]CompiledClass, 0, len(files))
	for _, cf := range files {
		data, err := classfile.Write(cf)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCodeGeneration, cf.Name, err)
		}
		out = append(out, CompiledClass{Name: cf.Name, Bytes: data})
	}
	return out, nil
}

func (c *Context) snippetWrapper(capture Capture) Wrapper {
	c.counter++
	w := c.wrapper(fmt.Sprintf("%s%d", c.opts.ClassNamePrefix, c.counter))
	w.DeclaringType = capture.DeclaringType
	w.Locals = capture.Locals
	return w
}

// Evaluate compiles snippet in the captured frame. The outcome carries
// either the class files of the snippet class or the problems grouped by
// fragment; errors are reserved for failures of the engine itself.
func (c *Context) Evaluate(snippet string, capture Capture) (*Outcome, error) {
	if strings.TrimSpace(snippet) == "" {
		return nil, ErrEmptySnippet
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m := NewMapper(snippet, c.snippetWrapper(capture))
	comp, err := c.compile(m, &capture, "", nil)
	if err != nil {
		return nil, err
	}
	out := &Outcome{ClassName: m.BinaryName()}
	if !types.HasErrors(comp.problems) {
		classes, err := comp.build(capture, true)
		if err != nil {
			return nil, err
		}
		out.ClassFiles = classes
		out.HasResult = classes != nil && snippetHasValue(comp)
	}
	out.Results = comp.report()
	return out, nil
}

// snippetHasValue reports whether the snippet ends in a value-producing
// return or expression statement.
func snippetHasValue(comp *compilation) bool {
	stmts := valueStmts(comp.body.Stmts)
	if len(stmts) == 0 {
		return false
	}
	var e jast.Expr
	switch s := stmts[len(stmts)-1].(type) {
	case *jast.ReturnStmt:
		e = s.X
	case *jast.ExprStmt:
		e = s.X
	}
	t := comp.resolver.Resolution().TypeOf(e)
	return t != nil && !t.IsVoid()
}

// EvaluateVariables compiles the class declaring every global variable.
// Its run() initializes the variables that were not initialized by an
// installed variables class yet. Once installed, the class becomes the
// superclass of later snippet classes.
func (c *Context) EvaluateVariables() (*Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counter++
	name := c.varsClassName(c.counter)
	c.pendingVars = c.internalName(name)
	c.pending = append([]*GlobalVariable(nil), c.vars...)
	w := c.wrapper(name)
	w.Superclass = ""
	pending := make([]*GlobalVariable, len(c.vars))
	for i, v := range c.vars {
		cp := *v
		if v.initialized {
			cp.Initializer = ""
		}
		pending[i] = &cp
	}
	m := NewVariablesMapper(pending, w)
	for i, v := range c.vars {
		v.declarationStart = pending[i].declarationStart
		v.initializerStart = pending[i].initializerStart
		v.initializerLine = pending[i].initializerLine
	}
	comp, err := c.compile(m, nil, "", nil)
	if err != nil {
		return nil, err
	}
	for _, v := range c.vars {
		if comp.decl != nil && fieldDecl(comp.decl, v.Name) == nil {
			comp.problems = append(comp.problems, types.NewError(types.ProblemSyntax, v.declarationStart,
				v.declarationStart+len(v.TypeName)-1, comp.unit.Line(v.declarationStart), "Invalid declaration of %s", v.Name))
		}
	}
	out := &Outcome{ClassName: m.BinaryName()}
	if !types.HasErrors(comp.problems) {
		classes, err := comp.build(Capture{}, false)
		if err != nil {
			return nil, err
		}
		out.ClassFiles = classes
	}
	out.Results = comp.report()
	return out, nil
}
