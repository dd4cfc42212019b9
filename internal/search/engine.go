package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/lookup"
	"github.com/dshills/javacontext-mcp/internal/parser"
	"github.com/dshills/javacontext-mcp/internal/search/pattern"
	"github.com/dshills/javacontext-mcp/internal/search/scope"
	"github.com/dshills/javacontext-mcp/pkg/types"
)

// Requestor receives the matches of a search. Results arrive in no
// particular order.
type Requestor interface {
	BeginReporting()
	EnterParticipant(participant string)
	AcceptMatch(m types.SearchMatch) error
	ExitParticipant(participant string)
	EndReporting()
}

// MatchCollector is a Requestor that keeps every match.
type MatchCollector struct {
	mu      sync.Mutex
	matches []types.SearchMatch
}

func (c *MatchCollector) BeginReporting()        {}
func (c *MatchCollector) EnterParticipant(string) {}
func (c *MatchCollector) ExitParticipant(string)  {}
func (c *MatchCollector) EndReporting()          {}

func (c *MatchCollector) AcceptMatch(m types.SearchMatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches = append(c.matches, m)
	return nil
}

// Matches returns the collected matches sorted by resource and offset.
func (c *MatchCollector) Matches() []types.SearchMatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]types.SearchMatch(nil), c.matches...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Offset < out[j].Offset
	})
	return out
}

// TypeNameMatch is one type found by SearchAllTypeNames.
type TypeNameMatch struct {
	Kind           byte
	Package        string
	SimpleName     string
	EnclosingTypes []string
	Path           string
	Container      string
}

// QualifiedName returns the dotted name of the type.
func (m TypeNameMatch) QualifiedName() string {
	parts := make([]string, 0, len(m.EnclosingTypes)+2)
	if m.Package != "" {
		parts = append(parts, m.Package)
	}
	parts = append(parts, m.EnclosingTypes...)
	return strings.Join(append(parts, m.SimpleName), ".")
}

// TypeNameRequestor receives the results of SearchAllTypeNames.
type TypeNameRequestor interface {
	AcceptTypeName(m TypeNameMatch) error
}

// TypeNameCollector keeps every type name match.
type TypeNameCollector struct {
	Names []TypeNameMatch
}

func (c *TypeNameCollector) AcceptTypeName(m TypeNameMatch) error {
	c.Names = append(c.Names, m)
	return nil
}

// Options configures an Engine.
type Options struct {
	// Workers bounds the concurrent index sub-scans.
	Workers int
	// CacheSize is the number of parsed documents kept between searches.
	CacheSize int
	// Policy relates searches to queued background indexing jobs.
	Policy WaitPolicy
}

// Engine runs searches: an index query selects candidate documents, then
// the match locator confirms the matches in them.
type Engine struct {
	manager     *index.Manager
	jobs        *JobManager
	participant *JavaParticipant
	opts        Options
}

// NewEngine creates an engine over the indexes of manager. jobs may be nil
// when no background jobs are ever queued.
func NewEngine(manager *index.Manager, jobs *JobManager, p *parser.Parser, opts Options) (*Engine, error) {
	participant, err := NewJavaParticipant(p, opts.CacheSize)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = NewJobManager()
	}
	return &Engine{manager: manager, jobs: jobs, participant: participant, opts: opts}, nil
}

// Jobs returns the job manager searches are scheduled with.
func (e *Engine) Jobs() *JobManager { return e.jobs }

// Participant returns the participant that parses candidate documents.
func (e *Engine) Participant() *JavaParticipant { return e.participant }

// Search reports the matches of p inside sc to req. Working copies replace
// the documents they edit. The returned result tells whether every index
// could be queried; the error is ErrOperationCanceled on cancellation and
// ErrJobFailed when no index could be queried.
func (e *Engine) Search(ctx context.Context, p pattern.Pattern, sc scope.Scope, req Requestor, workingCopies ...WorkingCopy) (JobResult, error) {
	if p == nil {
		return JobResult{}, ErrNilPattern
	}
	if sc == nil {
		sc = scope.NewWorkspace()
	}
	req.BeginReporting()
	defer req.EndReporting()

	indexes, err := IndexSelector{Manager: e.manager, Scope: sc}.Select(ctx)
	if err != nil {
		return JobResult{}, err
	}
	job := &PatternSearchJob{
		Pattern:   p,
		Scope:     sc,
		Indexes:   indexes,
		Workers:   e.opts.Workers,
		Collector: NewPathCollector(),
	}
	if err := e.jobs.PerformConcurrentJob(ctx, job, e.opts.Policy); err != nil {
		return job.Result(), err
	}

	names, overlay := e.nameEnvironment(ctx, workingCopies)
	docs := e.documents(job.Collector.Candidates(), sc, p, overlay)

	req.EnterParticipant(ParticipantName)
	defer req.ExitParticipant(ParticipantName)
	locator := &MatchLocator{
		Pattern:     p,
		Scope:       sc,
		Participant: e.participant,
		Names:       names,
		Report:      req.AcceptMatch,
	}
	if err := locator.Locate(ctx, docs); err != nil {
		return job.Result(), err
	}
	return job.Result(), nil
}

// documents merges the candidates with the working copies. A working copy
// replaces the candidate of its path; the other working copies in scope
// are appended.
func (e *Engine) documents(candidates []Candidate, sc scope.Scope, p pattern.Pattern, overlay map[string]WorkingCopy) []Document {
	docs := make([]Document, 0, len(candidates)+len(overlay))
	used := make(map[string]bool, len(overlay))
	for _, c := range candidates {
		doc := Document{Path: c.Path, Container: c.Container}
		if wc, ok := overlay[c.Path]; ok {
			doc.Contents, doc.WorkingCopy = wc.Contents, true
			used[c.Path] = true
		}
		docs = append(docs, doc)
	}

	restrict := documentRestriction(p)
	var extra []Document
	for path, wc := range overlay {
		if used[path] || !sc.EnclosesPath(path) {
			continue
		}
		if restrict != "" && filepath.Clean(restrict) != path {
			continue
		}
		extra = append(extra, Document{Path: path, Container: wc.Container, Contents: wc.Contents, WorkingCopy: true})
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Path < extra[j].Path })
	return append(docs, extra...)
}

// NameEnvironment returns the class path of the open containers, used by
// the snippet evaluator to resolve project types.
func (e *Engine) NameEnvironment(ctx context.Context, workingCopies ...WorkingCopy) lookup.NameEnvironment {
	env, _ := e.nameEnvironment(ctx, workingCopies)
	return env
}

// nameEnvironment builds the class path candidates are resolved against:
// working copies first, then the merged indexes, then the built-in JDK
// types.
func (e *Engine) nameEnvironment(ctx context.Context, workingCopies []WorkingCopy) (lookup.NameEnvironment, map[string]WorkingCopy) {
	overlay := make(map[string]WorkingCopy, len(workingCopies))
	units := make(map[string][]*jast.CompilationUnit)
	for _, wc := range workingCopies {
		wc.Path = filepath.Clean(wc.Path)
		if wc.Container == "" {
			wc.Container = e.containerOf(wc.Path)
		}
		overlay[wc.Path] = wc
		parsed, err := e.participant.Parse(Document{Path: wc.Path, Container: wc.Container, Contents: wc.Contents, WorkingCopy: true})
		if err != nil {
			log.Printf("search: skipping working copy %s: %v", wc.Path, err)
			continue
		}
		if parsed.Unit != nil {
			units[wc.Container] = append(units[wc.Container], parsed.Unit)
		}
	}

	containers := make([]string, 0, len(units))
	for c := range units {
		containers = append(containers, c)
	}
	sort.Strings(containers)
	chain := make(lookup.Chain, 0, len(containers)+2)
	for _, c := range containers {
		chain = append(chain, lookup.NewUnitEnvironment(c, units[c]...))
	}
	all := e.manager.Indexes(e.manager.Containers())
	chain = append(chain, newIndexEnvironment(ctx, all, e.participant, overlay), lookup.Builtins())
	return chain, overlay
}

// containerOf returns the longest open container enclosing path, or "".
func (e *Engine) containerOf(path string) string {
	best := ""
	for _, c := range e.manager.Containers() {
		if (path == c || strings.HasPrefix(path, c+string(filepath.Separator))) && len(c) > len(best) {
			best = c
		}
	}
	return best
}

// SearchAllTypeNames reports the types declared in sc whose name matches
// typeName and whose package and enclosing types match qualification.
// kinds restricts the kind codes ("" accepts all). It only reads the
// indexes.
func (e *Engine) SearchAllTypeNames(ctx context.Context, qualification, typeName string, rule pattern.MatchRule, kinds string, sc scope.Scope, req TypeNameRequestor) error {
	if sc == nil {
		sc = scope.NewWorkspace()
	}
	p := pattern.NewTypeDeclarationPattern(qualification, typeName, kinds, rule)
	indexes, err := IndexSelector{Manager: e.manager, Scope: sc}.Select(ctx)
	if err != nil {
		return err
	}
	job := NewJob("type names "+p.String(), func(ctx context.Context) error {
		for _, x := range indexes {
			if err := checkCanceled(ctx); err != nil {
				return err
			}
			if err := scanTypeNames(ctx, x, p, sc, req); err != nil {
				if canceled(err) {
					return checkCanceled(ctx)
				}
				var ae acceptError
				if errors.As(err, &ae) {
					return ae.err
				}
				log.Printf("search: type names failed on %s: %v", x.Container(), err)
			}
		}
		return nil
	})
	return e.jobs.PerformConcurrentJob(ctx, job, e.opts.Policy)
}

// acceptError carries a requestor error out of an index scan.
type acceptError struct{ err error }

func (a acceptError) Error() string { return a.err.Error() }

func scanTypeNames(ctx context.Context, x IndexQuery, p *pattern.TypeDeclarationPattern, sc scope.Scope, req TypeNameRequestor) error {
	if err := enterReadMerged(ctx, x); err != nil {
		return err
	}
	defer x.Monitor().ExitRead()

	decoded := p.Blank().(*pattern.TypeDeclarationPattern)
	return x.Scan(ctx, p.IndexCategories(), p.IndexKey(), func(category index.Category, key string, paths []string) error {
		if !decoded.DecodeIndexKey(category, key) || !p.MatchesDecodedKey(decoded) {
			return nil
		}
		for _, path := range paths {
			if !sc.EnclosesPath(path) {
				continue
			}
			m := TypeNameMatch{
				Kind:           decoded.Kind,
				Package:        decoded.Package,
				SimpleName:     decoded.SimpleName,
				EnclosingTypes: append([]string(nil), decoded.EnclosingTypes...),
				Path:           path,
				Container:      x.Container(),
			}
			if err := req.AcceptTypeName(m); err != nil {
				return acceptError{err}
			}
		}
		return nil
	})
}

// SearchDeclarationsOfAccessedFields reports the declarations of the fields
// accessed inside enclosing.
func (e *Engine) SearchDeclarationsOfAccessedFields(ctx context.Context, enclosing types.Element, req Requestor, workingCopies ...WorkingCopy) (JobResult, error) {
	return e.searchDeclarations(ctx, pattern.AccessedFields, enclosing, req, workingCopies)
}

// SearchDeclarationsOfReferencedTypes reports the declarations of the types
// referenced inside enclosing.
func (e *Engine) SearchDeclarationsOfReferencedTypes(ctx context.Context, enclosing types.Element, req Requestor, workingCopies ...WorkingCopy) (JobResult, error) {
	return e.searchDeclarations(ctx, pattern.ReferencedTypes, enclosing, req, workingCopies)
}

// SearchDeclarationsOfSentMessages reports the declarations of the methods
// invoked inside enclosing.
func (e *Engine) SearchDeclarationsOfSentMessages(ctx context.Context, enclosing types.Element, req Requestor, workingCopies ...WorkingCopy) (JobResult, error) {
	return e.searchDeclarations(ctx, pattern.ReferencedMethods, enclosing, req, workingCopies)
}

func (e *Engine) searchDeclarations(ctx context.Context, what pattern.DeclarationKind, enclosing types.Element, req Requestor, workingCopies []WorkingCopy) (JobResult, error) {
	if err := enclosing.Validate(); err != nil {
		return JobResult{}, fmt.Errorf("%s: %w", what, err)
	}
	if enclosing.Path == "" {
		return JobResult{}, fmt.Errorf("%s: %w", what, types.ErrMissingPath)
	}
	enclosing.Path = filepath.Clean(enclosing.Path)
	return e.Search(ctx, pattern.NewDeclarationsOfPattern(what, enclosing), scope.NewWorkspace(), req, workingCopies...)
}

// CreatePattern parses a user typed pattern; it returns nil for malformed
// input.
func (e *Engine) CreatePattern(s string, searchFor pattern.SearchFor, limitTo pattern.LimitTo, rule pattern.MatchRule) pattern.Pattern {
	return pattern.CreatePattern(s, searchFor, limitTo, rule)
}

// CreatePatternForElement returns a pattern for a known element, or nil.
func (e *Engine) CreatePatternForElement(el types.Element, limitTo pattern.LimitTo, rule pattern.MatchRule) pattern.Pattern {
	return pattern.CreatePatternForElement(el, limitTo, rule)
}

// CreateWorkspaceScope returns a scope over every open index.
func (e *Engine) CreateWorkspaceScope() scope.Scope {
	return scope.NewWorkspace()
}

// CreateJavaSearchScope returns a scope over the given files and
// directories. Each path belongs to the longest open container that
// encloses it.
func (e *Engine) CreateJavaSearchScope(paths []string, includeSubtree bool) (*scope.JavaSearchScope, error) {
	s := scope.NewJavaSearchScope()
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		abs = filepath.Clean(abs)
		container := e.containerOf(abs)
		if container == "" {
			return nil, fmt.Errorf("%w: %s", ErrUnknownContainer, p)
		}
		s.Add(container, abs, includeSubtree)
	}
	return s, nil
}

// CreateHierarchyScope snapshots the supertypes and subtypes of focus.
// Subtypes are found through the super type references of the indexes and
// of the working copies, and confirmed by resolution.
func (e *Engine) CreateHierarchyScope(ctx context.Context, focus types.Element, workingCopies ...WorkingCopy) (*scope.HierarchyScope, error) {
	if focus.Kind != types.ElementType || focus.Validate() != nil {
		return nil, fmt.Errorf("hierarchy focus: %w", types.ErrInvalidElement)
	}
	names, overlay := e.nameEnvironment(ctx, workingCopies)
	env := lookup.NewEnvironment(names)
	root := env.Type(internalName(focus))
	if root == nil {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, focus.QualifiedName())
	}

	members := make(map[string]*lookup.TypeBinding)
	var supers func(t *lookup.TypeBinding)
	supers = func(t *lookup.TypeBinding) {
		if t == nil || members[t.Name] != nil {
			return
		}
		members[t.Name] = t
		supers(t.Superclass())
		for _, i := range t.Interfaces() {
			supers(i)
		}
	}
	supers(root)

	wcTypes := e.workingCopyTypes(env, overlay)
	indexes := e.manager.Indexes(e.manager.Containers())
	subtypes := map[string]bool{root.Name: true}
	queue := []*lookup.TypeBinding{root}
	for len(queue) > 0 {
		if err := checkCanceled(ctx); err != nil {
			return nil, err
		}
		t := queue[0]
		queue = queue[1:]
		candidates, err := e.directSubtypeCandidates(ctx, env, indexes, t)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, wcTypes...)
		for _, sub := range candidates {
			if sub == nil || subtypes[sub.Name] || !directlyExtends(sub, t) {
				continue
			}
			subtypes[sub.Name] = true
			members[sub.Name] = sub
			queue = append(queue, sub)
		}
	}

	out := make([]scope.HierarchyMember, 0, len(members))
	for _, t := range members {
		out = append(out, scope.HierarchyMember{QualifiedName: t.QualifiedName(), Path: t.Path, Container: t.Container})
	}
	return scope.NewHierarchyScope(root.QualifiedName(), out), nil
}

// directSubtypeCandidates resolves the types whose extends or implements
// clauses name t's simple name.
func (e *Engine) directSubtypeCandidates(ctx context.Context, env *lookup.Environment, indexes []*index.Index, t *lookup.TypeBinding) ([]*lookup.TypeBinding, error) {
	prefix := t.SimpleName() + string(index.Separator)
	var out []*lookup.TypeBinding
	for _, x := range indexes {
		var keys []index.SuperRefKey
		err := func() error {
			if err := enterReadMerged(ctx, x); err != nil {
				return err
			}
			defer x.Monitor().ExitRead()
			return x.Scan(ctx, []index.Category{index.CategorySuperRef}, prefix, func(_ index.Category, key string, _ []string) error {
				if k, ok := index.DecodeSuperRefKey(key); ok && k.SimpleName != "" {
					keys = append(keys, k)
				}
				return nil
			})
		}()
		if err != nil {
			if canceled(err) {
				return nil, checkCanceled(ctx)
			}
			log.Printf("search: hierarchy scan failed on %s: %v", x.Container(), err)
			continue
		}
		for _, k := range keys {
			internal := strings.Join(append(append([]string(nil), k.EnclosingTypes...), k.SimpleName), "$")
			if k.Package != "" {
				internal = strings.ReplaceAll(k.Package, ".", "/") + "/" + internal
			}
			out = append(out, env.Type(internal))
		}
	}
	return out, nil
}

// workingCopyTypes binds the named types declared by the working copies.
func (e *Engine) workingCopyTypes(env *lookup.Environment, overlay map[string]WorkingCopy) []*lookup.TypeBinding {
	paths := make([]string, 0, len(overlay))
	for p := range overlay {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var out []*lookup.TypeBinding
	for _, p := range paths {
		wc := overlay[p]
		parsed, err := e.participant.Parse(Document{Path: wc.Path, Container: wc.Container, Contents: wc.Contents, WorkingCopy: true})
		if err != nil || parsed.Unit == nil {
			continue
		}
		jast.Inspect(parsed.Unit, func(n jast.Node) bool {
			switch v := n.(type) {
			case *jast.TypeDecl:
				if v.Local || v.Anonymous {
					return false
				}
				out = append(out, env.Type(v.BinaryName()))
			case *jast.MethodDecl, *jast.FieldDecl:
				return false
			}
			return true
		})
	}
	return out
}

// directlyExtends compares internal names: bindings of the same type may
// come from different parses.
func directlyExtends(sub, t *lookup.TypeBinding) bool {
	if sub.Name == t.Name {
		return false
	}
	if s := sub.Superclass(); s != nil && s.Name == t.Name {
		return true
	}
	for _, i := range sub.Interfaces() {
		if i != nil && i.Name == t.Name {
			return true
		}
	}
	return false
}

// internalName returns the internal name (p/Outer$Inner) of a type element.
func internalName(e types.Element) string {
	pkg := strings.ReplaceAll(e.Package, ".", "/")
	nested := e.Name
	if e.DeclaringType != "" {
		outer := e.DeclaringType
		if e.Package != "" {
			outer = strings.TrimPrefix(outer, e.Package+".")
		}
		nested = strings.ReplaceAll(outer, ".", "$") + "$" + e.Name
	}
	if pkg == "" {
		return nested
	}
	return pkg + "/" + nested
}
