package eval

import (
	"strconv"
	"strings"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/jast"
	"github.com/dshills/javacontext-mcp/internal/lookup"
)

// OuterThisField holds the enclosing instance of a nested snippet class.
const OuterThisField = "this$0"

// nestedClass is a local or anonymous class declared by a snippet. It is
// compiled to a class file of its own, named after the snippet class.
type nestedClass struct {
	decl *jast.TypeDecl
	t    *lookup.TypeBinding
	// alloc is the allocation declaring an anonymous class.
	alloc *jast.New
	// host is the class whose code declares the class; method is the
	// enclosing method, nil for an initializer.
	host   *lookup.TypeBinding
	method *jast.MethodDecl
	// outer is the type kept in this$0, nil in a static context.
	outer *lookup.TypeBinding
	// captured are the enclosing locals copied into val$ fields.
	captured []*lookup.LocalBinding
	fields   map[*lookup.LocalBinding]string
}

// nesting holds the nested classes of one compilation in declaration order.
type nesting struct {
	snippet *lookup.TypeBinding
	// this is the captured receiver field, nil in a static or context-free
	// frame.
	this    *lookup.FieldBinding
	classes []*nestedClass
	byType  map[*lookup.TypeBinding]*nestedClass
}

// newNesting collects the classes declared in the run() method of snippet
// and renames them into the namespace of the snippet class: the first
// anonymous class becomes CodeSnippet_1$1, a local class Point declared
// next becomes CodeSnippet_1$2Point.
func newNesting(env *lookup.Environment, res *lookup.Resolution, snippet *lookup.TypeBinding, run *jast.MethodDecl, this *lookup.FieldBinding) *nesting {
	n := &nesting{snippet: snippet, this: this, byType: make(map[*lookup.TypeBinding]*nestedClass)}
	if run != nil && run.Body != nil {
		n.collect(res, run.Body, snippet, run)
	}
	for i, nc := range n.classes {
		env.RenameLocalType(nc.t, snippet.Name+"$"+strconv.Itoa(i+1)+nc.decl.Name)
	}
	for _, nc := range n.classes {
		nc.outer = n.outerType(nc)
	}
	n.capture(res)
	return n
}

func (n *nesting) of(t *lookup.TypeBinding) *nestedClass {
	if t == nil {
		return nil
	}
	return n.byType[t]
}

// generated reports classes whose code this compilation produces.
func (n *nesting) generated(t *lookup.TypeBinding) bool {
	return t != nil && (t == n.snippet || n.byType[t] != nil)
}

func (n *nesting) collect(res *lookup.Resolution, root jast.Node, host *lookup.TypeBinding, method *jast.MethodDecl) {
	jast.Inspect(root, func(node jast.Node) bool {
		var decl *jast.TypeDecl
		var alloc *jast.New
		switch x := node.(type) {
		case *jast.LocalTypeDecl:
			decl = x.Decl
		case *jast.New:
			if x.Body == nil {
				return true
			}
			decl, alloc = x.Body, x
			if x.Outer != nil {
				n.collect(res, x.Outer, host, method)
			}
			for _, a := range x.Args {
				n.collect(res, a, host, method)
			}
		default:
			return true
		}
		t := res.LocalTypes[decl]
		if t == nil {
			return false
		}
		nc := &nestedClass{decl: decl, t: t, alloc: alloc, host: host, method: method, fields: make(map[*lookup.LocalBinding]string)}
		n.classes = append(n.classes, nc)
		n.byType[t] = nc
		for _, f := range decl.Fields {
			n.collect(res, f, t, nil)
		}
		for _, b := range decl.Initializers {
			n.collect(res, b, t, nil)
		}
		for _, m := range decl.Methods {
			n.collect(res, m, t, m)
		}
		return false
	})
}

func (n *nesting) outerType(nc *nestedClass) *lookup.TypeBinding {
	switch {
	case nc.host == n.snippet:
		if nc.t.Enclosing == n.snippet {
			return n.snippet
		}
		if n.this != nil {
			return nc.t.Enclosing
		}
		return nil
	case nc.method != nil && nc.method.Modifiers.Has(jast.ModStatic):
		return nil
	}
	return nc.host
}

// capture computes the locals each nested class copies: the enclosing
// locals its code reads, and those the nested classes it allocates or
// extends need in turn.
func (n *nesting) capture(res *lookup.Resolution) {
	uses := make(map[*nestedClass][]*lookup.LocalBinding)
	needs := make(map[*nestedClass][]*nestedClass)
	for _, nc := range n.classes {
		if sup := n.of(nc.t.Superclass()); sup != nil {
			needs[nc] = append(needs[nc], sup)
		}
		jast.Inspect(nc.decl, func(node jast.Node) bool {
			switch x := node.(type) {
			case *jast.Ident:
				if l := res.Locals[x]; l != nil {
					uses[nc] = append(uses[nc], l)
				}
			case *jast.New:
				if other := n.of(res.TypeOf(x)); other != nil && other != nc {
					needs[nc] = append(needs[nc], other)
				}
			}
			return true
		})
	}
	for changed := true; changed; {
		changed = false
		for _, nc := range n.classes {
			for _, l := range uses[nc] {
				changed = nc.addCapture(l) || changed
			}
			for _, other := range needs[nc] {
				for _, l := range other.captured {
					changed = nc.addCapture(l) || changed
				}
			}
		}
	}
}

// declares reports whether l is declared inside the class body.
func (nc *nestedClass) declares(l *lookup.LocalBinding) bool {
	if l.Decl == nil {
		return false
	}
	start, _ := l.Decl.Pos()
	return start >= nc.decl.Start && start < nc.decl.End
}

func (nc *nestedClass) addCapture(l *lookup.LocalBinding) bool {
	if _, ok := nc.fields[l]; ok || nc.declares(l) {
		return false
	}
	name := CapturedPrefix + l.Name
	for taken := true; taken; {
		taken = false
		for _, other := range nc.fields {
			if other == name {
				name += "$"
				taken = true
			}
		}
	}
	nc.captured = append(nc.captured, l)
	nc.fields[l] = name
	return true
}

// ctorDesc is the descriptor of the generated constructor taking params:
// the enclosing instance comes first and the captured locals last.
func (nc *nestedClass) ctorDesc(params []*lookup.TypeBinding) string {
	var sb strings.Builder
	sb.WriteByte('(')
	if nc.outer != nil {
		sb.WriteString(nc.outer.Descriptor())
	}
	for _, p := range params {
		sb.WriteString(p.Descriptor())
	}
	for _, l := range nc.captured {
		sb.WriteString(l.Type.Descriptor())
	}
	sb.WriteString(")V")
	return sb.String()
}

// outerPath lists the classes whose this$0 fields lead from code in class
// from to the lexically enclosing instance of type target. via is set when
// the last step reads the captured receiver of the snippet class.
func (n *nesting) outerPath(from, target *lookup.TypeBinding) (hops []*nestedClass, via, ok bool) {
	for c := from; c != nil; {
		if c == target {
			return hops, false, true
		}
		if c == n.snippet {
			if n.this != nil && n.this.Type == target {
				return hops, true, true
			}
			return nil, false, false
		}
		nc := n.of(c)
		if nc == nil || nc.outer == nil {
			return nil, false, false
		}
		hops = append(hops, nc)
		c = nc.outer
	}
	return nil, false, false
}

// static reports whether the chain of enclosing instances starting at
// code in class from ends in a static context.
func (n *nesting) static(from *lookup.TypeBinding) bool {
	for c := from; c != nil; {
		if c == n.snippet {
			return n.this == nil
		}
		nc := n.of(c)
		if nc == nil {
			return false
		}
		if nc.outer == nil {
			return true
		}
		c = nc.outer
	}
	return false
}

// innerClass is the InnerClasses entry describing nc.
func (nc *nestedClass) innerClass() classfile.InnerClass {
	access := uint16(nc.decl.Modifiers) & (classfile.AccFinal | classfile.AccAbstract)
	if nc.outer == nil {
		access |= classfile.AccStatic
	}
	return classfile.InnerClass{Inner: nc.t.Name, Name: nc.decl.Name, Access: access}
}
