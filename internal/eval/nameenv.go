package eval

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/lookup"
)

// RootClassName is the internal name of the class every snippet class
// extends, directly or through the installed global variables class.
const RootClassName = "javacontext/eval/target/CodeSnippet"

// SetResultMethod receives the value of a snippet.
const (
	SetResultMethod = "setResult"
	SetResultDesc   = "(Ljava/lang/Object;Ljava/lang/Class;)V"
)

// CompiledClass is one class file produced by an evaluation.
type CompiledClass struct {
	// Name is the internal name of the class.
	Name  string
	Bytes []byte
}

// ClassSource supplies the classes an evaluation context contributes to
// name lookups.
type ClassSource interface {
	// RootClass returns the skeleton of the root snippet class, or nil.
	RootClass() *classfile.ClassFile
	// InstalledClasses returns the classes installed by earlier
	// evaluations, oldest first.
	InstalledClasses() []CompiledClass
}

// methodSkeleton describes one method of a binary skeleton type.
type methodSkeleton struct {
	name        string
	desc        string
	exceptions  []string
	constructor bool
}

func newMethodSkeleton(name, desc string, exceptions []string, constructor bool) methodSkeleton {
	return methodSkeleton{name: name, desc: desc, exceptions: exceptions, constructor: constructor}
}

// IsConstructor reports the flag the skeleton was created with.
func (m methodSkeleton) IsConstructor() bool { return m.constructor }

func (m methodSkeleton) method() *classfile.Method {
	name := m.name
	if m.constructor {
		name = "<init>"
	}
	return &classfile.Method{Access: classfile.AccPublic, Name: name, Descriptor: m.desc, Exceptions: m.exceptions}
}

var rootMethods = []methodSkeleton{
	newMethodSkeleton("CodeSnippet", "()V", nil, true),
	newMethodSkeleton(RunMethod, "()V", []string{"java/lang/Throwable"}, false),
	newMethodSkeleton(SetResultMethod, SetResultDesc, nil, false),
}

// RootSkeleton returns the binary view of the root snippet class: a
// no-argument constructor, run() throwing Throwable and setResult.
func RootSkeleton() *classfile.ClassFile {
	cf := &classfile.ClassFile{
		Major:  classfile.MajorVersion,
		Access: classfile.AccPublic | classfile.AccSuper | classfile.AccAbstract,
		Name:   RootClassName,
		Super:  "java/lang/Object",
	}
	for _, m := range rootMethods {
		cf.Methods = append(cf.Methods, m.method())
	}
	return cf
}

// HybridNameEnvironment answers from the real class path first, then the
// root snippet class, then the classes installed in an evaluation context.
type HybridNameEnvironment struct {
	real    lookup.NameEnvironment
	context ClassSource
	decoded *lru.Cache[string, *classfile.ClassFile]
}

// NewHybridNameEnvironment wraps real. decoded caches parsed installed
// classes across evaluations and may be nil.
func NewHybridNameEnvironment(real lookup.NameEnvironment, context ClassSource, decoded *lru.Cache[string, *classfile.ClassFile]) *HybridNameEnvironment {
	return &HybridNameEnvironment{real: real, context: context, decoded: decoded}
}

// FindType implements lookup.NameEnvironment.
func (h *HybridNameEnvironment) FindType(compound []string) *lookup.Answer {
	if h.real != nil {
		if a := h.real.FindType(compound); a != nil {
			return a
		}
	}
	name := strings.Join(compound, "/")
	if name == RootClassName {
		if root := h.context.RootClass(); root != nil {
			return &lookup.Answer{Binary: root}
		}
	}
	for _, c := range h.context.InstalledClasses() {
		if c.Name == name {
			return &lookup.Answer{Binary: h.decode(c)}
		}
	}
	return nil
}

// decode parses an installed class. Installed classes were written by this
// package, so a parse failure is a defect.
func (h *HybridNameEnvironment) decode(c CompiledClass) *classfile.ClassFile {
	if h.decoded != nil {
		if cf, ok := h.decoded.Get(c.Name); ok {
			return cf
		}
	}
	cf, err := classfile.Parse(c.Bytes)
	if err != nil {
		panic(fmt.Sprintf("eval: installed class %s does not parse: %v", c.Name, err))
	}
	if h.decoded != nil {
		h.decoded.Add(c.Name, cf)
	}
	return cf
}

// FindTypeInPackage implements lookup.NameEnvironment.
func (h *HybridNameEnvironment) FindTypeInPackage(name string, pkg []string) *lookup.Answer {
	compound := make([]string, 0, len(pkg)+1)
	compound = append(append(compound, pkg...), name)
	return h.FindType(compound)
}

// IsPackage implements lookup.NameEnvironment.
func (h *HybridNameEnvironment) IsPackage(parent []string, name string) bool {
	if h.real == nil {
		return false
	}
	return h.real.IsPackage(parent, name)
}
