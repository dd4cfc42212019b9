package lookup

import (
	"strings"

	"github.com/dshills/javacontext-mcp/internal/jast"
)

// UnitEnvironment is a NameEnvironment over parsed compilation units.
type UnitEnvironment struct {
	container string
	types     map[string]*Answer
	packages  map[string]bool
}

// NewUnitEnvironment indexes the top-level and member types of units.
func NewUnitEnvironment(container string, units ...*jast.CompilationUnit) *UnitEnvironment {
	u := &UnitEnvironment{
		container: container,
		types:     make(map[string]*Answer),
		packages:  make(map[string]bool),
	}
	for _, unit := range units {
		u.Add(unit)
	}
	return u
}

// Add indexes one unit, replacing earlier declarations of the same types.
func (u *UnitEnvironment) Add(unit *jast.CompilationUnit) {
	segs := SplitName(unit.PackageName())
	for i := 1; i <= len(segs); i++ {
		u.packages[strings.Join(segs[:i], "/")] = true
	}
	for _, t := range unit.Types {
		u.types[t.BinaryName()] = &Answer{Source: t, Container: u.container, Path: unit.Path}
	}
}

// FindType implements NameEnvironment.
func (u *UnitEnvironment) FindType(compound []string) *Answer {
	return u.types[strings.Join(compound, "/")]
}

// FindTypeInPackage implements NameEnvironment.
func (u *UnitEnvironment) FindTypeInPackage(name string, pkg []string) *Answer {
	return u.FindType(append(append([]string(nil), pkg...), name))
}

// IsPackage implements NameEnvironment.
func (u *UnitEnvironment) IsPackage(parent []string, name string) bool {
	return u.packages[strings.Join(append(append([]string(nil), parent...), name), "/")]
}
