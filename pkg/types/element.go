package types

import (
	"strings"
)

// ElementKind represents the kind of Java program element
type ElementKind string

const (
	ElementPackage       ElementKind = "package"
	ElementType          ElementKind = "type"
	ElementField         ElementKind = "field"
	ElementMethod        ElementKind = "method"
	ElementConstructor   ElementKind = "constructor"
	ElementLocalVariable ElementKind = "local_variable"
	ElementTypeParameter ElementKind = "type_parameter"
	ElementImport        ElementKind = "import"
)

// Position represents a location in source code
type Position struct {
	Line   int
	Column int
}

// Element is a handle on a Java program element. Handles are plain values:
// two handles denoting the same element compare equal through Key.
type Element struct {
	Kind ElementKind
	Name string

	// Package is the dotted package name ("" for the default package)
	Package string
	// DeclaringType is the dotted type-qualified name of the enclosing type
	// (e.g. "p.Outer.Inner"), empty for packages and top-level types.
	DeclaringType string
	// ParameterTypes holds the parameter types as written, for methods and constructors
	ParameterTypes []string
	// Type is the field/local variable type or the method return type as written
	Type string

	// Location
	Path       string // Document path
	Container  string // Project or library the document belongs to
	NameOffset int
	NameLength int
}

// QualifiedName returns the fully qualified name of the element
func (e Element) QualifiedName() string {
	switch e.Kind {
	case ElementPackage:
		return e.Name
	case ElementType:
		if e.DeclaringType != "" {
			return e.DeclaringType + "." + e.Name
		}
		if e.Package != "" {
			return e.Package + "." + e.Name
		}
		return e.Name
	default:
		if e.DeclaringType != "" {
			return e.DeclaringType + "." + e.Name
		}
		return e.Name
	}
}

// Signature renders methods and constructors as name(T1, T2)
func (e Element) Signature() string {
	if e.Kind != ElementMethod && e.Kind != ElementConstructor {
		return e.QualifiedName()
	}
	return e.QualifiedName() + "(" + strings.Join(e.ParameterTypes, ", ") + ")"
}

// Key identifies the element independently of its source location
func (e Element) Key() string {
	return string(e.Kind) + ":" + e.Signature()
}

// Validate checks if the element handle is usable
func (e Element) Validate() error {
	if e.Name == "" && e.Kind != ElementPackage {
		return ErrInvalidElement
	}
	switch e.Kind {
	case ElementPackage, ElementType, ElementField, ElementMethod, ElementConstructor,
		ElementLocalVariable, ElementTypeParameter, ElementImport:
	default:
		return ErrInvalidElement
	}
	if (e.Kind == ElementField || e.Kind == ElementMethod || e.Kind == ElementConstructor) && e.DeclaringType == "" {
		return ErrInvalidElement
	}
	return nil
}

// String implements fmt.Stringer
func (e Element) String() string {
	return string(e.Kind) + " " + e.Signature()
}
