package eval

import (
	"fmt"

	"github.com/dshills/javacontext-mcp/internal/jast"
)

// GlobalVariable is a variable that outlives a single evaluation. Global
// variables are fields of the installed variables class, which later
// snippet classes extend.
type GlobalVariable struct {
	Name     string
	TypeName string
	// Initializer is the source of the initial value, or empty.
	Initializer string

	// positions of the declaration and initializer in the last generated
	// variables unit, -1 when absent
	declarationStart int
	initializerStart int
	initializerLine  int
	initialized      bool
}

// DeclarationStart returns the offset of the variable type in the last
// generated variables unit.
func (v *GlobalVariable) DeclarationStart() int { return v.declarationStart }

// InitializerStart returns the offset of the initializer in the last
// generated variables unit, or -1.
func (v *GlobalVariable) InitializerStart() int { return v.initializerStart }

// InitializerLine returns the line of the initializer in the last generated
// variables unit, or -1.
func (v *GlobalVariable) InitializerLine() int { return v.initializerLine }

// Initialized reports whether the initializer ran in an installed class.
func (v *GlobalVariable) Initialized() bool { return v.initialized }

func (v *GlobalVariable) validate() error {
	if !isIdentifier(v.Name) {
		return fmt.Errorf("%w: name %q", ErrInvalidVariable, v.Name)
	}
	if v.TypeName == "" {
		return fmt.Errorf("%w: %s has no type", ErrInvalidVariable, v.Name)
	}
	return nil
}

var keywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true, "case": true,
	"catch": true, "char": true, "class": true, "const": true, "continue": true, "default": true,
	"do": true, "double": true, "else": true, "enum": true, "extends": true, "final": true,
	"finally": true, "float": true, "for": true, "goto": true, "if": true, "implements": true,
	"import": true, "instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true, "return": true,
	"short": true, "static": true, "strictfp": true, "super": true, "switch": true, "synchronized": true,
	"this": true, "throw": true, "throws": true, "transient": true, "try": true, "void": true,
	"volatile": true, "while": true, "true": true, "false": true, "null": true,
}

func isIdentifier(s string) bool {
	if s == "" || keywords[s] {
		return false
	}
	for i, r := range s {
		letter := r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 0x7f
		if !letter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// fieldDecl finds the declaration of a global variable in the variables unit.
func fieldDecl(decl *jast.TypeDecl, name string) *jast.FieldDecl {
	for _, f := range decl.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}
