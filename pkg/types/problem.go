package types

import (
	"fmt"
	"strings"
)

// Severity of a reported problem
type Severity int

const (
	SeverityWarning Severity = 1
	SeverityError   Severity = 2
)

// ProblemID identifies the category of a problem
type ProblemID string

const (
	ProblemSyntax                    ProblemID = "SYNTAX_ERROR"
	ProblemUndefinedName             ProblemID = "UNDEFINED_NAME"
	ProblemUndefinedType             ProblemID = "UNDEFINED_TYPE"
	ProblemUndefinedField            ProblemID = "UNDEFINED_FIELD"
	ProblemUndefinedMethod           ProblemID = "UNDEFINED_METHOD"
	ProblemUndefinedConstructor      ProblemID = "UNDEFINED_CONSTRUCTOR"
	ProblemNotVisibleType            ProblemID = "NOT_VISIBLE_TYPE"
	ProblemNotVisibleField           ProblemID = "NOT_VISIBLE_FIELD"
	ProblemNotVisibleMethod          ProblemID = "NOT_VISIBLE_METHOD"
	ProblemNotVisibleConstructor     ProblemID = "NOT_VISIBLE_CONSTRUCTOR"
	ProblemAmbiguousField            ProblemID = "AMBIGUOUS_FIELD"
	ProblemAmbiguousMethod           ProblemID = "AMBIGUOUS_METHOD"
	ProblemAmbiguousConstructor      ProblemID = "AMBIGUOUS_CONSTRUCTOR"
	ProblemInheritedNameHidesOuter   ProblemID = "INHERITED_NAME_HIDES_ENCLOSING_NAME"
	ProblemStaticContext             ProblemID = "NON_STATIC_REFERENCE_IN_STATIC_CONTEXT"
	ProblemConstructorInvocation     ProblemID = "NON_STATIC_REFERENCE_IN_CONSTRUCTOR_INVOCATION"
	ProblemTypeMismatch              ProblemID = "TYPE_MISMATCH"
	ProblemVoidValue                 ProblemID = "VOID_VALUE_USED"
	ProblemSuperInSnippet            ProblemID = "SUPER_NOT_ALLOWED_IN_SNIPPET"
	ProblemDuplicateLocal            ProblemID = "DUPLICATE_LOCAL_VARIABLE"
	ProblemUnsupported               ProblemID = "UNSUPPORTED_CONSTRUCT"
	ProblemInvalidLeftHandSide       ProblemID = "INVALID_LEFT_HAND_SIDE"
	ProblemUnreachable               ProblemID = "UNREACHABLE_CODE"
	ProblemImportNotFound            ProblemID = "IMPORT_NOT_FOUND"
	ProblemPackageMismatch           ProblemID = "PACKAGE_MISMATCH"
	ProblemInternal                  ProblemID = "INTERNAL_ERROR"
	ProblemUninitializedLocal        ProblemID = "UNINITIALIZED_LOCAL"
	ProblemIncompatibleReturn        ProblemID = "INCOMPATIBLE_RETURN"
	ProblemUnhandledInstanceofTarget ProblemID = "INVALID_INSTANCEOF"
	ProblemAbstractInstantiation     ProblemID = "INSTANTIATION_OF_ABSTRACT_TYPE"
	ProblemUndefinedOperator         ProblemID = "UNDEFINED_OPERATOR"
)

// Problem is a diagnostic attached to a range of source text
type Problem struct {
	ID       ProblemID
	Severity Severity
	Message  string
	// Arguments carry the names the message was built from (e.g. the unresolved identifier)
	Arguments []string

	// Location, as byte offsets and a 1-based line number
	Start int
	End   int // inclusive end offset, -1 when unknown
	Line  int

	// Suggestion holds the closest visible name for NotFound problems
	Suggestion string
}

// IsError reports whether the problem prevents code generation
func (p Problem) IsError() bool {
	return p.Severity == SeverityError
}

// Shift returns a copy of the problem moved by the given position and line deltas
func (p Problem) Shift(posDelta, lineDelta int) Problem {
	p.Start += posDelta
	if p.End >= 0 {
		p.End += posDelta
	}
	p.Line += lineDelta
	return p
}

// Error implements the error interface
func (p Problem) Error() string {
	return p.String()
}

// String renders the problem in a compiler-like form
func (p Problem) String() string {
	var sb strings.Builder
	if p.Severity == SeverityWarning {
		sb.WriteString("WARNING")
	} else {
		sb.WriteString("ERROR")
	}
	fmt.Fprintf(&sb, " line %d [%s]: %s", p.Line, p.ID, p.Message)
	if p.Suggestion != "" {
		fmt.Fprintf(&sb, " (did you mean '%s'?)", p.Suggestion)
	}
	return sb.String()
}

// NewError creates an error-severity problem
func NewError(id ProblemID, start, end, line int, format string, args ...string) Problem {
	values := make([]any, len(args))
	for i, a := range args {
		values[i] = a
	}
	return Problem{
		ID:        id,
		Severity:  SeverityError,
		Message:   fmt.Sprintf(format, values...),
		Arguments: args,
		Start:     start,
		End:       end,
		Line:      line,
	}
}

// HasErrors returns true if any of the problems has error severity
func HasErrors(problems []Problem) bool {
	for _, p := range problems {
		if p.IsError() {
			return true
		}
	}
	return false
}
