package types

// Accuracy is the confidence level of a search match
type Accuracy int

const (
	// AccuracyAccurate is reported when resolution was fully unambiguous
	AccuracyAccurate Accuracy = 0
	// AccuracyInaccurate is reported when a compile error, an unresolved import
	// or an incomplete class path prevented full confirmation
	AccuracyInaccurate Accuracy = 1
)

// String implements fmt.Stringer
func (a Accuracy) String() string {
	if a == AccuracyAccurate {
		return "ACCURATE"
	}
	return "INACCURATE"
}

// GenericRule qualifies how a generic type matched the pattern
type GenericRule int

const (
	RuleExact      GenericRule = 0
	RuleCompatible GenericRule = 0x0100
	RuleErasure    GenericRule = 0x0200
)

// MatchKind tells which flavour of occurrence a match is
type MatchKind string

const (
	MatchTypeDeclaration        MatchKind = "type_declaration"
	MatchTypeReference          MatchKind = "type_reference"
	MatchFieldDeclaration       MatchKind = "field_declaration"
	MatchFieldReference         MatchKind = "field_reference"
	MatchMethodDeclaration      MatchKind = "method_declaration"
	MatchMethodReference        MatchKind = "method_reference"
	MatchConstructorDeclaration MatchKind = "constructor_declaration"
	MatchConstructorReference   MatchKind = "constructor_reference"
	MatchPackageDeclaration     MatchKind = "package_declaration"
	MatchPackageReference       MatchKind = "package_reference"
	MatchLocalDeclaration       MatchKind = "local_variable_declaration"
	MatchLocalReference         MatchKind = "local_variable_reference"
	MatchTypeParameterDecl      MatchKind = "type_parameter_declaration"
	MatchTypeParameterRef       MatchKind = "type_parameter_reference"
)

// SearchMatch represents a single confirmed occurrence produced by the match locator
type SearchMatch struct {
	Kind     MatchKind
	Element  Element
	Accuracy Accuracy

	// Offset and Length locate the match in the resource, -1/-1 when unknown
	Offset int
	Length int

	Participant      string
	Resource         string // Document path, empty if not file-backed
	InsideDocComment bool
	Rule             GenericRule

	// Field references only
	IsReadAccess  bool
	IsWriteAccess bool
}

// IsAccurate reports whether the match was fully confirmed
func (m *SearchMatch) IsAccurate() bool {
	return m.Accuracy == AccuracyAccurate
}

// Validate checks if the search match is valid
func (m *SearchMatch) Validate() error {
	if err := m.Element.Validate(); err != nil {
		return err
	}
	if m.Accuracy != AccuracyAccurate && m.Accuracy != AccuracyInaccurate {
		return ErrInvalidAccuracy
	}
	if (m.Offset == -1) != (m.Length == -1) || m.Offset < -1 || m.Length < -1 {
		return ErrInvalidRange
	}
	if m.Rule&^(RuleCompatible|RuleErasure) != 0 {
		return ErrInvalidRule
	}
	return nil
}
