package eval

import "errors"

var (
	// ErrIllegalOptions is returned when an encoding override is combined
	// with the running VM bootclasspath
	ErrIllegalOptions = errors.New("illegal evaluation options: encoding cannot be combined with the running VM bootclasspath")
	// ErrEmptySnippet is returned when there is nothing to evaluate
	ErrEmptySnippet = errors.New("empty code snippet")
	// ErrUnknownVariable is returned by DeleteVariable for a variable the context does not hold
	ErrUnknownVariable = errors.New("unknown global variable")
	// ErrInvalidVariable is returned for a global variable without a name or type
	ErrInvalidVariable = errors.New("invalid global variable")
	// ErrPositionOutOfRange is returned when a completion or selection position is outside the snippet
	ErrPositionOutOfRange = errors.New("position outside the code snippet")
	// ErrCodeGeneration is returned when a resolved snippet cannot be
	// translated to bytecode
	ErrCodeGeneration = errors.New("code generation failed")
)
