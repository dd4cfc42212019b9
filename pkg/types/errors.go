package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidElement  = errors.New("invalid element")
	ErrInvalidAccuracy = errors.New("accuracy must be ACCURATE or INACCURATE")
	ErrInvalidRange    = errors.New("offset and length must both be -1 or both be non-negative")
	ErrInvalidRule     = errors.New("match rule may only combine COMPATIBLE and ERASURE")
	ErrMissingPath     = errors.New("resource path is required")
)
