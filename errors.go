package qmps

import "github.com/pkg/errors"

var (
	// ErrUnsupportedOperation is returned for an unknown gate, snapshot or
	// operation kind. The run is aborted.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrUnsupportedPartialInitialize is returned when initialize targets a
	// strict subset of the register.
	ErrUnsupportedPartialInitialize = errors.New("partial initialize is not supported")
	ErrDimensionMismatch            = errors.New("dimension mismatch")
	ErrEmptyExpectationSpec         = errors.New("empty expectation value specification")
	// ErrMalformedOperation covers arity, range and duplicate-qubit
	// problems found before an operation touches the register.
	ErrMalformedOperation = errors.New("malformed operation")
	ErrInvalidConfig      = errors.New("invalid configuration")
)
