package ring

import (
	"errors"
)

var (
	// ErrLengthMismatch is returned when the operands of an element-wise
	// operation do not have the same length.
	ErrLengthMismatch = errors.New("operands have mismatched lengths")

	// ErrInvalidCyclotomicOrder is returned when a transform is called with
	// a cyclotomic order that does not meet its requirements (e.g. a
	// power-of-two transform called with a non-power-of-two order).
	ErrInvalidCyclotomicOrder = errors.New("invalid cyclotomic order")

	// ErrNotInvertible is returned when a required modular inverse does
	// not exist.
	ErrNotInvertible = errors.New("value is not invertible")

	// ErrSizeMismatch is returned when a polynomial operation receives
	// operands with incompatible sizes or moduli.
	ErrSizeMismatch = errors.New("operands have mismatched sizes")
)
