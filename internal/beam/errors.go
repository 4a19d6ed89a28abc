package beam

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches every *InvalidInputError under errors.Is.
var ErrInvalidInput = errors.New("beam: invalid input")

// InvalidInputError reports a grid or option the estimators cannot work with.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "beam: invalid input: " + e.Reason
}

// Is reports whether target is ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidf(format string, args ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedMethodError is returned for a method name other than "iso" or "gauss".
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("beam: invalid method %q, choose from: iso, gauss", e.Method)
}
