package validation

import (
	"errors"
	"fmt"

	"github.com/jonnymoo/shape/internal/match"
)

// ErrInvalidInput is matched by every *InvalidInputError.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError is returned under PolicyError when the input does not
// contain the required shape. The business function was not called.
type InvalidInputError struct {
	Report match.Report
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	switch n := len(e.Report.Missing); n {
	case 0:
		return "invalid input"
	case 1:
		m := e.Report.Missing[0]
		return fmt.Sprintf("invalid input: %s: %s", pathOrKey(m), m.Reason)
	default:
		m := e.Report.Missing[0]
		return fmt.Sprintf("invalid input: %s: %s (and %d more)", pathOrKey(m), m.Reason, n-1)
	}
}

// Is lets errors.Is match ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IsInvalidInput returns true if err carries a shape mismatch report.
// Uses errors.As to handle wrapped errors.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

func pathOrKey(m match.Missing) string {
	if m.Path != "" {
		return m.Path
	}
	return m.Key
}
