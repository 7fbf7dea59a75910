package catalog

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// LoadError locates a problem in a catalog source.
type LoadError struct {
	Entry   string // shape entry name, "" for file-level problems
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	loc := e.Field
	if e.Entry != "" {
		loc = fmt.Sprintf("shape %q: %s", e.Entry, e.Field)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), loc, e.Message)
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return &LoadError{Field: "cue", Message: first.Error()}
}

// withEntry attributes err to a shape entry.
func withEntry(name string, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		le.Entry = name
		return le
	}
	return &LoadError{Entry: name, Field: "cue", Message: err.Error()}
}
