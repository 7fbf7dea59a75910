package harness

import (
	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/match"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause held.
	Pass bool `json:"pass"`

	// Errors contains one message per failed check.
	Errors []string `json:"errors,omitempty"`

	// Report is the match report, nil without an input.
	Report *match.Report `json:"report,omitempty"`

	// SQL and Binds are the compiled statement for the scenario dialect.
	SQL   string `json:"sql,omitempty"`
	Binds []any  `json:"binds,omitempty"`

	// CompileError is set when the shape did not compile.
	CompileError string `json:"compile_error,omitempty"`

	// Reshaped is the reshaped scenario result, nil without one.
	Reshaped ir.Value `json:"reshaped,omitempty"`

	// Fetched is the document fetched from fixtures, nil without them.
	Fetched ir.Value `json:"fetched,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
