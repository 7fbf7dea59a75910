package harness

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/match"
)

// AssertionError describes one failed expect clause.
type AssertionError struct {
	Check    string // expect field that failed
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

func fail(result *Result, check, expected, actual string) {
	result.AddError((&AssertionError{Check: check, Expected: expected, Actual: actual}).Error())
}

func checkMatch(e Expect, report match.Report, result *Result) {
	if e.OK != nil && *e.OK != report.OK {
		fail(result, "ok", fmt.Sprint(*e.OK), fmt.Sprintf("%v (missing: %s)", report.OK, describeMissing(report.Missing)))
	}

	if len(e.Missing) == 0 {
		return
	}
	if len(e.Missing) != len(report.Missing) {
		fail(result, "missing", fmt.Sprintf("%d entries", len(e.Missing)), describeMissing(report.Missing))
		return
	}
	for i, want := range e.Missing {
		got := report.Missing[i]
		if want.Key != got.Key ||
			(want.Reason != "" && want.Reason != got.Reason) ||
			(want.Path != "" && want.Path != got.Path) {
			fail(result, fmt.Sprintf("missing[%d]", i),
				fmt.Sprintf("%s %q at %q", want.Key, want.Reason, want.Path),
				fmt.Sprintf("%s %q at %q", got.Key, got.Reason, got.Path))
		}
	}
}

func describeMissing(missing []match.Missing) string {
	if len(missing) == 0 {
		return "none"
	}
	parts := make([]string, len(missing))
	for i, m := range missing {
		loc := m.Path
		if loc == "" {
			loc = m.Key
		}
		parts[i] = fmt.Sprintf("%s (%s)", loc, m.Reason)
	}
	return strings.Join(parts, ", ")
}

func checkCompile(e Expect, result *Result) {
	if e.CompileError != "" {
		if !strings.Contains(result.CompileError, e.CompileError) {
			fail(result, "compile_error", e.CompileError, orNone(result.CompileError))
		}
		return
	}

	if (e.SQL != "" || e.Binds != nil) && result.CompileError != "" {
		fail(result, "sql", "a compiled statement", result.CompileError)
		return
	}

	if e.SQL != "" && normalizeSQL(e.SQL) != normalizeSQL(result.SQL) {
		fail(result, "sql", normalizeSQL(e.SQL), result.SQL)
	}

	if e.Binds != nil {
		want, err := ir.FromGo(e.Binds)
		if err != nil {
			fail(result, "binds", fmt.Sprint(e.Binds), err.Error())
			return
		}
		got, err := ir.FromGo(result.Binds)
		if err != nil {
			fail(result, "binds", fmt.Sprint(e.Binds), err.Error())
			return
		}
		if !ir.Equal(want, got) {
			fail(result, "binds", fmt.Sprint(e.Binds), fmt.Sprint(result.Binds))
		}
	}
}

// checkValue compares a decoded YAML expectation with an actual tree.
// Numbers compare by value and object key order never matters.
func checkValue(check string, expected any, actual ir.Value, result *Result) {
	want, err := ir.FromGo(expected)
	if err != nil {
		fail(result, check, fmt.Sprint(expected), fmt.Sprintf("unusable expectation: %v", err))
		return
	}
	if !ir.Equal(want, actual) {
		fail(result, check, spew.Sdump(want), spew.Sdump(actual))
	}
}

// normalizeSQL collapses whitespace runs to single spaces.
func normalizeSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
