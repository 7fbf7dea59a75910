package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/match"
)

func boolPtr(b bool) *bool { return &b }

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Check: "sql", Expected: "SELECT 1", Actual: "SELECT 2"}
	assert.Equal(t, "Assertion failed: sql\n  Expected: SELECT 1\n  Actual: SELECT 2", err.Error())
}

func TestCheckMatch(t *testing.T) {
	report := match.Report{
		OK: false,
		Missing: []match.Missing{
			{Key: "salary", Reason: match.ReasonMissing, Path: "folder.salary"},
		},
	}

	tests := []struct {
		name   string
		expect Expect
		errors int
	}{
		{name: "ok matches", expect: Expect{OK: boolPtr(false)}, errors: 0},
		{name: "ok differs", expect: Expect{OK: boolPtr(true)}, errors: 1},
		{name: "key only", expect: Expect{Missing: []MissingKey{{Key: "salary"}}}, errors: 0},
		{
			name:   "all fields",
			expect: Expect{Missing: []MissingKey{{Key: "salary", Reason: "missing", Path: "folder.salary"}}},
			errors: 0,
		},
		{name: "wrong reason", expect: Expect{Missing: []MissingKey{{Key: "salary", Reason: "expected a list"}}}, errors: 1},
		{name: "wrong path", expect: Expect{Missing: []MissingKey{{Key: "salary", Path: "salary"}}}, errors: 1},
		{name: "count differs", expect: Expect{Missing: []MissingKey{{Key: "salary"}, {Key: "grade"}}}, errors: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResult()
			checkMatch(tt.expect, report, r)
			assert.Len(t, r.Errors, tt.errors)
			assert.Equal(t, tt.errors == 0, r.Pass)
		})
	}
}

func TestCheckCompile(t *testing.T) {
	compiled := func() *Result {
		r := NewResult()
		r.SQL = "SELECT a\nFROM t"
		r.Binds = []any{"MYREF", int64(3)}
		return r
	}

	t.Run("whitespace is normalized", func(t *testing.T) {
		r := compiled()
		checkCompile(Expect{SQL: "  SELECT a   FROM t "}, r)
		assert.True(t, r.Pass, "errors: %v", r.Errors)
	})

	t.Run("binds compare by value", func(t *testing.T) {
		r := compiled()
		checkCompile(Expect{Binds: []any{"MYREF", 3}}, r)
		assert.True(t, r.Pass, "errors: %v", r.Errors)
	})

	t.Run("binds differ", func(t *testing.T) {
		r := compiled()
		checkCompile(Expect{Binds: []any{"MYREF"}}, r)
		assert.False(t, r.Pass)
	})

	t.Run("compile error substring", func(t *testing.T) {
		r := NewResult()
		r.CompileError = "shape cannot be compiled: folder selects no columns"
		checkCompile(Expect{CompileError: "selects no columns"}, r)
		assert.True(t, r.Pass)
	})

	t.Run("nothing expected", func(t *testing.T) {
		r := NewResult()
		r.CompileError = "boom"
		checkCompile(Expect{}, r)
		assert.True(t, r.Pass)
	})
}

func TestCheckValue(t *testing.T) {
	actual := ir.Object{
		"folder": ir.Object{
			"salary": ir.Array{ir.Object{"basicsalary": ir.Number("25000.0")}},
		},
	}

	r := NewResult()
	checkValue("fetched", map[string]any{
		"folder": map[string]any{
			"salary": []any{map[string]any{"basicsalary": 25000}},
		},
	}, actual, r)
	assert.True(t, r.Pass, "errors: %v", r.Errors)

	r = NewResult()
	checkValue("fetched", map[string]any{"folder": map[string]any{}}, actual, r)
	assert.False(t, r.Pass)
	assert.Contains(t, r.Errors[0], "Assertion failed: fetched")
	assert.Contains(t, r.Errors[0], "basicsalary")

	r = NewResult()
	checkValue("fetched", struct{}{}, actual, r)
	assert.Contains(t, r.Errors[0], "unusable expectation")
}

func TestNormalizeSQL(t *testing.T) {
	assert.Equal(t, "SELECT a FROM t", normalizeSQL("\n  SELECT a\n\tFROM   t\n"))
}
