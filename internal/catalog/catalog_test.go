package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/salary"
	"github.com/jonnymoo/shape/internal/shape"
)

func TestLoad_Directory(t *testing.T) {
	c, errs := Load("testdata/shapes", LoadModeCollectAll)
	require.Empty(t, errs)

	assert.Equal(t, []string{"active-folders", "folder-by-ref", "salary-records"}, c.Names())
	assert.Equal(t, 3, c.Len())

	e, ok := c.Get("salary-records")
	require.True(t, ok)
	assert.Equal(t, "salary-records", e.Rule)
	assert.Equal(t, "salary rows for every tax year since joining", e.Description)
	assert.Equal(t, salary.Shape, e.Document.Shape, "catalog entry matches the compiled-in shape")
	assert.False(t, e.Document.List)
	assert.True(t, e.Pos.IsValid())
}

func TestLoad_FieldOrderAndFilters(t *testing.T) {
	c, errs := Load("testdata/shapes", LoadModeFailFast)
	require.Empty(t, errs)

	e, ok := c.Get("folder-by-ref")
	require.True(t, ok)

	want := shape.New(
		shape.F("folder", shape.ToOne{Shape: shape.New(
			shape.F("datejoinedcomp", shape.Scalar{}),
			shape.F("folderref", shape.Filter{Value: ir.String("MYREF")}),
			shape.F("payroll", shape.ToOne{Shape: shape.New(shape.F("payrollname", shape.Scalar{}))}),
			shape.F("salary", shape.ToMany{Template: shape.New(
				shape.F("basicsalary", shape.Scalar{}),
				shape.F("grade", shape.Filter{Value: ir.String("A")}),
			)}),
		)}),
	)
	assert.Equal(t, want, e.Document.Shape)

	list, ok := c.Get("active-folders")
	require.True(t, ok)
	assert.True(t, list.Document.List)
}

func TestLoadString_ScalarFilters(t *testing.T) {
	c, errs := LoadString(`
shape: typed: fields: folder: {
	active: true
	grade:  3
	rate:   1.5
}
`, "typed.cue", LoadModeFailFast)
	require.Empty(t, errs)

	e, _ := c.Get("typed")
	folder, ok := e.Document.Shape.Get("folder")
	require.True(t, ok)
	fields := folder.(shape.ToOne).Shape

	active, _ := fields.Get("active")
	assert.Equal(t, shape.Filter{Value: ir.Bool(true)}, active)
	grade, _ := fields.Get("grade")
	assert.Equal(t, shape.Filter{Value: ir.Int(3)}, grade)
	rate, _ := fields.Get("rate")
	assert.Equal(t, shape.Filter{Value: ir.Number("1.5")}, rate)
}

func TestLoadString_Errors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		errMsg string
	}{
		{
			name:   "no shape struct",
			src:    `other: 1`,
			errMsg: "no shape entries found",
		},
		{
			name:   "missing fields",
			src:    `shape: x: description: "no fields"`,
			errMsg: "fields is required",
		},
		{
			name:   "empty fields",
			src:    `shape: x: fields: {}`,
			errMsg: "at least one field is required",
		},
		{
			name:   "two element template",
			src:    `shape: x: fields: salary: [{a: null}, {a: null}]`,
			errMsg: "exactly one element, got 2",
		},
		{
			name:   "scalar template",
			src:    `shape: x: fields: salary: ["a"]`,
			errMsg: "to-many template must be a struct",
		},
		{
			name:   "not concrete",
			src:    `shape: x: fields: folder: ref: string`,
			errMsg: "must be concrete",
		},
		{
			name:   "bad description",
			src:    `shape: x: {description: 1, fields: a: null}`,
			errMsg: `shape "x"`,
		},
		{
			name:   "syntax error",
			src:    `shape: {`,
			errMsg: "cue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := LoadString(tt.src, "bad.cue", LoadModeFailFast)
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0].Error(), tt.errMsg)

			var le *LoadError
			assert.True(t, errors.As(errs[0], &le))
		})
	}
}

func TestLoadString_ErrorPosition(t *testing.T) {
	_, errs := LoadString("shape: x: fields: {\n\tfolder: ref: string\n}\n", "pos.cue", LoadModeFailFast)
	require.Len(t, errs, 1)

	var le *LoadError
	require.True(t, errors.As(errs[0], &le))
	assert.Equal(t, "x", le.Entry)
	assert.Equal(t, "folder.ref", le.Field)
	require.True(t, le.Pos.IsValid())
	assert.Equal(t, 2, le.Pos.Line())
	assert.Contains(t, le.Error(), "pos.cue:2:")
}

func TestLoadString_CollectAll(t *testing.T) {
	c, errs := LoadString(`
shape: good: fields: a: null
shape: bad1: fields: {}
shape: bad2: fields: l: []
`, "mixed.cue", LoadModeCollectAll)

	assert.Len(t, errs, 2)
	assert.Equal(t, []string{"good"}, c.Names())
}

func TestLoad_DirectoryErrors(t *testing.T) {
	_, errs := Load(filepath.Join(t.TempDir(), "missing"), LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "catalog directory not found")

	empty := t.TempDir()
	_, errs = Load(empty, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no CUE files found")

	file := filepath.Join(empty, "x.cue")
	require.NoError(t, os.WriteFile(file, []byte("shape: a: fields: b: null\n"), 0o644))
	_, errs = Load(file, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "not a directory")
}

func TestNew(t *testing.T) {
	c := New(
		Entry{Name: "a", Description: "first"},
		Entry{Name: "a", Description: "second"},
	)
	e, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "second", e.Description)

	_, ok = c.Get("b")
	assert.False(t, ok)
}
