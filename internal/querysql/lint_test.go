package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonnymoo/shape/internal/shape"
)

func TestLint_Clean(t *testing.T) {
	result := Lint(shape.MustParseJSON(payrollShape))

	assert.True(t, result.Clean)
	assert.Empty(t, result.Warnings)
}

func TestLint_Findings(t *testing.T) {
	doc := shape.MustParseJSON(`{
	  "folder": {
	    "folder-ref": null,
	    "folderref": null,
	    "payroll": {},
	    "--": null
	  },
	  "ref": "A"
	}`)

	result := Lint(doc)

	assert.False(t, result.Clean)
	assert.Equal(t, []string{
		`key "folder-ref" at folder.folder-ref is emitted as "folderref"`,
		`keys "folder-ref" and "folderref" at folder both emit "folderref"`,
		"folder.payroll selects no columns",
		`key "--" at folder.-- has no identifier characters`,
		"filter ref has no enclosing relation",
	}, result.Warnings)
}

func TestLint_EmptyRoot(t *testing.T) {
	result := Lint(shape.Document{})

	assert.Equal(t, []string{"root selects no columns"}, result.Warnings)
}
