package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogDir = "../catalog/testdata/shapes"

func writeCatalog(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shapes.cue"), []byte(src), 0644))
	return dir
}

func TestCatalog_ListText(t *testing.T) {
	out, err := execute(t, "", "catalog", catalogDir)
	require.NoError(t, err)

	assert.Contains(t, out, "3 shape(s)")
	assert.Contains(t, out, "active-folders (list)")
	assert.Contains(t, out, "folder-by-ref (object)")
	assert.Contains(t, out, "salary-records (object) -> salary-records")
	assert.Contains(t, out, "keys: folder, inputs")
}

func TestCatalog_ListJSON(t *testing.T) {
	out, err := execute(t, "", "--format", "json", "catalog", catalogDir)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Shapes []CatalogEntry `json:"shapes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Shapes, 3)

	names := make([]string, len(resp.Data.Shapes))
	for i, e := range resp.Data.Shapes {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"active-folders", "folder-by-ref", "salary-records"}, names)
	assert.True(t, resp.Data.Shapes[0].List)
	assert.True(t, resp.Data.Shapes[0].Shape.List)
	assert.Equal(t, "salary-records", resp.Data.Shapes[2].Rule)
	assert.Equal(t, []string{"folder", "inputs"}, resp.Data.Shapes[2].Shape.Shape.Keys())

	// Shapes are written back in declaration order.
	assert.Contains(t, out, `"shape":[{"folderref":null,"status":"A"}]`)
	assert.Contains(t, out, `"shape":{"folder":{"datejoinedcomp":null,"salary":[{"datestarted":null}]},"inputs":{"current_date":null}}`)
}

func TestCatalog_SQL(t *testing.T) {
	dir := writeCatalog(t, `package shapes

shape: "by-ref": fields: folder: {
	datejoinedcomp: null
	folderref:      "MYREF"
}
`)

	out, err := execute(t, "", "catalog", dir, "--sql")
	require.NoError(t, err)
	assert.Contains(t, out, "sql: "+filterSQL)
}

func TestCatalog_SQLCompileError(t *testing.T) {
	out, err := execute(t, "", "catalog", catalogDir, "--sql")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
	assert.Contains(t, out, `shape "active-folders"`)
}

func TestCatalog_Errors(t *testing.T) {
	t.Run("invalid entries are all reported", func(t *testing.T) {
		dir := writeCatalog(t, `package shapes

shape: a: description: "no fields"
shape: b: description: "no fields either"
`)
		out, err := execute(t, "", "--format", "json", "catalog", dir)
		require.Error(t, err)

		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeCatalog, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "2 problem(s)")
		assert.Len(t, resp.Error.Details, 2)
	})

	t.Run("no directory", func(t *testing.T) {
		out, err := execute(t, "", "catalog")
		require.Error(t, err)
		assert.Contains(t, out, "Error [E005]")
	})

	t.Run("missing directory", func(t *testing.T) {
		out, err := execute(t, "", "catalog", "/nonexistent/shapes")
		require.Error(t, err)
		assert.Contains(t, out, "Error [E006]")
	})
}
