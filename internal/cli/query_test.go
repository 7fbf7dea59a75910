package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payrollShape = `{"folder": {"datejoinedcomp": null, "payroll": {"payrollname": null}}}`

func TestQuery_SQLite(t *testing.T) {
	dbPath := seedDatabase(t)
	shapePath := writeFile(t, "folder.json", payrollShape)

	out, err := execute(t, "", "query", shapePath, "--id", "F1", "--driver", "sqlite3", "--db-path", dbPath)
	require.NoError(t, err)
	assert.Equal(t,
		`{"folder":{"datejoinedcomp":"2019-04-06","payroll":{"payrollname":"Monthly"}}}`,
		strings.TrimSpace(out))
}

func TestQuery_JSONWithSalaryList(t *testing.T) {
	dbPath := seedDatabase(t)
	shapePath := writeFile(t, "folder.yaml", "folder:\n  salary:\n    - basicsalary: ~\n      grade: A\n")

	out, err := execute(t, "", "--format", "json", "query", shapePath,
		"--id", "F1", "--driver", "sqlite3", "--db-path", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Folder struct {
				Salary []map[string]any `json:"salary"`
			} `json:"folder"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []map[string]any{{"basicsalary": 27500.5}}, resp.Data.Folder.Salary)
}

func TestQuery_Raw(t *testing.T) {
	dbPath := seedDatabase(t)
	shapePath := writeFile(t, "folder.json", payrollShape)

	out, err := execute(t, "", "query", shapePath, "--id", "F1", "--raw", "--driver", "sqlite3", "--db-path", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"convert_to_object_folder"`)
	assert.Contains(t, out, `"convert_to_object_payroll"`)
}

func TestQuery_MemoryCache(t *testing.T) {
	dbPath := seedDatabase(t)
	shapePath := writeFile(t, "folder.json", payrollShape)

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"-v", "query", shapePath, "--id", "F1",
		"--driver", "sqlite3", "--db-path", dbPath, "--cache-ttl", "1m"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"payrollname":"Monthly"`)
	assert.Contains(t, errOut.String(), "cache hit: false")
}

func TestQuery_Errors(t *testing.T) {
	dbPath := seedDatabase(t)
	shapePath := writeFile(t, "folder.json", payrollShape)

	t.Run("missing id", func(t *testing.T) {
		out, err := execute(t, "", "query", shapePath, "--driver", "sqlite3", "--db-path", dbPath)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "--id is required")
	})

	t.Run("unknown table", func(t *testing.T) {
		bad := writeFile(t, "bad.json", `{"nosuch": {"x": null}}`)
		out, err := execute(t, "", "query", bad, "--id", "F1", "--driver", "sqlite3", "--db-path", dbPath)
		require.Error(t, err)
		assert.Contains(t, out, "Error [E008]")
	})

	t.Run("unknown driver", func(t *testing.T) {
		out, err := execute(t, "", "query", shapePath, "--id", "F1", "--driver", "oracle")
		require.Error(t, err)
		assert.Contains(t, out, "Error [E009]")
	})
}
