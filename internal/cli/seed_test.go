package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payrollFixtures = `
- table: UPMPAYROLL
  rows:
    - {payrollID: P1, payrollname: Monthly, payrollcode: M}
- table: UPMFOLDER
  rows:
    - {folderID: F1, payrollID: P1, folderref: MYREF, datejoinedcomp: "2019-04-06", status: A}
- table: UPMsalary
  rows:
    - {salaryID: S1, folderID: F1, datestarted: "2019-04-06", basicsalary: 25000, grade: B}
    - {salaryID: S2, folderID: F1, datestarted: "2020-04-06", basicsalary: 27500.5, grade: A}
`

// seedDatabase loads payrollFixtures into a fresh SQLite file.
func seedDatabase(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "upm.db")
	_, err := execute(t, payrollFixtures, "seed", "-", "--db-path", dbPath)
	require.NoError(t, err)
	return dbPath
}

func TestSeed_Text(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "upm.db")
	fixtures := writeFile(t, "fixtures.yaml", payrollFixtures)

	out, err := execute(t, "", "seed", fixtures, "--db-path", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 4 rows into 3 tables in "+dbPath)
}

func TestSeed_Repeatable(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := execute(t, payrollFixtures, "--format", "json", "seed", "-", "--db-path", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Rows   int `json:"rows"`
			Tables int `json:"tables"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Data.Rows)
	assert.Equal(t, 3, resp.Data.Tables)
}

func TestSeed_Errors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "upm.db")

	t.Run("unknown field", func(t *testing.T) {
		out, err := execute(t, "- table: UPMFOLDER\n  rowz: []\n", "seed", "-", "--db-path", dbPath)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error [E010]")
	})

	t.Run("unknown table", func(t *testing.T) {
		out, err := execute(t, "- table: UPMNOPE\n  rows:\n    - {a: 1}\n", "seed", "-", "--db-path", dbPath)
		require.Error(t, err)
		assert.Contains(t, out, "Error [E008]")
	})
}
