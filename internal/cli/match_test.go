package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salaryShape = `{
  "folder": {
    "datejoinedcomp": null,
    "salary": [{"datestarted": null}]
  },
  "inputs": {"current_date": null}
}`

func TestMatch_OK(t *testing.T) {
	shapePath := writeFile(t, "salary.json", salaryShape)
	input := `{
	  "folder": {"datejoinedcomp": "2022-12-01", "salary": [{"datestarted": "2022-12-01"}]},
	  "inputs": {"current_date": "2024-03-31"}
	}`

	out, err := execute(t, input, "match", shapePath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ input contains the shape")
}

func TestMatch_MissingText(t *testing.T) {
	shapePath := writeFile(t, "salary.json", salaryShape)
	inputPath := writeFile(t, "input.json", `{"folder": {"datejoinedcomp": "2022-12-01", "salary": {}}}`)

	out, err := execute(t, "", "-v", "match", shapePath, inputPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ 2 required key(s) missing")
	assert.Contains(t, out, "folder.salary: expected a list")
	assert.Contains(t, out, "inputs: missing")
}

func TestMatch_MissingJSONCarriesExampleSQL(t *testing.T) {
	shapePath := writeFile(t, "salary.json", salaryShape)

	out, err := execute(t, `{"inputs": {"current_date": "2024-03-31"}}`, "--format", "json", "match", shapePath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string `json:"code"`
			Details struct {
				OK      bool `json:"ok"`
				Missing []struct {
					Key        string `json:"key"`
					Reason     string `json:"reason"`
					ExampleSQL string `json:"example-sql"`
				} `json:"missing"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeShapeMissing, resp.Error.Code)
	assert.False(t, resp.Error.Details.OK)
	require.Len(t, resp.Error.Details.Missing, 1)
	assert.Equal(t, "folder", resp.Error.Details.Missing[0].Key)
	assert.Contains(t, resp.Error.Details.Missing[0].ExampleSQL, "FROM UPMFOLDER folder1")
}

func TestMatch_UnknownRootHasNoExample(t *testing.T) {
	shapePath := writeFile(t, "salary.json", salaryShape)

	out, err := execute(t, `{"inputs": {"current_date": "2024-03-31"}}`,
		"--format", "json", "match", shapePath, "--root", "person")
	require.Error(t, err)
	assert.NotContains(t, out, "example-sql")
}

func TestMatch_BadInput(t *testing.T) {
	shapePath := writeFile(t, "salary.json", salaryShape)

	out, err := execute(t, `{"folder":`, "match", shapePath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E010]")
}
