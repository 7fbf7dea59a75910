package store

import (
	"path/filepath"
	"testing"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// payrollFixtures is one folder on a monthly payroll with two salary rows.
var payrollFixtures = []Fixture{
	{Table: "UPMPAYROLL", Rows: []map[string]any{
		{"payrollID": "P1", "payrollname": "Monthly", "payrollcode": "M"},
	}},
	{Table: "UPMFOLDER", Rows: []map[string]any{
		{"folderID": "F1", "payrollID": "P1", "folderref": "MYREF", "datejoinedcomp": "2019-04-06", "status": "A"},
		{"folderID": "F2", "payrollID": "P1", "folderref": "OTHER", "datejoinedcomp": "2021-01-10", "status": "L"},
	}},
	{Table: "UPMsalary", Rows: []map[string]any{
		{"salaryID": "S1", "folderID": "F1", "datestarted": "2019-04-06", "basicsalary": 25000, "grade": "B"},
		{"salaryID": "S2", "folderID": "F1", "datestarted": "2020-04-06", "basicsalary": 27500.5, "grade": "A"},
	}},
}
