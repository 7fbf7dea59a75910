package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/querysql"
	"github.com/jonnymoo/shape/internal/salary"
	"github.com/jonnymoo/shape/internal/shape"
)

func TestLoad_InsertsRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Load(ctx, payrollFixtures))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM UPMsalary WHERE folderID = 'F1'").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestLoad_Repeatable(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Load(ctx, payrollFixtures))
	require.NoError(t, s.Load(ctx, payrollFixtures))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM UPMFOLDER").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestLoad_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)

	err := s.Load(context.Background(), []Fixture{
		{Table: "UPMPAYROLL", Rows: []map[string]any{{"payrollID": "P9"}}},
		{Table: "UPMnothing", Rows: []map[string]any{{"x": 1}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPMnothing row 0")

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM UPMPAYROLL").Scan(&count))
	assert.Zero(t, count)
}

func TestLoad_ForeignKeyEnforced(t *testing.T) {
	s := createTestStore(t)

	err := s.Load(context.Background(), []Fixture{
		{Table: "UPMsalary", Rows: []map[string]any{{"salaryID": "S1", "folderID": "nope"}}},
	})
	assert.Error(t, err)
}

func TestInsert_RejectsBadIdentifiers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Insert(ctx, "!!", map[string]any{"a": 1})
	assert.ErrorContains(t, err, "no identifier characters")

	err = s.Insert(ctx, "UPMPAYROLL", map[string]any{"--": 1})
	assert.ErrorContains(t, err, "no identifier characters")

	err = s.Insert(ctx, "UPMPAYROLL", map[string]any{})
	assert.ErrorContains(t, err, "empty row")
}

func TestInsert_SanitizesColumns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "UPMPAYROLL", map[string]any{"payrollID": "P1", "payroll name": "Weekly"}))

	var name string
	require.NoError(t, s.db.QueryRow("SELECT payrollname FROM UPMPAYROLL WHERE payrollID = 'P1'").Scan(&name))
	assert.Equal(t, "Weekly", name)
}

func TestReadFixtures(t *testing.T) {
	fixtures, err := ReadFixtures(strings.NewReader(`
- table: UPMFOLDER
  rows:
    - {folderID: F1, datejoinedcomp: 2019-04-06}
`))
	require.NoError(t, err)
	require.Len(t, fixtures, 1)
	assert.Equal(t, "UPMFOLDER", fixtures[0].Table)
	assert.Equal(t, "2019-04-06", fixtures[0].Rows[0]["datejoinedcomp"])

	empty, err := ReadFixtures(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ReadFixtures(strings.NewReader("- table: X\n  columns: []\n"))
	assert.ErrorContains(t, err, "field columns not found")

	_, err = ReadFixtures(strings.NewReader("- just a string\n"))
	assert.ErrorContains(t, err, "fixture must be a mapping")
}

func TestReadFixtures_Timestamps(t *testing.T) {
	fixtures, err := ReadFixtures(strings.NewReader(`
- table: UPMsalary
  rows:
    - salaryID: S1
      datestarted: 2020-04-06
      stamped: 2020-04-06T09:30:00Z
      quoted: "2022-05-06"
      amount: 25000
`))
	require.NoError(t, err)
	row := fixtures[0].Rows[0]

	assert.Equal(t, "2020-04-06", row["datestarted"])
	assert.Equal(t, "2020-04-06T09:30:00Z", row["stamped"])
	assert.Equal(t, "2022-05-06", row["quoted"])
	assert.Equal(t, 25000, row["amount"])
}

func TestLoad_DatesUsableBySalaryRule(t *testing.T) {
	fixtures, err := ReadFixtures(strings.NewReader(`
- table: UPMFOLDER
  rows:
    - {folderID: F1, folderref: MYREF, datejoinedcomp: 2019-04-06}
- table: UPMsalary
  rows:
    - {salaryID: S1, folderID: F1, datestarted: 2019-04-06, basicsalary: 25000}
    - {salaryID: S2, folderID: F1, datestarted: 2020-04-06, basicsalary: 26000}
`))
	require.NoError(t, err)

	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, fixtures))

	q, err := querysql.New(querysql.WithDialect(querysql.SQLite{})).Compile(shape.MustParseJSON(`{
	  "folder": {"datejoinedcomp": null, "salary": [{"datestarted": null}]}
	}`))
	require.NoError(t, err)

	got, err := NewFetcher(s.DB(), quietLogger).Fetch(ctx, q, "F1")
	require.NoError(t, err)

	input, ok := got.(ir.Object)
	require.True(t, ok)
	folder, ok := input["folder"].(ir.Object)
	require.True(t, ok)
	assert.Equal(t, ir.String("2019-04-06"), folder["datejoinedcomp"])

	input["inputs"] = ir.Object{"current_date": ir.String("2021-05-01")}
	out, err := salary.CheckSalaryRecords(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, ir.Object{
		"outputs": ir.Object{
			"all_present":   ir.String("false"),
			"missing_years": ir.Array{ir.Int(2021)},
		},
	}, out)
}
