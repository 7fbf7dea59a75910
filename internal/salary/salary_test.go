package salary

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/match"
)

func input(t *testing.T, s string) ir.Object {
	t.Helper()
	v, err := ir.Decode([]byte(s))
	require.NoError(t, err)
	return v.(ir.Object)
}

func TestCheckSalaryRecords_AllPresent(t *testing.T) {
	in := input(t, `{
	  "folder": {
	    "datejoinedcomp": "2022-12-01",
	    "salary": [{"datestarted": "2022-12-01"}, {"datestarted": "2023-04-01"}]
	  },
	  "inputs": {"current_date": "2024-03-31"}
	}`)

	out, err := CheckSalaryRecords(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, ir.Object{"outputs": ir.Object{
		"all_present":   ir.String("true"),
		"missing_years": ir.Array{},
	}}, out)
}

func TestCheckSalaryRecords_MissingYear(t *testing.T) {
	in := input(t, `{
	  "folder": {
	    "datejoinedcomp": "2020-05-01",
	    "salary": [{"datestarted": "2020-06-01"}, {"datestarted": "2023-03-31T09:00:00"}]
	  },
	  "inputs": {"current_date": "2023-06-15"}
	}`)

	out, err := CheckSalaryRecords(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, ir.Object{"outputs": ir.Object{
		"all_present":   ir.String("false"),
		"missing_years": ir.Array{ir.Int(2021), ir.Int(2023)},
	}}, out)
}

func TestCheckSalaryRecords_NoSalaries(t *testing.T) {
	in := input(t, `{
	  "folder": {"datejoinedcomp": "2024-01-10", "salary": []},
	  "inputs": {"current_date": "2024-02-01"}
	}`)

	out, err := CheckSalaryRecords(context.Background(), in)
	require.NoError(t, err)

	outputs := out.(ir.Object)["outputs"].(ir.Object)
	assert.Equal(t, ir.String("false"), outputs["all_present"])
	assert.Equal(t, ir.Array{ir.Int(2023)}, outputs["missing_years"])
}

func TestCheckSalaryRecords_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		msg  string
	}{
		{"bad join date", `{"folder": {"datejoinedcomp": "soon", "salary": []}, "inputs": {"current_date": "2024-01-01"}}`, `folder.datejoinedcomp: cannot parse date "soon"`},
		{"null current date", `{"folder": {"datejoinedcomp": "2024-01-01", "salary": []}, "inputs": {"current_date": null}}`, "inputs.current_date: expected a date string"},
		{"bad salary row", `{"folder": {"datejoinedcomp": "2024-01-01", "salary": [{"datestarted": 3}]}, "inputs": {"current_date": "2024-01-01"}}`, "folder.salary[0].datestarted: expected a date string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CheckSalaryRecords(context.Background(), input(t, tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestTaxYear(t *testing.T) {
	assert.Equal(t, 2023, TaxYear(time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2024, TaxYear(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2022, TaxYear(time.Date(2022, time.December, 1, 0, 0, 0, 0, time.UTC)))
}

func TestShape(t *testing.T) {
	assert.Equal(t, []string{"folder", "inputs"}, Shape.Keys())

	report := match.Match(Shape, input(t, `{"inputs": {"current_date": "2024-01-01"}}`))
	require.False(t, report.OK)
	assert.Equal(t, "folder", report.Missing[0].Key)
	assert.NotEmpty(t, report.Missing[0].ExampleSQL)
}
