// Package salary holds an example business function: every tax year since
// an employee joined must have at least one salary record.
package salary

import (
	"context"
	"fmt"
	"time"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/shape"
)

// Name is the registry name of the rule.
const Name = "salary-records"

// Shape is the input CheckSalaryRecords requires.
var Shape = shape.MustParseJSON(`{
  "folder": {
    "datejoinedcomp": null,
    "salary": [
      {"datestarted": null}
    ]
  },
  "inputs": {
    "current_date": null
  }
}`).Shape

// taxYearStart is the month a tax year begins in.
const taxYearStart = time.April

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// CheckSalaryRecords reports the tax years between folder.datejoinedcomp and
// inputs.current_date (inclusive) that have no salary starting in them.
//
// Output:
//
//	{"outputs": {"all_present": "true", "missing_years": []}}
func CheckSalaryRecords(_ context.Context, input ir.Object) (ir.Value, error) {
	folder, ok := input["folder"].(ir.Object)
	if !ok {
		return nil, fmt.Errorf("folder: expected an object")
	}
	inputs, ok := input["inputs"].(ir.Object)
	if !ok {
		return nil, fmt.Errorf("inputs: expected an object")
	}

	joined, err := dateField(folder, "datejoinedcomp")
	if err != nil {
		return nil, fmt.Errorf("folder.%w", err)
	}
	current, err := dateField(inputs, "current_date")
	if err != nil {
		return nil, fmt.Errorf("inputs.%w", err)
	}

	records, ok := folder["salary"].(ir.Array)
	if !ok {
		return nil, fmt.Errorf("folder.salary: expected a list")
	}
	covered := make(map[int]int, len(records))
	for i, rec := range records {
		obj, ok := rec.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("folder.salary[%d]: expected an object", i)
		}
		started, err := dateField(obj, "datestarted")
		if err != nil {
			return nil, fmt.Errorf("folder.salary[%d].%w", i, err)
		}
		covered[TaxYear(started)]++
	}

	missing := ir.Array{}
	for year := TaxYear(joined); year <= TaxYear(current); year++ {
		if covered[year] == 0 {
			missing = append(missing, ir.Int(int64(year)))
		}
	}

	return ir.Object{
		"outputs": ir.Object{
			"all_present":   ir.String(fmt.Sprintf("%t", len(missing) == 0)),
			"missing_years": missing,
		},
	}, nil
}

// TaxYear returns the year a tax year starts in. Dates before April belong
// to the previous year's tax year.
func TaxYear(t time.Time) int {
	if t.Month() < taxYearStart {
		return t.Year() - 1
	}
	return t.Year()
}

func dateField(obj ir.Object, key string) (time.Time, error) {
	s, ok := obj[key].(ir.String)
	if !ok {
		return time.Time{}, fmt.Errorf("%s: expected a date string", key)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, string(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: cannot parse date %q", key, string(s))
}
