package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/jonnymoo/shape/internal/ir"
)

// Snapshot renders a scenario result as canonical JSON for golden
// comparison. Pass/fail state is not part of the snapshot.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snap := ir.Object{
		"scenario_name": ir.String(scenario.Name),
	}

	if result.Report != nil {
		missing := make(ir.Array, len(result.Report.Missing))
		for i, m := range result.Report.Missing {
			entry := ir.Object{"key": ir.String(m.Key), "reason": ir.String(m.Reason)}
			if m.Path != "" {
				entry["path"] = ir.String(m.Path)
			}
			if m.ExampleSQL != "" {
				entry["example-sql"] = ir.String(m.ExampleSQL)
			}
			missing[i] = entry
		}
		snap["report"] = ir.Object{"ok": ir.Bool(result.Report.OK), "missing": missing}
	}

	if result.CompileError != "" {
		snap["compile_error"] = ir.String(result.CompileError)
	} else {
		binds, err := ir.FromGo(result.Binds)
		if err != nil {
			return nil, err
		}
		snap["sql"] = ir.String(result.SQL)
		snap["binds"] = binds
	}

	if result.Reshaped != nil {
		snap["reshaped"] = result.Reshaped
	}
	if result.Fetched != nil {
		snap["fetched"] = result.Fetched
	}

	return ir.MarshalCanonical(snap)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := Snapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
