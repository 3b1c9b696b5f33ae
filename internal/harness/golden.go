package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/boardsync/internal/ir"
)

// TraceSnapshot captures the merge decisions of a scenario execution.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Repaired     []int
}

// canonical converts the snapshot to a payload value for canonical JSON.
func (s *TraceSnapshot) canonical() ir.Object {
	records := make(ir.Array, len(s.Trace))
	for i, e := range s.Trace {
		event := ir.Object{
			"position": ir.Int(e.Position),
			"id":       ir.String(e.ID),
			"decision": ir.String(e.Decision),
			"key":      ir.String(e.Key),
			"version":  ir.Int(e.Version),
		}
		if e.Protected {
			event["protected"] = ir.Bool(true)
		}
		if e.Deleted {
			event["deleted"] = ir.Bool(true)
		}
		records[i] = event
	}

	repaired := make(ir.Array, len(s.Repaired))
	for i, p := range s.Repaired {
		repaired[i] = ir.Int(p)
	}

	return ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"records":       records,
		"repaired":      repaired,
	}
}

// MarshalTrace renders a result's trace as canonical JSON, the golden
// file format.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Repaired:     result.Repaired,
	}
	return ir.MarshalCanonical(snapshot.canonical())
}

// RunWithGolden runs scenario and pins its trace to a golden file.
// Goldens live at testdata/golden/<name>.golden; refresh them with
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also assert on Pass.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
