package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/prodops/chainsizer/internal/policy"
	"github.com/prodops/chainsizer/internal/splitting"
)

// DecisionSnapshot is the canonical, deterministic form of a decision used
// for golden comparison. The report ID is deliberately absent: it is a fresh
// UUID per run.
type DecisionSnapshot struct {
	ScenarioName string             `json:"scenario_name"`
	Hold         bool               `json:"hold"`
	Modified     []*splitting.Entry `json:"modified"`
	Findings     []policy.Finding   `json:"findings"`
	Eligible     *bool              `json:"eligible,omitempty"`
}

// RunWithGolden executes a scenario, asserts its expectations, and compares
// the decision snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		t.Fatalf("scenario %s failed: %v", s.Name, err)
	}

	if result.Decision.Hold != s.Expect.Hold {
		t.Errorf("scenario %s: hold = %v, want %v", s.Name, result.Decision.Hold, s.Expect.Hold)
	}
	modified := result.Decision.ModifiedTasks()
	if len(modified) != len(s.Expect.Modified) {
		t.Errorf("scenario %s: modified tasks = %v, want %v", s.Name, modified, s.Expect.Modified)
	} else {
		for i, name := range s.Expect.Modified {
			if modified[i] != name {
				t.Errorf("scenario %s: modified[%d] = %s, want %s", s.Name, i, modified[i], name)
			}
		}
	}
	if s.Expect.Eligible != nil && result.Advice.Eligible != *s.Expect.Eligible {
		t.Errorf("scenario %s: eligible = %v, want %v", s.Name, result.Advice.Eligible, *s.Expect.Eligible)
	}

	snapshot := DecisionSnapshot{
		ScenarioName: s.Name,
		Hold:         result.Decision.Hold,
		Modified:     result.Decision.Modified,
		Findings:     result.Decision.Findings,
	}
	if result.Advice != nil {
		snapshot.Eligible = &result.Advice.Eligible
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		t.Fatalf("scenario %s: failed to marshal snapshot: %v", s.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, data)
}
