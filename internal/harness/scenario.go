// Package harness runs end-to-end policy scenarios defined in YAML files.
//
// A scenario bundles a workflow schema, its splitting entries, catalog
// metadata, and the expected decision. The runner executes the real policy
// engine against them, asserts the expectations, and compares a canonical
// snapshot of the decision against a golden file.
package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/prodops/chainsizer/internal/splitting"
)

// Scenario defines one policy conformance case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides the default policy thresholds.
	Config ConfigOverrides `yaml:"config"`

	// Workflow is the inline request schema.
	Workflow map[string]any `yaml:"workflow"`

	// Splittings is the ordered splitting-entry list.
	Splittings []*splitting.Entry `yaml:"splittings"`

	// Metadata maps dataset names to observed events per lumi.
	Metadata map[string]float64 `yaml:"metadata,omitempty"`

	// Keywords is an optional keyword filter for the conversion advice.
	Keywords []string `yaml:"keywords,omitempty"`

	// Expect is asserted after the run.
	Expect Expectation `yaml:"expect"`
}

// ConfigOverrides carries the thresholds a scenario tunes. Zero values keep
// the defaults.
type ConfigOverrides struct {
	GBSpaceLimit           float64 `yaml:"gbSpaceLimit"`
	MinEventsPerLumiOutput int     `yaml:"minEventsPerLumiOutput"`
}

// Expectation describes the decision a scenario must produce.
type Expectation struct {
	Hold     bool     `yaml:"hold"`
	Modified []string `yaml:"modified,omitempty"` // task names, in order

	// Eligible, when set, additionally runs the conversion advisor.
	Eligible *bool `yaml:"eligible,omitempty"`
}

// LoadScenario reads a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	s := &Scenario{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s has no name", path)
	}
	return s, nil
}
