// Package config loads and validates the chainsizer policy configuration.
//
// The configuration file is CUE, validated against the embedded #Config
// schema before decoding. Loading fails on any missing or out-of-range
// threshold, so components can treat a decoded Config as complete: there is
// no "unknown setting" path at lookup time.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// Correction scales a task's SizePerEvent when its keyword appears in the
// task name. The table is ordered: the first match wins.
type Correction struct {
	Keyword string  `json:"keyword"`
	Factor  float64 `json:"factor"`
}

// DBS configures the dataset catalog client and its cache.
type DBS struct {
	URL             string `json:"url"`
	CacheTTLMinutes int    `json:"cacheTTLMinutes"`
	CachePath       string `json:"cachePath"`
}

// Config holds every threshold the policy engine consumes.
type Config struct {
	GBSpaceLimit                    float64      `json:"gbSpaceLimit"`
	MinEventsPerLumiOutput          int          `json:"minEventsPerLumiOutput"`
	EfficiencyThresholdForStepchain float64      `json:"efficiencyThresholdForStepchain"`
	MaxNCoresForStepchain           int          `json:"maxNCoresForStepchain"`
	OutputSizeCorrection            []Correction `json:"outputSizeCorrection"`
	DBS                             DBS          `json:"dbs"`
}

// Default returns the thresholds used when no config file is supplied.
func Default() *Config {
	return &Config{
		GBSpaceLimit:                    100,
		MinEventsPerLumiOutput:          100,
		EfficiencyThresholdForStepchain: 0.7,
		MaxNCoresForStepchain:           8,
		DBS:                             DBS{CacheTTLMinutes: 600},
	}
}

// Load reads, validates, and decodes a CUE configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates raw CUE bytes against the embedded schema and decodes them.
func Parse(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("invalid embedded config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return nil, fmt.Errorf("embedded config schema has no #Config definition")
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filename, err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("config %s does not satisfy schema: %w", filename, err)
	}

	cfg := &Config{}
	if err := unified.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", filename, err)
	}
	return cfg, nil
}

// CorrectionFactor returns the output-size correction for a task name:
// the factor of the first table entry whose keyword is a substring of the
// name, or 1.0 when none matches.
func (c *Config) CorrectionFactor(taskName string) float64 {
	for _, corr := range c.OutputSizeCorrection {
		if strings.Contains(taskName, corr.Keyword) {
			return corr.Factor
		}
	}
	return 1.0
}
