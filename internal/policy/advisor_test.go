package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodops/chainsizer/internal/testutil"
	"github.com/prodops/chainsizer/internal/workflow"
)

func convertibleChain(extra map[string]any) *workflow.Request {
	fields := map[string]any{
		"RequestName": "pdmvserv_task_GEN-Run3-00001",
		"OutputDatasets": []string{
			"/Primary/Era-v1/GEN-SIM",
			"/Primary/Era-v1/AODSIM",
		},
		"ScramArch": "el8_amd64_gcc11",
		"Multicore": 4,
	}
	for k, v := range extra {
		fields[k] = v
	}
	return testutil.Chain(fields,
		testutil.TaskSpec{Name: "Gen", TimePerEvent: 10},
		testutil.TaskSpec{Name: "Reco", InputTask: "Gen", TimePerEvent: 30},
	)
}

func TestAdviseConversion_Eligible(t *testing.T) {
	e := newTestEngine(nil)

	a, err := e.AdviseConversion(convertibleChain(nil), nil)
	require.NoError(t, err)
	assert.True(t, a.Eligible)
	assert.True(t, a.MoreThanOneTask)
	assert.True(t, a.AllUniqueTiers)
	assert.True(t, a.SameArchFamily)
	assert.True(t, a.SameCores)
	assert.True(t, a.NoEventStreams)
	assert.True(t, a.KeywordMatched)
	assert.Zero(t, a.CPUEfficiency)
}

func TestAdviseConversion_StepChainNeverEligible(t *testing.T) {
	req := workflow.New(map[string]any{
		"RequestType": "StepChain",
		"StepChain":   2,
		"Step1":       map[string]any{"StepName": "Gen"},
		"Step2":       map[string]any{"StepName": "Reco"},
	})
	e := newTestEngine(nil)

	a, err := e.AdviseConversion(req, nil)
	require.NoError(t, err)
	assert.False(t, a.Eligible)
	assert.Equal(t, "already a step chain", a.Reason)
}

func TestAdviseConversion_SingleTaskNotEligible(t *testing.T) {
	req := testutil.Chain(map[string]any{"ScramArch": "el8_amd64_gcc11"},
		testutil.TaskSpec{Name: "Gen", TimePerEvent: 10},
	)
	e := newTestEngine(nil)

	a, err := e.AdviseConversion(req, nil)
	require.NoError(t, err)
	assert.False(t, a.Eligible)
	assert.False(t, a.MoreThanOneTask)
}

func TestAdviseConversion_DuplicateTierDisqualifies(t *testing.T) {
	req := convertibleChain(map[string]any{
		"OutputDatasets": []string{
			"/Primary/Era-v1/AODSIM",
			"/Other/Era-v2/AODSIM",
		},
	})
	e := newTestEngine(nil)

	a, err := e.AdviseConversion(req, nil)
	require.NoError(t, err)
	assert.False(t, a.Eligible)
	assert.False(t, a.AllUniqueTiers)
}

func TestAdviseConversion_EventStreamsDisqualify(t *testing.T) {
	req := testutil.Chain(map[string]any{
		"OutputDatasets": []string{"/Primary/Era-v1/GEN-SIM", "/Primary/Era-v1/AODSIM"},
		"ScramArch":      "el8_amd64_gcc11",
		"Multicore":      4,
	},
		testutil.TaskSpec{Name: "Gen", TimePerEvent: 10, EventStreams: 2},
		testutil.TaskSpec{Name: "Reco", InputTask: "Gen", TimePerEvent: 30},
	)
	e := newTestEngine(nil)

	a, err := e.AdviseConversion(req, nil)
	require.NoError(t, err)
	assert.False(t, a.Eligible)
	assert.False(t, a.NoEventStreams)
}

func TestAdviseConversion_ArchFamily(t *testing.T) {
	// Different compilers within one family are fine.
	sameFamily := testutil.Chain(map[string]any{
		"OutputDatasets": []string{"/Primary/Era-v1/GEN-SIM", "/Primary/Era-v1/AODSIM"},
		"Multicore":      4,
	},
		testutil.TaskSpec{Name: "Gen", TimePerEvent: 10, ScramArch: "slc7_amd64_gcc700"},
		testutil.TaskSpec{Name: "Reco", InputTask: "Gen", TimePerEvent: 30, ScramArch: "slc7_amd64_gcc900"},
	)
	e := newTestEngine(nil)

	a, err := e.AdviseConversion(sameFamily, nil)
	require.NoError(t, err)
	assert.True(t, a.SameArchFamily)
	assert.True(t, a.Eligible)

	// Crossing OS families is not.
	crossFamily := testutil.Chain(map[string]any{
		"OutputDatasets": []string{"/Primary/Era-v1/GEN-SIM", "/Primary/Era-v1/AODSIM"},
		"Multicore":      4,
	},
		testutil.TaskSpec{Name: "Gen", TimePerEvent: 10, ScramArch: "slc7_amd64_gcc700"},
		testutil.TaskSpec{Name: "Reco", InputTask: "Gen", TimePerEvent: 30, ScramArch: "el8_amd64_gcc11"},
	)

	a, err = e.AdviseConversion(crossFamily, nil)
	require.NoError(t, err)
	assert.False(t, a.SameArchFamily)
	assert.False(t, a.Eligible)

	// No declared architecture anywhere: nothing to merge against.
	noArch := testutil.Chain(map[string]any{
		"OutputDatasets": []string{"/Primary/Era-v1/GEN-SIM", "/Primary/Era-v1/AODSIM"},
		"Multicore":      4,
	},
		testutil.TaskSpec{Name: "Gen", TimePerEvent: 10},
		testutil.TaskSpec{Name: "Reco", InputTask: "Gen", TimePerEvent: 30},
	)

	a, err = e.AdviseConversion(noArch, nil)
	require.NoError(t, err)
	assert.False(t, a.SameArchFamily)
	assert.False(t, a.Eligible)
}

// TestAdviseConversion_HeterogeneousCores exercises the CPU-efficiency
// trade-off applied when the tasks disagree on core count.
func TestAdviseConversion_HeterogeneousCores(t *testing.T) {
	chain := func(genCores, recoCores int, genTime, recoTime float64) *workflow.Request {
		return testutil.Chain(map[string]any{
			"OutputDatasets": []string{"/Primary/Era-v1/GEN-SIM", "/Primary/Era-v1/AODSIM"},
			"ScramArch":      "el8_amd64_gcc11",
		},
			testutil.TaskSpec{Name: "Gen", TimePerEvent: genTime, Multicore: genCores},
			testutil.TaskSpec{Name: "Reco", InputTask: "Gen", TimePerEvent: recoTime, Multicore: recoCores},
		)
	}
	e := newTestEngine(nil) // threshold 0.7, max 8 cores

	// (100s x 8 + 100s x 2) / (200s x 8) = 0.625: too wasteful to merge.
	a, err := e.AdviseConversion(chain(8, 2, 100, 100), nil)
	require.NoError(t, err)
	assert.False(t, a.SameCores)
	assert.InDelta(t, 0.625, a.CPUEfficiency, 1e-9)
	assert.False(t, a.AcceptableEfficiency)
	assert.False(t, a.Eligible)

	// (300s x 8 + 100s x 4) / (400s x 8) = 0.875: acceptable.
	a, err = e.AdviseConversion(chain(8, 4, 300, 100), nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.875, a.CPUEfficiency, 1e-9)
	assert.True(t, a.AcceptableEfficiency)
	assert.True(t, a.Eligible)
}

// TestAdviseConversion_FilterWeightsTime: time per processed event grows as
// a task filters events away, shifting the efficiency weighting.
func TestAdviseConversion_FilterWeightsTime(t *testing.T) {
	req := testutil.Chain(map[string]any{
		"OutputDatasets": []string{"/Primary/Era-v1/GEN-SIM", "/Primary/Era-v1/AODSIM"},
		"ScramArch":      "el8_amd64_gcc11",
	},
		// 100/0.25 = 400 s effective at 8 cores.
		testutil.TaskSpec{Name: "Gen", TimePerEvent: 100, FilterEfficiency: 0.25, Multicore: 8},
		testutil.TaskSpec{Name: "Reco", InputTask: "Gen", TimePerEvent: 100, Multicore: 2},
	)
	e := newTestEngine(nil)

	a, err := e.AdviseConversion(req, nil)
	require.NoError(t, err)
	// (400 x 8 + 100 x 2) / (500 x 8) = 0.85
	assert.InDelta(t, 0.85, a.CPUEfficiency, 1e-9)
	assert.True(t, a.Eligible)
}

// TestAdviseConversion_CoresCappedAtMax: counts above the configured maximum
// contribute as if they were the maximum.
func TestAdviseConversion_CoresCappedAtMax(t *testing.T) {
	req := testutil.Chain(map[string]any{
		"OutputDatasets": []string{"/Primary/Era-v1/GEN-SIM", "/Primary/Era-v1/AODSIM"},
		"ScramArch":      "el8_amd64_gcc11",
	},
		testutil.TaskSpec{Name: "Gen", TimePerEvent: 100, Multicore: 16},
		testutil.TaskSpec{Name: "Reco", InputTask: "Gen", TimePerEvent: 100, Multicore: 8},
	)
	e := newTestEngine(nil)

	a, err := e.AdviseConversion(req, nil)
	require.NoError(t, err)
	// min(16,8) keeps the merged step fully utilized.
	assert.InDelta(t, 1.0, a.CPUEfficiency, 1e-9)
	assert.True(t, a.AcceptableEfficiency)
}

func TestAdviseConversion_Keywords(t *testing.T) {
	req := convertibleChain(map[string]any{"ProcessingString": "Run3Summer23GS"})
	e := newTestEngine(nil)

	a, err := e.AdviseConversion(req, []string{"Summer23"})
	require.NoError(t, err)
	assert.True(t, a.KeywordMatched)
	assert.True(t, a.Eligible)

	a, err = e.AdviseConversion(req, []string{"Winter24"})
	require.NoError(t, err)
	assert.False(t, a.KeywordMatched)
	assert.False(t, a.Eligible)

	// The workflow name is part of the haystack too.
	a, err = e.AdviseConversion(req, []string{"GEN-Run3"})
	require.NoError(t, err)
	assert.True(t, a.KeywordMatched)
}
