package splitting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splittings.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{
			"taskName": "/wf/Gen",
			"splittingTask": "/wf/Gen",
			"splitAlgo": "EventBased",
			"taskType": "Production",
			"splitParams": {"events_per_job": 150000, "events_per_lumi": 500}
		}
	]`), 0o644))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "Gen", e.ShortTaskName())
	epj, ok := e.EventsPerJob()
	require.True(t, ok)
	assert.Equal(t, int64(150000), epj)
	epl, ok := e.EventsPerLumi()
	require.True(t, ok)
	assert.Equal(t, int64(500), epl)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splittings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- taskName: /wf/Gen
  splittingTask: /wf/Gen
  splitAlgo: EventBased
  taskType: Production
  splitParams:
    events_per_job: 150000
`), 0o644))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	epj, ok := entries[0].EventsPerJob()
	require.True(t, ok)
	assert.Equal(t, int64(150000), epj)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestShortTaskName(t *testing.T) {
	e := &Entry{TaskName: "/wf_run3_2026/GenSim"}
	assert.Equal(t, "GenSim", e.ShortTaskName())

	bare := &Entry{TaskName: "GenSim"}
	assert.Equal(t, "GenSim", bare.ShortTaskName())
}

func TestEventParams(t *testing.T) {
	e := &Entry{SplitParams: map[string]any{"events_per_job": float64(1000)}}

	epj, ok := e.EventsPerJob()
	require.True(t, ok)
	assert.Equal(t, int64(1000), epj)

	_, ok = e.EventsPerLumi()
	assert.False(t, ok)

	e.SetEventsPerLumi(250)
	epl, ok := e.EventsPerLumi()
	require.True(t, ok)
	assert.Equal(t, int64(250), epl)

	// Nil params map is tolerated.
	empty := &Entry{}
	_, ok = empty.EventsPerJob()
	assert.False(t, ok)
	empty.SetEventsPerJob(10)
	epj, _ = empty.EventsPerJob()
	assert.Equal(t, int64(10), epj)
}

func TestAvgEventsPerJob_FallsBack(t *testing.T) {
	e := &Entry{SplitParams: map[string]any{
		"events_per_job":     float64(1000),
		"avg_events_per_job": float64(800),
	}}
	avg, ok := e.AvgEventsPerJob()
	require.True(t, ok)
	assert.Equal(t, int64(800), avg)

	delete(e.SplitParams, "avg_events_per_job")
	avg, ok = e.AvgEventsPerJob()
	require.True(t, ok)
	assert.Equal(t, int64(1000), avg)
}
