package testutil

import (
	"strconv"

	"github.com/prodops/chainsizer/internal/splitting"
	"github.com/prodops/chainsizer/internal/workflow"
)

// TaskSpec describes one task when building a chain schema. Zero-valued
// fields are left out of the schema, matching how the request manager omits
// absent attributes.
type TaskSpec struct {
	Name             string
	TimePerEvent     float64
	SizePerEvent     float64 // kB
	FilterEfficiency float64
	InputTask        string
	InputDataset     string
	Multicore        int
	EventStreams     int
	ScramArch        string
}

// Chain builds a TaskChain request schema from ordered task specs, plus any
// chain-level fields.
func Chain(chainFields map[string]any, tasks ...TaskSpec) *workflow.Request {
	raw := map[string]any{
		"RequestType": "TaskChain",
		"TaskChain":   len(tasks),
	}
	for k, v := range chainFields {
		raw[k] = v
	}
	for i, spec := range tasks {
		task := map[string]any{"TaskName": spec.Name}
		if spec.TimePerEvent != 0 {
			task["TimePerEvent"] = spec.TimePerEvent
		}
		if spec.SizePerEvent != 0 {
			task["SizePerEvent"] = spec.SizePerEvent
		}
		if spec.FilterEfficiency != 0 {
			task["FilterEfficiency"] = spec.FilterEfficiency
		}
		if spec.InputTask != "" {
			task["InputTask"] = spec.InputTask
		}
		if spec.InputDataset != "" {
			task["InputDataset"] = spec.InputDataset
		}
		if spec.Multicore != 0 {
			task["Multicore"] = spec.Multicore
		}
		if spec.EventStreams != 0 {
			task["EventStreams"] = spec.EventStreams
		}
		if spec.ScramArch != "" {
			task["ScramArch"] = spec.ScramArch
		}
		raw[taskKey(i+1)] = task
	}
	return workflow.New(raw)
}

// Entry builds a Production splitting entry with the given event params.
// Zero values are omitted.
func Entry(taskName string, eventsPerJob, eventsPerLumi int64) *splitting.Entry {
	params := map[string]any{}
	if eventsPerJob != 0 {
		params["events_per_job"] = eventsPerJob
	}
	if eventsPerLumi != 0 {
		params["events_per_lumi"] = eventsPerLumi
	}
	return &splitting.Entry{
		TaskName:      "/wf/" + taskName,
		SplittingTask: "/wf/" + taskName,
		SplitAlgo:     "EventBased",
		TaskType:      "Production",
		SplitParams:   params,
	}
}

func taskKey(n int) string {
	return "Task" + strconv.Itoa(n)
}
