// Package splitting models per-task job-splitting documents: loading,
// typed access to the event parameters, pre-validation filtering, and the
// chain blow-up factor.
package splitting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one task's splitting document. SplitParams stays loosely typed
// because the request manager round-trips parameters this engine never
// interprets; the typed accessors below cover the ones it does.
//
// The validator mutates events_per_job and events_per_lumi in place. That is
// the engine's only side effect on its inputs.
type Entry struct {
	TaskName      string         `json:"taskName" yaml:"taskName"`
	SplittingTask string         `json:"splittingTask" yaml:"splittingTask"`
	SplitAlgo     string         `json:"splitAlgo" yaml:"splitAlgo"`
	TaskType      string         `json:"taskType" yaml:"taskType"`
	SplitParams   map[string]any `json:"splitParams" yaml:"splitParams"`
}

// Load reads a splitting-entry list from a JSON or YAML file.
func Load(path string) ([]*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read splittings: %w", err)
	}

	var entries []*Entry
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse splittings %s: %w", path, err)
	}
	return entries, nil
}

// ShortTaskName returns the last path component of TaskName, which is the
// task's declared name in the workflow schema.
func (e *Entry) ShortTaskName() string {
	if i := strings.LastIndex(e.TaskName, "/"); i >= 0 {
		return e.TaskName[i+1:]
	}
	return e.TaskName
}

// EventsPerJob returns the configured events_per_job parameter.
func (e *Entry) EventsPerJob() (int64, bool) {
	return e.intParam("events_per_job")
}

// AvgEventsPerJob returns the observed average events per job, falling back
// to the configured events_per_job.
func (e *Entry) AvgEventsPerJob() (int64, bool) {
	if n, ok := e.intParam("avg_events_per_job"); ok {
		return n, true
	}
	return e.intParam("events_per_job")
}

// SetEventsPerJob overwrites events_per_job in place.
func (e *Entry) SetEventsPerJob(n int64) {
	if e.SplitParams == nil {
		e.SplitParams = map[string]any{}
	}
	e.SplitParams["events_per_job"] = n
}

// EventsPerLumi returns the configured events_per_lumi parameter.
func (e *Entry) EventsPerLumi() (int64, bool) {
	return e.intParam("events_per_lumi")
}

// SetEventsPerLumi overwrites events_per_lumi in place.
func (e *Entry) SetEventsPerLumi(n int64) {
	if e.SplitParams == nil {
		e.SplitParams = map[string]any{}
	}
	e.SplitParams["events_per_lumi"] = n
}

func (e *Entry) intParam(name string) (int64, bool) {
	v, ok := e.SplitParams[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	}
	return 0, false
}
