package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Request types understood by the policy engine.
const (
	TypeTaskChain = "TaskChain"
	TypeStepChain = "StepChain"
)

var taskKeyPattern = regexp.MustCompile(`^(Task|Step)(\d+)$`)

// Request wraps a decoded workflow request schema.
type Request struct {
	raw map[string]any
}

// New wraps an already-decoded request schema.
func New(raw map[string]any) *Request {
	return &Request{raw: raw}
}

// Load reads a request schema from a JSON or YAML file, chosen by extension.
func Load(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow schema: %w", err)
	}

	raw := map[string]any{}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse workflow schema %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse workflow schema %s: %w", path, err)
		}
	}
	return New(raw), nil
}

// Name returns the workflow request name.
func (r *Request) Name() string {
	return asString(r.raw["RequestName"])
}

// RequestType returns the declared request type ("TaskChain" or "StepChain").
func (r *Request) RequestType() string {
	return asString(r.raw["RequestType"])
}

// base returns the task-key prefix for this request type.
func (r *Request) base() string {
	if r.RequestType() == TypeStepChain {
		return "Step"
	}
	return "Task"
}

// TaskCount returns the declared chain length (the numeric "TaskChain" or
// "StepChain" field), falling back to the number of discovered task keys.
func (r *Request) TaskCount() int {
	if n, ok := asInt(r.raw[r.base()+"Chain"]); ok && n > 0 {
		return int(n)
	}
	return len(r.TaskKeys())
}

// TaskKeys returns the schema keys holding task sub-schemas ("Task1", ...),
// sorted by their numeric suffix.
func (r *Request) TaskKeys() []string {
	prefix := r.base()
	var keys []string
	for key := range r.raw {
		m := taskKeyPattern.FindStringSubmatch(key)
		if m == nil || m[1] != prefix {
			continue
		}
		if _, ok := r.raw[key].(map[string]any); !ok {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, _ := strconv.Atoi(keys[i][len(prefix):])
		nj, _ := strconv.Atoi(keys[j][len(prefix):])
		return ni < nj
	})
	return keys
}

// Tasks returns deep copies of every task sub-schema in chain order.
func (r *Request) Tasks() []*Task {
	keys := r.TaskKeys()
	tasks := make([]*Task, 0, len(keys))
	for _, key := range keys {
		raw := r.raw[key].(map[string]any)
		tasks = append(tasks, &Task{key: key, base: r.base(), raw: deepCopyMap(raw)})
	}
	return tasks
}

// Task resolves a task by its declared name (the "TaskName"/"StepName"
// field, not the schema key) and returns a deep copy of its sub-schema.
// The second return is false when no task carries that name.
func (r *Request) Task(name string) (*Task, bool) {
	nameField := r.base() + "Name"
	for _, key := range r.TaskKeys() {
		raw := r.raw[key].(map[string]any)
		if asString(raw[nameField]) == name {
			return &Task{key: key, base: r.base(), raw: deepCopyMap(raw)}, true
		}
	}
	return nil, false
}

// Multicore returns the chain-level core count.
func (r *Request) Multicore() int {
	n, _ := asInt(r.raw["Multicore"])
	return int(n)
}

// Multicores returns the per-task core counts, each falling back to the
// chain-level value when the task declares none.
func (r *Request) Multicores() []int {
	fallback := r.Multicore()
	var cores []int
	for _, t := range r.Tasks() {
		cores = append(cores, t.Multicore(fallback))
	}
	return cores
}

// OutputDatasets returns the chain-level output dataset names.
func (r *Request) OutputDatasets() []string {
	return asStringSlice(r.raw["OutputDatasets"])
}

// ScramArchs collects every architecture string declared on the chain and on
// its tasks.
func (r *Request) ScramArchs() []string {
	arches := asStringSlice(r.raw["ScramArch"])
	for _, t := range r.Tasks() {
		arches = append(arches, asStringSlice(t.raw["ScramArch"])...)
	}
	return arches
}

// ProcessingString concatenates the chain's processing-string fragments into
// a single tag. A map-valued field contributes each key/value pair; a plain
// string is returned as-is.
func (r *Request) ProcessingString() string {
	switch v := r.raw["ProcessingString"].(type) {
	case string:
		return v
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		for _, k := range keys {
			sb.WriteString(k)
			sb.WriteString(asString(v[k]))
		}
		return sb.String()
	}
	return ""
}

// PrimaryInputs returns the distinct input datasets declared across the
// chain's tasks, in chain order. An empty result means the chain generates
// its own events (no primary/raw input).
func (r *Request) PrimaryInputs() []string {
	seen := map[string]bool{}
	var primaries []string
	for _, t := range r.Tasks() {
		dataset, ok := t.InputDataset()
		if !ok || seen[dataset] {
			continue
		}
		seen[dataset] = true
		primaries = append(primaries, dataset)
	}
	return primaries
}

// IsRelVal reports whether this is a release-validation style request.
func (r *Request) IsRelVal() bool {
	return strings.Contains(asString(r.raw["SubRequestType"]), "RelVal")
}

// SizePerEvent returns the chain-level output size per event in kB.
// Only step chain requests carry this at chain level.
func (r *Request) SizePerEvent() float64 {
	f, _ := asFloat(r.raw["SizePerEvent"])
	return f
}

// RequestNumEvents returns the requested event count. Task chain requests
// declare it on their first task, step chain requests at chain level.
func (r *Request) RequestNumEvents() int64 {
	if n, ok := asInt(r.raw["RequestNumEvents"]); ok {
		return n
	}
	for _, key := range r.TaskKeys() {
		raw := r.raw[key].(map[string]any)
		if n, ok := asInt(raw["RequestNumEvents"]); ok {
			return n
		}
	}
	return 0
}
