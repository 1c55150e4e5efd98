package workflow

// Task is a deep-copied view over one task sub-schema. Mutations stay local
// to the copy and never reach the owning Request.
type Task struct {
	key  string // schema key, e.g. "Task2"
	base string // "Task" or "Step"
	raw  map[string]any
}

// Key returns the schema key the task was discovered under.
func (t *Task) Key() string { return t.key }

// Name returns the task's declared name (the "TaskName"/"StepName" field).
func (t *Task) Name() string {
	return asString(t.raw[t.base+"Name"])
}

// TimePerEvent returns the per-event CPU cost in seconds.
func (t *Task) TimePerEvent() float64 {
	f, _ := asFloat(t.raw["TimePerEvent"])
	return f
}

// SizePerEvent returns the per-event output size in kB.
func (t *Task) SizePerEvent() float64 {
	f, _ := asFloat(t.raw["SizePerEvent"])
	return f
}

// SetSizePerEvent overwrites the per-event output size on this copy.
// Used to apply the configured output-size correction factor.
func (t *Task) SetSizePerEvent(kb float64) {
	t.raw["SizePerEvent"] = kb
}

// FilterEfficiency returns the fraction of input events this task keeps,
// defaulting to 1.0 when the schema declares none.
func (t *Task) FilterEfficiency() float64 {
	if f, ok := asFloat(t.raw["FilterEfficiency"]); ok {
		return f
	}
	return 1.0
}

// InputTask returns the name of the predecessor task feeding this one.
func (t *Task) InputTask() (string, bool) {
	v, ok := t.raw["InputTask"]
	if !ok {
		return "", false
	}
	s := asString(v)
	return s, s != ""
}

// InputDataset returns the external dataset feeding this task, if any.
func (t *Task) InputDataset() (string, bool) {
	v, ok := t.raw["InputDataset"]
	if !ok {
		return "", false
	}
	s := asString(v)
	return s, s != ""
}

// Multicore returns the task's core count, or fallback when unset.
func (t *Task) Multicore(fallback int) int {
	if n, ok := asInt(t.raw["Multicore"]); ok && n > 0 {
		return int(n)
	}
	return fallback
}

// EventStreams returns the task's event-stream parallelism (0 = none).
func (t *Task) EventStreams() int {
	n, _ := asInt(t.raw["EventStreams"])
	return int(n)
}
