package splitting

// Task types whose splittings are subject to size validation. Merge,
// cleanup, and log-collect tasks are bookkeeping and never resized.
var taskTypesToKeep = map[string]bool{
	"Production": true,
	"Processing": true,
	"Skim":       true,
}

// Parameters the request manager attaches for its own bookkeeping. They are
// dropped before entries are persisted back.
var paramsToDrop = []string{
	"algorithm",
	"trustPUSitelists",
	"trustSitelists",
	"deterministicPileup",
	"type",
	"include_parents",
	"lheInputFiles",
	"runWhitelist",
	"runBlacklist",
	"collectionName",
	"group",
	"couchDB",
	"couchURL",
	"owner",
	"initial_lfn_counter",
	"filesetName",
	"runs",
	"lumis",
}

// Lumi-based splitting ignores event counts entirely, so stale event
// parameters are dropped as well.
var lumiBasedParamsToDrop = []string{"events_per_job", "job_time_limit"}

// FilterTaskTypes keeps only entries whose task type the validator sizes.
func FilterTaskTypes(entries []*Entry) []*Entry {
	var kept []*Entry
	for _, e := range entries {
		if taskTypesToKeep[e.TaskType] {
			kept = append(kept, e)
		}
	}
	return kept
}

// ScrubParams removes bookkeeping parameters from every entry, in place,
// and returns the same slice for chaining.
func ScrubParams(entries []*Entry) []*Entry {
	for _, e := range entries {
		for _, param := range paramsToDrop {
			delete(e.SplitParams, param)
		}
		if e.SplitAlgo == "LumiBased" {
			for _, param := range lumiBasedParamsToDrop {
				delete(e.SplitParams, param)
			}
		}
	}
	return entries
}
