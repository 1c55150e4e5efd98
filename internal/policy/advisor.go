package policy

import (
	"strings"

	"github.com/prodops/chainsizer/internal/workflow"
)

// Advice is the full criteria breakdown behind a conversion decision, so an
// operator can see which gate disqualified a chain.
type Advice struct {
	Eligible bool `json:"eligible"`

	MoreThanOneTask      bool `json:"more_than_one_task"`
	AllUniqueTiers       bool `json:"all_unique_tiers"`
	SameArchFamily       bool `json:"same_arch_family"`
	SameCores            bool `json:"same_cores"`
	AcceptableEfficiency bool `json:"acceptable_efficiency"`
	NoEventStreams       bool `json:"no_event_streams"`
	KeywordMatched       bool `json:"keyword_matched"`

	// CPUEfficiency is the time-weighted utilization a merged step chain
	// would reach; only meaningful when core counts differ.
	CPUEfficiency float64 `json:"cpu_efficiency"`

	// Reason is set when the request type alone settles the answer.
	Reason string `json:"reason,omitempty"`
}

// AdviseConversion decides whether a task chain qualifies for collapse into
// a single merged step chain. All criteria must hold: more than one task, no
// output data tier produced twice, one architecture family, homogeneous core
// counts (or an acceptable merged CPU efficiency), no event-stream
// parallelism, and, when keywords are given, at least one appearing in the
// processing string or workflow name.
//
// The policy runs once, TaskChain to StepChain: a step chain request is
// never eligible.
func (e *Engine) AdviseConversion(req *workflow.Request, keywords []string) (*Advice, error) {
	if req.RequestType() == workflow.TypeStepChain {
		e.log.Info("conversion only applies to task chain requests")
		return &Advice{Reason: "already a step chain"}, nil
	}

	a := &Advice{}

	a.NoEventStreams = !hasNonZeroEventStreams(req)
	a.MoreThanOneTask = req.TaskCount() > 1
	a.AllUniqueTiers = allUniqueTiers(req.OutputDatasets())
	a.SameArchFamily = sameArchFamily(req.ScramArchs())
	a.SameCores = allSame(req.Multicores())

	if !a.SameCores {
		a.CPUEfficiency = e.stepChainCPUEfficiency(req)
		a.AcceptableEfficiency = a.CPUEfficiency > e.cfg.EfficiencyThresholdForStepchain
	}

	a.KeywordMatched = keywordMatched(req, keywords)

	a.Eligible = a.MoreThanOneTask &&
		a.AllUniqueTiers &&
		a.SameArchFamily &&
		(a.SameCores || a.AcceptableEfficiency) &&
		a.NoEventStreams &&
		a.KeywordMatched

	e.log.Debug("conversion advice",
		"workflow", req.Name(),
		"eligible", a.Eligible,
		"unique_tiers", a.AllUniqueTiers,
		"same_arch_family", a.SameArchFamily,
		"same_cores", a.SameCores,
		"cpu_efficiency", a.CPUEfficiency,
		"no_event_streams", a.NoEventStreams)
	return a, nil
}

// stepChainCPUEfficiency is the trade-off criterion for merging
// heterogeneous-core chains: the time-weighted core usage of each task,
// capped at the configured maximum, relative to running the whole merged
// step at that maximum.
func (e *Engine) stepChainCPUEfficiency(req *workflow.Request) float64 {
	maxCores := float64(e.cfg.MaxNCoresForStepchain)
	fallback := req.Multicore()

	totalTimePerEvent, weighted := 0.0, 0.0
	for _, t := range req.Tasks() {
		// Time per processed event grows as the task filters events away.
		timePerEvent := t.TimePerEvent() / t.FilterEfficiency()
		cores := float64(t.Multicore(fallback))

		totalTimePerEvent += timePerEvent
		weighted += timePerEvent * minFloat(cores, maxCores)
	}
	e.log.Debug("total time per event for chain", "time_per_event_s", totalTimePerEvent)

	if totalTimePerEvent == 0 {
		return 0
	}
	return weighted / (totalTimePerEvent * maxCores)
}

func hasNonZeroEventStreams(req *workflow.Request) bool {
	for _, t := range req.Tasks() {
		if t.EventStreams() != 0 {
			return true
		}
	}
	return false
}

// allUniqueTiers checks that no output data tier is produced twice. The tier
// is the last "/"-separated element of the dataset name.
func allUniqueTiers(datasets []string) bool {
	seen := map[string]bool{}
	for _, dataset := range datasets {
		tier := dataset[strings.LastIndex(dataset, "/")+1:]
		if seen[tier] {
			return false
		}
		seen[tier] = true
	}
	return true
}

// sameArchFamily checks that every architecture string shares the same
// family, i.e. the same first four characters ("slc7", "el8", ...). A chain
// declaring no architecture at all cannot be merged.
func sameArchFamily(arches []string) bool {
	if len(arches) == 0 {
		return false
	}
	var family string
	for i, arch := range arches {
		f := arch
		if len(f) > 4 {
			f = f[:4]
		}
		if i == 0 {
			family = f
		} else if f != family {
			return false
		}
	}
	return true
}

func allSame(values []int) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func keywordMatched(req *workflow.Request, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := req.ProcessingString() + req.Name()
	for _, keyword := range keywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}
