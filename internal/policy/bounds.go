package policy

import (
	"fmt"
	"math"

	"github.com/prodops/chainsizer/internal/workflow"
)

// Time budget per lumi section: timeoutHours is the hard ceiling that
// triggers a bound, targetHours the ceiling the suggested bound aims for.
const (
	timeoutHours = 45.0
	targetHours  = 8.0
)

// SizePerEvent is kB; the space limit is GB. Binary conversion throughout.
const kbPerGB = 1024.0 * 1024.0

// Bounds carries the per-task outcome of one bound calculation. A nil bound
// means "no tighter constraint than the input", never zero. Lumi bounds are
// expressed in the input chain's events-per-lumi units (re-divided by the
// ancestor efficiency factor), because downstream tasks see fewer events
// than upstream.
type Bounds struct {
	LumiByTime *float64
	LumiBySize *float64
	JobCap     *int64
}

// LumiBounds returns the non-nil events-per-lumi bounds.
func (b Bounds) LumiBounds() []float64 {
	var out []float64
	if b.LumiByTime != nil {
		out = append(out, *b.LumiByTime)
	}
	if b.LumiBySize != nil {
		out = append(out, *b.LumiBySize)
	}
	return out
}

// taskBounds runs both budget checks for one task against a proposed base
// events-per-lumi figure. The task's SizePerEvent must already carry the
// output-size correction.
func (e *Engine) taskBounds(req *workflow.Request, t *workflow.Task, eventsPerLumi float64, eventsPerJob int64, d *Decision) (Bounds, error) {
	var b Bounds

	byTime, err := e.maxEventsByTime(req, t, eventsPerLumi, d)
	if err != nil {
		return b, err
	}
	b.LumiByTime = byTime

	bySize, jobCap, err := e.maxEventsBySize(req, t, eventsPerLumi, eventsPerJob, d)
	if err != nil {
		return b, err
	}
	b.LumiBySize = bySize
	b.JobCap = jobCap
	return b, nil
}

// maxEventsByTime returns the events-per-lumi ceiling imposed by the time
// budget, or nil when the proposed value already fits. The task processes
// eventsPerLumi scaled down by the cumulative ancestor efficiency; if that
// takes longer than the timeout, the bound is what fits the target time,
// re-expressed in input-chain units.
func (e *Engine) maxEventsByTime(req *workflow.Request, t *workflow.Task, eventsPerLumi float64, d *Decision) (*float64, error) {
	factor, err := e.CumulativeEfficiency(req, t)
	if err != nil {
		return nil, err
	}

	effEventsPerLumi := eventsPerLumi * factor
	timePerEvent := t.TimePerEvent()

	lumiTime := effEventsPerLumi * timePerEvent
	if lumiTime <= timeoutHours*3600 {
		return nil, nil
	}

	maxEventsPerLumi := targetHours * 3600 / timePerEvent
	d.addFinding(FindingTimeBound, t.Name(), fmt.Sprintf(
		"one lumi section would run %.0f x %.2f s = %.2f h, above the %.0f h ceiling; events per lumi should go as low as %.0f",
		effEventsPerLumi, timePerEvent, lumiTime/3600, timeoutHours, maxEventsPerLumi))
	e.log.Info("lumi section exceeds time budget",
		"task", t.Name(),
		"events_per_lumi", effEventsPerLumi,
		"time_per_event_s", timePerEvent,
		"lumi_hours", lumiTime/3600,
		"bound", maxEventsPerLumi)

	bound := maxEventsPerLumi / factor
	return &bound, nil
}

// maxEventsBySize returns the events-per-lumi ceiling imposed by the space
// budget, or an events-per-job cap when only the per-job output overflows.
// At most one of the two fires per call. A task with no SizePerEvent has no
// size constraint at all.
func (e *Engine) maxEventsBySize(req *workflow.Request, t *workflow.Task, eventsPerLumi float64, eventsPerJob int64, d *Decision) (*float64, *int64, error) {
	limitGB := e.cfg.GBSpaceLimit

	sizePerEvent := t.SizePerEvent()
	if sizePerEvent == 0 {
		return nil, nil, nil
	}

	factor, err := e.CumulativeEfficiency(req, t)
	if err != nil {
		return nil, nil, err
	}
	filterEfficiency := t.FilterEfficiency()

	// Output accrues after this task's own filtering, so the effective size
	// per input-chain event carries both the ancestor factor and the task's
	// own efficiency.
	effSizePerEvent := sizePerEvent * factor * filterEfficiency
	effEventsPerLumi := eventsPerLumi * factor

	maxEventsPerLumi := math.Floor(limitGB * kbPerGB / effSizePerEvent)

	lumiGB := effEventsPerLumi * effSizePerEvent / kbPerGB
	if lumiGB > limitGB {
		d.addFinding(FindingSizeBound, t.Name(), fmt.Sprintf(
			"one lumi section would write %.2f GB > %.2f GB (effective lumi size ~%.0f events); events per lumi should go as low as %.0f",
			lumiGB, limitGB, effEventsPerLumi, maxEventsPerLumi))
		e.log.Info("lumi section exceeds space budget",
			"task", t.Name(),
			"lumi_gb", lumiGB,
			"limit_gb", limitGB,
			"bound", maxEventsPerLumi)

		bound := maxEventsPerLumi / factor
		return &bound, nil, nil
	}

	jobGB := float64(eventsPerJob) * effSizePerEvent / kbPerGB
	if jobGB > limitGB {
		capped := int64(maxEventsPerLumi)
		d.addFinding(FindingJobCapped, t.Name(), fmt.Sprintf(
			"job output %d x %.2f kB x %.4f = %.2f GB > %.2f GB; reducing events per job to %d",
			eventsPerJob, sizePerEvent, factor*filterEfficiency, jobGB, limitGB, capped))
		e.log.Info("job output exceeds space budget",
			"task", t.Name(),
			"events_per_job", eventsPerJob,
			"job_gb", jobGB,
			"limit_gb", limitGB,
			"cap", capped)

		return nil, &capped, nil
	}

	return nil, nil, nil
}
