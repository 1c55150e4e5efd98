package policy

import (
	"context"
	"fmt"

	"github.com/prodops/chainsizer/internal/splitting"
	"github.com/prodops/chainsizer/internal/workflow"
)

// CheckSplitting validates the ordered splitting-entry list of a task chain
// request against the time and size budgets.
//
// Entries whose events_per_job overflows the space budget are capped in
// place and reported in Decision.Modified. The chain is held when a task
// under-fills its lumi sections, or when the input dataset naturally
// provides more events per lumi than the tightest bound allows (the
// non-auto-fixable case). When the chain generates its own events, an
// oversized events_per_lumi on the first entry is rewritten down instead.
//
// Either a full, consistent Decision is returned or an error; a failed
// catalog lookup aborts before any entry is touched.
func (e *Engine) CheckSplitting(ctx context.Context, req *workflow.Request, entries []*splitting.Entry) (*Decision, error) {
	d := &Decision{ReportID: newReportID()}

	// The observed input events-per-lumi is resolved up front so a metadata
	// failure cannot leave a half-applied result.
	inputEventsPerLumi, err := e.observedInputEventsPerLumi(ctx, req)
	if err != nil {
		return nil, err
	}

	var (
		eventsPerLumi float64   // carried from task to task
		lumiBounds    []float64 // every bound seen, reduced by min
		smallLumi     bool      // under-fill already detected
	)

	noPrimaries := len(req.PrimaryInputs()) == 0
	relVal := req.IsRelVal()

	for _, entry := range entries {
		taskName := entry.ShortTaskName()
		task, ok := req.Task(taskName)
		if !ok {
			continue
		}
		task.SetSizePerEvent(task.SizePerEvent() * e.cfg.CorrectionFactor(taskName))

		if epl, ok := entry.EventsPerLumi(); ok && epl > 0 {
			eventsPerLumi = float64(epl)
		} else if inputEventsPerLumi > 0 {
			eventsPerLumi = inputEventsPerLumi
		}

		eventsPerJob, hasEventsPerJob := entry.EventsPerJob()
		if eventsPerLumi == 0 || !hasEventsPerJob {
			// Nothing to assert about a task that cannot be bound.
			continue
		}

		bounds, err := e.taskBounds(req, task, eventsPerLumi, eventsPerJob, d)
		if err != nil {
			return nil, err
		}
		lumiBounds = append(lumiBounds, bounds.LumiBounds()...)

		if bounds.JobCap != nil {
			entry.SetEventsPerJob(*bounds.JobCap)
			d.Modified = append(d.Modified, entry)
		}

		if !smallLumi && noPrimaries && !relVal {
			effEventsPerLumi := minFloat(eventsPerLumi, minOf(lumiBounds, eventsPerLumi))
			effEventsPerLumi *= task.FilterEfficiency()
			if effEventsPerLumi < float64(e.cfg.MinEventsPerLumiOutput) {
				smallLumi = true
				d.Hold = true
				d.addFinding(FindingUnderFill, taskName, fmt.Sprintf(
					"task would get %.0f events per lumi in output, below the %d minimum",
					effEventsPerLumi, e.cfg.MinEventsPerLumiOutput))
				e.log.Warn("lumi sections under-filled",
					"task", taskName,
					"effective_events_per_lumi", effEventsPerLumi,
					"min", e.cfg.MinEventsPerLumiOutput)
			}
		}
	}

	if len(lumiBounds) > 0 {
		binding := minOf(lumiBounds, 0)

		switch {
		case inputEventsPerLumi > 0 && binding < inputEventsPerLumi:
			// A downstream constraint is tighter than what the input data
			// naturally provides. Re-binning is an operator call.
			d.Hold = true
			d.addFinding(FindingInputTooCoarse, "", fmt.Sprintf(
				"allowed events per lumi %.0f is smaller than the %.0f provided by the input dataset",
				binding, inputEventsPerLumi))
			e.log.Warn("input dataset coarser than allowed events per lumi",
				"binding_bound", binding,
				"input_events_per_lumi", inputEventsPerLumi)

		case inputEventsPerLumi == 0:
			root := entries[0]
			if rootEPL, ok := root.EventsPerLumi(); ok && binding < float64(rootEPL) {
				root.SetEventsPerLumi(int64(binding))
				d.Modified = append(d.Modified, root)
				d.addFinding(FindingRootReduced, root.ShortTaskName(), fmt.Sprintf(
					"events per lumi reduced from %d to %.0f", rootEPL, binding))
				e.log.Info("root events per lumi reduced",
					"task", root.ShortTaskName(),
					"from", rootEPL,
					"to", binding)
			}
		}
	}

	return d, nil
}

// observedInputEventsPerLumi queries the catalog once per chain, for the
// first task carrying an InputDataset. Zero means the chain's first task is
// the primary data source.
func (e *Engine) observedInputEventsPerLumi(ctx context.Context, req *workflow.Request) (float64, error) {
	for _, t := range req.Tasks() {
		dataset, ok := t.InputDataset()
		if !ok {
			continue
		}
		perLumi, err := e.metadata.EventsPerLumi(ctx, dataset)
		if err != nil {
			return 0, NewMetadataError(dataset, err)
		}
		return perLumi, nil
	}
	return 0, nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// minOf reduces bounds by min, or returns def when empty.
func minOf(bounds []float64, def float64) float64 {
	if len(bounds) == 0 {
		return def
	}
	m := bounds[0]
	for _, b := range bounds[1:] {
		if b < m {
			m = b
		}
	}
	return m
}
