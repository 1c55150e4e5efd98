package policy

import (
	"fmt"

	"github.com/prodops/chainsizer/internal/splitting"
	"github.com/prodops/chainsizer/internal/workflow"
)

// CheckStepChainSplitting validates the splittings of a step chain request.
//
// A merged step runs every task of the original chain inside one job, so the
// budget is the flat per-core space limit scaled by the request's core
// count, applied to the chain-level SizePerEvent. Oversized entries get
// their events_per_job capped in place; a step chain is never held.
func (e *Engine) CheckStepChainSplitting(req *workflow.Request, entries []*splitting.Entry) (*Decision, error) {
	d := &Decision{ReportID: newReportID()}

	cores := req.Multicore()
	if cores == 0 {
		cores = 1
	}
	limitGB := float64(cores) * e.cfg.GBSpaceLimit

	sizePerEventGB := req.SizePerEvent() / kbPerGB
	if sizePerEventGB == 0 {
		return d, nil
	}

	for _, entry := range entries {
		eventsPerJob, ok := entry.EventsPerJob()
		if !ok {
			continue
		}

		jobGB := float64(eventsPerJob) * sizePerEventGB
		if jobGB <= limitGB {
			continue
		}

		capped := int64(limitGB / sizePerEventGB)
		entry.SetEventsPerJob(capped)
		d.Modified = append(d.Modified, entry)
		d.addFinding(FindingJobCapped, entry.ShortTaskName(), fmt.Sprintf(
			"job output %d x %.6f GB = %.2f GB > %.2f GB; reducing events per job to %d",
			eventsPerJob, sizePerEventGB, jobGB, limitGB, capped))
		e.log.Info("step chain job output exceeds space budget",
			"task", entry.ShortTaskName(),
			"events_per_job", eventsPerJob,
			"job_gb", jobGB,
			"limit_gb", limitGB,
			"cap", capped)
	}

	return d, nil
}
