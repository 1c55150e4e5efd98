package policy

import (
	"context"

	"github.com/google/uuid"

	"github.com/prodops/chainsizer/internal/splitting"
)

// MetadataSource answers observed events-per-lumi-section lookups for a
// dataset. A zero value with a nil error means "not observed"; callers fall
// back to other sources. Implementations apply their own timeout and caching
// policy; the engine never retries.
type MetadataSource interface {
	EventsPerLumi(ctx context.Context, dataset string) (float64, error)
}

// NoMetadata is a MetadataSource with no catalog behind it. Every lookup
// reports "not observed".
type NoMetadata struct{}

// EventsPerLumi implements MetadataSource.
func (NoMetadata) EventsPerLumi(context.Context, string) (float64, error) {
	return 0, nil
}

// FindingCode identifies why a bound or hold fired.
type FindingCode string

const (
	// FindingTimeBound: one lumi section would run longer than the timeout.
	FindingTimeBound FindingCode = "TIME_BOUND"

	// FindingSizeBound: one lumi section's output would exceed the space limit.
	FindingSizeBound FindingCode = "SIZE_BOUND"

	// FindingJobCapped: events_per_job was reduced to fit the space limit.
	FindingJobCapped FindingCode = "JOB_CAPPED"

	// FindingUnderFill: a task's effective output falls below the minimum
	// events per lumi.
	FindingUnderFill FindingCode = "UNDER_FILL"

	// FindingInputTooCoarse: the input dataset provides more events per lumi
	// than any bound allows; not auto-fixable.
	FindingInputTooCoarse FindingCode = "INPUT_TOO_COARSE"

	// FindingRootReduced: the first task's events_per_lumi was rewritten
	// down to the binding bound.
	FindingRootReduced FindingCode = "ROOT_REDUCED"
)

// Finding is an informational diagnostic attached to a Decision. Findings
// explain why a value was chosen; they are never errors.
type Finding struct {
	Code    FindingCode `json:"code"`
	Task    string      `json:"task,omitempty"`
	Message string      `json:"message"`
}

// Decision is the complete outcome of one splitting validation pass.
//
// Hold and Modified are independent: a chain can be held and still carry
// auto-applied modifications, modified with no hold, or neither.
type Decision struct {
	// ReportID correlates this decision across logs and persisted reports.
	ReportID string `json:"report_id"`

	// Hold asks for operator intervention before submission.
	Hold bool `json:"hold"`

	// Modified lists the entries whose splitParams were rewritten in place.
	Modified []*splitting.Entry `json:"modified,omitempty"`

	// Findings explain every bound, cap, and hold that fired.
	Findings []Finding `json:"findings,omitempty"`
}

func (d *Decision) addFinding(code FindingCode, task, message string) {
	d.Findings = append(d.Findings, Finding{Code: code, Task: task, Message: message})
}

// ModifiedTasks returns the task names of the modified entries, in order.
func (d *Decision) ModifiedTasks() []string {
	var names []string
	for _, e := range d.Modified {
		names = append(names, e.ShortTaskName())
	}
	return names
}

func newReportID() string {
	return uuid.Must(uuid.NewV7()).String()
}
