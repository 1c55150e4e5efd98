package policy

import (
	"github.com/prodops/chainsizer/internal/workflow"
)

// CumulativeEfficiency multiplies FilterEfficiency across every ancestor
// task reachable from t via InputTask links. The recursion terminates at a
// task with no InputTask, or at an InputTask naming something outside the
// chain (an external input dataset), which contributes factor 1.0.
//
// Well-formed chains reference strictly upstream tasks. A chain that
// revisits a task fails with a MALFORMED_CHAIN error instead of recursing
// forever.
func (e *Engine) CumulativeEfficiency(req *workflow.Request, t *workflow.Task) (float64, error) {
	return e.walkEfficiency(req, t, 1.0, map[string]bool{})
}

func (e *Engine) walkEfficiency(req *workflow.Request, t *workflow.Task, acc float64, visited map[string]bool) (float64, error) {
	input, ok := t.InputTask()
	if !ok {
		return acc, nil
	}
	if visited[input] {
		return 0, NewMalformedChainError(input)
	}
	visited[input] = true

	parent, ok := req.Task(input)
	if !ok {
		// External input dataset reference, not a task in this chain.
		return acc, nil
	}
	return e.walkEfficiency(req, parent, acc*parent.FilterEfficiency(), visited)
}
