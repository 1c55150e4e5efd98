package splitting

// BlowupFactor returns the largest parent-to-child ratio of events per job
// across the chain. A child's parents are the entries whose splittingTask
// path is a strict prefix of the child's. A factor above 1 means a parent
// job fans out into several child jobs.
func BlowupFactor(entries []*Entry) float64 {
	maxBlowUp := 0.0

	for _, child := range entries {
		childSize, ok := child.AvgEventsPerJob()
		if !ok || childSize == 0 {
			continue
		}

		for _, parent := range entries {
			if parent.SplittingTask == child.SplittingTask {
				continue
			}
			if !hasPathPrefix(child.SplittingTask, parent.SplittingTask) {
				continue
			}
			parentSize, ok := parent.AvgEventsPerJob()
			if !ok {
				continue
			}
			if blowUp := float64(parentSize) / float64(childSize); blowUp > maxBlowUp {
				maxBlowUp = blowUp
			}
		}
	}

	return maxBlowUp
}

func hasPathPrefix(task, prefix string) bool {
	if len(task) <= len(prefix) {
		return false
	}
	return task[:len(prefix)] == prefix
}
