package kernel

// agingPick returns the ready task with the lowest dynamic priority,
// breaking ties by lower static priority and then by queue order. The
// winner's dynamic priority is reset to its static priority, and every
// ready task, the winner included, then ages by step. The winner stays in
// q; the caller removes it.
func agingPick(q *TaskQueue, step int) *Task {
	var best *Task
	q.Each(func(t *Task) bool {
		if best == nil || t.dynPrio < best.dynPrio ||
			(t.dynPrio == best.dynPrio && t.prio < best.prio) {
			best = t
		}
		return true
	})
	if best == nil {
		return nil
	}

	best.dynPrio = best.prio + step
	q.Each(func(t *Task) bool {
		t.dynPrio -= step
		return true
	})
	return best
}
