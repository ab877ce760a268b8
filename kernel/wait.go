package kernel

// block suspends the running task on q and gives up the processor. It
// returns the error handed to the task by whoever woke it. The caller must
// have disabled preemption; block restores it.
func (k *Kernel) block(q *TaskQueue) error {
	cur := k.current
	cur.waitErr = nil
	k.suspend(cur, q)
	k.restorePreempt()
	k.yield()
	err := cur.waitErr
	cur.waitErr = nil
	return err
}

// wakeOne resumes the head of q and reports whether there was one.
func (k *Kernel) wakeOne(q *TaskQueue) bool {
	t := q.Head()
	if t == nil {
		return false
	}
	k.resume(t)
	return true
}

// wakeAll resumes every task on q, handing each of them err.
func (k *Kernel) wakeAll(q *TaskQueue, err error) {
	for t := q.Head(); t != nil; t = q.Head() {
		t.waitErr = err
		k.resume(t)
	}
}
