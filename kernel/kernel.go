// Package kernel implements a cooperative, single-processor task kernel.
//
// Every task runs on its own goroutine, but exactly one of them holds the
// processor at any time. Control moves between tasks only through explicit
// context switches, so kernel state needs no locking: whoever holds the
// processor owns it. A dispatcher task picks the next task with an aging
// priority scheduler, and a timer tick forces tasks that exceed their
// quantum to yield at the next preemption checkpoint.
package kernel

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Kernel is one instance of the task kernel.
type Kernel struct {
	cfg   Config
	log   *logrus.Entry
	boot  string
	debug bool

	tasks  map[TaskID]*Task
	nextID TaskID
	live   int
	stacks int

	main       *Task
	dispatcher *Task
	current    *Task
	reap       *Task

	ready TaskQueue
	sleep TaskQueue

	ticks       atomic.Uint64
	remaining   atomic.Int64
	dispatching atomic.Bool
	preemptOff  int

	irqs     chan IRQ
	handlers [MaxIRQ]func()
	tickNote chan struct{}

	halt   chan struct{}
	halted atomic.Bool

	trace   deque.Deque[Event]
	metrics *Metrics
}

// New creates a kernel. The calling goroutine becomes the main task once
// it calls Init.
func New(cfg Config) (*Kernel, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	boot := uuid.NewString()
	m, err := newMetrics(cfg.Registerer, boot)
	if err != nil {
		return nil, fmt.Errorf("kernel metrics: %w", err)
	}

	k := &Kernel{
		cfg:      cfg,
		log:      cfg.Logger.WithField("boot", boot),
		boot:     boot,
		tasks:    make(map[TaskID]*Task),
		ready:    TaskQueue{name: "ready"},
		sleep:    TaskQueue{name: "sleep"},
		irqs:     make(chan IRQ, cfg.IRQDepth),
		tickNote: make(chan struct{}, 1),
		halt:     make(chan struct{}),
		metrics:  m,
	}
	k.debug = k.log.Logger.IsLevelEnabled(logrus.DebugLevel)
	return k, nil
}

// Init turns the calling goroutine into the main task, starts the
// dispatcher and the tick source, and hands the processor to the
// dispatcher once. It returns when the main task is scheduled again.
func (k *Kernel) Init() error {
	if k.halted.Load() {
		return ErrHalted
	}
	if k.main != nil {
		return fmt.Errorf("%w: already initialized", ErrInvalid)
	}

	main := k.newTask("main", false)
	main.ctx = newMainContext()
	main.state = StateRunning
	main.activations = 1
	k.stacks++
	k.main, k.current = main, main

	d, err := k.spawn("dispatcher", k.dispatch, nil, true)
	if err != nil {
		return err
	}
	k.ready.Remove(d)
	k.dispatcher = d

	k.startClock()
	k.log.WithFields(logrus.Fields{
		"tick":      k.cfg.TickInterval,
		"quantum":   k.cfg.Quantum,
		"aging":     k.cfg.AgingStep,
		"max_tasks": k.cfg.MaxTasks,
	}).Info("kernel initialized")

	k.yield()
	return nil
}

// Boot returns the unique id of this kernel instance.
func (k *Kernel) Boot() string { return k.boot }

// Metrics returns the kernel collectors.
func (k *Kernel) Metrics() *Metrics { return k.metrics }

// Halted reports whether the dispatcher has shut the kernel down.
func (k *Kernel) Halted() bool { return k.halted.Load() }

// Current returns the task holding the processor.
func (k *Kernel) Current() *Task { return k.current }

// ID returns the id of the running task, or -1 before Init.
func (k *Kernel) ID() TaskID {
	if k.current == nil {
		return -1
	}
	return k.current.id
}

// Ticks returns the number of timer ticks since Init.
func (k *Kernel) Ticks() uint64 { return k.ticks.Load() }

// Now returns the time elapsed since Init, at tick resolution.
func (k *Kernel) Now() time.Duration {
	return time.Duration(k.ticks.Load()) * k.cfg.TickInterval
}

// Create creates a ready task running entry(arg).
func (k *Kernel) Create(entry EntryFunc, arg any) (*Task, error) {
	return k.create("", entry, arg, false)
}

// CreateNamed is Create with a name used in logs and traces.
func (k *Kernel) CreateNamed(name string, entry EntryFunc, arg any) (*Task, error) {
	return k.create(name, entry, arg, false)
}

// CreateDaemon creates a system task. Daemons do not keep the kernel
// alive: the dispatcher halts once every non-daemon task has exited.
func (k *Kernel) CreateDaemon(name string, entry EntryFunc, arg any) (*Task, error) {
	return k.create(name, entry, arg, true)
}

func (k *Kernel) create(name string, entry EntryFunc, arg any, daemon bool) (*Task, error) {
	if err := k.enter(); err != nil {
		return nil, err
	}
	k.disablePreempt()
	defer k.enablePreempt()
	return k.spawn(name, entry, arg, daemon)
}

// Exit terminates the running task with code and wakes every task joined
// on it. For the main task, Exit returns only after the dispatcher has
// halted; for any other task it does not return.
func (k *Kernel) Exit(code int) {
	if k.enter() != nil {
		return
	}
	t := k.current
	if t == k.dispatcher {
		return
	}
	if t != k.main {
		t.exitCode = code
		exitGoroutine()
		return
	}

	k.disablePreempt()
	k.finish(t, code)
	k.restorePreempt()
	if err := k.swap(t, k.dispatcher); err != nil {
		k.log.WithError(err).Error("main task could not reach the dispatcher")
	}
}

// Join suspends the running task until t exits and returns t's exit code.
// It returns immediately if t has already exited.
func (k *Kernel) Join(t *Task) (int, error) {
	if err := k.enter(); err != nil {
		return 0, err
	}
	cur := k.current
	if t == nil || t.k != k {
		return 0, fmt.Errorf("%w: join on unknown task", ErrInvalid)
	}
	if t == cur || cur == k.dispatcher {
		return 0, fmt.Errorf("%w: %s cannot join %s", ErrInvalid, cur, t)
	}
	if t.state == StateExited {
		return t.exitCode, nil
	}

	k.disablePreempt()
	k.suspend(cur, &t.joiners)
	k.restorePreempt()
	k.yield()
	return t.exitCode, nil
}

// Yield returns the running task to the ready queue and lets the
// dispatcher pick the next task.
func (k *Kernel) Yield() error {
	if err := k.enter(); err != nil {
		return err
	}
	if k.current == k.dispatcher {
		return nil
	}
	k.yield()
	return nil
}

// Switch hands the processor directly to t, bypassing the scheduler. The
// running task is left suspended and outside every queue; it runs again
// only when some task resumes it or switches back to it.
func (k *Kernel) Switch(t *Task) error {
	if err := k.enter(); err != nil {
		return err
	}
	cur := k.current
	if t == nil || t.k != k || t.state == StateExited || cur == k.dispatcher {
		return fmt.Errorf("%w: cannot switch to %s", ErrInvalid, t)
	}
	if t == cur {
		return nil
	}

	if q := queueOf(t); q != nil {
		q.Remove(t)
	}
	prevState := t.state
	t.state = StateRunning
	cur.state = StateSuspended
	k.record(EventSwitch, t)
	if err := k.swap(cur, t); err != nil {
		cur.state = StateRunning
		t.state = prevState
		if prevState == StateReady {
			_ = k.ready.Append(t)
		}
		return err
	}
	return nil
}

// Suspend moves t, or the running task if t is nil, out of whatever queue
// holds it and into q. A nil q leaves the task in no queue at all.
//
// Suspending the running task does not give up the processor; follow it
// with Yield.
func (k *Kernel) Suspend(t *Task, q *TaskQueue) error {
	if err := k.enter(); err != nil {
		return err
	}
	if t == nil {
		t = k.current
	}
	if t.k != k || t.state == StateExited || t == k.dispatcher {
		return fmt.Errorf("%w: cannot suspend %s", ErrInvalid, t)
	}
	k.disablePreempt()
	k.suspend(t, q)
	k.restorePreempt()
	return nil
}

// Resume moves a suspended task to the ready queue.
func (k *Kernel) Resume(t *Task) error {
	if err := k.enter(); err != nil {
		return err
	}
	if t == nil || t.k != k || t.state == StateExited || t == k.dispatcher {
		return fmt.Errorf("%w: cannot resume %s", ErrInvalid, t)
	}
	k.disablePreempt()
	k.resume(t)
	k.enablePreempt()
	return nil
}

// Sleep suspends the running task for at least d, rounded up to whole ticks.
// Sleeping requires a tick source.
func (k *Kernel) Sleep(d time.Duration) error {
	if err := k.enter(); err != nil {
		return err
	}
	cur := k.current
	if cur == k.dispatcher {
		return fmt.Errorf("%w: dispatcher cannot sleep", ErrInvalid)
	}
	if d <= 0 {
		return nil
	}

	interval := k.cfg.TickInterval
	cur.wakeTick = k.ticks.Load() + uint64((d+interval-1)/interval)
	k.disablePreempt()
	k.suspend(cur, &k.sleep)
	k.restorePreempt()
	k.yield()
	return nil
}

// SetPriority sets the static priority of t, or of the running task if t
// is nil, and resets its dynamic priority to match. Lower values are more
// eligible.
func (k *Kernel) SetPriority(t *Task, prio int) error {
	if err := k.enter(); err != nil {
		return err
	}
	if t == nil {
		t = k.current
	}
	if t.k != k {
		return fmt.Errorf("%w: foreign task", ErrInvalid)
	}
	if prio < MinPriority || prio > MaxPriority {
		return fmt.Errorf("%w: priority %d outside [%d, %d]", ErrInvalid, prio, MinPriority, MaxPriority)
	}
	t.prio = prio
	t.dynPrio = prio
	return nil
}

// Priority returns the static priority of t, or of the running task if t
// is nil.
func (k *Kernel) Priority(t *Task) int {
	if t == nil {
		t = k.current
	}
	if t == nil {
		return DefaultPriority
	}
	return t.prio
}

func (k *Kernel) enter() error {
	if k.halted.Load() {
		return ErrHalted
	}
	if k.current == nil {
		return ErrNotInit
	}
	return nil
}

func (k *Kernel) newTask(name string, daemon bool) *Task {
	t := &Task{
		k:       k,
		id:      k.nextID,
		name:    name,
		daemon:  daemon,
		prio:    DefaultPriority,
		dynPrio: DefaultPriority,
		created: k.ticks.Load(),
	}
	t.joiners.name = fmt.Sprintf("join-%d", t.id)
	k.nextID++
	k.tasks[t.id] = t
	if !daemon {
		k.live++
		k.metrics.LiveTasks.Set(float64(k.live))
	}
	k.metrics.TasksCreated.Inc()
	return t
}

func (k *Kernel) spawn(name string, entry EntryFunc, arg any, daemon bool) (*Task, error) {
	if entry == nil {
		return nil, fmt.Errorf("%w: nil entry", ErrInvalid)
	}
	if k.stacks >= k.cfg.MaxTasks {
		return nil, fmt.Errorf("%w: %d contexts in use", ErrNoStack, k.stacks)
	}

	t := k.newTask(name, daemon)
	t.ctx = k.newContext(t, entry, arg)
	k.stacks++
	t.state = StateReady
	_ = k.ready.Append(t)
	k.record(EventCreate, t)
	if k.debug {
		k.log.WithFields(logrus.Fields{"task": t.id, "name": name, "daemon": daemon}).Debug("task created")
	}
	return t, nil
}

func (k *Kernel) suspend(t *Task, q *TaskQueue) {
	if owner := queueOf(t); owner != nil {
		owner.Remove(t)
	}
	t.state = StateSuspended
	if q != nil {
		_ = q.Append(t)
	}
	k.record(EventSuspend, t)
}

func (k *Kernel) resume(t *Task) {
	if t.state == StateRunning || t.state == StateExited {
		return
	}
	if owner := queueOf(t); owner != nil {
		owner.Remove(t)
	}
	t.state = StateReady
	_ = k.ready.Append(t)
	k.record(EventResume, t)
}

// yield gives the processor to the dispatcher. A running task goes back
// to the ready queue; a task that suspended itself stays where it is.
func (k *Kernel) yield() {
	cur := k.current
	if cur.state == StateRunning || (cur.state == StateReady && queueOf(cur) == nil) {
		cur.state = StateReady
		_ = k.ready.Append(cur)
	}
	if err := k.swap(cur, k.dispatcher); err != nil {
		k.ready.Remove(cur)
		cur.state = StateRunning
	}
}

// finish records the exit of t. The caller still has to leave t's context.
func (k *Kernel) finish(t *Task, code int) {
	if owner := queueOf(t); owner != nil {
		owner.Remove(t)
	}
	t.state = StateExited
	t.exitCode = code
	for w := t.joiners.Head(); w != nil; w = t.joiners.Head() {
		k.resume(w)
	}

	now := k.ticks.Load()
	t.procTicks += now - t.lastDispatch
	t.lifeTicks = now - t.created
	if !t.daemon {
		k.live--
		k.metrics.LiveTasks.Set(float64(k.live))
	}
	if t != k.main {
		k.reap = t
	}
	k.metrics.TasksExited.Inc()
	k.record(EventExit, t)

	st := t.Stats()
	k.log.WithFields(logrus.Fields{
		"task":        t.id,
		"name":        t.name,
		"code":        code,
		"lifetime":    st.Lifetime,
		"processor":   st.Processor,
		"activations": st.Activations,
	}).Info("task exit")
}
