package spin

import (
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/rs/zerolog"

	"github.com/lanxc-go/spin/list"
	"github.com/lanxc-go/spin/monitor"
)

// crossThreadLock is a spinlock guarding only the brief critical sections
// around the posted-task queue — test-and-test-and-set, so a contended
// lock spins on an atomic load (cheap, cache-friendly) rather than
// hammering the CompareAndSwap itself. Grounded on
// original_source/src/spin.cpp's spin_lock, whose entire justification is
// that the protected section (a list splice) is too short to be worth a
// futex-based mutex.
type crossThreadLock struct {
	locked atomic.Bool
}

func (l *crossThreadLock) Lock() {
	for {
		if !l.locked.Load() && l.locked.CompareAndSwap(false, true) {
			return
		}
		runtime.Gosched()
	}
}

func (l *crossThreadLock) Unlock() {
	l.locked.Store(false)
}

// Scheduler runs tasks and waits for I/O readiness, on a single
// goroutine, for its entire lifetime. It is not safe to call Run from
// more than one goroutine concurrently, but Post/Interrupt are safe to
// call from any goroutine.
//
// Grounded on original_source/src/spin/scheduler.hpp and scheduler.cpp:
// two task queues (a goroutine-local one for same-thread scheduling via
// Dispatch, a lock-guarded one for cross-thread scheduling via Post), a
// lazily created event monitor referenced only weakly so a Scheduler with
// no registered I/O sources never pays for an epoll instance, and the
// exact five-step Run algorithm the original's run() implements.
type Scheduler struct {
	dispatched list.List[*Task]
	posted     list.List[*Task]
	lock       crossThreadLock

	monitorMu  sync.Mutex
	monitorRef weak.Pointer[monitor.Monitor]

	running atomic.Bool
	logger  zerolog.Logger
}

// NewScheduler creates a Scheduler with no monitor yet instantiated — one
// is created lazily on the first call to Monitor (directly, or via
// creating a source/timer that needs one).
func NewScheduler(opts ...Option) *Scheduler {
	cfg := resolveOptions(opts)
	return &Scheduler{logger: cfg.logger}
}

// Monitor returns this scheduler's event monitor, creating it on first
// use. The Scheduler itself holds only a weak reference: the monitor
// stays alive only as long as some caller (a source, a timer service)
// keeps the returned strong reference — a Scheduler that nobody registers
// I/O against never pays for an epoll instance, and its monitor's
// descriptors are closed once the last user releases it and the garbage
// collector reclaims it, rather than on a separate explicit step.
func (s *Scheduler) Monitor() (*monitor.Monitor, error) {
	if m := s.monitorRef.Value(); m != nil {
		return m, nil
	}
	s.monitorMu.Lock()
	defer s.monitorMu.Unlock()
	if m := s.monitorRef.Value(); m != nil {
		return m, nil
	}
	m, err := monitor.New()
	if err != nil {
		return nil, wrapf("spin: create monitor", err)
	}
	s.monitorRef = weak.Make(m)
	return m, nil
}

// Dispatch queues t for execution on this scheduler's own goroutine. Not
// safe to call from any goroutine other than the one running this
// Scheduler; use Post for that.
func (s *Scheduler) Dispatch(t *Task) {
	s.dispatched.PushBack(&t.link)
}

// DispatchQueue moves every task in q onto the dispatched queue, leaving
// q empty. Same same-goroutine-only restriction as Dispatch.
func (s *Scheduler) DispatchQueue(q *list.List[*Task]) {
	s.dispatched.PushBackList(q)
}

// Post queues t for execution and interrupts the scheduler if it is
// currently blocked waiting for events. Safe to call from any goroutine,
// including the one running this Scheduler (where it behaves like
// Dispatch plus a redundant, harmless interrupt).
func (s *Scheduler) Post(t *Task) {
	s.lock.Lock()
	s.posted.PushBack(&t.link)
	s.Interrupt()
	s.lock.Unlock()
}

// PostQueue moves every task in q onto the posted queue and interrupts
// the scheduler, leaving q empty. Safe to call from any goroutine.
func (s *Scheduler) PostQueue(q *list.List[*Task]) {
	s.lock.Lock()
	s.posted.PushBackList(q)
	s.Interrupt()
	s.lock.Unlock()
}

// Interrupt wakes the scheduler from a blocking wait, if it has a
// monitor and is currently blocked in one. A no-op if no monitor has
// been created yet (nothing could be blocking on it). Safe to call from
// any goroutine, including while s.lock is held — the original's post()
// calls interrupt() from inside the same lock_guard scope that queued
// the task, and this does the same with no additional locking of its own.
func (s *Scheduler) Interrupt() {
	if m := s.monitorRef.Value(); m != nil {
		if err := m.Interrupt(); err != nil {
			s.logger.Warn().Err(err).Msg("spin: interrupt failed")
		}
	}
}

// HasTasks reports whether this scheduler currently has any queued,
// not-yet-run tasks. A task is considered no longer queued as soon as it
// has been unqueued for execution, so HasTasks returns false while the
// final task of a batch is actually running.
func (s *Scheduler) HasTasks() bool {
	if s.dispatched.Len() > 0 {
		return true
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.posted.Len() > 0
}

func (s *Scheduler) unqueuePosted() list.List[*Task] {
	s.lock.Lock()
	defer s.lock.Unlock()
	var q list.List[*Task]
	q.PushBackList(&s.posted)
	return q
}

// Run executes queued tasks and waits for I/O readiness until Stop is
// called. Each iteration: gather the dispatched and posted queues,
// block on the monitor (if one exists) only when there was nothing ready
// to run already, fold in whatever the wait admitted, then run every
// task gathered this iteration — canceling (unlinking) each one
// immediately before invoking it, so a task that reposts itself from
// within its own body is scheduled for the next iteration, not this one.
//
// If this scheduler has never acquired a monitor and the task queues
// drain to empty, Run returns: there is nothing left that could ever
// wake it.
func (s *Scheduler) Run() {
	s.running.Store(true)
	for s.running.Load() {
		var q list.List[*Task]
		q.PushBackList(&s.dispatched)
		posted := s.unqueuePosted()
		q.PushBackList(&posted)

		if m := s.monitorRef.Value(); m != nil {
			if err := m.Wait(q.Len() == 0); err != nil {
				s.logger.Error().Err(err).Msg("spin: monitor wait failed")
			}
			q.PushBackList(&s.dispatched)
		} else if q.Len() == 0 {
			return
		}

		for n := q.Front(); n != nil; {
			next := n.Next()
			t := n.Value
			n = next
			t.Cancel()
			t.run()
		}
	}
}

// Stop requests that Run return once it finishes its current iteration.
// Does not itself interrupt a blocked Run — pair with Interrupt if Run
// might currently be blocked with no other pending wakeup.
func (s *Scheduler) Stop() {
	s.running.Store(false)
}
