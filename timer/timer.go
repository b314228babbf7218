package timer

import (
	"sync/atomic"
	"time"

	"github.com/lanxc-go/spin"
	"github.com/lanxc-go/spin/rbtree"
)

// adjustTimePoint implements the original's missed-fire catch-up: given a
// deadline tp that has already passed (relative to base) and a periodic
// interval, it returns the next deadline strictly after base, plus the
// number of intervals that were skipped getting there.
//
// Grounded on original_source/src/timer.cpp's adjust_time_point:
//
//	if (tp >= base) return 0;
//	d = base - tp; ret = d / duration; tp += (ret + 1) * duration; return ret;
//
// One deliberate deviation: the original's guard is tp >= base (non-strict),
// which leaves tp unchanged — and therefore still <= base — in the exact
// tie case tp == base. Relay's caller only invokes this once a timer's
// deadline has already passed, so an unchanged tp == base would leave the
// timer permanently stuck at the front of the queue, firing forever in
// the same instant. This reproduces the documented semantics for every
// case except that exact tie, which it instead treats as "one interval
// has elapsed" to guarantee progress.
func adjustTimePoint(tp, base time.Time, interval time.Duration) (time.Time, uint64) {
	if interval <= 0 {
		return tp, 0
	}
	if tp.After(base) {
		return tp, 0
	}
	d := base.Sub(tp)
	k := int64(d / interval)
	next := tp.Add(time.Duration(k+1) * interval)
	return next, uint64(k)
}

// Timer calls a procedure once at a deadline, or repeatedly on an
// interval, on its Scheduler's own goroutine. Grounded on
// original_source/src/timer.cpp's timer<Clock>.
type Timer struct {
	node     rbtree.Node[time.Time, *Timer]
	service  *Service
	interval time.Duration
	task     *spin.Task
	missed   atomic.Uint64
}

// New creates a Timer on s that calls fn at deadline, and again every
// interval thereafter if interval is nonzero. A zero deadline together
// with a zero interval creates a Timer that is not started; call Reset to
// arm it later.
func New(s *spin.Scheduler, fn func(), deadline time.Time, interval time.Duration) (*Timer, error) {
	svc, err := For(s)
	if err != nil {
		return nil, err
	}
	t := &Timer{service: svc, interval: interval}
	t.node.Value = t
	t.task = spin.NewTask(func() {
		if fn != nil {
			fn()
		}
	})
	if !(deadline.IsZero() && interval == 0) {
		svc.enqueue(t, deadline)
	}
	return t, nil
}

// After creates a one-shot Timer on s that calls fn once d has elapsed.
func After(s *spin.Scheduler, fn func(), d time.Duration) (*Timer, error) {
	return New(s, fn, time.Now().Add(d), 0)
}

// Every creates a periodic Timer on s that calls fn once interval has
// elapsed, and again every interval thereafter.
func Every(s *spin.Scheduler, fn func(), interval time.Duration) (*Timer, error) {
	return New(s, fn, time.Now().Add(interval), interval)
}

// Deadline reports the time t is next due to fire. Meaningless if Active
// is false.
func (t *Timer) Deadline() time.Time { return t.node.Key() }

// Interval reports t's current repeat interval, zero for a one-shot timer.
func (t *Timer) Interval() time.Duration { return t.interval }

// Missed reports how many firings have been skipped, due to catch-up
// adjustment, since t was last armed via New or Reset.
func (t *Timer) Missed() uint64 { return t.missed.Load() }

// Active reports whether t is currently enqueued to fire.
func (t *Timer) Active() bool { return t.node.IsLinked() }

// Reset rearms t for deadline and interval, returning what t's previous
// deadline, interval and missed count were immediately before this call;
// the previous deadline is zero if t was not active. A zero deadline
// together with a zero interval stops t instead of rearming it —
// equivalent to calling Stop.
//
// Grounded on original_source/src/timer.cpp's timer<Clock>::reset, which
// returns the same tuple of prior state for the same reason: a caller
// rearming a timer from within its own fired callback needs to know how
// many firings it missed without a second round trip.
func (t *Timer) Reset(deadline time.Time, interval time.Duration) (prevDeadline time.Time, prevInterval time.Duration, prevMissed uint64) {
	prevMissed = t.missed.Swap(0)
	prevInterval = t.interval

	if t.node.IsLinked() {
		prevDeadline = t.node.Key()
		t.service.queue.Remove(&t.node)
	}
	t.interval = interval

	if deadline.IsZero() && interval == 0 {
		t.service.rearm()
		return
	}

	adjusted, missed := adjustTimePoint(deadline, time.Now(), interval)
	if missed > 0 {
		t.missed.Store(missed)
	}
	t.service.queue.Insert(&t.node, adjusted, rbtree.PolicyBackmost)
	t.service.rearm()
	return
}

// Stop disarms t, returning what its deadline, interval and missed count
// were immediately before stopping. A no-op, returning zero values, if t
// was already inactive.
func (t *Timer) Stop() (time.Time, time.Duration, uint64) {
	return t.Reset(time.Time{}, 0)
}

// relay is called by Service.onEmit for a timer whose deadline has
// passed: a one-shot timer is simply unlinked, a periodic one is
// re-enqueued at its next deadline (applying missed-fire catch-up).
func (t *Timer) relay(now time.Time) {
	if t.interval <= 0 {
		t.service.queue.Remove(&t.node)
		return
	}
	next := t.node.Key()
	adjusted, missed := adjustTimePoint(next, now, t.interval)
	if missed > 0 {
		t.missed.Add(missed)
	}
	t.service.queue.UpdateKey(&t.node, adjusted, rbtree.PolicyBackmost)
}
