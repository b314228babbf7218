// Package timer provides deadline and periodic timers on top of a
// spin.Scheduler, backed by a monotonic timerfd and an intrusive
// red-black tree ordering pending deadlines.
//
// Grounded on original_source/src/timer.cpp (timer<Clock>/timer_service<
// Clock>: the adjust_time_point missed-fire catch-up algorithm, the
// enqueue/on_emit dispatch loop) and src/spin/timer.hpp's process-wide
// instance_table + get_instance(event_loop&) — reproduced here as a
// package-level registry keyed by *spin.Scheduler, since Go has no
// member-function-on-foreign-type equivalent to hang get_instance off of
// spin.Scheduler itself.
package timer

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/lanxc-go/spin"
	"github.com/lanxc-go/spin/handle"
	"github.com/lanxc-go/spin/monitor"
	"github.com/lanxc-go/spin/rbtree"
)

var (
	registryMu sync.Mutex
	registry   = map[*spin.Scheduler]*Service{}
)

// Service is the per-Scheduler timer backend: one timerfd, one entry in
// its Scheduler's monitor, and a deadline-ordered multiset of pending
// Timers. Unlike the original's shared_ptr-refcounted lifetime (a
// timer_service is destroyed once its last timer stops and releases its
// reference), a Go Service persists for as long as its Scheduler does,
// once created — Go has no deterministic refcounting to hang an
// equivalent teardown off of, and recreating the timerfd/epoll
// registration on every stop-then-restart would need to be fallible in a
// place (Timer.Reset) whose original signature has no error return. Idle
// vs. active is simply svc.queue.Len() == 0; explicit Close() is the only
// way to tear a Service down early (e.g. as part of scheduler shutdown).
type Service struct {
	scheduler *spin.Scheduler
	handle    *handle.Handle
	mon       *monitor.Monitor
	queue     *rbtree.Tree[time.Time, *Timer]
}

// For returns the Service for s, creating it (and registering a fresh
// timerfd with s's monitor) on first use.
func For(s *spin.Scheduler) (*Service, error) {
	registryMu.Lock()
	if svc, ok := registry[s]; ok {
		registryMu.Unlock()
		return svc, nil
	}
	registryMu.Unlock()

	mon, err := s.Monitor()
	if err != nil {
		return nil, err
	}

	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	h := handle.New(fd)

	svc := &Service{
		scheduler: s,
		handle:    h,
		mon:       mon,
		queue:     rbtree.New[time.Time, *Timer](func(a, b time.Time) bool { return a.Before(b) }),
	}

	registryMu.Lock()
	if existing, ok := registry[s]; ok {
		registryMu.Unlock()
		h.Close()
		return existing, nil
	}
	registry[s] = svc
	registryMu.Unlock()

	if err := mon.Add(fd, monitor.EventReadable, svc.onEmit); err != nil {
		registryMu.Lock()
		delete(registry, s)
		registryMu.Unlock()
		h.Close()
		return nil, err
	}
	return svc, nil
}

// Close tears down svc: unregisters its timerfd from the monitor, closes
// it, and removes svc from the registry. Any Timer still referencing svc
// becomes inert (its deadline will never fire). Typically only called
// during scheduler shutdown, not from ordinary timer lifecycle code.
func (svc *Service) Close() error {
	registryMu.Lock()
	if registry[svc.scheduler] == svc {
		delete(registry, svc.scheduler)
	}
	registryMu.Unlock()

	if fd, ok := svc.handle.FD(); ok {
		_ = svc.mon.Remove(fd)
	}
	return svc.handle.Close()
}

// Len reports how many timers svc currently has pending.
func (svc *Service) Len() int { return svc.queue.Len() }

func (svc *Service) fd() int {
	fd, _ := svc.handle.FD()
	return fd
}

// arm sets the timerfd to fire (in relative time, re-derived from
// time.Now() on every call) at deadline. The original arms in absolute
// CLOCK_MONOTONIC ticks (TFD_TIMER_ABSTIME); Go's time.Time has no cheap,
// portable way to extract a raw CLOCK_MONOTONIC count to feed that ABI
// without unsafe tricks, so this arms relatively instead — behaviorally
// equivalent (the timer still fires at the right instant) at the cost of
// one extra time.Now() read per (re)arm.
//
// A relative it_value of {0,0} disarms a Linux timerfd rather than firing
// it immediately, so a deadline already at or before now is clamped up to
// one nanosecond instead of down to zero — a past-due deadline must still
// fire promptly (spec: a timer already due at construction fires exactly
// once on the first tick).
func (svc *Service) arm(deadline time.Time) error {
	d := deadline.Sub(time.Now())
	if d <= 0 {
		d = time.Nanosecond
	}
	spec := &unix.ItimerSpec{
		Interval: unix.NsecToTimespec(0),
		Value:    unix.NsecToTimespec(d.Nanoseconds()),
	}
	return unix.TimerfdSettime(svc.fd(), 0, spec, nil)
}

func (svc *Service) disarm() error {
	return unix.TimerfdSettime(svc.fd(), 0, &unix.ItimerSpec{}, nil)
}

// rearm sets the timerfd alarm to the current earliest pending deadline,
// or disarms it if svc has no pending timers.
func (svc *Service) rearm() {
	n := svc.queue.Min()
	if n == nil {
		_ = svc.disarm()
		return
	}
	_ = svc.arm(n.Key())
}

func (svc *Service) enqueue(t *Timer, deadline time.Time) {
	svc.queue.Insert(&t.node, deadline, rbtree.PolicyBackmost)
	svc.rearm()
}

// onEmit drains the timerfd and dispatches every timer whose deadline has
// passed, relaying periodic ones to their next deadline (with missed-fire
// catch-up) and dropping one-shot ones from the queue.
func (svc *Service) onEmit(events uint32) {
	var buf [8]byte
	unix.Read(svc.fd(), buf[:])

	now := time.Now()
	for {
		n := svc.queue.Min()
		if n == nil || n.Key().After(now) {
			break
		}
		t := n.Value
		svc.scheduler.Dispatch(t.task)
		t.relay(now)
	}
	svc.rearm()
}
