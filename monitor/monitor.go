// Package monitor wraps the kernel's edge-triggered readiness
// notification facility (epoll on Linux) behind a small, platform-neutral
// surface: register a descriptor and a callback, block until something is
// ready, dispatch. It is the single blocking point in an otherwise
// non-blocking, single-threaded reactor.
//
// Grounded on the teacher's eventloop/poller_linux.go (the epoll call
// shape: EpollCreate1/EpollCtl/EpollWait, EPOLLET) and wakeup_linux.go
// (eventfd-based cross-thread wakeup), adapted to the original runtime's
// event_monitor contract: a monitor owns exactly one epoll instance and
// one self-pipe-style interrupter, and recognizes readiness on the
// interrupter as distinct from readiness on any registered source. The
// original distinguishes the two by comparing epoll_event.data.ptr
// against its own interrupt callback's address; we distinguish them by fd
// identity instead (the interrupter's fd is never handed out to Add),
// which is the idiomatic Go analogue — Go has no stable address to stuff
// into a uint64 without unsafe.Pointer trickery the rest of this module
// doesn't otherwise need.
package monitor

import "errors"

// Callback receives the kernel readiness bitmask for one registered
// descriptor (EPOLLIN/EPOLLOUT/EPOLLERR/EPOLLHUP, exposed as the Event*
// constants below).
type Callback func(events uint32)

// Event bits, mirroring the subset of epoll flags callers need to test
// for in a Callback.
const (
	EventReadable = 0x001 // EPOLLIN
	EventWritable = 0x004 // EPOLLOUT
	EventError    = 0x008 // EPOLLERR
	EventHangup   = 0x010 // EPOLLHUP
)

var (
	// ErrClosed is returned by any operation on a Monitor that has
	// already been closed.
	ErrClosed = errors.New("monitor: closed")
	// ErrAlreadyRegistered is returned by Add for a descriptor already
	// tracked by this Monitor.
	ErrAlreadyRegistered = errors.New("monitor: fd already registered")
	// ErrNotRegistered is returned by Modify/Remove for a descriptor
	// this Monitor is not currently tracking.
	ErrNotRegistered = errors.New("monitor: fd not registered")
)
