//go:build linux

package monitor

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/lanxc-go/spin/handle"
)

// Monitor owns one epoll instance and dispatches its readiness events to
// per-descriptor callbacks. The zero Monitor is not valid; use New.
type Monitor struct {
	epoll   *handle.Handle
	wake    *wakeup
	mu      sync.RWMutex
	sources map[int32]Callback
	closed  atomic.Bool
}

// New creates a Monitor with a fresh epoll instance and interrupter.
func New() (*Monitor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	m := &Monitor{
		epoll:   handle.New(epfd),
		sources: make(map[int32]Callback),
	}

	wake, err := newWakeup(m)
	if err != nil {
		m.epoll.Close()
		return nil, err
	}
	m.wake = wake
	// A Monitor dropped without an explicit Close still releases both
	// descriptors once the garbage collector reclaims it.
	runtime.AddCleanup(m, func(h *handle.Handle) { h.Close() }, m.epoll)
	runtime.AddCleanup(m, func(w *wakeup) { w.close() }, wake)
	return m, nil
}

// Add registers fd for the given epoll event mask, invoking cb on every
// readiness notification until Remove or Close.
func (m *Monitor) Add(fd int, events uint32, cb Callback) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.mu.Lock()
	if _, exists := m.sources[int32(fd)]; exists {
		m.mu.Unlock()
		return ErrAlreadyRegistered
	}
	m.sources[int32(fd)] = cb
	m.mu.Unlock()

	ev := &unix.EpollEvent{Events: events | unix.EPOLLET, Fd: int32(fd)}
	if err := unix.EpollCtl(m.epollFD(), unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		m.mu.Lock()
		delete(m.sources, int32(fd))
		m.mu.Unlock()
		return err
	}
	return nil
}

// Modify changes the epoll event mask for an already-registered fd.
func (m *Monitor) Modify(fd int, events uint32) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.mu.RLock()
	_, exists := m.sources[int32(fd)]
	m.mu.RUnlock()
	if !exists {
		return ErrNotRegistered
	}
	ev := &unix.EpollEvent{Events: events | unix.EPOLLET, Fd: int32(fd)}
	return unix.EpollCtl(m.epollFD(), unix.EPOLL_CTL_MOD, fd, ev)
}

// Remove stops monitoring fd. It does not close fd; ownership of the
// descriptor belongs to the caller (typically a handle.Handle).
func (m *Monitor) Remove(fd int) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.mu.Lock()
	if _, exists := m.sources[int32(fd)]; !exists {
		m.mu.Unlock()
		return ErrNotRegistered
	}
	delete(m.sources, int32(fd))
	m.mu.Unlock()
	return unix.EpollCtl(m.epollFD(), unix.EPOLL_CTL_DEL, fd, nil)
}

// Interrupt wakes a blocked Wait from any goroutine or OS thread. Safe to
// call concurrently with Wait and with itself.
func (m *Monitor) Interrupt() error {
	return m.wake.raise()
}

// Wait blocks for at least one readiness event (or, if allowBlocking is
// false, polls without blocking) and dispatches every ready descriptor's
// callback before returning. An EINTR from the underlying epoll_wait is
// retried transparently; any other error is returned to the caller.
func (m *Monitor) Wait(allowBlocking bool) error {
	if m.closed.Load() {
		return ErrClosed
	}
	timeout := 0
	if allowBlocking {
		timeout = -1
	}

	var buf [128]unix.EpollEvent
	n, err := unix.EpollWait(m.epollFD(), buf[:], timeout)
	for err == unix.EINTR {
		n, err = unix.EpollWait(m.epollFD(), buf[:], timeout)
	}
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		fd := buf[i].Fd
		if fd == m.wake.fd() {
			// The distinguished self-pointer case: readiness on our
			// own interrupter, not a registered source. Drain it and
			// move on without looking it up in sources.
			m.wake.drain()
			continue
		}
		m.mu.RLock()
		cb := m.sources[fd]
		m.mu.RUnlock()
		if cb != nil {
			cb(buf[i].Events)
		}
	}
	return nil
}

// Close closes the epoll instance and the interrupter. Further calls to
// Wait/Add/Modify/Remove/Interrupt return ErrClosed (Interrupt may still
// briefly race a concurrent Close without returning an error, matching
// the original runtime's fire-and-forget interrupt semantics).
func (m *Monitor) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	werr := m.wake.close()
	eerr := m.epoll.Close()
	if eerr != nil {
		return eerr
	}
	return werr
}

func (m *Monitor) epollFD() int {
	fd, _ := m.epoll.FD()
	return fd
}
