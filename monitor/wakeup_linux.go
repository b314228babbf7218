//go:build linux

package monitor

import (
	"golang.org/x/sys/unix"

	"github.com/lanxc-go/spin/handle"
)

// wakeup is an eventfd-based interrupter: writing to it from any thread
// makes a concurrent epoll_wait on the owning Monitor return immediately.
// Grounded on eventloop/wakeup_linux.go's createWakeFd/drainWakeUpPipe,
// simplified to eventfd-only (the teacher also supports a pipe fallback
// for platforms without eventfd; this module is Linux-only per spec).
type wakeup struct {
	h *handle.Handle
}

func newWakeup(m *Monitor) (*wakeup, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	w := &wakeup{h: handle.New(fd)}

	ev := &unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(fd)}
	if err := unix.EpollCtl(m.epollFD(), unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		w.h.Close()
		return nil, err
	}
	return w, nil
}

func (w *wakeup) fd() int32 {
	fd, _ := w.h.FD()
	return int32(fd)
}

// raise increments the eventfd counter by one, which is sufficient to
// make EPOLLIN level for the next epoll_wait regardless of how many
// raises coalesce before the monitor drains it.
func (w *wakeup) raise() error {
	var buf [8]byte
	buf[0] = 1
	fd, ok := w.h.FD()
	if !ok {
		return ErrClosed
	}
	_, err := unix.Write(fd, buf[:])
	return err
}

// drain resets the eventfd counter to zero so edge-triggered epoll
// doesn't keep reporting the same wakeup.
func (w *wakeup) drain() {
	fd, ok := w.h.FD()
	if !ok {
		return
	}
	var buf [8]byte
	for {
		_, err := unix.Read(fd, buf[:])
		if err != nil {
			return
		}
	}
}

func (w *wakeup) close() error {
	return w.h.Close()
}
