// Package handle provides exclusive ownership of a POSIX file descriptor.
//
// A [Handle] closes its descriptor at most once, via an explicit Close;
// Release instead hands the descriptor back to the caller without closing
// it — modeled on the original C++ runtime's
// move-only RAII handle (spin::handle), adapted to Go: there is no move
// constructor, so ownership transfer is explicit (Release) instead of
// implicit, and double-close safety is enforced with an atomic swap
// rather than relying on a single owning stack frame.
package handle

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// invalid is the sentinel stored once a Handle no longer owns a
// descriptor. -1 rather than the original's "fd > 0" convention: fd 0
// (stdin) is a legitimate descriptor to own, and treating it as already
// closed is a quirk of the original we don't carry forward.
const invalid = -1

// Handle owns a single file descriptor and closes it exactly once.
// The zero Handle is not valid; use New.
type Handle struct {
	fd atomic.Int32
}

// New takes ownership of fd.
func New(fd int) *Handle {
	h := &Handle{}
	h.fd.Store(int32(fd))
	return h
}

// NewFromFactory calls factory to obtain a descriptor, taking ownership of
// it on success. Construction fails if factory itself errors, or if it
// returns a negative descriptor — the original's "factory returning -1
// fails construction with the last system error" convention, surfaced
// here as a returned error rather than a thread-local errno read, since
// Go has no overload-by-argument-type to give this a second New.
func NewFromFactory(factory func() (int, error)) (*Handle, error) {
	fd, err := factory()
	if err != nil {
		return nil, err
	}
	if fd < 0 {
		return nil, fmt.Errorf("handle: factory returned invalid descriptor %d", fd)
	}
	return New(fd), nil
}

// FD returns the owned descriptor and whether it is still valid. Once
// Close or Release has been called, ok is false and fd is meaningless.
func (h *Handle) FD() (fd int, ok bool) {
	v := h.fd.Load()
	return int(v), v != invalid
}

// Valid reports whether h still owns an open descriptor.
func (h *Handle) Valid() bool {
	return h.fd.Load() != invalid
}

// Close closes the owned descriptor, if any. Safe to call more than
// once and from more than one goroutine; only the call that actually
// owned the descriptor performs the close and returns its result.
func (h *Handle) Close() error {
	fd := h.fd.Swap(invalid)
	if fd == invalid {
		return nil
	}
	return unix.Close(int(fd))
}

// Release relinquishes ownership of the descriptor without closing it,
// returning it to the caller (or -1 if h no longer owns one). Used when
// transferring a descriptor into another owner — e.g. handing a raw fd
// to the kernel's epoll instance, which tracks it independently.
func (h *Handle) Release() int {
	return int(h.fd.Swap(invalid))
}
