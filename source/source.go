// Package source adapts a single file descriptor's readiness
// notifications into method calls on a handler, on top of package
// monitor's epoll wrapper.
//
// Grounded on original_source/src/event_source.cpp: event_source is the
// read-only case (on_emit/on_error), io_event_source is the duplex case
// parameterized by a mode tag (readonly_t/writeonly_t/readwrite_t)
// selecting which epoll bits to watch. Go has no overload-by-tag-type, so
// the three constructors become one constructor taking a [Mode] value.
package source

import (
	"github.com/lanxc-go/spin/handle"
	"github.com/lanxc-go/spin/monitor"
)

// Mode selects which directions of readiness an IOSource watches.
type Mode int

const (
	ReadOnly Mode = iota
	WriteOnly
	ReadWrite
)

func (m Mode) epollEvents() uint32 {
	switch m {
	case WriteOnly:
		return monitor.EventWritable
	case ReadWrite:
		return monitor.EventReadable | monitor.EventWritable
	default:
		return monitor.EventReadable
	}
}

// EmitHandler receives notifications for a read-only [Source].
type EmitHandler interface {
	// OnEmit is called when the source's descriptor becomes readable.
	OnEmit()
	// OnError is called on EPOLLERR or EPOLLHUP.
	OnError()
}

// Source watches a single descriptor for readability, dispatching to an
// EmitHandler. It owns the handle it's given: Close closes the
// descriptor.
type Source struct {
	h       *handle.Handle
	mon     *monitor.Monitor
	handler EmitHandler
}

// New registers h with mon and begins dispatching readiness to handler.
func New(mon *monitor.Monitor, h *handle.Handle, handler EmitHandler) (*Source, error) {
	s := &Source{h: h, mon: mon, handler: handler}
	fd, ok := h.FD()
	if !ok {
		return nil, monitor.ErrClosed
	}
	if err := mon.Add(fd, monitor.EventReadable, s.dispatch); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Source) dispatch(events uint32) {
	if events&(monitor.EventError|monitor.EventHangup) != 0 {
		s.handler.OnError()
	}
	if events&monitor.EventReadable != 0 {
		s.handler.OnEmit()
	}
}

// Close unregisters the source from its monitor and closes its
// descriptor.
func (s *Source) Close() error {
	if fd, ok := s.h.FD(); ok {
		_ = s.mon.Remove(fd)
	}
	return s.h.Close()
}

// IOHandler receives notifications for a duplex [IOSource].
type IOHandler interface {
	OnReadable()
	OnWritable()
	OnError()
}

// IOSource watches a single descriptor for readability and/or
// writability per its Mode, dispatching to an IOHandler.
type IOSource struct {
	h       *handle.Handle
	mon     *monitor.Monitor
	mode    Mode
	handler IOHandler
}

// NewIO registers h with mon under mode and begins dispatching readiness
// to handler.
func NewIO(mon *monitor.Monitor, h *handle.Handle, mode Mode, handler IOHandler) (*IOSource, error) {
	s := &IOSource{h: h, mon: mon, mode: mode, handler: handler}
	fd, ok := h.FD()
	if !ok {
		return nil, monitor.ErrClosed
	}
	if err := mon.Add(fd, mode.epollEvents(), s.dispatch); err != nil {
		return nil, err
	}
	return s, nil
}

// SetMode changes which directions of readiness are watched.
func (s *IOSource) SetMode(mode Mode) error {
	fd, ok := s.h.FD()
	if !ok {
		return monitor.ErrClosed
	}
	if err := s.mon.Modify(fd, mode.epollEvents()); err != nil {
		return err
	}
	s.mode = mode
	return nil
}

// Mode returns the currently configured watch mode.
func (s *IOSource) Mode() Mode { return s.mode }

func (s *IOSource) dispatch(events uint32) {
	if events&(monitor.EventError|monitor.EventHangup) != 0 {
		s.handler.OnError()
	}
	if events&monitor.EventReadable != 0 {
		s.handler.OnReadable()
	}
	if events&monitor.EventWritable != 0 {
		s.handler.OnWritable()
	}
}

// Close unregisters the source from its monitor and closes its
// descriptor.
func (s *IOSource) Close() error {
	if fd, ok := s.h.FD(); ok {
		_ = s.mon.Remove(fd)
	}
	return s.h.Close()
}
