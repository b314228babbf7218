// Package spin is a single-threaded, event-driven POSIX I/O runtime: a
// task scheduler, an epoll-based readiness monitor, and a deadline-ordered
// timer service, built on the intrusive containers in rbtree and list.
//
// Grounded on original_source/src/scheduler.cpp (spin::scheduler, whose
// dispatch/post/run control flow this package's Scheduler reproduces) and
// the teacher's eventloop package for Go idiom: atomic state, functional
// options, wrapped errors, zerolog-based structured logging.
package spin

import "fmt"

// wrapf mirrors the teacher's errors.go WrapError helper: a thin %w
// wrapper, trimmed to this module's own error taxonomy (no ES2022
// TypeError/RangeError/AggregateError — those exist in the teacher to
// match JavaScript's error hierarchy for a goja VM integration this
// module has no equivalent of).
func wrapf(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
