package spin

import "github.com/lanxc-go/spin/list"

// Task is a cancelable unit of work, queued on a Scheduler via its
// intrusive list.Node. Grounded on original_source/src/spin/task.hpp:
// task inherits intruse::list_node<task> directly, cancellation is
// unlinking, and a task with no procedure set is a documented no-op
// rather than an error.
type Task struct {
	link list.Node[*Task]
	fn   func()
}

// NewTask creates a Task that calls fn when run. fn may be nil, in which
// case running the task is a no-op (mirroring the original's noop
// default procedure).
func NewTask(fn func()) *Task {
	t := &Task{fn: fn}
	t.link.Value = t
	return t
}

// SetFunc replaces the task's procedure, returning the previous one (nil
// if none). Safe to call whether or not the task is currently queued.
func (t *Task) SetFunc(fn func()) (previous func()) {
	previous, t.fn = t.fn, fn
	return previous
}

// IsCanceled reports whether t is not currently linked to any Scheduler
// queue — true both before it is ever dispatched/posted and after it has
// been explicitly canceled or already run.
func (t *Task) IsCanceled() bool {
	return !t.link.IsLinked()
}

// Cancel unlinks t from whatever queue it is in, preventing it from
// running. Returns whether t was actually linked (and thus canceled).
// Safe to call even while the scheduler that queued t is running.
func (t *Task) Cancel() bool {
	l := t.link.List()
	if l == nil {
		return false
	}
	return l.Remove(&t.link)
}

func (t *Task) run() {
	if t.fn != nil {
		t.fn()
	}
}
