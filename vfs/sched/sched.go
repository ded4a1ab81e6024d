// Package sched defines the narrow external contracts this VFS core
// consumes from the process/thread scheduler (spec §1: "the process/thread
// scheduler and its waiter-queue mechanics are out of scope; only the
// wait(waiter) and schedule() contracts are used").
package sched

import "sync/atomic"

// TaskID names the requesting task (thread) that suspends on a Waiter.
type TaskID uint64

// Task is the minimal view of a requesting task the VFS core needs: an
// identity, a process id (for descriptor-table/pipe-store lookups), and a
// cancellation flag the owning scheduler flips to unblock a waiter (spec
// §5 "Cancellation": "a waiter exposes a break condition pointer").
type Task struct {
	ID        TaskID
	ProcessID uint64

	broken int32
}

// NewTask creates a task bound to a process id.
func NewTask(id TaskID, pid uint64) *Task {
	return &Task{ID: id, ProcessID: pid}
}

// Break flips this task's break condition, releasing any waiter polling it.
func (t *Task) Break() {
	atomic.StoreInt32(&t.broken, 1)
}

// Broken reports whether the task's break condition has been flipped.
func (t *Task) Broken() bool {
	return atomic.LoadInt32(&t.broken) != 0
}

// Waiter is implemented by vfs/handler.Waiter. The scheduler polls it on
// every resume attempt for the suspended task; Poll returns true while the
// task should remain suspended and false once it may be woken.
type Waiter interface {
	// Poll advances the waiter by one step and reports whether the task
	// should keep waiting.
	Poll(task *Task) bool

	// Cancel is invoked by the scheduler when the task's break condition
	// fires before Poll ever observed a terminal status. Implementations
	// must still run their handler's finish step with whatever status was
	// last observed (spec §5).
	Cancel(task *Task)
}

// Scheduler is the collaborator contract this core relies on: suspend a
// task on a waiter, and give the scheduler an opportunity to make progress.
// spec.md deliberately leaves the scheduler's own queueing and preemption
// out of scope; Loop (loop.go) is a minimal in-process implementation used
// by this repository's own tests and cmd/vfsdemo.
type Scheduler interface {
	Wait(task *Task, w Waiter)
	Schedule()
}
