// Package handler implements the generic transaction-handler state machine
// described in spec §4.4 and §9: a handler starts a delegate operation,
// then either finishes synchronously or is driven to completion by a
// Waiter polled through sched.Scheduler.
//
// This collapses the original's three finish outcomes
// (done / repeat-with-same-handler / continue-with-new-handler) into a
// single Outcome sum type carrying the next Handler to run, per spec §9's
// own note that a Go port should "prefer a sum type over handler shapes and
// a single step function".
package handler

import (
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// StartStatus reports what happened when a Handler kicked off its delegate
// request.
type StartStatus int

const (
	// StartFailed means the delegate request could not even be issued
	// (e.g. the target node has no delegate attached).
	StartFailed StartStatus = iota
	// StartImmediateFinish means no transaction was needed — the handler
	// already has its answer and Finish can run synchronously.
	StartImmediateFinish
	// StartWithWaiter means a transaction was issued and the caller must
	// suspend on a Waiter until it completes.
	StartWithWaiter
)

// StartResult is what Handler.Start reports.
type StartResult struct {
	Status      StartStatus
	Transaction txn.ID // valid only when Status == StartWithWaiter
}

// Outcome is what a Handler's Finish step decides happens next.
type Outcome int

const (
	// Done means the whole operation is complete; nothing more to drive.
	Done Outcome = iota
	// Continue means another handler (possibly the same instance, for
	// "repeat") must be started and driven before the operation is done.
	Continue
)

// FinishResult is what Handler.Finish reports.
type FinishResult struct {
	Outcome Outcome
	Next    Handler // valid only when Outcome == Continue
}

// Handler drives one logical filesystem operation (discovery, open, read,
// ...) across however many delegate transactions it takes. A concrete
// handler owns whatever state it needs (target node, buffer, requested
// length, ...) and is responsible for writing its result somewhere the
// caller can observe once Drive returns.
type Handler interface {
	// Start issues (or re-issues, if WantsRepeat) the delegate request
	// this handler represents.
	Start(task *sched.Task) StartResult

	// Finish runs once the handler's transaction has reached txn.Finished
	// (or, via Cancel, once the owning task was broken out from under it).
	// id is the transaction that just finished (zero if Start reported
	// StartImmediateFinish without ever issuing one). It must leave the
	// handler able to report its result afterward.
	Finish(task *sched.Task, id txn.ID) FinishResult

	// PrepareRepeat is called when the delegate reports txn.Repeat for
	// the handler's in-flight transaction; the handler should remember
	// that its next Start call is a repeat of the same request (spec
	// §4.4's "transaction id reuse on repeat").
	PrepareRepeat(id txn.ID)

	// WantsRepeat reports whether the handler's next Start is a repeat.
	WantsRepeat() bool
}

// Waiter drives one Handler to completion by polling a transaction store,
// implementing sched.Waiter. It is the Go equivalent of
// waiter_fs_transaction's is_transaction_waiting switch.
type Waiter struct {
	store   *txn.Store
	handler Handler
	id      txn.ID
}

// NewWaiter wraps a handler and the transaction id its Start call
// produced.
func NewWaiter(store *txn.Store, h Handler, id txn.ID) *Waiter {
	return &Waiter{store: store, handler: h, id: id}
}

// Poll advances the waiter by one step. It returns true while the task
// should remain suspended.
func (w *Waiter) Poll(task *sched.Task) bool {
	switch w.store.GetStatus(w.id) {
	case txn.Waiting:
		return true

	case txn.Repeat:
		w.handler.PrepareRepeat(w.id)
		restart := w.handler.Start(task)
		if restart.Status == StartFailed {
			// Could not repeat; force one more poll pass that will see
			// Finished and run Finish with whatever partial state the
			// handler already holds.
			w.store.SetStatus(w.id, txn.Finished)
		}
		return true

	case txn.Finished:
		result := w.handler.Finish(task, w.id)
		w.store.Remove(w.id)

		if result.Outcome == Done {
			return false
		}

		w.handler = result.Next
		start := w.handler.Start(task)
		switch start.Status {
		case StartFailed:
			return false
		case StartImmediateFinish:
			// Drive the synchronous tail inline rather than bouncing
			// through the scheduler again.
			return w.finishImmediateChain(task)
		default:
			w.id = start.Transaction
			return true
		}

	default:
		return false
	}
}

// finishImmediateChain runs Finish/Start pairs synchronously for as long
// as a chained handler resolves without needing a new transaction,
// mirroring discover_absolute_path's direct-call fast path.
func (w *Waiter) finishImmediateChain(task *sched.Task) bool {
	for {
		result := w.handler.Finish(task, 0)
		if result.Outcome == Done {
			return false
		}
		w.handler = result.Next
		start := w.handler.Start(task)
		switch start.Status {
		case StartFailed:
			return false
		case StartImmediateFinish:
			continue
		default:
			w.id = start.Transaction
			return true
		}
	}
}

// Cancel is invoked by the scheduler when the owning task's break
// condition fires before the transaction reached Finished. The handler
// still runs its finish step once, same as the original delegate always
// finishing whatever handler it holds before freeing the waiter.
func (w *Waiter) Cancel(task *sched.Task) {
	w.handler.Finish(task, w.id)
	w.store.Remove(w.id)
}

// Drive starts a handler and, if needed, suspends task on sch until the
// whole (possibly chained) operation completes. It is the single entry
// point callers use instead of manually juggling Start/Waiter/Finish.
func Drive(task *sched.Task, sch sched.Scheduler, store *txn.Store, h Handler) {
	for {
		start := h.Start(task)
		switch start.Status {
		case StartFailed:
			return
		case StartImmediateFinish:
			result := h.Finish(task, 0)
			if result.Outcome == Done {
				return
			}
			h = result.Next
			continue
		case StartWithWaiter:
			w := NewWaiter(store, h, start.Transaction)
			sch.Wait(task, w)
			return
		}
	}
}
