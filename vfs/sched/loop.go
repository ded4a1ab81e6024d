package sched

import (
	"sync"
	"time"
)

// Loop is a minimal in-process cooperative scheduler implementing
// Scheduler. The real scheduler (spec §1, out of scope) would run a full
// preemptive multitasking loop; Loop only reproduces the one contract this
// core depends on: repeatedly polling every suspended task's Waiter until
// it reports completion or the task's break condition fires. It is used by
// this repository's own tests and by cmd/vfsdemo.
//
// The goroutine-plus-ticker shape mirrors the teacher's request-loop
// pattern in fuse/server.go, where a background goroutine drains pending
// work and callers block on a channel for their own request to complete.
type Loop struct {
	mu      sync.Mutex
	pending []*pendingWait
	tick    chan struct{}
	closing chan struct{}
	loops   sync.WaitGroup

	// Interval bounds how long a suspended task can wait between polls
	// when nothing explicitly calls Schedule. Defaults to 1ms.
	Interval time.Duration
}

type pendingWait struct {
	task *Task
	w    Waiter
	done chan struct{}
}

// NewLoop starts a cooperative scheduler loop.
func NewLoop() *Loop {
	l := &Loop{
		tick:     make(chan struct{}, 1),
		closing:  make(chan struct{}),
		Interval: time.Millisecond,
	}
	l.loops.Add(1)
	go l.run()
	return l
}

// Wait suspends the calling goroutine (standing in for the requesting
// task) until w reports it is done, or the task's break condition fires.
func (l *Loop) Wait(task *Task, w Waiter) {
	p := &pendingWait{task: task, w: w, done: make(chan struct{})}
	l.mu.Lock()
	l.pending = append(l.pending, p)
	l.mu.Unlock()
	l.Schedule()
	<-p.done
}

// Schedule nudges the loop to run a poll pass as soon as possible.
func (l *Loop) Schedule() {
	select {
	case l.tick <- struct{}{}:
	default:
	}
}

// Close stops the background loop. Any task still suspended when Close is
// called will never be woken; callers should only Close after every Wait
// has returned.
func (l *Loop) Close() {
	close(l.closing)
	l.loops.Wait()
}

func (l *Loop) run() {
	defer l.loops.Done()
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.closing:
			return
		case <-l.tick:
			l.drivePass()
		case <-ticker.C:
			l.drivePass()
		}
	}
}

func (l *Loop) drivePass() {
	l.mu.Lock()
	items := l.pending
	l.pending = nil
	l.mu.Unlock()

	var still []*pendingWait
	for _, p := range items {
		if p.task.Broken() {
			p.w.Cancel(p.task)
			close(p.done)
			continue
		}
		if p.w.Poll(p.task) {
			still = append(still, p)
		} else {
			close(p.done)
		}
	}

	if len(still) > 0 {
		l.mu.Lock()
		l.pending = append(l.pending, still...)
		l.mu.Unlock()
		l.Schedule()
	}
}
