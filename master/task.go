// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package master

import (
	"time"

	"github.com/marrasen/go-dnp3/objects"
)

// priority is the master's task scheduling rank; lower values run first.
type priority int

const (
	priorityClearRestartIIN priority = iota
	priorityDisableUnsolicited
	priorityIntegrityPoll
	priorityEnableUnsolicited
	priorityTimeSync
	priorityUserRequest
	priorityPeriodicPoll
)

// taskResult is what a finished task reports back through resultCh
// for tasks a caller is synchronously waiting on (user requests).
type taskResult struct {
	err error
}

// task is one unit of scheduled work: build the outbound request, consume
// each response fragment, and report completion. Read tasks set isRead so
// the session applies the multi-fragment assembly rules; non-read tasks
// expect exactly one response fragment.
type task struct {
	kind      string // label for logging only
	pr        priority
	isRead    bool
	retry     bool // automatic tasks retry with backoff; user requests do not
	attempts  int
	nextRunAt time.Time

	buildRequest func(seq objects.Sequence) []byte

	// onFragment is invoked once per response fragment for read tasks
	// (and exactly once for non-read tasks). Completion is decided by the
	// caller from FIR/FIN bits for reads, or after the first fragment for
	// non-reads; a non-nil return ends the task at once with that error.
	onFragment func(headers []objects.ObjectHeader, iin objects.Iin) error

	resultCh chan taskResult // non-nil only for tasks a caller awaits
}

// scheduler holds one FIFO queue per priority level and always returns
// the highest-priority ready task, running tasks of equal priority in
// the order they were enqueued.
type scheduler struct {
	queues [priorityPeriodicPoll + 1][]*task
}

func newScheduler() *scheduler {
	return &scheduler{}
}

func (s *scheduler) push(t *task) {
	s.queues[t.pr] = append(s.queues[t.pr], t)
}

// next pops the highest-priority task whose nextRunAt has arrived, or nil
// if nothing is ready yet.
func (s *scheduler) next(now time.Time) *task {
	for p := range s.queues {
		q := s.queues[p]
		for i, t := range q {
			if t.nextRunAt.After(now) {
				continue
			}
			s.queues[p] = append(q[:i:i], q[i+1:]...)
			return t
		}
	}
	return nil
}

// requeue puts an automatic task back after a backoff delay computed from
// its attempt count, doubling between the configured min and max delay;
// user requests are never requeued.
func (s *scheduler) requeue(t *task, cfg AssociationConfig, now time.Time) {
	if !t.retry {
		return
	}
	t.attempts++
	delay := cfg.MinRetryDelay << uint(t.attempts-1)
	if delay > cfg.MaxRetryDelay || delay <= 0 {
		delay = cfg.MaxRetryDelay
	}
	t.nextRunAt = now.Add(delay)
	s.push(t)
}

func (s *scheduler) empty() bool {
	for _, q := range s.queues {
		if len(q) > 0 {
			return false
		}
	}
	return true
}
