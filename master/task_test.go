package master

import (
	"testing"
	"time"
)

func TestScheduler_ReturnsHighestPriorityReadyTask(t *testing.T) {
	s := newScheduler()
	low := &task{kind: "periodic-poll", pr: priorityPeriodicPoll}
	high := &task{kind: "clear-restart-iin", pr: priorityClearRestartIIN}
	mid := &task{kind: "integrity-poll", pr: priorityIntegrityPoll}

	s.push(low)
	s.push(mid)
	s.push(high)

	got := s.next(time.Now())
	if got != high {
		t.Fatalf("expected the clear-restart-IIN task to run first, got %q", got.kind)
	}
	got = s.next(time.Now())
	if got != mid {
		t.Fatalf("expected the integrity-poll task next, got %q", got.kind)
	}
	got = s.next(time.Now())
	if got != low {
		t.Fatalf("expected the periodic-poll task last, got %q", got.kind)
	}
	if s.next(time.Now()) != nil {
		t.Fatal("expected an empty scheduler to return nil")
	}
}

func TestScheduler_FifoWithinAPriorityLevel(t *testing.T) {
	s := newScheduler()
	first := &task{kind: "first", pr: priorityUserRequest}
	second := &task{kind: "second", pr: priorityUserRequest}
	s.push(first)
	s.push(second)

	if got := s.next(time.Now()); got != first {
		t.Fatalf("expected FIFO order within a priority level, got %q", got.kind)
	}
	if got := s.next(time.Now()); got != second {
		t.Fatalf("expected FIFO order within a priority level, got %q", got.kind)
	}
}

func TestScheduler_SkipsTaskNotYetDueForRetry(t *testing.T) {
	s := newScheduler()
	due := time.Now()
	notReady := &task{kind: "backoff-wait", pr: priorityTimeSync, nextRunAt: due.Add(time.Hour)}
	ready := &task{kind: "periodic-poll", pr: priorityPeriodicPoll}
	s.push(notReady)
	s.push(ready)

	got := s.next(due)
	if got != ready {
		t.Fatalf("expected the ready lower-priority task to run ahead of a not-yet-due higher-priority one, got %q", got.kind)
	}
	if s.next(due) != nil {
		t.Fatal("the not-yet-due task must not be returned before its nextRunAt")
	}
}
