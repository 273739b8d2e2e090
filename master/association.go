// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package master

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/marrasen/go-dnp3/logdec"
	"github.com/marrasen/go-dnp3/objects"
	"github.com/marrasen/go-dnp3/transport"
)

// Association is the per-remote-address session the master scheduler
// owns: it holds the task queue, sequence bookkeeping, and the most
// recent IIN, and drives exactly one remote outstation over a
// transport.Transport.
type Association struct {
	mu sync.Mutex

	cfg AssociationConfig
	rh  ReadHandler
	inf Information
	log logdec.Logger

	sched *scheduler

	sendSeq    objects.Sequence
	lastIin    objects.Iin
	startupDone bool

	// userRequests carries tasks submitted from outside the Run goroutine
	// (the public command/read API); Run drains it into sched each
	// iteration, keeping the scheduler itself single-threaded even though
	// the public API is called from arbitrary caller goroutines.
	userRequests chan *task
}

// NewAssociation constructs an Association bound to a read handler and
// an optional Information sink (nil becomes NopInformation).
func NewAssociation(cfg AssociationConfig, rh ReadHandler, inf Information, log logdec.Logger) *Association {
	if rh == nil {
		rh = NopReadHandler{}
	}
	if inf == nil {
		inf = NopInformation{}
	}
	queueSize := cfg.UserRequestQueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Association{
		cfg:          cfg,
		rh:           rh,
		inf:          inf,
		log:          log,
		sched:        newScheduler(),
		userRequests: make(chan *task, queueSize),
	}
}

// submitUserTask enqueues t for the Run loop to pick up and blocks until it
// completes, ctx is cancelled, or the user-request queue is full.
func (a *Association) submitUserTask(ctx context.Context, t *task) error {
	t.resultCh = make(chan taskResult, 1)
	select {
	case a.userRequests <- t:
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrTooManyRequests
	}
	select {
	case res := <-t.resultCh:
		return res.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Association) nextSeq() objects.Sequence {
	seq := a.sendSeq
	a.sendSeq = a.sendSeq.Next()
	return seq
}

// seedStartupTasks enqueues the priority 1-4 startup tasks: clear-
// restart-IIN is added reactively once a response sets
// IIN1.RESTART, so only disable-unsolicited, the startup integrity poll,
// and enable-unsolicited are seeded here.
func (a *Association) seedStartupTasks() {
	if a.cfg.DisableUnsolOnStartup {
		a.sched.push(a.newDisableUnsolicitedTask())
	}
	a.sched.push(a.newIntegrityPollTask())
	if a.cfg.EnableUnsolOnStartup && a.cfg.UnsolClasses.Any() {
		a.sched.push(a.newEnableUnsolicitedTask())
	}
}

// Run drives the association against tr until ctx is cancelled or a link
// error occurs, processing every task and fragment on a single goroutine.
// It alternates between running the highest-priority ready task to
// completion and, when nothing is ready, waiting on the next external
// event (inbound fragment, periodic tick, cancellation).
func (a *Association) Run(ctx context.Context, tr transport.Transport) error {
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	incoming := make(chan transport.Event, 16)
	readErr := make(chan error, 1)
	go func() {
		for {
			ev, err := tr.Read(readCtx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case incoming <- ev:
			case <-readCtx.Done():
				return
			}
		}
	}()

	a.seedStartupTasks()

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	keepAliveDeadline := time.Now().Add(a.cfg.KeepAliveTimeout)

	for {
		drainUserRequests:
		for {
			select {
			case t := <-a.userRequests:
				t.pr = priorityUserRequest
				a.sched.push(t)
			default:
				break drainUserRequests
			}
		}

		if t := a.sched.next(time.Now()); t != nil {
			if err := a.runTask(ctx, tr, t, incoming, readErr); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case t := <-a.userRequests:
			t.pr = priorityUserRequest
			a.sched.push(t)
		case ev := <-incoming:
			keepAliveDeadline = time.Now().Add(a.cfg.KeepAliveTimeout)
			a.handleAsyncEvent(ctx, tr, ev)
		case now := <-ticker.C:
			if now.After(keepAliveDeadline) {
				if err := tr.WriteLinkStatusRequest(ctx, a.cfg.Destination); err != nil {
					return err
				}
				keepAliveDeadline = now.Add(a.cfg.KeepAliveTimeout)
			}
		}
	}
}

// runTask sends t's request and drives response processing (including
// multi-fragment read assembly) until the task completes, fails, or
// times out. Unsolicited responses arriving mid-task are
// processed inline and do not interrupt it.
func (a *Association) runTask(ctx context.Context, tr transport.Transport, t *task, incoming chan transport.Event, readErr chan error) error {
	a.inf.TaskStart(t.kind)
	seq := a.nextSeq()
	req := t.buildRequest(seq)
	if err := tr.Write(ctx, a.cfg.Destination, req); err != nil {
		return err
	}

	deadline := time.Now().Add(a.cfg.ResponseTimeout)
	firSeen := false
	expected := seq

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			a.finishTask(t, ErrResponseTimeout)
			return nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case err := <-readErr:
			timer.Stop()
			return err
		case <-timer.C:
			a.finishTask(t, ErrResponseTimeout)
			return nil
		case ev := <-incoming:
			timer.Stop()
			if ev.Kind != transport.EventResponse {
				a.handleAsyncEvent(ctx, tr, ev)
				continue
			}
			frag, err := parseResponseBytes(ev.Fragment)
			if err != nil {
				a.finishTask(t, ErrMalformedResponse)
				return nil
			}
			if frag.Control.UNS {
				a.handleUnsolicited(ctx, tr, frag)
				continue
			}
			if frag.Control.Seq != expected {
				continue // stale or unrelated response, ignore
			}

			if t.isRead {
				if frag.Control.FIR {
					if firSeen {
						a.finishTask(t, ErrUnexpectedFir)
						return nil
					}
					firSeen = true
				} else if !firSeen {
					a.finishTask(t, ErrNeverReceivedFir)
					return nil
				}
				if !frag.Control.FIN && !frag.Control.CON {
					a.finishTask(t, ErrNonFinWithoutCon)
					return nil
				}
			} else if firSeen {
				a.finishTask(t, ErrMultiFragmentResponse)
				return nil
			} else {
				firSeen = true
			}

			a.processIin(frag.IIN)
			if err := t.onFragment(frag.Objects.Headers, frag.IIN); err != nil {
				a.finishTask(t, err)
				return nil
			}

			if frag.Control.CON {
				if err := a.sendConfirm(ctx, tr, frag.Control.Seq, false); err != nil {
					return err
				}
			}

			if !t.isRead || frag.Control.FIN {
				a.finishTask(t, nil)
				return nil
			}
			expected = expected.Next()
			deadline = time.Now().Add(a.cfg.ResponseTimeout)
		}
	}
}

// handleAsyncEvent processes a transport event observed outside any task
// (idle, or a non-matching kind seen mid-task): unsolicited responses and
// link-status indications.
func (a *Association) handleAsyncEvent(ctx context.Context, tr transport.Transport, ev transport.Event) {
	switch ev.Kind {
	case transport.EventResponse:
		frag, err := parseResponseBytes(ev.Fragment)
		if err != nil {
			a.log.Warn("discarding malformed response: %v", err)
			return
		}
		if frag.Control.UNS {
			a.handleUnsolicited(ctx, tr, frag)
			return
		}
		// A solicited response with no task awaiting it: still apply its
		// IIN bits so auto-tasks (clear-restart, time-sync) get scheduled.
		a.processIin(frag.IIN)
	case transport.EventError:
		a.log.Warn("transport reported %v", ev.Err)
	}
}

func (a *Association) handleUnsolicited(ctx context.Context, tr transport.Transport, frag objects.ParsedFragment) {
	a.inf.UnsolicitedReceived(frag.Control.Seq)
	a.processIin(frag.IIN)
	for _, h := range frag.Objects.Headers {
		kind, ok := kindForGroup(h.Group)
		if !ok {
			continue
		}
		_ = decodeHeader(h, func(index uint16, v objects.Value) {
			a.rh.HandleMeasurement(kind, index, v)
		})
	}
	if frag.Control.CON {
		_ = a.sendConfirm(ctx, tr, frag.Control.Seq, true)
	}
}

func (a *Association) sendConfirm(ctx context.Context, tr transport.Transport, seq objects.Sequence, unsolicited bool) error {
	buf := make([]byte, a.cfg.TxBufferSize)
	w := objects.NewFragmentWriter(buf)
	control := objects.ControlField{FIR: true, FIN: true, UNS: unsolicited, Seq: seq}
	if err := w.WriteRequestHeader(control, objects.FuncConfirm); err != nil {
		return err
	}
	return tr.Write(ctx, a.cfg.Destination, w.Written())
}

// processIin reacts to IIN bits observed on any response, scheduling the
// matching reactive auto-task: clear-restart, integrity poll on
// event-buffer overflow, and time sync when IIN1.NEED_TIME is set.
func (a *Association) processIin(iin objects.Iin) {
	a.mu.Lock()
	defer a.mu.Unlock()

	restarted := iin.Iin1&objects.Iin1Restart != 0 && a.lastIin.Iin1&objects.Iin1Restart == 0
	overflowed := iin.Iin2&objects.Iin2EventBufferOverflow != 0
	needsTime := iin.Iin1&objects.Iin1NeedTime != 0
	a.lastIin = iin

	if restarted {
		a.sched.push(a.newClearRestartIinTask())
	}
	if overflowed && a.cfg.IntegrityOnEventOverflow {
		a.sched.push(a.newIntegrityPollTask())
	}
	if needsTime && a.cfg.AutoTimeSyncEnabled {
		a.sched.push(a.newTimeSyncTask())
	}
}

func (a *Association) finishTask(t *task, err error) {
	if err != nil {
		a.inf.TaskFailure(t.kind, err)
	} else {
		a.inf.TaskSuccess(t.kind)
	}
	if t.resultCh != nil {
		t.resultCh <- taskResult{err: err}
	}
	if err != nil {
		a.sched.requeue(t, a.cfg, time.Now())
	}
}

func parseResponseBytes(raw []byte) (objects.ParsedFragment, error) {
	if len(raw) < 2 {
		return objects.ParsedFragment{}, errors.New("dnp3: response too short")
	}
	control := objects.ParseControlField(raw[0])
	function := objects.FunctionCode(raw[1])
	return objects.ParseResponseFragment(control, function, raw[2:])
}
