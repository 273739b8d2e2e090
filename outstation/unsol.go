// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package outstation

import (
	"time"

	"github.com/marrasen/go-dnp3/database"
	"github.com/marrasen/go-dnp3/events"
	"github.com/marrasen/go-dnp3/objects"
)

// buildNullUnsolicited builds the empty unsolicited response an outstation
// must send before leaving NullRequired.
func (s *Session) buildNullUnsolicited() []byte {
	buf := make([]byte, s.cfg.UnsolTxBufferSize)
	w := objects.NewFragmentWriter(buf)
	seq := s.unsolSeq
	resp := objects.ControlField{FIR: true, FIN: true, CON: true, UNS: true, Seq: seq}
	_ = w.WriteResponseHeader(resp, objects.FuncUnsolicitedResponse, s.mergeIin(objects.Iin{}))
	return w.Written()
}

// selectUnsolicitedEvents gathers events from every enabled class, for an
// unsolicited response triggered from the idle state.
func (s *Session) selectUnsolicitedEvents() []events.Event {
	var out []events.Event
	if s.cfg.EnabledUnsolClasses.Class1 {
		out = append(out, s.buf.Select(events.Class1, 1<<20)...)
	}
	if s.cfg.EnabledUnsolClasses.Class2 {
		out = append(out, s.buf.Select(events.Class2, 1<<20)...)
	}
	if s.cfg.EnabledUnsolClasses.Class3 {
		out = append(out, s.buf.Select(events.Class3, 1<<20)...)
	}
	return out
}

// buildUnsolicitedResponse builds an unsolicited response carrying evs,
// always asserting CON: an unsolicited response always requires a
// confirm.
func (s *Session) buildUnsolicitedResponse(evs []events.Event) ([]byte, error) {
	buf := make([]byte, s.cfg.UnsolTxBufferSize)
	w := objects.NewFragmentWriter(buf)
	seq := s.unsolSeq
	resp := objects.ControlField{FIR: true, FIN: true, CON: true, UNS: true, Seq: seq}
	if err := w.WriteResponseHeader(resp, objects.FuncUnsolicitedResponse, s.mergeIin(objects.Iin{})); err != nil {
		return nil, err
	}
	if _, err := database.WriteEvents(w, evs, uint64(time.Now().UnixMilli())); err != nil {
		return nil, err
	}
	return w.Written(), nil
}

// checkTimeouts expires an outstanding confirm wait. It reports whether a
// retransmission is warranted and, if so, the bytes to resend.
func (s *Session) checkTimeouts(now time.Time) (resp []byte, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.confirmDeadline.IsZero() || now.Before(s.confirmDeadline) {
		return nil, false
	}

	switch s.state {
	case StateSolConfirmWait:
		s.state = StateIdle
		s.confirmDeadline = time.Time{}
		s.inf.SolConfirmTimeout()
		return nil, false

	case StateUnsolConfirmWait:
		s.inf.UnsolConfirmTimeout()
		s.unsolRetries++
		if s.cfg.MaxUnsolicitedRetries > 0 && s.unsolRetries > s.cfg.MaxUnsolicitedRetries {
			s.state = StateIdle
			s.confirmDeadline = time.Time{}
			s.unsolRetries = 0
			return nil, false
		}
		evs := s.selectUnsolicitedEvents()
		resp, err := s.buildUnsolicitedResponse(evs)
		if err != nil {
			s.state = StateIdle
			s.confirmDeadline = time.Time{}
			return nil, false
		}
		s.confirmDeadline = now.Add(s.cfg.UnsolConfirmTimeout)
		return resp, true
	}
	return nil, false
}

// checkUnsolicited advances the startup NULL-unsolicited handshake and, once
// past it, initiates a new unsolicited series whenever enabled classes have
// pending events and no series is already in flight.
func (s *Session) checkUnsolicited(now time.Time) (resp []byte, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateNullRequired:
		if !s.confirmDeadline.IsZero() && now.Before(s.confirmDeadline) {
			return nil, false
		}
		if s.cfg.MaxUnsolicitedRetries > 0 && s.nullRetries > s.cfg.MaxUnsolicitedRetries {
			s.state = StateIdle
			s.confirmDeadline = time.Time{}
			return nil, false
		}
		s.nullRetries++
		s.confirmDeadline = now.Add(s.cfg.UnsolicitedRetryDelay)
		s.state = StateUnsolConfirmWait
		s.ecsn = s.unsolSeq
		return s.buildNullUnsolicited(), true

	case StateIdle:
		if !s.cfg.EnabledUnsolClasses.Any() {
			return nil, false
		}
		evs := s.selectUnsolicitedEvents()
		if len(evs) == 0 {
			return nil, false
		}
		resp, err := s.buildUnsolicitedResponse(evs)
		if err != nil {
			return nil, false
		}
		s.ecsn = s.unsolSeq
		s.unsolSeq = s.unsolSeq.Next()
		s.unsolRetries = 0
		s.state = StateUnsolConfirmWait
		s.confirmDeadline = now.Add(s.cfg.UnsolConfirmTimeout)
		s.inf.EnterUnsolConfirmWait(s.ecsn)
		return resp, true
	}
	return nil, false
}
