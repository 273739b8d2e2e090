// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package outstation

import (
	"context"
	"time"

	"github.com/marrasen/go-dnp3/objects"
	"github.com/marrasen/go-dnp3/transport"
)

// checkInterval is the loop's timer-polling granularity, mirroring the
// teacher's timeoutResolution constant: short enough that confirm and
// retry deadlines fire within a fraction of their configured duration.
const checkInterval = 100 * time.Millisecond

// Run drives Session against tr until ctx is cancelled or the transport
// reports a fatal read error, processing every fragment and timer event
// on a single goroutine. It owns every timing decision Session itself
// does not:
// confirm-wait expiry, unsolicited retry/generation, and keep-alive
// link-status requests. One goroutine pumps tr.Read into a channel so the
// main loop can select over it alongside a ticker; Run itself makes no
// concurrent calls into Session.
func (s *Session) Run(ctx context.Context, tr transport.Transport) error {
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

	s.mu.Lock()
	s.iin.Iin1 |= objects.Iin1Restart
	s.mu.Unlock()

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	keepAliveDeadline := time.Now().Add(s.cfg.KeepAliveTimeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			return err

		case ev := <-incoming:
			keepAliveDeadline = time.Now().Add(s.cfg.KeepAliveTimeout)
			if err := s.handleTransportEvent(ctx, tr, ev); err != nil {
				return err
			}

		case now := <-ticker.C:
			if resp, ok := s.checkTimeouts(now); ok {
				if err := tr.Write(ctx, s.cfg.MasterAddress, resp); err != nil {
					return err
				}
			}
			if resp, ok := s.checkUnsolicited(now); ok {
				if err := tr.Write(ctx, s.cfg.MasterAddress, resp); err != nil {
					return err
				}
			}
			if now.After(keepAliveDeadline) {
				if err := tr.WriteLinkStatusRequest(ctx, s.cfg.MasterAddress); err != nil {
					return err
				}
				keepAliveDeadline = now.Add(s.cfg.KeepAliveTimeout)
			}
		}
	}
}

func (s *Session) handleTransportEvent(ctx context.Context, tr transport.Transport, ev transport.Event) error {
	switch ev.Kind {
	case transport.EventRequest:
		isBroadcast := objects.IsBroadcast(uint16(ev.Source))
		resp, _, err := s.HandleFragment(ev.Fragment, isBroadcast, ev.Confirm)
		if err != nil {
			s.log.Warn("discarding malformed request: %v", err)
			return nil
		}
		if resp == nil {
			return nil
		}
		return tr.Write(ctx, s.cfg.MasterAddress, resp)

	case transport.EventLinkStatus:
		return tr.WriteLinkStatusRequest(ctx, s.cfg.MasterAddress)

	case transport.EventError:
		s.log.Warn("transport reported %v", ev.Err)
		return nil

	default:
		return nil
	}
}
