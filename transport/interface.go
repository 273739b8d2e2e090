// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

// Package transport declares the frame transport the core sessions
// consume. Link-layer framing, CRC, transport-function FIR/FIN
// segmentation, and the physical medium are all out of scope here — this
// package is an interface boundary only.
package transport

import (
	"context"

	"github.com/marrasen/go-dnp3/objects"
)

// EventKind classifies the value returned by Transport.Read.
type EventKind int

const (
	EventRequest EventKind = iota
	EventResponse
	EventLinkStatus
	EventError
)

// ErrorKind classifies a transport-level failure surfaced through an
// Event of kind EventError.
type ErrorKind int

const (
	ErrorLinkLost ErrorKind = iota
	ErrorFrameCorrupt
	ErrorTimeout
)

// Event is one value produced by Transport.Read: exactly one of Fragment
// (for Request/Response) or Err (for Error) is meaningful; LinkStatus
// carries neither.
type Event struct {
	Kind     EventKind
	Source   objects.EndpointAddress
	Fragment []byte // raw application-layer bytes, already de-segmented
	Confirm  objects.BroadcastConfirmMode
	Err      ErrorKind
}

// Transport is the bidirectional frame transport a session drives. A
// concrete implementation owns link-layer framing, CRC, and
// transport-function segmentation; none of that lives in this module.
type Transport interface {
	// Write sends one already-built application fragment to destination.
	Write(ctx context.Context, destination objects.EndpointAddress, fragment []byte) error

	// Read blocks until the next logical application fragment, link
	// status indication, or error is available.
	Read(ctx context.Context) (Event, error)

	// WriteLinkStatusRequest sends a link-status keep-alive to destination.
	WriteLinkStatusRequest(ctx context.Context, destination objects.EndpointAddress) error
}
