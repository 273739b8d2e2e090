// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package master

import "github.com/marrasen/go-dnp3/objects"

// ReadHandler receives decoded values as read responses and unsolicited
// responses are processed, the master-side analogue of the outstation's
// database: the master core has no point store of its own, so decoded
// data is handed to the caller as it streams in.
type ReadHandler interface {
	HandleMeasurement(kind objects.MeasurementKind, index uint16, v objects.Value)
}

// NopReadHandler discards every measurement, for callers that only care
// about task completion.
type NopReadHandler struct{}

func (NopReadHandler) HandleMeasurement(objects.MeasurementKind, uint16, objects.Value) {}

// Information is supplied by the user purely for observability of
// association lifecycle events.
type Information interface {
	TaskStart(name string)
	TaskSuccess(name string)
	TaskFailure(name string, err error)
	UnsolicitedReceived(seq objects.Sequence)
}

// NopInformation is a zero-cost Information implementation.
type NopInformation struct{}

func (NopInformation) TaskStart(string)                         {}
func (NopInformation) TaskSuccess(string)                       {}
func (NopInformation) TaskFailure(string, error)                {}
func (NopInformation) UnsolicitedReceived(objects.Sequence)     {}
