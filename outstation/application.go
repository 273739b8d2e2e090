// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package outstation

import (
	"time"

	"github.com/marrasen/go-dnp3/objects"
)

// ControlHandler is supplied by the user to execute control-direction
// requests: SELECT validates without acting, OPERATE performs the action,
// DirectOperate does both in one step.
type ControlHandler interface {
	SelectCROB(index uint16, v objects.ControlRelayOutputBlock) objects.CommandStatus
	OperateCROB(index uint16, v objects.ControlRelayOutputBlock) objects.CommandStatus
	SelectAnalogOutput(index uint16, v objects.AnalogOutputCommand) objects.CommandStatus
	OperateAnalogOutput(index uint16, v objects.AnalogOutputCommand) objects.CommandStatus
}

// Application is supplied by the user to handle requests the core cannot
// satisfy from the database alone: restart, time synchronization,
// attribute writes, freeze, and dead-band configuration.
type Application interface {
	ColdRestart() time.Duration
	WarmRestart() time.Duration
	WriteAbsoluteTime(t objects.Timestamp) error
	FreezeCounters(kind FreezeKind, start, stop uint32, all bool) error
	WriteDeadBand(group byte, index uint16, value float64) error
}

// FreezeKind distinguishes the three freeze operations.
type FreezeKind int

const (
	FreezeImmediate FreezeKind = iota
	FreezeAndClear
	FreezeAtTime
)

// Information is supplied by the user purely for observability:
// lifecycle events, confirm waits, broadcast receipts. Every method is a
// no-op hook; the core never branches on the return value.
type Information interface {
	EnterSolConfirmWait(ecsn objects.Sequence)
	SolConfirmTimeout()
	EnterUnsolConfirmWait(ecsn objects.Sequence)
	UnsolConfirmTimeout()
	BroadcastReceived(function objects.FunctionCode, mode objects.BroadcastConfirmMode)
}

// NopInformation is a zero-cost Information implementation for callers
// that don't need lifecycle observability.
type NopInformation struct{}

func (NopInformation) EnterSolConfirmWait(objects.Sequence)                       {}
func (NopInformation) SolConfirmTimeout()                                         {}
func (NopInformation) EnterUnsolConfirmWait(objects.Sequence)                     {}
func (NopInformation) UnsolConfirmTimeout()                                       {}
func (NopInformation) BroadcastReceived(objects.FunctionCode, objects.BroadcastConfirmMode) {}
