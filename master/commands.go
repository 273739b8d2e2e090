// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package master

import (
	"context"
	"time"

	"github.com/marrasen/go-dnp3/objects"
)

// CommandMode selects whether a control operation goes straight to
// OPERATE or is preceded by a SELECT, DNP3's two command patterns.
type CommandMode int

const (
	DirectOperate CommandMode = iota
	SelectBeforeOperate
)

// CrobCommand pairs a point index with the CROB to apply to it (Group 12
// Var 1, used for binary/double-bit output control).
type CrobCommand struct {
	Index uint16
	Crob  objects.ControlRelayOutputBlock
}

// AnalogCommand pairs a point index with an analog output command
// (Group 41, variation selects the value's encoding).
type AnalogCommand struct {
	Index     uint16
	Variation byte
	Cmd       objects.AnalogOutputCommand
}

func crobPrefixedObjects(cmds []CrobCommand) ([]objects.PrefixedObject, error) {
	items := make([]objects.PrefixedObject, len(cmds))
	for i, c := range cmds {
		buf := make([]byte, 11)
		cur := objects.NewWriteCursor(buf)
		if err := objects.WriteCROB(cur, c.Crob); err != nil {
			return nil, err
		}
		items[i] = objects.PrefixedObject{Prefix: uint32(c.Index), Bytes: cur.Written()}
	}
	return items, nil
}

func analogPrefixedObjects(cmds []AnalogCommand) ([]objects.PrefixedObject, error) {
	items := make([]objects.PrefixedObject, len(cmds))
	for i, c := range cmds {
		buf := make([]byte, 13)
		cur := objects.NewWriteCursor(buf)
		if err := objects.WriteAnalogOutputCommand(cur, c.Cmd); err != nil {
			return nil, err
		}
		items[i] = objects.PrefixedObject{Prefix: uint32(c.Index), Bytes: cur.Written()}
	}
	return items, nil
}

// decodeCrobStatuses reads back the echoed Group 12 Var 1 objects a
// SELECT/OPERATE/DIRECT_OPERATE response carries, in request order.
func decodeCrobStatuses(headers []objects.ObjectHeader, want int) ([]objects.CommandStatus, error) {
	out := make([]objects.CommandStatus, 0, want)
	for _, h := range headers {
		if h.Group != 12 || h.Variation != 1 {
			continue
		}
		for _, item := range h.Payload.Prefixed {
			cur := objects.NewReadCursor(item.Raw)
			v, err := objects.ReadCROB(cur)
			if err != nil {
				return nil, err
			}
			out = append(out, v.Status)
		}
	}
	if len(out) != want {
		return out, ErrUnexpectedResponseHeaders
	}
	return out, nil
}

func decodeAnalogStatuses(headers []objects.ObjectHeader, variation byte, want int) ([]objects.CommandStatus, error) {
	out := make([]objects.CommandStatus, 0, want)
	for _, h := range headers {
		if h.Group != 41 || h.Variation != variation {
			continue
		}
		for _, item := range h.Payload.Prefixed {
			cur := objects.NewReadCursor(item.Raw)
			v, err := objects.ReadAnalogOutputCommand(cur, variation)
			if err != nil {
				return nil, err
			}
			out = append(out, v.Status)
		}
	}
	if len(out) != want {
		return out, ErrUnexpectedResponseHeaders
	}
	return out, nil
}

// newCommandTask builds a single non-read user task that writes one
// count-and-prefix header of the given function and waits for its echo,
// reporting decoded statuses through result.
func (a *Association) newCommandTask(kind string, function objects.FunctionCode, group, variation byte, items []objects.PrefixedObject, result *[]objects.CommandStatus, decode func([]objects.ObjectHeader) ([]objects.CommandStatus, error)) *task {
	return &task{
		kind: kind,
		pr:   priorityUserRequest,
		buildRequest: func(seq objects.Sequence) []byte {
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			if err := w.WriteRequestHeader(control, function); err != nil {
				return w.Written()
			}
			_, _ = w.WritePrefixedHeader(group, variation, items)
			return w.Written()
		},
		onFragment: func(headers []objects.ObjectHeader, iin objects.Iin) error {
			statuses, err := decode(headers)
			if err != nil {
				return err
			}
			*result = statuses
			return nil
		},
	}
}

// OperateCrob issues a SELECT/OPERATE or DIRECT_OPERATE sequence for a
// batch of Group 12 commands. It blocks until the operation completes,
// ctx is cancelled, or the response fails validation.
func (a *Association) OperateCrob(ctx context.Context, mode CommandMode, cmds []CrobCommand) ([]objects.CommandStatus, error) {
	items, err := crobPrefixedObjects(cmds)
	if err != nil {
		return nil, err
	}
	decode := func(h []objects.ObjectHeader) ([]objects.CommandStatus, error) { return decodeCrobStatuses(h, len(cmds)) }

	if mode == SelectBeforeOperate {
		var selectResult []objects.CommandStatus
		if err := a.submitUserTask(ctx, a.newCommandTask("select_crob", objects.FuncSelect, 12, 1, items, &selectResult, decode)); err != nil {
			return nil, err
		}
	}
	var result []objects.CommandStatus
	function := objects.FuncOperate
	kind := "operate_crob"
	if mode == DirectOperate {
		function, kind = objects.FuncDirectOperate, "direct_operate_crob"
	}
	if err := a.submitUserTask(ctx, a.newCommandTask(kind, function, 12, 1, items, &result, decode)); err != nil {
		return nil, err
	}
	return result, nil
}

// OperateAnalog is OperateCrob's Group 41 analog-output analogue.
func (a *Association) OperateAnalog(ctx context.Context, mode CommandMode, cmds []AnalogCommand) ([]objects.CommandStatus, error) {
	if len(cmds) == 0 {
		return nil, nil
	}
	variation := cmds[0].Variation
	items, err := analogPrefixedObjects(cmds)
	if err != nil {
		return nil, err
	}
	decode := func(h []objects.ObjectHeader) ([]objects.CommandStatus, error) {
		return decodeAnalogStatuses(h, variation, len(cmds))
	}

	if mode == SelectBeforeOperate {
		var selectResult []objects.CommandStatus
		if err := a.submitUserTask(ctx, a.newCommandTask("select_analog", objects.FuncSelect, 41, variation, items, &selectResult, decode)); err != nil {
			return nil, err
		}
	}
	var result []objects.CommandStatus
	function := objects.FuncOperate
	kind := "operate_analog"
	if mode == DirectOperate {
		function, kind = objects.FuncDirectOperate, "direct_operate_analog"
	}
	if err := a.submitUserTask(ctx, a.newCommandTask(kind, function, 41, variation, items, &result, decode)); err != nil {
		return nil, err
	}
	return result, nil
}

// Read issues a user-requested read for class 0 (if includeClass0) plus
// the given event classes, streaming decoded values to the association's
// ReadHandler exactly like an automatic integrity poll.
func (a *Association) Read(ctx context.Context, classes ClassMask, includeClass0 bool) error {
	t := &task{
		kind:   "read",
		pr:     priorityUserRequest,
		isRead: true,
		buildRequest: func(seq objects.Sequence) []byte {
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			_ = w.WriteRequestHeader(control, objects.FuncRead)
			buildClassHeaders(w, classes, includeClass0)
			return w.Written()
		},
		onFragment: func(headers []objects.ObjectHeader, iin objects.Iin) error {
			for _, h := range headers {
				kind, ok := kindForGroup(h.Group)
				if !ok {
					continue
				}
				if err := decodeHeader(h, func(index uint16, v objects.Value) {
					a.rh.HandleMeasurement(kind, index, v)
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return a.submitUserTask(ctx, t)
}

func (a *Association) restart(ctx context.Context, function objects.FunctionCode, kind string) (time.Duration, error) {
	var delay time.Duration
	t := &task{
		kind: kind,
		pr:   priorityUserRequest,
		buildRequest: func(seq objects.Sequence) []byte {
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			_ = w.WriteRequestHeader(control, function)
			return w.Written()
		},
		onFragment: func(headers []objects.ObjectHeader, iin objects.Iin) error {
			for _, h := range headers {
				if h.Group != 52 {
					continue
				}
				cur := objects.NewReadCursor(h.RawObjects)
				v, err := objects.ReadFixedValue(cur, h.Info)
				if err != nil {
					return err
				}
				delay = time.Duration(v.U16) * time.Millisecond
			}
			return nil
		},
	}
	if err := a.submitUserTask(ctx, t); err != nil {
		return 0, err
	}
	return delay, nil
}

// ColdRestart issues FUNC_COLD_RESTART and returns the outstation's
// reported restart delay (Group 52 Var 2, reused here the way it is for
// DelayMeasure since both carry a single "time until ready" count).
func (a *Association) ColdRestart(ctx context.Context) (time.Duration, error) {
	return a.restart(ctx, objects.FuncColdRestart, "cold_restart")
}

// WarmRestart is ColdRestart's FUNC_WARM_RESTART analogue.
func (a *Association) WarmRestart(ctx context.Context) (time.Duration, error) {
	return a.restart(ctx, objects.FuncWarmRestart, "warm_restart")
}
