// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package outstation

import (
	"time"

	"github.com/marrasen/go-dnp3/objects"
)

// controlResult is one control object's outcome, echoed back in the
// response with its original index/prefix and the same object layout it
// arrived with.
type controlResult struct {
	group, variation byte
	index            uint16
	crob             objects.ControlRelayOutputBlock
	analog           objects.AnalogOutputCommand
}

func (s *Session) handleSelect(f objects.ParsedFragment) ([]byte, objects.Iin2) {
	results := s.forEachControl(f, func(group, variation byte, index uint16, raw []byte) controlResult {
		if group == 12 {
			crob, err := objects.ReadCROB(objects.NewReadCursor(raw))
			if err != nil {
				crob.Status = objects.CommandFormatError
				return controlResult{group: group, variation: variation, index: index, crob: crob}
			}
			crob.Status = s.ctl.SelectCROB(index, crob)
			return controlResult{group: group, variation: variation, index: index, crob: crob}
		}
		cmd, err := objects.ReadAnalogOutputCommand(objects.NewReadCursor(raw), variation)
		if err != nil {
			cmd.Status = objects.CommandFormatError
			return controlResult{group: group, variation: variation, index: index, analog: cmd}
		}
		cmd.Status = s.ctl.SelectAnalogOutput(index, cmd)
		return controlResult{group: group, variation: variation, index: index, analog: cmd}
	})

	allSucceeded := true
	for _, r := range results {
		if !r.succeeded() {
			allSucceeded = false
			break
		}
	}
	if allSucceeded && len(results) > 0 {
		s.sel = selectRecord{
			valid:      true,
			sequence:   f.Control.Seq,
			frameId:    s.frameId,
			headerHash: objects.ComputeFingerprint(rawHeaderBytes(f)),
			at:         time.Now(),
		}
	} else {
		s.sel = selectRecord{}
	}
	return s.buildControlResponse(f.Control, results), 0
}

func (s *Session) handleOperate(f objects.ParsedFragment) ([]byte, objects.Iin2) {
	matched := s.sel.valid &&
		f.Control.Seq.Value() == s.sel.sequence.Next().Value() &&
		s.frameId == s.sel.frameId+1 &&
		objects.ComputeFingerprint(rawHeaderBytes(f)) == s.sel.headerHash &&
		time.Since(s.sel.at) < s.cfg.SelectTimeout

	timedOut := s.sel.valid && !matched && time.Since(s.sel.at) >= s.cfg.SelectTimeout
	s.sel = selectRecord{}

	status := objects.CommandNoSelect
	if timedOut {
		status = objects.CommandTimeout
	}

	results := s.forEachControl(f, func(group, variation byte, index uint16, raw []byte) controlResult {
		if !matched {
			if group == 12 {
				crob, _ := objects.ReadCROB(objects.NewReadCursor(raw))
				crob.Status = status
				return controlResult{group: group, variation: variation, index: index, crob: crob}
			}
			cmd, _ := objects.ReadAnalogOutputCommand(objects.NewReadCursor(raw), variation)
			cmd.Status = status
			return controlResult{group: group, variation: variation, index: index, analog: cmd}
		}
		if group == 12 {
			crob, err := objects.ReadCROB(objects.NewReadCursor(raw))
			if err != nil {
				crob.Status = objects.CommandFormatError
				return controlResult{group: group, variation: variation, index: index, crob: crob}
			}
			crob.Status = s.ctl.OperateCROB(index, crob)
			return controlResult{group: group, variation: variation, index: index, crob: crob}
		}
		cmd, err := objects.ReadAnalogOutputCommand(objects.NewReadCursor(raw), variation)
		if err != nil {
			cmd.Status = objects.CommandFormatError
			return controlResult{group: group, variation: variation, index: index, analog: cmd}
		}
		cmd.Status = s.ctl.OperateAnalogOutput(index, cmd)
		return controlResult{group: group, variation: variation, index: index, analog: cmd}
	})
	return s.buildControlResponse(f.Control, results), 0
}

func (s *Session) handleDirectOperate(f objects.ParsedFragment, withResponse bool) ([]byte, objects.Iin2) {
	results := s.forEachControl(f, func(group, variation byte, index uint16, raw []byte) controlResult {
		if group == 12 {
			crob, err := objects.ReadCROB(objects.NewReadCursor(raw))
			if err != nil {
				crob.Status = objects.CommandFormatError
				return controlResult{group: group, variation: variation, index: index, crob: crob}
			}
			crob.Status = s.ctl.OperateCROB(index, crob)
			return controlResult{group: group, variation: variation, index: index, crob: crob}
		}
		cmd, err := objects.ReadAnalogOutputCommand(objects.NewReadCursor(raw), variation)
		if err != nil {
			cmd.Status = objects.CommandFormatError
			return controlResult{group: group, variation: variation, index: index, analog: cmd}
		}
		cmd.Status = s.ctl.OperateAnalogOutput(index, cmd)
		return controlResult{group: group, variation: variation, index: index, analog: cmd}
	})
	if !withResponse {
		return nil, 0
	}
	return s.buildControlResponse(f.Control, results), 0
}

// forEachControl walks a request's CountAndPrefix control headers (Group
// 12 or 41), invoking fn once per object in wire order and collecting results.
func (s *Session) forEachControl(f objects.ParsedFragment, fn func(group, variation byte, index uint16, raw []byte) controlResult) []controlResult {
	var out []controlResult
	for _, h := range f.Objects.Headers {
		if h.Group != 12 && h.Group != 41 {
			continue
		}
		for _, item := range h.Payload.Prefixed {
			out = append(out, fn(h.Group, h.Variation, uint16(item.Prefix), item.Raw))
		}
	}
	return out
}

func (r controlResult) succeeded() bool {
	if r.group == 12 {
		return r.crob.Status == objects.CommandSuccess
	}
	return r.analog.Status == objects.CommandSuccess
}

func (s *Session) buildControlResponse(control objects.ControlField, results []controlResult) []byte {
	buf := make([]byte, s.cfg.TxBufferSize)
	w := objects.NewFragmentWriter(buf)
	resp := objects.ControlField{FIR: true, FIN: true, Seq: control.Seq}
	if err := w.WriteResponseHeader(resp, objects.FuncResponse, s.mergeIin(objects.Iin{})); err != nil {
		return nil
	}
	byGV := make(map[objects.GroupVariation][]controlResult)
	var order []objects.GroupVariation
	for _, r := range results {
		gv := objects.GroupVariation{Group: r.group, Variation: r.variation}
		if _, seen := byGV[gv]; !seen {
			order = append(order, gv)
		}
		byGV[gv] = append(byGV[gv], r)
	}
	for _, gv := range order {
		items := make([]objects.PrefixedObject, 0, len(byGV[gv]))
		for _, r := range byGV[gv] {
			var raw []byte
			if gv.Group == 12 {
				raw = make([]byte, 11)
				_ = objects.WriteCROB(objects.NewWriteCursor(raw), r.crob)
			} else {
				size := analogCommandSize(gv.Variation)
				raw = make([]byte, size)
				_ = objects.WriteAnalogOutputCommand(objects.NewWriteCursor(raw), r.analog)
			}
			items = append(items, objects.PrefixedObject{Prefix: uint32(r.index), Bytes: raw})
		}
		_, _ = w.WritePrefixedHeader(gv.Group, gv.Variation, items)
	}
	return w.Written()
}

func analogCommandSize(variation byte) int {
	switch variation {
	case 1:
		return 5
	case 2:
		return 3
	case 3:
		return 5
	default:
		return 9
	}
}

// rawHeaderBytes builds a byte string from a fragment's object headers,
// for the SELECT/OPERATE header-hash comparison: each header contributes
// its group, variation and qualifier, its RawObjects, and, for
// count-and-prefix headers, every item's prefix (as 2 bytes) followed by
// the item's object bytes. Count and range fields are not included.
func rawHeaderBytes(f objects.ParsedFragment) []byte {
	var total []byte
	for _, h := range f.Objects.Headers {
		total = append(total, h.Group, h.Variation, byte(h.Qualifier))
		total = append(total, h.RawObjects...)
		for _, item := range h.Payload.Prefixed {
			total = append(total, byte(item.Prefix), byte(item.Prefix>>8))
			total = append(total, item.Raw...)
		}
	}
	return total
}
