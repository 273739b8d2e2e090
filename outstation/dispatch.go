// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package outstation

import (
	"time"

	"github.com/marrasen/go-dnp3/objects"
)

// dispatch executes a parsed request fragment and returns the encoded
// response bytes. iin2 carries any validation bits accumulated while
// processing individual headers, merged into the final response IIN.
func (s *Session) dispatch(f objects.ParsedFragment) (response []byte, iin2 objects.Iin2) {
	switch f.Function {
	case objects.FuncRead:
		resp, err := s.buildReadResponse(f.Control, f.Objects.Headers)
		if err != nil {
			return s.buildErrorResponse(f.Control, s.mergeIin(objects.Iin{Iin2: objects.Iin2ParameterError})), objects.Iin2ParameterError
		}
		return resp, 0

	case objects.FuncWrite:
		return s.handleWrite(f)

	case objects.FuncSelect:
		return s.handleSelect(f)

	case objects.FuncOperate:
		return s.handleOperate(f)

	case objects.FuncDirectOperate:
		return s.handleDirectOperate(f, true)

	case objects.FuncDirectOperateNoResponse:
		s.handleDirectOperate(f, false)
		return nil, 0

	case objects.FuncImmediateFreeze, objects.FuncImmediateFreezeNoResponse:
		s.handleFreeze(f, FreezeImmediate)
		if f.Function == objects.FuncImmediateFreezeNoResponse {
			return nil, 0
		}
		return s.buildEmptyResponse(f.Control), 0

	case objects.FuncFreezeClear, objects.FuncFreezeClearNoResponse:
		s.handleFreeze(f, FreezeAndClear)
		if f.Function == objects.FuncFreezeClearNoResponse {
			return nil, 0
		}
		return s.buildEmptyResponse(f.Control), 0

	case objects.FuncFreezeAtTime, objects.FuncFreezeAtTimeNoResponse:
		s.handleFreeze(f, FreezeAtTime)
		if f.Function == objects.FuncFreezeAtTimeNoResponse {
			return nil, 0
		}
		return s.buildEmptyResponse(f.Control), 0

	case objects.FuncColdRestart:
		delay := s.app.ColdRestart()
		return s.buildRestartResponse(f.Control, delay), 0

	case objects.FuncWarmRestart:
		delay := s.app.WarmRestart()
		return s.buildRestartResponse(f.Control, delay), 0

	case objects.FuncEnableUnsolicited:
		s.handleEnableUnsol(f, true)
		return s.buildEmptyResponse(f.Control), 0

	case objects.FuncDisableUnsolicited:
		s.handleEnableUnsol(f, false)
		return s.buildEmptyResponse(f.Control), 0

	case objects.FuncDelayMeasure:
		return s.buildDelayMeasureResponse(f.Control), 0

	case objects.FuncRecordCurrentTime:
		return s.buildEmptyResponse(f.Control), 0

	default:
		return s.buildErrorResponse(f.Control, s.mergeIin(objects.Iin{Iin2: objects.Iin2NoFuncCodeSupport})), objects.Iin2NoFuncCodeSupport
	}
}

// dispatchNoResponse executes a broadcast request's side effects without
// building or sending a response: a broadcast is processed per its
// function code but never answered.
func (s *Session) dispatchNoResponse(function objects.FunctionCode, raw []byte) {
	fragment, err := objects.ParseRequestFragment(objects.ControlField{}, function, raw)
	if err != nil {
		return
	}
	switch function {
	case objects.FuncWrite:
		s.handleWrite(fragment)
	case objects.FuncDirectOperateNoResponse:
		s.handleDirectOperate(fragment, false)
	case objects.FuncImmediateFreezeNoResponse:
		s.handleFreeze(fragment, FreezeImmediate)
	case objects.FuncFreezeClearNoResponse:
		s.handleFreeze(fragment, FreezeAndClear)
	case objects.FuncFreezeAtTimeNoResponse:
		s.handleFreeze(fragment, FreezeAtTime)
	}
}

func (s *Session) buildEmptyResponse(control objects.ControlField) []byte {
	buf := make([]byte, s.cfg.TxBufferSize)
	w := objects.NewFragmentWriter(buf)
	resp := objects.ControlField{FIR: true, FIN: true, Seq: control.Seq}
	_ = w.WriteResponseHeader(resp, objects.FuncResponse, s.mergeIin(objects.Iin{}))
	return w.Written()
}

func (s *Session) buildRestartResponse(control objects.ControlField, delay time.Duration) []byte {
	buf := make([]byte, s.cfg.TxBufferSize)
	w := objects.NewFragmentWriter(buf)
	resp := objects.ControlField{FIR: true, FIN: true, Seq: control.Seq}
	if err := w.WriteResponseHeader(resp, objects.FuncResponse, s.mergeIin(objects.Iin{})); err != nil {
		return nil
	}
	ms := delay.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if ms > 0xFFFF {
		ms = 0xFFFF
	}
	payload := make([]byte, 2)
	objWc := objects.NewWriteCursor(payload)
	_ = objWc.WriteU16LE(uint16(ms))
	_ = w.WriteCountedObjectsHeader(52, 2, 1, payload)
	return w.Written()
}

func (s *Session) buildDelayMeasureResponse(control objects.ControlField) []byte {
	buf := make([]byte, s.cfg.TxBufferSize)
	w := objects.NewFragmentWriter(buf)
	resp := objects.ControlField{FIR: true, FIN: true, Seq: control.Seq}
	_ = w.WriteResponseHeader(resp, objects.FuncResponse, s.mergeIin(objects.Iin{}))
	payload := make([]byte, 2)
	objWc := objects.NewWriteCursor(payload)
	_ = objWc.WriteU16LE(0) // transport-measured one-way delay is supplied by the link layer, out of scope here
	_ = w.WriteCountedObjectsHeader(52, 2, 1, payload)
	return w.Written()
}

func (s *Session) handleWrite(f objects.ParsedFragment) ([]byte, objects.Iin2) {
	var iin2 objects.Iin2
	for _, h := range f.Objects.Headers {
		switch {
		case h.Group == 50 && h.Variation == 1:
			for addr := h.Payload.Range.Start; addr <= h.Payload.Range.Stop; addr++ {
				info, _ := objects.Lookup(50, 1)
				cur := objects.NewReadCursor(h.RawObjects)
				v, err := objects.ReadFixedValue(cur, info)
				if err != nil {
					iin2 |= objects.Iin2ParameterError
					continue
				}
				if err := s.app.WriteAbsoluteTime(v.Time); err != nil {
					iin2 |= objects.Iin2ParameterError
				} else {
					s.iin.Iin1 &^= objects.Iin1NeedTime
				}
			}
		case h.Group == 80 && h.Variation == 1:
			// IIN bit clear: the IIN1 bits addressed by the range are cleared.
			for i := h.Payload.Range.Start; h.Payload.Shape == objects.ShapeRange && i <= h.Payload.Range.Stop && i < 8; i++ {
				s.iin.Iin1 &^= objects.Iin1(1) << i
			}
		case h.Group == 0:
			if s.attrs == nil {
				iin2 |= objects.Iin2ObjectUnknown
				continue
			}
			for _, v := range objects.DecodeAttrObjects(h.RawObjects) {
				if err := s.attrs.Write(0, h.Variation, v); err != nil {
					iin2 |= objects.Iin2ParameterError
				}
			}
		case h.Group == 34:
			info, ok := objects.Lookup(h.Group, h.Variation)
			if !ok {
				iin2 |= objects.Iin2ObjectUnknown
				continue
			}
			size := info.FixedSize
			idx := h.Payload.Range.Start
			for off := 0; off+size <= len(h.RawObjects); off += size {
				cur := objects.NewReadCursor(h.RawObjects[off : off+size])
				v, err := objects.ReadFixedValue(cur, info)
				if err != nil {
					iin2 |= objects.Iin2ParameterError
					continue
				}
				var fv float64
				switch info.Kind {
				case objects.VUint16:
					fv = float64(v.U16)
				case objects.VUint32:
					fv = float64(v.U32)
				case objects.VFloat32:
					fv = float64(v.F32)
				}
				if err := s.app.WriteDeadBand(h.Group, uint16(idx), fv); err != nil {
					iin2 |= objects.Iin2ParameterError
				}
				idx++
			}
		default:
			iin2 |= objects.Iin2ObjectUnknown
		}
	}
	return s.buildErrorResponse(f.Control, s.mergeIin(objects.Iin{Iin2: iin2})), iin2
}

func (s *Session) handleFreeze(f objects.ParsedFragment, kind FreezeKind) {
	for _, h := range f.Objects.Headers {
		if h.Group != 20 {
			continue
		}
		switch h.Payload.Shape {
		case objects.ShapeAllObjects:
			_ = s.app.FreezeCounters(kind, 0, 0, true)
		case objects.ShapeRange:
			_ = s.app.FreezeCounters(kind, h.Payload.Range.Start, h.Payload.Range.Stop, false)
		}
	}
}

func (s *Session) handleEnableUnsol(f objects.ParsedFragment, enable bool) {
	for _, h := range f.Objects.Headers {
		if h.Group != 60 {
			continue
		}
		switch h.Variation {
		case 2:
			s.cfg.EnabledUnsolClasses.Class1 = enable
		case 3:
			s.cfg.EnabledUnsolClasses.Class2 = enable
		case 4:
			s.cfg.EnabledUnsolClasses.Class3 = enable
		}
	}
}

