// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package outstation

import (
	"time"

	"github.com/marrasen/go-dnp3/database"
	"github.com/marrasen/go-dnp3/events"
	"github.com/marrasen/go-dnp3/objects"
)

// readStep is one atomic unit of a READ response: either a write against
// the database/attribute store, or the deferred event-reporting step.
// write reports the IIN2 bits contributed and whether the step fit in the
// fragment being built; on a false the writer rolls back to before the
// step and defers it to the next fragment.
type readStep struct {
	write    func(w *objects.FragmentWriter) (objects.Iin2, bool)
	isEvents bool
}

// wantClasses records which event classes a READ's group 60 headers asked
// for, so the actual Select happens once, lazily, when the events step is
// first reached.
type wantClasses struct {
	class1, class2, class3 bool
}

// readContinuation tracks a READ response that didn't fit in one
// fragment. The outstation enters SolConfirmWait after sending a
// continuation fragment and resumes here when the matching CONFIRM
// arrives; a new, unrelated request abandons it.
type readContinuation struct {
	nextSeq objects.Sequence
	steps   []readStep
	idx     int

	want     wantClasses
	selected bool
	events   []events.Event

	fragmentsSent int
}

// buildReadResponse plans a READ request's object headers into a sequence
// of steps and builds the first response fragment. If every step fits,
// FIN is set and the response is complete; otherwise Session.readCont
// holds what remains, resumed fragment by fragment as CONFIRMs arrive.
func (s *Session) buildReadResponse(control objects.ControlField, headers []objects.ObjectHeader) ([]byte, error) {
	steps, want := s.planReadSteps(headers)
	cont := &readContinuation{nextSeq: control.Seq, steps: steps, want: want}
	return s.writeReadFragment(cont)
}

// planReadSteps expands a READ's object headers into one step per
// measurement kind, range, or attribute lookup, plus a single trailing
// events step when any class-poll header was present. Expanding "all
// points of a kind" and "all enabled classes" into many fine-grained steps
// lets a fragment boundary fall between them instead of forcing an
// all-or-nothing write.
func (s *Session) planReadSteps(headers []objects.ObjectHeader) ([]readStep, wantClasses) {
	var steps []readStep
	var want wantClasses

	for _, h := range headers {
		h := h
		switch h.Group {
		case 60:
			switch h.Variation {
			case 1:
				for _, kind := range s.db.AllKinds() {
					kind := kind
					steps = append(steps, readStep{write: func(w *objects.FragmentWriter) (objects.Iin2, bool) {
						return 0, s.writeStaticKind(w, kind)
					}})
				}
			case 2:
				want.class1 = true
			case 3:
				want.class2 = true
			case 4:
				want.class3 = true
			}

		case 0:
			steps = append(steps, readStep{write: func(w *objects.FragmentWriter) (objects.Iin2, bool) {
				return s.writeAttributeRead(w, h)
			}})

		default:
			kind, ok := staticKindForGroup(h.Group)
			if !ok {
				steps = append(steps, readStep{write: func(w *objects.FragmentWriter) (objects.Iin2, bool) {
					return objects.Iin2ObjectUnknown, true
				}})
				continue
			}
			switch h.Payload.Shape {
			case objects.ShapeAllObjects:
				steps = append(steps, readStep{write: func(w *objects.FragmentWriter) (objects.Iin2, bool) {
					return 0, s.writeStaticKind(w, kind)
				}})
			case objects.ShapeRange:
				start, stop := h.Payload.Range.Start, h.Payload.Range.Stop
				steps = append(steps, readStep{write: func(w *objects.FragmentWriter) (objects.Iin2, bool) {
					return 0, s.db.WriteStaticRange(w, kind, start, stop) == nil
				}})
			}
		}
	}

	if want.class1 || want.class2 || want.class3 {
		steps = append(steps, readStep{isEvents: true})
	}
	return steps, want
}

// writeReadFragment advances cont through as many steps as fit in one
// fragment, patching the response header once FIN/CON are known. A
// non-final fragment's CON is always set since the outstation must wait
// for the master's CONFIRM before sending the rest.
func (s *Session) writeReadFragment(cont *readContinuation) ([]byte, error) {
	buf := make([]byte, s.cfg.TxBufferSize)
	w := objects.NewFragmentWriter(buf)

	headerPos := w.Position()
	if err := w.WriteResponseHeader(objects.ControlField{Seq: cont.nextSeq}, objects.FuncResponse, objects.Iin{}); err != nil {
		return nil, err
	}

	var iin2 objects.Iin2
	var fragEvents []events.Event

	for cont.idx < len(cont.steps) {
		step := cont.steps[cont.idx]
		if step.isEvents {
			if !cont.selected {
				cont.events = s.selectReadEvents(cont.want)
				cont.selected = true
			}
			if len(cont.events) == 0 {
				cont.idx++
				continue
			}
			written, err := database.WriteEvents(w, cont.events, uint64(time.Now().UnixMilli()))
			if err != nil {
				iin2 |= objects.Iin2ParameterError
				cont.idx++
				continue
			}
			if len(written) == 0 {
				break // nothing fit; resume the events step in the next fragment
			}
			fragEvents = append(fragEvents, written...)
			cont.events = cont.events[len(written):]
			if len(cont.events) > 0 {
				break // partial write; the rest follows in the next fragment
			}
			cont.idx++
			continue
		}

		start := w.Position()
		stepIin2, fits := step.write(w)
		if !fits {
			w.Seek(start)
			break
		}
		iin2 |= stepIin2
		cont.idx++
	}

	done := cont.idx >= len(cont.steps)
	requiresConfirm := !done || len(fragEvents) > 0
	seq := cont.nextSeq
	resp := objects.ControlField{
		FIR: cont.fragmentsSent == 0,
		FIN: done,
		CON: requiresConfirm,
		Seq: seq,
	}
	w.PatchResponseHeader(headerPos, resp, objects.FuncResponse, s.mergeIin(objects.Iin{Iin2: iin2}))

	cont.fragmentsSent++
	cont.nextSeq = seq.Next()

	if requiresConfirm {
		s.state = StateSolConfirmWait
		s.ecsn = seq
		s.confirmDeadline = time.Now().Add(s.cfg.SolConfirmTimeout)
		s.inf.EnterSolConfirmWait(seq)
		s.pendingConfirmEvents = fragEvents
	} else {
		s.pendingConfirmEvents = nil
	}

	if done {
		s.readCont = nil
	} else {
		s.readCont = cont
	}
	return w.Written(), nil
}

// selectReadEvents gathers events from every class a READ's group 60
// headers asked for. Select is non-destructive: the events stay buffered
// until the response carrying them is actually confirmed.
func (s *Session) selectReadEvents(want wantClasses) []events.Event {
	var out []events.Event
	if want.class1 {
		out = append(out, s.buf.Select(events.Class1, 1<<20)...)
	}
	if want.class2 {
		out = append(out, s.buf.Select(events.Class2, 1<<20)...)
	}
	if want.class3 {
		out = append(out, s.buf.Select(events.Class3, 1<<20)...)
	}
	return out
}

// writeStaticKind writes every currently-known point of kind as one range
// header and reports whether it fit in the fragment.
func (s *Session) writeStaticKind(w *objects.FragmentWriter, kind objects.MeasurementKind) bool {
	indices := s.db.IndicesInRange(kind, 0, 0xFFFF)
	if len(indices) == 0 {
		return true
	}
	return s.db.WriteStaticRange(w, kind, uint32(indices[0]), uint32(indices[len(indices)-1])) == nil
}

// writeAttributeRead serves a Group 0 read against the default attribute
// set (set 0) from s.attrs. Variation 254 returns every defined attribute
// in the set, 255 returns the list of defined variation numbers, and any
// other variation returns that single attribute.
func (s *Session) writeAttributeRead(w *objects.FragmentWriter, h objects.ObjectHeader) (objects.Iin2, bool) {
	if s.attrs == nil {
		return objects.Iin2ObjectUnknown, true
	}
	const defaultSet = 0

	switch h.Variation {
	case objects.AttrReservedList:
		variations := s.attrs.VariationsInSet(defaultSet)
		if err := w.WriteAttributeHeader(objects.AttrReservedList, objects.AttrValue{
			Type: objects.AttrTypeAttrList,
			Raw:  variations,
		}); err != nil {
			return 0, false
		}
		return 0, true

	case objects.AttrReservedAll:
		var iin2 objects.Iin2
		for _, v := range s.attrs.VariationsInSet(defaultSet) {
			val, ok := s.attrs.Get(defaultSet, v)
			if !ok {
				continue
			}
			if len(val.Raw) > 0xFF {
				iin2 |= objects.Iin2ParameterError
				continue
			}
			if err := w.WriteAttributeHeader(v, val); err != nil {
				return 0, false
			}
		}
		return iin2, true

	default:
		val, ok := s.attrs.Get(defaultSet, h.Variation)
		if !ok {
			return objects.Iin2ObjectUnknown, true
		}
		if len(val.Raw) > 0xFF {
			return objects.Iin2ParameterError, true
		}
		if err := w.WriteAttributeHeader(h.Variation, val); err != nil {
			return 0, false
		}
		return 0, true
	}
}

func staticKindForGroup(group byte) (objects.MeasurementKind, bool) {
	switch group {
	case 1:
		return objects.KindBinaryInput, true
	case 3:
		return objects.KindDoubleBitBinary, true
	case 10:
		return objects.KindBinaryOutputStatus, true
	case 20:
		return objects.KindCounter, true
	case 21:
		return objects.KindFrozenCounter, true
	case 30:
		return objects.KindAnalogInput, true
	case 40:
		return objects.KindAnalogOutputStatus, true
	default:
		return 0, false
	}
}
