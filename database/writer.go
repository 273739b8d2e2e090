// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package database

import (
	"github.com/marrasen/go-dnp3/events"
	"github.com/marrasen/go-dnp3/objects"
)

// WriteStaticRange encodes every point of kind in [start, stop] as one
// range header using the configured static variation, bit-packing binary
// groups. All points in the range must share the same static variation;
// callers split by variation before calling this (promotion across
// variations within one range is out of scope).
func (d *Database) WriteStaticRange(w *objects.FragmentWriter, kind objects.MeasurementKind, start, stop uint32) error {
	d.mu.Lock()
	indices := d.indicesInRangeLocked(kind, start, stop)
	if len(indices) == 0 {
		d.mu.Unlock()
		return nil
	}
	gv, _ := d.staticVariationLocked(kind, indices[0])
	info, _ := objects.Lookup(gv.Group, gv.Variation)

	r, err := objects.NewRange(uint32(indices[0]), uint32(indices[len(indices)-1]))
	if err != nil {
		d.mu.Unlock()
		return err
	}

	var objBytes []byte
	if info.IsBitPacked() {
		objBytes = d.packBitsLocked(kind, indices, info)
	} else {
		objBytes = make([]byte, 0, info.FixedSize*r.Count())
		idxSet := make(map[uint16]bool, len(indices))
		for _, idx := range indices {
			idxSet[idx] = true
		}
		for addr := r.Start; addr <= r.Stop; addr++ {
			idx := uint16(addr)
			var v objects.Value
			if idxSet[idx] {
				v = toValue(d.points[kind][idx].current)
			}
			buf := make([]byte, info.FixedSize)
			wc := objects.NewWriteCursor(buf)
			if err := objects.WriteFixedValue(wc, info, v); err != nil {
				d.mu.Unlock()
				return err
			}
			objBytes = append(objBytes, buf...)
		}
	}
	d.mu.Unlock()
	return w.WriteRangeHeader(gv.Group, gv.Variation, r, objBytes)
}

func (d *Database) indicesInRangeLocked(kind objects.MeasurementKind, start, stop uint32) []uint16 {
	out := d.IndicesInRange(kind, start, stop)
	return out
}

func (d *Database) staticVariationLocked(kind objects.MeasurementKind, index uint16) (objects.GroupVariation, bool) {
	table := d.points[kind]
	if table == nil {
		return objects.GroupVariation{}, false
	}
	p, ok := table[index]
	if !ok {
		return objects.GroupVariation{}, false
	}
	return p.cfg.StaticVariation, true
}

// packBitsLocked packs a contiguous address range of 1- or 2-bit objects
// (Groups 1, 3, 10) into bytes, LSB-first within each byte.
func (d *Database) packBitsLocked(kind objects.MeasurementKind, indices []uint16, info objects.VariationInfo) []byte {
	start, stop := indices[0], indices[len(indices)-1]
	count := int(stop-start) + 1
	totalBits := count * info.BitsPerObject
	out := make([]byte, (totalBits+7)/8)
	table := d.points[kind]
	bitPos := 0
	for addr := start; addr <= stop; addr++ {
		var bits uint8
		if p, ok := table[addr]; ok {
			switch info.BitsPerObject {
			case 1:
				if p.current.Bool {
					bits = 1
				}
			case 2:
				bits = uint8(p.current.Double)
			}
		}
		byteIdx := bitPos / 8
		shift := uint(bitPos % 8)
		out[byteIdx] |= bits << shift
		bitPos += info.BitsPerObject
	}
	return out
}

func toValue(m objects.Measurement) objects.Value {
	return objects.Value{
		Flags:  m.Flags,
		Time:   m.Time,
		Bool:   m.Bool,
		Double: m.Double,
		U32:    m.U32,
		F64:    m.F64,
		Octets: m.Octets,
	}
}

// WriteEvents encodes a run of previously-selected events as
// count-and-prefix headers, chunking evs into maximal runs of the same
// (group, variation) so objects of different variations never share a
// header. CTO event variations (g2v3/g4v3) emit a leading g51v1 CTO
// preamble header using ctoReference as the base time.
//
// evs may not all fit in w: WriteEvents stops at the first header or
// object that doesn't fit and returns the events actually encoded, which
// is always a prefix of evs. The caller resumes with the remainder
// (evs[len(written):]) in a later fragment.
func WriteEvents(w *objects.FragmentWriter, evs []events.Event, ctoReference uint64) ([]events.Event, error) {
	if len(evs) == 0 {
		return nil, nil
	}

	usesCTO := false
	for _, e := range evs {
		if info, ok := objects.Lookup(e.Variation.Group, e.Variation.Variation); ok && info.Time == objects.TimeDeltaCTO16 {
			usesCTO = true
			break
		}
	}

	var written []events.Event
	ctoWritten := false

	for i := 0; i < len(evs); {
		gv := evs[i].Variation
		j := i + 1
		for j < len(evs) && evs[j].Variation == gv {
			j++
		}
		run := evs[i:j]

		if usesCTO && !ctoWritten {
			buf := make([]byte, 6)
			wc := objects.NewWriteCursor(buf)
			if err := wc.WriteTime48(ctoReference); err != nil {
				return written, err
			}
			if err := w.WriteCountedObjectsHeader(51, 1, 1, buf); err != nil {
				return written, nil // preamble didn't fit; resume from here next fragment
			}
			ctoWritten = true
		}

		info, _ := objects.Lookup(gv.Group, gv.Variation)
		objs := make([]objects.PrefixedObject, 0, len(run))
		for _, e := range run {
			buf := make([]byte, info.FixedSize)
			wc := objects.NewWriteCursor(buf)
			v := e.Value
			if info.Time == objects.TimeDeltaCTO16 {
				v.U16 = deltaFromReference(e.Value.Time.Value, ctoReference)
			}
			if err := objects.WriteFixedValue(wc, info, v); err != nil {
				return written, err
			}
			objs = append(objs, objects.PrefixedObject{Prefix: uint32(e.Index), Bytes: buf})
		}

		n, err := w.WritePrefixedHeader(gv.Group, gv.Variation, objs)
		if err != nil {
			return written, nil // nothing in this run fit; resume from here next fragment
		}
		written = append(written, run[:n]...)
		if n < len(run) {
			return written, nil // run only partially fit; resume with the rest next fragment
		}
		i = j
	}
	return written, nil
}

func deltaFromReference(eventMs, referenceMs uint64) uint16 {
	if eventMs < referenceMs {
		return 0
	}
	delta := eventMs - referenceMs
	if delta > 0xFFFF {
		return 0xFFFF
	}
	return uint16(delta)
}
