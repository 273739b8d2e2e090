// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package objects

// FragmentWriter builds one application fragment into a caller-owned
// buffer. Every WriteXxx method is transactional: on failure the cursor is
// rolled back to its position before the call, so a caller can stop at the
// first header that doesn't fit and flush what succeeded.
type FragmentWriter struct {
	cur *WriteCursor
}

// NewFragmentWriter wraps buf for building one fragment.
func NewFragmentWriter(buf []byte) *FragmentWriter {
	return &FragmentWriter{cur: NewWriteCursor(buf)}
}

// Written returns the bytes written so far.
func (w *FragmentWriter) Written() []byte { return w.cur.Written() }

// Remaining returns the number of free bytes left in the buffer.
func (w *FragmentWriter) Remaining() int { return w.cur.Remaining() }

// Position returns the current write offset, for a caller that wants to
// roll back more than one header write (WriteXxx methods only roll back
// their own call on failure).
func (w *FragmentWriter) Position() int { return w.cur.Position() }

// Seek discards everything written since pos, letting a caller abandon a
// group of header writes atomically and retry them in a later fragment.
func (w *FragmentWriter) Seek(pos int) { w.cur.Seek(pos) }

// PatchResponseHeader overwrites the 4-byte response header previously
// reserved by WriteResponseHeader at pos. Used when the final control
// bits or IIN can only be known after the response body has been built
// (e.g. whether the fragment turned out to be the last one).
func (w *FragmentWriter) PatchResponseHeader(pos int, control ControlField, function FunctionCode, iin Iin) {
	w.cur.buf[pos] = control.Value()
	w.cur.buf[pos+1] = byte(function)
	v := iin.Value()
	w.cur.buf[pos+2] = v[0]
	w.cur.buf[pos+3] = v[1]
}

// WriteRequestHeader writes the two-byte application-layer request header
// (control byte, function code).
func (w *FragmentWriter) WriteRequestHeader(control ControlField, function FunctionCode) error {
	start := w.cur.Position()
	if err := w.cur.WriteU8(control.Value()); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteU8(byte(function)); err != nil {
		w.cur.Seek(start)
		return err
	}
	return nil
}

// WriteResponseHeader writes the three-field application-layer response
// header (control byte, function code, 2-byte IIN).
func (w *FragmentWriter) WriteResponseHeader(control ControlField, function FunctionCode, iin Iin) error {
	start := w.cur.Position()
	if err := w.WriteRequestHeader(control, function); err != nil {
		return err
	}
	v := iin.Value()
	if err := w.cur.WriteU8(v[0]); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteU8(v[1]); err != nil {
		w.cur.Seek(start)
		return err
	}
	return nil
}

// WriteAllObjectsHeader writes a group/variation header with the
// all-objects qualifier and no payload, used for class polls and
// integrity-poll group 60 headers.
func (w *FragmentWriter) WriteAllObjectsHeader(group, variation byte) error {
	start := w.cur.Position()
	if err := w.writeGVQ(group, variation, Qualifier8BitAllObjects); err != nil {
		w.cur.Seek(start)
		return err
	}
	return nil
}

// WriteCountOnlyHeader writes a group/variation header with a plain count
// qualifier and no object bytes after the count.
func (w *FragmentWriter) WriteCountOnlyHeader(group, variation byte, count int) error {
	start := w.cur.Position()
	qualifier := Qualifier8BitCount
	width := 1
	if count > 0xFF {
		qualifier, width = Qualifier16BitCount, 2
	}
	if err := w.writeGVQ(group, variation, qualifier); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteUintAt(width, uint32(count)); err != nil {
		w.cur.Seek(start)
		return err
	}
	return nil
}

// WriteCountedObjectsHeader writes a count-qualifier header followed by
// objBytes, the pre-encoded payload for count objects (used for the
// Group 51 CTO preamble, which is logically "count=1" but still carries a
// fixed-size object, unlike freeze commands which carry none).
func (w *FragmentWriter) WriteCountedObjectsHeader(group, variation byte, count int, objBytes []byte) error {
	start := w.cur.Position()
	qualifier := Qualifier8BitCount
	width := 1
	if count > 0xFF {
		qualifier, width = Qualifier16BitCount, 2
	}
	if err := w.writeGVQ(group, variation, qualifier); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteUintAt(width, uint32(count)); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteBytes(objBytes); err != nil {
		w.cur.Seek(start)
		return err
	}
	return nil
}

// WriteRangeHeader writes a start-stop range header followed by the
// pre-encoded object bytes for that range (caller has already packed
// bit-packed or fixed objects via WriteFixedValue).
func (w *FragmentWriter) WriteRangeHeader(group, variation byte, r Range, objBytes []byte) error {
	start := w.cur.Position()
	qualifier := Qualifier8BitStartStop
	width := 1
	if r.Start > 0xFF || r.Stop > 0xFF {
		qualifier, width = Qualifier16BitStartStop, 2
	}
	if err := w.writeGVQ(group, variation, qualifier); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteUintAt(width, r.Start); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteUintAt(width, r.Stop); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteBytes(objBytes); err != nil {
		w.cur.Seek(start)
		return err
	}
	return nil
}

// PrefixedObject is one object to encode under a CountAndPrefix header.
type PrefixedObject struct {
	Prefix uint32
	Bytes  []byte
}

// WritePrefixedHeader writes a count-and-prefix header with items, used
// for event reporting and command-object echoes. If appending all items
// would overflow the buffer, it writes as many whole items as fit and
// returns the number written; callers continue the remainder in a
// subsequent fragment.
func (w *FragmentWriter) WritePrefixedHeader(group, variation byte, items []PrefixedObject) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	headerStart := w.cur.Position()
	width := 1
	for _, it := range items {
		if it.Prefix > 0xFF {
			width = 2
			break
		}
	}
	qualifier := Qualifier8BitCountPrefix
	if width == 2 {
		qualifier = Qualifier16BitCountPrefix
	}

	written := 0
	countPos := headerStart
	if err := w.writeGVQ(group, variation, qualifier); err != nil {
		w.cur.Seek(headerStart)
		return 0, err
	}
	countPos = w.cur.Position()
	if err := w.cur.WriteUintAt(width, 0); err != nil { // placeholder, patched below
		w.cur.Seek(headerStart)
		return 0, err
	}

	for _, it := range items {
		itemStart := w.cur.Position()
		if err := w.cur.WriteUintAt(width, it.Prefix); err != nil {
			w.cur.Seek(itemStart)
			break
		}
		if err := w.cur.WriteBytes(it.Bytes); err != nil {
			w.cur.Seek(itemStart)
			break
		}
		written++
	}

	if written == 0 {
		w.cur.Seek(headerStart)
		return 0, &WriteError{Reason: "no room for any prefixed item"}
	}

	end := w.cur.Position()
	patchUintAt(w.cur.buf[countPos:], width, uint32(written))
	w.cur.pos = end
	return written, nil
}

// WriteFreeFormatHeader writes a Group 70 length-prefixed object.
func (w *FragmentWriter) WriteFreeFormatHeader(variation byte, payload []byte) error {
	start := w.cur.Position()
	if err := w.writeGVQ(70, variation, QualifierFreeFormat16); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteU16LE(uint16(len(payload))); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteBytes(payload); err != nil {
		w.cur.Seek(start)
		return err
	}
	return nil
}

// WriteAttributeHeader writes a Group 0 header with count qualifier and
// one self-length-prefixed attribute object.
func (w *FragmentWriter) WriteAttributeHeader(variation byte, v AttrValue) error {
	start := w.cur.Position()
	if err := w.writeGVQ(0, variation, Qualifier8BitCount); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteU8(1); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteU8(byte(v.Type)); err != nil {
		w.cur.Seek(start)
		return err
	}
	if len(v.Raw) > 0xFF {
		w.cur.Seek(start)
		return &WriteError{Reason: "attribute value too long"}
	}
	if err := w.cur.WriteU8(byte(len(v.Raw))); err != nil {
		w.cur.Seek(start)
		return err
	}
	if err := w.cur.WriteBytes(v.Raw); err != nil {
		w.cur.Seek(start)
		return err
	}
	return nil
}

func (w *FragmentWriter) writeGVQ(group, variation byte, q QualifierCode) error {
	if err := w.cur.WriteU8(group); err != nil {
		return err
	}
	if err := w.cur.WriteU8(variation); err != nil {
		return err
	}
	return w.cur.WriteU8(byte(q))
}

// patchUintAt overwrites a previously-written placeholder count in place.
func patchUintAt(buf []byte, width int, v uint32) {
	switch width {
	case 1:
		buf[0] = byte(v)
	case 2:
		buf[0] = byte(v)
		buf[1] = byte(v >> 8)
	}
}
