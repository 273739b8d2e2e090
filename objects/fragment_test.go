package objects

import "testing"

func TestFragmentWriter_RangeHeaderRoundTrip(t *testing.T) {
	info, ok := Lookup(30, 1)
	if !ok {
		t.Fatal("group 30 variation 1 missing from registry")
	}

	objBuf := make([]byte, 10)
	oc := NewWriteCursor(objBuf)
	if err := WriteFixedValue(oc, info, Value{Flags: FlagOnline, U32: 42}); err != nil {
		t.Fatalf("WriteFixedValue: %v", err)
	}
	if err := WriteFixedValue(oc, info, Value{Flags: FlagOnline, U32: 43}); err != nil {
		t.Fatalf("WriteFixedValue: %v", err)
	}

	buf := make([]byte, 64)
	w := NewFragmentWriter(buf)
	control := ControlField{FIR: true, FIN: true, Seq: 5}
	if err := w.WriteRequestHeader(control, FuncResponse); err != nil {
		t.Fatalf("WriteRequestHeader: %v", err)
	}
	rng, err := NewRange(7, 8)
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	if err := w.WriteRangeHeader(30, 1, rng, oc.Written()); err != nil {
		t.Fatalf("WriteRangeHeader: %v", err)
	}

	parsed, err := ParseRequestFragment(control, FuncResponse, w.Written()[2:])
	if err != nil {
		t.Fatalf("ParseRequestFragment: %v", err)
	}
	if len(parsed.Objects.Headers) != 1 {
		t.Fatalf("expected 1 header, got %d", len(parsed.Objects.Headers))
	}
	h := parsed.Objects.Headers[0]
	if h.Group != 30 || h.Variation != 1 {
		t.Fatalf("unexpected group/variation: %+v", h)
	}
	if h.Payload.Range.Start != 7 || h.Payload.Range.Stop != 8 {
		t.Fatalf("unexpected range: %+v", h.Payload.Range)
	}

	cur := NewReadCursor(h.RawObjects)
	v1, err := ReadFixedValue(cur, h.Info)
	if err != nil {
		t.Fatalf("ReadFixedValue[0]: %v", err)
	}
	v2, err := ReadFixedValue(cur, h.Info)
	if err != nil {
		t.Fatalf("ReadFixedValue[1]: %v", err)
	}
	if v1.U32 != 42 || v2.U32 != 43 {
		t.Fatalf("unexpected decoded values: %+v %+v", v1, v2)
	}
}

func TestFragmentWriter_AllObjectsAndPrefixedHeaders(t *testing.T) {
	buf := make([]byte, 64)
	w := NewFragmentWriter(buf)
	control := ControlField{FIR: true, FIN: true, Seq: 1}
	if err := w.WriteRequestHeader(control, FuncRead); err != nil {
		t.Fatalf("WriteRequestHeader: %v", err)
	}
	if err := w.WriteAllObjectsHeader(60, 1); err != nil {
		t.Fatalf("WriteAllObjectsHeader: %v", err)
	}

	n, err := w.WritePrefixedHeader(12, 1, []PrefixedObject{
		{Prefix: 3, Bytes: []byte{0x03, 0x01, 0x64, 0x00, 0x00, 0x00, 0x64, 0x00, 0x00, 0x00, 0x00}},
	})
	if err != nil {
		t.Fatalf("WritePrefixedHeader: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 item written, got %d", n)
	}

	parsed, err := ParseRequestFragment(control, FuncRead, w.Written()[2:])
	if err != nil {
		t.Fatalf("ParseRequestFragment: %v", err)
	}
	if len(parsed.Objects.Headers) != 2 {
		t.Fatalf("expected 2 headers, got %d", len(parsed.Objects.Headers))
	}
	if parsed.Objects.Headers[0].Group != 60 || parsed.Objects.Headers[0].Payload.Shape != ShapeAllObjects {
		t.Fatalf("unexpected first header: %+v", parsed.Objects.Headers[0])
	}
	second := parsed.Objects.Headers[1]
	if second.Group != 12 || len(second.Payload.Prefixed) != 1 {
		t.Fatalf("unexpected second header: %+v", second)
	}
	if second.Payload.Prefixed[0].Prefix != 3 {
		t.Fatalf("unexpected prefix: %d", second.Payload.Prefixed[0].Prefix)
	}
}

func TestFragmentWriter_RollsBackOnOverflow(t *testing.T) {
	buf := make([]byte, 4) // control+function plus 2 bytes, too few for a 3-byte object header
	w := NewFragmentWriter(buf)
	control := ControlField{FIR: true, FIN: true, Seq: 0}
	if err := w.WriteRequestHeader(control, FuncRead); err != nil {
		t.Fatalf("WriteRequestHeader: %v", err)
	}
	before := w.Written()
	beforeLen := len(before)

	if err := w.WriteAllObjectsHeader(60, 1); err == nil {
		t.Fatal("expected overflow error")
	}
	if len(w.Written()) != beforeLen {
		t.Fatalf("cursor did not roll back: before=%d after=%d", beforeLen, len(w.Written()))
	}
}
