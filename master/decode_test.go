package master

import (
	"testing"

	"github.com/marrasen/go-dnp3/database"
	"github.com/marrasen/go-dnp3/events"
	"github.com/marrasen/go-dnp3/objects"
)

func TestKindForGroup(t *testing.T) {
	cases := map[byte]objects.MeasurementKind{
		1:  objects.KindBinaryInput,
		2:  objects.KindBinaryInput,
		30: objects.KindAnalogInput,
		32: objects.KindAnalogInput,
	}
	for group, want := range cases {
		got, ok := kindForGroup(group)
		if !ok || got != want {
			t.Fatalf("kindForGroup(%d) = (%v, %v), want (%v, true)", group, got, ok, want)
		}
	}
	if _, ok := kindForGroup(99); ok {
		t.Fatal("expected an unknown group to report false")
	}
}

func TestDecodeHeader_BitPackedRange(t *testing.T) {
	buf := events.NewBuffer(nil)
	db := database.New(buf)
	db.AddPoint(0, database.PointConfig{Kind: objects.KindBinaryInput, StaticVariation: objects.GroupVariation{Group: 1, Variation: 1}},
		objects.Measurement{Kind: objects.KindBinaryInput, Bool: true})
	db.AddPoint(1, database.PointConfig{Kind: objects.KindBinaryInput, StaticVariation: objects.GroupVariation{Group: 1, Variation: 1}},
		objects.Measurement{Kind: objects.KindBinaryInput, Bool: false})
	db.AddPoint(2, database.PointConfig{Kind: objects.KindBinaryInput, StaticVariation: objects.GroupVariation{Group: 1, Variation: 1}},
		objects.Measurement{Kind: objects.KindBinaryInput, Bool: true})

	fragBuf := make([]byte, 64)
	w := objects.NewFragmentWriter(fragBuf)
	if err := db.WriteStaticRange(w, objects.KindBinaryInput, 0, 2); err != nil {
		t.Fatalf("WriteStaticRange: %v", err)
	}

	parsed, err := objects.ParseResponseFragment(objects.ControlField{}, objects.FuncResponse, append([]byte{0, 0}, w.Written()...))
	if err != nil {
		t.Fatalf("ParseResponseFragment: %v", err)
	}

	got := map[uint16]bool{}
	if err := decodeHeader(parsed.Objects.Headers[0], func(index uint16, v objects.Value) {
		got[index] = v.Bool
	}); err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	want := map[uint16]bool{0: true, 1: false, 2: true}
	for idx, v := range want {
		if got[idx] != v {
			t.Fatalf("index %d: got %v, want %v (full: %+v)", idx, got[idx], v, got)
		}
	}
}

func TestDecodeHeader_CountAndPrefix(t *testing.T) {
	info, ok := objects.Lookup(30, 1)
	if !ok {
		t.Fatal("group 30 variation 1 missing from registry")
	}

	buf1 := make([]byte, 10)
	oc1 := objects.NewWriteCursor(buf1)
	if err := objects.WriteFixedValue(oc1, info, objects.Value{Flags: objects.FlagOnline, U32: 7}); err != nil {
		t.Fatalf("WriteFixedValue: %v", err)
	}

	fragBuf := make([]byte, 64)
	w := objects.NewFragmentWriter(fragBuf)
	control := objects.ControlField{FIR: true, FIN: true, Seq: 0}
	if err := w.WriteRequestHeader(control, objects.FuncResponse); err != nil {
		t.Fatalf("WriteRequestHeader: %v", err)
	}
	if _, err := w.WritePrefixedHeader(30, 1, []objects.PrefixedObject{
		{Prefix: 5, Bytes: oc1.Written()},
	}); err != nil {
		t.Fatalf("WritePrefixedHeader: %v", err)
	}

	parsed, err := objects.ParseRequestFragment(control, objects.FuncResponse, w.Written()[2:])
	if err != nil {
		t.Fatalf("ParseRequestFragment: %v", err)
	}

	var gotIndex uint16
	var gotValue objects.Value
	n := 0
	if err := decodeHeader(parsed.Objects.Headers[0], func(index uint16, v objects.Value) {
		gotIndex, gotValue = index, v
		n++
	}); err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 decoded object, got %d", n)
	}
	if gotIndex != 5 || gotValue.U32 != 7 {
		t.Fatalf("unexpected decode: index=%d value=%+v", gotIndex, gotValue)
	}
}
