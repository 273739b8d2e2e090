package database

import (
	"testing"

	"github.com/marrasen/go-dnp3/events"
	"github.com/marrasen/go-dnp3/objects"
)

func TestDatabase_UpdateGeneratesEventOnChange(t *testing.T) {
	buf := events.NewBuffer(map[events.Class]int{events.Class1: 10})
	db := New(buf)
	db.AddPoint(1, PointConfig{Kind: objects.KindBinaryInput, Class: events.Class1}, objects.Measurement{Kind: objects.KindBinaryInput, Bool: false})

	db.Update(objects.KindBinaryInput, 1, objects.Measurement{Kind: objects.KindBinaryInput, Bool: false})
	if buf.Count(events.Class1) != 0 {
		t.Fatalf("expected no event for an unchanged value, got %d", buf.Count(events.Class1))
	}

	db.Update(objects.KindBinaryInput, 1, objects.Measurement{Kind: objects.KindBinaryInput, Bool: true})
	if buf.Count(events.Class1) != 1 {
		t.Fatalf("expected 1 event after a value change, got %d", buf.Count(events.Class1))
	}
}

func TestDatabase_DeadBandSuppressesSmallChanges(t *testing.T) {
	buf := events.NewBuffer(map[events.Class]int{events.Class1: 10})
	db := New(buf)
	db.AddPoint(1, PointConfig{Kind: objects.KindAnalogInput, Class: events.Class1, DeadBand: 5.0},
		objects.Measurement{Kind: objects.KindAnalogInput, F64: 100})

	db.Update(objects.KindAnalogInput, 1, objects.Measurement{Kind: objects.KindAnalogInput, F64: 102})
	if buf.Count(events.Class1) != 0 {
		t.Fatalf("expected dead-band to suppress a small change, got %d events", buf.Count(events.Class1))
	}

	db.Update(objects.KindAnalogInput, 1, objects.Measurement{Kind: objects.KindAnalogInput, F64: 110})
	if buf.Count(events.Class1) != 1 {
		t.Fatalf("expected an event once the change exceeds the dead-band, got %d", buf.Count(events.Class1))
	}
}

func TestDatabase_WriteStaticRangeBitPacked(t *testing.T) {
	buf := events.NewBuffer(nil)
	db := New(buf)
	db.AddPoint(0, PointConfig{Kind: objects.KindBinaryInput, StaticVariation: objects.GroupVariation{Group: 1, Variation: 1}},
		objects.Measurement{Kind: objects.KindBinaryInput, Bool: true})
	db.AddPoint(1, PointConfig{Kind: objects.KindBinaryInput, StaticVariation: objects.GroupVariation{Group: 1, Variation: 1}},
		objects.Measurement{Kind: objects.KindBinaryInput, Bool: false})

	wbuf := make([]byte, 64)
	w := objects.NewFragmentWriter(wbuf)
	if err := db.WriteStaticRange(w, objects.KindBinaryInput, 0, 1); err != nil {
		t.Fatalf("WriteStaticRange: %v", err)
	}

	parsed, err := objects.ParseResponseFragment(objects.ControlField{}, objects.FuncResponse, append([]byte{0, 0}, w.Written()...))
	if err != nil {
		t.Fatalf("ParseResponseFragment: %v", err)
	}
	if len(parsed.Objects.Headers) != 1 {
		t.Fatalf("expected 1 header, got %d", len(parsed.Objects.Headers))
	}
	h := parsed.Objects.Headers[0]
	if h.Group != 1 || h.Variation != 1 {
		t.Fatalf("unexpected group/variation: %+v", h)
	}
	if len(h.RawObjects) != 1 {
		t.Fatalf("expected 1 packed byte for 2 single-bit objects, got %d", len(h.RawObjects))
	}
	if h.RawObjects[0]&0x01 == 0 {
		t.Fatalf("expected index 0 bit set: %08b", h.RawObjects[0])
	}
	if h.RawObjects[0]&0x02 != 0 {
		t.Fatalf("expected index 1 bit clear: %08b", h.RawObjects[0])
	}
}
