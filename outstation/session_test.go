package outstation

import (
	"testing"

	"github.com/marrasen/go-dnp3/database"
	"github.com/marrasen/go-dnp3/events"
	"github.com/marrasen/go-dnp3/logdec"
	"github.com/marrasen/go-dnp3/objects"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	buf := events.NewBuffer(map[events.Class]int{events.Class1: 10})
	db := database.New(buf)
	db.AddPoint(0, database.PointConfig{Kind: objects.KindBinaryInput, Class: events.Class1},
		objects.Measurement{Kind: objects.KindBinaryInput, Bool: true})
	cfg := DefaultConfig(1, 2)
	s := NewSession(cfg, nil, nil, nil, db, buf, logdec.NewLogger("test", logdec.NewDecodeLevel()))
	s.state = StateIdle
	return s
}

func buildClass1Read(t *testing.T, seq objects.Sequence) []byte {
	t.Helper()
	buf := make([]byte, 64)
	w := objects.NewFragmentWriter(buf)
	control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
	if err := w.WriteRequestHeader(control, objects.FuncRead); err != nil {
		t.Fatalf("WriteRequestHeader: %v", err)
	}
	if err := w.WriteAllObjectsHeader(60, 2); err != nil {
		t.Fatalf("WriteAllObjectsHeader: %v", err)
	}
	return w.Written()
}

func TestSession_ReadWithEventsEntersSolConfirmWait(t *testing.T) {
	s := newTestSession(t)
	s.buf.Add(events.Event{Index: 0, Kind: objects.KindBinaryInput, Variation: objects.GroupVariation{Group: 2, Variation: 1}, Class: events.Class1, Value: objects.Value{Bool: true}})

	resp, _, err := s.HandleFragment(buildClass1Read(t, 1), false, objects.BroadcastConfirmMode{})
	if err != nil {
		t.Fatalf("HandleFragment: %v", err)
	}
	control := objects.ParseControlField(resp[0])
	if !control.CON {
		t.Fatalf("expected CON set on a response carrying events")
	}
	if s.state != StateSolConfirmWait {
		t.Fatalf("expected StateSolConfirmWait, got %v", s.state)
	}
	if n := s.buf.Count(events.Class1); n != 1 {
		t.Fatalf("events should remain buffered until CONFIRM, got %d buffered", n)
	}
}

func TestSession_DuplicateReadReplaysResponse(t *testing.T) {
	s := newTestSession(t)

	req := buildClass1Read(t, 2)
	first, _, err := s.HandleFragment(req, false, objects.BroadcastConfirmMode{})
	if err != nil {
		t.Fatalf("HandleFragment (first): %v", err)
	}

	// Resolve the pending confirm so classification for the repeat isn't
	// confused by leftover SolConfirmWait state from the first response.
	s.state = StateIdle

	second, _, err := s.HandleFragment(req, false, objects.BroadcastConfirmMode{})
	if err != nil {
		t.Fatalf("HandleFragment (repeat): %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("expected a duplicate request to replay the identical response")
	}
}

func TestSession_NewRequestAbortsOutstandingConfirm(t *testing.T) {
	s := newTestSession(t)
	s.buf.Add(events.Event{Index: 0, Kind: objects.KindBinaryInput, Variation: objects.GroupVariation{Group: 2, Variation: 1}, Class: events.Class1, Value: objects.Value{Bool: true}})

	if _, _, err := s.HandleFragment(buildClass1Read(t, 3), false, objects.BroadcastConfirmMode{}); err != nil {
		t.Fatalf("HandleFragment: %v", err)
	}
	if s.state != StateSolConfirmWait {
		t.Fatalf("expected StateSolConfirmWait after the first read, got %v", s.state)
	}

	// The event stays buffered until confirmed, so another class-1 read
	// would itself require a confirm; a class-0 read carries no events.
	integrity := make([]byte, 64)
	w := objects.NewFragmentWriter(integrity)
	if err := w.WriteRequestHeader(objects.ControlField{FIR: true, FIN: true, Seq: 4}, objects.FuncRead); err != nil {
		t.Fatalf("WriteRequestHeader: %v", err)
	}
	if err := w.WriteAllObjectsHeader(60, 1); err != nil {
		t.Fatalf("WriteAllObjectsHeader: %v", err)
	}
	if _, _, err := s.HandleFragment(w.Written(), false, objects.BroadcastConfirmMode{}); err != nil {
		t.Fatalf("HandleFragment: %v", err)
	}
	if s.state == StateSolConfirmWait {
		t.Fatalf("a new request should abort the outstanding confirm wait, not extend it")
	}
}
