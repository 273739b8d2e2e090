// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package outstation

import (
	"sync"
	"time"

	"github.com/marrasen/go-dnp3/database"
	"github.com/marrasen/go-dnp3/events"
	"github.com/marrasen/go-dnp3/logdec"
	"github.com/marrasen/go-dnp3/objects"
	"github.com/marrasen/go-dnp3/objects/attr"
)

// State is the outstation's confirm-wait state machine.
type State int

const (
	StateNullRequired State = iota
	StateIdle
	StateSolConfirmWait
	StateUnsolConfirmWait
)

func (s State) String() string {
	switch s {
	case StateNullRequired:
		return "NullRequired"
	case StateSolConfirmWait:
		return "SolConfirmWait"
	case StateUnsolConfirmWait:
		return "UnsolConfirmWait"
	default:
		return "Idle"
	}
}

// selectRecord is the outcome of a SELECT, checked by the following OPERATE.
type selectRecord struct {
	valid     bool
	sequence  objects.Sequence
	frameId   uint64
	headerHash objects.Fingerprint
	at        time.Time
}

// lastRequest records the most recently processed non-duplicate request,
// for the repeat-request classification rule.
type lastRequest struct {
	valid       bool
	key         objects.RequestKey
	responseRaw []byte // last non-read response bytes, for repeat-non-read echo
	isRead      bool
}

// Session is the per-association outstation state machine. It holds no
// reference to a transport; Run (in run.go) drives it against one.
type Session struct {
	mu sync.Mutex

	cfg Config
	app Application
	ctl ControlHandler
	inf Information

	db  *database.Database
	buf *events.Buffer

	attrs *attr.Store // nil if the application defined no device attributes

	log logdec.Logger

	state   State
	ecsn    objects.Sequence // sequence of the response awaiting confirm
	sel     selectRecord
	last    lastRequest
	frameId uint64 // monotonic count of frames received, for SELECT/OPERATE frame-id matching

	iin objects.Iin

	unsolSeq objects.Sequence // next sequence to use for an unsolicited response

	readCont             *readContinuation // remaining fragments of a multi-fragment READ response, nil when none in flight
	pendingConfirmEvents []events.Event    // events carried by the fragment awaiting confirm, removed from buf once confirmed

	confirmDeadline time.Time // SolConfirmWait/UnsolConfirmWait expiry, zero when not waiting
	unsolRetries    int       // unsolicited retries attempted so far in the current series
	nullRetries     int       // NULL-unsolicited retries attempted during NullRequired
}

// NewSession constructs a Session bound to db/buf and the user-supplied
// callback interfaces. inf may be nil, in which case NopInformation is used.
func NewSession(cfg Config, app Application, ctl ControlHandler, inf Information, db *database.Database, buf *events.Buffer, log logdec.Logger) *Session {
	if inf == nil {
		inf = NopInformation{}
	}
	return &Session{
		cfg:   cfg,
		app:   app,
		ctl:   ctl,
		inf:   inf,
		db:    db,
		buf:   buf,
		log:   log,
		state: StateNullRequired,
	}
}

// SetAttributes binds store as this session's Group 0 device-attribute
// catalogue; reads of attribute variations 0-253, 254 (all), and 255
// (list of variations) are served from it. A Session with no store set
// reports IIN2.OBJECT_UNKNOWN for every Group 0 read.
func (s *Session) SetAttributes(store *attr.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = store
}

// classification is the result of classifying one inbound request
// fragment against duplicate-detection and confirm-wait state.
type classification int

const (
	classNew classification = iota
	classRepeatRead
	classRepeatNonRead
	classConfirmForSol
	classConfirmForUnsol
	classConfirmStale
	classBroadcast
)

// classify implements the request-classification table: confirms, repeat
// requests, broadcasts, and genuinely new requests are each handled
// differently.
func (s *Session) classify(control objects.ControlField, function objects.FunctionCode, isBroadcast bool, key objects.RequestKey) classification {
	if function == objects.FuncConfirm {
		switch s.state {
		case StateSolConfirmWait:
			if control.Seq.Value() == s.ecsn.Value() {
				return classConfirmForSol
			}
		case StateUnsolConfirmWait:
			if control.Seq.Value() == s.ecsn.Value() {
				return classConfirmForUnsol
			}
		}
		return classConfirmStale
	}
	if isBroadcast {
		return classBroadcast
	}
	if s.last.valid && s.last.key.Matches(key) {
		if s.last.isRead {
			return classRepeatRead
		}
		return classRepeatNonRead
	}
	return classNew
}

// HandleFragment processes one inbound application fragment (already
// de-segmented by the transport) and returns the bytes of a response to
// send, or nil if no response is warranted (a bare CONFIRM, or a
// broadcast). HandleFragment makes the state-machine transitions itself;
// the caller (run.go) is responsible for actually writing the response.
func (s *Session) HandleFragment(raw []byte, isBroadcast bool, confirmMode objects.BroadcastConfirmMode) (response []byte, outcome Outcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameId++

	if len(raw) < 2 {
		return nil, Outcome{}, &objects.ObjectParseError{Kind: objects.InsufficientBytes}
	}
	control := objects.ParseControlField(raw[0])
	function := objects.FunctionCode(raw[1])
	objBytes := raw[2:]
	key := objects.RequestKey{Seq: control.Seq, Fingerprint: objects.ComputeFingerprint(objBytes)}

	class := s.classify(control, function, isBroadcast, key)

	switch class {
	case classConfirmForSol:
		s.state = StateIdle
		s.confirmDeadline = time.Time{}
		s.buf.ClearOverflow()
		if len(s.pendingConfirmEvents) > 0 {
			s.buf.Remove(s.pendingConfirmEvents)
			s.pendingConfirmEvents = nil
		}
		if s.readCont != nil {
			cont := s.readCont
			s.readCont = nil
			resp, err := s.writeReadFragment(cont)
			if err != nil {
				return nil, Outcome{ConfirmReceived: true}, nil
			}
			return resp, Outcome{ConfirmReceived: true}, nil
		}
		return nil, Outcome{ConfirmReceived: true}, nil
	case classConfirmForUnsol:
		s.state = StateIdle
		s.confirmDeadline = time.Time{}
		s.unsolRetries = 0
		return nil, Outcome{ConfirmReceived: true, WasUnsolicited: true}, nil
	case classConfirmStale:
		return nil, Outcome{}, nil
	case classBroadcast:
		s.iin.Iin1 |= objects.Iin1Broadcast
		s.inf.BroadcastReceived(function, confirmMode)
		s.dispatchNoResponse(function, objBytes)
		return nil, Outcome{}, nil
	case classRepeatRead:
		fragment, perr := objects.ParseRequestFragment(control, function, objBytes)
		if perr != nil {
			return s.buildErrorResponse(control, s.mergeIin(objects.Iin{Iin2: objects.Iin2ParameterError})), Outcome{}, nil
		}
		resp, err := s.buildReadResponse(control, fragment.Objects.Headers)
		return resp, Outcome{}, err
	case classRepeatNonRead:
		return s.last.responseRaw, Outcome{}, nil
	}

	// A new request while a confirm is outstanding aborts that series and
	// drops whatever events it would have delivered.
	if s.state == StateSolConfirmWait || s.state == StateUnsolConfirmWait {
		s.state = StateIdle
		s.confirmDeadline = time.Time{}
		s.readCont = nil
		s.pendingConfirmEvents = nil
	}

	fragment, perr := objects.ParseRequestFragment(control, function, objBytes)
	if perr != nil {
		iin := s.mergeIin(objects.Iin{Iin2: objects.Iin2ParameterError})
		return s.buildErrorResponse(control, iin), Outcome{}, nil
	}

	resp, iin2 := s.dispatch(fragment)
	isRead := function == objects.FuncRead
	s.last = lastRequest{valid: true, key: key, responseRaw: resp, isRead: isRead}
	_ = iin2
	return resp, Outcome{}, nil
}

// Outcome reports state transitions HandleFragment made, for callers that
// want to observe them; run.go does not read it.
type Outcome struct {
	ConfirmReceived bool
	WasUnsolicited  bool
}

// mergeIin combines session-owned IIN bits (restart, broadcast, event-class,
// overflow) with application-contributed bits.
func (s *Session) mergeIin(contributed objects.Iin) objects.Iin {
	merged := s.iin
	merged.Iin1 |= contributed.Iin1
	merged.Iin2 |= contributed.Iin2
	if s.buf.Count(events.Class1) > 0 {
		merged.Iin1 |= objects.Iin1Class1Events
	}
	if s.buf.Count(events.Class2) > 0 {
		merged.Iin1 |= objects.Iin1Class2Events
	}
	if s.buf.Count(events.Class3) > 0 {
		merged.Iin1 |= objects.Iin1Class3Events
	}
	if s.buf.Overflow() {
		merged.Iin2 |= objects.Iin2EventBufferOverflow
	}
	// IIN1.BROADCAST is reported in one response and then cleared, whatever
	// the broadcast's confirm mode; no CON is forced on a later response.
	s.iin.Iin1 &^= objects.Iin1Broadcast
	return merged
}

func (s *Session) buildErrorResponse(control objects.ControlField, iin objects.Iin) []byte {
	buf := make([]byte, s.cfg.TxBufferSize)
	w := objects.NewFragmentWriter(buf)
	resp := objects.ControlField{FIR: true, FIN: true, Seq: control.Seq}
	_ = w.WriteResponseHeader(resp, objects.FuncResponse, iin)
	return w.Written()
}
