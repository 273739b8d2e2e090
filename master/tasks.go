// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package master

import (
	"time"

	"github.com/marrasen/go-dnp3/objects"
)

// checkInterval is the tick period for keep-alive and requeue-deadline
// checks in Run's select loop, same cadence the outstation side uses.
const checkInterval = 100 * time.Millisecond

// buildClassHeaders writes one all-objects header per enabled class,
// group 60 variations 2/3/4, shared by the enable/disable-unsolicited
// and integrity-poll request builders.
func buildClassHeaders(w *objects.FragmentWriter, classes ClassMask, includeClass0 bool) {
	if includeClass0 {
		_ = w.WriteAllObjectsHeader(60, 1)
	}
	if classes.Class1 {
		_ = w.WriteAllObjectsHeader(60, 2)
	}
	if classes.Class2 {
		_ = w.WriteAllObjectsHeader(60, 3)
	}
	if classes.Class3 {
		_ = w.WriteAllObjectsHeader(60, 4)
	}
}

// noOpFragment is the onFragment callback for tasks that expect no data
// objects in their response, only IIN (already applied by the caller in
// runTask before onFragment is invoked).
func noOpFragment([]objects.ObjectHeader, objects.Iin) error { return nil }

func (a *Association) newDisableUnsolicitedTask() *task {
	return &task{
		kind:  "disable_unsolicited",
		pr:    priorityDisableUnsolicited,
		retry: true,
		buildRequest: func(seq objects.Sequence) []byte {
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			_ = w.WriteRequestHeader(control, objects.FuncDisableUnsolicited)
			buildClassHeaders(w, ClassMask{Class1: true, Class2: true, Class3: true}, false)
			return w.Written()
		},
		onFragment: noOpFragment,
	}
}

func (a *Association) newEnableUnsolicitedTask() *task {
	return &task{
		kind:  "enable_unsolicited",
		pr:    priorityEnableUnsolicited,
		retry: true,
		buildRequest: func(seq objects.Sequence) []byte {
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			_ = w.WriteRequestHeader(control, objects.FuncEnableUnsolicited)
			buildClassHeaders(w, a.cfg.UnsolClasses, false)
			return w.Written()
		},
		onFragment: noOpFragment,
	}
}

// newIntegrityPollTask reads class 0 (static data) plus classes 1-3
// (buffered events), the standard "integrity poll". Every decodable
// header in the (possibly multi-fragment) response is streamed to the
// read handler.
func (a *Association) newIntegrityPollTask() *task {
	return &task{
		kind:   "integrity_poll",
		pr:     priorityIntegrityPoll,
		isRead: true,
		retry:  true,
		buildRequest: func(seq objects.Sequence) []byte {
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			_ = w.WriteRequestHeader(control, objects.FuncRead)
			buildClassHeaders(w, ClassMask{Class1: true, Class2: true, Class3: true}, true)
			return w.Written()
		},
		onFragment: func(headers []objects.ObjectHeader, iin objects.Iin) error {
			for _, h := range headers {
				kind, ok := kindForGroup(h.Group)
				if !ok {
					continue
				}
				if err := decodeHeader(h, func(index uint16, v objects.Value) {
					a.rh.HandleMeasurement(kind, index, v)
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// newClearRestartIinTask writes the group 80 variation 1 IIN-clear object
// the outstation uses to drop IIN1.RESTART once the master has noticed
// the restart.
func (a *Association) newClearRestartIinTask() *task {
	return &task{
		kind:  "clear_restart_iin",
		pr:    priorityClearRestartIIN,
		retry: true,
		buildRequest: func(seq objects.Sequence) []byte {
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			if err := w.WriteRequestHeader(control, objects.FuncWrite); err != nil {
				return w.Written()
			}
			_ = w.WriteRangeHeader(80, 1, objects.Range{Start: 7, Stop: 7}, []byte{0x00})
			return w.Written()
		},
		onFragment: noOpFragment,
	}
}

// newTimeSyncTask dispatches to the Lan or NonLan time-sync procedure per
// cfg.LanTimeSync.
func (a *Association) newTimeSyncTask() *task {
	if a.cfg.LanTimeSync {
		return a.newRecordCurrentTimeTask()
	}
	return a.newDelayMeasureTask()
}

// newDelayMeasureTask drives the NonLan procedure: send DelayMeasure,
// read back the outstation's own one-way processing delay
// (g52v2), derive the propagation delay from the round trip the master
// itself observed, and schedule a follow-up task that writes the
// corrected absolute time.
func (a *Association) newDelayMeasureTask() *task {
	var txTime time.Time
	return &task{
		kind:  "time_sync_delay_measure",
		pr:    priorityTimeSync,
		retry: true,
		buildRequest: func(seq objects.Sequence) []byte {
			txTime = time.Now()
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			_ = w.WriteRequestHeader(control, objects.FuncDelayMeasure)
			return w.Written()
		},
		onFragment: func(headers []objects.ObjectHeader, iin objects.Iin) error {
			rxTime := time.Now()
			reportedMs, found := uint16(0), false
			for _, h := range headers {
				if h.Group != 52 || h.Variation != 2 {
					continue
				}
				cur := objects.NewReadCursor(h.RawObjects)
				v, err := objects.ReadFixedValue(cur, h.Info)
				if err != nil {
					return err
				}
				reportedMs, found = v.U16, true
			}
			if !found {
				return ErrUnexpectedResponseHeaders
			}
			roundTrip := rxTime.Sub(txTime).Milliseconds()
			propagation := (roundTrip - int64(reportedMs)) / 2
			if propagation < 0 {
				propagation = 0
			}
			a.sched.push(a.newWriteTimeTask(rxTime.Add(time.Duration(propagation) * time.Millisecond)))
			return nil
		},
	}
}

// newWriteTimeTask writes the g50v1 absolute time object the NonLan
// procedure computed; a successful response clears IIN1.NEED_TIME on the
// outstation.
func (a *Association) newWriteTimeTask(correctedTime time.Time) *task {
	return &task{
		kind:  "time_sync_write",
		pr:    priorityTimeSync,
		retry: true,
		buildRequest: func(seq objects.Sequence) []byte {
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			if err := w.WriteRequestHeader(control, objects.FuncWrite); err != nil {
				return w.Written()
			}
			info, _ := objects.Lookup(50, 1)
			objBuf := make([]byte, 6)
			oc := objects.NewWriteCursor(objBuf)
			ms := uint64(correctedTime.UnixMilli())
			if err := objects.WriteFixedValue(oc, info, objects.Value{Time: objects.Synchronized(ms)}); err != nil {
				return w.Written()
			}
			_ = w.WriteRangeHeader(50, 1, objects.Range{Start: 0, Stop: 0}, oc.Written())
			return w.Written()
		},
		onFragment: noOpFragment,
	}
}

// newRecordCurrentTimeTask drives the Lan procedure: send
// RecordCurrentTime, snapshot the send instant, and write it back
// verbatim as g50v3 once the (empty) reply confirms receipt.
func (a *Association) newRecordCurrentTimeTask() *task {
	var sentAt time.Time
	return &task{
		kind:  "time_sync_record_current",
		pr:    priorityTimeSync,
		retry: true,
		buildRequest: func(seq objects.Sequence) []byte {
			sentAt = time.Now()
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			_ = w.WriteRequestHeader(control, objects.FuncRecordCurrentTime)
			return w.Written()
		},
		onFragment: func(headers []objects.ObjectHeader, iin objects.Iin) error {
			a.sched.push(a.newRecordedTimeWriteTask(sentAt))
			return nil
		},
	}
}

func (a *Association) newRecordedTimeWriteTask(recordedAt time.Time) *task {
	return &task{
		kind:  "time_sync_record_current_write",
		pr:    priorityTimeSync,
		retry: true,
		buildRequest: func(seq objects.Sequence) []byte {
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			if err := w.WriteRequestHeader(control, objects.FuncWrite); err != nil {
				return w.Written()
			}
			info, _ := objects.Lookup(50, 3)
			objBuf := make([]byte, 6)
			oc := objects.NewWriteCursor(objBuf)
			ms := uint64(recordedAt.UnixMilli())
			if err := objects.WriteFixedValue(oc, info, objects.Value{Time: objects.Synchronized(ms)}); err != nil {
				return w.Written()
			}
			_ = w.WriteRangeHeader(50, 3, objects.Range{Start: 0, Stop: 0}, oc.Written())
			return w.Written()
		},
		onFragment: noOpFragment,
	}
}
