// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package objects

import "fmt"

// FunctionCode enumerates the application-layer function codes.
type FunctionCode byte

const (
	FuncConfirm                   FunctionCode = 0
	FuncRead                      FunctionCode = 1
	FuncWrite                     FunctionCode = 2
	FuncSelect                    FunctionCode = 3
	FuncOperate                   FunctionCode = 4
	FuncDirectOperate             FunctionCode = 5
	FuncDirectOperateNoResponse   FunctionCode = 6
	FuncImmediateFreeze           FunctionCode = 7
	FuncImmediateFreezeNoResponse FunctionCode = 8
	FuncFreezeClear               FunctionCode = 9
	FuncFreezeClearNoResponse     FunctionCode = 10
	FuncFreezeAtTime              FunctionCode = 11
	FuncFreezeAtTimeNoResponse    FunctionCode = 12
	FuncColdRestart               FunctionCode = 13
	FuncWarmRestart               FunctionCode = 14
	FuncEnableUnsolicited         FunctionCode = 20
	FuncDisableUnsolicited        FunctionCode = 21
	FuncAssignClass               FunctionCode = 22
	FuncDelayMeasure              FunctionCode = 23
	FuncRecordCurrentTime         FunctionCode = 24
	FuncOpenFile                  FunctionCode = 25
	FuncCloseFile                 FunctionCode = 26
	FuncDeleteFile                FunctionCode = 27
	FuncGetFileInfo               FunctionCode = 28
	FuncAuthenticateFile          FunctionCode = 29
	FuncAbortFile                 FunctionCode = 30
	FuncResponse                  FunctionCode = 129
	FuncUnsolicitedResponse       FunctionCode = 130
)

var functionNames = map[FunctionCode]string{
	FuncConfirm: "CONFIRM", FuncRead: "READ", FuncWrite: "WRITE",
	FuncSelect: "SELECT", FuncOperate: "OPERATE", FuncDirectOperate: "DIRECT_OPERATE",
	FuncDirectOperateNoResponse: "DIRECT_OPERATE_NO_RESPONSE", FuncImmediateFreeze: "IMMEDIATE_FREEZE",
	FuncImmediateFreezeNoResponse: "IMMEDIATE_FREEZE_NO_RESPONSE", FuncFreezeClear: "FREEZE_CLEAR",
	FuncFreezeClearNoResponse: "FREEZE_CLEAR_NO_RESPONSE", FuncFreezeAtTime: "FREEZE_AT_TIME",
	FuncFreezeAtTimeNoResponse: "FREEZE_AT_TIME_NO_RESPONSE", FuncColdRestart: "COLD_RESTART",
	FuncWarmRestart: "WARM_RESTART", FuncEnableUnsolicited: "ENABLE_UNSOLICITED",
	FuncDisableUnsolicited: "DISABLE_UNSOLICITED", FuncAssignClass: "ASSIGN_CLASS",
	FuncDelayMeasure: "DELAY_MEASURE", FuncRecordCurrentTime: "RECORD_CURRENT_TIME",
	FuncOpenFile: "OPEN_FILE", FuncCloseFile: "CLOSE_FILE", FuncDeleteFile: "DELETE_FILE",
	FuncGetFileInfo: "GET_FILE_INFO", FuncAuthenticateFile: "AUTHENTICATE_FILE",
	FuncAbortFile: "ABORT_FILE", FuncResponse: "RESPONSE", FuncUnsolicitedResponse: "UNSOLICITED_RESPONSE",
}

func (f FunctionCode) String() string {
	if s, ok := functionNames[f]; ok {
		return s
	}
	return fmt.Sprintf("UNKNOWN(%d)", byte(f))
}

// IsResponse reports whether f carries an IIN field (Response or
// UnsolicitedResponse).
func (f FunctionCode) IsResponse() bool {
	return f == FuncResponse || f == FuncUnsolicitedResponse
}

// ControlField is the first byte of every application fragment.
type ControlField struct {
	FIR, FIN, CON, UNS bool
	Seq                Sequence
}

// ParseControlField decodes the control byte.
func ParseControlField(b byte) ControlField {
	return ControlField{
		FIR: b&0x80 != 0,
		FIN: b&0x40 != 0,
		CON: b&0x20 != 0,
		UNS: b&0x10 != 0,
		Seq: Sequence(b & 0x0F),
	}
}

// Value encodes the control field back to a byte.
func (c ControlField) Value() byte {
	var b byte
	if c.FIR {
		b |= 0x80
	}
	if c.FIN {
		b |= 0x40
	}
	if c.CON {
		b |= 0x20
	}
	if c.UNS {
		b |= 0x10
	}
	return b | c.Seq.Value()
}

// IsFirAndFin reports whether this is a single-fragment message.
func (c ControlField) IsFirAndFin() bool { return c.FIR && c.FIN }

func (c ControlField) String() string {
	return fmt.Sprintf("[FIR=%t FIN=%t CON=%t UNS=%t SEQ=%d]", c.FIR, c.FIN, c.CON, c.UNS, c.Seq.Value())
}

// Iin1 is the first Internal Indications byte.
type Iin1 byte

const (
	Iin1Broadcast      Iin1 = 0x01
	Iin1Class1Events   Iin1 = 0x02
	Iin1Class2Events   Iin1 = 0x04
	Iin1Class3Events   Iin1 = 0x08
	Iin1NeedTime       Iin1 = 0x10
	Iin1LocalControl   Iin1 = 0x20
	Iin1DeviceTrouble  Iin1 = 0x40
	Iin1Restart        Iin1 = 0x80
)

// Iin2 is the second Internal Indications byte.
type Iin2 byte

const (
	Iin2NoFuncCodeSupport   Iin2 = 0x01
	Iin2ObjectUnknown       Iin2 = 0x02
	Iin2ParameterError      Iin2 = 0x04
	Iin2EventBufferOverflow Iin2 = 0x08
	Iin2AlreadyExecuting    Iin2 = 0x10
	Iin2ConfigCorrupt       Iin2 = 0x20
)

// Iin is the full 16-bit Internal Indications field.
type Iin struct {
	Iin1 Iin1
	Iin2 Iin2
}

// HasIin1 reports whether bit is set in IIN1.
func (i Iin) HasIin1(bit Iin1) bool { return i.Iin1&bit != 0 }

// HasIin2 reports whether bit is set in IIN2.
func (i Iin) HasIin2(bit Iin2) bool { return i.Iin2&bit != 0 }

// ParseIin decodes the 2-byte IIN field (little-endian: IIN1 first).
func ParseIin(b []byte) Iin {
	return Iin{Iin1: Iin1(b[0]), Iin2: Iin2(b[1])}
}

// Value encodes IIN back to 2 bytes.
func (i Iin) Value() [2]byte { return [2]byte{byte(i.Iin1), byte(i.Iin2)} }

func (i Iin) String() string {
	return fmt.Sprintf("IIN1=0x%02x IIN2=0x%02x", byte(i.Iin1), byte(i.Iin2))
}
