// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package objects

// MeasurementKind enumerates the measurement kinds DNP3 static/event
// object groups represent.
type MeasurementKind int

const (
	KindBinaryInput MeasurementKind = iota
	KindDoubleBitBinary
	KindBinaryOutputStatus
	KindCounter
	KindFrozenCounter
	KindAnalogInput
	KindAnalogOutputStatus
	KindOctetString
)

func (k MeasurementKind) String() string {
	switch k {
	case KindBinaryInput:
		return "BinaryInput"
	case KindDoubleBitBinary:
		return "DoubleBitBinary"
	case KindBinaryOutputStatus:
		return "BinaryOutputStatus"
	case KindCounter:
		return "Counter"
	case KindFrozenCounter:
		return "FrozenCounter"
	case KindAnalogInput:
		return "AnalogInput"
	case KindAnalogOutputStatus:
		return "AnalogOutputStatus"
	default:
		return "OctetString"
	}
}

// Value is the decoded payload of one fixed-size object, regardless of
// variation: exactly one of the typed fields is meaningful, selected by
// the registry's ValueKind for that (group, variation).
type Value struct {
	Flags  Flags
	Time   Timestamp
	Bool   bool
	Double DoubleBit
	U32    uint32
	U16    uint16
	F32    float32
	F64    float64
	Octets []byte
}

// Measurement is the outstation-side in-memory image for one point: a
// value plus flags plus optional time, independent of which variation it
// is eventually encoded as.
type Measurement struct {
	Kind MeasurementKind
	Time Timestamp

	// exactly one of these is meaningful, selected by Kind
	Bool    bool
	Double  DoubleBit
	U32     uint32
	F64     float64
	Octets  []byte
	Flags   Flags
}

// Float64 returns the measurement's numeric value regardless of which
// field backs it, used by deadband comparisons.
func (m Measurement) Float64() float64 {
	switch m.Kind {
	case KindBinaryInput, KindBinaryOutputStatus:
		if m.Bool {
			return 1
		}
		return 0
	case KindDoubleBitBinary:
		return float64(m.Double)
	case KindCounter, KindFrozenCounter:
		return float64(m.U32)
	case KindAnalogInput, KindAnalogOutputStatus:
		return m.F64
	default:
		return 0
	}
}

// NarrowToFloat32 converts m's value to float32, returning overRange=true
// if the value is non-finite once narrowed.
func NarrowToFloat32(v float64) (f float32, overRange bool) {
	f = float32(v)
	if v != v || v > maxFloat64ForF32 || v < -maxFloat64ForF32 {
		return f, true
	}
	return f, false
}

const maxFloat64ForF32 = 3.4028234663852886e+38

// NarrowToUint32 converts v to uint32, asserting overRange if out of range.
func NarrowToUint32(v float64) (u uint32, overRange bool) {
	if v < 0 || v > 4294967295 {
		return 0, true
	}
	return uint32(v), false
}

// NarrowToUint16 converts v to uint16, asserting overRange if out of range.
func NarrowToUint16(v float64) (u uint16, overRange bool) {
	if v < 0 || v > 65535 {
		return 0, true
	}
	return uint16(v), false
}

// OctetStringGroupVariation returns the (group, variation) pair for an
// octet string of the given length (1-255): static objects use group 110
// with variation equal to the length, events use group 111 the same way.
func OctetStringGroupVariation(length int, event bool) GroupVariation {
	group := byte(110)
	if event {
		group = 111
	}
	return GroupVariation{group, byte(length)}
}

// IsOctetStringGroup reports whether group is the static or event octet
// string group, and whether it is the event variant.
func IsOctetStringGroup(group byte) (isOctet bool, event bool) {
	switch group {
	case 110:
		return true, false
	case 111:
		return true, true
	default:
		return false, false
	}
}
