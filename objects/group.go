// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package objects

import "fmt"

// GroupVariation names one (group, variation) pair. The registry below is
// a closed set: every entry here has a codec in codec.go and a conversion
// in measurement.go; adding a variation means adding one constant plus
// one registry row.
type GroupVariation struct {
	Group, Variation byte
}

func (g GroupVariation) String() string { return fmt.Sprintf("g%dv%d", g.Group, g.Variation) }

// ValueKind tags which field of Value is meaningful for a given variation.
type ValueKind int

const (
	VBool ValueKind = iota
	VDoubleBit
	VUint32
	VUint16
	VFloat32
	VFloat64
	VOctetString
	VCommandStatusOnly // CROB/analog-command echo objects: control fields + a trailing CommandStatus
	VTimeOnly          // CTO preamble / time-and-date objects: just a Timestamp, no flags
	VDelayMs           // 16-bit one-way delay, group 52
	VNone              // selector-only variations (class objects, all-objects headers)
)

// TimeShape classifies how (or whether) a fixed variation carries time.
type TimeShape int

const (
	TimeNone TimeShape = iota
	TimeAbsolute48
	TimeDeltaCTO16 // group 2/4 event time-delta variations: a 16-bit offset from a leading CTO preamble
)

// VariationInfo is the registry row: everything the parser, writer,
// conversion, and deadband logic need for one (group, variation).
type VariationInfo struct {
	GV GroupVariation

	// Bit-packed groups (1, 3, 10, 80) set BitsPerObject>0 and FixedSize==0;
	// their payload size is derived from count and the packing rule.
	BitsPerObject int

	// FixedSize is the per-object wire size for ordinary fixed variations.
	// 0 for bit-packed, Group 0 (attributes), and Group 70 (file, free-format).
	FixedSize int

	HasFlags bool
	Time     TimeShape
	Kind     ValueKind

	// Command is true for control-direction objects (Group 12, 41) whose
	// CommandStatus trails the value instead of leading Flags.
	Command bool
}

func fixed(gv GroupVariation, size int, hasFlags bool, time TimeShape, kind ValueKind) VariationInfo {
	return VariationInfo{GV: gv, FixedSize: size, HasFlags: hasFlags, Time: time, Kind: kind}
}

func bitPacked(gv GroupVariation, bits int) VariationInfo {
	return VariationInfo{GV: gv, BitsPerObject: bits, Kind: VBool}
}

// Closed registry of every (group, variation) this stack supports.
var registry = buildRegistry()

func buildRegistry() map[GroupVariation]VariationInfo {
	m := make(map[GroupVariation]VariationInfo)
	add := func(v VariationInfo) { m[v.GV] = v }

	// Group 1: Binary Input (static). v1 packed bit, v2 flags byte (state = bit7).
	add(bitPacked(GroupVariation{1, 1}, 1))
	add(fixed(GroupVariation{1, 2}, 1, true, TimeNone, VBool))

	// Group 2: Binary Input Event. v1 flags only, v2 flags+absolute time,
	// v3 flags+CTO delta.
	add(fixed(GroupVariation{2, 1}, 1, true, TimeNone, VBool))
	add(fixed(GroupVariation{2, 2}, 7, true, TimeAbsolute48, VBool))
	add(fixed(GroupVariation{2, 3}, 3, true, TimeDeltaCTO16, VBool))

	// Group 3: Double-bit Binary Input (static). v1 packed 2-bit, v2 flags byte.
	add(bitPacked(GroupVariation{3, 1}, 2))
	add(fixed(GroupVariation{3, 2}, 1, true, TimeNone, VDoubleBit))

	// Group 4: Double-bit Binary Input Event.
	add(fixed(GroupVariation{4, 1}, 1, true, TimeNone, VDoubleBit))
	add(fixed(GroupVariation{4, 2}, 7, true, TimeAbsolute48, VDoubleBit))
	add(fixed(GroupVariation{4, 3}, 3, true, TimeDeltaCTO16, VDoubleBit))

	// Group 10: Binary Output Status (static). v1 packed bit, v2 flags byte.
	add(bitPacked(GroupVariation{10, 1}, 1))
	add(fixed(GroupVariation{10, 2}, 1, true, TimeNone, VBool))

	// Group 11: Binary Output Event.
	add(fixed(GroupVariation{11, 1}, 1, true, TimeNone, VBool))
	add(fixed(GroupVariation{11, 2}, 7, true, TimeAbsolute48, VBool))

	// Group 12: Control Relay Output Block (command, not a measurement).
	// Handled by its own codec (ReadCROB/WriteCROB in commands.go) since
	// it carries control code/on-time/off-time
	// fields rather than a plain Value; registered here only so the
	// variation-closure check covers it.
	add(VariationInfo{GV: GroupVariation{12, 1}, Command: true, Kind: VCommandStatusOnly, FixedSize: 11})

	// Group 20: Counter (static). v1 32-bit+flags, v2 16-bit+flags,
	// v5 32-bit+flags+time, v6 16-bit+flags+time.
	add(fixed(GroupVariation{20, 1}, 5, true, TimeNone, VUint32))
	add(fixed(GroupVariation{20, 2}, 3, true, TimeNone, VUint16))
	add(fixed(GroupVariation{20, 5}, 11, true, TimeAbsolute48, VUint32))
	add(fixed(GroupVariation{20, 6}, 9, true, TimeAbsolute48, VUint16))

	// Group 21: Frozen Counter (static).
	add(fixed(GroupVariation{21, 1}, 5, true, TimeNone, VUint32))
	add(fixed(GroupVariation{21, 2}, 3, true, TimeNone, VUint16))
	add(fixed(GroupVariation{21, 5}, 11, true, TimeAbsolute48, VUint32))
	add(fixed(GroupVariation{21, 6}, 9, true, TimeAbsolute48, VUint16))

	// Group 22: Counter Event.
	add(fixed(GroupVariation{22, 1}, 5, true, TimeNone, VUint32))
	add(fixed(GroupVariation{22, 2}, 3, true, TimeNone, VUint16))
	add(fixed(GroupVariation{22, 5}, 11, true, TimeAbsolute48, VUint32))
	add(fixed(GroupVariation{22, 6}, 9, true, TimeAbsolute48, VUint16))

	// Group 23: Frozen Counter Event.
	add(fixed(GroupVariation{23, 1}, 5, true, TimeNone, VUint32))
	add(fixed(GroupVariation{23, 2}, 3, true, TimeNone, VUint16))
	add(fixed(GroupVariation{23, 5}, 11, true, TimeAbsolute48, VUint32))
	add(fixed(GroupVariation{23, 6}, 9, true, TimeAbsolute48, VUint16))

	// Group 30: Analog Input (static).
	add(fixed(GroupVariation{30, 1}, 5, true, TimeNone, VUint32))
	add(fixed(GroupVariation{30, 2}, 3, true, TimeNone, VUint16))
	add(fixed(GroupVariation{30, 3}, 4, false, TimeNone, VUint32))
	add(fixed(GroupVariation{30, 4}, 2, false, TimeNone, VUint16))
	add(fixed(GroupVariation{30, 5}, 5, true, TimeNone, VFloat32))
	add(fixed(GroupVariation{30, 6}, 9, true, TimeNone, VFloat64))

	// Group 32: Analog Input Event.
	add(fixed(GroupVariation{32, 1}, 5, true, TimeNone, VUint32))
	add(fixed(GroupVariation{32, 2}, 3, true, TimeNone, VUint16))
	add(fixed(GroupVariation{32, 3}, 11, true, TimeAbsolute48, VUint32))
	add(fixed(GroupVariation{32, 4}, 9, true, TimeAbsolute48, VUint16))
	add(fixed(GroupVariation{32, 5}, 5, true, TimeNone, VFloat32))
	add(fixed(GroupVariation{32, 6}, 11, true, TimeAbsolute48, VFloat32))
	add(fixed(GroupVariation{32, 7}, 9, true, TimeNone, VFloat64))
	add(fixed(GroupVariation{32, 8}, 15, true, TimeAbsolute48, VFloat64))

	// Group 34: Analog Input Dead-band (write-only configuration object).
	add(fixed(GroupVariation{34, 1}, 2, false, TimeNone, VUint16))
	add(fixed(GroupVariation{34, 2}, 4, false, TimeNone, VUint32))
	add(fixed(GroupVariation{34, 3}, 4, false, TimeNone, VFloat32))

	// Group 40: Analog Output Status (static).
	add(fixed(GroupVariation{40, 1}, 5, true, TimeNone, VUint32))
	add(fixed(GroupVariation{40, 2}, 3, true, TimeNone, VUint16))
	add(fixed(GroupVariation{40, 3}, 5, true, TimeNone, VFloat32))
	add(fixed(GroupVariation{40, 4}, 9, true, TimeNone, VFloat64))

	// Group 41: Analog Output command (control-direction).
	add(VariationInfo{GV: GroupVariation{41, 1}, Command: true, Kind: VUint32, FixedSize: 5})
	add(VariationInfo{GV: GroupVariation{41, 2}, Command: true, Kind: VUint16, FixedSize: 3})
	add(VariationInfo{GV: GroupVariation{41, 3}, Command: true, Kind: VFloat32, FixedSize: 5})
	add(VariationInfo{GV: GroupVariation{41, 4}, Command: true, Kind: VFloat64, FixedSize: 9})

	// Group 42: Analog Output Event.
	add(fixed(GroupVariation{42, 1}, 5, true, TimeNone, VUint32))
	add(fixed(GroupVariation{42, 2}, 3, true, TimeNone, VUint16))
	add(fixed(GroupVariation{42, 3}, 5, true, TimeNone, VFloat32))
	add(fixed(GroupVariation{42, 4}, 9, true, TimeNone, VFloat64))
	add(fixed(GroupVariation{42, 5}, 11, true, TimeAbsolute48, VUint32))
	add(fixed(GroupVariation{42, 6}, 9, true, TimeAbsolute48, VUint16))
	add(fixed(GroupVariation{42, 7}, 11, true, TimeAbsolute48, VFloat32))
	add(fixed(GroupVariation{42, 8}, 15, true, TimeAbsolute48, VFloat64))

	// Group 50: Absolute time objects used by time synchronization (§4.10).
	add(fixed(GroupVariation{50, 1}, 6, false, TimeNone, VTimeOnly))
	add(fixed(GroupVariation{50, 3}, 6, false, TimeNone, VTimeOnly))

	// Group 51: Common Time of Occurrence preamble (§4.6).
	add(fixed(GroupVariation{51, 1}, 6, false, TimeNone, VTimeOnly))
	add(fixed(GroupVariation{51, 2}, 6, false, TimeNone, VTimeOnly))

	// Group 52: Time Delay.
	add(fixed(GroupVariation{52, 2}, 2, false, TimeNone, VDelayMs))

	// Group 60: Class data selectors (all-objects only, no payload).
	add(VariationInfo{GV: GroupVariation{60, 1}, Kind: VNone})
	add(VariationInfo{GV: GroupVariation{60, 2}, Kind: VNone})
	add(VariationInfo{GV: GroupVariation{60, 3}, Kind: VNone})
	add(VariationInfo{GV: GroupVariation{60, 4}, Kind: VNone})

	// Group 80: IIN bit (packed, 1 bit/object). Used by the clear-restart-IIN task.
	add(bitPacked(GroupVariation{80, 1}, 1))

	// Groups 0 (attributes) and 70 (file transfer) are variable-length and
	// handled entirely outside this fixed-codec table; see objects/attr
	// and objects/file.
	return m
}

// Lookup returns the registry row for (group, variation), or !ok if the
// pair is unknown to this closed enumeration (ObjectParseError
// UnknownGroupVariation).
func Lookup(group, variation byte) (VariationInfo, bool) {
	v, ok := registry[GroupVariation{group, variation}]
	return v, ok
}

// IsBitPacked reports whether (group,variation) uses the packed-bit
// payload rule (Groups 1, 3, 10, 80).
func (v VariationInfo) IsBitPacked() bool { return v.BitsPerObject > 0 }

// DefaultStaticVariation and DefaultEventVariation give the default
// (group, variation) used when a point's configuration doesn't override it.
func DefaultStaticVariation(k MeasurementKind) GroupVariation {
	switch k {
	case KindBinaryInput:
		return GroupVariation{1, 1}
	case KindDoubleBitBinary:
		return GroupVariation{3, 2}
	case KindBinaryOutputStatus:
		return GroupVariation{10, 2}
	case KindCounter:
		return GroupVariation{20, 1}
	case KindFrozenCounter:
		return GroupVariation{21, 1}
	case KindAnalogInput:
		return GroupVariation{30, 1}
	case KindAnalogOutputStatus:
		return GroupVariation{40, 1}
	default:
		return GroupVariation{0, 0}
	}
}

func DefaultEventVariation(k MeasurementKind) GroupVariation {
	switch k {
	case KindBinaryInput:
		return GroupVariation{2, 1}
	case KindDoubleBitBinary:
		return GroupVariation{4, 1}
	case KindBinaryOutputStatus:
		return GroupVariation{11, 2}
	case KindCounter:
		return GroupVariation{22, 1}
	case KindFrozenCounter:
		return GroupVariation{23, 1}
	case KindAnalogInput:
		return GroupVariation{32, 1}
	case KindAnalogOutputStatus:
		return GroupVariation{42, 1}
	default:
		return GroupVariation{0, 0}
	}
}
