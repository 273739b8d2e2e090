// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package master

import "github.com/marrasen/go-dnp3/objects"

// kindForGroup maps a static or event group number to its measurement
// kind, generalized from the outstation side's read.go (which only needs
// the four static groups it serves) to cover the event groups a master
// also receives.
func kindForGroup(group byte) (objects.MeasurementKind, bool) {
	switch group {
	case 1, 2:
		return objects.KindBinaryInput, true
	case 3, 4:
		return objects.KindDoubleBitBinary, true
	case 10, 11:
		return objects.KindBinaryOutputStatus, true
	case 20, 22:
		return objects.KindCounter, true
	case 21, 23:
		return objects.KindFrozenCounter, true
	case 30, 32:
		return objects.KindAnalogInput, true
	case 40, 42:
		return objects.KindAnalogOutputStatus, true
	default:
		return 0, false
	}
}

// decodeHeader walks one object header's payload, invoking fn once per
// decoded (index, value) pair. It handles all three shapes a
// data-carrying header can take: bit-packed range (Groups 1/3/10),
// fixed-size range (most static groups), and count-and-prefix (event
// groups, and static responses answering an indexed selector).
func decodeHeader(h objects.ObjectHeader, fn func(index uint16, v objects.Value)) error {
	if !h.KnownVariation {
		return nil
	}
	info := h.Info

	switch h.Payload.Shape {
	case objects.ShapeRange:
		start := uint16(h.Payload.Range.Start)
		if info.IsBitPacked() {
			return decodeBitPackedRange(h, start, fn)
		}
		cur := objects.NewReadCursor(h.RawObjects)
		for idx := h.Payload.Range.Start; idx <= h.Payload.Range.Stop; idx++ {
			v, err := objects.ReadFixedValue(cur, info)
			if err != nil {
				return err
			}
			fn(uint16(idx), v)
		}
		return nil

	case objects.ShapeCountAndPrefix:
		for _, item := range h.Payload.Prefixed {
			cur := objects.NewReadCursor(item.Raw)
			v, err := objects.ReadFixedValue(cur, info)
			if err != nil {
				return err
			}
			fn(uint16(item.Prefix), v)
		}
		return nil

	default:
		return nil
	}
}

func decodeBitPackedRange(h objects.ObjectHeader, start uint16, fn func(index uint16, v objects.Value)) error {
	bits := h.Info.BitsPerObject
	count := int(h.Payload.Range.Stop-h.Payload.Range.Start) + 1
	bitPos := 0
	for i := 0; i < count; i++ {
		byteIdx := bitPos / 8
		shift := uint(bitPos % 8)
		if byteIdx >= len(h.RawObjects) {
			return objects.ErrBufferTooSmall
		}
		raw := (h.RawObjects[byteIdx] >> shift) & ((1 << uint(bits)) - 1)
		var v objects.Value
		switch bits {
		case 1:
			v.Bool = raw != 0
		case 2:
			v.Double = objects.DoubleBit(raw)
		}
		fn(start+uint16(i), v)
		bitPos += bits
	}
	return nil
}
