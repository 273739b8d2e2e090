// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package objects

// parseFileHeader handles Group 70 headers, which always use the
// FreeFormat16 qualifier carrying exactly one length-prefixed object; any
// other qualifier is rejected outright rather than decoded as a count.
func parseFileHeader(cur *ReadCursor, h ObjectHeader, shape Shape) (ObjectHeader, error) {
	if shape != ShapeFreeFormat16 {
		return ObjectHeader{}, &ObjectParseError{Kind: InvalidQualifierForVariation, Group: 70, Variation: h.Variation, Qualifier: byte(h.Qualifier)}
	}
	blob, err := parseFreeFormatLength(cur)
	if err != nil {
		return ObjectHeader{}, err
	}
	h.Payload = HeaderPayload{Shape: shape, FreeFormat: blob}
	h.RawObjects = blob
	return h, nil
}
