// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package objects

// PrefixedItem is one entry of a CountAndPrefix header: an index/prefix
// value (object count, not address range) paired with its raw object bytes.
type PrefixedItem struct {
	Prefix uint32
	Raw    []byte
}

// HeaderPayload carries the shape-specific content of one object header.
// Exactly one field is meaningful, selected by Shape.
type HeaderPayload struct {
	Shape Shape

	// ShapeRange
	Range Range

	// ShapeCount: just a count of objects with no addressing, used by
	// class-data selectors (Group 60) and freeze commands.
	Count int

	// ShapeCountAndPrefix: count prefixed items, each carrying its own
	// index/prefix plus raw object bytes (used for command echoes and
	// octet string writes).
	Prefixed []PrefixedItem

	// ShapeFreeFormat16: a single two-byte-length-prefixed blob (Group 70).
	FreeFormat []byte
}

// ObjectHeader is one parsed header within a fragment: the (group,
// variation, qualifier) triple plus its shape-specific payload and the
// VariationInfo looked up for it (when the pair is in the closed registry).
type ObjectHeader struct {
	Group, Variation byte
	Qualifier        QualifierCode
	Info             VariationInfo
	KnownVariation   bool
	Payload          HeaderPayload

	// RawObjects is the header's object-data sub-slice (everything after
	// the qualifier-specific prefix), used for range/count shapes where
	// objects are packed back-to-back and for fingerprinting.
	RawObjects []byte
}

// IsAllAttributesSelector reports the Group 0 reserved variation 254,
// "all attributes in set".
func (h ObjectHeader) IsAllAttributesSelector() bool {
	return h.Group == 0 && h.Variation == 254
}

// IsAttributeListSelector reports the Group 0 reserved variation 255,
// "list of variations in set".
func (h ObjectHeader) IsAttributeListSelector() bool {
	return h.Group == 0 && h.Variation == 255
}
