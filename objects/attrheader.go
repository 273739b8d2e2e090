// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package objects

// AttrTypeCode tags the wire encoding of one device attribute value.
type AttrTypeCode byte

const (
	AttrTypeVisibleString AttrTypeCode = 0x01
	AttrTypeUnsignedInt   AttrTypeCode = 0x02
	AttrTypeSignedInt     AttrTypeCode = 0x03
	AttrTypeFloatingPoint AttrTypeCode = 0x04
	AttrTypeOctetString   AttrTypeCode = 0x05
	AttrTypeBitString     AttrTypeCode = 0x06
	AttrTypeDNP3Time      AttrTypeCode = 0x07
	AttrTypeAttrList      AttrTypeCode = 0x08
	AttrTypeExtAttrList   AttrTypeCode = 0x09
)

// AttrValue is one decoded device attribute: its DNP3 type tag plus the
// raw bytes of its value, interpreted lazily by objects/attr.
type AttrValue struct {
	Type AttrTypeCode
	Raw  []byte
}

// AttrReservedAll is the "all attributes in this set" selector variation (254).
const AttrReservedAll byte = 254

// AttrReservedList is the "list of variations in this set" selector variation (255).
const AttrReservedList byte = 255

// parseAttributeHeader handles Group 0 headers: qualifier 0x00/0x01 range
// (for the reserved 254/255 selectors) or count-and-prefix free-format
// encoding is not used for attributes — each attribute object is
// self-length-prefixed (1-byte type code, 1-byte length, then payload).
func parseAttributeHeader(cur *ReadCursor, h ObjectHeader, shape Shape, width int) (ObjectHeader, error) {
	switch shape {
	case ShapeRange:
		start, err := cur.ReadUintAt(width)
		if err != nil {
			return ObjectHeader{}, err
		}
		stop, err := cur.ReadUintAt(width)
		if err != nil {
			return ObjectHeader{}, err
		}
		r, err := NewRange(start, stop)
		if err != nil {
			return ObjectHeader{}, err
		}
		if r.Count() != 1 {
			return ObjectHeader{}, &ObjectParseError{Kind: BadAttribute, Group: 0, Variation: h.Variation, AttrDetail: AttrCountNotOne}
		}
		// Range-addressed attribute headers only make sense for a single
		// set's selector pair; the count is validated above, the attribute
		// payloads themselves are parsed by objects/attr against RawObjects.
		raw, err := parseAttributeObjects(cur, r.Count())
		if err != nil {
			return ObjectHeader{}, err
		}
		h.Payload = HeaderPayload{Shape: shape, Range: r}
		h.RawObjects = raw
		return h, nil

	case ShapeCount:
		count, err := cur.ReadUintAt(width)
		if err != nil {
			return ObjectHeader{}, err
		}
		raw, err := parseAttributeObjects(cur, int(count))
		if err != nil {
			return ObjectHeader{}, err
		}
		h.Payload = HeaderPayload{Shape: shape, Count: int(count)}
		h.RawObjects = raw
		return h, nil

	default:
		return ObjectHeader{}, &ObjectParseError{Kind: InvalidQualifierForVariation, Group: 0, Variation: h.Variation, Qualifier: byte(h.Qualifier)}
	}
}

// parseAttributeObjects validates count self-length-prefixed attribute
// objects (1-byte type, 1-byte length, length bytes of payload) and
// returns the sub-slice spanning all of them, without decoding further.
func parseAttributeObjects(cur *ReadCursor, count int) ([]byte, error) {
	start := cur.Position()
	for i := 0; i < count; i++ {
		if _, err := cur.ReadU8(); err != nil { // type code
			return nil, err
		}
		length, err := cur.ReadU8()
		if err != nil {
			return nil, err
		}
		if length == 0 {
			return nil, &ObjectParseError{Kind: ZeroLengthOctetData, Group: 0}
		}
		if _, err := cur.ReadBytes(int(length)); err != nil {
			return nil, err
		}
	}
	end := cur.Position()
	return cur.buf[start:end], nil
}

// DecodeAttrObjects re-walks a RawObjects slice produced by
// parseAttributeObjects, yielding one AttrValue per object in order. It
// never fails: the structural validation already happened during parsing.
func DecodeAttrObjects(raw []byte) []AttrValue {
	cur := NewReadCursor(raw)
	var out []AttrValue
	for cur.Remaining() > 0 {
		typeByte, _ := cur.ReadU8()
		length, _ := cur.ReadU8()
		payload, _ := cur.ReadBytes(int(length))
		out = append(out, AttrValue{Type: AttrTypeCode(typeByte), Raw: payload})
	}
	return out
}
