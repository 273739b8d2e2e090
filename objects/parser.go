// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package objects

// HeaderCollection is the result of a successful two-pass parse: every
// header has already been validated for structural well-formedness (bytes
// present, qualifier legal for its variation, ranges non-inverted), so a
// second iteration over Headers can never fail.
type HeaderCollection struct {
	Headers []ObjectHeader
}

// ParsedFragment is one fully-parsed application fragment: control byte,
// function code, optional IIN (responses only), and its object headers.
type ParsedFragment struct {
	Control  ControlField
	Function FunctionCode
	IIN      Iin // zero value for requests
	Objects  HeaderCollection
}

// ParseRequestFragment parses a request/unsolicited-confirm fragment: two
// control/function bytes followed by object headers. raw is the bytes
// after the two-byte application header.
func ParseRequestFragment(control ControlField, function FunctionCode, raw []byte) (ParsedFragment, error) {
	headers, err := parseHeaders(raw)
	if err != nil {
		return ParsedFragment{}, err
	}
	return ParsedFragment{Control: control, Function: function, Objects: headers}, nil
}

// ParseResponseFragment parses a response/unsolicited-response fragment,
// which carries a trailing 2-byte IIN before the object headers.
func ParseResponseFragment(control ControlField, function FunctionCode, raw []byte) (ParsedFragment, error) {
	cur := NewReadCursor(raw)
	b1, err := cur.ReadU8()
	if err != nil {
		return ParsedFragment{}, err
	}
	b2, err := cur.ReadU8()
	if err != nil {
		return ParsedFragment{}, err
	}
	iin := ParseIin([]byte{b1, b2})
	headers, err := parseHeaders(cur.ReadAll())
	if err != nil {
		return ParsedFragment{}, err
	}
	return ParsedFragment{Control: control, Function: function, IIN: iin, Objects: headers}, nil
}

// parseHeaders is the validation pass: it walks raw once, fully
// structurally validating every header (and every bit-packed/fixed object
// inside range and count-and-prefix headers) without converting payloads
// to Values. A second walk over the returned slice can then iterate
// without further error checking.
func parseHeaders(raw []byte) (HeaderCollection, error) {
	cur := NewReadCursor(raw)
	var headers []ObjectHeader
	for cur.Remaining() > 0 {
		h, err := parseOneHeader(cur)
		if err != nil {
			return HeaderCollection{}, err
		}
		headers = append(headers, h)
	}
	return HeaderCollection{Headers: headers}, nil
}

func parseOneHeader(cur *ReadCursor) (ObjectHeader, error) {
	group, err := cur.ReadU8()
	if err != nil {
		return ObjectHeader{}, err
	}
	variation, err := cur.ReadU8()
	if err != nil {
		return ObjectHeader{}, err
	}
	qb, err := cur.ReadU8()
	if err != nil {
		return ObjectHeader{}, err
	}
	qualifier := QualifierCode(qb)
	shape, width, ok := ShapeOf(qualifier)
	if !ok {
		return ObjectHeader{}, &ObjectParseError{Kind: UnknownQualifier, Qualifier: qb}
	}

	h := ObjectHeader{Group: group, Variation: variation, Qualifier: qualifier}

	if group == 0 {
		return parseAttributeHeader(cur, h, shape, width)
	}
	if group == 70 {
		return parseFileHeader(cur, h, shape)
	}

	info, known := Lookup(group, variation)
	h.Info = info
	h.KnownVariation = known
	if !known {
		return ObjectHeader{}, &ObjectParseError{Kind: UnknownGroupVariation, Group: group, Variation: variation}
	}

	switch shape {
	case ShapeAllObjects:
		h.Payload = HeaderPayload{Shape: shape}
		return h, nil

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
		objLen, err := objectPayloadLength(info, known, r.Count())
		if err != nil {
			return ObjectHeader{}, err
		}
		raw, err := cur.ReadBytes(objLen)
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
		// Count-only headers with VNone carry no object payload at all
		// (class polls, freeze commands addressed implicitly).
		if info.Kind == VNone && info.FixedSize == 0 && !info.IsBitPacked() {
			h.Payload = HeaderPayload{Shape: shape, Count: int(count)}
			return h, nil
		}
		objLen, err := objectPayloadLength(info, known, int(count))
		if err != nil {
			return ObjectHeader{}, err
		}
		raw, err := cur.ReadBytes(objLen)
		if err != nil {
			return ObjectHeader{}, err
		}
		h.Payload = HeaderPayload{Shape: shape, Count: int(count)}
		h.RawObjects = raw
		return h, nil

	case ShapeCountAndPrefix:
		count, err := cur.ReadUintAt(width)
		if err != nil {
			return ObjectHeader{}, err
		}
		objSize := info.FixedSize
		if objSize == 0 {
			return ObjectHeader{}, &ObjectParseError{Kind: InvalidQualifierForVariation, Group: group, Variation: variation, Qualifier: qb}
		}
		items := make([]PrefixedItem, 0, count)
		for i := uint32(0); i < count; i++ {
			prefix, err := cur.ReadUintAt(width)
			if err != nil {
				return ObjectHeader{}, err
			}
			raw, err := cur.ReadBytes(objSize)
			if err != nil {
				return ObjectHeader{}, err
			}
			items = append(items, PrefixedItem{Prefix: prefix, Raw: raw})
		}
		h.Payload = HeaderPayload{Shape: shape, Prefixed: items}
		return h, nil

	default:
		return ObjectHeader{}, &ObjectParseError{Kind: UnsupportedQualifierCode, Qualifier: qb}
	}
}

// objectPayloadLength computes the total byte length of count objects of
// the given variation, handling the bit-packed rounding rule
// (ceil(count*bits/8)).
func objectPayloadLength(info VariationInfo, known bool, count int) (int, error) {
	if !known {
		return 0, &ObjectParseError{Kind: UnsupportedQualifierCode}
	}
	if info.IsBitPacked() {
		totalBits := count * info.BitsPerObject
		return (totalBits + 7) / 8, nil
	}
	if info.FixedSize == 0 {
		return 0, nil
	}
	return info.FixedSize * count, nil
}

// parseFreeFormatLength reads the free-format count/length handling for
// Group 70 (exactly one item per header).
func parseFreeFormatLength(cur *ReadCursor) ([]byte, error) {
	length, err := cur.ReadU16LE()
	if err != nil {
		return nil, err
	}
	return cur.ReadBytes(int(length))
}
