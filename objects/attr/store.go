// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

// Package attr implements the device attribute store for Group 0, spec
// §3.7: a per-set map of variation (0-253) to typed attribute value, plus
// the two reserved selectors (254 "all attributes", 255 "list of
// variations in this set").
package attr

import (
	"fmt"

	"github.com/marrasen/go-dnp3/objects"
)

// ErrBadAttribute is returned by Define/Write when a value's wire type
// does not match the attribute's declared type.
type ErrBadAttribute struct {
	Set       byte
	Variation byte
	Kind      objects.AttrErrorKind
}

func (e *ErrBadAttribute) Error() string {
	return fmt.Sprintf("dnp3: bad attribute g0v%d set %d (%v)", e.Variation, e.Set, e.Kind)
}

// Descriptor declares an attribute's identity and mutability, set once at
// configuration time. Validation on write is limited to the writable flag
// and a matching type tag; standard attributes' defined value semantics
// are not otherwise enforced.
type Descriptor struct {
	Set       byte
	Variation byte
	Type      objects.AttrTypeCode
	Writable  bool
}

type entry struct {
	desc  Descriptor
	value objects.AttrValue
}

// Store holds every defined attribute across every set.
type Store struct {
	entries map[attrKey]*entry
	// order preserves insertion order per set, needed for the
	// list-of-variations (255) selector response.
	order map[byte][]byte
}

type attrKey struct {
	set, variation byte
}

// NewStore returns an empty attribute store.
func NewStore() *Store {
	return &Store{entries: make(map[attrKey]*entry), order: make(map[byte][]byte)}
}

// Define registers an attribute descriptor with its initial value. Called
// at configuration time, not during request processing.
func (s *Store) Define(d Descriptor, initial objects.AttrValue) error {
	if initial.Type != d.Type {
		return &ErrBadAttribute{Set: d.Set, Variation: d.Variation, Kind: objects.AttrBadType}
	}
	key := attrKey{d.Set, d.Variation}
	if _, exists := s.entries[key]; !exists {
		s.order[d.Set] = append(s.order[d.Set], d.Variation)
	}
	s.entries[key] = &entry{desc: d, value: initial}
	return nil
}

// Get returns the attribute's current value.
func (s *Store) Get(set, variation byte) (objects.AttrValue, bool) {
	e, ok := s.entries[attrKey{set, variation}]
	if !ok {
		return objects.AttrValue{}, false
	}
	return e.value, true
}

// Write sets an attribute's value from an incoming WRITE request, subject
// to the writable flag and a matching type tag.
func (s *Store) Write(set, variation byte, v objects.AttrValue) error {
	e, ok := s.entries[attrKey{set, variation}]
	if !ok {
		return &ErrBadAttribute{Set: set, Variation: variation, Kind: objects.AttrUnknownVariation}
	}
	if !e.desc.Writable {
		return &ErrBadAttribute{Set: set, Variation: variation, Kind: objects.AttrNotWritable}
	}
	if v.Type != e.desc.Type {
		return &ErrBadAttribute{Set: set, Variation: variation, Kind: objects.AttrBadType}
	}
	e.value = v
	return nil
}

// AllInSet returns every defined attribute in set, in definition order,
// for the reserved variation-254 "all attributes" selector.
func (s *Store) AllInSet(set byte) []objects.AttrValue {
	vars := s.order[set]
	out := make([]objects.AttrValue, 0, len(vars))
	for _, v := range vars {
		if e, ok := s.entries[attrKey{set, v}]; ok {
			out = append(out, e.value)
		}
	}
	return out
}

// VariationsInSet returns the list of defined variation numbers in set, in
// definition order, for the reserved variation-255 selector.
func (s *Store) VariationsInSet(set byte) []byte {
	out := make([]byte, len(s.order[set]))
	copy(out, s.order[set])
	return out
}
