// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

// Package events implements the outstation's bounded event buffer: one
// FIFO per class (1, 2, 3), discard-oldest overflow, and the
// IIN2.EVENT_BUFFER_OVERFLOW latch.
package events

import (
	"container/list"

	"github.com/marrasen/go-dnp3/objects"
)

// Class is an event reporting class, 1-3.
type Class int

const (
	Class1 Class = 1
	Class2 Class = 2
	Class3 Class = 3
)

// Event is one buffered event: its point index, the measurement kind it
// came from, and the already-selected event variation to encode with.
type Event struct {
	Index      uint16
	Kind       objects.MeasurementKind
	Variation  objects.GroupVariation
	Value      objects.Value
	Class      Class
	sequence   uint64 // insertion order, used by Remove to match selected events
}

// Buffer holds events for every class with independently configured
// per-class capacity.
type Buffer struct {
	classes  map[Class]*list.List
	capacity map[Class]int
	overflow bool
	nextSeq  uint64
}

// NewBuffer returns a Buffer with the given per-class capacities. A class
// absent from capacities gets capacity 0 (disabled).
func NewBuffer(capacities map[Class]int) *Buffer {
	b := &Buffer{
		classes:  make(map[Class]*list.List),
		capacity: make(map[Class]int),
	}
	for _, c := range []Class{Class1, Class2, Class3} {
		b.classes[c] = list.New()
		b.capacity[c] = capacities[c]
	}
	return b
}

// Add inserts an event into its class's FIFO, discarding the oldest event
// in that class and latching overflow if the class is already at
// capacity; the latch stays set until ClearOverflow acknowledges it.
func (b *Buffer) Add(e Event) {
	cap := b.capacity[e.Class]
	if cap <= 0 {
		return
	}
	q := b.classes[e.Class]
	if q.Len() >= cap {
		q.Remove(q.Front())
		b.overflow = true
	}
	e.sequence = b.nextSeq
	b.nextSeq++
	q.PushBack(e)
}

// Overflow reports whether any class has discarded an event since the
// last ClearOverflow call.
func (b *Buffer) Overflow() bool { return b.overflow }

// ClearOverflow resets the overflow latch, called once the outstation has
// reported IIN2.EVENT_BUFFER_OVERFLOW to the master.
func (b *Buffer) ClearOverflow() { b.overflow = false }

// Count returns the number of buffered events in a class.
func (b *Buffer) Count(c Class) int { return b.classes[c].Len() }

// Pending reports whether any class has at least one buffered event.
func (b *Buffer) Pending() bool {
	for _, c := range []Class{Class1, Class2, Class3} {
		if b.classes[c].Len() > 0 {
			return true
		}
	}
	return false
}

// Select copies up to max events of class c, oldest first, without
// removing them: events are only removed once Remove is called for a
// matching CONFIRM, so a lost response can be retried against the same
// buffered events.
func (b *Buffer) Select(c Class, max int) []Event {
	q := b.classes[c]
	out := make([]Event, 0, max)
	for el := q.Front(); el != nil && len(out) < max; el = el.Next() {
		out = append(out, el.Value.(Event))
	}
	return out
}

// SelectAll copies up to max buffered events across the classes the caller
// requests, oldest first within each class but class order following the
// caller's priority (typically 1, 2, 3).
func (b *Buffer) SelectAll(classes []Class, max int) []Event {
	out := make([]Event, 0, max)
	for _, c := range classes {
		if len(out) >= max {
			break
		}
		out = append(out, b.Select(c, max-len(out))...)
	}
	return out
}

// Remove deletes exactly the events previously returned by Select/SelectAll
// (matched by class and sequence), called once the master CONFIRMs
// receipt.
func (b *Buffer) Remove(selected []Event) {
	bySeq := make(map[Class]map[uint64]bool)
	for _, e := range selected {
		if bySeq[e.Class] == nil {
			bySeq[e.Class] = make(map[uint64]bool)
		}
		bySeq[e.Class][e.sequence] = true
	}
	for c, seqs := range bySeq {
		q := b.classes[c]
		var next *list.Element
		for el := q.Front(); el != nil; el = next {
			next = el.Next()
			if seqs[el.Value.(Event).sequence] {
				q.Remove(el)
			}
		}
	}
}

// Clear discards every buffered event in every class and resets the
// overflow latch, for an explicit reset.
func (b *Buffer) Clear() {
	for _, c := range []Class{Class1, Class2, Class3} {
		b.classes[c].Init()
	}
	b.overflow = false
}
