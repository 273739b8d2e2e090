// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

// Package database implements the outstation's static point database:
// one table per measurement kind keyed by 16-bit index, each point
// carrying its current value, its static/event variation choice, its
// event class assignment, and (for analog points) a dead-band
// threshold that gates event generation.
package database

import (
	"sort"
	"sync"

	"github.com/marrasen/go-dnp3/events"
	"github.com/marrasen/go-dnp3/objects"
)

// PointConfig is a point's static configuration, set once when the point
// is added to the database.
type PointConfig struct {
	Kind            objects.MeasurementKind
	StaticVariation objects.GroupVariation // zero value means "use Kind's default variation"
	EventVariation  objects.GroupVariation
	Class           events.Class
	DeadBand        float64 // analog points only; 0 disables dead-band suppression
}

type point struct {
	cfg     PointConfig
	current objects.Measurement
	lastReported float64 // last value that produced an event, for dead-band comparison
}

// Database is the outstation's point database for one association.
type Database struct {
	mu     sync.Mutex
	points map[objects.MeasurementKind]map[uint16]*point
	buf    *events.Buffer
}

// New returns an empty Database backed by buf for event generation.
func New(buf *events.Buffer) *Database {
	return &Database{
		points: make(map[objects.MeasurementKind]map[uint16]*point),
		buf:    buf,
	}
}

// AddPoint defines a point at index with the given configuration and
// initial value. Defaults are resolved for zero-value StaticVariation/
// EventVariation from the kind's default-variation table.
func (d *Database) AddPoint(index uint16, cfg PointConfig, initial objects.Measurement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cfg.StaticVariation == (objects.GroupVariation{}) {
		cfg.StaticVariation = objects.DefaultStaticVariation(cfg.Kind)
	}
	if cfg.EventVariation == (objects.GroupVariation{}) {
		cfg.EventVariation = objects.DefaultEventVariation(cfg.Kind)
	}
	if d.points[cfg.Kind] == nil {
		d.points[cfg.Kind] = make(map[uint16]*point)
	}
	d.points[cfg.Kind][index] = &point{cfg: cfg, current: initial, lastReported: initial.Float64()}
}

// Update sets a point's current value, generating an event if the new
// value differs from the last-reported value by more than the point's
// dead-band; binary/counter points with DeadBand==0 always generate on
// any change.
func (d *Database) Update(kind objects.MeasurementKind, index uint16, m objects.Measurement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	table := d.points[kind]
	if table == nil {
		return
	}
	p, ok := table[index]
	if !ok {
		return
	}
	changed := valueChanged(p.current, m)
	p.current = m
	if !changed {
		return
	}
	v := m.Float64()
	if p.cfg.DeadBand > 0 {
		delta := v - p.lastReported
		if delta < 0 {
			delta = -delta
		}
		if delta <= p.cfg.DeadBand {
			return
		}
	}
	p.lastReported = v
	d.buf.Add(toEvent(index, p.cfg, m))
}

func valueChanged(a, b objects.Measurement) bool {
	if a.Flags.Value() != b.Flags.Value() {
		return true
	}
	switch b.Kind {
	case objects.KindBinaryInput, objects.KindBinaryOutputStatus:
		return a.Bool != b.Bool
	case objects.KindDoubleBitBinary:
		return a.Double != b.Double
	case objects.KindCounter, objects.KindFrozenCounter:
		return a.U32 != b.U32
	case objects.KindAnalogInput, objects.KindAnalogOutputStatus:
		return a.F64 != b.F64
	default:
		return string(a.Octets) != string(b.Octets)
	}
}

func toEvent(index uint16, cfg PointConfig, m objects.Measurement) events.Event {
	return events.Event{
		Index:     index,
		Kind:      cfg.Kind,
		Variation: cfg.EventVariation,
		Class:     cfg.Class,
		Value: objects.Value{
			Flags:  m.Flags,
			Time:   m.Time,
			Bool:   m.Bool,
			Double: m.Double,
			U32:    m.U32,
			F64:    m.F64,
			Octets: m.Octets,
		},
	}
}

// Get returns a point's current measurement.
func (d *Database) Get(kind objects.MeasurementKind, index uint16) (objects.Measurement, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	table := d.points[kind]
	if table == nil {
		return objects.Measurement{}, false
	}
	p, ok := table[index]
	if !ok {
		return objects.Measurement{}, false
	}
	return p.current, true
}

// IndicesInRange returns the sorted indices of kind's points within
// [start, stop], for static-data range reads.
func (d *Database) IndicesInRange(kind objects.MeasurementKind, start, stop uint32) []uint16 {
	table := d.points[kind]
	out := make([]uint16, 0, len(table))
	for idx := range table {
		if uint32(idx) >= start && uint32(idx) <= stop {
			out = append(out, idx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StaticVariation returns the configured static-report variation for a point.
func (d *Database) StaticVariation(kind objects.MeasurementKind, index uint16) (objects.GroupVariation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	table := d.points[kind]
	if table == nil {
		return objects.GroupVariation{}, false
	}
	p, ok := table[index]
	if !ok {
		return objects.GroupVariation{}, false
	}
	return p.cfg.StaticVariation, true
}

// AllKinds returns every measurement kind with at least one defined point,
// used by an integrity poll response to know which static groups to walk.
func (d *Database) AllKinds() []objects.MeasurementKind {
	out := make([]objects.MeasurementKind, 0, len(d.points))
	for k := range d.points {
		out = append(out, k)
	}
	return out
}
