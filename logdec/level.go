// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

// Package logdec provides per-layer decode-level logging for the DNP3
// stack: independent verbosity for the application layer, the transport
// function, and the link layer, the way a typical set_decode_level
// control knob works. The provider interface and default log.Logger
// backend are adapted from the teacher's clog package.
package logdec

import (
	"log"
	"os"
	"sync/atomic"
)

// Level is the logging severity for one layer.
// Ordering: Off < Nominal < ObjectValues < All.
type Level uint32

const (
	// LevelOff disables logging for the layer entirely.
	LevelOff Level = iota
	// LevelNominal logs headers and outcomes but not object values.
	LevelNominal
	// LevelObjectValues additionally logs decoded object values.
	LevelObjectValues
	// LevelAll additionally logs raw bytes on the wire.
	LevelAll
)

// Provider is the pluggable logging backend. Critical/Error/Warn/Debug
// mirror the teacher's LogProvider so a caller can swap in
// logrus.FieldLogger (see Logger.SetProvider) without changing the
// call sites.
type Provider interface {
	Critical(format string, v ...interface{})
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// DecodeLevel holds the three independent layer levels for one channel.
// Sessions embed a Logger built from a DecodeLevel exactly as the
// teacher's Client/Server embed clog.Clog.
type DecodeLevel struct {
	app       uint32
	transport uint32
	link      uint32
}

// NewDecodeLevel returns a DecodeLevel with all layers off.
func NewDecodeLevel() *DecodeLevel {
	return &DecodeLevel{}
}

// SetAppLevel sets the application-layer (fragment/header) decode level.
func (d *DecodeLevel) SetAppLevel(l Level) { atomic.StoreUint32(&d.app, uint32(l)) }

// SetTransportLevel sets the transport-function segmentation decode level.
func (d *DecodeLevel) SetTransportLevel(l Level) { atomic.StoreUint32(&d.transport, uint32(l)) }

// SetLinkLevel sets the link-layer frame decode level.
func (d *DecodeLevel) SetLinkLevel(l Level) { atomic.StoreUint32(&d.link, uint32(l)) }

// AppLevel returns the current application-layer decode level.
func (d *DecodeLevel) AppLevel() Level { return Level(atomic.LoadUint32(&d.app)) }

// TransportLevel returns the current transport-function decode level.
func (d *DecodeLevel) TransportLevel() Level { return Level(atomic.LoadUint32(&d.transport)) }

// LinkLevel returns the current link-layer decode level.
func (d *DecodeLevel) LinkLevel() Level { return Level(atomic.LoadUint32(&d.link)) }

// Logger is the logging implementation embedded by sessions, keyed to a
// DecodeLevel's application-layer verbosity for the Debug gate.
type Logger struct {
	provider Provider
	levels   *DecodeLevel
}

// NewLogger creates a Logger using the default log.Logger-backed
// provider, prefixed as the teacher's clog.NewLogger does.
func NewLogger(prefix string, levels *DecodeLevel) Logger {
	return Logger{
		provider: defaultProvider{log.New(os.Stdout, prefix, log.LstdFlags)},
		levels:   levels,
	}
}

// SetProvider swaps in a different backend, e.g. a logrus.FieldLogger
// adapter, without touching call sites.
func (l *Logger) SetProvider(p Provider) {
	if p != nil {
		l.provider = p
	}
}

func (l Logger) allowed(required Level) bool {
	return l.levels != nil && l.levels.AppLevel() >= required
}

// Critical logs a CRITICAL level message unconditionally of decode level.
func (l Logger) Critical(format string, v ...interface{}) { l.provider.Critical(format, v...) }

// Error logs an ERROR level message unconditionally of decode level.
func (l Logger) Error(format string, v ...interface{}) { l.provider.Error(format, v...) }

// Warn logs a WARN level message unconditionally of decode level.
func (l Logger) Warn(format string, v ...interface{}) { l.provider.Warn(format, v...) }

// Debug logs a fragment-level trace, gated by the application decode level.
func (l Logger) Debug(format string, v ...interface{}) {
	if l.allowed(LevelNominal) {
		l.provider.Debug(format, v...)
	}
}

// Values logs object-value detail, gated by LevelObjectValues.
func (l Logger) Values(format string, v ...interface{}) {
	if l.allowed(LevelObjectValues) {
		l.provider.Debug(format, v...)
	}
}

type defaultProvider struct {
	*log.Logger
}

var _ Provider = (*defaultProvider)(nil)

func (d defaultProvider) Critical(format string, v ...interface{}) { d.Printf("[C]: "+format, v...) }
func (d defaultProvider) Error(format string, v ...interface{})    { d.Printf("[E]: "+format, v...) }
func (d defaultProvider) Warn(format string, v ...interface{})     { d.Printf("[W]: "+format, v...) }
func (d defaultProvider) Debug(format string, v ...interface{})    { d.Printf("[D]: "+format, v...) }
