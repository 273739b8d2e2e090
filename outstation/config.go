// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

// Package outstation implements the outstation session state machine:
// request classification, SELECT/OPERATE sequencing, unsolicited
// response flow, and freeze handling.
package outstation

import (
	"time"

	"github.com/marrasen/go-dnp3/objects"
)

// Config is the per-association outstation configuration, defaulted the
// way the teacher's ClientOption/ServerOption structs are: a
// DefaultConfig constructor plus a Valid method that substitutes
// defaults for zero values rather than rejecting them outright.
type Config struct {
	Address       objects.EndpointAddress
	MasterAddress objects.EndpointAddress

	SelectTimeout         time.Duration
	SolConfirmTimeout     time.Duration
	UnsolConfirmTimeout   time.Duration
	UnsolicitedRetryDelay time.Duration
	MaxUnsolicitedRetries int // 0 means retry forever
	KeepAliveTimeout      time.Duration

	TxBufferSize      int
	UnsolTxBufferSize int

	EnabledUnsolClasses ClassMask

	EventBufferClass1 int
	EventBufferClass2 int
	EventBufferClass3 int
}

// ClassMask selects which event classes are eligible for unsolicited
// reporting.
type ClassMask struct {
	Class1, Class2, Class3 bool
}

// Any reports whether at least one class is enabled.
func (m ClassMask) Any() bool { return m.Class1 || m.Class2 || m.Class3 }

const (
	defaultSelectTimeout    = 5 * time.Second
	defaultConfirmTimeout   = 5 * time.Second
	defaultUnsolRetryDelay  = 2 * time.Second
	defaultKeepAliveTimeout = 30 * time.Second
	minTxBufferSize         = 249
	defaultTxBufferSize     = 2048
)

// DefaultConfig returns a Config with every timeout and buffer size set to
// a sensible default; callers override only what they need.
func DefaultConfig(address, master objects.EndpointAddress) Config {
	return Config{
		Address:               address,
		MasterAddress:         master,
		SelectTimeout:         defaultSelectTimeout,
		SolConfirmTimeout:     defaultConfirmTimeout,
		UnsolConfirmTimeout:   defaultConfirmTimeout,
		UnsolicitedRetryDelay: defaultUnsolRetryDelay,
		MaxUnsolicitedRetries: 0,
		KeepAliveTimeout:      defaultKeepAliveTimeout,
		TxBufferSize:          defaultTxBufferSize,
		UnsolTxBufferSize:     defaultTxBufferSize,
		EventBufferClass1:     100,
		EventBufferClass2:     100,
		EventBufferClass3:     100,
	}
}

// Valid fills in defaults for any zero-valued field and validates the
// address/buffer invariants, returning objects.ErrReservedAddress or
// objects.ErrBufferTooSmall rather than panicking on a zero-value Config.
func (c Config) Valid() (Config, error) {
	if _, err := objects.AssignAddress(uint16(c.Address)); err != nil {
		return c, err
	}
	if c.SelectTimeout == 0 {
		c.SelectTimeout = defaultSelectTimeout
	}
	if c.SolConfirmTimeout == 0 {
		c.SolConfirmTimeout = defaultConfirmTimeout
	}
	if c.UnsolConfirmTimeout == 0 {
		c.UnsolConfirmTimeout = defaultConfirmTimeout
	}
	if c.UnsolicitedRetryDelay == 0 {
		c.UnsolicitedRetryDelay = defaultUnsolRetryDelay
	}
	if c.KeepAliveTimeout == 0 {
		c.KeepAliveTimeout = defaultKeepAliveTimeout
	}
	if c.TxBufferSize == 0 {
		c.TxBufferSize = defaultTxBufferSize
	}
	if c.TxBufferSize < minTxBufferSize {
		return c, objects.ErrBufferTooSmall
	}
	if c.UnsolTxBufferSize == 0 {
		c.UnsolTxBufferSize = c.TxBufferSize
	}
	return c, nil
}
