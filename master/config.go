// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

// Package master implements the master (controlling station) session
// state machine: the per-association task scheduler, request execution
// with multi-fragment read assembly, time synchronization, and a
// file-transfer read driver.
package master

import (
	"time"

	"github.com/marrasen/go-dnp3/objects"
)

// ClassMask selects which event classes an association is interested in,
// mirroring outstation.ClassMask but kept independent to avoid a
// cross-package dependency neither side needs.
type ClassMask struct {
	Class1, Class2, Class3 bool
}

func (m ClassMask) Any() bool { return m.Class1 || m.Class2 || m.Class3 }

// AssociationConfig is the per-association configuration, defaulted the
// way the teacher's cs104.Config is: DefaultAssociationConfig() plus a
// Valid() method substituting defaults for zero values.
type AssociationConfig struct {
	Address       objects.EndpointAddress
	Destination   objects.EndpointAddress

	ResponseTimeout  time.Duration
	ConfirmTimeout   time.Duration
	KeepAliveTimeout time.Duration

	MinRetryDelay time.Duration
	MaxRetryDelay time.Duration

	DisableUnsolOnStartup    bool
	EnableUnsolOnStartup     bool
	UnsolClasses             ClassMask
	IntegrityOnEventOverflow bool
	AutoTimeSyncEnabled      bool
	LanTimeSync              bool // Lan procedure (RecordCurrentTime) instead of NonLan (DelayMeasure)

	UserRequestQueueSize int
	TxBufferSize         int
}

const (
	defaultResponseTimeout  = 5 * time.Second
	defaultConfirmTimeout   = 5 * time.Second
	defaultKeepAliveTimeout = 60 * time.Second
	defaultMinRetryDelay    = 1 * time.Second
	defaultMaxRetryDelay    = 30 * time.Second
	defaultQueueSize        = 64
	defaultTxBufferSize     = 2048
)

// DefaultAssociationConfig returns a config with every timeout, retry
// bound, and buffer size set to a sensible default.
func DefaultAssociationConfig(address, destination objects.EndpointAddress) AssociationConfig {
	return AssociationConfig{
		Address:                  address,
		Destination:              destination,
		ResponseTimeout:          defaultResponseTimeout,
		ConfirmTimeout:           defaultConfirmTimeout,
		KeepAliveTimeout:         defaultKeepAliveTimeout,
		MinRetryDelay:            defaultMinRetryDelay,
		MaxRetryDelay:            defaultMaxRetryDelay,
		DisableUnsolOnStartup:    true,
		IntegrityOnEventOverflow: true,
		AutoTimeSyncEnabled:      true,
		UserRequestQueueSize:     defaultQueueSize,
		TxBufferSize:             defaultTxBufferSize,
	}
}

// Valid fills in zero-valued fields with defaults and validates the
// address/buffer invariants, returning objects.ErrReservedAddress or
// objects.ErrBufferTooSmall rather than panicking on a zero-value Config.
func (c AssociationConfig) Valid() (AssociationConfig, error) {
	if _, err := objects.AssignAddress(uint16(c.Destination)); err != nil {
		return c, err
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = defaultResponseTimeout
	}
	if c.ConfirmTimeout == 0 {
		c.ConfirmTimeout = defaultConfirmTimeout
	}
	if c.KeepAliveTimeout == 0 {
		c.KeepAliveTimeout = defaultKeepAliveTimeout
	}
	if c.MinRetryDelay == 0 {
		c.MinRetryDelay = defaultMinRetryDelay
	}
	if c.MaxRetryDelay == 0 {
		c.MaxRetryDelay = defaultMaxRetryDelay
	}
	if c.UserRequestQueueSize == 0 {
		c.UserRequestQueueSize = defaultQueueSize
	}
	if c.TxBufferSize == 0 {
		c.TxBufferSize = defaultTxBufferSize
	}
	if c.TxBufferSize < 249 {
		return c, objects.ErrBufferTooSmall
	}
	return c, nil
}
