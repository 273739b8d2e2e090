// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package objects

import "fmt"

// EndpointAddress is a 16-bit DNP3 data-link address, 0-65519.
type EndpointAddress uint16

// MaxEndpointAddress is the largest non-reserved address.
const MaxEndpointAddress EndpointAddress = 65519

// Broadcast addresses reserved at the top of the address range.
const (
	BroadcastMandatoryConfirm EndpointAddress = 65533
	BroadcastOptionalConfirm  EndpointAddress = 65534
	BroadcastNoConfirm        EndpointAddress = 65535
)

// AssignAddress validates raw against the reserved range and returns a
// usable EndpointAddress. Reserved values (65520-65535, including the
// three broadcast addresses) fail with ErrReservedAddress.
func AssignAddress(raw uint16) (EndpointAddress, error) {
	if raw > uint16(MaxEndpointAddress) {
		return 0, fmt.Errorf("%w: %d", ErrReservedAddress, raw)
	}
	return EndpointAddress(raw), nil
}

// IsBroadcast reports whether addr is one of the three broadcast addresses.
func IsBroadcast(addr uint16) bool {
	switch EndpointAddress(addr) {
	case BroadcastMandatoryConfirm, BroadcastOptionalConfirm, BroadcastNoConfirm:
		return true
	default:
		return false
	}
}

// BroadcastConfirmMode describes how a broadcast's destination address
// requests confirmation, passed up from the transport layer.
type BroadcastConfirmMode int

const (
	BroadcastNone BroadcastConfirmMode = iota
	BroadcastOptional
	BroadcastMandatory
)

// ConfirmModeFor classifies a raw destination address into its broadcast
// confirm mode, or BroadcastNone if it is not a broadcast address at all.
func ConfirmModeFor(addr uint16) BroadcastConfirmMode {
	switch EndpointAddress(addr) {
	case BroadcastMandatoryConfirm:
		return BroadcastMandatory
	case BroadcastOptionalConfirm, BroadcastNoConfirm:
		return BroadcastOptional
	default:
		return BroadcastNone
	}
}

// Sequence is the 4-bit application-layer sequence counter.
// Solicited and unsolicited directions keep distinct Sequence counters.
type Sequence uint8

// Value returns the counter masked to its 4 significant bits.
func (s Sequence) Value() uint8 { return uint8(s) & 0x0F }

// Next returns the counter incremented with wraparound at 16.
func (s Sequence) Next() Sequence { return Sequence((uint8(s) + 1) & 0x0F) }

// AssociationId identifies an outstation scoped to one master channel.
type AssociationId = EndpointAddress
