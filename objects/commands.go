// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package objects

import "fmt"

// CommandStatus is the status byte trailing every control-direction
// object (Group 12, 41), echoed back in SELECT/OPERATE/DIRECT_OPERATE
// responses.
type CommandStatus byte

const (
	CommandSuccess            CommandStatus = 0
	CommandTimeout            CommandStatus = 1
	CommandNoSelect           CommandStatus = 2
	CommandFormatError        CommandStatus = 3
	CommandNotSupported       CommandStatus = 4
	CommandAlreadyActive      CommandStatus = 5
	CommandHardwareError      CommandStatus = 6
	CommandLocal              CommandStatus = 7
	CommandTooManyOps         CommandStatus = 8
	CommandNotAuthorized      CommandStatus = 9
	CommandAutomationInhibit  CommandStatus = 10
	CommandProcessingLimited  CommandStatus = 11
	CommandOutOfRange         CommandStatus = 12
	CommandDownstreamLocal    CommandStatus = 13
	CommandAlreadyComplete    CommandStatus = 14
	CommandBlocked            CommandStatus = 15
	CommandCanceled           CommandStatus = 16
	CommandBlockedOtherMaster CommandStatus = 17
	CommandDownstreamFail     CommandStatus = 18
	CommandNonParticipating   CommandStatus = 126
)

func (c CommandStatus) String() string {
	if c == CommandSuccess {
		return "SUCCESS"
	}
	return fmt.Sprintf("STATUS(%d)", byte(c))
}

// ControlCode is the first byte of a Group 12 Var 1 CROB (Group 12 is the
// control-direction companion to Groups 10/11).
type ControlCode byte

const (
	OpTypeNul           ControlCode = 0x00
	OpTypePulseOn       ControlCode = 0x01
	OpTypePulseOff      ControlCode = 0x02
	OpTypeLatchOn       ControlCode = 0x03
	OpTypeLatchOff      ControlCode = 0x04
	TripCloseMaskTrip   ControlCode = 0x80
	TripCloseMaskClose  ControlCode = 0x40
	ClearMaskQueue      ControlCode = 0x10 // QU bit
	ClearMaskClear      ControlCode = 0x20 // CR bit
)

// ControlRelayOutputBlock is the Group 12 Var 1 control object.
type ControlRelayOutputBlock struct {
	Code    ControlCode
	Count   byte
	OnTime  uint32
	OffTime uint32
	Status  CommandStatus
}

const crobSize = 11

// WriteCROB encodes a CROB in its fixed 11-byte layout.
func WriteCROB(c *WriteCursor, v ControlRelayOutputBlock) error {
	if err := c.WriteU8(byte(v.Code)); err != nil {
		return err
	}
	if err := c.WriteU8(v.Count); err != nil {
		return err
	}
	if err := c.WriteU32LE(v.OnTime); err != nil {
		return err
	}
	if err := c.WriteU32LE(v.OffTime); err != nil {
		return err
	}
	return c.WriteU8(byte(v.Status))
}

// ReadCROB decodes a CROB.
func ReadCROB(c *ReadCursor) (ControlRelayOutputBlock, error) {
	var v ControlRelayOutputBlock
	code, err := c.ReadU8()
	if err != nil {
		return v, err
	}
	count, err := c.ReadU8()
	if err != nil {
		return v, err
	}
	onTime, err := c.ReadU32LE()
	if err != nil {
		return v, err
	}
	offTime, err := c.ReadU32LE()
	if err != nil {
		return v, err
	}
	status, err := c.ReadU8()
	if err != nil {
		return v, err
	}
	return ControlRelayOutputBlock{ControlCode(code), count, onTime, offTime, CommandStatus(status)}, nil
}

// AnalogOutputCommand is the Group 41 control object: a value of the
// variation's kind plus a trailing CommandStatus.
type AnalogOutputCommand struct {
	Variation byte // 1=u32, 2=u16, 3=f32, 4=f64
	U32       uint32
	U16       uint16
	F32       float32
	F64       float64
	Status    CommandStatus
}

// WriteAnalogOutputCommand encodes a Group 41 command of the given variation.
func WriteAnalogOutputCommand(c *WriteCursor, v AnalogOutputCommand) error {
	switch v.Variation {
	case 1:
		if err := c.WriteU32LE(v.U32); err != nil {
			return err
		}
	case 2:
		if err := c.WriteU16LE(v.U16); err != nil {
			return err
		}
	case 3:
		if err := c.WriteF32LE(v.F32); err != nil {
			return err
		}
	case 4:
		if err := c.WriteF64LE(v.F64); err != nil {
			return err
		}
	default:
		return &WriteError{Reason: "unknown analog output command variation"}
	}
	return c.WriteU8(byte(v.Status))
}

// ReadAnalogOutputCommand decodes a Group 41 command of the given variation.
func ReadAnalogOutputCommand(c *ReadCursor, variation byte) (AnalogOutputCommand, error) {
	v := AnalogOutputCommand{Variation: variation}
	var err error
	switch variation {
	case 1:
		v.U32, err = c.ReadU32LE()
	case 2:
		v.U16, err = c.ReadU16LE()
	case 3:
		v.F32, err = c.ReadF32LE()
	case 4:
		v.F64, err = c.ReadF64LE()
	default:
		return v, &ObjectParseError{Kind: UnknownGroupVariation, Group: 41, Variation: variation}
	}
	if err != nil {
		return v, err
	}
	status, err := c.ReadU8()
	if err != nil {
		return v, err
	}
	v.Status = CommandStatus(status)
	return v, nil
}
