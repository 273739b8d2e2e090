// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

// Package file implements the Group 70 file-transfer object codecs:
// authentication, open/close, transfer status, block transfer, and
// directory listing, all carried under the FreeFormat16 qualifier.
package file

import (
	"github.com/marrasen/go-dnp3/objects"
)

// PermissionBits mirrors the POSIX-like permission word carried in Open
// and DirectoryInfo objects.
type PermissionBits uint16

// FileType classifies a directory entry.
type FileType byte

const (
	FileTypeSimple    FileType = 0
	FileTypeDirectory FileType = 1
)

// AuthRequest is g70v2: a username/password pair requesting an
// authentication key for a subsequent Open.
type AuthRequest struct {
	AuthData []byte
}

// OpenRequest is g70v3, sent by a master to open or create a file.
type OpenRequest struct {
	FileNameOffset uint16
	FileNameSize   uint16
	Created        uint64 // DNP3 absolute time, ms since epoch
	Permissions    PermissionBits
	AuthKey        uint32
	FileSize       uint32
	OperationMode  byte
	MaxBlockSize   uint16
	RequestId      uint16
	FileName       string
}

// Status is the g70v4 status_code byte.
type Status byte

const (
	StatusSuccess         Status = 0
	StatusPermissionDenied Status = 1
	StatusInvalidMode     Status = 2
	StatusFileNotFound    Status = 3
	StatusFileLocked      Status = 4
	StatusTooManyOpen     Status = 5
	StatusInvalidHandle   Status = 6
	StatusWriteBlockSize  Status = 7
	StatusCommOverRun     Status = 8
	StatusAbortByUser     Status = 9
	StatusNotOpened       Status = 10
	StatusAuthFailed      Status = 11
)

// OpenResponse is g70v4, the outstation's status reply to Open/Close/Delete.
type OpenResponse struct {
	FileSize     uint32
	MaxBlockSize uint16
	RequestId    uint16
	Status       Status
}

// Block is g70v5, one data block of a file transfer. BlockIndex's top bit
// is the LAST-block marker.
type Block struct {
	BlockIndex uint32 // 31-bit index; bit 31 is the LAST flag
	Last       bool
	Data       []byte
}

const lastBlockBit = 1 << 31

// EncodeBlockIndex packs index and the LAST flag into the wire's 32-bit field.
func EncodeBlockIndex(index uint32, last bool) uint32 {
	if last {
		return index | lastBlockBit
	}
	return index &^ lastBlockBit
}

// DecodeBlockIndex unpacks the wire's 32-bit field into index and LAST flag.
func DecodeBlockIndex(raw uint32) (index uint32, last bool) {
	return raw &^ lastBlockBit, raw&lastBlockBit != 0
}

// TransportStatus is g70v6, acknowledging receipt of one block.
type TransportStatus struct {
	BlockIndex uint32
	Last       bool
	Status     byte
}

// Info is g70v7, file or directory metadata returned by Open/GetFileInfo.
type Info struct {
	FileNameOffset uint16
	FileNameSize   uint16
	FileType       FileType
	FileSize       uint32
	TimeOfCreation uint64
	Permissions    PermissionBits
	FileName       string
}

// Every g70 object that embeds a following variable-length name/data field
// repeats that field's offset as a fixed-width header value, which must
// equal the position where the variable data actually begins; callers
// validate the two agree before trusting the offset.

// DecodeOpenRequest decodes g70v3 from raw (the FreeFormat16 payload).
func DecodeOpenRequest(raw []byte) (OpenRequest, error) {
	c := objects.NewReadCursor(raw)
	var r OpenRequest
	var err error
	if r.FileNameOffset, err = readU16(c); err != nil {
		return r, err
	}
	if r.FileNameSize, err = readU16(c); err != nil {
		return r, err
	}
	created, err := c.ReadU32LE()
	if err != nil {
		return r, err
	}
	r.Created = uint64(created)
	perm, err := readU16(c)
	if err != nil {
		return r, err
	}
	r.Permissions = PermissionBits(perm)
	if r.AuthKey, err = c.ReadU32LE(); err != nil {
		return r, err
	}
	if r.FileSize, err = c.ReadU32LE(); err != nil {
		return r, err
	}
	if r.OperationMode, err = c.ReadU8(); err != nil {
		return r, err
	}
	if r.MaxBlockSize, err = readU16(c); err != nil {
		return r, err
	}
	if r.RequestId, err = readU16(c); err != nil {
		return r, err
	}
	const fixedHeaderSize = 2 + 2 + 4 + 2 + 4 + 4 + 1 + 2 + 2
	if int(r.FileNameOffset) != fixedHeaderSize {
		return r, &objects.BadOffsetError{Expected: uint16(fixedHeaderSize), Actual: r.FileNameOffset}
	}
	name, err := c.ReadBytes(int(r.FileNameSize))
	if err != nil {
		return r, err
	}
	r.FileName = string(name)
	return r, nil
}

// EncodeOpenRequest encodes g70v3, computing and validating the name
// offset against the fixed header size.
func EncodeOpenRequest(c *objects.WriteCursor, r OpenRequest) error {
	const fixedHeaderSize = 2 + 2 + 4 + 2 + 4 + 4 + 1 + 2 + 2
	start := c.Position()
	if err := writeU16(c, uint16(fixedHeaderSize)); err != nil {
		c.Seek(start)
		return err
	}
	if err := writeU16(c, uint16(len(r.FileName))); err != nil {
		c.Seek(start)
		return err
	}
	if err := c.WriteU32LE(uint32(r.Created)); err != nil {
		c.Seek(start)
		return err
	}
	if err := writeU16(c, uint16(r.Permissions)); err != nil {
		c.Seek(start)
		return err
	}
	if err := c.WriteU32LE(r.AuthKey); err != nil {
		c.Seek(start)
		return err
	}
	if err := c.WriteU32LE(r.FileSize); err != nil {
		c.Seek(start)
		return err
	}
	if err := c.WriteU8(r.OperationMode); err != nil {
		c.Seek(start)
		return err
	}
	if err := writeU16(c, r.MaxBlockSize); err != nil {
		c.Seek(start)
		return err
	}
	if err := writeU16(c, r.RequestId); err != nil {
		c.Seek(start)
		return err
	}
	if err := c.WriteBytes([]byte(r.FileName)); err != nil {
		c.Seek(start)
		return err
	}
	return nil
}

// DecodeOpenResponse decodes g70v4.
func DecodeOpenResponse(raw []byte) (OpenResponse, error) {
	c := objects.NewReadCursor(raw)
	var r OpenResponse
	var err error
	if r.FileSize, err = c.ReadU32LE(); err != nil {
		return r, err
	}
	if r.MaxBlockSize, err = readU16(c); err != nil {
		return r, err
	}
	if r.RequestId, err = readU16(c); err != nil {
		return r, err
	}
	status, err := c.ReadU8()
	if err != nil {
		return r, err
	}
	r.Status = Status(status)
	return r, nil
}

// EncodeOpenResponse encodes g70v4.
func EncodeOpenResponse(c *objects.WriteCursor, r OpenResponse) error {
	start := c.Position()
	if err := c.WriteU32LE(r.FileSize); err != nil {
		c.Seek(start)
		return err
	}
	if err := writeU16(c, r.MaxBlockSize); err != nil {
		c.Seek(start)
		return err
	}
	if err := writeU16(c, r.RequestId); err != nil {
		c.Seek(start)
		return err
	}
	if err := c.WriteU8(byte(r.Status)); err != nil {
		c.Seek(start)
		return err
	}
	return nil
}

// DecodeBlock decodes g70v5: a 4-byte block index (with LAST bit) followed
// by the raw block data, which fills the remainder of the object.
func DecodeBlock(raw []byte) (Block, error) {
	c := objects.NewReadCursor(raw)
	raw32, err := c.ReadU32LE()
	if err != nil {
		return Block{}, err
	}
	index, last := DecodeBlockIndex(raw32)
	data := c.ReadAll()
	return Block{BlockIndex: index, Last: last, Data: data}, nil
}

// EncodeBlock encodes g70v5.
func EncodeBlock(c *objects.WriteCursor, b Block) error {
	start := c.Position()
	if err := c.WriteU32LE(EncodeBlockIndex(b.BlockIndex, b.Last)); err != nil {
		c.Seek(start)
		return err
	}
	if err := c.WriteBytes(b.Data); err != nil {
		c.Seek(start)
		return err
	}
	return nil
}

// DecodeTransportStatus decodes g70v6.
func DecodeTransportStatus(raw []byte) (TransportStatus, error) {
	c := objects.NewReadCursor(raw)
	raw32, err := c.ReadU32LE()
	if err != nil {
		return TransportStatus{}, err
	}
	index, last := DecodeBlockIndex(raw32)
	status, err := c.ReadU8()
	if err != nil {
		return TransportStatus{}, err
	}
	return TransportStatus{BlockIndex: index, Last: last, Status: status}, nil
}

// EncodeTransportStatus encodes g70v6.
func EncodeTransportStatus(c *objects.WriteCursor, t TransportStatus) error {
	start := c.Position()
	if err := c.WriteU32LE(EncodeBlockIndex(t.BlockIndex, t.Last)); err != nil {
		c.Seek(start)
		return err
	}
	if err := c.WriteU8(t.Status); err != nil {
		c.Seek(start)
		return err
	}
	return nil
}

// DecodeInfo decodes g70v7/g70v8 (file info and directory-entry info share
// a layout).
func DecodeInfo(raw []byte) (Info, error) {
	c := objects.NewReadCursor(raw)
	var r Info
	var err error
	if r.FileNameOffset, err = readU16(c); err != nil {
		return r, err
	}
	if r.FileNameSize, err = readU16(c); err != nil {
		return r, err
	}
	ft, err := c.ReadU8()
	if err != nil {
		return r, err
	}
	r.FileType = FileType(ft)
	if r.FileSize, err = c.ReadU32LE(); err != nil {
		return r, err
	}
	created, err := c.ReadU32LE()
	if err != nil {
		return r, err
	}
	r.TimeOfCreation = uint64(created)
	perm, err := readU16(c)
	if err != nil {
		return r, err
	}
	r.Permissions = PermissionBits(perm)
	const fixedHeaderSize = 2 + 2 + 1 + 4 + 4 + 2
	if int(r.FileNameOffset) != fixedHeaderSize {
		return r, &objects.BadOffsetError{Expected: uint16(fixedHeaderSize), Actual: r.FileNameOffset}
	}
	name, err := c.ReadBytes(int(r.FileNameSize))
	if err != nil {
		return r, err
	}
	r.FileName = string(name)
	return r, nil
}

// EncodeInfo encodes g70v7/g70v8.
func EncodeInfo(c *objects.WriteCursor, r Info) error {
	const fixedHeaderSize = 2 + 2 + 1 + 4 + 4 + 2
	start := c.Position()
	if err := writeU16(c, uint16(fixedHeaderSize)); err != nil {
		c.Seek(start)
		return err
	}
	if err := writeU16(c, uint16(len(r.FileName))); err != nil {
		c.Seek(start)
		return err
	}
	if err := c.WriteU8(byte(r.FileType)); err != nil {
		c.Seek(start)
		return err
	}
	if err := c.WriteU32LE(r.FileSize); err != nil {
		c.Seek(start)
		return err
	}
	if err := c.WriteU32LE(uint32(r.TimeOfCreation)); err != nil {
		c.Seek(start)
		return err
	}
	if err := writeU16(c, uint16(r.Permissions)); err != nil {
		c.Seek(start)
		return err
	}
	if err := c.WriteBytes([]byte(r.FileName)); err != nil {
		c.Seek(start)
		return err
	}
	return nil
}

// DecodeAuthRequest decodes g70v2: an opaque auth-data blob filling the object.
func DecodeAuthRequest(raw []byte) AuthRequest { return AuthRequest{AuthData: raw} }

// EncodeAuthRequest encodes g70v2.
func EncodeAuthRequest(c *objects.WriteCursor, r AuthRequest) error {
	return c.WriteBytes(r.AuthData)
}

func readU16(c *objects.ReadCursor) (uint16, error)   { return c.ReadU16LE() }
func writeU16(c *objects.WriteCursor, v uint16) error { return c.WriteU16LE(v) }
