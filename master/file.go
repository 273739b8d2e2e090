// SPDX-License-Identifier: MIT
// Copyright (c) 2026 go-dnp3 contributors.

package master

import (
	"context"
	"errors"

	"github.com/marrasen/go-dnp3/objects"
	"github.com/marrasen/go-dnp3/objects/file"
)

// File-transfer errors.
var (
	ErrFileBadStatus     = errors.New("dnp3: file operation rejected by outstation")
	ErrFileBadBlockNum   = errors.New("dnp3: file block number out of sequence")
	ErrFileMaxSizeExceeded = errors.New("dnp3: file transfer exceeded the configured size limit")
	ErrFileAbortByUser   = errors.New("dnp3: file transfer aborted by reader")
)

// FileReadAction is returned by a BlockReader to continue or abort an
// in-progress file read.
type FileReadAction int

const (
	FileReadContinue FileReadAction = iota
	FileReadAbort
)

// BlockReader receives each file block as it arrives, in order.
type BlockReader interface {
	WriteBlock(data []byte) FileReadAction
}

// ReadFile drives the master-side file-read procedure: Open, then a
// single multi-fragment Read whose fragments carry g70v5 blocks
// (reusing the same FIR/FIN/CON assembly rules as any other read task),
// then Close. maxSize bounds the total bytes delivered to reader before
// the transfer is aborted with ErrFileMaxSizeExceeded.
func (a *Association) ReadFile(ctx context.Context, name string, maxSize int, reader BlockReader) error {
	handle, _, err := a.openFile(ctx, name)
	if err != nil {
		return err
	}

	readErr := a.readFileBlocks(ctx, handle, maxSize, reader)

	if err := a.closeFile(ctx, handle); err != nil && readErr == nil {
		return err
	}
	return readErr
}

func (a *Association) openFile(ctx context.Context, name string) (handle uint32, maxBlockSize uint16, err error) {
	t := &task{
		kind: "open_file",
		pr:   priorityUserRequest,
		buildRequest: func(seq objects.Sequence) []byte {
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			if err := w.WriteRequestHeader(control, objects.FuncOpenFile); err != nil {
				return w.Written()
			}
			objBuf := make([]byte, 23+len(name))
			oc := objects.NewWriteCursor(objBuf)
			req := file.OpenRequest{FileName: name, OperationMode: 1}
			if err := file.EncodeOpenRequest(oc, req); err != nil {
				return w.Written()
			}
			_ = w.WriteFreeFormatHeader(3, oc.Written())
			return w.Written()
		},
		onFragment: func(headers []objects.ObjectHeader, iin objects.Iin) error {
			for _, h := range headers {
				if h.Group != 70 || h.Variation != 4 {
					continue
				}
				resp, err := file.DecodeOpenResponse(h.RawObjects)
				if err != nil {
					return err
				}
				if resp.Status != file.StatusSuccess {
					return ErrFileBadStatus
				}
				handle = resp.RequestId
				maxBlockSize = resp.MaxBlockSize
				return nil
			}
			return ErrUnexpectedResponseHeaders
		},
	}
	err = a.submitUserTask(ctx, t)
	return handle, maxBlockSize, err
}

func (a *Association) closeFile(ctx context.Context, handle uint32) error {
	t := &task{
		kind: "close_file",
		pr:   priorityUserRequest,
		buildRequest: func(seq objects.Sequence) []byte {
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			if err := w.WriteRequestHeader(control, objects.FuncCloseFile); err != nil {
				return w.Written()
			}
			objBuf := make([]byte, 9)
			oc := objects.NewWriteCursor(objBuf)
			if err := file.EncodeOpenResponse(oc, file.OpenResponse{RequestId: handle}); err != nil {
				return w.Written()
			}
			_ = w.WriteFreeFormatHeader(4, oc.Written())
			return w.Written()
		},
		onFragment: noOpFragment,
	}
	return a.submitUserTask(ctx, t)
}

// readFileBlocks issues one READ request and streams every g70v5 block
// the (possibly multi-fragment) response carries to reader, validating
// block numbers arrive in order and stopping at the LAST block.
func (a *Association) readFileBlocks(ctx context.Context, handle uint32, maxSize int, reader BlockReader) error {
	expectedBlock := uint32(0)
	delivered := 0
	done := false

	t := &task{
		kind:   "read_file_blocks",
		pr:     priorityUserRequest,
		isRead: true,
		buildRequest: func(seq objects.Sequence) []byte {
			buf := make([]byte, a.cfg.TxBufferSize)
			w := objects.NewFragmentWriter(buf)
			control := objects.ControlField{FIR: true, FIN: true, Seq: seq}
			if err := w.WriteRequestHeader(control, objects.FuncRead); err != nil {
				return w.Written()
			}
			objBuf := make([]byte, 9)
			oc := objects.NewWriteCursor(objBuf)
			_ = file.EncodeOpenResponse(oc, file.OpenResponse{RequestId: handle})
			_ = w.WriteFreeFormatHeader(4, oc.Written())
			return w.Written()
		},
		onFragment: func(headers []objects.ObjectHeader, iin objects.Iin) error {
			for _, h := range headers {
				if h.Group != 70 || h.Variation != 5 {
					continue
				}
				blk, err := file.DecodeBlock(h.RawObjects)
				if err != nil {
					return err
				}
				if blk.BlockIndex != expectedBlock {
					return ErrFileBadBlockNum
				}
				expectedBlock++
				delivered += len(blk.Data)
				if maxSize > 0 && delivered > maxSize {
					return ErrFileMaxSizeExceeded
				}
				if reader.WriteBlock(blk.Data) == FileReadAbort {
					return ErrFileAbortByUser
				}
				if blk.Last {
					done = true
				}
			}
			return nil
		},
	}
	err := a.submitUserTask(ctx, t)
	if err == nil && !done {
		return ErrUnexpectedResponseHeaders
	}
	return err
}
