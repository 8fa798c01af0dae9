// go-nci
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nci.
//
// go-nci is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nci is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nci; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package testing provides test utilities including a block-level ISO15693
// tag simulator and the air link that feeds its responses back to a session.
package testing

import (
	"errors"
	"fmt"
)

// ISO15693 request/response values the virtual tag understands
const (
	I93FlagErrorDetected    = 0x01
	I93ReqFlagAddressed     = 0x20
	I93CmdReadSingleBlock   = 0x20
	I93CmdWriteSingleBlock  = 0x21
	I93CmdExtReadSingleBlk  = 0x30
	I93CmdExtWriteSingleBlk = 0x31

	I93ErrNotSupported   = 0x01
	I93ErrNotRecognized  = 0x02
	I93ErrBlockNotAvail  = 0x10
	I93ErrBlockLocked    = 0x12
	I93ErrBlockWriteFail = 0x13
)

// TestI93UID is the UID (display order) used by default for virtual ISO15693 tags
var TestI93UID = [8]byte{0xE0, 0x04, 0x01, 0x50, 0x12, 0x34, 0x56, 0x78}

// ErrI93UIDMismatch is returned for addressed requests carrying another UID
var ErrI93UIDMismatch = errors.New("ISO15693 request addressed to another tag")

// VirtualI93Tag simulates the block memory of an ISO15693 tag.
type VirtualI93Tag struct {
	writeErrors map[int]byte
	locked      map[int]bool
	Memory      [][]byte
	Requests    [][]byte
	UID         [8]byte
	BlockSize   int
}

// NewVirtualI93Tag creates a tag with zeroed memory.
func NewVirtualI93Tag(uid [8]byte, blockSize, numBlocks int) *VirtualI93Tag {
	mem := make([][]byte, numBlocks)
	for i := range mem {
		mem[i] = make([]byte, blockSize)
	}
	return &VirtualI93Tag{
		UID:         uid,
		BlockSize:   blockSize,
		Memory:      mem,
		writeErrors: make(map[int]byte),
		locked:      make(map[int]bool),
	}
}

// NewVirtualICodeSLIX creates an NXP ICODE SLIX (28 blocks of 4 bytes) with
// an empty NDEF TLV behind the capability container.
func NewVirtualICodeSLIX(uid [8]byte) *VirtualI93Tag {
	tag := NewVirtualI93Tag(uid, 4, 28)
	tag.Memory[0] = []byte{0xE1, 0x40, 0x0D, 0x01}
	tag.Memory[1] = []byte{0x03, 0x00, 0xFE, 0x00}
	return tag
}

// Bytes returns a copy of the whole tag memory.
func (v *VirtualI93Tag) Bytes() []byte {
	out := make([]byte, 0, len(v.Memory)*v.BlockSize)
	for _, b := range v.Memory {
		out = append(out, b...)
	}
	return out
}

// SetBytes writes data into tag memory starting at byte offset.
func (v *VirtualI93Tag) SetBytes(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > len(v.Memory)*v.BlockSize {
		return fmt.Errorf("write of %d bytes at %d exceeds tag memory", len(data), offset)
	}
	for i, b := range data {
		pos := offset + i
		v.Memory[pos/v.BlockSize][pos%v.BlockSize] = b
	}
	return nil
}

// InjectWriteError makes the next write to block fail with code. Code 0x00
// models the spurious error some Tag-it inlays report after a good write.
func (v *VirtualI93Tag) InjectWriteError(block int, code byte) {
	v.writeErrors[block] = code
}

// Lock write-protects block.
func (v *VirtualI93Tag) Lock(block int) {
	v.locked[block] = true
}

// Handle executes one request frame (without CRC) and returns the response.
func (v *VirtualI93Tag) Handle(req []byte) ([]byte, error) {
	v.Requests = append(v.Requests, append([]byte(nil), req...))
	if len(req) < 2 {
		return errorResponse(I93ErrNotRecognized), nil
	}
	flags, cmd, rest := req[0], req[1], req[2:]

	if flags&I93ReqFlagAddressed != 0 {
		if len(rest) < len(v.UID) {
			return errorResponse(I93ErrNotRecognized), nil
		}
		for i := range v.UID {
			if rest[i] != v.UID[len(v.UID)-1-i] {
				return nil, ErrI93UIDMismatch
			}
		}
		rest = rest[len(v.UID):]
	}

	extended := cmd == I93CmdExtReadSingleBlk || cmd == I93CmdExtWriteSingleBlk
	block, rest, ok := blockNumber(rest, extended)
	switch cmd {
	case I93CmdReadSingleBlock, I93CmdExtReadSingleBlk:
		if !ok || block >= len(v.Memory) {
			return errorResponse(I93ErrBlockNotAvail), nil
		}
		return append([]byte{0x00}, v.Memory[block]...), nil
	case I93CmdWriteSingleBlock, I93CmdExtWriteSingleBlk:
		return v.write(block, rest, ok), nil
	default:
		return errorResponse(I93ErrNotSupported), nil
	}
}

func (v *VirtualI93Tag) write(block int, data []byte, ok bool) []byte {
	if !ok || block >= len(v.Memory) {
		return errorResponse(I93ErrBlockNotAvail)
	}
	if len(data) != v.BlockSize {
		return errorResponse(I93ErrNotRecognized)
	}
	if v.locked[block] {
		return errorResponse(I93ErrBlockLocked)
	}
	if code, injected := v.writeErrors[block]; injected {
		delete(v.writeErrors, block)
		if code != 0x00 {
			return errorResponse(code)
		}
		copy(v.Memory[block], data)
		return errorResponse(code)
	}
	copy(v.Memory[block], data)
	return []byte{0x00}
}

func blockNumber(b []byte, extended bool) (block int, rest []byte, ok bool) {
	if extended {
		if len(b) < 2 {
			return 0, b, false
		}
		return int(b[0]) | int(b[1])<<8, b[2:], true
	}
	if len(b) < 1 {
		return 0, b, false
	}
	return int(b[0]), b[1:], true
}

func errorResponse(code byte) []byte {
	return []byte{I93FlagErrorDetected, code}
}
