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

package nci

import "fmt"

// I93MaxBlockLength is the largest block size the NDEF update accepts.
const I93MaxBlockLength = 128

// ISO15693 TLV types used inside the NDEF area
const (
	i93TLVNull       = 0x00
	i93TLVTerminator = 0xFE
)

// ISO15693 manufacturer codes (second UID byte)
const (
	i93MfgCodeST  = 0x02
	i93MfgCodeNXP = 0x04
	i93MfgCodeTI  = 0x07
)

// Texas Instruments Tag-it HF-I product identifiers (third UID byte)
const (
	i93TagItProductMask        = 0xFE
	i93TagItHFIPlusInlay       = 0x00
	i93TagItHFIPlusChip        = 0x80
	i93TagItHFIStdChipInlay    = 0xC0
	i93TagItHFIProChipInlay    = 0xC4
	i93TagItHFIStdChipInlayAlt = 0xE0
)

// I93ProductVersion classifies an ISO15693 tag by manufacturer and chip.
type I93ProductVersion uint8

const (
	I93ProductUnknown I93ProductVersion = iota
	I93ProductICode
	I93ProductSTM
	I93ProductTagItHFIPlusInlay
	I93ProductTagItHFIPlusChip
	I93ProductTagItHFIStdChipInlay
	I93ProductTagItHFIProChipInlay
)

func (p I93ProductVersion) String() string {
	switch p {
	case I93ProductICode:
		return "NXP ICODE"
	case I93ProductSTM:
		return "ST LRI/M24LR"
	case I93ProductTagItHFIPlusInlay:
		return "Tag-it HF-I Plus Inlay"
	case I93ProductTagItHFIPlusChip:
		return "Tag-it HF-I Plus Chip"
	case I93ProductTagItHFIStdChipInlay:
		return "Tag-it HF-I Standard Chip/Inlay"
	case I93ProductTagItHFIProChipInlay:
		return "Tag-it HF-I Pro Chip/Inlay"
	default:
		return "Unknown"
	}
}

// IsTagIt reports whether the product belongs to the TI Tag-it HF-I family.
func (p I93ProductVersion) IsTagIt() bool {
	switch p {
	case I93ProductTagItHFIPlusInlay, I93ProductTagItHFIPlusChip,
		I93ProductTagItHFIStdChipInlay, I93ProductTagItHFIProChipInlay:
		return true
	default:
		return false
	}
}

// I93ProductFromUID derives the product version from a UID in display order
// (0xE0 first, manufacturer code second).
func I93ProductFromUID(uid [8]byte) I93ProductVersion {
	switch uid[1] {
	case i93MfgCodeNXP:
		return I93ProductICode
	case i93MfgCodeST:
		return I93ProductSTM
	case i93MfgCodeTI:
		switch uid[2] & i93TagItProductMask {
		case i93TagItHFIPlusInlay:
			return I93ProductTagItHFIPlusInlay
		case i93TagItHFIPlusChip:
			return I93ProductTagItHFIPlusChip
		case i93TagItHFIStdChipInlay, i93TagItHFIStdChipInlayAlt:
			return I93ProductTagItHFIStdChipInlay
		case i93TagItHFIProChipInlay:
			return I93ProductTagItHFIProChipInlay
		}
	}
	return I93ProductUnknown
}

// I93TagInfo describes the geometry and NDEF layout of an activated tag. It is
// produced by tag detection, which happens outside this package.
type I93TagInfo struct {
	UID [8]byte // Display order, 0xE0 first
	// NDEFTLVStartOffset is the byte offset of the NDEF TLV type field
	NDEFTLVStartOffset int
	BlockSize          int
	NumBlocks          int
	// MaxNDEFLength is the largest NDEF message the NDEF area can hold
	MaxNDEFLength  int
	ProductVersion I93ProductVersion
	ReadOnly       bool
}

// Capacity returns the tag memory size in bytes.
func (i I93TagInfo) Capacity() int {
	return i.BlockSize * i.NumBlocks
}

// I93SubState is the phase of an NDEF update.
type I93SubState uint8

const (
	I93SubStateNone I93SubState = iota
	I93SubStateResetLen
	I93SubStateWriteNDEF
	I93SubStateUpdateLen
)

func (s I93SubState) String() string {
	switch s {
	case I93SubStateNone:
		return "NONE"
	case I93SubStateResetLen:
		return "RESET_LEN"
	case I93SubStateWriteNDEF:
		return "WRITE_NDEF"
	case I93SubStateUpdateLen:
		return "UPDATE_LEN"
	default:
		return fmt.Sprintf("I93SubState(%d)", uint8(s))
	}
}

// I93EventType identifies a session event.
type I93EventType uint8

const (
	// I93EventNDEFUpdateComplete is emitted once when the length field of a
	// new NDEF message has been written
	I93EventNDEFUpdateComplete I93EventType = iota + 1
)

func (t I93EventType) String() string {
	if t == I93EventNDEFUpdateComplete {
		return "NDEF_UPDATE_CPLT"
	}
	return fmt.Sprintf("I93EventType(%d)", uint8(t))
}

// I93Result is the outcome carried by a session event.
type I93Result struct {
	Status     Status
	NDEFLength int
}

// I93Event is delivered to the session handler.
type I93Event struct {
	Result I93Result
	Type   I93EventType
}

// I93Handler receives session events. It is called synchronously from
// AdvanceNDEFUpdate and must not call back into the session.
type I93Handler interface {
	HandleI93Event(ev I93Event)
}

// I93HandlerFunc adapts a function to I93Handler.
type I93HandlerFunc func(ev I93Event)

// HandleI93Event calls f(ev).
func (f I93HandlerFunc) HandleI93Event(ev I93Event) {
	f(ev)
}

// I93EventChannel delivers events on a buffered channel. NewI93Session
// rejects an unbuffered channel and BeginNDEFUpdate refuses to start while
// the channel has no room, so a completion event always fits.
type I93EventChannel chan I93Event

// HandleI93Event sends ev without blocking.
func (c I93EventChannel) HandleI93Event(ev I93Event) {
	select {
	case c <- ev:
	default:
		Debugf("ISO15693 event %s dropped, channel full", ev.Type)
	}
}
