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

import (
	"errors"
	"fmt"
)

// Error categories for frame classification and session handling
var (
	// Malformed-frame errors - the frame is rejected untouched
	ErrFrameEmpty         = errors.New("frame is empty")
	ErrFrameTooShort      = errors.New("frame too short for opcode")
	ErrFrameMalformed     = errors.New("frame malformed")
	ErrFrameOutOfBounds   = errors.New("frame access out of bounds")
	ErrInvalidMessageType = errors.New("invalid NCI message type")
	ErrFrameSuppressed    = errors.New("frame consumed by extension handling")

	// Protocol-fatal errors - the caller must trigger firmware recovery
	ErrFirmwareRecovery = errors.New("controller requires firmware recovery")

	// Session errors - not retryable inside this package
	ErrSessionBusy       = errors.New("tag session busy")
	ErrTagReadOnly       = errors.New("tag is read-only")
	ErrNDEFTooLarge      = errors.New("NDEF message exceeds tag capacity")
	ErrInvalidBlockSize  = errors.New("invalid tag block size")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrSenderUnavailable = errors.New("no ISO15693 command sender")
)

// Status is the two-valued verdict returned by ProcessRaw.
type Status uint8

const (
	// StatusSuccess means the frame may be forwarded to the generic response path
	StatusSuccess Status = iota
	// StatusFailed means the frame must not be forwarded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// StatusFromError maps a dispatcher error onto a Status.
func StatusFromError(err error) Status {
	if err != nil {
		return StatusFailed
	}
	return StatusSuccess
}

// FrameError wraps a dispatcher failure with the frame it was raised for.
type FrameError struct {
	Err error  // Underlying error
	Op  string // Handler that rejected the frame
	Len int    // Declared frame length
	GID byte
	OID byte
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s (gid 0x%02X oid 0x%02X, %d bytes): %v", e.Op, e.GID, e.OID, e.Len, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

func newFrameError(op string, h Header, n int, err error) *FrameError {
	return &FrameError{Op: op, GID: h.GID, OID: h.OID, Len: n, Err: err}
}

// I93TagError is a per-block failure reported by an ISO15693 tag in its
// response flags.
type I93TagError struct {
	Flags byte
	Code  byte
}

func (e *I93TagError) Error() string {
	return fmt.Sprintf("ISO15693 tag error 0x%02X (%s), flags 0x%02X", e.Code, i93ErrorCodeMeaning(e.Code), e.Flags)
}

// i93ErrorCodeMeaning returns a human-readable meaning for ISO15693 error codes
// as listed in ISO/IEC 15693-3 table 7.
func i93ErrorCodeMeaning(code byte) string {
	meanings := map[byte]string{
		0x01: "command not supported",
		0x02: "command not recognized",
		0x03: "option not supported",
		0x0F: "unknown error",
		0x10: "block not available",
		0x11: "block already locked",
		0x12: "block locked",
		0x13: "block write failed",
		0x14: "block not locked",
	}
	if m, ok := meanings[code]; ok {
		return m
	}
	return "custom error"
}

// IsFatal returns true if the error means the controller itself is unusable and
// the surrounding stack has to run firmware recovery.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFirmwareRecovery)
}

// IsMalformed returns true if the frame was rejected for structural reasons.
func IsMalformed(err error) bool {
	switch {
	case errors.Is(err, ErrFrameEmpty),
		errors.Is(err, ErrFrameTooShort),
		errors.Is(err, ErrFrameMalformed),
		errors.Is(err, ErrFrameOutOfBounds),
		errors.Is(err, ErrInvalidMessageType):
		return true
	default:
		return false
	}
}
