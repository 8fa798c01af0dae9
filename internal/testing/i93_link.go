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

package testing

import (
	"context"
	"errors"
	"fmt"

	"github.com/sigurn/crc16"
)

var i93CRCTable = crc16.MakeTable(crc16.CRC16_X_25)

// ErrI93CRC is returned when an air frame fails its CRC check
var ErrI93CRC = errors.New("ISO15693 CRC mismatch")

// ErrNoResponse is returned by Receive when nothing is queued
var ErrNoResponse = errors.New("no ISO15693 response pending")

// AppendI93CRC appends the ISO15693 CRC, least significant byte first.
func AppendI93CRC(frame []byte) []byte {
	crc := crc16.Checksum(frame, i93CRCTable)
	return append(frame, byte(crc), byte(crc>>8))
}

// CheckI93CRC verifies and strips the CRC of an air frame.
func CheckI93CRC(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, fmt.Errorf("%w: %d-byte frame", ErrI93CRC, len(frame))
	}
	body := frame[:len(frame)-2]
	want := crc16.Checksum(body, i93CRCTable)
	got := uint16(frame[len(frame)-2]) | uint16(frame[len(frame)-1])<<8
	if got != want {
		return nil, fmt.Errorf("%w: got 0x%04X, want 0x%04X", ErrI93CRC, got, want)
	}
	return body, nil
}

// I93Link carries requests to a virtual tag over a simulated air interface
// and queues the tag's responses until the session under test collects them.
type I93Link struct {
	Tag *VirtualI93Tag
	// CorruptNext flips a bit in the next response frame
	CorruptNext bool
	// CorruptRequest flips a bit in the next request frame; the tag drops
	// it on the CRC check and stays silent
	CorruptRequest bool
	// SendErr is returned by the next SendI93Command
	SendErr error
	queue   [][]byte
	sent    int
}

// NewI93Link connects a link to tag.
func NewI93Link(tag *VirtualI93Tag) *I93Link {
	return &I93Link{Tag: tag}
}

// SendI93Command delivers cmd to the tag and queues its response.
func (l *I93Link) SendI93Command(ctx context.Context, cmd []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.SendErr != nil {
		err := l.SendErr
		l.SendErr = nil
		return err
	}
	l.sent++

	reqAir := AppendI93CRC(append([]byte(nil), cmd...))
	if l.CorruptRequest {
		reqAir[0] ^= 0x80
		l.CorruptRequest = false
	}
	req, err := CheckI93CRC(reqAir)
	if err != nil {
		// A tag never answers a frame that fails its CRC check
		return nil
	}
	resp, err := l.Tag.Handle(req)
	if err != nil {
		// An addressed tag that does not match stays silent
		return nil
	}
	air := AppendI93CRC(resp)
	if l.CorruptNext {
		air[0] ^= 0x80
		l.CorruptNext = false
	}
	l.queue = append(l.queue, air)
	return nil
}

// Pending returns the number of queued responses.
func (l *I93Link) Pending() int {
	return len(l.queue)
}

// Sent returns the number of requests delivered to the tag.
func (l *I93Link) Sent() int {
	return l.sent
}

// Receive pops the oldest response and strips its CRC.
func (l *I93Link) Receive() ([]byte, error) {
	if len(l.queue) == 0 {
		return nil, ErrNoResponse
	}
	air := l.queue[0]
	l.queue = l.queue[1:]
	return CheckI93CRC(air)
}
