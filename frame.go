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
	"fmt"

	"github.com/ZaparooProject/go-nci/internal/frame"
)

// Frame is a bounds-checked window over a controller frame. The caller owns the
// backing buffer; a Frame borrows it for one processing call. The declared length
// is tracked separately from the buffer because controllers report it out of band,
// and every read or write is checked against it.
type Frame struct {
	buf []byte
	off int
	n   int
}

// Header is the decoded 3-octet NCI header.
type Header struct {
	MT         byte
	GID        byte
	OID        byte
	PayloadLen byte
}

// NewFrame returns a view over the whole of buf.
func NewFrame(buf []byte) *Frame {
	return &Frame{buf: buf, n: len(buf)}
}

// NewFrameWithLength returns a view over buf with an explicit declared length.
// The declared length may exceed len(buf); Validate reports that as malformed.
func NewFrameWithLength(buf []byte, declared uint16) *Frame {
	return &Frame{buf: buf, n: int(declared)}
}

// NewFrameAt returns a view that starts offset bytes into buf.
func NewFrameAt(buf []byte, offset, declared uint16) *Frame {
	return &Frame{buf: buf, off: int(offset), n: int(declared)}
}

// Len returns the declared length.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return f.n
}

// Offset returns the start offset into the backing buffer.
func (f *Frame) Offset() int {
	if f == nil {
		return 0
	}
	return f.off
}

// Validate checks that the declared length is non-zero and physically present.
func (f *Frame) Validate() error {
	if f == nil || f.n == 0 {
		return ErrFrameEmpty
	}
	if f.off < 0 || f.off > len(f.buf) || f.n > len(f.buf)-f.off {
		return fmt.Errorf("%w: declared %d bytes at offset %d, %d available",
			ErrFrameMalformed, f.n, f.off, f.available())
	}
	return nil
}

func (f *Frame) available() int {
	if f.off > len(f.buf) {
		return 0
	}
	return len(f.buf) - f.off
}

// Has reports whether the first n bytes of the frame may be accessed.
func (f *Frame) Has(n int) bool {
	if f == nil || n < 0 {
		return false
	}
	return n <= f.n && n <= f.available()
}

// At returns the byte at index i.
func (f *Frame) At(i int) (byte, error) {
	if i < 0 || !f.Has(i+1) {
		return 0, fmt.Errorf("%w: read at %d, length %d", ErrFrameOutOfBounds, i, f.Len())
	}
	return f.buf[f.off+i], nil
}

// Set writes b at index i in place.
func (f *Frame) Set(i int, b byte) error {
	if i < 0 || !f.Has(i+1) {
		return fmt.Errorf("%w: write at %d, length %d", ErrFrameOutOfBounds, i, f.Len())
	}
	f.buf[f.off+i] = b
	return nil
}

// get is At without the error; callers must have checked Has(i+1).
func (f *Frame) get(i int) byte {
	return f.buf[f.off+i]
}

// Bytes returns the accessible part of the frame. The slice aliases the backing buffer.
func (f *Frame) Bytes() []byte {
	if f == nil {
		return nil
	}
	n := f.n
	if avail := f.available(); n > avail {
		n = avail
	}
	return f.buf[f.off : f.off+n]
}

// Buffer returns the backing buffer, which SetLen may have replaced.
func (f *Frame) Buffer() []byte {
	if f == nil {
		return nil
	}
	return f.buf
}

// Sub returns a view of the frame starting at index from and sharing its buffer.
func (f *Frame) Sub(from int) (*Frame, error) {
	if from < 0 || !f.Has(from) {
		return nil, fmt.Errorf("%w: sub-frame at %d, length %d", ErrFrameOutOfBounds, from, f.Len())
	}
	return &Frame{buf: f.buf, off: f.off + from, n: f.n - from}, nil
}

// SetLen changes the declared length. Growing past the backing buffer first uses
// spare capacity and otherwise reallocates, so callers holding the old slice must
// re-read Buffer.
func (f *Frame) SetLen(n int) error {
	if f == nil || n < 0 || n > 0xFFFF {
		return fmt.Errorf("%w: length %d", ErrFrameOutOfBounds, n)
	}
	need := f.off + n
	if need > len(f.buf) {
		if need <= cap(f.buf) {
			f.buf = f.buf[:need]
		} else {
			grown := make([]byte, need)
			copy(grown, f.buf)
			f.buf = grown
		}
	}
	f.n = n
	return nil
}

// Header decodes the NCI header.
func (f *Frame) Header() (Header, error) {
	if !f.Has(frame.MinFrameLen) {
		return Header{}, fmt.Errorf("%w: %d bytes, need %d", ErrFrameTooShort, f.Len(), frame.MinFrameLen)
	}
	b0, b1 := f.get(0), f.get(1)
	h := Header{
		MT:  frame.MessageType(b0),
		GID: frame.GroupID(b0),
		OID: frame.OpcodeID(b1),
	}
	if f.Has(frame.HeaderSize) {
		h.PayloadLen = f.get(2)
	}
	return h, nil
}

// String formats the accessible bytes as hex.
func (f *Frame) String() string {
	return fmt.Sprintf("% X", f.Bytes())
}
