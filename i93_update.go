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

import "context"

// AdvanceNDEFUpdate consumes the tag's answer to the last request of an NDEF
// update and sends the next one. resp holds the ISO15693 response flags
// followed by any data. Failures are not reported: the session goes back to
// idle without an event and the caller's timeout takes over.
func (s *I93Session) AdvanceNDEFUpdate(ctx context.Context, resp *Frame) {
	if err := resp.Validate(); err != nil {
		Debugf("ISO15693 response rejected: %v", err)
		s.abort(ctx)
		return
	}
	if s.blockSize <= 0 || s.blockSize > I93MaxBlockLength {
		Debugf("ISO15693 block size %d out of range", s.blockSize)
		s.abort(ctx)
		return
	}

	p := resp.Bytes()
	flags, data := p[0], p[1:]
	if flags&i93FlagErrorDetected != 0 {
		if len(data) == 0 {
			Debugf("ISO15693 NDEF update: error flag without error code")
			s.abort(ctx)
			return
		}
		tagErr := &I93TagError{Flags: flags, Code: data[0]}
		data = data[1:]
		if !s.toleratesTagError(tagErr.Code) {
			Debugf("ISO15693 NDEF update: %v", tagErr)
			s.abort(ctx)
			return
		}
		Debugf("ISO15693 NDEF update: ignoring %v on %s", tagErr, s.info.ProductVersion)
	}

	switch s.subState {
	case I93SubStateResetLen:
		s.resetLength(ctx, data)
	case I93SubStateWriteNDEF:
		s.writeNDEF(ctx)
	case I93SubStateUpdateLen:
		s.updateLength(ctx, data)
	default:
		Debugf("ISO15693 response ignored in sub-state %s", s.subState)
	}
}

// toleratesTagError reports whether a tag error must be ignored. Tag-it HF-I
// Plus inlays flag a zero error code on writes that did land.
func (s *I93Session) toleratesTagError(code byte) bool {
	return s.info.ProductVersion == I93ProductTagItHFIPlusInlay && code == 0x00
}

// resetLength zeroes the length field in the block just read, fills the rest
// of that block with the start of the payload and writes it back.
func (s *I93Session) resetLength(ctx context.Context, data []byte) {
	lengthOffset := (s.tlvStartOffset + 1) % s.blockSize
	if len(data) <= lengthOffset || len(data) < s.blockSize {
		Debugf("ISO15693 length block read returned %d bytes, need %d", len(data), s.blockSize)
		s.abort(ctx)
		return
	}

	block := make([]byte, s.blockSize)
	copy(block, data)
	block[lengthOffset] = 0x00

	fieldSize := lengthFieldSize(s.ndefLength)
	s.tlvLastOffset = s.tlvStartOffset + fieldSize
	xx := lengthOffset + fieldSize
	if xx > s.blockSize {
		s.lengthSpill = xx - s.blockSize
	}
	if s.ndefLength == 0 && xx < s.blockSize {
		block[xx] = i93TLVTerminator
	}
	if s.ndefLength > 0 {
		terminated := false
		for ; xx < s.blockSize; xx++ {
			switch {
			case s.rwLength < s.ndefLength:
				if s.rwLength >= len(s.update) {
					Debugf("ISO15693 NDEF payload missing at byte %d", s.rwLength)
					s.abort(ctx)
					return
				}
				block[xx] = s.update[s.rwLength]
				s.rwLength++
				s.tlvLastOffset++
			case !terminated:
				block[xx] = i93TLVTerminator
				terminated = true
			default:
				block[xx] = i93TLVNull
			}
		}
	}

	blockNumber := s.lengthBlock()
	if err := s.writeSingleBlock(ctx, blockNumber, block); err != nil {
		Debugf("ISO15693 length reset: %v", err)
		s.abort(ctx)
		return
	}
	s.rwOffset = (blockNumber + 1) * s.blockSize
	s.subState = I93SubStateWriteNDEF
}

// writeNDEF streams the next payload block, then a terminator block when the
// TLV ended on a block boundary, then moves on to the length field.
func (s *I93Session) writeNDEF(ctx context.Context) {
	capacity := s.blockSize * s.numBlock
	if s.rwOffset >= capacity {
		if s.rwLength < s.ndefLength {
			Debugf("ISO15693 tag memory exhausted with %d of %d bytes written", s.rwLength, s.ndefLength)
			s.abort(ctx)
			return
		}
		s.readLengthField(ctx)
		return
	}

	blockNumber := s.rwOffset / s.blockSize
	if s.rwLength < s.ndefLength {
		if len(s.update) < s.ndefLength {
			Debugf("ISO15693 NDEF payload missing: %d of %d bytes", len(s.update), s.ndefLength)
			s.abort(ctx)
			return
		}

		// Unused bytes stay NULL TLVs
		block := make([]byte, s.blockSize)
		start := s.lengthSpill
		s.lengthSpill = 0
		end := start + copy(block[start:], s.update[s.rwLength:s.ndefLength])
		s.rwLength += end - start
		s.rwOffset += s.blockSize
		if s.rwLength == s.ndefLength {
			s.tlvLastOffset = s.rwOffset - s.blockSize + end - 1
			if end < s.blockSize {
				block[end] = i93TLVTerminator
			}
		}
		if err := s.writeSingleBlock(ctx, blockNumber, block); err != nil {
			Debugf("ISO15693 NDEF write: %v", err)
			s.abort(ctx)
		}
		return
	}

	if blockNumber == (s.tlvLastOffset+1)/s.blockSize {
		block := make([]byte, s.blockSize)
		block[0] = i93TLVTerminator
		if err := s.writeSingleBlock(ctx, blockNumber, block); err != nil {
			Debugf("ISO15693 terminator write: %v", err)
			s.abort(ctx)
			return
		}
		s.rwOffset = s.tlvStartOffset + 1
		s.rwLength = s.pendingLengthBytes()
		s.subState = I93SubStateUpdateLen
		return
	}

	s.readLengthField(ctx)
}

// readLengthField reads the block holding the length field so UPDATE_LEN can
// patch it.
func (s *I93Session) readLengthField(ctx context.Context) {
	if err := s.readSingleBlock(ctx, s.lengthBlock()); err != nil {
		Debugf("ISO15693 length block read: %v", err)
		s.abort(ctx)
		return
	}
	s.rwOffset = s.tlvStartOffset + 1
	s.rwLength = s.pendingLengthBytes()
	s.subState = I93SubStateUpdateLen
}

// updateLength writes the final length field. A field that crosses a block
// boundary takes a read and a write per block.
func (s *I93Session) updateLength(ctx context.Context, data []byte) {
	if s.rwLength == 0 {
		s.complete(ctx)
		return
	}

	blockNumber := s.rwOffset / s.blockSize
	if len(data) == 0 {
		// Write acknowledged, fetch the block holding the rest of the field
		if err := s.readSingleBlock(ctx, blockNumber); err != nil {
			Debugf("ISO15693 length block read: %v", err)
			s.abort(ctx)
		}
		return
	}
	if len(data) < s.blockSize {
		Debugf("ISO15693 length block read returned %d bytes, need %d", len(data), s.blockSize)
		s.abort(ctx)
		return
	}

	block := make([]byte, s.blockSize)
	copy(block, data)
	for xx := s.rwOffset % s.blockSize; xx < s.blockSize && s.rwLength > 0; xx++ {
		switch s.rwLength {
		case 3:
			block[xx] = i93LongLengthMarker
		case 2:
			block[xx] = byte(s.ndefLength >> 8)
		case 1:
			block[xx] = byte(s.ndefLength)
		}
		s.rwLength--
	}

	if err := s.writeSingleBlock(ctx, blockNumber, block); err != nil {
		Debugf("ISO15693 length write: %v", err)
		s.abort(ctx)
		return
	}
	s.rwOffset += s.blockSize - s.rwOffset%s.blockSize
}
