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
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Length field sizes of an NDEF TLV
const (
	i93ShortLengthField = 1
	i93LongLengthField  = 3
	i93LongLengthMarker = 0xFF
	maxNDEFLength       = 0xFFFF
)

// I93Session is the control block of one ISO15693 read/write session. It is
// owned by the goroutine that drives the tag exchange and is not safe for
// concurrent use.
type I93Session struct {
	sender  I93Sender
	handler I93Handler
	sm      *i93StateMachine
	update  []byte // borrowed from the caller until the update ends
	info    I93TagInfo

	blockSize      int
	numBlock       int
	tlvStartOffset int
	tlvLastOffset  int
	ndefLength     int
	// rwOffset is a tag memory byte offset: the next block to write while
	// streaming, the length field position while updating it
	rwOffset int
	// rwLength counts payload bytes written while streaming and length field
	// bytes still to write while updating it
	rwLength int
	// lengthSpill is the number of length field bytes that fall into the
	// block after the one holding the TLV type
	lengthSpill int
	subState    I93SubState
}

// NewI93Session creates an idle session for an activated tag. handler may be
// nil when the caller only observes State.
func NewI93Session(info I93TagInfo, sender I93Sender, handler I93Handler) (*I93Session, error) {
	if info.BlockSize <= 0 || info.BlockSize > I93MaxBlockLength {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, info.BlockSize)
	}
	if info.NumBlocks <= 0 {
		return nil, fmt.Errorf("%w: %d blocks", ErrInvalidParameter, info.NumBlocks)
	}
	if info.NDEFTLVStartOffset < 0 || info.NDEFTLVStartOffset+1 >= info.Capacity() {
		return nil, fmt.Errorf("%w: NDEF TLV offset %d", ErrInvalidParameter, info.NDEFTLVStartOffset)
	}
	if ch, ok := handler.(I93EventChannel); ok && cap(ch) == 0 {
		return nil, fmt.Errorf("%w: unbuffered event channel", ErrInvalidParameter)
	}
	if info.ProductVersion == I93ProductUnknown {
		info.ProductVersion = I93ProductFromUID(info.UID)
	}

	s := &I93Session{
		sender:         sender,
		handler:        handler,
		info:           info,
		blockSize:      info.BlockSize,
		numBlock:       info.NumBlocks,
		tlvStartOffset: info.NDEFTLVStartOffset,
	}
	s.sm = newI93StateMachine(fsm.Callbacks{
		"enter_" + string(I93StateIdle): func(_ context.Context, e *fsm.Event) {
			Debugf("ISO15693 session %s -> idle (%s)", e.Src, e.Event)
			s.reset()
		},
	})
	return s, nil
}

// Info returns the tag description the session was created with.
func (s *I93Session) Info() I93TagInfo {
	return s.info
}

// State returns the coarse session state.
func (s *I93Session) State() I93State {
	return s.sm.Current()
}

// SubState returns the NDEF update phase.
func (s *I93Session) SubState() I93SubState {
	return s.subState
}

// BeginNDEFUpdate starts writing data as the tag's NDEF message. It reads the
// block holding the NDEF length field; the tag's answers must then be fed to
// AdvanceNDEFUpdate until the handler sees I93EventNDEFUpdateComplete or the
// session returns to idle. data is borrowed until then.
func (s *I93Session) BeginNDEFUpdate(ctx context.Context, data []byte) error {
	if s.sender == nil {
		return ErrSenderUnavailable
	}
	if !s.sm.Is(I93StateIdle) {
		return fmt.Errorf("%w: state %s", ErrSessionBusy, s.sm.Current())
	}
	if s.info.ReadOnly {
		return ErrTagReadOnly
	}
	if err := s.checkCapacity(len(data)); err != nil {
		return err
	}
	if ch, ok := s.handler.(I93EventChannel); ok && len(ch) == cap(ch) {
		return fmt.Errorf("%w: event channel full", ErrSessionBusy)
	}

	if _, err := s.sm.fire(ctx, i93EventUpdate); err != nil {
		return fmt.Errorf("start NDEF update: %w", err)
	}
	s.update = data
	s.ndefLength = len(data)
	s.rwOffset = 0
	s.rwLength = 0
	s.tlvLastOffset = 0
	s.lengthSpill = 0

	if err := s.readSingleBlock(ctx, s.lengthBlock()); err != nil {
		s.abort(ctx)
		return err
	}
	s.subState = I93SubStateResetLen
	Debugf("ISO15693 NDEF update started: %d bytes, %d blocks of %d bytes", len(data), s.numBlock, s.blockSize)
	return nil
}

// Abort drops an update in progress and returns the session to idle without
// emitting an event. It is meant for the caller's timeout path.
func (s *I93Session) Abort() {
	s.abort(context.Background())
}

func (s *I93Session) checkCapacity(n int) error {
	if n > maxNDEFLength {
		return fmt.Errorf("%w: %d bytes", ErrNDEFTooLarge, n)
	}
	if s.info.MaxNDEFLength > 0 && n > s.info.MaxNDEFLength {
		return fmt.Errorf("%w: %d bytes, maximum %d", ErrNDEFTooLarge, n, s.info.MaxNDEFLength)
	}
	need := s.tlvStartOffset + 1 + lengthFieldSize(n) + n
	if need > s.info.Capacity() {
		return fmt.Errorf("%w: needs %d bytes, tag has %d", ErrNDEFTooLarge, need, s.info.Capacity())
	}
	return nil
}

// lengthBlock returns the block holding the first length field byte.
func (s *I93Session) lengthBlock() int {
	return (s.tlvStartOffset + 1) / s.blockSize
}

// lengthFieldSize returns the size of the TLV length field for an NDEF message
// of n bytes.
func lengthFieldSize(n int) int {
	if n >= i93LongLengthMarker {
		return i93LongLengthField
	}
	return i93ShortLengthField
}

// pendingLengthBytes returns how many length field bytes UPDATE_LEN has to
// write. An empty message keeps the zero written by RESET_LEN.
func (s *I93Session) pendingLengthBytes() int {
	if s.ndefLength == 0 {
		return 0
	}
	return lengthFieldSize(s.ndefLength)
}

func (s *I93Session) reset() {
	s.subState = I93SubStateNone
	s.update = nil
	s.lengthSpill = 0
}

// abort returns to idle silently. The caller's timeout reports the failure.
func (s *I93Session) abort(ctx context.Context) {
	if s.subState != I93SubStateNone {
		Debugf("ISO15693 NDEF update aborted in %s", s.subState)
	}
	moved, err := s.sm.fire(ctx, i93EventAbort)
	if err != nil {
		Debugf("ISO15693 session abort: %v", err)
	}
	if !moved {
		s.reset()
	}
}

// complete returns to idle and emits the completion event exactly once.
func (s *I93Session) complete(ctx context.Context) {
	n := s.ndefLength
	moved, err := s.sm.fire(ctx, i93EventComplete)
	if err != nil {
		Debugf("ISO15693 session complete: %v", err)
	}
	if !moved {
		s.reset()
	}
	Debugf("ISO15693 NDEF update complete: %d bytes", n)
	if s.handler != nil {
		s.handler.HandleI93Event(I93Event{
			Type:   I93EventNDEFUpdateComplete,
			Result: I93Result{Status: StatusSuccess, NDEFLength: n},
		})
	}
}
