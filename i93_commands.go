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
)

// ISO15693 response flags
const (
	i93FlagErrorDetected = 0x01
)

// ISO15693 request flags
const (
	i93ReqFlagHighDataRate = 0x02
	i93ReqFlagAddressed    = 0x20
	i93ReqFlagOption       = 0x40
)

// ISO15693 command codes
const (
	i93CmdReadSingleBlock     = 0x20
	i93CmdWriteSingleBlock    = 0x21
	i93CmdExtReadSingleBlock  = 0x30
	i93CmdExtWriteSingleBlock = 0x31
)

// i93ExtendedBlockThreshold is the block count above which block numbers need
// two bytes and the extended commands.
const i93ExtendedBlockThreshold = 256

// I93Sender transmits one ISO15693 request frame to the active tag. The tag's
// answer comes back later through AdvanceNDEFUpdate.
type I93Sender interface {
	SendI93Command(ctx context.Context, cmd []byte) error
}

// I93SenderFunc adapts a function to I93Sender.
type I93SenderFunc func(ctx context.Context, cmd []byte) error

// SendI93Command calls f(ctx, cmd).
func (f I93SenderFunc) SendI93Command(ctx context.Context, cmd []byte) error {
	return f(ctx, cmd)
}

func (s *I93Session) extendedCommands() bool {
	return s.numBlock > i93ExtendedBlockThreshold
}

// encodeBlockCommand builds an addressed single-block request. The UID goes
// on the air least significant byte first.
func (s *I93Session) encodeBlockCommand(cmd byte, block int, data []byte) ([]byte, error) {
	extended := s.extendedCommands()
	if block < 0 || (!extended && block > 0xFF) || block > 0xFFFF {
		return nil, fmt.Errorf("%w: block %d", ErrInvalidParameter, block)
	}

	flags := byte(i93ReqFlagHighDataRate | i93ReqFlagAddressed)
	if cmd == i93CmdWriteSingleBlock && s.info.ProductVersion.IsTagIt() {
		// Tag-it HF-I only acknowledges writes with the option flag set
		flags |= i93ReqFlagOption
	}
	if extended {
		cmd += i93CmdExtReadSingleBlock - i93CmdReadSingleBlock
	}

	out := make([]byte, 0, 2+len(s.info.UID)+2+len(data))
	out = append(out, flags, cmd)
	for i := len(s.info.UID) - 1; i >= 0; i-- {
		out = append(out, s.info.UID[i])
	}
	out = append(out, byte(block))
	if extended {
		out = append(out, byte(block>>8))
	}
	return append(out, data...), nil
}

func (s *I93Session) readSingleBlock(ctx context.Context, block int) error {
	cmd, err := s.encodeBlockCommand(i93CmdReadSingleBlock, block, nil)
	if err != nil {
		return err
	}
	return s.send(ctx, cmd)
}

func (s *I93Session) writeSingleBlock(ctx context.Context, block int, data []byte) error {
	if len(data) != s.blockSize {
		return fmt.Errorf("%w: %d bytes for block size %d", ErrInvalidParameter, len(data), s.blockSize)
	}
	cmd, err := s.encodeBlockCommand(i93CmdWriteSingleBlock, block, data)
	if err != nil {
		return err
	}
	return s.send(ctx, cmd)
}

func (s *I93Session) send(ctx context.Context, cmd []byte) error {
	if s.sender == nil {
		return ErrSenderUnavailable
	}
	Debugf("ISO15693 >> % X", cmd)
	if err := s.sender.SendI93Command(ctx, cmd); err != nil {
		return fmt.Errorf("send ISO15693 command 0x%02X: %w", cmd[1], err)
	}
	return nil
}
