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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "firmware recovery", err: ErrFirmwareRecovery, want: true},
		{name: "wrapped firmware recovery", err: fmt.Errorf("core reset: %w", ErrFirmwareRecovery), want: true},
		{
			name: "frame error around firmware recovery",
			err:  newFrameError("CORE_GENERIC_ERROR_NTF", Header{GID: 0x00, OID: 0x07}, 4, ErrFirmwareRecovery),
			want: true,
		},
		{name: "malformed frame", err: ErrFrameMalformed, want: false},
		{name: "suppressed frame", err: ErrFrameSuppressed, want: false},
		{name: "session busy", err: ErrSessionBusy, want: false},
		{name: "text only", err: errors.New(ErrFirmwareRecovery.Error()), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestIsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "empty", err: ErrFrameEmpty, want: true},
		{name: "too short", err: ErrFrameTooShort, want: true},
		{name: "malformed", err: ErrFrameMalformed, want: true},
		{name: "out of bounds", err: ErrFrameOutOfBounds, want: true},
		{name: "invalid message type", err: ErrInvalidMessageType, want: true},
		{
			name: "wrapped too short",
			err:  newFrameError("RF_INTF_ACTIVATED_NTF", Header{GID: 0x01, OID: 0x05}, 5, ErrFrameTooShort),
			want: true,
		},
		{name: "firmware recovery", err: ErrFirmwareRecovery, want: false},
		{name: "suppressed", err: ErrFrameSuppressed, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsMalformed(tt.err))
		})
	}
}

func TestFrameError(t *testing.T) {
	t.Parallel()

	err := newFrameError("CORE_RESET_NTF", Header{GID: 0x00, OID: 0x00}, 4, ErrFirmwareRecovery)

	assert.Equal(t, "CORE_RESET_NTF (gid 0x00 oid 0x00, 4 bytes): controller requires firmware recovery", err.Error())
	require.ErrorIs(t, err, ErrFirmwareRecovery)

	var fe *FrameError
	require.ErrorAs(t, fmt.Errorf("dispatch: %w", err), &fe)
	assert.Equal(t, "CORE_RESET_NTF", fe.Op)
	assert.Equal(t, 4, fe.Len)
}

func TestStatusFromError_Categories(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusSuccess, StatusFromError(nil))
	assert.Equal(t, StatusFailed, StatusFromError(ErrFrameSuppressed))
	assert.Equal(t, StatusFailed, StatusFromError(ErrFirmwareRecovery))
}

func TestI93ErrorCodeMeaning(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want string
		code byte
	}{
		{code: 0x01, want: "command not supported"},
		{code: 0x02, want: "command not recognized"},
		{code: 0x03, want: "option not supported"},
		{code: 0x0F, want: "unknown error"},
		{code: 0x10, want: "block not available"},
		{code: 0x11, want: "block already locked"},
		{code: 0x12, want: "block locked"},
		{code: 0x13, want: "block write failed"},
		{code: 0x14, want: "block not locked"},
		{code: 0xA0, want: "custom error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, i93ErrorCodeMeaning(tt.code))
		})
	}
}
