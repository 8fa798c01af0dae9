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
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-nci/internal/frame"
)

type mockTempManager struct {
	mock.Mock
}

func (m *mockTempManager) UpdateStatus(data []byte) {
	m.Called(data)
}

type mockMifareReader struct {
	mock.Mock
}

func (m *mockMifareReader) AnalyzeResponse(payload []byte) (int, error) {
	args := m.Called(payload)
	return args.Int(0), args.Error(1)
}

type mockEventLogger struct {
	mock.Mock
}

func (m *mockEventLogger) Log(data []byte, event LogEventType) {
	m.Called(data, event)
}

func newTestDispatcher(t *testing.T, opts ...Option) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(opts...)
	require.NoError(t, err)
	return d
}

// icodeActivation builds the 23-byte ISO15693 RF_INTF_ACTIVATED_NTF.
func icodeActivation() []byte {
	ntf := make([]byte, 23)
	copy(ntf, []byte{0x61, 0x05, 0x15, 0x00, 0x01, 0x06, 0x06})
	return ntf
}

func TestProcess_MalformedFrames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr  error
		name     string
		buf      []byte
		declared uint16
	}{
		{name: "empty", buf: []byte{}, declared: 0, wantErr: ErrFrameEmpty},
		{name: "declared_zero_with_data", buf: []byte{0x61, 0x05}, declared: 0, wantErr: ErrFrameEmpty},
		{name: "single_byte", buf: []byte{0x61}, declared: 1, wantErr: ErrFrameTooShort},
		{name: "declared_longer_than_buffer", buf: []byte{0x61, 0x05}, declared: 6, wantErr: ErrFrameMalformed},
		{name: "invalid_message_type", buf: []byte{0xFF, 0xFF}, declared: 2, wantErr: ErrInvalidMessageType},
		{name: "command_from_controller", buf: []byte{0x20, 0x00, 0x01, 0x00}, declared: 4, wantErr: ErrInvalidMessageType},
		{name: "rf_activated_truncated", buf: []byte{0x61, 0x05, 0x00, 0x00, 0x01}, declared: 5, wantErr: ErrFrameTooShort},
		{name: "generic_error_truncated", buf: []byte{0x60, 0x07, 0x01}, declared: 3, wantErr: ErrFrameTooShort},
		{name: "core_reset_truncated", buf: []byte{0x60, 0x00, 0x01}, declared: 3, wantErr: ErrFrameTooShort},
		{name: "data_header_truncated", buf: []byte{0x00, 0x00}, declared: 2, wantErr: ErrFrameTooShort},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := newTestDispatcher(t)
			orig := bytes.Clone(tt.buf)

			err := d.Process(NewFrameWithLength(tt.buf, tt.declared))

			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsMalformed(err))
			assert.True(t, bytes.Equal(orig, tt.buf), "rejected frame must not be modified")
			assert.Equal(t, FlagSnapshot{}, d.Flags().Snapshot())
		})
	}
}

func TestProcessRaw_InvalidLengthForRFIntfActivated(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	ntf := []byte{0x61, 0x05}
	length := uint16(6)

	assert.Equal(t, StatusFailed, d.ProcessRaw(ntf, &length))
	assert.Equal(t, uint16(6), length)
}

func TestProcessRaw_NilLength(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	assert.Equal(t, StatusFailed, d.ProcessRaw([]byte{0x61, 0x05}, nil))
}

func TestProcessRaw_EmptyNotification(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	length := uint16(0)

	assert.Equal(t, StatusFailed, d.ProcessRaw([]byte{}, &length))
	assert.Equal(t, FlagSnapshot{}, d.Flags().Snapshot())
}

func TestProcessRaw_FelicaReaderMode(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, WithFelicaReaderMode(true))
	ntf := []byte{0x61, 0x05, 0x00, 0x00, 0x01, 0x05, 0x02}
	length := uint16(len(ntf))

	status := d.ProcessRaw(ntf, &length)

	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, byte(0x03), ntf[5])
	assert.Equal(t, uint16(7), length)
}

func TestProcess_FelicaReaderModeDisabled(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	ntf := []byte{0x61, 0x05, 0x00, 0x00, 0x01, 0x05, 0x02}

	require.NoError(t, d.Process(NewFrame(ntf)))
	assert.Equal(t, byte(0x05), ntf[5])
}

func TestProcessRaw_MifareExtensionsEnabled(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	ntf := []byte{0x61, 0x05, 0x00, 0x00, 0x80, 0x80}
	length := uint16(len(ntf))

	assert.Equal(t, StatusSuccess, d.ProcessRaw(ntf, &length))
	assert.True(t, d.Flags().MifareExtensionsEnabled())
}

func TestProcessRaw_ISO15693Activation(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	ntf := icodeActivation()
	length := uint16(len(ntf))

	status := d.ProcessRaw(ntf, &length)

	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, byte(0x01), d.Flags().ICodeDetected())
	assert.Equal(t, byte(0x01), ntf[21])
	assert.Equal(t, byte(0x01), ntf[22])
}

func TestProcess_ISO15693ActivationTruncated(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	ntf := icodeActivation()[:22]

	err := d.Process(NewFrame(ntf))

	require.ErrorIs(t, err, ErrFrameTooShort)
	assert.Equal(t, byte(0x00), d.Flags().ICodeDetected())
}

func TestProcessRaw_CoreGenericError(t *testing.T) {
	t.Parallel()

	for _, code := range []byte{frame.GenericErrCurrentNtf, frame.GenericErrUACRCNtf, frame.GenericErrUAMirCRCNtf} {
		d := newTestDispatcher(t)
		ntf := []byte{0x60, 0x07, 0x01, code}
		length := uint16(len(ntf))

		assert.Equal(t, StatusFailed, d.ProcessRaw(ntf, &length))
		assert.True(t, d.Flags().FirmwareRecoveryRequired(), "code 0x%02X", code)
	}
}

func TestProcess_CoreGenericErrorIsFatal(t *testing.T) {
	t.Parallel()

	logger := &mockEventLogger{}
	logger.On("Log", mock.Anything, LogEventGenericError).Once()
	d := newTestDispatcher(t, WithEventLogger(logger))

	err := d.Process(NewFrame([]byte{0x60, 0x07, 0x01, frame.GenericErrCurrentNtf}))

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.False(t, IsMalformed(err))
	var fe *FrameError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, byte(frame.GIDCore), fe.GID)
	assert.Equal(t, byte(frame.OIDCoreGenericError), fe.OID)
	logger.AssertExpectations(t)
}

func TestProcess_CoreGenericErrorOtherCode(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)

	require.NoError(t, d.Process(NewFrame([]byte{0x60, 0x07, 0x01, 0x09})))
	assert.False(t, d.Flags().FirmwareRecoveryRequired())
}

func TestProcess_CoreReset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		trigger  byte
		recovery bool
	}{
		{name: "firmware_assert", trigger: frame.ResetTriggerFWAssert, recovery: true},
		{name: "watchdog", trigger: frame.ResetTriggerWatchdog, recovery: true},
		{name: "power_on", trigger: frame.ResetTriggerPowerOn, recovery: false},
		{name: "command_request", trigger: frame.ResetTriggerCmdRequest, recovery: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger := &mockEventLogger{}
			if tt.recovery {
				logger.On("Log", mock.Anything, LogEventCoreReset).Once()
			}
			d := newTestDispatcher(t, WithEventLogger(logger))

			err := d.Process(NewFrame([]byte{0x60, 0x00, 0x05, tt.trigger, 0x00, 0x20, 0x04, 0x00}))

			assert.Equal(t, tt.recovery, IsFatal(err))
			assert.Equal(t, tt.recovery, d.Flags().FirmwareRecoveryRequired())
			logger.AssertExpectations(t)
		})
	}
}

func TestProcessRaw_TemperatureStatusNotification(t *testing.T) {
	t.Parallel()

	ntf := []byte{0x6F, frame.OIDPropSystemTemperatureInfo, 0x06}
	tm := &mockTempManager{}
	tm.On("UpdateStatus", ntf).Once()
	d := newTestDispatcher(t, WithTempManager(tm))
	length := uint16(len(ntf))

	assert.Equal(t, StatusSuccess, d.ProcessRaw(ntf, &length))
	assert.Equal(t, []byte{0x6F, frame.OIDPropSystemTemperatureInfo, 0x06}, ntf)
	tm.AssertExpectations(t)
}

func TestProcess_TemperatureWithoutManager(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	assert.NoError(t, d.Process(NewFrame([]byte{0x6F, frame.OIDPropSystemTemperatureInfo, 0x06})))
}

func TestProcessRaw_ValidNotificationWithEdgeCaseData(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	ntf := []byte{0x61, 0x05, 0x00, 0x00, 0xFF, 0xFF}
	length := uint16(len(ntf))

	assert.Equal(t, StatusSuccess, d.ProcessRaw(ntf, &length))
	assert.Equal(t, []byte{0x61, 0x05, 0x00, 0x00, 0xFF, 0xFF}, ntf)
}

func TestProcessRaw_NotificationWithMaxLength(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	ntf := make([]byte, 255)
	ntf[0], ntf[1] = 0x61, 0x05
	length := uint16(len(ntf))

	assert.Equal(t, StatusSuccess, d.ProcessRaw(ntf, &length))
	assert.Equal(t, uint16(255), length)
}

func TestProcess_UnknownOpcodesPassThrough(t *testing.T) {
	t.Parallel()

	frames := [][]byte{
		{0x61, 0x03, 0x01, 0x00},       // RF_DISCOVER_NTF
		{0x60, 0x06, 0x03, 0x01, 0x00}, // CORE_CONN_CREDITS_NTF
		{0x41, 0x03, 0x01, 0x00},       // RF_DISCOVER_RSP
		{0x6F, 0x3E, 0x00},             // unknown proprietary
		{0x62, 0x01},                   // NFCEE group, header only
	}

	for _, ntf := range frames {
		d := newTestDispatcher(t)
		orig := append([]byte(nil), ntf...)
		require.NoError(t, d.Process(NewFrame(ntf)), "frame % X", orig)
		assert.Equal(t, orig, ntf)
	}
}

func TestProcess_ListenModeActivationLogged(t *testing.T) {
	t.Parallel()

	ntf := []byte{0x61, 0x05, 0x00, 0x01, frame.RFInterfaceISODEP, frame.RFProtocolISODEP, frame.RFModeListenA}
	logger := &mockEventLogger{}
	logger.On("Log", ntf, LogEventHCE).Once()
	d := newTestDispatcher(t, WithEventLogger(logger))

	require.NoError(t, d.Process(NewFrame(ntf)))
	logger.AssertExpectations(t)
}

func TestProcess_DeactivationClearsTargetFlags(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	require.NoError(t, d.Process(NewFrame(icodeActivation())))
	d.Flags().SetICodeSendEOF(ICodeEOFSent)
	require.NoError(t, d.Process(NewFrame([]byte{0x61, 0x05, 0x00, 0x00, 0x80, 0x80})))

	require.NoError(t, d.Process(NewFrame([]byte{0x61, 0x06, 0x02, 0x00, 0x00})))

	snap := d.Flags().Snapshot()
	assert.Equal(t, byte(0), snap.ICodeDetected)
	assert.Equal(t, byte(0), snap.ICodeSendEOF)
	assert.False(t, snap.MifareExtensionsEnabled)
}

func TestProcess_MifareExtensionData(t *testing.T) {
	t.Parallel()

	reader := &mockMifareReader{}
	reader.On("AnalyzeResponse", []byte{0x10, 0x20, 0x30, 0x00}).Return(3, nil).Once()
	d := newTestDispatcher(t, WithMifareReader(reader))
	d.Flags().SetMifareExtensionsEnabled(true)

	data := []byte{0x00, 0x00, 0x04, 0x10, 0x20, 0x30, 0x00}
	length := uint16(len(data))

	require.Equal(t, StatusSuccess, d.ProcessRaw(data, &length))
	assert.Equal(t, uint16(6), length)
	assert.Equal(t, []byte{0x00, 0x00, 0x03, 0x10, 0x20, 0x30}, data[:length])
	reader.AssertExpectations(t)
}

func TestProcess_MifareExtensionDataErrors(t *testing.T) {
	t.Parallel()

	readerErr := errors.New("mifare decode failed")

	tests := []struct {
		wantErr error
		name    string
		n       int
		err     error
	}{
		{name: "reader_error", n: 0, err: readerErr, wantErr: readerErr},
		{name: "length_grows", n: 5, wantErr: ErrFrameOutOfBounds},
		{name: "negative_length", n: -1, wantErr: ErrFrameOutOfBounds},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reader := &mockMifareReader{}
			reader.On("AnalyzeResponse", mock.Anything).Return(tt.n, tt.err)
			d := newTestDispatcher(t, WithMifareReader(reader))
			d.Flags().SetMifareExtensionsEnabled(true)

			err := d.Process(NewFrame([]byte{0x00, 0x00, 0x02, 0xAA, 0xBB}))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProcess_MifareExtensionDataWithoutReader(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	d.Flags().SetMifareExtensionsEnabled(true)
	data := []byte{0x00, 0x00, 0x01, 0xAA}

	require.NoError(t, d.Process(NewFrame(data)))
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0xAA}, data)
}

func TestProcess_ICodeDataTrailer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version NCIVersion
		in      []byte
		want    []byte
	}{
		{
			name:    "nci10_status_ok_dropped",
			version: NCIVersion10,
			in:      []byte{0x00, 0x00, 0x03, 0x00, 0xAB, 0x00},
			want:    []byte{0x00, 0x00, 0x02, 0x00, 0xAB},
		},
		{
			name:    "nci10_status_error_flagged",
			version: NCIVersion10,
			in:      []byte{0x00, 0x00, 0x03, 0x00, 0xAB, 0x02},
			want:    []byte{0x00, 0x00, 0x03, 0x00, 0xAB, 0x03},
		},
		{
			name:    "nci20_untouched",
			version: NCIVersion20,
			in:      []byte{0x00, 0x00, 0x03, 0x00, 0xAB, 0x00},
			want:    []byte{0x00, 0x00, 0x03, 0x00, 0xAB, 0x00},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := newTestDispatcher(t, WithNCIVersion(tt.version))
			d.Flags().SetICodeDetected(0x01)
			f := NewFrame(tt.in)

			require.NoError(t, d.Process(f))
			assert.Equal(t, tt.want, f.Bytes())
		})
	}
}

func TestProcess_ICodeDataTruncatedPayload(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, WithNCIVersion(NCIVersion10))
	d.Flags().SetICodeDetected(0x01)

	err := d.Process(NewFrame([]byte{0x00, 0x00, 0x08, 0x00}))
	require.ErrorIs(t, err, ErrFrameTooShort)
}

func TestProcess_ICodeEOFResponseSuppressed(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	d.Flags().SetICodeDetected(0x01)
	d.Flags().SetICodeSendEOF(ICodeEOFSent)

	err := d.Process(NewFrame([]byte{0x01, 0x00, 0x02, 0x00, 0x00}))

	require.ErrorIs(t, err, ErrFrameSuppressed)
	assert.Equal(t, ICodeEOFDone, d.Flags().ICodeSendEOF())
}

func TestProcess_ICodeEOFClearedOnNextData(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	d.Flags().SetICodeDetected(0x01)
	d.Flags().SetICodeSendEOF(ICodeEOFSent)

	data := []byte{0x00, 0x00, 0x02, 0x00, 0xAB}
	require.NoError(t, d.Process(NewFrame(bytes.Clone(data))))
	assert.Equal(t, ICodeEOFDone, d.Flags().ICodeSendEOF())

	require.NoError(t, d.Process(NewFrame(bytes.Clone(data))))
	assert.Equal(t, ICodeEOFIdle, d.Flags().ICodeSendEOF())

	// A pending EOF is left to the command path
	d.Flags().SetICodeSendEOF(ICodeEOFPending)
	require.NoError(t, d.Process(NewFrame(bytes.Clone(data))))
	assert.Equal(t, ICodeEOFPending, d.Flags().ICodeSendEOF())
}

func TestProcessRaw_SetConfigSemanticErrorRewritten(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	rsp := make([]byte, 8)
	copy(rsp, []byte{0x40, 0x02, 0x01, frame.StatusSemanticError})
	length := uint16(4)

	require.Equal(t, StatusSuccess, d.ProcessRaw(rsp, &length))
	assert.Equal(t, uint16(5), length)
	assert.Equal(t, []byte{0x40, 0x02, 0x02, 0x00, 0x00}, rsp[:length])
}

func TestProcessRaw_SetConfigRewriteDoesNotFit(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	rsp := []byte{0x40, 0x02, 0x01, frame.StatusSemanticError}
	length := uint16(4)

	assert.Equal(t, StatusFailed, d.ProcessRaw(rsp, &length))
	assert.Equal(t, uint16(4), length)
}

func TestProcess_SetConfigRewriteGrowsFrame(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	f := NewFrame([]byte{0x40, 0x02, 0x01, frame.StatusSemanticError})

	require.NoError(t, d.Process(f))
	assert.Equal(t, []byte{0x40, 0x02, 0x02, 0x00, 0x00}, f.Bytes())
}

func TestStatusFromError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusSuccess, StatusFromError(nil))
	assert.Equal(t, StatusFailed, StatusFromError(ErrFrameEmpty))
	assert.Equal(t, "SUCCESS", StatusSuccess.String())
	assert.Equal(t, "FAILED", StatusFailed.String())
	assert.Equal(t, "Status(7)", Status(7).String())
}
