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
	"github.com/ZaparooProject/go-nci/internal/syncutil"
)

// Fixed offsets inside RF_INTF_ACTIVATED_NTF
const (
	activatedPayloadLenIdx = 2
	activatedInterfaceIdx  = 4
	activatedProtocolIdx   = 5
	activatedModeIdx       = 6

	activatedMinLen     = activatedProtocolIdx + 1
	activatedWithMode   = activatedModeIdx + 1
	icodeActivationLen  = 0x15
	icodeTrailerFirst   = 21
	icodeTrailerSecond  = 22
	icodeActivatedMinLn = icodeTrailerSecond + 1
)

// Fixed sizes for the remaining handled frames
const (
	genericErrorMinLen  = frame.HeaderSize + 1
	coreResetMinLen     = frame.HeaderSize + 1
	setConfigRspLen     = 4
	setConfigFixedLen   = 5
	icodeEOFResponseLen = 2
)

// Dispatcher classifies raw controller frames, patches the ones that need
// vendor-specific fix-ups and records controller-wide conditions in Flags.
// Process calls are serialized; collaborators are invoked synchronously.
type Dispatcher struct {
	config *Config
	flags  *Flags
	temp   TempManager
	mifare MifareReader
	events EventLogger
	mu     syncutil.Mutex
}

// NewDispatcher creates a dispatcher with the given options applied to the
// default configuration and a fresh flag set.
func NewDispatcher(opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		config: DefaultConfig(),
		flags:  NewFlags(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Flags returns the flag set the dispatcher writes.
func (d *Dispatcher) Flags() *Flags {
	return d.flags
}

// Config returns a copy of the active configuration.
func (d *Dispatcher) Config() Config {
	return *d.config
}

// Process inspects one frame received from the controller. A nil error means
// the (possibly patched) frame may be forwarded to the generic response path.
// Frames of unknown group or opcode pass through untouched.
func (d *Dispatcher) Process(f *Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := f.Validate(); err != nil {
		return err
	}
	h, err := f.Header()
	if err != nil {
		return err
	}
	if !frame.ValidMessageType(h.MT) {
		return newFrameError("classify", h, f.Len(), ErrInvalidMessageType)
	}

	switch h.MT {
	case frame.MTData:
		return d.processData(f, h)
	case frame.MTResponse:
		return d.processResponse(f, h)
	default:
		return d.processNotification(f, h)
	}
}

// ProcessRaw is Process over a caller-managed buffer and length. Patches are
// written back into buf and length is updated; a patch that would not fit in
// buf fails the frame.
func (d *Dispatcher) ProcessRaw(buf []byte, length *uint16) Status {
	if length == nil {
		return StatusFailed
	}
	f := NewFrameWithLength(buf, *length)
	if err := d.Process(f); err != nil {
		Debugf("extension response rejected: %v", err)
		return StatusFailed
	}

	out := f.Bytes()
	if len(out) > len(buf) {
		Debugf("patched frame (%d bytes) exceeds caller buffer (%d bytes)", len(out), len(buf))
		return StatusFailed
	}
	copy(buf, out)
	*length = uint16(len(out)) //nolint:gosec // SetLen bounds the length to 16 bits
	return StatusSuccess
}

func (d *Dispatcher) processNotification(f *Frame, h Header) error {
	switch {
	case h.GID == frame.GIDRF && h.OID == frame.OIDRFIntfActivated:
		return d.rfInterfaceActivated(f, h)
	case h.GID == frame.GIDRF && h.OID == frame.OIDRFDeactivate:
		d.rfDeactivated()
		return nil
	case h.GID == frame.GIDCore && h.OID == frame.OIDCoreGenericError:
		return d.coreGenericError(f, h)
	case h.GID == frame.GIDCore && h.OID == frame.OIDCoreReset:
		return d.coreReset(f, h)
	case h.GID == frame.GIDProprietary && h.OID == frame.OIDPropSystemTemperatureInfo:
		d.temperatureInfo(f)
		return nil
	default:
		return nil
	}
}

func (d *Dispatcher) rfInterfaceActivated(f *Frame, h Header) error {
	if !f.Has(activatedMinLen) {
		return newFrameError("RF_INTF_ACTIVATED_NTF", h, f.Len(),
			fmt.Errorf("%w: need %d bytes", ErrFrameTooShort, activatedMinLen))
	}

	intf := f.get(activatedInterfaceIdx)
	proto := f.get(activatedProtocolIdx)

	mifare := intf == frame.RFInterfaceMifare && proto == frame.RFProtocolMifare
	d.flags.SetMifareExtensionsEnabled(mifare)
	if mifare {
		Debugf("MIFARE Classic extension interface enabled")
	}

	if !f.Has(activatedWithMode) {
		Debugf("RF interface %s, protocol %s", frame.InterfaceName(intf), frame.ProtocolName(proto))
		return nil
	}
	mode := f.get(activatedModeIdx)
	Debugf("RF interface %s, protocol %s, mode %s",
		frame.InterfaceName(intf), frame.ProtocolName(proto), frame.ModeName(mode))

	switch {
	case f.get(activatedPayloadLenIdx) == icodeActivationLen &&
		intf == frame.RFInterfaceFrame && proto == frame.RFProtocolT5T && mode == frame.RFModePollV:
		if !f.Has(icodeActivatedMinLn) {
			return newFrameError("RF_INTF_ACTIVATED_NTF", h, f.Len(),
				fmt.Errorf("%w: ISO15693 activation needs %d bytes", ErrFrameTooShort, icodeActivatedMinLn))
		}
		d.flags.SetICodeDetected(0x01)
		_ = f.Set(icodeTrailerFirst, 0x01)
		_ = f.Set(icodeTrailerSecond, 0x01)
		Debugf("ISO15693 activation, ICODE workaround applied")
	case d.config.FelicaReaderMode &&
		intf == frame.RFInterfaceFrame && proto == frame.RFProtocolNFCDEP && mode == frame.RFModePollF:
		_ = f.Set(activatedProtocolIdx, frame.RFProtocolT3T)
		Debugf("FeliCa reader mode: NFC-DEP activation reported as T3T")
	}

	if mode&frame.RFModeListenMask != 0 && d.events != nil {
		d.events.Log(f.Bytes(), LogEventHCE)
	}
	return nil
}

func (d *Dispatcher) rfDeactivated() {
	if d.flags.ICodeDetected() == 0x01 {
		Debugf("polling loop restarted, ICODE state cleared")
	}
	d.flags.clearICode()
	d.flags.SetMifareExtensionsEnabled(false)
}

func (d *Dispatcher) coreGenericError(f *Frame, h Header) error {
	if !f.Has(genericErrorMinLen) {
		return newFrameError("CORE_GENERIC_ERROR_NTF", h, f.Len(), ErrFrameTooShort)
	}
	code := f.get(frame.HeaderSize)
	switch code {
	case frame.GenericErrCurrentNtf, frame.GenericErrUACRCNtf, frame.GenericErrUAMirCRCNtf:
		d.flags.SetFirmwareRecoveryRequired(true)
		if d.events != nil {
			d.events.Log(f.Bytes(), LogEventGenericError)
		}
		Debugf("generic error 0x%02X, firmware recovery required", code)
		return newFrameError("CORE_GENERIC_ERROR_NTF", h, f.Len(),
			fmt.Errorf("%w: generic error 0x%02X", ErrFirmwareRecovery, code))
	default:
		return nil
	}
}

func (d *Dispatcher) coreReset(f *Frame, h Header) error {
	if !f.Has(coreResetMinLen) {
		return newFrameError("CORE_RESET_NTF", h, f.Len(), ErrFrameTooShort)
	}
	trigger := f.get(frame.HeaderSize)
	if trigger != frame.ResetTriggerFWAssert && trigger != frame.ResetTriggerWatchdog {
		return nil
	}

	d.flags.SetFirmwareRecoveryRequired(true)
	if d.events != nil {
		d.events.Log(f.Bytes(), LogEventCoreReset)
	}
	Debugf("unsolicited core reset, trigger 0x%02X (counted in %s)", trigger, d.config.CoreResetCountProperty)
	return newFrameError("CORE_RESET_NTF", h, f.Len(),
		fmt.Errorf("%w: reset trigger 0x%02X", ErrFirmwareRecovery, trigger))
}

func (d *Dispatcher) temperatureInfo(f *Frame) {
	if d.temp == nil {
		Debugf("temperature notification dropped, no temperature manager")
		return
	}
	d.temp.UpdateStatus(f.Bytes())
}

func (d *Dispatcher) processResponse(f *Frame, h Header) error {
	if h.GID != frame.GIDCore || h.OID != frame.OIDCoreSetConfig || f.Len() != setConfigRspLen {
		return nil
	}
	if f.get(2) != 0x01 || f.get(3) != frame.StatusSemanticError {
		return nil
	}

	// Report success with no invalid parameters instead of the semantic error
	if err := f.SetLen(setConfigFixedLen); err != nil {
		return newFrameError("CORE_SET_CONFIG_RSP", h, f.Len(), err)
	}
	_ = f.Set(2, 0x02)
	_ = f.Set(3, frame.StatusOK)
	_ = f.Set(4, 0x00)
	Debugf("SET_CONFIG semantic error rewritten to success")
	return nil
}

func (d *Dispatcher) processData(f *Frame, h Header) error {
	if !f.Has(frame.HeaderSize) {
		return newFrameError("DATA", h, f.Len(), ErrFrameTooShort)
	}
	if d.flags.MifareExtensionsEnabled() {
		return d.mifareData(f, h)
	}
	if d.flags.ICodeDetected() == 0x01 {
		return d.icodeData(f, h)
	}
	return nil
}

func (d *Dispatcher) mifareData(f *Frame, h Header) error {
	if d.mifare == nil {
		Debugf("MIFARE extension data passed through, no MIFARE reader")
		return nil
	}
	payload, err := f.Sub(frame.HeaderSize)
	if err != nil {
		return newFrameError("DATA", h, f.Len(), err)
	}

	n, err := d.mifare.AnalyzeResponse(payload.Bytes())
	if err != nil {
		return newFrameError("DATA", h, f.Len(), err)
	}
	if n < 0 || n > payload.Len() || n > 0xFF {
		return newFrameError("DATA", h, f.Len(),
			fmt.Errorf("%w: MIFARE payload length %d", ErrFrameOutOfBounds, n))
	}

	_ = f.Set(2, byte(n))
	return f.SetLen(frame.HeaderSize + n)
}

func (d *Dispatcher) icodeData(f *Frame, h Header) error {
	// Done is cleared on the data packet after the one that completed the EOF
	if d.flags.finishICodeEOF() {
		Debugf("ICODE EOF sequence finished")
	} else if d.flags.advanceICodeEOF() {
		Debugf("ICODE EOF acknowledged")
	}

	connID := f.get(0) & 0x0F
	payloadLen := int(f.get(2))
	if connID != 0 {
		if payloadLen == icodeEOFResponseLen {
			Debugf("ICODE EOF response not forwarded")
			return newFrameError("DATA", h, f.Len(), ErrFrameSuppressed)
		}
		return nil
	}

	if d.config.NCIVersion >= NCIVersion20 || payloadLen == 0 {
		return nil
	}
	last := frame.HeaderSize + payloadLen - 1
	if !f.Has(last + 1) {
		return newFrameError("DATA", h, f.Len(),
			fmt.Errorf("%w: payload length %d", ErrFrameTooShort, payloadLen))
	}

	if f.get(last) == 0x00 {
		// Drop the trailing status byte
		_ = f.Set(2, byte(payloadLen-1))
		return f.SetLen(f.Len() - 1)
	}
	_ = f.Set(last, f.get(last)|0x01)
	return nil
}
