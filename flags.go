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

import "go.uber.org/atomic"

// ICODE send-EOF progress values
const (
	ICodeEOFIdle    byte = 0x00
	ICodeEOFPending byte = 0x01
	ICodeEOFSent    byte = 0x02
	ICodeEOFDone    byte = 0x03
)

// Flags holds the controller-wide conditions the dispatcher records as side
// effects of notifications. The dispatcher is the only writer; the surrounding
// stack reads them at any time, so every field is atomic.
type Flags struct {
	firmwareRecovery *atomic.Bool
	mifareExtensions *atomic.Bool
	icodeDetected    *atomic.Uint32
	icodeSendEOF     *atomic.Uint32
}

// FlagSnapshot is a point-in-time copy of Flags.
type FlagSnapshot struct {
	FirmwareRecoveryRequired bool
	MifareExtensionsEnabled  bool
	ICodeDetected            byte
	ICodeSendEOF             byte
}

// NewFlags returns a cleared flag set.
func NewFlags() *Flags {
	return &Flags{
		firmwareRecovery: atomic.NewBool(false),
		mifareExtensions: atomic.NewBool(false),
		icodeDetected:    atomic.NewUint32(0),
		icodeSendEOF:     atomic.NewUint32(0),
	}
}

// FirmwareRecoveryRequired reports whether a generic error or reset notification
// asked for firmware recovery.
func (f *Flags) FirmwareRecoveryRequired() bool {
	return f.firmwareRecovery.Load()
}

// SetFirmwareRecoveryRequired sets or clears the recovery flag. The surrounding
// stack clears it once recovery has completed.
func (f *Flags) SetFirmwareRecoveryRequired(v bool) {
	f.firmwareRecovery.Store(v)
}

// MifareExtensionsEnabled reports whether the active target uses the MIFARE
// Classic extension interface.
func (f *Flags) MifareExtensionsEnabled() bool {
	return f.mifareExtensions.Load()
}

// SetMifareExtensionsEnabled sets or clears the MIFARE extension flag.
func (f *Flags) SetMifareExtensionsEnabled(v bool) {
	f.mifareExtensions.Store(v)
}

// ICodeDetected returns 0x01 while an ICODE (ISO15693) target is active.
func (f *Flags) ICodeDetected() byte {
	return byte(f.icodeDetected.Load())
}

// SetICodeDetected records the ICODE detection state.
func (f *Flags) SetICodeDetected(v byte) {
	f.icodeDetected.Store(uint32(v))
}

// ICodeSendEOF returns the ICODE EOF progress value.
func (f *Flags) ICodeSendEOF() byte {
	return byte(f.icodeSendEOF.Load())
}

// SetICodeSendEOF records the ICODE EOF progress. The command path sets it when
// it issues an EOF; the dispatcher advances it as responses arrive.
func (f *Flags) SetICodeSendEOF(v byte) {
	f.icodeSendEOF.Store(uint32(v))
}

// advanceICodeEOF moves the EOF progress from sent to done.
func (f *Flags) advanceICodeEOF() bool {
	return f.icodeSendEOF.CompareAndSwap(uint32(ICodeEOFSent), uint32(ICodeEOFDone))
}

// finishICodeEOF returns the EOF progress from done to idle.
func (f *Flags) finishICodeEOF() bool {
	return f.icodeSendEOF.CompareAndSwap(uint32(ICodeEOFDone), uint32(ICodeEOFIdle))
}

// clearICode resets both ICODE values after the polling loop restarts.
func (f *Flags) clearICode() {
	f.icodeDetected.Store(0)
	f.icodeSendEOF.Store(0)
}

// Reset clears every flag, as after a controller re-initialisation.
func (f *Flags) Reset() {
	f.firmwareRecovery.Store(false)
	f.mifareExtensions.Store(false)
	f.clearICode()
}

// Snapshot returns a copy of the current values.
func (f *Flags) Snapshot() FlagSnapshot {
	return FlagSnapshot{
		FirmwareRecoveryRequired: f.FirmwareRecoveryRequired(),
		MifareExtensionsEnabled:  f.MifareExtensionsEnabled(),
		ICodeDetected:            f.ICodeDetected(),
		ICodeSendEOF:             f.ICodeSendEOF(),
	}
}
