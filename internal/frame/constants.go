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

package frame

// Message types, carried in bits 7-5 of the first header octet
const (
	MTData         = 0x00
	MTCommand      = 0x01
	MTResponse     = 0x02
	MTNotification = 0x03
)

// Group identifiers
const (
	GIDCore        = 0x00
	GIDRF          = 0x01
	GIDNFCEE       = 0x02
	GIDProprietary = 0x0F
)

// Core opcodes
const (
	OIDCoreReset        = 0x00
	OIDCoreInit         = 0x01
	OIDCoreSetConfig    = 0x02
	OIDCoreConnCredits  = 0x06
	OIDCoreGenericError = 0x07
)

// RF opcodes
const (
	OIDRFDiscover       = 0x03
	OIDRFIntfActivated  = 0x05
	OIDRFDeactivate     = 0x06
	OIDRFFieldInfo      = 0x07
	OIDRFT3TPolling     = 0x08
	OIDRFNFCEEAction    = 0x09
	OIDRFNFCEEDiscovery = 0x0A
)

// Proprietary opcodes
const (
	OIDPropSystemTemperatureInfo = 0x25
)

// Header layout
const (
	HeaderSize  = 3 // MT/PBF/GID, OID, payload length
	MinFrameLen = 2 // MT/GID and OID must be present to classify anything

	gidMask = 0x0F
	oidMask = 0x3F
	mtShift = 5
	mtMask  = 0x07
)

// Status codes
const (
	StatusOK            = 0x00
	StatusRejected      = 0x01
	StatusFailed        = 0x03
	StatusSemanticError = 0x06
)

// Generic error codes reported in CORE_GENERIC_ERROR_NTF that mean the
// firmware image can no longer be trusted
const (
	GenericErrCurrentNtf   = 0xCA
	GenericErrUACRCNtf     = 0xCB
	GenericErrUAMirCRCNtf  = 0xCC
	ResetTriggerFWAssert   = 0xA0
	ResetTriggerWatchdog   = 0xA3
	ResetTriggerPowerOn    = 0x02
	ResetTriggerCmdRequest = 0x01
)

// RF interfaces reported in RF_INTF_ACTIVATED_NTF octet 4
const (
	RFInterfaceNFCEEDirect = 0x00
	RFInterfaceFrame       = 0x01
	RFInterfaceISODEP      = 0x02
	RFInterfaceNFCDEP      = 0x03
	RFInterfaceMifare      = 0x80
)

// RF protocols reported in RF_INTF_ACTIVATED_NTF octet 5
const (
	RFProtocolUnknown = 0x00
	RFProtocolT1T     = 0x01
	RFProtocolT2T     = 0x02
	RFProtocolT3T     = 0x03
	RFProtocolISODEP  = 0x04
	RFProtocolNFCDEP  = 0x05
	RFProtocolT5T     = 0x06
	RFProtocolMifare  = 0x80
	RFProtocolKovio   = 0x8A
)

// RF technology and mode values reported in RF_INTF_ACTIVATED_NTF octet 6
const (
	RFModePollA       = 0x00
	RFModePollB       = 0x01
	RFModePollF       = 0x02
	RFModePollActiveA = 0x03
	RFModePollActiveF = 0x05
	RFModePollV       = 0x06
	RFModePollKovio   = 0x70
	RFModeListenA     = 0x80
	RFModeListenB     = 0x81
	RFModeListenF     = 0x82
	RFModeListenMask  = 0x80
)

// MessageType returns the MT field of the first header octet.
func MessageType(b0 byte) byte {
	return (b0 >> mtShift) & mtMask
}

// GroupID returns the GID field of the first header octet.
func GroupID(b0 byte) byte {
	return b0 & gidMask
}

// OpcodeID returns the OID field of the second header octet.
func OpcodeID(b1 byte) byte {
	return b1 & oidMask
}

// ValidMessageType reports whether mt is a type the controller may send to the host.
func ValidMessageType(mt byte) bool {
	return mt == MTData || mt == MTResponse || mt == MTNotification
}

// IsNotification reports whether the header octets identify the given notification.
func IsNotification(b0, b1, gid, oid byte) bool {
	return MessageType(b0) == MTNotification && GroupID(b0) == gid && OpcodeID(b1) == oid
}

// IsResponse reports whether the header octets identify the given response.
func IsResponse(b0, b1, gid, oid byte) bool {
	return MessageType(b0) == MTResponse && GroupID(b0) == gid && OpcodeID(b1) == oid
}

// InterfaceName returns a printable name for an RF interface value.
func InterfaceName(v byte) string {
	switch v {
	case RFInterfaceNFCEEDirect:
		return "NFCEE Direct RF"
	case RFInterfaceFrame:
		return "Frame RF"
	case RFInterfaceISODEP:
		return "ISO-DEP"
	case RFInterfaceNFCDEP:
		return "NFC-DEP"
	case RFInterfaceMifare:
		return "MIFARE"
	default:
		return "unknown"
	}
}

// ProtocolName returns a printable name for an RF protocol value.
func ProtocolName(v byte) string {
	switch v {
	case RFProtocolT1T:
		return "T1T"
	case RFProtocolT2T:
		return "T2T"
	case RFProtocolT3T:
		return "T3T"
	case RFProtocolISODEP:
		return "ISO-DEP"
	case RFProtocolNFCDEP:
		return "NFC-DEP"
	case RFProtocolT5T:
		return "ISO15693"
	case RFProtocolMifare:
		return "MIFARE"
	case RFProtocolKovio:
		return "Kovio"
	default:
		return "unknown"
	}
}

// ModeName returns a printable name for an RF technology and mode value.
func ModeName(v byte) string {
	switch v {
	case RFModePollA:
		return "A passive poll"
	case RFModePollB:
		return "B passive poll"
	case RFModePollF:
		return "F passive poll"
	case RFModePollActiveA:
		return "A active poll"
	case RFModePollActiveF:
		return "F active poll"
	case RFModePollV:
		return "ISO15693 passive poll"
	case RFModePollKovio:
		return "Kovio"
	case RFModeListenA:
		return "A passive listen"
	case RFModeListenB:
		return "B passive listen"
	case RFModeListenF:
		return "F passive listen"
	default:
		return "unknown"
	}
}
