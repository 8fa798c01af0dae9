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

// TempManager receives controller temperature notifications.
type TempManager interface {
	// UpdateStatus is called with the complete SYSTEM_TEMPERATURE_INFO_NTF frame.
	// The slice aliases the frame and must not be retained.
	UpdateStatus(frame []byte)
}

// MifareReader post-processes data packets received while the MIFARE Classic
// extension interface is active.
type MifareReader interface {
	// AnalyzeResponse may rewrite payload in place and returns the number of
	// valid payload bytes afterwards, which must not exceed len(payload).
	AnalyzeResponse(payload []byte) (int, error)
}

// LogEventType identifies why a frame was handed to the EventLogger.
type LogEventType int

const (
	// LogEventHCE marks a listen-mode (card emulation) activation
	LogEventHCE LogEventType = iota
	// LogEventCoreReset marks an unsolicited controller reset
	LogEventCoreReset
	// LogEventGenericError marks a generic error that requires firmware recovery
	LogEventGenericError
)

func (t LogEventType) String() string {
	switch t {
	case LogEventHCE:
		return "HCE"
	case LogEventCoreReset:
		return "CORE_RESET"
	case LogEventGenericError:
		return "GENERIC_ERROR"
	default:
		return "UNKNOWN"
	}
}

// EventLogger records frames of interest for later field diagnostics.
type EventLogger interface {
	// Log is called with the frame bytes; the slice must not be retained.
	Log(frame []byte, event LogEventType)
}
