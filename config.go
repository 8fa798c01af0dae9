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

// NCIVersion is the NCI specification version negotiated with the controller.
type NCIVersion byte

const (
	NCIVersion10 NCIVersion = 0x10
	NCIVersion20 NCIVersion = 0x20
)

// CoreResetCountProperty names the persistent property in which the surrounding
// stack counts unsolicited core resets. The dispatcher never writes it.
const CoreResetCountProperty = "core_reset_ntf_count"

// Config holds dispatcher configuration
type Config struct {
	// CoreResetCountProperty is the property name reported to the event logger
	// consumer for reset accounting
	CoreResetCountProperty string
	// NCIVersion selects version-specific workarounds. The ICODE data
	// trailer fix-up only applies to NCI 1.x controllers.
	NCIVersion NCIVersion
	// FelicaReaderMode rewrites NFC-DEP activations over NFC-F to T3T so
	// that FeliCa cards advertising peer-to-peer are read as tags
	FelicaReaderMode bool
}

// DefaultConfig returns the default dispatcher configuration
func DefaultConfig() *Config {
	return &Config{
		CoreResetCountProperty: CoreResetCountProperty,
		NCIVersion:             NCIVersion20,
		FelicaReaderMode:       false,
	}
}
