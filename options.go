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

import "fmt"

// Option is a functional option for configuring a Dispatcher
type Option func(*Dispatcher) error

// WithConfig replaces the whole configuration
func WithConfig(cfg *Config) Option {
	return func(d *Dispatcher) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidParameter)
		}
		c := *cfg
		d.config = &c
		return nil
	}
}

// WithFelicaReaderMode enables the NFC-DEP to T3T activation rewrite
func WithFelicaReaderMode(enabled bool) Option {
	return func(d *Dispatcher) error {
		d.config.FelicaReaderMode = enabled
		return nil
	}
}

// WithNCIVersion sets the negotiated NCI version
func WithNCIVersion(v NCIVersion) Option {
	return func(d *Dispatcher) error {
		if v != NCIVersion10 && v != NCIVersion20 {
			return fmt.Errorf("%w: NCI version 0x%02X", ErrInvalidParameter, byte(v))
		}
		d.config.NCIVersion = v
		return nil
	}
}

// WithFlags shares a flag set with the surrounding stack
func WithFlags(flags *Flags) Option {
	return func(d *Dispatcher) error {
		if flags == nil {
			return fmt.Errorf("%w: nil flags", ErrInvalidParameter)
		}
		d.flags = flags
		return nil
	}
}

// WithTempManager sets the temperature notification consumer
func WithTempManager(tm TempManager) Option {
	return func(d *Dispatcher) error {
		d.temp = tm
		return nil
	}
}

// WithMifareReader sets the MIFARE Classic extension post-processor
func WithMifareReader(mr MifareReader) Option {
	return func(d *Dispatcher) error {
		d.mifare = mr
		return nil
	}
}

// WithEventLogger sets the diagnostic event logger
func WithEventLogger(el EventLogger) Option {
	return func(d *Dispatcher) error {
		d.events = el
		return nil
	}
}
