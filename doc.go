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

// Package nci post-processes frames received from an NXP NCI controller
// before they reach the generic NCI response path, and drives the
// multi-step NDEF write on ISO15693 (NFC-V) tags.
//
// A Dispatcher inspects each controller frame, rewrites the vendor
// specific ones in place and records controller state in a shared Flags
// set. An I93Session reacts to tag responses with the next ISO15693 block
// command until the NDEF message and its TLV length are on the tag.
package nci
