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
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// debugEnabled controls whether debug logging reaches the console
var debugEnabled = false

const debugTimeFormat = "15:04:05.000"

var (
	consoleLogger = newDebugLogger(os.Stdout, false)

	// sessionLogger is rebuilt when sessionLogWriter changes
	sessionLogger    zerolog.Logger
	sessionLoggerOut io.Writer
)

func init() {
	if os.Getenv("NCI_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled = true
	}
}

// newDebugLogger returns a plain-text zerolog logger writing "DEBUG: msg" lines,
// prefixed with a millisecond timestamp when stamped is set. The timestamp is
// rendered by the console writer, leaving zerolog's global time settings alone.
func newDebugLogger(w io.Writer, stamped bool) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:     w,
		NoColor: true,
		FormatLevel: func(any) string {
			return "DEBUG:"
		},
		FormatTimestamp: func(any) string {
			return time.Now().Format(debugTimeFormat)
		},
	}
	if !stamped {
		cw.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	return zerolog.New(cw)
}

func writeDebug(message string) {
	// Always write to session log with timestamp
	if sessionLogWriter != nil {
		if sessionLoggerOut != sessionLogWriter {
			sessionLogger = newDebugLogger(sessionLogWriter, true)
			sessionLoggerOut = sessionLogWriter
		}
		sessionLogger.Debug().Msg(message)
	}

	if debugEnabled {
		consoleLogger.Debug().Msg(message)
	}
}

// Debugf prints debug information.
// Always writes to the session log file (if initialized) with a timestamp.
// Only prints to the console when debug mode is enabled.
func Debugf(format string, args ...any) {
	if sessionLogWriter == nil && !debugEnabled {
		return
	}
	writeDebug(fmt.Sprintf(format, args...))
}

// Debugln prints debug information, formatting operands like fmt.Sprint.
func Debugln(args ...any) {
	if sessionLogWriter == nil && !debugEnabled {
		return
	}
	writeDebug(fmt.Sprint(args...))
}

// SetDebugEnabled allows programmatic control of debug logging.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}
