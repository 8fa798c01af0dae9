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

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hsanjuan/go-ndef"

	nci "github.com/ZaparooProject/go-nci"
	testutil "github.com/ZaparooProject/go-nci/internal/testing"
)

type config struct {
	tracePath string
	ndefText  string
	logDir    string
	felica    bool
	nci10     bool
	debug     bool
}

// Package-level flag variables
var (
	flagTracePath string
	flagNDEFText  string
	flagLogDir    string
	flagFelica    bool
	flagNCI10     bool
	flagDebug     bool
)

func init() {
	flag.StringVar(&flagTracePath, "trace", "", "Hex trace of controller frames, one per line (stdin if empty)")
	flag.StringVar(&flagNDEFText, "ndef-text", "", "Write this text to a simulated ISO15693 tag and dump its memory")
	flag.StringVar(&flagLogDir, "log", "", "Directory for a timestamped debug session log")
	flag.BoolVar(&flagFelica, "felica", false, "Enable FeliCa reader mode")
	flag.BoolVar(&flagNCI10, "nci10", false, "Controller speaks NCI 1.0")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
}

func parseConfig() *config {
	cfg := &config{
		tracePath: flagTracePath,
		ndefText:  flagNDEFText,
		logDir:    flagLogDir,
		felica:    flagFelica,
		nci10:     flagNCI10,
		debug:     flagDebug,
	}

	if cfg.debug {
		nci.SetDebugEnabled(true)
	}

	return cfg
}

func (c *config) dispatcherOptions() []nci.Option {
	opts := []nci.Option{nci.WithFelicaReaderMode(c.felica)}
	if c.nci10 {
		opts = append(opts, nci.WithNCIVersion(nci.NCIVersion10))
	}
	return opts
}

// parseLine decodes one trace line. Blank lines and comments yield nil.
// Bytes may be separated by spaces or colons and the line may carry a
// direction prefix such as "R:" or "N:".
func parseLine(line string) ([]byte, error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) > 2 && line[1] == ':' && strings.ContainsRune("RrNnDd", rune(line[0])) {
		line = line[2:]
	}
	line = strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(line)
	if line == "" {
		return nil, nil
	}
	data, err := hex.DecodeString(line)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}

type replayStats struct {
	frames  int
	failed  int
	patched int
}

// replay runs every frame of the trace through d and prints one verdict line
// per frame followed by the resulting flags.
func replay(ctx context.Context, d *nci.Dispatcher, r io.Reader, w io.Writer) (replayStats, error) {
	var stats replayStats
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		lineNo++
		data, err := parseLine(scanner.Text())
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if data == nil {
			continue
		}

		stats.frames++
		orig := append([]byte(nil), data...)
		f := nci.NewFrame(data)
		err = d.Process(f)
		status := nci.StatusFromError(err)

		switch {
		case err != nil:
			stats.failed++
			_, _ = fmt.Fprintf(w, "%4d %-7s % X (%v)\n", lineNo, status, orig, err)
		case !bytes.Equal(orig, f.Bytes()):
			stats.patched++
			_, _ = fmt.Fprintf(w, "%4d %-7s % X -> % X\n", lineNo, status, orig, f.Bytes())
		default:
			_, _ = fmt.Fprintf(w, "%4d %-7s % X\n", lineNo, status, orig)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read trace: %w", err)
	}

	snap := d.Flags().Snapshot()
	_, _ = fmt.Fprintf(w, "frames=%d failed=%d patched=%d\n", stats.frames, stats.failed, stats.patched)
	_, _ = fmt.Fprintf(w, "firmware_recovery=%t mifare_ext=%t icode_detected=0x%02X icode_send_eof=0x%02X\n",
		snap.FirmwareRecoveryRequired, snap.MifareExtensionsEnabled, snap.ICodeDetected, snap.ICodeSendEOF)
	return stats, nil
}

// Simulated tag geometry for -ndef-text
const (
	simBlockSize = 4
	simNumBlocks = 64
	simTLVOffset = 4
)

func runNDEFUpdate(ctx context.Context, text string, w io.Writer) error {
	payload, err := ndef.NewTextMessage(text, "en").Marshal()
	if err != nil {
		return fmt.Errorf("failed to build NDEF message: %w", err)
	}

	tag := testutil.NewVirtualI93Tag(testutil.TestI93UID, simBlockSize, simNumBlocks)
	if err := tag.SetBytes(0, []byte{0xE1, 0x40, simBlockSize * simNumBlocks / 8, 0x01, 0x03, 0x00, 0xFE}); err != nil {
		return err
	}
	link := testutil.NewI93Link(tag)
	events := make(nci.I93EventChannel, 1)
	session, err := nci.NewI93Session(nci.I93TagInfo{
		UID:                tag.UID,
		BlockSize:          simBlockSize,
		NumBlocks:          simNumBlocks,
		NDEFTLVStartOffset: simTLVOffset,
	}, link, events)
	if err != nil {
		return err
	}

	if err := session.BeginNDEFUpdate(ctx, payload); err != nil {
		return fmt.Errorf("failed to start NDEF update: %w", err)
	}
	for link.Pending() > 0 {
		resp, err := link.Receive()
		if err != nil {
			session.Abort()
			return fmt.Errorf("tag response: %w", err)
		}
		session.AdvanceNDEFUpdate(ctx, nci.NewFrame(resp))
	}

	select {
	case ev := <-events:
		_, _ = fmt.Fprintf(w, "%s: %s, %d bytes in %d commands\n",
			ev.Type, ev.Result.Status, ev.Result.NDEFLength, link.Sent())
	default:
		return errors.New("NDEF update did not complete")
	}

	for i, block := range tag.Memory {
		if bytes.Equal(block, make([]byte, simBlockSize)) {
			continue
		}
		_, _ = fmt.Fprintf(w, "block %02d: % X\n", i, block)
	}
	return nil
}

func run(ctx context.Context, cfg *config) error {
	if cfg.logDir != "" {
		path, err := nci.InitSessionLog(cfg.logDir)
		if err != nil {
			return fmt.Errorf("failed to open session log: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stderr, "Session log: %s\n", path)
		defer func() {
			_ = nci.CloseSessionLog()
		}()
	}

	if cfg.ndefText != "" {
		return runNDEFUpdate(ctx, cfg.ndefText, os.Stdout)
	}

	d, err := nci.NewDispatcher(cfg.dispatcherOptions()...)
	if err != nil {
		return err
	}

	in := io.Reader(os.Stdin)
	if cfg.tracePath != "" {
		f, err := os.Open(cfg.tracePath)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		in = f
	}

	_, err = replay(ctx, d, in, os.Stdout)
	return err
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	cfg := parseConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
