// go-l91
// Copyright (c) 2026 The L91 Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-l91.
//
// go-l91 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-l91 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-l91; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package detection finds serial ports that look like L91 bridges. Safe
// mode only enumerates and ranks; Probe mode additionally opens each
// candidate and sends a bring-up probe, marking adapters that answer.
package detection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/L91Project/go-l91/detection/uart"
	"github.com/L91Project/go-l91/internal/frame"
)

// Mode selects how intrusive detection is allowed to be.
type Mode int

const (
	// Safe enumerates and ranks without opening any port.
	Safe Mode = iota
	// Probe opens each candidate and writes a bring-up probe. Only do
	// this on machines where grabbing a serial port briefly is
	// acceptable; a probe can wedge unrelated devices that dislike
	// unsolicited bytes.
	Probe
)

// Probe defaults. The read window matches the bring-up handshake; the
// baud rate is the fixed bridge line speed.
const (
	DefaultProbeTimeout  = 300 * time.Millisecond
	DefaultProbeBaudRate = 921600

	// enumerationTimeout bounds platform enumeration commands.
	enumerationTimeout = 5 * time.Second
)

// knownAdapters maps USB identities to the bridge chips L91 adapters
// ship with.
var knownAdapters = map[string]string{
	"1A86:7523": "CH340",
	"1A86:5523": "CH341",
	"10C4:EA60": "CP210x",
	"0403:6001": "FT232R",
	"0403:6015": "FT231X",
}

// AdapterChip returns the bridge chip name for a "VVVV:PPPP" USB
// identity, if it is one the project has seen on L91 hardware.
func AdapterChip(vidpid string) (string, bool) {
	chip, ok := knownAdapters[strings.ToUpper(strings.TrimSpace(vidpid))]
	return chip, ok
}

// Device is one detection candidate, best first in DetectAll's result.
type Device struct {
	// Path is the port path to connect to.
	Path string
	// Name is the platform's friendly name, if any.
	Name string
	// VIDPID is the USB identity as "VVVV:PPPP", empty if unknown.
	VIDPID string
	// Chip is the recognized bridge chip, empty if the identity is not a
	// known adapter.
	Chip string
	// Manufacturer is the USB manufacturer string, if any.
	Manufacturer string
	// Product is the USB product string, if any.
	Product string
	// SerialNumber is the USB serial number, if any.
	SerialNumber string
	// Confirmed means the port answered the bring-up probe. Only Probe
	// mode sets it; silence leaves it false without dropping the
	// candidate, because CP210x-based adapters never answer.
	Confirmed bool
}

// Options holds configuration options for detection.
type Options struct {
	// Mode selects Safe or Probe behavior.
	Mode Mode
	// Blocklist adds VID:PIDs to skip on top of DefaultBlocklist.
	Blocklist []string
	// IgnorePaths drops specific port paths from consideration.
	IgnorePaths []string
	// ProbeTimeout bounds each per-port read in Probe mode. Values <= 0
	// select the default.
	ProbeTimeout time.Duration
	// ProbeBaudRate is the line speed used for probing. Values <= 0
	// select the default.
	ProbeBaudRate int
	// IncludeUnlikely keeps ports that match no known adapter identity
	// or path pattern.
	IncludeUnlikely bool
}

// DefaultOptions returns the default detection options.
func DefaultOptions() Options {
	return Options{
		Mode:          Safe,
		ProbeTimeout:  DefaultProbeTimeout,
		ProbeBaudRate: DefaultProbeBaudRate,
	}
}

// DetectAll enumerates serial ports and returns the plausible bridge
// candidates, most likely first. A nil opts selects DefaultOptions.
func DetectAll(opts *Options) ([]Device, error) {
	options := DefaultOptions()
	if opts != nil {
		options = *opts
	}
	if options.ProbeTimeout <= 0 {
		options.ProbeTimeout = DefaultProbeTimeout
	}
	if options.ProbeBaudRate <= 0 {
		options.ProbeBaudRate = DefaultProbeBaudRate
	}

	ctx, cancel := context.WithTimeout(context.Background(), enumerationTimeout)
	defer cancel()

	ports, err := uart.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	blocklist := append(DefaultBlocklist(), options.Blocklist...)
	devices, scores := filterCandidates(ports, blocklist, &options)

	sort.SliceStable(devices, func(i, j int) bool {
		return scores[devices[i].Path] > scores[devices[j].Path]
	})

	if options.Mode == Probe {
		for i := range devices {
			devices[i].Confirmed = probePort(devices[i].Path, &options)
		}
		sort.SliceStable(devices, func(i, j int) bool {
			if devices[i].Confirmed != devices[j].Confirmed {
				return devices[i].Confirmed
			}
			return scores[devices[i].Path] > scores[devices[j].Path]
		})
	}

	return devices, nil
}

// filterCandidates drops blocked and ignored ports and scores the rest.
func filterCandidates(ports []uart.Port, blocklist []string, options *Options) ([]Device, map[string]int) {
	var devices []Device
	scores := make(map[string]int)

	for _, port := range ports {
		if IsPathIgnored(port.Path, options.IgnorePaths) {
			continue
		}
		if port.VIDPID != "" && IsBlocked(port.VIDPID, blocklist) {
			continue
		}
		score := scorePort(port)
		if score == 0 && !options.IncludeUnlikely {
			continue
		}

		device := Device{
			Path:         port.Path,
			Name:         port.Name,
			VIDPID:       strings.ToUpper(port.VIDPID),
			Manufacturer: port.Manufacturer,
			Product:      port.Product,
			SerialNumber: port.SerialNumber,
		}
		device.Chip, _ = AdapterChip(device.VIDPID)
		devices = append(devices, device)
		scores[device.Path] = score
	}

	return devices, scores
}

// scorePort ranks a port by how much it looks like a bridge: a known
// adapter identity beats a USB-serial path pattern beats any other USB
// device. Zero means nothing points at a bridge.
func scorePort(port uart.Port) int {
	if _, ok := AdapterChip(port.VIDPID); ok {
		return 3
	}
	if isCandidatePath(port.Path) {
		return 2
	}
	if port.VIDPID != "" {
		return 1
	}
	return 0
}

// isCandidatePath reports whether a path matches the naming USB-serial
// bridges get across platforms.
func isCandidatePath(path string) bool {
	if strings.HasPrefix(path, "/dev/ttyUSB") || strings.HasPrefix(path, "/dev/ttyACM") {
		return true
	}
	if strings.HasPrefix(path, "/dev/cu.usbserial") || strings.HasPrefix(path, "/dev/cu.usbmodem") ||
		strings.HasPrefix(path, "/dev/tty.usbserial") || strings.HasPrefix(path, "/dev/tty.usbmodem") {
		return true
	}
	return strings.HasPrefix(path, "COM")
}

// probePort opens a candidate and writes the bring-up probe. Any bytes
// back confirm a bridge; silence proves nothing, because only some
// adapter chips echo the bring-up sequence.
func probePort(path string, options *Options) bool {
	mode := &serial.Mode{
		BaudRate: options.ProbeBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return false
	}
	defer func() { _ = port.Close() }()

	if err := port.SetReadTimeout(options.ProbeTimeout); err != nil {
		return false
	}
	if _, err := port.Write(frame.HandshakeProbe); err != nil {
		return false
	}

	buf := make([]byte, 64)
	n, err := port.Read(buf)
	return err == nil && n > 0
}
