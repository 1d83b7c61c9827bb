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

package detection

import (
	"testing"

	"github.com/L91Project/go-l91/detection/uart"
)

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if opts.Mode != Safe {
		t.Errorf("DefaultOptions().Mode = %v, want Safe", opts.Mode)
	}
	if opts.ProbeTimeout != DefaultProbeTimeout {
		t.Errorf("DefaultOptions().ProbeTimeout = %v, want %v", opts.ProbeTimeout, DefaultProbeTimeout)
	}
	if opts.ProbeBaudRate != DefaultProbeBaudRate {
		t.Errorf("DefaultOptions().ProbeBaudRate = %d, want %d", opts.ProbeBaudRate, DefaultProbeBaudRate)
	}
	if opts.IncludeUnlikely {
		t.Error("DefaultOptions().IncludeUnlikely should be false")
	}
}

func TestAdapterChip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		vidpid   string
		wantChip string
		wantOK   bool
	}{
		{name: "ch340", vidpid: "1A86:7523", wantChip: "CH340", wantOK: true},
		{name: "ch341", vidpid: "1A86:5523", wantChip: "CH341", wantOK: true},
		{name: "cp210x", vidpid: "10C4:EA60", wantChip: "CP210x", wantOK: true},
		{name: "ft232r", vidpid: "0403:6001", wantChip: "FT232R", wantOK: true},
		{name: "ft231x", vidpid: "0403:6015", wantChip: "FT231X", wantOK: true},
		{name: "lowercase input", vidpid: "1a86:7523", wantChip: "CH340", wantOK: true},
		{name: "surrounding whitespace", vidpid: "  10C4:EA60 ", wantChip: "CP210x", wantOK: true},
		{name: "unknown identity", vidpid: "FFFF:0001", wantChip: "", wantOK: false},
		{name: "empty", vidpid: "", wantChip: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			chip, ok := AdapterChip(tt.vidpid)
			if chip != tt.wantChip || ok != tt.wantOK {
				t.Errorf("AdapterChip(%q) = (%q, %v), want (%q, %v)",
					tt.vidpid, chip, ok, tt.wantChip, tt.wantOK)
			}
		})
	}
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	blocklist := []string{"1234:5678", "abcd:ef01"}

	tests := []struct {
		name     string
		vidpid   string
		expected bool
	}{
		{name: "exact match", vidpid: "1234:5678", expected: true},
		{name: "case insensitive", vidpid: "ABCD:EF01", expected: true},
		{name: "whitespace tolerated", vidpid: " 1234:5678 ", expected: true},
		{name: "not in list", vidpid: "1A86:7523", expected: false},
		{name: "empty identity", vidpid: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsBlocked(tt.vidpid, blocklist); got != tt.expected {
				t.Errorf("IsBlocked(%q) = %v, want %v", tt.vidpid, got, tt.expected)
			}
		})
	}

	t.Run("empty blocklist", func(t *testing.T) {
		t.Parallel()
		if IsBlocked("1234:5678", nil) {
			t.Error("nothing should be blocked with a nil blocklist")
		}
	})
}

func TestParseVIDPID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		descriptor string
		expected   string
	}{
		{name: "colon form", descriptor: "VID:1A86 PID:7523", expected: "1A86:7523"},
		{name: "udev form", descriptor: "vendor=0403 product=6001", expected: "0403:6001"},
		{name: "equals form", descriptor: "VID=10C4 PID=EA60", expected: "10C4:EA60"},
		{name: "bare identity", descriptor: "1a86:7523", expected: "1A86:7523"},
		{name: "vid without pid", descriptor: "VID:1A86", expected: ""},
		{name: "bare with non-hex", descriptor: "zz11:7523", expected: ""},
		{name: "unrelated text", descriptor: "USB Serial Port", expected: ""},
		{name: "empty", descriptor: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseVIDPID(tt.descriptor); got != tt.expected {
				t.Errorf("ParseVIDPID(%q) = %q, want %q", tt.descriptor, got, tt.expected)
			}
		})
	}
}

func TestIsCandidatePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path     string
		expected bool
	}{
		{path: "/dev/ttyUSB0", expected: true},
		{path: "/dev/ttyACM2", expected: true},
		{path: "/dev/cu.usbserial-0001", expected: true},
		{path: "/dev/cu.usbmodem14201", expected: true},
		{path: "/dev/tty.usbserial-A50285BI", expected: true},
		{path: "/dev/tty.usbmodem14201", expected: true},
		{path: "COM7", expected: true},
		{path: "/dev/ttyS0", expected: false},
		{path: "/dev/cu.Bluetooth-Incoming-Port", expected: false},
		{path: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := isCandidatePath(tt.path); got != tt.expected {
				t.Errorf("isCandidatePath(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestScorePort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		port     uart.Port
		expected int
	}{
		{
			name:     "known adapter identity",
			port:     uart.Port{Path: "/dev/ttyS3", VIDPID: "1A86:7523"},
			expected: 3,
		},
		{
			name:     "identity beats path",
			port:     uart.Port{Path: "/dev/ttyUSB0", VIDPID: "10C4:EA60"},
			expected: 3,
		},
		{
			name:     "usb serial path",
			port:     uart.Port{Path: "/dev/ttyUSB0", VIDPID: "DEAD:BEEF"},
			expected: 2,
		},
		{
			name:     "unknown usb device",
			port:     uart.Port{Path: "/dev/ttyS1", VIDPID: "DEAD:BEEF"},
			expected: 1,
		},
		{
			name:     "nothing usb about it",
			port:     uart.Port{Path: "/dev/ttyS0"},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := scorePort(tt.port); got != tt.expected {
				t.Errorf("scorePort(%+v) = %d, want %d", tt.port, got, tt.expected)
			}
		})
	}
}

func TestFilterCandidates(t *testing.T) {
	t.Parallel()

	ports := []uart.Port{
		{Path: "/dev/ttyUSB0", VIDPID: "1a86:7523", Product: "USB Serial"},
		{Path: "/dev/ttyUSB1", VIDPID: "DEAD:BEEF"},
		{Path: "/dev/ttyUSB2", VIDPID: "1111:2222"},
		{Path: "/dev/ttyUSB3", VIDPID: "0403:6001"},
		{Path: "/dev/ttyS0", Name: "onboard"},
	}

	t.Run("drops blocked and ignored ports", func(t *testing.T) {
		t.Parallel()

		options := &Options{IgnorePaths: []string{"/dev/ttyUSB3"}}
		devices, scores := filterCandidates(ports, []string{"1111:2222"}, options)

		if len(devices) != 2 {
			t.Fatalf("got %d devices, want 2: %+v", len(devices), devices)
		}
		if devices[0].Path != "/dev/ttyUSB0" || devices[1].Path != "/dev/ttyUSB1" {
			t.Errorf("unexpected candidate paths: %q, %q", devices[0].Path, devices[1].Path)
		}
		if scores["/dev/ttyUSB0"] != 3 || scores["/dev/ttyUSB1"] != 2 {
			t.Errorf("unexpected scores: %v", scores)
		}
	})

	t.Run("uppercases identity and fills chip", func(t *testing.T) {
		t.Parallel()

		devices, _ := filterCandidates(ports, nil, &Options{})

		if devices[0].VIDPID != "1A86:7523" {
			t.Errorf("VIDPID = %q, want normalized 1A86:7523", devices[0].VIDPID)
		}
		if devices[0].Chip != "CH340" {
			t.Errorf("Chip = %q, want CH340", devices[0].Chip)
		}
		if devices[1].Chip != "" {
			t.Errorf("unknown identity should leave Chip empty, got %q", devices[1].Chip)
		}
	})

	t.Run("drops unlikely ports by default", func(t *testing.T) {
		t.Parallel()

		devices, _ := filterCandidates(ports, nil, &Options{})
		for _, d := range devices {
			if d.Path == "/dev/ttyS0" {
				t.Error("score-zero port should have been dropped")
			}
		}
	})

	t.Run("keeps unlikely ports when asked", func(t *testing.T) {
		t.Parallel()

		devices, scores := filterCandidates(ports, nil, &Options{IncludeUnlikely: true})

		found := false
		for _, d := range devices {
			if d.Path == "/dev/ttyS0" {
				found = true
			}
		}
		if !found {
			t.Fatal("IncludeUnlikely should keep the onboard port")
		}
		if scores["/dev/ttyS0"] != 0 {
			t.Errorf("onboard port score = %d, want 0", scores["/dev/ttyS0"])
		}
	})
}
