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

// Package frame provides wire-level constants and scanning helpers for the
// L91 AT command protocol
package frame

// Frame markers
const (
	Prefix1     = 0x41 // 'A'
	Prefix2     = 0x54 // 'T'
	Terminator1 = 0x0D // '\r'
	Terminator2 = 0x0A // '\n'
)

// Frame layout offsets and sizes. A full frame is
// prefix(2) + type(1) + base address(2, big-endian) + node address(1) +
// payload(n) + terminator(2).
const (
	PrefixLength     = 2
	HeaderLength     = 6 // prefix + type + base address + node address
	TerminatorLength = 2
	MinFrameLength   = HeaderLength + TerminatorLength
	MaxPayloadLength = 64
	MaxFrameLength   = HeaderLength + MaxPayloadLength + TerminatorLength

	TypeOffset    = 2
	BaseOffset    = 3
	NodeOffset    = 5
	PayloadOffset = 6
)

// DefaultBaseAddress is the 16-bit base address observed in all legitimate
// bus traffic.
const DefaultBaseAddress = 0x07E8

// Bring-up handshake frames. Neither follows the regular header layout and
// neither should ever be fed to the decoder.
var (
	HandshakeProbe      = []byte{0x41, 0x54, 0x2B, 0x41, 0x54, 0x0D, 0x0A} // "AT+AT\r\n"
	HandshakeDeviceRead = []byte{0x41, 0x54, 0x2B, 0x41, 0x00, 0x0D, 0x0A}
)

// Chatter frames emitted asynchronously by the adapter itself. These are
// status noise, not node responses.
var (
	ChatterOK = []byte{0x4F, 0x4B, 0x0D, 0x0A} // "OK\r\n"
	ChatterJ  = []byte{0x01, 0x4A, 0x0D, 0x0A}
	ChatterM  = []byte{0x01, 0x4D, 0x0D, 0x0A}
)
