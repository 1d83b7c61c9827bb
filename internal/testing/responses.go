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

// Package testing holds canned wire fixtures and a virtual bus for tests.
// Frames are spelled out byte by byte on purpose: the fixtures come from
// serial captures of real hardware and must stay independent of the codec
// they are used to test.
package testing

// BuildActivateFrame creates an activate command for a node
func BuildActivateFrame(node byte) []byte {
	return []byte{0x41, 0x54, 0x00, 0x07, 0xE8, node, 0x01, 0x00, 0x0D, 0x0A}
}

// BuildDeactivateFrame creates a deactivate command for a node
func BuildDeactivateFrame(node byte) []byte {
	return []byte{0x41, 0x54, 0x00, 0x07, 0xE8, node, 0x00, 0x00, 0x0D, 0x0A}
}

// BuildClearFaultFrame creates a clear-fault command for a node
func BuildClearFaultFrame(node byte) []byte {
	return []byte{0x41, 0x54, 0x00, 0x07, 0xE8, node, 0x03, 0x00, 0x0D, 0x0A}
}

// BuildLoadParamsFrame creates the load-parameters command for a node.
// The same 17-byte shape is what nodes echo back, making it double as the
// canonical "node is alive" response in captures.
func BuildLoadParamsFrame(node byte) []byte {
	return []byte{
		0x41, 0x54, 0x20, 0x07, 0xE8, node,
		0x08, 0x00, 0xC4, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x0D, 0x0A,
	}
}

// BuildNodeAckResponse creates the 17-byte response a live node returns
func BuildNodeAckResponse(node byte) []byte {
	return BuildLoadParamsFrame(node)
}

// BuildJogFrame creates a jog command with a raw wire speed value
func BuildJogFrame(node byte, wire uint16, move bool) []byte {
	flag := byte(0x00)
	if move {
		flag = 0x01
	}
	return []byte{
		0x41, 0x54, 0x90, 0x07, 0xE8, node,
		0x08, 0x05, 0x70, 0x00, 0x00, 0x07, flag,
		byte(wire >> 8), byte(wire),
		0x0D, 0x0A,
	}
}

// BuildStatusResponse creates an unsolicited status report frame. Captures
// show these with an opaque leading payload byte 0xec; tooling treats the
// 0x10 type prefix as the fault/status family marker.
func BuildStatusResponse(node byte) []byte {
	return []byte{0x41, 0x54, 0x10, 0x07, 0xE8, node, 0xEC, 0x01, 0x0D, 0x0A}
}

// StatusPrefix is the leading byte run shared by all status-family
// responses, suitable for a prefix fault classifier.
func StatusPrefix() []byte {
	return []byte{0x41, 0x54, 0x10}
}

// ChatterOK is the adapter's "OK" status frame
func ChatterOK() []byte {
	return []byte{0x4F, 0x4B, 0x0D, 0x0A}
}

// ChatterJ is an adapter status frame of unknown meaning
func ChatterJ() []byte {
	return []byte{0x01, 0x4A, 0x0D, 0x0A}
}

// ChatterM is an adapter status frame of unknown meaning
func ChatterM() []byte {
	return []byte{0x01, 0x4D, 0x0D, 0x0A}
}

// BuildHandshakeProbe creates the first bring-up frame ("AT+AT")
func BuildHandshakeProbe() []byte {
	return []byte{0x41, 0x54, 0x2B, 0x41, 0x54, 0x0D, 0x0A}
}

// BuildHandshakeDeviceRead creates the second bring-up frame
func BuildHandshakeDeviceRead() []byte {
	return []byte{0x41, 0x54, 0x2B, 0x41, 0x00, 0x0D, 0x0A}
}
