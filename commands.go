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

package l91

import (
	"fmt"

	"github.com/L91Project/go-l91/internal/frame"
)

// CommandType selects the semantics of a frame. The enumeration is open:
// the protocol is only partially documented, so any byte value is a valid
// CommandType and unknown values decode without error.
type CommandType byte

// Known command types
const (
	// CommandPower carries node power control: activate, deactivate and
	// clear fault, selected by the first payload byte
	CommandPower CommandType = 0x00
	// CommandStatus marks unsolicited status reports from nodes. Observed
	// inbound only; the addressing fields in these frames are opaque.
	CommandStatus CommandType = 0x10
	// CommandLoadParams loads the default parameter block. It doubles as
	// the liveness query: a node that acknowledges it is alive and
	// addressable.
	CommandLoadParams CommandType = 0x20
	// CommandJog commands velocity-mode motion
	CommandJog CommandType = 0x90
	// CommandHandshake marks the two bring-up frames. They do not follow
	// the framed header layout and are written raw, never decoded.
	CommandHandshake CommandType = 0x2B
)

// Known returns true if the command type is one of the documented values
func (c CommandType) Known() bool {
	switch c {
	case CommandPower, CommandStatus, CommandLoadParams, CommandJog:
		return true
	default:
		return false
	}
}

// String returns a human-readable command name
func (c CommandType) String() string {
	switch c {
	case CommandPower:
		return "power control"
	case CommandStatus:
		return "status report"
	case CommandLoadParams:
		return "load parameters"
	case CommandJog:
		return "jog move"
	default:
		return fmt.Sprintf("unknown (0x%02X)", byte(c))
	}
}

// Power control actions, carried in the first payload byte of CommandPower
const (
	PowerDeactivate byte = 0x00
	PowerActivate   byte = 0x01
	PowerClearFault byte = 0x03
)

// Jog movement flags, carried in the seventh payload byte of CommandJog
const (
	JogFlagStop byte = 0x00
	JogFlagMove byte = 0x01
)

// loadParamsPayload is the fixed parameter block every node accepts
var loadParamsPayload = []byte{0x08, 0x00, 0xC4, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// jogPayloadHeader precedes the flag and speed bytes in a jog payload
var jogPayloadHeader = []byte{0x08, 0x05, 0x70, 0x00, 0x00, 0x07}

// NewActivateFrame builds the frame that powers a node on
func NewActivateFrame(node byte) Frame {
	return powerFrame(node, PowerActivate)
}

// NewDeactivateFrame builds the frame that powers a node off
func NewDeactivateFrame(node byte) Frame {
	return powerFrame(node, PowerDeactivate)
}

// NewClearFaultFrame builds the frame that clears a node's latched fault
func NewClearFaultFrame(node byte) Frame {
	return powerFrame(node, PowerClearFault)
}

func powerFrame(node, action byte) Frame {
	return Frame{
		Type:        CommandPower,
		BaseAddress: DefaultBaseAddress,
		NodeAddress: node,
		Payload:     []byte{action, 0x00},
	}
}

// NewLoadParamsFrame builds the parameter-load frame, which also serves as
// the standard liveness probe during scanning
func NewLoadParamsFrame(node byte) Frame {
	payload := make([]byte, len(loadParamsPayload))
	copy(payload, loadParamsPayload)
	return Frame{
		Type:        CommandLoadParams,
		BaseAddress: DefaultBaseAddress,
		NodeAddress: node,
		Payload:     payload,
	}
}

// NewJogFrame builds a velocity command. With move false the node holds
// position regardless of speed; NewStopFrame is the conventional stop.
func NewJogFrame(node byte, speed float64, move bool) Frame {
	flag := JogFlagStop
	if move {
		flag = JogFlagMove
	}
	wire := EncodeJogSpeed(speed)

	payload := make([]byte, 0, len(jogPayloadHeader)+3)
	payload = append(payload, jogPayloadHeader...)
	payload = append(payload, flag, byte(wire>>8), byte(wire&0xFF))
	return Frame{
		Type:        CommandJog,
		BaseAddress: DefaultBaseAddress,
		NodeAddress: node,
		Payload:     payload,
	}
}

// NewStopFrame builds the jog command that halts a node
func NewStopFrame(node byte) Frame {
	return NewJogFrame(node, 0, false)
}

// PowerAction returns the control byte of a power frame. The second return
// is false for other command types or malformed payloads.
func (f Frame) PowerAction() (byte, bool) {
	if f.Type != CommandPower || len(f.Payload) < 1 {
		return 0, false
	}
	return f.Payload[0], true
}

// JogSpeed returns the decoded speed of a jog frame. The second return is
// false for other command types or malformed payloads.
func (f Frame) JogSpeed() (float64, bool) {
	if f.Type != CommandJog || len(f.Payload) < len(jogPayloadHeader)+3 {
		return 0, false
	}
	hi := f.Payload[len(jogPayloadHeader)+1]
	lo := f.Payload[len(jogPayloadHeader)+2]
	return DecodeJogSpeed(uint16(hi)<<8 | uint16(lo)), true
}

// HandshakeProbe returns the first bring-up frame ("AT+AT"). It doubles as
// the adapter-detect probe: any reply identifies an L91 bridge. Handshake
// frames do not follow the regular header layout and are never decoded.
func HandshakeProbe() []byte {
	probe := make([]byte, len(frame.HandshakeProbe))
	copy(probe, frame.HandshakeProbe)
	return probe
}

// HandshakeDeviceRead returns the second bring-up frame
func HandshakeDeviceRead() []byte {
	probe := make([]byte, len(frame.HandshakeDeviceRead))
	copy(probe, frame.HandshakeDeviceRead)
	return probe
}
