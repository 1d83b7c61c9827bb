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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/L91Project/go-l91/internal/frame"
)

// Wire format limits, re-exported for callers building their own frames
const (
	// DefaultBaseAddress is the 16-bit base address carried by all observed
	// legitimate traffic. It is a frame field rather than a hard-coded
	// constant because alternate values exist in the wild.
	DefaultBaseAddress uint16 = frame.DefaultBaseAddress
	// MaxPayloadSize bounds the payload of a single frame. This guards
	// against caller error; it is well above anything the protocol uses.
	MaxPayloadSize = frame.MaxPayloadLength
	// MinFrameSize is the smallest decodable frame: header plus terminator
	MinFrameSize = frame.MinFrameLength
)

// Frame is a single protocol message, outbound or inbound. Frames are value
// types; they are built immediately before send and discarded after use.
type Frame struct {
	Payload     []byte
	BaseAddress uint16
	Type        CommandType
	NodeAddress byte
}

// Encode renders the frame in wire format:
// prefix(2) + type(1) + base address(2, big-endian) + node address(1) +
// payload(n) + CR LF.
//
// The protocol has no escaping, so a payload containing the CR LF pair can
// never be framed; Encode rejects it rather than emit bytes the receiver
// would split mid-frame. Legitimate command payloads never contain the pair.
func (f Frame) Encode() ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrDataTooLarge, len(f.Payload), MaxPayloadSize)
	}
	if i := frame.FindTerminator(f.Payload); i >= 0 {
		return nil, fmt.Errorf("%w: CR LF at payload offset %d", ErrUnencodablePayload, i)
	}

	buf := make([]byte, 0, frame.HeaderLength+len(f.Payload)+frame.TerminatorLength)
	buf = append(buf, frame.Prefix1, frame.Prefix2, byte(f.Type))
	buf = binary.BigEndian.AppendUint16(buf, f.BaseAddress)
	buf = append(buf, f.NodeAddress)
	buf = append(buf, f.Payload...)
	buf = append(buf, frame.Terminator1, frame.Terminator2)
	return buf, nil
}

// Decode parses a complete byte span into a Frame. The span must begin with
// the "AT" prefix and end with the CR LF terminator. Unknown command types
// decode successfully; the protocol is only partially documented and new
// types must not break reception.
func Decode(data []byte) (*Frame, error) {
	if len(data) >= frame.PrefixLength && !frame.HasPrefix(data) {
		return nil, fmt.Errorf("%w: % 02X", ErrBadPrefix, data[:frame.PrefixLength])
	}
	if len(data) < MinFrameSize {
		return nil, fmt.Errorf("%w: %d bytes (min %d)", ErrTruncatedFrame, len(data), MinFrameSize)
	}
	if data[len(data)-2] != frame.Terminator1 || data[len(data)-1] != frame.Terminator2 {
		return nil, fmt.Errorf("%w: missing terminator", ErrTruncatedFrame)
	}

	f := &Frame{
		Type:        CommandType(data[frame.TypeOffset]),
		BaseAddress: binary.BigEndian.Uint16(data[frame.BaseOffset:]),
		NodeAddress: data[frame.NodeOffset],
	}
	if n := len(data) - MinFrameSize; n > 0 {
		f.Payload = make([]byte, n)
		copy(f.Payload, data[frame.PayloadOffset:len(data)-frame.TerminatorLength])
	}
	return f, nil
}

// clone returns a deep copy. Used where a response frame outlives the
// transaction that produced it, such as registry storage.
func (f *Frame) clone() *Frame {
	if f == nil {
		return nil
	}
	out := *f
	if f.Payload != nil {
		out.Payload = append([]byte(nil), f.Payload...)
	}
	return &out
}

// Jog speed wire encoding. The scale is empirical; the neutral point 0x7FFF
// means "stop", with forward speeds above 0x8000 and reverse speeds below
// the neutral point.
const (
	// JogSpeedScale converts normalized speed (roughly -1..1) to wire units
	JogSpeedScale = 3283.0
	// JogNeutral is the wire value for zero speed
	JogNeutral uint16 = 0x7FFF
)

// EncodeJogSpeed maps a normalized signed speed to the 16-bit wire value.
//
// The arithmetic runs in int and clamps to [0, 0xFFFF] before narrowing.
// Casting a negative intermediate straight to uint16 would wrap into a
// large forward-speed value, turning a requested stop or reverse into
// full-speed motion.
func EncodeJogSpeed(speed float64) uint16 {
	var wire int
	switch {
	case speed == 0:
		wire = int(JogNeutral)
	case speed > 0:
		wire = 0x8000 + int(math.Round(speed*JogSpeedScale))
	default:
		wire = int(JogNeutral) + int(math.Round(speed*JogSpeedScale))
	}

	if wire < 0 {
		wire = 0
	}
	if wire > 0xFFFF {
		wire = 0xFFFF
	}
	return uint16(wire)
}

// DecodeJogSpeed is the inverse of EncodeJogSpeed, for rendering captured
// jog frames. Values at the clamp boundaries decode to the nearest
// representable speed.
func DecodeJogSpeed(wire uint16) float64 {
	switch {
	case wire == JogNeutral:
		return 0
	case wire >= 0x8000:
		return float64(wire-0x8000) / JogSpeedScale
	default:
		return (float64(wire) - float64(JogNeutral)) / JogSpeedScale
	}
}

// IsChatter reports whether span is one of the adapter's own status frames
// ("OK" and friends). Chatter is bridge noise, never a node response.
func IsChatter(span []byte) bool {
	return frame.IsChatter(span)
}
