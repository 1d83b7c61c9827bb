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
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err, "bad hex fixture %q", s)
	return b
}

// The expected byte strings below are verbatim from serial captures of
// vendor tooling driving real hardware.
func TestEncode_GoldenFrames(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		want  string
		frame Frame
	}{
		{
			name:  "activate_node_0x0c",
			frame: NewActivateFrame(0x0C),
			want:  "41540007e80c01000d0a",
		},
		{
			name:  "deactivate_node_0x0c",
			frame: NewDeactivateFrame(0x0C),
			want:  "41540007e80c00000d0a",
		},
		{
			name:  "clear_fault_node_0x3c",
			frame: NewClearFaultFrame(0x3C),
			want:  "41540007e83c03000d0a",
		},
		{
			name:  "load_params_node_0x0c",
			frame: NewLoadParamsFrame(0x0C),
			want:  "41542007e80c0800c40000000000000d0a",
		},
		{
			name:  "jog_node_0x0c_forward_0.3",
			frame: NewJogFrame(0x0C, 0.3, true),
			want:  "41549007e80c08057000000701" + "83d9" + "0d0a",
		},
		{
			name:  "stop_node_0x0c",
			frame: NewStopFrame(0x0C),
			want:  "41549007e80c080570000007007fff0d0a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.frame.Encode()
			require.NoError(t, err)
			assert.Equal(t, mustHex(t, tt.want), got)
		})
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		frame Frame
	}{
		{
			name:  "power_frame",
			frame: NewActivateFrame(0x01),
		},
		{
			name:  "load_params_frame",
			frame: NewLoadParamsFrame(0xFF),
		},
		{
			name:  "jog_frame_reverse",
			frame: NewJogFrame(0x20, -0.75, true),
		},
		{
			name: "empty_payload",
			frame: Frame{
				Type:        CommandPower,
				BaseAddress: DefaultBaseAddress,
				NodeAddress: 0x05,
			},
		},
		{
			name: "unknown_command_type",
			frame: Frame{
				Type:        CommandType(0x77),
				BaseAddress: 0x1234,
				NodeAddress: 0xAB,
				Payload:     []byte{0xDE, 0xAD, 0xBE, 0xEF},
			},
		},
		{
			name: "max_payload",
			frame: Frame{
				Type:        CommandStatus,
				BaseAddress: DefaultBaseAddress,
				NodeAddress: 0x00,
				Payload:     bytes.Repeat([]byte{0x42}, MaxPayloadSize),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			encoded, err := tt.frame.Encode()
			require.NoError(t, err)

			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.frame, *decoded)
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		wantErr error
		name    string
		payload []byte
	}{
		{
			name:    "oversize_payload",
			payload: bytes.Repeat([]byte{0x00}, MaxPayloadSize+1),
			wantErr: ErrDataTooLarge,
		},
		{
			name:    "terminator_pair_in_payload",
			payload: []byte{0x01, 0x0D, 0x0A, 0x02},
			wantErr: ErrUnencodablePayload,
		},
		{
			name:    "lone_cr_is_fine",
			payload: []byte{0x01, 0x0D, 0x02},
			wantErr: nil,
		},
		{
			name:    "lone_lf_is_fine",
			payload: []byte{0x01, 0x0A, 0x02},
			wantErr: nil,
		},
		{
			name:    "lf_then_cr_is_fine",
			payload: []byte{0x0A, 0x0D},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := Frame{
				Type:        CommandPower,
				BaseAddress: DefaultBaseAddress,
				NodeAddress: 0x01,
				Payload:     tt.payload,
			}
			encoded, err := f.Encode()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, encoded)
				return
			}
			require.NoError(t, err)

			// A lone CR or LF must survive the round trip intact.
			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, decoded.Payload)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		wantErr error
		name    string
		data    string
	}{
		{
			name:    "bad_prefix",
			data:    "58580007e80c01000d0a",
			wantErr: ErrBadPrefix,
		},
		{
			name:    "handshake_frame_too_short",
			data:    "41542b41540d0a",
			wantErr: ErrTruncatedFrame,
		},
		{
			name:    "empty_input",
			data:    "",
			wantErr: ErrTruncatedFrame,
		},
		{
			name:    "single_byte",
			data:    "41",
			wantErr: ErrTruncatedFrame,
		},
		{
			name:    "missing_terminator",
			data:    "41540007e80c0100",
			wantErr: ErrTruncatedFrame,
		},
		{
			name:    "terminator_reversed",
			data:    "41540007e80c01000a0d",
			wantErr: ErrTruncatedFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			decoded, err := Decode(mustHex(t, tt.data))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, decoded)
		})
	}
}

func TestDecode_MinimalFrame(t *testing.T) {
	t.Parallel()

	decoded, err := Decode(mustHex(t, "41540007e80c0d0a"))
	require.NoError(t, err)
	assert.Equal(t, CommandPower, decoded.Type)
	assert.Equal(t, DefaultBaseAddress, decoded.BaseAddress)
	assert.Equal(t, byte(0x0C), decoded.NodeAddress)
	assert.Nil(t, decoded.Payload)
}

func TestDecode_UnknownCommandType(t *testing.T) {
	t.Parallel()

	decoded, err := Decode(mustHex(t, "41547707e80c01020d0a"))
	require.NoError(t, err)
	assert.Equal(t, CommandType(0x77), decoded.Type)
	assert.False(t, decoded.Type.Known())
	assert.Contains(t, decoded.Type.String(), "unknown")
	assert.Contains(t, decoded.Type.String(), "77")
}

func TestCommandType_Known(t *testing.T) {
	t.Parallel()
	assert.True(t, CommandPower.Known())
	assert.True(t, CommandStatus.Known())
	assert.True(t, CommandLoadParams.Known())
	assert.True(t, CommandJog.Known())
	assert.False(t, CommandHandshake.Known())
	assert.False(t, CommandType(0x55).Known())
}

func TestEncodeJogSpeed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		speed float64
		want  uint16
	}{
		{name: "zero_is_neutral", speed: 0.0, want: 0x7FFF},
		{name: "forward_0.3", speed: 0.3, want: 0x83D9},
		{name: "forward_1.0", speed: 1.0, want: 0x8CD3},
		{name: "reverse_0.3", speed: -0.3, want: 0x7C26},
		{name: "reverse_1.0", speed: -1.0, want: 0x732C},
		{name: "clamp_high", speed: 100.0, want: 0xFFFF},
		{name: "clamp_low", speed: -100.0, want: 0x0000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EncodeJogSpeed(tt.speed))
		})
	}
}

// A negative speed must never land in the forward half of the wire range.
// The original encoding bug cast a negative intermediate to uint16, turning
// slow reverse into full-speed forward.
func TestEncodeJogSpeed_NoSignWraparound(t *testing.T) {
	t.Parallel()
	for speed := -1.0; speed < 0; speed += 0.001 {
		wire := EncodeJogSpeed(speed)
		require.Less(t, wire, uint16(0x8000),
			"speed %f encoded to %#04x in the forward range", speed, wire)
	}
}

func TestDecodeJogSpeed_Inverse(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, DecodeJogSpeed(JogNeutral), 1e-9)

	// One wire unit is 1/3283 of normalized speed; round-tripping can be
	// off by at most half a unit.
	const tolerance = 0.5 / JogSpeedScale
	for speed := -1.0; speed <= 1.0; speed += 0.01 {
		got := DecodeJogSpeed(EncodeJogSpeed(speed))
		if speed == 0 {
			assert.Zero(t, got)
			continue
		}
		assert.InDelta(t, speed, got, tolerance, "speed %f", speed)
	}
}

func TestFrame_PowerAction(t *testing.T) {
	t.Parallel()

	action, ok := NewActivateFrame(0x0C).PowerAction()
	require.True(t, ok)
	assert.Equal(t, PowerActivate, action)

	action, ok = NewClearFaultFrame(0x0C).PowerAction()
	require.True(t, ok)
	assert.Equal(t, PowerClearFault, action)

	_, ok = NewJogFrame(0x0C, 0.1, true).PowerAction()
	assert.False(t, ok)

	_, ok = (Frame{Type: CommandPower}).PowerAction()
	assert.False(t, ok, "power frame with empty payload has no action")
}

func TestFrame_JogSpeed(t *testing.T) {
	t.Parallel()

	speed, ok := NewJogFrame(0x0C, 0.3, true).JogSpeed()
	require.True(t, ok)
	assert.InDelta(t, 0.3, speed, 0.5/JogSpeedScale)

	speed, ok = NewStopFrame(0x0C).JogSpeed()
	require.True(t, ok)
	assert.Zero(t, speed)

	_, ok = NewActivateFrame(0x0C).JogSpeed()
	assert.False(t, ok)
}

func TestIsChatter(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data string
		want bool
	}{
		{name: "ok_frame", data: "4f4b0d0a", want: true},
		{name: "j_frame", data: "014a0d0a", want: true},
		{name: "m_frame", data: "014d0d0a", want: true},
		{name: "node_response", data: "41542007e80c0800c40000000000000d0a", want: false},
		{name: "empty", data: "", want: false},
		{name: "ok_with_extra_byte", data: "4f4b000d0a", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsChatter(mustHex(t, tt.data)))
		})
	}
}

func TestHandshakeFrames(t *testing.T) {
	t.Parallel()

	probe := HandshakeProbe()
	assert.Equal(t, mustHex(t, "41542b41540d0a"), probe)
	deviceRead := HandshakeDeviceRead()
	assert.Equal(t, mustHex(t, "41542b41000d0a"), deviceRead)

	// Both are shorter than any decodable frame, so a handshake echo can
	// never be mistaken for a node response.
	assert.Less(t, len(probe), MinFrameSize)
	assert.Less(t, len(deviceRead), MinFrameSize)

	// Returned slices are copies; mutating one must not poison the next.
	probe[0] = 0xFF
	assert.Equal(t, mustHex(t, "41542b41540d0a"), HandshakeProbe())
}
