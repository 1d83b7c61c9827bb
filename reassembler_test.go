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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/L91Project/go-l91/internal/testing"
)

func TestReassembler_SingleFrame(t *testing.T) {
	t.Parallel()

	r := NewReassembler(0)
	want := testutil.BuildNodeAckResponse(0x0C)
	require.NoError(t, r.Feed(want))

	spans := r.Poll()
	require.Len(t, spans, 1)
	assert.Equal(t, want, spans[0])
	assert.Zero(t, r.Pending())
}

func TestReassembler_MultipleFramesOneFeed(t *testing.T) {
	t.Parallel()

	frames := [][]byte{
		testutil.ChatterOK(),
		testutil.BuildNodeAckResponse(0x0C),
		testutil.BuildStatusResponse(0x3C),
	}
	r := NewReassembler(0)
	require.NoError(t, r.Feed(bytes.Join(frames, nil)))

	assert.Equal(t, frames, r.Poll())
	assert.Zero(t, r.Pending())
}

// The stream boundary position must not matter: any chunking of the same
// byte stream yields the same span sequence.
func TestReassembler_ArbitraryChunking(t *testing.T) {
	t.Parallel()

	frames := [][]byte{
		testutil.BuildActivateFrame(0x0C),
		testutil.ChatterOK(),
		testutil.BuildNodeAckResponse(0x0C),
		testutil.ChatterJ(),
		testutil.BuildJogFrame(0x14, 0x83D9, true),
		testutil.BuildStatusResponse(0x3C),
	}
	stream := bytes.Join(frames, nil)

	for chunk := 1; chunk <= len(stream); chunk++ {
		t.Run(fmt.Sprintf("chunk_%d", chunk), func(t *testing.T) {
			t.Parallel()
			r := NewReassembler(0)
			var got [][]byte
			for off := 0; off < len(stream); off += chunk {
				end := off + chunk
				if end > len(stream) {
					end = len(stream)
				}
				require.NoError(t, r.Feed(stream[off:end]))
				got = append(got, r.Poll()...)
			}
			require.Equal(t, frames, got)
			assert.Zero(t, r.Pending())
		})
	}
}

func TestReassembler_PartialFrameStaysPending(t *testing.T) {
	t.Parallel()

	full := testutil.BuildNodeAckResponse(0x0C)
	r := NewReassembler(0)

	require.NoError(t, r.Feed(full[:5]))
	assert.Empty(t, r.Poll())
	assert.Equal(t, 5, r.Pending())

	require.NoError(t, r.Feed(full[5:]))
	spans := r.Poll()
	require.Len(t, spans, 1)
	assert.Equal(t, full, spans[0])
	assert.Zero(t, r.Pending())
}

// Payload bytes may equal CR or LF on their own; only the CR LF pair ends a
// span. A terminator split across two feeds must still be found.
func TestReassembler_TerminatorPairSemantics(t *testing.T) {
	t.Parallel()

	t.Run("lone_cr_does_not_split", func(t *testing.T) {
		t.Parallel()
		span := []byte{0x41, 0x54, 0x00, 0x07, 0xE8, 0x0C, 0x0D, 0x42, 0x0D, 0x0A}
		r := NewReassembler(0)
		require.NoError(t, r.Feed(span))
		spans := r.Poll()
		require.Len(t, spans, 1)
		assert.Equal(t, span, spans[0])
	})

	t.Run("lone_lf_does_not_split", func(t *testing.T) {
		t.Parallel()
		span := []byte{0x41, 0x54, 0x00, 0x07, 0xE8, 0x0C, 0x0A, 0x42, 0x0D, 0x0A}
		r := NewReassembler(0)
		require.NoError(t, r.Feed(span))
		spans := r.Poll()
		require.Len(t, spans, 1)
		assert.Equal(t, span, spans[0])
	})

	t.Run("cr_before_terminator", func(t *testing.T) {
		t.Parallel()
		span := []byte{0x41, 0x54, 0x00, 0x07, 0xE8, 0x0C, 0x42, 0x0D, 0x0D, 0x0A}
		r := NewReassembler(0)
		require.NoError(t, r.Feed(span))
		spans := r.Poll()
		require.Len(t, spans, 1)
		assert.Equal(t, span, spans[0])
	})

	t.Run("pair_split_across_feeds", func(t *testing.T) {
		t.Parallel()
		span := testutil.BuildActivateFrame(0x0C)
		r := NewReassembler(0)
		require.NoError(t, r.Feed(span[:len(span)-1]))
		assert.Empty(t, r.Poll())
		require.NoError(t, r.Feed(span[len(span)-1:]))
		spans := r.Poll()
		require.Len(t, spans, 1)
		assert.Equal(t, span, spans[0])
	})
}

func TestReassembler_Overflow(t *testing.T) {
	t.Parallel()

	r := NewReassembler(16)
	junk := bytes.Repeat([]byte{0x55}, 20)
	err := r.Feed(junk)
	require.ErrorIs(t, err, ErrBufferOverflow)

	// Overflowed data is kept so the caller can decide how to recover.
	assert.Equal(t, 20, r.Pending())

	// A terminator arriving later relieves the buffer through Poll.
	require.Error(t, r.Feed([]byte{0x0D, 0x0A}))
	spans := r.Poll()
	require.Len(t, spans, 1)
	assert.Equal(t, append(junk, 0x0D, 0x0A), spans[0])
	assert.Zero(t, r.Pending())

	// Once drained, feeding is clean again.
	require.NoError(t, r.Feed(testutil.ChatterOK()))
	assert.Len(t, r.Poll(), 1)
}

func TestReassembler_Reset(t *testing.T) {
	t.Parallel()

	r := NewReassembler(0)
	require.NoError(t, r.Feed([]byte{0x41, 0x54, 0x10}))
	assert.Equal(t, 3, r.Pending())

	r.Reset()
	assert.Zero(t, r.Pending())

	// A frame completing after Reset must not inherit discarded bytes.
	want := testutil.BuildStatusResponse(0x01)
	require.NoError(t, r.Feed(want))
	spans := r.Poll()
	require.Len(t, spans, 1)
	assert.Equal(t, want, spans[0])
}

func TestReassembler_DefaultLimit(t *testing.T) {
	t.Parallel()

	r := NewReassembler(0)
	require.NoError(t, r.Feed(bytes.Repeat([]byte{0x55}, DefaultMaxBuffer)))
	require.ErrorIs(t, r.Feed([]byte{0x55}), ErrBufferOverflow)
}

func TestReassembler_SpansAreCopies(t *testing.T) {
	t.Parallel()

	first := testutil.BuildActivateFrame(0x0C)
	second := testutil.BuildNodeAckResponse(0x0C)

	r := NewReassembler(0)
	require.NoError(t, r.Feed(first))
	require.NoError(t, r.Feed(second[:4]))

	spans := r.Poll()
	require.Len(t, spans, 1)
	for i := range spans[0] {
		spans[0][i] = 0xFF
	}

	require.NoError(t, r.Feed(second[4:]))
	spans = r.Poll()
	require.Len(t, spans, 1)
	assert.Equal(t, second, spans[0])
}
