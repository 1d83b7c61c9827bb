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

// DefaultMaxBuffer bounds how many bytes the reassembler will hold without
// seeing a terminator. An adapter streaming terminator-free garbage would
// otherwise grow the buffer forever.
const DefaultMaxBuffer = 4096

// Reassembler converts an arbitrarily chunked byte stream into complete
// frame spans. Serial reads deliver fragments of any size; the reassembler
// carries partial data between reads and emits spans in arrival order.
//
// A span runs from the current buffer front through the first CR LF pair,
// inclusive. The reassembler does not validate structure; spans go to
// Decode, which is where prefix and length checks live.
//
// Reassembler is not safe for concurrent use; each Session owns one.
type Reassembler struct {
	buf []byte
	max int
}

// NewReassembler creates a reassembler. maxBuffer <= 0 selects
// DefaultMaxBuffer.
func NewReassembler(maxBuffer int) *Reassembler {
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBuffer
	}
	return &Reassembler{max: maxBuffer}
}

// Feed appends stream data to the internal buffer. When the buffer exceeds
// its limit the data is kept but an ErrBufferOverflow is returned; the
// caller chooses between Poll (to relieve complete spans) and Reset.
func (r *Reassembler) Feed(p []byte) error {
	r.buf = append(r.buf, p...)
	if len(r.buf) > r.max {
		return fmt.Errorf("%w: %d bytes buffered (max %d)", ErrBufferOverflow, len(r.buf), r.max)
	}
	return nil
}

// Poll extracts all complete spans from the buffer, in the order their
// terminators appeared in the stream. Trailing partial data stays buffered
// for the next Feed. Returned spans are copies and remain valid after
// further Feed calls.
func (r *Reassembler) Poll() [][]byte {
	var spans [][]byte
	for {
		end := frame.FindTerminator(r.buf)
		if end < 0 {
			break
		}
		n := end + frame.TerminatorLength
		span := make([]byte, n)
		copy(span, r.buf[:n])
		spans = append(spans, span)
		r.buf = append(r.buf[:0], r.buf[n:]...)
	}
	return spans
}

// Pending returns the number of buffered bytes not yet part of a complete
// span.
func (r *Reassembler) Pending() int {
	return len(r.buf)
}

// Reset discards all buffered data.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
}
