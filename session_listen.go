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
	"context"
	"fmt"
	"time"
)

// listenPollInterval bounds each read while listening so cancellation is
// noticed promptly.
const listenPollInterval = 100 * time.Millisecond

// Flush reads and discards bus traffic for the given grace period and
// empties the reassembly buffer. It returns the number of complete frames
// thrown away.
//
// Use it after write-only sends: some nodes acknowledge a deactivate, some
// do not, and an unread acknowledgement would otherwise surface as the
// response to the next transaction.
func (s *Session) Flush(grace time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	discarded := s.drain(grace)
	s.stats.LateFramesDiscarded += uint64(discarded)
	return discarded
}

// Listen reads the bus passively until ctx ends, handing every decoded
// frame to fn in arrival order. Chatter is skipped and counted; spans that
// decode to nothing are skipped as well, since aborting a capture on a
// framing slip would defeat its purpose. The session is held exclusively
// for the whole duration, so no transactions can run while listening.
func (s *Session) Listen(ctx context.Context, fn func(*Frame)) error {
	if fn == nil {
		return fmt.Errorf("%w: nil frame callback", ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	buf := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.transport.SetReadTimeout(listenPollInterval); err != nil {
			return NewTransportError("listen", s.port(), fmt.Errorf("set read timeout: %w", err), ErrorTypePermanent)
		}
		n, err := s.transport.Read(buf)
		if err != nil {
			return NewTransportError("listen", s.port(), fmt.Errorf("read: %w", err), ErrorTypeTransient)
		}
		if n == 0 {
			continue
		}
		if err := s.reasm.Feed(buf[:n]); err != nil {
			// Terminator-free garbage filled the buffer; drop it and keep
			// listening from the next clean byte.
			s.reasm.Reset()
			debugf("listen: %v, buffer reset", err)
			continue
		}

		for _, span := range s.reasm.Poll() {
			if IsChatter(span) {
				s.stats.ChatterSkipped++
				continue
			}
			frame, err := Decode(span)
			if err != nil {
				debugf("listen: skipping undecodable span % 02x: %v", span, err)
				continue
			}
			fn(frame)
		}
	}
}
