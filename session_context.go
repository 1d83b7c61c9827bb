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

// InitContext runs the bring-up handshake with ctx bounding the whole
// sequence, retries included. Handshake write failures are retried per
// the session's RetryConfig; adapters enumerate a moment before their
// serial side is actually ready, and one retry usually covers it.
func (s *Session) InitContext(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("init cancelled: %w", err)
	}

	err := RetryWithConfig(ctx, s.config.RetryConfig, func() error {
		return s.handshakeLocked()
	})
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	return nil
}

// handshakeLocked writes the two bring-up frames. Each is followed by a
// bounded read-and-discard: what comes back varies by adapter firmware
// (some answer "OK", some echo, some stay silent) and none of it matters,
// only that the bridge has seen the sequence. Callers hold s.mu.
func (s *Session) handshakeLocked() error {
	for _, probe := range [][]byte{HandshakeProbe(), HandshakeDeviceRead()} {
		if _, err := s.transport.Write(probe); err != nil {
			return NewTransportError("handshake", s.port(), fmt.Errorf("write: %w", err), ErrorTypeTransient)
		}
		s.drain(s.config.HandshakeTimeout)
	}
	debugln("handshake complete")
	return nil
}

// TransactContext is Transact with the context deadline folded into the
// response deadline. Cancellation is checked on entry only; once the
// request is on the wire the exchange runs to response or timeout,
// because stopping mid-read would leave the response to poison the next
// transaction.
func (s *Session) TransactContext(ctx context.Context, req Frame) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("transact cancelled: %w", err)
	}

	timeout := s.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, NewTransportError("transact", s.port(), ErrTransactionTimeout, ErrorTypeTimeout)
	}
	return s.transactLocked(req, timeout)
}
