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
	"io"
	"time"
)

// Transport is a byte-stream connection to the adapter. The bus is a
// stream, not a datagram channel: a single Read may return a fragment of a
// frame, several frames, or adapter chatter, and the Session's reassembler
// is responsible for finding frame boundaries.
//
// Read follows the serial-port convention of returning (0, nil) when the
// read timeout elapses with no data. Implementations must not turn a
// timeout into an error; the Session distinguishes "no data yet" from
// transport failure by the deadline it tracks itself.
type Transport interface {
	io.Reader
	io.Writer

	// Close closes the transport connection
	Close() error

	// SetReadTimeout sets how long a single Read blocks waiting for data
	SetReadTimeout(timeout time.Duration) error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportWebSocket represents a WebSocket bridge to a remote adapter.
	TransportWebSocket TransportType = "websocket"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)
