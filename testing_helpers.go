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
	"sync"
	"time"
)

// mockPollInterval is how often a blocked mock Read re-checks for data.
const mockPollInterval = 500 * time.Microsecond

// mockDelivery is a chunk of inbound bytes and the time it becomes
// readable.
type mockDelivery struct {
	at   time.Time
	data []byte
}

// MockTransport is a scriptable in-memory Transport for tests. It records
// every Write, optionally computes a response for each written frame, and
// serves queued bytes to Read with the same timing semantics as a serial
// port: Read blocks until data is available or the read timeout passes,
// and a timeout is (0, nil), not an error.
//
// Delivery can be delayed (late-response tests), chunked (fragmentation
// tests), or replaced with injected errors (failure tests).
type MockTransport struct {
	responseFunc  func(written []byte) []byte
	readErr       error
	writeErr      error
	writes        [][]byte
	deliveries    []mockDelivery
	responseDelay time.Duration
	readTimeout   time.Duration
	chunkSize     int
	mu            sync.Mutex
	closed        bool
}

// NewMockTransport creates a mock with no scripted responses; reads time
// out until the test queues data or installs a response function.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		readTimeout: 100 * time.Millisecond,
	}
}

// SetResponseFunc installs fn, called once per Write with a copy of the
// written bytes; a non-empty return value is queued for delivery after
// the configured response delay. A nil fn makes the bus silent.
func (m *MockTransport) SetResponseFunc(fn func(written []byte) []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseFunc = fn
}

// SetResponseDelay delays each scripted response by d after its Write.
func (m *MockTransport) SetResponseDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseDelay = d
}

// SetChunkSize caps how many bytes a single Read returns. 0 means
// unlimited. Serial adapters routinely deliver frames in 1-8 byte
// fragments; tests reproduce that here.
func (m *MockTransport) SetChunkSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunkSize = n
}

// QueueRead makes data immediately readable, independent of any Write.
func (m *MockTransport) QueueRead(data []byte) {
	m.QueueReadAfter(0, data)
}

// QueueReadAfter makes data readable once delay has passed.
func (m *MockTransport) QueueReadAfter(delay time.Duration, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, mockDelivery{
		at:   time.Now().Add(delay),
		data: append([]byte(nil), data...),
	})
}

// SetReadError makes every subsequent Read fail with err.
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetWriteError makes every subsequent Write fail with err.
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Writes returns copies of everything written, in write order.
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, 0, len(m.writes))
	for _, w := range m.writes {
		out = append(out, append([]byte(nil), w...))
	}
	return out
}

// ReadTimeout returns the current read timeout.
func (m *MockTransport) ReadTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readTimeout
}

// Write records p and queues the scripted response, if any.
func (m *MockTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportWrite
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}

	written := append([]byte(nil), p...)
	m.writes = append(m.writes, written)

	if m.responseFunc != nil {
		if resp := m.responseFunc(append([]byte(nil), written...)); len(resp) > 0 {
			m.deliveries = append(m.deliveries, mockDelivery{
				at:   time.Now().Add(m.responseDelay),
				data: append([]byte(nil), resp...),
			})
		}
	}
	return len(p), nil
}

// Read blocks until queued data is due, an injected error fires, or the
// read timeout passes with nothing available.
func (m *MockTransport) Read(p []byte) (int, error) {
	deadline := time.Now().Add(m.ReadTimeout())
	for {
		n, done, err := m.tryRead(p)
		if done {
			return n, err
		}
		if !time.Now().Before(deadline) {
			return 0, nil
		}
		time.Sleep(mockPollInterval)
	}
}

func (m *MockTransport) tryRead(p []byte) (n int, done bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, true, ErrTransportRead
	}
	if m.readErr != nil {
		return 0, true, m.readErr
	}
	if len(m.deliveries) == 0 {
		return 0, false, nil
	}

	d := &m.deliveries[0]
	if time.Now().Before(d.at) {
		return 0, false, nil
	}
	limit := len(d.data)
	if m.chunkSize > 0 && limit > m.chunkSize {
		limit = m.chunkSize
	}
	n = copy(p, d.data[:limit])
	d.data = d.data[n:]
	if len(d.data) == 0 {
		m.deliveries = m.deliveries[1:]
	}
	return n, true, nil
}

// SetReadTimeout sets how long Read blocks waiting for data.
func (m *MockTransport) SetReadTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readTimeout = timeout
	return nil
}

// Close marks the transport closed; subsequent reads and writes fail.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected reports whether Close has been called.
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// PortName identifies the mock in error messages.
func (*MockTransport) PortName() string {
	return "mock"
}

// BlockingMockTransport is a MockTransport whose Reads additionally wait
// for an explicit Unblock, for tests that need to hold a transaction open
// at a chosen moment.
type BlockingMockTransport struct {
	MockTransport
	gate   chan struct{}
	gateMu sync.Mutex
}

// NewBlockingMockTransport creates a blocking mock with the gate armed.
func NewBlockingMockTransport() *BlockingMockTransport {
	b := &BlockingMockTransport{gate: make(chan struct{})}
	b.readTimeout = 100 * time.Millisecond
	return b
}

// Read waits for Unblock (or the read timeout), then reads normally.
func (b *BlockingMockTransport) Read(p []byte) (int, error) {
	b.gateMu.Lock()
	gate := b.gate
	b.gateMu.Unlock()

	select {
	case <-gate:
	case <-time.After(b.ReadTimeout()):
		return 0, nil
	}
	return b.MockTransport.Read(p)
}

// Unblock releases every Read currently waiting and re-arms the gate for
// future Reads.
func (b *BlockingMockTransport) Unblock() {
	b.gateMu.Lock()
	defer b.gateMu.Unlock()
	close(b.gate)
	b.gate = make(chan struct{})
}
