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

// Package ws provides a WebSocket transport for bridges exposed over the
// network instead of a local USB port. The remote end forwards raw bus
// bytes as binary messages; text messages on the same connection are
// control chatter and are skipped.
package ws

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	l91 "github.com/L91Project/go-l91"
)

// DefaultHandshakeTimeout bounds the WebSocket dial and upgrade.
const DefaultHandshakeTimeout = 10 * time.Second

// Transport implements the l91.Transport interface over a WebSocket
// connection. A reader goroutine pumps binary messages into a channel so
// Read can honor its timeout without poisoning the connection: a
// WebSocket read deadline kills the connection on expiry, a channel wait
// does not.
type Transport struct {
	conn *websocket.Conn
	url  string

	incoming chan []byte
	done     chan struct{}

	mu          sync.Mutex
	buf         []byte
	bufOffset   int
	readTimeout time.Duration
	pumpErr     error
	closed      bool

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// config holds dial options applied before connecting
type config struct {
	username         string
	password         string
	handshakeTimeout time.Duration
	insecureTLS      bool
}

// Option configures the dial
type Option func(*config) error

// WithBasicAuth sends HTTP Basic credentials with the upgrade request
func WithBasicAuth(username, password string) Option {
	return func(c *config) error {
		c.username = username
		c.password = password
		return nil
	}
}

// WithInsecureTLS disables certificate verification for wss endpoints.
// Bridge firmware ships with self-signed certificates, so reaching one
// over TLS usually needs this.
func WithInsecureTLS() Option {
	return func(c *config) error {
		c.insecureTLS = true
		return nil
	}
}

// WithHandshakeTimeout overrides the default dial deadline
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: handshake timeout must be positive, got %v",
				l91.ErrInvalidParameter, timeout)
		}
		c.handshakeTimeout = timeout
		return nil
	}
}

// New dials wsURL and returns a connected transport. The scheme must be
// ws or wss.
func New(wsURL string, opts ...Option) (*Transport, error) {
	cfg := &config{handshakeTimeout: DefaultHandshakeTimeout}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid WebSocket URL %q: %w", wsURL, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("%w: unsupported URL scheme %q (use ws:// or wss://)",
			l91.ErrInvalidParameter, u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.handshakeTimeout,
	}
	if u.Scheme == "wss" && cfg.insecureTLS {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via WithInsecureTLS
	}

	headers := http.Header{}
	if cfg.username != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(cfg.username + ":" + cfg.password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.Dial(wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection to %s failed (HTTP %d): %w",
				wsURL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection to %s failed: %w", wsURL, err)
	}

	t := &Transport{
		conn:     conn,
		url:      wsURL,
		incoming: make(chan []byte),
		done:     make(chan struct{}),
	}
	go t.readPump()
	return t, nil
}

// Factory adapts New to the l91.TransportFactory signature. The baud rate
// has no meaning on a network transport and is ignored.
func Factory(path string, _ int) (l91.Transport, error) {
	return New(path)
}

// readPump moves binary messages from the connection into the incoming
// channel until the connection dies or the transport closes.
func (t *Transport) readPump() {
	defer close(t.incoming)
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			if t.pumpErr == nil {
				t.pumpErr = err
			}
			t.mu.Unlock()
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case t.incoming <- data:
		case <-t.done:
			return
		}
	}
}

// Read returns buffered bytes from the current message first, then waits
// up to the read timeout for the next binary message. It returns (0, nil)
// when the timeout elapses with no data.
func (t *Transport) Read(p []byte) (int, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, l91.NewTransportError("read", t.url,
			l91.ErrCommunicationFailed, l91.ErrorTypePermanent)
	}
	if t.bufOffset < len(t.buf) {
		n := copy(p, t.buf[t.bufOffset:])
		t.bufOffset += n
		t.mu.Unlock()
		return n, nil
	}
	timeout := t.readTimeout
	t.mu.Unlock()

	var expire <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expire = timer.C
	}

	select {
	case data, ok := <-t.incoming:
		if !ok {
			return 0, t.takePumpError()
		}
		t.mu.Lock()
		t.buf = data
		t.bufOffset = copy(p, data)
		n := t.bufOffset
		t.mu.Unlock()
		return n, nil
	case <-expire:
		return 0, nil
	case <-t.done:
		return 0, l91.NewTransportError("read", t.url,
			l91.ErrCommunicationFailed, l91.ErrorTypePermanent)
	}
}

// Write sends p as a single binary message
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return 0, l91.NewTransportError("write", t.url,
			l91.ErrCommunicationFailed, l91.ErrorTypePermanent)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, l91.NewTransportError("write", t.url, err, l91.ErrorTypeTransient)
	}
	return len(p), nil
}

// SetReadTimeout sets how long a single Read waits for the next message.
// Zero or negative waits indefinitely.
func (t *Transport) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readTimeout = timeout
	return nil
}

// Close closes the WebSocket connection. Closing a closed transport is a
// no-op.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		close(t.done)
		err = t.conn.Close()
	})
	return err
}

// IsConnected returns true while the connection and its reader are alive
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed && t.pumpErr == nil
}

// Type returns the transport type
func (*Transport) Type() l91.TransportType {
	return l91.TransportWebSocket
}

// PortName returns the URL the transport was dialed with
func (t *Transport) PortName() string {
	return t.url
}

func (t *Transport) takePumpError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.pumpErr
	if err == nil {
		err = l91.ErrCommunicationFailed
	}
	return l91.NewTransportError("read", t.url, err, l91.ErrorTypeTransient)
}
