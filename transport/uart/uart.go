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

// Package uart provides the serial transport for USB-attached L91 bridges.
package uart

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	l91 "github.com/L91Project/go-l91"
	"github.com/L91Project/go-l91/internal/transport"
)

// initialReadTimeout applies until the session installs its own deadline,
// so a stray Read on a fresh transport cannot block forever.
const initialReadTimeout = 100 * time.Millisecond

// Open retry window. An adapter enumerates a moment before its serial
// side accepts opens, so the first attempt after hotplug can fail.
const (
	openRetries    = 2
	openRetryDelay = 100 * time.Millisecond
)

// Transport implements the l91.Transport interface over a serial port.
// Bridges run 8N1; only the speed is configurable.
type Transport struct {
	port     serial.Port
	portName string
	baudRate int
	mu       sync.Mutex
	open     bool
}

// Option configures a Transport before the port is opened
type Option func(*Transport) error

// WithBaudRate overrides the default line speed
func WithBaudRate(baud int) Option {
	return func(t *Transport) error {
		if baud <= 0 {
			return fmt.Errorf("%w: baud rate must be positive, got %d",
				l91.ErrInvalidParameter, baud)
		}
		t.baudRate = baud
		return nil
	}
}

// New opens the serial port at portName and returns a connected transport
func New(portName string, opts ...Option) (*Transport, error) {
	t := &Transport{
		portName: portName,
		baudRate: l91.DefaultBaudRate,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	mode := &serial.Mode{
		BaudRate: t.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	var lastErr error
	port, err := transport.WithRetry(transport.RetryConfig{
		Description: "open serial port",
		MaxRetries:  openRetries,
		RetryDelay:  openRetryDelay,
	}, func() (serial.Port, bool, error) {
		p, openErr := serial.Open(portName, mode)
		if openErr != nil {
			lastErr = openErr
			return nil, true, nil
		}
		return p, false, nil
	})
	if err != nil {
		if lastErr != nil {
			err = lastErr
		}
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(initialReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	t.port = port
	t.open = true
	return t, nil
}

// Factory adapts New to the l91.TransportFactory signature:
//
//	session, err := l91.Open(path, l91.WithTransportFactory(uart.Factory))
func Factory(path string, baud int) (l91.Transport, error) {
	return New(path, WithBaudRate(baud))
}

// Read reads whatever bytes the port has, returning (0, nil) when the
// read timeout elapses with no data.
func (t *Transport) Read(p []byte) (int, error) {
	port, err := t.livePort("read")
	if err != nil {
		return 0, err
	}
	n, err := port.Read(p)
	if err != nil {
		return n, l91.NewTransportError("read", t.portName, err, l91.ErrorTypeTransient)
	}
	return n, nil
}

// Write writes p to the port
func (t *Transport) Write(p []byte) (int, error) {
	port, err := t.livePort("write")
	if err != nil {
		return 0, err
	}
	n, err := port.Write(p)
	if err != nil {
		return n, l91.NewTransportError("write", t.portName, err, l91.ErrorTypeTransient)
	}
	if n < len(p) {
		return n, l91.NewTransportError("write", t.portName,
			fmt.Errorf("%w: short write (%d of %d bytes)", l91.ErrTransportWrite, n, len(p)),
			l91.ErrorTypeTransient)
	}
	return n, nil
}

// SetReadTimeout sets how long a single Read blocks waiting for data
func (t *Transport) SetReadTimeout(timeout time.Duration) error {
	port, err := t.livePort("setReadTimeout")
	if err != nil {
		return err
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		return l91.NewTransportError("setReadTimeout", t.portName, err, l91.ErrorTypeTransient)
	}
	return nil
}

// Close closes the serial port. Closing a closed transport is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return nil
	}
	t.open = false
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

// Type returns the transport type
func (*Transport) Type() l91.TransportType {
	return l91.TransportUART
}

// PortName returns the path the port was opened with
func (t *Transport) PortName() string {
	return t.portName
}

func (t *Transport) livePort(op string) (serial.Port, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open || t.port == nil {
		return nil, l91.NewTransportError(op, t.portName,
			l91.ErrCommunicationFailed, l91.ErrorTypePermanent)
	}
	return t.port, nil
}
