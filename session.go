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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/L91Project/go-l91/detection"
)

// readChunkSize is the buffer size for a single transport read.
const readChunkSize = 256

// SessionConfig contains configuration options for a Session
type SessionConfig struct {
	// RetryConfig configures retry behavior for connect and handshake.
	// Bus transactions are never silently retried; on a shared bus a
	// repeated command is a second command.
	RetryConfig *RetryConfig
	// Timeout is the default response deadline for a transaction
	Timeout time.Duration
	// HandshakeTimeout bounds each read during the bring-up handshake
	HandshakeTimeout time.Duration
	// DrainGrace is how long a timed-out transaction keeps reading so a
	// late response cannot leak into the next exchange
	DrainGrace time.Duration
	// MaxBuffer caps the reassembly buffer
	MaxBuffer int
}

// DefaultSessionConfig returns default session configuration
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		RetryConfig:      DefaultRetryConfig(),
		Timeout:          500 * time.Millisecond,
		HandshakeTimeout: 300 * time.Millisecond,
		DrainGrace:       150 * time.Millisecond,
		MaxBuffer:        DefaultMaxBuffer,
	}
}

// SessionStats are cumulative counters for one session.
type SessionStats struct {
	// Transactions counts every transact call that reached the wire
	Transactions uint64
	// Timeouts counts transactions that expired without a response
	Timeouts uint64
	// ChatterSkipped counts adapter chatter frames dropped mid-transaction
	ChatterSkipped uint64
	// LateFramesDiscarded counts frames thrown away because they arrived
	// outside any transaction window
	LateFramesDiscarded uint64
}

// Session owns a live connection to an L91 bridge and serializes all bus
// traffic over it. Responses on this bus carry no request identity, so the
// session admits exactly one transaction at a time; concurrent callers
// queue on an internal mutex and their transactions complete in issue
// order. For parallel buses, open one Session per adapter.
type Session struct {
	transport Transport
	config    *SessionConfig
	reasm     *Reassembler
	stats     SessionStats
	mu        sync.Mutex
	closed    bool
}

// New creates a session over an existing transport. The transport should
// be freshly opened; the session assumes nothing about prior traffic and
// discards whatever is in flight when the first transaction runs.
func New(transport Transport, opts ...Option) (*Session, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}
	session := &Session{
		transport: transport,
		config:    DefaultSessionConfig(),
	}
	for _, opt := range opts {
		if err := opt(session); err != nil {
			return nil, err
		}
	}
	session.reasm = NewReassembler(session.config.MaxBuffer)
	return session, nil
}

// TransportFactory creates a transport for a port path at a baud rate.
// Open takes the factory as an option so this package does not depend on
// any concrete transport implementation.
type TransportFactory func(path string, baud int) (Transport, error)

// ConnectOption represents a functional option for Open
type ConnectOption func(*connectConfig) error

// connectConfig holds configuration options for session connection
type connectConfig struct {
	transportFactory TransportFactory
	sessionOptions   []Option
	timeout          time.Duration
	baudRate         int
	autoDetect       bool
}

// DefaultBaudRate is the serial speed every observed bridge runs at.
const DefaultBaudRate = 921600

// WithAutoDetection enables adapter detection instead of a fixed path
func WithAutoDetection() ConnectOption {
	return func(c *connectConfig) error {
		c.autoDetect = true
		return nil
	}
}

// WithTransportFactory sets the transport factory function
func WithTransportFactory(factory TransportFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportFactory = factory
		return nil
	}
}

// WithConnectTimeout bounds the whole connect sequence including the
// bring-up handshake
func WithConnectTimeout(timeout time.Duration) ConnectOption {
	return func(c *connectConfig) error {
		c.timeout = timeout
		return nil
	}
}

// WithSessionOptions adds session-level options
func WithSessionOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.sessionOptions = append(c.sessionOptions, opts...)
		return nil
	}
}

// WithBaudRate overrides the serial speed passed to the transport factory
func WithBaudRate(baud int) ConnectOption {
	return func(c *connectConfig) error {
		if baud <= 0 {
			return fmt.Errorf("%w: baud rate %d", ErrInvalidParameter, baud)
		}
		c.baudRate = baud
		return nil
	}
}

func applyConnectOptions(opts []ConnectOption) (*connectConfig, error) {
	config := &connectConfig{
		timeout:  10 * time.Second,
		baudRate: DefaultBaudRate,
	}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply connect option: %w", err)
		}
	}
	return config, nil
}

// Open creates a session for a port path and runs the bring-up handshake.
// An empty path, or WithAutoDetection, enumerates candidate adapters and
// connects to the first one found.
//
// Example usage:
//
//	session, err := l91.Open("/dev/ttyUSB0",
//	    l91.WithTransportFactory(func(path string, baud int) (l91.Transport, error) {
//	        return uart.New(path, uart.WithBaudRate(baud))
//	    }))
func Open(path string, opts ...ConnectOption) (*Session, error) {
	config, err := applyConnectOptions(opts)
	if err != nil {
		return nil, err
	}

	transport, err := createTransport(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	session, err := setupSession(transport, config)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	return session, nil
}

func createTransport(path string, config *connectConfig) (Transport, error) {
	if config.transportFactory == nil {
		return nil, errors.New("transport factory not provided")
	}
	if config.autoDetect || path == "" {
		detected, err := autoDetectPath()
		if err != nil {
			return nil, err
		}
		path = detected
	}
	transport, err := config.transportFactory(path, config.baudRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport for path %s: %w", path, err)
	}
	return transport, nil
}

// autoDetectPath enumerates candidate adapters in safe mode and returns
// the first one. Safe mode never writes to a port; a wrong guess here
// must not jog somebody's actuator.
func autoDetectPath() (string, error) {
	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe

	devices, err := detection.DetectAll(&opts)
	if err != nil {
		return "", fmt.Errorf("failed to detect adapters: %w", err)
	}
	if len(devices) == 0 {
		return "", fmt.Errorf("%w: no candidate adapters", ErrDeviceNotFound)
	}
	return devices[0].Path, nil
}

func setupSession(transport Transport, config *connectConfig) (*Session, error) {
	session, err := New(transport, config.sessionOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	ctx := context.Background()
	if config.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.timeout)
		defer cancel()
	}
	if err := session.InitContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	return session, nil
}

// Transport returns the underlying transport
func (s *Session) Transport() Transport {
	return s.transport
}

// Init runs the bring-up handshake. The bridge will not forward node
// traffic until it has seen the two handshake frames; responses to them
// vary by adapter firmware and are read and discarded, with an empty
// response counting as success.
func (s *Session) Init() error {
	return s.InitContext(context.Background())
}

// SetTimeout sets the default response deadline for transactions
func (s *Session) SetTimeout(timeout time.Duration) error {
	if err := ValidateTimeout(timeout); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Timeout = timeout
	return nil
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Transact writes req and waits for the next decodable frame from the
// bus, up to the configured timeout. Adapter chatter is skipped. The
// returned frame is whatever the bus produced next: responses carry no
// request identity, which is the reason transactions are serialized.
func (s *Session) Transact(req Frame) (*Frame, error) {
	return s.TransactTimeout(req, 0)
}

// TransactTimeout is Transact with an explicit response deadline.
// A timeout of 0 selects the configured default.
func (s *Session) TransactTimeout(req Frame, timeout time.Duration) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if timeout <= 0 {
		timeout = s.config.Timeout
	}
	return s.transactLocked(req, timeout)
}

// Send writes req without waiting for a response. Deactivate sweeps use
// this: the firmware acknowledges deactivation so unreliably that waiting
// per address would stretch a cleanup pass from seconds into minutes.
func (s *Session) Send(req Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	encoded, err := req.Encode()
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if _, err := s.transport.Write(encoded); err != nil {
		return NewTransportError("send", s.port(), fmt.Errorf("write: %w", err), ErrorTypeTransient)
	}
	debugf("sent %v to node 0x%02x (no response expected)", req.Type, req.NodeAddress)
	return nil
}

// Close closes the session and its transport. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			return fmt.Errorf("failed to close transport: %w", err)
		}
	}
	return nil
}

// transactLocked runs one write-then-await exchange. Callers hold s.mu.
func (s *Session) transactLocked(req Frame, timeout time.Duration) (*Frame, error) {
	encoded, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	// Whatever is buffered now was produced before this transaction and
	// must never be mistaken for its response.
	if stale := s.reasm.Poll(); len(stale) > 0 {
		s.stats.LateFramesDiscarded += uint64(len(stale))
		debugf("discarded %d stale frame(s) before write", len(stale))
	}

	s.stats.Transactions++
	if _, err := s.transport.Write(encoded); err != nil {
		return nil, NewTransportError("transact", s.port(), fmt.Errorf("write: %w", err), ErrorTypeTransient)
	}
	debugf("sent %v to node 0x%02x", req.Type, req.NodeAddress)

	return s.awaitResponse(time.Now().Add(timeout))
}

// awaitResponse reads until a decodable frame arrives or the deadline
// passes. On timeout it spends the drain grace absorbing any late
// response before returning, so the next transaction starts clean.
func (s *Session) awaitResponse(deadline time.Time) (*Frame, error) {
	buf := make([]byte, readChunkSize)
	for {
		if resp, err := s.takeDecoded(); resp != nil || err != nil {
			return resp, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.stats.Timeouts++
			if discarded := s.drain(s.config.DrainGrace); discarded > 0 {
				s.stats.LateFramesDiscarded += uint64(discarded)
				debugf("drained %d late frame(s) after timeout", discarded)
			}
			return nil, NewTransportError("transact", s.port(), ErrTransactionTimeout, ErrorTypeTimeout)
		}

		if err := s.transport.SetReadTimeout(remaining); err != nil {
			return nil, NewTransportError("transact", s.port(), fmt.Errorf("set read timeout: %w", err), ErrorTypePermanent)
		}
		n, err := s.transport.Read(buf)
		if err != nil {
			return nil, NewTransportError("transact", s.port(), fmt.Errorf("read: %w", err), ErrorTypeTransient)
		}
		if n > 0 {
			if err := s.reasm.Feed(buf[:n]); err != nil {
				return nil, NewTransportError("transact", s.port(), err, ErrorTypeTransient)
			}
		}
	}
}

// takeDecoded drains the reassembler and returns the first real frame.
// Chatter is skipped and counted. An undecodable span that is not known
// chatter means the stream is corrupt (framing slip, wrong baud, a second
// writer on the bus) and fails the transaction.
func (s *Session) takeDecoded() (*Frame, error) {
	spans := s.reasm.Poll()
	for i, span := range spans {
		if IsChatter(span) {
			s.stats.ChatterSkipped++
			debugf("skipped chatter % 02x", span)
			continue
		}
		resp, err := Decode(span)
		if err != nil {
			debugf("undecodable span % 02x: %v", span, err)
			return nil, NewFrameCorruptedError("transact", s.port())
		}
		if rest := len(spans) - i - 1; rest > 0 {
			// Frames behind the response were not asked for.
			s.stats.LateFramesDiscarded += uint64(rest)
			debugf("discarded %d frame(s) behind response", rest)
		}
		return resp, nil
	}
	return nil, nil
}

// drain reads and discards for the given grace period, returning how many
// complete frames were thrown away. The reassembler is reset afterwards.
func (s *Session) drain(grace time.Duration) int {
	deadline := time.Now().Add(grace)
	buf := make([]byte, readChunkSize)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err := s.transport.SetReadTimeout(remaining); err != nil {
			break
		}
		n, err := s.transport.Read(buf)
		if err != nil || n == 0 {
			break
		}
		_ = s.reasm.Feed(buf[:n])
	}
	discarded := len(s.reasm.Poll())
	s.reasm.Reset()
	return discarded
}

// portNamer is implemented by transports that know their port path.
type portNamer interface {
	PortName() string
}

func (s *Session) port() string {
	if p, ok := s.transport.(portNamer); ok {
		return p.PortName()
	}
	return ""
}
