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

// Package scan discovers actuator nodes on an L91 bus by sweeping address
// ranges and keeping a liveness registry of what answered. It also provides
// a continuous monitor that re-sweeps on an interval and reports nodes
// appearing, disappearing and faulting.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/L91Project/go-l91"
)

// Scanner-specific errors
var (
	// ErrNilSession is returned by NewScanner without a session to drive.
	ErrNilSession = errors.New("session cannot be nil")
)

// AbortedError reports a sweep that died partway through. It carries the
// best-effort Result built from the addresses probed before the failure.
type AbortedError struct {
	// Result holds the partial sweep outcome.
	Result *Result
	// Err is the underlying transport failure.
	Err error
	// Addr is the address being probed when the sweep aborted.
	Addr byte
}

// Error implements the error interface.
func (e *AbortedError) Error() string {
	return fmt.Sprintf("scan aborted at node 0x%02x: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying failure.
func (e *AbortedError) Unwrap() error {
	return e.Err
}

// State is the scanner's lifecycle phase.
type State int32

const (
	// StateIdle means no sweep has run yet.
	StateIdle State = iota
	// StateScanning means a sweep is in progress.
	StateScanning
	// StateCompleted means the last sweep covered its whole range.
	StateCompleted
	// StateAborted means the last sweep died on a transport failure.
	StateAborted
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("invalid (%d)", int32(s))
	}
}

// Config holds configuration options for a Scanner.
type Config struct {
	// FaultClassifier is handed to the registry; nil disables fault
	// classification.
	FaultClassifier l91.FaultClassifier
	// PerAddressTimeout bounds each probe transaction. Values <= 0 select
	// the default.
	PerAddressTimeout time.Duration
	// PaceInterval spaces consecutive probes. 0 probes back to back.
	PaceInterval time.Duration
	// SettleDelay is how long to linger after a write-only deactivate so
	// an optional acknowledgement is read and discarded instead of
	// surfacing in the next probe. Values < 0 disable the settle read.
	SettleDelay time.Duration
	// GroupTolerance is the gap merged by result grouping.
	GroupTolerance int
	// UnresponsiveThreshold overrides the registry default when >= 1.
	UnresponsiveThreshold int
	// Start is the first address probed, inclusive.
	Start byte
	// End is the last address probed, inclusive.
	End byte
	// ConfirmWithLoadParams follows every positive probe with a
	// load-parameters query. A confirm timeout leaves the node activated
	// but unconfirmed.
	ConfirmWithLoadParams bool
	// DeactivateAfterProbe powers a node back off (write-only) after it
	// answered, so later probes do not fight an active node for the bus.
	DeactivateAfterProbe bool
}

// Default sweep timings. The probe timeout is half the session default:
// an address with a node behind it answers within a few milliseconds, and
// most probed addresses are empty.
const (
	DefaultPerAddressTimeout = 250 * time.Millisecond
	DefaultSettleDelay       = 30 * time.Millisecond
)

// DefaultConfig returns the standard sweep configuration, covering the
// address range actuator chains are normally strapped to.
func DefaultConfig() *Config {
	return &Config{
		Start:                 0x01,
		End:                   0x20,
		PerAddressTimeout:     DefaultPerAddressTimeout,
		SettleDelay:           DefaultSettleDelay,
		ConfirmWithLoadParams: true,
		DeactivateAfterProbe:  true,
	}
}

// Scanner sweeps address ranges over one session and accumulates liveness
// evidence in its registry. Sweeps serialize on an internal mutex; the
// registry and statistics are readable at any time, including mid-sweep.
type Scanner struct {
	session  *l91.Session
	config   *Config
	registry *l91.Registry
	limiter  *rate.Limiter
	stats    counters
	state    atomic.Int32
	mu       sync.Mutex
}

// Result is the outcome of one sweep, always a best-effort report. On an
// aborted sweep it covers the addresses probed before the failure.
type Result struct {
	// Nodes holds every registry entry in address order.
	Nodes []l91.Node
	// Groups are the responsive addresses merged into contiguous runs.
	Groups []l91.AddressRange
	// Stats is a snapshot of the scanner counters.
	Stats Statistics
	// Completed reports whether the sweep covered its whole range.
	Completed bool
}

// NewScanner creates a scanner over an existing session. A nil config
// selects DefaultConfig.
func NewScanner(session *l91.Session, config *Config) (*Scanner, error) {
	if session == nil {
		return nil, ErrNilSession
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := l91.ValidateNodeRange(config.Start, config.End); err != nil {
		return nil, err
	}
	if config.PerAddressTimeout <= 0 {
		config.PerAddressTimeout = DefaultPerAddressTimeout
	}

	var registryOpts []l91.RegistryOption
	if config.FaultClassifier != nil {
		registryOpts = append(registryOpts, l91.WithFaultClassifier(config.FaultClassifier))
	}
	if config.UnresponsiveThreshold >= 1 {
		registryOpts = append(registryOpts, l91.WithUnresponsiveThreshold(config.UnresponsiveThreshold))
	}

	s := &Scanner{
		session:  session,
		config:   config,
		registry: l91.NewRegistry(registryOpts...),
	}
	if config.PaceInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(config.PaceInterval), 1)
	}
	return s, nil
}

// Registry returns the scanner's liveness registry. It accumulates across
// sweeps; entries are never deleted.
func (s *Scanner) Registry() *l91.Registry {
	return s.registry
}

// State returns the scanner's lifecycle phase.
func (s *Scanner) State() State {
	return State(s.state.Load())
}

// Stats returns a snapshot of the scanner counters.
func (s *Scanner) Stats() Statistics {
	return s.stats.snapshot(s.session)
}

// Scan sweeps the configured address range once. See ScanRanges.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	return s.ScanRanges(ctx, []l91.AddressRange{{Start: s.config.Start, End: s.config.End}})
}

// ScanRanges sweeps several address ranges in one pass, ascending within
// each range. Every address gets an activate probe whose outcome is folded
// into the registry; positive probes are optionally confirmed with a
// load-parameters query and then powered back off.
//
// A probe timeout is ordinary (most addresses are empty) and the sweep
// continues. A transport failure or cancellation aborts the sweep; the
// returned error is a *AbortedError carrying the partial Result. There is
// no per-address retry inside a pass; to retry, run another pass over the
// same range.
func (s *Scanner) ScanRanges(ctx context.Context, ranges []l91.AddressRange) (*Result, error) {
	for _, r := range ranges {
		if err := l91.ValidateNodeRange(r.Start, r.End); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Store(int32(StateScanning))
	started := time.Now()

	for _, r := range ranges {
		for a := int(r.Start); a <= int(r.End); a++ {
			if err := s.probeAddress(ctx, byte(a)); err != nil {
				s.state.Store(int32(StateAborted))
				result := s.buildResult(started, false)
				return result, &AbortedError{Result: result, Err: err, Addr: byte(a)}
			}
		}
	}

	s.state.Store(int32(StateCompleted))
	s.stats.sweeps.Add(1)
	return s.buildResult(started, true), nil
}

// Release powers off every address in [start, end], write-only. This is
// the cleanup pass to end a bus experiment with: it asks for no responses,
// because deactivate acknowledgements are too unreliable to wait on, and
// flushes whatever acknowledgements did arrive before returning.
func (s *Scanner) Release(ctx context.Context, start, end byte) error {
	if err := l91.ValidateNodeRange(start, end); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for a := int(start); a <= int(end); a++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("release cancelled: %w", err)
		}
		if err := s.waitPace(ctx); err != nil {
			return err
		}
		if err := s.session.Send(l91.NewDeactivateFrame(byte(a))); err != nil {
			return fmt.Errorf("deactivate node 0x%02x: %w", a, err)
		}
	}
	s.settle()
	return nil
}

// probeAddress runs the full probe sequence for one address. A nil return
// means the sweep can continue; an error is a sweep-fatal failure.
func (s *Scanner) probeAddress(ctx context.Context, addr byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scan cancelled: %w", err)
	}
	if err := s.waitPace(ctx); err != nil {
		return err
	}

	probe := l91.NewActivateFrame(addr)
	resp, err := s.session.TransactTimeout(probe, s.config.PerAddressTimeout)
	s.stats.probed.Add(1)
	s.registry.RecordAttempt(addr, l91.Attempt{Request: probe, Response: resp, Err: err})
	if err != nil {
		if l91.GetErrorType(err) == l91.ErrorTypeTimeout {
			s.stats.timeouts.Add(1)
			return nil
		}
		s.stats.transportErrors.Add(1)
		return err
	}
	s.stats.responsive.Add(1)

	if s.config.ConfirmWithLoadParams {
		if err := s.confirmAddress(addr); err != nil {
			return err
		}
	}
	if s.config.DeactivateAfterProbe {
		if err := s.session.Send(l91.NewDeactivateFrame(addr)); err != nil {
			s.stats.transportErrors.Add(1)
			return err
		}
		s.settle()
	}
	return nil
}

// confirmAddress follows a positive probe with a load-parameters query.
// The node just answered, so a confirm timeout is not treated as evidence
// it vanished: the timeout is counted but not recorded against the node,
// leaving it activated and unconfirmed.
func (s *Scanner) confirmAddress(addr byte) error {
	confirm := l91.NewLoadParamsFrame(addr)
	resp, err := s.session.TransactTimeout(confirm, s.config.PerAddressTimeout)
	if err != nil {
		if l91.GetErrorType(err) == l91.ErrorTypeTimeout {
			s.stats.timeouts.Add(1)
			return nil
		}
		s.stats.transportErrors.Add(1)
		return err
	}
	s.registry.RecordAttempt(addr, l91.Attempt{Request: confirm, Response: resp})
	if node, ok := s.registry.Get(addr); ok && node.Confirmed {
		s.stats.confirmed.Add(1)
	}
	return nil
}

// settle lingers briefly after a write-only deactivate. Some nodes
// acknowledge deactivation and some do not; reading the acknowledgement
// away here keeps it out of the next probe's response window.
func (s *Scanner) settle() {
	delay := s.config.SettleDelay
	if delay < 0 {
		return
	}
	if delay == 0 {
		delay = DefaultSettleDelay
	}
	s.session.Flush(delay)
}

func (s *Scanner) waitPace(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("scan pace wait: %w", err)
	}
	return nil
}

func (s *Scanner) buildResult(started time.Time, completed bool) *Result {
	s.stats.lastSweepNanos.Store(int64(time.Since(started)))
	return &Result{
		Nodes:     s.registry.All(),
		Groups:    s.registry.GroupContiguous(s.config.GroupTolerance),
		Stats:     s.stats.snapshot(s.session),
		Completed: completed,
	}
}
