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

package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/L91Project/go-l91"
)

// DefaultMonitorInterval is the pause between monitoring sweeps.
const DefaultMonitorInterval = 5 * time.Second

// Monitor-specific errors
var (
	// ErrNilScanner is returned by NewMonitor without a scanner to drive.
	ErrNilScanner = errors.New("scanner cannot be nil")
	// ErrMonitorRunning is returned by Start while a monitor is running.
	ErrMonitorRunning = errors.New("monitor is already running")
)

// MonitorConfig holds configuration options for a Monitor.
type MonitorConfig struct {
	// Interval is the pause between sweeps. Values <= 0 select the
	// default.
	Interval time.Duration
	// MissedSweeps is how many consecutive non-responsive sweeps mark a
	// known node down. Values < 1 select the default.
	MissedSweeps int
}

// DefaultMonitorConfig returns default monitor configuration.
func DefaultMonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		Interval:     DefaultMonitorInterval,
		MissedSweeps: DefaultMissedSweeps,
	}
}

// Monitor re-sweeps the bus on an interval and reports node transitions.
// Set the callbacks before Start; they run on the sweep goroutine, so a
// slow callback delays the next sweep, never a transaction in flight.
type Monitor struct {
	scanner *Scanner
	config  *MonitorConfig
	tracker *presenceTracker

	// OnNodeUp fires the first sweep an address answers.
	OnNodeUp func(l91.Node)
	// OnNodeDown fires after MissedSweeps consecutive silent sweeps of a
	// previously answering address.
	OnNodeDown func(byte)
	// OnNodeFault fires on the transition into the faulted state.
	OnNodeFault func(l91.Node)

	cancelFunc context.CancelFunc
	stopMu     sync.Mutex
	running    atomic.Bool
}

// NewMonitor creates a monitor over an existing scanner. A nil config
// selects DefaultMonitorConfig.
func NewMonitor(scanner *Scanner, config *MonitorConfig) (*Monitor, error) {
	if scanner == nil {
		return nil, ErrNilScanner
	}
	if config == nil {
		config = DefaultMonitorConfig()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultMonitorInterval
	}

	return &Monitor{
		scanner: scanner,
		config:  config,
		tracker: newPresenceTracker(config.MissedSweeps),
	}, nil
}

// Start begins periodic sweeping (non-blocking). The first sweep runs
// immediately.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrMonitorRunning
	}

	monitorCtx, cancel := context.WithCancel(ctx)
	m.stopMu.Lock()
	m.cancelFunc = cancel
	m.stopMu.Unlock()

	go func() {
		defer func() {
			m.running.Store(false)
			m.stopMu.Lock()
			m.cancelFunc = nil
			m.stopMu.Unlock()
		}()
		m.run(monitorCtx)
	}()

	return nil
}

// Stop cancels the monitor and blocks until the sweep goroutine has
// finished. Stopping a stopped monitor is a no-op.
func (m *Monitor) Stop() {
	if !m.running.Load() {
		return
	}

	m.stopMu.Lock()
	cancelFunc := m.cancelFunc
	m.stopMu.Unlock()
	if cancelFunc != nil {
		cancelFunc()
	}

	for m.running.Load() {
		time.Sleep(10 * time.Millisecond)
	}
}

// IsRunning reports whether the monitor is currently sweeping.
func (m *Monitor) IsRunning() bool {
	return m.running.Load()
}

// Scanner returns the underlying scanner, whose registry and statistics
// remain readable while the monitor runs.
func (m *Monitor) Scanner() *Scanner {
	return m.scanner
}

func (m *Monitor) run(ctx context.Context) {
	for {
		m.sweepOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.config.Interval):
		}
	}
}

// sweepOnce runs one sweep and dispatches the resulting transitions. An
// aborted sweep produces no transitions: its evidence is incomplete, and
// reporting nodes down because the adapter hiccuped would be noise. The
// next interval simply tries again.
func (m *Monitor) sweepOnce(ctx context.Context) {
	result, err := m.scanner.Scan(ctx)
	if err != nil {
		return
	}
	m.dispatch(m.tracker.observe(result.Nodes))
}

func (m *Monitor) dispatch(ev sweepEvents) {
	for _, node := range ev.ups {
		if m.OnNodeUp != nil {
			m.OnNodeUp(node)
		}
	}
	for _, addr := range ev.downs {
		if m.OnNodeDown != nil {
			m.OnNodeDown(addr)
		}
	}
	for _, node := range ev.faults {
		if m.OnNodeFault != nil {
			m.OnNodeFault(node)
		}
	}
}
