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
	"testing"
	"time"

	l91 "github.com/L91Project/go-l91"
	testutil "github.com/L91Project/go-l91/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createBusScanner wires a virtual bus to a mock transport and builds a
// scanner over it. The short drain grace keeps probe timeouts cheap.
func createBusScanner(t *testing.T, bus *testutil.VirtualBus, config *Config) (*Scanner, *l91.MockTransport) {
	t.Helper()

	mock := l91.NewMockTransport()
	mock.SetResponseFunc(bus.Respond)
	session, err := l91.New(mock, l91.WithDrainGrace(time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	scanner, err := NewScanner(session, config)
	require.NoError(t, err)
	return scanner, mock
}

// fastConfig returns a sweep configuration tight enough for tests, where
// every empty address still costs a full probe timeout.
func fastConfig(start, end byte) *Config {
	return &Config{
		Start:             start,
		End:               end,
		PerAddressTimeout: 15 * time.Millisecond,
		SettleDelay:       10 * time.Millisecond,
	}
}

// failingTransport delegates to a mock until the write count passes a
// threshold, then fails every read. It simulates an adapter dying partway
// through a sweep.
type failingTransport struct {
	*l91.MockTransport
	err            error
	failAfterWrite int
}

func (f *failingTransport) Read(p []byte) (int, error) {
	if len(f.Writes()) > f.failAfterWrite {
		return 0, f.err
	}
	return f.MockTransport.Read(p)
}

func TestNewScanner(t *testing.T) {
	t.Parallel()

	t.Run("with valid parameters", func(t *testing.T) {
		t.Parallel()
		mock := l91.NewMockTransport()
		session, err := l91.New(mock)
		require.NoError(t, err)
		t.Cleanup(func() { _ = session.Close() })

		config := DefaultConfig()
		config.ConfirmWithLoadParams = false
		scanner, err := NewScanner(session, config)
		require.NoError(t, err)

		assert.NotNil(t, scanner)
		assert.Equal(t, session, scanner.session)
		assert.Equal(t, config, scanner.config)
		assert.NotNil(t, scanner.Registry())
		assert.Equal(t, StateIdle, scanner.State())
	})

	t.Run("with nil config uses defaults", func(t *testing.T) {
		t.Parallel()
		mock := l91.NewMockTransport()
		session, err := l91.New(mock)
		require.NoError(t, err)
		t.Cleanup(func() { _ = session.Close() })

		scanner, err := NewScanner(session, nil)
		require.NoError(t, err)

		assert.Equal(t, byte(0x01), scanner.config.Start)
		assert.Equal(t, byte(0x20), scanner.config.End)
		assert.Equal(t, DefaultPerAddressTimeout, scanner.config.PerAddressTimeout)
		assert.True(t, scanner.config.ConfirmWithLoadParams)
		assert.True(t, scanner.config.DeactivateAfterProbe)
	})

	t.Run("with nil session returns error", func(t *testing.T) {
		t.Parallel()
		scanner, err := NewScanner(nil, DefaultConfig())
		require.ErrorIs(t, err, ErrNilSession)
		assert.Nil(t, scanner)
	})

	t.Run("with inverted range returns error", func(t *testing.T) {
		t.Parallel()
		mock := l91.NewMockTransport()
		session, err := l91.New(mock)
		require.NoError(t, err)
		t.Cleanup(func() { _ = session.Close() })

		scanner, err := NewScanner(session, &Config{Start: 0x10, End: 0x01})
		require.ErrorIs(t, err, l91.ErrInvalidParameter)
		assert.Nil(t, scanner)
	})
}

func TestScanner_Scan_SingleNodeAmongEmptyAddresses(t *testing.T) {
	t.Parallel()
	bus := testutil.NewVirtualBus(&testutil.VirtualNode{Address: 0x0c})
	config := fastConfig(0x01, 0x14)
	config.ConfirmWithLoadParams = true
	config.DeactivateAfterProbe = true
	scanner, mock := createBusScanner(t, bus, config)

	result, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Equal(t, StateCompleted, scanner.State())

	require.Len(t, result.Nodes, 20)
	for _, node := range result.Nodes {
		if node.Address == 0x0c {
			assert.Equal(t, l91.StateActivated, node.State)
			assert.True(t, node.Confirmed)
			continue
		}
		assert.Equal(t, l91.StateUnresponsive, node.State, "address 0x%02x", node.Address)
		assert.False(t, node.Confirmed)
	}
	assert.Equal(t, []l91.AddressRange{{Start: 0x0c, End: 0x0c}}, result.Groups)

	assert.Equal(t, uint64(20), result.Stats.Probed)
	assert.Equal(t, uint64(1), result.Stats.Responsive)
	assert.Equal(t, uint64(1), result.Stats.Confirmed)
	assert.Equal(t, uint64(19), result.Stats.Timeouts)
	assert.Equal(t, uint64(0), result.Stats.TransportErrors)
	assert.Equal(t, uint64(1), result.Stats.SweepsCompleted)
	assert.Positive(t, result.Stats.Elapsed)

	// 20 probes, then the confirm and the power-off for the node that
	// answered, in sweep order.
	writes := mock.Writes()
	require.Len(t, writes, 22)
	assert.Equal(t, testutil.BuildActivateFrame(0x0c), writes[11])
	assert.Equal(t, testutil.BuildLoadParamsFrame(0x0c), writes[12])
	assert.Equal(t, testutil.BuildDeactivateFrame(0x0c), writes[13])

	// The sweep powered the node back off.
	assert.False(t, bus.Node(0x0c).Activated)
}

func TestScanner_Scan_FaultedNodeClassified(t *testing.T) {
	t.Parallel()
	bus := testutil.NewVirtualBus(&testutil.VirtualNode{Address: 0x05, Faulted: true})
	config := fastConfig(0x05, 0x05)
	config.ConfirmWithLoadParams = true
	config.FaultClassifier = l91.PrefixFaultClassifier(testutil.StatusPrefix())
	scanner, _ := createBusScanner(t, bus, config)

	result, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	node, ok := scanner.Registry().Get(0x05)
	require.True(t, ok)
	assert.Equal(t, l91.StateFaulted, node.State)
	assert.False(t, node.Confirmed)

	// A faulted node answered, so it is responsive and grouped, but the
	// status-family confirm response does not count as confirmed.
	assert.Equal(t, uint64(1), result.Stats.Responsive)
	assert.Equal(t, uint64(0), result.Stats.Confirmed)
	assert.Equal(t, []l91.AddressRange{{Start: 0x05, End: 0x05}}, result.Groups)
}

func TestScanner_ScanRanges_MultipleRanges(t *testing.T) {
	t.Parallel()
	bus := testutil.NewVirtualBus(
		&testutil.VirtualNode{Address: 0x02},
		&testutil.VirtualNode{Address: 0x0b},
	)
	config := fastConfig(0x01, 0x03)
	config.SettleDelay = -1
	scanner, mock := createBusScanner(t, bus, config)

	ranges := []l91.AddressRange{
		{Start: 0x01, End: 0x03},
		{Start: 0x0a, End: 0x0c},
	}
	result, err := scanner.ScanRanges(context.Background(), ranges)
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Len(t, mock.Writes(), 6)
	assert.Equal(t, uint64(6), result.Stats.Probed)
	assert.Equal(t, uint64(2), result.Stats.Responsive)
	assert.Equal(t, uint64(4), result.Stats.Timeouts)
	assert.Equal(t, []l91.AddressRange{
		{Start: 0x02, End: 0x02},
		{Start: 0x0b, End: 0x0b},
	}, result.Groups)
}

func TestScanner_ScanRanges_RejectsInvalidRange(t *testing.T) {
	t.Parallel()
	bus := testutil.NewVirtualBus()
	scanner, mock := createBusScanner(t, bus, fastConfig(0x01, 0x03))

	_, err := scanner.ScanRanges(context.Background(), []l91.AddressRange{
		{Start: 0x05, End: 0x01},
	})
	require.ErrorIs(t, err, l91.ErrInvalidParameter)
	assert.Empty(t, mock.Writes())
	assert.Equal(t, StateIdle, scanner.State())
}

func TestScanner_Scan_AbortMidSweep(t *testing.T) {
	t.Parallel()
	bus := testutil.NewVirtualBus(&testutil.VirtualNode{Address: 0x02})
	errAdapter := errors.New("adapter unplugged")

	mock := l91.NewMockTransport()
	mock.SetResponseFunc(bus.Respond)
	transport := &failingTransport{MockTransport: mock, err: errAdapter, failAfterWrite: 3}
	session, err := l91.New(transport, l91.WithDrainGrace(time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	config := fastConfig(0x01, 0x05)
	scanner, err := NewScanner(session, config)
	require.NoError(t, err)

	result, err := scanner.Scan(context.Background())
	require.Error(t, err)

	var aborted *AbortedError
	require.ErrorAs(t, err, &aborted)
	assert.Equal(t, byte(0x04), aborted.Addr)
	assert.Contains(t, err.Error(), "0x04")
	assert.ErrorIs(t, err, errAdapter)
	assert.Same(t, result, aborted.Result)

	assert.Equal(t, StateAborted, scanner.State())
	assert.False(t, result.Completed)
	assert.Equal(t, uint64(1), result.Stats.TransportErrors)
	assert.Equal(t, uint64(0), result.Stats.SweepsCompleted)

	// The three addresses probed before the failure still carry their
	// evidence.
	node, ok := scanner.Registry().Get(0x02)
	require.True(t, ok)
	assert.Equal(t, l91.StateActivated, node.State)
	node, ok = scanner.Registry().Get(0x03)
	require.True(t, ok)
	assert.Equal(t, l91.StateUnresponsive, node.State)
}

func TestScanner_Scan_CancelledContext(t *testing.T) {
	t.Parallel()
	bus := testutil.NewVirtualBus()
	scanner, mock := createBusScanner(t, bus, fastConfig(0x01, 0x05))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := scanner.Scan(ctx)
	require.Error(t, err)

	var aborted *AbortedError
	require.ErrorAs(t, err, &aborted)
	assert.Equal(t, byte(0x01), aborted.Addr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, result.Completed)
	assert.Equal(t, StateAborted, scanner.State())
	assert.Empty(t, mock.Writes())
}

func TestScanner_Scan_PacingSpacesProbes(t *testing.T) {
	t.Parallel()
	bus := testutil.NewVirtualBus()
	config := fastConfig(0x01, 0x03)
	config.PerAddressTimeout = 10 * time.Millisecond
	config.PaceInterval = 30 * time.Millisecond
	scanner, _ := createBusScanner(t, bus, config)

	started := time.Now()
	result, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	elapsed := time.Since(started)

	// Three probes spaced 30ms apart cannot finish inside two pace
	// intervals, however fast the timeouts run.
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Equal(t, uint64(3), result.Stats.Probed)
}

func TestScanner_Scan_ChatterSkipped(t *testing.T) {
	t.Parallel()
	bus := testutil.NewVirtualBus(&testutil.VirtualNode{Address: 0x02})
	bus.ChatterBeforeAck = true
	config := fastConfig(0x02, 0x02)
	config.ConfirmWithLoadParams = true
	config.DeactivateAfterProbe = false
	scanner, _ := createBusScanner(t, bus, config)

	result, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	node, ok := scanner.Registry().Get(0x02)
	require.True(t, ok)
	assert.Equal(t, l91.StateActivated, node.State)
	assert.True(t, node.Confirmed)

	// One chatter frame rode ahead of the probe ack and one ahead of the
	// confirm ack.
	assert.Equal(t, uint64(2), result.Stats.ChatterSkipped)
}

func TestScanner_Scan_UnresponsiveThresholdAccumulates(t *testing.T) {
	t.Parallel()
	bus := testutil.NewVirtualBus()
	config := fastConfig(0x07, 0x07)
	config.UnresponsiveThreshold = 2
	scanner, _ := createBusScanner(t, bus, config)

	_, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	node, ok := scanner.Registry().Get(0x07)
	require.True(t, ok)
	assert.Equal(t, l91.StateUnknown, node.State)

	_, err = scanner.Scan(context.Background())
	require.NoError(t, err)
	node, ok = scanner.Registry().Get(0x07)
	require.True(t, ok)
	assert.Equal(t, l91.StateUnresponsive, node.State)

	assert.Equal(t, uint64(2), scanner.Stats().SweepsCompleted)
}

func TestScanner_ConcurrentSweepsSerialize(t *testing.T) {
	t.Parallel()
	bus := testutil.NewVirtualBus()
	config := fastConfig(0x01, 0x01)
	config.PerAddressTimeout = 5 * time.Millisecond
	scanner, _ := createBusScanner(t, bus, config)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = scanner.Scan(context.Background())
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	stats := scanner.Stats()
	assert.Equal(t, uint64(2), stats.Probed)
	assert.Equal(t, uint64(2), stats.SweepsCompleted)
}

func TestScanner_Release(t *testing.T) {
	t.Parallel()
	bus := testutil.NewVirtualBus(
		&testutil.VirtualNode{Address: 0x01, Activated: true},
		&testutil.VirtualNode{Address: 0x02, Activated: true},
		&testutil.VirtualNode{Address: 0x03, Activated: true},
	)
	scanner, mock := createBusScanner(t, bus, fastConfig(0x01, 0x03))

	err := scanner.Release(context.Background(), 0x01, 0x03)
	require.NoError(t, err)

	writes := mock.Writes()
	require.Len(t, writes, 3)
	for i, addr := range []byte{0x01, 0x02, 0x03} {
		assert.Equal(t, testutil.BuildDeactivateFrame(addr), writes[i])
		assert.False(t, bus.Node(addr).Activated)
	}

	// The final settle read the three acknowledgements out of the buffer.
	assert.Equal(t, uint64(3), scanner.Stats().LateFramesDiscarded)
}

func TestScanner_Release_Validation(t *testing.T) {
	t.Parallel()
	bus := testutil.NewVirtualBus()
	scanner, mock := createBusScanner(t, bus, fastConfig(0x01, 0x03))

	err := scanner.Release(context.Background(), 0x05, 0x01)
	require.ErrorIs(t, err, l91.ErrInvalidParameter)
	assert.Empty(t, mock.Writes())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = scanner.Release(ctx, 0x01, 0x03)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mock.Writes())
}

func TestState_String(t *testing.T) {
	t.Parallel()
	tests := []struct {
		want  string
		state State
	}{
		{"idle", StateIdle},
		{"scanning", StateScanning},
		{"completed", StateCompleted},
		{"aborted", StateAborted},
		{"invalid (99)", State(99)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
