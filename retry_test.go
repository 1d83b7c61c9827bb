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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetryConfig keeps retry tests quick without changing semantics.
func fastRetryConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetryWithConfig_FirstAttemptSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(3), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithConfig_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(3), func() error {
		calls++
		if calls < 3 {
			return NewTimeoutError("probe", "mock")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithConfig_NonRetryableStopsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	fatal := fmt.Errorf("%w: node 9 before node 4", ErrInvalidParameter)
	err := RetryWithConfig(context.Background(), fastRetryConfig(3), func() error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, 1, calls)
}

func TestRetryWithConfig_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(3), func() error {
		calls++
		return NewTimeoutError("probe", "mock")
	})
	require.ErrorIs(t, err, ErrTransportTimeout)
	assert.Equal(t, 3, calls)
}

func TestRetryWithConfig_CancelledBeforeFirstAttempt(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryWithConfig(ctx, fastRetryConfig(3), func() error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetryWithConfig_CancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	config := &RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Minute,
	}

	calls := 0
	err := RetryWithConfig(ctx, config, func() error {
		calls++
		cancel()
		return NewTimeoutError("probe", "mock")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryWithConfig_NilConfigUsesDefault(t *testing.T) {
	t.Parallel()

	err := RetryWithConfig(context.Background(), nil, func() error {
		return nil
	})
	assert.NoError(t, err)
}

func TestDefaultRetryConfig(t *testing.T) {
	t.Parallel()

	config := DefaultRetryConfig()
	assert.Equal(t, 3, config.MaxAttempts)
	assert.Positive(t, config.InitialBackoff)
	assert.GreaterOrEqual(t, config.MaxBackoff, config.InitialBackoff)
	assert.GreaterOrEqual(t, config.BackoffMultiplier, 1.0)
}
