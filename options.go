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
	"fmt"
	"time"
)

// Option is a functional option for configuring a Session
type Option func(*Session) error

// WithTimeout sets the default response deadline for transactions
func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) error {
		if err := ValidateTimeout(timeout); err != nil {
			return err
		}
		s.config.Timeout = timeout
		return nil
	}
}

// WithHandshakeTimeout bounds each read during the bring-up handshake
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(s *Session) error {
		if err := ValidateTimeout(timeout); err != nil {
			return err
		}
		s.config.HandshakeTimeout = timeout
		return nil
	}
}

// WithDrainGrace sets how long a timed-out transaction keeps reading to
// absorb a late response. Zero disables draining entirely; only do that
// on transports where a late frame is impossible, such as a scripted
// mock.
func WithDrainGrace(grace time.Duration) Option {
	return func(s *Session) error {
		if grace < 0 {
			return fmt.Errorf("%w: drain grace must not be negative, got %v",
				ErrInvalidParameter, grace)
		}
		s.config.DrainGrace = grace
		return nil
	}
}

// WithMaxBuffer caps the reassembly buffer in bytes. Values below 1
// select the default.
func WithMaxBuffer(maxBuffer int) Option {
	return func(s *Session) error {
		if maxBuffer >= 1 {
			s.config.MaxBuffer = maxBuffer
		}
		return nil
	}
}

// WithRetryConfig sets the retry configuration for connect and handshake.
// Transactions themselves are never retried by the session.
func WithRetryConfig(config *RetryConfig) Option {
	return func(s *Session) error {
		if config == nil {
			config = DefaultRetryConfig()
		}
		s.config.RetryConfig = config
		return nil
	}
}
