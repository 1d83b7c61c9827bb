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
	"math"
	"time"
)

// ValidateNodeRange checks that an address range is well formed. Any byte
// value is a legal node address, so the only failure mode is an inverted
// range.
func ValidateNodeRange(start, end byte) error {
	if start > end {
		return fmt.Errorf("%w: range start 0x%02x above end 0x%02x",
			ErrInvalidParameter, start, end)
	}
	return nil
}

// ValidateJogSpeed rejects speeds the wire codec cannot represent. Finite
// values outside [-1, 1] are accepted here; the encoder clamps them to the
// representable wire range.
func ValidateJogSpeed(speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("%w: jog speed %v is not a finite number",
			ErrInvalidParameter, speed)
	}
	return nil
}

// ValidateTimeout checks a caller-supplied timeout. Zero and negative
// durations would make every transaction fail immediately, which is never
// what a caller wants from SetTimeout.
func ValidateTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v",
			ErrInvalidParameter, timeout)
	}
	return nil
}
