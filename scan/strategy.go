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
	"fmt"
	"strings"

	"github.com/L91Project/go-l91"
)

// Strategy selects a preset sweep range. Installed actuator chains are
// strapped to low addresses, so Standard finds all of them in a couple of
// seconds; Wide and Full exist for hunting misconfigured hardware.
type Strategy int

const (
	// Standard covers 0x01-0x20, where chains are normally addressed.
	Standard Strategy = iota
	// Wide covers 0x00-0x7f.
	Wide
	// Full covers the entire address byte, 0x00-0xff.
	Full
)

// String returns the strategy's name.
func (s Strategy) String() string {
	switch s {
	case Standard:
		return "standard"
	case Wide:
		return "wide"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("invalid (%d)", int(s))
	}
}

// Ranges returns the address ranges a strategy sweeps, ready for
// ScanRanges.
func (s Strategy) Ranges() []l91.AddressRange {
	switch s {
	case Wide:
		return []l91.AddressRange{{Start: 0x00, End: 0x7F}}
	case Full:
		return []l91.AddressRange{{Start: 0x00, End: 0xFF}}
	default:
		return []l91.AddressRange{{Start: 0x01, End: 0x20}}
	}
}

// ParseStrategy maps a strategy name to its value, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard", "":
		return Standard, nil
	case "wide":
		return Wide, nil
	case "full":
		return Full, nil
	default:
		return Standard, fmt.Errorf("%w: unknown scan strategy %q", l91.ErrInvalidParameter, name)
	}
}
