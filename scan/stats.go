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
	"sync/atomic"
	"time"

	"github.com/L91Project/go-l91"
)

// Statistics is a point-in-time snapshot of scanner activity. All counts
// are cumulative over the scanner's lifetime; Elapsed covers the most
// recent sweep. ChatterSkipped and LateFramesDiscarded come from the
// underlying session and include traffic outside sweeps.
type Statistics struct {
	// Probed counts activate probes sent.
	Probed uint64
	// Responsive counts probes that drew a response.
	Responsive uint64
	// Confirmed counts nodes that answered the load-parameters confirm.
	Confirmed uint64
	// Timeouts counts probe and confirm transactions that expired.
	Timeouts uint64
	// TransportErrors counts sweep-fatal transport failures.
	TransportErrors uint64
	// ChatterSkipped counts adapter chatter frames the session dropped.
	ChatterSkipped uint64
	// LateFramesDiscarded counts frames the session threw away outside
	// any transaction window.
	LateFramesDiscarded uint64
	// SweepsCompleted counts sweeps that covered their whole range.
	SweepsCompleted uint64
	// Elapsed is the duration of the most recent sweep.
	Elapsed time.Duration
}

// String renders a one-line sweep summary.
func (s Statistics) String() string {
	return fmt.Sprintf(
		"probed %d, responsive %d, confirmed %d, timeouts %d, transport errors %d, chatter %d, late %d, sweeps %d, last sweep %v",
		s.Probed, s.Responsive, s.Confirmed, s.Timeouts, s.TransportErrors,
		s.ChatterSkipped, s.LateFramesDiscarded, s.SweepsCompleted,
		s.Elapsed.Round(time.Millisecond))
}

// counters is the scanner's live counter set. Sweeps run one at a time,
// but readers snapshot freely while a sweep is mid-flight, so every field
// is atomic.
type counters struct {
	probed          atomic.Uint64
	responsive      atomic.Uint64
	confirmed       atomic.Uint64
	timeouts        atomic.Uint64
	transportErrors atomic.Uint64
	sweeps          atomic.Uint64
	lastSweepNanos  atomic.Int64
}

func (c *counters) snapshot(session *l91.Session) Statistics {
	sessionStats := session.Stats()
	return Statistics{
		Probed:              c.probed.Load(),
		Responsive:          c.responsive.Load(),
		Confirmed:           c.confirmed.Load(),
		Timeouts:            c.timeouts.Load(),
		TransportErrors:     c.transportErrors.Load(),
		ChatterSkipped:      sessionStats.ChatterSkipped,
		LateFramesDiscarded: sessionStats.LateFramesDiscarded,
		SweepsCompleted:     c.sweeps.Load(),
		Elapsed:             time.Duration(c.lastSweepNanos.Load()),
	}
}
