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
	"github.com/L91Project/go-l91"
)

// DefaultMissedSweeps is how many consecutive non-responsive sweeps it
// takes to report a known node as down. One missed sweep is common on a
// busy bus; two in a row means the node is really gone.
const DefaultMissedSweeps = 2

// nodePresence is the tracker's view of one address across sweeps.
type nodePresence struct {
	misses  int
	up      bool
	faulted bool
}

// presenceTracker debounces per-address liveness across sweeps and turns
// registry snapshots into up/down/fault transitions.
type presenceTracker struct {
	nodes        map[byte]*nodePresence
	missedSweeps int
}

func newPresenceTracker(missedSweeps int) *presenceTracker {
	if missedSweeps < 1 {
		missedSweeps = DefaultMissedSweeps
	}
	return &presenceTracker{
		nodes:        make(map[byte]*nodePresence),
		missedSweeps: missedSweeps,
	}
}

// sweepEvents holds the transitions one sweep produced, in address order.
type sweepEvents struct {
	ups    []l91.Node
	faults []l91.Node
	downs  []byte
}

// observe folds one sweep's registry snapshot into the tracker. A node
// goes up the first sweep it answers, faults on the transition into the
// faulted state, and goes down only after missedSweeps consecutive
// non-responsive sweeps.
func (t *presenceTracker) observe(nodes []l91.Node) sweepEvents {
	var ev sweepEvents
	for i := range nodes {
		node := nodes[i]
		p := t.nodes[node.Address]
		if p == nil {
			p = &nodePresence{}
			t.nodes[node.Address] = p
		}

		switch node.State {
		case l91.StateActivated, l91.StateDeactivated, l91.StateFaulted:
			p.misses = 0
			if !p.up {
				p.up = true
				ev.ups = append(ev.ups, node)
			}
			if node.State == l91.StateFaulted {
				if !p.faulted {
					p.faulted = true
					ev.faults = append(ev.faults, node)
				}
			} else {
				p.faulted = false
			}
		default:
			if !p.up {
				continue
			}
			p.misses++
			if p.misses >= t.missedSweeps {
				p.up = false
				p.faulted = false
				p.misses = 0
				ev.downs = append(ev.downs, node.Address)
			}
		}
	}
	return ev
}
