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
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"
)

// NodeState describes what the bus has told us about a node address.
type NodeState int

const (
	// StateUnknown means no attempt has produced evidence either way.
	StateUnknown NodeState = iota
	// StateActivated means the node acknowledged an activate command.
	StateActivated
	// StateDeactivated means the node acknowledged a deactivate command.
	StateDeactivated
	// StateFaulted means a response matched the configured fault classifier.
	StateFaulted
	// StateUnresponsive means enough consecutive attempts timed out.
	StateUnresponsive
)

// String returns a human-readable state name.
func (s NodeState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateActivated:
		return "activated"
	case StateDeactivated:
		return "deactivated"
	case StateFaulted:
		return "faulted"
	case StateUnresponsive:
		return "unresponsive"
	default:
		return fmt.Sprintf("invalid (%d)", int(s))
	}
}

// Node is the registry's view of one bus address.
//
// Confirmed records that the node answered a load-parameters query after
// activation. It is deliberately separate from State: a node can be
// Activated yet unconfirmed when the verification query timed out.
type Node struct {
	// LastSeen is the time of the most recent successful response.
	LastSeen time.Time
	// LastResponse is the most recent decoded response, nil before any.
	// The registry stores its own copy; callers must not mutate it.
	LastResponse *Frame
	// Attempts counts every recorded attempt against this address.
	Attempts int
	// Failures counts consecutive timeouts since the last success.
	Failures int
	// Address is the node address on the bus.
	Address byte
	// State is the current classification.
	State NodeState
	// Confirmed is set by a successful load-parameters response.
	Confirmed bool
}

// Attempt is the outcome of one transaction against a node, as fed to
// RecordAttempt. Exactly one of Response and Err is normally set; a
// write-only send that expects no response should not be recorded.
type Attempt struct {
	Response *Frame
	Err      error
	Request  Frame
}

// FaultClassifier reports whether a decoded response indicates a node
// fault. The wire-level fault signature of these actuators was never
// conclusively identified, so classification is pluggable rather than
// hard-coded; a nil classifier treats no response as a fault.
type FaultClassifier func(*Frame) bool

// PrefixFaultClassifier builds a classifier that matches a response's
// encoded bytes against the given prefixes. Field tooling distinguished
// response families by their leading bytes, and this reproduces that
// technique without baking in any particular vendor interpretation.
func PrefixFaultClassifier(prefixes ...[]byte) FaultClassifier {
	cloned := make([][]byte, 0, len(prefixes))
	for _, p := range prefixes {
		cloned = append(cloned, append([]byte(nil), p...))
	}
	return func(f *Frame) bool {
		if f == nil {
			return false
		}
		raw, err := f.Encode()
		if err != nil {
			return false
		}
		for _, p := range cloned {
			if len(p) > 0 && bytes.HasPrefix(raw, p) {
				return true
			}
		}
		return false
	}
}

// DefaultUnresponsiveThreshold is the number of consecutive timeouts after
// which a node is marked Unresponsive. A single timeout is meaningful on
// this bus: probed addresses with no actuator behind them simply never
// answer.
const DefaultUnresponsiveThreshold = 1

// Registry tracks node liveness across transactions. It is safe for
// concurrent use; writes normally come from a single scanning goroutine
// while any number of readers inspect the state.
type Registry struct {
	nodes      map[byte]*Node
	classifier FaultClassifier
	threshold  int
	mu         sync.RWMutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFaultClassifier installs a response fault classifier.
func WithFaultClassifier(fc FaultClassifier) RegistryOption {
	return func(r *Registry) {
		r.classifier = fc
	}
}

// WithUnresponsiveThreshold sets how many consecutive timeouts mark a node
// Unresponsive. Values below 1 select the default.
func WithUnresponsiveThreshold(n int) RegistryOption {
	return func(r *Registry) {
		if n >= 1 {
			r.threshold = n
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		nodes:     make(map[byte]*Node),
		threshold: DefaultUnresponsiveThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordAttempt folds one transaction outcome into the node's entry,
// creating the entry on first contact. State transitions:
//
//   - fault-classified response: Faulted
//   - power response: Activated (activate or clear fault) or Deactivated
//   - load-parameters response: Confirmed set, state untouched
//   - timeout: Failures incremented; at the threshold, Unresponsive
//   - transport failure: attempt counted, state untouched
//
// Entries are never deleted; an address that stopped answering keeps its
// history with State Unresponsive.
func (r *Registry) RecordAttempt(addr byte, att Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[addr]
	if !ok {
		node = &Node{Address: addr}
		r.nodes[addr] = node
	}
	node.Attempts++

	if att.Err == nil && att.Response != nil {
		r.recordSuccess(node, att)
		return
	}
	if GetErrorType(att.Err) == ErrorTypeTimeout {
		node.Failures++
		if node.Failures >= r.threshold {
			node.State = StateUnresponsive
		}
	}
	// Transport-class failures say nothing about the node itself.
}

func (r *Registry) recordSuccess(node *Node, att Attempt) {
	node.Failures = 0
	node.LastSeen = time.Now()
	node.LastResponse = att.Response.clone()

	if r.classifier != nil && r.classifier(att.Response) {
		node.State = StateFaulted
		return
	}
	switch att.Request.Type {
	case CommandPower:
		if action, ok := att.Request.PowerAction(); ok {
			switch action {
			case PowerActivate, PowerClearFault:
				node.State = StateActivated
			case PowerDeactivate:
				node.State = StateDeactivated
			}
		}
	case CommandLoadParams:
		node.Confirmed = true
	}
}

// Get returns a copy of the entry for addr.
func (r *Registry) Get(addr byte) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	node, ok := r.nodes[addr]
	if !ok {
		return Node{}, false
	}
	return *node, true
}

// All returns copies of every entry in ascending address order.
func (r *Registry) All() []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		out = append(out, *node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Responsive returns the addresses currently known to be alive, meaning
// Activated, Deactivated or Faulted, in ascending order. Faulted counts:
// a node that answers with a fault is present on the bus.
func (r *Registry) Responsive() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]byte, 0, len(r.nodes))
	for addr, node := range r.nodes {
		switch node.State {
		case StateActivated, StateDeactivated, StateFaulted:
			out = append(out, addr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of tracked addresses.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// AddressRange is an inclusive run of node addresses.
type AddressRange struct {
	Start byte
	End   byte
}

// String renders the range as "0x08-0x0a", or a single address when the
// range holds one.
func (ar AddressRange) String() string {
	if ar.Start == ar.End {
		return fmt.Sprintf("0x%02x", ar.Start)
	}
	return fmt.Sprintf("0x%02x-0x%02x", ar.Start, ar.End)
}

// Contains reports whether addr falls inside the range.
func (ar AddressRange) Contains(addr byte) bool {
	return addr >= ar.Start && addr <= ar.End
}

// GroupContiguous merges the responsive addresses into ascending runs.
// Two neighbors join the same run when the count of missing addresses
// between them is at most tolerance; tolerance 0 groups strictly
// consecutive addresses. Actuator chains are daisy-wired with sequential
// addresses, so the runs usually map one-to-one onto physical chains.
func (r *Registry) GroupContiguous(tolerance int) []AddressRange {
	if tolerance < 0 {
		tolerance = 0
	}
	addrs := r.Responsive()
	if len(addrs) == 0 {
		return nil
	}

	var groups []AddressRange
	run := AddressRange{Start: addrs[0], End: addrs[0]}
	for _, addr := range addrs[1:] {
		if int(addr)-int(run.End)-1 <= tolerance {
			run.End = addr
			continue
		}
		groups = append(groups, run)
		run = AddressRange{Start: addr, End: addr}
	}
	return append(groups, run)
}
