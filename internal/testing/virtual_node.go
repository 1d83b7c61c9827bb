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

package testing

import (
	"github.com/L91Project/go-l91/internal/frame"
)

// VirtualNode simulates one actuator node on the bus
type VirtualNode struct {
	// Address is the node's bus address
	Address byte
	// Activated tracks the simulated power state
	Activated bool
	// Faulted makes the node answer with status-family frames until a
	// clear-fault command arrives
	Faulted bool
	// Mute makes the node present but silent, like a node whose transceiver
	// died while its address is still wired
	Mute bool
}

// VirtualBus simulates an L91 bridge with a set of nodes behind it. Wire
// it to a mock transport's response function:
//
//	bus := testutil.NewVirtualBus(&testutil.VirtualNode{Address: 0x0c})
//	mock.SetResponseFunc(bus.Respond)
type VirtualBus struct {
	nodes map[byte]*VirtualNode
	// AnswerHandshake makes the bridge reply "OK" to bring-up frames,
	// as CH340-based adapters do; when false the bridge stays silent,
	// as CP210x-based ones do
	AnswerHandshake bool
	// ChatterBeforeAck prepends an adapter chatter frame to every node
	// response, reproducing the interleaving seen in long captures
	ChatterBeforeAck bool
}

// NewVirtualBus creates a bus with the given nodes attached
func NewVirtualBus(nodes ...*VirtualNode) *VirtualBus {
	bus := &VirtualBus{nodes: make(map[byte]*VirtualNode)}
	for _, n := range nodes {
		bus.nodes[n.Address] = n
	}
	return bus
}

// Node returns the attached node at addr, or nil
func (b *VirtualBus) Node(addr byte) *VirtualNode {
	return b.nodes[addr]
}

// Attach adds a node to the bus
func (b *VirtualBus) Attach(n *VirtualNode) {
	b.nodes[n.Address] = n
}

// Respond computes the bus's reply to one written frame. A nil return
// means silence: unknown addresses, mute nodes and unrecognized commands
// all time out on a real bus rather than erroring.
func (b *VirtualBus) Respond(written []byte) []byte {
	if len(written) < 7 || written[0] != 0x41 || written[1] != 0x54 {
		return nil
	}
	if written[2] == 0x2B {
		if b.AnswerHandshake {
			return ChatterOK()
		}
		return nil
	}
	if len(written) < frame.MinFrameLength {
		return nil
	}

	node := b.nodes[written[frame.NodeOffset]]
	if node == nil || node.Mute {
		return nil
	}

	ack := b.nodeReply(node, written)
	if ack == nil {
		return nil
	}
	if b.ChatterBeforeAck {
		return append(ChatterOK(), ack...)
	}
	return ack
}

func (b *VirtualBus) nodeReply(node *VirtualNode, written []byte) []byte {
	cmdType := written[frame.TypeOffset]
	isClearFault := cmdType == 0x00 &&
		len(written) > frame.PayloadOffset &&
		written[frame.PayloadOffset] == 0x03

	if isClearFault {
		node.Faulted = false
		node.Activated = true
		return BuildNodeAckResponse(node.Address)
	}
	if node.Faulted {
		return BuildStatusResponse(node.Address)
	}

	switch cmdType {
	case 0x00:
		if len(written) <= frame.PayloadOffset {
			return nil
		}
		switch written[frame.PayloadOffset] {
		case 0x01:
			node.Activated = true
		case 0x00:
			node.Activated = false
		default:
			return nil
		}
		return BuildNodeAckResponse(node.Address)
	case 0x20, 0x90:
		return BuildNodeAckResponse(node.Address)
	default:
		return nil
	}
}
