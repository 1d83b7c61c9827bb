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

/*
Package l91 drives actuator nodes on a shared serial bus through an L91
USB-to-serial bridge.

The bridge speaks an AT-style framed protocol at 921600 baud: every
message is "AT", a command type byte, a 16-bit base address, a node
address, a payload, and a CR LF terminator. Responses carry no request
identity, so the library serializes all traffic through a Session and
pairs each response with the transaction that is currently on the wire.

Features:
  - Frame codec for the observed command set (power control, load
    parameters, jog move) plus tolerant decoding of unknown types
  - Stream reassembly across arbitrarily fragmented serial reads
  - One-at-a-time transactions with timeout and late-response draining
  - Node registry with liveness states and contiguous-chain grouping
  - Bus scanning, presence monitoring and adapter auto-detection
  - UART and WebSocket transports behind one interface

Basic Usage:

	import (
	    "github.com/L91Project/go-l91"
	    "github.com/L91Project/go-l91/transport/uart"
	)

	// Create a UART transport
	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}

	// Create the session and run the bring-up handshake
	session, err := l91.New(transport)
	if err != nil {
	    log.Fatal(err)
	}
	defer session.Close()

	if err := session.Init(); err != nil {
	    log.Fatal(err)
	}

	// Activate node 0x0c and wait for its acknowledgement
	resp, err := session.Transact(l91.NewActivateFrame(0x0c))
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("node answered: %v\n", resp.Type)

	// Jog it gently forward, then stop. Jog frames are write-only;
	// the node moves without acknowledging.
	if err := session.Send(l91.NewJogFrame(0x0c, 0.3, true)); err != nil {
	    log.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)
	_ = session.Send(l91.NewStopFrame(0x0c))

Scanning a bus:

	scanner, err := scan.NewScanner(session, nil)
	if err != nil {
	    log.Fatal(err)
	}
	result, err := scanner.Scan(context.Background())
	if err != nil {
	    log.Fatal(err)
	}
	for _, group := range result.Groups {
	    fmt.Printf("chain %s\n", group)
	}

Error Handling:

All operations return meaningful errors that can be inspected:

	if errors.Is(err, l91.ErrTransactionTimeout) {
	    // Address did not answer
	}

Thread Safety:

A Session is safe for concurrent use; callers queue on its internal
mutex and transactions complete in issue order. The Registry is safe for
concurrent reads alongside one writer. Everything else is plain data.
*/
package l91
