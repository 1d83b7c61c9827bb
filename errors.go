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
	"errors"
	"fmt"
)

// Transport errors
var (
	// ErrTransportTimeout indicates a transport operation timed out
	ErrTransportTimeout = errors.New("transport operation timeout")
	// ErrTransportRead indicates a transport read failure
	ErrTransportRead = errors.New("transport read failed")
	// ErrTransportWrite indicates a transport write failure
	ErrTransportWrite = errors.New("transport write failed")
	// ErrCommunicationFailed indicates general communication failure with the adapter
	ErrCommunicationFailed = errors.New("communication with adapter failed")
	// ErrFrameCorrupted indicates a received byte span could not be decoded as a frame
	ErrFrameCorrupted = errors.New("frame corrupted")
	// ErrBufferOverflow indicates the reassembly buffer grew past its limit
	// without producing a terminator
	ErrBufferOverflow = errors.New("reassembly buffer overflow")
)

// Codec errors
var (
	// ErrBadPrefix indicates a byte span that does not begin with the "AT" prefix
	ErrBadPrefix = errors.New("frame does not begin with AT prefix")
	// ErrTruncatedFrame indicates a byte span too short to hold a complete frame
	ErrTruncatedFrame = errors.New("frame truncated")
	// ErrDataTooLarge indicates a payload exceeding the maximum frame size
	ErrDataTooLarge = errors.New("payload too large for frame")
	// ErrUnencodablePayload indicates a payload containing the CR LF terminator
	// pair, which the protocol cannot escape
	ErrUnencodablePayload = errors.New("payload contains terminator sequence")
)

// Session errors
var (
	// ErrTransactionTimeout indicates no complete response frame arrived
	// within the transaction deadline
	ErrTransactionTimeout = errors.New("transaction timeout")
	// ErrSessionClosed indicates an operation on a closed session
	ErrSessionClosed = errors.New("session closed")
	// ErrDeviceNotFound indicates no L91 adapter could be located
	ErrDeviceNotFound = errors.New("adapter not found")
	// ErrInvalidParameter indicates an invalid argument to an operation
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent indicates an error that will not resolve by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient indicates a temporary error worth retrying
	ErrorTypeTransient
	// ErrorTypeTimeout indicates a deadline expiry
	ErrorTypeTimeout
)

// String returns the error type name
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypePermanent:
		return "permanent"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// TransportError wraps an underlying failure with the operation and port
// it occurred on, plus classification for retry logic
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("l91 %s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("l91 %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error with the given classification.
// Retryability follows the classification: permanent errors are not retried.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a transport error for a read deadline expiry
func NewTimeoutError(op, port string) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       ErrTransportTimeout,
		Type:      ErrorTypeTimeout,
		Retryable: true,
	}
}

// NewFrameCorruptedError creates a transport error for an undecodable span
func NewFrameCorruptedError(op, port string) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       ErrFrameCorrupted,
		Type:      ErrorTypeTransient,
		Retryable: true,
	}
}

// NewDataTooLargeError creates a transport error for an oversize payload
func NewDataTooLargeError(op, port string) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       ErrDataTooLarge,
		Type:      ErrorTypePermanent,
		Retryable: false,
	}
}

// IsRetryable returns true if the error is worth retrying. A *TransportError
// carries its own retryability; sentinel errors are classified by kind.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransactionTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed),
		errors.Is(err, ErrFrameCorrupted),
		errors.Is(err, ErrBufferOverflow):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification for an error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransactionTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed),
		errors.Is(err, ErrFrameCorrupted),
		errors.Is(err, ErrBufferOverflow):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
