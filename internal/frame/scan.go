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

package frame

import "bytes"

// FindTerminator returns the index of the first terminator pair (0x0D
// immediately followed by 0x0A) in buf, or -1 if the buffer contains no
// complete terminator. A lone 0x0D or 0x0A is not a boundary; payload bytes
// may legitimately equal either value.
func FindTerminator(buf []byte) int {
	for start := 0; start < len(buf); {
		i := bytes.IndexByte(buf[start:], Terminator1)
		if i < 0 {
			return -1
		}
		i += start
		if i+1 < len(buf) && buf[i+1] == Terminator2 {
			return i
		}
		start = i + 1
	}
	return -1
}

// HasPrefix reports whether buf begins with the two-byte "AT" prefix.
func HasPrefix(buf []byte) bool {
	return len(buf) >= PrefixLength && buf[0] == Prefix1 && buf[1] == Prefix2
}

// IsChatter reports whether span is one of the adapter's own status frames.
// The comparison is exact; chatter frames are fixed byte strings.
func IsChatter(span []byte) bool {
	return bytes.Equal(span, ChatterOK) ||
		bytes.Equal(span, ChatterJ) ||
		bytes.Equal(span, ChatterM)
}
