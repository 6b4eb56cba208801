// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

// DatagramSocket is the message oriented sibling of StreamSocket.  Every read
// returns one scripted entry; bytes that do not fit the buffer are dropped.
// Every write must be taken by the script as a whole.
type DatagramSocket struct {
	*StreamSocket
}

// NewDatagramSocket binds a datagram socket to p.
func NewDatagramSocket(p Provider, opts ...Option) *DatagramSocket {
	s := NewStreamSocket(p, opts...)
	s.datagram = true
	return &DatagramSocket{StreamSocket: s}
}
