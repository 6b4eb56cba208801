// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"errors"
	"fmt"
)

var (
	// ErrIOPending is returned when an operation will complete later through
	// its callback.
	ErrIOPending = errors.New("io pending")

	// ErrUnexpected signals that the code under test and the script disagree:
	// an out of turn synchronous operation, a write that does not match, or a
	// second operation issued while one is still pending.
	ErrUnexpected = errors.New("unexpected operation")

	ErrConnectionClosed   = errors.New("connection closed")
	ErrConnectionReset    = errors.New("connection reset")
	ErrConnectionRefused  = errors.New("connection refused")
	ErrSocketNotConnected = errors.New("socket is not connected")

	// ErrStopped is returned for synchronous operations attempted while the
	// sequencer is stopped.
	ErrStopped = fmt.Errorf("%w: sequencer stopped", ErrUnexpected)

	// ErrScriptExhausted is returned when the code under test asks for more
	// reads or writes than were scripted.
	ErrScriptExhausted = fmt.Errorf("%w: script exhausted", ErrUnexpected)

	// ErrStalled is returned by Conn when a pending operation is still
	// pending after the script was run as far as it goes.
	ErrStalled = fmt.Errorf("%w: operation stalled", ErrUnexpected)

	// ErrBadSequence is returned by VerifySequence for tables whose sequence
	// numbers are not gap free.
	ErrBadSequence = errors.New("bad sequence numbers")

	// ErrNoProvider is returned by the factory when no provider is left for
	// the requested socket kind.
	ErrNoProvider = errors.New("no socket data provider left")
)

// errPeerCloseMarker never reaches a caller.  It marks a read entry that only
// tells the socket the peer closed the connection after the next read.
var errPeerCloseMarker = errors.New("peer close after next read")

// MismatchError describes a write whose bytes differ from the script.
type MismatchError struct {
	Index    int
	Expected []byte
	Actual   []byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("write %d: expected %q, got %q", e.Index, e.Expected, e.Actual)
}

// Is reports a MismatchError as ErrUnexpected.
func (e *MismatchError) Is(target error) bool {
	return target == ErrUnexpected
}
