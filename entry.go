// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"fmt"
	"net"
)

// Mode says whether a scripted operation completes inline or later through
// the caller's callback.
type Mode int

const (
	Sync Mode = iota
	Async
)

func (m Mode) String() string {
	switch m {
	case Sync:
		return "sync"
	case Async:
		return "async"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Result is the outcome carried by a scripted entry.  It is either a Payload
// or a Status, never both.
type Result interface {
	isResult()
}

// Payload is the data a read hands back or the data a write expects.  An
// empty read payload is an EOF.
type Payload []byte

// Status is an outcome without data.  For writes a nil Err accepts whatever
// the caller writes.
type Status struct {
	Err error
}

func (Payload) isResult() {}
func (Status) isResult()  {}

// MockRead is one scripted read.
type MockRead struct {
	Mode   Mode
	Seq    int
	Result Result
}

// MockWrite is one scripted write.
type MockWrite struct {
	Mode   Mode
	Seq    int
	Result Result
}

// MockConnect scripts the outcome of Connect.
type MockConnect struct {
	Mode     Mode
	Err      error
	PeerAddr net.Addr
}

// MockWriteResult is what a provider tells a socket about a write.
type MockWriteResult struct {
	Mode Mode
	N    int
	Err  error
}

// Read scripts a read returning data.
func Read(mode Mode, seq int, data string) MockRead {
	return MockRead{Mode: mode, Seq: seq, Result: Payload(data)}
}

// ReadBytes scripts a read returning a copy of data.
func ReadBytes(mode Mode, seq int, data []byte) MockRead {
	return MockRead{Mode: mode, Seq: seq, Result: Payload(clone(data))}
}

// ReadEOF scripts the peer closing the stream.
func ReadEOF(mode Mode, seq int) MockRead {
	return MockRead{Mode: mode, Seq: seq, Result: Payload{}}
}

// ReadError scripts a failed read.  A nil err is an EOF.
func ReadError(mode Mode, seq int, err error) MockRead {
	if err == nil {
		return ReadEOF(mode, seq)
	}
	return MockRead{Mode: mode, Seq: seq, Result: Status{Err: err}}
}

// ReadHang scripts a read that never completes.
func ReadHang(seq int) MockRead {
	return MockRead{Mode: Async, Seq: seq, Result: Status{Err: ErrIOPending}}
}

// PeerCloseAfterNextRead marks the peer as gone once the following read is
// delivered.  The marker does not occupy a step.
func PeerCloseAfterNextRead() MockRead {
	return MockRead{Mode: Sync, Seq: -1, Result: Status{Err: errPeerCloseMarker}}
}

// Write scripts a write expecting data.
func Write(mode Mode, seq int, data string) MockWrite {
	return MockWrite{Mode: mode, Seq: seq, Result: Payload(data)}
}

// WriteBytes scripts a write expecting a copy of data.
func WriteBytes(mode Mode, seq int, data []byte) MockWrite {
	return MockWrite{Mode: mode, Seq: seq, Result: Payload(clone(data))}
}

// WriteError scripts a failed write.
func WriteError(mode Mode, seq int, err error) MockWrite {
	return MockWrite{Mode: mode, Seq: seq, Result: Status{Err: err}}
}

// WriteAny scripts a write that accepts any data in full.
func WriteAny(mode Mode, seq int) MockWrite {
	return MockWrite{Mode: mode, Seq: seq, Result: Status{}}
}

// Connect scripts a connect outcome.
func Connect(mode Mode, err error) MockConnect {
	return MockConnect{Mode: mode, Err: err}
}

func (r MockRead) String() string {
	return fmt.Sprintf("read(%s seq=%d %s)", r.Mode, r.Seq, describe(r.Result))
}

func (w MockWrite) String() string {
	return fmt.Sprintf("write(%s seq=%d %s)", w.Mode, w.Seq, describe(w.Result))
}

// isPending reports whether the entry is the marker a sequencer hands back
// when the next read is not due yet.
func (r MockRead) isPending() bool {
	s, ok := r.Result.(Status)
	return ok && s.Err == ErrIOPending
}

// isNotDue reports whether the entry is the marker rather than a scripted hang.
func (r MockRead) isNotDue() bool {
	return r.isPending() && r.Seq < 0
}

// IsHang reports whether r is a read that never completes.
func (r MockRead) IsHang() bool {
	return r.isPending() && r.Seq >= 0
}

// IsPeerClose reports whether r is a PeerCloseAfterNextRead marker.
func (r MockRead) IsPeerClose() bool {
	return r.isPeerCloseMarker()
}

func (r MockRead) isPeerCloseMarker() bool {
	s, ok := r.Result.(Status)
	return ok && s.Err == errPeerCloseMarker
}

func (r MockRead) err() error {
	if s, ok := r.Result.(Status); ok {
		return s.Err
	}
	return nil
}

func (r MockRead) payload() Payload {
	if p, ok := r.Result.(Payload); ok {
		return p
	}
	return nil
}

func pendingRead() MockRead {
	return MockRead{Mode: Sync, Seq: -1, Result: Status{Err: ErrIOPending}}
}

func failedRead(err error) MockRead {
	return MockRead{Mode: Sync, Seq: -1, Result: Status{Err: err}}
}

func describe(r Result) string {
	switch v := r.(type) {
	case Payload:
		if len(v) == 0 {
			return "EOF"
		}
		return fmt.Sprintf("%d bytes %q", len(v), []byte(v))
	case Status:
		if v.Err == nil {
			return "any"
		}
		return "error=" + v.Err.Error()
	default:
		return "<nil>"
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
