// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"bytes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/sockscript/internal/logging"
)

// Provider serves scripted outcomes to a socket.  Providers differ only in how
// the next read is produced; the contract is the same for all of them.
type Provider interface {
	// ConnectData returns the outcome of Connect.
	ConnectData() MockConnect

	// GetNextRead returns the next read and advances the read cursor.
	GetNextRead() MockRead

	// OnWrite checks data against the next scripted write, advances the write
	// cursor and returns the scripted outcome.
	OnWrite(data []byte) MockWriteResult

	// Reset rewinds the provider so it can serve another connection.
	Reset()
}

var (
	_ Provider = (*StaticProvider)(nil)
	_ Provider = (*DeterministicProvider)(nil)
	_ Provider = (*SequencedProvider)(nil)
	_ Provider = (*DynamicProvider)(nil)
)

// StaticProvider serves fixed read and write tables in order, ignoring
// sequence numbers.
type StaticProvider struct {
	base

	reads      []MockRead
	writes     []MockWrite
	readIndex  int
	writeIndex int
}

// NewStaticProvider creates a provider over the given tables.  The tables are
// not validated; a bad script fails when it is used.
func NewStaticProvider(reads []MockRead, writes []MockWrite, opts ...Option) *StaticProvider {
	return &StaticProvider{
		base:   newBase(opts),
		reads:  reads,
		writes: writes,
	}
}

// PeekRead returns the read at the cursor without consuming it.
func (p *StaticProvider) PeekRead() MockRead {
	if p.readIndex >= len(p.reads) {
		helper(p.t)
		require.Failf(p.t, "read script exhausted",
			"no read at index %d, %d scripted", p.readIndex, len(p.reads))
		return failedRead(ErrScriptExhausted)
	}
	return p.reads[p.readIndex]
}

// PeekWrite returns the write at the cursor without consuming it.
func (p *StaticProvider) PeekWrite() MockWrite {
	if p.writeIndex >= len(p.writes) {
		helper(p.t)
		require.Failf(p.t, "write script exhausted",
			"no write at index %d, %d scripted", p.writeIndex, len(p.writes))
		return MockWrite{Mode: Sync, Seq: -1, Result: Status{Err: ErrScriptExhausted}}
	}
	return p.writes[p.writeIndex]
}

// GetNextRead implements Provider.
func (p *StaticProvider) GetNextRead() MockRead {
	r := p.PeekRead()
	if p.readIndex < len(p.reads) {
		p.log.Debug("read", logging.Index(p.readIndex), logging.Entry(r))
		p.readIndex++
	}
	return r
}

// OnWrite implements Provider.  The expected bytes only have to be a prefix of
// data; the result then reports how many bytes the script accepted.
func (p *StaticProvider) OnWrite(data []byte) MockWriteResult {
	w := p.PeekWrite()
	if p.writeIndex >= len(p.writes) {
		return MockWriteResult{Mode: Sync, Err: ErrScriptExhausted}
	}

	idx := p.writeIndex
	p.writeIndex++
	p.log.Debug("write", logging.Index(idx), logging.Entry(w))

	return p.check(idx, w, data)
}

func (p *StaticProvider) check(idx int, w MockWrite, data []byte) MockWriteResult {
	switch v := w.Result.(type) {
	case Payload:
		actual := data
		if len(actual) > len(v) {
			actual = actual[:len(v)]
		}
		if !bytes.Equal(v, actual) {
			helper(p.t)
			assert.Equal(p.t, string(v), string(actual), "write %d does not match the script", idx)
			return MockWriteResult{
				Mode: Sync,
				Err: &MismatchError{
					Index:    idx,
					Expected: clone(v),
					Actual:   clone(data),
				},
			}
		}
		return MockWriteResult{Mode: w.Mode, N: len(v)}
	case Status:
		if v.Err == nil {
			return MockWriteResult{Mode: w.Mode, N: len(data)}
		}
		return MockWriteResult{Mode: w.Mode, Err: v.Err}
	}

	return MockWriteResult{Mode: Sync, Err: ErrUnexpected}
}

// Reset implements Provider.
func (p *StaticProvider) Reset() {
	p.readIndex = 0
	p.writeIndex = 0
}

// ReadIndex returns the read cursor.
func (p *StaticProvider) ReadIndex() int { return p.readIndex }

// WriteIndex returns the write cursor.
func (p *StaticProvider) WriteIndex() int { return p.writeIndex }

// ReadCount returns the number of scripted reads.
func (p *StaticProvider) ReadCount() int { return len(p.reads) }

// WriteCount returns the number of scripted writes.
func (p *StaticProvider) WriteCount() int { return len(p.writes) }

// AllReadDataConsumed reports whether every scripted read was handed out.
func (p *StaticProvider) AllReadDataConsumed() bool {
	return p.readIndex >= len(p.reads)
}

// AllWriteDataConsumed reports whether every scripted write was matched.
func (p *StaticProvider) AllWriteDataConsumed() bool {
	return p.writeIndex >= len(p.writes)
}

func (p *StaticProvider) atReadEOF() bool  { return p.readIndex >= len(p.reads) }
func (p *StaticProvider) atWriteEOF() bool { return p.writeIndex >= len(p.writes) }
