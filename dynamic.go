// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"github.com/eapache/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/sockscript/internal/logging"
)

// WriteHandler reacts to data written to a DynamicProvider.  It usually calls
// SimulateRead to queue the peer's answer.
type WriteHandler func(data []byte) MockWriteResult

// DynamicProvider synthesizes reads in reaction to writes.  It suits
// line oriented protocols where every reply depends on the preceding command.
type DynamicProvider struct {
	base

	onWrite              WriteHandler
	reads                *queue.Queue
	readMode             Mode
	shortReadLimit       int
	allowUnconsumedReads bool
}

// NewDynamicProvider creates a provider that hands every write to onWrite.  A
// nil onWrite accepts all writes in full.
func NewDynamicProvider(onWrite WriteHandler, opts ...Option) *DynamicProvider {
	return &DynamicProvider{
		base:     newBase(opts),
		onWrite:  onWrite,
		reads:    queue.New(),
		readMode: Async,
	}
}

// SetWriteHandler replaces the write handler.  Embedding types use it to hook
// themselves in after construction.
func (p *DynamicProvider) SetWriteHandler(h WriteHandler) {
	p.onWrite = h
}

// SetReadMode sets the mode of reads queued from now on.  The default is Async.
func (p *DynamicProvider) SetReadMode(m Mode) {
	p.readMode = m
}

// SetShortReadLimit makes every read return at most n bytes.  The rest stays
// queued for the following reads.  Zero removes the limit.
func (p *DynamicProvider) SetShortReadLimit(n int) {
	p.shortReadLimit = max(n, 0)
}

// SetAllowUnconsumedReads controls whether a read may be simulated while an
// earlier one is still unread.
func (p *DynamicProvider) SetAllowUnconsumedReads(allow bool) {
	p.allowUnconsumedReads = allow
}

// SimulateRead queues data as the peer's next read.
func (p *DynamicProvider) SimulateRead(data string) {
	p.simulate(MockRead{Mode: p.readMode, Seq: -1, Result: Payload(data)})
}

// SimulateReadError queues a failed read.
func (p *DynamicProvider) SimulateReadError(err error) {
	p.simulate(ReadError(p.readMode, -1, err))
}

func (p *DynamicProvider) simulate(r MockRead) {
	if !p.allowUnconsumedReads && p.reads.Length() > 0 {
		front := p.reads.Peek().(*MockRead)
		helper(p.t)
		assert.Failf(p.t, "unconsumed read", "%s is still queued", front)
	}
	p.log.Debug("simulate read", logging.Entry(r))
	p.reads.Add(&r)
}

// ReadsQueued returns the number of simulated reads not yet consumed.
func (p *DynamicProvider) ReadsQueued() int {
	return p.reads.Length()
}

// GetNextRead implements Provider.
func (p *DynamicProvider) GetNextRead() MockRead {
	if p.reads.Length() == 0 {
		helper(p.t)
		require.Fail(p.t, "read script exhausted", "no simulated read is queued")
		return failedRead(ErrScriptExhausted)
	}

	front := p.reads.Peek().(*MockRead)
	data, ok := front.Result.(Payload)
	if ok && p.shortReadLimit > 0 && len(data) > p.shortReadLimit {
		chunk := MockRead{Mode: front.Mode, Seq: front.Seq, Result: data[:p.shortReadLimit]}
		front.Result = data[p.shortReadLimit:]
		return chunk
	}

	p.reads.Remove()
	return *front
}

// OnWrite implements Provider.
func (p *DynamicProvider) OnWrite(data []byte) MockWriteResult {
	p.log.Debug("write", logging.Bytes(len(data)))
	if p.onWrite == nil {
		return MockWriteResult{Mode: Sync, N: len(data)}
	}
	return p.onWrite(data)
}

// Reset implements Provider.  Queued reads are dropped.
func (p *DynamicProvider) Reset() {
	p.reads = queue.New()
}
