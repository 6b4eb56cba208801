// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"github.com/stretchr/testify/assert"
	"github.com/xmidt-org/sockscript/internal/logging"
)

// SequencedProvider enforces the same ordering as DeterministicProvider but
// advances by itself: due asynchronous completions are posted to the socket's
// loop, so draining the loop runs the script.  Pause holds the script at a
// step until Resume.
type SequencedProvider struct {
	StaticProvider

	sock         delegate
	loop         *Loop
	step         int
	pauseAt      int
	paused       bool
	poked        bool
	currentRead  MockRead
	currentWrite MockWrite
}

// NewSequencedProvider creates a self advancing sequencer over the tables.
func NewSequencedProvider(reads []MockRead, writes []MockWrite, opts ...Option) *SequencedProvider {
	p := SequencedProvider{
		StaticProvider: *NewStaticProvider(reads, writes, opts...),
	}
	p.rewind()
	return &p
}

func (p *SequencedProvider) rewind() {
	p.step = 0
	p.pauseAt = -1
	p.paused = false
	p.currentRead = MockRead{Seq: -1}
	p.currentWrite = MockWrite{Seq: -1}
}

func (p *SequencedProvider) attach(c completer, loop *Loop) func() {
	p.loop = loop
	return p.sock.set(c)
}

// GetNextRead implements Provider.  Asynchronous reads are taken off the table
// when issued and delivered once their step comes up.
func (p *SequencedProvider) GetNextRead() MockRead {
	next := p.PeekRead()
	if p.atReadEOF() {
		return next
	}
	if next.isPeerCloseMarker() {
		return p.StaticProvider.GetNextRead()
	}

	p.currentRead = next

	if next.Mode == Sync {
		if err := p.checkSync(next.Seq, next); err != nil {
			return failedRead(err)
		}
		p.nextStep()
	}

	r := p.StaticProvider.GetNextRead()
	p.schedule()
	return r
}

// OnWrite implements Provider.
func (p *SequencedProvider) OnWrite(data []byte) MockWriteResult {
	next := p.PeekWrite()
	if p.atWriteEOF() {
		return MockWriteResult{Mode: Sync, Err: ErrScriptExhausted}
	}

	p.currentWrite = next

	if next.Mode == Sync {
		if err := p.checkSync(next.Seq, next); err != nil {
			return MockWriteResult{Mode: Sync, Err: err}
		}
		p.nextStep()
	}

	res := p.StaticProvider.OnWrite(data)
	p.schedule()
	return res
}

func (p *SequencedProvider) checkSync(seq int, e interface{ String() string }) error {
	if p.paused {
		helper(p.t)
		assert.Failf(p.t, "operation while paused",
			"synchronous %s issued while paused at step %d", e, p.step)
		return ErrUnexpected
	}
	if seq != p.step {
		helper(p.t)
		assert.Failf(p.t, "operation out of turn",
			"synchronous %s issued at step %d", e, p.step)
		return ErrUnexpected
	}
	return nil
}

// Reset implements Provider.
func (p *SequencedProvider) Reset() {
	p.StaticProvider.Reset()
	p.rewind()
}

// Pause holds the script once it reaches step seq.
func (p *SequencedProvider) Pause(seq int) {
	if seq < p.step {
		helper(p.t)
		assert.Failf(p.t, "pause step behind",
			"pause step %d is behind step %d", seq, p.step)
		return
	}
	p.pauseAt = seq
	if seq == p.step {
		p.paused = true
	}
}

// IsPaused reports whether the script is held.
func (p *SequencedProvider) IsPaused() bool {
	return p.paused
}

// Resume releases a paused script.
func (p *SequencedProvider) Resume() {
	if !p.paused {
		helper(p.t)
		assert.Fail(p.t, "resume without pause")
		return
	}
	p.paused = false
	p.pauseAt = -1
	p.log.Debug("resume", logging.Step(p.step))
	p.schedule()
}

// RunUntilPaused drains the loop and reports whether the script paused.  Not
// pausing is a script violation.
func (p *SequencedProvider) RunUntilPaused() bool {
	if p.loop != nil {
		p.loop.RunUntilIdle()
	}
	if !p.paused {
		helper(p.t)
		assert.Failf(p.t, "not paused", "the script ran to step %d without pausing", p.step)
	}
	return p.paused
}

// SequenceNumber returns the current step.
func (p *SequencedProvider) SequenceNumber() int {
	return p.step
}

func (p *SequencedProvider) nextStep() {
	p.step++
	if p.step == p.pauseAt {
		p.log.Debug("pause", logging.Step(p.step))
		p.paused = true
	}
}

// schedule posts a single check for due completions.
func (p *SequencedProvider) schedule() {
	if p.poked || p.loop == nil {
		return
	}
	p.poked = true
	p.loop.Post(p.poke)
}

func (p *SequencedProvider) poke() {
	p.poked = false
	if p.paused {
		return
	}

	c := p.sock.get()
	if c == nil {
		return
	}

	switch {
	case c.writePending() && p.currentWrite.Seq == p.step:
		p.log.Debug("complete", logging.Op("write"), logging.Step(p.step), logging.Entry(p.currentWrite))
		p.nextStep()
		p.schedule()
		c.completeWrite()
	case c.readPending() && p.currentRead.Seq == p.step:
		p.log.Debug("complete", logging.Op("read"), logging.Step(p.step), logging.Entry(p.currentRead))
		p.nextStep()
		p.schedule()
		c.completeRead()
	}
}
