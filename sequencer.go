// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"github.com/stretchr/testify/assert"
	"github.com/xmidt-org/sockscript/internal/logging"
)

// DeterministicProvider completes reads and writes strictly in the order of
// their sequence numbers, no matter in which order the code under test issues
// them.
//
// Every consumed read or write advances the step counter by one.  A
// synchronous entry completes when it is issued on its own step.  An
// asynchronous entry always returns ErrIOPending; its continuation runs once
// Run or RunFor reaches its step.
type DeterministicProvider struct {
	StaticProvider

	sock         delegate
	loop         *Loop
	step         int
	stopAt       int
	stopped      bool
	running      bool
	currentRead  MockRead
	currentWrite MockWrite
}

// NewDeterministicProvider creates a sequencer over the given tables.  The
// tables are not checked here; see VerifySequence.
func NewDeterministicProvider(reads []MockRead, writes []MockWrite, opts ...Option) *DeterministicProvider {
	p := DeterministicProvider{
		StaticProvider: *NewStaticProvider(reads, writes, opts...),
	}
	p.rewind()
	return &p
}

func (p *DeterministicProvider) rewind() {
	p.step = 0
	p.stopAt = -1
	p.stopped = false
	p.currentRead = MockRead{Seq: -1}
	p.currentWrite = MockWrite{Seq: -1}
}

func (p *DeterministicProvider) attach(c completer, loop *Loop) func() {
	p.loop = loop
	return p.sock.set(c)
}

// GetNextRead implements Provider.
func (p *DeterministicProvider) GetNextRead() MockRead {
	next := p.PeekRead()
	if p.atReadEOF() {
		return next
	}
	if next.isPeerCloseMarker() {
		return p.StaticProvider.GetNextRead()
	}

	p.currentRead = next

	if p.stopped && next.Mode == Sync {
		p.trace("stopped", "read", next)
		return failedRead(ErrStopped)
	}

	if next.Mode == Sync && next.Seq != p.step {
		helper(p.t)
		assert.Failf(p.t, "read out of turn",
			"synchronous %s issued at step %d", next, p.step)
		return failedRead(ErrUnexpected)
	}

	if p.step < next.Seq {
		p.trace("pending", "read", next)
		return pendingRead()
	}

	if next.Mode == Sync {
		p.nextStep()
	}
	p.trace("consume", "read", next)
	return p.StaticProvider.GetNextRead()
}

// OnWrite implements Provider.  The data is checked when the write is issued,
// even when the write completes later.
func (p *DeterministicProvider) OnWrite(data []byte) MockWriteResult {
	next := p.PeekWrite()
	if p.atWriteEOF() {
		return MockWriteResult{Mode: Sync, Err: ErrScriptExhausted}
	}

	p.currentWrite = next

	if p.stopped && next.Mode == Sync {
		p.trace("stopped", "write", next)
		return MockWriteResult{Mode: Sync, Err: ErrStopped}
	}

	if next.Mode == Sync {
		if next.Seq != p.step {
			helper(p.t)
			assert.Failf(p.t, "write out of turn",
				"synchronous %s issued at step %d", next, p.step)
			return MockWriteResult{Mode: Sync, Err: ErrUnexpected}
		}
		p.nextStep()
	}

	p.trace("consume", "write", next)
	return p.StaticProvider.OnWrite(data)
}

// Reset implements Provider.  It rewinds the cursors and the step counter.
func (p *DeterministicProvider) Reset() {
	p.StaticProvider.Reset()
	p.rewind()
}

// Run completes due operations in sequence order until the stopping step is
// reached or nothing more can happen.  Tasks posted to the socket's loop run
// between completions, so continuations may issue further operations which
// complete within the same Run.  Run must not be called from a continuation.
func (p *DeterministicProvider) Run() {
	if p.running {
		helper(p.t)
		assert.Fail(p.t, "nested run", "Run called while already running")
		return
	}

	p.running = true
	p.stopped = false
	p.log.Debug("run", logging.Step(p.step), logging.Stop(p.stopAt))

	for !p.stopped {
		var progressed bool
		if p.loop != nil && p.loop.RunUntilIdle() > 0 {
			progressed = true
		}
		if p.stopped {
			break
		}
		if p.invokeCallbacks() {
			progressed = true
		}
		if !progressed {
			break
		}
	}

	p.stopped = false
	p.running = false
	p.log.Debug("run done", logging.Step(p.step))
}

// RunFor runs for n steps.
func (p *DeterministicProvider) RunFor(n int) {
	p.StopAfter(n)
	p.Run()
}

// StopAfter stops the sequencer n steps from now.
func (p *DeterministicProvider) StopAfter(n int) {
	p.SetStop(p.step + n)
}

// SetStop stops the sequencer once it reaches step seq, which must lie ahead
// of the current step.  It clears the stopped flag.
func (p *DeterministicProvider) SetStop(seq int) {
	if seq <= p.step {
		helper(p.t)
		assert.Failf(p.t, "stop step behind",
			"stop step %d is not ahead of step %d", seq, p.step)
		return
	}
	p.stopAt = seq
	p.stopped = false
}

// SetStopped stops or restarts the sequencer.  While stopped, synchronous
// operations fail with ErrStopped.
func (p *DeterministicProvider) SetStopped(stopped bool) {
	p.stopped = stopped
}

// Stopped reports whether the sequencer is stopped.
func (p *DeterministicProvider) Stopped() bool {
	return p.stopped
}

// SequenceNumber returns the current step.
func (p *DeterministicProvider) SequenceNumber() int {
	return p.step
}

func (p *DeterministicProvider) nextStep() {
	p.step++
	if p.step == p.stopAt {
		p.log.Debug("stop", logging.Step(p.step))
		p.stopped = true
	}
}

// invokeCallbacks completes at most one pending operation whose entry is due.
// Writes go first.
func (p *DeterministicProvider) invokeCallbacks() bool {
	c := p.sock.get()
	if c == nil {
		return false
	}

	if c.writePending() && p.currentWrite.Seq == p.step {
		p.trace("complete", "write", p.currentWrite)
		p.nextStep()
		c.completeWrite()
		return true
	}

	if c.readPending() && p.currentRead.Seq == p.step {
		p.trace("complete", "read", p.currentRead)
		p.nextStep()
		c.completeRead()
		return true
	}

	return false
}

func (p *DeterministicProvider) trace(stage, op string, e interface{ String() string }) {
	p.log.Debug(stage, logging.Op(op), logging.Step(p.step), logging.Entry(e))
}
