// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package scriptfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/internal/logging"
)

var ErrReplayFailed = errors.New("replay failed")

// Outcome is what one replayed step returned.
type Outcome struct {
	Step sockscript.Step
	N    int
	Err  error
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s -> %d, %v", o.Step, o.N, o.Err)
	}
	return fmt.Sprintf("%s -> %d", o.Step, o.N)
}

// violations collects script violations instead of failing a test.
type violations struct {
	msgs []string
}

func (v *violations) Errorf(format string, args ...any) {
	v.msgs = append(v.msgs, fmt.Sprintf(format, args...))
}

func (v *violations) FailNow() {}

// Replay plays the document against itself: a consumer issues exactly the
// operations each step expects, in step order, over a deterministic provider.
// A document that cannot be played that way fails with ErrReplayFailed.
func Replay(f *File, log *slog.Logger) ([]Outcome, error) {
	if log == nil {
		log = logging.Nop()
	}

	reads, writes, mc, err := f.Tables()
	if err != nil {
		return nil, err
	}
	steps, err := sockscript.Timeline(reads, writes)
	if err != nil {
		return nil, err
	}

	var v violations
	p := sockscript.NewDeterministicProvider(reads, writes,
		sockscript.WithT(&v),
		sockscript.WithLogger(log),
		sockscript.WithConnect(mc),
	)
	c := sockscript.NewConn(sockscript.NewStreamSocket(p, sockscript.WithT(&v), sockscript.WithLogger(log)), nil)
	defer c.Close()

	err = c.Connect()
	if mc.Err != nil {
		if !errors.Is(err, mc.Err) {
			return nil, fmt.Errorf("%w: connect returned %v, want %v", ErrReplayFailed, err, mc.Err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrReplayFailed, err)
	}

	var (
		outcomes []Outcome
		hung     bool
	)
	for _, step := range steps {
		var o Outcome
		switch step.Op {
		case "read":
			o, hung = replayRead(c, step, reads[step.Index])
		case "write":
			o = replayWrite(c, step, writes[step.Index])
		}
		outcomes = append(outcomes, o)

		log.Debug("replayed", logging.Step(step.Seq), logging.Op(step.Op), logging.Bytes(o.N), logging.Error(o.Err))

		if errors.Is(o.Err, ErrReplayFailed) {
			return outcomes, o.Err
		}
		if len(v.msgs) > 0 {
			return outcomes, fmt.Errorf("%w at step %d: %s", ErrReplayFailed, step.Seq, v.msgs[0])
		}
		if hung {
			break
		}
	}

	if !hung && (!p.AllReadDataConsumed() || !p.AllWriteDataConsumed()) {
		return outcomes, fmt.Errorf("%w: script not consumed", ErrReplayFailed)
	}

	return outcomes, nil
}

// replayRead reads what r scripts and reports whether the read hung.
func replayRead(c *sockscript.Conn, step sockscript.Step, r sockscript.MockRead) (Outcome, bool) {
	o := Outcome{Step: step}

	if r.IsHang() {
		o.N, o.Err = c.Read(make([]byte, 1))
		if !errors.Is(o.Err, sockscript.ErrStalled) {
			o.Err = fmt.Errorf("%w: read did not hang: %v", ErrReplayFailed, o.Err)
		}
		return o, true
	}

	switch want := r.Result.(type) {
	case sockscript.Payload:
		buf := make([]byte, max(len(want), 1))
		o.N, o.Err = c.Read(buf)
		switch {
		case len(want) > 0 && o.Err != nil:
			o.Err = fmt.Errorf("%w: read: %v", ErrReplayFailed, o.Err)
		case len(want) == 0 && o.Err != io.EOF:
			o.Err = fmt.Errorf("%w: want EOF, got %v", ErrReplayFailed, o.Err)
		case len(want) > 0 && o.Err == nil && !bytes.Equal(buf[:o.N], want):
			o.Err = fmt.Errorf("%w: read %q, want %q", ErrReplayFailed, buf[:o.N], []byte(want))
		}
	case sockscript.Status:
		o.N, o.Err = c.Read(make([]byte, 1))
		if !errors.Is(o.Err, want.Err) {
			o.Err = fmt.Errorf("%w: read returned %v, want %v", ErrReplayFailed, o.Err, want.Err)
		}
	}
	return o, false
}

func replayWrite(c *sockscript.Conn, step sockscript.Step, w sockscript.MockWrite) Outcome {
	o := Outcome{Step: step}

	switch want := w.Result.(type) {
	case sockscript.Payload:
		o.N, o.Err = c.Write(want)
		if o.Err != nil {
			o.Err = fmt.Errorf("%w: write: %v", ErrReplayFailed, o.Err)
		}
	case sockscript.Status:
		if want.Err == nil {
			o.N, o.Err = c.Write([]byte("any"))
			if o.Err != nil {
				o.Err = fmt.Errorf("%w: write: %v", ErrReplayFailed, o.Err)
			}
			break
		}
		o.N, o.Err = c.Write([]byte("x"))
		if !errors.Is(o.Err, want.Err) {
			o.Err = fmt.Errorf("%w: write returned %v, want %v", ErrReplayFailed, o.Err, want.Err)
		}
	}
	return o
}
