// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package receiver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xmidt-org/eventor"
	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/internal/logging"
	"github.com/xmidt-org/sockscript/internal/sp"
	"github.com/xmidt-org/wrp-go/v3"
	"go.nanomsg.org/mangos/v3"
)

const defaultReadSize = 4096

type state int

const (
	idle state = iota
	handshaking
	listening
	closed
)

// Receiver is the pull side of a push/pull pair.  It keeps a read pending on
// its socket and hands every decoded message to the registered modifiers.  A
// Receiver is driven by the socket's callbacks and is not safe for concurrent
// use.
type Receiver struct {
	sock      sockscript.Socket
	log       *slog.Logger
	maxFrame  int
	readSize  int
	onMsg     eventor.Eventor[wrp.Modifier]
	onFailure eventor.Eventor[func(error)]

	state  state
	parser *sp.Parser
	buf    []byte
}

// New creates a new Receiver.  The receiver is not started until Listen is
// called.
func New(opts ...Option) (*Receiver, error) {
	r := &Receiver{
		readSize: defaultReadSize,
	}

	opts = append(opts, validate())

	for _, opt := range opts {
		if opt != nil {
			if err := opt.apply(r); err != nil {
				return nil, err
			}
		}
	}

	return r, nil
}

// Listen connects the socket if needed, answers the peer's handshake and
// starts reading.  It is safe to call Listen multiple times.  A closed
// Receiver stays closed.
func (r *Receiver) Listen() error {
	switch r.state {
	case closed:
		return mangos.ErrClosed
	case handshaking, listening:
		return nil
	}

	r.state = handshaking
	r.parser = sp.NewParser(r.maxFrame)
	r.buf = make([]byte, r.readSize)

	if r.sock.IsConnected() {
		r.handshake()
		return nil
	}

	err := r.sock.Connect(func(_ int, err error) {
		if err != nil {
			r.fail(err)
			return
		}
		r.handshake()
	})
	if errors.Is(err, sockscript.ErrIOPending) {
		return nil
	}
	if err != nil {
		r.state = idle
		return err
	}

	r.handshake()
	return nil
}

// Close halts the receiver.  The close listeners learn mangos.ErrClosed.  It
// is safe to call Close multiple times.
func (r *Receiver) Close() error {
	r.fail(mangos.ErrClosed)
	return nil
}

// Listening reports whether the handshake is done and messages are read.
func (r *Receiver) Listening() bool {
	return r.state == listening
}

func (r *Receiver) handshake() {
	sp.WriteAll(r.sock, sp.Header(sp.Pull), func(err error) {
		if err != nil {
			r.fail(err)
			return
		}

		hdr := make([]byte, sp.HeaderSize)
		sp.ReadFull(r.sock, hdr, func(err error) {
			if err == nil {
				err = sp.CheckHeader(hdr, sp.Push)
			}
			if err != nil {
				r.fail(err)
				return
			}
			if r.state != handshaking {
				return
			}

			r.log.Debug("listening", logging.Addr(r.sock.RemoteAddr()))
			r.state = listening
			r.receive()
		})
	})
}

// receive reads until the socket makes it wait.
func (r *Receiver) receive() {
	for r.state == listening {
		n, err := r.sock.Read(r.buf, r.received)
		if errors.Is(err, sockscript.ErrIOPending) {
			return
		}
		if !r.handle(n, err) {
			return
		}
	}
}

func (r *Receiver) received(n int, err error) {
	if r.handle(n, err) {
		r.receive()
	}
}

// handle processes one read and reports whether reading should go on.
func (r *Receiver) handle(n int, err error) bool {
	if err != nil {
		r.fail(err)
		return false
	}

	frames, err := r.parser.Feed(r.buf[:n])
	for _, f := range frames {
		r.dispatch(f)
	}
	if err != nil {
		r.fail(err)
		return false
	}

	return r.state == listening
}

func (r *Receiver) dispatch(frame []byte) {
	var msg wrp.Message
	if err := wrp.NewDecoderBytes(frame, wrp.Msgpack).Decode(&msg); err != nil {
		// If we get any error decoding the message, we ignore it and keep going.
		r.log.Debug("failed to decode message", logging.Bytes(len(frame)), logging.Error(err))
		return
	}

	var modifiers []wrp.Modifier
	r.onMsg.Visit(func(m wrp.Modifier) {
		modifiers = append(modifiers, m)
	})
	for _, m := range modifiers {
		_, _ = m.ModifyWRP(context.Background(), msg)
	}
}

// fail stops the receiver and tells the close listeners why.
func (r *Receiver) fail(err error) {
	if r.state == closed {
		return
	}

	r.state = closed
	_ = r.sock.Close()
	r.log.Debug("closed", logging.Error(err))

	var listeners []func(error)
	r.onFailure.Visit(func(f func(error)) {
		listeners = append(listeners, f)
	})
	for _, f := range listeners {
		f(err)
	}
}
