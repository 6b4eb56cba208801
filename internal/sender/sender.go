// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"context"
	"errors"
	"log/slog"

	"github.com/eapache/queue"
	"github.com/xmidt-org/eventor"
	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/internal/logging"
	"github.com/xmidt-org/sockscript/internal/sp"
	"github.com/xmidt-org/wrp-go/v3"
)

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrFailedToSend = errors.New("failed to send message")
)

type state int

const (
	idle state = iota
	dialing
	ready
	closed
)

// Sender pushes WRP messages to a pull peer over a socket.  Messages are
// queued and written one frame at a time as the socket takes them.  A Sender
// is driven by the socket's callbacks and is not safe for concurrent use.
type Sender struct {
	sock    sockscript.Socket
	log     *slog.Logger
	onClose eventor.Eventor[func(error)]

	state   state
	frames  *queue.Queue
	writing bool
	pumping bool
	dialed  []func(error)
}

// New creates a new Sender.  The Sender does not talk to its peer until Dial is
// called.  The option WithSocket is required.
func New(opts ...Option) (*Sender, error) {
	s := Sender{
		frames: queue.New(),
	}

	vadors := []Option{
		validate(),
	}

	opts = append(opts, vadors...)

	for _, opt := range opts {
		if opt != nil {
			if err := opt.apply(&s); err != nil {
				return nil, err
			}
		}
	}

	return &s, nil
}

// Dial connects the socket if needed and performs the push/pull handshake.
// done is called once the handshake finished or failed, possibly before Dial
// returns.  Dialing a dialed Sender only calls done.
func (s *Sender) Dial(done func(error)) {
	if done == nil {
		done = func(error) {}
	}

	switch s.state {
	case ready:
		done(nil)
		return
	case closed:
		done(ErrConnClosed)
		return
	case dialing:
		s.dialed = append(s.dialed, done)
		return
	}

	s.state = dialing
	s.dialed = append(s.dialed, done)

	if s.sock.IsConnected() {
		s.handshake()
		return
	}

	err := s.sock.Connect(func(_ int, err error) {
		s.connected(err)
	})
	if errors.Is(err, sockscript.ErrIOPending) {
		return
	}
	s.connected(err)
}

func (s *Sender) connected(err error) {
	if err != nil {
		s.dialDone(err)
		return
	}
	s.handshake()
}

func (s *Sender) handshake() {
	sp.WriteAll(s.sock, sp.Header(sp.Push), func(err error) {
		if err != nil {
			s.dialDone(err)
			return
		}

		hdr := make([]byte, sp.HeaderSize)
		sp.ReadFull(s.sock, hdr, func(err error) {
			if err == nil {
				err = sp.CheckHeader(hdr, sp.Pull)
			}
			s.dialDone(err)
		})
	})
}

func (s *Sender) dialDone(err error) {
	if s.state != dialing {
		return
	}

	waiting := s.dialed
	s.dialed = nil

	if err != nil {
		s.log.Debug("dial failed", logging.Addr(s.sock.RemoteAddr()), logging.Error(err))
		s.fail(err)
	} else {
		s.log.Debug("dialed", logging.Addr(s.sock.RemoteAddr()))
		s.state = ready
		s.pump()
	}

	for _, f := range waiting {
		f(err)
	}
}

// Close closes the connection to the peer.  Queued messages are dropped.  This
// method is idempotent.
func (s *Sender) Close() error {
	if s.state == closed {
		return nil
	}
	s.shutdown()
	s.visitOnClose(nil)
	return nil
}

// ProcessWRP queues a WRP message for the peer.  Messages queued while the
// Sender dials are sent once the handshake is done.  If the Sender is closed,
// ProcessWRP fails with ErrConnClosed.  A failing write closes the Sender and
// is reported to the close listeners wrapped with ErrFailedToSend.
// ProcessWRP will never return wrp.ErrNotHandled.
func (s *Sender) ProcessWRP(ctx context.Context, msg wrp.Message) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.state == closed {
		return ErrConnClosed
	}

	var buf []byte
	if err := wrp.NewEncoderBytes(&buf, wrp.Msgpack).Encode(msg); err != nil {
		return err
	}

	s.frames.Add(sp.Frame(buf))
	s.pump()
	return nil
}

// Pending returns the number of messages not yet fully written.
func (s *Sender) Pending() int {
	return s.frames.Length()
}

// pump writes queued frames until the socket makes it wait.
func (s *Sender) pump() {
	if s.pumping {
		return
	}

	s.pumping = true
	for !s.writing && s.state == ready && s.frames.Length() > 0 {
		s.writing = true
		sp.WriteAll(s.sock, s.frames.Peek().([]byte), s.wrote)
	}
	s.pumping = false
}

func (s *Sender) wrote(err error) {
	s.writing = false
	if s.state != ready {
		return
	}

	if err != nil {
		s.log.Debug("send failed", logging.Error(err))
		s.fail(errors.Join(err, ErrFailedToSend))
		return
	}

	s.frames.Remove()
	s.pump()
}

// fail closes the Sender and reports err to the close listeners.
func (s *Sender) fail(err error) {
	if s.state == closed {
		return
	}
	s.shutdown()
	s.visitOnClose(err)
}

func (s *Sender) shutdown() {
	s.state = closed
	s.frames = queue.New()
	_ = s.sock.Close()
}

// visitOnClose is a helper function that calls all of the functions registered
// with the onClose eventor.
func (s *Sender) visitOnClose(err error) {
	var listeners []func(error)
	s.onClose.Visit(func(f func(error)) {
		listeners = append(listeners, f)
	})
	for _, f := range listeners {
		f(err)
	}
}
