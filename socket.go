// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/stretchr/testify/assert"
	"github.com/xmidt-org/eventor"
	"github.com/xmidt-org/sockscript/internal/logging"
)

// Callback receives the outcome of an operation that returned ErrIOPending.
type Callback func(n int, err error)

// Socket is the stream socket capability set transport code is written
// against.  Operations that cannot complete at once return ErrIOPending and
// report their outcome through the callback later.
type Socket interface {
	Connect(cb Callback) error
	Read(buf []byte, cb Callback) (int, error)
	Write(buf []byte, cb Callback) (int, error)
	Disconnect()
	IsConnected() bool
	IsConnectedAndIdle() bool
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Close() error
}

var (
	_ Socket    = (*StreamSocket)(nil)
	_ completer = (*StreamSocket)(nil)
)

// StreamSocket is a Socket whose every outcome comes from a Provider.
type StreamSocket struct {
	provider Provider
	loop     *Loop
	t        TestingT
	log      *slog.Logger
	local    net.Addr
	remote   net.Addr
	onClose  eventor.Eventor[func()]
	driven   bool
	detach   func()
	datagram bool

	connected      bool
	connecting     bool
	closed         bool
	everUsed       bool
	peerClosed     bool
	closeAfterRead bool

	readPend  bool
	readEntry MockRead
	readBuf   []byte
	readCB    Callback
	remainder []byte

	writePend   bool
	writeResult MockWriteResult
	writeLen    int
	writeCB     Callback
}

// NewStreamSocket binds a socket to p.  Providers that sequence completions
// themselves drive the socket; for all others asynchronous completions are
// posted to the loop given with WithLoop, or to a private one.
func NewStreamSocket(p Provider, opts ...Option) *StreamSocket {
	c := newConfig(opts)

	s := StreamSocket{
		provider: p,
		loop:     c.loop,
		t:        c.t,
		log:      c.log,
		local:    c.local,
		remote:   c.remote,
	}

	if s.loop == nil {
		s.loop = NewLoop()
		s.loop.SetLogger(s.log)
	}

	if d, ok := p.(driver); ok {
		s.driven = true
		s.detach = d.attach(&s, s.loop)
	}

	return &s
}

// Connect implements Socket.
func (s *StreamSocket) Connect(cb Callback) error {
	if s.closed {
		return ErrConnectionClosed
	}
	if s.connected {
		return nil
	}
	if s.connecting {
		return s.unexpected("connect already pending")
	}

	mc := s.provider.ConnectData()
	if mc.PeerAddr != nil {
		s.remote = mc.PeerAddr
	}

	if mc.Mode == Sync {
		return s.connectDone(mc.Err)
	}

	s.connecting = true
	s.loop.Post(func() {
		if s.closed || !s.connecting {
			return
		}
		s.connecting = false
		err := s.connectDone(mc.Err)
		if cb != nil {
			cb(0, err)
		}
	})
	return ErrIOPending
}

func (s *StreamSocket) connectDone(err error) error {
	s.log.Debug("connect", logging.Addr(s.remote), logging.Error(err))
	if err != nil {
		return err
	}
	s.connected = true
	s.peerClosed = false
	return nil
}

// Read implements Socket.  A scripted payload larger than buf is handed out
// over several reads; the rest is served without consulting the provider.
func (s *StreamSocket) Read(buf []byte, cb Callback) (int, error) {
	if !s.connected {
		return 0, ErrSocketNotConnected
	}
	if s.readPend {
		return 0, s.unexpected("read already pending")
	}

	if len(s.remainder) > 0 {
		return s.drain(buf), nil
	}

	r := s.nextRead()
	if r.Mode == Sync && !r.isNotDue() {
		return s.deliver(r, buf)
	}

	s.readPend = true
	s.readEntry = r
	s.readBuf = buf
	s.readCB = cb

	if !s.driven && !r.isPending() {
		s.loop.Post(s.completeRead)
	}
	return 0, ErrIOPending
}

// Write implements Socket.  The provider decides how much of buf is taken.
func (s *StreamSocket) Write(buf []byte, cb Callback) (int, error) {
	if !s.connected {
		return 0, ErrSocketNotConnected
	}
	if s.writePend {
		return 0, s.unexpected("write already pending")
	}

	res := s.provider.OnWrite(buf)
	if res.Mode == Sync {
		return s.wrote(res, len(buf))
	}

	s.writePend = true
	s.writeResult = res
	s.writeCB = cb
	s.writeLen = len(buf)

	if !s.driven && !errors.Is(res.Err, ErrIOPending) {
		s.loop.Post(s.completeWrite)
	}
	return 0, ErrIOPending
}

// Disconnect marks the socket as not connected.  Pending continuations are
// left alone.
func (s *StreamSocket) Disconnect() {
	s.connected = false
	s.connecting = false
}

// Close disconnects the socket and drops its pending continuations; they never
// run.  Closing from inside one of the socket's own callbacks is fine.
func (s *StreamSocket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.Disconnect()

	s.readPend = false
	s.readCB = nil
	s.readBuf = nil
	s.writePend = false
	s.writeCB = nil
	s.remainder = nil

	if s.detach != nil {
		s.detach()
	}

	var listeners []func()
	s.onClose.Visit(func(f func()) {
		listeners = append(listeners, f)
	})
	for _, f := range listeners {
		f()
	}

	s.log.Debug("closed", logging.Addr(s.remote))
	return nil
}

// OnClose registers f to run once when the socket is closed.  The returned func
// removes it.
func (s *StreamSocket) OnClose(f func()) func() {
	return s.onClose.Add(f)
}

// IsConnected implements Socket.
func (s *StreamSocket) IsConnected() bool {
	return s.connected
}

// IsConnectedAndIdle implements Socket.  A socket whose peer has closed, or
// with unread data, is not idle.
func (s *StreamSocket) IsConnectedAndIdle() bool {
	return s.connected && !s.peerClosed && len(s.remainder) == 0
}

// LocalAddr implements Socket.
func (s *StreamSocket) LocalAddr() net.Addr {
	return s.local
}

// RemoteAddr implements Socket.
func (s *StreamSocket) RemoteAddr() net.Addr {
	return s.remote
}

// WasEverUsed reports whether any data was read or written.
func (s *StreamSocket) WasEverUsed() bool {
	return s.everUsed
}

// HasBufferedRead reports whether part of a scripted read is still unread.
func (s *StreamSocket) HasBufferedRead() bool {
	return len(s.remainder) > 0
}

// Provider returns the provider the socket is bound to.
func (s *StreamSocket) Provider() Provider {
	return s.provider
}

// Loop returns the loop the socket posts completions to.
func (s *StreamSocket) Loop() *Loop {
	return s.loop
}

func (s *StreamSocket) readPending() bool  { return s.readPend }
func (s *StreamSocket) writePending() bool { return s.writePend }

func (s *StreamSocket) completeRead() {
	if s.closed || !s.readPend {
		return
	}

	r := s.readEntry
	if r.isNotDue() {
		r = s.nextRead()
	}
	if r.isPending() {
		// A scripted hang, or still not due.
		s.readEntry = r
		return
	}

	cb, buf := s.readCB, s.readBuf
	s.readPend = false
	s.readCB = nil
	s.readBuf = nil
	s.readEntry = MockRead{}

	n, err := s.deliver(r, buf)
	if cb != nil {
		cb(n, err)
	}
}

func (s *StreamSocket) completeWrite() {
	if s.closed || !s.writePend {
		return
	}
	if errors.Is(s.writeResult.Err, ErrIOPending) {
		return
	}

	cb, res := s.writeCB, s.writeResult
	s.writePend = false
	s.writeCB = nil
	s.writeResult = MockWriteResult{}

	n, err := s.wrote(res, s.writeLen)
	if cb != nil {
		cb(n, err)
	}
}

// nextRead fetches the next read, noting and skipping peer close markers.
func (s *StreamSocket) nextRead() MockRead {
	r := s.provider.GetNextRead()
	for r.isPeerCloseMarker() {
		s.closeAfterRead = true
		r = s.provider.GetNextRead()
	}
	return r
}

func (s *StreamSocket) deliver(r MockRead, buf []byte) (int, error) {
	if err := r.err(); err != nil {
		s.log.Debug("read failed", logging.Error(err))
		return 0, err
	}

	data := r.payload()
	if len(data) == 0 {
		s.log.Debug("read eof")
		s.readDrained()
		return 0, io.EOF
	}

	n := copy(buf, data)
	s.everUsed = true
	if n < len(data) && !s.datagram {
		s.remainder = data[n:]
	} else {
		s.readDrained()
	}

	s.log.Debug("read", logging.Bytes(n))
	return n, nil
}

func (s *StreamSocket) drain(buf []byte) int {
	n := copy(buf, s.remainder)
	s.remainder = s.remainder[n:]
	if len(s.remainder) == 0 {
		s.remainder = nil
		s.readDrained()
	}
	s.log.Debug("read buffered", logging.Bytes(n))
	return n
}

func (s *StreamSocket) readDrained() {
	if s.closeAfterRead {
		s.closeAfterRead = false
		s.peerClosed = true
	}
}

func (s *StreamSocket) wrote(res MockWriteResult, offered int) (int, error) {
	if res.Err != nil {
		s.log.Debug("write failed", logging.Error(res.Err))
		return 0, res.Err
	}
	if s.datagram && res.N != offered {
		return 0, s.unexpected("datagram written in part")
	}
	if res.N > 0 {
		s.everUsed = true
	}
	s.log.Debug("write", logging.Bytes(res.N))
	return res.N, nil
}

func (s *StreamSocket) unexpected(msg string) error {
	helper(s.t)
	assert.Fail(s.t, msg)
	return ErrUnexpected
}
