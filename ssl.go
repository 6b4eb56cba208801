// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"crypto/tls"
	"log/slog"
	"net"

	"github.com/stretchr/testify/assert"
	"github.com/xmidt-org/sockscript/internal/logging"
)

// SSLProvider scripts a TLS handshake on top of a transport socket.  The data
// itself flows through the transport's provider unencrypted.
type SSLProvider struct {
	// Connect is the outcome of the handshake.
	Connect MockConnect

	// NegotiatedProtocol is the ALPN protocol reported after the handshake.
	NegotiatedProtocol string

	// Version is the TLS version reported after the handshake.
	Version uint16

	// CertRequested reports that the server asked for a client certificate.
	CertRequested bool

	// ExpectedHost, when set, must match the host the socket is created for.
	ExpectedHost string

	// Used is set once a socket performed the handshake.
	Used bool
}

// NewSSLProvider scripts a handshake completing with err in the given mode.
func NewSSLProvider(mode Mode, err error) *SSLProvider {
	return &SSLProvider{
		Connect: MockConnect{Mode: mode, Err: err},
		Version: tls.VersionTLS13,
	}
}

var _ Socket = (*SSLSocket)(nil)

// SSLSocket runs a scripted handshake over a transport Socket and then
// forwards reads and writes to it.
type SSLSocket struct {
	transport Socket
	provider  *SSLProvider
	host      string
	loop      *Loop
	t         TestingT
	log       *slog.Logger

	connected  bool
	connecting bool
	closed     bool
}

// NewSSLSocket wraps transport.  The handshake outcome comes from p.
func NewSSLSocket(transport Socket, host string, p *SSLProvider, opts ...Option) *SSLSocket {
	c := newConfig(opts)

	s := SSLSocket{
		transport: transport,
		provider:  p,
		host:      host,
		loop:      c.loop,
		t:         c.t,
		log:       c.log,
	}

	if s.loop == nil {
		s.loop = NewLoop()
		s.loop.SetLogger(c.log)
	}

	if p.ExpectedHost != "" {
		helper(s.t)
		assert.Equal(s.t, p.ExpectedHost, host, "unexpected TLS host")
	}

	return &s
}

// Connect connects the transport if needed and then performs the handshake.
func (s *SSLSocket) Connect(cb Callback) error {
	if s.closed {
		return ErrConnectionClosed
	}
	if s.connected {
		return nil
	}
	if s.connecting {
		helper(s.t)
		assert.Fail(s.t, "connect already pending")
		return ErrUnexpected
	}

	if !s.transport.IsConnected() {
		err := s.transport.Connect(func(_ int, err error) {
			if err == nil {
				err = s.handshake(cb)
				if err == ErrIOPending {
					return
				}
			}
			if cb != nil {
				cb(0, err)
			}
		})
		if err != nil {
			return err
		}
	}

	return s.handshake(cb)
}

func (s *SSLSocket) handshake(cb Callback) error {
	mc := s.provider.Connect
	s.provider.Used = true

	if mc.Mode == Sync {
		return s.handshakeDone(mc.Err)
	}

	s.connecting = true
	s.loop.Post(func() {
		if s.closed || !s.connecting {
			return
		}
		s.connecting = false
		err := s.handshakeDone(mc.Err)
		if cb != nil {
			cb(0, err)
		}
	})
	return ErrIOPending
}

func (s *SSLSocket) handshakeDone(err error) error {
	s.log.Debug("handshake", logging.Addr(s.RemoteAddr()), logging.Error(err))
	if err != nil {
		return err
	}
	s.connected = true
	return nil
}

// Read forwards to the transport.
func (s *SSLSocket) Read(buf []byte, cb Callback) (int, error) {
	if !s.connected {
		return 0, ErrSocketNotConnected
	}
	return s.transport.Read(buf, cb)
}

// Write forwards to the transport.
func (s *SSLSocket) Write(buf []byte, cb Callback) (int, error) {
	if !s.connected {
		return 0, ErrSocketNotConnected
	}
	return s.transport.Write(buf, cb)
}

// Disconnect disconnects the TLS layer and the transport.
func (s *SSLSocket) Disconnect() {
	s.connected = false
	s.connecting = false
	s.transport.Disconnect()
}

// Close closes the transport as well.
func (s *SSLSocket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.connected = false
	s.connecting = false
	return s.transport.Close()
}

// IsConnected implements Socket.
func (s *SSLSocket) IsConnected() bool {
	return s.connected && s.transport.IsConnected()
}

// IsConnectedAndIdle implements Socket.
func (s *SSLSocket) IsConnectedAndIdle() bool {
	return s.connected && s.transport.IsConnectedAndIdle()
}

// LocalAddr implements Socket.
func (s *SSLSocket) LocalAddr() net.Addr {
	return s.transport.LocalAddr()
}

// RemoteAddr implements Socket.
func (s *SSLSocket) RemoteAddr() net.Addr {
	return s.transport.RemoteAddr()
}

// Transport returns the wrapped socket.
func (s *SSLSocket) Transport() Socket {
	return s.transport
}

// CertRequested reports whether the scripted server asked for a client
// certificate.
func (s *SSLSocket) CertRequested() bool {
	return s.provider.CertRequested
}

// ConnectionState reports the scripted outcome of the handshake.
func (s *SSLSocket) ConnectionState() tls.ConnectionState {
	return tls.ConnectionState{
		Version:            s.provider.Version,
		HandshakeComplete:  s.connected,
		NegotiatedProtocol: s.provider.NegotiatedProtocol,
		ServerName:         s.host,
	}
}
