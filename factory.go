// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"log/slog"
	"net"

	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/sockscript/internal/logging"
)

// Factory hands out sockets bound to registered providers in the order the
// providers were added.  Stream and datagram sockets draw from the same list;
// TLS sockets draw from their own.
type Factory struct {
	t    TestingT
	log  *slog.Logger
	loop *Loop

	providers []Provider
	next      int
	ssl       []*SSLProvider
	nextSSL   int

	transports []*StreamSocket
	tls        []*SSLSocket
	datagrams  []*DatagramSocket
}

// NewFactory creates an empty factory.  Sockets it creates share one loop,
// given with WithLoop or created here.
func NewFactory(opts ...Option) *Factory {
	c := newConfig(opts)

	f := Factory{
		t:    c.t,
		log:  c.log,
		loop: c.loop,
	}
	if f.loop == nil {
		f.loop = NewLoop()
		f.loop.SetLogger(f.log)
	}
	return &f
}

// AddSocketDataProvider registers p for the next stream or datagram socket.
func (f *Factory) AddSocketDataProvider(p Provider) {
	f.providers = append(f.providers, p)
}

// AddSSLSocketDataProvider registers p for the next TLS socket.
func (f *Factory) AddSSLSocketDataProvider(p *SSLProvider) {
	f.ssl = append(f.ssl, p)
}

// CreateTransportClientSocket binds a stream socket to addr and the next
// provider.
func (f *Factory) CreateTransportClientSocket(addr net.Addr) (*StreamSocket, error) {
	p, err := f.nextProvider("transport", addr)
	if err != nil {
		return nil, err
	}

	s := NewStreamSocket(p, f.socketOptions(addr)...)
	f.transports = append(f.transports, s)
	return s, nil
}

// CreateDatagramClientSocket binds a datagram socket to addr and the next
// provider.
func (f *Factory) CreateDatagramClientSocket(addr net.Addr) (*DatagramSocket, error) {
	p, err := f.nextProvider("datagram", addr)
	if err != nil {
		return nil, err
	}

	s := NewDatagramSocket(p, f.socketOptions(addr)...)
	f.datagrams = append(f.datagrams, s)
	return s, nil
}

// CreateSSLClientSocket wraps transport in a TLS socket bound to the next TLS
// provider.
func (f *Factory) CreateSSLClientSocket(transport Socket, host string) (*SSLSocket, error) {
	if f.nextSSL >= len(f.ssl) {
		helper(f.t)
		require.Failf(f.t, "no TLS provider left",
			"TLS socket %d for %s requested, %d registered", f.nextSSL, host, len(f.ssl))
		return nil, ErrNoProvider
	}

	p := f.ssl[f.nextSSL]
	f.nextSSL++

	s := NewSSLSocket(transport, host, p, WithT(f.t), WithLogger(f.log), WithLoop(f.loop))
	f.tls = append(f.tls, s)
	f.log.Debug("tls socket", slog.String("host", host), logging.Index(len(f.tls)-1))
	return s, nil
}

// ResetNextMockIndexes starts handing out the registered providers from the
// beginning again.  The providers themselves are not reset.
func (f *Factory) ResetNextMockIndexes() {
	f.next = 0
	f.nextSSL = 0
}

// TransportSocket returns the i-th stream socket created.
func (f *Factory) TransportSocket(i int) *StreamSocket {
	return f.transports[i]
}

// SSLSocket returns the i-th TLS socket created.
func (f *Factory) SSLSocket(i int) *SSLSocket {
	return f.tls[i]
}

// DatagramSocket returns the i-th datagram socket created.
func (f *Factory) DatagramSocket(i int) *DatagramSocket {
	return f.datagrams[i]
}

// TransportSockets returns how many stream sockets were created.
func (f *Factory) TransportSockets() int {
	return len(f.transports)
}

// Loop returns the loop shared by the factory's sockets.
func (f *Factory) Loop() *Loop {
	return f.loop
}

func (f *Factory) nextProvider(kind string, addr net.Addr) (Provider, error) {
	if f.next >= len(f.providers) {
		helper(f.t)
		require.Failf(f.t, "no socket data provider left",
			"%s socket %d for %s requested, %d registered", kind, f.next, addr, len(f.providers))
		return nil, ErrNoProvider
	}

	p := f.providers[f.next]
	f.log.Debug("socket", slog.String("kind", kind), logging.Addr(addr), logging.Index(f.next))
	f.next++
	return p, nil
}

func (f *Factory) socketOptions(addr net.Addr) []Option {
	return []Option{
		WithT(f.t),
		WithLogger(f.log),
		WithLoop(f.loop),
		WithRemoteAddr(addr),
	}
}
