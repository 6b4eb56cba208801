// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"context"
	"io"
	"net"
	"time"
)

// Addr is a net.Addr that is never resolved.
type Addr struct {
	Net     string
	Address string
}

func (a Addr) Network() string { return a.Net }
func (a Addr) String() string  { return a.Address }

var _ net.Conn = (*Conn)(nil)

// Conn adapts a Socket for blocking clients written against net.Conn.  When
// an operation is pending, Conn calls pump once and expects the operation to
// have completed afterwards.  Everything still happens on the caller's
// goroutine.
type Conn struct {
	sock Socket
	pump func()
}

// NewConn wraps s.  A nil pump picks one suited to the socket: Run for
// providers that have it, draining the socket's loop otherwise.
func NewConn(s Socket, pump func()) *Conn {
	if pump == nil {
		pump = pumpFor(s)
	}
	return &Conn{sock: s, pump: pump}
}

func pumpFor(s Socket) func() {
	ss, ok := s.(*StreamSocket)
	if !ok {
		return func() {}
	}
	if r, ok := ss.Provider().(interface{ Run() }); ok {
		return r.Run
	}
	return func() {
		ss.Loop().RunUntilIdle()
	}
}

// Connect connects the socket, waiting for an asynchronous connect.
func (c *Conn) Connect() error {
	_, err := c.wait(func(cb Callback) (int, error) {
		return 0, c.sock.Connect(cb)
	})
	return err
}

func (c *Conn) Read(b []byte) (int, error) {
	return c.wait(func(cb Callback) (int, error) {
		return c.sock.Read(b, cb)
	})
}

// Write writes all of b, issuing as many writes as the script takes.
func (c *Conn) Write(b []byte) (int, error) {
	var total int
	for total < len(b) {
		rest := b[total:]
		n, err := c.wait(func(cb Callback) (int, error) {
			return c.sock.Write(rest, cb)
		})
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

func (c *Conn) wait(op func(Callback) (int, error)) (int, error) {
	var (
		done bool
		rn   int
		rerr error
	)

	n, err := op(func(n int, err error) {
		done = true
		rn, rerr = n, err
	})
	if err != ErrIOPending {
		return n, err
	}

	c.pump()
	if !done {
		return 0, ErrStalled
	}
	return rn, rerr
}

func (c *Conn) Close() error {
	return c.sock.Close()
}

func (c *Conn) LocalAddr() net.Addr {
	return c.sock.LocalAddr()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.sock.RemoteAddr()
}

// Socket returns the wrapped socket.
func (c *Conn) Socket() Socket {
	return c.sock
}

// SetDeadline does nothing; nothing here waits on a clock.
func (c *Conn) SetDeadline(time.Time) error      { return nil }
func (c *Conn) SetReadDeadline(time.Time) error  { return nil }
func (c *Conn) SetWriteDeadline(time.Time) error { return nil }

// ConnDialer hands out Conns backed by a factory's providers.  It satisfies
// the dialer interfaces of proxy and client libraries.
type ConnDialer struct {
	f *Factory
}

// Dialer returns a dialer creating sockets from f.
func (f *Factory) Dialer() *ConnDialer {
	return &ConnDialer{f: f}
}

// Dial implements the classic dialer interface.
func (d *ConnDialer) Dial(network, address string) (net.Conn, error) {
	return d.DialContext(context.Background(), network, address)
}

// DialContext creates the next socket for network and connects it.  Datagram
// networks get a DatagramSocket.
func (d *ConnDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := Addr{Net: network, Address: address}

	var s *StreamSocket
	switch network {
	case "udp", "udp4", "udp6":
		ds, err := d.f.CreateDatagramClientSocket(addr)
		if err != nil {
			return nil, err
		}
		s = ds.StreamSocket
	default:
		ts, err := d.f.CreateTransportClientSocket(addr)
		if err != nil {
			return nil, err
		}
		s = ts
	}

	c := NewConn(s, nil)
	if err := c.Connect(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return c, nil
}
