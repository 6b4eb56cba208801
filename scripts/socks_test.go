// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package scripts

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/sockscript"
	"golang.org/x/net/proxy"
)

func TestSOCKS5Request(t *testing.T) {
	tests := []struct {
		name string
		host string
		want []byte
	}{
		{
			name: "name",
			host: "localhost",
			want: append(append([]byte{5, 1, 0, 3, 9}, "localhost"...), 0, 80),
		}, {
			name: "ipv4",
			host: "127.0.0.1",
			want: []byte{5, 1, 0, 1, 127, 0, 0, 1, 0, 80},
		}, {
			name: "ipv6",
			host: "::1",
			want: []byte{5, 1, 0, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 80},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SOCKS5Request(tt.host, 80))
		})
	}
}

func TestSOCKS5ThroughProxyDialer(t *testing.T) {
	tests := []struct {
		name          string
		mode          sockscript.Mode
		deterministic bool
	}{
		{name: "sync", mode: sockscript.Sync},
		{name: "async", mode: sockscript.Async},
		{name: "async sequenced", mode: sockscript.Async, deterministic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sockscript.NewScript()
			SOCKS5Greet(s, tt.mode)
			SOCKS5Connect(s, tt.mode, "localhost", 80)
			s.Write(tt.mode, "GET / HTTP/1.1\r\n")

			var p sockscript.Provider = s.Static(sockscript.WithT(t))
			if tt.deterministic {
				p = s.Deterministic(sockscript.WithT(t))
			}

			f := sockscript.NewFactory(sockscript.WithT(t))
			f.AddSocketDataProvider(p)

			d, err := proxy.SOCKS5("tcp", "proxy:1080", nil, f.Dialer())
			require.NoError(t, err)

			c, err := d.Dial("tcp", "localhost:80")
			require.NoError(t, err)

			_, err = c.Write([]byte("GET / HTTP/1.1\r\n"))
			require.NoError(t, err)
			require.NoError(t, c.Close())

			assert.Equal(t, sockscript.Addr{Net: "tcp", Address: "proxy:1080"}, f.TransportSocket(0).RemoteAddr())
		})
	}
}

func TestSOCKS5Rejected(t *testing.T) {
	s := sockscript.NewScript()
	SOCKS5Greet(s, sockscript.Sync)
	SOCKS5Reply(s, sockscript.Sync, "10.0.0.1", 443, SOCKS5ConnectionRefused)

	f := sockscript.NewFactory(sockscript.WithT(t))
	f.AddSocketDataProvider(s.Static(sockscript.WithT(t)))

	d, err := proxy.SOCKS5("tcp", "proxy:1080", nil, f.Dialer())
	require.NoError(t, err)

	_, err = d.Dial("tcp", "10.0.0.1:443")
	assert.ErrorContains(t, err, "connection refused")
	assert.False(t, f.TransportSocket(0).IsConnected())
}

func TestSOCKS4(t *testing.T) {
	local := net.IPv4(127, 0, 0, 1)

	tests := []struct {
		name    string
		build   func(*sockscript.Script)
		request []byte
		code    byte
	}{
		{
			name: "granted",
			build: func(s *sockscript.Script) {
				SOCKS4Connect(s, sockscript.Sync, local, 80, "")
			},
			request: []byte{4, 1, 0, 80, 127, 0, 0, 1, 0},
			code:    SOCKS4Granted,
		}, {
			name: "rejected",
			build: func(s *sockscript.Script) {
				SOCKS4Reject(s, sockscript.Async, local, 80, "user")
			},
			request: append(append([]byte{4, 1, 0, 80, 127, 0, 0, 1}, "user"...), 0),
			code:    SOCKS4Rejected,
		}, {
			name: "4a",
			build: func(s *sockscript.Script) {
				SOCKS4AConnect(s, sockscript.Async, "example.com", 443, "")
			},
			request: append(append([]byte{4, 1, 1, 187, 0, 0, 0, 1, 0}, "example.com"...), 0),
			code:    SOCKS4Granted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sockscript.NewScript()
			tt.build(s)
			require.Equal(t, 2, s.Steps())
			require.NoError(t, sockscript.VerifySequence(s.Reads(), s.Writes()))

			c := dial(t, s.Static(sockscript.WithT(t)))

			_, err := c.Write(tt.request)
			require.NoError(t, err)

			reply := make([]byte, 8)
			n, err := c.Read(reply)
			require.NoError(t, err)
			assert.Equal(t, 8, n)
			assert.Equal(t, tt.code, reply[1])
		})
	}
}
