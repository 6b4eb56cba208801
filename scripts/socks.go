// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package scripts

import (
	"encoding/binary"
	"net"

	"github.com/xmidt-org/sockscript"
)

// SOCKS4 reply codes.
const (
	SOCKS4Granted  byte = 0x5a
	SOCKS4Rejected byte = 0x5b
)

// SOCKS5 reply codes.
const (
	SOCKS5Succeeded          byte = 0x00
	SOCKS5GeneralFailure     byte = 0x01
	SOCKS5NotAllowed         byte = 0x02
	SOCKS5NetworkUnreachable byte = 0x03
	SOCKS5HostUnreachable    byte = 0x04
	SOCKS5ConnectionRefused  byte = 0x05
)

const (
	socks4Version = 0x04
	socks5Version = 0x05
	cmdConnect    = 0x01
	noAuth        = 0x00

	atypIPv4 = 0x01
	atypFQDN = 0x03
	atypIPv6 = 0x04
)

// SOCKS4Connect appends a SOCKS4 connect request to ip:port and the proxy
// granting it.
func SOCKS4Connect(s *sockscript.Script, mode sockscript.Mode, ip net.IP, port uint16, user string) *sockscript.Script {
	return socks4(s, mode, socks4Request(ip, port, user, ""), SOCKS4Granted)
}

// SOCKS4Reject appends a SOCKS4 connect request the proxy turns down.
func SOCKS4Reject(s *sockscript.Script, mode sockscript.Mode, ip net.IP, port uint16, user string) *sockscript.Script {
	return socks4(s, mode, socks4Request(ip, port, user, ""), SOCKS4Rejected)
}

// SOCKS4AConnect appends a SOCKS4a connect request leaving the resolution of
// host to the proxy.
func SOCKS4AConnect(s *sockscript.Script, mode sockscript.Mode, host string, port uint16, user string) *sockscript.Script {
	return socks4(s, mode, socks4Request(net.IPv4(0, 0, 0, 1), port, user, host), SOCKS4Granted)
}

func socks4(s *sockscript.Script, mode sockscript.Mode, req []byte, code byte) *sockscript.Script {
	return s.WriteBytes(mode, req).
		ReadBytes(mode, []byte{0x00, code, 0, 0, 0, 0, 0, 0})
}

func socks4Request(ip net.IP, port uint16, user, host string) []byte {
	req := []byte{socks4Version, cmdConnect}
	req = binary.BigEndian.AppendUint16(req, port)
	req = append(req, ip.To4()...)
	req = append(req, user...)
	req = append(req, 0x00)
	if host != "" {
		req = append(req, host...)
		req = append(req, 0x00)
	}
	return req
}

// SOCKS5Greet appends the method negotiation of a client offering no
// authentication, and the proxy accepting it.
func SOCKS5Greet(s *sockscript.Script, mode sockscript.Mode) *sockscript.Script {
	return s.WriteBytes(mode, []byte{socks5Version, 1, noAuth}).
		ReadBytes(mode, []byte{socks5Version, noAuth})
}

// SOCKS5Connect appends a connect request to host:port and the proxy
// granting it from 127.0.0.1 on the same port.
func SOCKS5Connect(s *sockscript.Script, mode sockscript.Mode, host string, port uint16) *sockscript.Script {
	return SOCKS5Reply(s, mode, host, port, SOCKS5Succeeded)
}

// SOCKS5Reply appends a connect request to host:port answered with code.
func SOCKS5Reply(s *sockscript.Script, mode sockscript.Mode, host string, port uint16, code byte) *sockscript.Script {
	reply := []byte{socks5Version, code, 0x00, atypIPv4, 127, 0, 0, 1}
	reply = binary.BigEndian.AppendUint16(reply, port)

	return s.WriteBytes(mode, SOCKS5Request(host, port)).
		ReadBytes(mode, reply)
}

// SOCKS5Request returns the bytes of a connect request to host:port.
// Literal addresses are sent as such, names as a domain.
func SOCKS5Request(host string, port uint16) []byte {
	req := []byte{socks5Version, cmdConnect, 0x00}

	ip := net.ParseIP(host)
	switch {
	case ip != nil && ip.To4() != nil:
		req = append(req, atypIPv4)
		req = append(req, ip.To4()...)
	case ip != nil:
		req = append(req, atypIPv6)
		req = append(req, ip.To16()...)
	default:
		req = append(req, atypFQDN, byte(len(host)))
		req = append(req, host...)
	}

	return binary.BigEndian.AppendUint16(req, port)
}
