// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package scripts

import (
	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/internal/sp"
	"github.com/xmidt-org/wrp-go/v3"
)

// SP protocol identities.
const (
	Push = sp.Push
	Pull = sp.Pull
)

// SPHandshake appends the exchange of connection headers as seen by the local
// side: it writes its own header, then reads the peer's.
func SPHandshake(s *sockscript.Script, mode sockscript.Mode, self, peer uint16) *sockscript.Script {
	return s.WriteBytes(mode, sp.Header(self)).
		ReadBytes(mode, sp.Header(peer))
}

// PushHandshake appends the handshake of a push socket dialing a pull socket.
func PushHandshake(s *sockscript.Script, mode sockscript.Mode) *sockscript.Script {
	return SPHandshake(s, mode, Push, Pull)
}

// PullHandshake appends the handshake of a pull socket accepting a push
// socket.
func PullHandshake(s *sockscript.Script, mode sockscript.Mode) *sockscript.Script {
	return SPHandshake(s, mode, Pull, Push)
}

// SPWrite appends a write of body as one frame.
func SPWrite(s *sockscript.Script, mode sockscript.Mode, body []byte) *sockscript.Script {
	return s.WriteBytes(mode, sp.Frame(body))
}

// SPRead appends a read of body as one frame.
func SPRead(s *sockscript.Script, mode sockscript.Mode, body []byte) *sockscript.Script {
	return s.ReadBytes(mode, sp.Frame(body))
}

// WRPWrite appends a write of msg, msgpack encoded and framed.
func WRPWrite(s *sockscript.Script, mode sockscript.Mode, msg wrp.Message) (*sockscript.Script, error) {
	body, err := EncodeWRP(msg)
	if err != nil {
		return s, err
	}
	return SPWrite(s, mode, body), nil
}

// WRPRead appends a read of msg, msgpack encoded and framed.
func WRPRead(s *sockscript.Script, mode sockscript.Mode, msg wrp.Message) (*sockscript.Script, error) {
	body, err := EncodeWRP(msg)
	if err != nil {
		return s, err
	}
	return SPRead(s, mode, body), nil
}

// EncodeWRP encodes msg the way it travels inside a frame.
func EncodeWRP(msg wrp.Message) ([]byte, error) {
	var buf []byte
	if err := wrp.NewEncoderBytes(&buf, wrp.Msgpack).Encode(msg); err != nil {
		return nil, err
	}
	return buf, nil
}
