// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package sp speaks the stream framing of the nanomsg scalability protocols:
// an 8 byte connection header followed by frames carrying an 8 byte big
// endian length.
package sp

import (
	"encoding/binary"
	"fmt"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pull"
	"go.nanomsg.org/mangos/v3/protocol/push"
)

const (
	// HeaderSize is the size of the connection header.
	HeaderSize = 8

	// LengthSize is the size of the length prefix of every frame.
	LengthSize = 8

	// DefaultMaxFrame bounds frames when no other limit is given.
	DefaultMaxFrame = 1 << 20
)

// Protocol identities of the push/pull pair.
const (
	Push = uint16(push.Self)
	Pull = uint16(pull.Self)
)

// Header returns the connection header announcing proto.
func Header(proto uint16) []byte {
	h := []byte{0x00, 'S', 'P', 0x00, 0, 0, 0x00, 0x00}
	binary.BigEndian.PutUint16(h[4:6], proto)
	return h
}

// CheckHeader validates a peer's connection header against the expected
// protocol.
func CheckHeader(h []byte, want uint16) error {
	if len(h) != HeaderSize || h[0] != 0x00 || h[1] != 'S' || h[2] != 'P' {
		return mangos.ErrBadHeader
	}
	if h[3] != 0x00 || h[6] != 0x00 || h[7] != 0x00 {
		return mangos.ErrBadVersion
	}
	if got := binary.BigEndian.Uint16(h[4:6]); got != want {
		return fmt.Errorf("%w: peer speaks protocol %d, want %d", mangos.ErrBadProto, got, want)
	}
	return nil
}

// Frame prefixes body with its length.
func Frame(body []byte) []byte {
	f := make([]byte, LengthSize+len(body))
	binary.BigEndian.PutUint64(f, uint64(len(body)))
	copy(f[LengthSize:], body)
	return f
}

// Parser reassembles frames from a byte stream split at arbitrary points.
type Parser struct {
	max  int
	buf  []byte
	want int
}

// NewParser creates a parser rejecting frames larger than max bytes.  A max
// of zero or less means DefaultMaxFrame.
func NewParser(max int) *Parser {
	if max <= 0 {
		max = DefaultMaxFrame
	}
	return &Parser{max: max, want: -1}
}

// Feed consumes data and returns the frames it completed.  A frame over the
// limit fails with mangos.ErrTooLong and leaves the parser unusable.
func (p *Parser) Feed(data []byte) ([][]byte, error) {
	var frames [][]byte

	p.buf = append(p.buf, data...)
	for {
		if p.want < 0 {
			if len(p.buf) < LengthSize {
				break
			}
			n := binary.BigEndian.Uint64(p.buf)
			if n > uint64(p.max) {
				return frames, mangos.ErrTooLong
			}
			p.want = int(n)
			p.buf = p.buf[LengthSize:]
		}

		if len(p.buf) < p.want {
			break
		}

		body := make([]byte, p.want)
		copy(body, p.buf)
		frames = append(frames, body)

		p.buf = p.buf[p.want:]
		p.want = -1
	}

	if len(p.buf) == 0 {
		p.buf = nil
	}
	return frames, nil
}

// Buffered returns the number of bytes held for an incomplete frame.
func (p *Parser) Buffered() int {
	return len(p.buf)
}
