// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sp

import (
	"errors"
	"io"

	"github.com/xmidt-org/sockscript"
)

// WriteAll writes buf through as many writes as the socket takes and calls
// done once, possibly before returning.
func WriteAll(s sockscript.Socket, buf []byte, done func(error)) {
	for len(buf) > 0 {
		rest := buf
		n, err := s.Write(rest, func(n int, err error) {
			if err == nil && n == 0 {
				err = io.ErrShortWrite
			}
			if err != nil {
				done(err)
				return
			}
			WriteAll(s, rest[n:], done)
		})
		if errors.Is(err, sockscript.ErrIOPending) {
			return
		}
		if err == nil && n == 0 {
			err = io.ErrShortWrite
		}
		if err != nil {
			done(err)
			return
		}
		buf = buf[n:]
	}
	done(nil)
}

// ReadFull fills buf and calls done once, possibly before returning.  A stream
// ending early fails with io.ErrUnexpectedEOF, or io.EOF when nothing was read.
func ReadFull(s sockscript.Socket, buf []byte, done func(error)) {
	readFull(s, buf, 0, done)
}

func readFull(s sockscript.Socket, buf []byte, got int, done func(error)) {
	for got < len(buf) {
		at := got
		n, err := s.Read(buf[at:], func(n int, err error) {
			if err != nil {
				done(eofAt(err, at))
				return
			}
			readFull(s, buf, at+n, done)
		})
		if errors.Is(err, sockscript.ErrIOPending) {
			return
		}
		if err != nil {
			done(eofAt(err, at))
			return
		}
		got += n
	}
	done(nil)
}

func eofAt(err error, got int) error {
	if errors.Is(err, io.EOF) && got > 0 {
		return io.ErrUnexpectedEOF
	}
	return err
}
