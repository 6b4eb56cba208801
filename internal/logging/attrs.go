// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package logging holds the slog attributes and logger setup shared by the
// packages of this module.
package logging

import (
	"fmt"
	"log/slog"
)

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Op names the direction of a scripted operation: read, write or connect.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}

func Step(step int) slog.Attr {
	return slog.Int("step", step)
}

func Seq(seq int) slog.Attr {
	return slog.Int("seq", seq)
}

func Index(i int) slog.Attr {
	return slog.Int("index", i)
}

func Mode(m fmt.Stringer) slog.Attr {
	return slog.String("mode", m.String())
}

func Entry(e fmt.Stringer) slog.Attr {
	return slog.String("entry", e.String())
}

func Addr(addr fmt.Stringer) slog.Attr {
	if addr == nil {
		return slog.String("addr", "<nil>")
	}
	return slog.String("addr", addr.String())
}

func Service(name string) slog.Attr {
	return slog.String("service", name)
}

func Bytes(n int) slog.Attr {
	return slog.Int("bytes", n)
}

// Stop is the step a sequencer stops at.  Negative means never.
func Stop(step int) slog.Attr {
	return slog.Int("stop", step)
}
