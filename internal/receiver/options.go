// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package receiver

import (
	"errors"
	"log/slog"

	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/internal/logging"
	"github.com/xmidt-org/wrp-go/v3"
)

// Option is a functional option for configuring a Receiver.
type Option interface {
	apply(*Receiver) error
}

type errOptionFunc func(*Receiver) error

func (f errOptionFunc) apply(a *Receiver) error {
	return f(a)
}

func optionFunc(f func(*Receiver)) errOptionFunc {
	return errOptionFunc(func(c *Receiver) error {
		f(c)
		return nil
	})
}

// WithSocket sets the socket the Receiver reads from.  This is required.
func WithSocket(sock sockscript.Socket) Option {
	return optionFunc(func(r *Receiver) {
		r.sock = sock
	})
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return optionFunc(func(r *Receiver) {
		r.log = log
	})
}

// WithMaxFrameSize bounds the size of a single message.  Larger frames close
// the Receiver.
func WithMaxFrameSize(n int) Option {
	return optionFunc(func(r *Receiver) {
		if n > 0 {
			r.maxFrame = n
		}
	})
}

// WithReadSize sets how many bytes each read asks for.
func WithReadSize(n int) Option {
	return optionFunc(func(r *Receiver) {
		if n > 0 {
			r.readSize = n
		}
	})
}

// WithModifyWRP adds a WRP message handler for the Receiver, with an optional
// cancel function parameter.
//
//   - There can be multiple handlers.
//   - The order of the handlers is not guaranteed.
//   - The returned value of the wrp.Modifier is ignored.
//   - The handlers run on the goroutine driving the socket.
func WithModifyWRP(m wrp.Modifier, cancel ...*func()) Option {
	return optionFunc(func(r *Receiver) {
		cancelFn := r.onMsg.Add(m)
		for i := range cancel {
			if cancel[i] != nil {
				*cancel[i] = cancelFn
			}
		}
	})
}

// WithCloseListener adds a listener for when the Receiver closes, with an
// optional cancel function parameter.
//
//   - There can be multiple listeners.
//   - The order of the listeners is not guaranteed.
//   - The error parameter is the reason for the close.
func WithCloseListener(f func(error), cancel ...*func()) Option {
	return optionFunc(func(r *Receiver) {
		cancelFn := r.onFailure.Add(f)
		for i := range cancel {
			if cancel[i] != nil {
				*cancel[i] = cancelFn
			}
		}
	})
}

func validate() Option {
	return errOptionFunc(func(r *Receiver) error {
		if r.sock == nil {
			return errors.New("socket is required")
		}
		if r.log == nil {
			r.log = logging.Nop()
		}
		return nil
	})
}
