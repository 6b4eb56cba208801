// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"errors"
	"log/slog"

	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/internal/logging"
)

type Option interface {
	apply(*Sender) error
}

type errOptionFunc func(*Sender) error

func (f errOptionFunc) apply(a *Sender) error {
	return f(a)
}

func optionFunc(f func(*Sender)) errOptionFunc {
	return errOptionFunc(func(c *Sender) error {
		f(c)
		return nil
	})
}

// WithSocket sets the socket the peer is reached through.  This option is
// required.
func WithSocket(sock sockscript.Socket) Option {
	return optionFunc(func(c *Sender) {
		c.sock = sock
	})
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return optionFunc(func(c *Sender) {
		c.log = log
	})
}

// WithCloseListener sets the function to call when the connection is closed.
// If cancel is provided, it will be populated with a function that can be used
// to remove the listener.
func WithCloseListener(f func(error), cancel ...*func()) Option {
	return optionFunc(func(c *Sender) {
		cancelFn := c.onClose.Add(f)

		for i := range cancel {
			if cancel[i] != nil {
				*cancel[i] = cancelFn
			}
		}
	})
}

// -- Only Validators Below ----------------------------------------------------
func validate() Option {
	return errOptionFunc(func(c *Sender) error {
		if c.sock == nil {
			return errors.New("socket is required")
		}
		if c.log == nil {
			c.log = logging.Nop()
		}

		return nil
	})
}
