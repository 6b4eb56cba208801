// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"errors"
	"log/slog"
	"net"

	"github.com/stretchr/testify/require"
)

// Option configures providers, sockets and factories.  Options a component has
// no use for are ignored by it.
type Option interface {
	apply(*config) error
}

type errOptionFunc func(*config) error

func (f errOptionFunc) apply(c *config) error {
	return f(c)
}

func optionFunc(f func(*config)) errOptionFunc {
	return errOptionFunc(func(c *config) error {
		f(c)
		return nil
	})
}

// WithT routes script violations to t.  Without it a violation panics.
func WithT(t TestingT) Option {
	return optionFunc(func(c *config) {
		c.t = t
	})
}

// WithLogger sets the logger the step trace is written to.
func WithLogger(log *slog.Logger) Option {
	return optionFunc(func(c *config) {
		c.log = log
	})
}

// WithConnect scripts the outcome of Connect for a provider.  The default is
// a synchronous success.
func WithConnect(mc MockConnect) Option {
	return optionFunc(func(c *config) {
		c.connect = mc
	})
}

// WithLoop sets the loop asynchronous completions are posted to.  Sockets
// created by a factory share the factory's loop.
func WithLoop(l *Loop) Option {
	return optionFunc(func(c *config) {
		c.loop = l
	})
}

// WithLocalAddr sets the address a socket reports as its own.
func WithLocalAddr(addr net.Addr) Option {
	return optionFunc(func(c *config) {
		c.local = addr
	})
}

// WithRemoteAddr sets the address a socket reports as its peer.  A PeerAddr in
// the scripted connect outcome takes precedence.
func WithRemoteAddr(addr net.Addr) Option {
	return optionFunc(func(c *config) {
		c.remote = addr
	})
}

type config struct {
	t       TestingT
	log     *slog.Logger
	connect MockConnect
	loop    *Loop
	local   net.Addr
	remote  net.Addr
}

func newConfig(opts []Option) config {
	var c config

	opts = append(opts, validate())

	var errs []error
	for _, opt := range opts {
		if opt != nil {
			errs = append(errs, opt.apply(&c))
		}
	}

	if err := errors.Join(errs...); err != nil {
		helper(c.t)
		require.NoError(c.t, err, "invalid option")
	}
	return c
}

// base holds what every provider shares.
type base struct {
	t       TestingT
	log     *slog.Logger
	connect MockConnect
}

func newBase(opts []Option) base {
	c := newConfig(opts)
	return base{
		t:       c.t,
		log:     c.log,
		connect: c.connect,
	}
}

// ConnectData returns the scripted connect outcome.
func (b *base) ConnectData() MockConnect {
	return b.connect
}

// Reporter returns where script violations are reported.  Providers built on
// top of another provider report through it.
func (b *base) Reporter() TestingT {
	return b.t
}

// Logger returns the provider's logger.
func (b *base) Logger() *slog.Logger {
	return b.log
}

// SetConnectData replaces the scripted connect outcome.
func (b *base) SetConnectData(c MockConnect) {
	b.connect = c
}

// -- Only Validators Below ----------------------------------------------------
func validate() Option {
	return errOptionFunc(func(c *config) error {
		if c.t == nil {
			c.t = panicT{}
		}
		if c.log == nil {
			c.log = nopLogger()
		}
		if c.connect.Mode != Sync && c.connect.Mode != Async {
			return errors.New("connect mode must be Sync or Async")
		}
		return nil
	})
}
