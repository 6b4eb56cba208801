// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"log/slog"

	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/internal/logging"
	"github.com/xmidt-org/sockscript/internal/receiver"
	"github.com/xmidt-org/sockscript/internal/sender"
	"github.com/xmidt-org/wrp-go/v3"
)

// Option is the interface implemented by types that can be used to configure
// the relay.
type Option interface {
	apply(*Relay) error
}

type errOptionFunc func(*Relay) error

func (f errOptionFunc) apply(c *Relay) error {
	return f(c)
}

func optionFunc(f func(*Relay)) errOptionFunc {
	return errOptionFunc(func(c *Relay) error {
		f(c)
		return nil
	})
}

// WithDialer sets how services are connected to once they register.  This is
// required.
func WithDialer(d Dialer) Option {
	return optionFunc(func(c *Relay) {
		c.dialer = d
	})
}

// WithLogger sets the logger of the relay, its receiver and its senders.
func WithLogger(log *slog.Logger) Option {
	return optionFunc(func(c *Relay) {
		c.log = log
		c.rOpts = append(c.rOpts, receiver.WithLogger(log))
		c.sOpts = append(c.sOpts, sender.WithLogger(log))
	})
}

// RXSocket sets the socket services talk to the relay through.  This socket
// represents the rx network side of the relay.  Without it the relay only
// learns about services through ProcessWRP.
func RXSocket(sock sockscript.Socket) Option {
	return optionFunc(func(c *Relay) {
		c.rxSock = sock
	})
}

// RXMaxFrameSize bounds the size of received messages.
func RXMaxFrameSize(n int) Option {
	return optionFunc(func(c *Relay) {
		c.rOpts = append(c.rOpts, receiver.WithMaxFrameSize(n))
	})
}

// WithRXObserver adds observers to the rx chain.  The rx chain represents the
// processing of messages received from the network.
func WithRXObserver(observer wrp.Observer) Option {
	return optionFunc(func(c *Relay) {
		c.rxObservers = append(c.rxObservers, observer)
	})
}

// WithTXObserver adds observers to the tx chain.  The tx chain represents the
// processing of messages sent to the network.
func WithTXObserver(observer wrp.Observer) Option {
	return optionFunc(func(c *Relay) {
		c.txObservers = append(c.txObservers, observer)
	})
}

// WithEgressModifier adds a modifier to the list of modifiers that are informed
// of messages leaving the relay.  Return values from the modifiers are
// ignored.
func WithEgressModifier(modifier wrp.Modifier, cancel ...*func()) Option {
	return optionFunc(func(c *Relay) {
		cancelFn := c.egress.Add(modifier)
		for i := range cancel {
			if cancel[i] != nil {
				*cancel[i] = cancelFn
			}
		}
	})
}

// WithRXCloseListener is called when the rx socket closes, with the reason.
func WithRXCloseListener(f func(error)) Option {
	return optionFunc(func(c *Relay) {
		c.rOpts = append(c.rOpts, receiver.WithCloseListener(f))
	})
}

//-----------------------------------------------------------------------------

func validate() Option {
	return errOptionFunc(func(c *Relay) error {
		if c.dialer == nil {
			return errors.New("dialer is required")
		}
		if c.log == nil {
			c.log = logging.Nop()
		}
		return nil
	})
}

func createReceiver() Option {
	return errOptionFunc(func(c *Relay) error {
		if c.rxSock == nil {
			return nil
		}

		opts := append([]receiver.Option{}, c.rOpts...)
		opts = append(opts,
			receiver.WithSocket(c.rxSock),
			receiver.WithModifyWRP(wrp.ModifierFunc(c.rx)),
		)

		r, err := receiver.New(opts...)
		if err != nil {
			return err
		}

		c.r = r
		return nil
	})
}

func createIngressChain() Option {
	return optionFunc(func(c *Relay) {
		c.ingressChain = processors{
			wrp.ProcessorFunc(c.handleRegisterMsg),
			rejectUnsupported(),
			rejectLocal(),
			&c.senders,
		}
	})
}
