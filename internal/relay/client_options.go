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

// ClientOption is the interface implemented by types that can be used to
// configure the client.
type ClientOption interface {
	apply(*Client) error
}

type errClientOptionFunc func(*Client) error

func (f errClientOptionFunc) apply(c *Client) error {
	return f(c)
}

func clientOptionFunc(f func(*Client)) errClientOptionFunc {
	return errClientOptionFunc(func(c *Client) error {
		f(c)
		return nil
	})
}

// WithServiceName sets the name the client registers as.  This is required.
func WithServiceName(name string) ClientOption {
	return clientOptionFunc(func(c *Client) {
		c.name = name
	})
}

// WithClientURL sets the URL the relay should dial back.  This is optional.
// If not set, the client uses the local address of its rx socket.
func WithClientURL(url string) ClientOption {
	return clientOptionFunc(func(c *Client) {
		c.url = url
	})
}

// TXSocket sets the socket leading to the relay.  This is required.
func TXSocket(sock sockscript.Socket) ClientOption {
	return clientOptionFunc(func(c *Client) {
		c.txSock = sock
	})
}

// ClientRXSocket sets the socket the relay dials back on.  This is required.
func ClientRXSocket(sock sockscript.Socket) ClientOption {
	return clientOptionFunc(func(c *Client) {
		c.rxSock = sock
	})
}

// WithClientLogger sets the logger of the client and its connections.
func WithClientLogger(log *slog.Logger) ClientOption {
	return clientOptionFunc(func(c *Client) {
		c.log = log
		c.rOpts = append(c.rOpts, receiver.WithLogger(log))
		c.sOpts = append(c.sOpts, sender.WithLogger(log))
	})
}

// WithReceivedModifier adds a modifier to the list of modifiers that are informed
// of messages received by the client.  The modifier can change the message, but
// any error returned by the modifier is ignored.
func WithReceivedModifier(modifier wrp.Modifier, cancel ...*func()) ClientOption {
	return clientOptionFunc(func(c *Client) {
		cancelFn := c.egress.Add(modifier)
		for i := range cancel {
			if cancel[i] != nil {
				*cancel[i] = cancelFn
			}
		}
	})
}

//------------------------------------------------------------------------------

func determineClientURL() ClientOption {
	return errClientOptionFunc(func(c *Client) error {
		if c.url != "" || c.rxSock == nil {
			return nil
		}

		addr := c.rxSock.LocalAddr()
		if addr == nil {
			return errors.New("client URL is required without a local address")
		}

		c.url = "tcp://" + addr.String()
		return nil
	})
}

func validateClient() ClientOption {
	return errClientOptionFunc(func(c *Client) error {
		if c.name == "" {
			return errors.New("service name is required")
		}
		if c.txSock == nil {
			return errors.New("tx socket is required")
		}
		if c.rxSock == nil {
			return errors.New("rx socket is required")
		}
		if c.log == nil {
			c.log = logging.Nop()
		}
		return nil
	})
}

func createClientParts() ClientOption {
	return errClientOptionFunc(func(c *Client) error {
		sOpts := append([]sender.Option{}, c.sOpts...)
		s, err := sender.New(append(sOpts, sender.WithSocket(c.txSock))...)
		if err != nil {
			return err
		}

		rOpts := append([]receiver.Option{}, c.rOpts...)
		r, err := receiver.New(append(rOpts,
			receiver.WithSocket(c.rxSock),
			receiver.WithModifyWRP(wrp.ModifierFunc(c.received)),
		)...)
		if err != nil {
			return err
		}

		c.s, c.r = s, r
		return nil
	})
}
