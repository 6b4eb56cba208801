// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xmidt-org/eventor"
	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/internal/logging"
	"github.com/xmidt-org/sockscript/internal/receiver"
	"github.com/xmidt-org/sockscript/internal/sender"
	"github.com/xmidt-org/wrp-go/v3"
)

// Client is the service side of a relay.  It pushes messages to the relay
// and pulls the messages the relay routes to it.  Start registers the service.
//
// A Client is driven by its sockets' callbacks and is not safe for concurrent
// use.
type Client struct {
	name string
	url  string
	log  *slog.Logger

	txSock sockscript.Socket
	sOpts  []sender.Option
	s      *sender.Sender

	rxSock sockscript.Socket
	rOpts  []receiver.Option
	r      *receiver.Receiver

	egress eventor.Eventor[wrp.Modifier]

	started bool
	dialErr error
}

var _ wrp.Processor = (*Client)(nil)

// NewClient creates a new client.  The client is not started until Start is
// called.
func NewClient(opts ...ClientOption) (*Client, error) {
	var client Client

	vadors := []ClientOption{
		determineClientURL(),
		validateClient(),
		createClientParts(),
	}

	opts = append(opts, vadors...)

	for _, opt := range opts {
		if opt != nil {
			if err := opt.apply(&client); err != nil {
				return nil, err
			}
		}
	}

	return &client, nil
}

// Start listens for routed messages, dials the relay and registers.  This call
// is idempotent.
func (c *Client) Start() error {
	if c.started {
		return nil
	}
	c.started = true

	if err := c.r.Listen(); err != nil {
		return err
	}

	c.s.Dial(func(err error) {
		if err != nil {
			c.dialErr = err
			c.log.Debug("relay dial failed", logging.Service(c.name), logging.Error(err))
		}
	})
	if c.dialErr != nil {
		return c.dialErr
	}

	return c.s.ProcessWRP(context.Background(), wrp.Message{
		Type:        wrp.ServiceRegistrationMessageType,
		ServiceName: c.name,
		URL:         c.url,
	})
}

// Stop closes both connections.  This call is idempotent.
func (c *Client) Stop() error {
	c.started = false
	return errors.Join(c.r.Close(), c.s.Close())
}

// ProcessWRP is called when a message should be sent to the relay.
func (c *Client) ProcessWRP(ctx context.Context, msg wrp.Message) error {
	return c.s.ProcessWRP(ctx, msg)
}

// URL returns the URL the client registers with.
func (c *Client) URL() string {
	return c.url
}

// Err returns why dialing the relay failed, if it did.
func (c *Client) Err() error {
	return c.dialErr
}

func (c *Client) received(ctx context.Context, msg wrp.Message) (wrp.Message, error) {
	var modifiers []wrp.Modifier
	c.egress.Visit(func(m wrp.Modifier) {
		modifiers = append(modifiers, m)
	})
	for _, m := range modifiers {
		_, _ = m.ModifyWRP(ctx, msg)
	}
	return msg, nil
}
