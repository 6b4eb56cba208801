// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package relay routes WRP messages between local services and whatever sits
// on the other side of its API, the way a device side message router does.
// Services register over the relay's receiving socket and get a push
// connection of their own.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/xmidt-org/eventor"
	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/internal/logging"
	"github.com/xmidt-org/sockscript/internal/receiver"
	"github.com/xmidt-org/sockscript/internal/sender"
	"github.com/xmidt-org/wrp-go/v3"
)

var (
	errInvalidMsg = errors.New("invalid message")
)

// Dialer creates the socket a registered service is reached through.
type Dialer interface {
	DialService(name, url string) (sockscript.Socket, error)
}

// DialerFunc adapts a function to a Dialer.
type DialerFunc func(name, url string) (sockscript.Socket, error)

func (f DialerFunc) DialService(name, url string) (sockscript.Socket, error) {
	return f(name, url)
}

// FactoryDialer hands out the factory's stream sockets, addressed by the
// service's URL.
func FactoryDialer(f *sockscript.Factory) Dialer {
	return DialerFunc(func(_, url string) (sockscript.Socket, error) {
		return f.CreateTransportClientSocket(sockscript.Addr{Net: "tcp", Address: url})
	})
}

// Relay is a simple controller for managing a receiver and a set of senders.
//
// ingress and egress refer to the API side of the relay.
//   - ingress describes the messages coming into the relay.
//   - egress describes the messages leaving the relay.
//
// tx and rx refer to the network side of the relay.
//   - tx describes the messages being sent out.
//   - rx describes the messages being received.
//
// A Relay is driven by its sockets' callbacks and is not safe for concurrent
// use.
type Relay struct {
	log    *slog.Logger
	dialer Dialer

	rxSock sockscript.Socket
	rOpts  []receiver.Option
	r      *receiver.Receiver

	sOpts []sender.Option

	egress eventor.Eventor[wrp.Modifier]

	senders senderMap

	rxObservers  wrp.Observers
	txObservers  wrp.Observers
	ingressChain processors

	started bool
}

var _ wrp.Processor = (*Relay)(nil)

// New creates a new Relay.  The relay does not read until Start is called.
func New(opts ...Option) (*Relay, error) {
	var r Relay

	vadors := []Option{
		validate(),
		createReceiver(),
		createIngressChain(),
	}

	opts = append(opts, vadors...)

	for _, opt := range opts {
		if opt != nil {
			if err := opt.apply(&r); err != nil {
				return nil, err
			}
		}
	}

	return &r, nil
}

// Start begins listening for messages.  It is idempotent.
func (r *Relay) Start() error {
	if r.started {
		return nil
	}
	r.started = true

	if r.r == nil {
		return nil
	}
	return r.r.Listen()
}

// Stop halts the relay and closes every sender.  It is idempotent.
func (r *Relay) Stop() error {
	r.started = false

	var errs []error
	if r.r != nil {
		errs = append(errs, r.r.Close())
	}
	errs = append(errs, r.senders.Close())

	return errors.Join(errs...)
}

// ProcessWRP is called when a message should be sent to the network.
// Registrations are handled here as well.  Other local message types and
// unknown ones are refused.  wrp.ErrNotHandled means no service matches the
// destination.
func (r *Relay) ProcessWRP(ctx context.Context, msg wrp.Message) error {
	r.txObservers.ObserveWRP(ctx, msg)
	return r.ingressChain.ProcessWRP(ctx, msg)
}

// Heartbeat sends a ServiceAlive message to every registered service.
func (r *Relay) Heartbeat(ctx context.Context) {
	msg := wrp.Message{
		Type: wrp.ServiceAliveMessageType,
	}

	r.txObservers.ObserveWRP(ctx, msg)
	_ = r.senders.ProcessWRP(ctx, msg)
}

// Remove drops the service called name.
func (r *Relay) Remove(name string) error {
	return r.senders.Remove(name)
}

// Services returns the number of registered services.
func (r *Relay) Services() int {
	return r.senders.Len()
}

func (r *Relay) handleRegisterMsg(_ context.Context, msg wrp.Message) error {
	if msg.Type != wrp.ServiceRegistrationMessageType {
		return wrp.ErrNotHandled
	}

	if msg.ServiceName == "" || msg.URL == "" {
		return errInvalidMsg
	}

	sock, err := r.dialer.DialService(msg.ServiceName, msg.URL)
	if err != nil {
		return err
	}

	r.log.Debug("register", logging.Service(msg.ServiceName), logging.Addr(urlAddr(msg.URL)))

	opts := append([]sender.Option{}, r.sOpts...)
	opts = append(opts, sender.WithSocket(sock))
	return r.senders.Upsert(msg.ServiceName, opts)
}

// rx takes a message read from the network.  Registrations are acted upon,
// everything else leaves through the egress modifiers.
func (r *Relay) rx(ctx context.Context, msg wrp.Message) (wrp.Message, error) {
	r.rxObservers.ObserveWRP(ctx, msg)

	err := r.handleRegisterMsg(ctx, msg)
	if err == nil {
		return msg, nil
	}
	if !errors.Is(err, wrp.ErrNotHandled) {
		r.log.Debug("registration failed", logging.Service(msg.ServiceName), logging.Error(err))
		return msg, err
	}

	return msg, r.egressWRP(ctx, msg)
}

func (r *Relay) egressWRP(ctx context.Context, msg wrp.Message) error {
	var modifiers []wrp.Modifier
	r.egress.Visit(func(m wrp.Modifier) {
		modifiers = append(modifiers, m)
	})
	for _, m := range modifiers {
		_, _ = m.ModifyWRP(ctx, msg)
	}

	return nil
}

func urlAddr(url string) net.Addr {
	return sockscript.Addr{Net: "tcp", Address: url}
}
