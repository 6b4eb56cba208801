// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"

	"github.com/xmidt-org/sockscript/internal/sender"
	"github.com/xmidt-org/wrp-go/v3"
)

type limitedSender interface {
	ProcessWRP(context.Context, wrp.Message) error
	Dial(func(error))
	Close() error
}

type limitedSenderFactory func(...sender.Option) (limitedSender, error)

// senderMap is a map of senders keyed by service name.
//
// If a sender is closed, it is removed from the map automatically.
type senderMap struct {
	senders map[string]limitedSender
}

// ProcessWRP sends the message to the appropriate sender.  If the message is a
// ServiceAlive message, it is sent to all senders.  If the message destination
// is not found, ErrNotHandled is returned.
func (sm *senderMap) ProcessWRP(ctx context.Context, msg wrp.Message) error {
	if msg.Type == wrp.ServiceAliveMessageType {
		// Senders may close, and drop out of the map, while being visited.
		senders := make([]limitedSender, 0, len(sm.senders))
		for _, s := range sm.senders {
			senders = append(senders, s)
		}

		for _, s := range senders {
			_ = s.ProcessWRP(ctx, msg)
		}
		return nil
	}

	dest, err := wrp.ParseLocator(msg.To())
	if err != nil {
		return err
	}

	if target := sm.senders[dest.Service]; target != nil {
		return target.ProcessWRP(ctx, msg)
	}

	return wrp.ErrNotHandled
}

// Upsert adds or replaces the sender for name.  A replaced sender is closed.
// The new sender is dialed before being added and sent an authorization
// message, which goes out once the handshake is done.
func (sm *senderMap) Upsert(name string, opts []sender.Option) error {
	factory := func(opts ...sender.Option) (limitedSender, error) {
		return sender.New(opts...)
	}
	return sm.upsert(name, opts, factory)
}

// upsert is broken out for testing purposes.  Mainly so we can inject a mock
// sender factory.
func (sm *senderMap) upsert(name string,
	opts []sender.Option,
	factory limitedSenderFactory,
) error {
	var s limitedSender
	opts = append(opts, sender.WithCloseListener(func(error) {
		sm.drop(name, s)
	}))

	s, err := factory(opts...)
	if err != nil {
		return err
	}

	var failed error
	s.Dial(func(err error) {
		failed = err
	})
	if failed != nil {
		_ = s.Close()
		return failed
	}

	if sm.senders == nil {
		sm.senders = make(map[string]limitedSender)
	}

	existing := sm.senders[name]
	sm.senders[name] = s
	if existing != nil {
		_ = existing.Close()
	}

	status := int64(200)
	_ = s.ProcessWRP(context.Background(), wrp.Message{
		Type:   wrp.AuthorizationMessageType,
		Status: &status,
	})

	return nil
}

// drop forgets s if it still serves name.
func (sm *senderMap) drop(name string, s limitedSender) {
	if s != nil && sm.senders[name] == s {
		delete(sm.senders, name)
	}
}

// Remove closes and removes the sender for name, if any.
func (sm *senderMap) Remove(name string) error {
	s := sm.senders[name]
	if s != nil {
		delete(sm.senders, name)
		_ = s.Close()
	}

	return nil
}

// Len returns the number of senders.
func (sm *senderMap) Len() int {
	return len(sm.senders)
}

// Close closes all senders in the map.
func (sm *senderMap) Close() error {
	senders := sm.senders
	sm.senders = nil

	for _, s := range senders {
		_ = s.Close()
	}
	return nil
}
