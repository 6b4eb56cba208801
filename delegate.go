// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import "github.com/xmidt-org/eventor"

// completer is the socket side of a provider that drives completions itself.
type completer interface {
	readPending() bool
	writePending() bool
	completeRead()
	completeWrite()
}

// driver is implemented by providers that decide when pending operations
// complete.  Sockets bound to other providers post completions to their loop.
type driver interface {
	// attach registers the socket the provider completes operations for.  The
	// returned func drops the registration and is safe to call more than once.
	attach(c completer, loop *Loop) (detach func())
}

// delegate is a non-owning registration of the one socket a driver serves.
// Once the socket detaches, get returns nil and no continuation is invoked.
type delegate struct {
	sockets eventor.Eventor[completer]
	detach  func()
}

func (d *delegate) set(c completer) func() {
	if d.detach != nil {
		d.detach()
	}

	cancel := d.sockets.Add(c)

	var done bool
	detach := func() {
		if done {
			return
		}
		done = true
		cancel()
	}

	d.detach = detach
	return detach
}

// get returns the registered socket, if it is still alive.  The socket is
// fetched outside of Visit so a continuation may detach it.
func (d *delegate) get() completer {
	var c completer
	d.sockets.Visit(func(x completer) {
		c = x
	})
	return c
}
