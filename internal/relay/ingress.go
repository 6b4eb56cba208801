// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/xmidt-org/wrp-go/v3"
)

var (
	ErrLocalDisallowed = errors.New("local message types are not allowed")
	ErrUnsupported     = errors.New("unsupported message type")
)

// processors is a chain where the first processor to handle a message wins.
type processors []wrp.Processor

// ProcessWRP calls each processor in turn.  The first one to return anything
// but wrp.ErrNotHandled stops the iteration and its error (or nil) is
// returned.  If none handles the message, wrp.ErrNotHandled is returned.  A
// canceled context stops the iteration with the context's error.
func (p processors) ProcessWRP(ctx context.Context, msg wrp.Message) error {
	for _, proc := range p {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if proc == nil {
			continue
		}

		err := proc.ProcessWRP(ctx, msg)
		if errors.Is(err, wrp.ErrNotHandled) {
			continue
		}
		return err
	}

	return wrp.ErrNotHandled
}

// rejectLocal refuses message types that only travel between a service and
// the relay.
func rejectLocal() wrp.ProcessorFunc {
	return func(_ context.Context, m wrp.Message) error {
		switch m.Type {
		case wrp.AuthorizationMessageType,
			wrp.ServiceRegistrationMessageType,
			wrp.ServiceAliveMessageType:
			return ErrLocalDisallowed
		}
		return wrp.ErrNotHandled
	}
}

// rejectUnsupported refuses message types outside the known range.
func rejectUnsupported() wrp.ProcessorFunc {
	return func(_ context.Context, m wrp.Message) error {
		if m.Type >= wrp.LastMessageType ||
			m.Type < 0 ||
			m.Type == wrp.Invalid0MessageType ||
			m.Type == wrp.Invalid1MessageType {
			return errors.Join(
				fmt.Errorf("invalid message type: %d", m.Type),
				ErrUnsupported,
			)
		}

		return wrp.ErrNotHandled
	}
}
