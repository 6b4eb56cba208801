// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/scripts"
	"github.com/xmidt-org/wrp-go/v3"
	"go.nanomsg.org/mangos/v3"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func frame(t *testing.T, s *sockscript.Script, mode sockscript.Mode, msg wrp.Message) {
	t.Helper()

	_, err := scripts.WRPWrite(s, mode, msg)
	require.NoError(t, err)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		options []Option
		newErr  bool
	}{
		{
			name: "With a socket",
			options: []Option{
				WithSocket(sockscript.NewStreamSocket(sockscript.NewStaticProvider(nil, nil))),
			},
		}, {
			name:   "With missing socket",
			newErr: true,
		}, {
			name: "With a nil option",
			options: []Option{
				nil,
				WithSocket(sockscript.NewStreamSocket(sockscript.NewStaticProvider(nil, nil))),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sdr, err := New(tt.options...)
			if tt.newErr {
				assert.Error(t, err)
				assert.Nil(t, sdr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, sdr)
			assert.Zero(t, sdr.Pending())
		})
	}
}

func TestDial(t *testing.T) {
	tests := []struct {
		name    string
		script  func() *sockscript.Script
		wantErr error
	}{
		{
			name: "sync",
			script: func() *sockscript.Script {
				return scripts.PushHandshake(sockscript.NewScript(), sockscript.Sync)
			},
		}, {
			name: "async connect and handshake",
			script: func() *sockscript.Script {
				s := sockscript.NewScript().Connect(sockscript.Async, nil)
				return scripts.PushHandshake(s, sockscript.Async)
			},
		}, {
			name: "refused",
			script: func() *sockscript.Script {
				return sockscript.NewScript().Connect(sockscript.Async, sockscript.ErrConnectionRefused)
			},
			wantErr: sockscript.ErrConnectionRefused,
		}, {
			name: "peer speaks the wrong protocol",
			script: func() *sockscript.Script {
				return scripts.SPHandshake(sockscript.NewScript(), sockscript.Async, scripts.Push, scripts.Push)
			},
			wantErr: mangos.ErrBadProto,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sock := sockscript.NewStreamSocket(tt.script().Static(sockscript.WithT(t)), sockscript.WithT(t))

			var closes []error
			sdr, err := New(
				WithSocket(sock),
				WithCloseListener(func(err error) {
					closes = append(closes, err)
				}),
			)
			require.NoError(t, err)

			var results []error
			sdr.Dial(func(err error) {
				results = append(results, err)
			})
			// Multiple calls to Dial should be fine.
			sdr.Dial(func(err error) {
				results = append(results, err)
			})
			sock.Loop().RunUntilIdle()

			require.Len(t, results, 2)
			for _, err := range results {
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.NoError(t, err)
				}
			}

			if tt.wantErr != nil {
				require.Len(t, closes, 1)
				assert.ErrorIs(t, closes[0], tt.wantErr)
				assert.False(t, sock.IsConnected())
				return
			}

			assert.Empty(t, closes)
			assert.True(t, sock.IsConnected())
			assert.NoError(t, sdr.Close())
			assert.Len(t, closes, 1)
		})
	}
}

func TestProcessWRP(t *testing.T) {
	first := wrp.Message{Type: wrp.SimpleEventMessageType, Payload: []byte("first")}
	second := wrp.Message{Type: wrp.SimpleEventMessageType, Payload: []byte("second")}

	s := scripts.PushHandshake(sockscript.NewScript(), sockscript.Async)
	frame(t, s, sockscript.Async, first)
	frame(t, s, sockscript.Sync, second)

	p := s.Deterministic(sockscript.WithT(t))
	sock := sockscript.NewStreamSocket(p, sockscript.WithT(t))

	sdr, err := New(WithSocket(sock))
	require.NoError(t, err)

	var dialed bool
	sdr.Dial(func(err error) {
		require.NoError(t, err)
		dialed = true
	})

	// Queued while dialing.
	require.NoError(t, sdr.ProcessWRP(context.Background(), first))
	assert.Equal(t, 1, sdr.Pending())

	p.Run()
	assert.True(t, dialed)
	assert.Zero(t, sdr.Pending())

	require.NoError(t, sdr.ProcessWRP(nil, second)) // nolint:staticcheck
	assert.Zero(t, sdr.Pending())
	assert.True(t, p.AllWriteDataConsumed())
	assert.True(t, p.AllReadDataConsumed())

	// Send in a context that is already canceled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sdr.ProcessWRP(ctx, first), context.Canceled)

	require.NoError(t, sdr.Close())
	assert.ErrorIs(t, sdr.ProcessWRP(context.Background(), first), ErrConnClosed)
}

func TestProcessWRPFailure(t *testing.T) {
	sendErr := errors.New("send error")

	s := scripts.PushHandshake(sockscript.NewScript(), sockscript.Sync)
	s.WriteError(sockscript.Async, sendErr)

	sock := sockscript.NewStreamSocket(s.Static(sockscript.WithT(t)), sockscript.WithT(t))

	var errList []error
	var cancel func()
	sdr, err := New(
		WithSocket(sock),
		WithCloseListener(func(err error) {
			errList = append(errList, err)
		}, nil, &cancel),
	)
	require.NoError(t, err)
	require.NotNil(t, cancel)

	sdr.Dial(nil)
	require.NoError(t, sdr.ProcessWRP(context.Background(), wrp.Message{}))
	sock.Loop().RunUntilIdle()

	require.Len(t, errList, 1)
	assert.ErrorIs(t, errList[0], sendErr)
	assert.ErrorIs(t, errList[0], ErrFailedToSend)
	assert.Zero(t, sdr.Pending())

	assert.ErrorIs(t, sdr.ProcessWRP(context.Background(), wrp.Message{}), ErrConnClosed)

	var late error
	sdr.Dial(func(err error) {
		late = err
	})
	assert.ErrorIs(t, late, ErrConnClosed)

	// The listener was removed, so closing again reports nothing.
	cancel()
	require.NoError(t, sdr.Close())
	assert.Len(t, errList, 1)
}

func TestPartialWrites(t *testing.T) {
	msg := wrp.Message{Type: wrp.SimpleEventMessageType, Payload: []byte("a payload of some size")}
	body, err := scripts.EncodeWRP(msg)
	require.NoError(t, err)

	s := scripts.PushHandshake(sockscript.NewScript(), sockscript.Sync)
	// The length prefix and the body arrive in separate writes.
	s.WriteBytes(sockscript.Async, []byte{0, 0, 0, 0, 0, 0, 0, byte(len(body))})
	s.WriteBytes(sockscript.Async, body[:5])
	s.WriteBytes(sockscript.Sync, body[5:])

	p := s.Static(sockscript.WithT(t))
	sock := sockscript.NewStreamSocket(p, sockscript.WithT(t))

	sdr, err := New(WithSocket(sock))
	require.NoError(t, err)

	sdr.Dial(nil)
	require.NoError(t, sdr.ProcessWRP(context.Background(), msg))
	assert.Equal(t, 1, sdr.Pending())

	sock.Loop().RunUntilIdle()
	assert.Zero(t, sdr.Pending())
	assert.True(t, p.AllWriteDataConsumed())
}
