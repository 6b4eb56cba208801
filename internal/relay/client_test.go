// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/internal/logging"
	"github.com/xmidt-org/sockscript/scripts"
	"github.com/xmidt-org/wrp-go/v3"
)

func TestNewClient(t *testing.T) {
	sock := func() sockscript.Socket {
		return sockscript.NewStreamSocket(sockscript.NewScript().Static())
	}

	tests := []struct {
		description string
		opts        []ClientOption
		wantErr     bool
		expectedURL string
	}{
		{
			description: "no name",
			opts:        []ClientOption{TXSocket(sock()), ClientRXSocket(sock()), WithClientURL("tcp://a")},
			wantErr:     true,
		}, {
			description: "no tx socket",
			opts:        []ClientOption{WithServiceName("svc"), ClientRXSocket(sock()), WithClientURL("tcp://a")},
			wantErr:     true,
		}, {
			description: "no rx socket",
			opts:        []ClientOption{WithServiceName("svc"), TXSocket(sock()), WithClientURL("tcp://a")},
			wantErr:     true,
		}, {
			description: "no url and no local address",
			opts:        []ClientOption{WithServiceName("svc"), TXSocket(sock()), ClientRXSocket(sock())},
			wantErr:     true,
		}, {
			description: "explicit url",
			opts: []ClientOption{
				WithServiceName("svc"),
				TXSocket(sock()),
				ClientRXSocket(sock()),
				WithClientURL("tcp://127.0.0.1:7000"),
				nil,
			},
			expectedURL: "tcp://127.0.0.1:7000",
		}, {
			description: "url from the local address",
			opts: []ClientOption{
				WithServiceName("svc"),
				TXSocket(sock()),
				ClientRXSocket(sockscript.NewStreamSocket(sockscript.NewScript().Static(),
					sockscript.WithLocalAddr(sockscript.Addr{Net: "tcp", Address: "127.0.0.1:7001"}))),
			},
			expectedURL: "tcp://127.0.0.1:7001",
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			c, err := NewClient(tc.opts...)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedURL, c.URL())
		})
	}
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	reg := wrp.Message{
		Type:        wrp.ServiceRegistrationMessageType,
		ServiceName: "svc",
		URL:         "tcp://127.0.0.1:6001",
	}
	event := wrp.Message{
		Type:        wrp.SimpleEventMessageType,
		Source:      "mac:112233445566/svc",
		Destination: "event:device-status",
	}
	down := wrp.Message{
		Type:        wrp.SimpleEventMessageType,
		Source:      "dns:talaria",
		Destination: "mac:112233445566/svc/config",
		Payload:     []byte("hi"),
	}

	tx := scripts.PushHandshake(sockscript.NewScript().Connect(sockscript.Async, nil), sockscript.Async)
	writeWRP(t, tx, sockscript.Async, reg)
	writeWRP(t, tx, sockscript.Sync, event)

	rx := scripts.PullHandshake(sockscript.NewScript(), sockscript.Async)
	readWRP(t, rx, sockscript.Async, down)
	rx.ReadHang()

	loop := sockscript.NewLoop()
	txData := tx.Static(sockscript.WithT(t))
	rxData := rx.Static(sockscript.WithT(t))

	var got []wrp.Message
	c, err := NewClient(
		WithServiceName("svc"),
		TXSocket(sockscript.NewStreamSocket(txData, sockscript.WithT(t), sockscript.WithLoop(loop))),
		ClientRXSocket(sockscript.NewStreamSocket(rxData,
			sockscript.WithT(t),
			sockscript.WithLoop(loop),
			sockscript.WithLocalAddr(sockscript.Addr{Net: "tcp", Address: "127.0.0.1:6001"}),
		)),
		WithClientLogger(logging.Nop()),
		WithReceivedModifier(wrp.ObserverAsModifier(wrp.ObserverFunc(func(_ context.Context, m wrp.Message) {
			got = append(got, m)
		}))),
	)
	require.NoError(t, err)

	require.NoError(t, c.Start())
	require.NoError(t, c.Start())
	loop.RunUntilIdle()

	require.NoError(t, c.ProcessWRP(ctx, event))
	loop.RunUntilIdle()

	assert.NoError(t, c.Err())
	require.Len(t, got, 1)
	assert.Equal(t, down.Payload, got[0].Payload)
	assert.True(t, txData.AllWriteDataConsumed())
	assert.True(t, rxData.AllReadDataConsumed())

	assert.NoError(t, c.Stop())
	assert.NoError(t, c.Stop())
}

func TestClientRefused(t *testing.T) {
	tx := sockscript.NewScript().Connect(sockscript.Sync, sockscript.ErrConnectionRefused)
	rx := scripts.PullHandshake(sockscript.NewScript(), sockscript.Sync)
	rx.ReadHang()

	c, err := NewClient(
		WithServiceName("svc"),
		WithClientURL("tcp://127.0.0.1:6001"),
		TXSocket(sockscript.NewStreamSocket(tx.Static(sockscript.WithT(t)), sockscript.WithT(t))),
		ClientRXSocket(sockscript.NewStreamSocket(rx.Static(sockscript.WithT(t)), sockscript.WithT(t))),
	)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Start(), sockscript.ErrConnectionRefused)
	assert.ErrorIs(t, c.Err(), sockscript.ErrConnectionRefused)
	assert.NoError(t, c.Stop())
}
