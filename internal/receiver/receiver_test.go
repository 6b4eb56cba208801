// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package receiver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/internal/sp"
	"go.nanomsg.org/mangos/v3"
)

func handshake() *sockscript.Script {
	return sockscript.NewScript().
		WriteBytes(sockscript.Sync, sp.Header(sp.Pull)).
		ReadBytes(sockscript.Sync, sp.Header(sp.Push))
}

func TestNewListen(t *testing.T) {
	tests := []struct {
		name      string
		options   []Option
		script    *sockscript.Script
		want      *Receiver
		newErr    bool
		listenErr error
	}{
		{
			name:   "With no socket",
			newErr: true,
		}, {
			name: "With a socket and sizes",
			options: []Option{
				WithMaxFrameSize(64),
				WithReadSize(16),
			},
			script: handshake().ReadHang(),
			want: &Receiver{
				maxFrame: 64,
				readSize: 16,
			},
		}, {
			name: "With invalid sizes, should be ignored",
			options: []Option{
				WithMaxFrameSize(-1),
				WithReadSize(0),
			},
			script: handshake().ReadHang(),
			want: &Receiver{
				readSize: defaultReadSize,
			},
		}, {
			name: "With the connection refused",
			script: sockscript.NewScript().
				Connect(sockscript.Sync, sockscript.ErrConnectionRefused),
			listenErr: sockscript.ErrConnectionRefused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.options
			if tt.script != nil {
				sock := sockscript.NewStreamSocket(tt.script.Static(sockscript.WithT(t)), sockscript.WithT(t))
				opts = append(opts, WithSocket(sock))
			}

			r, err := New(opts...)
			if tt.newErr {
				assert.Error(t, err)
				assert.Nil(t, r)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, r)
			if tt.want != nil {
				assert.Equal(t, tt.want.maxFrame, r.maxFrame)
				assert.Equal(t, tt.want.readSize, r.readSize)
			}

			// Listen a 2nd time to ensure it doesn't error.
			for i := 0; i < 2; i++ {
				err = r.Listen()
				if tt.listenErr != nil {
					assert.ErrorIs(t, err, tt.listenErr)
					continue
				}
				assert.NoError(t, err)
				assert.True(t, r.Listening())
			}

			assert.NoError(t, r.Close())
			assert.NoError(t, r.Close())
			if tt.listenErr == nil {
				assert.ErrorIs(t, r.Listen(), mangos.ErrClosed)
			}
		})
	}
}
