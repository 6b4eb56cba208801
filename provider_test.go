// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProviderPeek(t *testing.T) {
	p := NewStaticProvider(
		[]MockRead{Read(Sync, 0, "a"), Read(Sync, 2, "b")},
		[]MockWrite{Write(Sync, 1, "x")},
		WithT(t),
	)

	first := p.PeekRead()
	assert.Equal(t, first, p.PeekRead())
	assert.Equal(t, Write(Sync, 1, "x"), p.PeekWrite())
	assert.Equal(t, Write(Sync, 1, "x"), p.PeekWrite())
	assert.Equal(t, 0, p.ReadIndex())
	assert.Equal(t, 0, p.WriteIndex())

	assert.Equal(t, first, p.GetNextRead())
	assert.Equal(t, 1, p.ReadIndex())
	assert.Equal(t, Read(Sync, 2, "b"), p.PeekRead())
	assert.Equal(t, 2, p.ReadCount())
	assert.Equal(t, 1, p.WriteCount())
}

func TestStaticProviderOnWrite(t *testing.T) {
	tests := []struct {
		name     string
		write    MockWrite
		data     string
		wantN    int
		wantErr  error
		wantMode Mode
		failed   bool
	}{
		{
			name:  "exact match",
			write: Write(Sync, 0, "abc"),
			data:  "abc",
			wantN: 3,
		}, {
			name:     "async match",
			write:    Write(Async, 0, "abc"),
			data:     "abc",
			wantN:    3,
			wantMode: Async,
		}, {
			name:  "expected bytes are a prefix",
			write: Write(Sync, 0, "ab"),
			data:  "abcd",
			wantN: 2,
		}, {
			name:    "mismatch",
			write:   Write(Sync, 0, "abc"),
			data:    "abd",
			wantErr: ErrUnexpected,
			failed:  true,
		}, {
			name:    "short write",
			write:   Write(Sync, 0, "abc"),
			data:    "ab",
			wantErr: ErrUnexpected,
			failed:  true,
		}, {
			name:  "any",
			write: WriteAny(Sync, 0),
			data:  "whatever",
			wantN: 8,
		}, {
			name:    "scripted error",
			write:   WriteError(Sync, 0, ErrConnectionReset),
			data:    "abc",
			wantErr: ErrConnectionReset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mt mockT
			p := NewStaticProvider(nil, []MockWrite{tt.write}, WithT(&mt))

			res := p.OnWrite([]byte(tt.data))

			assert.Equal(t, tt.failed, mt.failed())
			assert.Equal(t, 1, p.WriteIndex())
			assert.True(t, p.AllWriteDataConsumed())
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
				return
			}
			require.NoError(t, res.Err)
			assert.Equal(t, tt.wantN, res.N)
			assert.Equal(t, tt.wantMode, res.Mode)
		})
	}
}

func TestStaticProviderMismatchError(t *testing.T) {
	var mt mockT
	p := NewStaticProvider(nil, []MockWrite{Write(Sync, 0, "PASV\r\n")}, WithT(&mt))

	res := p.OnWrite([]byte("PASV\n"))

	var mismatch *MismatchError
	require.True(t, errors.As(res.Err, &mismatch))
	assert.Equal(t, 0, mismatch.Index)
	assert.Equal(t, []byte("PASV\r\n"), mismatch.Expected)
	assert.Equal(t, []byte("PASV\n"), mismatch.Actual)
	assert.Contains(t, mismatch.Error(), `"PASV\r\n"`)
	require.Len(t, mt.errors, 1)
	assert.Contains(t, mt.errors[0], "write 0 does not match the script")
}

func TestStaticProviderExhausted(t *testing.T) {
	var mt mockT
	p := NewStaticProvider(nil, nil, WithT(&mt))

	r := p.GetNextRead()
	assert.ErrorIs(t, r.err(), ErrScriptExhausted)
	assert.True(t, mt.fatal)
	assert.Equal(t, 0, p.ReadIndex())

	mt = mockT{}
	res := p.OnWrite([]byte("x"))
	assert.ErrorIs(t, res.Err, ErrScriptExhausted)
	assert.ErrorIs(t, res.Err, ErrUnexpected)
	assert.True(t, mt.fatal)
	assert.Equal(t, 0, p.WriteIndex())
}

func TestStaticProviderReset(t *testing.T) {
	p := NewStaticProvider(
		[]MockRead{Read(Sync, 0, "a")},
		[]MockWrite{Write(Sync, 1, "b")},
		WithT(t),
	)

	p.GetNextRead()
	p.OnWrite([]byte("b"))
	assert.True(t, p.AllReadDataConsumed())
	assert.True(t, p.AllWriteDataConsumed())

	p.Reset()
	assert.Equal(t, 0, p.ReadIndex())
	assert.Equal(t, 0, p.WriteIndex())
	assert.False(t, p.AllReadDataConsumed())
}

func TestPanicWithoutT(t *testing.T) {
	p := NewStaticProvider(nil, nil)
	assert.Panics(t, func() {
		p.GetNextRead()
	})
}

func TestInvalidOption(t *testing.T) {
	var mt mockT
	NewStaticProvider(nil, nil, WithT(&mt), WithConnect(MockConnect{Mode: Mode(7)}))
	assert.True(t, mt.fatal)
}
