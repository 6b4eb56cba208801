// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package scriptfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/sockscript"
)

const greeting = `
name: greeting
description: a short exchange
connect:
  mode: async
steps:
  - write: "HELLO\r\n"
  - read: "WELCOME\r\n"
    mode: async
  - peer_close: true
  - read_hex: "00ff"
  - eof: true
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(greeting))
	require.NoError(t, err)

	assert.Equal(t, "greeting", f.Name)
	require.NotNil(t, f.Connect)
	assert.Equal(t, "async", f.Connect.Mode)
	assert.Len(t, f.Steps, 5)

	reads, writes, mc, err := f.Tables()
	require.NoError(t, err)

	assert.Equal(t, sockscript.Async, mc.Mode)
	assert.NoError(t, mc.Err)
	assert.Equal(t, []sockscript.MockWrite{
		sockscript.Write(sockscript.Sync, 0, "HELLO\r\n"),
	}, writes)
	assert.Equal(t, []sockscript.MockRead{
		sockscript.Read(sockscript.Async, 1, "WELCOME\r\n"),
		sockscript.PeerCloseAfterNextRead(),
		sockscript.ReadBytes(sockscript.Sync, 2, []byte{0x00, 0xff}),
		sockscript.ReadEOF(sockscript.Sync, 3),
	}, reads)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		description string
		doc         string
		expectedErr error
	}{
		{
			description: "not yaml",
			doc:         "steps: [",
			expectedErr: ErrInvalidYAML,
		}, {
			description: "unknown key",
			doc:         "steps:\n  - reed: x\n",
			expectedErr: ErrInvalidYAML,
		}, {
			description: "two actions",
			doc:         "steps:\n  - read: x\n    write: y\n",
			expectedErr: ErrInvalidStep,
		}, {
			description: "no action",
			doc:         "steps:\n  - mode: async\n",
			expectedErr: ErrInvalidStep,
		}, {
			description: "unknown mode",
			doc:         "steps:\n  - read: x\n    mode: later\n",
			expectedErr: ErrInvalidStep,
		}, {
			description: "unknown error",
			doc:         "steps:\n  - read_error: timeout\n",
			expectedErr: ErrInvalidStep,
		}, {
			description: "bad hex",
			doc:         "steps:\n  - write_hex: zz\n",
			expectedErr: ErrInvalidStep,
		}, {
			description: "gap in the sequence",
			doc:         "steps:\n  - read: x\n  - write: y\n    seq: 3\n",
			expectedErr: sockscript.ErrBadSequence,
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			f, err := Parse([]byte(tc.doc))
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.Nil(t, f)
		})
	}

	_, err := Parse([]byte("connect:\n  error: timeout\nsteps: []\n"))
	assert.Error(t, err)
}

func TestExplicitSeq(t *testing.T) {
	doc := `
steps:
  - write: b
    seq: 1
  - read: a
    seq: 0
  - read: c
    seq: 2
  - write: d
`
	f, err := Parse([]byte(doc))
	require.NoError(t, err)

	reads, writes, _, err := f.Tables()
	require.NoError(t, err)
	assert.Equal(t, []sockscript.MockRead{
		sockscript.Read(sockscript.Sync, 0, "a"),
		sockscript.Read(sockscript.Sync, 2, "c"),
	}, reads)
	assert.Equal(t, []sockscript.MockWrite{
		sockscript.Write(sockscript.Sync, 1, "b"),
		sockscript.Write(sockscript.Sync, 3, "d"),
	}, writes)

	// Listed out of order, so no script can be built from it.
	_, err = f.Script()
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestScript(t *testing.T) {
	f, err := Parse([]byte(greeting))
	require.NoError(t, err)

	s, err := f.Script()
	require.NoError(t, err)

	reads, writes, mc, err := f.Tables()
	require.NoError(t, err)

	assert.Equal(t, reads, s.Reads())
	assert.Equal(t, writes, s.Writes())
	assert.Equal(t, mc, s.ConnectData())
	assert.Equal(t, 4, s.Steps())
}

func TestScriptRuns(t *testing.T) {
	f, err := Parse([]byte(greeting))
	require.NoError(t, err)
	s, err := f.Script()
	require.NoError(t, err)

	p := s.Deterministic(sockscript.WithT(t))
	c := sockscript.NewConn(sockscript.NewStreamSocket(p, sockscript.WithT(t)), nil)
	require.NoError(t, c.Connect())

	n, err := c.Write([]byte("HELLO\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	buf := make([]byte, 16)
	n, err = c.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "WELCOME\r\n", string(buf[:n]))

	n, err = c.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, buf[:n])

	_, err = c.Read(buf)
	assert.Error(t, err)
	assert.True(t, p.AllReadDataConsumed())
	assert.True(t, p.AllWriteDataConsumed())
}

func TestFromTables(t *testing.T) {
	tests := []struct {
		description string
		connect     sockscript.MockConnect
		reads       []sockscript.MockRead
		writes      []sockscript.MockWrite
		expected    *File
		wantErr     bool
		expectedErr error
	}{
		{
			description: "text and binary",
			reads: []sockscript.MockRead{
				sockscript.Read(sockscript.Async, 1, "ok\r\n"),
				sockscript.PeerCloseAfterNextRead(),
				sockscript.ReadBytes(sockscript.Sync, 2, []byte{0x01, 0x02}),
				sockscript.ReadHang(4),
			},
			writes: []sockscript.MockWrite{
				sockscript.WriteAny(sockscript.Sync, 0),
				sockscript.WriteError(sockscript.Async, 3, sockscript.ErrConnectionReset),
			},
			expected: &File{
				Steps: []Step{
					{WriteAny: true},
					{Mode: "async", Read: ptr("ok\r\n")},
					{PeerClose: true},
					{ReadHex: "0102"},
					{Mode: "async", WriteError: "reset"},
					{Hang: true},
				},
			},
		}, {
			description: "connect failure",
			connect:     sockscript.Connect(sockscript.Async, sockscript.ErrConnectionRefused),
			expected: &File{
				Connect: &Connect{Mode: "async", Error: "refused"},
			},
		}, {
			description: "unnamed error",
			reads: []sockscript.MockRead{
				sockscript.ReadError(sockscript.Sync, 0, os.ErrDeadlineExceeded),
			},
			wantErr: true,
		}, {
			description: "gap",
			reads: []sockscript.MockRead{
				sockscript.Read(sockscript.Sync, 1, "x"),
			},
			wantErr:     true,
			expectedErr: sockscript.ErrBadSequence,
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			f, err := FromTables(tc.connect, tc.reads, tc.writes)
			if tc.wantErr {
				assert.Error(t, err)
				if tc.expectedErr != nil {
					assert.ErrorIs(t, err, tc.expectedErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, f)

			// Whatever is described reads back as the same tables.
			data, err := Marshal(f)
			require.NoError(t, err)
			back, err := Parse(data)
			require.NoError(t, err)

			reads, writes, mc, err := back.Tables()
			require.NoError(t, err)
			assert.Equal(t, tc.reads, reads)
			assert.Equal(t, tc.writes, writes)
			assert.Equal(t, tc.connect.Mode, mc.Mode)
			assert.ErrorIs(t, mc.Err, tc.connect.Err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeting.yaml")
	require.NoError(t, os.WriteFile(path, []byte(greeting), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "greeting", f.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("steps:\n  - nope: 1\n"), 0o600))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidYAML)
	assert.Contains(t, err.Error(), bad)
}

func TestMarshalNil(t *testing.T) {
	_, err := Marshal(nil)
	assert.Error(t, err)
}

func TestErrors(t *testing.T) {
	assert.Equal(t, []string{"closed", "reset", "refused", "not_connected", "unexpected"}, Errors())
}

func ptr[T any](v T) *T {
	return &v
}
