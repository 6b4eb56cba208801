// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package scriptfile

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/sockscript"
)

func TestReplay(t *testing.T) {
	tests := []struct {
		description string
		doc         string
		expectedN   []int
		expectedErr []error
	}{
		{
			description: "greeting",
			doc:         greeting,
			expectedN:   []int{7, 9, 2, 0},
			expectedErr: []error{nil, nil, nil, io.EOF},
		}, {
			description: "scripted failures",
			doc: `
steps:
  - write_any: true
    mode: async
  - read_error: reset
  - write_error: closed
    mode: async
`,
			expectedN:   []int{3, 0, 0},
			expectedErr: []error{nil, sockscript.ErrConnectionReset, sockscript.ErrConnectionClosed},
		}, {
			description: "hang ends the replay",
			doc: `
steps:
  - read: "a"
  - hang: true
  - write: "never"
`,
			expectedN:   []int{1, 0},
			expectedErr: []error{nil, sockscript.ErrStalled},
		}, {
			description: "connect refused",
			doc: `
connect:
  mode: async
  error: refused
steps: []
`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			f, err := Parse([]byte(tc.doc))
			require.NoError(t, err)

			outcomes, err := Replay(f, nil)
			require.NoError(t, err)
			require.Len(t, outcomes, len(tc.expectedN))

			for i, o := range outcomes {
				assert.Equal(t, i, o.Step.Seq)
				assert.Equal(t, tc.expectedN[i], o.N, o.String())
				if tc.expectedErr[i] == nil {
					assert.NoError(t, o.Err)
				} else {
					assert.ErrorIs(t, o.Err, tc.expectedErr[i])
				}
			}
		})
	}
}
