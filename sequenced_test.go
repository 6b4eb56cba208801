// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencedRunsThroughLoop(t *testing.T) {
	script := NewScript().
		Write(Async, "hello").
		Read(Async, "world").
		Write(Sync, "bye")

	p := script.Sequenced(WithT(t))
	s := connected(t, p)

	var rec recorder
	buf := make([]byte, 8)
	_, err := s.Read(buf, func(n int, err error) {
		rec.add("read %s", buf[:n])
		n, err = s.Write([]byte("bye"), nil)
		assert.NoError(t, err)
		rec.add("wrote %d", n)
	})
	require.ErrorIs(t, err, ErrIOPending)
	_, err = s.Write([]byte("hello"), func(n int, err error) {
		rec.add("wrote %d", n)
	})
	require.ErrorIs(t, err, ErrIOPending)

	s.Loop().RunUntilIdle()
	assert.Equal(t, []string{"wrote 5", "read world", "wrote 3"}, rec.events)
	assert.Equal(t, 3, p.SequenceNumber())
	assert.True(t, p.AllReadDataConsumed())
	assert.True(t, p.AllWriteDataConsumed())
}

func TestSequencedPauseResume(t *testing.T) {
	p := NewScript().
		Read(Async, "a").
		Read(Async, "b").
		Sequenced(WithT(t))
	s := connected(t, p)

	var rec recorder
	buf := make([]byte, 1)
	var cb Callback
	cb = func(n int, err error) {
		rec.add("%s", buf[:n])
		if len(rec.events) < 2 {
			_, err = s.Read(buf, cb)
			assert.ErrorIs(t, err, ErrIOPending)
		}
	}

	p.Pause(1)
	_, err := s.Read(buf, cb)
	require.ErrorIs(t, err, ErrIOPending)

	assert.True(t, p.RunUntilPaused())
	assert.True(t, p.IsPaused())
	assert.Equal(t, []string{"a"}, rec.events)

	p.Resume()
	assert.False(t, p.IsPaused())
	s.Loop().RunUntilIdle()
	assert.Equal(t, []string{"a", "b"}, rec.events)
}

func TestSequencedSyncWhilePaused(t *testing.T) {
	var mt mockT
	p := NewScript().Read(Sync, "a").Sequenced(WithT(&mt))
	s := connected(t, p)

	p.Pause(0)
	_, err := s.Read(make([]byte, 1), nil)
	assert.ErrorIs(t, err, ErrUnexpected)
	assert.True(t, mt.failed())
}

func TestSequencedNotPaused(t *testing.T) {
	var mt mockT
	p := NewScript().Read(Sync, "a").Sequenced(WithT(&mt))
	connected(t, p)

	assert.False(t, p.RunUntilPaused())
	assert.True(t, mt.failed())

	mt = mockT{}
	p.Resume()
	assert.True(t, mt.failed())
}
