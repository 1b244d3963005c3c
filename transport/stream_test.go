// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPair(t *testing.T) (*Stream, *Stream) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)

	a, err := New(fds[0])
	require.NoError(t, err)
	b, err := New(fds[1])
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return a, b
}

func TestStreamWriteRead(t *testing.T) {
	a, b := newPair(t)

	require.NoError(t, a.Write([]byte("hello ")))
	require.NoError(t, a.Write([]byte("world")))
	require.NoError(t, a.WriteFlush())

	got, err := b.Read(len("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestStreamCachedAndFlush(t *testing.T) {
	a, b := newPair(t)

	require.NoError(t, a.Write([]byte("abc")))
	require.NoError(t, a.WriteFlush())

	got, err := b.Read(3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, 3, b.Cached())

	b.ReadFlush(3)
	assert.Equal(t, 0, b.Cached())
}

func TestStreamReadGrowsBeyondInitialBuffer(t *testing.T) {
	a, b := newPair(t)

	payload := make([]byte, BufferSizeMin+512)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, a.Write(payload))
	require.NoError(t, a.WriteFlush())

	got, err := b.Read(len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, got[:len(payload)])
}

func TestStreamReadRejectsOversizedRequest(t *testing.T) {
	_, b := newPair(t)
	_, err := b.Read(BufferSizeMax + 1)
	require.Error(t, err)
}

func TestStreamReadOnClosedPeerReportsNetworkError(t *testing.T) {
	a, b := newPair(t)
	require.NoError(t, a.Close())

	_, err := b.Read(1)
	require.Error(t, err)
}
