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

package contentstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/transport"
)

func newStreamWithBody(t *testing.T, body string) *transport.Stream {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)

	server, err := transport.New(fds[0])
	require.NoError(t, err)
	client, err := transport.New(fds[1])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})

	require.NoError(t, client.Write([]byte(body)))
	require.NoError(t, client.WriteFlush())
	return server
}

func TestGetMissingDirectoryIsMissingError(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Get("nope")
	require.Error(t, err)
	kind, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindMissing, kind)
}

func TestSetThenGetRoundTrips(t *testing.T) {
	s := New(t.TempDir())
	stream := newStreamWithBody(t, "hello world")

	require.NoError(t, s.Set("widget", stream, int64(len("hello world"))))

	fi, err := s.Get("widget")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fi.Version)
	assert.Equal(t, "hello world", string(fi.Bytes()))
	assert.NotEmpty(t, fi.UUID)
	assert.NotZero(t, fi.Digest)
	s.Release(fi)
}

func TestSetTwiceIncrementsVersion(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	require.NoError(t, s.Set("widget", newStreamWithBody(t, "v1"), 2))
	require.NoError(t, s.Set("widget", newStreamWithBody(t, "version-2"), 9))

	fi, err := s.Get("widget")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), fi.Version)
	assert.Equal(t, "version-2", string(fi.Bytes()))
	s.Release(fi)
}

func TestStatDoesNotHoldReference(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Set("widget", newStreamWithBody(t, "abc"), 3))

	stat, err := s.Stat("widget")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stat.Version)
	assert.EqualValues(t, 3, stat.Size)
}

func TestReleaseUnmapsAtZeroRefs(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Set("widget", newStreamWithBody(t, "abc"), 3))

	fi, err := s.Get("widget")
	require.NoError(t, err)

	// Publishing a new version drops the store's slot reference to fi,
	// leaving only the caller's.
	require.NoError(t, s.Set("widget", newStreamWithBody(t, "defg"), 4))
	assert.Equal(t, 1, fi.refs)

	s.Release(fi)
	assert.Equal(t, 0, fi.refs)
}
