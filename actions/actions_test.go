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

package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/contentstore"
	"github.com/packetd/apiserverd/jsonvalue"
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

func objArg(pairs ...any) *jsonvalue.Value {
	v := jsonvalue.Object()
	for i := 0; i+1 < len(pairs); i += 2 {
		v.ObjectInsert(pairs[i].(string), pairs[i+1].(*jsonvalue.Value))
	}
	return v
}

func TestDispatchUnknown(t *testing.T) {
	_, err := Dispatch(&Context{}, "no.such.action", nil)
	require.Error(t, err)
	kind, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindMissing, kind)
}

func TestHelloWorld(t *testing.T) {
	t.Run("defaults to world", func(t *testing.T) {
		out, err := Dispatch(&Context{}, "example.hello_world", nil)
		require.NoError(t, err)
		msg, _ := out.Get("message")
		assert.Equal(t, "hello, world", msg.String())
	})

	t.Run("honours name, coerced from a non-string", func(t *testing.T) {
		args := objArg("name", jsonvalue.Int(7))
		out, err := Dispatch(&Context{}, "example.hello_world", args)
		require.NoError(t, err)
		msg, _ := out.Get("message")
		assert.Equal(t, "hello, 7", msg.String())
	})
}

func TestBuildInfo(t *testing.T) {
	out, err := Dispatch(&Context{}, "build.info", nil)
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.KindObject, out.Kind())
	_, ok := out.Get("version")
	assert.True(t, ok)
}

func TestStoreStat(t *testing.T) {
	dir := t.TempDir()
	store := contentstore.New(dir)

	t.Run("missing name fails", func(t *testing.T) {
		_, err := Dispatch(&Context{Store: store}, "store.stat", nil)
		require.Error(t, err)
	})

	t.Run("stats a written entry", func(t *testing.T) {
		body := "hello"
		stream := newStreamWithBody(t, body)

		require.NoError(t, store.Set("widget", stream, int64(len(body))))

		args := objArg("name", jsonvalue.String([]byte("widget")))
		out, err := Dispatch(&Context{Store: store}, "store.stat", args)
		require.NoError(t, err)

		name, _ := out.Get("name")
		assert.Equal(t, "widget", name.String())
		size, _ := out.Get("size")
		assert.Equal(t, int64(len(body)), size.Int())
	})
}
