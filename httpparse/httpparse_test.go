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

package httpparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/packetd/apiserverd/transport"
)

func newStreamPair(t *testing.T) (*transport.Stream, *transport.Stream) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)

	client, err := transport.New(fds[0])
	require.NoError(t, err)
	server, err := transport.New(fds[1])
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}

func TestParseSimpleGet(t *testing.T) {
	client, server := newStreamPair(t)

	require.NoError(t, client.Write([]byte("GET /hello?{\"a\":1} HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\n\r\n")))
	require.NoError(t, client.WriteFlush())

	var ctx Context
	ctx.Reset()
	require.NoError(t, Parse(&ctx, server))

	assert.Equal(t, MethodGet, ctx.Request.Method)
	assert.Equal(t, 1, ctx.Request.Major)
	assert.Equal(t, 1, ctx.Request.Minor)
	assert.Equal(t, "example.com", ctx.Request.Header("host"))
	assert.Equal(t, "*/*", ctx.Request.Header("accept"))

	require.NoError(t, ParseURI(&ctx.Request))
	assert.Equal(t, "/hello", ctx.Request.Path)
	require.NotNil(t, ctx.Request.Query)
	a, ok := ctx.Request.Query.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), a.Int())
}

func TestParseHeaderWhitespaceCollapse(t *testing.T) {
	client, server := newStreamPair(t)

	require.NoError(t, client.Write([]byte("GET / HTTP/1.0\r\nX-Thing:   a   b  \r\n\r\n")))
	require.NoError(t, client.WriteFlush())

	var ctx Context
	ctx.Reset()
	require.NoError(t, Parse(&ctx, server))

	assert.Equal(t, "a b", ctx.Request.Header("x-thing"))
}

func TestParseFirstHeaderOccurrenceWins(t *testing.T) {
	client, server := newStreamPair(t)

	require.NoError(t, client.Write([]byte("GET / HTTP/1.1\r\nX-Dup: first\r\nX-Dup: second\r\n\r\n")))
	require.NoError(t, client.WriteFlush())

	var ctx Context
	ctx.Reset()
	require.NoError(t, Parse(&ctx, server))

	assert.Equal(t, "first", ctx.Request.Header("x-dup"))
}

func TestParseUnknownMethodRejected(t *testing.T) {
	client, server := newStreamPair(t)

	require.NoError(t, client.Write([]byte("PATCH / HTTP/1.1\r\n\r\n")))
	require.NoError(t, client.WriteFlush())

	var ctx Context
	ctx.Reset()
	require.Error(t, Parse(&ctx, server))
}

func TestParseURIEmptyIsRoot(t *testing.T) {
	r := &Request{URI: ""}
	require.NoError(t, ParseURI(r))
	assert.Equal(t, "/", r.Path)
	assert.Nil(t, r.Query)
}

func TestParseURIBareQuestionMarkHasNoQuery(t *testing.T) {
	r := &Request{URI: "/path?"}
	require.NoError(t, ParseURI(r))
	assert.Equal(t, "/path", r.Path)
	assert.Nil(t, r.Query)
}

func TestParseURIAbsoluteForm(t *testing.T) {
	r := &Request{URI: "http://example.com:8080/a/b?{\"x\":1}"}
	require.NoError(t, ParseURI(r))
	assert.Equal(t, ProtocolHTTP, r.Protocol)
	assert.EqualValues(t, 8080, r.Port)
	assert.Equal(t, "/a/b", r.Path)
	assert.Equal(t, "example.com", r.Header("host"))
}

func TestParseRangeMergesOverlap(t *testing.T) {
	ranges, err := ParseRange("bytes=0-99,50-149,500-", 1000)
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	assert.Equal(t, Range{0, 149}, ranges[0])
	assert.Equal(t, Range{500, 999}, ranges[1])
}

func TestParseRangeUnsupportedUnitIgnored(t *testing.T) {
	ranges, err := ParseRange("items=0-1", 1000)
	require.NoError(t, err)
	assert.Nil(t, ranges)
}

func TestParseRangeUnsatisfiable(t *testing.T) {
	_, err := ParseRange("bytes=5000-6000", 1000)
	require.Error(t, err)
}

func TestParseQuality(t *testing.T) {
	q, err := ParseQuality("q=0.8")
	require.NoError(t, err)
	assert.Equal(t, 800, q)

	q, err = ParseQuality("q=1")
	require.NoError(t, err)
	assert.Equal(t, 1000, q)

	_, err = ParseQuality("q=2")
	require.Error(t, err)
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions(`form-data; name="field1"; filename="a%20b.txt"`)
	require.NoError(t, err)
	assert.Equal(t, "field1", opts["name"])
	assert.Equal(t, "a b.txt", opts["filename"])
}
