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

package httpresponse

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/packetd/apiserverd/httpparse"
	"github.com/packetd/apiserverd/transport"
)

func newStreamPair(t *testing.T) (*transport.Stream, *transport.Stream) {
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
	return server, client
}

// parseRequest feeds raw through a parser connected to server so the
// returned Request carries real, normally-populated headers.
func parseRequest(t *testing.T, server, client *transport.Stream, raw string) *httpparse.Request {
	t.Helper()
	require.NoError(t, client.Write([]byte(raw)))
	require.NoError(t, client.WriteFlush())

	var ctx httpparse.Context
	ctx.Reset()
	require.NoError(t, httpparse.Parse(&ctx, server))
	return &ctx.Request
}

func TestSendIdentityGet(t *testing.T) {
	server, client := newStreamPair(t)
	req := parseRequest(t, server, client, "GET /x HTTP/1.1\r\nHost: h\r\n\r\n")

	resp := New()
	resp.ETag = "deadbeef"
	require.NoError(t, Send(server, req, resp, 5))
	require.NoError(t, SendEntity(server, resp, []byte("hello")))
	resp.Release()

	buf, err := client.Read(1)
	require.NoError(t, err)
	out := string(buf)
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, out, "Content-Length: 5\r\n")
	assert.Contains(t, out, "ETag: deadbeef\r\n")
	assert.Contains(t, out, "UUID: "+resp.UUID+"\r\n")
	assert.Contains(t, out, "hello")
}

func TestSendHeadHasNoBody(t *testing.T) {
	server, client := newStreamPair(t)
	req := parseRequest(t, server, client, "HEAD /x HTTP/1.1\r\nHost: h\r\n\r\n")

	resp := New()
	require.NoError(t, Send(server, req, resp, 1024))
	require.NoError(t, SendEntity(server, resp, []byte("should not appear")))
	resp.Release()

	buf, err := client.Read(1)
	require.NoError(t, err)
	out := string(buf)
	assert.NotContains(t, out, "should not appear")
	assert.NotContains(t, out, "Content-Length")
}

func TestSendRangePromotesPartialContent(t *testing.T) {
	server, client := newStreamPair(t)
	req := parseRequest(t, server, client, "GET /x HTTP/1.1\r\nHost: h\r\nRange: bytes=2-4\r\n\r\n")

	resp := New()
	resp.Code = http.StatusOK
	require.NoError(t, Send(server, req, resp, 10))
	require.NoError(t, SendEntity(server, resp, []byte("0123456789")))
	resp.Release()

	buf, err := client.Read(1)
	require.NoError(t, err)
	out := string(buf)
	assert.Contains(t, out, "HTTP/1.1 206 Partial Content\r\n")
	assert.Contains(t, out, "Content-Range: bytes 2-4/10\r\n")
	assert.Contains(t, out, "Content-Length: 3\r\n")
	assert.Contains(t, out, "234")
}

func TestSendChunkedFraming(t *testing.T) {
	server, client := newStreamPair(t)
	req := parseRequest(t, server, client, "GET /x HTTP/1.1\r\nHost: h\r\n\r\n")

	resp := New()
	require.NoError(t, Send(server, req, resp, Chunked))
	require.NoError(t, SendEntity(server, resp, []byte("abc")))
	require.NoError(t, SendEntity(server, resp, nil))
	resp.Release()

	buf, err := client.Read(1)
	require.NoError(t, err)
	out := string(buf)
	assert.Contains(t, out, "Transfer-Encoding: chunked\r\n")
	assert.Contains(t, out, "3\r\nabc\r\n")
	assert.Contains(t, out, "0\r\n\r\n")
}

func TestSendUnknownCodeRejected(t *testing.T) {
	server, client := newStreamPair(t)
	req := parseRequest(t, server, client, "GET /x HTTP/1.1\r\nHost: h\r\n\r\n")

	resp := New()
	resp.Code = 999
	require.Error(t, Send(server, req, resp, 0))
	resp.Release()
}
