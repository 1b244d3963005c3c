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

package dispatcher

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/httpparse"
	"github.com/packetd/apiserverd/httpresponse"
	"github.com/packetd/apiserverd/jsonvalue"
	"github.com/packetd/apiserverd/transport"
)

func echoStatic(stream *transport.Stream, req *httpparse.Request, resp *httpresponse.Response) error {
	body := []byte("hello " + req.Path)
	resp.Code = http.StatusOK
	if err := httpresponse.Send(stream, req, resp, int64(len(body))); err != nil {
		return err
	}
	return httpresponse.SendEntity(stream, resp, body)
}

func echoDynamic(stream *transport.Stream, req *httpparse.Request, resp *httpresponse.Response, query *jsonvalue.Value) error {
	return apierr.New(apierr.KindMissing, nil)
}

func startDispatcher(t *testing.T) (addr string, stop func()) {
	t.Helper()

	d, err := New(Config{Addr: "127.0.0.1:0", PoolSize: 2}, echoStatic, echoDynamic)
	require.NoError(t, err)
	require.NoError(t, d.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Serve(ctx)
	}()

	return d.Addr(), func() {
		cancel()
		<-done
	}
}

func TestDispatcherServesStaticGet(t *testing.T) {
	addr, stop := startDispatcher(t)
	defer stop()

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /widgets HTTP/1.1\r\nHost: example\r\n\r\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDispatcherOptionsIsCORSPreflight(t *testing.T) {
	addr, stop := startDispatcher(t)
	defer stop()

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("OPTIONS /widgets HTTP/1.1\r\nHost: example\r\nOrigin: https://x\r\n\r\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))
}
