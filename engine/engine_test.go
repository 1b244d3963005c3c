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

package engine

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/packetd/apiserverd/common"
	"github.com/packetd/apiserverd/confengine"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	yaml := fmt.Sprintf(`
logger:
  stdout: true
server:
  enabled: false
engine:
  store:
    root: %s
  dispatcher:
    addr: "127.0.0.1:0"
    poolSize: 2
`, t.TempDir())

	conf, err := confengine.LoadContent([]byte(yaml))
	require.NoError(t, err)

	e, err := New(conf, common.BuildInfo{Version: "test"})
	require.NoError(t, err)

	require.NoError(t, e.Start())
	t.Cleanup(e.Stop)
	return e
}

func TestEngineServesStaticRoundTrip(t *testing.T) {
	e := newTestEngine(t)

	conn, err := net.DialTimeout("tcp", e.Addr(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	body := "hello engine"
	req := fmt.Sprintf("POST /widget HTTP/1.1\r\nHost: h\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
	_, err = conn.Write([]byte(req))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEngineDynamicHelloWorld(t *testing.T) {
	e := newTestEngine(t)

	conn, err := net.DialTimeout("tcp", e.Addr(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	query := `{"actions":{"example.hello_world":{}}}`
	_, err = conn.Write([]byte("GET /?" + query + " HTTP/1.1\r\nHost: h\r\n\r\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
