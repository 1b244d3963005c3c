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
	"net/http"

	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/common"
	"github.com/packetd/apiserverd/httpparse"
	"github.com/packetd/apiserverd/httpresponse"
)

var serverHeader = common.App + "/" + common.Version

const (
	corsAllowHeaders = "Cache-Control, X-Requested-With, Filename, Filesize, Content-Type, Content-Length, Authorization, Range"
	corsAllowMethods = "GET, POST, OPTIONS, PUT, DELETE, SUBSCRIBE, NOTIFY"
	corsExposeHeader = "Server, UUID"
)

// serve is the per-connection service function handed to a worker: the
// direct equivalent of server_serve. It runs entirely on the calling
// worker goroutine and may block freely on conn.stream. The returned bool
// says whether the connection should be kept open for another request.
func (d *Dispatcher) serve(conn *connection) (keepAlive bool) {
	req := &conn.ctx.Request
	stream := conn.stream

	keepAlive = req.Header("connection") != "close"

	resp := httpresponse.New()
	defer resp.Release()

	resp.AddHeader("Server", serverHeader)
	if req.Header("origin") != "" {
		resp.AddHeader("Access-Control-Allow-Origin", "*")
		resp.AddHeader("Access-Control-Expose-Headers", corsExposeHeader)
	}

	var err error
	if req.Method == httpparse.MethodOptions {
		resp.AddHeader("Access-Control-Allow-Headers", corsAllowHeaders)
		resp.AddHeader("Access-Control-Expose-Headers", corsExposeHeader)
		resp.AddHeader("Access-Control-Allow-Methods", corsAllowMethods)
		resp.Code = http.StatusOK
	} else if err = httpparse.ParseURI(req); err == nil {
		resp.Code = http.StatusInternalServerError
		if req.Query != nil {
			err = d.dynamic(stream, req, resp, req.Query)
		} else {
			err = d.static(stream, req, resp)
		}
	}

	if err != nil {
		if kind, _ := apierr.As(err); kind == apierr.KindProgress {
			// The handler is carrying this response asynchronously (or
			// deliberately sent nothing); there is nothing left to do here.
			return keepAlive
		}

		var ok bool
		keepAlive, ok = classify(req, resp, err, keepAlive)
		if !ok {
			return false // NETWORK: no response is possible
		}
	}

	if !resp.Sent() {
		if sendErr := httpresponse.Send(stream, req, resp, 0); sendErr != nil {
			return false
		}
	}

	return keepAlive
}

// classify folds a handler's internal error into resp.Code and the
// keep-alive decision, mirroring the error-kind switch in server_serve. ok
// is false only for NETWORK, where no response can be sent at all.
func classify(req *httpparse.Request, resp *httpresponse.Response, err error, keepAlive bool) (_ bool, ok bool) {
	kind, _ := apierr.As(err)

	if req.Method == httpparse.MethodPost || req.Method == httpparse.MethodPut {
		resp.AddHeader("Connection", "close")
		keepAlive = false
	}

	if kind == apierr.KindCancel {
		resp.AddHeader("Connection", "close")
		resp.Code = http.StatusOK
		return false, true
	}

	status, forceClose, ok := apierr.HTTPStatus(kind)
	if !ok {
		return false, false
	}
	resp.Code = status
	if forceClose {
		keepAlive = false
	}
	return keepAlive, true
}
