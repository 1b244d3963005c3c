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
	"net/http"
	"strconv"
	"strings"

	"github.com/packetd/apiserverd/actions"
	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/httpparse"
	"github.com/packetd/apiserverd/httpresponse"
	"github.com/packetd/apiserverd/jsonvalue"
	"github.com/packetd/apiserverd/transport"
)

// nameFromPath strips the request's leading slash to get the content
// store's key, rejecting anything that could escape the store root: a name
// starting with "." or containing "/." is refused outright rather than
// resolved and checked after the fact.
func nameFromPath(path string) (string, bool) {
	name := strings.TrimPrefix(path, "/")
	if name == "" || strings.HasPrefix(name, ".") || strings.Contains(name, "/.") {
		return "", false
	}
	return name, true
}

// staticHandler is the dispatcher.StaticHandler: GET/HEAD reads a named
// content-store entry, POST publishes a new version of it.
func (e *Engine) staticHandler(stream *transport.Stream, req *httpparse.Request, resp *httpresponse.Response) error {
	name, ok := nameFromPath(req.Path)
	if !ok {
		return apierr.New(apierr.KindAccess, nil)
	}

	switch req.Method {
	case httpparse.MethodGet, httpparse.MethodHead:
		fi, err := e.store.Get(name)
		if err != nil {
			return err
		}
		defer e.store.Release(fi)

		resp.Code = http.StatusOK
		resp.ETag = strconv.FormatUint(fi.Digest, 16)

		data := fi.Bytes()
		if err := httpresponse.Send(stream, req, resp, int64(len(data))); err != nil {
			return err
		}
		if req.Method == httpparse.MethodHead {
			return nil
		}
		return httpresponse.SendEntity(stream, resp, data)

	case httpparse.MethodPost:
		lengthHeader := req.Header("content-length")
		if lengthHeader == "" {
			return apierr.New(apierr.KindInput, nil)
		}
		length, err := strconv.ParseInt(lengthHeader, 10, 64)
		if err != nil || length < 0 {
			return apierr.New(apierr.KindInput, err)
		}

		if err := e.store.Set(name, stream, length); err != nil {
			return err
		}

		resp.Code = http.StatusOK
		return httpresponse.Send(stream, req, resp, 0)

	default:
		return apierr.New(apierr.KindUnsupported, nil)
	}
}

// dynamicHandler is the dispatcher.DynamicHandler: query must be a JSON
// object carrying a top-level "actions" object whose first key names the
// action to run (additional keys are ignored, per §6).
func (e *Engine) dynamicHandler(stream *transport.Stream, req *httpparse.Request, resp *httpresponse.Response, query *jsonvalue.Value) error {
	if query.Kind() != jsonvalue.KindObject {
		return apierr.New(apierr.KindInput, nil)
	}

	actionsObj, ok := query.Get("actions")
	if !ok || actionsObj.Kind() != jsonvalue.KindObject {
		return apierr.New(apierr.KindInput, nil)
	}

	keys := actionsObj.Keys()
	if len(keys) == 0 {
		return apierr.New(apierr.KindInput, nil)
	}
	name := keys[0]

	var args *jsonvalue.Value
	if argVal, ok := actionsObj.Get(name); ok && argVal.Kind() == jsonvalue.KindObject {
		args = argVal
	}

	result, err := actions.Dispatch(e.actionCtx, name, args)
	if err != nil {
		return err
	}

	body := jsonvalue.Bytes(result)
	resp.Code = http.StatusOK
	_ = resp.AddHeader("Content-Type", "application/json")

	if err := httpresponse.Send(stream, req, resp, int64(len(body))); err != nil {
		return err
	}
	return httpresponse.SendEntity(stream, resp, body)
}
