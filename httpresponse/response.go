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

	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/httpparse"
)

// HeadersLengthMax bounds the assembled header block, mirroring upstream's
// HEADERS_LENGTH_MAX. A response is rejected rather than allowed to grow
// the block unboundedly.
const HeadersLengthMax = 1024

// Chunked marks Send's length argument as "frame the body with
// Transfer-Encoding: chunked" instead of a known Content-Length.
const Chunked int64 = -1

// Response is a single-use record of one reply in progress: a pooled header
// buffer, the chosen status code, and (once Send has run) the framing state
// entity writes need — whether a body is required at all, and if the
// response is ranged, the selected interval and a byte cursor into it.
type Response struct {
	buf  *bytebufferpool.ByteBuffer
	Code int

	// UUID is generated fresh for every response and always sent as a
	// UUID header. ETag is sent only when non-empty, set by a caller
	// serving a versioned content-store entry.
	UUID string
	ETag string

	bodyRequired bool
	chunked      bool
	ranges       []httpparse.Range
	index        int64
	sent         bool
}

// Sent reports whether Send has already transmitted this response's status
// line and headers. A caller that drives its own handler-specific response
// (the static/dynamic handlers) checks this before falling back to a
// default bodyless response for resp.Code.
func (r *Response) Sent() bool { return r.sent }

// New allocates a Response with status 200 OK, a freshly generated UUID and
// a header buffer drawn from the shared pool. Call Release once the
// response has been fully transmitted.
func New() *Response {
	return &Response{
		buf:  bytebufferpool.Get(),
		Code: http.StatusOK,
		UUID: uuid.NewString(),
	}
}

// Release returns the header buffer to the pool. Safe to call once Send has
// written it out; do not reuse the Response afterward.
func (r *Response) Release() {
	bytebufferpool.Put(r.buf)
	r.buf = nil
}

// AddHeader appends a "key: value\r\n" line to the header block. It fails
// with apierr.KindMemory if the block would exceed HeadersLengthMax,
// matching response_header_add's fixed-capacity check.
func (r *Response) AddHeader(key, value string) error {
	added := len(key) + 2 + len(value) + 2
	if r.buf.Len()+added > HeadersLengthMax {
		return apierr.New(apierr.KindMemory, nil)
	}
	r.buf.WriteString(key)
	r.buf.WriteString(": ")
	r.buf.WriteString(value)
	r.buf.WriteString("\r\n")
	return nil
}
