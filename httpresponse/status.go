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

// Package httpresponse assembles and transmits HTTP/1.1 responses: the
// status line, a bounded header block, and chunked or identity body
// framing, writing through a transport.Stream.
package httpresponse

import "net/http"

// reasonPhrases is the fixed status-code-to-phrase table. A status code
// handed to Send that isn't in this table is a programming error, not a
// client-facing one, so it fails loudly instead of falling back to
// net/http.StatusText's broader (and looser) table.
var reasonPhrases = map[int]string{
	http.StatusOK:                          "OK",
	http.StatusNoContent:                   "No Content",
	http.StatusPartialContent:              "Partial Content",
	http.StatusMovedPermanently:            "Moved Permanently",
	http.StatusNotModified:                 "Not Modified",
	http.StatusBadRequest:                  "Bad Request",
	http.StatusForbidden:                   "Forbidden",
	http.StatusNotFound:                    "Not Found",
	http.StatusMethodNotAllowed:            "Method Not Allowed",
	http.StatusRequestTimeout:              "Request Timeout",
	http.StatusLengthRequired:              "Length Required",
	http.StatusRequestEntityTooLarge:       "Request Entity Too Large",
	http.StatusRequestURITooLong:           "Request-URI Too Long",
	http.StatusUnsupportedMediaType:        "Unsupported Media Type",
	http.StatusRequestedRangeNotSatisfiable: "Requested Range Not Satisfiable",
	http.StatusInternalServerError:         "Internal Server Error",
	http.StatusNotImplemented:              "Not Implemented",
	http.StatusBadGateway:                  "Bad Gateway",
	http.StatusServiceUnavailable:          "Service Unavailable",
}

// reasonPhrase looks up code's phrase. ok is false for any code outside the
// fixed table above.
func reasonPhrase(code int) (string, bool) {
	p, ok := reasonPhrases[code]
	return p, ok
}

// bodyRequired reports whether a response of the given method/code carries
// an entity body at all: HEAD, 1xx, 204 and 304 never do.
func bodyRequired(method string, code int) bool {
	if method == "HEAD" || code < 200 || code == http.StatusNoContent || code == http.StatusNotModified {
		return false
	}
	return true
}
