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
	"strconv"
	"strings"

	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/jsonvalue"
)

// ParseURI resolves r.URI (captured verbatim by Parse) into Path and,
// when present, a parsed Query. It accepts both origin-form ("/a/b?c") and
// absolute-form ("http://host:port/a/b?c") request targets; for the latter
// it also injects a synthetic "host" header, overwriting any Host header
// already present — matching the dict_set (replace), not dict_add
// (insert-if-absent), upstream uses there.
//
// An empty request target is treated as "/" with no query, and a target
// with a trailing bare "?" and nothing after it is treated as having no
// query at all rather than an empty-but-present one.
func ParseURI(r *Request) error {
	if r.URI == "" {
		r.Path = "/"
		r.Query = nil
		return nil
	}

	if r.URI[0] == '/' {
		return parseURIPath(r, r.URI)
	}

	return parseAbsoluteURI(r)
}

func parseAbsoluteURI(r *Request) error {
	uri := r.URI

	var rest string
	switch {
	case strings.HasPrefix(uri, "https://"):
		r.Protocol = ProtocolHTTPS
		rest = uri[len("https://"):]
	case strings.HasPrefix(uri, "http://"):
		r.Protocol = ProtocolHTTP
		rest = uri[len("http://"):]
	default:
		return apierr.New(apierr.KindInput, nil)
	}

	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return apierr.New(apierr.KindInput, nil)
	}
	host := rest[:slash]
	path := rest[slash:]

	hostname := host
	if colon := strings.IndexByte(host, ':'); colon >= 0 {
		hostname = host[:colon]
		port, err := strconv.ParseUint(host[colon+1:], 10, 16)
		if err != nil {
			return apierr.New(apierr.KindInput, nil)
		}
		r.Port = uint16(port)
	}

	r.setHeader("host", hostname)
	return parseURIPath(r, path)
}

func parseURIPath(r *Request, target string) error {
	question := strings.IndexByte(target, '?')

	var rawPath, rawQuery string
	hasQuery := question >= 0 && question+1 < len(target)
	if question >= 0 {
		rawPath = target[:question]
		if hasQuery {
			rawQuery = target[question+1:]
		}
	} else {
		rawPath = target
	}

	path, ok := percentDecode(rawPath)
	if !ok {
		return apierr.New(apierr.KindInput, nil)
	}
	r.Path = path

	if !hasQuery {
		r.Query = nil
		return nil
	}

	decodedQuery, ok := percentDecode(rawQuery)
	if !ok {
		return apierr.New(apierr.KindInput, nil)
	}
	query, err := jsonvalue.Parse([]byte(decodedQuery))
	if err != nil {
		return apierr.New(apierr.KindInput, err)
	}
	r.Query = query
	return nil
}

// percentDecode resolves %XX escapes and turns '+' into a literal space,
// matching the query/path decoding convention used throughout the request
// target. ok is false on a malformed escape sequence.
func percentDecode(s string) (string, bool) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '%':
			if i+2 >= len(s) {
				return "", false
			}
			hi, ok1 := hexDigit(s[i+1])
			lo, ok2 := hexDigit(s[i+2])
			if !ok1 || !ok2 {
				return "", false
			}
			out = append(out, byte(hi<<4|lo))
			i += 2
		case '+':
			out = append(out, ' ')
		default:
			out = append(out, c)
		}
	}
	return string(out), true
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

// percentEncode reserves only the bytes that request targets and header
// parameters must escape (space, '+' and the percent sign itself), since this
// package only ever needs to round-trip values it already decoded, not
// produce a fully general URI encoder.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			b.WriteString("%20")
		case c == '%':
			b.WriteString("%25")
		case c == '+':
			b.WriteString("%2B")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
