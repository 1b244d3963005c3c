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
	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/transport"
)

// URILengthMax bounds the request line plus headers read ahead of a single
// Parse call, matching the upstream guard against an unbounded preamble.
const URILengthMax = 16384

// Parse drives the DFA over whatever bytes stream has or will block (via
// stream's own poll-based Read) to deliver, consuming the request line and
// headers. ctx must be freshly Reset before the first call for a given
// connection. On success ctx.Request is fully populated except for Path and
// Query, which the caller must resolve from URI with ParseURI (kept as a separate pass,
// exactly as upstream splits http_parse from http_parse_uri).
//
// Only single-digit HTTP major and minor version numbers are accepted
// ("HTTP/1.1", not "HTTP/1.10") — the state table has one slot per version
// component, so a second consecutive digit has nowhere valid to go.
func Parse(ctx *Context, stream *transport.Stream) error {
	for {
		cached := stream.Cached()
		if cached >= URILengthMax {
			return apierr.New(apierr.KindInput, nil)
		}
		buf, err := stream.Read(cached + 1)
		if err != nil {
			return err
		}

		for ctx.index < len(buf) {
			class := classify(buf[ctx.index])
			next := transition[ctx.state][class]

			if next == ctx.state {
				ctx.index++
				continue
			}

			switch next {
			case stateMethod:
				if ctx.state == stateMethodFirst {
					ctx.start = ctx.index
				}

			case stateURIFirst:
				ctx.Request.Method = parseMethod(buf[ctx.start:ctx.index])
				if ctx.Request.Method == MethodUnknown {
					return apierr.New(apierr.KindUnsupported, nil)
				}
				ctx.start = ctx.index + 1

			case stateH:
				ctx.Request.URI = string(buf[ctx.start:ctx.index])
				if buf, err = rebuffer(stream, ctx); err != nil {
					return err
				}
				ctx.state = stateH
				ctx.index++
				continue

			case stateVersionDot:
				ctx.Request.Major = leadingDecimal(buf[ctx.index:])

			case stateFirstCR:
				ctx.Request.Minor = leadingDecimal(buf[ctx.index:])

			case stateHeadersEnd:
				if err := ctx.finishHeader(buf); err != nil {
					return err
				}
				if buf, err = rebuffer(stream, ctx); err != nil {
					return err
				}
				ctx.state = stateHeadersEnd
				ctx.index++
				continue

			case stateNameColon:
				if ctx.state == stateNameEnd { // a previous header just ended
					if err := ctx.finishHeader(buf); err != nil {
						return err
					}
					if buf, err = rebuffer(stream, ctx); err != nil {
						return err
					}
				}
				ctx.start = ctx.index

			case stateValue:
				if ctx.state == stateNameColon {
					ctx.sep = ctx.index
				}

			case stateFin:
				stream.ReadFlush(ctx.index + 1)
				return nil

			case invalid:
				return apierr.New(apierr.KindInput, nil)
			}

			ctx.state = next
			ctx.index++
		}
	}
}

// rebuffer flushes everything consumed so far and re-reads at least the
// remainder, resetting index to 0 so the caller can resume classifying
// starting from the trigger byte, which stays unflushed at position 0 of
// the re-read buffer — mirroring the flush/re-read/reset-index sequence
// upstream performs at the same three points (end of URI, end of a header,
// end of all headers).
func rebuffer(stream *transport.Stream, ctx *Context) ([]byte, error) {
	remaining := stream.Cached() - ctx.index
	stream.ReadFlush(ctx.index)
	ctx.index = 0
	if remaining < 1 {
		remaining = 1
	}
	return stream.Read(remaining)
}

// finishHeader parses the just-completed header field spanning
// buf[ctx.start:ctx.index] — "name: value" with ctx.sep marking the colon —
// and records it on ctx.Request.
func (ctx *Context) finishHeader(buf []byte) error {
	field := buf[ctx.start:ctx.index]
	sepPos := ctx.sep - ctx.start
	if sepPos < 0 || sepPos >= len(field) {
		return apierr.New(apierr.KindInput, nil)
	}

	name := lowerASCII(string(field[:sepPos]))
	value := decodeHeaderValue(field[sepPos+1:])
	ctx.Request.addHeader(name, value)
	return nil
}

// decodeHeaderValue trims leading/trailing whitespace, collapses any run of
// whitespace to a single space, and resolves backslash escapes — the same
// normalization header_add performs upstream.
func decodeHeaderValue(raw []byte) string {
	out := make([]byte, 0, len(raw))
	space := false
	wrote := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			if wrote {
				space = true
			}
		case c == '\\' && i+1 < len(raw):
			i++
			if space {
				out = append(out, ' ')
				space = false
			}
			out = append(out, raw[i])
			wrote = true
		default:
			if space {
				out = append(out, ' ')
				space = false
			}
			out = append(out, c)
			wrote = true
		}
	}
	return string(out)
}

func parseMethod(tok []byte) Method {
	switch string(tok) {
	case "HEAD":
		return MethodHead
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	case "OPTIONS":
		return MethodOptions
	case "PUT":
		return MethodPut
	case "DELETE":
		return MethodDelete
	case "SUBSCRIBE":
		return MethodSubscribe
	case "NOTIFY":
		return MethodNotify
	default:
		return MethodUnknown
	}
}

// leadingDecimal parses as many consecutive ASCII digits as appear at the
// front of tok, mirroring strtol's behavior of scanning forward from a
// pointer regardless of how many the caller expected to find there.
func leadingDecimal(tok []byte) int {
	n := 0
	for _, c := range tok {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
