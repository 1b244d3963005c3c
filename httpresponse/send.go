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
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/httpparse"
	"github.com/packetd/apiserverd/transport"
)

// Send composes the status line and header block for resp and writes it
// through stream, choosing the framing mode from length:
//   - a response that carries no body (HEAD, 1xx, 204, 304) gets no
//     framing headers at all.
//   - length == Chunked emits Transfer-Encoding: chunked.
//   - otherwise, a Range header against an OK response is honoured:
//     resp.Code is promoted to PartialContent, Content-Range and
//     Accept-Ranges are added, and length is narrowed to the selected
//     interval's width. More than one satisfiable range is declined —
//     no multipart/byteranges support.
//
// Every response gets a Date and a UUID header; resp.ETag, if set, is sent
// too. Send must run exactly once per response, before any call to
// SendEntity.
func Send(stream *transport.Stream, req *httpparse.Request, resp *Response, length int64) error {
	resp.bodyRequired = bodyRequired(req.Method.String(), resp.Code)
	if resp.bodyRequired {
		resp.index = 0
	}

	if !resp.bodyRequired {
		resp.chunked = false
	} else if length == Chunked {
		resp.chunked = true
		if err := resp.AddHeader("Transfer-Encoding", "chunked"); err != nil {
			return err
		}
	} else {
		resp.chunked = false

		if resp.Code == http.StatusOK {
			if rangeHeader := req.Header("range"); rangeHeader != "" {
				ranges, err := httpparse.ParseRange(rangeHeader, length)
				if err != nil {
					return err
				}
				if len(ranges) > 1 {
					// No multipart/byteranges support.
					return apierr.New(apierr.KindUnsupported, nil)
				}

				if len(ranges) == 1 {
					lo, hi := ranges[0].Low, ranges[0].High
					if err := resp.AddHeader("Content-Range", fmt.Sprintf("bytes %d-%d/%d", lo, hi, length)); err != nil {
						return err
					}
					if err := resp.AddHeader("Accept-Ranges", "bytes"); err != nil {
						return err
					}

					length = hi - lo + 1
					resp.Code = http.StatusPartialContent
					resp.ranges = ranges
				}
			}
		}

		if err := resp.AddHeader("Content-Length", strconv.FormatInt(length, 10)); err != nil {
			return err
		}
	}

	if err := resp.AddHeader("Date", time.Now().UTC().Format(http.TimeFormat)); err != nil {
		return err
	}
	if err := resp.AddHeader("UUID", resp.UUID); err != nil {
		return err
	}
	if resp.ETag != "" {
		if err := resp.AddHeader("ETag", resp.ETag); err != nil {
			return err
		}
	}

	phrase, ok := reasonPhrase(resp.Code)
	if !ok {
		return apierr.New(apierr.KindNone, nil)
	}

	statusLine := fmt.Sprintf("HTTP/1.1 %03d %s\r\n", resp.Code, phrase)
	if err := stream.Write([]byte(statusLine)); err != nil {
		return err
	}
	if err := stream.Write(resp.buf.Bytes()); err != nil {
		return err
	}
	if err := stream.Write([]byte("\r\n")); err != nil {
		return err
	}
	if err := stream.WriteFlush(); err != nil {
		return err
	}
	resp.sent = true
	return nil
}

// SendEntity writes one body fragment through stream, in whatever framing
// mode Send selected. It is a no-op if the response carries no body (HEAD,
// 1xx, 204, 304). In chunked mode, calling SendEntity with a nil/empty data
// slice writes the terminating zero-length chunk. In identity mode with a
// selected range, data is treated as a contiguous slice of the full entity
// starting at the cursor position implied by prior calls; only the bytes
// that fall inside the selected interval are written.
func SendEntity(stream *transport.Stream, resp *Response, data []byte) error {
	if !resp.bodyRequired {
		return nil
	}

	if resp.chunked {
		if err := stream.Write([]byte(strconv.FormatInt(int64(len(data)), 16) + "\r\n")); err != nil {
			return err
		}
		if len(data) > 0 {
			if err := stream.Write(data); err != nil {
				return err
			}
		}
		if err := stream.Write([]byte("\r\n")); err != nil {
			return err
		}
		return stream.WriteFlush()
	}

	content := data
	if len(resp.ranges) > 0 {
		r := resp.ranges[0]
		length := int64(len(data))
		start := r.Low - resp.index
		resp.index += length

		if start >= length {
			return nil // this fragment ends before the selected range begins
		}
		if start > 0 {
			content = content[start:]
			length -= start
		}

		size := r.High + 1 - r.Low
		if start < 0 {
			size += start
			if size <= 0 {
				return nil // this fragment ends after the selected range
			}
		}
		if size > length {
			size = length
		}
		content = content[:size]
	}

	if err := stream.Write(content); err != nil {
		return err
	}
	return stream.WriteFlush()
}
