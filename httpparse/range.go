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
)

// Range is a closed, absolute byte interval [Low, High] within an entity of
// some known length.
type Range struct {
	Low, High int64
}

// ParseRange parses a Range header value against an entity of the given
// length, returning the satisfiable sub-ranges as a sorted list of
// non-overlapping closed intervals. A header using an unsupported range
// unit (anything but "bytes=") is not an error — it returns a nil slice,
// meaning the whole entity should be sent. An apierr.KindInput error is
// returned when every requested range falls outside the entity.
func ParseRange(header string, contentLength int64) ([]Range, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return nil, nil
	}
	spec := header[len(prefix):]

	var ranges []Range
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var low, high int64
		switch {
		case part[0] == '-':
			n, err := strconv.ParseInt(part[1:], 10, 64)
			if err != nil {
				return nil, apierr.New(apierr.KindInput, err)
			}
			if contentLength > n {
				low = contentLength - n
			} else {
				low = 0
			}
			high = contentLength - 1

		default:
			dash := strings.IndexByte(part, '-')
			if dash < 0 {
				return nil, apierr.New(apierr.KindInput, nil)
			}
			from, err := strconv.ParseInt(part[:dash], 10, 64)
			if err != nil {
				return nil, apierr.New(apierr.KindInput, err)
			}
			low = from
			if tail := part[dash+1:]; tail != "" {
				to, err := strconv.ParseInt(tail, 10, 64)
				if err != nil {
					return nil, apierr.New(apierr.KindInput, err)
				}
				high = to
			} else {
				high = contentLength - 1
			}
		}

		if low > high || low >= contentLength {
			continue // not satisfiable, silently dropped like upstream
		}
		if high >= contentLength {
			high = contentLength - 1
		}
		ranges = intervalInsert(ranges, Range{low, high})
	}

	if len(ranges) == 0 {
		return nil, apierr.New(apierr.KindInput, nil)
	}
	return ranges, nil
}

// intervalInsert inserts r into the sorted list of disjoint closed
// intervals, merging it with any interval it overlaps or abuts (low <=
// other.high+1), exactly like the upstream merge-on-insert algorithm.
func intervalInsert(intervals []Range, r Range) []Range {
	for i, existing := range intervals {
		if r.Low > existing.High+1 {
			continue
		}

		// Find the run of intervals this insertion merges with, starting
		// at i, extending while the next interval's low bound still abuts
		// or overlaps the expanding [low, high] window.
		end := i
		for end < len(intervals) && intervals[end].Low <= r.High+1 {
			end++
		}

		low, high := r.Low, r.High
		if intervals[i].Low < low {
			low = intervals[i].Low
		}
		if end > i && intervals[end-1].High > high {
			high = intervals[end-1].High
		}

		merged := append([]Range{}, intervals[:i]...)
		merged = append(merged, Range{low, high})
		merged = append(merged, intervals[end:]...)
		return merged
	}

	return append(intervals, r)
}
