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

import "github.com/packetd/apiserverd/apierr"

// ParseQuality parses an Accept-family "q=" parameter value, e.g. "q=0.8",
// returning the weight scaled to thousandths (1000 == q=1.0) the way the
// upstream integer quality comparison does, avoiding float comparisons
// across untrusted input.
func ParseQuality(param string) (int, error) {
	if len(param) < 3 || len(param) > 7 || param[0] != 'q' || param[1] != '=' {
		return 0, apierr.New(apierr.KindInput, nil)
	}

	digit := param[2]
	if digit != '0' && digit != '1' {
		return 0, apierr.New(apierr.KindInput, nil)
	}
	result := int(digit-'0') * 1000
	if len(param) == 3 {
		return result, nil
	}

	if param[3] != '.' {
		return 0, apierr.New(apierr.KindInput, nil)
	}

	weights := [3]int{100, 10, 1}
	for i, w := range weights {
		pos := 4 + i
		if pos >= len(param) {
			break
		}
		c := param[pos]
		if c < '0' || c > '9' {
			return 0, apierr.New(apierr.KindInput, nil)
		}
		result += int(c-'0') * w
	}
	if result > 1000 {
		return 0, apierr.New(apierr.KindInput, nil)
	}
	return result, nil
}
