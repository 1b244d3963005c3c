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
	"strings"

	"github.com/packetd/apiserverd/apierr"
)

// ParseOptions parses a "; "-separated key=value parameter list — the
// shape shared by Content-Disposition's "form-data; name=foo;
// filename=bar" and similar parameterized header values. Each value is
// percent-decoded, same as a request target's query string.
func ParseOptions(s string) (map[string]string, error) {
	options := make(map[string]string)

	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue // a bare leading token, e.g. the disposition-type before its parameters
		}
		if eq == 0 {
			return nil, apierr.New(apierr.KindInput, nil)
		}
		key := part[:eq]
		for i := 0; i < len(key); i++ {
			if !optionKeyChar(key[i]) {
				return nil, apierr.New(apierr.KindInput, nil)
			}
		}

		raw := part[eq+1:]
		value := raw
		if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
			value = raw[1 : len(raw)-1]
		}
		decoded, ok := percentDecode(value)
		if !ok {
			return nil, apierr.New(apierr.KindInput, nil)
		}
		options[key] = decoded
	}

	return options, nil
}

// optionKeyChar reports whether c may appear in a parameter name, following
// the same exclusion list upstream's option_key_char uses: no controls, and
// none of the token delimiters defined by the header-parameter grammar.
func optionKeyChar(c byte) bool {
	if c < 0x20 || c == 0x7f {
		return false
	}
	switch c {
	case ' ', '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '{', '}', '=':
		return false
	default:
		return true
	}
}
