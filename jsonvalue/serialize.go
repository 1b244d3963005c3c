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

package jsonvalue

import (
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// Serialize renders v to a pooled buffer. The caller owns the returned
// buffer and must call bytebufferpool.Put when done with it, mirroring the
// pooled-buffer convention used for response header assembly.
func Serialize(v *Value) *bytebufferpool.ByteBuffer {
	buf := bytebufferpool.Get()
	writeValue(buf, v)
	return buf
}

// Bytes is a convenience wrapper for callers that don't need pool reuse.
func Bytes(v *Value) []byte {
	buf := Serialize(v)
	defer bytebufferpool.Put(buf)
	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out
}

func writeValue(buf *bytebufferpool.ByteBuffer, v *Value) {
	switch v.Kind() {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.Bool() {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.Int(), 10))
	case KindFloat:
		buf.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case KindString:
		writeString(buf, v.Bytes())
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.Elems() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeValue(buf, e)
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, []byte(k))
			buf.WriteByte(':')
			child, _ := v.Get(k)
			writeValue(buf, child)
		}
		buf.WriteByte('}')
	}
}

// writeString re-escapes a byte string the way the original serializer
// does: control bytes other than tab/newline become \uXXXX (decoded back to
// a code point first so a multi-byte UTF-8 sequence is never split), quote
// and backslash are backslash-escaped, tab/newline use their two-character
// escapes, and everything else — including the rest of multi-byte UTF-8 — is
// copied through unchanged.
func writeString(buf *bytebufferpool.ByteBuffer, s []byte) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
			i++
		case c == '\t':
			buf.WriteString(`\t`)
			i++
		case c == '\n':
			buf.WriteString(`\n`)
			i++
		case c < 0x20:
			r, size := decodeRune(s[i:])
			buf.WriteString(`\u`)
			writeHex4(buf, r)
			i += size
		default:
			buf.WriteByte(c)
			i++
		}
	}
	buf.WriteByte('"')
}

func writeHex4(buf *bytebufferpool.ByteBuffer, r rune) {
	const hex = "0123456789abcdef"
	v := uint32(r)
	var tmp [4]byte
	for i := 3; i >= 0; i-- {
		tmp[i] = hex[v&0xF]
		v >>= 4
	}
	buf.Write(tmp[:])
}

// decodeRune reads one UTF-8 code point from the front of s, falling back
// to a single byte if s doesn't start a valid encoding.
func decodeRune(s []byte) (rune, int) {
	if len(s) == 0 {
		return 0, 0
	}
	c := s[0]
	switch {
	case c < 0x80:
		return rune(c), 1
	case c&0xE0 == 0xC0 && len(s) >= 2:
		return rune(c&0x1F)<<6 | rune(s[1]&0x3F), 2
	case c&0xF0 == 0xE0 && len(s) >= 3:
		return rune(c&0x0F)<<12 | rune(s[1]&0x3F)<<6 | rune(s[2]&0x3F), 3
	case c&0xF8 == 0xF0 && len(s) >= 4:
		return rune(c&0x07)<<18 | rune(s[1]&0x3F)<<12 | rune(s[2]&0x3F)<<6 | rune(s[3]&0x3F), 4
	default:
		return rune(c), 1
	}
}
