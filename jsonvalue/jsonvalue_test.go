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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScalars(t *testing.T) {
	v, err := Parse([]byte(`null`))
	require.NoError(t, err)
	assert.Equal(t, KindNull, v.Kind())

	v, err = Parse([]byte(`true`))
	require.NoError(t, err)
	assert.True(t, v.Bool())

	v, err = Parse([]byte(`42`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int())

	v, err = Parse([]byte(`3.5`))
	require.NoError(t, err)
	assert.Equal(t, KindFloat, v.Kind())

	v, err = Parse([]byte(`"hi"`))
	require.NoError(t, err)
	assert.Equal(t, "hi", v.String())
}

func TestParseObjectFirstKeyWins(t *testing.T) {
	v, err := Parse([]byte(`{"a":1,"a":2,"b":3}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v.Keys())
	a, ok := v.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), a.Int())
}

func TestParseArray(t *testing.T) {
	v, err := Parse([]byte(`[1,2,3]`))
	require.NoError(t, err)
	elems := v.Elems()
	require.Len(t, elems, 3)
	assert.Equal(t, int64(2), elems[1].Int())
}

func TestParseDepthExceeded(t *testing.T) {
	// 9 levels of array nesting, exceeding MaxDepth (7).
	_, err := Parse([]byte(`[[[[[[[[[1]]]]]]]]]`))
	require.Error(t, err)
}

func TestParseSurrogatePair(t *testing.T) {
	v, err := Parse([]byte(`"\ud83d\ude00"`))
	require.NoError(t, err)
	assert.Equal(t, "😀", v.String())
}

func TestSerializeRoundTripIdempotent(t *testing.T) {
	input := []byte(`{"a":1,"b":[true,false,null,"x\ty"],"c":{"d":2.5}}`)
	v1, err := Parse(input)
	require.NoError(t, err)
	out1 := Bytes(v1)

	v2, err := Parse(out1)
	require.NoError(t, err)
	out2 := Bytes(v2)

	assert.Equal(t, string(out1), string(out2))
}

func TestSerializeControlCharEscape(t *testing.T) {
	v := String([]byte{0x01, 'a'})
	out := string(Bytes(v))
	assert.Equal(t, "\"\\u0001a\"", out)
}
