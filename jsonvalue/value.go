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

// Package jsonvalue implements the JSON tokenizer and tree builder used to
// decode a request's query string and to serialize a dynamic action's
// result. The value type is an explicit tagged sum rather than the
// union-overlay the original implementation uses, and null is always a
// distinct Kind from "absent" (a Go nil *Value).
package jsonvalue

// Kind discriminates the seven JSON value variants.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

// MaxDepth bounds array/object nesting, matching JSON_DEPTH_MAX upstream.
const MaxDepth = 7

// Value is a tagged-sum JSON tree node. Exactly one of the typed fields is
// meaningful, selected by Kind; accessors panic on a Kind mismatch so a
// caller can't silently read garbage from the wrong union arm.
type Value struct {
	kind Kind

	boolean bool
	integer int64
	float   float64
	str     []byte
	array   []*Value

	// keys preserves insertion order (first-occurrence-wins, per spec);
	// object mirrors keys for lookup.
	keys   []string
	object map[string]*Value
}

func (v *Value) Kind() Kind { return v.kind }

func Null() *Value { return &Value{kind: KindNull} }

func Bool(b bool) *Value { return &Value{kind: KindBool, boolean: b} }

func Int(i int64) *Value { return &Value{kind: KindInt, integer: i} }

func Float(f float64) *Value { return &Value{kind: KindFloat, float: f} }

func String(s []byte) *Value { return &Value{kind: KindString, str: s} }

func Array() *Value { return &Value{kind: KindArray} }

func Object() *Value { return &Value{kind: KindObject, object: make(map[string]*Value)} }

func (v *Value) mustBe(k Kind) {
	if v.kind != k {
		panic("jsonvalue: kind mismatch")
	}
}

func (v *Value) Bool() bool {
	v.mustBe(KindBool)
	return v.boolean
}

func (v *Value) Int() int64 {
	v.mustBe(KindInt)
	return v.integer
}

func (v *Value) Float() float64 {
	v.mustBe(KindFloat)
	return v.float
}

func (v *Value) Bytes() []byte {
	v.mustBe(KindString)
	return v.str
}

func (v *Value) String() string {
	v.mustBe(KindString)
	return string(v.str)
}

func (v *Value) Elems() []*Value {
	v.mustBe(KindArray)
	return v.array
}

func (v *Value) ArrayAppend(e *Value) {
	v.mustBe(KindArray)
	v.array = append(v.array, e)
}

// Keys returns object keys in first-insertion order.
func (v *Value) Keys() []string {
	v.mustBe(KindObject)
	return v.keys
}

// Get looks up key in an object value. ok is false if the key is absent;
// this is distinct from the key being present with a KindNull value.
func (v *Value) Get(key string) (*Value, bool) {
	v.mustBe(KindObject)
	child, ok := v.object[key]
	return child, ok
}

// ObjectInsert adds key/child if key is not already present ("insert if
// absent" — the first occurrence of a duplicate key wins, per spec).
func (v *Value) ObjectInsert(key string, child *Value) {
	v.mustBe(KindObject)
	if _, exists := v.object[key]; exists {
		return
	}
	v.keys = append(v.keys, key)
	v.object[key] = child
}
