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

// Package actions implements the dynamic handler's JSON-RPC-style action
// table: a compile-time-sorted list of names searched by binary search,
// each backed by a handler that decodes its caller-supplied arguments
// through mapstructure (with spf13/cast doing the scalar coercion) before
// running.
package actions

import (
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"

	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/contentstore"
	"github.com/packetd/apiserverd/jsonvalue"
)

// Context is the environment a dispatched action runs against.
type Context struct {
	Store *contentstore.Store
}

// Handler runs one action. args is the native (map[string]any/[]any/scalar)
// form of the JSON value associated with the dispatched key, or nil if that
// value was absent or not a JSON object.
type Handler func(ctx *Context, args any) (*jsonvalue.Value, error)

type entry struct {
	name    string
	handler Handler
}

// table is kept sorted by name at init time so Dispatch can binary-search
// it, mirroring the compile-time-sorted dispatch table upstream builds by
// hand; here the sort happens once, in init, instead of being maintained by
// the author.
var table []entry

func register(name string, h Handler) {
	table = append(table, entry{name: name, handler: h})
}

func init() {
	register("build.info", buildInfoAction)
	register("example.hello_world", helloWorldAction)
	register("store.stat", storeStatAction)

	sort.Slice(table, func(i, j int) bool { return table[i].name < table[j].name })
}

// Dispatch looks up name in the sorted table and, if found, runs its
// handler against args's native form. An unknown name fails with
// apierr.KindMissing, which the dispatcher's classify maps to 404.
func Dispatch(ctx *Context, name string, args *jsonvalue.Value) (*jsonvalue.Value, error) {
	i := sort.Search(len(table), func(i int) bool { return table[i].name >= name })
	if i >= len(table) || table[i].name != name {
		return nil, apierr.New(apierr.KindMissing, nil)
	}

	var native any
	if args != nil {
		native = toNative(args)
	}
	return table[i].handler(ctx, native)
}

// decodeArgs decodes raw (a map[string]any, typically) into out, a pointer
// to the action's parameter struct. Field-level scalar mismatches (a
// numeric argument that arrived as a JSON string, say) are coerced via
// spf13/cast rather than rejected outright.
func decodeArgs(raw any, out any) error {
	if raw == nil {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       castCoerceHook,
		Result:           out,
	})
	if err != nil {
		return apierr.New(apierr.KindNone, err)
	}
	if err := dec.Decode(raw); err != nil {
		return apierr.New(apierr.KindInput, err)
	}
	return nil
}

// castCoerceHook widens mapstructure's own weak-typing beyond what it
// handles natively (e.g. a bool arriving as "true"/"yes"), reusing the same
// cast.To*E coercions common.Options.GetInt already applies at the config
// boundary.
func castCoerceHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() == to.Kind() {
		return data, nil
	}

	switch to.Kind() {
	case reflect.String:
		return cast.ToStringE(data)
	case reflect.Bool:
		return cast.ToBoolE(data)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cast.ToInt64E(data)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cast.ToUint64E(data)
	case reflect.Float32, reflect.Float64:
		return cast.ToFloat64E(data)
	default:
		return data, nil
	}
}

// toNative lowers a jsonvalue.Value tree into the map[string]any/[]any/
// scalar shape mapstructure expects as input.
func toNative(v *jsonvalue.Value) any {
	switch v.Kind() {
	case jsonvalue.KindNull:
		return nil
	case jsonvalue.KindBool:
		return v.Bool()
	case jsonvalue.KindInt:
		return v.Int()
	case jsonvalue.KindFloat:
		return v.Float()
	case jsonvalue.KindString:
		return v.String()
	case jsonvalue.KindArray:
		elems := v.Elems()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = toNative(e)
		}
		return out
	case jsonvalue.KindObject:
		keys := v.Keys()
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			child, _ := v.Get(k)
			out[k] = toNative(child)
		}
		return out
	default:
		return nil
	}
}
