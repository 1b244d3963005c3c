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

package actions

import (
	"strconv"

	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/common"
	"github.com/packetd/apiserverd/jsonvalue"
)

// helloWorldArgs carries example.hello_world's optional "name" argument.
type helloWorldArgs struct {
	Name string `mapstructure:"name"`
}

// helloWorldAction is the generalised form of the original implementation's
// two illustrative example handlers: it takes an optional name and echoes a
// greeting, proving the dispatch-and-decode path end to end.
func helloWorldAction(ctx *Context, raw any) (*jsonvalue.Value, error) {
	var args helloWorldArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		args.Name = "world"
	}

	out := jsonvalue.Object()
	out.ObjectInsert("message", jsonvalue.String([]byte("hello, "+args.Name)))
	return out, nil
}

// storeStatArgs carries store.stat's required "name" argument.
type storeStatArgs struct {
	Name string `mapstructure:"name"`
}

// storeStatAction exercises contentstore.Store.Stat, returning a cached
// entry's metadata without taking a reference on it.
func storeStatAction(ctx *Context, raw any) (*jsonvalue.Value, error) {
	var args storeStatArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, apierr.New(apierr.KindInput, nil)
	}
	if ctx == nil || ctx.Store == nil {
		return nil, apierr.New(apierr.KindMissing, nil)
	}

	stat, err := ctx.Store.Stat(args.Name)
	if err != nil {
		return nil, err
	}

	out := jsonvalue.Object()
	out.ObjectInsert("name", jsonvalue.String([]byte(args.Name)))
	out.ObjectInsert("version", jsonvalue.Int(int64(stat.Version)))
	out.ObjectInsert("uuid", jsonvalue.String([]byte(stat.UUID)))
	out.ObjectInsert("digest", jsonvalue.String([]byte(strconv.FormatUint(stat.Digest, 16))))
	out.ObjectInsert("size", jsonvalue.Int(stat.Size))
	return out, nil
}

// buildInfoAction exposes common.GetBuildInfo through the dynamic handler,
// the same information an admin route could expose, reachable here without
// a round trip through the admin server.
func buildInfoAction(ctx *Context, raw any) (*jsonvalue.Value, error) {
	info := common.GetBuildInfo()

	out := jsonvalue.Object()
	out.ObjectInsert("version", jsonvalue.String([]byte(info.Version)))
	out.ObjectInsert("gitHash", jsonvalue.String([]byte(info.GitHash)))
	out.ObjectInsert("time", jsonvalue.String([]byte(info.Time)))
	return out, nil
}
