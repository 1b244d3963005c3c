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

package dispatcher

import (
	"github.com/packetd/apiserverd/httpparse"
	"github.com/packetd/apiserverd/transport"
)

// state is a connection's position in the {Listen, Parse, ResponseDynamic}
// lifecycle (§4.6). Listen never changes; accepted sockets enter Parse and
// then alternate Parse <-> ResponseDynamic for as long as the peer keeps
// the connection alive.
type state int

const (
	stateListen state = iota
	stateParse
	stateResponseDynamic
)

// connection is one pollset entry's associated data. The dispatcher keeps
// connections and its pollfd slice in lockstep, index for index; only the
// poll loop goroutine ever touches either slice.
type connection struct {
	state state
	ctx   httpparse.Context

	stream *transport.Stream

	// socketFd is remembered across the Parse <-> ResponseDynamic
	// alternation, since the polled fd switches to the worker's
	// response-pipe read end while a request is in flight.
	socketFd int

	worker       int
	inflightID   uint64
	lastActivity int64
}
