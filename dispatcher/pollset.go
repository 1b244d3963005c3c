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

import "golang.org/x/sys/unix"

// pollset is the dispatcher's poll() argument and its parallel per-slot
// connection data, kept as one slice pair behind a single remove-by-swap
// method instead of two independently maintained arrays.
type pollset struct {
	pollfds []unix.PollFd
	conns   []*connection
}

func newPollset() *pollset {
	return &pollset{}
}

func (ps *pollset) len() int { return len(ps.conns) }

func (ps *pollset) add(pfd unix.PollFd, conn *connection) {
	ps.pollfds = append(ps.pollfds, pfd)
	ps.conns = append(ps.conns, conn)
}

// removeAt tears down the connection at i and fills its slot with the last
// entry, mirroring the source's swap-and-shrink. The caller is responsible
// for re-examining the swapped-in entry if it still falls within the
// current poll_count.
func (ps *pollset) removeAt(i int) {
	closeConnection(ps.conns[i])

	last := len(ps.conns) - 1
	ps.pollfds[i] = ps.pollfds[last]
	ps.conns[i] = ps.conns[last]

	ps.pollfds = ps.pollfds[:last]
	ps.conns = ps.conns[:last]
}
