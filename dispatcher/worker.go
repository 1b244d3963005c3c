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
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/internal/rescue"
)

// worker is one pool slot: a dedicated pair of pipes connecting its
// goroutine to the dispatcher's poll loop. The request pipe carries an
// 8-byte in-flight connection ID; the response pipe carries a single
// status byte (0 keep-alive, 1 close) the poll loop reads once it observes
// the pipe's read end become readable.
type worker struct {
	reqRead, reqWrite   int
	respRead, respWrite int
	busy                bool
}

func newWorker() (*worker, error) {
	req, err := unixPipe()
	if err != nil {
		return nil, err
	}
	resp, err := unixPipe()
	if err != nil {
		unix.Close(req[0])
		unix.Close(req[1])
		return nil, err
	}
	return &worker{
		reqRead:   req[0],
		reqWrite:  req[1],
		respRead:  resp[0],
		respWrite: resp[1],
	}, nil
}

func unixPipe() ([2]int, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], 0); err != nil {
		return fds, apierr.NewErrno(err.(unix.Errno))
	}
	return fds, nil
}

func (w *worker) close() {
	unix.Close(w.reqRead)
	unix.Close(w.reqWrite)
	unix.Close(w.respRead)
	unix.Close(w.respWrite)
}

// readFull reads exactly len(buf) bytes from fd, retrying across short
// reads and EINTR the way a blocking pipe read is expected to behave.
func readFull(fd int, buf []byte) error {
	for got := 0; got < len(buf); {
		n, err := unix.Read(fd, buf[got:])
		if n > 0 {
			got += n
			continue
		}
		if n == 0 {
			return apierr.New(apierr.KindNetwork, nil)
		}
		if err == unix.EINTR {
			continue
		}
		return apierr.NewErrno(err.(unix.Errno))
	}
	return nil
}

// runWorker is the worker goroutine body: block for the next connection ID,
// look it up, run the dispatcher's service function on it, and report
// back whether the connection should close. A panic during service is
// recovered per request — it never takes the whole worker down — and
// reported as "close this connection" since its response is unknown.
func (d *Dispatcher) runWorker(w *worker) {
	buf := make([]byte, 8)
	for {
		if err := readFull(w.reqRead, buf); err != nil {
			return
		}
		id := binary.LittleEndian.Uint64(buf)

		status := byte(1)
		func() {
			defer rescue.HandleCrash()
			conn, ok := d.takeInflight(id)
			if !ok {
				return
			}
			if d.serve(conn) {
				status = 0
			}
		}()

		if _, err := unix.Write(w.respWrite, []byte{status}); err != nil {
			return
		}
	}
}

func (d *Dispatcher) dispatch(w *worker, conn *connection) {
	id := d.storeInflight(conn)

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	// A worker's request pipe is only ever written by the single poll
	// loop goroutine, so this cannot interleave with another dispatch.
	unix.Write(w.reqWrite, buf[:])
}
