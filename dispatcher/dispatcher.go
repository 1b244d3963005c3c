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
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sys/unix"

	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/common"
	"github.com/packetd/apiserverd/httpparse"
	"github.com/packetd/apiserverd/httpresponse"
	"github.com/packetd/apiserverd/internal/fasttime"
	"github.com/packetd/apiserverd/jsonvalue"
	"github.com/packetd/apiserverd/transport"
)

const listenBacklog = 1024

// StaticHandler serves a request whose URI carried no query: reading (GET)
// or replacing (POST) a named entry of the content store. It writes the
// response body itself via httpresponse.SendEntity after Send.
type StaticHandler func(stream *transport.Stream, req *httpparse.Request, resp *httpresponse.Response) error

// DynamicHandler serves a request whose URI carried a JSON object query,
// dispatching the named action found in query's "actions" member.
type DynamicHandler func(stream *transport.Stream, req *httpparse.Request, resp *httpresponse.Response, query *jsonvalue.Value) error

var (
	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: common.App,
		Subsystem: "dispatcher",
		Name:      "active_connections",
		Help:      "connections currently held in the poll set",
	})
	acceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: common.App,
		Subsystem: "dispatcher",
		Name:      "accepted_total",
		Help:      "sockets accepted since startup",
	})
	jobsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: common.App,
		Subsystem: "dispatcher",
		Name:      "jobs_total",
		Help:      "requests handed off to a worker",
	})
	workersBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: common.App,
		Subsystem: "dispatcher",
		Name:      "workers_busy",
		Help:      "worker-pool slots currently processing a request",
	})
)

// Dispatcher is the single poll loop plus its fixed worker pool. Exactly one
// goroutine — the one running Run — ever touches the pollset and connection
// table; workers only ever see the single connection they were handed.
type Dispatcher struct {
	cfg Config

	static  StaticHandler
	dynamic DynamicHandler

	listenFd int

	workers []*worker
	rr      int

	inflightMu sync.Mutex
	inflight   map[uint64]*connection
	nextID     uint64
}

// New creates a Dispatcher bound to cfg.Addr but does not yet listen; call
// Run to start accepting. static and dynamic must both be non-nil.
func New(cfg Config, static StaticHandler, dynamic DynamicHandler) (*Dispatcher, error) {
	if static == nil || dynamic == nil {
		return nil, errors.New("dispatcher: static and dynamic handlers are required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = common.Concurrency()
	}

	d := &Dispatcher{
		cfg:      cfg,
		static:   static,
		dynamic:  dynamic,
		listenFd: -1,
		inflight: make(map[uint64]*connection),
	}

	for i := 0; i < poolSize; i++ {
		w, err := newWorker()
		if err != nil {
			for _, existing := range d.workers {
				existing.close()
			}
			return nil, err
		}
		d.workers = append(d.workers, w)
	}
	for _, w := range d.workers {
		go d.runWorker(w)
	}

	return d, nil
}

func (d *Dispatcher) storeInflight(conn *connection) uint64 {
	d.inflightMu.Lock()
	defer d.inflightMu.Unlock()
	d.nextID++
	id := d.nextID
	d.inflight[id] = conn
	return id
}

func (d *Dispatcher) takeInflight(id uint64) (*connection, bool) {
	d.inflightMu.Lock()
	defer d.inflightMu.Unlock()
	conn, ok := d.inflight[id]
	delete(d.inflight, id)
	return conn, ok
}

func (d *Dispatcher) listen() error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return apierr.NewErrno(err.(unix.Errno))
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return apierr.NewErrno(err.(unix.Errno))
	}

	addr, err := resolveAddr(d.cfg.addr())
	if err != nil {
		unix.Close(fd)
		return err
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return apierr.NewErrno(err.(unix.Errno))
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return apierr.NewErrno(err.(unix.Errno))
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return apierr.NewErrno(err.(unix.Errno))
	}

	d.listenFd = fd
	return nil
}

// Addr returns the bound listen address, including the OS-assigned port
// when cfg.Addr requested port 0. Valid only after Listen has succeeded.
func (d *Dispatcher) Addr() string {
	sa, err := unix.Getsockname(d.listenFd)
	if err != nil {
		return ""
	}
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return ""
	}
	ip := net.IP(in4.Addr[:])
	return net.JoinHostPort(ip.String(), strconv.Itoa(in4.Port))
}

// Listen creates and binds the listening socket without starting the poll
// loop, so a caller can learn the bound address (Addr) before Serve blocks.
func (d *Dispatcher) Listen() error {
	return d.listen()
}

// Run is Listen followed by Serve; most callers only need this one method.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.listen(); err != nil {
		return err
	}
	return d.Serve(ctx)
}

// Serve runs the poll loop against an already-Listen-ed socket until ctx is
// cancelled, then closes the listener, every live connection, and every
// worker's pipes before returning.
func (d *Dispatcher) Serve(ctx context.Context) error {
	ps := newPollset()
	ps.add(unix.PollFd{Fd: int32(d.listenFd), Events: unix.POLLIN}, &connection{state: stateListen, socketFd: d.listenFd})

	defer func() {
		unix.Close(d.listenFd)
		for _, conn := range ps.conns {
			if conn.state != stateListen {
				closeConnection(conn)
			}
		}
		for _, w := range d.workers {
			w.close()
		}
	}()

	idleTimeout := int64(transport.TimeoutMillis / 1000)
	if d.cfg.IdleTimeout > 0 {
		idleTimeout = int64(d.cfg.IdleTimeout.Seconds())
	}

	timeout := d.cfg.pollIntervalMillis()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, err := unix.Poll(ps.pollfds, timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return apierr.NewErrno(err.(unix.Errno))
		}

		now := fasttime.UnixTimestamp()
		pollCount := ps.len()

		for i := 0; i < pollCount && i < ps.len(); i++ {
			pfd := &ps.pollfds[i]
			conn := ps.conns[i]

			switch {
			case pfd.Revents&unix.POLLIN != 0:
				pfd.Revents = 0
				if !d.onReadable(ps, i, conn, now) {
					i--
					pollCount--
				}

			case pfd.Revents != 0:
				ps.removeAt(i)
				i--
				pollCount--

			case conn.state == stateParse && now-conn.lastActivity > idleTimeout:
				ps.removeAt(i)
				i--
				pollCount--

			}
		}

		activeConnections.Set(float64(ps.len() - 1))
	}
}

// onReadable handles one ready pollset slot in place. It returns false if
// the slot at i was removed (swap-filled from the tail), so the caller must
// not advance past it.
func (d *Dispatcher) onReadable(ps *pollset, i int, conn *connection, now int64) bool {
	switch conn.state {
	case stateListen:
		d.accept(ps, conn.socketFd, now)
		return true

	case stateParse:
		err := httpparse.Parse(&conn.ctx, conn.stream)
		if err == nil {
			if conn.ctx.Request.Header("host") == "" {
				ps.removeAt(i)
				return false
			}

			w := d.pickWorker()
			conn.worker = w
			conn.state = stateResponseDynamic
			conn.lastActivity = now
			ps.pollfds[i].Fd = int32(d.workers[w].respRead)
			jobsTotal.Inc()
			workersBusy.Inc()
			d.dispatch(d.workers[w], conn)
			return true
		}

		if kind, _ := apierr.As(err); kind == apierr.KindAgain {
			conn.lastActivity = now
			return true
		}
		ps.removeAt(i)
		return false

	case stateResponseDynamic:
		var status [1]byte
		if _, err := unix.Read(ps.pollfds[i].Fd, status[:]); err != nil {
			ps.removeAt(i)
			return false
		}
		workersBusy.Dec()
		d.workers[conn.worker].busy = false

		ps.pollfds[i].Fd = int32(conn.stream.Fd())

		if status[0] != 0 {
			ps.removeAt(i)
			return false
		}

		conn.ctx.Reset()
		conn.state = stateParse
		conn.lastActivity = now
		return true
	}

	return true
}

func (d *Dispatcher) pickWorker() int {
	for i, w := range d.workers {
		if !w.busy {
			w.busy = true
			return i
		}
	}
	i := d.rr % len(d.workers)
	d.rr++
	return i
}

func (d *Dispatcher) accept(ps *pollset, listenFd int, now int64) {
	fd, _, err := unix.Accept(listenFd)
	if err != nil {
		return
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return
	}
	setLinger(fd, true)

	stream, err := transport.New(fd)
	if err != nil {
		unix.Close(fd)
		return
	}

	conn := &connection{
		state:        stateParse,
		stream:       stream,
		socketFd:     fd,
		lastActivity: now,
	}
	conn.ctx.Reset()

	ps.add(unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}, conn)
	acceptedTotal.Inc()
}

// setLinger enables or disables SO_LINGER with a zero timeout. Enabled at
// accept time so an abnormally torn-down connection sends RST instead of
// lingering in TIME_WAIT; disabled just before a graceful close.
func setLinger(fd int, on bool) {
	l := unix.Linger{Linger: 0}
	if on {
		l.Onoff = 1
	}
	unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &l)
}

func closeConnection(conn *connection) {
	if conn.stream != nil {
		setLinger(conn.stream.Fd(), false)
		conn.stream.Close()
	} else if conn.socketFd >= 0 {
		unix.Close(conn.socketFd)
	}
}
