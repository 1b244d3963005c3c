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

// Package transport implements the buffered, non-blocking socket stream that
// sits underneath the HTTP parser and response transmitter: read-ahead with
// amortised growth on the input side, write-coalescing on the output side,
// and poll-based blocking only at the two edges (need more input, output
// buffer full).
package transport

import (
	"golang.org/x/sys/unix"

	"github.com/packetd/apiserverd/apierr"
)

const (
	// TimeoutMillis is how long a blocking poll() wait may take before the
	// stream gives up and reports apierr.KindAgain.
	TimeoutMillis = 10000

	// BufferSizeMin is the size every buffer shrinks back to once emptied.
	BufferSizeMin = 1024
	// BufferSizeMax is the hard cap on how large either buffer may grow.
	BufferSizeMax = 65536
	// WriteMax is the largest single non-blocking write() issued per attempt.
	WriteMax = 8192

	growRound = 0xff
)

// Stream owns a non-blocking socket descriptor and two dynamically sized
// byte buffers, matching the data model in the specification: a base slice,
// a consumed index and a filled length, growing in 256-byte increments up to
// BufferSizeMax and shrinking back to BufferSizeMin once drained.
type Stream struct {
	fd int

	in       []byte
	inIndex  int
	inLength int

	out       []byte
	outIndex  int
	outLength int
}

// New wraps fd (already accepted) in a Stream, setting it non-blocking.
func New(fd int) (*Stream, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, apierr.NewErrno(err.(unix.Errno))
	}
	return &Stream{
		fd:  fd,
		in:  make([]byte, BufferSizeMin),
		out: make([]byte, BufferSizeMin),
	}, nil
}

// Fd returns the underlying descriptor, e.g. for poll() registration.
func (s *Stream) Fd() int { return s.fd }

// Close releases the socket. Matches stream_term: idempotent, never fails
// loudly since the descriptor may already be gone.
func (s *Stream) Close() error {
	if s.fd < 0 {
		return nil
	}
	fd := s.fd
	s.fd = -1
	return unix.Close(fd)
}

// Cached reports how many unread bytes are already buffered, i.e. how much
// Read can satisfy without a syscall.
func (s *Stream) Cached() int {
	return s.inLength - s.inIndex
}

func pollWait(fd int, events int16) error {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		n, err := unix.Poll(pfd, TimeoutMillis)
		if n > 0 {
			if pfd[0].Revents&events != 0 {
				return nil
			}
			return apierr.New(apierr.KindNetwork, nil)
		}
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if n == 0 {
			return apierr.New(apierr.KindAgain, nil)
		}
		return apierr.NewErrno(err.(unix.Errno))
	}
}

// Read guarantees the returned slice begins at the first unread byte and has
// length >= minLength, growing/compacting the input buffer and issuing
// non-blocking reads (blocking on poll(POLLIN) between EAGAINs) as needed.
func (s *Stream) Read(minLength int) ([]byte, error) {
	available := s.inLength - s.inIndex

	if minLength > len(s.in) {
		if minLength > BufferSizeMax {
			return nil, apierr.New(apierr.KindMemory, nil)
		}
		size := (minLength + growRound) &^ growRound

		buf := make([]byte, size)
		if available > 0 {
			copy(buf, s.in[s.inIndex:s.inLength])
		}
		s.in = buf
		s.inIndex = 0
		s.inLength = available
	} else if minLength > available {
		if s.inIndex+minLength > len(s.in) {
			copy(s.in, s.in[s.inIndex:s.inLength])
			s.inIndex = 0
			s.inLength = available
		}
	}

	for available < minLength {
		n, err := unix.Read(s.fd, s.in[s.inLength:])
		if n > 0 {
			s.inLength += n
			available += n
			continue
		}
		if n == 0 {
			return nil, apierr.New(apierr.KindNetwork, nil)
		}
		errno, _ := err.(unix.Errno)
		if errno == unix.EAGAIN || errno == unix.EWOULDBLOCK {
			if werr := pollWait(s.fd, unix.POLLIN); werr != nil {
				return nil, werr
			}
			continue
		}
		if errno == unix.EINTR {
			continue
		}
		return nil, apierr.NewErrno(errno)
	}

	return s.in[s.inIndex:s.inLength], nil
}

// ReadFlush advances the consumed cursor by n bytes, resetting (and
// shrinking) the input buffer once it catches up to the filled length.
func (s *Stream) ReadFlush(n int) {
	s.inIndex += n
	if s.inIndex == s.inLength {
		s.inIndex = 0
		s.inLength = 0
		if len(s.in) > BufferSizeMin {
			s.in = make([]byte, BufferSizeMin)
		}
	}
}

func (s *Stream) writeInternal(p []byte) (int, error) {
	size := len(p)
	if size > WriteMax {
		size = WriteMax
	}
	n, err := unix.Write(s.fd, p[:size])
	if n < 0 {
		n = 0
	}
	if err != nil {
		errno, _ := err.(unix.Errno)
		if errno == unix.EAGAIN || errno == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, apierr.NewErrno(errno)
	}
	return n, nil
}

// Write enqueues p, draining any already-buffered output first. It never
// blocks unless the combined buffered size would exceed BufferSizeMax, in
// which case it blocks on poll(POLLOUT) instead of growing unbounded.
func (s *Stream) Write(p []byte) error {
	for s.outLength-s.outIndex > 0 {
		n, err := s.writeInternal(s.out[s.outIndex:s.outLength])
		if err != nil {
			return err
		}
		if n > 0 {
			s.outIndex += n
			if s.outIndex == s.outLength {
				s.outIndex = 0
				s.outLength = 0
			}
			continue
		}

		available := (s.outLength - s.outIndex) + len(p)
		if available > BufferSizeMax {
			if werr := pollWait(s.fd, unix.POLLOUT); werr != nil {
				return werr
			}
			continue
		}
		s.bufferOutput(p)
		return nil
	}

	index := 0
	for index < len(p) {
		n, err := s.writeInternal(p[index:])
		if err != nil {
			return err
		}
		if n > 0 {
			index += n
			continue
		}

		remaining := len(p) - index
		if remaining > BufferSizeMax {
			if werr := pollWait(s.fd, unix.POLLOUT); werr != nil {
				return werr
			}
			continue
		}
		s.bufferOutput(p[index:])
		return nil
	}
	return nil
}

func (s *Stream) bufferOutput(p []byte) {
	if s.outIndex > 0 {
		copy(s.out, s.out[s.outIndex:s.outLength])
		s.outLength -= s.outIndex
		s.outIndex = 0
	}
	need := s.outLength + len(p)
	if need > len(s.out) {
		buf := make([]byte, need)
		copy(buf, s.out[:s.outLength])
		s.out = buf
	}
	copy(s.out[s.outLength:], p)
	s.outLength = need
}

// WriteFlush loops sending the buffered output, blocking on poll(POLLOUT)
// between attempts, until the buffer is empty, then shrinks it.
func (s *Stream) WriteFlush() error {
	for s.outLength-s.outIndex > 0 {
		n, err := s.writeInternal(s.out[s.outIndex:s.outLength])
		if err != nil {
			return err
		}
		if n > 0 {
			s.outIndex += n
			continue
		}
		if werr := pollWait(s.fd, unix.POLLOUT); werr != nil {
			return werr
		}
	}

	s.outIndex = 0
	s.outLength = 0
	if len(s.out) > BufferSizeMin {
		s.out = make([]byte, BufferSizeMin)
	}
	return nil
}
