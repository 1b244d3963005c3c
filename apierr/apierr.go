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

// Package apierr defines the internal error taxonomy shared by the transport,
// parser, response and content-store layers, plus its mapping onto HTTP status
// codes at the response boundary.
package apierr

import (
	"net/http"
	"syscall"

	"github.com/pkg/errors"
)

// Kind is the internal, systems-level error taxonomy. It is deliberately
// narrower than the HTTP status taxonomy: several kinds share one HTTP
// mapping, and a couple of kinds (PROGRESS, NETWORK) have no HTTP mapping
// at all because no response can or should be sent.
type Kind int

const (
	KindNone Kind = iota
	KindMemory
	KindInput
	KindAccess
	KindMissing
	KindExist
	KindEVFS
	KindAgain
	KindUnsupported
	KindRead
	KindWrite
	KindCancel
	KindProgress
	KindResolve
	KindNetwork
	KindGateway
	KindSession
)

func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindInput:
		return "input"
	case KindAccess:
		return "access"
	case KindMissing:
		return "missing"
	case KindExist:
		return "exist"
	case KindEVFS:
		return "evfs"
	case KindAgain:
		return "again"
	case KindUnsupported:
		return "unsupported"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindCancel:
		return "cancel"
	case KindProgress:
		return "progress"
	case KindResolve:
		return "resolve"
	case KindNetwork:
		return "network"
	case KindGateway:
		return "gateway"
	case KindSession:
		return "session"
	default:
		return "none"
	}
}

// Error wraps a Kind with a causal error, following this codebase's
// pkg/errors convention of keeping a stack trace attached at the point an
// internal failure is first classified.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New wraps cause (which may be nil) with kind, attaching a stack trace.
func New(kind Kind, cause error) *Error {
	if cause == nil {
		return &Error{Kind: kind, cause: errors.New(kind.String())}
	}
	return &Error{Kind: kind, cause: errors.WithStack(cause)}
}

// As extracts the Kind carried by err, if any. Unclassified errors report KindNone.
func As(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindNone, false
}

// FromErrno maps a syscall errno to the internal taxonomy, mirroring the
// original implementation's errno_error switch.
func FromErrno(errno syscall.Errno) Kind {
	switch errno {
	case syscall.ENOMEM, syscall.EMFILE, syscall.ENFILE, syscall.EDQUOT, syscall.ENOBUFS,
		syscall.EMLINK, syscall.EISCONN, syscall.EADDRNOTAVAIL, syscall.ENOLCK:
		return KindMemory
	case syscall.EACCES, syscall.EPERM:
		return KindAccess
	case syscall.EEXIST, syscall.EADDRINUSE:
		return KindExist
	case syscall.ELOOP, syscall.ENAMETOOLONG, syscall.ENOENT, syscall.ENOTDIR, syscall.ENXIO:
		return KindMissing
	case syscall.EFAULT, syscall.EINVAL, syscall.EBADF, syscall.ENOTSOCK, syscall.EALREADY, syscall.EOPNOTSUPP:
		return KindInput
	case syscall.ETXTBSY, syscall.ETIMEDOUT, syscall.EINTR, syscall.EAGAIN:
		return KindAgain
	case syscall.EIO, syscall.ENOSPC, syscall.EBUSY, syscall.ENOTEMPTY:
		return KindEVFS
	case syscall.EPIPE:
		return KindWrite
	case syscall.EAFNOSUPPORT, syscall.EPROTONOSUPPORT, syscall.EPROTOTYPE, syscall.EXDEV:
		return KindUnsupported
	case syscall.EHOSTUNREACH, syscall.ENETDOWN, syscall.ENETUNREACH, syscall.ECONNREFUSED, syscall.ECONNRESET:
		return KindNetwork
	default:
		return KindEVFS
	}
}

// NewErrno wraps errno straight into a classified *Error.
func NewErrno(errno syscall.Errno) *Error {
	return New(FromErrno(errno), errno)
}

// HTTPStatus maps an internal Kind to the status code the dispatcher should
// send. ok is false for kinds that never produce a response body (NETWORK,
// PROGRESS) — the caller must special-case those before calling HTTPStatus.
func HTTPStatus(k Kind) (status int, forceClose bool, ok bool) {
	switch k {
	case KindMemory, KindAgain:
		return http.StatusServiceUnavailable, false, true
	case KindInput, KindRead, KindWrite, KindExist, KindMissing, KindResolve:
		return http.StatusNotFound, false, true
	case KindAccess, KindSession:
		return http.StatusForbidden, false, true
	case KindUnsupported:
		return http.StatusNotImplemented, false, true
	case KindGateway:
		return http.StatusBadGateway, true, true
	case KindCancel:
		return http.StatusOK, true, true
	case KindProgress:
		return 0, false, false
	case KindNetwork:
		return 0, false, false
	default:
		return http.StatusInternalServerError, false, true
	}
}
