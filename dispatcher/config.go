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

// Package dispatcher implements the single-threaded poll-based connection
// multiplexer and the fixed worker pool it hands parsed requests off to.
// One goroutine owns the poll loop and the connection table; a fixed set of
// worker goroutines, each reachable only through its own pair of pipes,
// execute the (potentially slow) per-request handler so the poll loop is
// never blocked by request processing.
package dispatcher

import "time"

// Config is the dispatcher's tunable surface, unpacked from the
// "dispatcher" config section.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `config:"addr"`

	// PoolSize is the number of worker goroutines. Zero means
	// common.Concurrency().
	PoolSize int `config:"poolSize"`

	// IdleTimeout tears down a connection that has sent no bytes (and
	// isn't mid-request) for this long. Zero means transport.TimeoutMillis.
	IdleTimeout time.Duration `config:"idleTimeout"`

	// PollInterval bounds how long a single poll() call may block,
	// so idle connections get scanned and a cancelled context notices
	// promptly even with no socket activity. Zero means one second.
	PollInterval time.Duration `config:"pollInterval"`
}

const defaultAddr = ":8080"

func (c Config) addr() string {
	if c.Addr == "" {
		return defaultAddr
	}
	return c.Addr
}

func (c Config) pollIntervalMillis() int {
	if c.PollInterval <= 0 {
		return 1000
	}
	return int(c.PollInterval / time.Millisecond)
}
