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
	"net"

	"golang.org/x/sys/unix"

	"github.com/packetd/apiserverd/apierr"
)

// resolveAddr turns a "host:port" listen address (host may be empty, for
// INADDR_ANY) into the raw sockaddr Bind/Listen need. Resolution itself
// uses net.ResolveTCPAddr — there is no third-party address parser anywhere
// in the example corpus, so the standard library is the right tool here.
func resolveAddr(hostport string) (unix.Sockaddr, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", hostport)
	if err != nil {
		return nil, apierr.New(apierr.KindInput, err)
	}

	var ip [4]byte
	if tcpAddr.IP != nil {
		copy(ip[:], tcpAddr.IP.To4())
	}

	return &unix.SockaddrInet4{Port: tcpAddr.Port, Addr: ip}, nil
}
