/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
/*
Package probe runs a full SNTP exchange with offset and round trip computation.
It's used to cross-check what the poll client reports.
*/
package probe

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/beevik/ntp"
)

// Result of a single probe
type Result struct {
	Server         string
	Time           time.Time
	Offset         time.Duration
	RTT            time.Duration
	Stratum        uint8
	RefID          string
	RootDelay      time.Duration
	RootDispersion time.Duration
	Leap           uint8
}

// Query sends one request to server:port and validates the answer.
// server is a bare hostname or IP, port is passed separately.
func Query(server string, port int, timeout time.Duration) (*Result, error) {
	addr := net.JoinHostPort(server, strconv.Itoa(port))
	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: timeout, Port: port})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", addr, err)
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("invalid response from %s: %w", addr, err)
	}
	return &Result{
		Server:         addr,
		Time:           resp.Time,
		Offset:         resp.ClockOffset,
		RTT:            resp.RTT,
		Stratum:        resp.Stratum,
		RefID:          refID(resp.Stratum, resp.ReferenceID),
		RootDelay:      resp.RootDelay,
		RootDispersion: resp.RootDispersion,
		Leap:           uint8(resp.Leap),
	}, nil
}

// refID renders reference ID: ascii clock name for stratum 1, IPv4 otherwise
func refID(stratum uint8, id uint32) string {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, id)
	if stratum > 1 {
		return net.IP(b).String()
	}
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}
