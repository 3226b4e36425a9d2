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
package client

//go:generate mockgen -source=interfaces.go -destination=interfaces_mock_test.go -package=client

import (
	"net/netip"
	"time"

	"github.com/facebook/ntpoll/ntp/protocol"
)

// Resolver starts hostname resolution.
// When the answer is already known (cached or literal IP) it is returned with cached set to true.
// Otherwise resolution continues in background and ends with exactly one
// Resolved or ResolutionFailed event posted to the session.
// Returned error means resolution could not even start, no event follows.
type Resolver interface {
	Resolve(host string) (addr netip.Addr, cached bool, err error)
}

// Transport sends datagrams. Received datagrams come back as DatagramReceived events.
type Transport interface {
	Send(msg protocol.Message, dst netip.AddrPort) error
}

// AlarmID identifies armed alarm. Zero value means no alarm.
type AlarmID uint64

// Timer arms one-shot alarms which post AlarmFired event when they expire
type Timer interface {
	Arm(delay time.Duration) AlarmID
	Cancel(id AlarmID)
}

// Sink consumes results, exactly one per cycle
type Sink interface {
	OnTimeResult(r Result)
}

// Clock gives current time
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// SinkFunc allows to use ordinary function as a Sink
type SinkFunc func(r Result)

// OnTimeResult calls f(r)
func (f SinkFunc) OnTimeResult(r Result) {
	f(r)
}

// Result is an outcome of a single poll cycle
type Result struct {
	// Cycle is a sequence number of the cycle, starting from 1
	Cycle uint64
	// Server is a configured hostname
	Server string
	// Addr is the resolved address, invalid if resolution failed
	Addr netip.Addr
	// Unix is a transmit timestamp of the server converted to unix seconds
	Unix int64
	// Err is nil on success
	Err error
	// Completed is local time when the cycle ended
	Completed time.Time
}

// OK returns true if cycle succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// Time returns server time as time.Time in UTC
func (r Result) Time() time.Time {
	return time.Unix(r.Unix, 0).UTC()
}
