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

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"

	"github.com/facebook/ntpoll/ntp/protocol"
)

type state int

const (
	stateIdle state = iota
	stateResolving
	stateAwaitingResponse
)

var stateToString = map[state]string{
	stateIdle:             "IDLE",
	stateResolving:        "RESOLVING",
	stateAwaitingResponse: "AWAITING_RESPONSE",
}

func (s state) String() string {
	return stateToString[s]
}

// Session owns a single in-flight query: Idle -> Resolving -> AwaitingResponse -> Idle.
// It is not safe for concurrent use, all events must be delivered from one goroutine.
type Session struct {
	cfg       *Config
	resolver  Resolver
	transport Transport
	sched     *Scheduler
	sink      Sink
	stats     *Stats
	clock     Clock

	state state
	cycle uint64
	// last resolved address, kept between cycles
	server    netip.Addr
	resolving bool
	alarm     AlarmID
}

// NewSession creates idle session. First poll is due immediately.
func NewSession(cfg *Config, resolver Resolver, transport Transport, timer Timer, sink Sink, stats *Stats, clock Clock) *Session {
	if clock == nil {
		clock = realClock{}
	}
	return &Session{
		cfg:       cfg,
		resolver:  resolver,
		transport: transport,
		sched:     NewScheduler(cfg.Interval, cfg.Timeout, timer, clock.Now()),
		sink:      sink,
		stats:     stats,
		clock:     clock,
	}
}

// Handle is the only state transition function of the session
func (s *Session) Handle(ev Event) {
	switch ev.Kind {
	case EventPollDue:
		s.handlePollDue(ev.Now)
	case EventResolved:
		s.handleResolved(ev.Addr)
	case EventResolutionFailed:
		s.handleResolutionFailed(ev.Err)
	case EventDatagramReceived:
		s.handleDatagram(ev.Payload, ev.From)
	case EventAlarmFired:
		s.handleAlarm(ev.Alarm)
	default:
		log.Errorf("unknown event %d", ev.Kind)
	}
}

// NextPoll returns time next cycle is due
func (s *Session) NextPoll() time.Time {
	return s.sched.NextPoll()
}

// ServerAddr returns last resolved server address
func (s *Session) ServerAddr() netip.Addr {
	return s.server
}

func (s *Session) handlePollDue(now time.Time) {
	if s.state != stateIdle || !s.sched.Tick(now) {
		return
	}
	s.cycle++
	if s.stats != nil {
		s.stats.IncCycles()
	}
	log.Infof("starting poll cycle %d for %s", s.cycle, s.cfg.Server)
	s.setState(stateResolving)
	s.resolving = true

	addr, cached, err := s.resolver.Resolve(s.cfg.Server)
	if err != nil {
		s.reportFailure(fmt.Errorf("%w: %s: %w", ErrResolution, s.cfg.Server, err))
		return
	}
	if cached {
		log.Debugf("%s resolved from cache", s.cfg.Server)
		s.sendRequest(addr)
	}
}

func (s *Session) handleResolved(addr netip.Addr) {
	if s.state != stateResolving {
		log.Debugf("ignoring resolution result %v while %s", addr, s.state)
		return
	}
	s.sendRequest(addr)
}

func (s *Session) handleResolutionFailed(err error) {
	if s.state != stateResolving {
		log.Debugf("ignoring resolution failure while %s: %v", s.state, err)
		return
	}
	s.reportFailure(fmt.Errorf("%w: %s: %w", ErrResolution, s.cfg.Server, err))
}

func (s *Session) sendRequest(addr netip.Addr) {
	s.server = addr.Unmap()
	s.resolving = false
	log.Infof("ntp server %s resolved to %s", s.cfg.Server, s.server)

	dst := netip.AddrPortFrom(s.server, uint16(s.cfg.Port))
	if err := s.transport.Send(protocol.NewRequest(), dst); err != nil {
		s.reportFailure(fmt.Errorf("%w: sending to %s: %w", ErrAllocation, dst, err))
		return
	}
	log.Debugf("sent request to %s", dst)
	s.alarm = s.sched.ArmFailureAlarm()
	s.setState(stateAwaitingResponse)
}

func (s *Session) handleDatagram(payload []byte, from netip.AddrPort) {
	if s.state != stateAwaitingResponse {
		log.Debugf("ignoring datagram from %s while %s", from, s.state)
		s.incIgnored()
		return
	}
	// not our response, keep waiting
	if !sameHost(from.Addr(), s.server) || from.Port() != uint16(s.cfg.Port) {
		log.Debugf("ignoring datagram from %s, waiting for %s:%d", from, s.server, s.cfg.Port)
		s.incIgnored()
		return
	}

	msg, err := protocol.MessageFromBytes(payload)
	if err != nil {
		s.reportFailure(fmt.Errorf("%w: %w", ErrInvalidResponse, err))
		return
	}
	if err := msg.ValidateResponse(); err != nil {
		s.reportFailure(fmt.Errorf("%w: %w", ErrInvalidResponse, err))
		return
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		if p, err := msg.Packet(); err == nil {
			log.Debugf("received response: %s", spew.Sdump(p))
		}
	}
	s.reportSuccess(protocol.UnixSeconds(msg.TransmitSeconds()))
}

// sameHost compares addresses ignoring IPv4 mapping and IPv6 zone
func sameHost(a, b netip.Addr) bool {
	return a.Unmap().WithZone("") == b.Unmap().WithZone("")
}

func (s *Session) handleAlarm(id AlarmID) {
	if s.state != stateAwaitingResponse || id != s.alarm {
		log.Debugf("ignoring stale alarm %d while %s", id, s.state)
		return
	}
	// alarm is one-shot, nothing to cancel anymore
	s.alarm = 0
	s.reportFailure(fmt.Errorf("%w: no response from %s:%d within %v", ErrRequestLost, s.server, s.cfg.Port, s.cfg.Timeout))
}

func (s *Session) reportSuccess(unix int64) {
	now := s.clock.Now()
	if s.stats != nil {
		s.stats.SetTimestamp(unix, time.Unix(unix, 0).Sub(now.Truncate(time.Second)))
	}
	s.finish(Result{
		Cycle:     s.cycle,
		Server:    s.cfg.Server,
		Addr:      s.server,
		Unix:      unix,
		Completed: now,
	})
}

// reportFailure is the single exit for every failed cycle
func (s *Session) reportFailure(err error) {
	log.Warningf("ntp request failed: %v", err)
	res := Result{
		Cycle:     s.cycle,
		Server:    s.cfg.Server,
		Err:       err,
		Completed: s.clock.Now(),
	}
	// address is only meaningful once this cycle resolved it
	if !s.resolving {
		res.Addr = s.server
	}
	s.finish(res)
}

func (s *Session) finish(res Result) {
	if s.alarm != 0 {
		s.sched.CancelFailureAlarm(s.alarm)
		s.alarm = 0
	}
	s.resolving = false
	s.setState(stateIdle)
	if s.stats != nil {
		s.stats.IncResult(res.Err)
	}
	s.sink.OnTimeResult(res)
	s.sched.OnCycleComplete(res.Completed)
}

func (s *Session) incIgnored() {
	if s.stats != nil {
		s.stats.IncIgnored()
	}
}

// dedicated function just for logging state changes
func (s *Session) setState(st state) {
	if s.state != st {
		log.Debugf("Changing state to %s", st)
		s.state = st
	}
}
