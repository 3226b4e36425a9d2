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
	"time"

	log "github.com/sirupsen/logrus"
)

// Scheduler decides when the next cycle starts and owns failure alarm timing.
// It allows only one cycle to be active at a time.
type Scheduler struct {
	interval time.Duration
	timeout  time.Duration
	timer    Timer

	nextPoll time.Time
	inFlight bool
}

// NewScheduler returns scheduler which considers first poll due at now
func NewScheduler(interval, timeout time.Duration, timer Timer, now time.Time) *Scheduler {
	return &Scheduler{
		interval: interval,
		timeout:  timeout,
		timer:    timer,
		nextPoll: now,
	}
}

// Tick returns true if new cycle must start now. Caller must start exactly one cycle when it does.
func (s *Scheduler) Tick(now time.Time) bool {
	if s.inFlight || now.Before(s.nextPoll) {
		return false
	}
	s.inFlight = true
	return true
}

// OnCycleComplete schedules next poll after every success or failure
func (s *Scheduler) OnCycleComplete(now time.Time) {
	s.nextPoll = now.Add(s.interval)
	s.inFlight = false
	log.Debugf("next poll at %v", s.nextPoll)
}

// ArmFailureAlarm arms one-shot alarm which fails the cycle once timeout passes
func (s *Scheduler) ArmFailureAlarm() AlarmID {
	return s.timer.Arm(s.timeout)
}

// CancelFailureAlarm disarms the alarm
func (s *Scheduler) CancelFailureAlarm(id AlarmID) {
	s.timer.Cancel(id)
}

// NextPoll returns deadline of the next cycle
func (s *Scheduler) NextPoll() time.Time {
	return s.nextPoll
}

// InFlight returns true while a cycle is active
func (s *Scheduler) InFlight() bool {
	return s.inFlight
}
