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
	"sync"
	"time"
)

// AlarmTimer implements Timer on top of time.AfterFunc.
// Expired alarms are posted as AlarmFired events, cancelled ones are never posted.
type AlarmTimer struct {
	post PostFunc

	mux    sync.Mutex
	last   AlarmID
	timers map[AlarmID]*time.Timer
}

// NewAlarmTimer creates AlarmTimer posting events with post
func NewAlarmTimer(post PostFunc) *AlarmTimer {
	return &AlarmTimer{
		post:   post,
		timers: map[AlarmID]*time.Timer{},
	}
}

// Arm schedules one-shot alarm
func (t *AlarmTimer) Arm(delay time.Duration) AlarmID {
	t.mux.Lock()
	defer t.mux.Unlock()
	t.last++
	id := t.last
	t.timers[id] = time.AfterFunc(delay, func() {
		t.mux.Lock()
		_, pending := t.timers[id]
		delete(t.timers, id)
		t.mux.Unlock()
		if pending {
			t.post(AlarmFired(id))
		}
	})
	return id
}

// Cancel stops the alarm if it has not fired yet
func (t *AlarmTimer) Cancel(id AlarmID) {
	t.mux.Lock()
	defer t.mux.Unlock()
	if tm, found := t.timers[id]; found {
		tm.Stop()
		delete(t.timers, id)
	}
}

// Pending returns number of armed alarms
func (t *AlarmTimer) Pending() int {
	t.mux.Lock()
	defer t.mux.Unlock()
	return len(t.timers)
}
