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
	"net/netip"
	"sync"
	"time"
)

// EventKind is a type of event session reacts to
type EventKind int

// Events which drive the session
const (
	EventPollDue EventKind = iota
	EventResolved
	EventResolutionFailed
	EventDatagramReceived
	EventAlarmFired
)

var eventKindToString = map[EventKind]string{
	EventPollDue:          "POLL_DUE",
	EventResolved:         "RESOLVED",
	EventResolutionFailed: "RESOLUTION_FAILED",
	EventDatagramReceived: "DATAGRAM_RECEIVED",
	EventAlarmFired:       "ALARM_FIRED",
}

func (k EventKind) String() string {
	return eventKindToString[k]
}

// Event is a single input of the session state machine.
// Which fields are set depends on Kind.
type Event struct {
	Kind EventKind
	// PollDue
	Now time.Time
	// Resolved
	Addr netip.Addr
	// ResolutionFailed
	Err error
	// DatagramReceived
	Payload []byte
	From    netip.AddrPort
	// AlarmFired
	Alarm AlarmID
}

// PollDue is posted by the scheduler tick
func PollDue(now time.Time) Event {
	return Event{Kind: EventPollDue, Now: now}
}

// Resolved is posted when asynchronous resolution completed
func Resolved(addr netip.Addr) Event {
	return Event{Kind: EventResolved, Addr: addr}
}

// ResolutionFailed is posted when asynchronous resolution returned no address
func ResolutionFailed(err error) Event {
	return Event{Kind: EventResolutionFailed, Err: err}
}

// DatagramReceived is posted for every datagram the transport reads
func DatagramReceived(payload []byte, from netip.AddrPort) Event {
	return Event{Kind: EventDatagramReceived, Payload: payload, From: from}
}

// AlarmFired is posted when failure alarm expires
func AlarmFired(id AlarmID) Event {
	return Event{Kind: EventAlarmFired, Alarm: id}
}

// PostFunc hands event over to the session goroutine
type PostFunc func(Event)

// EventQueue is a channel of events consumed by the Loop.
// Posting never blocks forever: once the queue is closed events are dropped.
type EventQueue struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
}

// NewEventQueue creates queue with given buffer size
func NewEventQueue(size int) *EventQueue {
	return &EventQueue{
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
}

// Post enqueues event, it is safe to call from any goroutine
func (q *EventQueue) Post(ev Event) {
	select {
	case q.events <- ev:
	case <-q.done:
	}
}

// Events returns channel to consume events from
func (q *EventQueue) Events() <-chan Event {
	return q.events
}

// Close unblocks all pending and future Post calls
func (q *EventQueue) Close() {
	q.once.Do(func() { close(q.done) })
}
