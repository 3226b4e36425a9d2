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
Package protocol implements ntp message and basic functions to work with.
It provides typed access to the 48 bytes the poll client sends and receives,
plus a full struct decoding for debugging.
*/
package protocol

import (
	"time"
)

// EpochDelta is the number of seconds between NTP (1900) and Unix (1970) epochs
const EpochDelta = 2208988800

// NanosecondsToUnix is the difference between NTP and Unix epoch in NS
const NanosecondsToUnix = int64(EpochDelta * 1000000000)

// UnixSeconds converts NTP seconds into Unix seconds.
// Subtraction is done modulo 2^32, so era 1 timestamps (after 2036) map past 2036.
func UnixSeconds(ntpSeconds uint32) int64 {
	return int64(ntpSeconds - uint32(EpochDelta))
}

// Time is converting Unix time to sec and frac NTP format
func Time(t time.Time) (seconds uint32, fracions uint32) {
	nsec := t.UnixNano() + NanosecondsToUnix
	sec := nsec / time.Second.Nanoseconds()
	return uint32(sec), uint32((nsec - sec*time.Second.Nanoseconds()) << 32 / time.Second.Nanoseconds())
}

// Unix is converting NTP seconds and fractions into Unix time
func Unix(seconds, fractions uint32) time.Time {
	secs := int64(seconds) - NanosecondsToUnix/time.Second.Nanoseconds()
	nanos := (int64(fractions) * time.Second.Nanoseconds()) >> 32 // convert fractional to nanos
	return time.Unix(secs, nanos)
}
