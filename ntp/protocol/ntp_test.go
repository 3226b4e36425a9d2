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

package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	// Unix
	usec  = int64(1585147599)
	unsec = int64(631495778)
	// NTP
	nsec  = uint32(3794136399)
	nfrac = uint32(2712253714)

	// Packet response. From ntpdate run
	ntpResponse = &Packet{
		Settings:       36,
		Stratum:        1,
		Poll:           3,
		Precision:      -32,
		RootDelay:      0,
		RootDispersion: 10,
		ReferenceID:    1178738720,
		RefTimeSec:     3794209800,
		RefTimeFrac:    0,
		OrigTimeSec:    3794210679,
		OrigTimeFrac:   2718216404,
		RxTimeSec:      3794210679,
		RxTimeFrac:     2718375472,
		TxTimeSec:      3794210679,
		TxTimeFrac:     2719753478,
	}
	// Same response as above in bytes
	ntpResponseBytes = []byte{36, 1, 3, 224, 0, 0, 0, 0, 0, 0, 0, 10, 70, 66, 32, 32, 226, 39, 12, 8, 0, 0, 0, 0, 226, 39, 15, 119, 162, 4, 176, 212, 226, 39, 15, 119, 162, 7, 30, 48, 226, 39, 15, 119, 162, 28, 37, 6}
)

// Testing conversion so if Packet structure changes we notice
func TestResponseConversion(t *testing.T) {
	bytes, err := ntpResponse.Bytes()
	require.NoError(t, err)
	require.Equal(t, ntpResponseBytes, bytes)
}

func TestBytesToPacket(t *testing.T) {
	packet, err := BytesToPacket(ntpResponseBytes)
	require.NoError(t, err)
	require.Equal(t, ntpResponse, packet)
}

func TestBytesToPacketError(t *testing.T) {
	bytes := []byte{}
	packet, err := BytesToPacket(bytes)
	require.NotNil(t, err)
	require.Equal(t, &Packet{}, packet)
}

func TestPacketSettings(t *testing.T) {
	require.Equal(t, uint8(0), ntpResponse.Leap())
	require.Equal(t, uint8(4), ntpResponse.Version())
	require.Equal(t, uint8(ModeServer), ntpResponse.Mode())
}

func TestNewRequest(t *testing.T) {
	req := NewRequest()
	require.Equal(t, PacketSizeBytes, len(req))
	require.Equal(t, byte(0x1B), req[0])
	for i := 1; i < PacketSizeBytes; i++ {
		require.Zero(t, req[i], "byte %d must be zero", i)
	}
	p, err := req.Packet()
	require.NoError(t, err)
	require.Equal(t, uint8(0), p.Leap())
	require.Equal(t, uint8(3), p.Version())
	require.Equal(t, uint8(3), p.Mode())
}

func TestMessageFromBytes(t *testing.T) {
	m, err := MessageFromBytes(ntpResponseBytes)
	require.NoError(t, err)
	require.Equal(t, uint8(ModeServer), m.Mode())
	require.Equal(t, uint8(1), m.Stratum())
	require.Equal(t, ntpResponse.TxTimeSec, m.TransmitSeconds())

	p, err := m.Packet()
	require.NoError(t, err)
	require.Equal(t, ntpResponse, p)
}

func TestMessageFromBytesLength(t *testing.T) {
	_, err := MessageFromBytes(ntpResponseBytes[:40])
	require.ErrorIs(t, err, ErrInvalidLength)

	_, err = MessageFromBytes(append(ntpResponseBytes, 0))
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestTransmitSeconds(t *testing.T) {
	var m Message
	copy(m[40:], []byte{0xE9, 0xB7, 0x98, 0x80})
	require.Equal(t, uint32(3921123456), m.TransmitSeconds())
	require.Equal(t, int64(1712134656), UnixSeconds(m.TransmitSeconds()))
}

func TestUnixSeconds(t *testing.T) {
	require.Equal(t, int64(0), UnixSeconds(EpochDelta))
	require.Equal(t, int64(1585221879), UnixSeconds(3794210679))
	// era 1: NTP seconds wrapped in 2036
	require.Equal(t, int64(1<<32-EpochDelta+10), UnixSeconds(10))
}

func TestTime(t *testing.T) {
	testtime := time.Unix(usec, unsec)
	sec, frac := Time(testtime)

	require.Equal(t, nsec, sec)
	require.Equal(t, nfrac, frac)
}

func TestUnix(t *testing.T) {
	testtime := Unix(nsec, nfrac)

	require.Equal(t, usec, testtime.Unix())
	// +1ns is a rounding issue
	require.Equal(t, unsec, int64(testtime.Nanosecond())+1)
}

func TestValidateResponse(t *testing.T) {
	m, err := MessageFromBytes(ntpResponseBytes)
	require.NoError(t, err)
	require.NoError(t, m.ValidateResponse())

	m[stratumOffset] = 0
	require.ErrorIs(t, m.ValidateResponse(), ErrKissOfDeath)

	// mode is checked before stratum
	req := NewRequest()
	require.ErrorIs(t, req.ValidateResponse(), ErrNotServerMode)
	require.EqualError(t, req.ValidateResponse(), "not a server mode message: mode 3")
}
