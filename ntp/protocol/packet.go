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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// PacketSizeBytes sets the size of NTP packet
const PacketSizeBytes = 48

// Port is the well-known NTP port
const Port = 123

// RequestSettings is the LI | VN | Mode byte of a client request:
// no leap warning, version 3, client mode
const RequestSettings = 0x1B

// ModeServer is the mode a valid server response carries
const ModeServer = 4

// offsets inside of a raw message
const (
	settingsOffset  = 0
	stratumOffset   = 1
	txTimeSecOffset = 40
)

// errors returned for malformed responses
var (
	ErrInvalidLength = errors.New("invalid ntp message length")
	ErrNotServerMode = errors.New("not a server mode message")
	ErrKissOfDeath   = errors.New("stratum 0 (kiss-of-death)")
)

// Packet is an NTPv4 packet
/*
http://seriot.ch/ntp.php
https://tools.ietf.org/html/rfc958
   0                   1                   2                   3
   0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
0 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |LI | VN  |Mode |    Stratum     |     Poll      |  Precision   |
4 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                         Root Delay                            |
8 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                         Root Dispersion                       |
12+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                          Reference ID                         |
16+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                                                               |
  +                     Reference Timestamp (64)                  +
  |                                                               |
24+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                                                               |
  +                      Origin Timestamp (64)                    +
  |                                                               |
32+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                                                               |
  +                      Receive Timestamp (64)                   +
  |                                                               |
40+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                                                               |
  +                      Transmit Timestamp (64)                  +
  |                                                               |
48+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

 0 1 2 3 4 5 6 7
+-+-+-+-+-+-+-+-+
|LI | VN  |Mode |
+-+-+-+-+-+-+-+-+
 0 0 0 1 1 0 1 1

Setting = LI | VN  |Mode. Client request:
00 011 011 (or 0x1B)
|  |   +-- client mode (3)
|  + ----- version (3)
+ -------- leap year indicator, 0 no warning
*/
type Packet struct {
	Settings       uint8  // leap year indicator, version number and mode
	Stratum        uint8  // stratum
	Poll           int8   // poll. Power of 2
	Precision      int8   // precision. Power of 2
	RootDelay      uint32 // total delay to the reference clock
	RootDispersion uint32 // total dispersion to the reference clock
	ReferenceID    uint32 // identifier of server or a reference clock
	RefTimeSec     uint32 // last time local clock was updated sec
	RefTimeFrac    uint32 // last time local clock was updated frac
	OrigTimeSec    uint32 // client time sec
	OrigTimeFrac   uint32 // client time frac
	RxTimeSec      uint32 // receive time sec
	RxTimeFrac     uint32 // receive time frac
	TxTimeSec      uint32 // transmit time sec
	TxTimeFrac     uint32 // transmit time frac
}

// Leap returns leap indicator
func (p *Packet) Leap() uint8 {
	return p.Settings >> 6
}

// Version returns protocol version
func (p *Packet) Version() uint8 {
	return (p.Settings >> 3) & 0x7
}

// Mode returns association mode
func (p *Packet) Mode() uint8 {
	return p.Settings & 0x7
}

// Bytes converts Packet to []bytes
func (p *Packet) Bytes() ([]byte, error) {
	var bytes bytes.Buffer
	err := binary.Write(&bytes, binary.BigEndian, p)
	return bytes.Bytes(), err
}

// BytesToPacket converts []bytes to Packet
func BytesToPacket(ntpPacketBytes []byte) (*Packet, error) {
	packet := &Packet{}
	reader := bytes.NewReader(ntpPacketBytes)
	err := binary.Read(reader, binary.BigEndian, packet)
	return packet, err
}

// Message is a raw NTP message as it travels over the wire.
// Only the fields the poll client needs have accessors,
// use Packet to get everything else.
type Message [PacketSizeBytes]byte

// NewRequest returns client request: all zeroes except for the settings byte
func NewRequest() Message {
	var m Message
	m[settingsOffset] = RequestSettings
	return m
}

// MessageFromBytes copies datagram into Message.
// Datagram must be exactly PacketSizeBytes long.
func MessageFromBytes(b []byte) (Message, error) {
	var m Message
	if len(b) != PacketSizeBytes {
		return m, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(b), PacketSizeBytes)
	}
	copy(m[:], b)
	return m, nil
}

// Mode returns low 3 bits of the settings byte
func (m *Message) Mode() uint8 {
	return m[settingsOffset] & 0x7
}

// Stratum returns stratum byte. 0 means kiss-of-death
func (m *Message) Stratum() uint8 {
	return m[stratumOffset]
}

// TransmitSeconds returns seconds part of the transmit timestamp
func (m *Message) TransmitSeconds() uint32 {
	return binary.BigEndian.Uint32(m[txTimeSecOffset : txTimeSecOffset+4])
}

// ValidateResponse checks message is a usable server response: mode first, then stratum
func (m *Message) ValidateResponse() error {
	if mode := m.Mode(); mode != ModeServer {
		return fmt.Errorf("%w: mode %d", ErrNotServerMode, mode)
	}
	if m.Stratum() == 0 {
		return ErrKissOfDeath
	}
	return nil
}

// Packet decodes all the fields of the message
func (m *Message) Packet() (*Packet, error) {
	return BytesToPacket(m[:])
}
