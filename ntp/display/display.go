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
Package display renders poll results for humans: one line per configured time zone.
*/
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/facebook/ntpoll/ntp/client"
)

// DateFormat is YYYY/MM/DD hh:mm:ss
const DateFormat = "2006/01/02 15:04:05"

// offsetFormat is what fixed zone offsets look like, +09:00
const offsetFormat = "-07:00"

// Zone is a named location results are rendered in
type Zone struct {
	Name     string
	Location *time.Location
}

// ParseZone understands "UTC", "Local", IANA names like "Asia/Tokyo"
// and fixed offsets in NAME=+hh:mm form, like "JST=+09:00"
func ParseZone(s string) (Zone, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zone{}, fmt.Errorf("empty zone")
	}
	if name, offset, found := strings.Cut(s, "="); found {
		if name == "" {
			return Zone{}, fmt.Errorf("zone %q has no name", s)
		}
		t, err := time.Parse(offsetFormat, offset)
		if err != nil {
			return Zone{}, fmt.Errorf("zone %q: bad offset %q, want +hh:mm", s, offset)
		}
		_, secs := t.Zone()
		return Zone{Name: name, Location: time.FixedZone(name, secs)}, nil
	}
	loc, err := time.LoadLocation(s)
	if err != nil {
		return Zone{}, fmt.Errorf("zone %q: %w", s, err)
	}
	return Zone{Name: s, Location: loc}, nil
}

// ParseZones parses every zone, first error wins
func ParseZones(zones []string) ([]Zone, error) {
	res := make([]Zone, 0, len(zones))
	for _, z := range zones {
		zone, err := ParseZone(z)
		if err != nil {
			return nil, err
		}
		res = append(res, zone)
	}
	return res, nil
}

// Format renders unix seconds in the given location
func Format(unix int64, loc *time.Location) string {
	return time.Unix(unix, 0).In(loc).Format(DateFormat)
}

// Lines renders unix seconds in every zone, "NTP(UTC) : 2024/04/03 08:57:36"
func Lines(unix int64, zones []Zone) []string {
	lines := make([]string, 0, len(zones))
	for _, z := range zones {
		lines = append(lines, fmt.Sprintf("NTP(%s) : %s", z.Name, Format(unix, z.Location)))
	}
	return lines
}

// Sink prints every result to out
type Sink struct {
	out   io.Writer
	zones []Zone
}

// NewSink returns client.Sink printing to out
func NewSink(out io.Writer, zones []Zone) *Sink {
	return &Sink{out: out, zones: zones}
}

// OnTimeResult implements client.Sink
func (s *Sink) OnTimeResult(r client.Result) {
	if !r.OK() {
		fmt.Fprintf(s.out, "%s %s\n", color.RedString("[FAIL]"), r.Err)
		return
	}
	fmt.Fprintf(s.out, "%s %s (%s)\n", color.GreenString("[ OK ]"), r.Server, color.BlueString(r.Addr.String()))
	for _, l := range Lines(r.Unix, s.zones) {
		fmt.Fprintln(s.out, l)
	}
}
