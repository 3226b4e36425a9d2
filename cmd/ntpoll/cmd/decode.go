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
package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebook/ntpoll/ntp/display"
	"github.com/facebook/ntpoll/ntp/protocol"
)

// decodeHex decodes response the same way poll client does and returns unix seconds
func decodeHex(s string) (int64, *protocol.Packet, error) {
	s = strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return 0, nil, fmt.Errorf("decoding hex: %w", err)
	}
	m, err := protocol.MessageFromBytes(b)
	if err != nil {
		return 0, nil, err
	}
	if err := m.ValidateResponse(); err != nil {
		return 0, nil, err
	}
	p, err := m.Packet()
	if err != nil {
		return 0, nil, err
	}
	return protocol.UnixSeconds(m.TransmitSeconds()), p, nil
}

func decodeRun(out io.Writer, input string, zoneNames []string) error {
	zones, err := display.ParseZones(zoneNames)
	if err != nil {
		return err
	}
	unix, p, err := decodeHex(input)
	if err != nil {
		return err
	}
	log.Debugf("decoded packet: %s", spew.Sdump(p))
	fmt.Fprintf(out, "Stratum: %d, Leap: %d, Version: %d, Unix: %d\n", p.Stratum, p.Leap(), p.Version(), unix)
	fmt.Fprintf(out, "Transmit: %s\n", protocol.Unix(p.TxTimeSec, p.TxTimeFrac).UTC().Format(time.RFC3339Nano))
	for _, l := range display.Lines(unix, zones) {
		fmt.Fprintln(out, l)
	}
	return nil
}

var decodeCmd = &cobra.Command{
	Use:   "decode HEX",
	Short: "Decode hex-encoded 48 byte NTP response offline",
	Args:  cobra.MinimumNArgs(1),
	Run: func(c *cobra.Command, args []string) {
		ConfigureVerbosity()

		cfg, err := prepareConfig(c)
		if err != nil {
			log.Fatal(err)
		}
		if err := decodeRun(os.Stdout, strings.Join(args, " "), cfg.Zones); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(decodeCmd)
}
