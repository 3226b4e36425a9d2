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
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebook/ntpoll/ntp/client"
	"github.com/facebook/ntpoll/ntp/display"
	"github.com/facebook/ntpoll/ntp/probe"
)

func init() {
	RootCmd.AddCommand(probeCmd)
}

// probeRows compares single poll result with full SNTP probe
func probeRows(res client.Result, p *probe.Result, perr error) [][]string {
	rows := [][]string{}
	if res.OK() {
		rows = append(rows, []string{
			"poll", res.Addr.String(), fmt.Sprintf("%d", res.Unix), display.Format(res.Unix, time.UTC), "", "", "", "", "",
		})
	} else {
		rows = append(rows, []string{"poll", res.Addr.String(), "", "", "", "", "", "", res.Err.Error()})
	}
	if perr != nil {
		rows = append(rows, []string{"sntp", "", "", "", "", "", "", "", perr.Error()})
		return rows
	}
	rows = append(rows, []string{
		"sntp",
		p.Server,
		fmt.Sprintf("%d", p.Time.Unix()),
		display.Format(p.Time.Unix(), time.UTC),
		p.Offset.String(),
		p.RTT.String(),
		fmt.Sprintf("%d", p.Stratum),
		p.RefID,
		"",
	})
	return rows
}

func printProbe(out io.Writer, rows [][]string) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{
		"method", "address", "unix", "utc", "offset", "rtt", "stratum", "refid", "error",
	})
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

func probeRun(c *cobra.Command) error {
	cfg, err := prepareConfig(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout(cfg))
	defer cancel()
	res, err := client.RunOnce(ctx, cfg, nil)
	if err != nil {
		return err
	}
	p, perr := probe.Query(cfg.Server, cfg.Port, cfg.Timeout)
	printProbe(os.Stdout, probeRows(res, p, perr))
	return nil
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Poll NTP server once and cross-check with full SNTP query",
	Run: func(c *cobra.Command, args []string) {
		ConfigureVerbosity()

		if err := probeRun(c); err != nil {
			log.Fatal(err)
		}
	},
}
