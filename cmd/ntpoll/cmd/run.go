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
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/facebook/ntpoll/link"
	"github.com/facebook/ntpoll/ntp/client"
	"github.com/facebook/ntpoll/ntp/display"
)

func init() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().DurationVarP(&rootFlags.Interval, "interval", "i", rootFlags.Interval, "time between end of one poll and start of the next one")
	runCmd.Flags().IntVar(&rootFlags.MonitoringPort, "monitoringport", rootFlags.MonitoringPort, "port to start monitoring http server on, disabled if 0")
	runCmd.Flags().StringVar(&rootFlags.Iface, "iface", rootFlags.Iface, "network interface which must be up before polling starts, not checked if empty")
}

// linkStatus runs bring-up check if interface is configured
func linkStatus(iface string) (link.Status, error) {
	if iface == "" {
		return link.OK, nil
	}
	report, err := link.Check(iface)
	if err != nil {
		return 0, err
	}
	return report.Status, nil
}

// runPoll polls until ctx is cancelled. Nothing is sent unless link is OK.
func runPoll(ctx context.Context, cfg *client.Config, status link.Status, out io.Writer) error {
	if status != link.OK {
		return fmt.Errorf("interface %s is not ready: %s", cfg.Iface, status)
	}
	zones, err := display.ParseZones(cfg.Zones)
	if err != nil {
		return err
	}
	stats := client.NewStats()
	if cfg.MonitoringPort != 0 {
		go stats.Start(cfg.MonitoringPort)
	}
	c, err := client.New(cfg, display.NewSink(out, zones), stats)
	if err != nil {
		return err
	}

	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warningf("Failed to notify systemd: %v", err)
	} else if sent {
		log.Debug("Notified systemd we are ready")
	}

	log.Infof("Polling %s every %v", cfg.Server, cfg.Interval)
	err = c.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runRun(c *cobra.Command) error {
	cfg, err := prepareConfig(c)
	if err != nil {
		return err
	}
	status, err := linkStatus(cfg.Iface)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Handle interrupt for graceful shutdown
	sigStop := make(chan os.Signal, 1)
	signal.Notify(sigStop, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigStop)
	go func() {
		select {
		case <-sigStop:
			log.Warning("Graceful shutdown")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runPoll(ctx, cfg, status, os.Stdout)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll NTP server forever and print every result",
	Run: func(c *cobra.Command, args []string) {
		ConfigureVerbosity()

		if err := runRun(c); err != nil {
			log.Fatal(err)
		}
	},
}
