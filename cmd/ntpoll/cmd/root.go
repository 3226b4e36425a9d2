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
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebook/ntpoll/ntp/client"
)

// RootCmd is a main entry point. It's exported so ntpoll could be easily extended without touching core functionality.
var RootCmd = &cobra.Command{
	Use:   "ntpoll",
	Short: "Poll NTP server time, one request at a time",
}

// flags
var (
	rootVerboseFlag  bool
	rootLogLevelFlag string
	rootConfigFlag   string
	// values of the flags shared by all subcommands, defaults come from client.DefaultConfig
	rootFlags = client.DefaultConfig()
)

// names of the flags which map to client.Config, see client.PrepareConfig
var configFlagNames = []string{"server", "nameserver", "port", "interval", "timeout", "dscp", "monitoringport", "iface", "zone"}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.BoolVarP(&rootVerboseFlag, "verbose", "v", false, "verbose output")
	pf.StringVar(&rootLogLevelFlag, "loglevel", "info", "Set a log level. Can be: debug, info, warning, error")
	pf.StringVarP(&rootConfigFlag, "config", "c", "", "path to the config")
	pf.StringVarP(&rootFlags.Server, "server", "s", rootFlags.Server, fmt.Sprintf("NTP server hostname or IP, %s is a good alternative", client.ServerPool))
	pf.StringVar(&rootFlags.Nameserver, "nameserver", rootFlags.Nameserver, "DNS server to resolve NTP server with (host[:port]), system resolver if empty")
	pf.IntVarP(&rootFlags.Port, "port", "p", rootFlags.Port, "NTP server port")
	pf.DurationVar(&rootFlags.Timeout, "timeout", rootFlags.Timeout, "how long to wait for resolution and response")
	pf.IntVar(&rootFlags.DSCP, "dscp", rootFlags.DSCP, "DSCP for NTP packets, valid values are between 0-63")
	pf.StringSliceVar(&rootFlags.Zones, "zone", rootFlags.Zones, "time zones to show results in: UTC, Local, IANA name or NAME=+hh:mm")
}

// ConfigureVerbosity configures log verbosity based on parsed flags. Needs to be called by any subcommand.
func ConfigureVerbosity() {
	switch rootLogLevelFlag {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Fatalf("Unrecognized log level: %v", rootLogLevelFlag)
	}
	if rootVerboseFlag {
		log.SetLevel(log.DebugLevel)
	}
}

// prepareConfig merges defaults, config file and explicitly set flags
func prepareConfig(c *cobra.Command) (*client.Config, error) {
	setFlags := make(map[string]bool)
	for _, name := range configFlagNames {
		if f := c.Flags().Lookup(name); f != nil && f.Changed {
			setFlags[name] = true
		}
	}
	return client.PrepareConfig(rootConfigFlag, rootFlags, setFlags)
}

// oneShotTimeout bounds single cycle commands: resolution plus the response wait
func oneShotTimeout(cfg *client.Config) time.Duration {
	return 2*cfg.Timeout + time.Second
}

// Execute is the main entry point for CLI interface
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
