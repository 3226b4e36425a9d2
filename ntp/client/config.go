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
	"fmt"
	"net"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/facebook/ntpoll/ntp/protocol"
)

// Known public servers
const (
	ServerJP   = "ntp.nict.jp"
	ServerPool = "pool.ntp.org"
)

// Config specifies poll client run options
type Config struct {
	Server         string        `yaml:"server"`          // hostname or IP of NTP server
	Nameserver     string        `yaml:"nameserver"`      // host:port of DNS server to use, system resolver if empty
	Port           int           `yaml:"port"`            // port NTP server listens on
	Interval       time.Duration `yaml:"interval"`        // time between end of one cycle and start of the next one
	Timeout        time.Duration `yaml:"timeout"`         // how long to wait for the response (and for resolution)
	TickInterval   time.Duration `yaml:"tick_interval"`   // how often scheduler checks if poll is due
	ListenAddress  string        `yaml:"listen_address"`  // local address to bind to, all addresses if empty
	DSCP           int           `yaml:"dscp"`            // DSCP to mark requests with
	MonitoringPort int           `yaml:"monitoring_port"` // port to serve metrics on, disabled if 0
	Iface          string        `yaml:"iface"`           // interface which must be up before polling starts, not checked if empty
	Zones          []string      `yaml:"zones"`           // time zones to display results in
}

// DefaultConfig returns Config initialized with default values
func DefaultConfig() *Config {
	return &Config{
		Server:       ServerJP,
		Port:         protocol.Port,
		Interval:     30 * time.Second,
		Timeout:      10 * time.Second,
		TickInterval: time.Second,
		Zones:        []string{"UTC", "JST=+09:00"},
	}
}

// Validate config is sane
func (c *Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("server must be specified")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be greater than zero")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than zero")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be greater than zero")
	}
	if c.DSCP < 0 || c.DSCP > 63 {
		return fmt.Errorf("dscp must be between 0 and 63")
	}
	if c.MonitoringPort < 0 {
		return fmt.Errorf("monitoring_port must be 0 or positive")
	}
	if c.Nameserver != "" {
		if _, _, err := net.SplitHostPort(nameserverAddr(c.Nameserver)); err != nil {
			return fmt.Errorf("invalid nameserver %q: %w", c.Nameserver, err)
		}
	}
	if c.ListenAddress != "" && net.ParseIP(c.ListenAddress) == nil {
		return fmt.Errorf("listen_address %q is not an IP address", c.ListenAddress)
	}
	return nil
}

// ReadConfig reads config from the file
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	cData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(cData, &c)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// PrepareConfig prepares final version of config based on defaults, on-disk config and CLI flags, and validates resulting config.
// Only flags present in setFlags are taken from the flags config.
func PrepareConfig(cfgPath string, flags *Config, setFlags map[string]bool) (*Config, error) {
	cfg := DefaultConfig()
	var err error
	warn := func(name string) {
		log.Warningf("overriding %s from CLI flag", name)
	}
	if cfgPath != "" {
		cfg, err = ReadConfig(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("reading config from %q: %w", cfgPath, err)
		}
	}
	if setFlags["server"] {
		warn("server")
		cfg.Server = flags.Server
	}
	if setFlags["nameserver"] {
		warn("nameserver")
		cfg.Nameserver = flags.Nameserver
	}
	if setFlags["port"] {
		warn("port")
		cfg.Port = flags.Port
	}
	if setFlags["interval"] {
		warn("interval")
		cfg.Interval = flags.Interval
	}
	if setFlags["timeout"] {
		warn("timeout")
		cfg.Timeout = flags.Timeout
	}
	if setFlags["dscp"] {
		warn("dscp")
		cfg.DSCP = flags.DSCP
	}
	if setFlags["monitoringport"] {
		warn("monitoringport")
		cfg.MonitoringPort = flags.MonitoringPort
	}
	if setFlags["iface"] {
		warn("iface")
		cfg.Iface = flags.Iface
	}
	if setFlags["zone"] {
		warn("zone")
		cfg.Zones = flags.Zones
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	log.Debugf("config: %+v", cfg)
	return cfg, nil
}
