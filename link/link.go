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
Package link checks that the network interface polling goes through is ready.
*/
package link

import (
	"fmt"
	"net"
	"net/netip"

	log "github.com/sirupsen/logrus"
)

// Status is the outcome of the link check
type Status int

// possible link states
const (
	OK Status = iota
	InterfaceMissing
	LinkDown
	NoAddress
)

var statusToString = map[Status]string{
	OK:               "OK",
	InterfaceMissing: "INTERFACE_MISSING",
	LinkDown:         "LINK_DOWN",
	NoAddress:        "NO_ADDRESS",
}

func (s Status) String() string {
	return statusToString[s]
}

// Report describes the interface at the moment of the check
type Report struct {
	Iface  string
	Status Status
	Flags  net.Flags
	Addrs  []netip.Addr
}

// Ready returns true if polling can start
func (r *Report) Ready() bool {
	return r.Status == OK
}

// Check inspects interface iface. Error means state could not be obtained at all.
func Check(iface string) (*Report, error) {
	ifc, addrs, err := interfaceInfo(iface)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", iface, err)
	}
	r := evaluate(iface, ifc, addrs)
	log.Infof("interface %s: %s, flags %v, addresses %v", r.Iface, r.Status, r.Flags, r.Addrs)
	return r, nil
}

// evaluate turns interface state into Report. Missing interface is nil ifc.
func evaluate(iface string, ifc *net.Interface, addrs []netip.Addr) *Report {
	r := &Report{Iface: iface}
	if ifc == nil {
		r.Status = InterfaceMissing
		return r
	}
	r.Flags = ifc.Flags
	for _, a := range addrs {
		// link-local addresses can't reach ntp servers
		if a.IsLinkLocalUnicast() {
			continue
		}
		r.Addrs = append(r.Addrs, a)
	}
	switch {
	case ifc.Flags&net.FlagUp == 0:
		r.Status = LinkDown
	case len(r.Addrs) == 0:
		r.Status = NoAddress
	default:
		r.Status = OK
	}
	return r
}

func toAddr(ip net.IP) (netip.Addr, bool) {
	a, ok := netip.AddrFromSlice(ip)
	return a.Unmap(), ok
}
