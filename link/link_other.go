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
//go:build !linux

package link

import (
	"net"
	"net/netip"
)

// interfaceInfo asks the standard library. Missing interface is not an error.
func interfaceInfo(iface string) (*net.Interface, []netip.Addr, error) {
	ifc, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, nil, nil
	}
	iaddrs, err := ifc.Addrs()
	if err != nil {
		return nil, nil, err
	}
	addrs := make([]netip.Addr, 0, len(iaddrs))
	for _, iaddr := range iaddrs {
		var ip net.IP
		switch v := iaddr.(type) {
		case *net.IPAddr:
			ip = v.IP
		case *net.IPNet:
			ip = v.IP
		default:
			continue
		}
		if a, ok := toAddr(ip); ok {
			addrs = append(addrs, a)
		}
	}
	return ifc, addrs, nil
}
