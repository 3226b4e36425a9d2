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
package link

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/jsimonetti/rtnetlink/rtnl"
)

// interfaceInfo asks the kernel over netlink. Missing interface is not an error.
func interfaceInfo(iface string) (*net.Interface, []netip.Addr, error) {
	conn, err := rtnl.Dial(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("can't establish netlink connection: %w", err)
	}
	defer conn.Close()

	links, err := conn.Links()
	if err != nil {
		return nil, nil, fmt.Errorf("can't list links: %w", err)
	}
	var ifc *net.Interface
	for _, l := range links {
		if l.Name == iface {
			ifc = l
			break
		}
	}
	if ifc == nil {
		return nil, nil, nil
	}

	// 0 is all families
	nets, err := conn.Addrs(ifc, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("can't list addresses: %w", err)
	}
	addrs := make([]netip.Addr, 0, len(nets))
	for _, n := range nets {
		if a, ok := toAddr(n.IP); ok {
			addrs = append(addrs, a)
		}
	}
	return ifc, addrs, nil
}
