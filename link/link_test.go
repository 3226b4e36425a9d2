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
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	require.Equal(t, "OK", OK.String())
	require.Equal(t, "INTERFACE_MISSING", InterfaceMissing.String())
	require.Equal(t, "LINK_DOWN", LinkDown.String())
	require.Equal(t, "NO_ADDRESS", NoAddress.String())
}

func TestEvaluate(t *testing.T) {
	global := netip.MustParseAddr("192.0.2.10")
	linkLocal := netip.MustParseAddr("fe80::1")

	tests := []struct {
		name   string
		ifc    *net.Interface
		addrs  []netip.Addr
		status Status
		kept   []netip.Addr
	}{
		{name: "missing", status: InterfaceMissing},
		{name: "down", ifc: &net.Interface{Name: "eth0"}, addrs: []netip.Addr{global}, status: LinkDown, kept: []netip.Addr{global}},
		{name: "no address", ifc: &net.Interface{Name: "eth0", Flags: net.FlagUp}, status: NoAddress},
		{name: "link-local only", ifc: &net.Interface{Name: "eth0", Flags: net.FlagUp}, addrs: []netip.Addr{linkLocal}, status: NoAddress},
		{name: "ok", ifc: &net.Interface{Name: "eth0", Flags: net.FlagUp | net.FlagRunning}, addrs: []netip.Addr{linkLocal, global}, status: OK, kept: []netip.Addr{global}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := evaluate("eth0", tt.ifc, tt.addrs)
			require.Equal(t, "eth0", r.Iface)
			require.Equal(t, tt.status, r.Status)
			require.Equal(t, tt.kept, r.Addrs)
			require.Equal(t, tt.status == OK, r.Ready())
		})
	}
}

func TestCheckMissing(t *testing.T) {
	r, err := Check("ntpoll-nope0")
	if err != nil {
		t.Skipf("link state unavailable: %v", err)
	}
	require.Equal(t, InterfaceMissing, r.Status)
	require.False(t, r.Ready())
}

func TestCheckLoopback(t *testing.T) {
	ifcs, err := net.Interfaces()
	require.NoError(t, err)
	var lo *net.Interface
	for i := range ifcs {
		if ifcs[i].Flags&net.FlagLoopback != 0 && ifcs[i].Flags&net.FlagUp != 0 {
			lo = &ifcs[i]
			break
		}
	}
	if lo == nil {
		t.Skip("no loopback interface")
	}
	r, err := Check(lo.Name)
	if err != nil {
		t.Skipf("link state unavailable: %v", err)
	}
	require.Equal(t, OK, r.Status)
	require.NotEmpty(t, r.Addrs)
}

func TestToAddr(t *testing.T) {
	a, ok := toAddr(net.ParseIP("192.0.2.1"))
	require.True(t, ok)
	require.True(t, a.Is4())
	_, ok = toAddr(nil)
	require.False(t, ok)
}
