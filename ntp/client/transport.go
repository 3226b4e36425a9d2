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
	"context"
	"fmt"
	"net"
	"net/netip"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/facebook/ntpoll/ntp/protocol"
)

// read buffer is bigger than the message so oversized datagrams are noticed
const maxDatagramSize = 1024

// Listener delivers received datagrams as events until ctx is cancelled or reading fails
type Listener interface {
	Listen(ctx context.Context, post PostFunc) error
}

// UDPTransport is a Transport and Listener over a single unconnected UDP socket
type UDPTransport struct {
	conn *net.UDPConn
}

// NewUDPTransport binds to ephemeral port on listenAddress (all addresses if empty)
// and marks outgoing packets with dscp if it's not 0
func NewUDPTransport(listenAddress string, dscp int) (*UDPTransport, error) {
	ip := net.ParseIP(listenAddress)
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: 0})
	if err != nil {
		return nil, fmt.Errorf("binding to %q: %w", listenAddress, err)
	}
	if dscp != 0 {
		if err := enableDSCP(conn, ip, dscp); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return &UDPTransport{conn: conn}, nil
}

// enableDSCP sets traffic class on the socket. Dual stack sockets get both options.
func enableDSCP(conn *net.UDPConn, ip net.IP, dscp int) error {
	tos := dscp << 2
	if ip != nil && ip.To4() != nil {
		if err := ipv4.NewConn(conn).SetTOS(tos); err != nil {
			return fmt.Errorf("setting dscp %d: %w", dscp, err)
		}
		return nil
	}
	err6 := ipv6.NewConn(conn).SetTrafficClass(tos)
	err4 := ipv4.NewConn(conn).SetTOS(tos)
	if err6 != nil && err4 != nil {
		return fmt.Errorf("setting dscp %d: %w", dscp, err6)
	}
	return nil
}

// LocalAddr returns address socket is bound to
func (t *UDPTransport) LocalAddr() netip.AddrPort {
	return t.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Send implements Transport
func (t *UDPTransport) Send(msg protocol.Message, dst netip.AddrPort) error {
	_, err := t.conn.WriteToUDPAddrPort(msg[:], dst)
	return err
}

// Listen implements Listener
func (t *UDPTransport) Listen(ctx context.Context, post PostFunc) error {
	// it's done in non-blocking way, so if context is cancelled we exit correctly
	doneChan := make(chan error, 1)
	go func() {
		buf := make([]byte, maxDatagramSize)
		for {
			n, addr, err := t.conn.ReadFromUDPAddrPort(buf)
			if err != nil {
				doneChan <- err
				return
			}
			log.Debugf("got datagram, n = %d, addr = %v", n, addr)
			payload := make([]byte, n)
			copy(payload, buf[:n])
			post(DatagramReceived(payload, addr))
		}
	}()
	select {
	case <-ctx.Done():
		log.Debug("cancelled datagram receiver")
		return ctx.Err()
	case err := <-doneChan:
		return err
	}
}

// Close closes the socket
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
