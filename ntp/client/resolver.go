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
	"sync"
	"time"

	"github.com/miekg/dns"
	log "github.com/sirupsen/logrus"
)

const defaultDNSPort = "53"

// nameserverAddr adds default DNS port if it's missing
func nameserverAddr(ns string) string {
	if _, _, err := net.SplitHostPort(ns); err == nil {
		return ns
	}
	return net.JoinHostPort(ns, defaultDNSPort)
}

// pickAddr prefers IPv4, same as the request socket does
func pickAddr(host string, ips []netip.Addr) (netip.Addr, error) {
	if len(ips) == 0 {
		return netip.Addr{}, fmt.Errorf("no ips found for %s", host)
	}
	for _, ip := range ips {
		if ip.Unmap().Is4() {
			return ip.Unmap(), nil
		}
	}
	return ips[0], nil
}

// NewResolver returns DNSResolver if nameserver is configured, SystemResolver otherwise
func NewResolver(cfg *Config, post PostFunc) Resolver {
	if cfg.Nameserver != "" {
		return NewDNSResolver(nameserverAddr(cfg.Nameserver), cfg.Timeout, post)
	}
	return NewSystemResolver(cfg.Timeout, post)
}

// SystemResolver resolves names with the OS resolver.
// Only literal IPs are answered synchronously.
type SystemResolver struct {
	post     PostFunc
	timeout  time.Duration
	resolver *net.Resolver
}

// NewSystemResolver creates SystemResolver, every lookup is bounded by timeout
func NewSystemResolver(timeout time.Duration, post PostFunc) *SystemResolver {
	return &SystemResolver{
		post:     post,
		timeout:  timeout,
		resolver: net.DefaultResolver,
	}
}

// Resolve implements Resolver
func (r *SystemResolver) Resolve(host string) (netip.Addr, bool, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		return ip.Unmap(), true, nil
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		ips, err := r.resolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			r.post(ResolutionFailed(err))
			return
		}
		addr, err := pickAddr(host, ips)
		if err != nil {
			r.post(ResolutionFailed(err))
			return
		}
		r.post(Resolved(addr))
	}()
	return netip.Addr{}, false, nil
}

type cacheEntry struct {
	addr    netip.Addr
	expires time.Time
}

// DNSResolver queries A records from a specific nameserver.
// Answers are cached for their TTL, cached answers are returned synchronously.
type DNSResolver struct {
	post       PostFunc
	timeout    time.Duration
	nameserver string
	client     *dns.Client
	clock      Clock

	mux   sync.Mutex
	cache map[string]cacheEntry
}

// NewDNSResolver creates DNSResolver talking to nameserver (host:port)
func NewDNSResolver(nameserver string, timeout time.Duration, post PostFunc) *DNSResolver {
	return &DNSResolver{
		post:       post,
		timeout:    timeout,
		nameserver: nameserver,
		client:     &dns.Client{Net: "udp", Timeout: timeout},
		clock:      realClock{},
		cache:      map[string]cacheEntry{},
	}
}

// Resolve implements Resolver
func (r *DNSResolver) Resolve(host string) (netip.Addr, bool, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		return ip.Unmap(), true, nil
	}
	if addr, found := r.cached(host); found {
		return addr, true, nil
	}
	go func() {
		addr, ttl, err := r.lookup(host)
		if err != nil {
			r.post(ResolutionFailed(err))
			return
		}
		r.store(host, addr, ttl)
		r.post(Resolved(addr))
	}()
	return netip.Addr{}, false, nil
}

func (r *DNSResolver) cached(host string) (netip.Addr, bool) {
	r.mux.Lock()
	defer r.mux.Unlock()
	e, found := r.cache[host]
	if !found {
		return netip.Addr{}, false
	}
	if !r.clock.Now().Before(e.expires) {
		delete(r.cache, host)
		return netip.Addr{}, false
	}
	return e.addr, true
}

func (r *DNSResolver) store(host string, addr netip.Addr, ttl time.Duration) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.cache[host] = cacheEntry{addr: addr, expires: r.clock.Now().Add(ttl)}
}

func (r *DNSResolver) lookup(host string) (netip.Addr, time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)
	m.RecursionDesired = true

	in, rtt, err := r.client.ExchangeContext(ctx, m, r.nameserver)
	if err != nil {
		return netip.Addr{}, 0, fmt.Errorf("querying %s: %w", r.nameserver, err)
	}
	log.Debugf("nameserver %s answered in %v", r.nameserver, rtt)
	if in.Rcode != dns.RcodeSuccess {
		return netip.Addr{}, 0, fmt.Errorf("nameserver %s answered %s for %s", r.nameserver, dns.RcodeToString[in.Rcode], host)
	}
	for _, rr := range in.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		if addr, ok := netip.AddrFromSlice(a.A); ok {
			return addr.Unmap(), time.Duration(a.Hdr.Ttl) * time.Second, nil
		}
	}
	return netip.Addr{}, 0, fmt.Errorf("no A records for %s", host)
}
