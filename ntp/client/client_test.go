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
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/facebook/ntpoll/ntp/protocol"
)

// startNTPServer runs server on loopback which answers every request with reply(request)
func startNTPServer(t *testing.T, reply func(req []byte) []byte) *net.UDPConn {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	go func() {
		buf := make([]byte, maxDatagramSize)
		for {
			n, addr, err := conn.ReadFromUDPAddrPort(buf)
			if err != nil {
				return
			}
			resp := reply(buf[:n])
			if resp == nil {
				continue
			}
			_, _ = conn.WriteToUDPAddrPort(resp, addr)
		}
	}()
	return conn
}

func loopbackConfig(server *net.UDPConn) *Config {
	cfg := DefaultConfig()
	cfg.Server = "127.0.0.1"
	cfg.ListenAddress = "127.0.0.1"
	cfg.Port = server.LocalAddr().(*net.UDPAddr).Port
	return cfg
}

func TestRunOnceSuccess(t *testing.T) {
	server := startNTPServer(t, func(req []byte) []byte {
		if len(req) != protocol.PacketSizeBytes || req[0] != protocol.RequestSettings {
			return nil
		}
		return response(protocol.ModeServer, 1, testNTPSeconds)
	})
	stats := NewStats()

	res, err := RunOnce(context.Background(), loopbackConfig(server), stats)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.Equal(t, testUnixSeconds, res.Unix)
	require.Equal(t, "127.0.0.1", res.Addr.String())
	require.Equal(t, uint64(1), res.Cycle)
	require.Equal(t, float64(1), testutil.ToFloat64(stats.results.WithLabelValues(resultSuccess)))
}

func TestRunOnceRequestLost(t *testing.T) {
	server := startNTPServer(t, func([]byte) []byte { return nil })
	cfg := loopbackConfig(server)
	cfg.Timeout = 100 * time.Millisecond

	start := time.Now()
	res, err := RunOnce(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.ErrorIs(t, res.Err, ErrRequestLost)
	require.GreaterOrEqual(t, time.Since(start), cfg.Timeout)
}

func TestRunOnceInvalidResponse(t *testing.T) {
	server := startNTPServer(t, func([]byte) []byte {
		return response(protocol.ModeServer, 0, testNTPSeconds)
	})
	res, err := RunOnce(context.Background(), loopbackConfig(server), nil)
	require.NoError(t, err)
	require.ErrorIs(t, res.Err, ErrInvalidResponse)
}

func TestRunOnceCancelled(t *testing.T) {
	server := startNTPServer(t, func([]byte) []byte { return nil })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunOnce(ctx, loopbackConfig(server), nil)
	require.ErrorContains(t, err, "poll did not complete")
}

func TestClientRepolls(t *testing.T) {
	var (
		mux      sync.Mutex
		requests int
	)
	server := startNTPServer(t, func([]byte) []byte {
		mux.Lock()
		requests++
		mux.Unlock()
		return response(protocol.ModeServer, 1, testNTPSeconds)
	})
	cfg := loopbackConfig(server)
	cfg.Interval = 50 * time.Millisecond
	cfg.TickInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var results []Result
	c, err := New(cfg, SinkFunc(func(r Result) {
		results = append(results, r)
		if len(results) == 3 {
			cancel()
		}
	}), nil)
	require.NoError(t, err)

	err = c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 3)
	for i, r := range results {
		require.True(t, r.OK())
		require.Equal(t, uint64(i+1), r.Cycle)
		if i > 0 {
			// never polls before interval passes
			require.GreaterOrEqual(t, r.Completed.Sub(results[i-1].Completed), cfg.Interval)
		}
	}
	mux.Lock()
	defer mux.Unlock()
	require.Equal(t, 3, requests)
}

func TestEventQueueClosed(t *testing.T) {
	q := NewEventQueue(1)
	q.Post(PollDue(time.Now()))
	q.Close()
	q.Close()
	// queue is full and closed, must not block
	q.Post(PollDue(time.Now()))
	require.Len(t, q.Events(), 1)
}
