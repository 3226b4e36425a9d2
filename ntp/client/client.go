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
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// queue is drained by a single consumer, a few slots are enough
const eventQueueSize = 16

// Client drives Session: it feeds scheduler ticks and adapter events into it from one goroutine
type Client struct {
	cfg      *Config
	queue    *EventQueue
	session  *Session
	listener Listener
	closer   io.Closer
	clock    Clock
}

// New wires UDP transport, resolver and alarm timer into a ready to run Client
func New(cfg *Config, sink Sink, stats *Stats) (*Client, error) {
	queue := NewEventQueue(eventQueueSize)
	transport, err := NewUDPTransport(cfg.ListenAddress, cfg.DSCP)
	if err != nil {
		return nil, err
	}
	resolver := NewResolver(cfg, queue.Post)
	timer := NewAlarmTimer(queue.Post)
	clock := realClock{}
	session := NewSession(cfg, resolver, transport, timer, sink, stats, clock)
	c := newClient(cfg, queue, session, transport, clock)
	c.closer = transport
	return c, nil
}

func newClient(cfg *Config, queue *EventQueue, session *Session, listener Listener, clock Clock) *Client {
	return &Client{
		cfg:      cfg,
		queue:    queue,
		session:  session,
		listener: listener,
		clock:    clock,
	}
}

// Run polls forever, until ctx is cancelled
func (c *Client) Run(ctx context.Context) error {
	defer c.queue.Close()
	if c.closer != nil {
		defer c.closer.Close()
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return c.listener.Listen(ctx, c.queue.Post)
	})
	eg.Go(func() error {
		return c.dispatch(ctx)
	})
	return eg.Wait()
}

func (c *Client) dispatch(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	c.session.Handle(PollDue(c.clock.Now()))
	for {
		select {
		case <-ctx.Done():
			log.Debug("cancelled main loop")
			return ctx.Err()
		case <-ticker.C:
			c.session.Handle(PollDue(c.clock.Now()))
		case ev := <-c.queue.Events():
			c.session.Handle(ev)
		}
	}
}

// RunOnce runs a single cycle with real network and returns its result
func RunOnce(ctx context.Context, cfg *Config, stats *Stats) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		res  Result
		done bool
	)
	c, err := New(cfg, SinkFunc(func(r Result) {
		res = r
		done = true
		cancel()
	}), stats)
	if err != nil {
		return Result{}, err
	}
	err = c.Run(ctx)
	if done {
		return res, nil
	}
	return Result{}, fmt.Errorf("poll did not complete: %w", err)
}
