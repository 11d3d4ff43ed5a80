/*
 * Copyright 2025 OpenPrinting.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package discovery

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
	"github.com/zdohnal/cups-browsed/pkg/spooler"
)

const defaultPollPort = 631

// PollSource periodically polls remote spoolers for their queues and emits
// legacy appearance events for each one.
type PollSource struct {
	servers  []string
	interval time.Duration
	client   spooler.EndpointClient
	clock    Clock
	events   chan *models.DiscoveryEvent
	done     chan struct{}
	wg       sync.WaitGroup
	logger   logger.Logger
	stopOnce sync.Once
}

// NewPollSource builds a polling source. Servers are "host" or "host:port".
func NewPollSource(servers []string, interval time.Duration, client spooler.EndpointClient, clock Clock, log logger.Logger) *PollSource {
	if clock == nil {
		clock = realClock{}
	}

	return &PollSource{
		servers:  servers,
		interval: interval,
		client:   client,
		clock:    clock,
		events:   make(chan *models.DiscoveryEvent, eventBuffer),
		done:     make(chan struct{}),
		logger:   log,
	}
}

func (s *PollSource) Start(ctx context.Context) error {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()

	return nil
}

func (s *PollSource) Stop(_ context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	s.wg.Wait()
	close(s.events)

	return nil
}

func (s *PollSource) Events() <-chan *models.DiscoveryEvent {
	return s.events
}

func (s *PollSource) run(ctx context.Context) {
	// First poll immediately, then on the interval.
	s.pollAll(ctx)

	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.Chan():
			s.pollAll(ctx)
		}
	}
}

func (s *PollSource) pollAll(ctx context.Context) {
	for _, server := range s.servers {
		host, port := splitServer(server)

		queues, err := s.client.ListPrinters(ctx, host, port)
		if err != nil {
			// Existing entries run out their browse timeout on their own.
			s.logger.Warn().Err(err).Str("server", server).Msg("Poll of remote spooler failed")
			continue
		}

		for i := range queues {
			event := s.eventFromQueue(host, port, &queues[i])

			select {
			case s.events <- event:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *PollSource) eventFromQueue(host string, port int, queue *spooler.RemoteQueue) *models.DiscoveryEvent {
	resource := queue.Resource
	if resource == "" {
		resource = "/printers/" + queue.Name
	}

	event := &models.DiscoveryEvent{
		Type: models.EventAppeared,
		Identity: models.Identity{
			Host:     host,
			Port:     port,
			Resource: resource,
			Legacy:   true,
		},
		Host:      host,
		Port:      port,
		Resource:  resource,
		MakeModel: queue.MakeModel,
		Location:  queue.Location,
		Info:      queue.Info,
		Legacy:    true,
	}

	if ip := net.ParseIP(host); ip != nil {
		event.SourceAddr = ip
		event.IP = host
	}

	return event
}

func splitServer(server string) (string, int) {
	host, portStr, err := net.SplitHostPort(server)
	if err != nil {
		return strings.TrimSpace(server), defaultPollPort
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		port = defaultPollPort
	}

	return host, port
}
