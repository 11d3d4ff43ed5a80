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
	"fmt"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
)

const (
	serviceIPP  = "_ipp._tcp"
	serviceIPPS = "_ipps._tcp"

	mdnsDomain = "local."

	// The resolver does not report the receiving interface; every mDNS
	// instance is attributed to this pseudo-interface.
	mdnsInterface = "mdns"

	eventBuffer = 64
)

// MDNSSource browses DNS-SD printer services.
type MDNSSource struct {
	domain  string
	events  chan *models.DiscoveryEvent
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logger.Logger
	browse  browseFunc
	startMu sync.Mutex
}

// browseFunc matches zeroconf browsing, injectable for tests.
type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// NewMDNSSource builds the browser. Domain defaults to "local.".
func NewMDNSSource(domain string, log logger.Logger) *MDNSSource {
	if domain == "" {
		domain = mdnsDomain
	}

	return &MDNSSource{
		domain: domain,
		events: make(chan *models.DiscoveryEvent, eventBuffer),
		logger: log,
	}
}

// Start launches one browse goroutine per printer service type.
func (s *MDNSSource) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	browse := s.browse

	if browse == nil {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			cancel()
			return fmt.Errorf("create mdns resolver: %w", err)
		}

		browse = resolver.Browse
	}

	for _, service := range []string{serviceIPP, serviceIPPS} {
		entries := make(chan *zeroconf.ServiceEntry)

		s.wg.Add(1)

		go func(service string, entries chan *zeroconf.ServiceEntry) {
			defer s.wg.Done()
			s.consumeEntries(ctx, service, entries)
		}(service, entries)

		s.wg.Add(1)

		go func(service string, entries chan *zeroconf.ServiceEntry) {
			defer s.wg.Done()

			if err := browse(ctx, service, s.domain, entries); err != nil {
				s.logger.Error().Err(err).Str("service", service).Msg("mDNS browse failed")
			}
		}(service, entries)
	}

	return nil
}

// Stop cancels browsing and closes the event channel once the goroutines
// drain.
func (s *MDNSSource) Stop(_ context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	s.wg.Wait()
	close(s.events)

	return nil
}

func (s *MDNSSource) Events() <-chan *models.DiscoveryEvent {
	return s.events
}

func (s *MDNSSource) consumeEntries(ctx context.Context, service string, entries <-chan *zeroconf.ServiceEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}

			if entry == nil || entry.Instance == "" {
				continue
			}

			event := eventFromEntry(service, entry)

			select {
			case s.events <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

// eventFromEntry maps one service entry onto a discovery event. A zero TTL
// is the service's goodbye.
func eventFromEntry(service string, entry *zeroconf.ServiceEntry) *models.DiscoveryEvent {
	txt := parseTXT(entry.Text)

	family := models.FamilyIPv6
	ip := ""

	if len(entry.AddrIPv4) > 0 {
		family = models.FamilyIPv4
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	serviceType := service
	if txt["TLS"] != "" && service == serviceIPP {
		// The endpoint offers TLS even on the insecure service type; treat
		// it as the secure variant for discovery ordering.
		serviceType = serviceIPPS
	}

	event := &models.DiscoveryEvent{
		Type: models.EventAppeared,
		Identity: models.Identity{
			ServiceName: entry.Instance,
			Domain:      strings.TrimSuffix(entry.Domain, "."),
		},
		Interface:   mdnsInterface,
		Family:      family,
		ServiceType: serviceType,
		Host:        strings.TrimSuffix(entry.HostName, "."),
		IP:          ip,
		Port:        entry.Port,
		Resource:    "/" + strings.TrimPrefix(txt["rp"], "/"),
		MakeModel:   makeModelFromTXT(txt),
		PDLs:        splitPDL(txt["pdl"]),
		Color:       strings.EqualFold(txt["Color"], "T"),
		Duplex:      strings.EqualFold(txt["Duplex"], "T"),
		Location:    txt["note"],
		UUID:        txt["UUID"],
		TXT:         txt,
	}

	if len(entry.AddrIPv4) > 0 {
		event.SourceAddr = entry.AddrIPv4[0]
	} else if len(entry.AddrIPv6) > 0 {
		event.SourceAddr = entry.AddrIPv6[0]
	}

	if entry.TTL == 0 {
		event.Type = models.EventRemoved
	}

	return event
}

func parseTXT(records []string) map[string]string {
	txt := make(map[string]string, len(records))

	for _, record := range records {
		if key, value, found := strings.Cut(record, "="); found && key != "" {
			txt[key] = value
		}
	}

	return txt
}

// makeModelFromTXT prefers ty, falling back to the parenthesised product.
func makeModelFromTXT(txt map[string]string) string {
	if ty := txt["ty"]; ty != "" {
		return ty
	}

	product := txt["product"]

	return strings.TrimSuffix(strings.TrimPrefix(product, "("), ")")
}

func splitPDL(pdl string) []string {
	if pdl == "" {
		return nil
	}

	parts := strings.Split(pdl, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
