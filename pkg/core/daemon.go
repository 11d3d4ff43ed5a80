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

// Package core wires the daemon together: discovery intake, policy checks,
// the registry, the reconciler, the notifier and the dispatcher.
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zdohnal/cups-browsed/pkg/descriptor"
	"github.com/zdohnal/cups-browsed/pkg/discovery"
	"github.com/zdohnal/cups-browsed/pkg/dispatch"
	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
	"github.com/zdohnal/cups-browsed/pkg/naming"
	"github.com/zdohnal/cups-browsed/pkg/notify"
	"github.com/zdohnal/cups-browsed/pkg/policy"
	"github.com/zdohnal/cups-browsed/pkg/reconciler"
	"github.com/zdohnal/cups-browsed/pkg/registry"
	"github.com/zdohnal/cups-browsed/pkg/spooler"
	"github.com/zdohnal/cups-browsed/pkg/state"
)

// Daemon is the cups-browsed service.
type Daemon struct {
	config *Config
	logger logger.Logger

	// instanceID distinguishes daemon runs in shared logs.
	instanceID string

	registry   *registry.Registry
	resolver   *naming.Resolver
	access     *policy.AccessList
	filters    policy.FilterChain
	shutdown   *policy.AutoShutdown
	client     spooler.Client
	endpoint   spooler.EndpointClient
	store      *state.Store
	reconciler *reconciler.Reconciler
	dispatcher *dispatch.Dispatcher
	notifier   *notify.Notifier
	sources    []discovery.Source

	events chan *models.DiscoveryEvent

	shutdownRequests chan struct{}
	shutdownTimer    *time.Timer
	shutdownMu       sync.Mutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New assembles the daemon from its configuration.
func New(config *Config, log logger.Logger) (*Daemon, error) {
	store, err := state.NewStore(config.CacheDir)
	if err != nil {
		return nil, err
	}

	rules, err := parseAccessRules(config)
	if err != nil {
		return nil, err
	}

	filters, err := parseFilters(config)
	if err != nil {
		return nil, err
	}

	reg := registry.NewRegistry(registry.Config{
		ConfirmWindow: config.ConfirmWindow.Duration(),
		KeepQueues:    config.KeepQueues,
	}, log)

	client := spooler.NewClient(config.SpoolerHost, config.SpoolerPort, config.LocalTimeout.Duration(), log)
	endpoint := spooler.NewEndpointClient(config.RemoteTimeout.Duration(), log)

	d := &Daemon{
		config:     config,
		logger:     log,
		instanceID: uuid.New().String(),
		registry:   reg,
		resolver: naming.NewResolver(
			naming.Policy(config.RemoteQueueNaming),
			naming.Policy(config.PrinterQueueNaming),
			config.manualClusters(),
			config.AutoClustering,
		),
		access:           policy.NewAccessList(config.browseOrder(), rules),
		filters:          filters,
		shutdown:         policy.NewAutoShutdown(config.AutoShutdown, config.shutdownVariant()),
		client:           client,
		endpoint:         endpoint,
		store:            store,
		events:           make(chan *models.DiscoveryEvent, 128),
		shutdownRequests: make(chan struct{}, 1),
		done:             make(chan struct{}),
	}

	d.dispatcher = dispatch.New(reg, client, endpoint, config.loadBalancing(), log)

	d.notifier = notify.New(reg, client, d.dispatcher, store, kickerFunc(func() {
		if d.reconciler != nil {
			d.reconciler.Kick()
		}
	}), notify.Config{PollInterval: config.NotifyPollInterval.Duration()}, log)

	d.notifier.SetActivityCallback(d.updateShutdownTimer)

	d.reconciler = reconciler.New(
		reg,
		client,
		endpoint,
		descriptor.NewPPDGenerator(config.DescriptorDir),
		store,
		d.notifier,
		nil,
		reconciler.Config{
			MaxPerTick:        config.MaxQueuesPerTick,
			PauseBetweenTicks: config.PauseBetweenTicks.Duration(),
			RetryInterval:     config.RetryInterval.Duration(),
			MaxRetries:        config.MaxRetries,
			LegacyTimeout:     config.BrowseTimeout.Duration(),
			ShareQueues:       config.ShareQueues,
			DisableReason:     "cups-browsed: printer currently unreachable",
		},
		log,
	)

	if config.BrowseDNSSD {
		d.sources = append(d.sources, discovery.NewMDNSSource(config.BrowseDomain, log))
	}

	if len(config.BrowsePoll) > 0 {
		d.sources = append(d.sources, discovery.NewPollSource(
			config.BrowsePoll, config.BrowseInterval.Duration(), endpoint, nil, log))
	}

	return d, nil
}

// kickerFunc adapts a closure to the notify.Kicker interface.
type kickerFunc func()

func (f kickerFunc) Kick() { f() }

// ShutdownRequests signals when the auto-shutdown policy fires.
func (d *Daemon) ShutdownRequests() <-chan struct{} {
	return d.shutdownRequests
}

// SetAutoShutdown flips the policy at runtime (USR1/USR2).
func (d *Daemon) SetAutoShutdown(enabled bool) {
	d.shutdown.SetEnabled(enabled)
	d.updateShutdownTimer()
}

// Start connects to the spooler, inherits previous-session queues, and
// launches discovery, notification intake and the reconciler.
func (d *Daemon) Start(ctx context.Context) error {
	d.logger.Info().Str("instance", d.instanceID).Msg("cups-browsed starting")

	if err := d.client.Connect(ctx); err != nil {
		return fmt.Errorf("spooler unreachable: %w", err)
	}

	if err := d.inheritLocalQueues(ctx); err != nil {
		return err
	}

	if err := d.notifier.Start(ctx); err != nil {
		return err
	}

	for _, source := range d.sources {
		if err := source.Start(ctx); err != nil {
			return fmt.Errorf("start discovery source: %w", err)
		}

		d.wg.Add(1)

		go func(source discovery.Source) {
			defer d.wg.Done()
			d.forwardEvents(ctx, source)
		}(source)
	}

	d.wg.Add(1)

	go func() {
		defer d.wg.Done()
		d.eventLoop(ctx)
	}()

	d.updateShutdownTimer()

	return d.reconciler.Run(ctx)
}

// Stop retires every entry, drains the reconciler and shuts the parts down.
func (d *Daemon) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.done) })

	for _, source := range d.sources {
		if err := source.Stop(ctx); err != nil {
			d.logger.Warn().Err(err).Msg("Discovery source stop failed")
		}
	}

	d.cancelShutdownTimer()

	// Retire every queue and let the reconciler act on it.
	d.registry.MarkAllForShutdown()
	d.reconciler.Kick()

	drainDeadline := time.Now().Add(5 * time.Second)

	for d.registry.Count() > 0 && time.Now().Before(drainDeadline) {
		d.reconciler.Kick()
		time.Sleep(100 * time.Millisecond)
	}

	if err := d.reconciler.Stop(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("Reconciler stop failed")
	}

	if err := d.notifier.Stop(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("Notifier stop failed")
	}

	d.wg.Wait()

	return nil
}

// inheritLocalQueues seeds the local cache and re-adopts queues this daemon
// created in a previous session.
func (d *Daemon) inheritLocalQueues(ctx context.Context) error {
	printers, err := d.client.ListLocalPrinters(ctx)
	if err != nil {
		return fmt.Errorf("list local queues: %w", err)
	}

	d.registry.SetLocalPrinters(printers)

	for _, printer := range printers {
		if !printer.Controlled {
			continue
		}

		d.registry.AddUnconfirmed(printer.Name, printer.DeviceURI)

		d.logger.Info().
			Str("queue", printer.Name).
			Msg("Inherited queue from previous session, awaiting confirmation")
	}

	return nil
}

func (d *Daemon) forwardEvents(ctx context.Context, source discovery.Source) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case event, ok := <-source.Events():
			if !ok {
				return
			}

			select {
			case d.events <- event:
			case <-d.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// eventLoop is the single consumer of discovery events; per-identity
// ordering follows from the single-writer path through here.
func (d *Daemon) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case event := <-d.events:
			d.handleEvent(event)
		}
	}
}

func (d *Daemon) handleEvent(event *models.DiscoveryEvent) {
	// Access control, then browse filters; rejected events vanish silently.
	if event.SourceAddr != nil && !d.access.Allowed(event.SourceAddr) {
		return
	}

	if !d.filters.Accepts(event) {
		return
	}

	switch event.Type {
	case models.EventRemoved:
		d.registry.ObserveDisappearance(event)
		d.reconciler.Kick()

	case models.EventAppeared, models.EventResolved:
		d.handleAppearance(event)
	}

	d.updateShutdownTimer()
}

func (d *Daemon) handleAppearance(event *models.DiscoveryEvent) {
	if _, known := d.registry.ObserveAppearance(event); known {
		d.refreshLegacyTimeout(event)
		d.reconciler.Kick()

		return
	}

	result, err := d.resolver.Resolve(&naming.Input{
		ServiceName:   event.Identity.ServiceName,
		MakeModel:     event.MakeModel,
		Resource:      event.Resource,
		Host:          event.Host,
		RemoteSpooler: event.RemoteSpooler(),
	}, d.registry)
	if err != nil {
		d.logger.Warn().Err(err).Str("host", event.Host).Msg("Printer refused, no acceptable queue name")
		return
	}

	d.registry.AddDiscovered(event, result.QueueName)
	d.reconciler.Kick()
}

// refreshLegacyTimeout pushes the browse timeout of a confirmed polled
// entry forward on every poll cycle that still reports it.
func (d *Daemon) refreshLegacyTimeout(event *models.DiscoveryEvent) {
	if !event.Legacy {
		return
	}

	timeout := time.Now().Add(d.config.BrowseTimeout.Duration())

	d.registry.Update(event.Identity.Key(), func(p *models.RemotePrinter) {
		if p.Legacy && p.Status == models.StatusConfirmed {
			p.TimeoutAt = timeout
		}
	})
}

// updateShutdownTimer arms or cancels the auto-shutdown timer based on the
// current policy and load.
func (d *Daemon) updateShutdownTimer() {
	d.shutdownMu.Lock()
	defer d.shutdownMu.Unlock()

	arm := d.shutdown.ShouldArm(d.registry.Count(), d.notifier.ActiveJobs())

	if !arm {
		if d.shutdownTimer != nil {
			d.shutdownTimer.Stop()
			d.shutdownTimer = nil
		}

		return
	}

	if d.shutdownTimer != nil {
		return
	}

	d.logger.Info().
		Dur("timeout", d.config.AutoShutdownTimeout.Duration()).
		Msg("Idle, auto-shutdown timer armed")

	d.shutdownTimer = time.AfterFunc(d.config.AutoShutdownTimeout.Duration(), func() {
		// Re-check: activity may have raced the timer.
		if !d.shutdown.ShouldArm(d.registry.Count(), d.notifier.ActiveJobs()) {
			return
		}

		select {
		case d.shutdownRequests <- struct{}{}:
		default:
		}
	})
}

func (d *Daemon) cancelShutdownTimer() {
	d.shutdownMu.Lock()
	defer d.shutdownMu.Unlock()

	if d.shutdownTimer != nil {
		d.shutdownTimer.Stop()
		d.shutdownTimer = nil
	}
}

func parseAccessRules(config *Config) ([]policy.AllowRule, error) {
	var rules []policy.AllowRule

	for _, spec := range config.BrowseAllow {
		rule, err := policy.ParseAllowRule(policy.SenseAllow, spec)
		if err != nil {
			return nil, fmt.Errorf("browse_allow: %w", err)
		}

		rules = append(rules, rule)
	}

	for _, spec := range config.BrowseDeny {
		rule, err := policy.ParseAllowRule(policy.SenseDeny, spec)
		if err != nil {
			return nil, fmt.Errorf("browse_deny: %w", err)
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

func parseFilters(config *Config) (policy.FilterChain, error) {
	var chain policy.FilterChain

	for _, spec := range config.BrowseFilters {
		filter, err := policy.NewBrowseFilter(policy.FilterSense(spec.Sense), spec.Field, spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("browse_filter: %w", err)
		}

		chain = append(chain, filter)
	}

	return chain, nil
}
