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

// Package reconciler is the timer-driven control loop that walks the
// registry and creates, modifies and removes local queues until they match
// desired state. Work per tick is bounded; creation RPCs run in workers and
// removal RPCs run on the loop itself, never under the registry lock.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/zdohnal/cups-browsed/pkg/descriptor"
	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
	"github.com/zdohnal/cups-browsed/pkg/registry"
	"github.com/zdohnal/cups-browsed/pkg/spooler"
	"github.com/zdohnal/cups-browsed/pkg/state"
)

// Config tunes the reconciler.
type Config struct {
	// MaxPerTick bounds worker handoffs per tick.
	MaxPerTick int

	// PauseBetweenTicks defers the overflow when MaxPerTick is hit.
	PauseBetweenTicks time.Duration

	// RetryInterval delays a retried entry.
	RetryInterval time.Duration

	// MaxRetries is the consecutive-timeout ceiling before an entry is
	// abandoned for good.
	MaxRetries int

	// LegacyTimeout is how long a poll-discovered entry stays confirmed
	// without being re-seen.
	LegacyTimeout time.Duration

	// ShareQueues shares created queues by default.
	ShareQueues bool

	// DisableReason is the daemon's own state message on queues it pauses.
	DisableReason string
}

// backendFailedMessage is the spooler's generic backend-error state message;
// queues paused with it are re-enabled after a successful update.
const backendFailedMessage = "Printer stopped due to backend errors"

// Reconciler drives the registry toward the spooler.
type Reconciler struct {
	registry  *registry.Registry
	client    spooler.Client
	endpoint  spooler.EndpointClient
	generator descriptor.Generator
	store     *state.Store
	notifier  NotificationState
	clock     Clock
	config    Config
	logger    logger.Logger

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	stopOnce sync.Once

	// workerSync runs creation workers inline, for tests.
	workerSync bool
}

// New builds a reconciler. A nil clock uses real time; a nil notifier means
// no notification channel exists.
func New(
	reg *registry.Registry,
	client spooler.Client,
	endpoint spooler.EndpointClient,
	generator descriptor.Generator,
	store *state.Store,
	notifier NotificationState,
	clock Clock,
	config Config,
	log logger.Logger,
) *Reconciler {
	if clock == nil {
		clock = realClock{}
	}

	if notifier == nil {
		notifier = neverSubscribed{}
	}

	if config.MaxPerTick <= 0 {
		config.MaxPerTick = 5
	}

	if config.RetryInterval <= 0 {
		config.RetryInterval = 30 * time.Second
	}

	if config.PauseBetweenTicks <= 0 {
		config.PauseBetweenTicks = time.Second
	}

	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}

	return &Reconciler{
		registry:  reg,
		client:    client,
		endpoint:  endpoint,
		generator: generator,
		store:     store,
		notifier:  notifier,
		clock:     clock,
		config:    config,
		logger:    log,
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Kick wakes the loop early, after discovery or notification activity armed
// an entry.
func (r *Reconciler) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run blocks until the context ends or Stop is called. The timer always
// waits for the earliest pending timeout and stops while no entry is armed.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		var wait <-chan time.Time

		if next, ok := r.registry.NextTimeout(); ok {
			delay := next.Sub(r.clock.Now())
			if delay < 0 {
				delay = 0
			}

			wait = r.clock.After(delay)
		}

		select {
		case <-ctx.Done():
			r.wg.Wait()
			return ctx.Err()
		case <-r.done:
			r.wg.Wait()
			return nil
		case <-r.kick:
			// Re-arm the timer against the updated earliest timeout.
		case <-wait:
			r.tick(ctx)
		}
	}
}

// Stop ends the loop and waits for in-flight workers.
func (r *Reconciler) Stop(_ context.Context) error {
	r.stopOnce.Do(func() { close(r.done) })
	r.wg.Wait()

	return nil
}

// tick walks the registry in insertion order and dispatches every entry
// whose timeout expired.
func (r *Reconciler) tick(ctx context.Context) {
	now := r.clock.Now()

	r.client.ClearTimedOut()

	handled := make(map[string]struct{})
	dispatched := 0
	limitHit := false

	for _, entry := range r.registry.Snapshot() {
		if entry.TimeoutAt.Equal(models.TimeoutNever) || entry.TimeoutAt.After(now) {
			continue
		}

		if entry.Called {
			continue
		}

		key := entry.Identity.Key()

		switch entry.Status {
		case models.StatusUnconfirmed:
			// The confirm window expired without a fresh appearance.
			r.removeEntry(ctx, entry)

		case models.StatusDisappeared, models.StatusToBeReleased:
			r.removeEntry(ctx, entry)

		case models.StatusToBeCreated:
			if dispatched >= r.config.MaxPerTick {
				limitHit = true
				continue
			}

			dispatched++

			r.registry.Update(key, func(p *models.RemotePrinter) {
				p.Called = true
			})

			if r.workerSync {
				r.createOrUpdate(ctx, key)
			} else {
				r.wg.Add(1)

				go func(key string) {
					defer r.wg.Done()
					r.createOrUpdate(ctx, key)
				}(key)
			}

		case models.StatusConfirmed:
			if entry.Legacy {
				// The poll stopped reporting it before the browse timeout.
				r.removeEntry(ctx, entry)
				continue
			}

			r.registry.Update(key, func(p *models.RemotePrinter) {
				p.TimeoutAt = models.TimeoutNever
			})
		}

		handled[key] = struct{}{}
	}

	if limitHit {
		r.registry.DeferOthers(handled, r.config.PauseBetweenTicks)
	}
}

// reschedule re-arms the entry for a later pass.
func (r *Reconciler) reschedule(key string, status models.PrinterStatus) {
	next := r.clock.Now().Add(r.config.RetryInterval)

	r.registry.Update(key, func(p *models.RemotePrinter) {
		p.Status = status
		p.TimeoutAt = next
	})

	r.Kick()
}

// noteRPCFailure translates a worker RPC failure into retry bookkeeping:
// timeouts count against the retry ceiling and abandon the entry past it.
func (r *Reconciler) noteRPCFailure(key string, err error) {
	var abandoned bool

	r.registry.Update(key, func(p *models.RemotePrinter) {
		p.RetryCount++

		if p.RetryCount > r.config.MaxRetries {
			abandoned = true
		}
	})

	if abandoned {
		entry, _ := r.registry.Lookup(key)

		r.logger.Error().
			Err(err).
			Str("key", key).
			Int("retries", r.config.MaxRetries).
			Msg("Giving up on queue after repeated spooler timeouts")

		if entry != nil {
			r.registry.RemoveLocal(entry.QueueName)
		}

		r.registry.Remove(key)

		return
	}

	r.logger.Warn().Err(err).Str("key", key).Msg("Spooler RPC failed, rescheduling")
	r.reschedule(key, models.StatusToBeCreated)
}
