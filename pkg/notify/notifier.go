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

// Package notify consumes the spooler's notification stream: default
// printer tracking, deleted and externally modified queues, and job-state
// events that trigger dispatch.
package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
	"github.com/zdohnal/cups-browsed/pkg/naming"
	"github.com/zdohnal/cups-browsed/pkg/registry"
	"github.com/zdohnal/cups-browsed/pkg/spooler"
	"github.com/zdohnal/cups-browsed/pkg/state"
)

// subscribedEvents is what the daemon asks the spooler to report.
var subscribedEvents = []string{
	"printer-added",
	"printer-modified",
	"printer-deleted",
	"printer-state-changed",
	"job-created",
	"job-completed",
	"job-state-changed",
}

// JobDispatcher runs the per-job destination selection.
type JobDispatcher interface {
	DispatchJob(ctx context.Context, queue string, jobID int) error
}

// Kicker wakes the reconciler after the notifier armed an entry.
type Kicker interface {
	Kick()
}

// Config tunes the notifier.
type Config struct {
	// PollInterval is the Get-Notifications cadence.
	PollInterval time.Duration
}

// Notifier owns the spooler subscription and reacts to its events.
type Notifier struct {
	registry   *registry.Registry
	client     spooler.Client
	dispatcher JobDispatcher
	store      *state.Store
	kicker     Kicker
	config     Config
	logger     logger.Logger

	subscribed     atomic.Bool
	subscriptionID int
	subscribedAt   time.Time
	lastSequence   int

	lastDefault string

	jobsMu     sync.Mutex
	activeJobs map[int]string

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	// onActivity fires on any job activity, for the auto-shutdown policy.
	onActivity func()
}

// New builds a notifier.
func New(
	reg *registry.Registry,
	client spooler.Client,
	dispatcher JobDispatcher,
	store *state.Store,
	kicker Kicker,
	config Config,
	log logger.Logger,
) *Notifier {
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}

	return &Notifier{
		registry:   reg,
		client:     client,
		dispatcher: dispatcher,
		store:      store,
		kicker:     kicker,
		config:     config,
		logger:     log,
		activeJobs: make(map[int]string),
		done:       make(chan struct{}),
	}
}

// SetActivityCallback registers the auto-shutdown reset hook.
func (n *Notifier) SetActivityCallback(callback func()) {
	n.onActivity = callback
}

// Subscribed reports whether a notification channel exists. The reconciler
// keys the sentinel device URI and default-deletion protection off it.
func (n *Notifier) Subscribed() bool {
	return n.subscribed.Load()
}

// ActiveJobs counts jobs currently active on daemon-controlled queues.
func (n *Notifier) ActiveJobs() int {
	n.jobsMu.Lock()
	defer n.jobsMu.Unlock()

	return len(n.activeJobs)
}

// Start subscribes and launches the intake loop. A failed subscription is
// not fatal: the daemon runs without a notification channel and the loop
// keeps trying.
func (n *Notifier) Start(ctx context.Context) error {
	if n.lastDefault == "" {
		if def, err := n.client.GetDefault(ctx); err == nil {
			n.lastDefault = def
		}
	}

	n.trySubscribe(ctx)

	n.wg.Add(1)

	go func() {
		defer n.wg.Done()
		n.run(ctx)
	}()

	return nil
}

// Stop cancels the subscription and ends the loop.
func (n *Notifier) Stop(ctx context.Context) error {
	n.stopOnce.Do(func() { close(n.done) })
	n.wg.Wait()

	if n.subscribed.Load() {
		if err := n.client.CancelSubscription(ctx, n.subscriptionID); err != nil {
			n.logger.Warn().Err(err).Msg("Failed to cancel spooler subscription")
		}

		n.subscribed.Store(false)
	}

	return nil
}

func (n *Notifier) trySubscribe(ctx context.Context) {
	id, err := n.client.Subscribe(ctx, subscribedEvents)
	if err != nil {
		n.logger.Warn().Err(err).Msg("Spooler subscription unavailable")
		return
	}

	n.subscriptionID = id
	n.subscribedAt = time.Now()
	n.lastSequence = 0
	n.subscribed.Store(true)

	n.logger.Info().Int("subscription", id).Msg("Subscribed to spooler notifications")
}

func (n *Notifier) run(ctx context.Context) {
	ticker := time.NewTicker(n.config.PollInterval)
	defer ticker.Stop()

	renewAfter := time.Duration(float64(spooler.NotifyLeaseSeconds) * 0.6 * float64(time.Second))

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.done:
			return
		case <-ticker.C:
			if !n.subscribed.Load() {
				n.trySubscribe(ctx)
				continue
			}

			if time.Since(n.subscribedAt) > renewAfter {
				n.renew(ctx)
			}

			n.poll(ctx)
		}
	}
}

func (n *Notifier) renew(ctx context.Context) {
	if err := n.client.RenewSubscription(ctx, n.subscriptionID); err != nil {
		n.logger.Warn().Err(err).Msg("Subscription renewal failed, resubscribing")

		_ = n.client.CancelSubscription(ctx, n.subscriptionID)
		n.subscribed.Store(false)
		n.trySubscribe(ctx)

		return
	}

	n.subscribedAt = time.Now()
}

func (n *Notifier) poll(ctx context.Context) {
	notifications, err := n.client.GetNotifications(ctx, n.subscriptionID, n.lastSequence+1)
	if err != nil {
		if errors.Is(err, spooler.ErrNotFound) {
			// The spooler forgot the subscription (restart); start over.
			n.subscribed.Store(false)
		}

		return
	}

	for i := range notifications {
		notification := &notifications[i]

		if notification.SequenceNum > n.lastSequence {
			n.lastSequence = notification.SequenceNum
		}

		n.Handle(ctx, notification)
	}
}

// Handle reacts to one spooler notification.
func (n *Notifier) Handle(ctx context.Context, notification *models.Notification) {
	switch notification.Event {
	case models.NotifyPrinterStateChanged, models.NotifyPrinterAdded:
		n.trackDefault(ctx)

	case models.NotifyPrinterDeleted:
		n.handleDeleted(ctx, notification.Printer)

	case models.NotifyPrinterModified:
		n.handleModified(ctx, notification.Printer)

	case models.NotifyJobState, models.NotifyJobCreated, models.NotifyJobCompleted:
		n.handleJobState(ctx, notification)
	}
}

// trackDefault follows the system default printer and persists the
// bookkeeping needed to restore it later.
func (n *Notifier) trackDefault(ctx context.Context) {
	current, err := n.client.GetDefault(ctx)
	if err != nil || current == n.lastDefault {
		return
	}

	previous := n.lastDefault
	n.lastDefault = current

	previousOurs := n.controlled(previous)
	currentOurs := n.controlled(current)

	// One of our queues took the default: remember what it displaced.
	if currentOurs && !previousOurs && previous != "" {
		if err := n.store.SaveLocalDefault(previous); err != nil {
			n.logger.Warn().Err(err).Msg("Failed to record displaced default")
		}
	}

	// One of our queues lost the default to a foreign queue: remember ours
	// so it is restored when it reappears.
	if previousOurs && !currentOurs && previous != "" {
		if err := n.store.SaveRemoteDefault(previous); err != nil {
			n.logger.Warn().Err(err).Msg("Failed to record lost default")
		}
	}
}

// handleDeleted re-creates a daemon queue the spooler dropped, unless a
// fresh queue with that name already exists again.
func (n *Notifier) handleDeleted(ctx context.Context, queue string) {
	master, ok := n.registry.Master(queue)
	if !ok {
		return
	}

	if _, err := n.client.FetchQueueAttributes(ctx, queue); err == nil {
		// Already back; nothing to do.
		return
	}

	// Default bookkeeping survives the deletion.
	if n.lastDefault == queue {
		if err := n.store.SaveRemoteDefault(queue); err != nil {
			n.logger.Warn().Err(err).Msg("Failed to record default of deleted queue")
		}
	}

	n.registry.RemoveLocal(queue)

	n.registry.Update(master.Identity.Key(), func(p *models.RemotePrinter) {
		p.Status = models.StatusToBeCreated
		p.TimeoutAt = time.Now()
	})

	n.kicker.Kick()

	n.logger.Info().Str("queue", queue).Msg("Deleted queue scheduled for re-creation")
}

// handleModified probes an externally modified queue for overwrites.
func (n *Notifier) handleModified(ctx context.Context, queue string) {
	master, ok := n.registry.Master(queue)
	if !ok {
		return
	}

	attrs, err := n.client.FetchQueueAttributes(ctx, queue)
	if err != nil {
		return
	}

	switch DetectOverwrite(attrs, master.URI, master.Nickname) {
	case OverwriteNone:

	case OverwriteDescriptor:
		// Only the descriptor was replaced; reinstall ours.
		n.registry.Update(master.Identity.Key(), func(p *models.RemotePrinter) {
			p.Overwritten = true
			p.Status = models.StatusToBeCreated
			p.TimeoutAt = time.Now()
		})

		n.kicker.Kick()

	case OverwriteURI:
		n.handleURIOverwrite(queue, master)
	}
}

// handleURIOverwrite moves every record of the queue aside under a
// host-qualified name and leaves the user's queue alone.
func (n *Notifier) handleURIOverwrite(queue string, master *models.RemotePrinter) {
	newName := naming.QualifyWithHost(queue, master.Host)

	if !naming.ValidQueueName(newName) || newName == queue {
		n.logger.Warn().Str("queue", queue).Msg("Cannot rename overwritten queue, releasing")
		newName = ""
	}

	now := time.Now()

	for _, member := range n.registry.ClusterMembers(queue) {
		key := member.Identity.Key()

		if newName == "" {
			// No rename possible: release the records entirely.
			n.registry.Update(key, func(p *models.RemotePrinter) {
				p.Overwritten = true
				p.Status = models.StatusToBeReleased
				p.TimeoutAt = now
			})

			continue
		}

		n.registry.Update(key, func(p *models.RemotePrinter) {
			p.Overwritten = true
			p.QueueName = newName

			if p.IsMaster() {
				p.Status = models.StatusToBeCreated
				p.TimeoutAt = now
			}
		})
	}

	// The user now owns the original queue.
	if local, ok := n.registry.LookupLocal(queue); ok {
		local.Controlled = false
		n.registry.UpsertLocal(local)
	}

	n.kicker.Kick()

	n.logger.Info().
		Str("queue", queue).
		Str("renamed_to", newName).
		Msg("Queue overwritten by the user, moved aside")
}

// handleJobState updates the idle/active accounting and dispatches
// processing jobs on sentinel queues.
func (n *Notifier) handleJobState(ctx context.Context, notification *models.Notification) {
	queue := notification.Printer
	if queue == "" {
		queue = n.queueOfJob(notification.JobID)
	}

	n.jobsMu.Lock()

	if notification.JobState.Active() {
		n.activeJobs[notification.JobID] = queue
	} else {
		delete(n.activeJobs, notification.JobID)
	}

	n.jobsMu.Unlock()

	if n.onActivity != nil {
		n.onActivity()
	}

	if notification.JobState != models.JobProcessing || queue == "" {
		return
	}

	local, ok := n.registry.LookupLocal(queue)
	if !ok || !models.IsSentinelURI(local.DeviceURI) {
		return
	}

	if err := n.dispatcher.DispatchJob(ctx, queue, notification.JobID); err != nil {
		n.logger.Error().Err(err).Int("job", notification.JobID).Str("queue", queue).Msg("Job dispatch failed")
	}
}

func (n *Notifier) queueOfJob(jobID int) string {
	n.jobsMu.Lock()
	defer n.jobsMu.Unlock()

	return n.activeJobs[jobID]
}

func (n *Notifier) controlled(queue string) bool {
	if queue == "" {
		return false
	}

	local, ok := n.registry.LookupLocal(queue)

	return ok && local.Controlled
}
