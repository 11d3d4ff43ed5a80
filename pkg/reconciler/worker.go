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

package reconciler

import (
	"context"
	"errors"
	"strings"

	"github.com/zdohnal/cups-browsed/pkg/capability"
	"github.com/zdohnal/cups-browsed/pkg/descriptor"
	"github.com/zdohnal/cups-browsed/pkg/models"
	"github.com/zdohnal/cups-browsed/pkg/spooler"
)

// createOrUpdate installs or refreshes the local queue for one entry. It
// runs in a worker: record mutations take the registry lock, RPCs never do.
func (r *Reconciler) createOrUpdate(ctx context.Context, key string) {
	defer func() {
		r.registry.Update(key, func(p *models.RemotePrinter) {
			p.Called = false
		})

		// The loop skipped this entry while the worker owned it; re-arm the
		// timer against its final state.
		r.Kick()
	}()

	entry, ok := r.registry.Lookup(key)
	if !ok {
		return
	}

	// A single master object represents the cluster to the spooler; slaves
	// redirect the work to it.
	if !entry.IsMaster() {
		r.registry.Update(entry.SlaveOf, func(p *models.RemotePrinter) {
			p.Status = models.StatusToBeCreated
			p.TimeoutAt = r.clock.Now()
		})

		r.registry.Update(key, func(p *models.RemotePrinter) {
			p.Status = models.StatusConfirmed
			p.TimeoutAt = models.TimeoutNever
		})

		r.Kick()

		return
	}

	if err := r.client.Connect(ctx); err != nil {
		r.noteRPCFailure(key, err)
		return
	}

	if retry := r.adoptExistingQueue(ctx, key, entry); retry {
		return
	}

	caps, ok := r.memberCapabilities(ctx, key, entry)
	if !ok {
		return
	}

	merged := r.mergeCluster(entry, caps)

	descriptorPath, nickname, err := r.buildDescriptor(entry, merged)
	if err != nil {
		r.logger.Error().Err(err).Str("queue", entry.QueueName).Msg("Descriptor generation failed")

		// Same as a capability-fetch failure: retried on next appearance.
		r.registry.Update(key, func(p *models.RemotePrinter) {
			p.Status = models.StatusDisappeared
			p.TimeoutAt = r.clock.Now()
		})

		r.Kick()

		return
	}

	// Only remote-spooler queues with a notification channel go through the
	// cooperating backend; a directly-attached network printer always gets
	// its real URI.
	deviceURI := entry.RemoteURI()
	if entry.RemoteSpooler() && r.notifier.Subscribed() {
		deviceURI = models.SentinelURI(entry.QueueName)
	}

	saved, err := r.store.LoadOptions(entry.QueueName)
	if err != nil {
		r.logger.Warn().Err(err).Str("queue", entry.QueueName).Msg("Failed to load persisted options")
	}

	shared := r.config.ShareQueues

	request := &spooler.QueueRequest{
		Name:           entry.QueueName,
		DeviceURI:      deviceURI,
		DescriptorPath: descriptorPath,
		Info:           queueInfo(entry),
		Location:       entry.Location,
		Shared:         &shared,
		Options:        saved,
	}

	if err := r.client.CreateOrModifyQueue(ctx, request); err != nil {
		r.noteRPCFailure(key, err)
		return
	}

	// The shared flag sometimes needs a second pass; errors here are
	// absorbed.
	if err := r.client.SetShared(ctx, entry.QueueName, shared); err != nil {
		r.logger.Debug().Err(err).Str("queue", entry.QueueName).Msg("Second shared-flag pass failed")
	}

	r.restoreDefault(ctx, entry.QueueName)
	r.reenableIfOurs(ctx, entry.QueueName)

	if r.client.TimedOut() {
		// Some step timed out along the way; treat the whole pass as
		// partial and run it again.
		r.noteRPCFailure(key, spooler.ErrRPCTimeout)
		return
	}

	now := r.clock.Now()

	r.registry.Update(key, func(p *models.RemotePrinter) {
		p.URI = deviceURI
		p.Nickname = nickname
		p.Status = models.StatusConfirmed
		p.RetryCount = 0
		p.Overwritten = false

		if p.Legacy {
			p.TimeoutAt = now.Add(r.config.LegacyTimeout)
		} else {
			p.TimeoutAt = models.TimeoutNever
		}
	})

	r.registry.UpsertLocal(models.LocalPrinter{
		Name:       entry.QueueName,
		DeviceURI:  deviceURI,
		Controlled: true,
	})

	r.logger.Info().
		Str("queue", entry.QueueName).
		Str("device_uri", deviceURI).
		Msg("Local queue installed")
}

// adoptExistingQueue handles a pre-existing spooler queue with our name.
// Returns true when the worker must retry later.
func (r *Reconciler) adoptExistingQueue(ctx context.Context, key string, entry *models.RemotePrinter) bool {
	attrs, err := r.client.FetchQueueAttributes(ctx, entry.QueueName)
	if err != nil {
		if errors.Is(err, spooler.ErrNotFound) {
			return false
		}

		r.noteRPCFailure(key, err)

		return true
	}

	if !attrs.Temporary || attrs.Controlled {
		return false
	}

	// Take ownership of the spooler-managed temporary queue through its
	// shared flag.
	if err := r.client.SetShared(ctx, entry.QueueName, true); err != nil {
		if errors.Is(err, spooler.ErrNotPossible) && attrs.Remote {
			// The spooler refuses the flag on queues pointing at a remote
			// spooler; replace the queue instead.
			if err := r.client.DeleteQueue(ctx, entry.QueueName); err != nil {
				r.noteRPCFailure(key, err)
				return true
			}

			return false
		}

		r.noteRPCFailure(key, err)

		return true
	}

	if !r.config.ShareQueues {
		if err := r.client.SetShared(ctx, entry.QueueName, false); err != nil {
			r.logger.Debug().Err(err).Str("queue", entry.QueueName).Msg("Unsharing temporary queue failed")
		}
	}

	jobs, err := r.client.ListActiveJobs(ctx, entry.QueueName)
	if err != nil {
		r.noteRPCFailure(key, err)
		return true
	}

	for _, job := range jobs {
		if job.State.Active() {
			// Wait for the temporary queue to drain.
			r.reschedule(key, models.StatusToBeCreated)
			return true
		}
	}

	return false
}

// memberCapabilities makes sure every live cluster member has a capability
// document, fetching the missing ones. Members that cannot be fetched are
// retired; a master without capabilities retires the whole pass.
func (r *Reconciler) memberCapabilities(ctx context.Context, key string, entry *models.RemotePrinter) ([]*models.Capabilities, bool) {
	members := r.registry.LiveClusterMembers(entry.QueueName)

	var caps []*models.Capabilities

	for _, member := range members {
		if member.Capabilities != nil {
			caps = append(caps, member.Capabilities)
			continue
		}

		fetched, err := r.endpoint.FetchCapabilities(ctx, member.RemoteURI())
		if err != nil {
			memberKey := member.Identity.Key()

			r.logger.Warn().
				Err(err).
				Str("queue", entry.QueueName).
				Str("member", memberKey).
				Msg("Capability fetch failed")

			r.registry.Update(memberKey, func(p *models.RemotePrinter) {
				p.Status = models.StatusDisappeared
				p.TimeoutAt = r.clock.Now()
			})

			if memberKey == key {
				r.Kick()
				return nil, false
			}

			continue
		}

		r.registry.Update(member.Identity.Key(), func(p *models.RemotePrinter) {
			p.Capabilities = fetched
		})

		caps = append(caps, fetched)
	}

	if len(caps) == 0 {
		r.registry.Update(key, func(p *models.RemotePrinter) {
			p.Status = models.StatusDisappeared
			p.TimeoutAt = r.clock.Now()
		})

		r.Kick()

		return nil, false
	}

	return caps, true
}

func (r *Reconciler) mergeCluster(entry *models.RemotePrinter, caps []*models.Capabilities) *capability.Merged {
	merged := capability.Merge(caps)

	if merged.Capabilities.MakeModel == "" {
		merged.Capabilities.MakeModel = entry.MakeModel
	}

	return merged
}

// buildDescriptor generates and edits the driver descriptor, returning its
// path and nickname.
func (r *Reconciler) buildDescriptor(entry *models.RemotePrinter, merged *capability.Merged) (string, string, error) {
	path, err := r.generator.Generate(entry.QueueName, merged.Capabilities, merged.Conflicts)
	if err != nil {
		return "", "", err
	}

	saved, err := r.store.LoadOptions(entry.QueueName)
	if err != nil {
		saved = nil
	}

	opts := &descriptor.EditOptions{
		Defaults: descriptor.PPDDefaults(saved),
	}

	if entry.RemoteSpooler() {
		opts.RemoteQueueID = remoteQueueID(entry)
	}

	nickname, err := descriptor.Edit(path, opts)
	if err != nil {
		return "", "", err
	}

	return path, nickname, nil
}

// restoreDefault re-establishes the queue as system default when it held
// that role before it went away.
func (r *Reconciler) restoreDefault(ctx context.Context, queue string) {
	if r.store.LoadRemoteDefault() != queue {
		return
	}

	if err := r.client.SetDefault(ctx, queue); err != nil {
		r.logger.Warn().Err(err).Str("queue", queue).Msg("Failed to restore default printer")
		return
	}

	if err := r.store.ClearRemoteDefault(); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to clear recorded default")
	}
}

// reenableIfOurs resumes a queue paused for the daemon's own reason or by a
// backend failure; anything else (a user pause) is respected.
func (r *Reconciler) reenableIfOurs(ctx context.Context, queue string) {
	attrs, err := r.client.FetchQueueAttributes(ctx, queue)
	if err != nil || attrs.State != models.PrinterStopped {
		return
	}

	message := attrs.StateMessage

	if message != "" && message != r.config.DisableReason && !strings.Contains(message, backendFailedMessage) {
		return
	}

	if err := r.client.Enable(ctx, queue); err != nil {
		r.logger.Warn().Err(err).Str("queue", queue).Msg("Failed to re-enable queue")
	}
}

func queueInfo(entry *models.RemotePrinter) string {
	if entry.Info != "" {
		return entry.Info
	}

	if entry.MakeModel != "" {
		return entry.MakeModel
	}

	return entry.QueueName
}

// remoteQueueID is the remote spooler's queue name, taken from the resource
// tail.
func remoteQueueID(entry *models.RemotePrinter) string {
	resource := strings.Trim(entry.Resource, "/")

	if idx := strings.LastIndex(resource, "/"); idx >= 0 {
		return resource[idx+1:]
	}

	if resource == "" {
		return entry.QueueName
	}

	return resource
}
