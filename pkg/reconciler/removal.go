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

	"github.com/zdohnal/cups-browsed/pkg/models"
)

// removeEntry retires one registry entry: promote a surviving slave when the
// cluster lives on, otherwise release or delete the local queue.
func (r *Reconciler) removeEntry(ctx context.Context, entry *models.RemotePrinter) {
	key := entry.Identity.Key()

	// A live slave inherits the queue; the local queue stays untouched and
	// the retired record is freed once the relation is rewired.
	if promoted, ok := r.registry.PromoteEarliestSlave(key); ok {
		r.logger.Info().
			Str("queue", entry.QueueName).
			Str("promoted", promoted).
			Msg("Removed master replaced by promoted slave")

		r.registry.Remove(key)
		r.Kick()

		return
	}

	if entry.Status == models.StatusToBeReleased {
		r.releaseQueue(ctx, entry)
		return
	}

	r.deleteQueue(ctx, entry)
}

// releaseQueue leaves the local queue to the user and frees the record.
func (r *Reconciler) releaseQueue(ctx context.Context, entry *models.RemotePrinter) {
	r.saveQueueOptions(ctx, entry)

	// The queue survives, but it is no longer ours.
	if local, ok := r.registry.LookupLocal(entry.QueueName); ok {
		local.Controlled = false
		r.registry.UpsertLocal(local)
	}

	r.registry.Remove(entry.Identity.Key())

	r.logger.Info().Str("queue", entry.QueueName).Msg("Queue released to the user")
}

// deleteQueue removes the local queue unless jobs or default-printer
// protection forbid it right now.
func (r *Reconciler) deleteQueue(ctx context.Context, entry *models.RemotePrinter) {
	key := entry.Identity.Key()
	queue := entry.QueueName

	jobs, err := r.client.ListActiveJobs(ctx, queue)
	if err != nil {
		r.noteRPCFailure(key, err)
		return
	}

	active := 0

	for _, job := range jobs {
		if job.State.Active() {
			active++
		}
	}

	isDefault := false

	if def, err := r.client.GetDefault(ctx); err == nil && def == queue {
		isDefault = true
	}

	// Deleting the default queue with no notification channel would change
	// the default behind our back with no way to react; deleting a queue
	// with jobs would lose them. Disable instead and come back.
	if active > 0 || (isDefault && !r.notifier.Subscribed()) {
		if err := r.client.Disable(ctx, queue, r.config.DisableReason); err != nil {
			r.logger.Warn().Err(err).Str("queue", queue).Msg("Failed to disable queue pending removal")
		}

		r.reschedule(key, entry.Status)

		return
	}

	r.saveQueueOptions(ctx, entry)

	if isDefault {
		// Restore default status if the printer comes back.
		if err := r.store.SaveRemoteDefault(queue); err != nil {
			r.logger.Warn().Err(err).Str("queue", queue).Msg("Failed to record default queue")
		}
	}

	if err := r.client.DeleteQueue(ctx, queue); err != nil {
		r.noteRPCFailure(key, err)
		return
	}

	r.registry.RemoveLocal(queue)
	r.registry.Remove(key)

	r.logger.Info().Str("queue", queue).Msg("Local queue deleted")
}

// saveQueueOptions records the queue's portable option defaults before the
// queue goes away, so re-creation restores them.
func (r *Reconciler) saveQueueOptions(ctx context.Context, entry *models.RemotePrinter) {
	options := entry.Options

	if attrs, err := r.client.FetchQueueAttributes(ctx, entry.QueueName); err == nil && len(attrs.Options) > 0 {
		options = attrs.Options
	}

	if len(options) == 0 {
		return
	}

	if err := r.store.SaveOptions(entry.QueueName, options); err != nil {
		r.logger.Warn().Err(err).Str("queue", entry.QueueName).Msg("Failed to persist queue options")
	}
}
