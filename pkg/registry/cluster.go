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

package registry

import (
	"strings"

	"github.com/zdohnal/cups-browsed/pkg/models"
)

// liveMasterLocked finds the single master of the queue name with a
// non-terminal, creatable status. Caller holds the write lock.
func (r *Registry) liveMasterLocked(queueName string) *models.RemotePrinter {
	for _, key := range r.order {
		entry, ok := r.entries[key]
		if !ok || !entry.IsMaster() {
			continue
		}

		if !strings.EqualFold(entry.QueueName, queueName) {
			continue
		}

		if entry.Status == models.StatusConfirmed || entry.Status == models.StatusToBeCreated {
			return entry
		}
	}

	return nil
}

// Master returns a copy of the live master for the queue name.
func (r *Registry) Master(queueName string) (*models.RemotePrinter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	master := r.liveMasterLocked(queueName)
	if master == nil {
		return nil, false
	}

	return master.Clone(), true
}

// ClusterMembers returns copies of every entry sharing the queue name, in
// insertion order.
func (r *Registry) ClusterMembers(queueName string) []*models.RemotePrinter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var members []*models.RemotePrinter

	for _, key := range r.order {
		entry, ok := r.entries[key]
		if !ok {
			continue
		}

		if strings.EqualFold(entry.QueueName, queueName) {
			members = append(members, entry.Clone())
		}
	}

	return members
}

// LiveClusterMembers returns the members the merger operates on: status
// confirmed or to-be-created, in insertion order.
func (r *Registry) LiveClusterMembers(queueName string) []*models.RemotePrinter {
	var live []*models.RemotePrinter

	for _, member := range r.ClusterMembers(queueName) {
		if member.Status == models.StatusConfirmed || member.Status == models.StatusToBeCreated {
			live = append(live, member)
		}
	}

	return live
}

// PromoteEarliestSlave hands the cluster to the earliest live slave of the
// given master: the slave becomes the master (inheriting the options bag and
// an immediate creation), every other slave is repointed at it, and the old
// master becomes its slave so its record drains safely. Returns the promoted
// key, or false when the master has no live slave.
func (r *Registry) PromoteEarliestSlave(masterKey string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	master, ok := r.entries[masterKey]
	if !ok {
		return "", false
	}

	var promoted *models.RemotePrinter

	for _, key := range r.order {
		entry, ok := r.entries[key]
		if !ok || entry.SlaveOf != masterKey {
			continue
		}

		if entry.Status.Terminal() {
			continue
		}

		promoted = entry

		break
	}

	if promoted == nil {
		return "", false
	}

	promotedKey := promoted.Identity.Key()

	promoted.SlaveOf = ""
	promoted.QueueName = master.QueueName
	promoted.Status = models.StatusToBeCreated
	promoted.TimeoutAt = r.now()

	// The options bag follows the queue, not the endpoint.
	if len(master.Options) > 0 {
		if promoted.Options == nil {
			promoted.Options = make(map[string]string, len(master.Options))
		}

		for k, v := range master.Options {
			if _, exists := promoted.Options[k]; !exists {
				promoted.Options[k] = v
			}
		}
	}

	for _, entry := range r.entries {
		if entry.SlaveOf == masterKey && entry != promoted {
			entry.SlaveOf = promotedKey
		}
	}

	master.SlaveOf = promotedKey

	r.logger.Info().
		Str("queue", promoted.QueueName).
		Str("old_master", masterKey).
		Str("new_master", promotedKey).
		Msg("Cluster master promoted")

	return promotedKey, true
}
