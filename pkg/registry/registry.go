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

// Package registry is the in-memory set of remote printer records. It owns
// the records, keeps insertion order, maintains the cluster relation and the
// local-printer cache, and enforces the lifecycle invariants.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
)

// Config tunes the registry's lifecycle behavior.
type Config struct {
	// ConfirmWindow is the grace period for queues inherited from a previous
	// session to be re-seen before they are reclaimed.
	ConfirmWindow time.Duration

	// KeepQueues keeps local queues of vanished printers until shutdown
	// instead of deleting them.
	KeepQueues bool
}

// Registry holds every remote printer record, keyed by identity.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*models.RemotePrinter
	order   []string

	localMu sync.RWMutex
	local   map[string]models.LocalPrinter

	// sentinel is the long-lived deleted-master record slaves may point at
	// during master teardown.
	sentinel *models.RemotePrinter

	config Config
	logger logger.Logger
	now    func() time.Time
}

// NewRegistry builds an empty registry.
func NewRegistry(config Config, log logger.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*models.RemotePrinter),
		local:   make(map[string]models.LocalPrinter),
		sentinel: &models.RemotePrinter{
			Identity:  models.Identity{ServiceName: models.DeletedMasterKey},
			Status:    models.StatusDisappeared,
			TimeoutAt: models.TimeoutNever,
		},
		config: config,
		logger: log,
		now:    time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Lookup returns a copy of the entry with the given identity key.
func (r *Registry) Lookup(key string) (*models.RemotePrinter, bool) {
	if key == models.DeletedMasterKey {
		return r.sentinel.Clone(), true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[key]
	if !ok {
		return nil, false
	}

	return entry.Clone(), true
}

// Snapshot returns copies of all entries in insertion order.
func (r *Registry) Snapshot() []*models.RemotePrinter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.RemotePrinter, 0, len(r.order))

	for _, key := range r.order {
		if entry, ok := r.entries[key]; ok {
			out = append(out, entry.Clone())
		}
	}

	return out
}

// Count returns the number of live entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Update mutates the entry under the write lock. It returns false when the
// entry no longer exists.
func (r *Registry) Update(key string, mutate func(*models.RemotePrinter)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		return false
	}

	mutate(entry)

	return true
}

// Remove frees the entry. Slaves of the removed entry are repointed at the
// deleted-master sentinel so their teardown stays safe.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		return
	}

	for _, other := range r.entries {
		if other.SlaveOf == key {
			other.SlaveOf = models.DeletedMasterKey
		}
	}

	delete(r.entries, key)

	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.logger.Debug().Str("key", key).Str("queue", entry.QueueName).Msg("Registry entry freed")
}

// NextTimeout returns the earliest pending timeout, if any entry has one.
func (r *Registry) NextTimeout() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		earliest time.Time
		found    bool
	)

	for _, entry := range r.entries {
		// Entries a worker currently owns rearm the timer when it finishes.
		if entry.TimeoutAt.Equal(models.TimeoutNever) || entry.Called {
			continue
		}

		if !found || entry.TimeoutAt.Before(earliest) {
			earliest = entry.TimeoutAt
			found = true
		}
	}

	return earliest, found
}

// DeferOthers pushes the timeout of every pending entry not in the handled
// set forward by delay, so a work-limited tick does not spin.
func (r *Registry) DeferOthers(handled map[string]struct{}, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	for key, entry := range r.entries {
		if _, ok := handled[key]; ok {
			continue
		}

		if entry.TimeoutAt.Equal(models.TimeoutNever) || entry.TimeoutAt.After(now) {
			continue
		}

		entry.TimeoutAt = now.Add(delay)
	}
}

// MarkAllForShutdown retires every entry: DISAPPEARED for immediate
// removal, or UNCONFIRMED with the confirm window under the keep-queues
// policy.
func (r *Registry) MarkAllForShutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	for _, entry := range r.entries {
		if r.config.KeepQueues {
			entry.Status = models.StatusUnconfirmed
			entry.TimeoutAt = now.Add(r.config.ConfirmWindow)

			continue
		}

		entry.Status = models.StatusDisappeared
		entry.TimeoutAt = now
	}
}

// insertSorted adds the instance keeping the preference order and without
// duplicates.
func insertSorted(list []models.DiscoveryInstance, instance models.DiscoveryInstance) []models.DiscoveryInstance {
	for _, d := range list {
		if d == instance {
			return list
		}
	}

	list = append(list, instance)

	sort.SliceStable(list, func(i, j int) bool { return list[i].Less(list[j]) })

	return list
}
