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
	"github.com/zdohnal/cups-browsed/pkg/models"
)

// Observation is the registry's verdict on a repeated appearance.
type Observation int

const (
	// ObservationEqual adds nothing beyond the discovery instance.
	ObservationEqual Observation = iota
	// ObservationUpgrade replaced the addressing and re-armed creation.
	ObservationUpgrade
	// ObservationDowngrade kept the stored addressing.
	ObservationDowngrade
)

// AddDiscovered creates the entry for a first appearance under the resolved
// queue name and performs the cluster join: if the name already has a live
// master, the new entry becomes its slave and the master is re-armed so the
// merger runs with the grown membership.
func (r *Registry) AddDiscovered(event *models.DiscoveryEvent, queueName string) *models.RemotePrinter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := event.Identity.Key()

	entry := &models.RemotePrinter{
		Identity:    event.Identity,
		QueueName:   queueName,
		Host:        event.Host,
		IP:          event.IP,
		Port:        event.Port,
		Resource:    event.Resource,
		ServiceName: event.Identity.ServiceName,
		ServiceType: event.ServiceType,
		Domain:      event.Identity.Domain,
		MakeModel:   event.MakeModel,
		PDLs:        append([]string(nil), event.PDLs...),
		Color:       event.Color,
		Duplex:      event.Duplex,
		Location:    event.Location,
		Info:        event.Info,
		Options:     make(map[string]string),
		Status:      models.StatusToBeCreated,
		TimeoutAt:   now,
		Legacy:      event.Legacy,

		// The round-robin cursor starts before the first member.
		LastDestinationIndex: -1,
	}

	if event.Interface != "" {
		entry.Discoveries = insertSorted(nil, models.DiscoveryInstance{
			Interface:   event.Interface,
			ServiceType: event.ServiceType,
			Family:      event.Family,
		})
	}

	if master := r.liveMasterLocked(queueName); master != nil {
		entry.SlaveOf = master.Identity.Key()

		// The cluster grew: the master must re-run the merger and modify
		// the local queue.
		master.Status = models.StatusToBeCreated
		master.TimeoutAt = now
	}

	r.entries[key] = entry
	r.order = append(r.order, key)

	r.logger.Info().
		Str("queue", queueName).
		Str("key", key).
		Bool("slave", entry.SlaveOf != "").
		Msg("Remote printer discovered")

	return entry.Clone()
}

// AddUnconfirmed seeds a queue inherited from a previous session; it must
// be re-seen within the confirm window or it is reclaimed.
func (r *Registry) AddUnconfirmed(queueName, deviceURI string) *models.RemotePrinter {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity := models.Identity{Host: queueName, Legacy: true}
	key := identity.Key()

	entry := &models.RemotePrinter{
		Identity:  identity,
		QueueName: queueName,
		URI:       deviceURI,
		Options:   make(map[string]string),
		Status:    models.StatusUnconfirmed,
		TimeoutAt: r.now().Add(r.config.ConfirmWindow),
		Legacy:    true,
	}

	r.entries[key] = entry
	r.order = append(r.order, key)

	return entry.Clone()
}

// ObserveAppearance applies the upgrade rule to a repeated appearance of a
// known identity.
func (r *Registry) ObserveAppearance(event *models.DiscoveryEvent) (Observation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[event.Identity.Key()]
	if !ok {
		return ObservationEqual, false
	}

	instance := models.DiscoveryInstance{
		Interface:   event.Interface,
		ServiceType: event.ServiceType,
		Family:      event.Family,
	}

	verdict := compareObservation(entry, event)

	if verdict == ObservationUpgrade {
		entry.Host = event.Host
		entry.IP = event.IP
		entry.Port = event.Port
		entry.Resource = event.Resource
		entry.ServiceType = event.ServiceType

		if event.MakeModel != "" {
			entry.MakeModel = event.MakeModel
		}

		if len(event.PDLs) > 0 {
			entry.PDLs = append([]string(nil), event.PDLs...)
		}

		if event.HasServiceMetadata() {
			entry.Legacy = false
		}

		entry.Status = models.StatusToBeCreated
		entry.TimeoutAt = r.now()
	}

	// The instance joins the discovery set regardless of the verdict.
	if event.Interface != "" {
		entry.Discoveries = insertSorted(entry.Discoveries, instance)
	}

	return verdict, true
}

// ObserveDisappearance drops one discovery instance; once the last is gone
// the entry is retired (or re-armed as unconfirmed under keep-queues).
func (r *Registry) ObserveDisappearance(event *models.DiscoveryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[event.Identity.Key()]
	if !ok {
		return
	}

	instance := models.DiscoveryInstance{
		Interface:   event.Interface,
		ServiceType: event.ServiceType,
		Family:      event.Family,
	}

	kept := entry.Discoveries[:0]

	for _, d := range entry.Discoveries {
		if d != instance {
			kept = append(kept, d)
		}
	}

	entry.Discoveries = kept

	if len(entry.Discoveries) > 0 {
		return
	}

	now := r.now()

	if r.config.KeepQueues {
		entry.Status = models.StatusUnconfirmed
		entry.TimeoutAt = now.Add(r.config.ConfirmWindow)

		return
	}

	entry.Status = models.StatusDisappeared
	entry.TimeoutAt = now

	r.logger.Info().
		Str("queue", entry.QueueName).
		Str("key", event.Identity.Key()).
		Msg("Remote printer disappeared")
}

// compareObservation decides upgrade / downgrade / equal per the discovery
// rule: previous-session or vanished entries always upgrade; then secure
// beats insecure, loopback beats remote interfaces, and service metadata
// beats polled records. The mirror image is a downgrade.
func compareObservation(entry *models.RemotePrinter, event *models.DiscoveryEvent) Observation {
	if entry.Status == models.StatusUnconfirmed || entry.Status == models.StatusDisappeared {
		return ObservationUpgrade
	}

	newSecure := models.SecureServiceType(event.ServiceType)
	oldSecure := models.SecureServiceType(entry.ServiceType)

	if newSecure != oldSecure {
		if newSecure {
			return ObservationUpgrade
		}

		return ObservationDowngrade
	}

	newLoopback := models.LoopbackInterface(event.Interface)
	oldLoopback := len(entry.Discoveries) > 0 && models.LoopbackInterface(entry.Discoveries[0].Interface)

	if newLoopback != oldLoopback {
		if newLoopback {
			return ObservationUpgrade
		}

		return ObservationDowngrade
	}

	if entry.Legacy && event.HasServiceMetadata() {
		return ObservationUpgrade
	}

	if !entry.Legacy && event.Legacy {
		return ObservationDowngrade
	}

	return ObservationEqual
}
