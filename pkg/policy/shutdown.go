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

package policy

import "sync"

// ShutdownVariant selects what "idle" means for auto-shutdown.
type ShutdownVariant string

const (
	// ShutdownOnNoQueues arms the timer when the registry is empty.
	ShutdownOnNoQueues ShutdownVariant = "on-no-queues"
	// ShutdownOnNoJobs arms the timer when no jobs are active on
	// daemon-controlled queues.
	ShutdownOnNoJobs ShutdownVariant = "on-no-jobs"
)

// AutoShutdown tracks whether the daemon may shut itself down. USR1 disables
// it (permanent mode), USR2 re-enables it.
type AutoShutdown struct {
	mu      sync.Mutex
	enabled bool
	variant ShutdownVariant
}

// NewAutoShutdown builds the policy. Variant defaults to on-no-queues.
func NewAutoShutdown(enabled bool, variant ShutdownVariant) *AutoShutdown {
	if variant != ShutdownOnNoJobs {
		variant = ShutdownOnNoQueues
	}

	return &AutoShutdown{enabled: enabled, variant: variant}
}

// SetEnabled flips the policy at runtime (USR1/USR2).
func (a *AutoShutdown) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.enabled = enabled
}

// Enabled reports the current policy state.
func (a *AutoShutdown) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.enabled
}

// ShouldArm reports whether the shutdown timer should be armed for the given
// registry size and active-job count. Any appearance or new job disarms.
func (a *AutoShutdown) ShouldArm(queueCount, activeJobs int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.enabled {
		return false
	}

	if a.variant == ShutdownOnNoJobs {
		return activeJobs == 0
	}

	return queueCount == 0
}
