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

// Package dispatch selects the destination member when the spooler starts
// processing a job on a clustered queue, and publishes the choice for the
// cooperating backend.
package dispatch

import (
	"context"
	"fmt"

	"github.com/zdohnal/cups-browsed/pkg/ipputil"
	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
	"github.com/zdohnal/cups-browsed/pkg/registry"
	"github.com/zdohnal/cups-browsed/pkg/spooler"
)

// Policy selects where jobs queue up when all members are busy.
type Policy string

const (
	// PolicyClientQueueing holds jobs locally until a member goes idle.
	PolicyClientQueueing Policy = "queue-on-client"
	// PolicyServerQueueing pushes jobs to the least-loaded busy member.
	PolicyServerQueueing Policy = "queue-on-servers"
)

// Destination tokens the cooperating backend understands.
const (
	TokenAllBusy    = "ALL_DESTS_BUSY"
	TokenNoDest     = "NO_DEST_FOUND"
	defaultFormat   = "application/octet-stream"
	fallbackResolve = "300dpi"
)

// Dispatcher picks per-job destinations.
type Dispatcher struct {
	registry *registry.Registry
	client   spooler.Client
	endpoint spooler.EndpointClient
	policy   Policy
	logger   logger.Logger
}

// New builds a dispatcher. Policy defaults to client-side queueing.
func New(reg *registry.Registry, client spooler.Client, endpoint spooler.EndpointClient, policy Policy, log logger.Logger) *Dispatcher {
	if policy != PolicyServerQueueing {
		policy = PolicyClientQueueing
	}

	return &Dispatcher{
		registry: reg,
		client:   client,
		endpoint: endpoint,
		policy:   policy,
		logger:   log,
	}
}

// candidate is one cluster member that survived the capability match.
type candidate struct {
	index  int
	member *models.RemotePrinter
	state  *spooler.EndpointState
}

// DispatchJob chooses the destination for one processing job and publishes
// it on the queue.
func (d *Dispatcher) DispatchJob(ctx context.Context, queue string, jobID int) error {
	master, ok := d.registry.Master(queue)
	if !ok {
		// Restart case: a job is processing but the daemon has no record;
		// fail fast so the backend can surface it.
		return d.publish(ctx, queue, jobID, TokenNoDest, defaultFormat, fallbackResolve)
	}

	job, err := d.client.FetchJobAttributes(ctx, jobID)
	if err != nil {
		d.logger.Warn().Err(err).Int("job", jobID).Str("queue", queue).Msg("Job attributes unavailable")
		return d.publish(ctx, queue, jobID, TokenNoDest, defaultFormat, fallbackResolve)
	}

	format := job.Format
	if format == "" {
		format = defaultFormat
	}

	members := d.registry.ClusterMembers(queue)
	if len(members) == 0 {
		return d.publish(ctx, queue, jobID, TokenNoDest, format, fallbackResolve)
	}

	candidates := d.scanMembers(ctx, members, master.LastDestinationIndex, job)
	if len(candidates) == 0 {
		return d.publish(ctx, queue, jobID, TokenNoDest, format, fallbackResolve)
	}

	chosen := d.choose(candidates)
	if chosen == nil {
		return d.publish(ctx, queue, jobID, TokenAllBusy, format, fallbackResolve)
	}

	resolution := selectResolution(chosen.member.Capabilities, job.Quality)

	if err := d.publish(ctx, queue, jobID, chosen.member.RemoteURI(), format, resolution); err != nil {
		return err
	}

	d.registry.Update(master.Identity.Key(), func(p *models.RemotePrinter) {
		p.LastDestinationIndex = chosen.index
	})

	return nil
}

// scanMembers walks the cluster round-robin starting after the previous
// destination and keeps every confirmed, capability-matching member along
// with its live state.
func (d *Dispatcher) scanMembers(ctx context.Context, members []*models.RemotePrinter, lastIndex int, job *spooler.JobAttributes) []candidate {
	n := len(members)
	start := (lastIndex + 1) % n

	var candidates []candidate

	for i := 0; i < n; i++ {
		index := (start + i) % n
		member := members[index]

		if member.Status != models.StatusConfirmed {
			continue
		}

		if !suitable(member, job) {
			continue
		}

		state, err := d.endpoint.FetchState(ctx, member.RemoteURI())
		if err != nil {
			d.logger.Debug().Err(err).Str("member", member.Identity.Key()).Msg("Member state unavailable")
			continue
		}

		candidates = append(candidates, candidate{index: index, member: member, state: state})
	}

	return candidates
}

// choose applies the queueing policy over the scan-ordered candidates.
func (d *Dispatcher) choose(candidates []candidate) *candidate {
	// Either policy prefers the first idle, accepting member in scan order.
	for i := range candidates {
		c := &candidates[i]

		if c.state.Accepting && c.state.State == models.PrinterIdle {
			return c
		}
	}

	if d.policy == PolicyClientQueueing {
		// The job waits locally until somebody frees up.
		return nil
	}

	// Server-side queueing: the accepting, processing member with the
	// fewest active jobs takes it.
	var best *candidate

	for i := range candidates {
		c := &candidates[i]

		if !c.state.Accepting || c.state.State == models.PrinterStopped {
			continue
		}

		if best == nil || c.state.ActiveJobs < best.state.ActiveJobs {
			best = c
		}
	}

	return best
}

// publish writes the per-job destination option the cooperating backend
// reads: "<job-id> <uri-or-token> <format> <resolution>".
func (d *Dispatcher) publish(ctx context.Context, queue string, jobID int, dest, format, resolution string) error {
	value := fmt.Sprintf("%d %s %s %s", jobID, dest, format, resolution)

	if err := d.client.SetQueueOption(ctx, queue, ipputil.AttrDestinationOption, value); err != nil {
		return fmt.Errorf("publish destination for job %d: %w", jobID, err)
	}

	d.logger.Info().Str("queue", queue).Int("job", jobID).Str("dest", dest).Msg("Job destination published")

	return nil
}
