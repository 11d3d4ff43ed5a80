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

// Package naming decides the local queue name for a discovered printer. The
// resolver is a pure function of the event metadata, the current
// local-printer snapshot and the manual cluster table.
package naming

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zdohnal/cups-browsed/pkg/models"
)

var (
	// ErrNoName is returned when no acceptable local queue name exists; the
	// printer is refused until the next discovery event.
	ErrNoName = errors.New("no acceptable local queue name")

	errEmptySource = errors.New("no source string for queue name")
)

// Policy selects which metadata field seeds the local queue name.
type Policy string

const (
	PolicyServiceName Policy = "service-name"
	PolicyMakeModel   Policy = "make-model"
	PolicyResource    Policy = "resource-tail"
)

// ManualCluster is one configured cluster: a declared local queue name plus
// the member patterns (service names, make/model strings or resource tails)
// that map printers into it.
type ManualCluster struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// LocalQueues is the snapshot of the spooler's queues consulted for
// collision avoidance. Implemented by the registry's local-printer cache.
type LocalQueues interface {
	LookupLocal(name string) (models.LocalPrinter, bool)
}

// Input carries everything the resolver needs for one printer.
type Input struct {
	ServiceName string
	MakeModel   string
	Resource    string
	Host        string
	// RemoteSpooler distinguishes a queue on a remote print server from a
	// directly attached network printer; the two classes can be configured
	// with different naming policies.
	RemoteSpooler bool
}

// Result is the resolved name and whether it came from the manual table.
type Result struct {
	QueueName     string
	ManualCluster bool
}

// Resolver implements the naming algorithm.
type Resolver struct {
	remotePolicy   Policy
	printerPolicy  Policy
	clusters       []ManualCluster
	autoClustering bool
}

// NewResolver builds a resolver. Policies default to service-name.
func NewResolver(remotePolicy, printerPolicy Policy, clusters []ManualCluster, autoClustering bool) *Resolver {
	if remotePolicy == "" {
		remotePolicy = PolicyServiceName
	}

	if printerPolicy == "" {
		printerPolicy = PolicyServiceName
	}

	return &Resolver{
		remotePolicy:   remotePolicy,
		printerPolicy:  printerPolicy,
		clusters:       clusters,
		autoClustering: autoClustering,
	}
}

// Resolve picks the local queue name for in, or returns ErrNoName.
func (r *Resolver) Resolve(in *Input, local LocalQueues) (Result, error) {
	policy := r.printerPolicy
	if in.RemoteSpooler {
		policy = r.remotePolicy
	}

	candidate, err := r.baseName(policy, in)
	if err != nil {
		return Result{}, err
	}

	// A local queue we do not control blocks the plain candidate.
	if q, ok := local.LookupLocal(candidate); ok && !q.Controlled {
		candidate = QualifyWithHost(candidate, in.Host)
	}

	// The manual cluster table overrides the derived name.
	if cluster, ok := r.matchManualCluster(in); ok {
		return Result{QueueName: cluster.Name, ManualCluster: true}, nil
	}

	if !r.autoClustering {
		for i := range r.clusters {
			if strings.EqualFold(r.clusters[i].Name, candidate) {
				return Result{}, fmt.Errorf("%w: %q collides with manual cluster %q",
					ErrNoName, candidate, r.clusters[i].Name)
			}
		}
	}

	if candidate == "" {
		return Result{}, ErrNoName
	}

	return Result{QueueName: candidate}, nil
}

func (r *Resolver) baseName(policy Policy, in *Input) (string, error) {
	var source string

	switch policy {
	case PolicyMakeModel:
		source = in.MakeModel
	case PolicyResource:
		source = resourceTail(in.Resource)
	case PolicyServiceName:
		source = in.ServiceName
	default:
		source = in.ServiceName
	}

	if source == "" {
		// Fall through the other fields rather than refusing outright.
		for _, alt := range []string{in.ServiceName, in.MakeModel, resourceTail(in.Resource)} {
			if alt != "" {
				source = alt
				break
			}
		}
	}

	if source == "" {
		return "", fmt.Errorf("%w: %w", ErrNoName, errEmptySource)
	}

	name := SanitizeQueueName(source)
	if name == "" {
		return "", fmt.Errorf("%w: %q sanitizes to nothing", ErrNoName, source)
	}

	return name, nil
}

func (r *Resolver) matchManualCluster(in *Input) (*ManualCluster, bool) {
	tail := resourceTail(in.Resource)

	for i := range r.clusters {
		cluster := &r.clusters[i]

		for _, member := range cluster.Members {
			if memberMatches(member, in.ServiceName) ||
				memberMatches(member, in.MakeModel) ||
				memberMatches(member, tail) {
				return cluster, true
			}
		}
	}

	return nil, false
}

func memberMatches(pattern, value string) bool {
	if pattern == "" || value == "" {
		return false
	}

	return strings.EqualFold(pattern, value) ||
		strings.EqualFold(SanitizeQueueName(pattern), SanitizeQueueName(value))
}

func resourceTail(resource string) string {
	resource = strings.Trim(resource, "/")
	if resource == "" {
		return ""
	}

	if idx := strings.LastIndex(resource, "/"); idx >= 0 {
		return resource[idx+1:]
	}

	return resource
}
