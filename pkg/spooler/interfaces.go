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

//go:generate mockgen -destination=mock_spooler.go -package=spooler github.com/zdohnal/cups-browsed/pkg/spooler Client,EndpointClient

// Package spooler wraps all RPC to the local print spooler and to remote
// endpoints. Every call runs under a bounded timeout; a timed-out call
// raises a shared flag the reconciler reads after each step.
package spooler

import (
	"context"

	"github.com/zdohnal/cups-browsed/pkg/models"
)

// Client is the local spooler RPC surface.
type Client interface {
	// Connect probes the spooler with a bounded timeout.
	Connect(ctx context.Context) error

	ListLocalPrinters(ctx context.Context) ([]models.LocalPrinter, error)
	FetchQueueAttributes(ctx context.Context, name string) (*QueueAttributes, error)
	FetchJobAttributes(ctx context.Context, jobID int) (*JobAttributes, error)

	CreateOrModifyQueue(ctx context.Context, req *QueueRequest) error
	SetShared(ctx context.Context, name string, shared bool) error
	DeleteQueue(ctx context.Context, name string) error
	Enable(ctx context.Context, name string) error
	Disable(ctx context.Context, name, reason string) error

	SetDefault(ctx context.Context, name string) error
	GetDefault(ctx context.Context) (string, error)

	ListActiveJobs(ctx context.Context, queue string) ([]models.Job, error)

	// SetQueueOption publishes a queue option default, used for the per-job
	// destination option the cooperating backend reads.
	SetQueueOption(ctx context.Context, queue, option, value string) error

	Subscribe(ctx context.Context, events []string) (int, error)
	RenewSubscription(ctx context.Context, subscriptionID int) error
	CancelSubscription(ctx context.Context, subscriptionID int) error
	GetNotifications(ctx context.Context, subscriptionID, firstSequence int) ([]models.Notification, error)

	// TimedOut reports and ClearTimedOut resets the shared HTTP-timeout
	// flag raised by any RPC since the last reset.
	TimedOut() bool
	ClearTimedOut()
}

// EndpointClient talks IPP to remote endpoints.
type EndpointClient interface {
	// FetchCapabilities retrieves the endpoint's capability document.
	FetchCapabilities(ctx context.Context, uri string) (*models.Capabilities, error)

	// FetchState retrieves the live state triple used for job dispatch.
	FetchState(ctx context.Context, uri string) (*EndpointState, error)

	// ListPrinters enumerates the queues of a remote spooler, for polled
	// discovery.
	ListPrinters(ctx context.Context, host string, port int) ([]RemoteQueue, error)
}

// EndpointState is the dispatch-relevant live state of one endpoint.
type EndpointState struct {
	State      models.PrinterState
	Accepting  bool
	ActiveJobs int
}

// RemoteQueue is one queue reported by a polled remote spooler.
type RemoteQueue struct {
	Name      string
	URI       string
	Resource  string
	MakeModel string
	Location  string
	Info      string
}

// QueueAttributes is the daemon's view of one local queue.
type QueueAttributes struct {
	Name         string
	DeviceURI    string
	Info         string
	Location     string
	Nickname     string
	UUID         string
	Shared       bool
	Temporary    bool
	Remote       bool
	Controlled   bool
	State        models.PrinterState
	StateReasons []string
	StateMessage string
	Accepting    bool

	// Options holds the queue's portable option defaults, persisted before
	// removal and restored on re-creation.
	Options map[string]string
}

// JobAttributes carries the requested options of one job.
type JobAttributes struct {
	ID          int
	Format      string
	PageSize    string
	Sides       string
	ColorMode   string
	MediaType   string
	MediaSource string
	OutputBin   string
	Finishings  []int
	Quality     int
	Orientation int
	Copies      int
}

// QueueRequest describes the desired state of a local queue.
type QueueRequest struct {
	Name           string
	DeviceURI      string
	DescriptorPath string
	Info           string
	Location       string
	Shared         *bool
	// Options are restored option defaults applied with the queue.
	Options map[string]string
}
