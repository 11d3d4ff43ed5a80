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

// Package models holds the shared data model of the daemon: remote printer
// records, discovery events, capability documents and spooler mirrors.
package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// PrinterStatus is the lifecycle state of a registry entry.
type PrinterStatus string

const (
	// StatusUnconfirmed marks a queue inherited from a previous session that
	// has not been re-seen by a discovery source yet.
	StatusUnconfirmed PrinterStatus = "unconfirmed"
	// StatusConfirmed marks an entry whose local queue matches desired state.
	StatusConfirmed PrinterStatus = "confirmed"
	// StatusToBeCreated marks an entry whose local queue must be created or
	// modified on the next reconciler pass.
	StatusToBeCreated PrinterStatus = "to-be-created"
	// StatusToBeReleased marks an entry whose local queue has been taken over
	// by the user; the queue is left alone and the record retired.
	StatusToBeReleased PrinterStatus = "to-be-released"
	// StatusDisappeared marks an entry whose discovery instances are all gone.
	StatusDisappeared PrinterStatus = "disappeared"
)

// Terminal reports whether the status retires the entry.
func (s PrinterStatus) Terminal() bool {
	return s == StatusDisappeared || s == StatusToBeReleased
}

// TimeoutNever is the quiescent timeout value: the reconciler never acts on
// an entry carrying it.
var TimeoutNever = time.Unix(1<<40, 0)

// DeletedMasterKey is the identity key of the long-lived sentinel record a
// slave may point at while its master is being torn down.
const DeletedMasterKey = "@deleted-master"

// Identity names a remote endpoint across discovery events. Service-browsed
// printers are identified by (service name, domain); polled ones by
// (host, port, resource).
type Identity struct {
	ServiceName string `json:"service_name,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Resource    string `json:"resource,omitempty"`
	Legacy      bool   `json:"legacy,omitempty"`
}

// Key returns the registry lookup key for the identity.
func (id Identity) Key() string {
	if id.Legacy {
		return fmt.Sprintf("%s:%d%s", strings.ToLower(id.Host), id.Port, id.Resource)
	}

	return strings.ToLower(id.ServiceName) + "." + strings.ToLower(id.Domain)
}

// AddressFamily of a discovery instance.
type AddressFamily string

const (
	FamilyIPv4 AddressFamily = "ipv4"
	FamilyIPv6 AddressFamily = "ipv6"
)

// DiscoveryInstance is one (interface, service type, address family) tuple
// through which an endpoint has been seen.
type DiscoveryInstance struct {
	Interface   string        `json:"interface"`
	ServiceType string        `json:"service_type"`
	Family      AddressFamily `json:"family"`
}

// SecureServiceType reports whether the service type carries TLS.
func SecureServiceType(serviceType string) bool {
	return strings.HasPrefix(serviceType, "_ipps.") || strings.HasPrefix(serviceType, "_ipps-")
}

// LoopbackInterface reports whether the interface name is the loopback.
func LoopbackInterface(ifname string) bool {
	return ifname == "lo" || ifname == "lo0"
}

// Less orders discovery instances by preference: loopback first, then
// interface name, then secure over insecure, then IPv4 over IPv6.
func (d DiscoveryInstance) Less(other DiscoveryInstance) bool {
	if LoopbackInterface(d.Interface) != LoopbackInterface(other.Interface) {
		return LoopbackInterface(d.Interface)
	}

	if d.Interface != other.Interface {
		return d.Interface < other.Interface
	}

	if SecureServiceType(d.ServiceType) != SecureServiceType(other.ServiceType) {
		return SecureServiceType(d.ServiceType)
	}

	if d.Family != other.Family {
		return d.Family == FamilyIPv4
	}

	return false
}

// RemotePrinter is the registry record for one discovered endpoint.
type RemotePrinter struct {
	Identity  Identity
	QueueName string

	// URI is the endpoint locator installed as the local queue's device URI.
	// For a cluster master with a notification channel it is the
	// implicit-cluster:// sentinel.
	URI      string
	Host     string
	IP       string
	Port     int
	Resource string

	ServiceName string
	ServiceType string
	Domain      string
	Discoveries []DiscoveryInstance

	MakeModel string
	PDLs      []string
	Color     bool
	Duplex    bool
	Location  string
	Info      string
	// Nickname is the driver descriptor nickname recorded at create time and
	// compared during overwrite detection.
	Nickname string

	Capabilities *Capabilities
	Options      map[string]string

	Status    PrinterStatus
	TimeoutAt time.Time

	// SlaveOf is the identity key of the cluster master, empty for the master
	// itself, or DeletedMasterKey during master teardown.
	SlaveOf string

	LastDestinationIndex int
	RetryCount           int

	Legacy      bool
	Overwritten bool
	Called      bool
}

// IsMaster reports whether the entry represents its cluster to the spooler.
func (p *RemotePrinter) IsMaster() bool {
	return p.SlaveOf == ""
}

// RemoteSpooler reports whether the endpoint is a queue on a remote print
// server rather than a directly attached network printer.
func (p *RemotePrinter) RemoteSpooler() bool {
	return p.Legacy || remoteSpoolerResource(p.Resource)
}

// remoteSpoolerResource is the single classification rule shared by records
// and discovery events: queues exposed under /printers/ live on a spooler.
func remoteSpoolerResource(resource string) bool {
	return strings.HasPrefix(strings.TrimPrefix(resource, "/"), "printers/")
}

// RemoteURI is the endpoint's real printer URI, built from its addressing.
func (p *RemotePrinter) RemoteURI() string {
	scheme := "ipp"
	if SecureServiceType(p.ServiceType) {
		scheme = "ipps"
	}

	resource := p.Resource
	if resource == "" {
		resource = "/"
	}

	port := p.Port
	if port == 0 {
		port = 631
	}

	return fmt.Sprintf("%s://%s:%d%s", scheme, p.Host, port, resource)
}

// SentinelURI builds the implicit-cluster device URI for a queue name.
func SentinelURI(queueName string) string {
	return "implicit-cluster://" + url.PathEscape(queueName)
}

// IsSentinelURI reports whether uri points back at the daemon.
func IsSentinelURI(uri string) bool {
	return strings.HasPrefix(uri, "implicit-cluster://")
}

// Clone returns a deep copy of the record.
func (p *RemotePrinter) Clone() *RemotePrinter {
	if p == nil {
		return nil
	}

	dst := *p

	if len(p.Discoveries) > 0 {
		dst.Discoveries = append([]DiscoveryInstance(nil), p.Discoveries...)
	}

	if len(p.PDLs) > 0 {
		dst.PDLs = append([]string(nil), p.PDLs...)
	}

	if len(p.Options) > 0 {
		opts := make(map[string]string, len(p.Options))
		for k, v := range p.Options {
			opts[k] = v
		}

		dst.Options = opts
	}

	dst.Capabilities = p.Capabilities.Clone()

	return &dst
}

// LocalPrinter mirrors one queue of the local spooler, keyed by lowercased
// name in the cache.
type LocalPrinter struct {
	Name      string
	DeviceURI string
	UUID      string
	// Controlled records whether this daemon created the queue.
	Controlled bool
}

// Job is one spooler job.
type Job struct {
	ID    int
	Queue string
	State JobState
}

// JobState is the spooler job state.
type JobState int

const (
	JobPending    JobState = 3
	JobHeld       JobState = 4
	JobProcessing JobState = 5
	JobStopped    JobState = 6
	JobCanceled   JobState = 7
	JobAborted    JobState = 8
	JobCompleted  JobState = 9
)

// Active reports whether the job still occupies the queue.
func (s JobState) Active() bool {
	return s < JobStopped
}

// PrinterState is the live state of a printer or queue.
type PrinterState int

const (
	PrinterIdle       PrinterState = 3
	PrinterProcessing PrinterState = 4
	PrinterStopped    PrinterState = 5
)
