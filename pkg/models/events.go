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

package models

import "net"

// DiscoveryEventType distinguishes the discovery event variants.
type DiscoveryEventType string

const (
	// EventAppeared is emitted when a service instance shows up or a polled
	// spooler reports a printer.
	EventAppeared DiscoveryEventType = "appeared"
	// EventRemoved is emitted when one (interface, type, family) instance of
	// a service goes away.
	EventRemoved DiscoveryEventType = "removed"
	// EventResolved is emitted once addressing and TXT metadata are known.
	EventResolved DiscoveryEventType = "resolved"
)

// DiscoveryEvent is the unified event produced by all discovery sources.
type DiscoveryEvent struct {
	Type     DiscoveryEventType
	Identity Identity

	Interface   string
	Family      AddressFamily
	ServiceType string

	Host     string
	IP       string
	Port     int
	Resource string

	MakeModel string
	PDLs      []string
	Color     bool
	Duplex    bool
	Location  string
	Info      string
	UUID      string

	// TXT carries the raw service metadata. Empty for polled printers.
	TXT map[string]string

	// SourceAddr is the address the event came from, for access control.
	SourceAddr net.IP

	Legacy bool
}

// HasServiceMetadata reports whether the event carries DNS-SD TXT metadata.
func (e *DiscoveryEvent) HasServiceMetadata() bool {
	return len(e.TXT) > 0
}

// RemoteSpooler classifies the endpoint the same way the registry record
// does: polled entries and queues exposed under /printers/ belong to a
// remote print server, everything else is a directly attached printer.
func (e *DiscoveryEvent) RemoteSpooler() bool {
	return e.Legacy || remoteSpoolerResource(e.Resource)
}

// NotificationEvent names a spooler notification kind.
type NotificationEvent string

const (
	NotifyPrinterAdded        NotificationEvent = "printer-added"
	NotifyPrinterModified     NotificationEvent = "printer-modified"
	NotifyPrinterDeleted      NotificationEvent = "printer-deleted"
	NotifyPrinterStateChanged NotificationEvent = "printer-state-changed"
	NotifyJobState            NotificationEvent = "job-state-changed"
	NotifyJobCreated          NotificationEvent = "job-created"
	NotifyJobCompleted        NotificationEvent = "job-completed"
)

// Notification is one spooler event delivered on the subscription.
type Notification struct {
	Event       NotificationEvent
	Printer     string
	PrinterURI  string
	IsDefault   bool
	JobID       int
	JobState    JobState
	SequenceNum int
}
