package models

import "testing"

// Records and discovery events must classify remote-spooler endpoints
// identically: polled entries and /printers/ resources belong to a spooler,
// everything else is directly attached.
func TestRemoteSpoolerClassification(t *testing.T) {
	tests := []struct {
		name     string
		resource string
		legacy   bool
		want     bool
	}{
		{name: "direct ipp everywhere printer", resource: "/ipp/print", want: false},
		{name: "cups shared queue over mdns", resource: "/printers/lj", want: true},
		{name: "cups shared queue without leading slash", resource: "printers/lj", want: true},
		{name: "polled queue", resource: "/printers/lj", legacy: true, want: true},
		{name: "polled queue with odd resource", resource: "/lj", legacy: true, want: true},
		{name: "empty resource", resource: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			printer := &RemotePrinter{Resource: tt.resource, Legacy: tt.legacy}
			event := &DiscoveryEvent{Resource: tt.resource, Legacy: tt.legacy}

			if got := printer.RemoteSpooler(); got != tt.want {
				t.Fatalf("RemotePrinter.RemoteSpooler() = %v, want %v", got, tt.want)
			}

			if got := event.RemoteSpooler(); got != printer.RemoteSpooler() {
				t.Fatalf("event and record classifications disagree: %v vs %v",
					got, printer.RemoteSpooler())
			}
		})
	}
}

func TestSentinelURI(t *testing.T) {
	uri := SentinelURI("HP LJ")

	if uri != "implicit-cluster://HP%20LJ" {
		t.Fatalf("SentinelURI = %q", uri)
	}

	if !IsSentinelURI(uri) {
		t.Fatalf("IsSentinelURI(%q) = false", uri)
	}

	if IsSentinelURI("ipp://alpha.local:631/ipp/print") {
		t.Fatalf("real uri mistaken for sentinel")
	}
}
