package naming

import (
	"errors"
	"testing"

	"github.com/zdohnal/cups-browsed/pkg/models"
)

type fakeLocalQueues map[string]models.LocalPrinter

func (f fakeLocalQueues) LookupLocal(name string) (models.LocalPrinter, bool) {
	q, ok := f[name]
	return q, ok
}

func TestSanitizeQueueName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HP LJ @ alpha", "HP_LJ__alpha"},
		{"Color LaserJet Pro", "Color_LaserJet_Pro"},
		{"a/b#c", "a_b_c"},
		{"__trimmed__", "trimmed"},
		{"ümlaut printer", "mlaut_printer"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeQueueName(tt.in); got != tt.want {
			t.Fatalf("SanitizeQueueName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeLabel(t *testing.T) {
	if got := SanitizeLabel("HP LJ @ alpha"); got != "HP-LJ-alpha" {
		t.Fatalf("SanitizeLabel = %q, want %q", got, "HP-LJ-alpha")
	}
}

func TestResolveServiceNamePolicy(t *testing.T) {
	r := NewResolver(PolicyServiceName, PolicyServiceName, nil, true)

	res, err := r.Resolve(&Input{
		ServiceName: "HP LJ @ alpha",
		MakeModel:   "HP LaserJet 600",
		Resource:    "/printers/lj",
		Host:        "alpha.local",
	}, fakeLocalQueues{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if res.QueueName != "HP_LJ__alpha" {
		t.Fatalf("QueueName = %q, want HP_LJ__alpha", res.QueueName)
	}

	if res.ManualCluster {
		t.Fatalf("unexpected manual cluster flag")
	}
}

func TestResolveCollisionFallsBackToHostQualified(t *testing.T) {
	local := fakeLocalQueues{
		"HP_LJ__alpha": {Name: "HP_LJ__alpha", Controlled: false},
	}

	r := NewResolver(PolicyServiceName, PolicyServiceName, nil, true)

	res, err := r.Resolve(&Input{
		ServiceName: "HP LJ @ alpha",
		Host:        "alpha.local",
	}, local)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if res.QueueName != "HP_LJ__alpha@alpha.local" {
		t.Fatalf("QueueName = %q, want host-qualified fallback", res.QueueName)
	}
}

func TestResolveControlledQueueIsNoCollision(t *testing.T) {
	local := fakeLocalQueues{
		"HP_LJ__alpha": {Name: "HP_LJ__alpha", Controlled: true},
	}

	r := NewResolver(PolicyServiceName, PolicyServiceName, nil, true)

	res, err := r.Resolve(&Input{ServiceName: "HP LJ @ alpha", Host: "alpha.local"}, local)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if res.QueueName != "HP_LJ__alpha" {
		t.Fatalf("QueueName = %q, want plain name", res.QueueName)
	}
}

func TestResolveManualClusterWins(t *testing.T) {
	clusters := []ManualCluster{
		{Name: "floor2", Members: []string{"HP LJ @ alpha", "HP LJ @ beta"}},
	}

	r := NewResolver(PolicyServiceName, PolicyServiceName, clusters, false)

	res, err := r.Resolve(&Input{ServiceName: "HP LJ @ beta", Host: "beta.local"}, fakeLocalQueues{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if res.QueueName != "floor2" || !res.ManualCluster {
		t.Fatalf("got %+v, want manual cluster floor2", res)
	}
}

func TestResolveRejectsManualClusterCollision(t *testing.T) {
	clusters := []ManualCluster{
		{Name: "Office", Members: []string{"some other printer"}},
	}

	r := NewResolver(PolicyServiceName, PolicyServiceName, clusters, false)

	_, err := r.Resolve(&Input{ServiceName: "Office", Host: "gamma.local"}, fakeLocalQueues{})
	if !errors.Is(err, ErrNoName) {
		t.Fatalf("expected ErrNoName, got %v", err)
	}
}

func TestResolveMakeModelPolicy(t *testing.T) {
	r := NewResolver(PolicyMakeModel, PolicyMakeModel, nil, true)

	res, err := r.Resolve(&Input{
		ServiceName:   "HP LJ @ alpha",
		MakeModel:     "HP LaserJet 600",
		RemoteSpooler: true,
	}, fakeLocalQueues{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if res.QueueName != "HP_LaserJet_600" {
		t.Fatalf("QueueName = %q, want HP_LaserJet_600", res.QueueName)
	}
}

func TestResolveResourcePolicy(t *testing.T) {
	r := NewResolver(PolicyResource, PolicyResource, nil, true)

	res, err := r.Resolve(&Input{
		ServiceName: "whatever",
		Resource:    "/printers/lj",
	}, fakeLocalQueues{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if res.QueueName != "lj" {
		t.Fatalf("QueueName = %q, want lj", res.QueueName)
	}
}

// The resolver is deterministic given the same inputs.
func TestResolveDeterministic(t *testing.T) {
	r := NewResolver(PolicyServiceName, PolicyServiceName, nil, true)
	in := &Input{ServiceName: "HP LJ @ alpha", Host: "alpha.local"}

	first, err := r.Resolve(in, fakeLocalQueues{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	for i := 0; i < 10; i++ {
		again, err := r.Resolve(in, fakeLocalQueues{})
		if err != nil || again != first {
			t.Fatalf("Resolve not deterministic: %+v vs %+v (%v)", again, first, err)
		}
	}
}

func TestValidQueueName(t *testing.T) {
	if !ValidQueueName("HP_LJ__alpha@alpha.local") {
		t.Fatalf("expected host-qualified name to be valid")
	}

	for _, bad := range []string{"", "has space", "has/slash", "has#hash"} {
		if ValidQueueName(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}
