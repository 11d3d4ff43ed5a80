package reconciler

import (
	"context"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/zdohnal/cups-browsed/pkg/descriptor"
	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
	"github.com/zdohnal/cups-browsed/pkg/registry"
	"github.com/zdohnal/cups-browsed/pkg/spooler"
	"github.com/zdohnal/cups-browsed/pkg/state"
)

type subscribedState bool

func (s subscribedState) Subscribed() bool { return bool(s) }

type fixture struct {
	registry *registry.Registry
	client   *spooler.MockClient
	endpoint *spooler.MockEndpointClient
	store    *state.Store
	clock    *MockClock
	now      *time.Time
	rec      *Reconciler
}

func newFixture(t *testing.T, subscribed bool, config Config) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	now := time.Unix(1700000000, 0)

	clock := NewMockClock(ctrl)
	clock.EXPECT().Now().DoAndReturn(func() time.Time { return now }).AnyTimes()

	reg := registry.NewRegistry(registry.Config{ConfirmWindow: time.Minute}, logger.NewTestLogger())
	reg.SetClock(func() time.Time { return now })

	store, err := state.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	client := spooler.NewMockClient(ctrl)
	client.EXPECT().ClearTimedOut().AnyTimes()

	endpoint := spooler.NewMockEndpointClient(ctrl)

	rec := New(reg, client, endpoint,
		descriptor.NewPPDGenerator(t.TempDir()),
		store, subscribedState(subscribed), clock, config, logger.NewTestLogger())

	rec.workerSync = true

	return &fixture{
		registry: reg,
		client:   client,
		endpoint: endpoint,
		store:    store,
		clock:    clock,
		now:      &now,
		rec:      rec,
	}
}

func discoveredAlpha(reg *registry.Registry) *models.RemotePrinter {
	return reg.AddDiscovered(&models.DiscoveryEvent{
		Type:        models.EventAppeared,
		Identity:    models.Identity{ServiceName: "HP LJ @ alpha", Domain: "local"},
		Interface:   "mdns",
		Family:      models.FamilyIPv4,
		ServiceType: "_ipp._tcp",
		Host:        "alpha.local",
		Port:        631,
		Resource:    "/ipp/print",
		MakeModel:   "HP LaserJet 600",
		PDLs:        []string{"application/pdf"},
		TXT:         map[string]string{"rp": "ipp/print"},
	}, "HP_LJ__alpha")
}

// discoveredServerQueue is a queue shared by a remote CUPS server, exposed
// under /printers/.
func discoveredServerQueue(reg *registry.Registry) *models.RemotePrinter {
	return reg.AddDiscovered(&models.DiscoveryEvent{
		Type:        models.EventAppeared,
		Identity:    models.Identity{ServiceName: "HP LJ @ server", Domain: "local"},
		Interface:   "mdns",
		Family:      models.FamilyIPv4,
		ServiceType: "_ipp._tcp",
		Host:        "server.local",
		Port:        631,
		Resource:    "/printers/lj",
		MakeModel:   "HP LaserJet 600",
		PDLs:        []string{"application/pdf"},
		TXT:         map[string]string{"rp": "printers/lj"},
	}, "HP_LJ__server")
}

func printerCaps() *models.Capabilities {
	return &models.Capabilities{
		MakeModel: "HP LaserJet 600",
		PDLs:      []string{"application/pdf", "image/urf"},
		Keywords: map[string][]string{
			models.AttrMedia:     {"iso_a4_210x297mm"},
			models.AttrColorMode: {"monochrome"},
			models.AttrSides:     {"one-sided"},
		},
		Resolutions: []models.Resolution{{X: 600, Y: 600}},
		Defaults:    map[string]string{models.AttrMedia: "iso_a4_210x297mm"},
	}
}

// A fresh directly-attached endpoint appears and the queue is created with
// its real printer URI: the sentinel is reserved for remote-spooler queues,
// subscription or not. The record confirms.
func TestCreateFlowSingleEndpoint(t *testing.T) {
	f := newFixture(t, true, Config{})

	entry := discoveredAlpha(f.registry)
	key := entry.Identity.Key()

	f.client.EXPECT().Connect(gomock.Any()).Return(nil)

	// No queue exists yet.
	f.client.EXPECT().FetchQueueAttributes(gomock.Any(), "HP_LJ__alpha").
		Return(nil, spooler.ErrNotFound)

	f.endpoint.EXPECT().FetchCapabilities(gomock.Any(), "ipp://alpha.local:631/ipp/print").
		Return(printerCaps(), nil)

	var installed *spooler.QueueRequest

	f.client.EXPECT().CreateOrModifyQueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *spooler.QueueRequest) error {
			installed = req
			return nil
		})

	f.client.EXPECT().SetShared(gomock.Any(), "HP_LJ__alpha", false).Return(nil)

	// Post-install probe for the re-enable check.
	f.client.EXPECT().FetchQueueAttributes(gomock.Any(), "HP_LJ__alpha").
		Return(&spooler.QueueAttributes{Name: "HP_LJ__alpha", State: models.PrinterIdle}, nil)

	f.client.EXPECT().TimedOut().Return(false)

	f.rec.tick(context.Background())

	if installed == nil {
		t.Fatalf("queue was not installed")
	}

	if installed.DeviceURI != "ipp://alpha.local:631/ipp/print" {
		t.Fatalf("device uri = %q, want the real printer uri", installed.DeviceURI)
	}

	if installed.DescriptorPath == "" {
		t.Fatalf("descriptor file missing from request")
	}

	got, _ := f.registry.Lookup(key)

	if got.Status != models.StatusConfirmed {
		t.Fatalf("status = %q, want confirmed", got.Status)
	}

	if !got.TimeoutAt.Equal(models.TimeoutNever) {
		t.Fatalf("confirmed entry must be quiescent, got %v", got.TimeoutAt)
	}

	if got.Nickname == "" {
		t.Fatalf("nickname not captured")
	}

	if local, ok := f.registry.LookupLocal("hp_lj__alpha"); !ok || !local.Controlled {
		t.Fatalf("local cache not updated: %+v %v", local, ok)
	}
}

// A remote-spooler queue with a notification channel goes through the
// cooperating backend: the sentinel URI is installed.
func TestCreateFlowSentinelForRemoteSpooler(t *testing.T) {
	f := newFixture(t, true, Config{})

	discoveredServerQueue(f.registry)

	f.client.EXPECT().Connect(gomock.Any()).Return(nil)
	f.client.EXPECT().FetchQueueAttributes(gomock.Any(), "HP_LJ__server").
		Return(nil, spooler.ErrNotFound)
	f.endpoint.EXPECT().FetchCapabilities(gomock.Any(), "ipp://server.local:631/printers/lj").
		Return(printerCaps(), nil)

	var installed *spooler.QueueRequest

	f.client.EXPECT().CreateOrModifyQueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *spooler.QueueRequest) error {
			installed = req
			return nil
		})
	f.client.EXPECT().SetShared(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.client.EXPECT().FetchQueueAttributes(gomock.Any(), "HP_LJ__server").
		Return(&spooler.QueueAttributes{Name: "HP_LJ__server", State: models.PrinterIdle}, nil)
	f.client.EXPECT().TimedOut().Return(false)

	f.rec.tick(context.Background())

	if installed == nil || installed.DeviceURI != "implicit-cluster://HP_LJ__server" {
		t.Fatalf("device uri = %+v, want sentinel", installed)
	}
}

// Without a notification channel even a remote-spooler queue gets the real
// printer URI.
func TestCreateFlowRealURIWithoutSubscription(t *testing.T) {
	f := newFixture(t, false, Config{})

	discoveredServerQueue(f.registry)

	f.client.EXPECT().Connect(gomock.Any()).Return(nil)
	f.client.EXPECT().FetchQueueAttributes(gomock.Any(), gomock.Any()).
		Return(nil, spooler.ErrNotFound)
	f.endpoint.EXPECT().FetchCapabilities(gomock.Any(), gomock.Any()).
		Return(printerCaps(), nil)

	var installed *spooler.QueueRequest

	f.client.EXPECT().CreateOrModifyQueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *spooler.QueueRequest) error {
			installed = req
			return nil
		})
	f.client.EXPECT().SetShared(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.client.EXPECT().FetchQueueAttributes(gomock.Any(), gomock.Any()).
		Return(&spooler.QueueAttributes{State: models.PrinterIdle}, nil)
	f.client.EXPECT().TimedOut().Return(false)

	f.rec.tick(context.Background())

	if installed == nil || installed.DeviceURI != "ipp://server.local:631/printers/lj" {
		t.Fatalf("device uri = %+v, want real printer uri", installed)
	}
}

// A worker handed a slave flips its master instead of talking to the
// spooler.
func TestSlaveRedirectsToMaster(t *testing.T) {
	f := newFixture(t, true, Config{})

	master := discoveredAlpha(f.registry)
	masterKey := master.Identity.Key()

	f.registry.Update(masterKey, func(p *models.RemotePrinter) {
		p.Status = models.StatusConfirmed
		p.TimeoutAt = models.TimeoutNever
	})

	slave := f.registry.AddDiscovered(&models.DiscoveryEvent{
		Identity:    models.Identity{ServiceName: "HP LJ @ beta", Domain: "local"},
		ServiceType: "_ipp._tcp",
		Host:        "beta.local",
		Port:        631,
	}, "HP_LJ__alpha")

	// The cluster join re-armed the master; park it again so the tick only
	// touches the slave.
	f.registry.Update(masterKey, func(p *models.RemotePrinter) {
		p.Status = models.StatusConfirmed
		p.TimeoutAt = models.TimeoutNever
	})

	f.rec.tick(context.Background())

	gotMaster, _ := f.registry.Lookup(masterKey)
	if gotMaster.Status != models.StatusToBeCreated {
		t.Fatalf("master status = %q, want to-be-created", gotMaster.Status)
	}

	gotSlave, _ := f.registry.Lookup(slave.Identity.Key())
	if gotSlave.Status != models.StatusConfirmed || !gotSlave.TimeoutAt.Equal(models.TimeoutNever) {
		t.Fatalf("slave not parked: %+v", gotSlave)
	}
}

// A failed capability fetch retires the entry until the next appearance.
func TestCapabilityFetchFailure(t *testing.T) {
	f := newFixture(t, true, Config{})

	entry := discoveredAlpha(f.registry)

	f.client.EXPECT().Connect(gomock.Any()).Return(nil)
	f.client.EXPECT().FetchQueueAttributes(gomock.Any(), gomock.Any()).
		Return(nil, spooler.ErrNotFound)
	f.endpoint.EXPECT().FetchCapabilities(gomock.Any(), gomock.Any()).
		Return(nil, spooler.ErrRPCTimeout)

	f.rec.tick(context.Background())

	got, _ := f.registry.Lookup(entry.Identity.Key())

	if got.Status != models.StatusDisappeared {
		t.Fatalf("status = %q, want disappeared", got.Status)
	}
}

// Removal waits while jobs are active: the queue is disabled, the entry
// rescheduled.
func TestRemovalWaitsForActiveJobs(t *testing.T) {
	f := newFixture(t, true, Config{RetryInterval: 10 * time.Second, DisableReason: "printer vanished"})

	entry := discoveredAlpha(f.registry)
	key := entry.Identity.Key()

	f.registry.Update(key, func(p *models.RemotePrinter) {
		p.Status = models.StatusDisappeared
	})

	f.client.EXPECT().ListActiveJobs(gomock.Any(), "HP_LJ__alpha").
		Return([]models.Job{{ID: 1, State: models.JobProcessing}}, nil)
	f.client.EXPECT().GetDefault(gomock.Any()).Return("Other", nil)
	f.client.EXPECT().Disable(gomock.Any(), "HP_LJ__alpha", "printer vanished").Return(nil)

	f.rec.tick(context.Background())

	got, ok := f.registry.Lookup(key)
	if !ok {
		t.Fatalf("entry must survive while jobs drain")
	}

	if !got.TimeoutAt.Equal(f.now.Add(10 * time.Second)) {
		t.Fatalf("timeout = %v, want retry in 10s", got.TimeoutAt)
	}
}

// Deleting the current default queue without a notification channel is
// forbidden; the queue is disabled instead.
func TestRemovalProtectsDefaultWithoutNotifier(t *testing.T) {
	f := newFixture(t, false, Config{DisableReason: "printer vanished"})

	entry := discoveredAlpha(f.registry)
	key := entry.Identity.Key()

	f.registry.Update(key, func(p *models.RemotePrinter) {
		p.Status = models.StatusDisappeared
	})

	f.client.EXPECT().ListActiveJobs(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.client.EXPECT().GetDefault(gomock.Any()).Return("HP_LJ__alpha", nil)
	f.client.EXPECT().Disable(gomock.Any(), "HP_LJ__alpha", gomock.Any()).Return(nil)

	f.rec.tick(context.Background())

	if _, ok := f.registry.Lookup(key); !ok {
		t.Fatalf("protected entry must not be freed")
	}
}

// A clean removal persists the queue's options and deletes the queue.
func TestRemovalDeletesQueueAndSavesOptions(t *testing.T) {
	f := newFixture(t, true, Config{})

	entry := discoveredAlpha(f.registry)
	key := entry.Identity.Key()

	f.registry.Update(key, func(p *models.RemotePrinter) {
		p.Status = models.StatusDisappeared
	})

	f.client.EXPECT().ListActiveJobs(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.client.EXPECT().GetDefault(gomock.Any()).Return("Other", nil)
	f.client.EXPECT().FetchQueueAttributes(gomock.Any(), "HP_LJ__alpha").
		Return(&spooler.QueueAttributes{
			Name:    "HP_LJ__alpha",
			Options: map[string]string{"media-default": "iso_a4_210x297mm"},
		}, nil)
	f.client.EXPECT().DeleteQueue(gomock.Any(), "HP_LJ__alpha").Return(nil)

	f.rec.tick(context.Background())

	if _, ok := f.registry.Lookup(key); ok {
		t.Fatalf("entry must be freed after deletion")
	}

	options, err := f.store.LoadOptions("HP_LJ__alpha")
	if err != nil || options["media-default"] != "iso_a4_210x297mm" {
		t.Fatalf("options not persisted: %v %v", options, err)
	}
}

// A released queue stays in the spooler; only the record goes away.
func TestReleaseLeavesQueueAlone(t *testing.T) {
	f := newFixture(t, true, Config{})

	entry := discoveredAlpha(f.registry)
	key := entry.Identity.Key()

	f.registry.Update(key, func(p *models.RemotePrinter) {
		p.Status = models.StatusToBeReleased
		p.Options = map[string]string{"media-default": "iso_a4_210x297mm"}
	})

	f.registry.UpsertLocal(models.LocalPrinter{Name: "HP_LJ__alpha", Controlled: true})

	// Options come from the live queue when it still answers.
	f.client.EXPECT().FetchQueueAttributes(gomock.Any(), "HP_LJ__alpha").
		Return(nil, spooler.ErrNotFound)

	f.rec.tick(context.Background())

	if _, ok := f.registry.Lookup(key); ok {
		t.Fatalf("released entry must be freed")
	}

	local, ok := f.registry.LookupLocal("HP_LJ__alpha")
	if !ok || local.Controlled {
		t.Fatalf("released queue must stay cached as uncontrolled: %+v %v", local, ok)
	}

	options, err := f.store.LoadOptions("HP_LJ__alpha")
	if err != nil || len(options) == 0 {
		t.Fatalf("release must persist the written options")
	}
}

// Removing a clustered master promotes the earliest slave and never touches
// the local queue.
func TestRemovalPromotesSlave(t *testing.T) {
	f := newFixture(t, true, Config{})

	master := discoveredAlpha(f.registry)
	masterKey := master.Identity.Key()

	slave := f.registry.AddDiscovered(&models.DiscoveryEvent{
		Identity:    models.Identity{ServiceName: "HP LJ @ beta", Domain: "local"},
		ServiceType: "_ipp._tcp",
		Host:        "beta.local",
		Port:        631,
	}, "HP_LJ__alpha")

	f.registry.Update(masterKey, func(p *models.RemotePrinter) {
		p.Status = models.StatusDisappeared
	})

	f.registry.Update(slave.Identity.Key(), func(p *models.RemotePrinter) {
		p.Status = models.StatusConfirmed
		p.TimeoutAt = models.TimeoutNever
	})

	// No spooler RPC expected at all: the queue changes hands in memory.
	f.rec.tick(context.Background())

	if _, ok := f.registry.Lookup(masterKey); ok {
		t.Fatalf("old master must be freed after promotion")
	}

	promoted, _ := f.registry.Lookup(slave.Identity.Key())
	if !promoted.IsMaster() || promoted.Status != models.StatusToBeCreated {
		t.Fatalf("slave not promoted: %+v", promoted)
	}
}

// The per-tick work limit defers the overflow instead of spinning.
func TestMaxPerTickDefersOverflow(t *testing.T) {
	f := newFixture(t, true, Config{MaxPerTick: 1, PauseBetweenTicks: 2 * time.Second})

	master := discoveredAlpha(f.registry)
	masterKey := master.Identity.Key()

	f.registry.Update(masterKey, func(p *models.RemotePrinter) {
		p.Status = models.StatusConfirmed
		p.TimeoutAt = models.TimeoutNever
	})

	// Two slaves, both armed: only one worker may run this tick.
	for _, name := range []string{"HP LJ @ beta", "HP LJ @ gamma"} {
		f.registry.AddDiscovered(&models.DiscoveryEvent{
			Identity:    models.Identity{ServiceName: name, Domain: "local"},
			ServiceType: "_ipp._tcp",
			Host:        "x.local",
			Port:        631,
		}, "HP_LJ__alpha")

		f.registry.Update(masterKey, func(p *models.RemotePrinter) {
			p.Status = models.StatusConfirmed
			p.TimeoutAt = models.TimeoutNever
		})
	}

	f.rec.tick(context.Background())

	deferred, _ := f.registry.Lookup(models.Identity{ServiceName: "HP LJ @ gamma", Domain: "local"}.Key())

	if !deferred.TimeoutAt.Equal(f.now.Add(2 * time.Second)) {
		t.Fatalf("overflow entry not deferred: %v", deferred.TimeoutAt)
	}
}

// Repeated spooler timeouts abandon the entry past the configured ceiling
// instead of livelocking.
func TestRetryCeilingAbandonsEntry(t *testing.T) {
	f := newFixture(t, true, Config{MaxRetries: 2, RetryInterval: time.Second})

	entry := discoveredAlpha(f.registry)
	key := entry.Identity.Key()

	f.client.EXPECT().Connect(gomock.Any()).Return(spooler.ErrRPCTimeout).Times(3)

	for i := 0; i < 3; i++ {
		f.rec.tick(context.Background())

		// Expire the retry delay.
		*f.now = f.now.Add(2 * time.Second)
	}

	if _, ok := f.registry.Lookup(key); ok {
		t.Fatalf("entry must be abandoned after exceeding the retry ceiling")
	}
}

// An expired confirm window reclaims a previous-session queue.
func TestUnconfirmedExpiryDeletesQueue(t *testing.T) {
	f := newFixture(t, true, Config{})

	entry := f.registry.AddUnconfirmed("HP_LJ__old", "implicit-cluster://HP_LJ__old")

	// The confirm window has passed.
	*f.now = f.now.Add(2 * time.Minute)

	f.client.EXPECT().ListActiveJobs(gomock.Any(), "HP_LJ__old").Return(nil, nil)
	f.client.EXPECT().GetDefault(gomock.Any()).Return("Other", nil)
	f.client.EXPECT().FetchQueueAttributes(gomock.Any(), "HP_LJ__old").
		Return(nil, spooler.ErrNotFound)
	f.client.EXPECT().DeleteQueue(gomock.Any(), "HP_LJ__old").Return(nil)

	f.rec.tick(context.Background())

	if _, ok := f.registry.Lookup(entry.Identity.Key()); ok {
		t.Fatalf("unconfirmed entry must be reclaimed after the window")
	}
}

// A shared HTTP timeout during the pass flips the entry back for another
// round instead of confirming a half-applied queue.
func TestPartialSuccessRetries(t *testing.T) {
	f := newFixture(t, true, Config{RetryInterval: 5 * time.Second})

	entry := discoveredAlpha(f.registry)
	key := entry.Identity.Key()

	f.client.EXPECT().Connect(gomock.Any()).Return(nil)
	f.client.EXPECT().FetchQueueAttributes(gomock.Any(), gomock.Any()).
		Return(nil, spooler.ErrNotFound)
	f.endpoint.EXPECT().FetchCapabilities(gomock.Any(), gomock.Any()).
		Return(printerCaps(), nil)
	f.client.EXPECT().CreateOrModifyQueue(gomock.Any(), gomock.Any()).Return(nil)
	f.client.EXPECT().SetShared(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.client.EXPECT().FetchQueueAttributes(gomock.Any(), gomock.Any()).
		Return(&spooler.QueueAttributes{State: models.PrinterIdle}, nil)
	f.client.EXPECT().TimedOut().Return(true)

	f.rec.tick(context.Background())

	got, _ := f.registry.Lookup(key)

	if got.Status != models.StatusToBeCreated {
		t.Fatalf("status = %q, want to-be-created for retry", got.Status)
	}

	if got.RetryCount != 1 {
		t.Fatalf("retryCount = %d, want 1", got.RetryCount)
	}
}
