package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
	"github.com/zdohnal/cups-browsed/pkg/spooler"
)

func TestEventFromEntry(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: "HP LJ @ alpha",
			Service:  "_ipp._tcp",
			Domain:   "local.",
		},
		HostName: "alpha.local.",
		Port:     631,
		TTL:      120,
		Text: []string{
			"rp=printers/lj",
			"ty=HP LaserJet 600",
			"pdl=application/pdf,image/urf",
			"Color=F",
			"Duplex=T",
			"note=2nd floor",
			"UUID=abc-123",
		},
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.10")},
	}

	event := eventFromEntry(serviceIPP, entry)

	assert.Equal(t, models.EventAppeared, event.Type)
	assert.Equal(t, "HP LJ @ alpha", event.Identity.ServiceName)
	assert.Equal(t, "local", event.Identity.Domain)
	assert.Equal(t, "alpha.local", event.Host)
	assert.Equal(t, "192.168.1.10", event.IP)
	assert.Equal(t, models.FamilyIPv4, event.Family)
	assert.Equal(t, "/printers/lj", event.Resource)
	assert.Equal(t, "HP LaserJet 600", event.MakeModel)
	assert.Equal(t, []string{"application/pdf", "image/urf"}, event.PDLs)
	assert.False(t, event.Color)
	assert.True(t, event.Duplex)
	assert.Equal(t, "2nd floor", event.Location)
	assert.True(t, event.HasServiceMetadata())
}

func TestEventFromEntryGoodbye(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: "HP LJ @ alpha",
			Service:  "_ipp._tcp",
			Domain:   "local.",
		},
		TTL: 0,
	}

	event := eventFromEntry(serviceIPP, entry)
	assert.Equal(t, models.EventRemoved, event.Type)
}

func TestEventFromEntryTLSUpgradesServiceType(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: "P",
			Service:  "_ipp._tcp",
			Domain:   "local.",
		},
		TTL:  120,
		Text: []string{"TLS=1.2"},
	}

	event := eventFromEntry(serviceIPP, entry)
	assert.Equal(t, serviceIPPS, event.ServiceType)
	assert.True(t, models.SecureServiceType(event.ServiceType))
}

func TestMakeModelFromTXTProductFallback(t *testing.T) {
	assert.Equal(t, "HP LaserJet 600",
		makeModelFromTXT(map[string]string{"product": "(HP LaserJet 600)"}))
}

func TestMDNSSourceEmitsEvents(t *testing.T) {
	source := NewMDNSSource("", logger.NewTestLogger())

	source.browse = func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
		if service != serviceIPP {
			<-ctx.Done()
			return nil
		}

		entries <- &zeroconf.ServiceEntry{
			ServiceRecord: zeroconf.ServiceRecord{
				Instance: "HP LJ @ alpha",
				Service:  serviceIPP,
				Domain:   "local.",
			},
			HostName: "alpha.local.",
			Port:     631,
			TTL:      120,
		}

		<-ctx.Done()

		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, source.Start(ctx))

	select {
	case event := <-source.Events():
		assert.Equal(t, "HP LJ @ alpha", event.Identity.ServiceName)
	case <-time.After(2 * time.Second):
		t.Fatal("no event emitted")
	}

	cancel()
	require.NoError(t, source.Stop(context.Background()))
}

func TestPollSourceEmitsLegacyEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	endpoint := spooler.NewMockEndpointClient(ctrl)
	endpoint.EXPECT().ListPrinters(gomock.Any(), "remote.example", 631).Return([]spooler.RemoteQueue{
		{
			Name:      "lj",
			URI:       "ipp://remote.example:631/printers/lj",
			Resource:  "/printers/lj",
			MakeModel: "HP LaserJet 600",
		},
	}, nil).MinTimes(1)

	source := NewPollSource([]string{"remote.example"}, time.Hour, endpoint, nil, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, source.Start(ctx))

	select {
	case event := <-source.Events():
		assert.True(t, event.Legacy)
		assert.True(t, event.Identity.Legacy)
		assert.Equal(t, "remote.example", event.Identity.Host)
		assert.Equal(t, 631, event.Identity.Port)
		assert.Equal(t, "/printers/lj", event.Identity.Resource)
		assert.False(t, event.HasServiceMetadata())
	case <-time.After(2 * time.Second):
		t.Fatal("no event emitted")
	}

	require.NoError(t, source.Stop(context.Background()))
}

func TestPollSourceSurvivesPollFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	endpoint := spooler.NewMockEndpointClient(ctrl)
	endpoint.EXPECT().ListPrinters(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, assert.AnError).MinTimes(1)

	source := NewPollSource([]string{"down.example:631"}, time.Hour, endpoint, nil, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, source.Start(ctx))

	// Nothing should be emitted; the source must not crash or close early.
	select {
	case event, ok := <-source.Events():
		if ok {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, source.Stop(context.Background()))
}

func TestSplitServer(t *testing.T) {
	host, port := splitServer("remote.example:1631")
	assert.Equal(t, "remote.example", host)
	assert.Equal(t, 1631, port)

	host, port = splitServer("remote.example")
	assert.Equal(t, "remote.example", host)
	assert.Equal(t, 631, port)
}
