package dispatch

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/zdohnal/cups-browsed/pkg/ipputil"
	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
	"github.com/zdohnal/cups-browsed/pkg/registry"
	"github.com/zdohnal/cups-browsed/pkg/spooler"
)

const (
	uriAlpha = "ipp://alpha.local:631/ipp/print"
	uriBeta  = "ipp://beta.local:631/ipp/print"
)

func memberCaps() *models.Capabilities {
	return &models.Capabilities{
		PDLs: []string{"application/pdf"},
		Keywords: map[string][]string{
			models.AttrMedia:     {"iso_a4_210x297mm"},
			models.AttrColorMode: {"monochrome"},
			models.AttrSides:     {"one-sided", "two-sided-long-edge"},
		},
		Resolutions:       []models.Resolution{{X: 300, Y: 300}, {X: 600, Y: 600}, {X: 1200, Y: 1200}},
		DefaultResolution: &models.Resolution{X: 600, Y: 600},
	}
}

func clusterRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg := registry.NewRegistry(registry.Config{}, logger.NewTestLogger())
	reg.SetClock(func() time.Time { return time.Unix(1700000000, 0) })

	for _, host := range []string{"alpha", "beta"} {
		reg.AddDiscovered(&models.DiscoveryEvent{
			Identity:    models.Identity{ServiceName: "HP LJ @ " + host, Domain: "local"},
			ServiceType: "_ipp._tcp",
			Host:        host + ".local",
			Port:        631,
			Resource:    "/ipp/print",
		}, "HP_LJ")
	}

	// The cluster join re-arms the master; settle every member.
	for _, entry := range reg.Snapshot() {
		reg.Update(entry.Identity.Key(), func(p *models.RemotePrinter) {
			p.Status = models.StatusConfirmed
			p.TimeoutAt = models.TimeoutNever
			p.Capabilities = memberCaps()
		})
	}

	return reg
}

func basicJob(id int) *spooler.JobAttributes {
	return &spooler.JobAttributes{
		ID:       id,
		Format:   "application/pdf",
		PageSize: "iso_a4_210x297mm",
	}
}

func idleState() *spooler.EndpointState {
	return &spooler.EndpointState{State: models.PrinterIdle, Accepting: true}
}

// Four jobs across two idle members round-robin A, B, A, B.
func TestDispatchRoundRobin(t *testing.T) {
	ctrl := gomock.NewController(t)

	reg := clusterRegistry(t)
	client := spooler.NewMockClient(ctrl)
	endpoint := spooler.NewMockEndpointClient(ctrl)

	endpoint.EXPECT().FetchState(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string) (*spooler.EndpointState, error) {
			return idleState(), nil
		}).AnyTimes()

	var published []string

	client.EXPECT().FetchJobAttributes(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id int) (*spooler.JobAttributes, error) {
			return basicJob(id), nil
		}).Times(4)

	client.EXPECT().SetQueueOption(gomock.Any(), "HP_LJ", ipputil.AttrDestinationOption, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, value string) error {
			published = append(published, value)
			return nil
		}).Times(4)

	d := New(reg, client, endpoint, PolicyClientQueueing, logger.NewTestLogger())

	for job := 1; job <= 4; job++ {
		require.NoError(t, d.DispatchJob(context.Background(), "HP_LJ", job))
	}

	require.Len(t, published, 4)

	wantOrder := []string{uriAlpha, uriBeta, uriAlpha, uriBeta}

	for i, value := range published {
		fields := strings.Fields(value)
		require.Len(t, fields, 4, "published option %q", value)

		assert.Equal(t, fmt.Sprintf("%d", i+1), fields[0])
		assert.Equal(t, wantOrder[i], fields[1])
		assert.Equal(t, "application/pdf", fields[2])
		assert.Equal(t, "600dpi", fields[3])
	}
}

// Server-side queueing picks the busy member with the fewest active jobs.
func TestDispatchServerQueueingFewestJobs(t *testing.T) {
	ctrl := gomock.NewController(t)

	reg := clusterRegistry(t)
	client := spooler.NewMockClient(ctrl)
	endpoint := spooler.NewMockEndpointClient(ctrl)

	endpoint.EXPECT().FetchState(gomock.Any(), uriAlpha).
		Return(&spooler.EndpointState{State: models.PrinterProcessing, Accepting: true, ActiveJobs: 2}, nil)
	endpoint.EXPECT().FetchState(gomock.Any(), uriBeta).
		Return(&spooler.EndpointState{State: models.PrinterProcessing, Accepting: true, ActiveJobs: 3}, nil)

	client.EXPECT().FetchJobAttributes(gomock.Any(), 9).Return(basicJob(9), nil)

	var published string

	client.EXPECT().SetQueueOption(gomock.Any(), "HP_LJ", ipputil.AttrDestinationOption, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, value string) error {
			published = value
			return nil
		})

	d := New(reg, client, endpoint, PolicyServerQueueing, logger.NewTestLogger())

	require.NoError(t, d.DispatchJob(context.Background(), "HP_LJ", 9))

	fields := strings.Fields(published)
	require.Len(t, fields, 4)
	assert.Equal(t, uriAlpha, fields[1], "fewest active jobs wins")
}

// Client-side queueing publishes ALL_DESTS_BUSY when nobody is idle.
func TestDispatchClientQueueingAllBusy(t *testing.T) {
	ctrl := gomock.NewController(t)

	reg := clusterRegistry(t)
	client := spooler.NewMockClient(ctrl)
	endpoint := spooler.NewMockEndpointClient(ctrl)

	endpoint.EXPECT().FetchState(gomock.Any(), gomock.Any()).
		Return(&spooler.EndpointState{State: models.PrinterProcessing, Accepting: true, ActiveJobs: 1}, nil).
		Times(2)

	client.EXPECT().FetchJobAttributes(gomock.Any(), 5).Return(basicJob(5), nil)

	var published string

	client.EXPECT().SetQueueOption(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, value string) error {
			published = value
			return nil
		})

	d := New(reg, client, endpoint, PolicyClientQueueing, logger.NewTestLogger())

	require.NoError(t, d.DispatchJob(context.Background(), "HP_LJ", 5))
	assert.Contains(t, published, TokenAllBusy)
}

// A job no member can satisfy publishes NO_DEST_FOUND.
func TestDispatchNoSuitableMember(t *testing.T) {
	ctrl := gomock.NewController(t)

	reg := clusterRegistry(t)
	client := spooler.NewMockClient(ctrl)
	endpoint := spooler.NewMockEndpointClient(ctrl)

	job := basicJob(3)
	job.Format = "application/postscript" // nobody accepts it

	client.EXPECT().FetchJobAttributes(gomock.Any(), 3).Return(job, nil)

	var published string

	client.EXPECT().SetQueueOption(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, value string) error {
			published = value
			return nil
		})

	d := New(reg, client, endpoint, PolicyClientQueueing, logger.NewTestLogger())

	require.NoError(t, d.DispatchJob(context.Background(), "HP_LJ", 3))
	assert.Contains(t, published, TokenNoDest)
}

// A restart leaves the daemon with no record of the queue; the dispatcher
// fails fast.
func TestDispatchUnknownQueueFailsFast(t *testing.T) {
	ctrl := gomock.NewController(t)

	reg := registry.NewRegistry(registry.Config{}, logger.NewTestLogger())
	client := spooler.NewMockClient(ctrl)
	endpoint := spooler.NewMockEndpointClient(ctrl)

	var published string

	client.EXPECT().SetQueueOption(gomock.Any(), "ghost", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, value string) error {
			published = value
			return nil
		})

	d := New(reg, client, endpoint, PolicyClientQueueing, logger.NewTestLogger())

	require.NoError(t, d.DispatchJob(context.Background(), "ghost", 1))
	assert.Contains(t, published, TokenNoDest)
}

func TestMapDuplex(t *testing.T) {
	assert.Equal(t, "two-sided-long-edge", mapDuplex("DuplexNoTumble"))
	assert.Equal(t, "two-sided-short-edge", mapDuplex("DuplexTumble"))
	assert.Equal(t, "one-sided", mapDuplex("None"))
	assert.Equal(t, "two-sided-long-edge", mapDuplex("two-sided-long-edge"))
}

func TestSelectResolution(t *testing.T) {
	caps := memberCaps()

	assert.Equal(t, "300dpi", selectResolution(caps, qualityDraft))
	assert.Equal(t, "1200dpi", selectResolution(caps, qualityHigh))
	assert.Equal(t, "600dpi", selectResolution(caps, qualityNormal))
	assert.Equal(t, "600dpi", selectResolution(caps, 0))

	caps.DefaultResolution = nil
	assert.Equal(t, fallbackResolve, selectResolution(caps, 0))
	assert.Equal(t, fallbackResolve, selectResolution(nil, qualityHigh))
}

// Borderless page sizes match their bordered base size.
func TestSuitableBorderless(t *testing.T) {
	member := &models.RemotePrinter{Capabilities: memberCaps()}

	job := basicJob(1)
	job.PageSize = "iso_a4_210x297mm.Borderless"

	assert.True(t, suitable(member, job))

	job.PageSize = "na_letter_8.5x11in"
	assert.False(t, suitable(member, job))
}
