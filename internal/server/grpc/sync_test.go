package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fieldsync/internal/client/idgen"
	"github.com/dmitrijs2005/fieldsync/internal/client/importer"
	"github.com/dmitrijs2005/fieldsync/internal/client/services"
	"github.com/dmitrijs2005/fieldsync/internal/client/settings"
	"github.com/dmitrijs2005/fieldsync/internal/client/storage"
	"github.com/dmitrijs2005/fieldsync/internal/models"
)

// newDevice wires a client calendar service with its own local cache to s.
func newDevice(t *testing.T, s *GRPCServer, operator string) services.CalendarService {
	t.Helper()
	ctx := context.Background()

	repos, err := storage.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	tr := newTransport(t, serveBufconn(t, s), token(t, operator, time.Hour))
	st := settings.NewStore(repos.Metadata)
	im := importer.New(tr, repos.Entities, st,
		importer.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }))
	return services.NewCalendarService(tr, repos.Entities, idgen.NewAllocator(repos.Entities), im, st)
}

func TestSynchronize_TwoDevicesConverge(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	first := newDevice(t, srv, "alice")
	second := newDevice(t, srv, "bob")

	local, err := first.SaveLocally(ctx, newCalendar())
	require.NoError(t, err)
	require.Negative(t, local.ID)

	synced, err := first.Synchronize(ctx, local)
	require.NoError(t, err)
	require.Positive(t, synced.ID)
	assert.Equal(t, models.StatusSync, synced.SynchronizationStatus)
	assert.Positive(t, synced.VesselUseFeatures[0].ID)

	// the second device edits the same calendar offline, without its id
	other := newCalendar()
	other.Comments = "checked at port"
	other.VesselUseFeatures = append(other.VesselUseFeatures,
		&models.VesselUseFeatures{StartDate: "2024-02-01", EndDate: "2024-02-29", IsActive: 0})
	otherLocal, err := second.SaveLocally(ctx, other)
	require.NoError(t, err)

	merged, err := second.Synchronize(ctx, otherLocal)
	require.NoError(t, err)
	assert.Equal(t, synced.ID, merged.ID, "same program, vessel and year keep one server calendar")
	assert.Len(t, merged.VesselUseFeatures, 2)

	remote, err := srv.calendars.LoadAll(ctx, models.CalendarFilter{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.Equal(t, "checked at port", remote[0].Comments)
}
